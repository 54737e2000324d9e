// Package config provides the configuration schema, loader, and provider
// registry for kanaset.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Default values applied by [ApplyDefaults] to zero fields.
const (
	DefaultConcurrency = 4
	DefaultCooldown    = 60 * time.Second
	DefaultMaxRetries  = 5
	DefaultMaxRounds   = 10
	DefaultProbeMin    = 1
	DefaultProbeMax    = 1000
	DefaultSafetyRatio = 0.9
	DefaultMinSize     = 10
	DefaultMinNumWords = 1
)

// Config is the root configuration structure for kanaset.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Run       RunConfig       `yaml:"run"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig holds process-level settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address of the Prometheus /metrics listener
	// (e.g., ":9464"). Empty disables the listener.
	MetricsAddr string `yaml:"metrics_addr"`

	// ReloadInterval is how often the config file is polled for changes to
	// the hot-reloadable fields. Zero disables reloading.
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// RunConfig holds the knobs of one dataset run.
type RunConfig struct {
	// RandomSeed seeds word-list limiting, work order, probe sampling and
	// the dummy backend.
	RandomSeed uint64 `yaml:"random_seed"`

	// MaxNumWords keeps a seeded random subset of the source words. Zero
	// keeps all of them.
	MaxNumWords int `yaml:"max_num_words"`

	// MinNumWords aborts the run when fewer words remain after limiting.
	MinNumWords int `yaml:"min_num_words"`

	// Concurrency is the number of pool workers.
	Concurrency int `yaml:"concurrency"`

	// ThrottleInterval is the minimum spacing between any two submissions.
	// Zero disables pacing. Hot-reloadable.
	ThrottleInterval time.Duration `yaml:"throttle_interval"`

	// Cooldown is the pool-wide pause after a rate limit.
	Cooldown time.Duration `yaml:"cooldown"`

	// MaxRetries is how many times a word may be requeued before it is
	// dropped. Nil means [DefaultMaxRetries]; zero drops a word on its first
	// failure. Read it through [RunConfig.Retries].
	MaxRetries *int `yaml:"max_retries"`

	// MaxRounds caps the number of drain rounds. Must exceed MaxRetries.
	MaxRounds int `yaml:"max_rounds"`

	// Batch selects the batch size policy.
	Batch BatchConfig `yaml:"batch"`
}

// Retries returns the retry limit, falling back to [DefaultMaxRetries] when
// MaxRetries is unset.
func (r RunConfig) Retries() int {
	if r.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *r.MaxRetries
}

// BatchConfig selects between a fixed batch size and probing.
type BatchConfig struct {
	// Size, when positive, is used as the batch size and probing is skipped.
	Size int `yaml:"size"`

	// ProbeMin and ProbeMax bound the probed sizes.
	ProbeMin int `yaml:"probe_min"`
	ProbeMax int `yaml:"probe_max"`

	// SafetyRatio scales the probed capacity down, in (0, 1].
	SafetyRatio float64 `yaml:"safety_ratio"`

	// MinSize aborts the run when the probed capacity is smaller.
	MinSize int `yaml:"min_size"`
}

// ProvidersConfig declares which implementation to use for each stage. Each
// field selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	Source    ProviderEntry `yaml:"source"`
	Inference ProviderEntry `yaml:"inference"`
	Sink      ProviderEntry `yaml:"sink"`

	// InferenceFallbacks are tried in order when the inference backend fails
	// or its circuit breaker is open.
	InferenceFallbacks []ProviderEntry `yaml:"inference_fallbacks"`

	// Breaker tunes the per-backend circuit breakers. It only applies when
	// InferenceFallbacks is non-empty.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings. Zero fields keep the
// breaker's own defaults.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that takes a backend
	// out of rotation.
	MaxFailures int `yaml:"max_failures"`

	// ResetTimeout is how long a tripped backend is skipped before it is
	// probed again.
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// ProviderEntry is the common configuration block shared by all provider
// kinds. The Name field is used to look up the constructor in the [Registry].
//
// The env tags are read with a per-kind prefix (KANASET_SOURCE_,
// KANASET_INFERENCE_, KANASET_SINK_) and override the file.
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "gemini",
	// "cmudict", "jsonl").
	Name string `yaml:"name" env:"NAME"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key" env:"API_KEY"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url" env:"BASE_URL"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model" env:"MODEL"`

	// DSN is a connection string for database-backed providers.
	DSN string `yaml:"dsn" env:"DSN"`

	// Options holds provider-specific values not covered by the standard
	// fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// StringOption returns Options[key] as a string, or def when it is missing
// or not a string.
func (e ProviderEntry) StringOption(key, def string) string {
	if s, ok := e.Options[key].(string); ok && s != "" {
		return s
	}
	return def
}

// FloatOption returns Options[key] as a float64, or def when it is missing
// or not numeric.
func (e ProviderEntry) FloatOption(key string, def float64) float64 {
	switch v := e.Options[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// IntOption returns Options[key] as an int, or def when it is missing or not
// an integer.
func (e ProviderEntry) IntOption(key string, def int) int {
	switch v := e.Options[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}
