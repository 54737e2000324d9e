package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"source":    {"cmudict", "shortwords"},
	"inference": {"openai", "openai-direct", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile", "dummy"},
	"sink":      {"jsonl", "postgres"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// environment overrides, and validates the result. Useful in tests where
// configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero fields of cfg with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	run := &cfg.Run
	if run.Concurrency == 0 {
		run.Concurrency = DefaultConcurrency
	}
	if run.Cooldown == 0 {
		run.Cooldown = DefaultCooldown
	}
	if run.MaxRetries == nil {
		n := DefaultMaxRetries
		run.MaxRetries = &n
	}
	if run.MaxRounds == 0 {
		run.MaxRounds = DefaultMaxRounds
	}
	if run.MinNumWords == 0 {
		run.MinNumWords = DefaultMinNumWords
	}
	b := &run.Batch
	if b.ProbeMin == 0 {
		b.ProbeMin = DefaultProbeMin
	}
	if b.ProbeMax == 0 {
		b.ProbeMax = DefaultProbeMax
	}
	if b.SafetyRatio == 0 {
		b.SafetyRatio = DefaultSafetyRatio
	}
	if b.MinSize == 0 {
		b.MinSize = DefaultMinSize
	}
}

// ApplyEnv overrides provider entries from the environment, so that secrets
// such as KANASET_INFERENCE_API_KEY or KANASET_SINK_DSN need not live in the
// config file. Unset variables leave the file's values untouched.
func ApplyEnv(cfg *Config) error {
	entries := []struct {
		prefix string
		entry  *ProviderEntry
	}{
		{"KANASET_SOURCE_", &cfg.Providers.Source},
		{"KANASET_INFERENCE_", &cfg.Providers.Inference},
		{"KANASET_SINK_", &cfg.Providers.Sink},
	}
	for _, e := range entries {
		if err := env.ParseWithOptions(e.entry, env.Options{Prefix: e.prefix}); err != nil {
			return fmt.Errorf("config: environment %s*: %w", e.prefix, err)
		}
	}
	return nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ReloadInterval < 0 {
		errs = append(errs, fmt.Errorf("server.reload_interval %s must not be negative", cfg.Server.ReloadInterval))
	}

	run := cfg.Run
	if run.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("run.concurrency %d must be at least 1", run.Concurrency))
	}
	if run.MaxNumWords < 0 {
		errs = append(errs, fmt.Errorf("run.max_num_words %d must not be negative", run.MaxNumWords))
	}
	if run.MinNumWords < 0 {
		errs = append(errs, fmt.Errorf("run.min_num_words %d must not be negative", run.MinNumWords))
	}
	if run.ThrottleInterval < 0 {
		errs = append(errs, fmt.Errorf("run.throttle_interval %s must not be negative", run.ThrottleInterval))
	}
	if run.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("run.cooldown %s must not be negative", run.Cooldown))
	}
	if retries := run.Retries(); retries < 0 {
		errs = append(errs, fmt.Errorf("run.max_retries %d must not be negative", retries))
	}
	if run.MaxRounds <= run.Retries() {
		errs = append(errs, fmt.Errorf("run.max_rounds %d must exceed run.max_retries %d", run.MaxRounds, run.Retries()))
	}

	b := run.Batch
	if b.Size < 0 {
		errs = append(errs, fmt.Errorf("run.batch.size %d must not be negative", b.Size))
	}
	if b.Size == 0 {
		if b.ProbeMin < 1 {
			errs = append(errs, fmt.Errorf("run.batch.probe_min %d must be at least 1", b.ProbeMin))
		}
		if b.ProbeMax < b.ProbeMin {
			errs = append(errs, fmt.Errorf("run.batch.probe_max %d is below probe_min %d", b.ProbeMax, b.ProbeMin))
		}
		if b.SafetyRatio <= 0 || b.SafetyRatio > 1 {
			errs = append(errs, fmt.Errorf("run.batch.safety_ratio %.2f is out of range (0, 1]", b.SafetyRatio))
		}
		if b.MinSize < 1 {
			errs = append(errs, fmt.Errorf("run.batch.min_size %d must be at least 1", b.MinSize))
		}
	}

	if cfg.Providers.Source.Name == "" {
		errs = append(errs, errors.New("providers.source.name is required"))
	}
	if cfg.Providers.Inference.Name == "" {
		errs = append(errs, errors.New("providers.inference.name is required"))
	}
	if cfg.Providers.Sink.Name == "" {
		errs = append(errs, errors.New("providers.sink.name is required"))
	}
	validateProviderName("source", cfg.Providers.Source.Name)
	validateProviderName("inference", cfg.Providers.Inference.Name)
	validateProviderName("sink", cfg.Providers.Sink.Name)

	for i, fb := range cfg.Providers.InferenceFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.inference_fallbacks[%d].name is required", i))
			continue
		}
		validateProviderName("inference", fb.Name)
	}
	if cfg.Providers.Breaker.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("providers.breaker.max_failures %d must not be negative", cfg.Providers.Breaker.MaxFailures))
	}
	if cfg.Providers.Breaker.ResetTimeout < 0 {
		errs = append(errs, fmt.Errorf("providers.breaker.reset_timeout %s must not be negative", cfg.Providers.Breaker.ResetTimeout))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
