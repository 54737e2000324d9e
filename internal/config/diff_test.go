package config_test

import (
	"slices"
	"testing"
	"time"

	"github.com/MrWong99/kanaset/internal/config"
)

func TestDiff(t *testing.T) {
	t.Parallel()
	base := func() *config.Config {
		retries := 5
		return &config.Config{
			Server: config.ServerConfig{LogLevel: config.LogInfo},
			Run:    config.RunConfig{ThrottleInterval: time.Second, Concurrency: 4, MaxRetries: &retries},
		}
	}

	tests := []struct {
		name         string
		mutate       func(*config.Config)
		wantLog      bool
		wantThrottle bool
		wantRestart  []string
	}{
		{"identical", func(*config.Config) {}, false, false, nil},
		{"log level", func(c *config.Config) { c.Server.LogLevel = config.LogDebug }, true, false, nil},
		{"throttle", func(c *config.Config) { c.Run.ThrottleInterval = 2 * time.Second }, false, true, nil},
		{"concurrency", func(c *config.Config) { c.Run.Concurrency = 16 }, false, false, []string{"run"}},
		{"max retries", func(c *config.Config) { zero := 0; c.Run.MaxRetries = &zero }, false, false, []string{"run"}},
		{"batch", func(c *config.Config) { c.Run.Batch.Size = 40 }, false, false, []string{"run.batch"}},
		{"metrics addr", func(c *config.Config) { c.Server.MetricsAddr = ":1" }, false, false, []string{"server"}},
		{"provider", func(c *config.Config) { c.Providers.Inference.Model = "other" }, false, false, []string{"providers"}},
		{
			"mixed",
			func(c *config.Config) {
				c.Server.LogLevel = config.LogDebug
				c.Providers.Sink.Options = map[string]any{"path": "x.jsonl"}
			},
			true, false, []string{"providers"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			newCfg := base()
			tc.mutate(newCfg)
			d := config.Diff(base(), newCfg)
			if d.LogLevelChanged != tc.wantLog || d.ThrottleChanged != tc.wantThrottle {
				t.Fatalf("Diff = %+v", d)
			}
			if !slices.Equal(d.RestartRequired, tc.wantRestart) {
				t.Errorf("RestartRequired = %v, want %v", d.RestartRequired, tc.wantRestart)
			}
			if d.Changed() != (tc.wantLog || tc.wantThrottle) {
				t.Errorf("Changed() = %v", d.Changed())
			}
			if tc.wantLog && d.NewLogLevel != config.LogDebug {
				t.Errorf("NewLogLevel = %q", d.NewLogLevel)
			}
			if tc.wantThrottle && d.NewThrottleInterval != 2*time.Second {
				t.Errorf("NewThrottleInterval = %s", d.NewThrottleInterval)
			}
		})
	}
}
