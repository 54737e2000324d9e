package config_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/kanaset/internal/config"
)

const watcherBaseYAML = `
server:
  log_level: info
run:
  throttle_interval: 1s
providers:
  source: {name: cmudict}
  inference: {name: gemini}
  sink: {name: jsonl}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}

// newWatcher writes the base config and returns a watcher that records
// every reload it reports.
func newWatcher(t *testing.T) (w *config.Watcher, path string, reloads *[]config.ConfigDiff) {
	t.Helper()
	path = filepath.Join(t.TempDir(), "kanaset.yaml")
	writeFile(t, path, watcherBaseYAML)
	var got []config.ConfigDiff
	w, err := config.NewWatcher(path, func(d config.ConfigDiff) { got = append(got, d) })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	return w, path, &got
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	w, _, _ := newWatcher(t)
	if cfg := w.Current(); cfg == nil || cfg.Run.ThrottleInterval != time.Second {
		t.Fatalf("Current() = %+v", cfg)
	}
}

func TestWatcher_InitialLoadFails(t *testing.T) {
	t.Parallel()
	if _, err := config.NewWatcher(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestWatcher_ReloadableChange(t *testing.T) {
	t.Parallel()
	w, path, reloads := newWatcher(t)

	writeFile(t, path, `
server:
  log_level: debug
run:
  throttle_interval: 200ms
providers:
  source: {name: cmudict}
  inference: {name: gemini}
  sink: {name: jsonl}
`)
	d, err := w.Check()
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("log level diff = %+v", d)
	}
	if !d.ThrottleChanged || d.NewThrottleInterval != 200*time.Millisecond {
		t.Errorf("throttle diff = %+v", d)
	}
	if len(*reloads) != 1 {
		t.Fatalf("onReload called %d times, want 1", len(*reloads))
	}
	if w.Current().Server.LogLevel != config.LogDebug {
		t.Errorf("Current() not updated")
	}

	// Same content again is not a change.
	if d, err := w.Check(); err != nil || d.Changed() {
		t.Errorf("second Check = %+v, %v", d, err)
	}
	if len(*reloads) != 1 {
		t.Errorf("onReload called %d times, want 1", len(*reloads))
	}
}

func TestWatcher_RestartOnlyChange(t *testing.T) {
	t.Parallel()
	w, path, reloads := newWatcher(t)

	writeFile(t, path, watcherBaseYAML+"  inference_fallbacks: [{name: dummy}]\n")
	d, err := w.Check()
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Changed() {
		t.Errorf("Changed() = true for a provider-only edit")
	}
	if !slices.Equal(d.RestartRequired, []string{"providers"}) {
		t.Errorf("RestartRequired = %v", d.RestartRequired)
	}
	if len(*reloads) != 0 {
		t.Errorf("onReload called %d times, want 0", len(*reloads))
	}
}

func TestWatcher_InvalidFileKeepsOldConfig(t *testing.T) {
	t.Parallel()
	w, path, reloads := newWatcher(t)

	writeFile(t, path, "server: {log_level: bananas}\n")
	if _, err := w.Check(); err == nil {
		t.Fatal("expected validation error")
	}
	if len(*reloads) != 0 {
		t.Errorf("onReload called for an invalid file")
	}
	if w.Current().Server.LogLevel != config.LogInfo {
		t.Errorf("Current() log level = %q, want the previous one", w.Current().Server.LogLevel)
	}
}

func TestWatcher_StartPolls(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "kanaset.yaml")
	writeFile(t, path, watcherBaseYAML)

	got := make(chan config.ConfigDiff, 1)
	w, err := config.NewWatcher(path, func(d config.ConfigDiff) {
		select {
		case got <- d:
		default:
		}
	}, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	writeFile(t, path, strings.Replace(watcherBaseYAML, "throttle_interval: 1s", "throttle_interval: 3s", 1))
	select {
	case d := <-got:
		if d.NewThrottleInterval != 3*time.Second {
			t.Errorf("NewThrottleInterval = %s, want 3s", d.NewThrottleInterval)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reload within 2s")
	}
}
