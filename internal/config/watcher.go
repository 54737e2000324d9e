package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultReloadInterval is the polling interval used when none is set.
const DefaultReloadInterval = 5 * time.Second

// Watcher polls a config file and reports hot-reloadable changes.
//
// A file whose content hash is unchanged, or that fails to load or validate,
// is ignored and the previous config is kept. Changes outside the
// reloadable fields are logged as needing a restart.
type Watcher struct {
	path     string
	interval time.Duration
	onReload func(ConfigDiff)

	mu       sync.Mutex
	current  *Config
	lastHash [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. Non-positive values keep
// [DefaultReloadInterval].
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads path once and returns a watcher that calls onReload with
// every diff that has a hot-reloadable change. Polling starts with
// [Watcher.Start].
func NewWatcher(path string, onReload func(ConfigDiff), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: DefaultReloadInterval,
		onReload: onReload,
	}
	for _, opt := range opts {
		opt(w)
	}
	cfg, hash, err := w.load()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.lastHash = hash
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Start polls in a background goroutine until ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.Check(); err != nil {
					slog.Warn("config watcher: keeping previous config", "path", w.path, "err", err)
				}
			}
		}
	}()
}

// Check reloads the file once. It returns the diff against the previous
// config, or a zero diff when the content is unchanged. onReload runs only
// when the diff has a reloadable change.
func (w *Watcher) Check() (ConfigDiff, error) {
	cfg, hash, err := w.load()
	if err != nil {
		return ConfigDiff{}, err
	}

	w.mu.Lock()
	if hash == w.lastHash {
		w.mu.Unlock()
		return ConfigDiff{}, nil
	}
	old := w.current
	w.current = cfg
	w.lastHash = hash
	w.mu.Unlock()

	d := Diff(old, cfg)
	if len(d.RestartRequired) > 0 {
		slog.Warn("config watcher: changes need a restart to apply", "path", w.path, "sections", d.RestartRequired)
	}
	if d.Changed() && w.onReload != nil {
		w.onReload(d)
	}
	return d, nil
}

func (w *Watcher) load() (*Config, [sha256.Size]byte, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, [sha256.Size]byte{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, [sha256.Size]byte{}, err
	}
	return cfg, sha256.Sum256(data), nil
}
