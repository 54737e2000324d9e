// Command kanaset builds an English-word to katakana pronunciation dataset by
// batching words through an inference backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/kanaset/internal/app"
	"github.com/MrWong99/kanaset/internal/config"
	"github.com/MrWong99/kanaset/internal/health"
	"github.com/MrWong99/kanaset/internal/observe"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "kanaset.yaml", "path to the YAML configuration file")
	dryRun := flag.Bool("dry-run", false, "probe the batch size and exit without draining")
	noProgress := flag.Bool("no-progress", false, "disable the progress bar")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "kanaset: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "kanaset: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(newLogger(level))

	runID := uuid.NewString()
	slog.Info("kanaset starting",
		"version", version,
		"run_id", runID,
		"config", *configPath,
		"log_level", cfg.Server.LogLevel,
		"dry_run", *dryRun,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = observe.WithRunID(ctx, runID)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, runID)

	providers, closers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Metrics and health listener (optional) ────────────────────────────────
	hh := health.New(readinessCheckers(providers)...)
	if cfg.Server.MetricsAddr != "" {
		srv := startMetricsServer(cfg.Server.MetricsAddr, runID, tel.MetricsHandler, hh)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	printStartupSummary(cfg, runID)

	progress := newProgress(!*noProgress && !*dryRun)
	opts := []app.Option{
		app.WithOnStart(progress.Start),
		app.WithOnBatch(progress.Update),
	}
	for _, c := range closers {
		opts = append(opts, app.WithCloser(c))
	}
	application, err := app.New(cfg, providers, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot reload (optional) ──────────────────────────────────────────
	if cfg.Server.ReloadInterval > 0 {
		w, err := config.NewWatcher(*configPath, func(d config.ConfigDiff) {
			applyReload(d, level, application)
		}, config.WithInterval(cfg.Server.ReloadInterval))
		if err != nil {
			slog.Warn("config reload disabled", "err", err)
		} else {
			w.Start(ctx)
		}
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	hh.SetPhase(health.PhaseRunning)
	var sum *app.Summary
	if *dryRun {
		sum, err = application.DryRun(ctx)
	} else {
		sum, err = application.Run(ctx)
	}
	progress.Finish()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if serr := application.Shutdown(shutdownCtx); serr != nil {
		slog.Warn("shutdown error", "err", serr)
	}

	if err != nil {
		hh.SetPhase(health.PhaseFailed)
		if errors.Is(err, context.Canceled) {
			slog.Warn("run interrupted, nothing was written")
		} else {
			slog.Error("run failed, nothing was written", "err", err)
		}
		printFailure(err)
		return 1
	}
	hh.SetPhase(health.PhaseDone)
	printSummary(os.Stdout, sum)
	return 0
}

// startMetricsServer serves /metrics, /healthz and /readyz on addr in the
// background. Every response carries the run id.
func startMetricsServer(addr, runID string, handler http.Handler, hh *health.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", handler)
	hh.Register(mux)
	srv := &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(observe.DefaultMetrics())(mux),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return observe.WithRunID(context.Background(), runID)
		},
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "addr", addr, "err", err)
		}
	}()
	slog.Info("metrics listener started", "addr", addr)
	return srv
}

// readinessCheckers returns a check for every provider that can report its
// own readiness, such as an inference fallback chain with open breakers.
func readinessCheckers(ps *app.Providers) []health.Checker {
	type readier interface {
		Ready(ctx context.Context) error
	}
	var out []health.Checker
	for name, p := range map[string]any{"source": ps.Source, "inference": ps.Inference, "sink": ps.Sink} {
		if r, ok := p.(readier); ok {
			out = append(out, health.Checker{Name: name, Check: r.Ready})
		}
	}
	return out
}

// applyReload applies the hot-reloadable parts of a config change.
func applyReload(d config.ConfigDiff, level *slog.LevelVar, application *app.App) {
	if d.LogLevelChanged {
		level.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "log_level", d.NewLogLevel)
	}
	if d.ThrottleChanged {
		application.SetThrottleInterval(d.NewThrottleInterval)
		slog.Info("throttle interval changed", "throttle_interval", d.NewThrottleInterval)
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
