package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/kanaset/internal/app"
	"github.com/MrWong99/kanaset/internal/config"
	"github.com/MrWong99/kanaset/internal/random"
	"github.com/MrWong99/kanaset/internal/resilience"
	"github.com/MrWong99/kanaset/pkg/provider/inference"
	"github.com/MrWong99/kanaset/pkg/provider/inference/chat"
	"github.com/MrWong99/kanaset/pkg/provider/inference/dummy"
	"github.com/MrWong99/kanaset/pkg/provider/llm"
	"github.com/MrWong99/kanaset/pkg/provider/llm/anyllm"
	"github.com/MrWong99/kanaset/pkg/provider/llm/openai"
	"github.com/MrWong99/kanaset/pkg/provider/sink"
	"github.com/MrWong99/kanaset/pkg/provider/sink/jsonl"
	"github.com/MrWong99/kanaset/pkg/provider/sink/postgres"
	"github.com/MrWong99/kanaset/pkg/provider/source"
	"github.com/MrWong99/kanaset/pkg/provider/source/cmudict"
	"github.com/MrWong99/kanaset/pkg/provider/source/shortwords"
)

// dummySeedOffset separates the dummy backend's random stream from the one
// used for word limiting and probe sampling.
const dummySeedOffset = 0x6b616e61

// registerBuiltinProviders wires all built-in provider factories into reg.
// runID tags rows written by database sinks.
func registerBuiltinProviders(reg *config.Registry, runID string) {
	// ── Sources ───────────────────────────────────────────────────────────────

	reg.RegisterSource("cmudict", func(f config.Factory) (source.Provider, error) {
		return cmudict.New(f.Entry.StringOption("path", cmudict.DefaultPath)), nil
	})
	reg.RegisterSource("shortwords", func(config.Factory) (source.Provider, error) {
		return shortwords.New(), nil
	})

	// ── Inference ─────────────────────────────────────────────────────────────
	// Every any-llm-go backend shares the same pattern: optional APIKey +
	// optional BaseURL, wrapped by the chat prompt adapter. ollama, llamacpp
	// and llamafile are local servers and ignore the key.
	for _, name := range anyllm.Backends {
		reg.RegisterInference(name, func(f config.Factory) (inference.Provider, error) {
			var opts []anyllmlib.Option
			if f.Entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(f.Entry.APIKey))
			}
			if f.Entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(f.Entry.BaseURL))
			}
			backend, err := anyllm.New(name, f.Entry.Model, opts...)
			if err != nil {
				return nil, err
			}
			return newChat(backend, f.Entry)
		})
	}

	// openai-direct talks to OpenAI or any compatible endpoint through the
	// official SDK, which exposes the HTTP status of failures.
	reg.RegisterInference("openai-direct", func(f config.Factory) (inference.Provider, error) {
		var opts []openai.Option
		if f.Entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(f.Entry.BaseURL))
		}
		if org := f.Entry.StringOption("organization", ""); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		if raw := f.Entry.StringOption("timeout", ""); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("openai-direct: timeout option: %w", err)
			}
			opts = append(opts, openai.WithTimeout(d))
		}
		backend, err := openai.New(f.Entry.APIKey, f.Entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return newChat(backend, f.Entry)
	})

	reg.RegisterInference("dummy", func(f config.Factory) (inference.Provider, error) {
		e := f.Entry
		return dummy.New(random.New(f.Run.RandomSeed+dummySeedOffset),
			dummy.WithSkipRate(e.FloatOption("skip_rate", dummy.DefaultNoiseRate)),
			dummy.WithGarbageRate(e.FloatOption("garbage_rate", dummy.DefaultNoiseRate)),
			dummy.WithSpellRate(e.FloatOption("spell_rate", dummy.DefaultNoiseRate)),
			dummy.WithRateLimitRate(e.FloatOption("rate_limit_rate", 0)),
			dummy.WithMaxBatch(e.IntOption("max_batch", 0)),
		), nil
	})

	// ── Sinks ─────────────────────────────────────────────────────────────────

	reg.RegisterSink("jsonl", func(f config.Factory) (sink.Sink, error) {
		return jsonl.New(f.Entry.StringOption("path", jsonl.DefaultPath)), nil
	})
	reg.RegisterSink("postgres", func(f config.Factory) (sink.Sink, error) {
		opts := []postgres.Option{postgres.WithRunID(runID)}
		if table := f.Entry.StringOption("table", ""); table != "" {
			opts = append(opts, postgres.WithTable(table))
		}
		return postgres.New(f.Entry.DSN, opts...)
	})

	for kind, names := range reg.Names() {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// newChat wraps an LLM backend with the word-list prompt.
func newChat(backend llm.Provider, entry config.ProviderEntry) (inference.Provider, error) {
	var opts []chat.Option
	if t := entry.FloatOption("temperature", -1); t >= 0 {
		opts = append(opts, chat.WithTemperature(t))
	}
	if n := entry.IntOption("max_tokens", 0); n > 0 {
		opts = append(opts, chat.WithMaxTokens(n))
	}
	return chat.New(backend, opts...)
}

// buildProviders instantiates the three providers named in cfg and returns
// them with the closers of those that hold resources.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, []func() error, error) {
	ps := &app.Providers{}
	var closers []func() error
	track := func(v any) {
		if c, ok := v.(io.Closer); ok {
			closers = append(closers, c.Close)
		}
	}

	src, err := reg.CreateSource(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create source provider %q: %w", cfg.Providers.Source.Name, err)
	}
	ps.Source = src
	slog.Info("provider created", "kind", "source", "name", cfg.Providers.Source.Name)

	inf, err := buildInference(cfg, reg)
	if err != nil {
		return nil, nil, err
	}
	ps.Inference = inf
	track(inf)

	snk, err := reg.CreateSink(cfg)
	if err != nil {
		closeAll(closers)
		return nil, nil, fmt.Errorf("create sink provider %q: %w", cfg.Providers.Sink.Name, err)
	}
	ps.Sink = snk
	track(snk)
	slog.Info("provider created", "kind", "sink", "name", cfg.Providers.Sink.Name)

	return ps, closers, nil
}

// buildInference creates the inference backend and, when fallbacks are
// configured, chains them behind it with per-backend circuit breakers.
func buildInference(cfg *config.Config, reg *config.Registry) (inference.Provider, error) {
	primary := cfg.Providers.Inference
	inf, err := reg.CreateInference(cfg)
	if err != nil {
		return nil, fmt.Errorf("create inference provider %q: %w", primary.Name, err)
	}
	slog.Info("provider created", "kind", "inference", "name", primary.Name, "model", primary.Model)
	if len(cfg.Providers.InferenceFallbacks) == 0 {
		return inf, nil
	}

	fb := resilience.NewInferenceFallback(inf, backendLabel(primary), resilience.CircuitBreakerConfig{
		MaxFailures:  cfg.Providers.Breaker.MaxFailures,
		ResetTimeout: cfg.Providers.Breaker.ResetTimeout,
	})
	for i, entry := range cfg.Providers.InferenceFallbacks {
		p, err := reg.CreateInferenceEntry(entry, cfg.Run)
		if err != nil {
			_ = fb.Close()
			return nil, fmt.Errorf("create inference fallback %d %q: %w", i, entry.Name, err)
		}
		fb.AddFallback(backendLabel(entry), p)
		slog.Info("provider created", "kind", "inference_fallback", "name", entry.Name, "model", entry.Model)
	}
	return fb, nil
}

func backendLabel(e config.ProviderEntry) string {
	if e.Model == "" {
		return e.Name
	}
	return e.Name + "/" + e.Model
}

func closeAll(closers []func() error) {
	var errs []error
	for _, c := range closers {
		errs = append(errs, c())
	}
	if err := errors.Join(errs...); err != nil {
		slog.Warn("closing providers", "err", err)
	}
}
