package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/kanaset/pkg/provider/inference"
	"github.com/MrWong99/kanaset/pkg/provider/sink"
	"github.com/MrWong99/kanaset/pkg/provider/source"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Factory is the input handed to provider constructors: the provider's own
// entry plus the run settings some providers need, such as the seed for the
// dummy backend.
type Factory struct {
	Entry ProviderEntry
	Run   RunConfig
}

// Registry maps provider names to their constructor functions for each
// provider kind. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	source    map[string]func(Factory) (source.Provider, error)
	inference map[string]func(Factory) (inference.Provider, error)
	sink      map[string]func(Factory) (sink.Sink, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		source:    make(map[string]func(Factory) (source.Provider, error)),
		inference: make(map[string]func(Factory) (inference.Provider, error)),
		sink:      make(map[string]func(Factory) (sink.Sink, error)),
	}
}

// RegisterSource registers a word source factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSource(name string, factory func(Factory) (source.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.source[name] = factory
}

// RegisterInference registers an inference backend factory under name.
func (r *Registry) RegisterInference(name string, factory func(Factory) (inference.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inference[name] = factory
}

// RegisterSink registers a dataset sink factory under name.
func (r *Registry) RegisterSink(name string, factory func(Factory) (sink.Sink, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink[name] = factory
}

// CreateSource instantiates the word source registered under
// cfg.Providers.Source.Name. Returns [ErrProviderNotRegistered] if no
// factory has been registered for that name.
func (r *Registry) CreateSource(cfg *Config) (source.Provider, error) {
	entry := cfg.Providers.Source
	r.mu.RLock()
	factory, ok := r.source[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: source/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(Factory{Entry: entry, Run: cfg.Run})
}

// CreateInference instantiates the backend registered under
// cfg.Providers.Inference.Name.
func (r *Registry) CreateInference(cfg *Config) (inference.Provider, error) {
	return r.CreateInferenceEntry(cfg.Providers.Inference, cfg.Run)
}

// CreateInferenceEntry instantiates the backend described by entry. It is
// used for the entries of cfg.Providers.InferenceFallbacks.
func (r *Registry) CreateInferenceEntry(entry ProviderEntry, run RunConfig) (inference.Provider, error) {
	r.mu.RLock()
	factory, ok := r.inference[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: inference/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(Factory{Entry: entry, Run: run})
}

// CreateSink instantiates the sink registered under cfg.Providers.Sink.Name.
func (r *Registry) CreateSink(cfg *Config) (sink.Sink, error) {
	entry := cfg.Providers.Sink
	r.mu.RLock()
	factory, ok := r.sink[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: sink/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(Factory{Entry: entry, Run: cfg.Run})
}

// Names returns the registered names per kind, for help output.
func (r *Registry) Names() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string][]string{}
	for n := range r.source {
		out["source"] = append(out["source"], n)
	}
	for n := range r.inference {
		out["inference"] = append(out["inference"], n)
	}
	for n := range r.sink {
		out["sink"] = append(out["sink"], n)
	}
	return out
}
