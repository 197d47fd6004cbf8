package adapter

import (
	"fmt"
	"sort"

	"healthtrack-api/core/config"
	"healthtrack-api/modules/integration/entity"
)

// Registry resolves provider identifiers to their adapters. It is built once
// at boot from config and never mutated, so lookups need no locking.
type Registry struct {
	adapters map[entity.Provider]Adapter
}

func NewRegistry(cfg config.OAuthConfig) *Registry {
	r := &Registry{adapters: make(map[entity.Provider]Adapter)}
	r.register(NewStrava(cfg.Strava, cfg.RedirectURI))
	r.register(NewFitbit(cfg.Fitbit, cfg.RedirectURI))
	r.register(NewCalorieTracker(cfg.CalorieTracker, cfg.RedirectURI))
	return r
}

func (r *Registry) register(a Adapter) {
	r.adapters[a.Provider()] = a
}

// Get returns the adapter for p. An unknown provider here is a programming
// error: entity.ParseProvider guards every external input before it reaches
// the registry.
func (r *Registry) Get(p entity.Provider) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", p)
	}
	return a, nil
}

func (r *Registry) IsSupported(p entity.Provider) bool {
	_, ok := r.adapters[p]
	return ok
}

// Supported lists the registered providers in stable order.
func (r *Registry) Supported() []entity.Provider {
	out := make([]entity.Provider, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
