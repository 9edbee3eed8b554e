package feedsource

import (
	"context"
	"fmt"
)

// Entry is the tolerant parsed form of one feed item. Optional fields hold
// their zero value when the feed omitted them; readers decide the default
// explicitly instead of probing dynamic attributes.
type Entry struct {
	Title         string
	Link          string
	AlternateLink string
	Summary       string
	Author        string
	Tags          []string
	Published     string
	Updated       string
}

// Provider acquires raw feed entries from one kind of location (HTTP URL,
// local file).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, ref string) ([]Entry, error)
}

// Registry keeps a mapping from provider names to their implementations.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: map[string]Provider{}}
}

// Register adds or replaces a provider implementation.
func (r *Registry) Register(provider Provider) {
	if r.providers == nil {
		r.providers = map[string]Provider{}
	}
	r.providers[provider.Name()] = provider
}

// Resolve returns a provider by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Provider, error) {
	if provider, ok := r.providers[name]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("feed provider %s is not registered", name)
}
