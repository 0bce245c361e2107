package adapters

import (
	"strings"

	"github.com/andreymarc/magnex-billing/internal/billing/domain"
)

// Registry holds the configured provider adapters keyed by provider name.
type Registry struct {
	adapters map[string]domain.ProviderAdapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...domain.ProviderAdapter) *Registry {
	byName := make(map[string]domain.ProviderAdapter, len(adapters))
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(adapter.Provider()))
		if name == "" {
			continue
		}
		byName[name] = adapter
	}
	return &Registry{adapters: byName}
}

// Lookup returns the adapter for a provider name.
func (r *Registry) Lookup(provider string) (domain.ProviderAdapter, bool) {
	if r == nil {
		return nil, false
	}
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(provider))]
	return adapter, ok
}
