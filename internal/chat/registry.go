package chat

import (
	"fmt"
	"sort"
	"sync"
)

// ProviderFactory defines how to create a provider of a specific type.
//
// Each backend package exposes a RegisterProviderFactory function that adds
// its factory to DefaultRegistry:
//
//	func RegisterProviderFactory() {
//	    if chat.IsRegistered(ProviderType) {
//	        return
//	    }
//	    chat.RegisterFactory(chat.ProviderFactory{
//	        Type:           ProviderType,
//	        Description:    "Google Gemini API",
//	        Create:         Create,
//	        ValidateConfig: chat.ValidateAPIKey,
//	    })
//	}
//
// registration.RegisterBuiltins calls each of them; cmd/gateway runs it at
// startup before building the refiner.
type ProviderFactory struct {
	// Type is the identifier used in configuration (chat.provider).
	Type string

	// Description is a human-readable description of the provider.
	Description string

	// Create instantiates a provider for one call.
	Create func(cfg ProviderConfig) (Provider, error)

	// ValidateConfig performs provider-specific validation. Optional.
	ValidateConfig func(cfg ProviderConfig) error
}

// Registry holds provider factories keyed by type.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// DefaultRegistry is the process-wide registry used by RegisterFactory.
var DefaultRegistry = NewRegistry()

// RegisterFactory registers f with DefaultRegistry.
func RegisterFactory(f ProviderFactory) {
	DefaultRegistry.Register(f)
}

// Register adds a factory. It panics on an empty type, a missing Create or a
// duplicate registration.
func (r *Registry) Register(f ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f.Type == "" {
		panic("provider factory type cannot be empty")
	}
	if f.Create == nil {
		panic(fmt.Sprintf("provider factory %q must have a Create function", f.Type))
	}
	if _, exists := r.factories[f.Type]; exists {
		panic(fmt.Sprintf("provider factory %q already registered", f.Type))
	}
	r.factories[f.Type] = f
}

// Get returns the factory for providerType.
func (r *Registry) Get(providerType string) (ProviderFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[providerType]
	return f, ok
}

// List returns all factories sorted by type.
func (r *Registry) List() []ProviderFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ProviderFactory, 0, len(r.factories))
	for _, f := range r.factories {
		result = append(result, f)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Type < result[j].Type
	})
	return result
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	factories := r.List()
	types := make([]string, len(factories))
	for i, f := range factories {
		types[i] = f.Type
	}
	return types
}

// IsRegistered reports whether providerType has a factory.
func (r *Registry) IsRegistered(providerType string) bool {
	_, ok := r.Get(providerType)
	return ok
}

// Create validates cfg and builds a provider with the registered factory.
func (r *Registry) Create(cfg ProviderConfig) (Provider, error) {
	f, ok := r.Get(cfg.Type)
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s (registered types: %v)", cfg.Type, r.Types())
	}
	if f.ValidateConfig != nil {
		if err := f.ValidateConfig(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration for provider type %s: %w", cfg.Type, err)
		}
	}
	return f.Create(cfg)
}

// IsRegistered reports whether DefaultRegistry has providerType.
func IsRegistered(providerType string) bool {
	return DefaultRegistry.IsRegistered(providerType)
}
