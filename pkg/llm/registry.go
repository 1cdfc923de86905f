package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrProviderNotFound indicates the requested provider is not registered.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderAlreadyRegistered indicates a provider with this name already exists.
	ErrProviderAlreadyRegistered = errors.New("provider already registered")

	// ErrNoDefaultProvider indicates no default provider has been set.
	ErrNoDefaultProvider = errors.New("no default provider configured")

	// ErrInvalidProvider indicates the provider implementation is invalid.
	ErrInvalidProvider = errors.New("invalid provider")
)

// Registry manages registered LLM providers and dispatches completion
// requests to them. It is the engine's only network-facing boundary and is
// safe for concurrent use.
type Registry struct {
	mu              sync.RWMutex
	providers       map[string]Provider
	defaultProvider string
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry.
// Returns an error if a provider with the same name is already registered.
func (r *Registry) Register(provider Provider) error {
	if provider == nil {
		return fmt.Errorf("%w: provider is nil", ErrInvalidProvider)
	}

	name := provider.Name()
	if name == "" {
		return fmt.Errorf("%w: provider name is empty", ErrInvalidProvider)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: %s", ErrProviderAlreadyRegistered, name)
	}

	r.providers[name] = provider

	// First registered provider becomes the default.
	if r.defaultProvider == "" {
		r.defaultProvider = name
	}

	return nil
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}

	return provider, nil
}

// SetDefault sets the default provider used when no hint is supplied.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; !exists {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}

	r.defaultProvider = name
	return nil
}

// Default returns the default provider.
func (r *Registry) Default() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.defaultProvider == "" {
		return nil, ErrNoDefaultProvider
	}

	return r.providers[r.defaultProvider], nil
}

// List returns the names of all registered providers in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// resolve returns the provider for the given hint, falling back to the
// default provider when the hint is empty.
func (r *Registry) resolve(hint string) (Provider, error) {
	if hint == "" {
		return r.Default()
	}
	return r.Get(hint)
}

// CreateCompletion dispatches a completion request to the hinted provider,
// or the default provider when hint is empty. When req.Stream is set and the
// provider supports streaming, the result carries a chunk channel; otherwise
// it carries a full response. Callers must check Streaming() on the result.
func (r *Registry) CreateCompletion(ctx context.Context, req CompletionRequest, hint string) (*CompletionResult, error) {
	provider, err := r.resolve(hint)
	if err != nil {
		return nil, err
	}

	if req.Stream && provider.Capabilities().Streaming {
		chunks, err := provider.Stream(ctx, req)
		if err != nil {
			return nil, err
		}
		return &CompletionResult{Chunks: chunks, Provider: provider.Name()}, nil
	}

	resp, err := provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Provider == "" {
		resp.Provider = provider.Name()
	}

	return &CompletionResult{Response: resp, Provider: provider.Name()}, nil
}
