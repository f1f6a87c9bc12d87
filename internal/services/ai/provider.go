package ai

import (
	"context"
)

// CompletionProvider is the interface to the external text-completion service.
// A single operation: given a prompt, return the completion text or an
// unavailability error. Callers never distinguish failure causes; they branch
// on success vs. ErrUnavailable and fall back.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProviderFactory creates a completion provider from a string config map
type ProviderFactory func(config map[string]string) (CompletionProvider, error)

// ProviderRegistry stores available completion providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (CompletionProvider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "completion provider not found: " + e.Name
}
