package lora

import "fmt"

// Registry is an immutable lookup of providers by URL path segment.
// It is built once at startup and is safe for concurrent reads.
type Registry struct {
	bySegment map[string]Provider
}

// NewRegistry builds a registry from the given providers. It returns
// an error if a provider has an empty path segment or two providers
// claim the same segment.
func NewRegistry(providers ...Provider) (*Registry, error) {
	bySegment := make(map[string]Provider, len(providers))

	for _, p := range providers {
		segment := p.PathSegment()
		if segment == "" {
			return nil, fmt.Errorf("provider %s has an empty path segment", p.Name())
		}

		if existing, ok := bySegment[segment]; ok {
			return nil, fmt.Errorf("path segment %q claimed by both %s and %s",
				segment, existing.Name(), p.Name())
		}

		bySegment[segment] = p
	}

	return &Registry{bySegment}, nil
}

// Lookup returns the provider registered for the path segment, or
// false if none is.
func (r *Registry) Lookup(segment string) (Provider, bool) {
	p, ok := r.bySegment[segment]

	return p, ok
}

// Providers returns all registered providers in unspecified order.
func (r *Registry) Providers() []Provider {
	providers := make([]Provider, 0, len(r.bySegment))
	for _, p := range r.bySegment {
		providers = append(providers, p)
	}

	return providers
}
