package resolver

import (
	"fmt"

	"domainvet/internal/ports"
)

// Registry keeps a mapping from resolver names to their implementations.
// The chain order is assembled from config by name, so deployments can
// reorder or drop strategies without code changes.
type Registry struct {
	resolvers map[string]ports.Resolver
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{resolvers: map[string]ports.Resolver{}}
}

// Register adds or replaces a resolver implementation.
func (r *Registry) Register(res ports.Resolver) {
	if r.resolvers == nil {
		r.resolvers = map[string]ports.Resolver{}
	}
	r.resolvers[res.Name()] = res
}

// Resolve returns a resolver by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.Resolver, error) {
	if res, ok := r.resolvers[name]; ok {
		return res, nil
	}
	return nil, fmt.Errorf("resolver %s is not registered", name)
}

// BuildChain assembles resolvers in the requested priority order.
func (r *Registry) BuildChain(names []string) ([]ports.Resolver, error) {
	chain := make([]ports.Resolver, 0, len(names))
	for _, name := range names {
		res, err := r.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("build chain: %w", err)
		}
		chain = append(chain, res)
	}
	return chain, nil
}
