package source

import (
	"fmt"

	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
)

// Registry keeps a mapping from source names to their client
// implementations.
type Registry struct {
	clients map[string]ports.SourceClient
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: map[string]ports.SourceClient{}}
}

// Register adds or replaces a source client.
func (r *Registry) Register(client ports.SourceClient) {
	if r.clients == nil {
		r.clients = map[string]ports.SourceClient{}
	}
	r.clients[client.Name()] = client
}

// Resolve returns a client by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.SourceClient, error) {
	if client, ok := r.clients[name]; ok {
		return client, nil
	}
	return nil, fmt.Errorf("source %s is not registered", name)
}

// ResolveAll returns the clients for the given names, preserving order.
// The order determines how results from different sources merge.
func (r *Registry) ResolveAll(names []string) ([]ports.SourceClient, error) {
	clients := make([]ports.SourceClient, 0, len(names))
	for _, name := range names {
		client, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, nil
}
