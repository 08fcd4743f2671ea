// Package registry holds the process-local table of agent factories. The
// registry stores descriptors only; agent instances are constructed and owned
// by the engine. Reads dominate writes, so the table is guarded by an RWMutex.
package registry

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/enerflow/enerflow/runtime/agent"
	"github.com/enerflow/enerflow/runtime/fault"
)

// Factory constructs an agent instance. The engine calls the returned agent's
// Init separately.
type Factory func(ctx context.Context) (agent.Agent, error)

// Descriptor is one registry entry.
type Descriptor struct {
	// Name is the unique agent name.
	Name string
	// Factory constructs the agent.
	Factory Factory
	// DomainTags group agents by capability area (e.g. "energy", "finance").
	DomainTags []string
}

// Registry maps agent names to descriptors.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Descriptor
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Descriptor)}
}

// Register adds a descriptor under name. Re-registering the same factory
// under the same name is a no-op; a different factory under an existing name
// fails with DuplicateAgent. Factory identity is compared by function pointer.
func (r *Registry) Register(name string, factory Factory, tags ...string) error {
	if name == "" {
		return fault.New(fault.ConfigError, "agent name is required")
	}
	if factory == nil {
		return fault.Newf(fault.ConfigError, "agent %s has no factory", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[name]; ok {
		if reflect.ValueOf(existing.Factory).Pointer() == reflect.ValueOf(factory).Pointer() {
			return nil
		}
		return fault.Newf(fault.DuplicateAgent, "agent %s is already registered with a different factory", name)
	}
	r.entries[name] = Descriptor{Name: name, Factory: factory, DomainTags: tags}
	return nil
}

// Get returns the descriptor for name or UnknownAgent.
func (r *Registry) Get(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[name]
	if !ok {
		return Descriptor{}, fault.Newf(fault.UnknownAgent, "agent %s is not registered", name)
	}
	return d, nil
}

// List returns all registered agent names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByDomain returns the names of agents carrying the given domain tag, sorted.
func (r *Registry) ByDomain(tag string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name, d := range r.entries {
		for _, t := range d.DomainTags {
			if t == tag {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}
