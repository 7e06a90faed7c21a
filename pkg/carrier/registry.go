package carrier

import (
	"fmt"
	"sync"
)

// Registry manages registered carriers and their platform-wide priority
// ordering. Iteration order of a map is not deterministic, so the priority
// list is explicit: InPriorityOrder walks the configured names, never the
// map.
type Registry struct {
	carriers map[string]Carrier
	priority []string
	mu       sync.RWMutex
}

// NewRegistry creates a registry with the given carrier priority list.
// Names in the list that never get a registered carrier are skipped at
// iteration time.
func NewRegistry(priority []string) *Registry {
	return &Registry{
		carriers: make(map[string]Carrier),
		priority: append([]string(nil), priority...),
	}
}

// Register adds a carrier to the registry. A carrier whose name is not in
// the priority list is appended at the end.
func (r *Registry) Register(c Carrier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := c.Name()
	if _, exists := r.carriers[name]; !exists && !r.inPriority(name) {
		r.priority = append(r.priority, name)
	}
	r.carriers[name] = c
}

func (r *Registry) inPriority(name string) bool {
	for _, n := range r.priority {
		if n == name {
			return true
		}
	}
	return false
}

// Get returns a carrier by name.
func (r *Registry) Get(name string) (Carrier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.carriers[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, name)
}

// InPriorityOrder returns the registered carriers in configured priority
// order. Priority entries without a registered carrier are skipped.
func (r *Registry) InPriorityOrder() []Carrier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Carrier, 0, len(r.carriers))
	for _, name := range r.priority {
		if c, ok := r.carriers[name]; ok {
			result = append(result, c)
		}
	}
	return result
}

// Names returns the names of registered carriers in priority order.
func (r *Registry) Names() []string {
	names := make([]string, 0)
	for _, c := range r.InPriorityOrder() {
		names = append(names, c.Name())
	}
	return names
}

// Count returns the number of registered carriers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carriers)
}
