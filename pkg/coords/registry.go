package coords

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the named coordinate systems of a dataset
type Registry struct {
	mu      sync.RWMutex
	systems map[string]*CoordinateSystem
}

// NewRegistry creates a registry pre-populated with the given systems
func NewRegistry(systems ...*CoordinateSystem) (*Registry, error) {
	r := &Registry{systems: make(map[string]*CoordinateSystem)}
	for _, cs := range systems {
		if err := r.Register(cs); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a coordinate system. Registering the same definition twice
// is a no-op; redefining an existing name is an error.
func (r *Registry) Register(cs *CoordinateSystem) error {
	if cs == nil {
		return fmt.Errorf("%w: nil coordinate system", ErrInvalidCoordinateSystem)
	}
	if err := cs.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.systems[cs.Name]; ok {
		if existing.Equal(cs) {
			return nil
		}
		return fmt.Errorf("%w: %q is already registered as %s", ErrCoordinateSystemMismatch, cs.Name, existing)
	}
	r.systems[cs.Name] = cs
	return nil
}

// Lookup returns the coordinate system with the given name
func (r *Registry) Lookup(name string) (*CoordinateSystem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cs, ok := r.systems[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", ErrMissingCoordinateSystem, name)
	}
	return cs, nil
}

// Names returns the registered names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.systems))
	for n := range r.systems {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
