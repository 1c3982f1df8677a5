// Package registry associates spatial elements with their transformations
// to named coordinate systems. Each element maps every coordinate system
// name to exactly one transformation; having no entry for a system is a
// valid state until someone asks for it.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/element"
	"spatialcoords/pkg/transform"
)

// ErrAmbiguousCoordinateSystem reports an element with several coordinate
// systems when exactly one was expected.
var ErrAmbiguousCoordinateSystem = errors.New("ambiguous coordinate system")

// Getter is the read-only view of a registry used by extent computation
type Getter interface {
	// Get returns the transformation of e to the named coordinate system
	Get(e element.Element, coordinateSystem string) (transform.Transformation, error)

	// GetAll returns every transformation of e, keyed by coordinate system
	GetAll(e element.Element) map[string]transform.Transformation
}

// Registry is an in-memory transformation registry keyed by element name
type Registry struct {
	mu      sync.RWMutex
	systems *coords.Registry
	entries map[string]map[string]transform.Transformation
}

// New creates an empty registry. Known coordinate systems are looked up
// in systems, which may be nil.
func New(systems *coords.Registry) *Registry {
	return &Registry{
		systems: systems,
		entries: make(map[string]map[string]transform.Transformation),
	}
}

// Set registers a copy of t as the transformation of e to the named
// coordinate system, replacing any previous one. t itself is never
// modified, so one transformation may be registered several times. An
// unset input system becomes the element's intrinsic system. An unset
// output system becomes the registered system of that name, or one
// derived from the axes t produces.
func (r *Registry) Set(e element.Element, t transform.Transformation, coordinateSystem string) error {
	if t == nil {
		return fmt.Errorf("nil transformation for %q", e.Name())
	}
	if coordinateSystem == "" {
		return fmt.Errorf("%w: empty coordinate system name for %q", coords.ErrMissingCoordinateSystem, e.Name())
	}
	t, err := transform.Clone(t)
	if err != nil {
		return fmt.Errorf("transformation of %q to %q: %w", e.Name(), coordinateSystem, err)
	}

	in := t.InputCoordinateSystem()
	if in == nil {
		if in, err = element.Intrinsic(e); err != nil {
			return err
		}
		t.SetInputCoordinateSystem(in)
	} else if !coords.SameAxes(in.AxesNames(), e.Axes()) {
		return fmt.Errorf("%w: element %q has axes %v, transformation input is %s",
			coords.ErrCoordinateSystemMismatch, e.Name(), e.Axes(), in)
	}

	out := t.OutputCoordinateSystem()
	if out == nil {
		if out, err = r.outputSystem(t, in, coordinateSystem); err != nil {
			return err
		}
		t.SetOutputCoordinateSystem(out)
	} else if out.Name != coordinateSystem {
		return fmt.Errorf("%w: transformation outputs %s, not %q", coords.ErrCoordinateSystemMismatch, out, coordinateSystem)
	}

	produced, err := transform.OutputAxes(t, in.AxesNames())
	if err != nil {
		return fmt.Errorf("transformation of %q to %q: %w", e.Name(), coordinateSystem, err)
	}
	if !coords.SameAxes(produced, out.AxesNames()) {
		return fmt.Errorf("%w: transformation of %q produces axes %v, coordinate system is %s",
			coords.ErrCoordinateSystemMismatch, e.Name(), produced, out)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.entries[e.Name()]
	if !ok {
		m = make(map[string]transform.Transformation)
		r.entries[e.Name()] = m
	}
	m[coordinateSystem] = t
	return nil
}

func (r *Registry) outputSystem(t transform.Transformation, in *coords.CoordinateSystem, name string) (*coords.CoordinateSystem, error) {
	if r.systems != nil {
		if cs, err := r.systems.Lookup(name); err == nil {
			return cs, nil
		}
	}
	axes, err := transform.OutputAxes(t, in.AxesNames())
	if err != nil {
		return nil, err
	}
	return coords.Derive(name, axes, in)
}

// Get returns the transformation of e to the named coordinate system
func (r *Registry) Get(e element.Element, coordinateSystem string) (transform.Transformation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.entries[e.Name()][coordinateSystem]
	if !ok {
		return nil, fmt.Errorf("%w: element %q has no transformation to %q", coords.ErrMissingCoordinateSystem, e.Name(), coordinateSystem)
	}
	return t, nil
}

// GetAll returns a copy of every transformation of e
func (r *Registry) GetAll(e element.Element) map[string]transform.Transformation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make(map[string]transform.Transformation, len(r.entries[e.Name()]))
	for cs, t := range r.entries[e.Name()] {
		all[cs] = t
	}
	return all
}

// GetOnly returns the single transformation of e together with its
// coordinate system name. It fails when e has none or several.
func (r *Registry) GetOnly(e element.Element) (string, transform.Transformation, error) {
	all := r.GetAll(e)
	switch len(all) {
	case 0:
		return "", nil, fmt.Errorf("%w: element %q has no transformations", coords.ErrMissingCoordinateSystem, e.Name())
	case 1:
		for cs, t := range all {
			return cs, t, nil
		}
	}
	return "", nil, fmt.Errorf("%w: element %q has transformations to %v", ErrAmbiguousCoordinateSystem, e.Name(), CoordinateSystems(r, e))
}

// Remove deletes the transformation of e to the named coordinate system
func (r *Registry) Remove(e element.Element, coordinateSystem string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.entries[e.Name()]
	if _, ok := m[coordinateSystem]; !ok {
		return fmt.Errorf("%w: element %q has no transformation to %q", coords.ErrMissingCoordinateSystem, e.Name(), coordinateSystem)
	}
	delete(m, coordinateSystem)
	if len(m) == 0 {
		delete(r.entries, e.Name())
	}
	return nil
}

// CoordinateSystems returns the sorted coordinate system names of e
func CoordinateSystems(g Getter, e element.Element) []string {
	all := g.GetAll(e)
	names := make([]string, 0, len(all))
	for cs := range all {
		names = append(names, cs)
	}
	sort.Strings(names)
	return names
}

// Has reports whether e has a transformation to the named coordinate system
func Has(g Getter, e element.Element, coordinateSystem string) bool {
	_, ok := g.GetAll(e)[coordinateSystem]
	return ok
}
