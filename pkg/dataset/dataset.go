// Package dataset holds a named collection of spatial elements together
// with the coordinate systems and transformations that place them. A
// dataset can be built in code or loaded from a YAML manifest.
package dataset

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/element"
	"spatialcoords/pkg/extent"
	"spatialcoords/pkg/registry"
)

var (
	// ErrDuplicateElement reports an element name that is already taken
	ErrDuplicateElement = errors.New("duplicate element")

	// ErrUnknownElement reports a lookup of an element that is not present
	ErrUnknownElement = errors.New("unknown element")
)

// Dataset is an ordered collection of uniquely named elements
type Dataset struct {
	Name string

	mu       sync.RWMutex
	order    []string
	elements map[string]element.Element

	systems         *coords.Registry
	transformations *registry.Registry
}

// New creates an empty dataset
func New(name string) *Dataset {
	systems, _ := coords.NewRegistry()
	return &Dataset{
		Name:            name,
		elements:        make(map[string]element.Element),
		systems:         systems,
		transformations: registry.New(systems),
	}
}

// CoordinateSystems returns the registry of named coordinate systems
func (d *Dataset) CoordinateSystems() *coords.Registry { return d.systems }

// Transformations returns the element transformation registry
func (d *Dataset) Transformations() *registry.Registry { return d.transformations }

// Add appends an element. Names must be unique within the dataset.
func (d *Dataset) Add(e element.Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.elements[e.Name()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateElement, e.Name())
	}
	d.order = append(d.order, e.Name())
	d.elements[e.Name()] = e
	return nil
}

// Replace swaps the element of the same name for e, keeping its position
// and its transformations.
func (d *Dataset) Replace(e element.Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.elements[e.Name()]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownElement, e.Name())
	}
	d.elements[e.Name()] = e
	return nil
}

// Remove deletes an element and all of its transformations
func (d *Dataset) Remove(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.elements[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownElement, name)
	}
	for cs := range d.transformations.GetAll(e) {
		if err := d.transformations.Remove(e, cs); err != nil {
			return err
		}
	}
	delete(d.elements, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

// Element returns the element with the given name
func (d *Dataset) Element(name string) (element.Element, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.elements[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownElement, name)
	}
	return e, nil
}

// Elements returns the elements in insertion order
func (d *Dataset) Elements() []element.Element {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]element.Element, len(d.order))
	for i, name := range d.order {
		out[i] = d.elements[name]
	}
	return out
}

// CoordinateSystemNames returns every coordinate system some element has
// a transformation to, sorted.
func (d *Dataset) CoordinateSystemNames() []string {
	seen := make(map[string]bool)
	for _, e := range d.Elements() {
		for cs := range d.transformations.GetAll(e) {
			seen[cs] = true
		}
	}
	names := make([]string, 0, len(seen))
	for cs := range seen {
		names = append(names, cs)
	}
	sort.Strings(names)
	return names
}

// Extent unions the extents of all elements in the named coordinate system
func (d *Dataset) Extent(coordinateSystem string, calc extent.Calculator) (extent.BoundingBox, error) {
	return calc.OfDataset(d, coordinateSystem, d.transformations)
}
