// Package coords describes named coordinate systems and their ordered axes.
// Coordinate systems are immutable once created; transformations and
// extents refer to axes by name, never by position alone.
package coords

import (
	"fmt"
	"sort"
	"strings"
)

// AxisType classifies an axis
type AxisType string

const (
	Spatial AxisType = "space"
	Channel AxisType = "channel"
	Time    AxisType = "time"
	Other   AxisType = "other"
)

// Axis is a single named dimension of a coordinate system
type Axis struct {
	// Name identifies the axis within its coordinate system
	Name string `json:"name" yaml:"name"`

	// Type tells spatial axes apart from channel or time axes
	Type AxisType `json:"type" yaml:"type"`

	// Unit is optional, e.g. "micrometer"
	Unit string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// IsSpatial reports whether the axis is a spatial axis
func (a Axis) IsSpatial() bool {
	return a.Type == Spatial
}

// CoordinateSystem is a named, ordered set of axes
type CoordinateSystem struct {
	Name string `json:"name" yaml:"name"`
	Axes []Axis `json:"axes" yaml:"axes"`
}

// NewCoordinateSystem creates a coordinate system and validates that its
// axis names are non-empty and unique.
func NewCoordinateSystem(name string, axes ...Axis) (*CoordinateSystem, error) {
	cs := &CoordinateSystem{Name: name, Axes: append([]Axis(nil), axes...)}
	if err := cs.Validate(); err != nil {
		return nil, err
	}
	return cs, nil
}

// MustCoordinateSystem is like NewCoordinateSystem but panics on error.
// It is meant for package-level declarations of well-known systems.
func MustCoordinateSystem(name string, axes ...Axis) *CoordinateSystem {
	cs, err := NewCoordinateSystem(name, axes...)
	if err != nil {
		panic(err)
	}
	return cs
}

// Validate checks the axis names of the coordinate system
func (cs *CoordinateSystem) Validate() error {
	if cs.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidCoordinateSystem)
	}
	seen := make(map[string]bool, len(cs.Axes))
	for _, ax := range cs.Axes {
		if ax.Name == "" {
			return fmt.Errorf("%w: %q has an unnamed axis", ErrInvalidCoordinateSystem, cs.Name)
		}
		if seen[ax.Name] {
			return fmt.Errorf("%w: %q has duplicate axis %q", ErrInvalidCoordinateSystem, cs.Name, ax.Name)
		}
		seen[ax.Name] = true
	}
	return nil
}

// AxesNames returns the axis names in order
func (cs *CoordinateSystem) AxesNames() []string {
	names := make([]string, len(cs.Axes))
	for i, ax := range cs.Axes {
		names[i] = ax.Name
	}
	return names
}

// Axis returns the axis with the given name
func (cs *CoordinateSystem) Axis(name string) (Axis, bool) {
	for _, ax := range cs.Axes {
		if ax.Name == name {
			return ax, true
		}
	}
	return Axis{}, false
}

// HasAxis reports whether the system has an axis with the given name
func (cs *CoordinateSystem) HasAxis(name string) bool {
	_, ok := cs.Axis(name)
	return ok
}

// Equal reports whether two coordinate systems have the same name and the
// same axes in the same order.
func (cs *CoordinateSystem) Equal(other *CoordinateSystem) bool {
	if cs == nil || other == nil {
		return cs == other
	}
	if cs.Name != other.Name || len(cs.Axes) != len(other.Axes) {
		return false
	}
	for i := range cs.Axes {
		if cs.Axes[i] != other.Axes[i] {
			return false
		}
	}
	return true
}

func (cs *CoordinateSystem) String() string {
	if cs == nil {
		return "<unset>"
	}
	return fmt.Sprintf("%s(%s)", cs.Name, strings.Join(cs.AxesNames(), ","))
}

// DefaultAxis guesses an axis definition from a bare axis name: "c" is a
// channel axis, "t" a time axis, everything else spatial.
func DefaultAxis(name string) Axis {
	switch name {
	case "c":
		return Axis{Name: name, Type: Channel}
	case "t":
		return Axis{Name: name, Type: Time}
	default:
		return Axis{Name: name, Type: Spatial}
	}
}

// Derive builds a coordinate system with the given axis names. Axis
// definitions are copied from the first source system that declares the
// name; unknown names fall back to DefaultAxis.
func Derive(name string, axes []string, sources ...*CoordinateSystem) (*CoordinateSystem, error) {
	out := make([]Axis, 0, len(axes))
	for _, n := range axes {
		ax := DefaultAxis(n)
		for _, src := range sources {
			if src == nil {
				continue
			}
			if found, ok := src.Axis(n); ok {
				ax = found
				break
			}
		}
		out = append(out, ax)
	}
	return NewCoordinateSystem(name, out...)
}

// SameAxes reports whether two axis name lists contain the same names,
// ignoring order.
func SameAxes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// IndexOf maps each axis name to its position
func IndexOf(axes []string) map[string]int {
	idx := make(map[string]int, len(axes))
	for i, n := range axes {
		idx[n] = i
	}
	return idx
}
