package transform

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/ndarray"
)

// MapAxis renames, permutes, duplicates or drops axes without changing
// values. The mapping goes from output axis name to input axis name.
type MapAxis struct {
	base
	mapping map[string]string
}

// NewMapAxis creates an axis mapping from output axis to input axis
func NewMapAxis(mapping map[string]string) (*MapAxis, error) {
	m := make(map[string]string, len(mapping))
	for out, in := range mapping {
		if out == "" || in == "" {
			return nil, fmt.Errorf("%w: map_axis has an empty axis name", ErrInvalidParameters)
		}
		m[out] = in
	}
	return &MapAxis{mapping: m}, nil
}

// Mapping returns a copy of the output-to-input axis mapping
func (t *MapAxis) Mapping() map[string]string {
	m := make(map[string]string, len(t.mapping))
	for k, v := range t.mapping {
		m[k] = v
	}
	return m
}

func (t *MapAxis) Kind() Kind { return KindMapAxis }

func (t *MapAxis) TransformPoints(points *ndarray.Array) (*ndarray.Array, error) {
	return transformPoints(t, points)
}

func (t *MapAxis) ToAffine() (*Affine, error) { return toAffine(t) }

// Inverse requires the mapping to be a bijection. When an input coordinate
// system is set, it must not have axes that the mapping drops.
func (t *MapAxis) Inverse() (Transformation, error) {
	inv := make(map[string]string, len(t.mapping))
	for out, in := range t.mapping {
		if prev, dup := inv[in]; dup {
			return nil, fmt.Errorf("%w: map_axis sends %q to both %q and %q", ErrNotInvertible, in, prev, out)
		}
		inv[in] = out
	}
	if t.input != nil && len(t.input.Axes) != len(inv) {
		return nil, fmt.Errorf("%w: map_axis drops axes of %s", ErrNotInvertible, t.input)
	}
	return &MapAxis{base: t.swapped(), mapping: inv}, nil
}

func (t *MapAxis) ToSpec() Spec {
	return Spec{Type: KindMapAxis, MapAxis: t.Mapping(), Input: t.input, Output: t.output}
}

func (t *MapAxis) outputAxes(in []string) ([]string, error) {
	ii := coords.IndexOf(in)
	out := make([]string, 0, len(t.mapping))
	for o, src := range t.mapping {
		if _, ok := ii[src]; !ok {
			return nil, fmt.Errorf("%w: map_axis reads axis %q, which is not among input axes %v",
				coords.ErrCoordinateSystemMismatch, src, in)
		}
		out = append(out, o)
	}
	sort.Strings(out)
	return out, nil
}

func (t *MapAxis) matrix(in, out []string) (*mat.Dense, error) {
	ii := coords.IndexOf(in)
	m := mat.NewDense(len(out)+1, len(in)+1, nil)
	for j, name := range out {
		src, ok := t.mapping[name]
		if !ok {
			return nil, fmt.Errorf("%w: map_axis does not produce output axis %q", coords.ErrCoordinateSystemMismatch, name)
		}
		i, ok := ii[src]
		if !ok {
			return nil, fmt.Errorf("%w: map_axis reads axis %q, which is not among input axes %v",
				coords.ErrCoordinateSystemMismatch, src, in)
		}
		m.Set(j, i, 1)
	}
	m.Set(len(out), len(in), 1)
	return m, nil
}

func (t *MapAxis) validate(in, out *coords.CoordinateSystem) error {
	return validateLeaf(t, in, out)
}

func (t *MapAxis) transformWith(in, out *coords.CoordinateSystem, points *ndarray.Array) (*ndarray.Array, error) {
	return applyMatrix(t, in, out, points)
}
