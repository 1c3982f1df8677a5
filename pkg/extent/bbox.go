package extent

import (
	"fmt"
	"strings"

	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/element"
	"spatialcoords/pkg/ndarray"
	"spatialcoords/pkg/transform"
)

// BoundingBox is an axis-aligned box. Min, Max and Axes run in parallel.
type BoundingBox struct {
	Min  []float64 `json:"min" yaml:"min"`
	Max  []float64 `json:"max" yaml:"max"`
	Axes []string  `json:"axes" yaml:"axes"`
}

// NewBoundingBox validates and copies the given bounds
func NewBoundingBox(min, max []float64, axes []string) (BoundingBox, error) {
	if len(axes) == 0 {
		return BoundingBox{}, fmt.Errorf("%w: bounding box without axes", ErrEmptyExtent)
	}
	if len(min) != len(axes) || len(max) != len(axes) {
		return BoundingBox{}, fmt.Errorf("%w: bounds of length %d and %d for %d axes",
			coords.ErrInvalidShape, len(min), len(max), len(axes))
	}
	seen := make(map[string]bool, len(axes))
	for i, ax := range axes {
		if seen[ax] {
			return BoundingBox{}, fmt.Errorf("%w: duplicate axis %q", coords.ErrInvalidShape, ax)
		}
		seen[ax] = true
		if min[i] > max[i] {
			return BoundingBox{}, fmt.Errorf("%w: axis %q has min %v above max %v", coords.ErrInvalidShape, ax, min[i], max[i])
		}
	}
	return BoundingBox{
		Min:  append([]float64(nil), min...),
		Max:  append([]float64(nil), max...),
		Axes: append([]string(nil), axes...),
	}, nil
}

// Bounds returns the interval of one axis
func (b BoundingBox) Bounds(axis string) (min, max float64, ok bool) {
	for i, ax := range b.Axes {
		if ax == axis {
			return b.Min[i], b.Max[i], true
		}
	}
	return 0, 0, false
}

// Corners enumerates the 2^D corners of the box as a 2^D x D array whose
// columns follow Axes. Bit j of the row index selects Max for axis j.
func (b BoundingBox) Corners() *ndarray.Array {
	d := len(b.Axes)
	n := 1 << d
	out := ndarray.Zeros(n, d)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			v := b.Min[j]
			if i&(1<<j) != 0 {
				v = b.Max[j]
			}
			out.Set(v, i, j)
		}
	}
	return out
}

// reorder returns the box with its axes in the given order
func (b BoundingBox) reorder(axes []string) (BoundingBox, error) {
	if !coords.SameAxes(b.Axes, axes) {
		return BoundingBox{}, fmt.Errorf("%w: box axes %v do not match %v", coords.ErrCoordinateSystemMismatch, b.Axes, axes)
	}
	idx := coords.IndexOf(b.Axes)
	min := make([]float64, len(axes))
	max := make([]float64, len(axes))
	for i, ax := range axes {
		min[i], max[i] = b.Min[idx[ax]], b.Max[idx[ax]]
	}
	return BoundingBox{Min: min, Max: max, Axes: append([]string(nil), axes...)}, nil
}

// Transform maps the box through t. Every corner is transformed and the
// result is the box around the transformed corners. The box axes must be
// the axes of t's input coordinate system, in any order.
func (b BoundingBox) Transform(t transform.Transformation) (BoundingBox, error) {
	return b.transform(t, ndarray.DefaultChunkRows)
}

func (b BoundingBox) transform(t transform.Transformation, chunkRows int) (BoundingBox, error) {
	in, out := t.InputCoordinateSystem(), t.OutputCoordinateSystem()
	if in == nil || out == nil {
		return BoundingBox{}, fmt.Errorf("%w: %s maps %s to %s", coords.ErrMissingCoordinateSystem, t.Kind(), in, out)
	}
	local, err := b.reorder(in.AxesNames())
	if err != nil {
		return BoundingBox{}, err
	}
	corners, err := element.NewPointTable("corners", local.Corners(), local.Axes)
	if err != nil {
		return BoundingBox{}, err
	}

	moved, err := corners.Coordinates().Then(t.TransformPoints).Compute()
	if err != nil {
		return BoundingBox{}, err
	}
	lo, err := ndarray.ColumnMin(ndarray.Lazy(moved), chunkRows).Compute()
	if err != nil {
		return BoundingBox{}, err
	}
	hi, err := ndarray.ColumnMax(ndarray.Lazy(moved), chunkRows).Compute()
	if err != nil {
		return BoundingBox{}, err
	}
	return NewBoundingBox(lo.Data(), hi.Data(), out.AxesNames())
}

// Union returns the smallest box containing both boxes. Axes keep their
// first-seen order; an axis present in only one box keeps that box's
// interval.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	u := BoundingBox{
		Min:  append([]float64(nil), b.Min...),
		Max:  append([]float64(nil), b.Max...),
		Axes: append([]string(nil), b.Axes...),
	}
	idx := coords.IndexOf(u.Axes)
	for j, ax := range other.Axes {
		i, ok := idx[ax]
		if !ok {
			idx[ax] = len(u.Axes)
			u.Axes = append(u.Axes, ax)
			u.Min = append(u.Min, other.Min[j])
			u.Max = append(u.Max, other.Max[j])
			continue
		}
		if other.Min[j] < u.Min[i] {
			u.Min[i] = other.Min[j]
		}
		if other.Max[j] > u.Max[i] {
			u.Max[i] = other.Max[j]
		}
	}
	return u
}

// Intersects reports whether the boxes overlap on every axis they share.
// Boxes sharing no axis never intersect. Touching boxes intersect.
func (b BoundingBox) Intersects(other BoundingBox) bool {
	shared := 0
	for i, ax := range b.Axes {
		lo, hi, ok := other.Bounds(ax)
		if !ok {
			continue
		}
		shared++
		if b.Max[i] < lo || hi < b.Min[i] {
			return false
		}
	}
	return shared > 0
}

func (b BoundingBox) String() string {
	parts := make([]string, len(b.Axes))
	for i, ax := range b.Axes {
		parts[i] = fmt.Sprintf("%s=[%g, %g]", ax, b.Min[i], b.Max[i])
	}
	return strings.Join(parts, " ")
}
