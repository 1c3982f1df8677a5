// Package raster removes padding from rasters and rebuilds multiscale
// pyramids.
//
// Rotating a raster into a target coordinate system grows its pixel grid,
// and the new border is filled with zeros. Unpad crops those borders away
// and prepends a translation to every registered transformation so that
// each remaining pixel still lands in the same place.
package raster

import (
	"errors"
	"fmt"

	"spatialcoords/internal/logging"
	"spatialcoords/pkg/element"
	"spatialcoords/pkg/ndarray"
	"spatialcoords/pkg/transform"
)

// ErrUnsupportedElement reports an element that is not a raster
var ErrUnsupportedElement = errors.New("not a raster element")

// ChannelAxis is never unpadded or downscaled
const ChannelAxis = "c"

// DefaultZeroTolerance is the absolute tolerance under which a slab sum
// counts as zero
const DefaultZeroTolerance = 1e-8

// Store is the part of a transformation registry that Unpad rewrites
type Store interface {
	GetAll(e element.Element) map[string]transform.Transformation
	Set(e element.Element, t transform.Transformation, coordinateSystem string) error
}

// Options controls unpadding and pyramid rebuilding
type Options struct {
	// ZeroTolerance is the absolute tolerance for an all-zero slab
	ZeroTolerance float64

	// Factors are the downscale factors between consecutive pyramid levels
	Factors []int
}

// DefaultOptions returns the tolerance and the [2, 2] pyramid factors
func DefaultOptions() Options {
	return Options{ZeroTolerance: DefaultZeroTolerance, Factors: []int{2, 2}}
}

// Levels returns the pyramid levels of a raster element, full resolution
// first. A single-scale raster is its own only level.
func Levels(e element.Element) ([]*element.Raster, error) {
	switch r := e.(type) {
	case *element.Raster:
		return []*element.Raster{r}, nil
	case *element.MultiscaleRaster:
		return r.Levels(), nil
	default:
		return nil, fmt.Errorf("%w: %q is %s", ErrUnsupportedElement, e.Name(), e.Kind())
	}
}

// Unpad crops all-zero borders from r along every non-channel axis. When
// store is not nil, every transformation of r is replaced by a sequence
// that first translates by the cropped left pads.
func Unpad(r *element.Raster, store Store, opts Options) (*element.Raster, error) {
	unpadded, shift, err := unpad(r, opts.ZeroTolerance)
	if err != nil {
		return nil, err
	}
	if err := reregister(r, unpadded, shift, store); err != nil {
		return nil, err
	}
	return unpadded, nil
}

// UnpadMultiscale unpads the full-resolution level of m and rebuilds the
// pyramid from it with opts.Factors.
func UnpadMultiscale(m *element.MultiscaleRaster, store Store, opts Options) (*element.MultiscaleRaster, error) {
	base, shift, err := unpad(m.Level(0), opts.ZeroTolerance)
	if err != nil {
		return nil, err
	}
	levels, err := Pyramid(base, opts.Factors)
	if err != nil {
		return nil, err
	}
	out, err := element.NewMultiscaleRaster(m.Name(), levels)
	if err != nil {
		return nil, err
	}
	if err := reregister(m, out, shift, store); err != nil {
		return nil, err
	}
	return out, nil
}

// unpad crops r and returns the translation by the left pads
func unpad(r *element.Raster, tolerance float64) (*element.Raster, *transform.Translation, error) {
	if tolerance <= 0 {
		tolerance = DefaultZeroTolerance
	}
	data := r.Data()
	var (
		axes []string
		pads []float64
	)
	for i, ax := range r.Axes() {
		if ax == ChannelAxis {
			continue
		}
		start, end, err := nonZeroRange(data, i, tolerance)
		if err != nil {
			return nil, nil, err
		}
		if data, err = data.Slice(i, start, end); err != nil {
			return nil, nil, err
		}
		axes = append(axes, ax)
		pads = append(pads, float64(start))
	}
	logging.Logger().Debug("unpadded raster", "element", r.Name(), "axes", axes, "pads", pads, "shape", data.Shape())

	unpadded, err := r.WithData(data)
	if err != nil {
		return nil, nil, err
	}
	if len(axes) == 0 {
		return unpadded, nil, nil
	}
	shift, err := transform.NewTranslation(pads, axes)
	if err != nil {
		return nil, nil, err
	}
	return unpadded, shift, nil
}

// nonZeroRange returns the half-open index range along axis whose slabs
// are not all zero. An all-zero array keeps its full range.
func nonZeroRange(data *ndarray.Array, axis int, tolerance float64) (int, int, error) {
	sums, err := data.AbsSumExcept(axis)
	if err != nil {
		return 0, 0, err
	}

	start, end := -1, -1
	for i, s := range sums {
		if s > tolerance {
			if start < 0 {
				start = i
			}
			end = i + 1
		}
	}
	if start < 0 {
		return 0, len(sums), nil
	}
	return start, end, nil
}

// reregister sets Sequence[shift, old] on next for every transformation
// registered for prev
func reregister(prev, next element.Element, shift *transform.Translation, store Store) error {
	if store == nil || shift == nil {
		return nil
	}
	for cs, old := range store.GetAll(prev) {
		step, err := transform.NewTranslation(shift.Vector(), shift.Axes())
		if err != nil {
			return err
		}
		seq := transform.NewSequence(step, old)
		seq.SetInputCoordinateSystem(old.InputCoordinateSystem())
		seq.SetOutputCoordinateSystem(old.OutputCoordinateSystem())
		if err := store.Set(next, seq, cs); err != nil {
			return fmt.Errorf("re-registering %q in %q: %w", next.Name(), cs, err)
		}
	}
	return nil
}
