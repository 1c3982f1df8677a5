package element

import (
	"fmt"

	"spatialcoords/pkg/ndarray"
)

// Raster is a single-scale image or label image. Dims names the array
// dimensions in order, for example ("c", "y", "x").
type Raster struct {
	name   string
	dims   []string
	data   *ndarray.Array
	labels bool
}

// NewRaster builds an image raster
func NewRaster(name string, data *ndarray.Array, dims []string) (*Raster, error) {
	return newRaster(name, data, dims, false)
}

// NewLabels builds a label raster. Labels have no channel dimension.
func NewLabels(name string, data *ndarray.Array, dims []string) (*Raster, error) {
	for _, d := range dims {
		if d == "c" {
			return nil, fmt.Errorf("%w: labels %q cannot have a channel dimension", ErrInvalidElement, name)
		}
	}
	return newRaster(name, data, dims, true)
}

func newRaster(name string, data *ndarray.Array, dims []string, labels bool) (*Raster, error) {
	if err := checkAxes(name, dims); err != nil {
		return nil, err
	}
	if data == nil || data.Rank() != len(dims) {
		return nil, fmt.Errorf("%w: raster %q needs a %d-D array", ErrInvalidElement, name, len(dims))
	}
	return &Raster{name: name, dims: append([]string(nil), dims...), data: data, labels: labels}, nil
}

func (r *Raster) Name() string   { return r.name }
func (r *Raster) Kind() Kind     { return KindRaster }
func (r *Raster) Axes() []string { return append([]string(nil), r.dims...) }
func (r *Raster) sealed()        {}

// Data returns the pixel array
func (r *Raster) Data() *ndarray.Array { return r.data }

// IsLabels reports whether the raster is a label image
func (r *Raster) IsLabels() bool { return r.labels }

// WithData returns a raster of the same name, dims and flavour holding
// other pixels.
func (r *Raster) WithData(data *ndarray.Array) (*Raster, error) {
	return newRaster(r.name, data, r.dims, r.labels)
}

// MultiscaleRaster is an image pyramid. Level 0 is full resolution.
type MultiscaleRaster struct {
	name   string
	levels []*Raster
}

// NewMultiscaleRaster builds a pyramid from its levels. All levels must
// share dims.
func NewMultiscaleRaster(name string, levels []*Raster) (*MultiscaleRaster, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("%w: multiscale raster %q has no levels", ErrInvalidElement, name)
	}
	dims := levels[0].dims
	for i, l := range levels {
		if len(l.dims) != len(dims) {
			return nil, fmt.Errorf("%w: level %d of %q has dims %v, expected %v", ErrInvalidElement, i, name, l.dims, dims)
		}
		for j := range dims {
			if l.dims[j] != dims[j] {
				return nil, fmt.Errorf("%w: level %d of %q has dims %v, expected %v", ErrInvalidElement, i, name, l.dims, dims)
			}
		}
	}
	return &MultiscaleRaster{name: name, levels: append([]*Raster(nil), levels...)}, nil
}

func (m *MultiscaleRaster) Name() string   { return m.name }
func (m *MultiscaleRaster) Kind() Kind     { return KindMultiscaleRaster }
func (m *MultiscaleRaster) Axes() []string { return m.levels[0].Axes() }
func (m *MultiscaleRaster) sealed()        {}

// Levels returns the pyramid levels, full resolution first
func (m *MultiscaleRaster) Levels() []*Raster { return append([]*Raster(nil), m.levels...) }

// Level returns one pyramid level
func (m *MultiscaleRaster) Level(i int) *Raster { return m.levels[i] }
