package transform

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/ndarray"
)

// Scale multiplies each named axis by a non-zero factor
type Scale struct {
	base
	factors []float64
	axes    []string
}

// NewScale creates a scaling by factors[i] along axes[i]. Zero factors are
// rejected because they collapse an axis.
func NewScale(factors []float64, axes []string) (*Scale, error) {
	if len(factors) != len(axes) {
		return nil, fmt.Errorf("%w: scale has %d factors for %d axes", ErrInvalidParameters, len(factors), len(axes))
	}
	if err := checkAxisNames(KindScale, axes); err != nil {
		return nil, err
	}
	if err := checkFinite(KindScale, factors); err != nil {
		return nil, err
	}
	for i, f := range factors {
		if f == 0 {
			return nil, fmt.Errorf("%w: zero scale factor on axis %q", ErrInvalidParameters, axes[i])
		}
	}
	return &Scale{
		factors: append([]float64(nil), factors...),
		axes:    append([]string(nil), axes...),
	}, nil
}

// Factors returns a copy of the scale factors
func (t *Scale) Factors() []float64 { return append([]float64(nil), t.factors...) }

// Axes returns the axes the factors apply to
func (t *Scale) Axes() []string { return append([]string(nil), t.axes...) }

func (t *Scale) Kind() Kind { return KindScale }

func (t *Scale) TransformPoints(points *ndarray.Array) (*ndarray.Array, error) {
	return transformPoints(t, points)
}

func (t *Scale) ToAffine() (*Affine, error) { return toAffine(t) }

func (t *Scale) Inverse() (Transformation, error) {
	inv := make([]float64, len(t.factors))
	for i, f := range t.factors {
		if f == 0 {
			return nil, fmt.Errorf("%w: zero scale factor on axis %q", ErrNotInvertible, t.axes[i])
		}
		inv[i] = 1 / f
	}
	return &Scale{base: t.swapped(), factors: inv, axes: t.Axes()}, nil
}

func (t *Scale) ToSpec() Spec {
	return Spec{
		Type:   KindScale,
		Scale:  t.Factors(),
		Axes:   t.Axes(),
		Input:  t.input,
		Output: t.output,
	}
}

func (t *Scale) outputAxes(in []string) ([]string, error) {
	if err := requireAxes(KindScale, t.axes, in); err != nil {
		return nil, err
	}
	return append([]string(nil), in...), nil
}

func (t *Scale) matrix(in, out []string) (*mat.Dense, error) {
	if err := requireAxes(KindScale, t.axes, in); err != nil {
		return nil, err
	}
	m, err := passthrough(in, out)
	if err != nil {
		return nil, err
	}
	ii, oi := coords.IndexOf(in), coords.IndexOf(out)
	for k, ax := range t.axes {
		j, ok := oi[ax]
		if !ok {
			return nil, fmt.Errorf("%w: scaled axis %q is missing from output axes %v", coords.ErrCoordinateSystemMismatch, ax, out)
		}
		m.Set(j, ii[ax], t.factors[k])
	}
	return m, nil
}

func (t *Scale) validate(in, out *coords.CoordinateSystem) error {
	return validateLeaf(t, in, out)
}

func (t *Scale) transformWith(in, out *coords.CoordinateSystem, points *ndarray.Array) (*ndarray.Array, error) {
	return applyMatrix(t, in, out, points)
}
