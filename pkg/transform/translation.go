package transform

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/ndarray"
)

// Translation adds one offset per named axis
type Translation struct {
	base
	vector []float64
	axes   []string
}

// NewTranslation creates a translation by vector[i] along axes[i]
func NewTranslation(vector []float64, axes []string) (*Translation, error) {
	if len(vector) != len(axes) {
		return nil, fmt.Errorf("%w: translation has %d values for %d axes", ErrInvalidParameters, len(vector), len(axes))
	}
	if err := checkAxisNames(KindTranslation, axes); err != nil {
		return nil, err
	}
	if err := checkFinite(KindTranslation, vector); err != nil {
		return nil, err
	}
	return &Translation{
		vector: append([]float64(nil), vector...),
		axes:   append([]string(nil), axes...),
	}, nil
}

// Vector returns a copy of the offsets
func (t *Translation) Vector() []float64 { return append([]float64(nil), t.vector...) }

// Axes returns the axes the offsets apply to
func (t *Translation) Axes() []string { return append([]string(nil), t.axes...) }

func (t *Translation) Kind() Kind { return KindTranslation }

func (t *Translation) TransformPoints(points *ndarray.Array) (*ndarray.Array, error) {
	return transformPoints(t, points)
}

func (t *Translation) ToAffine() (*Affine, error) { return toAffine(t) }

func (t *Translation) Inverse() (Transformation, error) {
	neg := make([]float64, len(t.vector))
	for i, v := range t.vector {
		neg[i] = -v
	}
	return &Translation{base: t.swapped(), vector: neg, axes: t.Axes()}, nil
}

func (t *Translation) ToSpec() Spec {
	return Spec{
		Type:        KindTranslation,
		Translation: t.Vector(),
		Axes:        t.Axes(),
		Input:       t.input,
		Output:      t.output,
	}
}

func (t *Translation) outputAxes(in []string) ([]string, error) {
	if err := requireAxes(KindTranslation, t.axes, in); err != nil {
		return nil, err
	}
	return append([]string(nil), in...), nil
}

func (t *Translation) matrix(in, out []string) (*mat.Dense, error) {
	if err := requireAxes(KindTranslation, t.axes, in); err != nil {
		return nil, err
	}
	m, err := passthrough(in, out)
	if err != nil {
		return nil, err
	}
	oi := coords.IndexOf(out)
	for k, ax := range t.axes {
		j, ok := oi[ax]
		if !ok {
			return nil, fmt.Errorf("%w: translated axis %q is missing from output axes %v", coords.ErrCoordinateSystemMismatch, ax, out)
		}
		m.Set(j, len(in), t.vector[k])
	}
	return m, nil
}

func (t *Translation) validate(in, out *coords.CoordinateSystem) error {
	return validateLeaf(t, in, out)
}

func (t *Translation) transformWith(in, out *coords.CoordinateSystem, points *ndarray.Array) (*ndarray.Array, error) {
	return applyMatrix(t, in, out, points)
}
