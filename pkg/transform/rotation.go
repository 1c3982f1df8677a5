package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/ndarray"
)

// orthonormalTolerance bounds |R·Rᵀ - I| for a valid rotation
const orthonormalTolerance = 1e-6

// Rotation applies an orthonormal matrix to a set of spatial axes
type Rotation struct {
	base
	rotation *mat.Dense
	axes     []string
}

// NewRotation creates a rotation from a square matrix in rows, acting on
// axes in the given order.
func NewRotation(rows [][]float64, axes []string) (*Rotation, error) {
	if err := checkAxisNames(KindRotation, axes); err != nil {
		return nil, err
	}
	k := len(axes)
	if len(rows) != k {
		return nil, fmt.Errorf("%w: rotation has %d rows for %d axes", ErrInvalidParameters, len(rows), k)
	}
	if k == 0 {
		return &Rotation{rotation: nil, axes: nil}, nil
	}
	r := mat.NewDense(k, k, nil)
	for i, row := range rows {
		if len(row) != k {
			return nil, fmt.Errorf("%w: rotation row %d has %d values, expected %d", ErrInvalidParameters, i, len(row), k)
		}
		if err := checkFinite(KindRotation, row); err != nil {
			return nil, err
		}
		r.SetRow(i, row)
	}

	var product mat.Dense
	product.Mul(r, r.T())
	id := mat.NewDiagDense(k, nil)
	for i := 0; i < k; i++ {
		id.SetDiag(i, 1)
	}
	if !mat.EqualApprox(&product, id, orthonormalTolerance) {
		return nil, fmt.Errorf("%w: rotation matrix is not orthonormal", ErrInvalidParameters)
	}
	return &Rotation{rotation: r, axes: append([]string(nil), axes...)}, nil
}

// NewRotation2D creates a counter-clockwise rotation by angle radians in
// the plane of the two axes.
func NewRotation2D(angle float64, axes [2]string) (*Rotation, error) {
	s, c := math.Sincos(angle)
	return NewRotation([][]float64{{c, -s}, {s, c}}, axes[:])
}

// Matrix returns a copy of the rotation matrix
func (t *Rotation) Matrix() *mat.Dense {
	if t.rotation == nil {
		return nil
	}
	return mat.DenseCopyOf(t.rotation)
}

// Axes returns the rotated axes
func (t *Rotation) Axes() []string { return append([]string(nil), t.axes...) }

func (t *Rotation) Kind() Kind { return KindRotation }

func (t *Rotation) TransformPoints(points *ndarray.Array) (*ndarray.Array, error) {
	return transformPoints(t, points)
}

func (t *Rotation) ToAffine() (*Affine, error) { return toAffine(t) }

func (t *Rotation) Inverse() (Transformation, error) {
	inv := &Rotation{base: t.swapped(), axes: t.Axes()}
	if t.rotation != nil {
		inv.rotation = mat.DenseCopyOf(t.rotation.T())
	}
	return inv, nil
}

func (t *Rotation) ToSpec() Spec {
	s := Spec{Type: KindRotation, Axes: t.Axes(), Input: t.input, Output: t.output}
	if t.rotation != nil {
		s.Rotation = denseRows(t.rotation)
	}
	return s
}

// checkInput restricts rotations to spatial axes
func (t *Rotation) checkInput(in *coords.CoordinateSystem) error {
	for _, name := range t.axes {
		ax, ok := in.Axis(name)
		if !ok {
			continue
		}
		if !ax.IsSpatial() {
			return fmt.Errorf("%w: rotation acts on %s axis %q of %s", coords.ErrCoordinateSystemMismatch, ax.Type, name, in)
		}
	}
	return nil
}

func (t *Rotation) outputAxes(in []string) ([]string, error) {
	if err := requireAxes(KindRotation, t.axes, in); err != nil {
		return nil, err
	}
	return append([]string(nil), in...), nil
}

func (t *Rotation) matrix(in, out []string) (*mat.Dense, error) {
	if err := requireAxes(KindRotation, t.axes, in); err != nil {
		return nil, err
	}
	m, err := passthrough(in, out)
	if err != nil {
		return nil, err
	}
	ii, oi := coords.IndexOf(in), coords.IndexOf(out)
	for r, rowAxis := range t.axes {
		j, ok := oi[rowAxis]
		if !ok {
			return nil, fmt.Errorf("%w: rotated axis %q is missing from output axes %v", coords.ErrCoordinateSystemMismatch, rowAxis, out)
		}
		for c, colAxis := range t.axes {
			m.Set(j, ii[colAxis], t.rotation.At(r, c))
		}
	}
	return m, nil
}

func (t *Rotation) validate(in, out *coords.CoordinateSystem) error {
	return validateLeaf(t, in, out)
}

func (t *Rotation) transformWith(in, out *coords.CoordinateSystem, points *ndarray.Array) (*ndarray.Array, error) {
	return applyMatrix(t, in, out, points)
}
