package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/ndarray"
)

// Affine is a homogeneous matrix of shape
// (len(outputAxes)+1) x (len(inputAxes)+1). Input axes not listed in
// inputAxes pass through; input axes listed in inputAxes but not in
// outputAxes are dropped.
type Affine struct {
	base
	homogeneous *mat.Dense
	inAxes      []string
	outAxes     []string
}

// NewAffine creates an affine transformation from the rows of its matrix.
// Both the homogeneous form, with a final [0 ... 0 1] row, and the compact
// form without it are accepted.
func NewAffine(rows [][]float64, inputAxes, outputAxes []string) (*Affine, error) {
	if err := checkAxisNames(KindAffine, inputAxes); err != nil {
		return nil, err
	}
	if err := checkAxisNames(KindAffine, outputAxes); err != nil {
		return nil, err
	}
	nIn, nOut := len(inputAxes), len(outputAxes)
	if len(rows) != nOut && len(rows) != nOut+1 {
		return nil, fmt.Errorf("%w: affine has %d rows for %d output axes", ErrInvalidParameters, len(rows), nOut)
	}

	m := mat.NewDense(nOut+1, nIn+1, nil)
	for i, row := range rows {
		if len(row) != nIn+1 {
			return nil, fmt.Errorf("%w: affine row %d has %d values, expected %d", ErrInvalidParameters, i, len(row), nIn+1)
		}
		if err := checkFinite(KindAffine, row); err != nil {
			return nil, err
		}
		m.SetRow(i, row)
	}
	if len(rows) == nOut+1 {
		for j := 0; j < nIn; j++ {
			if math.Abs(m.At(nOut, j)) > orthonormalTolerance {
				return nil, fmt.Errorf("%w: last affine row must be [0 ... 0 1]", ErrInvalidParameters)
			}
		}
		if math.Abs(m.At(nOut, nIn)-1) > orthonormalTolerance {
			return nil, fmt.Errorf("%w: last affine row must be [0 ... 0 1]", ErrInvalidParameters)
		}
	}
	for j := 0; j < nIn; j++ {
		m.Set(nOut, j, 0)
	}
	m.Set(nOut, nIn, 1)

	return &Affine{
		homogeneous: m,
		inAxes:      append([]string(nil), inputAxes...),
		outAxes:     append([]string(nil), outputAxes...),
	}, nil
}

// Matrix returns a copy of the homogeneous matrix
func (t *Affine) Matrix() *mat.Dense { return mat.DenseCopyOf(t.homogeneous) }

// InputAxes returns the axes indexing the matrix columns
func (t *Affine) InputAxes() []string { return append([]string(nil), t.inAxes...) }

// OutputAxes returns the axes indexing the matrix rows
func (t *Affine) OutputAxes() []string { return append([]string(nil), t.outAxes...) }

func (t *Affine) Kind() Kind { return KindAffine }

func (t *Affine) TransformPoints(points *ndarray.Array) (*ndarray.Array, error) {
	return transformPoints(t, points)
}

func (t *Affine) ToAffine() (*Affine, error) { return toAffine(t) }

// Inverse inverts the matrix and swaps the axis lists. Only square
// matrices with a non-zero determinant are invertible; the axis names on
// the two sides may differ.
func (t *Affine) Inverse() (Transformation, error) {
	if len(t.inAxes) != len(t.outAxes) {
		return nil, fmt.Errorf("%w: affine maps %d axes %v to %d axes %v",
			ErrNotInvertible, len(t.inAxes), t.inAxes, len(t.outAxes), t.outAxes)
	}
	if det := mat.Det(t.homogeneous); math.Abs(det) < singularTolerance {
		return nil, fmt.Errorf("%w: affine matrix is singular (det=%g)", ErrNotInvertible, det)
	}
	var inv mat.Dense
	if err := inv.Inverse(t.homogeneous); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotInvertible, err)
	}
	return &Affine{
		base:        t.swapped(),
		homogeneous: &inv,
		inAxes:      t.OutputAxes(),
		outAxes:     t.InputAxes(),
	}, nil
}

func (t *Affine) ToSpec() Spec {
	return Spec{
		Type:       KindAffine,
		Affine:     denseRows(t.homogeneous),
		InputAxes:  t.InputAxes(),
		OutputAxes: t.OutputAxes(),
		Input:      t.input,
		Output:     t.output,
	}
}

func (t *Affine) outputAxes(in []string) ([]string, error) {
	if err := requireAxes(KindAffine, t.inAxes, in); err != nil {
		return nil, err
	}
	declaredIn, declaredOut := coords.IndexOf(t.inAxes), coords.IndexOf(t.outAxes)
	out := append([]string(nil), t.outAxes...)
	for _, ax := range in {
		_, consumed := declaredIn[ax]
		_, produced := declaredOut[ax]
		if !consumed && !produced {
			out = append(out, ax)
		}
	}
	return out, nil
}

func (t *Affine) matrix(in, out []string) (*mat.Dense, error) {
	if err := requireAxes(KindAffine, t.inAxes, in); err != nil {
		return nil, err
	}
	ii := coords.IndexOf(in)
	declaredIn, declaredOut := coords.IndexOf(t.inAxes), coords.IndexOf(t.outAxes)
	nIn := len(t.inAxes)

	m := mat.NewDense(len(out)+1, len(in)+1, nil)
	for j, name := range out {
		if r, ok := declaredOut[name]; ok {
			for c, ax := range t.inAxes {
				m.Set(j, ii[ax], t.homogeneous.At(r, c))
			}
			m.Set(j, len(in), t.homogeneous.At(r, nIn))
			continue
		}
		i, ok := ii[name]
		if _, consumed := declaredIn[name]; !ok || consumed {
			return nil, fmt.Errorf("%w: affine does not produce output axis %q from input axes %v",
				coords.ErrCoordinateSystemMismatch, name, in)
		}
		m.Set(j, i, 1)
	}
	m.Set(len(out), len(in), 1)
	return m, nil
}

func (t *Affine) validate(in, out *coords.CoordinateSystem) error {
	return validateLeaf(t, in, out)
}

func (t *Affine) transformWith(in, out *coords.CoordinateSystem, points *ndarray.Array) (*ndarray.Array, error) {
	return applyMatrix(t, in, out, points)
}
