// Package transform implements the coordinate transformation algebra:
// identity, translation, scale, affine, rotation, axis mapping and
// sequences of those.
//
// Every transformation maps points from its input coordinate system to its
// output coordinate system. Axes are matched by name, so the column order
// of a point array is the axis order of the coordinate system it is
// expressed in. Axes that a transformation does not mention pass through
// unchanged.
//
// All variants reduce to a homogeneous matrix of shape
// (len(output)+1) x (len(input)+1) acting on column vectors. A sequence
// [T1, T2, T3] applies T1 first, so its matrix is M3 · M2 · M1.
package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/ndarray"
)

// Kind is the serialized type tag of a transformation
type Kind string

const (
	KindIdentity    Kind = "identity"
	KindTranslation Kind = "translation"
	KindScale       Kind = "scale"
	KindAffine      Kind = "affine"
	KindRotation    Kind = "rotation"
	KindSequence    Kind = "sequence"
	KindMapAxis     Kind = "map_axis"
)

// singularTolerance is the determinant magnitude below which an affine
// matrix is treated as singular.
const singularTolerance = 1e-12

// Transformation is implemented by every variant in this package. The set
// of variants is closed.
type Transformation interface {
	Kind() Kind

	InputCoordinateSystem() *coords.CoordinateSystem
	OutputCoordinateSystem() *coords.CoordinateSystem
	SetInputCoordinateSystem(cs *coords.CoordinateSystem)
	SetOutputCoordinateSystem(cs *coords.CoordinateSystem)

	// TransformPoints maps an N x D array whose columns follow the input
	// coordinate system to an N x D' array whose columns follow the output
	// coordinate system.
	TransformPoints(points *ndarray.Array) (*ndarray.Array, error)

	// ToAffine reduces the transformation to a single affine matrix over
	// the full axes of its input and output coordinate systems.
	ToAffine() (*Affine, error)

	// Inverse returns the inverse transformation, with input and output
	// coordinate systems swapped.
	Inverse() (Transformation, error)

	// ToSpec returns the serializable description of the transformation
	ToSpec() Spec

	// outputAxes returns the axis names produced from the given input axes
	outputAxes(in []string) ([]string, error)

	// matrix returns the homogeneous matrix mapping the in axes to the out axes
	matrix(in, out []string) (*mat.Dense, error)

	// validate checks that the transformation can map in to out
	validate(in, out *coords.CoordinateSystem) error

	transformWith(in, out *coords.CoordinateSystem, points *ndarray.Array) (*ndarray.Array, error)
}

// base holds the coordinate systems shared by all variants
type base struct {
	input  *coords.CoordinateSystem
	output *coords.CoordinateSystem
}

func (b *base) InputCoordinateSystem() *coords.CoordinateSystem  { return b.input }
func (b *base) OutputCoordinateSystem() *coords.CoordinateSystem { return b.output }

func (b *base) SetInputCoordinateSystem(cs *coords.CoordinateSystem)  { b.input = cs }
func (b *base) SetOutputCoordinateSystem(cs *coords.CoordinateSystem) { b.output = cs }

// swapped returns a base with input and output exchanged, for inverses
func (b *base) swapped() base {
	return base{input: b.output, output: b.input}
}

// inputChecker is implemented by variants with extra requirements on the
// axes of their input coordinate system.
type inputChecker interface {
	checkInput(in *coords.CoordinateSystem) error
}

// OutputAxes returns the axis names t produces when applied to points
// whose columns are the given input axes.
func OutputAxes(t Transformation, in []string) ([]string, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil transformation", ErrInvalidParameters)
	}
	return t.outputAxes(in)
}

// systems returns the configured coordinate systems of t
func systems(t Transformation) (*coords.CoordinateSystem, *coords.CoordinateSystem, error) {
	in, out := t.InputCoordinateSystem(), t.OutputCoordinateSystem()
	switch {
	case in == nil && out == nil:
		return nil, nil, fmt.Errorf("%w: %s has no input and no output coordinate system", coords.ErrMissingCoordinateSystem, t.Kind())
	case in == nil:
		return nil, nil, fmt.Errorf("%w: %s has no input coordinate system", coords.ErrMissingCoordinateSystem, t.Kind())
	case out == nil:
		return nil, nil, fmt.Errorf("%w: %s has no output coordinate system", coords.ErrMissingCoordinateSystem, t.Kind())
	}
	return in, out, nil
}

func transformPoints(t Transformation, points *ndarray.Array) (*ndarray.Array, error) {
	in, out, err := systems(t)
	if err != nil {
		return nil, err
	}
	return t.transformWith(in, out, points)
}

func toAffine(t Transformation) (*Affine, error) {
	in, out, err := systems(t)
	if err != nil {
		return nil, err
	}
	if err := t.validate(in, out); err != nil {
		return nil, err
	}
	m, err := t.matrix(in.AxesNames(), out.AxesNames())
	if err != nil {
		return nil, err
	}
	a := &Affine{
		homogeneous: m,
		inAxes:      in.AxesNames(),
		outAxes:     out.AxesNames(),
	}
	a.input, a.output = in, out
	return a, nil
}

// validateLeaf is the validation shared by all single-step variants
func validateLeaf(t Transformation, in, out *coords.CoordinateSystem) error {
	if c, ok := t.(inputChecker); ok {
		if err := c.checkInput(in); err != nil {
			return err
		}
	}
	expected, err := t.outputAxes(in.AxesNames())
	if err != nil {
		return err
	}
	if !coords.SameAxes(expected, out.AxesNames()) {
		return fmt.Errorf("%w: %s maps %s to axes %v, but the output coordinate system is %s",
			coords.ErrCoordinateSystemMismatch, t.Kind(), in, expected, out)
	}
	return nil
}

// applyMatrix validates and applies a single-step transformation
func applyMatrix(t Transformation, in, out *coords.CoordinateSystem, points *ndarray.Array) (*ndarray.Array, error) {
	if err := t.validate(in, out); err != nil {
		return nil, err
	}
	if err := checkPoints(points, in); err != nil {
		return nil, err
	}
	m, err := t.matrix(in.AxesNames(), out.AxesNames())
	if err != nil {
		return nil, err
	}
	return apply(m, points)
}

// checkPoints validates a point array against the input coordinate system
func checkPoints(points *ndarray.Array, in *coords.CoordinateSystem) error {
	if points == nil {
		return fmt.Errorf("%w: nil point array", coords.ErrInvalidShape)
	}
	if points.Rank() != 2 {
		return fmt.Errorf("%w: points must be a 2-D array, got shape %v", coords.ErrInvalidShape, points.Shape())
	}
	if len(in.Axes) == 0 {
		return fmt.Errorf("%w: input coordinate system %s has no axes", coords.ErrInvalidShape, in)
	}
	if points.Dim(1) != len(in.Axes) {
		return fmt.Errorf("%w: points have %d columns, input coordinate system %s has %d axes",
			coords.ErrInvalidShape, points.Dim(1), in, len(in.Axes))
	}
	return nil
}

// apply multiplies homogeneous row points by the transpose of m
func apply(m *mat.Dense, points *ndarray.Array) (*ndarray.Array, error) {
	rows, cols := m.Dims()
	nOut, nIn := rows-1, cols-1
	n := points.Dim(0)
	if n == 0 || nOut == 0 {
		return ndarray.Zeros(n, nOut), nil
	}
	p, err := points.Dense()
	if err != nil {
		return nil, err
	}

	var res mat.Dense
	res.Mul(p, m.Slice(0, nOut, 0, nIn).T())
	for j := 0; j < nOut; j++ {
		shift := m.At(j, nIn)
		if shift == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			res.Set(i, j, res.At(i, j)+shift)
		}
	}
	return ndarray.FromDense(&res), nil
}

// passthrough builds the homogeneous matrix copying every out axis from
// the same-named in axis.
func passthrough(in, out []string) (*mat.Dense, error) {
	m := mat.NewDense(len(out)+1, len(in)+1, nil)
	ii := coords.IndexOf(in)
	for j, name := range out {
		i, ok := ii[name]
		if !ok {
			return nil, fmt.Errorf("%w: output axis %q is not among input axes %v", coords.ErrCoordinateSystemMismatch, name, in)
		}
		m.Set(j, i, 1)
	}
	m.Set(len(out), len(in), 1)
	return m, nil
}

// requireAxes checks that every axis a transformation acts on is present
func requireAxes(kind Kind, axes, in []string) error {
	ii := coords.IndexOf(in)
	for _, ax := range axes {
		if _, ok := ii[ax]; !ok {
			return fmt.Errorf("%w: %s acts on axis %q, which is not among input axes %v",
				coords.ErrCoordinateSystemMismatch, kind, ax, in)
		}
	}
	return nil
}

// checkAxisNames rejects empty and duplicated axis names
func checkAxisNames(kind Kind, axes []string) error {
	seen := make(map[string]bool, len(axes))
	for _, ax := range axes {
		if ax == "" {
			return fmt.Errorf("%w: %s has an empty axis name", ErrInvalidParameters, kind)
		}
		if seen[ax] {
			return fmt.Errorf("%w: %s has duplicate axis %q", ErrInvalidParameters, kind, ax)
		}
		seen[ax] = true
	}
	return nil
}

func checkFinite(kind Kind, values []float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s has non-finite parameter %v", ErrInvalidParameters, kind, v)
		}
	}
	return nil
}

func denseRows(m *mat.Dense) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		mat.Row(rows[i], i, m)
	}
	return rows
}
