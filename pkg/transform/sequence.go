package transform

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/ndarray"
)

// Sequence composes transformations. The first element is applied first.
// An empty sequence behaves as an identity.
type Sequence struct {
	base
	transformations []Transformation
}

// NewSequence composes the given transformations in application order
func NewSequence(transformations ...Transformation) *Sequence {
	return &Sequence{transformations: append([]Transformation(nil), transformations...)}
}

// Transformations returns the children in application order
func (t *Sequence) Transformations() []Transformation {
	return append([]Transformation(nil), t.transformations...)
}

func (t *Sequence) Kind() Kind { return KindSequence }

func (t *Sequence) TransformPoints(points *ndarray.Array) (*ndarray.Array, error) {
	return transformPoints(t, points)
}

func (t *Sequence) ToAffine() (*Affine, error) { return toAffine(t) }

// Inverse inverts every child and reverses their order
func (t *Sequence) Inverse() (Transformation, error) {
	inv := make([]Transformation, len(t.transformations))
	for i, child := range t.transformations {
		if child == nil {
			return nil, fmt.Errorf("%w: sequence step %d is nil", ErrInvalidParameters, i)
		}
		ci, err := child.Inverse()
		if err != nil {
			return nil, fmt.Errorf("sequence step %d: %w", i, err)
		}
		inv[len(inv)-1-i] = ci
	}
	return &Sequence{base: t.swapped(), transformations: inv}, nil
}

func (t *Sequence) ToSpec() Spec {
	children := make([]Spec, len(t.transformations))
	for i, child := range t.transformations {
		children[i] = child.ToSpec()
	}
	return Spec{Type: KindSequence, Transformations: children, Input: t.input, Output: t.output}
}

// step is one child together with the coordinate systems it maps between
type step struct {
	t       Transformation
	in, out *coords.CoordinateSystem
}

// resolve assigns input and output coordinate systems to every child,
// starting from in and ending at out. Coordinate systems already set on a
// child are honoured. Incompatible neighbours are reported here, before any
// arithmetic runs.
func (t *Sequence) resolve(in, out *coords.CoordinateSystem) ([]step, error) {
	steps := make([]step, 0, len(t.transformations))
	cur := in
	last := len(t.transformations) - 1
	for i, child := range t.transformations {
		if child == nil {
			return nil, fmt.Errorf("%w: sequence step %d is nil", ErrInvalidParameters, i)
		}
		if ci := child.InputCoordinateSystem(); ci != nil && !coords.SameAxes(ci.AxesNames(), cur.AxesNames()) {
			return nil, fmt.Errorf("%w: sequence step %d (%s) expects input %s but receives %s",
				coords.ErrCoordinateSystemMismatch, i, child.Kind(), ci, cur)
		}

		next := child.OutputCoordinateSystem()
		switch {
		case i == last:
			if next != nil && !coords.SameAxes(next.AxesNames(), out.AxesNames()) {
				return nil, fmt.Errorf("%w: last sequence step (%s) outputs %s, but the sequence outputs %s",
					coords.ErrCoordinateSystemMismatch, child.Kind(), next, out)
			}
			next = out
		case next == nil:
			axes, err := child.outputAxes(cur.AxesNames())
			if err != nil {
				return nil, fmt.Errorf("sequence step %d: %w", i, err)
			}
			next, err = coords.Derive(fmt.Sprintf("%s_step%d", in.Name, i), axes, cur, in, out)
			if err != nil {
				return nil, err
			}
		}

		if err := child.validate(cur, next); err != nil {
			return nil, fmt.Errorf("sequence step %d: %w", i, err)
		}
		steps = append(steps, step{t: child, in: cur, out: next})
		cur = next
	}
	if len(steps) == 0 && !coords.SameAxes(in.AxesNames(), out.AxesNames()) {
		return nil, fmt.Errorf("%w: empty sequence cannot map %s to %s", coords.ErrCoordinateSystemMismatch, in, out)
	}
	return steps, nil
}

func (t *Sequence) outputAxes(in []string) ([]string, error) {
	cur := append([]string(nil), in...)
	for i, child := range t.transformations {
		if child == nil {
			return nil, fmt.Errorf("%w: sequence step %d is nil", ErrInvalidParameters, i)
		}
		next, err := child.outputAxes(cur)
		if err != nil {
			return nil, fmt.Errorf("sequence step %d: %w", i, err)
		}
		cur = next
	}
	return cur, nil
}

// matrix multiplies the children's matrices in application order
func (t *Sequence) matrix(in, out []string) (*mat.Dense, error) {
	if len(t.transformations) == 0 {
		return passthrough(in, out)
	}
	cur := in
	var acc *mat.Dense
	last := len(t.transformations) - 1
	for i, child := range t.transformations {
		if child == nil {
			return nil, fmt.Errorf("%w: sequence step %d is nil", ErrInvalidParameters, i)
		}
		next := out
		if i != last {
			var err error
			if next, err = child.outputAxes(cur); err != nil {
				return nil, fmt.Errorf("sequence step %d: %w", i, err)
			}
		}
		m, err := child.matrix(cur, next)
		if err != nil {
			return nil, fmt.Errorf("sequence step %d: %w", i, err)
		}
		if acc == nil {
			acc = m
		} else {
			var prod mat.Dense
			prod.Mul(m, acc)
			acc = &prod
		}
		cur = next
	}
	return acc, nil
}

func (t *Sequence) validate(in, out *coords.CoordinateSystem) error {
	_, err := t.resolve(in, out)
	return err
}

// transformWith threads the points through every child in order
func (t *Sequence) transformWith(in, out *coords.CoordinateSystem, points *ndarray.Array) (*ndarray.Array, error) {
	steps, err := t.resolve(in, out)
	if err != nil {
		return nil, err
	}
	if err := checkPoints(points, in); err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		m, err := passthrough(in.AxesNames(), out.AxesNames())
		if err != nil {
			return nil, err
		}
		return apply(m, points)
	}
	for i, s := range steps {
		points, err = s.t.transformWith(s.in, s.out, points)
		if err != nil {
			return nil, fmt.Errorf("sequence step %d: %w", i, err)
		}
	}
	return points, nil
}
