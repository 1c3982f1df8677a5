package transform

import (
	"gonum.org/v1/gonum/mat"

	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/ndarray"
)

// Identity leaves values unchanged. Columns are still matched by axis
// name, so an identity between systems with the same axes in a different
// order reorders the columns.
type Identity struct {
	base
}

// NewIdentity creates an identity transformation
func NewIdentity() *Identity {
	return &Identity{}
}

func (t *Identity) Kind() Kind { return KindIdentity }

func (t *Identity) TransformPoints(points *ndarray.Array) (*ndarray.Array, error) {
	return transformPoints(t, points)
}

func (t *Identity) ToAffine() (*Affine, error) { return toAffine(t) }

func (t *Identity) Inverse() (Transformation, error) {
	return &Identity{base: t.swapped()}, nil
}

func (t *Identity) ToSpec() Spec {
	return Spec{Type: KindIdentity, Input: t.input, Output: t.output}
}

func (t *Identity) outputAxes(in []string) ([]string, error) {
	return append([]string(nil), in...), nil
}

func (t *Identity) matrix(in, out []string) (*mat.Dense, error) {
	return passthrough(in, out)
}

func (t *Identity) validate(in, out *coords.CoordinateSystem) error {
	return validateLeaf(t, in, out)
}

func (t *Identity) transformWith(in, out *coords.CoordinateSystem, points *ndarray.Array) (*ndarray.Array, error) {
	return applyMatrix(t, in, out, points)
}
