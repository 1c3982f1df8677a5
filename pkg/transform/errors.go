package transform

import "errors"

var (
	// ErrNotInvertible reports a transformation without an inverse
	ErrNotInvertible = errors.New("transformation is not invertible")

	// ErrInvalidParameters reports malformed transformation parameters,
	// such as a zero scale factor or a non-orthonormal rotation.
	ErrInvalidParameters = errors.New("invalid transformation parameters")

	// ErrUnknownType reports a serialized transformation with an unknown type tag
	ErrUnknownType = errors.New("unknown transformation type")
)
