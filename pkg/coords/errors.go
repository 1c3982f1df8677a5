package coords

import "errors"

// Errors shared by every package that maps points between coordinate systems.
var (
	// ErrInvalidShape reports a point array whose rank or column count does
	// not match the axes of the coordinate system it is expressed in.
	ErrInvalidShape = errors.New("invalid point array shape")

	// ErrMissingCoordinateSystem reports a coordinate system that has not
	// been set on a transformation or registered for an element.
	ErrMissingCoordinateSystem = errors.New("missing coordinate system")

	// ErrCoordinateSystemMismatch reports axes that disagree with what a
	// transformation consumes or produces.
	ErrCoordinateSystemMismatch = errors.New("coordinate system mismatch")

	ErrInvalidCoordinateSystem = errors.New("invalid coordinate system")
)
