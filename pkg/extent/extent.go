// Package extent computes axis-aligned bounding boxes of spatial elements
// and whole datasets in a target coordinate system.
//
// An element's box is first computed in its intrinsic coordinates, then
// mapped to the target system by transforming all 2^D corners of that box
// and taking the per-axis min and max of the result. Transforming only the
// min and max points would be wrong for rotations and shears.
package extent

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"spatialcoords/internal/logging"
	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/element"
	"spatialcoords/pkg/ndarray"
	"spatialcoords/pkg/registry"
)

var (
	// ErrUnsupportedElementKind reports an element kind without an extent handler
	ErrUnsupportedElementKind = errors.New("unsupported element kind")

	// ErrRasterExtentNotImplemented reports the missing raster handler. It
	// matches ErrUnsupportedElementKind with errors.Is.
	ErrRasterExtentNotImplemented = fmt.Errorf("%w: raster extent is not implemented", ErrUnsupportedElementKind)

	// ErrNoElementsInCoordinateSystem reports a dataset union with no
	// contributing element
	ErrNoElementsInCoordinateSystem = errors.New("no elements in coordinate system")

	// ErrEmptyExtent reports an element without any geometry
	ErrEmptyExtent = errors.New("empty extent")
)

// Source is anything that can enumerate its elements, such as a dataset
type Source interface {
	Elements() []element.Element
}

// Calculator computes extents. The zero value is ready to use.
type Calculator struct {
	// ChunkRows bounds the rows reduced at a time for point tables.
	// Zero means ndarray.DefaultChunkRows.
	ChunkRows int
}

func (c Calculator) chunkRows() int {
	if c.ChunkRows > 0 {
		return c.ChunkRows
	}
	return ndarray.DefaultChunkRows
}

// Of computes the extent of e in the named coordinate system with the
// default Calculator.
func Of(e element.Element, coordinateSystem string, reg registry.Getter) (BoundingBox, error) {
	return Calculator{}.Of(e, coordinateSystem, reg)
}

// OfDataset computes the union extent of src with the default Calculator
func OfDataset(src Source, coordinateSystem string, reg registry.Getter) (BoundingBox, error) {
	return Calculator{}.OfDataset(src, coordinateSystem, reg)
}

// Of computes the extent of e in the named coordinate system. The element
// must have a transformation to that system in reg.
func (c Calculator) Of(e element.Element, coordinateSystem string, reg registry.Getter) (BoundingBox, error) {
	t, err := reg.Get(e, coordinateSystem)
	if err != nil {
		return BoundingBox{}, err
	}
	local, err := c.Intrinsic(e)
	if err != nil {
		return BoundingBox{}, err
	}
	box, err := local.transform(t, c.chunkRows())
	if err != nil {
		return BoundingBox{}, fmt.Errorf("extent of %q in %q: %w", e.Name(), coordinateSystem, err)
	}
	logging.Logger().Debug("element extent",
		"element", e.Name(), "kind", e.Kind(), "coordinateSystem", coordinateSystem, "extent", box.String())
	return box, nil
}

// OfDataset unions the extents of every element of src that has a
// transformation to the named coordinate system. Elements without one are
// skipped; any other failure aborts the union.
func (c Calculator) OfDataset(src Source, coordinateSystem string, reg registry.Getter) (BoundingBox, error) {
	var (
		union BoundingBox
		found bool
	)
	for _, e := range src.Elements() {
		if !registry.Has(reg, e, coordinateSystem) {
			logging.Logger().Debug("skipping element", "element", e.Name(), "coordinateSystem", coordinateSystem)
			continue
		}
		box, err := c.Of(e, coordinateSystem, reg)
		if err != nil {
			return BoundingBox{}, err
		}
		if !found {
			union, found = box, true
			continue
		}
		union = union.Union(box)
	}
	if !found {
		return BoundingBox{}, fmt.Errorf("%w: %q", ErrNoElementsInCoordinateSystem, coordinateSystem)
	}
	return union, nil
}

// Intrinsic computes the extent of e in its own coordinates, with one box
// axis per element axis.
func (c Calculator) Intrinsic(e element.Element) (BoundingBox, error) {
	switch el := e.(type) {
	case *element.Circles:
		return circlesExtent(el)
	case *element.Polygons:
		return polygonsExtent(el)
	case *element.PointTable:
		return c.pointsExtent(el)
	case *element.Raster, *element.MultiscaleRaster:
		return BoundingBox{}, fmt.Errorf("%w: %q", ErrRasterExtentNotImplemented, e.Name())
	default:
		return BoundingBox{}, fmt.Errorf("%w: %T", ErrUnsupportedElementKind, e)
	}
}

func circlesExtent(c *element.Circles) (BoundingBox, error) {
	if c.Len() == 0 {
		return BoundingBox{}, fmt.Errorf("%w: circles %q", ErrEmptyExtent, c.Name())
	}
	min := []float64{math.Inf(1), math.Inf(1)}
	max := []float64{math.Inf(-1), math.Inf(-1)}
	for i := 0; i < c.Len(); i++ {
		center, r := c.Circle(i)
		min[0] = math.Min(min[0], center.X()-r)
		min[1] = math.Min(min[1], center.Y()-r)
		max[0] = math.Max(max[0], center.X()+r)
		max[1] = math.Max(max[1], center.Y()+r)
	}
	return NewBoundingBox(min, max, c.Axes())
}

func polygonsExtent(p *element.Polygons) (BoundingBox, error) {
	var (
		bound orb.Bound
		found bool
	)
	for _, g := range p.Geometries() {
		b := g.Bound()
		if b.IsEmpty() {
			continue
		}
		if !found {
			bound, found = b, true
			continue
		}
		bound = bound.Union(b)
	}
	if !found {
		return BoundingBox{}, fmt.Errorf("%w: polygons %q", ErrEmptyExtent, p.Name())
	}
	return NewBoundingBox(
		[]float64{bound.Min.X(), bound.Min.Y()},
		[]float64{bound.Max.X(), bound.Max.Y()},
		p.Axes(),
	)
}

// pointsExtent reduces the columns of p. NaN would make the min and max
// depend on row order, so non-finite coordinates are rejected.
func (c Calculator) pointsExtent(p *element.PointTable) (BoundingBox, error) {
	pts := ndarray.Finite(p.Coordinates())
	lo, err := ndarray.ColumnMin(pts, c.chunkRows()).Compute()
	switch {
	case errors.Is(err, ndarray.ErrEmpty):
		return BoundingBox{}, fmt.Errorf("%w: points %q", ErrEmptyExtent, p.Name())
	case errors.Is(err, ndarray.ErrNonFinite):
		return BoundingBox{}, fmt.Errorf("%w: points %q: %w", coords.ErrInvalidShape, p.Name(), err)
	case err != nil:
		return BoundingBox{}, err
	}
	hi, err := ndarray.ColumnMax(pts, c.chunkRows()).Compute()
	if err != nil {
		return BoundingBox{}, err
	}
	return NewBoundingBox(lo.Data(), hi.Data(), p.Axes())
}
