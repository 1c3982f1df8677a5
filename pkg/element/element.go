// Package element defines the spatial element kinds a dataset holds:
// rasters (images and labels), multiscale rasters, point tables and shape
// collections made of circles or polygons. The set of kinds is closed;
// consumers switch on the concrete type.
package element

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/ndarray"
)

// ErrInvalidElement reports malformed element data
var ErrInvalidElement = errors.New("invalid element")

// Kind names an element kind
type Kind string

const (
	KindRaster           Kind = "raster"
	KindMultiscaleRaster Kind = "multiscale_raster"
	KindPoints           Kind = "points"
	KindCircles          Kind = "circles"
	KindPolygons         Kind = "polygons"
)

// ShapeAxes are the axes of every shape collection
var ShapeAxes = []string{"x", "y"}

// Element is implemented by every spatial element kind
type Element interface {
	// Name identifies the element within its dataset
	Name() string

	Kind() Kind

	// Axes returns the element's axis names in the order its coordinate
	// columns or raster dimensions are laid out.
	Axes() []string

	sealed()
}

// Intrinsic returns the element's own coordinate system, named after the
// element, with one axis per element axis.
func Intrinsic(e Element) (*coords.CoordinateSystem, error) {
	return coords.Derive(e.Name(), e.Axes())
}

func checkAxes(name string, axes []string) error {
	seen := make(map[string]bool, len(axes))
	for _, ax := range axes {
		if ax == "" || seen[ax] {
			return fmt.Errorf("%w: %q has empty or duplicate axis %q", ErrInvalidElement, name, ax)
		}
		seen[ax] = true
	}
	return nil
}

// PointTable is a table of point coordinates, one column per axis. The
// coordinates may be deferred and are only materialized on demand.
type PointTable struct {
	name        string
	axes        []string
	coordinates *ndarray.Deferred
}

// NewPointTable builds a point table from concrete coordinates whose
// columns follow axes.
func NewPointTable(name string, coordinates *ndarray.Array, axes []string) (*PointTable, error) {
	if coordinates == nil || coordinates.Rank() != 2 || coordinates.Dim(1) != len(axes) {
		return nil, fmt.Errorf("%w: points %q need an N x %d coordinate array", ErrInvalidElement, name, len(axes))
	}
	return NewLazyPointTable(name, ndarray.Lazy(coordinates), axes)
}

// NewLazyPointTable builds a point table from deferred coordinates. The
// shape is checked when the coordinates are computed.
func NewLazyPointTable(name string, coordinates *ndarray.Deferred, axes []string) (*PointTable, error) {
	if err := checkAxes(name, axes); err != nil {
		return nil, err
	}
	if len(axes) == 0 {
		return nil, fmt.Errorf("%w: points %q have no axes", ErrInvalidElement, name)
	}
	axes = append([]string(nil), axes...)
	checked := coordinates.Then(func(a *ndarray.Array) (*ndarray.Array, error) {
		if a.Rank() != 2 || a.Dim(1) != len(axes) {
			return nil, fmt.Errorf("%w: points %q have shape %v for axes %v", ErrInvalidElement, name, a.Shape(), axes)
		}
		return a, nil
	})
	return &PointTable{name: name, axes: axes, coordinates: checked}, nil
}

func (p *PointTable) Name() string   { return p.name }
func (p *PointTable) Kind() Kind     { return KindPoints }
func (p *PointTable) Axes() []string { return append([]string(nil), p.axes...) }
func (p *PointTable) sealed()        {}

// Coordinates returns the deferred coordinate array
func (p *PointTable) Coordinates() *ndarray.Deferred { return p.coordinates }

// Circles is a shape collection of circles with a centre and a radius each
type Circles struct {
	name    string
	centers []orb.Point
	radii   []float64
}

// NewCircles builds a circle collection. Radii must be non-negative.
func NewCircles(name string, centers []orb.Point, radii []float64) (*Circles, error) {
	if len(centers) != len(radii) {
		return nil, fmt.Errorf("%w: circles %q have %d centres and %d radii", ErrInvalidElement, name, len(centers), len(radii))
	}
	for i, r := range radii {
		if r < 0 {
			return nil, fmt.Errorf("%w: circle %d of %q has negative radius %v", ErrInvalidElement, i, name, r)
		}
	}
	return &Circles{
		name:    name,
		centers: append([]orb.Point(nil), centers...),
		radii:   append([]float64(nil), radii...),
	}, nil
}

func (c *Circles) Name() string   { return c.name }
func (c *Circles) Kind() Kind     { return KindCircles }
func (c *Circles) Axes() []string { return append([]string(nil), ShapeAxes...) }
func (c *Circles) sealed()        {}

// Len returns the number of circles
func (c *Circles) Len() int { return len(c.centers) }

// Circle returns the centre and radius of circle i
func (c *Circles) Circle(i int) (orb.Point, float64) { return c.centers[i], c.radii[i] }

// Polygons is a shape collection of polygons and multipolygons
type Polygons struct {
	name  string
	geoms []orb.Geometry
}

// NewPolygons builds a polygon collection. Every geometry must be an
// orb.Polygon or an orb.MultiPolygon.
func NewPolygons(name string, geoms []orb.Geometry) (*Polygons, error) {
	for i, g := range geoms {
		switch g.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			return nil, fmt.Errorf("%w: geometry %d of %q is a %T, not a polygon", ErrInvalidElement, i, name, g)
		}
	}
	return &Polygons{name: name, geoms: append([]orb.Geometry(nil), geoms...)}, nil
}

func (p *Polygons) Name() string   { return p.name }
func (p *Polygons) Kind() Kind     { return KindPolygons }
func (p *Polygons) Axes() []string { return append([]string(nil), ShapeAxes...) }
func (p *Polygons) sealed()        {}

// Geometries returns the polygons and multipolygons
func (p *Polygons) Geometries() []orb.Geometry { return append([]orb.Geometry(nil), p.geoms...) }
