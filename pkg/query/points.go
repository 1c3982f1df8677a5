package query

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/stat"

	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/element"
	"spatialcoords/pkg/extent"
	"spatialcoords/pkg/registry"
)

// Point is one row of a point table expressed in a target coordinate system
type Point struct {
	Coords []float64
	Row    int
}

// Compare implements kdtree.Comparable
func (p Point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.Coords[d] - c.(Point).Coords[d]
}

// Dims implements kdtree.Comparable
func (p Point) Dims() int { return len(p.Coords) }

// Distance returns the squared Euclidean distance
func (p Point) Distance(c kdtree.Comparable) float64 {
	q := c.(Point)
	var sum float64
	for i, v := range p.Coords {
		d := v - q.Coords[i]
		sum += d * d
	}
	return sum
}

// points satisfies kdtree.Interface
type points []Point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p points) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{points: p, Dim: d}, kdtree.MedianOfRandoms(plane{points: p, Dim: d}, 100))
}

// plane sorts points along one dimension
type plane struct {
	points
	kdtree.Dim
}

func (p plane) Less(i, j int) bool { return p.points[i].Coords[p.Dim] < p.points[j].Coords[p.Dim] }
func (p plane) Swap(i, j int)      { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{points: p.points[start:end], Dim: p.Dim}
}

// Neighbor is a nearest-neighbour search result
type Neighbor struct {
	Point
	Distance float64
}

// PointIndex is a k-d tree over the points of one table, transformed into
// a target coordinate system.
type PointIndex struct {
	axes   []string
	points points
	tree   *kdtree.Tree
}

// BuildPoints transforms every point of p into the named coordinate
// system and indexes the result.
func BuildPoints(p *element.PointTable, coordinateSystem string, reg registry.Getter) (*PointIndex, error) {
	t, err := reg.Get(p, coordinateSystem)
	if err != nil {
		return nil, err
	}
	moved, err := p.Coordinates().Then(t.TransformPoints).Compute()
	if err != nil {
		return nil, fmt.Errorf("points %q to %q: %w", p.Name(), coordinateSystem, err)
	}
	rows, err := moved.Rows()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: points %q", extent.ErrEmptyExtent, p.Name())
	}

	pts := make(points, len(rows))
	for i, row := range rows {
		pts[i] = Point{Coords: row, Row: i}
	}
	idx := &PointIndex{
		axes:   t.OutputCoordinateSystem().AxesNames(),
		points: append(points(nil), pts...),
	}
	idx.tree = kdtree.New(pts, false)
	return idx, nil
}

// Axes returns the column order of indexed and query coordinates
func (idx *PointIndex) Axes() []string { return append([]string(nil), idx.axes...) }

// Len returns the number of indexed points
func (idx *PointIndex) Len() int { return len(idx.points) }

// Nearest returns up to k points closest to q, nearest first. The
// coordinates of q follow Axes.
func (idx *PointIndex) Nearest(q []float64, k int) ([]Neighbor, error) {
	if len(q) != len(idx.axes) {
		return nil, fmt.Errorf("%w: query has %d coordinates, index axes are %v", coords.ErrInvalidShape, len(q), idx.axes)
	}
	if k <= 0 {
		return nil, nil
	}

	keeper := kdtree.NewNKeeper(k)
	idx.tree.NearestSet(keeper, Point{Coords: q})

	result := make([]Neighbor, 0, keeper.Len())
	for _, item := range keeper.Heap {
		if item.Comparable == nil {
			continue
		}
		result = append(result, Neighbor{Point: item.Comparable.(Point), Distance: math.Sqrt(item.Dist)})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Distance != result[j].Distance {
			return result[i].Distance < result[j].Distance
		}
		return result[i].Row < result[j].Row
	})
	return result, nil
}

// Centroid returns the mean of the indexed points along each axis
func (idx *PointIndex) Centroid() []float64 {
	centroid := make([]float64, len(idx.axes))
	column := make([]float64, len(idx.points))
	for j := range centroid {
		for i, p := range idx.points {
			column[i] = p.Coords[j]
		}
		centroid[j] = stat.Mean(column, nil)
	}
	return centroid
}
