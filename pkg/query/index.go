// Package query indexes element extents of one coordinate system in an
// R-tree and answers bounding-box queries against it.
package query

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dhconnelly/rtreego"

	"spatialcoords/internal/logging"
	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/element"
	"spatialcoords/pkg/extent"
	"spatialcoords/pkg/registry"
)

// epsilon is the minimum side length of an indexed rectangle. R-tree
// rectangles cannot be flat, so points and lines are widened to it.
const epsilon = 1e-9

// Entry is one indexed element with its extent
type Entry struct {
	Element element.Element
	Extent  extent.BoundingBox
	rect    rtreego.Rect
}

// Bounds implements rtreego.Spatial
func (e *Entry) Bounds() rtreego.Rect {
	return e.rect
}

// Index is an R-tree over the extents of the elements that have a
// transformation to one coordinate system.
type Index struct {
	coordinateSystem string
	extent           extent.BoundingBox
	tree             *rtreego.Rtree
	entries          []*Entry
}

// Build computes the extent of every element of src in the named
// coordinate system and indexes them. Elements without the coordinate
// system and elements whose kind has no extent are left out. An element
// missing one of the dataset axes spans the whole dataset along it.
func Build(src extent.Source, coordinateSystem string, reg registry.Getter, calc extent.Calculator) (*Index, error) {
	var entries []*Entry
	for _, e := range src.Elements() {
		if !registry.Has(reg, e, coordinateSystem) {
			continue
		}
		box, err := calc.Of(e, coordinateSystem, reg)
		if errors.Is(err, extent.ErrUnsupportedElementKind) {
			logging.Logger().Warn("element not indexed", "element", e.Name(), "error", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, &Entry{Element: e, Extent: box})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %q", extent.ErrNoElementsInCoordinateSystem, coordinateSystem)
	}

	total := entries[0].Extent
	for _, entry := range entries[1:] {
		total = total.Union(entry.Extent)
	}
	tree := rtreego.NewTree(len(total.Axes), 25, 50)
	for _, entry := range entries {
		rect, err := toRect(entry.Extent, total)
		if err != nil {
			return nil, err
		}
		entry.rect = rect
		tree.Insert(entry)
	}

	logging.Logger().Debug("built extent index",
		"coordinateSystem", coordinateSystem, "elements", len(entries), "extent", total.String())
	return &Index{coordinateSystem: coordinateSystem, extent: total, tree: tree, entries: entries}, nil
}

// toRect lays box out along the axes of total. Axes the box lacks take
// the interval of total.
func toRect(box, total extent.BoundingBox) (rtreego.Rect, error) {
	point := make(rtreego.Point, len(total.Axes))
	lengths := make([]float64, len(total.Axes))
	for i, ax := range total.Axes {
		lo, hi, ok := box.Bounds(ax)
		if !ok {
			lo, hi = total.Min[i], total.Max[i]
		}
		point[i] = lo
		lengths[i] = hi - lo
		if lengths[i] < epsilon {
			lengths[i] = epsilon
		}
	}
	return rtreego.NewRect(point, lengths)
}

// CoordinateSystem returns the name of the indexed coordinate system
func (idx *Index) CoordinateSystem() string { return idx.coordinateSystem }

// Extent returns the union of all indexed extents
func (idx *Index) Extent() extent.BoundingBox { return idx.extent }

// Len returns the number of indexed elements
func (idx *Index) Len() int { return len(idx.entries) }

// Entries returns every indexed entry in insertion order
func (idx *Index) Entries() []*Entry {
	return append([]*Entry(nil), idx.entries...)
}

// Intersecting returns the entries whose extent intersects box, sorted by
// element name. The box must have exactly the axes of the index.
func (idx *Index) Intersecting(box extent.BoundingBox) ([]*Entry, error) {
	if !coords.SameAxes(box.Axes, idx.extent.Axes) {
		return nil, fmt.Errorf("%w: query axes %v, index axes %v",
			coords.ErrCoordinateSystemMismatch, box.Axes, idx.extent.Axes)
	}
	rect, err := toRect(box, idx.extent)
	if err != nil {
		return nil, err
	}

	var result []*Entry
	for _, s := range idx.tree.SearchIntersect(rect) {
		entry := s.(*Entry)
		// The R-tree widens flat rectangles, so confirm against the exact extent.
		if entry.Extent.Intersects(box) || !sharesAxes(entry.Extent, box) {
			result = append(result, entry)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Element.Name() < result[j].Element.Name()
	})
	return result, nil
}

func sharesAxes(a, b extent.BoundingBox) bool {
	for _, ax := range a.Axes {
		if _, _, ok := b.Bounds(ax); ok {
			return true
		}
	}
	return false
}
