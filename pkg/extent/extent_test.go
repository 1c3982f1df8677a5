package extent

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"

	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/element"
	"spatialcoords/pkg/ndarray"
	"spatialcoords/pkg/registry"
	"spatialcoords/pkg/transform"
)

type elements []element.Element

func (e elements) Elements() []element.Element { return e }

func assertBox(t *testing.T, got BoundingBox, min, max []float64, axes []string) {
	t.Helper()
	if len(got.Axes) != len(axes) {
		t.Fatalf("Expected axes %v, got %v", axes, got.Axes)
	}
	for i := range axes {
		if got.Axes[i] != axes[i] {
			t.Fatalf("Expected axes %v, got %v", axes, got.Axes)
		}
	}
	if !floats.EqualApprox(got.Min, min, 1e-9) || !floats.EqualApprox(got.Max, max, 1e-9) {
		t.Errorf("Expected min %v max %v, got min %v max %v", min, max, got.Min, got.Max)
	}
}

func mustCircles(t *testing.T, name string, centers []orb.Point, radii []float64) *element.Circles {
	t.Helper()
	c, err := element.NewCircles(name, centers, radii)
	if err != nil {
		t.Fatalf("NewCircles failed: %v", err)
	}
	return c
}

func square(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

func mustSet(t *testing.T, reg *registry.Registry, e element.Element, tr transform.Transformation, cs string) {
	t.Helper()
	if err := reg.Set(e, tr, cs); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
}

// TestCirclesExtent verifies that radii widen the box around the centres
func TestCirclesExtent(t *testing.T) {
	reg := registry.New(nil)
	c := mustCircles(t, "cells", []orb.Point{{0, 0}, {10, 0}}, []float64{1, 1})
	mustSet(t, reg, c, transform.NewIdentity(), "global")

	box, err := Of(c, "global", reg)
	if err != nil {
		t.Fatalf("Of failed: %v", err)
	}
	assertBox(t, box, []float64{-1, -1}, []float64{11, 1}, []string{"x", "y"})
}

// TestPolygonsExtent verifies the union of polygon bounds
func TestPolygonsExtent(t *testing.T) {
	reg := registry.New(nil)
	p, err := element.NewPolygons("regions", []orb.Geometry{
		square(0, 0, 1, 1),
		orb.MultiPolygon{square(2, 2, 3, 3)},
	})
	if err != nil {
		t.Fatalf("NewPolygons failed: %v", err)
	}
	mustSet(t, reg, p, transform.NewIdentity(), "global")

	box, err := Of(p, "global", reg)
	if err != nil {
		t.Fatalf("Of failed: %v", err)
	}
	assertBox(t, box, []float64{0, 0}, []float64{3, 3}, []string{"x", "y"})
}

// TestPointsExtent verifies chunked column reductions and a scale
func TestPointsExtent(t *testing.T) {
	reg := registry.New(nil)
	pts, err := element.NewPointTable("spots", ndarray.MustFromRows([][]float64{
		{1, 5}, {3, 2}, {-1, 4},
	}), []string{"x", "y"})
	if err != nil {
		t.Fatalf("NewPointTable failed: %v", err)
	}
	scale, _ := transform.NewScale([]float64{2}, []string{"x"})
	mustSet(t, reg, pts, scale, "global")

	box, err := Calculator{ChunkRows: 1}.Of(pts, "global", reg)
	if err != nil {
		t.Fatalf("Of failed: %v", err)
	}
	assertBox(t, box, []float64{-2, 2}, []float64{6, 5}, []string{"x", "y"})

	empty, _ := element.NewPointTable("none", ndarray.Zeros(0, 2), []string{"x", "y"})
	mustSet(t, reg, empty, transform.NewIdentity(), "global")
	if _, err := Of(empty, "global", reg); !errors.Is(err, ErrEmptyExtent) {
		t.Errorf("Expected ErrEmptyExtent, got %v", err)
	}
}

// TestPointsExtentRejectsNonFinite verifies that NaN and infinite
// coordinates fail wherever they appear in the table
func TestPointsExtentRejectsNonFinite(t *testing.T) {
	reg := registry.New(nil)
	tables := map[string][][]float64{
		"nan first": {{math.NaN(), 5}, {3, 2}, {-1, 4}},
		"nan later": {{1, 5}, {3, math.NaN()}, {-1, 4}},
		"infinite":  {{1, 5}, {3, 2}, {math.Inf(-1), 4}},
	}
	for name, rows := range tables {
		pts, err := element.NewPointTable("spots", ndarray.MustFromRows(rows), []string{"x", "y"})
		if err != nil {
			t.Fatalf("NewPointTable failed: %v", err)
		}
		mustSet(t, reg, pts, transform.NewIdentity(), "global")
		for _, chunk := range []int{1, 2, 0} {
			if _, err := (Calculator{ChunkRows: chunk}).Of(pts, "global", reg); !errors.Is(err, coords.ErrInvalidShape) {
				t.Errorf("%s, chunk=%d: Expected ErrInvalidShape, got %v", name, chunk, err)
			}
		}
	}
}

// TestRasterExtent verifies that rasters report the missing handler only
// once the coordinate system is known to exist
func TestRasterExtent(t *testing.T) {
	reg := registry.New(nil)
	img, err := element.NewRaster("img", ndarray.Zeros(1, 4, 4), []string{"c", "y", "x"})
	if err != nil {
		t.Fatalf("NewRaster failed: %v", err)
	}

	if _, err := Of(img, "global", reg); !errors.Is(err, coords.ErrMissingCoordinateSystem) {
		t.Errorf("Expected ErrMissingCoordinateSystem, got %v", err)
	}

	mustSet(t, reg, img, transform.NewIdentity(), "global")
	_, err = Of(img, "global", reg)
	if !errors.Is(err, ErrRasterExtentNotImplemented) {
		t.Errorf("Expected ErrRasterExtentNotImplemented, got %v", err)
	}
	if !errors.Is(err, ErrUnsupportedElementKind) {
		t.Errorf("Expected the error to match ErrUnsupportedElementKind, got %v", err)
	}
}

// TestCornerTransform verifies that every corner of the box is transformed
func TestCornerTransform(t *testing.T) {
	local := coords.MustCoordinateSystem("local", coords.DefaultAxis("x"), coords.DefaultAxis("y"))
	global := coords.MustCoordinateSystem("global", coords.DefaultAxis("x"), coords.DefaultAxis("y"))
	box, err := NewBoundingBox([]float64{0, 0}, []float64{2, 1}, []string{"x", "y"})
	if err != nil {
		t.Fatalf("NewBoundingBox failed: %v", err)
	}

	quarter, _ := transform.NewRotation2D(math.Pi/2, [2]string{"x", "y"})
	quarter.SetInputCoordinateSystem(local)
	quarter.SetOutputCoordinateSystem(global)
	got, err := box.Transform(quarter)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	assertBox(t, got, []float64{-1, 0}, []float64{0, 2}, []string{"x", "y"})
	for i := range got.Axes {
		if got.Min[i] > got.Max[i] {
			t.Errorf("Expected min <= max on axis %s, got %v > %v", got.Axes[i], got.Min[i], got.Max[i])
		}
	}

	// Transforming only min and max would give x in [0, 0.707].
	eighth, _ := transform.NewRotation2D(math.Pi/4, [2]string{"x", "y"})
	eighth.SetInputCoordinateSystem(local)
	eighth.SetOutputCoordinateSystem(global)
	got, err = box.Transform(eighth)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	h := math.Sqrt2 / 2
	assertBox(t, got, []float64{-h, 0}, []float64{2 * h, 3 * h}, []string{"x", "y"})
}

// TestTransformReordersAxes verifies that box axes are matched by name
func TestTransformReordersAxes(t *testing.T) {
	box, _ := NewBoundingBox([]float64{0, 10}, []float64{1, 20}, []string{"y", "x"})
	tr, _ := transform.NewTranslation([]float64{100}, []string{"x"})
	tr.SetInputCoordinateSystem(coords.MustCoordinateSystem("local", coords.DefaultAxis("x"), coords.DefaultAxis("y")))
	tr.SetOutputCoordinateSystem(coords.MustCoordinateSystem("global", coords.DefaultAxis("x"), coords.DefaultAxis("y")))

	got, err := box.Transform(tr)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	assertBox(t, got, []float64{110, 0}, []float64{120, 1}, []string{"x", "y"})

	other, _ := NewBoundingBox([]float64{0}, []float64{1}, []string{"z"})
	if _, err := other.Transform(tr); !errors.Is(err, coords.ErrCoordinateSystemMismatch) {
		t.Errorf("Expected ErrCoordinateSystemMismatch, got %v", err)
	}
}

// TestDatasetUnion verifies that elements without the coordinate system
// are skipped and that an empty union fails
func TestDatasetUnion(t *testing.T) {
	reg := registry.New(nil)
	a := mustCircles(t, "a", []orb.Point{{0, 0}}, []float64{1})
	b := mustCircles(t, "b", []orb.Point{{5, 5}}, []float64{1})
	stray := mustCircles(t, "stray", []orb.Point{{100, 100}}, []float64{1})
	mustSet(t, reg, a, transform.NewIdentity(), "global")
	mustSet(t, reg, b, transform.NewIdentity(), "global")
	mustSet(t, reg, stray, transform.NewIdentity(), "other")

	with, err := OfDataset(elements{a, stray, b}, "global", reg)
	if err != nil {
		t.Fatalf("OfDataset failed: %v", err)
	}
	without, err := OfDataset(elements{a, b}, "global", reg)
	if err != nil {
		t.Fatalf("OfDataset failed: %v", err)
	}
	assertBox(t, with, []float64{-1, -1}, []float64{6, 6}, []string{"x", "y"})
	assertBox(t, without, with.Min, with.Max, with.Axes)

	if _, err := OfDataset(elements{a, b}, "nowhere", reg); !errors.Is(err, ErrNoElementsInCoordinateSystem) {
		t.Errorf("Expected ErrNoElementsInCoordinateSystem, got %v", err)
	}
	if _, err := OfDataset(elements{}, "global", reg); !errors.Is(err, ErrNoElementsInCoordinateSystem) {
		t.Errorf("Expected ErrNoElementsInCoordinateSystem for an empty dataset, got %v", err)
	}
}

// TestDatasetUnionAxes verifies first-seen axis order across elements
func TestDatasetUnionAxes(t *testing.T) {
	reg := registry.New(nil)
	c := mustCircles(t, "c", []orb.Point{{0, 0}}, []float64{1})
	pts, _ := element.NewPointTable("p", ndarray.MustFromRows([][]float64{{2, 3, 4}, {-2, 0, 8}}), []string{"x", "y", "z"})
	mustSet(t, reg, c, transform.NewIdentity(), "global")
	mustSet(t, reg, pts, transform.NewIdentity(), "global")

	box, err := OfDataset(elements{c, pts}, "global", reg)
	if err != nil {
		t.Fatalf("OfDataset failed: %v", err)
	}
	assertBox(t, box, []float64{-2, -1, 4}, []float64{2, 3, 8}, []string{"x", "y", "z"})
}

// TestDatasetUnionFailsFast verifies that errors other than a missing
// coordinate system abort the union
func TestDatasetUnionFailsFast(t *testing.T) {
	reg := registry.New(nil)
	c := mustCircles(t, "c", []orb.Point{{0, 0}}, []float64{1})
	img, _ := element.NewRaster("img", ndarray.Zeros(4, 4), []string{"y", "x"})
	mustSet(t, reg, c, transform.NewIdentity(), "global")
	mustSet(t, reg, img, transform.NewIdentity(), "global")

	if _, err := OfDataset(elements{c, img}, "global", reg); !errors.Is(err, ErrRasterExtentNotImplemented) {
		t.Errorf("Expected ErrRasterExtentNotImplemented, got %v", err)
	}
}

// TestUnionAndIntersects verifies box set operations
func TestUnionAndIntersects(t *testing.T) {
	a, _ := NewBoundingBox([]float64{0, 0}, []float64{1, 1}, []string{"x", "y"})
	b, _ := NewBoundingBox([]float64{1, 2}, []float64{2, 3}, []string{"x", "y"})
	c, _ := NewBoundingBox([]float64{5}, []float64{6}, []string{"z"})

	assertBox(t, a.Union(b), []float64{0, 0}, []float64{2, 3}, []string{"x", "y"})
	assertBox(t, a.Union(c), []float64{0, 0, 5}, []float64{1, 1, 6}, []string{"x", "y", "z"})

	if a.Intersects(b) {
		t.Errorf("Expected %v and %v not to intersect", a, b)
	}
	touching, _ := NewBoundingBox([]float64{1, 1}, []float64{2, 2}, []string{"x", "y"})
	if !a.Intersects(touching) {
		t.Errorf("Expected touching boxes to intersect")
	}
	if a.Intersects(c) {
		t.Errorf("Expected boxes without shared axes not to intersect")
	}

	if _, err := NewBoundingBox([]float64{1}, []float64{0}, []string{"x"}); !errors.Is(err, coords.ErrInvalidShape) {
		t.Errorf("Expected ErrInvalidShape for min above max, got %v", err)
	}
	if got := a.Corners().Shape(); got[0] != 4 || got[1] != 2 {
		t.Errorf("Expected 4 x 2 corners, got %v", got)
	}
}
