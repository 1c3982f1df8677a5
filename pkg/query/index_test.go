package query

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/element"
	"spatialcoords/pkg/extent"
	"spatialcoords/pkg/ndarray"
	"spatialcoords/pkg/registry"
	"spatialcoords/pkg/transform"
)

type elements []element.Element

func (e elements) Elements() []element.Element { return e }

func names(entries []*Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Element.Name()
	}
	return out
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func buildIndex(t *testing.T) *Index {
	t.Helper()
	reg := registry.New(nil)
	a, _ := element.NewCircles("a", []orb.Point{{0, 0}}, []float64{1})
	b, _ := element.NewCircles("b", []orb.Point{{10, 0}}, []float64{1})
	p, _ := element.NewPointTable("p", ndarray.MustFromRows([][]float64{{5, 5}}), []string{"x", "y"})
	img, _ := element.NewRaster("img", ndarray.Zeros(2, 2), []string{"y", "x"})
	far, _ := element.NewCircles("far", []orb.Point{{100, 100}}, []float64{1})

	for _, e := range []element.Element{a, b, p, img} {
		if err := reg.Set(e, transform.NewIdentity(), "global"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if err := reg.Set(far, transform.NewIdentity(), "other"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	idx, err := Build(elements{a, b, p, img, far}, "global", reg, extent.Calculator{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return idx
}

// TestBuild verifies which elements are indexed
func TestBuild(t *testing.T) {
	idx := buildIndex(t)
	if idx.Len() != 3 {
		t.Errorf("Expected 3 indexed elements, got %d", idx.Len())
	}
	if idx.CoordinateSystem() != "global" {
		t.Errorf("Expected coordinate system global, got %q", idx.CoordinateSystem())
	}
	total := idx.Extent()
	if total.Min[0] != -1 || total.Max[0] != 11 || total.Min[1] != -1 || total.Max[1] != 5 {
		t.Errorf("Unexpected index extent %v", total)
	}
}

// TestIntersecting verifies bounding-box queries
func TestIntersecting(t *testing.T) {
	idx := buildIndex(t)

	tests := []struct {
		name     string
		min, max []float64
		expected []string
	}{
		{"point only", []float64{4, 4}, []float64{6, 6}, []string{"p"}},
		{"left circle", []float64{-2, -2}, []float64{0.5, 2}, []string{"a"}},
		{"everything", []float64{-10, -10}, []float64{20, 20}, []string{"a", "b", "p"}},
		{"nothing", []float64{2, -3}, []float64{3, -2}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box, err := extent.NewBoundingBox(tt.min, tt.max, []string{"x", "y"})
			if err != nil {
				t.Fatalf("NewBoundingBox failed: %v", err)
			}
			got, err := idx.Intersecting(box)
			if err != nil {
				t.Fatalf("Intersecting failed: %v", err)
			}
			if !sameNames(names(got), tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, names(got))
			}
		})
	}

	wrong, _ := extent.NewBoundingBox([]float64{0}, []float64{1}, []string{"z"})
	if _, err := idx.Intersecting(wrong); !errors.Is(err, coords.ErrCoordinateSystemMismatch) {
		t.Errorf("Expected ErrCoordinateSystemMismatch, got %v", err)
	}
}

// TestBuildWithoutElements verifies the empty index error
func TestBuildWithoutElements(t *testing.T) {
	reg := registry.New(nil)
	if _, err := Build(elements{}, "global", reg, extent.Calculator{}); !errors.Is(err, extent.ErrNoElementsInCoordinateSystem) {
		t.Errorf("Expected ErrNoElementsInCoordinateSystem, got %v", err)
	}
}
