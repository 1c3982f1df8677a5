package dataset

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"

	"spatialcoords/pkg/element"
	"spatialcoords/pkg/extent"
	"spatialcoords/pkg/transform"
)

const manifestYAML = `
name: tissue
coordinateSystems:
  - name: global
    axes:
      - {name: x, type: space, unit: micrometer}
      - {name: y, type: space, unit: micrometer}
elements:
  - name: cells
    kind: circles
    centers: [[0, 0], [10, 0]]
    radii: [1, 1]
    transformations:
      global: {type: identity}
  - name: regions
    kind: polygons
    polygons:
      - [[[0, 0], [1, 0], [1, 1], [0, 1], [0, 0]]]
      - [[[2, 2], [3, 2], [3, 3], [2, 3], [2, 2]]]
    transformations:
      global: {type: translation, axes: [x], translation: [5]}
      aligned: {type: scale, axes: [x, y], scale: [2, 2]}
  - name: spots
    kind: points
    axes: [x, y]
    coordinates: [[1, 1], [4, -3]]
  - name: img
    kind: image
    axes: [c, y, x]
    shape: [1, 4, 4]
  - name: pyramid
    kind: multiscale
    axes: [y, x]
    shape: [8, 8]
    factors: [2]
`

// TestParseManifest verifies elements, order and transformations
func TestParseManifest(t *testing.T) {
	ds, err := Parse([]byte(manifestYAML), LoadOptions{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ds.Name != "tissue" {
		t.Errorf("Expected dataset tissue, got %q", ds.Name)
	}

	expected := []string{"cells", "regions", "spots", "img", "pyramid"}
	got := ds.Elements()
	if len(got) != len(expected) {
		t.Fatalf("Expected %d elements, got %d", len(expected), len(got))
	}
	for i, e := range got {
		if e.Name() != expected[i] {
			t.Errorf("Expected element %d to be %s, got %s", i, expected[i], e.Name())
		}
	}

	pyramid, _ := ds.Element("pyramid")
	ms, ok := pyramid.(*element.MultiscaleRaster)
	if !ok || len(ms.Levels()) != 2 {
		t.Fatalf("Expected a two-level pyramid, got %T", pyramid)
	}

	cells, _ := ds.Element("cells")
	tr, err := ds.Transformations().Get(cells, "global")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ax, _ := tr.OutputCoordinateSystem().Axis("x"); ax.Unit != "micrometer" {
		t.Errorf("Expected the registered global system, got %s", tr.OutputCoordinateSystem())
	}

	names := ds.CoordinateSystemNames()
	if len(names) != 2 || names[0] != "aligned" || names[1] != "global" {
		t.Errorf("Expected [aligned global], got %v", names)
	}
}

// TestDatasetExtent verifies the union over elements with a transformation
func TestDatasetExtent(t *testing.T) {
	ds, err := Parse([]byte(manifestYAML), LoadOptions{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	box, err := ds.Extent("global", extent.Calculator{})
	if err != nil {
		t.Fatalf("Extent failed: %v", err)
	}
	if !floats.EqualApprox(box.Min, []float64{-1, -1}, 1e-9) || !floats.EqualApprox(box.Max, []float64{11, 3}, 1e-9) {
		t.Errorf("Expected min [-1 -1] max [11 3], got %v", box)
	}

	box, err = ds.Extent("aligned", extent.Calculator{})
	if err != nil {
		t.Fatalf("Extent failed: %v", err)
	}
	if !floats.EqualApprox(box.Min, []float64{0, 0}, 1e-9) || !floats.EqualApprox(box.Max, []float64{6, 6}, 1e-9) {
		t.Errorf("Expected min [0 0] max [6 6], got %v", box)
	}

	if _, err := ds.Extent("missing", extent.Calculator{}); !errors.Is(err, extent.ErrNoElementsInCoordinateSystem) {
		t.Errorf("Expected ErrNoElementsInCoordinateSystem, got %v", err)
	}
}

// TestInvalidManifests verifies manifest errors
func TestInvalidManifests(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown kind", "elements: [{name: a, kind: mesh}]"},
		{"bad centre", "elements: [{name: a, kind: circles, centers: [[1, 2, 3]], radii: [1]}]"},
		{"missing shape", "elements: [{name: a, kind: image, axes: [y, x]}]"},
		{"negative shape", "elements: [{name: a, kind: image, axes: [y, x], shape: [-2, 3]}]"},
		{"negative shape pair", "elements: [{name: a, kind: image, axes: [y, x], shape: [-2, -3]}]"},
		{"negative multiscale shape", "elements: [{name: a, kind: multiscale, axes: [y, x], shape: [8, -8], factors: [2]}]"},
		{"not yaml", "elements: [unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml), LoadOptions{}); !errors.Is(err, ErrInvalidManifest) {
				t.Errorf("Expected ErrInvalidManifest, got %v", err)
			}
		})
	}

	dup := "elements: [{name: a, kind: circles}, {name: a, kind: circles}]"
	if _, err := Parse([]byte(dup), LoadOptions{}); !errors.Is(err, ErrDuplicateElement) {
		t.Errorf("Expected ErrDuplicateElement, got %v", err)
	}
}

// TestAddReplaceRemove verifies the dataset container
func TestAddReplaceRemove(t *testing.T) {
	ds := New("test")
	a, _ := element.NewCircles("a", []orb.Point{{0, 0}}, []float64{1})
	if err := ds.Add(a); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := ds.Transformations().Set(a, transform.NewIdentity(), "global"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	bigger, _ := element.NewCircles("a", []orb.Point{{0, 0}}, []float64{5})
	if err := ds.Replace(bigger); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	box, err := ds.Extent("global", extent.Calculator{})
	if err != nil {
		t.Fatalf("Extent failed: %v", err)
	}
	if box.Max[0] != 5 {
		t.Errorf("Expected the replacement to keep its transformation, got %v", box)
	}

	if err := ds.Remove("a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := ds.Element("a"); !errors.Is(err, ErrUnknownElement) {
		t.Errorf("Expected ErrUnknownElement, got %v", err)
	}
	if len(ds.Transformations().GetAll(bigger)) != 0 {
		t.Errorf("Expected transformations to be removed with the element")
	}
}

func writePNG(t *testing.T, path string, w, h int, value uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: value})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
}

// TestLoadImageSources verifies single images and numbered slice stacks
func TestLoadImageSources(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "single.png"), 3, 2, 255)

	stack := filepath.Join(dir, "stack")
	if err := os.Mkdir(stack, 0755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	writePNG(t, filepath.Join(stack, "slice_10.png"), 3, 2, 0)
	writePNG(t, filepath.Join(stack, "slice_2.png"), 3, 2, 255)

	manifest := `
name: images
elements:
  - name: single
    kind: image
    source: single.png
  - name: volume
    kind: image
    source: stack
    sliceGap: 2.5
    transformations:
      global: {type: identity}
`
	path := filepath.Join(dir, "dataset.yaml")
	if err := os.WriteFile(path, []byte(manifest), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	ds, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	single, _ := ds.Element("single")
	r := single.(*element.Raster)
	if shape := r.Data().Shape(); len(shape) != 2 || shape[0] != 2 || shape[1] != 3 {
		t.Errorf("Expected shape [2 3], got %v", shape)
	}
	if r.Data().At(0, 0) != 1 {
		t.Errorf("Expected a white pixel to load as 1, got %v", r.Data().At(0, 0))
	}

	volume, _ := ds.Element("volume")
	v := volume.(*element.Raster)
	if shape := v.Data().Shape(); len(shape) != 3 || shape[0] != 2 {
		t.Fatalf("Expected two stacked slices, got %v", shape)
	}
	if v.Data().At(0, 0, 0) != 1 || v.Data().At(1, 0, 0) != 0 {
		t.Errorf("Expected slice_2 before slice_10")
	}

	tr, err := ds.Transformations().Get(volume, "global")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if tr.Kind() != transform.KindSequence {
		t.Errorf("Expected the slice gap to add a sequence, got %s", tr.Kind())
	}
}

// TestExtractNumber verifies slice ordering keys
func TestExtractNumber(t *testing.T) {
	tests := map[string]int{
		"slice_001.jpg": 1,
		"img12.png":     12,
		"nodigits.png":  0,
	}
	for name, expected := range tests {
		if got := extractNumber(name); got != expected {
			t.Errorf("extractNumber(%q): Expected %d, got %d", name, expected, got)
		}
	}
}
