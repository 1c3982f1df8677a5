package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"spatialcoords/internal/logging"
	"spatialcoords/pkg/coords"
	"spatialcoords/pkg/element"
	"spatialcoords/pkg/ndarray"
	"spatialcoords/pkg/raster"
	"spatialcoords/pkg/transform"
)

// ErrInvalidManifest reports a manifest that cannot be turned into a dataset
var ErrInvalidManifest = errors.New("invalid manifest")

// Manifest element kinds
const (
	KindCircles    = "circles"
	KindPolygons   = "polygons"
	KindPoints     = "points"
	KindImage      = "image"
	KindLabels     = "labels"
	KindMultiscale = "multiscale"
)

// Manifest is the YAML description of a dataset
type Manifest struct {
	Name              string                    `yaml:"name"`
	CoordinateSystems []coords.CoordinateSystem `yaml:"coordinateSystems,omitempty"`
	Elements          []ElementSpec             `yaml:"elements"`
}

// ElementSpec describes one element of a manifest. Which fields apply
// depends on Kind.
type ElementSpec struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Centers and Radii describe circles
	Centers [][]float64 `yaml:"centers,omitempty"`
	Radii   []float64   `yaml:"radii,omitempty"`

	// Polygons lists polygons as rings of [x, y] vertices
	Polygons [][][][]float64 `yaml:"polygons,omitempty"`

	// Axes names point columns or raster dimensions
	Axes        []string    `yaml:"axes,omitempty"`
	Coordinates [][]float64 `yaml:"coordinates,omitempty"`

	// Shape and Data give raster pixels inline, row-major. Without Data
	// the raster is zero-filled.
	Shape []int     `yaml:"shape,omitempty"`
	Data  []float64 `yaml:"data,omitempty"`

	// Source is an image file or a directory of slices, relative to the
	// manifest
	Source string `yaml:"source,omitempty"`

	// SliceGap is the spacing between stacked slices. When set, every
	// transformation first scales z by it.
	SliceGap float64 `yaml:"sliceGap,omitempty"`

	// Factors are the pyramid downscale factors of a multiscale raster
	Factors []int `yaml:"factors,omitempty"`

	// Transformations maps coordinate system names to transformations
	Transformations map[string]transform.Spec `yaml:"transformations,omitempty"`
}

// LoadOptions controls manifest loading
type LoadOptions struct {
	// BaseDir resolves relative raster sources
	BaseDir string

	// MultiscaleFactors is used for multiscale rasters without factors
	MultiscaleFactors []int
}

// Load reads a manifest file and builds its dataset
func Load(path string, opts LoadOptions) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}
	if opts.BaseDir == "" {
		opts.BaseDir = filepath.Dir(path)
	}
	ds, err := Parse(data, opts)
	if err != nil {
		return nil, err
	}
	logging.Logger().Info("loaded dataset", "path", path, "name", ds.Name, "elements", len(ds.Elements()))
	return ds, nil
}

// Parse builds a dataset from manifest YAML
func Parse(data []byte, opts LoadOptions) (*Dataset, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return m.Build(opts)
}

// Build turns the manifest into a dataset. Coordinate systems are
// registered first so transformations can refer to them by name.
func (m *Manifest) Build(opts LoadOptions) (*Dataset, error) {
	ds := New(m.Name)
	for i := range m.CoordinateSystems {
		cs := m.CoordinateSystems[i]
		if err := ds.systems.Register(&cs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
		}
	}

	for _, spec := range m.Elements {
		e, err := spec.build(opts)
		if err != nil {
			return nil, fmt.Errorf("element %q: %w", spec.Name, err)
		}
		if err := ds.Add(e); err != nil {
			return nil, err
		}

		names := make([]string, 0, len(spec.Transformations))
		for cs := range spec.Transformations {
			names = append(names, cs)
		}
		sort.Strings(names)
		for _, cs := range names {
			t, err := transform.FromSpec(spec.Transformations[cs])
			if err != nil {
				return nil, fmt.Errorf("element %q to %q: %w", spec.Name, cs, err)
			}
			if spec.SliceGap > 0 {
				if t, err = withSliceGap(t, spec.SliceGap); err != nil {
					return nil, fmt.Errorf("element %q to %q: %w", spec.Name, cs, err)
				}
			}
			if err := ds.transformations.Set(e, t, cs); err != nil {
				return nil, fmt.Errorf("element %q to %q: %w", spec.Name, cs, err)
			}
		}
	}
	return ds, nil
}

// withSliceGap prepends a z scale to t
func withSliceGap(t transform.Transformation, gap float64) (transform.Transformation, error) {
	scale, err := transform.NewScale([]float64{gap}, []string{"z"})
	if err != nil {
		return nil, err
	}
	seq := transform.NewSequence(scale, t)
	seq.SetInputCoordinateSystem(t.InputCoordinateSystem())
	seq.SetOutputCoordinateSystem(t.OutputCoordinateSystem())
	return seq, nil
}

func (s ElementSpec) build(opts LoadOptions) (element.Element, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("%w: element without a name", ErrInvalidManifest)
	}
	switch s.Kind {
	case KindCircles:
		centers := make([]orb.Point, len(s.Centers))
		for i, c := range s.Centers {
			if len(c) != 2 {
				return nil, fmt.Errorf("%w: centre %d has %d coordinates", ErrInvalidManifest, i, len(c))
			}
			centers[i] = orb.Point{c[0], c[1]}
		}
		return element.NewCircles(s.Name, centers, s.Radii)

	case KindPolygons:
		geoms := make([]orb.Geometry, len(s.Polygons))
		for i, rings := range s.Polygons {
			poly := make(orb.Polygon, len(rings))
			for j, ring := range rings {
				poly[j] = make(orb.Ring, len(ring))
				for k, p := range ring {
					if len(p) != 2 {
						return nil, fmt.Errorf("%w: polygon %d has a vertex with %d coordinates", ErrInvalidManifest, i, len(p))
					}
					poly[j][k] = orb.Point{p[0], p[1]}
				}
			}
			geoms[i] = poly
		}
		return element.NewPolygons(s.Name, geoms)

	case KindPoints:
		rows := s.Coordinates
		if len(rows) == 0 {
			return element.NewPointTable(s.Name, ndarray.Zeros(0, len(s.Axes)), s.Axes)
		}
		table, err := ndarray.FromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
		}
		return element.NewPointTable(s.Name, table, s.Axes)

	case KindImage, KindLabels:
		data, dims, err := s.pixels(opts)
		if err != nil {
			return nil, err
		}
		if s.Kind == KindLabels {
			return element.NewLabels(s.Name, data, dims)
		}
		return element.NewRaster(s.Name, data, dims)

	case KindMultiscale:
		data, dims, err := s.pixels(opts)
		if err != nil {
			return nil, err
		}
		base, err := element.NewRaster(s.Name, data, dims)
		if err != nil {
			return nil, err
		}
		factors := s.Factors
		if len(factors) == 0 {
			factors = opts.MultiscaleFactors
		}
		if len(factors) == 0 {
			factors = raster.DefaultOptions().Factors
		}
		levels, err := raster.Pyramid(base, factors)
		if err != nil {
			return nil, err
		}
		return element.NewMultiscaleRaster(s.Name, levels)

	default:
		return nil, fmt.Errorf("%w: unknown element kind %q", ErrInvalidManifest, s.Kind)
	}
}

// pixels returns the raster data of an image-like element, either inline
// or read from Source
func (s ElementSpec) pixels(opts LoadOptions) (*ndarray.Array, []string, error) {
	if s.Source != "" {
		path := s.Source
		if !filepath.IsAbs(path) {
			path = filepath.Join(opts.BaseDir, path)
		}
		data, dims, err := loadPixels(path)
		if err != nil {
			return nil, nil, err
		}
		if len(s.Axes) > 0 && !coords.SameAxes(s.Axes, dims) {
			return nil, nil, fmt.Errorf("%w: source %s has dims %v, manifest says %v", ErrInvalidManifest, s.Source, dims, s.Axes)
		}
		return data, dims, nil
	}

	if len(s.Shape) == 0 {
		return nil, nil, fmt.Errorf("%w: raster needs a shape or a source", ErrInvalidManifest)
	}
	for _, d := range s.Shape {
		if d < 0 {
			return nil, nil, fmt.Errorf("%w: negative dimension in shape %v", ErrInvalidManifest, s.Shape)
		}
	}
	if len(s.Data) == 0 {
		return ndarray.Zeros(s.Shape...), s.Axes, nil
	}
	data, err := ndarray.New(append([]float64(nil), s.Data...), s.Shape...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return data, s.Axes, nil
}
