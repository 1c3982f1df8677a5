package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"spatialcoords/pkg/config"
	"spatialcoords/pkg/dataset"
	"spatialcoords/pkg/element"
	"spatialcoords/pkg/extent"
	"spatialcoords/pkg/query"
	"spatialcoords/pkg/raster"
	"spatialcoords/pkg/registry"
)

// Report is everything one run computes
type Report struct {
	Dataset          string                        `json:"dataset" yaml:"dataset"`
	CoordinateSystem string                        `json:"coordinateSystem" yaml:"coordinateSystem"`
	Extent           *extent.BoundingBox           `json:"extent,omitempty" yaml:"extent,omitempty"`
	Elements         map[string]extent.BoundingBox `json:"elements,omitempty" yaml:"elements,omitempty"`
	Skipped          []string                      `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Matches          []string                      `json:"matches,omitempty" yaml:"matches,omitempty"`
	Neighbors        []Neighbor                    `json:"neighbors,omitempty" yaml:"neighbors,omitempty"`
	Exported         []string                      `json:"exported,omitempty" yaml:"exported,omitempty"`
}

// Neighbor is one nearest point result
type Neighbor struct {
	Row         int       `json:"row" yaml:"row"`
	Coordinates []float64 `json:"coordinates" yaml:"coordinates,flow"`
	Distance    float64   `json:"distance" yaml:"distance"`
}

// parseBox reads a box written as axis=min:max pairs separated by commas,
// e.g. "x=0:10,y=-5:5"
func parseBox(s string) (extent.BoundingBox, error) {
	var (
		axes     []string
		min, max []float64
	)
	for _, part := range strings.Split(s, ",") {
		name, bounds, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return extent.BoundingBox{}, fmt.Errorf("box term %q is not axis=min:max", part)
		}
		lo, hi, ok := strings.Cut(bounds, ":")
		if !ok {
			return extent.BoundingBox{}, fmt.Errorf("box term %q is not axis=min:max", part)
		}
		l, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		if err != nil {
			return extent.BoundingBox{}, fmt.Errorf("box term %q: %w", part, err)
		}
		h, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		if err != nil {
			return extent.BoundingBox{}, fmt.Errorf("box term %q: %w", part, err)
		}
		axes = append(axes, strings.TrimSpace(name))
		min = append(min, l)
		max = append(max, h)
	}
	return extent.NewBoundingBox(min, max, axes)
}

// parseFloats reads comma separated numbers
func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("coordinate %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// unpadRasters crops the zero borders of every raster element in place
func unpadRasters(ds *dataset.Dataset, opts raster.Options) error {
	for _, e := range ds.Elements() {
		var (
			next element.Element
			err  error
		)
		switch r := e.(type) {
		case *element.Raster:
			next, err = raster.Unpad(r, ds.Transformations(), opts)
		case *element.MultiscaleRaster:
			next, err = raster.UnpadMultiscale(r, ds.Transformations(), opts)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("unpad %q: %w", e.Name(), err)
		}
		if err := ds.Replace(next); err != nil {
			return err
		}
	}
	return nil
}

// elementExtents computes each element's extent in cs. Elements with no
// extent handler are listed as skipped.
func elementExtents(ds *dataset.Dataset, cs string, calc extent.Calculator) (map[string]extent.BoundingBox, []string, error) {
	boxes := make(map[string]extent.BoundingBox)
	var skipped []string
	for _, e := range ds.Elements() {
		if !registry.Has(ds.Transformations(), e, cs) {
			continue
		}
		box, err := calc.Of(e, cs, ds.Transformations())
		if errors.Is(err, extent.ErrUnsupportedElementKind) {
			skipped = append(skipped, e.Name())
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		boxes[e.Name()] = box
	}
	return boxes, skipped, nil
}

// nearest runs a nearest point query against a point table element
func nearest(ds *dataset.Dataset, name, cs string, q []float64, k int) ([]Neighbor, error) {
	e, err := ds.Element(name)
	if err != nil {
		return nil, err
	}
	table, ok := e.(*element.PointTable)
	if !ok {
		return nil, fmt.Errorf("element %q is %s, nearest point queries need points", name, e.Kind())
	}
	idx, err := query.BuildPoints(table, cs, ds.Transformations())
	if err != nil {
		return nil, err
	}
	found, err := idx.Nearest(q, k)
	if err != nil {
		return nil, err
	}
	out := make([]Neighbor, len(found))
	for i, n := range found {
		out[i] = Neighbor{Row: n.Row, Coordinates: n.Coords, Distance: n.Distance}
	}
	return out, nil
}

// writeReport renders r in one of the config output formats
func writeReport(w io.Writer, r *Report, format string) error {
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case config.FormatText:
		return writeText(w, r)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeText(w io.Writer, r *Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset: %s\n", r.Dataset)
	fmt.Fprintf(&b, "Coordinate system: %s\n", r.CoordinateSystem)
	if r.Extent != nil {
		fmt.Fprintf(&b, "Extent: %s\n", r.Extent)
	}

	if len(r.Elements) > 0 {
		names := make([]string, 0, len(r.Elements))
		for name := range r.Elements {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("\nElements:\n")
		for _, name := range names {
			fmt.Fprintf(&b, "- %s: %s\n", name, r.Elements[name])
		}
	}
	for _, name := range r.Skipped {
		fmt.Fprintf(&b, "- %s: no extent\n", name)
	}

	if r.Matches != nil {
		fmt.Fprintf(&b, "\nIntersecting elements: %d\n", len(r.Matches))
		for _, name := range r.Matches {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}
	if len(r.Neighbors) > 0 {
		b.WriteString("\nNearest points:\n")
		for _, n := range r.Neighbors {
			fmt.Fprintf(&b, "- row %d at %v, distance %.6g\n", n.Row, n.Coordinates, n.Distance)
		}
	}
	if len(r.Exported) > 0 {
		fmt.Fprintf(&b, "\nExported %d planes\n", len(r.Exported))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
