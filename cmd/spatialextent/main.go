package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"spatialcoords/internal/logging"
	"spatialcoords/pkg/config"
	"spatialcoords/pkg/dataset"
	"spatialcoords/pkg/element"
	"spatialcoords/pkg/query"
	"spatialcoords/pkg/raster"
)

func main() {
	// Parse command line arguments
	manifestPath := flag.String("manifest", "", "YAML manifest describing the dataset")
	configPath := flag.String("config", "spatialextent.yaml", "Configuration file (defaults are used when missing)")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	coordinateSystem := flag.String("cs", "", "Target coordinate system (overrides extent.coordinateSystem)")
	elementName := flag.String("element", "", "Report only this element")
	perElement := flag.Bool("elements", false, "Also report the extent of every element")
	box := flag.String("query", "", "List elements intersecting a box, e.g. x=0:10,y=0:10")
	near := flag.String("nearest", "", "Find the points of -element closest to these comma separated coordinates")
	neighbors := flag.Int("k", 0, "Number of nearest points (overrides query.neighbors)")
	unpad := flag.Bool("unpad", false, "Crop zero borders of rasters before computing extents")
	export := flag.String("export-axis", "", "Save raster planes along this axis to output.exportDir")
	format := flag.String("format", "", "Output format: text, json or yaml (overrides output.format)")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	// Validate inputs
	if *manifestPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *coordinateSystem != "" {
		cfg.Extent.CoordinateSystem = *coordinateSystem
	}
	if *format != "" {
		cfg.Output.Format = *format
	}
	if *neighbors > 0 {
		cfg.Query.Neighbors = *neighbors
	}
	if *verbose {
		cfg.Output.Verbose = true
	}
	if *unpad {
		cfg.Raster.Unpad = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level := slog.LevelWarn
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	startTime := time.Now()
	ds, err := dataset.Load(*manifestPath, cfg.LoadOptions())
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	if cfg.Raster.Unpad {
		if err := unpadRasters(ds, cfg.RasterOptions()); err != nil {
			log.Fatalf("Failed to unpad rasters: %v", err)
		}
	}

	report, err := run(ds, cfg, *elementName, *perElement, *box, *near)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if *export != "" {
		written, err := exportPlanes(ds, *export, cfg.Output.ExportDir)
		if err != nil {
			log.Fatalf("Failed to export planes: %v", err)
		}
		report.Exported = written
	}

	if err := writeReport(os.Stdout, report, cfg.Output.Format); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}
	logging.Logger().Debug("done", "elapsed", time.Since(startTime))
}

// run computes the report for one dataset
func run(ds *dataset.Dataset, cfg *config.Config, elementName string, perElement bool, box, near string) (*Report, error) {
	cs := cfg.Extent.CoordinateSystem
	calc := cfg.Calculator()
	report := &Report{Dataset: ds.Name, CoordinateSystem: cs}

	switch {
	case near != "":
		if elementName == "" {
			return nil, errors.New("-nearest needs -element")
		}
		q, err := parseFloats(near)
		if err != nil {
			return nil, fmt.Errorf("invalid -nearest: %w", err)
		}
		found, err := nearest(ds, elementName, cs, q, cfg.Query.Neighbors)
		if err != nil {
			return nil, fmt.Errorf("nearest query failed: %w", err)
		}
		report.Neighbors = found
		return report, nil

	case elementName != "":
		e, err := ds.Element(elementName)
		if err != nil {
			return nil, err
		}
		b, err := calc.Of(e, cs, ds.Transformations())
		if err != nil {
			return nil, fmt.Errorf("extent of %q failed: %w", elementName, err)
		}
		report.Extent = &b
		return report, nil
	}

	total, err := ds.Extent(cs, calc)
	if err != nil {
		return nil, fmt.Errorf("dataset extent failed: %w", err)
	}
	report.Extent = &total

	if perElement {
		report.Elements, report.Skipped, err = elementExtents(ds, cs, calc)
		if err != nil {
			return nil, err
		}
	}

	if box != "" {
		q, err := parseBox(box)
		if err != nil {
			return nil, fmt.Errorf("invalid -query: %w", err)
		}
		idx, err := query.Build(ds, cs, ds.Transformations(), calc)
		if err != nil {
			return nil, err
		}
		found, err := idx.Intersecting(q)
		if err != nil {
			return nil, fmt.Errorf("box query failed: %w", err)
		}
		report.Matches = make([]string, len(found))
		for i, entry := range found {
			report.Matches[i] = entry.Element.Name()
		}
	}
	return report, nil
}

// exportPlanes saves the full-resolution planes of every raster that has axis
func exportPlanes(ds *dataset.Dataset, axis, dir string) ([]string, error) {
	var written []string
	for _, e := range ds.Elements() {
		levels, err := raster.Levels(e)
		if err != nil {
			continue
		}
		if !hasAxis(levels[0], axis) {
			continue
		}
		files, err := raster.SavePlanes(levels[0], axis, filepath.Join(dir, e.Name()))
		written = append(written, files...)
		if err != nil {
			return written, err
		}
	}
	sort.Strings(written)
	return written, nil
}

func hasAxis(r *element.Raster, axis string) bool {
	for _, ax := range r.Axes() {
		if ax == axis {
			return true
		}
	}
	return false
}
