package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies the default values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Extent.CoordinateSystem != "global" {
		t.Errorf("Expected coordinate system global, got %q", cfg.Extent.CoordinateSystem)
	}
	if len(cfg.Raster.MultiscaleFactors) != 2 || cfg.Raster.MultiscaleFactors[0] != 2 {
		t.Errorf("Expected factors [2 2], got %v", cfg.Raster.MultiscaleFactors)
	}
	if cfg.Raster.ZeroTolerance != 1e-8 {
		t.Errorf("Expected zero tolerance 1e-8, got %g", cfg.Raster.ZeroTolerance)
	}
	if cfg.Output.Format != FormatText {
		t.Errorf("Expected text output, got %q", cfg.Output.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

// TestLoadMissingConfig verifies that a missing file yields the defaults
func TestLoadMissingConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Query.Neighbors != 1 {
		t.Errorf("Expected default neighbours 1, got %d", cfg.Query.Neighbors)
	}
}

// TestSaveAndLoadConfig verifies a round trip through a file
func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Extent.CoordinateSystem = "aligned"
	cfg.Extent.ChunkRows = 64
	cfg.Raster.MultiscaleFactors = []int{4}
	cfg.Output.Format = FormatJSON

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Extent.CoordinateSystem != "aligned" || loaded.Extent.ChunkRows != 64 {
		t.Errorf("Expected extent settings to survive, got %+v", loaded.Extent)
	}
	if calc := loaded.Calculator(); calc.ChunkRows != 64 {
		t.Errorf("Expected calculator chunk rows 64, got %d", calc.ChunkRows)
	}
	if opts := loaded.LoadOptions(); len(opts.MultiscaleFactors) != 1 || opts.MultiscaleFactors[0] != 4 {
		t.Errorf("Expected factors [4], got %v", opts.MultiscaleFactors)
	}
	if opts := loaded.RasterOptions(); opts.ZeroTolerance != 1e-8 {
		t.Errorf("Expected zero tolerance 1e-8, got %g", opts.ZeroTolerance)
	}
}

// TestPartialConfig verifies that unset keys keep their defaults
func TestPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("output:\n  format: yaml\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Output.Format != FormatYAML {
		t.Errorf("Expected yaml output, got %q", cfg.Output.Format)
	}
	if cfg.Extent.CoordinateSystem != "global" {
		t.Errorf("Expected default coordinate system, got %q", cfg.Extent.CoordinateSystem)
	}
}

// TestInvalidConfig verifies range checks
func TestInvalidConfig(t *testing.T) {
	tests := map[string]string{
		"format":    "output:\n  format: xml\n",
		"chunks":    "extent:\n  chunkRows: -1\n",
		"factors":   "raster:\n  multiscaleFactors: [2, 0]\n",
		"neighbors": "query:\n  neighbors: 0\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			if _, err := LoadConfig(path); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
