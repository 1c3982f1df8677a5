// Package config provides configuration loading and management for spatialextent.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"spatialcoords/pkg/dataset"
	"spatialcoords/pkg/extent"
	"spatialcoords/pkg/raster"
)

// ErrInvalidConfig reports a configuration value outside its allowed range
var ErrInvalidConfig = errors.New("invalid config")

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Extent parameters
	Extent struct {
		// CoordinateSystem is the target system when none is given on the command line
		CoordinateSystem string `yaml:"coordinateSystem"`

		// ChunkRows is the number of point rows reduced per chunk, 0 for all at once
		ChunkRows int `yaml:"chunkRows"`
	} `yaml:"extent"`

	// Raster parameters
	Raster struct {
		// MultiscaleFactors are the pyramid factors for multiscale rasters without their own
		MultiscaleFactors []int `yaml:"multiscaleFactors"`

		// ZeroTolerance is the largest absolute sum still treated as padding
		ZeroTolerance float64 `yaml:"zeroTolerance"`

		// Unpad crops zero borders from rasters after loading
		Unpad bool `yaml:"unpad"`
	} `yaml:"raster"`

	// Query parameters
	Query struct {
		// Neighbors is how many points a nearest point query returns
		Neighbors int `yaml:"neighbors"`
	} `yaml:"query"`

	// Output parameters
	Output struct {
		// Format is one of text, json or yaml
		Format string `yaml:"format"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// ExportDir receives raster planes when exporting is requested
		ExportDir string `yaml:"exportDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Extent.CoordinateSystem = "global"
	cfg.Extent.ChunkRows = 0

	opts := raster.DefaultOptions()
	cfg.Raster.MultiscaleFactors = opts.Factors
	cfg.Raster.ZeroTolerance = opts.ZeroTolerance
	cfg.Raster.Unpad = false

	cfg.Query.Neighbors = 1

	cfg.Output.Format = FormatText
	cfg.Output.Verbose = false
	cfg.Output.ExportDir = "planes"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Extent.ChunkRows < 0 {
		return fmt.Errorf("%w: extent.chunkRows must not be negative, got %d", ErrInvalidConfig, c.Extent.ChunkRows)
	}
	if c.Raster.ZeroTolerance < 0 {
		return fmt.Errorf("%w: raster.zeroTolerance must not be negative, got %g", ErrInvalidConfig, c.Raster.ZeroTolerance)
	}
	for _, f := range c.Raster.MultiscaleFactors {
		if f < 1 {
			return fmt.Errorf("%w: raster.multiscaleFactors must be positive, got %v", ErrInvalidConfig, c.Raster.MultiscaleFactors)
		}
	}
	if c.Query.Neighbors < 1 {
		return fmt.Errorf("%w: query.neighbors must be at least 1, got %d", ErrInvalidConfig, c.Query.Neighbors)
	}
	switch c.Output.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("%w: unknown output.format %q", ErrInvalidConfig, c.Output.Format)
	}
	return nil
}

// Calculator returns the extent calculator the configuration describes
func (c *Config) Calculator() extent.Calculator {
	return extent.Calculator{ChunkRows: c.Extent.ChunkRows}
}

// RasterOptions returns the unpadding and pyramid options
func (c *Config) RasterOptions() raster.Options {
	return raster.Options{
		ZeroTolerance: c.Raster.ZeroTolerance,
		Factors:       append([]int(nil), c.Raster.MultiscaleFactors...),
	}
}

// LoadOptions returns manifest loading options
func (c *Config) LoadOptions() dataset.LoadOptions {
	return dataset.LoadOptions{MultiscaleFactors: append([]int(nil), c.Raster.MultiscaleFactors...)}
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
