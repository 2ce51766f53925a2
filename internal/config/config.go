package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/anas-shakeel/imgsort/internal/bmp"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "imgsort.yml"

// DefaultOutput is the output file used when none is given.
const DefaultOutput = "output.bmp"

type Resolution struct {
	Horizontal int32 `yaml:"horizontal"` // pixels-per-meter
	Vertical   int32 `yaml:"vertical"`   // pixels-per-meter
}

// Config holds the settings of a sort run.
type Config struct {
	Output     string     `yaml:"output"`
	Resolution Resolution `yaml:"resolution"`
	Key        string     `yaml:"key"`     // Sort key expression; empty means brightness
	Filters    []string   `yaml:"filters"` // Applied in order before sorting
	Flip       bool       `yaml:"flip"`    // Mirror rows after sorting
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Output: DefaultOutput,
		Resolution: Resolution{
			Horizontal: bmp.DefaultResolution,
			Vertical:   bmp.DefaultResolution,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error: the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read configuration file '%s': %w", path, err)
	}

	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			for _, msg := range typeErr.Errors {
				log.Printf("YAML error in %s: %s", path, msg)
			}
		}
		return cfg, fmt.Errorf("failed to parse configuration file '%s': %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration file '%s': %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings for values no run could use.
func (c *Config) Validate() error {
	if c.Output == "" {
		return errors.New("output must not be empty")
	}
	if c.Resolution.Horizontal < 0 || c.Resolution.Vertical < 0 {
		return fmt.Errorf("resolution must not be negative: %dx%d", c.Resolution.Horizontal, c.Resolution.Vertical)
	}
	return nil
}

// BitmapOptions returns the encoder options for these settings.
func (c *Config) BitmapOptions() *bmp.Options {
	return &bmp.Options{
		XPixelsPerM: c.Resolution.Horizontal,
		YPixelsPerM: c.Resolution.Vertical,
	}
}
