// Package config loads quexian settings: the physical constants used
// by every formula, output defaults and plot geometry.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cmcc2001/quexian/internal/formula"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for quexian.
type Config struct {
	// Constants are the physical constants shared by the formulas.
	Constants ConstantsConfig `koanf:"constants"`

	// Output controls report formatting.
	Output OutputConfig `koanf:"output"`

	// Plot controls terminal and PNG plot geometry.
	Plot PlotConfig `koanf:"plot"`
}

// ConstantsConfig mirrors formula.Constants.
type ConstantsConfig struct {
	Q   float64 `koanf:"q" validate:"gt=0"`
	K   float64 `koanf:"k" validate:"gt=0"`
	Cox float64 `koanf:"cox" validate:"gt=0"`
	Ni  float64 `koanf:"ni" validate:"gt=0"`
	T   float64 `koanf:"t" validate:"gt=0"`
}

// OutputConfig holds report settings.
type OutputConfig struct {
	Format string `koanf:"format" validate:"oneof=text json yaml csv"`
}

// PlotConfig holds plot geometry. Terminal sizes are in cells, PNG
// sizes in inches.
type PlotConfig struct {
	Width     int     `koanf:"width" validate:"gte=10,lte=400"`
	Height    int     `koanf:"height" validate:"gte=3,lte=100"`
	PNGWidth  float64 `koanf:"png_width" validate:"gt=0"`
	PNGHeight float64 `koanf:"png_height" validate:"gt=0"`
}

// DefaultConfig returns a config with the built-in constants.
func DefaultConfig() *Config {
	c := formula.DefaultConstants()
	return &Config{
		Constants: ConstantsConfig{
			Q:   c.Q,
			K:   c.K,
			Cox: c.Cox,
			Ni:  c.Ni,
			T:   c.T,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Plot: PlotConfig{
			Width:     60,
			Height:    12,
			PNGWidth:  6,
			PNGHeight: 4,
		},
	}
}

// FormulaConstants converts the configured constants for the formula
// registry.
func (c *Config) FormulaConstants() formula.Constants {
	return formula.Constants{
		Q:   c.Constants.Q,
		K:   c.Constants.K,
		Cox: c.Constants.Cox,
		Ni:  c.Constants.Ni,
		T:   c.Constants.T,
	}
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load loads configuration from a file, layered over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// configNames are searched in order inside each search directory.
var configNames = []string{
	"quexian.toml",
	"quexian.yaml",
	"quexian.yml",
	"quexian.json",
	".quexian.toml",
	".quexian.yaml",
	".quexian.yml",
	".quexian.json",
}

// Find returns the first config file found in dir or dir/.quexian, or
// "" when there is none.
func Find(dir string) string {
	for _, d := range []string{dir, filepath.Join(dir, ".quexian")} {
		for _, name := range configNames {
			path := filepath.Join(d, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault loads path when set, otherwise the first config file
// found in the working directory, otherwise the defaults. It returns
// the file that was used ("" for defaults).
func LoadOrDefault(path string) (*Config, string, error) {
	if path == "" {
		path = Find(".")
	}
	if path == "" {
		return DefaultConfig(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}
