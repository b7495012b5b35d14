// Package config provides configuration loading and validation for the CLI
// and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Config represents the agent configuration that can be loaded from a JSON
// file. All fields are optional; missing values use defaults or must be
// provided via CLI flags.
type Config struct {
	// Credentials
	APIKey       string `json:"api_key,omitempty"`        // Gemini API key
	SearchAPIKey string `json:"search_api_key,omitempty"` // Google Custom Search API key
	SearchCX     string `json:"search_cx,omitempty"`      // Custom Search engine ID for web results
	ImageCX      string `json:"image_cx,omitempty"`       // Custom Search engine ID for image results
	DatabaseURL  string `json:"database_url,omitempty"`   // PostgreSQL connection URL

	// Generation defaults
	SlideCount int     `json:"slide_count,omitempty" validate:"omitempty,min=1,max=50"`
	Depth      string  `json:"depth,omitempty" validate:"omitempty,oneof=low medium high"`
	Density    string  `json:"density,omitempty" validate:"omitempty,oneof=minimal balanced detailed"`
	Style      string  `json:"style,omitempty"`
	Threshold  float64 `json:"quality_threshold,omitempty" validate:"omitempty,gte=0,lte=100"`
	MaxRefine  int     `json:"max_refine,omitempty" validate:"omitempty,min=1,max=10"`
	OutputDir  string  `json:"output_dir,omitempty"`

	// Behavior
	UseBrowser bool `json:"use_browser,omitempty"` // Headless browser fallback for JS-heavy pages
	Offline    bool `json:"offline,omitempty"`     // Never reach external services
	Verbose    bool `json:"verbose,omitempty"`     // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values. Required fields
// are not enforced here; CLI flag validation handles those after merging.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			e := errs[0]
			return fmt.Errorf("config error: field %q fails %q validation", e.Field(), e.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.OutputDir != "" {
		if info, err := os.Stat(c.OutputDir); err == nil && !info.IsDir() {
			return fmt.Errorf("config error: output_dir %s is not a directory", c.OutputDir)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This applies config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.SearchAPIKey == "" {
		result.SearchAPIKey = defaults.SearchAPIKey
	}
	if result.SearchCX == "" {
		result.SearchCX = defaults.SearchCX
	}
	if result.ImageCX == "" {
		result.ImageCX = defaults.ImageCX
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.Depth == "" {
		result.Depth = defaults.Depth
	}
	if result.Density == "" {
		result.Density = defaults.Density
	}
	if result.Style == "" {
		result.Style = defaults.Style
	}
	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}

	if result.SlideCount == 0 {
		result.SlideCount = defaults.SlideCount
	}
	if result.MaxRefine == 0 {
		result.MaxRefine = defaults.MaxRefine
	}
	if result.Threshold == 0 {
		result.Threshold = defaults.Threshold
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
