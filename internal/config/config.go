package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-json-experiment/json"
	"gopkg.in/yaml.v3"
)

// Config represents the typewire configuration. Every field is optional in
// the file itself; command-line arguments fill in or override whatever the
// file leaves out.
type Config struct {
	// Source is the entry TypeScript file containing the application type.
	Source string `json:"source,omitempty" yaml:"source"`
	// Symbol is the exported application declaration to resolve.
	Symbol string `json:"symbol,omitempty" yaml:"symbol"`
	// TSConfig points at an explicit tsconfig.json. When empty the file is
	// discovered by walking parent directories from the source file.
	TSConfig string `json:"tsconfig,omitempty" yaml:"tsconfig"`
	// Output is the document path. Defaults to <symbol>.openapi.json in the
	// working directory.
	Output string `json:"output,omitempty" yaml:"output"`

	Document DocumentConfig `json:"document,omitempty" yaml:"document"`
	Cache    CacheConfig    `json:"cache,omitempty" yaml:"cache"`
}

// DocumentConfig supplies the info block of the generated document.
type DocumentConfig struct {
	Title       string `json:"title,omitempty" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description"`
	Version     string `json:"version,omitempty" yaml:"version"`
}

// CacheConfig controls generation caching.
type CacheConfig struct {
	// Enabled turns on input hashing so unchanged projects skip
	// regeneration.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled"`
	// Dir overrides the cache location. Defaults to .typewire under the
	// working directory.
	Dir string `json:"dir,omitempty" yaml:"dir"`
}

// Default returns the configuration used when no config file is present.
func Default() Config {
	return Config{
		Document: DocumentConfig{
			Title:   "API",
			Version: "1.0.0",
		},
	}
}

// Load reads and parses a typewire config file. YAML and JSON are both
// supported, chosen by file extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %q: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the config for logical errors. Completeness (source and
// symbol present) is checked later, after command-line arguments are merged
// in.
func (c *Config) Validate() error {
	if c.Output != "" {
		if ext := filepath.Ext(c.Output); ext != ".json" {
			return fmt.Errorf("output must have a .json extension, got %q", ext)
		}
	}
	return nil
}

// DefaultOutput returns the output path used when none is configured.
func DefaultOutput(symbol string) string {
	return symbol + ".openapi.json"
}
