package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidationResult holds config validation results.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// tsExtensions are the source file extensions the compiler accepts.
var tsExtensions = []string{".ts", ".tsx", ".mts", ".cts"}

// ValidateDetailed performs thorough validation of a fully merged config,
// after command-line arguments have been applied.
func (c *Config) ValidateDetailed() *ValidationResult {
	result := &ValidationResult{}

	if c.Source == "" {
		result.Errors = append(result.Errors, "source: entry source file required")
	} else if !hasAnySuffix(c.Source, tsExtensions) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("source: %q does not look like a TypeScript file", c.Source))
	}

	if c.Symbol == "" {
		result.Errors = append(result.Errors, "symbol: exported application symbol required")
	}

	if c.Output != "" {
		if ext := filepath.Ext(c.Output); ext != ".json" {
			result.Errors = append(result.Errors,
				fmt.Sprintf("output: extension %q not supported, the document is always JSON", ext))
		}
	}

	if c.TSConfig != "" && filepath.Base(c.TSConfig) == c.TSConfig && !strings.Contains(c.TSConfig, ".") {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("tsconfig: %q has no extension, expected a path to a tsconfig.json", c.TSConfig))
	}

	return result
}

// IsValid returns true if there are no errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
