package config

import (
	"strings"
	"testing"
)

func TestValidateDetailed_Valid(t *testing.T) {
	cfg := Default()
	cfg.Source = "src/app.ts"
	cfg.Symbol = "App"

	result := cfg.ValidateDetailed()
	if !result.IsValid() {
		t.Fatalf("expected valid config, got errors: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got: %v", result.Warnings)
	}
}

func TestValidateDetailed_MissingSource(t *testing.T) {
	cfg := Default()
	cfg.Symbol = "App"

	result := cfg.ValidateDetailed()
	if result.IsValid() {
		t.Fatal("expected invalid config")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "source") {
		t.Fatalf("expected a source error, got: %v", result.Errors)
	}
}

func TestValidateDetailed_MissingSymbol(t *testing.T) {
	cfg := Default()
	cfg.Source = "src/app.ts"

	result := cfg.ValidateDetailed()
	if result.IsValid() {
		t.Fatal("expected invalid config")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "symbol") {
		t.Fatalf("expected a symbol error, got: %v", result.Errors)
	}
}

func TestValidateDetailed_NonTypeScriptSourceWarns(t *testing.T) {
	cfg := Default()
	cfg.Source = "src/app.js"
	cfg.Symbol = "App"

	result := cfg.ValidateDetailed()
	if !result.IsValid() {
		t.Fatalf("a suspicious extension should warn, not error: %v", result.Errors)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "does not look like a TypeScript file") {
		t.Fatalf("expected a source warning, got: %v", result.Warnings)
	}
}

func TestValidateDetailed_AcceptsAllTSExtensions(t *testing.T) {
	for _, src := range []string{"a.ts", "b.tsx", "c.mts", "d.cts"} {
		cfg := Default()
		cfg.Source = src
		cfg.Symbol = "App"

		result := cfg.ValidateDetailed()
		if len(result.Warnings) != 0 {
			t.Fatalf("source %q should not warn, got: %v", src, result.Warnings)
		}
	}
}

func TestValidateDetailed_BadOutputExtension(t *testing.T) {
	cfg := Default()
	cfg.Source = "src/app.ts"
	cfg.Symbol = "App"
	cfg.Output = "doc.yaml"

	result := cfg.ValidateDetailed()
	if result.IsValid() {
		t.Fatal("expected invalid config")
	}
	if !strings.Contains(result.Errors[0], "output") {
		t.Fatalf("expected an output error, got: %v", result.Errors)
	}
}

func TestValidateDetailed_SuspiciousTSConfigWarns(t *testing.T) {
	cfg := Default()
	cfg.Source = "src/app.ts"
	cfg.Symbol = "App"
	cfg.TSConfig = "tsconfig"

	result := cfg.ValidateDetailed()
	if !result.IsValid() {
		t.Fatalf("expected config to stay valid, got errors: %v", result.Errors)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "tsconfig") {
		t.Fatalf("expected a tsconfig warning, got: %v", result.Warnings)
	}
}

func TestValidateDetailed_TSConfigPathDoesNotWarn(t *testing.T) {
	cfg := Default()
	cfg.Source = "src/app.ts"
	cfg.Symbol = "App"
	cfg.TSConfig = "configs/tsconfig.build.json"

	result := cfg.ValidateDetailed()
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings for a real path, got: %v", result.Warnings)
	}
}

func TestValidateDetailed_CollectsMultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.Output = "out.txt"

	result := cfg.ValidateDetailed()
	if len(result.Errors) != 3 {
		t.Fatalf("expected 3 errors (source, symbol, output), got %d: %v", len(result.Errors), result.Errors)
	}
}
