package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got %d errors: %v", len(errs), errs)
	}
}

func hasField(errs []ValidationError, field string) bool {
	for _, err := range errs {
		if err.Field == field {
			return true
		}
	}
	return false
}

func TestConfig_Validate(t *testing.T) {
	catalog := filepath.Join(t.TempDir(), "stages.yaml")
	if err := os.WriteFile(catalog, []byte("stages: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string // empty means valid
	}{
		{"eviction disabled", func(c *Config) { c.Artifacts.MaxEntries = -1; c.Artifacts.KeepRecent = 500 }, ""},
		{"store default size", func(c *Config) { c.Artifacts.MaxEntries = 0 }, ""},
		{"negative keep_recent", func(c *Config) { c.Artifacts.KeepRecent = -1 }, "artifacts.keep_recent"},
		{"keep_recent above max", func(c *Config) { c.Artifacts.MaxEntries = 4; c.Artifacts.KeepRecent = 5 }, "artifacts.keep_recent"},
		{"existing catalog", func(c *Config) { c.Workflow.CatalogFile = catalog }, ""},
		{"missing catalog", func(c *Config) { c.Workflow.CatalogFile = catalog + ".missing" }, "workflow.catalog_file"},
		{"catalog is dir", func(c *Config) { c.Workflow.CatalogFile = filepath.Dir(catalog) }, "workflow.catalog_file"},
		{"blank marker", func(c *Config) { c.Workflow.IncompleteMarkers = []string{"OK", " "} }, "workflow.incomplete_markers[1]"},
		{"empty command", func(c *Config) { c.Executor.Command = "  " }, "executor.command"},
		{"negative timeout", func(c *Config) { c.Executor.Timeout = -time.Second }, "executor.timeout"},
		{"huge timeout", func(c *Config) { c.Executor.Timeout = 48 * time.Hour }, "executor.timeout"},
		{"no timeout", func(c *Config) { c.Executor.Timeout = 0 }, ""},
		{"half marker pair", func(c *Config) { c.Executor.ConceptEndMarker = "" }, "executor.concept_end_marker"},
		{"no markers", func(c *Config) { c.Executor.ConceptStartMarker = ""; c.Executor.ConceptEndMarker = "" }, ""},
		{"uppercase level", func(c *Config) { c.Logging.Level = "INFO" }, "logging.level"},
		{"zero max size", func(c *Config) { c.Logging.MaxSizeMB = 0 }, "logging.max_size_mb"},
		{"huge max size", func(c *Config) { c.Logging.MaxSizeMB = 5000 }, "logging.max_size_mb"},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.max_backups"},
		{"null byte path", func(c *Config) { c.Paths.DataDir = "/tmp/\x00x" }, "paths.data_dir"},
		{"long path", func(c *Config) { c.Paths.DataDir = "/" + strings.Repeat("a", 5000) }, "paths.data_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()

			if tt.wantField == "" {
				if len(errs) != 0 {
					t.Errorf("Validate() = %v, want no errors", errs)
				}
				return
			}
			if !hasField(errs, tt.wantField) {
				t.Errorf("Validate() = %v, want an error for %s", errs, tt.wantField)
			}
		})
	}
}

func TestValidLogLevels(t *testing.T) {
	levels := ValidLogLevels()
	expected := []string{"debug", "info", "warn", "error"}

	if len(levels) != len(expected) {
		t.Fatalf("ValidLogLevels() returned %d levels, want %d", len(levels), len(expected))
	}
	for i, level := range expected {
		if levels[i] != level {
			t.Errorf("ValidLogLevels()[%d] = %q, want %q", i, levels[i], level)
		}
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.Executor.Command = ""
	cfg.Logging.MaxBackups = -1
	cfg.Artifacts.KeepRecent = -2

	if errs := cfg.Validate(); len(errs) != 3 {
		t.Errorf("Validate() returned %d errors, want 3: %v", len(errs), errs)
	}
}
