package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "artifacts.keep_recent")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateArtifacts()...)
	errors = append(errors, c.validateWorkflow()...)
	errors = append(errors, c.validateExecutor()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validatePaths()...)

	return errors
}

func (c *Config) validateArtifacts() []ValidationError {
	var errors []ValidationError

	if c.Artifacts.KeepRecent < 0 {
		errors = append(errors, ValidationError{
			Field:   "artifacts.keep_recent",
			Value:   c.Artifacts.KeepRecent,
			Message: "must be non-negative",
		})
	}

	// keep_recent only matters while eviction is on
	if c.Artifacts.MaxEntries > 0 && c.Artifacts.KeepRecent > c.Artifacts.MaxEntries {
		errors = append(errors, ValidationError{
			Field:   "artifacts.keep_recent",
			Value:   c.Artifacts.KeepRecent,
			Message: fmt.Sprintf("must not exceed artifacts.max_entries (%d)", c.Artifacts.MaxEntries),
		})
	}

	return errors
}

func (c *Config) validateWorkflow() []ValidationError {
	var errors []ValidationError

	if c.Workflow.CatalogFile != "" {
		if info, err := os.Stat(c.Workflow.CatalogFile); err != nil {
			errors = append(errors, ValidationError{
				Field:   "workflow.catalog_file",
				Value:   c.Workflow.CatalogFile,
				Message: "file does not exist",
			})
		} else if info.IsDir() {
			errors = append(errors, ValidationError{
				Field:   "workflow.catalog_file",
				Value:   c.Workflow.CatalogFile,
				Message: "is a directory",
			})
		}
	}

	for i, m := range c.Workflow.IncompleteMarkers {
		if strings.TrimSpace(m) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("workflow.incomplete_markers[%d]", i),
				Value:   m,
				Message: "must not be blank",
			})
		}
	}

	return errors
}

func (c *Config) validateExecutor() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Executor.Command) == "" {
		errors = append(errors, ValidationError{
			Field:   "executor.command",
			Value:   c.Executor.Command,
			Message: "must not be empty",
		})
	}

	if c.Executor.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "executor.timeout",
			Value:   c.Executor.Timeout,
			Message: "must be non-negative",
		})
	}

	const maxTimeout = 24 * time.Hour
	if c.Executor.Timeout > maxTimeout {
		errors = append(errors, ValidationError{
			Field:   "executor.timeout",
			Value:   c.Executor.Timeout,
			Message: fmt.Sprintf("exceeds maximum of %s", maxTimeout),
		})
	}

	// Markers come as a pair
	if (c.Executor.ConceptStartMarker == "") != (c.Executor.ConceptEndMarker == "") {
		errors = append(errors, ValidationError{
			Field:   "executor.concept_end_marker",
			Value:   c.Executor.ConceptEndMarker,
			Message: "concept markers must both be set or both be empty",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	if c.Paths.DataDir == "" {
		return errors
	}
	path := c.Paths.DataDir

	if strings.ContainsRune(path, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "paths.data_dir",
			Value:   path,
			Message: "path contains invalid null character",
		})
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		errors = append(errors, ValidationError{
			Field:   "paths.data_dir",
			Value:   path,
			Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
		})
	}

	return errors
}
