// Package errors provides centralized error definitions and error handling utilities
// for the dossier workflow core. It defines the orchestration error taxonomy,
// typed errors that carry stage context, and classification helpers.
//
// # Error Types
//
// Domain-specific errors:
//   - StageError: a request against a stage or sub-step was rejected
//     (not ready, already in progress, invalid manual content, unknown stage)
//   - ExecutorError: the external stage executor failed; its message is preserved
//   - ReportError: persisted report could not be loaded or saved
//
// # Usage
//
//	err := errors.NewStageError("prerequisite incomplete", errors.ErrNotReady).
//		WithStage("3_generatie")
//
//	if errors.Is(err, errors.ErrNotReady) { ... }
//
//	var execErr *errors.ExecutorError
//	if errors.As(err, &execErr) { ... }
//
// Every error produced by the orchestration core is returned before, or
// instead of, any state mutation. None of them is retried automatically.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Orchestration sentinel errors
var (
	// ErrNotReady indicates the target's prerequisite stage is not complete.
	ErrNotReady = New("stage not ready")
	// ErrAlreadyInProgress indicates an execution for the same target is outstanding.
	ErrAlreadyInProgress = New("stage already in progress")
	// ErrExecutorFailure indicates the stage executor rejected or errored.
	ErrExecutorFailure = New("stage executor failed")
	// ErrInvalidManualContent indicates a manual submission was empty or blank.
	ErrInvalidManualContent = New("invalid manual content")
	// ErrUnknownStage indicates the stage or sub-step is not in the catalog.
	ErrUnknownStage = New("unknown stage")
)

// Report-related sentinel errors
var (
	// ErrReportNotFound indicates that a persisted report could not be found.
	ErrReportNotFound = New("report not found")
	// ErrReportCorrupted indicates that persisted report data could not be parsed.
	ErrReportCorrupted = New("report data corrupted")
)

// General sentinel errors
var (
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// DossierError is implemented by every typed error in this package.
type DossierError interface {
	error
	Unwrap() error
	Severity() Severity
	IsRetryable() bool
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// formatWithContext renders "prefix [k=v, ...]: message: cause".
func formatWithContext(prefix string, parts []string, message string, cause error) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// StageError represents a rejected request against a stage or sub-step.
//
// Example:
//
//	err := errors.NewStageError("review has not run", errors.ErrNotReady).
//		WithStage("4a_BronnenSpecialist").WithSubstep("processing")
//	fmt.Println(err) // "stage error [stage=4a_BronnenSpecialist, substep=processing]: review has not run: stage not ready"
type StageError struct {
	baseError
	Stage   string
	Substep string
}

// NewStageError creates a new StageError.
func NewStageError(message string, cause error) *StageError {
	return &StageError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithStage adds a stage key to the error context.
func (e *StageError) WithStage(key string) *StageError {
	e.Stage = key
	return e
}

// WithSubstep adds a sub-step role to the error context.
func (e *StageError) WithSubstep(role string) *StageError {
	e.Substep = role
	return e
}

// WithSeverity sets the error severity.
func (e *StageError) WithSeverity(s Severity) *StageError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *StageError) Error() string {
	var parts []string
	if e.Stage != "" {
		parts = append(parts, fmt.Sprintf("stage=%s", e.Stage))
	}
	if e.Substep != "" {
		parts = append(parts, fmt.Sprintf("substep=%s", e.Substep))
	}
	return formatWithContext("stage error", parts, e.message, e.cause)
}

// ExecutorError wraps a failure returned by the external stage executor.
// The original error is kept as-is so its message reaches the operator verbatim.
type ExecutorError struct {
	baseError
	Stage   string
	Substep string
}

// NewExecutorError creates a new ExecutorError around the executor's own error.
func NewExecutorError(stage, substep string, cause error) *ExecutorError {
	return &ExecutorError{
		baseError: baseError{
			message:    "executor failed",
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
		Stage:   stage,
		Substep: substep,
	}
}

// Error returns the executor's message prefixed by the failing target.
func (e *ExecutorError) Error() string {
	target := e.Stage
	if e.Substep != "" {
		target += "/" + e.Substep
	}
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", target, e.message)
	}
	return fmt.Sprintf("%s: %v", target, e.cause)
}

// Message returns the executor's original error text.
func (e *ExecutorError) Message() string {
	if e.cause == nil {
		return ""
	}
	return e.cause.Error()
}

// Is matches ErrExecutorFailure in addition to the wrapped cause.
func (e *ExecutorError) Is(target error) bool {
	return target == ErrExecutorFailure
}

// ReportError represents errors loading or saving a persisted report.
type ReportError struct {
	baseError
	ReportID string
	Path     string
}

// NewReportError creates a new ReportError.
func NewReportError(message string, cause error) *ReportError {
	return &ReportError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithReportID adds a report ID to the error context.
func (e *ReportError) WithReportID(id string) *ReportError {
	e.ReportID = id
	return e
}

// WithPath adds a file path to the error context.
func (e *ReportError) WithPath(path string) *ReportError {
	e.Path = path
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *ReportError) WithRetryable(r bool) *ReportError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *ReportError) Error() string {
	var parts []string
	if e.ReportID != "" {
		parts = append(parts, fmt.Sprintf("report=%s", e.ReportID))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	return formatWithContext("report error", parts, e.message, e.cause)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable reports whether err, or any error it wraps, is marked retryable.
func IsRetryable(err error) bool {
	var de DossierError
	if As(err, &de) {
		return de.IsRetryable()
	}
	return false
}

// IsUserFacing reports whether err is safe to show to the operator as-is.
// Plain sentinel errors from this package count as user facing.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var de DossierError
	if As(err, &de) {
		return de.IsUserFacing()
	}
	for _, s := range []error{ErrNotReady, ErrAlreadyInProgress, ErrInvalidManualContent, ErrUnknownStage, ErrCanceled} {
		if Is(err, s) {
			return true
		}
	}
	return false
}

// GetSeverity returns the severity of err, defaulting to SeverityError.
func GetSeverity(err error) Severity {
	var de DossierError
	if As(err, &de) {
		return de.Severity()
	}
	return SeverityError
}

// Kind returns a short label for the taxonomy class of err, suitable for
// logs and event payloads. It returns "" for nil and "internal" for errors
// outside the taxonomy.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrNotReady):
		return "not_ready"
	case Is(err, ErrAlreadyInProgress):
		return "already_in_progress"
	case Is(err, ErrInvalidManualContent):
		return "invalid_manual_content"
	case Is(err, ErrExecutorFailure):
		return "executor_failure"
	case Is(err, ErrCanceled):
		return "canceled"
	case Is(err, ErrUnknownStage):
		return "unknown_stage"
	default:
		return "internal"
	}
}
