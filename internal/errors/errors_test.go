package errors

import (
	"errors"
	"fmt"
	"testing"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// StageError Tests
// -----------------------------------------------------------------------------

func TestStageError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *StageError
		want string
	}{
		{
			name: "no context",
			err:  NewStageError("prerequisite incomplete", nil),
			want: "stage error: prerequisite incomplete",
		},
		{
			name: "stage only",
			err:  NewStageError("prerequisite incomplete", ErrNotReady).WithStage("3_generatie"),
			want: "stage error [stage=3_generatie]: prerequisite incomplete: stage not ready",
		},
		{
			name: "stage and substep",
			err: NewStageError("review has not run", ErrNotReady).
				WithStage("4a_BronnenSpecialist").
				WithSubstep("processing"),
			want: "stage error [stage=4a_BronnenSpecialist, substep=processing]: review has not run: stage not ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStageError_Is(t *testing.T) {
	err := NewStageError("busy", ErrAlreadyInProgress).WithStage("A")
	wrapped := fmt.Errorf("execute: %w", err)

	if !Is(wrapped, ErrAlreadyInProgress) {
		t.Error("Is(wrapped, ErrAlreadyInProgress) = false, want true")
	}
	if Is(wrapped, ErrNotReady) {
		t.Error("Is(wrapped, ErrNotReady) = true, want false")
	}

	var stageErr *StageError
	if !As(wrapped, &stageErr) {
		t.Fatal("As(wrapped, *StageError) = false, want true")
	}
	if stageErr.Stage != "A" {
		t.Errorf("Stage = %q, want %q", stageErr.Stage, "A")
	}
}

// -----------------------------------------------------------------------------
// ExecutorError Tests
// -----------------------------------------------------------------------------

func TestExecutorError_PreservesMessage(t *testing.T) {
	cause := errors.New("backend returned 503: overloaded")
	err := NewExecutorError("3_generatie", "", cause)

	if got, want := err.Error(), "3_generatie: backend returned 503: overloaded"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got := err.Message(); got != cause.Error() {
		t.Errorf("Message() = %q, want %q", got, cause.Error())
	}
	if !Is(err, ErrExecutorFailure) {
		t.Error("Is(err, ErrExecutorFailure) = false, want true")
	}
	if !Is(err, cause) {
		t.Error("Is(err, cause) = false, want true")
	}
	if IsRetryable(err) {
		t.Error("IsRetryable() = true, want false")
	}
}

func TestExecutorError_SubstepTarget(t *testing.T) {
	err := NewExecutorError("B", "review", errors.New("boom"))
	if got, want := err.Error(), "B/review: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

// -----------------------------------------------------------------------------
// ReportError Tests
// -----------------------------------------------------------------------------

func TestReportError_Error(t *testing.T) {
	err := NewReportError("failed to decode", ErrReportCorrupted).
		WithReportID("abc").
		WithPath("/tmp/abc.json")
	want := "report error [report=abc, path=/tmp/abc.json]: failed to decode: report data corrupted"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, ErrReportCorrupted) {
		t.Error("Is(err, ErrReportCorrupted) = false, want true")
	}
}

// -----------------------------------------------------------------------------
// Classification Tests
// -----------------------------------------------------------------------------

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not ready", NewStageError("x", ErrNotReady), "not_ready"},
		{"in progress", fmt.Errorf("wrap: %w", ErrAlreadyInProgress), "already_in_progress"},
		{"manual", NewStageError("x", ErrInvalidManualContent), "invalid_manual_content"},
		{"executor", NewExecutorError("A", "", errors.New("x")), "executor_failure"},
		{"canceled", ErrCanceled, "canceled"},
		{"unknown stage", NewStageError("x", ErrUnknownStage), "unknown_stage"},
		{"other", errors.New("disk full"), "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"stage error", NewStageError("x", ErrNotReady), true},
		{"bare sentinel", ErrAlreadyInProgress, true},
		{"plain error", errors.New("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetSeverity(t *testing.T) {
	if got := GetSeverity(NewStageError("x", nil)); got != SeverityWarning {
		t.Errorf("GetSeverity(StageError) = %v, want %v", got, SeverityWarning)
	}
	if got := GetSeverity(NewStageError("x", nil).WithSeverity(SeverityInfo)); got != SeverityInfo {
		t.Errorf("GetSeverity(StageError.WithSeverity) = %v, want %v", got, SeverityInfo)
	}
	if got := GetSeverity(errors.New("x")); got != SeverityError {
		t.Errorf("GetSeverity(plain) = %v, want %v", got, SeverityError)
	}
	if !IsRetryable(NewReportError("x", nil).WithRetryable(true)) {
		t.Error("IsRetryable(ReportError.WithRetryable(true)) = false, want true")
	}
}
