// Package event defines the events the report workflow emits while stages
// run, so that views and persistence can follow progress without the
// coordinator knowing about them.
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier, e.g. "stage.completed".
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeStageStarted      = "stage.started"
	TypeStageCompleted    = "stage.completed"
	TypeStageFailed       = "stage.failed"
	TypeStageCanceled     = "stage.canceled"
	TypeStageReset        = "stage.reset"
	TypePointerMoved      = "pointer.moved"
	TypeGateBlocked       = "gate.blocked"
	TypeFollowUpCompleted = "followup.completed"
)

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// StageStartedEvent is emitted when an execution is admitted.
type StageStartedEvent struct {
	baseEvent
	ReportID string
	Stage    string
	Substep  string // empty for whole-stage targets
}

// NewStageStartedEvent creates a StageStartedEvent.
func NewStageStartedEvent(reportID, stage, substep string) StageStartedEvent {
	return StageStartedEvent{
		baseEvent: newBaseEvent(TypeStageStarted),
		ReportID:  reportID,
		Stage:     stage,
		Substep:   substep,
	}
}

// StageCompletedEvent is emitted after a result has been written, whether it
// came from the executor or from manual submission.
type StageCompletedEvent struct {
	baseEvent
	ReportID string
	Stage    string
	Substep  string
	Elapsed  time.Duration
	Manual   bool
}

// NewStageCompletedEvent creates a StageCompletedEvent.
func NewStageCompletedEvent(reportID, stage, substep string, elapsed time.Duration, manual bool) StageCompletedEvent {
	return StageCompletedEvent{
		baseEvent: newBaseEvent(TypeStageCompleted),
		ReportID:  reportID,
		Stage:     stage,
		Substep:   substep,
		Elapsed:   elapsed,
		Manual:    manual,
	}
}

// StageFailedEvent is emitted when the executor returns an error.
type StageFailedEvent struct {
	baseEvent
	ReportID string
	Stage    string
	Substep  string
	Message  string
}

// NewStageFailedEvent creates a StageFailedEvent.
func NewStageFailedEvent(reportID, stage, substep, message string) StageFailedEvent {
	return StageFailedEvent{
		baseEvent: newBaseEvent(TypeStageFailed),
		ReportID:  reportID,
		Stage:     stage,
		Substep:   substep,
		Message:   message,
	}
}

// StageCanceledEvent is emitted when an in-flight execution was canceled.
type StageCanceledEvent struct {
	baseEvent
	ReportID string
	Stage    string
	Substep  string
}

// NewStageCanceledEvent creates a StageCanceledEvent.
func NewStageCanceledEvent(reportID, stage, substep string) StageCanceledEvent {
	return StageCanceledEvent{
		baseEvent: newBaseEvent(TypeStageCanceled),
		ReportID:  reportID,
		Stage:     stage,
		Substep:   substep,
	}
}

// StageResetEvent is emitted when results were cleared from a stage onward.
type StageResetEvent struct {
	baseEvent
	ReportID string
	From     string
	Cleared  []string // stage keys whose results were removed
}

// NewStageResetEvent creates a StageResetEvent.
func NewStageResetEvent(reportID, from string, cleared []string) StageResetEvent {
	return StageResetEvent{
		baseEvent: newBaseEvent(TypeStageReset),
		ReportID:  reportID,
		From:      from,
		Cleared:   cleared,
	}
}

// PointerMovedEvent is emitted whenever the active stage index changes.
type PointerMovedEvent struct {
	baseEvent
	ReportID string
	From     int
	To       int
	Stage    string // key at To
}

// NewPointerMovedEvent creates a PointerMovedEvent.
func NewPointerMovedEvent(reportID string, from, to int, stage string) PointerMovedEvent {
	return PointerMovedEvent{
		baseEvent: newBaseEvent(TypePointerMoved),
		ReportID:  reportID,
		From:      from,
		To:        to,
		Stage:     stage,
	}
}

// GateBlockedEvent is emitted when the gate stage's result is classified as
// reporting incomplete information.
type GateBlockedEvent struct {
	baseEvent
	ReportID string
	Stage    string
}

// NewGateBlockedEvent creates a GateBlockedEvent.
func NewGateBlockedEvent(reportID, stage string) GateBlockedEvent {
	return GateBlockedEvent{
		baseEvent: newBaseEvent(TypeGateBlocked),
		ReportID:  reportID,
		Stage:     stage,
	}
}

// FollowUpCompletedEvent is emitted when the background follow-up for a
// blocked gate finished. Err is empty on success.
type FollowUpCompletedEvent struct {
	baseEvent
	ReportID string
	Stage    string
	Err      string
}

// NewFollowUpCompletedEvent creates a FollowUpCompletedEvent.
func NewFollowUpCompletedEvent(reportID, stage, errMsg string) FollowUpCompletedEvent {
	return FollowUpCompletedEvent{
		baseEvent: newBaseEvent(TypeFollowUpCompleted),
		ReportID:  reportID,
		Stage:     stage,
		Err:       errMsg,
	}
}
