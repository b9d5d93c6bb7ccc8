package coordinator

import (
	"time"

	"github.com/dossierworks/dossier/internal/event"
	"github.com/dossierworks/dossier/internal/executor"
	"github.com/dossierworks/dossier/internal/logging"
	"github.com/dossierworks/dossier/internal/transition"
)

// Option configures a Coordinator.
type Option func(*options)

type options struct {
	reportID  string
	logger    *logging.Logger
	bus       *event.Bus
	classify  transition.GateClassifier
	followUp  executor.StageExecutor
	history   bool
	pointer   int
	timings   map[string]time.Duration
	followUps map[string]string
	now       func() time.Time
}

// WithReportID tags logs and events with the report being worked on.
func WithReportID(id string) Option {
	return func(o *options) {
		o.reportID = id
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBus sets the event bus. Without one, New creates a bus of its own,
// reachable through Coordinator.Bus.
func WithBus(bus *event.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// WithClassifier sets the gate classifier. The default treats every gate
// result as complete.
func WithClassifier(classify transition.GateClassifier) Option {
	return func(o *options) {
		o.classify = classify
	}
}

// WithFollowUp sets the executor that drafts a follow-up in the background
// whenever the gate result is classified incomplete.
func WithFollowUp(exec executor.StageExecutor) Option {
	return func(o *options) {
		o.followUp = exec
	}
}

// WithHistory records each write of a stage result or concept under a
// numbered history key as well as the canonical key.
func WithHistory(enabled bool) Option {
	return func(o *options) {
		o.history = enabled
	}
}

// WithPointer sets the initial stage pointer, typically from a hydrated
// report. Out-of-range values are clamped.
func WithPointer(i int) Option {
	return func(o *options) {
		o.pointer = i
	}
}

// WithTimings seeds the recorded execution times, keyed by target string.
func WithTimings(timings map[string]time.Duration) Option {
	return func(o *options) {
		o.timings = timings
	}
}

// WithFollowUps seeds previously drafted follow-ups, keyed by gate stage.
func WithFollowUps(followUps map[string]string) Option {
	return func(o *options) {
		o.followUps = followUps
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}
