// Package coordinator runs stages of one report session.
//
// A Coordinator owns the artifact store and the stage pointer of a session.
// Every mutation (store writes, pointer moves, in-flight flags) happens
// under one mutex; the executor call itself runs outside it, so distinct
// targets may execute concurrently while the same target never has two
// outstanding calls.
//
// Results are written only on confirmed success. A response for a stage the
// operator has navigated away from is still written, but the pointer only
// follows a completion of the stage it currently points at.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/dossierworks/dossier/internal/artifact"
	"github.com/dossierworks/dossier/internal/event"
	"github.com/dossierworks/dossier/internal/executor"
	"github.com/dossierworks/dossier/internal/logging"
	"github.com/dossierworks/dossier/internal/stage"
	"github.com/dossierworks/dossier/internal/transition"
)

// followUpSuffix marks the in-flight key of a gate's background follow-up.
const followUpSuffix = "/follow_up"

// flight is one outstanding executor call.
type flight struct {
	stage    string
	started  time.Time
	cancel   context.CancelFunc
	canceled bool
	followUp bool
}

// Coordinator serializes the execution of stages for one report.
type Coordinator struct {
	catalog  *stage.Catalog
	store    *artifact.Store
	engine   *transition.Engine
	exec     executor.StageExecutor
	followUp executor.StageExecutor

	reportID string
	history  bool
	bus      *event.Bus
	logger   *logging.Logger
	now      func() time.Time

	mu        sync.Mutex
	pointer   int
	inFlight  map[string]*flight       // target string -> call
	timings   map[string]time.Duration // target string -> elapsed
	followUps map[string]string        // gate key -> drafted follow-up

	background conc.WaitGroup
}

// New creates a Coordinator for catalog over store, running stages with exec.
// The catalog, store and executor must be non-nil.
func New(catalog *stage.Catalog, store *artifact.Store, exec executor.StageExecutor, opts ...Option) *Coordinator {
	if catalog == nil {
		panic("coordinator: catalog must not be nil")
	}
	if store == nil {
		panic("coordinator: store must not be nil")
	}
	if exec == nil {
		panic("coordinator: executor must not be nil")
	}

	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NopLogger()
	}
	if o.bus == nil {
		o.bus = event.NewBus(o.logger)
	}
	if o.now == nil {
		o.now = time.Now
	}

	logger := o.logger
	if o.reportID != "" {
		logger = logger.WithReport(o.reportID)
	}

	c := &Coordinator{
		catalog:   catalog,
		store:     store,
		engine:    transition.New(catalog, store, o.classify),
		exec:      exec,
		followUp:  o.followUp,
		reportID:  o.reportID,
		history:   o.history,
		bus:       o.bus,
		logger:    logger,
		now:       o.now,
		pointer:   catalog.Clamp(o.pointer),
		inFlight:  make(map[string]*flight),
		timings:   make(map[string]time.Duration, len(o.timings)),
		followUps: make(map[string]string, len(o.followUps)),
	}
	for k, v := range o.timings {
		c.timings[k] = v
	}
	for k, v := range o.followUps {
		c.followUps[k] = v
	}
	return c
}

// Catalog returns the stage catalog.
func (c *Coordinator) Catalog() *stage.Catalog {
	return c.catalog
}

// Store returns the artifact store. Callers must not write to it directly
// while the coordinator is in use.
func (c *Coordinator) Store() *artifact.Store {
	return c.store
}

// Engine returns the transition engine over the coordinator's store.
func (c *Coordinator) Engine() *transition.Engine {
	return c.engine
}

// Bus returns the event bus events are published on.
func (c *Coordinator) Bus() *event.Bus {
	return c.bus
}

// ReportID returns the report this coordinator works on.
func (c *Coordinator) ReportID() string {
	return c.reportID
}

// Pointer returns the current stage index.
func (c *Coordinator) Pointer() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pointer
}

// Finished reports whether the final stage is complete.
func (c *Coordinator) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Finished()
}

// CanExecute reports whether t may be executed or submitted right now:
// its prerequisite is satisfied and neither it nor another sub-step of its
// stage is in flight.
func (c *Coordinator) CanExecute(t stage.Target) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.admit(t) == nil
}

// InFlight reports whether t has an outstanding executor call.
func (c *Coordinator) InFlight(t stage.Target) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[t.String()]
	return ok
}

// Timings returns a copy of the recorded execution times.
func (c *Coordinator) Timings() map[string]time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]time.Duration, len(c.timings))
	for k, v := range c.timings {
		out[k] = v
	}
	return out
}

// FollowUps returns a copy of the drafted gate follow-ups.
func (c *Coordinator) FollowUps() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.followUps))
	for k, v := range c.followUps {
		out[k] = v
	}
	return out
}

// Wait blocks until background follow-ups have finished. A follow-up that
// panicked is logged rather than re-raised.
func (c *Coordinator) Wait() {
	if r := c.background.WaitAndRecover(); r != nil {
		c.logger.Error("background follow-up panicked", "panic", r.String())
	}
}

// publish sends events outside the lock.
func (c *Coordinator) publish(events []event.Event) {
	for _, e := range events {
		c.bus.Publish(e)
	}
}
