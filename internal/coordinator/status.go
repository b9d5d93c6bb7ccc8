package coordinator

import (
	"fmt"
	"time"

	"github.com/dossierworks/dossier/internal/artifact"
	"github.com/dossierworks/dossier/internal/errors"
	"github.com/dossierworks/dossier/internal/stage"
)

// SubstepStatus is the state of one half of a reviewer stage.
type SubstepStatus struct {
	Role       stage.SubstepRole
	Done       bool
	Ready      bool
	Processing bool
	Elapsed    time.Duration
}

// Status is a read-only view of one stage for display.
type Status struct {
	Index int
	Key   string
	Label string
	Role  stage.Role

	Complete bool
	// Cleared is Complete and, for the gate, classified complete.
	Cleared    bool
	Blocked    bool
	Ready      bool
	Processing bool
	Current    bool

	// Elapsed is the recorded time of the last run, or the running time of
	// an outstanding call.
	Elapsed  time.Duration
	Substeps []SubstepStatus
	FollowUp string
}

// State is a copy of everything a session would need to persist.
type State struct {
	Results   map[string]string
	Concepts  map[string]string
	Substeps  map[string]artifact.SubstepResult
	Timings   map[string]time.Duration
	FollowUps map[string]string
	Pointer   int
}

// StageStatus returns the status of stage i.
func (c *Coordinator) StageStatus(i int) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i < 0 || i >= c.catalog.Len() {
		return Status{}, errors.NewStageError(fmt.Sprintf("index %d out of range [0,%d)", i, c.catalog.Len()), errors.ErrInvalidInput)
	}
	return c.status(i), nil
}

// Statuses returns the status of every stage in catalog order.
func (c *Coordinator) Statuses() []Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Status, c.catalog.Len())
	for i := range out {
		out[i] = c.status(i)
	}
	return out
}

// status must be called with mu held.
func (c *Coordinator) status(i int) Status {
	s := c.catalog.At(i)
	st := Status{
		Index:    i,
		Key:      s.Key,
		Label:    s.Label,
		Role:     s.Role,
		Complete: c.engine.IsComplete(s.Key),
		Cleared:  c.engine.Cleared(s.Key),
		Blocked:  c.engine.GateBlocked(s.Key),
		Current:  i == c.pointer,
		FollowUp: c.followUps[s.Key],
	}

	if !s.IsReviewer() {
		t := stage.For(s.Key)
		st.Ready = c.engine.CanExecute(t)
		st.Processing, st.Elapsed = c.elapsed(t)
		return st
	}

	r, _ := c.store.Substep(s.Key)
	for _, sub := range s.Substeps {
		t := stage.ForSubstep(s.Key, sub.Role)
		ss := SubstepStatus{
			Role:  sub.Role,
			Done:  r.Has(sub.Role),
			Ready: c.engine.CanExecute(t),
		}
		ss.Processing, ss.Elapsed = c.elapsed(t)
		st.Substeps = append(st.Substeps, ss)

		st.Processing = st.Processing || ss.Processing
		st.Elapsed += ss.Elapsed
	}
	// A reviewer is ready while either of its sub-steps can run.
	for _, ss := range st.Substeps {
		st.Ready = st.Ready || ss.Ready
	}
	return st
}

// elapsed returns whether t is running and its live or recorded time.
// Must be called with mu held.
func (c *Coordinator) elapsed(t stage.Target) (bool, time.Duration) {
	if f, ok := c.inFlight[t.String()]; ok {
		return true, c.now().Sub(f.started)
	}
	return false, c.timings[t.String()]
}

// Snapshot copies the session state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Results:   c.store.Results(),
		Concepts:  c.store.Concepts(),
		Substeps:  c.store.Substeps(),
		Timings:   make(map[string]time.Duration, len(c.timings)),
		FollowUps: make(map[string]string, len(c.followUps)),
		Pointer:   c.pointer,
	}
	for k, v := range c.timings {
		st.Timings[k] = v
	}
	for k, v := range c.followUps {
		st.FollowUps[k] = v
	}
	return st
}
