package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dossierworks/dossier/internal/artifact"
	"github.com/dossierworks/dossier/internal/errors"
	"github.com/dossierworks/dossier/internal/event"
	"github.com/dossierworks/dossier/internal/executor"
	"github.com/dossierworks/dossier/internal/stage"
)

// Outcome describes a committed stage result.
type Outcome struct {
	Target  stage.Target
	Text    string
	Concept string
	Elapsed time.Duration
	Manual  bool

	// Pointer is the stage pointer after the commit. Moved is false when the
	// result belonged to a stage other than the one the pointer was on.
	Pointer int
	Moved   bool
	// GateBlocked is set when the target was the gate and its new result is
	// classified incomplete.
	GateBlocked bool
}

// Execute runs t through the executor and commits the result.
//
// The call is rejected before anything changes when t's prerequisite is not
// satisfied (ErrNotReady) or t already has an outstanding call
// (ErrAlreadyInProgress). An executor error or empty output is returned as an
// ExecutorError and leaves the store untouched, as does cancellation, which
// returns ErrCanceled.
func (c *Coordinator) Execute(ctx context.Context, t stage.Target, input, customContext string) (Outcome, error) {
	c.mu.Lock()
	if err := c.admit(t); err != nil {
		c.mu.Unlock()
		return Outcome{}, err
	}
	req := c.request(t, input, customContext)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	f := &flight{stage: t.Stage, started: c.now(), cancel: cancel}
	c.inFlight[t.String()] = f
	c.mu.Unlock()

	logger := c.logger.WithStage(t.Stage).WithSubstep(string(t.Substep))
	logger.Info("stage started")
	c.bus.Publish(event.NewStageStartedEvent(c.reportID, t.Stage, string(t.Substep)))

	res, err := c.exec.Execute(runCtx, req)

	c.mu.Lock()
	delete(c.inFlight, t.String())
	elapsed := c.now().Sub(f.started)

	if f.canceled || ctx.Err() != nil {
		c.mu.Unlock()
		logger.Info("stage canceled", "elapsed", elapsed.String())
		c.bus.Publish(event.NewStageCanceledEvent(c.reportID, t.Stage, string(t.Substep)))
		return Outcome{}, errors.NewStageError("execution canceled", errors.ErrCanceled).
			WithStage(t.Stage).WithSubstep(string(t.Substep)).WithSeverity(errors.SeverityInfo)
	}

	if err == nil && strings.TrimSpace(res.Text) == "" {
		err = fmt.Errorf("executor returned no output")
	}
	if err != nil {
		c.mu.Unlock()
		execErr := errors.NewExecutorError(t.Stage, string(t.Substep), err)
		logger.Error("stage failed", "error", execErr.Message(), "elapsed", elapsed.String())
		c.bus.Publish(event.NewStageFailedEvent(c.reportID, t.Stage, string(t.Substep), execErr.Message()))
		return Outcome{}, execErr
	}

	if res.Elapsed > 0 {
		elapsed = res.Elapsed
	}
	out, events := c.commit(t, res.Text, res.Concept, elapsed, false, input)
	c.mu.Unlock()

	logger.Info("stage completed", "elapsed", elapsed.String(), "pointer", out.Pointer)
	c.publish(events)
	return out, nil
}

// SubmitManual commits operator-supplied text for t as if an executor had
// returned it. No concept version is written and no time is recorded.
func (c *Coordinator) SubmitManual(t stage.Target, text string) (Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return Outcome{}, errors.NewStageError("manual content is empty", errors.ErrInvalidManualContent).
			WithStage(t.Stage).WithSubstep(string(t.Substep))
	}

	c.mu.Lock()
	if err := c.admit(t); err != nil {
		c.mu.Unlock()
		return Outcome{}, err
	}
	out, events := c.commit(t, text, "", 0, true, "")
	c.mu.Unlock()

	c.logger.WithStage(t.Stage).WithSubstep(string(t.Substep)).Info("manual result submitted", "pointer", out.Pointer)
	c.publish(events)
	return out, nil
}

// admit checks that t may start. Must be called with mu held.
func (c *Coordinator) admit(t stage.Target) error {
	if err := c.engine.CheckReady(t); err != nil {
		return err
	}
	if _, busy := c.inFlight[t.String()]; busy {
		return errors.NewStageError("execution already outstanding", errors.ErrAlreadyInProgress).
			WithStage(t.Stage).WithSubstep(string(t.Substep))
	}
	// The sub-steps of a reviewer share its stage result, so only one of
	// them may be outstanding at a time.
	for key, f := range c.inFlight {
		if f.stage == t.Stage && !f.followUp {
			return errors.NewStageError("execution already outstanding for "+key, errors.ErrAlreadyInProgress).
				WithStage(t.Stage).WithSubstep(string(t.Substep))
		}
	}
	return nil
}

// request builds the executor request for t. Must be called with mu held.
func (c *Coordinator) request(t stage.Target, input, customContext string) executor.Request {
	s, _ := c.catalog.Lookup(t.Stage)
	req := executor.Request{
		Stage:         s.Key,
		Label:         s.Label,
		Role:          s.Role,
		Substep:       t.Substep,
		Prompt:        s.Prompt,
		Input:         input,
		CustomContext: customContext,
	}
	if req.Label == "" {
		req.Label = s.Key
	}
	if _, concept, ok := c.store.LatestConcept(c.catalog.Keys()[:c.catalog.Index(t.Stage)]); ok {
		req.Concept = concept
	}
	if t.Substep == stage.SubstepProcessing {
		if r, ok := c.store.Substep(t.Stage); ok {
			req.Feedback = r.Review
		}
	}
	return req
}

// commit writes a confirmed result and re-evaluates the pointer. Must be
// called with mu held; the returned events are published by the caller
// after unlocking.
func (c *Coordinator) commit(t stage.Target, text, concept string, elapsed time.Duration, manual bool, input string) (Outcome, []event.Event) {
	switch t.Substep {
	case stage.SubstepReview:
		c.writeResult(t.Stage, text, "")
		c.store.SetSubstep(t.Stage, stage.SubstepReview, text)
	case stage.SubstepProcessing:
		c.store.SetSubstep(t.Stage, stage.SubstepProcessing, text)
		if concept != "" {
			c.writeConcept(t.Stage, concept)
		}
	default:
		c.writeResult(t.Stage, text, concept)
	}

	if !manual {
		c.timings[t.String()] = elapsed
	}

	out := Outcome{
		Target:  t,
		Text:    text,
		Concept: concept,
		Elapsed: elapsed,
		Manual:  manual,
	}
	events := []event.Event{
		event.NewStageCompletedEvent(c.reportID, t.Stage, string(t.Substep), elapsed, manual),
	}

	if gate, ok := c.catalog.Gate(); ok && t.Substep == "" && c.catalog.Index(t.Stage) == gate {
		if c.engine.GateBlocked(t.Stage) {
			out.GateBlocked = true
			events = append(events, event.NewGateBlockedEvent(c.reportID, t.Stage))
			c.startFollowUp(t.Stage, text, input)
		} else {
			c.dropFollowUp(t.Stage)
		}
	}

	from := c.pointer
	if c.catalog.Index(t.Stage) == from {
		c.pointer = c.engine.NextIndex(from)
	}
	out.Pointer = c.pointer
	out.Moved = c.pointer != from
	if out.Moved {
		events = append(events, event.NewPointerMovedEvent(c.reportID, from, c.pointer, c.catalog.Key(c.pointer)))
	}
	return out, events
}

// writeResult stores text (and concept, when set) for key, first under the
// next history key when history is enabled, so the canonical key is always
// the most recent write.
func (c *Coordinator) writeResult(key, text, concept string) {
	if c.history {
		run := c.store.NextRun(key)
		c.store.SetResult(artifact.HistoryKey(key, run), text)
		if concept != "" {
			c.store.SetConcept(artifact.HistoryKey(key, run), concept)
		}
	}
	c.store.SetResult(key, text)
	if concept != "" {
		c.store.SetConcept(key, concept)
	}
}

func (c *Coordinator) writeConcept(key, concept string) {
	if c.history {
		c.store.SetConcept(artifact.HistoryKey(key, c.store.NextRun(key)), concept)
	}
	c.store.SetConcept(key, concept)
}
