package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/dossierworks/dossier/internal/errors"
	"github.com/dossierworks/dossier/internal/event"
	"github.com/dossierworks/dossier/internal/executor"
	"github.com/dossierworks/dossier/internal/stage"
)

// Cancel aborts the outstanding call for t. It reports whether there was
// one. The canceled call writes nothing.
func (c *Coordinator) Cancel(t stage.Target) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.inFlight[t.String()]
	if !ok {
		return false
	}
	f.canceled = true
	f.cancel()
	return true
}

// Navigate moves the pointer to stage i without running anything.
func (c *Coordinator) Navigate(i int) error {
	c.mu.Lock()
	if i < 0 || i >= c.catalog.Len() {
		c.mu.Unlock()
		return errors.NewStageError(fmt.Sprintf("index %d out of range [0,%d)", i, c.catalog.Len()), errors.ErrInvalidInput)
	}
	from := c.pointer
	c.pointer = i
	c.mu.Unlock()

	if from != i {
		c.logger.Debug("pointer moved", "from", from, "to", i)
		c.bus.Publish(event.NewPointerMovedEvent(c.reportID, from, i, c.catalog.Key(i)))
	}
	return nil
}

// Reset discards the results of key and of every stage after it, and moves
// the pointer to key. Drafted follow-ups of those stages are discarded and
// their background calls canceled. Reset is refused with
// ErrAlreadyInProgress while any affected stage has an operator-started
// call outstanding.
func (c *Coordinator) Reset(key string) ([]string, error) {
	c.mu.Lock()
	i := c.catalog.Index(key)
	if i < 0 {
		c.mu.Unlock()
		return nil, errors.NewStageError("not in catalog", errors.ErrUnknownStage).WithStage(key)
	}

	affected := c.catalog.KeysFrom(i)
	drop := make(map[string]bool, len(affected))
	for _, k := range affected {
		drop[k] = true
	}
	for target, f := range c.inFlight {
		if drop[f.stage] && !f.followUp {
			c.mu.Unlock()
			return nil, errors.NewStageError(fmt.Sprintf("%s is still running", target), errors.ErrAlreadyInProgress).
				WithStage(key)
		}
	}
	for target, f := range c.inFlight {
		if drop[f.stage] {
			f.canceled = true
			f.cancel()
			delete(c.inFlight, target)
		}
	}

	c.store.Reset(affected...)
	for target := range c.timings {
		if drop[targetStage(target)] {
			delete(c.timings, target)
		}
	}
	for k := range c.followUps {
		if drop[k] {
			delete(c.followUps, k)
		}
	}

	from := c.pointer
	c.pointer = i
	c.mu.Unlock()

	c.logger.WithStage(key).Info("stages reset", "cleared", strings.Join(affected, ","))
	c.bus.Publish(event.NewStageResetEvent(c.reportID, key, affected))
	if from != i {
		c.bus.Publish(event.NewPointerMovedEvent(c.reportID, from, i, key))
	}
	return affected, nil
}

// targetStage returns the stage part of a target string.
func targetStage(target string) string {
	key, _, _ := strings.Cut(target, "/")
	return key
}

// dropFollowUp cancels a follow-up still being drafted for gate and forgets
// the stored one. Must be called with mu held.
func (c *Coordinator) dropFollowUp(gate string) {
	key := gate + followUpSuffix
	if f, ok := c.inFlight[key]; ok {
		f.canceled = true
		f.cancel()
		delete(c.inFlight, key)
	}
	delete(c.followUps, gate)
}

// startFollowUp drafts a follow-up for a blocked gate in the background.
// A newer gate result replaces a follow-up that is still being drafted.
// Must be called with mu held.
func (c *Coordinator) startFollowUp(gate, gateResult, input string) {
	if c.followUp == nil {
		return
	}
	key := gate + followUpSuffix
	if prev, ok := c.inFlight[key]; ok {
		prev.canceled = true
		prev.cancel()
	}

	s, _ := c.catalog.Lookup(gate)
	req := executor.Request{
		Stage:    gate,
		Label:    s.Label,
		Role:     s.Role,
		Prompt:   executor.DefaultFollowUpPrompt,
		Input:    input,
		Feedback: gateResult,
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &flight{stage: gate, started: c.now(), cancel: cancel, followUp: true}
	c.inFlight[key] = f

	logger := c.logger.WithStage(gate).With("task", "follow_up")
	c.background.Go(func() {
		defer cancel()
		res, err := c.followUp.Execute(ctx, req)

		c.mu.Lock()
		current := c.inFlight[key] == f
		if current {
			delete(c.inFlight, key)
		}
		if f.canceled || !current || !c.engine.GateBlocked(gate) {
			c.mu.Unlock()
			logger.Debug("follow-up discarded")
			return
		}
		if err == nil && strings.TrimSpace(res.Text) == "" {
			err = fmt.Errorf("executor returned no output")
		}
		if err == nil {
			c.followUps[gate] = res.Text
		}
		c.mu.Unlock()

		if err != nil {
			logger.Warn("follow-up failed", "error", err.Error())
			c.bus.Publish(event.NewFollowUpCompletedEvent(c.reportID, gate, err.Error()))
			return
		}
		logger.Info("follow-up drafted")
		c.bus.Publish(event.NewFollowUpCompletedEvent(c.reportID, gate, ""))
	})
}
