package transition

import (
	"fmt"

	"github.com/dossierworks/dossier/internal/errors"
	"github.com/dossierworks/dossier/internal/stage"
)

// Validate checks that target names a stage in the catalog, and that the
// sub-step is addressed exactly when the stage is a reviewer.
func (e *Engine) Validate(t stage.Target) error {
	s, ok := e.catalog.Lookup(t.Stage)
	if !ok {
		return errors.NewStageError("not in catalog", errors.ErrUnknownStage).WithStage(t.Stage)
	}
	switch {
	case s.IsReviewer() && t.Substep == "":
		return errors.NewStageError("reviewer stages run per sub-step", errors.ErrUnknownStage).
			WithStage(t.Stage)
	case s.IsReviewer() && !s.HasSubstep(t.Substep):
		return errors.NewStageError("no such sub-step", errors.ErrUnknownStage).
			WithStage(t.Stage).WithSubstep(string(t.Substep))
	case !s.IsReviewer() && t.Substep != "":
		return errors.NewStageError("stage has no sub-steps", errors.ErrUnknownStage).
			WithStage(t.Stage).WithSubstep(string(t.Substep))
	}
	return nil
}

// Prerequisite returns the target that must be satisfied before t may run.
// For a processing sub-step that is its sibling review; otherwise it is the
// stage the pointer visits before t's stage, which is the previous stage in
// catalog order unless the gate target, the fan-out or the last reviewer
// skips ahead. The first stage has none.
func (e *Engine) Prerequisite(t stage.Target) (stage.Target, bool) {
	if t.Substep == stage.SubstepProcessing {
		return stage.ForSubstep(t.Stage, stage.SubstepReview), true
	}
	prev, ok := e.catalog.Predecessor(e.catalog.Index(t.Stage))
	if !ok {
		return stage.Target{}, false
	}
	return stage.For(e.catalog.Key(prev)), true
}

// satisfied reports whether t counts as done for the purpose of gating the
// targets that depend on it.
func (e *Engine) satisfied(t stage.Target) bool {
	if t.Substep != "" {
		r, ok := e.store.Substep(t.Stage)
		return ok && r.Has(t.Substep)
	}
	return e.Cleared(t.Stage)
}

// CheckReady returns nil when t may run now, or a NotReady error naming the
// unmet prerequisite. Unknown targets yield an UnknownStage error.
func (e *Engine) CheckReady(t stage.Target) error {
	if err := e.Validate(t); err != nil {
		return err
	}
	for cur := t; ; {
		pre, ok := e.Prerequisite(cur)
		if !ok {
			return nil
		}
		if !e.satisfied(pre) {
			msg := fmt.Sprintf("%s must complete first", pre)
			if pre.Substep == "" && e.GateBlocked(pre.Stage) {
				msg = fmt.Sprintf("%s reports incomplete information", pre)
			}
			return errors.NewStageError(msg, errors.ErrNotReady).
				WithStage(t.Stage).WithSubstep(string(t.Substep))
		}
		if pre.Stage != cur.Stage || pre.Substep == "" {
			return nil
		}
		// A processing sub-step also inherits the review's own prerequisite.
		cur = pre
	}
}

// CanExecute reports whether t may run now.
func (e *Engine) CanExecute(t stage.Target) bool {
	return e.CheckReady(t) == nil
}
