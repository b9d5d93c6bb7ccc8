// Package transition implements the stage-graph rules of the report
// pipeline as pure queries over a catalog and an artifact store.
//
// Nothing here caches: completeness is re-derived from the store on every
// call, so re-running or overwriting a stage can never leave a stale
// "complete" flag behind, and the stage pointer is always re-validated.
//
// The graph is not linear:
//   - ordinary stages advance by one once complete;
//   - the gate stage stays put until its own raw result is classified
//     complete, then advances to its target;
//   - the fan-out stage hands off to the first reviewer;
//   - reviewers self-loop until both sub-steps are present, then move to the
//     next reviewer or to the final stage;
//   - the final stage has no successor.
package transition

import (
	"github.com/dossierworks/dossier/internal/artifact"
	"github.com/dossierworks/dossier/internal/stage"
)

// Engine evaluates transitions for one catalog against one store.
// It holds no mutable state of its own.
type Engine struct {
	catalog  *stage.Catalog
	store    *artifact.Store
	classify GateClassifier
}

// New creates an Engine. A nil classifier treats every gate result as complete.
func New(catalog *stage.Catalog, store *artifact.Store, classify GateClassifier) *Engine {
	if classify == nil {
		classify = AlwaysComplete
	}
	return &Engine{catalog: catalog, store: store, classify: classify}
}

// Catalog returns the engine's catalog.
func (e *Engine) Catalog() *stage.Catalog {
	return e.catalog
}

// Store returns the engine's artifact store.
func (e *Engine) Store() *artifact.Store {
	return e.store
}

// IsComplete reports whether the stage has all results it needs:
// a raw result for generator and processor stages, or both sub-step
// results for reviewer stages. Unknown keys are never complete.
func (e *Engine) IsComplete(key string) bool {
	s, ok := e.catalog.Lookup(key)
	if !ok {
		return false
	}
	if s.IsReviewer() {
		r, ok := e.store.Substep(key)
		return ok && r.Complete()
	}
	return e.store.HasResult(key)
}

// GateBlocked reports whether key is the gate stage, has a result, and that
// result is currently classified incomplete.
func (e *Engine) GateBlocked(key string) bool {
	gate, ok := e.catalog.Gate()
	if !ok || e.catalog.Key(gate) != key {
		return false
	}
	text, ok := e.store.Result(key)
	if !ok {
		return false
	}
	return !e.classify(text)
}

// Cleared reports whether downstream stages may rely on key: it is complete
// and, for the gate, its result is classified complete.
func (e *Engine) Cleared(key string) bool {
	return e.IsComplete(key) && !e.GateBlocked(key)
}

// NextIndex returns the stage pointer that follows current. The result is
// always a valid index; out-of-range input is clamped first.
func (e *Engine) NextIndex(current int) int {
	i := e.catalog.Clamp(current)
	s := e.catalog.At(i)

	switch {
	case s.Final:
		return i
	case s.Gate:
		// A gate without a result has nothing to classify yet.
		if !e.IsComplete(s.Key) || e.GateBlocked(s.Key) {
			return i
		}
		return e.catalog.GateTarget()
	case s.IsReviewer():
		if !e.IsComplete(s.Key) {
			return i
		}
		return e.catalog.NextReviewer(i)
	case s.FanOut:
		return e.catalog.Reviewers()[0]
	default:
		return e.catalog.Clamp(i + 1)
	}
}

// FirstIncomplete returns the index of the first stage that is not cleared,
// or the final index when every stage is cleared.
func (e *Engine) FirstIncomplete() int {
	for i := 0; i < e.catalog.Len(); i++ {
		if !e.Cleared(e.catalog.Key(i)) {
			return i
		}
	}
	return e.catalog.Final()
}

// Finished reports whether the final stage is complete.
func (e *Engine) Finished() bool {
	return e.IsComplete(e.catalog.Key(e.catalog.Final()))
}
