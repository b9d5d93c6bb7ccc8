package snapshot

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dossierworks/dossier/internal/artifact"
	"github.com/dossierworks/dossier/internal/coordinator"
	"github.com/dossierworks/dossier/internal/executor"
	"github.com/dossierworks/dossier/internal/stage"
	"github.com/dossierworks/dossier/internal/transition"
)

// Hydrate copies the artifact maps of r into a fresh store bounded by opts
// and computes the stage pointer: one past the highest complete stage,
// clamped to the final stage, or the gate's own index while its result is
// classified incomplete. Hydrating the same report twice yields the same
// store contents and pointer.
func Hydrate(catalog *stage.Catalog, classify transition.GateClassifier, r *Report, opts artifact.Options) (*artifact.Store, int) {
	store := artifact.NewStore(opts)

	for _, k := range writeOrder(catalog, r.StageResults) {
		store.SetResult(k, r.StageResults[k])
	}
	for _, k := range writeOrder(catalog, r.ConceptReportVersions) {
		store.SetConcept(k, r.ConceptReportVersions[k])
	}
	for _, k := range writeOrder(catalog, r.SubstepResults) {
		sub := r.SubstepResults[k]
		// Review first: writing it clears processing.
		if sub.Review != "" {
			store.SetSubstep(k, stage.SubstepReview, sub.Review)
		}
		if sub.Processing != "" {
			store.SetSubstep(k, stage.SubstepProcessing, sub.Processing)
		}
	}

	return store, Pointer(transition.New(catalog, store, classify))
}

// Pointer computes the resume pointer for the store behind e.
func Pointer(e *transition.Engine) int {
	catalog := e.Catalog()
	if gate, ok := catalog.Gate(); ok && e.GateBlocked(catalog.Key(gate)) {
		return gate
	}
	highest := -1
	for i := 0; i < catalog.Len(); i++ {
		if e.IsComplete(catalog.Key(i)) {
			highest = i
		}
	}
	if highest < 0 {
		return 0
	}
	return e.NextIndex(highest)
}

// Resume hydrates r and returns a coordinator continuing its session.
// opts are applied after the options derived from the report.
func Resume(catalog *stage.Catalog, classify transition.GateClassifier, r *Report, storeOpts artifact.Options,
	exec executor.StageExecutor, opts ...coordinator.Option) *coordinator.Coordinator {
	store, pointer := Hydrate(catalog, classify, r, storeOpts)
	base := []coordinator.Option{
		coordinator.WithReportID(r.ID),
		coordinator.WithClassifier(classify),
		coordinator.WithPointer(pointer),
		coordinator.WithTimings(r.Timings()),
		coordinator.WithFollowUps(r.FollowUps),
	}
	return coordinator.New(catalog, store, exec, append(base, opts...)...)
}

// writeOrder sorts keys so that replaying them reproduces the recency the
// store evicts by: stages in catalog order (unknown stages last, by name),
// and within a stage the history runs ascending before the canonical key.
func writeOrder[V any](catalog *stage.Catalog, m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		bi, bj := artifact.BaseKey(keys[i]), artifact.BaseKey(keys[j])
		if bi != bj {
			ii, ij := catalog.Index(bi), catalog.Index(bj)
			switch {
			case ii < 0 && ij < 0:
				return bi < bj
			case ii < 0:
				return false
			case ij < 0:
				return true
			case ii != ij:
				return ii < ij
			}
			return bi < bj
		}
		return run(keys[i]) < run(keys[j])
	})
	return keys
}

// run returns the history run of key, with the canonical key sorting last.
func run(key string) int {
	base := artifact.BaseKey(key)
	if base == key {
		return int(^uint(0) >> 1)
	}
	n, _ := strconv.Atoi(strings.TrimPrefix(key[len(base):], "#"))
	return n
}
