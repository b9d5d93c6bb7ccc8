// Package internal contains integration tests that verify the workflow
// packages work together: a coordinator driving the default pipeline, the
// event bus following it, and a report surviving a save and resume.
package internal

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/dossierworks/dossier/internal/artifact"
	"github.com/dossierworks/dossier/internal/coordinator"
	"github.com/dossierworks/dossier/internal/event"
	"github.com/dossierworks/dossier/internal/executor"
	"github.com/dossierworks/dossier/internal/snapshot"
	"github.com/dossierworks/dossier/internal/stage"
	"github.com/dossierworks/dossier/internal/transition"
)

// echoExecutor answers every request with its target and input.
var echoExecutor = executor.Func(func(_ context.Context, req executor.Request) (executor.Result, error) {
	target := req.Stage
	if req.Substep != "" {
		target += "/" + string(req.Substep)
	}
	return executor.Result{Text: target + ": " + req.Input}, nil
})

// runPipeline executes the stage under the pointer until the report is
// finished, returning the targets in the order they ran.
func runPipeline(t *testing.T, c *coordinator.Coordinator, input string) []string {
	t.Helper()

	var ran []string
	for i := 0; !c.Finished(); i++ {
		if i > 2*c.Catalog().Len() {
			t.Fatalf("pipeline did not finish; pointer stuck at %d", c.Pointer())
		}
		s := c.Catalog().At(c.Pointer())
		target := stage.For(s.Key)
		if s.IsReviewer() {
			target = stage.ForSubstep(s.Key, stage.SubstepReview)
			if r, ok := c.Store().Substep(s.Key); ok && r.Has(stage.SubstepReview) {
				target = stage.ForSubstep(s.Key, stage.SubstepProcessing)
			}
		}
		if _, err := c.Execute(context.Background(), target, input, ""); err != nil {
			t.Fatalf("Execute(%s) error = %v", target, err)
		}
		ran = append(ran, target.String())
	}
	return ran
}

// TestPipelineEvents runs the default pipeline and checks that every
// execution is announced on the bus in order.
func TestPipelineEvents(t *testing.T) {
	catalog := stage.Default()
	bus := event.NewBus(nil)

	var (
		mu     sync.Mutex
		events []string
	)
	bus.SubscribeAll(func(e event.Event) {
		mu.Lock()
		events = append(events, e.EventType())
		mu.Unlock()
	})

	store := artifact.NewStore(artifact.Options{MaxEntries: -1})
	c := coordinator.New(catalog, store, echoExecutor,
		coordinator.WithBus(bus),
		coordinator.WithClassifier(transition.MarkerClassifier(nil)))

	ran := runPipeline(t, c, "Casus Jansen")
	c.Wait()

	// Three generators, six reviewers with two sub-steps each, one final check.
	if got, want := len(ran), 3+6*2+1; got != want {
		t.Fatalf("ran %d targets, want %d: %v", got, want, ran)
	}

	mu.Lock()
	defer mu.Unlock()

	var started, completed int
	for _, typ := range events {
		switch typ {
		case event.TypeStageStarted:
			started++
		case event.TypeStageCompleted:
			completed++
		case event.TypeGateBlocked, event.TypeStageFailed:
			t.Errorf("unexpected %s event", typ)
		}
	}
	if started != len(ran) || completed != len(ran) {
		t.Errorf("started = %d, completed = %d, want %d each", started, completed, len(ran))
	}
	if events[0] != event.TypeStageStarted {
		t.Errorf("first event = %q, want %q", events[0], event.TypeStageStarted)
	}
}

// TestReportSurvivesSaveAndResume persists a half-finished report, loads it
// back and finishes it in a resumed session.
func TestReportSurvivesSaveAndResume(t *testing.T) {
	ctx := context.Background()
	catalog := stage.Default()
	classify := transition.MarkerClassifier(nil)
	opts := artifact.Options{MaxEntries: -1}

	reports, err := snapshot.NewFileStore(afero.NewMemMapFs(), "/data/reports")
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	r := snapshot.NewReport("Casus Jansen", "Box 3 vermogen")
	c := snapshot.Resume(catalog, classify, r, opts, echoExecutor)
	for _, target := range []stage.Target{
		stage.For(stage.KeyInformationCheck),
		stage.For(stage.KeyComplexityCheck),
		stage.For(stage.KeyGeneration),
		stage.ForSubstep(stage.KeySources, stage.SubstepReview),
	} {
		if _, err := c.Execute(ctx, target, r.RawText, ""); err != nil {
			t.Fatalf("Execute(%s) error = %v", target, err)
		}
	}
	before := c.Snapshot()
	if err := reports.Save(ctx, snapshot.Export(r, before)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := reports.Load(ctx, r.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	resumed := snapshot.Resume(catalog, classify, loaded, opts, echoExecutor)

	if got, want := resumed.Pointer(), catalog.Index(stage.KeySources); got != want {
		t.Errorf("resumed pointer = %d, want %d", got, want)
	}
	after := resumed.Snapshot()
	if diff := cmp.Diff(before.Results, after.Results); diff != "" {
		t.Errorf("results changed across save (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(before.Substeps, after.Substeps); diff != "" {
		t.Errorf("sub-steps changed across save (-before +after):\n%s", diff)
	}

	ran := runPipeline(t, resumed, loaded.RawText)
	if ran[0] != stage.KeySources+"/processing" {
		t.Errorf("resumed session started with %s, want the pending processing step", ran[0])
	}
	if err := reports.Save(ctx, snapshot.Export(loaded, resumed.Snapshot())); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	final, err := reports.Load(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	result := final.StageResults[stage.KeyFinalCheck]
	if !strings.HasPrefix(result, stage.KeyFinalCheck+": ") {
		t.Errorf("final check result = %q", result)
	}
}
