package artifact

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/dossierworks/dossier/internal/stage"
	"github.com/google/go-cmp/cmp"
)

func TestBaseKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3_generatie", "3_generatie"},
		{"3_generatie#2", "3_generatie"},
		{"3_generatie#12", "3_generatie"},
		{"3_generatie#x", "3_generatie#x"},
		{"#4", "#4"},
		{"a#1#2", "a#1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := BaseKey(tt.in); got != tt.want {
				t.Errorf("BaseKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	if got := HistoryKey("A", 3); got != "A#3" {
		t.Errorf("HistoryKey() = %q, want %q", got, "A#3")
	}
}

func TestStore_SetOverwrites(t *testing.T) {
	s := NewStore(Options{})

	s.SetResult("A", "first")
	s.SetResult("A", "second")
	s.SetConcept("A", "concept v1")
	s.SetConcept("A", "concept v2")

	if got, _ := s.Result("A"); got != "second" {
		t.Errorf("Result(A) = %q, want %q", got, "second")
	}
	if got, _ := s.Concept("A"); got != "concept v2" {
		t.Errorf("Concept(A) = %q, want %q", got, "concept v2")
	}
	if got := s.Len(); got != (Sizes{Results: 1, Concepts: 1}) {
		t.Errorf("Len() = %+v, want one result and one concept", got)
	}
}

func TestStore_SetSubstep(t *testing.T) {
	s := NewStore(Options{})

	s.SetSubstep("B", stage.SubstepReview, "feedback")
	got, ok := s.Substep("B")
	if !ok || got.Review != "feedback" || got.Complete() {
		t.Fatalf("after review: Substep(B) = %+v, %v", got, ok)
	}

	s.SetSubstep("B", stage.SubstepProcessing, "merged")
	got, _ = s.Substep("B")
	if !got.Complete() {
		t.Fatalf("after processing: Complete() = false, result %+v", got)
	}

	t.Run("re-running review invalidates processing", func(t *testing.T) {
		s.SetSubstep("B", stage.SubstepReview, "feedback v2")
		got, _ := s.Substep("B")
		if got.Complete() {
			t.Error("Complete() = true after review overwrite, want false")
		}
		if got.Has(stage.SubstepProcessing) {
			t.Errorf("processing = %q, want cleared", got.Processing)
		}
		if got.Review != "feedback v2" {
			t.Errorf("review = %q, want %q", got.Review, "feedback v2")
		}
	})

	t.Run("unknown role is ignored", func(t *testing.T) {
		before := s.Substeps()
		s.SetSubstep("B", "other", "x")
		if diff := cmp.Diff(before, s.Substeps()); diff != "" {
			t.Errorf("store changed (-before +after):\n%s", diff)
		}
	})
}

func TestStore_Reset(t *testing.T) {
	s := NewStore(Options{})
	s.SetResult("A", "a")
	s.SetResult(HistoryKey("B", 1), "b1")
	s.SetResult("B", "b")
	s.SetConcept("B", "cb")
	s.SetSubstep("B", stage.SubstepReview, "r")
	s.SetResult("C", "c")

	s.Reset("B", "C")

	if diff := cmp.Diff(map[string]string{"A": "a"}, s.Results()); diff != "" {
		t.Errorf("Results() mismatch (-want +got):\n%s", diff)
	}
	if got := s.Len(); got != (Sizes{Results: 1}) {
		t.Errorf("Len() = %+v, want only A", got)
	}
}

func TestStore_NextRun(t *testing.T) {
	s := NewStore(Options{})
	if got := s.NextRun("A"); got != 1 {
		t.Errorf("NextRun() on empty store = %d, want 1", got)
	}

	s.SetResult(HistoryKey("A", 1), "x")
	s.SetConcept(HistoryKey("A", 4), "x")
	s.SetResult("A", "x")
	s.SetResult(HistoryKey("AB", 9), "x")

	if got := s.NextRun("A"); got != 5 {
		t.Errorf("NextRun(A) = %d, want 5", got)
	}
}

func TestStore_LatestConcept(t *testing.T) {
	s := NewStore(Options{})
	order := []string{"A", "B", "C"}

	if _, _, ok := s.LatestConcept(order); ok {
		t.Error("LatestConcept() ok = true on empty store")
	}

	s.SetConcept("A", "v1")
	s.SetConcept("B", "v2")
	key, text, ok := s.LatestConcept(order)
	if !ok || key != "B" || text != "v2" {
		t.Errorf("LatestConcept() = %q, %q, %v; want B, v2, true", key, text, ok)
	}
}

func TestStore_EvictionKeepsLatestPerBase(t *testing.T) {
	s := NewStore(Options{MaxEntries: 6, KeepRecent: 2})

	for run := 1; run <= 5; run++ {
		for _, key := range []string{"A", "B", "C"} {
			s.SetResult(HistoryKey(key, run), fmt.Sprintf("%s run %d", key, run))
			s.SetResult(key, fmt.Sprintf("%s run %d", key, run))
		}
	}

	results := s.Results()
	if len(results) > 6 {
		t.Errorf("len(Results()) = %d, want <= 6", len(results))
	}
	for _, key := range []string{"A", "B", "C"} {
		if got := results[key]; got != key+" run 5" {
			t.Errorf("Results()[%s] = %q, want latest run", key, got)
		}
	}
}

func TestStore_EvictionKeepsMostRecentRawKeys(t *testing.T) {
	s := NewStore(Options{MaxEntries: 3, KeepRecent: 2})

	s.SetResult("A#1", "1")
	s.SetResult("A#2", "2")
	s.SetResult("A#3", "3")
	s.SetResult("A#4", "4")

	want := map[string]string{"A#3": "3", "A#4": "4"}
	if diff := cmp.Diff(want, s.Results()); diff != "" {
		t.Errorf("Results() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_EvictionDisabled(t *testing.T) {
	s := NewStore(Options{MaxEntries: -1})
	for i := 0; i < 200; i++ {
		s.SetResult(HistoryKey("A", i), "x")
	}
	if got := s.Len().Results; got != 200 {
		t.Errorf("Len().Results = %d, want 200", got)
	}
}

// For any write sequence, the most recent entry of every base stage that was
// ever written survives eviction.
func TestStore_EvictionProperty(t *testing.T) {
	bases := []string{"A", "B", "C", "D", "E"}

	for seed := int64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			s := NewStore(Options{MaxEntries: 4, KeepRecent: 1})
			latest := make(map[string]string) // base -> key last written

			for i := 0; i < 200; i++ {
				base := bases[rng.Intn(len(bases))]
				key := base
				if rng.Intn(2) == 0 {
					key = HistoryKey(base, rng.Intn(10))
				}
				val := fmt.Sprintf("v%d", i)
				s.SetResult(key, val)
				s.SetConcept(key, val)
				s.SetSubstep(key, stage.SubstepReview, val)
				latest[base] = key
			}

			results, concepts, substeps := s.Results(), s.Concepts(), s.Substeps()
			for base, key := range latest {
				if _, ok := results[key]; !ok {
					t.Errorf("result %s (latest of %s) evicted", key, base)
				}
				if _, ok := concepts[key]; !ok {
					t.Errorf("concept %s (latest of %s) evicted", key, base)
				}
				if _, ok := substeps[key]; !ok {
					t.Errorf("substep %s (latest of %s) evicted", key, base)
				}
			}
		})
	}
}

func TestStore_ConcurrentWrites(t *testing.T) {
	s := NewStore(Options{MaxEntries: 8, KeepRecent: 2})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			key := fmt.Sprintf("S%d", g)
			for i := 0; i < 50; i++ {
				s.SetResult(HistoryKey(key, i), "x")
				s.SetResult(key, fmt.Sprintf("%d", i))
			}
		}(g)
	}
	wg.Wait()

	results := s.Results()
	for g := 0; g < 8; g++ {
		key := fmt.Sprintf("S%d", g)
		if got := results[key]; got != "49" {
			t.Errorf("Results()[%s] = %q, want %q", key, got, "49")
		}
	}
}
