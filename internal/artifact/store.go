// Package artifact provides the bounded in-memory store for per-stage
// artifacts of a report session.
//
// Three independent maps are kept: raw stage results, concept-report
// versions, and reviewer sub-step results. Writes overwrite; nothing is
// ever appended. Each map is bounded: once a write pushes a map past its
// limit, entries are evicted except the latest entry of every base stage
// and the most recently written raw keys. See [Options].
//
// Keys may carry a run-iteration suffix ("3_generatie#2"); [BaseKey] strips
// it. History keys let callers keep a bounded trail of re-runs next to the
// canonical key, which always holds the current value.
package artifact

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dossierworks/dossier/internal/stage"
)

const (
	// DefaultMaxEntries bounds each map when Options.MaxEntries is zero.
	DefaultMaxEntries = 64
	// DefaultKeepRecent is the number of most recent raw keys always kept.
	DefaultKeepRecent = 16

	historySep = "#"
)

// Options configures the eviction bound of a Store.
type Options struct {
	// MaxEntries is the maximum number of entries per map before eviction.
	// Negative disables eviction.
	MaxEntries int
	// KeepRecent is the number of most recently written keys kept on
	// eviction in addition to the latest key per base stage.
	KeepRecent int
}

func (o Options) normalized() Options {
	if o.MaxEntries == 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	if o.KeepRecent < 0 {
		o.KeepRecent = 0
	}
	return o
}

// SubstepResult holds the two halves of a reviewer stage. An empty string
// means the sub-step has no result.
type SubstepResult struct {
	Review     string `json:"review,omitempty"`
	Processing string `json:"processing,omitempty"`
}

// Has reports whether the given sub-step has a result.
func (r SubstepResult) Has(role stage.SubstepRole) bool {
	switch role {
	case stage.SubstepReview:
		return r.Review != ""
	case stage.SubstepProcessing:
		return r.Processing != ""
	}
	return false
}

// Complete reports whether both sub-steps have results.
func (r SubstepResult) Complete() bool {
	return r.Review != "" && r.Processing != ""
}

type textEntry struct {
	text string
	seq  uint64
}

type substepEntry struct {
	result SubstepResult
	seq    uint64
}

// Sizes reports the entry count of each map.
type Sizes struct {
	Results  int
	Concepts int
	Substeps int
}

// Store is the bounded artifact store of one session.
// It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	opts     Options
	seq      uint64
	results  map[string]textEntry
	concepts map[string]textEntry
	substeps map[string]substepEntry
}

// NewStore creates an empty Store.
func NewStore(opts Options) *Store {
	return &Store{
		opts:     opts.normalized(),
		results:  make(map[string]textEntry),
		concepts: make(map[string]textEntry),
		substeps: make(map[string]substepEntry),
	}
}

// Options returns the store's effective eviction options.
func (s *Store) Options() Options {
	return s.opts
}

// BaseKey strips a run-iteration suffix from key.
func BaseKey(key string) string {
	i := strings.LastIndex(key, historySep)
	if i <= 0 {
		return key
	}
	if _, err := strconv.Atoi(key[i+1:]); err != nil {
		return key
	}
	return key[:i]
}

// HistoryKey returns the key of run n of a stage.
func HistoryKey(key string, run int) string {
	return fmt.Sprintf("%s%s%d", key, historySep, run)
}

func (s *Store) next() uint64 {
	s.seq++
	return s.seq
}

// SetResult stores the raw output of a stage, overwriting any previous value.
func (s *Store) SetResult(key, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[key] = textEntry{text: text, seq: s.next()}
	evictText(s.results, s.opts)
}

// SetConcept stores the concept-report version produced by a stage.
func (s *Store) SetConcept(key, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.concepts[key] = textEntry{text: text, seq: s.next()}
	evictText(s.concepts, s.opts)
}

// SetSubstep stores one half of a reviewer stage. Writing the review clears
// any processing result, because processing is derived from the review it
// followed and must be re-run before the stage counts as complete again.
func (s *Store) SetSubstep(key string, role stage.SubstepRole, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.substeps[key]
	switch role {
	case stage.SubstepReview:
		e.result.Review = text
		e.result.Processing = ""
	case stage.SubstepProcessing:
		e.result.Processing = text
	default:
		return
	}
	e.seq = s.next()
	s.substeps[key] = e
	evictSubsteps(s.substeps, s.opts)
}

// Result returns the raw output stored for key.
func (s *Store) Result(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.results[key]
	return e.text, ok
}

// HasResult reports whether key has a raw output.
func (s *Store) HasResult(key string) bool {
	_, ok := s.Result(key)
	return ok
}

// Concept returns the concept-report version stored for key.
func (s *Store) Concept(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.concepts[key]
	return e.text, ok
}

// Substep returns the sub-step results stored for key.
func (s *Store) Substep(key string) (SubstepResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.substeps[key]
	return e.result, ok
}

// LatestConcept returns the concept version of the last stage in order that
// has one. order is typically the catalog's key list.
func (s *Store) LatestConcept(order []string) (key, text string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(order) - 1; i >= 0; i-- {
		if e, found := s.concepts[order[i]]; found {
			return order[i], e.text, true
		}
	}
	return "", "", false
}

// NextRun returns the next run number for key, one past the highest history
// suffix present in any map.
func (s *Store) NextRun(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	highest := 0
	scan := func(k string) {
		if BaseKey(k) != key || k == key {
			return
		}
		n, _ := strconv.Atoi(k[len(key)+len(historySep):])
		if n > highest {
			highest = n
		}
	}
	for k := range s.results {
		scan(k)
	}
	for k := range s.concepts {
		scan(k)
	}
	for k := range s.substeps {
		scan(k)
	}
	return highest + 1
}

// Reset removes every entry whose base key is in keys, from all three maps.
func (s *Store) Reset(keys ...string) {
	if len(keys) == 0 {
		return
	}
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[BaseKey(k)] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.results {
		if drop[BaseKey(k)] {
			delete(s.results, k)
		}
	}
	for k := range s.concepts {
		if drop[BaseKey(k)] {
			delete(s.concepts, k)
		}
	}
	for k := range s.substeps {
		if drop[BaseKey(k)] {
			delete(s.substeps, k)
		}
	}
}

// Results returns a copy of the raw output map.
func (s *Store) Results() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyText(s.results)
}

// Concepts returns a copy of the concept-version map.
func (s *Store) Concepts() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyText(s.concepts)
}

// Substeps returns a copy of the sub-step map.
func (s *Store) Substeps() map[string]SubstepResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]SubstepResult, len(s.substeps))
	for k, e := range s.substeps {
		out[k] = e.result
	}
	return out
}

// Len returns the entry count of each map.
func (s *Store) Len() Sizes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Sizes{Results: len(s.results), Concepts: len(s.concepts), Substeps: len(s.substeps)}
}

func copyText(m map[string]textEntry) map[string]string {
	out := make(map[string]string, len(m))
	for k, e := range m {
		out[k] = e.text
	}
	return out
}

func evictText(m map[string]textEntry, opts Options) {
	if opts.MaxEntries < 0 || len(m) <= opts.MaxEntries {
		return
	}
	seqs := make(map[string]uint64, len(m))
	for k, e := range m {
		seqs[k] = e.seq
	}
	for _, k := range evictionSet(seqs, opts.KeepRecent) {
		delete(m, k)
	}
}

func evictSubsteps(m map[string]substepEntry, opts Options) {
	if opts.MaxEntries < 0 || len(m) <= opts.MaxEntries {
		return
	}
	seqs := make(map[string]uint64, len(m))
	for k, e := range m {
		seqs[k] = e.seq
	}
	for _, k := range evictionSet(seqs, opts.KeepRecent) {
		delete(m, k)
	}
}

// evictionSet returns the keys to drop: everything except the most recently
// written key of each base stage and the keepRecent most recent keys overall.
// Sequence numbers are unique, so the result is deterministic.
func evictionSet(seqs map[string]uint64, keepRecent int) []string {
	latest := make(map[string]string)
	for k, seq := range seqs {
		base := BaseKey(k)
		if cur, ok := latest[base]; !ok || seqs[cur] < seq {
			latest[base] = k
		}
	}

	keep := make(map[string]bool, len(latest)+keepRecent)
	for _, k := range latest {
		keep[k] = true
	}

	ordered := make([]string, 0, len(seqs))
	for k := range seqs {
		ordered = append(ordered, k)
	}
	sort.Slice(ordered, func(i, j int) bool { return seqs[ordered[i]] > seqs[ordered[j]] })
	for i := 0; i < keepRecent && i < len(ordered); i++ {
		keep[ordered[i]] = true
	}

	var evict []string
	for _, k := range ordered {
		if !keep[k] {
			evict = append(evict, k)
		}
	}
	return evict
}
