// Package snapshot converts between persisted reports and live session
// state. It is the only package that knows the persisted format.
//
// A [Report] is the logical record of one case: the operator's input plus
// the three artifact maps, drafted follow-ups and stage timings. [Hydrate]
// rebuilds an artifact store and stage pointer from it; [Export] folds a
// coordinator's state back into it. [FileStore] keeps reports as JSON files.
package snapshot

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dossierworks/dossier/internal/artifact"
	"github.com/dossierworks/dossier/internal/coordinator"
)

// Report is a persisted case report.
type Report struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	RawText string `json:"raw_text"`

	StageResults          map[string]string                 `json:"stage_results"`
	ConceptReportVersions map[string]string                 `json:"concept_report_versions"`
	SubstepResults        map[string]artifact.SubstepResult `json:"substep_results"`

	FollowUps map[string]string `json:"follow_ups,omitempty"`
	// StageTimings holds milliseconds keyed by target ("stage" or "stage/substep").
	StageTimings map[string]int64 `json:"stage_timings_ms,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewReport creates an empty report with a fresh ID.
func NewReport(title, rawText string) *Report {
	now := time.Now().UTC()
	return &Report{
		ID:                    uuid.NewString(),
		Title:                 strings.TrimSpace(title),
		RawText:               rawText,
		StageResults:          map[string]string{},
		ConceptReportVersions: map[string]string{},
		SubstepResults:        map[string]artifact.SubstepResult{},
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// Timings returns StageTimings as durations.
func (r *Report) Timings() map[string]time.Duration {
	out := make(map[string]time.Duration, len(r.StageTimings))
	for k, ms := range r.StageTimings {
		out[k] = time.Duration(ms) * time.Millisecond
	}
	return out
}

// Export returns a copy of r carrying the session state st.
func Export(r *Report, st coordinator.State) *Report {
	out := *r
	out.StageResults = st.Results
	out.ConceptReportVersions = st.Concepts
	out.SubstepResults = st.Substeps
	out.FollowUps = st.FollowUps
	out.StageTimings = make(map[string]int64, len(st.Timings))
	for k, d := range st.Timings {
		out.StageTimings[k] = d.Milliseconds()
	}
	out.UpdatedAt = time.Now().UTC()
	return &out
}
