// Package stage describes the immutable ordered pipeline of report stages.
//
// A [Catalog] fixes the total order of stages for the lifetime of a session
// and records which stages branch: the gate stage (whose own output decides
// whether the pipeline may advance), the fan-out generator that hands off to
// the reviewer stages, and the final stage that terminates the pipeline.
// Reviewer stages carry an ordered review/processing sub-step pair.
//
// Catalogs are pure data. Construction validates the graph; a catalog that
// fails validation is a programming error, so [MustNew] panics while [New]
// returns the error for loaders of user-supplied definitions.
package stage

import "fmt"

// Role classifies how a stage participates in the pipeline.
type Role string

const (
	// RoleGenerator stages produce a new result from the case input.
	RoleGenerator Role = "generator"
	// RoleReviewer stages critique the draft and then merge their feedback.
	RoleReviewer Role = "reviewer"
	// RoleProcessor stages transform accumulated results (e.g. the final check).
	RoleProcessor Role = "processor"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGenerator, RoleReviewer, RoleProcessor:
		return true
	}
	return false
}

// SubstepRole identifies one half of a reviewer stage.
type SubstepRole string

const (
	// SubstepReview produces the reviewer's feedback.
	SubstepReview SubstepRole = "review"
	// SubstepProcessing merges that feedback into the concept report.
	SubstepProcessing SubstepRole = "processing"
)

// Valid reports whether r is one of the known sub-step roles.
func (r SubstepRole) Valid() bool {
	return r == SubstepReview || r == SubstepProcessing
}

// Substep describes one sub-step of a reviewer stage.
type Substep struct {
	Key  string      `json:"key" yaml:"key"`
	Role SubstepRole `json:"role" yaml:"role"`
}

// ReviewerSubsteps returns the ordered sub-step pair every reviewer stage uses.
func ReviewerSubsteps() []Substep {
	return []Substep{
		{Key: string(SubstepReview), Role: SubstepReview},
		{Key: string(SubstepProcessing), Role: SubstepProcessing},
	}
}

// Stage is a single step of the report pipeline.
type Stage struct {
	Key      string    `json:"key" yaml:"key"`
	Label    string    `json:"label" yaml:"label"`
	Role     Role      `json:"role" yaml:"role"`
	Substeps []Substep `json:"substeps,omitempty" yaml:"substeps,omitempty"`

	// Prompt is an optional text/template rendered by executors.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`

	// Gate marks the information-completeness stage. Target names the stage
	// the pipeline advances to once the gate is cleared; empty means the
	// next stage in order.
	Gate   bool   `json:"gate,omitempty" yaml:"gate,omitempty"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`

	// FanOut marks the generator that hands off to the reviewer stages.
	FanOut bool `json:"fan_out,omitempty" yaml:"fan_out,omitempty"`

	// Final marks the terminal stage.
	Final bool `json:"final,omitempty" yaml:"final,omitempty"`
}

// IsReviewer reports whether the stage has review/processing sub-steps.
func (s Stage) IsReviewer() bool {
	return s.Role == RoleReviewer
}

// HasSubstep reports whether the stage declares a sub-step with the given role.
func (s Stage) HasSubstep(role SubstepRole) bool {
	for _, sub := range s.Substeps {
		if sub.Role == role {
			return true
		}
	}
	return false
}

// Substep returns the descriptor for the given role.
func (s Stage) Substep(role SubstepRole) (Substep, bool) {
	for _, sub := range s.Substeps {
		if sub.Role == role {
			return sub, true
		}
	}
	return Substep{}, false
}

// clone returns a deep copy of the stage.
func (s Stage) clone() Stage {
	out := s
	if len(s.Substeps) > 0 {
		out.Substeps = make([]Substep, len(s.Substeps))
		copy(out.Substeps, s.Substeps)
	}
	return out
}

// Target addresses a stage, or one sub-step of a reviewer stage.
// The zero Substep addresses the stage as a whole.
type Target struct {
	Stage   string
	Substep SubstepRole
}

// For returns a Target addressing the whole stage.
func For(key string) Target {
	return Target{Stage: key}
}

// ForSubstep returns a Target addressing one sub-step of a stage.
func ForSubstep(key string, role SubstepRole) Target {
	return Target{Stage: key, Substep: role}
}

// String renders the target as "stage" or "stage/substep".
func (t Target) String() string {
	if t.Substep == "" {
		return t.Stage
	}
	return t.Stage + "/" + string(t.Substep)
}

// ParseTarget parses the "stage" or "stage/substep" form.
func ParseTarget(s string) (Target, error) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] != '/' {
			continue
		}
		role := SubstepRole(s[i+1:])
		if s[:i] == "" || !role.Valid() {
			return Target{}, fmt.Errorf("invalid target %q", s)
		}
		return Target{Stage: s[:i], Substep: role}, nil
	}
	if s == "" {
		return Target{}, fmt.Errorf("empty target")
	}
	return Target{Stage: s}, nil
}
