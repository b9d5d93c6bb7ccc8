// Package executor defines the boundary to the component that actually
// produces stage output, usually a language model behind a CLI.
//
// The coordinator treats an executor as opaque and possibly slow: it calls
// [StageExecutor.Execute] without holding any lock and relies on the
// executor to honor context cancellation.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/dossierworks/dossier/internal/stage"
)

// Request describes one stage or sub-step execution.
type Request struct {
	Stage   string
	Label   string
	Role    stage.Role
	Substep stage.SubstepRole // empty for whole-stage targets

	// Prompt is the stage's text/template. Empty selects a default for the
	// role and sub-step.
	Prompt string

	// Input is the raw case text; CustomContext is optional operator guidance.
	Input         string
	CustomContext string

	// Concept is the most recent concept report written by an earlier stage.
	Concept string
	// Feedback is the review text, set for processing sub-steps and for the
	// gate follow-up.
	Feedback string
}

// Result is what an executor produced.
type Result struct {
	Text string
	// Concept is the updated concept report, if the output carried one.
	Concept string
	// Elapsed is the executor's own measurement; zero lets the caller measure.
	Elapsed time.Duration
}

// StageExecutor runs a single request. Implementations must return promptly
// once ctx is done.
type StageExecutor interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// Func adapts a function to StageExecutor.
type Func func(ctx context.Context, req Request) (Result, error)

// Execute calls f.
func (f Func) Execute(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Default prompt templates by role.
const (
	DefaultGeneratorPrompt = "{{.Label}}\n\n{{if .Concept}}Current concept report:\n{{.Concept}}\n\n{{end}}Case:\n{{.Input}}"

	DefaultReviewPrompt = "You are {{.Label}}. Review the concept report below and list concrete, " +
		"actionable feedback. Do not rewrite the report.\n\n" +
		"Concept report:\n{{.Concept}}\n\nCase:\n{{.Input}}"

	DefaultProcessingPrompt = "Incorporate the feedback of {{.Label}} into the concept report. " +
		"Return the complete revised report between the concept markers.\n\n" +
		"Feedback:\n{{.Feedback}}\n\nConcept report:\n{{.Concept}}"

	DefaultFollowUpPrompt = "The intake check found the case information incomplete. Draft a short, " +
		"polite e-mail to the client asking for exactly the missing items.\n\n" +
		"Intake result:\n{{.Feedback}}\n\nCase:\n{{.Input}}"
)

// PromptFor returns the template used for req.
func PromptFor(req Request) string {
	if strings.TrimSpace(req.Prompt) != "" {
		return req.Prompt
	}
	switch req.Substep {
	case stage.SubstepReview:
		return DefaultReviewPrompt
	case stage.SubstepProcessing:
		return DefaultProcessingPrompt
	}
	return DefaultGeneratorPrompt
}

// Render executes the prompt template for req. CustomContext, when set, is
// appended as an operator instruction block.
func Render(req Request) (string, error) {
	tmpl, err := template.New(req.Stage).Option("missingkey=error").Parse(PromptFor(req))
	if err != nil {
		return "", fmt.Errorf("parse prompt for %s: %w", req.Stage, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("render prompt for %s: %w", req.Stage, err)
	}
	if ctx := strings.TrimSpace(req.CustomContext); ctx != "" {
		buf.WriteString("\n\nAdditional instructions:\n")
		buf.WriteString(ctx)
	}
	return buf.String(), nil
}

// ExtractConcept returns the text between the first start marker and the
// following end marker. ok is false when either marker is missing or empty.
func ExtractConcept(output, start, end string) (concept string, ok bool) {
	if start == "" || end == "" {
		return "", false
	}
	i := strings.Index(output, start)
	if i < 0 {
		return "", false
	}
	rest := output[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	concept = strings.TrimSpace(rest[:j])
	return concept, concept != ""
}
