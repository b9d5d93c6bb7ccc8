package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/dossierworks/dossier/internal/config"
	"github.com/dossierworks/dossier/internal/logging"
)

// waitDelay bounds how long Execute waits for output pipes after the
// process was killed.
const waitDelay = 2 * time.Second

// Command runs an external program per request. The rendered prompt is
// written to stdin and stdout becomes the result text.
type Command struct {
	Path    string
	Args    []string
	Timeout time.Duration
	// Env is added to the inherited environment.
	Env []string

	ConceptStart string
	ConceptEnd   string

	logger *logging.Logger
}

// NewCommand creates a Command from the executor configuration.
func NewCommand(cfg config.ExecutorConfig, logger *logging.Logger) *Command {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Command{
		Path:         cfg.Command,
		Args:         append([]string(nil), cfg.Args...),
		Timeout:      cfg.Timeout,
		ConceptStart: cfg.ConceptStartMarker,
		ConceptEnd:   cfg.ConceptEndMarker,
		logger:       logger,
	}
}

// Execute implements StageExecutor. A non-zero exit status is an error that
// carries the program's stderr.
func (c *Command) Execute(ctx context.Context, req Request) (Result, error) {
	prompt, err := Render(req)
	if err != nil {
		return Result{}, err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = strings.NewReader(prompt)
	cmd.WaitDelay = waitDelay
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := c.logger.WithStage(req.Stage).WithSubstep(string(req.Substep))
	log.Debug("executor starting", "command", c.Path, "prompt_bytes", len(prompt))

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Warn("executor interrupted", "error", ctxErr.Error(), "elapsed_ms", elapsed.Milliseconds())
			return Result{}, fmt.Errorf("%s: %w", c.Path, ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		log.Warn("executor failed", "error", runErr.Error(), "stderr", msg)
		if msg == "" {
			return Result{}, fmt.Errorf("%s: %w", c.Path, runErr)
		}
		return Result{}, fmt.Errorf("%s: %w: %s", c.Path, runErr, msg)
	}

	text := strings.TrimSpace(stdout.String())
	res := Result{Text: text, Elapsed: elapsed}
	if concept, ok := ExtractConcept(text, c.ConceptStart, c.ConceptEnd); ok {
		res.Concept = concept
	}
	log.Debug("executor finished", "elapsed_ms", elapsed.Milliseconds(),
		"output_bytes", len(text), "concept", res.Concept != "")
	return res, nil
}
