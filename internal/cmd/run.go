package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dossierworks/dossier/internal/coordinator"
	"github.com/dossierworks/dossier/internal/executor"
	"github.com/dossierworks/dossier/internal/snapshot"
	"github.com/dossierworks/dossier/internal/stage"
	"github.com/dossierworks/dossier/internal/util"
)

var runCmd = &cobra.Command{
	Use:   "run <report-id> [stage[/substep]]",
	Short: "Run a stage of a report",
	Long: `Run one stage through the configured executor and store its result.

Without a target the stage under the pointer runs; for a reviewer that is
its review sub-step, or processing once the review exists. With --all,
stages keep running until the report is complete, the intake check reports
missing information, or a stage fails.

Examples:
  dossier run 3f2a...                     # next stage
  dossier run 3f2a... 3_generatie         # a specific stage
  dossier run 3f2a... 4a_BronnenSpecialist/review
  dossier run 3f2a... --all --context "Focus op box 3"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRun,
}

var (
	runAll     bool
	runContext string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runAll, "all", false, "Keep running stages until blocked or complete")
	runCmd.Flags().StringVar(&runContext, "context", "", "Additional instructions passed to the executor")
}

// nextTarget returns the target the pointer suggests running. ok is false
// when the report is complete.
func nextTarget(c *coordinator.Coordinator) (stage.Target, bool) {
	if c.Finished() {
		return stage.Target{}, false
	}
	s := c.Catalog().At(c.Pointer())
	if !s.IsReviewer() {
		return stage.For(s.Key), true
	}
	if r, ok := c.Store().Substep(s.Key); ok && r.Has(stage.SubstepReview) {
		return stage.ForSubstep(s.Key, stage.SubstepProcessing), true
	}
	return stage.ForSubstep(s.Key, stage.SubstepReview), true
}

func runRun(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	lock, err := e.reports.Lock(args[0], e.logger)
	if err != nil {
		return err
	}
	defer lock.Release()

	exec := executor.NewCommand(e.cfg.Executor, e.logger)
	r, c, err := e.open(cmd.Context(), args[0], exec, coordinator.WithFollowUp(exec))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var explicit *stage.Target
	if len(args) > 1 {
		t, err := stage.ParseTarget(args[1])
		if err != nil {
			return err
		}
		explicit = &t
	}

	runErr := executeStages(ctx, cmd, e, r, c, explicit)

	// Let a drafted follow-up land before the final save.
	c.Wait()
	if err := e.reports.Save(context.WithoutCancel(ctx), snapshot.Export(r, c.Snapshot())); err != nil {
		return err
	}
	return runErr
}

func executeStages(ctx context.Context, cmd *cobra.Command, e *env, r *snapshot.Report, c *coordinator.Coordinator, explicit *stage.Target) error {
	out := cmd.OutOrStdout()
	st := newStyles(out)

	// Each stage runs at most twice (a reviewer's two sub-steps), which
	// bounds the loop even if the pointer were to stop moving.
	for i := 0; i < 2*c.Catalog().Len(); i++ {
		t, ok := nextTarget(c)
		if explicit != nil {
			t, ok = *explicit, true
		}
		if !ok {
			fmt.Fprintln(out, st.done.Render("Report complete"))
			return nil
		}

		fmt.Fprintf(out, "%s %s\n", st.running.Render("running"), t)
		o, err := c.Execute(ctx, t, r.RawText, runContext)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s %s\n", st.done.Render("done   "), t, st.dim.Render(util.FormatElapsed(o.Elapsed)))

		if err := e.reports.Save(ctx, snapshot.Export(r, c.Snapshot())); err != nil {
			return err
		}
		if o.GateBlocked {
			fmt.Fprintf(out, "%s %s reports missing information; a follow-up is being drafted\n",
				st.blocked.Render("blocked"), t.Stage)
			return nil
		}
		if !runAll || explicit != nil {
			return nil
		}
	}
	return nil
}
