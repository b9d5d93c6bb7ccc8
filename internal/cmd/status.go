package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dossierworks/dossier/internal/artifact"
	"github.com/dossierworks/dossier/internal/coordinator"
	"github.com/dossierworks/dossier/internal/errors"
	"github.com/dossierworks/dossier/internal/executor"
	"github.com/dossierworks/dossier/internal/snapshot"
	"github.com/dossierworks/dossier/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status <report-id>",
	Short: "Show the stage status of a report",
	Long: `Display every stage of a report with its state, recorded run time and a
preview of its latest result. The current stage is marked with ">".`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

var statusFull bool

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusFull, "full", false, "Print complete stage results instead of previews")
}

// readOnly rejects every execution; it backs coordinators that only report.
var readOnly = executor.Func(func(context.Context, executor.Request) (executor.Result, error) {
	return executor.Result{}, errors.New("read-only session")
})

// open loads report id and resumes its session on exec.
func (e *env) open(ctx context.Context, id string, exec executor.StageExecutor, opts ...coordinator.Option) (*snapshot.Report, *coordinator.Coordinator, error) {
	r, err := e.reports.Load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	storeOpts := artifact.Options{
		MaxEntries: e.cfg.Artifacts.MaxEntries,
		KeepRecent: e.cfg.Artifacts.KeepRecent,
	}
	opts = append([]coordinator.Option{
		coordinator.WithLogger(e.logger),
		coordinator.WithHistory(e.cfg.Artifacts.History),
	}, opts...)
	return r, snapshot.Resume(e.catalog, e.classify, r, storeOpts, exec, opts...), nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	r, c, err := e.open(cmd.Context(), args[0], readOnly)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	return renderStatus(out, r, c, newStyles(out), outputWidth(out), statusFull)
}

// renderStatus writes the stage table of c.
func renderStatus(w io.Writer, r *snapshot.Report, c *coordinator.Coordinator, st styles, width int, full bool) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", st.title.Render(r.Title), st.dim.Render("("+r.ID+")"))

	store := c.Store()
	statuses := c.Statuses()

	labelWidth := 0
	for _, s := range statuses {
		if n := len(s.Key); n > labelWidth {
			labelWidth = n
		}
	}
	previewWidth := width - labelWidth - 24
	if previewWidth < 20 {
		previewWidth = 20
	}

	for _, s := range statuses {
		marker := "  "
		if s.Current {
			marker = st.current.Render(">") + " "
		}
		state := stateLabel(s, st)
		result, _ := store.Result(s.Key)
		fmt.Fprintf(&b, "%s%-*s  %s  %6s  %s\n",
			marker, labelWidth, s.Key, state, util.FormatElapsed(s.Elapsed), preview(result, previewWidth, full))

		for _, sub := range s.Substeps {
			subState := st.dim.Render(pad("waiting"))
			switch {
			case sub.Processing:
				subState = st.running.Render(pad("running"))
			case sub.Done:
				subState = st.done.Render(pad("done"))
			case sub.Ready:
				subState = st.ready.Render(pad("ready"))
			}
			fmt.Fprintf(&b, "    %-*s%s  %6s\n", labelWidth, string(sub.Role), subState, util.FormatElapsed(sub.Elapsed))
		}
		if s.FollowUp != "" {
			fmt.Fprintf(&b, "    %s %s\n", st.dim.Render("follow-up:"), preview(s.FollowUp, previewWidth, full))
		}
	}

	if c.Finished() {
		b.WriteString(st.done.Render("Report complete") + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func stateLabel(s coordinator.Status, st styles) string {
	switch {
	case s.Processing:
		return st.running.Render(pad("running"))
	case s.Blocked:
		return st.blocked.Render(pad("blocked"))
	case s.Complete:
		return st.done.Render(pad("done"))
	case s.Ready:
		return st.ready.Render(pad("ready"))
	}
	return st.dim.Render(pad("waiting"))
}

func pad(s string) string {
	return fmt.Sprintf("%-7s", s)
}

func preview(text string, width int, full bool) string {
	if full && text != "" {
		return "\n" + text + "\n"
	}
	return util.Preview(text, width)
}
