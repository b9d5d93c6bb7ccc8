package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dossierworks/dossier/internal/snapshot"
)

var watchCmd = &cobra.Command{
	Use:   "watch <report-id>",
	Short: "Redraw a report's status whenever it changes",
	Long: `Print the status of a report and print it again every time another
dossier process saves it, e.g. while "dossier run --all" is working in a
second terminal. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	st := newStyles(out)
	draw := func() error {
		r, c, err := e.open(ctx, args[0], readOnly)
		if err != nil {
			return err
		}
		if isTerminal(out) {
			// Clear screen and home the cursor.
			fmt.Fprint(out, "\033[2J\033[H")
		}
		return renderStatus(out, r, c, st, outputWidth(out), false)
	}
	if err := draw(); err != nil {
		return err
	}

	return e.reports.Watch(ctx, args[0], snapshot.DefaultDebounce, func() {
		if err := draw(); err != nil {
			e.logger.WithReport(args[0]).Warn("failed to redraw status", "error", err.Error())
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
	})
}
