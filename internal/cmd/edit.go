package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dossierworks/dossier/internal/snapshot"
	"github.com/dossierworks/dossier/internal/stage"
)

var submitCmd = &cobra.Command{
	Use:   "submit <report-id> <stage[/substep]> [file]",
	Short: "Store a manually written stage result",
	Long: `Store text as the result of a stage without calling the executor, read
from file or from stdin when the file is omitted or "-". The result is
treated exactly like executor output: the same prerequisites apply and the
pointer advances the same way.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runSubmit,
}

var resetCmd = &cobra.Command{
	Use:   "reset <report-id> <stage>",
	Short: "Discard a stage and everything after it",
	Long: `Discard the results of a stage and of every later stage, and move the
pointer back to it. Asks for confirmation unless --yes is given.`,
	Args: cobra.ExactArgs(2),
	RunE: runReset,
}

var navigateCmd = &cobra.Command{
	Use:   "goto <report-id> <stage>",
	Short: "Move the pointer to a stage",
	Args:  cobra.ExactArgs(2),
	RunE:  runNavigate,
}

var resetYes bool

func init() {
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(navigateCmd)

	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	t, err := stage.ParseTarget(args[1])
	if err != nil {
		return err
	}
	var path string
	if len(args) > 2 {
		path = args[2]
	}
	text, err := readInput(cmd, path)
	if err != nil {
		return err
	}

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

	r, c, err := e.open(cmd.Context(), args[0], readOnly)
	if err != nil {
		return err
	}
	o, err := c.SubmitManual(t, text)
	if err != nil {
		return err
	}
	if err := e.reports.Save(cmd.Context(), snapshot.Export(r, c.Snapshot())); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stored %s; current stage is %s\n", t, c.Catalog().Key(o.Pointer))
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if !e.catalog.Contains(args[1]) {
		return fmt.Errorf("unknown stage %q", args[1])
	}
	affected := e.catalog.KeysFrom(e.catalog.Index(args[1]))
	if !resetYes && !confirm(cmd, fmt.Sprintf("Discard results of %s?", strings.Join(affected, ", "))) {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
		return nil
	}

	lock, err := e.reports.Lock(args[0], e.logger)
	if err != nil {
		return err
	}
	defer lock.Release()

	r, c, err := e.open(cmd.Context(), args[0], readOnly)
	if err != nil {
		return err
	}
	cleared, err := c.Reset(args[1])
	if err != nil {
		return err
	}
	if err := e.reports.Save(cmd.Context(), snapshot.Export(r, c.Snapshot())); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reset %d stage(s)\n", len(cleared))
	return nil
}

// runNavigate moves the pointer for display. The pointer is recomputed from
// the results on the next load, so only the printed status changes.
func runNavigate(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	r, c, err := e.open(cmd.Context(), args[0], readOnly)
	if err != nil {
		return err
	}
	i := e.catalog.Index(args[1])
	if err := c.Navigate(i); err != nil {
		return fmt.Errorf("unknown stage %q: %w", args[1], err)
	}
	out := cmd.OutOrStdout()
	return renderStatus(out, r, c, newStyles(out), outputWidth(out), false)
}

// confirm asks a yes/no question on the command's streams.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
