package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dossierworks/dossier/internal/errors"
	"github.com/dossierworks/dossier/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the debug log",
	Long: `View and filter the debug log written while stages run.

Examples:
  # Show the last 50 entries
  dossier logs

  # Everything for one report
  dossier logs -r 3f2a... -n 0

  # Warnings and errors of the last hour
  dossier logs --level warn --since 1h

  # Entries mentioning a stage or message text
  dossier logs --stage 3_generatie --grep failed`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsReport string
	logsStage  string
	logsTail   int
	logsLevel  string
	logsSince  string
	logsGrep   string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVarP(&logsReport, "report", "r", "", "Only entries of this report")
	logsCmd.Flags().StringVar(&logsStage, "stage", "", "Only entries of this stage")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Only entries newer than this duration (e.g. 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Only entries whose message contains this text")
}

func runLogs(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	filter := logging.Filter{
		ReportID: logsReport,
		Stage:    logsStage,
		Contains: logsGrep,
	}
	if logsLevel != "" {
		level := strings.ToUpper(logsLevel)
		if logging.ParseLevel(level) != level {
			return fmt.Errorf("invalid level %q (valid: %s)", logsLevel, strings.Join(logging.ValidLevels(), ", "))
		}
		filter.Level = level
	}
	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		filter.Since = time.Now().Add(-d)
	}

	entries, err := logging.ReadEntries(appFs, e.cfg.Paths.LogDir())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	entries = logging.FilterEntries(entries, filter)
	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No log entries")
		return nil
	}
	return logging.WriteText(cmd.OutOrStdout(), entries)
}
