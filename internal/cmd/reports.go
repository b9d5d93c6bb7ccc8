package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dossierworks/dossier/internal/snapshot"
	"github.com/dossierworks/dossier/internal/util"
)

var newCmd = &cobra.Command{
	Use:   "new [case-file]",
	Short: "Create a report from case text",
	Long: `Create a new report from the case text in case-file, or from stdin when
the file is omitted or "-". Prints the new report ID.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNew,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <report-id>",
	Short: "Delete a stored report",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var newTitle string

func init() {
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)

	newCmd.Flags().StringVarP(&newTitle, "title", "t", "", "Report title (default: first line of the case text)")
}

// readInput reads a file argument, treating "" and "-" as stdin.
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := afero.ReadFile(appFs, path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func runNew(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	}
	text, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("case text is empty")
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	title := newTitle
	if title == "" {
		first, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
		title = util.TruncateString(first, 60)
	}

	r := snapshot.NewReport(title, text)
	if err := e.reports.Save(cmd.Context(), r); err != nil {
		return err
	}
	e.logger.WithReport(r.ID).Info("report created", "title", r.Title)
	fmt.Fprintln(cmd.OutOrStdout(), r.ID)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	list, err := e.reports.List(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No reports")
		return nil
	}

	st := newStyles(out)
	for _, s := range list {
		fmt.Fprintf(out, "%s  %s  %s\n",
			st.dim.Render(s.ID),
			st.dim.Render(s.UpdatedAt.Local().Format("2006-01-02 15:04")),
			util.TruncateString(s.Title, 60))
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
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

	if err := e.reports.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	e.logger.WithReport(args[0]).Info("report deleted")
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}
