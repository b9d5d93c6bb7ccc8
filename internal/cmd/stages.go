package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dossierworks/dossier/internal/stage"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "Show the stage catalog",
	Long: `Show the configured stage catalog. With --yaml the catalog is printed in
the format accepted by workflow.catalog_file, which is a convenient
starting point for a custom pipeline.`,
	Args: cobra.NoArgs,
	RunE: runStagesList,
}

var stagesYAML bool

func init() {
	rootCmd.AddCommand(stagesCmd)

	stagesCmd.Flags().BoolVar(&stagesYAML, "yaml", false, "Print the catalog as YAML")
}

func runStagesList(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	if stagesYAML {
		data, err := e.catalog.Marshal()
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	st := newStyles(out)
	for i, s := range e.catalog.Stages() {
		fmt.Fprintf(out, "%2d  %-28s %-10s %s%s\n", i, s.Key, s.Role, s.Label, st.dim.Render(stageFlags(s)))
	}
	return nil
}

func stageFlags(s stage.Stage) string {
	var flags []string
	if s.Gate {
		flags = append(flags, "gate")
	}
	if s.FanOut {
		flags = append(flags, "fan-out")
	}
	if s.Final {
		flags = append(flags, "final")
	}
	if len(flags) == 0 {
		return ""
	}
	return " [" + strings.Join(flags, ", ") + "]"
}
