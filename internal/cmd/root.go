// Package cmd implements the dossier command line.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	configcmd "github.com/dossierworks/dossier/internal/cmd/config"
	"github.com/dossierworks/dossier/internal/config"
	"github.com/dossierworks/dossier/internal/logging"
	"github.com/dossierworks/dossier/internal/snapshot"
	"github.com/dossierworks/dossier/internal/stage"
	"github.com/dossierworks/dossier/internal/transition"
)

var rootCmd = &cobra.Command{
	Use:   "dossier",
	Short: "Stage-by-stage fiscal report workflow",
	Long: `Dossier drives a case through a fixed pipeline of language-model
stages: intake check, complexity scoring, draft generation, a chain of
specialist reviewers and a final check. Each stage's output is stored with
the report, so a run can be stopped and resumed at any point.`,
	SilenceUsage: true,
}

// appFs is the filesystem commands read and write. Tests swap it out.
var appFs = afero.NewOsFs()

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/dossier/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	configcmd.Register(rootCmd)
}

func initConfig() {
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("DOSSIER")
	// DOSSIER_EXECUTOR_COMMAND for executor.command
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = viper.ReadInConfig()
}

// env bundles what every report command needs.
type env struct {
	cfg      *config.Config
	logger   *logging.Logger
	reports  *snapshot.FileStore
	catalog  *stage.Catalog
	classify transition.GateClassifier
}

// setup loads configuration, logging, the report store and the catalog.
// The caller must call Close.
func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err = logging.NewLogger(cfg.Paths.LogDir(), cfg.Logging.Level, logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			Compress:   cfg.Logging.Compress,
		})
		if err != nil {
			return nil, err
		}
	}

	reports, err := snapshot.NewFileStore(appFs, cfg.Paths.ReportsDir())
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	catalog, err := stage.Load(cfg.Workflow.CatalogFile)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	return &env{
		cfg:      cfg,
		logger:   logger,
		reports:  reports,
		catalog:  catalog,
		classify: transition.MarkerClassifier(cfg.Workflow.IncompleteMarkers),
	}, nil
}

func (e *env) Close() error {
	return e.logger.Close()
}
