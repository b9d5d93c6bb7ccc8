// Package config provides CLI commands for managing dossier configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appconfig "github.com/dossierworks/dossier/internal/config"
	"github.com/dossierworks/dossier/internal/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify dossier configuration",
	Long: `View or modify dossier configuration.

Use 'config show' to display the effective configuration.
Use subcommands to modify settings or create a config file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  dossier config set executor.command /usr/local/bin/claude
  dossier config set executor.timeout 15m
  dossier config set artifacts.history false

Valid keys:
  artifacts.max_entries          - Entries per artifact map before eviction (-1 disables)
  artifacts.keep_recent          - Most recent entries always kept on eviction
  artifacts.history              - Keep numbered copies of re-run results (true/false)
  workflow.catalog_file          - YAML stage catalog (empty for the built-in one)
  workflow.incomplete_markers    - Comma-separated phrases marking an incomplete intake
  executor.command               - Executor CLI command name/path
  executor.args                  - Comma-separated executor arguments
  executor.timeout               - Per-call timeout, e.g. 10m (0 disables)
  executor.concept_start_marker  - Marker opening the concept report in output
  executor.concept_end_marker    - Marker closing the concept report in output
  logging.enabled                - Write the debug log (true/false)
  logging.level                  - debug, info, warn or error
  logging.max_size_mb            - Log size that triggers rotation
  logging.max_backups            - Rotated logs to keep
  logging.compress               - Gzip rotated logs (true/false)
  paths.data_dir                 - Where reports and logs are stored`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/dossier/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// Register adds all config-related commands to the given parent command.
func Register(parent *cobra.Command) {
	parent.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	return writeConfig(cmd.OutOrStdout(), cfg, viper.ConfigFileUsed())
}

func writeConfig(w io.Writer, cfg *appconfig.Config, source string) error {
	var b strings.Builder
	if source != "" {
		fmt.Fprintf(&b, "Config file: %s\n\n", source)
	} else {
		b.WriteString("Config file: (none - using defaults)\n\n")
	}

	b.WriteString("artifacts:\n")
	fmt.Fprintf(&b, "  max_entries: %d\n", cfg.Artifacts.MaxEntries)
	fmt.Fprintf(&b, "  keep_recent: %d\n", cfg.Artifacts.KeepRecent)
	fmt.Fprintf(&b, "  history: %v\n", cfg.Artifacts.History)

	b.WriteString("workflow:\n")
	fmt.Fprintf(&b, "  catalog_file: %s\n", orDefault(cfg.Workflow.CatalogFile, "(built-in)"))
	fmt.Fprintf(&b, "  incomplete_markers: %s\n", strings.Join(cfg.Workflow.IncompleteMarkers, ", "))

	b.WriteString("executor:\n")
	fmt.Fprintf(&b, "  command: %s\n", cfg.Executor.Command)
	fmt.Fprintf(&b, "  args: %s\n", strings.Join(cfg.Executor.Args, " "))
	fmt.Fprintf(&b, "  timeout: %s\n", cfg.Executor.Timeout)
	fmt.Fprintf(&b, "  concept markers: %s ... %s\n", cfg.Executor.ConceptStartMarker, cfg.Executor.ConceptEndMarker)

	b.WriteString("logging:\n")
	fmt.Fprintf(&b, "  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Fprintf(&b, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(&b, "  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Fprintf(&b, "  max_backups: %d\n", cfg.Logging.MaxBackups)
	fmt.Fprintf(&b, "  compress: %v\n", cfg.Logging.Compress)

	b.WriteString("paths:\n")
	fmt.Fprintf(&b, "  data_dir: %s\n", cfg.Paths.ResolveDataDir())

	_, err := io.WriteString(w, b.String())
	return err
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// keyTypes lists the settable keys and how their values are parsed.
var keyTypes = map[string]string{
	"artifacts.max_entries":         "int",
	"artifacts.keep_recent":         "uint",
	"artifacts.history":             "bool",
	"workflow.catalog_file":         "string",
	"workflow.incomplete_markers":   "list",
	"executor.command":              "string",
	"executor.args":                 "list",
	"executor.timeout":              "duration",
	"executor.concept_start_marker": "string",
	"executor.concept_end_marker":   "string",
	"logging.enabled":               "bool",
	"logging.level":                 "level",
	"logging.max_size_mb":           "uint",
	"logging.max_backups":           "uint",
	"logging.compress":              "bool",
	"paths.data_dir":                "string",
}

// parseValue converts value to the type key expects.
func parseValue(key, value string) (any, error) {
	keyType, ok := keyTypes[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nRun 'dossier config set --help' to see valid keys", key)
	}

	switch keyType {
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "int", "uint":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if keyType == "uint" && n < 0 {
			return nil, fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		return n, nil
	case "duration":
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return d.String(), nil
	case "level":
		level := strings.ToUpper(value)
		if logging.ParseLevel(level) != level {
			return nil, fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(logging.ValidLevels(), ", "))
		}
		return strings.ToLower(level), nil
	case "list":
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	}
	return value, nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	typedValue, err := parseValue(key, args[1])
	if err != nil {
		return err
	}

	if err := os.MkdirAll(appconfig.ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set(key, typedValue)
	if _, err := appconfig.Load(); err != nil {
		return err
	}

	configFile := appconfig.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

const defaultConfigContent = `# Dossier configuration

# Bounded storage of stage results within a session
artifacts:
  # Entries per map before eviction; -1 disables eviction
  max_entries: 64
  # Most recently written entries always kept on eviction
  keep_recent: 16
  # Keep numbered copies (stage#1, stage#2, ...) of re-run results
  history: true

workflow:
  # YAML stage catalog; empty uses the built-in pipeline
  # (print it with 'dossier stages --yaml')
  catalog_file: ""
  # Phrases that mark the intake check as incomplete
  incomplete_markers:
    - INCOMPLEET
    - ONVOLLEDIG
    - INFORMATIE ONTBREEKT
    - INCOMPLETE

# Command that produces stage output; the prompt is written to its stdin
executor:
  command: claude
  args:
    - --print
  timeout: 10m
  concept_start_marker: "<concept>"
  concept_end_marker: "</concept>"

logging:
  enabled: true
  level: info
  max_size_mb: 10
  max_backups: 3
  compress: false

paths:
  # Empty uses $XDG_DATA_HOME/dossier or ~/.local/share/dossier
  data_dir: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := appconfig.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'dossier config set' to modify values", configFile)
	}
	if err := os.MkdirAll(appconfig.ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "Active config: %s\n", used)
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", appconfig.ConfigFile())
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", appconfig.ConfigFile())
	fmt.Fprintln(out, "  2. ./config.yaml (current directory)")
	fmt.Fprintln(out, "\nEnvironment variables: DOSSIER_* (e.g., DOSSIER_EXECUTOR_COMMAND)")
	return nil
}
