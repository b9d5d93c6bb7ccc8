package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the complete dossier configuration
type Config struct {
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Paths     PathsConfig     `mapstructure:"paths"`
}

// ArtifactsConfig controls the in-memory artifact store
type ArtifactsConfig struct {
	// MaxEntries caps each artifact map before eviction runs.
	// 0 uses the store default; a negative value disables eviction.
	MaxEntries int `mapstructure:"max_entries"`
	// KeepRecent is how many of the most recently written keys survive
	// eviction in addition to the latest entry of every stage.
	KeepRecent int `mapstructure:"keep_recent"`
	// History also records every executor run under "<stage>#<n>".
	History bool `mapstructure:"history"`
}

// WorkflowConfig controls the stage catalog and gate classification
type WorkflowConfig struct {
	// CatalogFile is a YAML stage definition. Empty uses the built-in catalog.
	CatalogFile string `mapstructure:"catalog_file"`
	// IncompleteMarkers are the phrases that make the gate result count as
	// incomplete when it carries no structured verdict.
	IncompleteMarkers []string `mapstructure:"incomplete_markers"`
}

// ExecutorConfig controls the external command that runs stage prompts
type ExecutorConfig struct {
	// Command is the program to run; the rendered prompt is written to its stdin.
	Command string `mapstructure:"command"`
	// Args are passed to Command unchanged.
	Args []string `mapstructure:"args"`
	// Timeout bounds a single execution (0 = no limit).
	Timeout time.Duration `mapstructure:"timeout"`
	// ConceptStartMarker and ConceptEndMarker delimit the concept report
	// inside the executor output. Both empty disables extraction.
	ConceptStartMarker string `mapstructure:"concept_start_marker"`
	ConceptEndMarker   string `mapstructure:"concept_end_marker"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is active (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level sets the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the file size that triggers rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated files (default: false)
	Compress bool `mapstructure:"compress"`
}

// PathsConfig controls where reports and logs are stored
type PathsConfig struct {
	// DataDir holds reports/ and logs/. Empty means $XDG_DATA_HOME/dossier
	// or ~/.local/share/dossier. A leading ~ is expanded.
	DataDir string `mapstructure:"data_dir"`
}

// ResolveDataDir returns the absolute data directory.
func (p *PathsConfig) ResolveDataDir() string {
	if p.DataDir == "" {
		return defaultDataDir()
	}
	path := p.DataDir
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path
}

// ReportsDir returns the directory that holds persisted reports.
func (p *PathsConfig) ReportsDir() string {
	return filepath.Join(p.ResolveDataDir(), "reports")
}

// LogDir returns the directory that holds debug.log.
func (p *PathsConfig) LogDir() string {
	return filepath.Join(p.ResolveDataDir(), "logs")
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "dossier")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dossier"
	}
	return filepath.Join(home, ".local", "share", "dossier")
}

// DefaultIncompleteMarkers mirrors the phrases the gate classifier falls back on.
func DefaultIncompleteMarkers() []string {
	return []string{"INCOMPLEET", "ONVOLLEDIG", "INFORMATIE ONTBREEKT", "INCOMPLETE"}
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Artifacts: ArtifactsConfig{
			MaxEntries: 64,
			KeepRecent: 16,
			History:    true,
		},
		Workflow: WorkflowConfig{
			CatalogFile:       "", // Empty means the built-in catalog
			IncompleteMarkers: DefaultIncompleteMarkers(),
		},
		Executor: ExecutorConfig{
			Command:            "claude",
			Args:               []string{"--print"},
			Timeout:            10 * time.Minute,
			ConceptStartMarker: "<concept>",
			ConceptEndMarker:   "</concept>",
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Paths: PathsConfig{
			DataDir: "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Artifact store defaults
	viper.SetDefault("artifacts.max_entries", defaults.Artifacts.MaxEntries)
	viper.SetDefault("artifacts.keep_recent", defaults.Artifacts.KeepRecent)
	viper.SetDefault("artifacts.history", defaults.Artifacts.History)

	// Workflow defaults
	viper.SetDefault("workflow.catalog_file", defaults.Workflow.CatalogFile)
	viper.SetDefault("workflow.incomplete_markers", defaults.Workflow.IncompleteMarkers)

	// Executor defaults
	viper.SetDefault("executor.command", defaults.Executor.Command)
	viper.SetDefault("executor.args", defaults.Executor.Args)
	viper.SetDefault("executor.timeout", defaults.Executor.Timeout)
	viper.SetDefault("executor.concept_start_marker", defaults.Executor.ConceptStartMarker)
	viper.SetDefault("executor.concept_end_marker", defaults.Executor.ConceptEndMarker)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Paths defaults
	viper.SetDefault("paths.data_dir", defaults.Paths.DataDir)
}

// decodeHook lets durations be written as "90s" and lists as
// comma-separated strings, which is how they arrive from environment
// variables.
func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load for an explicit viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if it
// cannot be loaded.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "dossier")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dossier"
	}
	return filepath.Join(home, ".config", "dossier")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
