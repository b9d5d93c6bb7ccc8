package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Artifacts.MaxEntries != 64 {
		t.Errorf("Artifacts.MaxEntries = %d, want 64", cfg.Artifacts.MaxEntries)
	}
	if cfg.Artifacts.KeepRecent != 16 {
		t.Errorf("Artifacts.KeepRecent = %d, want 16", cfg.Artifacts.KeepRecent)
	}
	if !cfg.Artifacts.History {
		t.Error("Artifacts.History should be true by default")
	}

	if cfg.Workflow.CatalogFile != "" {
		t.Errorf("Workflow.CatalogFile = %q, want empty", cfg.Workflow.CatalogFile)
	}
	if len(cfg.Workflow.IncompleteMarkers) == 0 {
		t.Error("Workflow.IncompleteMarkers should not be empty by default")
	}

	if cfg.Executor.Command != "claude" {
		t.Errorf("Executor.Command = %q, want %q", cfg.Executor.Command, "claude")
	}
	if cfg.Executor.Timeout != 10*time.Minute {
		t.Errorf("Executor.Timeout = %v, want 10m", cfg.Executor.Timeout)
	}

	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	defaults := Default()
	v.SetDefault("artifacts.max_entries", defaults.Artifacts.MaxEntries)
	v.SetDefault("artifacts.keep_recent", defaults.Artifacts.KeepRecent)
	v.SetDefault("executor.command", defaults.Executor.Command)
	v.SetDefault("executor.timeout", defaults.Executor.Timeout)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)

	if yaml != "" {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
			t.Fatal(err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			t.Fatalf("ReadInConfig() error = %v", err)
		}
	}
	return v
}

func TestLoadFrom(t *testing.T) {
	v := newViper(t, `
artifacts:
  max_entries: 8
  keep_recent: 2
workflow:
  incomplete_markers: "MISSING, NEEDS DOCS"
executor:
  command: ./fake-llm
  args: ["--json"]
  timeout: 90s
  concept_start_marker: "<<"
  concept_end_marker: ">>"
`)

	cfg, err := LoadFrom(v)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Artifacts.MaxEntries != 8 || cfg.Artifacts.KeepRecent != 2 {
		t.Errorf("Artifacts = %+v, want max 8 keep 2", cfg.Artifacts)
	}
	if cfg.Executor.Timeout != 90*time.Second {
		t.Errorf("Executor.Timeout = %v, want 90s", cfg.Executor.Timeout)
	}
	if diff := cmp.Diff([]string{"MISSING", " NEEDS DOCS"}, cfg.Workflow.IncompleteMarkers); diff != "" {
		t.Errorf("IncompleteMarkers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"--json"}, cfg.Executor.Args); diff != "" {
		t.Errorf("Args mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	v := newViper(t, `
artifacts:
  keep_recent: -1
logging:
  level: loud
`)

	_, err := LoadFrom(v)
	if err == nil {
		t.Fatal("LoadFrom() error = nil, want validation errors")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("LoadFrom() error type = %T, want ValidationErrors", err)
	}
	if len(verrs) != 2 {
		t.Errorf("len(errors) = %d, want 2: %v", len(verrs), verrs)
	}
}

func TestPathsConfig_ResolveDataDir(t *testing.T) {
	t.Run("XDG_DATA_HOME", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/xdg/data")
		p := PathsConfig{}
		if got := p.ResolveDataDir(); got != "/xdg/data/dossier" {
			t.Errorf("ResolveDataDir() = %q, want %q", got, "/xdg/data/dossier")
		}
		if got := p.ReportsDir(); got != "/xdg/data/dossier/reports" {
			t.Errorf("ReportsDir() = %q", got)
		}
		if got := p.LogDir(); got != "/xdg/data/dossier/logs" {
			t.Errorf("LogDir() = %q", got)
		}
	})

	t.Run("home expansion", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		p := PathsConfig{DataDir: "~/reports-data"}
		want := filepath.Join(home, "reports-data")
		if got := p.ResolveDataDir(); got != want {
			t.Errorf("ResolveDataDir() = %q, want %q", got, want)
		}
	})

	t.Run("absolute", func(t *testing.T) {
		p := PathsConfig{DataDir: "/srv/dossier"}
		if got := p.ResolveDataDir(); got != "/srv/dossier" {
			t.Errorf("ResolveDataDir() = %q, want /srv/dossier", got)
		}
	})
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		if got := ConfigDir(); got != "/custom/config/dossier" {
			t.Errorf("ConfigDir() = %q, want %q", got, "/custom/config/dossier")
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, _ := os.UserHomeDir()
		want := filepath.Join(home, ".config", "dossier")
		if got := ConfigDir(); got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got := ConfigFile(); got != "/custom/config/dossier/config.yaml" {
		t.Errorf("ConfigFile() = %q, want %q", got, "/custom/config/dossier/config.yaml")
	}
}

func TestGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Get() with only defaults differs from Default() (-want +got):\n%s", diff)
	}
}
