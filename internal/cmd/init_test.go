package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestInit(t *testing.T) {
	t.Run("creates beads directory structure", func(t *testing.T) {
		tmpDir := t.TempDir()

		provider := &AppProvider{StorePath: filepath.Join(tmpDir, ".beads")}
		cmd := newInitCmd(provider)
		cmd.SetArgs([]string{})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("init command failed: %v", err)
		}

		beadsPath := filepath.Join(tmpDir, ".beads")
		for _, want := range []string{"config.yaml", "config-minibeads.yaml", "issues"} {
			if _, err := os.Stat(filepath.Join(beadsPath, want)); err != nil {
				t.Errorf("%s was not created: %v", want, err)
			}
		}
	})

	t.Run("defaults to current directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		oldWd, _ := os.Getwd()
		defer os.Chdir(oldWd)
		if err := os.Chdir(tmpDir); err != nil {
			t.Fatalf("changing directory: %v", err)
		}

		provider := &AppProvider{}
		cmd := newInitCmd(provider)
		cmd.SetArgs([]string{})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("init command failed: %v", err)
		}

		if _, err := os.Stat(filepath.Join(tmpDir, ".beads")); os.IsNotExist(err) {
			t.Error(".beads directory was not created in current directory")
		}
	})

	t.Run("uses prefix flag", func(t *testing.T) {
		tmpDir := t.TempDir()
		storePath := filepath.Join(tmpDir, ".beads")

		provider := &AppProvider{StorePath: storePath}
		cmd := newInitCmd(provider)
		cmd.SetArgs([]string{"--prefix", "proj"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("init command failed: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(storePath, "config.yaml"))
		if err != nil {
			t.Fatalf("reading config.yaml: %v", err)
		}
		var cfg map[string]any
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			t.Fatalf("parsing config.yaml: %v", err)
		}
		if cfg["issue-prefix"] != "proj-" {
			t.Errorf("issue-prefix = %v, want %q", cfg["issue-prefix"], "proj-")
		}
	})

	t.Run("uses hash-ids flag", func(t *testing.T) {
		tmpDir := t.TempDir()
		storePath := filepath.Join(tmpDir, ".beads")

		provider := &AppProvider{StorePath: storePath}
		cmd := newInitCmd(provider)
		cmd.SetArgs([]string{"--hash-ids"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("init command failed: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(storePath, "config-minibeads.yaml"))
		if err != nil {
			t.Fatalf("reading config-minibeads.yaml: %v", err)
		}
		var cfg map[string]string
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			t.Fatalf("parsing config-minibeads.yaml: %v", err)
		}
		if cfg["mb-hash-ids"] != "true" {
			t.Errorf("mb-hash-ids = %q, want %q", cfg["mb-hash-ids"], "true")
		}
	})
}
