package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Selection.MinForward != 0.1 || cfg.Selection.PerResponse != 3 {
		t.Errorf("Unexpected defaults: %+v", cfg.Selection)
	}
	if cfg.Selection.Seed != 1 {
		t.Errorf("Expected default seed 1, got %d", cfg.Selection.Seed)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("STIMSET_CONFIG_DIR", t.TempDir())

	cfg := Default()
	cfg.Inputs.NormsPath = "/data/norms.csv"
	cfg.Selection.Seed = 99
	cfg.Selection.ResponseExclusions = []string{"axe"}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Inputs.NormsPath != "/data/norms.csv" {
		t.Errorf("Norms path not round-tripped: %q", loaded.Inputs.NormsPath)
	}
	if loaded.Selection.Seed != 99 {
		t.Errorf("Seed not round-tripped: %d", loaded.Selection.Seed)
	}
	if len(loaded.Selection.ResponseExclusions) != 1 || loaded.Selection.ResponseExclusions[0] != "axe" {
		t.Errorf("Exclusions not round-tripped: %v", loaded.Selection.ResponseExclusions)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := "selection:\n  seed: 5\n"
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Selection.Seed != 5 {
		t.Errorf("Expected seed 5, got %d", cfg.Selection.Seed)
	}
	if cfg.Selection.MinForward != 0.1 {
		t.Errorf("Unset fields should keep defaults, got %+v", cfg.Selection)
	}
}

func TestGetConfigDirOverride(t *testing.T) {
	t.Setenv("STIMSET_CONFIG_DIR", "/tmp/stimset-test")
	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir failed: %v", err)
	}
	if dir != "/tmp/stimset-test" {
		t.Errorf("Expected override dir, got %q", dir)
	}
}
