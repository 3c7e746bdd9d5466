package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/pressler-lab/stimset/internal/pipeline"
)

// Config is the on-disk stimset configuration.
type Config struct {
	Inputs    InputsConfig    `yaml:"inputs"`
	Selection SelectionConfig `yaml:"selection"`
	Export    ExportConfig    `yaml:"export"`
	Watch     WatchConfig     `yaml:"watch,omitempty"`
}

// InputsConfig points at the two raw tabular sources.
type InputsConfig struct {
	NormsPath     string `yaml:"norms_path"`
	FrequencyPath string `yaml:"frequency_path"`
}

// SelectionConfig carries the pipeline thresholds and the manual override
// lists. The response exclusions come from part-of-speech review and are
// data, not logic, so they live here.
type SelectionConfig struct {
	MinForward         float64  `yaml:"min_forward"`
	MinGroupSize       int      `yaml:"min_group_size"`
	TopPerResponse     int      `yaml:"top_per_response"`
	PerResponse        int      `yaml:"per_response"`
	Conditions         int      `yaml:"conditions"`
	CueBlacklist       []string `yaml:"cue_blacklist"`
	ResponseExclusions []string `yaml:"response_exclusions"`
	PluralSuffix       string   `yaml:"plural_suffix"`
	NounPOS            string   `yaml:"noun_pos"`
	Seed               int64    `yaml:"seed"`
}

// ExportConfig controls where run artifacts land.
type ExportConfig struct {
	OutDir     string `yaml:"out_dir"`
	Histograms bool   `yaml:"histograms"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	DebounceSeconds int `yaml:"debounce_seconds,omitempty"`
}

// Default returns a config with the standard experiment parameters filled in.
func Default() *Config {
	p := pipeline.DefaultConfig()
	return &Config{
		Selection: SelectionConfig{
			MinForward:     p.MinForward,
			MinGroupSize:   p.MinGroupSize,
			TopPerResponse: p.TopPerResponse,
			PerResponse:    p.PerResponse,
			Conditions:     p.Conditions,
			CueBlacklist:   p.CueBlacklist,
			PluralSuffix:   p.PluralSuffix,
			NounPOS:        p.NounPOS,
			Seed:           p.Seed,
		},
		Export: ExportConfig{Histograms: true},
		Watch:  WatchConfig{DebounceSeconds: 2},
	}
}

// Pipeline converts the selection section into a pipeline.Config.
func (c *Config) Pipeline() *pipeline.Config {
	return &pipeline.Config{
		MinForward:         c.Selection.MinForward,
		MinGroupSize:       c.Selection.MinGroupSize,
		TopPerResponse:     c.Selection.TopPerResponse,
		PerResponse:        c.Selection.PerResponse,
		Conditions:         c.Selection.Conditions,
		CueBlacklist:       c.Selection.CueBlacklist,
		ResponseExclusions: c.Selection.ResponseExclusions,
		PluralSuffix:       c.Selection.PluralSuffix,
		NounPOS:            c.Selection.NounPOS,
		Seed:               c.Selection.Seed,
	}
}

// GetConfigDir returns the XDG-compliant config directory
func GetConfigDir() (string, error) {
	// Explicit override (useful for tests and portable installs)
	if override := os.Getenv("STIMSET_CONFIG_DIR"); override != "" {
		return override, nil
	}

	var base string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		base = xdg
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "stimset"), nil
}

// GetDataDir returns the platform-specific data directory
func GetDataDir() (string, error) {
	// Explicit override (useful for tests and portable installs)
	if override := os.Getenv("STIMSET_DATA_DIR"); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "Stimset"), nil
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "stimset"), nil
	}

	return filepath.Join(home, ".local", "share", "stimset"), nil
}

// Load loads config from the config file
func Load() (*Config, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(configDir, "config.yaml"))
}

// LoadFrom loads config from an explicit path. A missing file yields the
// default config.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save saves the config to the config file
func (c *Config) Save() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
