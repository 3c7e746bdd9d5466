package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pressler-lab/stimset/internal/config"
	"github.com/pressler-lab/stimset/internal/export"
	"github.com/pressler-lab/stimset/internal/live"
	"github.com/pressler-lab/stimset/internal/norms"
	"github.com/pressler-lab/stimset/internal/pipeline"
	"github.com/pressler-lab/stimset/internal/report"
	"github.com/pressler-lab/stimset/internal/store"
	"github.com/pressler-lab/stimset/internal/table"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"

	jsonOutput bool
	debugLog   bool
	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stimset",
		Short: "Stimulus-set selection for memory experiments",
		Long: `Stimset selects and balances a stimulus set for a memory experiment
from cue-response word-association norms cross-referenced with
frequency, length and part-of-speech data.`,
	}

	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default: XDG config dir)")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if debugLog {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(map[string]string{
					"version": version,
					"commit":  commit,
					"date":    buildDate,
				})
			} else {
				fmt.Printf("stimset %s (%s, %s)\n", version, commit, buildDate)
			}
		},
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if err := cfg.Save(); err != nil {
				return err
			}
			configDir, err := config.GetConfigDir()
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(map[string]string{
					"config": filepath.Join(configDir, "config.yaml"),
				})
			} else {
				fmt.Printf("Wrote %s\n", filepath.Join(configDir, "config.yaml"))
				fmt.Println("Set inputs.norms_path and inputs.frequency_path, then run `stimset run`.")
			}
			return nil
		},
	}
}

// runSummary is what `stimset run --json` prints.
type runSummary struct {
	RunID             string `json:"run_id"`
	Targets           int    `json:"targets"`
	UsableTargetCount int    `json:"usable_target_count"`
	Pairings          int    `json:"pairings"`
	CSVPath           string `json:"csv_path"`
	DBPath            string `json:"db_path"`
	DurationMS        int64  `json:"duration_ms"`
}

func runCmd() *cobra.Command {
	var (
		normsPath string
		freqPath  string
		outDir    string
		seed      int64
		seedSet   bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full selection pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if normsPath != "" {
				cfg.Inputs.NormsPath = normsPath
			}
			if freqPath != "" {
				cfg.Inputs.FrequencyPath = freqPath
			}
			if outDir != "" {
				cfg.Export.OutDir = outDir
			}
			if seedSet = cmd.Flags().Changed("seed"); seedSet {
				cfg.Selection.Seed = seed
			}

			summary, err := runOnce(cfg, logger)
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(summary)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&normsPath, "norms", "", "Association norms CSV (overrides config)")
	cmd.Flags().StringVar(&freqPath, "frequency", "", "Frequency table CSV (overrides config)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (overrides config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for episodic pairing (overrides config)")
	return cmd
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the pipeline when the inputs or config change",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Inputs.NormsPath == "" || cfg.Inputs.FrequencyPath == "" {
				return fmt.Errorf("watch needs inputs.norms_path and inputs.frequency_path in config")
			}

			paths := []string{cfg.Inputs.NormsPath, cfg.Inputs.FrequencyPath}
			if configPath != "" {
				paths = append(paths, configPath)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return live.Watch(ctx, live.Options{
				Paths:    paths,
				Debounce: time.Duration(cfg.Watch.DebounceSeconds) * time.Second,
			}, logger, func() error {
				// Re-read the config each run so exclusion-list edits
				// take effect.
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				_, err = runOnce(cfg, logger)
				return err
			})
		},
	}
	return cmd
}

func runOnce(cfg *config.Config, logger *zap.Logger) (*runSummary, error) {
	if cfg.Inputs.NormsPath == "" || cfg.Inputs.FrequencyPath == "" {
		return nil, fmt.Errorf("inputs.norms_path and inputs.frequency_path are required")
	}
	outDir := cfg.Export.OutDir
	if outDir == "" {
		var err error
		outDir, err = config.GetDataDir()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	base, freq, err := loadInputs(cfg, logger)
	if err != nil {
		return nil, err
	}

	result, err := pipeline.New(cfg.Pipeline(), logger).Run(base, freq)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()

	csvPath := filepath.Join(outDir, "stimuli.csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", csvPath, err)
	}
	if err := export.WriteWide(f, result.Final, result.Pairings, cfg.Selection.PerResponse); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(outDir, "stimuli.db")
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := store.SaveRun(db, runID, cfg.Selection.Seed, result); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	if cfg.Export.Histograms {
		if err := report.SaveForwardHistogram(filepath.Join(outDir, "forward_hist.png"), result.Final, report.HistogramOptions{}); err != nil {
			logger.Warn("forward histogram failed", zap.Error(err))
		}
		if err := report.SaveFrequencyHistogram(filepath.Join(outDir, "frequency_hist.png"), result.Final, freq, report.HistogramOptions{}); err != nil {
			logger.Warn("frequency histogram failed", zap.Error(err))
		}
	}

	if !jsonOutput {
		fmt.Printf("Run %s: %d targets (%d usable), %d pairings in %s\n",
			runID, result.Finalize.DistinctResponses, result.Finalize.UsableTargetCount,
			len(result.Pairings), result.Duration.Round(time.Millisecond))
		fmt.Println()
		_ = export.RenderSemanticPreview(os.Stdout, result.Final, 15)
		fmt.Println()
		_ = export.RenderEpisodicPreview(os.Stdout, result.Pairings, 15)
	}

	return &runSummary{
		RunID:             runID,
		Targets:           result.Finalize.DistinctResponses,
		UsableTargetCount: result.Finalize.UsableTargetCount,
		Pairings:          len(result.Pairings),
		CSVPath:           csvPath,
		DBPath:            dbPath,
		DurationMS:        result.Duration.Milliseconds(),
	}, nil
}

func loadInputs(cfg *config.Config, logger *zap.Logger) (table.Table, *table.FrequencyTable, error) {
	nf, err := os.Open(cfg.Inputs.NormsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open norms: %w", err)
	}
	defer nf.Close()
	base, assocRes, err := norms.LoadAssociations(nf)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("association norms loaded",
		zap.Int("seen", assocRes.RowsSeen),
		zap.Int("kept", assocRes.RowsKept),
		zap.Int("dropped", assocRes.RowsDropped))

	ff, err := os.Open(cfg.Inputs.FrequencyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open frequency table: %w", err)
	}
	defer ff.Close()
	freq, freqRes, err := norms.LoadFrequency(ff)
	if err != nil {
		return nil, nil, err
	}
	filtered := norms.DefaultFrequencyFilter().Apply(freq)
	logger.Info("frequency table loaded",
		zap.Int("seen", freqRes.RowsSeen),
		zap.Int("kept", freqRes.RowsKept),
		zap.Int("in_window", filtered.Len()))

	return base, filtered, nil
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
