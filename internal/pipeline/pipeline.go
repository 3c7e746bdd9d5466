package pipeline

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pressler-lab/stimset/internal/table"
)

// Config holds every tunable of the selection pipeline. The zero value is
// not usable; start from DefaultConfig.
type Config struct {
	MinForward         float64
	MinGroupSize       int
	TopPerResponse     int
	PerResponse        int
	Conditions         int
	CueBlacklist       []string
	ResponseExclusions []string
	PluralSuffix       string
	NounPOS            string
	Seed               int64
}

// DefaultConfig returns the standard experiment parameters.
func DefaultConfig() *Config {
	return &Config{
		MinForward:     DefaultMinForward,
		MinGroupSize:   DefaultMinGroupSize,
		TopPerResponse: DefaultTopPerResponse,
		PerResponse:    3,
		Conditions:     DefaultConditions,
		CueBlacklist:   DefaultCueBlacklist,
		PluralSuffix:   "s",
		NounPOS:        "Noun",
		Seed:           1,
	}
}

// Result is everything a run produces: the finalized semantic table, the
// episodic pairing table, and per-stage counters. The two tables are the
// read surface for downstream rendering and export.
type Result struct {
	Final    table.Table
	Pairings []Pairing

	Strength *StrengthResult
	Overlap  *OverlapResult
	Plural   *PluralResult
	Finalize *FinalResult
	Episodic *EpisodicResult

	BaseRows       int
	FrequencyWords int
	Duration       time.Duration
}

// Pipeline wires the stages together. Stages are pure: each consumes a table
// and returns a reduced one, so they stay independently testable.
type Pipeline struct {
	config *Config
	logger *zap.Logger

	strength  *StrengthSelector
	overlap   *OverlapResolver
	plural    *PluralCollapser
	finalizer *Finalizer
	episodic  *EpisodicSelector
}

// New builds a pipeline from config. A nil logger is replaced with a no-op
// logger.
func New(config *Config, logger *zap.Logger) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	strength := NewStrengthSelector()
	strength.MinForward = config.MinForward
	strength.MinGroupSize = config.MinGroupSize
	strength.TopPerResponse = config.TopPerResponse
	strength.CueBlacklist = config.CueBlacklist

	plural := NewPluralCollapser()
	plural.Suffix = config.PluralSuffix
	plural.MinGroupSize = config.MinGroupSize

	finalizer := NewFinalizer(config.ResponseExclusions)
	finalizer.PerResponse = config.PerResponse
	finalizer.Conditions = config.Conditions

	episodic := NewEpisodicSelector(config.Seed)
	episodic.Suffix = config.PluralSuffix
	episodic.NounPOS = config.NounPOS

	return &Pipeline{
		config:    config,
		logger:    logger,
		strength:  strength,
		overlap:   NewOverlapResolver(),
		plural:    plural,
		finalizer: finalizer,
		episodic:  episodic,
	}
}

// Run executes the full selection: strength selection, overlap resolution,
// plural collapsing, finalization, episodic pairing. The base table and the
// filtered frequency table are re-consumed by the episodic stage, so Run
// does not modify either.
func (p *Pipeline) Run(base table.Table, freq *table.FrequencyTable) (*Result, error) {
	start := time.Now()
	result := &Result{
		BaseRows:       len(base),
		FrequencyWords: freq.Len(),
	}

	selected, strengthRes, err := p.strength.Select(base, freq)
	if err != nil {
		return nil, fmt.Errorf("strength selection: %w", err)
	}
	result.Strength = strengthRes
	p.logger.Info("strength selection done",
		zap.Int("rows_in", len(base)),
		zap.Int("rows_out", len(selected)))

	resolved, overlapRes, err := p.overlap.Resolve(selected)
	if err != nil {
		return nil, fmt.Errorf("overlap resolution: %w", err)
	}
	result.Overlap = overlapRes
	p.logger.Info("overlap resolution done",
		zap.Int("conflicts", overlapRes.ConflictsFound),
		zap.Int("rows_removed", overlapRes.RowsRemoved))

	collapsed, pluralRes, err := p.plural.Collapse(resolved)
	if err != nil {
		return nil, fmt.Errorf("plural collapsing: %w", err)
	}
	result.Plural = pluralRes
	p.logger.Info("plural collapsing done",
		zap.Int("cue_forms", pluralRes.CueFormsResolved),
		zap.Int("response_forms", pluralRes.ResponseFormsResolved),
		zap.Int("cross_forms", pluralRes.CrossFormsResolved))

	final, finalRes := p.finalizer.Finalize(collapsed)
	result.Final = final
	result.Finalize = finalRes
	p.logger.Info("finalization done",
		zap.Int("targets", finalRes.DistinctResponses),
		zap.Int("usable_targets", finalRes.UsableTargetCount))

	pairings, episodicRes, err := p.episodic.Select(base, freq, final)
	if err != nil {
		return nil, fmt.Errorf("episodic selection: %w", err)
	}
	result.Pairings = pairings
	result.Episodic = episodicRes
	p.logger.Info("episodic selection done",
		zap.Int("pairings", len(pairings)),
		zap.Int64("seed", p.config.Seed))

	result.Duration = time.Since(start)
	return result, nil
}
