package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pressler-lab/stimset/internal/pipeline"
)

//go:embed schema.sql
var schemaSQL string

// Open opens (creating if needed) the study database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Pragmas for performance + concurrency.
	// WAL allows concurrent readers while a writer is active.
	// busy_timeout reduces SQLITE_BUSY errors under contention.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set synchronous: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// SaveRun persists one pipeline run: the run row, the finalized semantic
// stimuli (positions 1..k per response, strongest first) and the episodic
// pairing table. All-or-nothing via a single transaction.
func SaveRun(db *sql.DB, runID string, seed int64, result *pipeline.Result) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO runs (id, created_at, seed, usable_target_count, distinct_targets, base_rows, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, time.Now().Format(time.RFC3339), seed,
		result.Finalize.UsableTargetCount, result.Finalize.DistinctResponses,
		result.BaseRows, result.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	insStim, err := tx.Prepare(`
		INSERT INTO semantic_stimuli (run_id, response, position, cue, forward, backward)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	// Final table rows arrive grouped by response, strongest cue first.
	position := 0
	lastResponse := ""
	for _, r := range result.Final {
		if r.Response != lastResponse {
			lastResponse = r.Response
			position = 0
		}
		position++
		if _, err := insStim.Exec(runID, r.Response, position, r.Cue, r.Forward, r.Backward); err != nil {
			return fmt.Errorf("insert stimulus %s/%s: %w", r.Response, r.Cue, err)
		}
	}

	insPair, err := tx.Prepare(`
		INSERT INTO episodic_pairs (run_id, response, episodic_cue)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return err
	}
	for _, p := range result.Pairings {
		if _, err := insPair.Exec(runID, p.Response, p.EpisodicCue); err != nil {
			return fmt.Errorf("insert pairing %s: %w", p.Response, err)
		}
	}

	return tx.Commit()
}
