package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pressler-lab/stimset/internal/pipeline"
	"github.com/pressler-lab/stimset/internal/table"
)

func testResult() *pipeline.Result {
	return &pipeline.Result{
		Final: table.Table{
			{Cue: "kitten", Response: "cat", Forward: 0.5, Backward: 0.1},
			{Cue: "meow", Response: "cat", Forward: 0.4, Backward: 0.08},
			{Cue: "whisker", Response: "cat", Forward: 0.3, Backward: 0.06},
			{Cue: "puppy", Response: "dog", Forward: 0.6, Backward: 0.12},
			{Cue: "bark", Response: "dog", Forward: 0.45, Backward: 0.09},
			{Cue: "leash", Response: "dog", Forward: 0.33, Backward: 0.07},
		},
		Pairings: []pipeline.Pairing{
			{Response: "cat", EpisodicCue: "maple"},
			{Response: "dog", EpisodicCue: "piano"},
		},
		Finalize: &pipeline.FinalResult{
			DistinctResponses: 2,
			UsableTargetCount: 0,
		},
		BaseRows: 11,
		Duration: 42 * time.Millisecond,
	}
}

func TestSaveRunRoundTrip(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "stimuli.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := SaveRun(db, "run-1", 7, testResult()); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	var seed int64
	var baseRows, distinct int
	err = db.QueryRow(`SELECT seed, base_rows, distinct_targets FROM runs WHERE id = ?`, "run-1").
		Scan(&seed, &baseRows, &distinct)
	if err != nil {
		t.Fatalf("Failed to read run row: %v", err)
	}
	if seed != 7 || baseRows != 11 || distinct != 2 {
		t.Errorf("Unexpected run row: seed=%d base=%d distinct=%d", seed, baseRows, distinct)
	}

	var stimCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM semantic_stimuli WHERE run_id = ?`, "run-1").Scan(&stimCount); err != nil {
		t.Fatalf("Failed to count stimuli: %v", err)
	}
	if stimCount != 6 {
		t.Errorf("Expected 6 stimuli, got %d", stimCount)
	}

	// Positions restart per response and follow strongest-first order.
	var cue string
	err = db.QueryRow(`SELECT cue FROM semantic_stimuli WHERE run_id = ? AND response = ? AND position = 1`,
		"run-1", "dog").Scan(&cue)
	if err != nil {
		t.Fatalf("Failed to read position 1: %v", err)
	}
	if cue != "puppy" {
		t.Errorf("Expected puppy at position 1 for dog, got %q", cue)
	}

	var episodic string
	err = db.QueryRow(`SELECT episodic_cue FROM episodic_pairs WHERE run_id = ? AND response = ?`,
		"run-1", "cat").Scan(&episodic)
	if err != nil {
		t.Fatalf("Failed to read pairing: %v", err)
	}
	if episodic != "maple" {
		t.Errorf("Expected maple, got %q", episodic)
	}
}

func TestSaveRunDuplicateIDFails(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "stimuli.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := SaveRun(db, "run-1", 1, testResult()); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := SaveRun(db, "run-1", 1, testResult()); err == nil {
		t.Fatal("Expected duplicate run ID to fail")
	}

	// The failed save must not leave partial rows behind.
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM semantic_stimuli`).Scan(&count); err != nil {
		t.Fatalf("Failed to count stimuli: %v", err)
	}
	if count != 6 {
		t.Errorf("Expected 6 stimuli from the first save only, got %d", count)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stimuli.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()
}
