package pipeline

import (
	"testing"

	"github.com/pressler-lab/stimset/internal/table"
)

// "cat" appears as a cue (cat -> dog) and as a response. The cat response
// group has mean 0.55 against the dog group's 0.5, so the dog group it
// feeds into is removed and cat survives as a response only.
func TestOverlapKeepsStrongerResponseRole(t *testing.T) {
	base := table.Table{
		{Cue: "cat", Response: "dog", Forward: 0.75},
		{Cue: "fetch", Response: "dog", Forward: 0.25},
		{Cue: "meow", Response: "cat", Forward: 0.9},
		{Cue: "mouse", Response: "cat", Forward: 0.2},
	}

	got, res, err := NewOverlapResolver().Resolve(base)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.ConflictsFound != 1 || res.ResponseRolesKept != 1 || res.CueRolesKept != 0 {
		t.Fatalf("Unexpected counters: %+v", res)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 surviving rows, got %d", len(got))
	}
	for _, r := range got {
		if r.Response != "cat" {
			t.Errorf("Expected only cat rows to survive, got %+v", r)
		}
	}
}

func TestOverlapTieKeepsCueRole(t *testing.T) {
	// Both groups have mean 0.4; the tie removes the group where the
	// conflicting word is a response.
	base := table.Table{
		{Cue: "cat", Response: "dog", Forward: 0.4},
		{Cue: "kitten", Response: "cat", Forward: 0.4},
	}

	got, res, err := NewOverlapResolver().Resolve(base)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.CueRolesKept != 1 {
		t.Fatalf("Expected the cue role to be kept on a tie, counters: %+v", res)
	}
	if len(got) != 1 || got[0].Cue != "cat" {
		t.Fatalf("Expected only the cat -> dog row, got %v", got)
	}
}

func TestOverlapResolutionRetiresQueuedWords(t *testing.T) {
	// Resolving "cat" removes the dog group, which also retires "dog" from
	// the worklist before its turn.
	base := table.Table{
		{Cue: "cat", Response: "dog", Forward: 0.2},
		{Cue: "kitten", Response: "cat", Forward: 0.5},
		{Cue: "puppy", Response: "dog", Forward: 0.4},
		{Cue: "dog", Response: "bird", Forward: 0.3},
	}

	got, res, err := NewOverlapResolver().Resolve(base)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.ConflictsFound != 2 {
		t.Errorf("Expected 2 conflicts found, got %d", res.ConflictsFound)
	}
	if res.WordsRemovedFromQueue != 1 {
		t.Errorf("Expected 1 word retired from the queue, got %d", res.WordsRemovedFromQueue)
	}
	if res.RowsRemoved != 2 {
		t.Errorf("Expected 2 rows removed, got %d", res.RowsRemoved)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 surviving rows, got %v", got)
	}
	// dog -> bird survives untouched even though dog was queued.
	if got[1].Cue != "dog" || got[1].Response != "bird" {
		t.Errorf("Expected dog -> bird to survive, got %+v", got[1])
	}
}

func TestOverlapDisjointInputUntouched(t *testing.T) {
	base := table.Table{
		{Cue: "kitten", Response: "cat", Forward: 0.5},
		{Cue: "puppy", Response: "dog", Forward: 0.6},
	}
	got, res, err := NewOverlapResolver().Resolve(base)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.ConflictsFound != 0 || res.RowsRemoved != 0 {
		t.Errorf("Unexpected counters: %+v", res)
	}
	if len(got) != 2 {
		t.Fatalf("Expected input to pass through, got %v", got)
	}
}
