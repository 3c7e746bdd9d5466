package pipeline

import (
	"reflect"
	"testing"

	"github.com/pressler-lab/stimset/internal/table"
)

// fullBase is a small corpus that exercises every stage: two well-populated
// semantic targets plus a pool of weak noun associations for the episodic
// stage.
func fullBase() table.Table {
	return table.Table{
		{Cue: "kitten", Response: "cat", Forward: 0.52, Backward: 0.10},
		{Cue: "meow", Response: "cat", Forward: 0.43, Backward: 0.08},
		{Cue: "whisker", Response: "cat", Forward: 0.35, Backward: 0.06},
		{Cue: "feline", Response: "cat", Forward: 0.30, Backward: 0.05},
		{Cue: "puppy", Response: "dog", Forward: 0.60, Backward: 0.12},
		{Cue: "bark", Response: "dog", Forward: 0.45, Backward: 0.09},
		{Cue: "leash", Response: "dog", Forward: 0.33, Backward: 0.07},
		{Cue: "collar", Response: "dog", Forward: 0.28, Backward: 0.04},
		{Cue: "zebra", Response: "cat", Forward: 0.05, Backward: 0.01},
		{Cue: "piano", Response: "dog", Forward: 0.04, Backward: 0.01},
		{Cue: "maple", Response: "cat", Forward: 0.03, Backward: 0.01},
	}
}

func fullFreq() *table.FrequencyTable {
	ft := table.NewFrequencyTable()
	for _, rec := range []table.FrequencyRecord{
		{Word: "cat", Length: 3, SubtlexWF: 80, POS: "Noun"},
		{Word: "dog", Length: 3, SubtlexWF: 90, POS: "Noun"},
		{Word: "zebra", Length: 5, SubtlexWF: 10, POS: "Noun"},
		{Word: "piano", Length: 5, SubtlexWF: 12, POS: "Noun"},
		{Word: "maple", Length: 5, SubtlexWF: 7, POS: "Noun"},
	} {
		ft.Add(rec)
	}
	return ft
}

func TestPipelineEndToEnd(t *testing.T) {
	p := New(DefaultConfig(), nil)

	result, err := p.Run(fullBase(), fullFreq())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Finalize.DistinctResponses != 2 {
		t.Fatalf("Expected 2 targets, got %d", result.Finalize.DistinctResponses)
	}
	if len(result.Final) != 6 {
		t.Fatalf("Expected 6 final rows, got %d", len(result.Final))
	}
	wantCues := []string{"kitten", "meow", "whisker", "puppy", "bark", "leash"}
	for i, cue := range wantCues {
		if result.Final[i].Cue != cue {
			t.Errorf("Final row %d: expected cue %q, got %q", i, cue, result.Final[i].Cue)
		}
	}

	// Final cue and response sets must be disjoint and plural-free.
	cues := result.Final.CueSet()
	for resp := range result.Final.ResponseSet() {
		if cues[resp] {
			t.Errorf("Word %q survives as both cue and response", resp)
		}
	}

	if len(result.Pairings) != 2 {
		t.Fatalf("Expected 2 pairings, got %d", len(result.Pairings))
	}
	seen := make(map[string]bool)
	for _, p := range result.Pairings {
		if cues[p.EpisodicCue] {
			t.Errorf("Episodic cue %q collides with a semantic cue", p.EpisodicCue)
		}
		if seen[p.EpisodicCue] {
			t.Errorf("Episodic cue %q assigned twice", p.EpisodicCue)
		}
		seen[p.EpisodicCue] = true
	}

	if result.BaseRows != 11 || result.FrequencyWords != 5 {
		t.Errorf("Unexpected input counters: base=%d freq=%d", result.BaseRows, result.FrequencyWords)
	}
}

func TestPipelineIsDeterministic(t *testing.T) {
	config := DefaultConfig()
	config.Seed = 7

	first, err := New(config, nil).Run(fullBase(), fullFreq())
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	second, err := New(config, nil).Run(fullBase(), fullFreq())
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if !reflect.DeepEqual(first.Final, second.Final) {
		t.Error("Final tables differ between identical runs")
	}
	if !reflect.DeepEqual(first.Pairings, second.Pairings) {
		t.Error("Pairings differ between identical runs")
	}
}

func TestPipelineNilConfigUsesDefaults(t *testing.T) {
	p := New(nil, nil)
	if p.config.MinForward != DefaultMinForward || p.config.Seed != 1 {
		t.Fatalf("Expected default config, got %+v", p.config)
	}
}
