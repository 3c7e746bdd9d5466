package pipeline

import (
	"fmt"

	"github.com/pressler-lab/stimset/internal/table"
)

// Default selection thresholds.
const (
	DefaultMinForward     = 0.1 // forward association must exceed this
	DefaultMinGroupSize   = 3   // minimum cues per response
	DefaultTopPerResponse = 5   // strongest cues kept per response
)

// DefaultCueBlacklist lists cue words excluded outright before selection.
var DefaultCueBlacklist = []string{"slave", "president"}

// StrengthSelector joins the association norms to the frequency table and
// narrows them to the strongest, well-populated cue-response pairs.
type StrengthSelector struct {
	MinForward     float64
	MinGroupSize   int
	TopPerResponse int
	CueBlacklist   []string
}

// NewStrengthSelector returns a selector with the standard thresholds.
func NewStrengthSelector() *StrengthSelector {
	return &StrengthSelector{
		MinForward:     DefaultMinForward,
		MinGroupSize:   DefaultMinGroupSize,
		TopPerResponse: DefaultTopPerResponse,
		CueBlacklist:   DefaultCueBlacklist,
	}
}

// StrengthResult reports row counts after each narrowing step.
type StrengthResult struct {
	AfterJoin      int
	AfterThreshold int
	AfterGroupMin  int
	AfterCueMax    int
	AfterRegroup   int
	AfterTopN      int
}

// Select applies the six narrowing steps in order. Each step shrinks the
// candidate set before the next one runs; reordering them changes the
// result. The returned table has globally unique cues; a duplicate cue here
// is an internal-consistency failure, reported as ErrInvariant.
func (s *StrengthSelector) Select(t table.Table, freq *table.FrequencyTable) (table.Table, *StrengthResult, error) {
	res := &StrengthResult{}

	// Step 1: inner join on response == word. Responses without frequency
	// data cannot be balanced and are dropped.
	t = t.Filter(func(r table.Row) bool { return freq.Has(r.Response) })
	res.AfterJoin = len(t)

	// Step 2: cue blacklist and forward-association floor.
	blacklisted := make(map[string]bool, len(s.CueBlacklist))
	for _, w := range s.CueBlacklist {
		blacklisted[w] = true
	}
	t = t.Filter(func(r table.Row) bool {
		return !blacklisted[r.Cue] && r.Forward > s.MinForward
	})
	res.AfterThreshold = len(t)

	// Step 3: responses need at least MinGroupSize cues.
	t = s.dropSmallResponseGroups(t)
	res.AfterGroupMin = len(t)

	// Step 4: one row per cue, the strongest; ties keep the first
	// encountered so the outcome is stable.
	t = keepStrongestPerCue(t)
	res.AfterCueMax = len(t)

	// Step 5: step 4 may have emptied response groups below the floor.
	t = s.dropSmallResponseGroups(t)
	res.AfterRegroup = len(t)

	// Step 6: top-N cues per response, keeping all rows tied at the
	// boundary value.
	groups := t.GroupByResponse()
	keep := make(map[int]bool, len(t))
	for _, resp := range groups.Keys() {
		for _, i := range t.TopByForward(groups.Rows(resp), s.TopPerResponse) {
			keep[i] = true
		}
	}
	t = keepIndexes(t, keep)
	res.AfterTopN = len(t)

	if dup := firstDuplicateCue(t); dup != "" {
		return nil, res, fmt.Errorf("%w: cue %q survives in more than one row after selection", ErrInvariant, dup)
	}
	return t, res, nil
}

func (s *StrengthSelector) dropSmallResponseGroups(t table.Table) table.Table {
	groups := t.GroupByResponse()
	keep := make(map[int]bool, len(t))
	for _, resp := range groups.Keys() {
		idxs := groups.Rows(resp)
		if len(idxs) < s.MinGroupSize {
			continue
		}
		for _, i := range idxs {
			keep[i] = true
		}
	}
	return keepIndexes(t, keep)
}

// keepStrongestPerCue keeps, for each cue, the first row carrying that cue's
// maximal forward association.
func keepStrongestPerCue(t table.Table) table.Table {
	groups := t.GroupByCue()
	keep := make(map[int]bool, len(groups.Keys()))
	for _, cue := range groups.Keys() {
		idxs := groups.Rows(cue)
		best := idxs[0]
		for _, i := range idxs[1:] {
			if t[i].Forward > t[best].Forward {
				best = i
			}
		}
		keep[best] = true
	}
	return keepIndexes(t, keep)
}

// keepIndexes rebuilds a table from a keep-set, preserving table order.
func keepIndexes(t table.Table, keep map[int]bool) table.Table {
	out := make(table.Table, 0, len(keep))
	for i, r := range t {
		if keep[i] {
			out = append(out, r)
		}
	}
	return out
}

func firstDuplicateCue(t table.Table) string {
	seen := make(map[string]bool, len(t))
	for _, r := range t {
		if seen[r.Cue] {
			return r.Cue
		}
		seen[r.Cue] = true
	}
	return ""
}
