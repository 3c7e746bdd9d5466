package pipeline

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/pressler-lab/stimset/internal/table"
)

// Pairing assigns an unrelated episodic cue to a finalized target word.
type Pairing struct {
	Response    string
	EpisodicCue string
}

// EpisodicSelector picks a secondary word set disjoint from the finalized
// semantic set, to serve as unrelated control cues. It favours the weakest
// associations: an episodic cue must not already be semantically bound to
// its listed response.
type EpisodicSelector struct {
	Suffix  string // plural suffix, shared with the collapser
	NounPOS string // part-of-speech tag marking common nouns
	Seed    int64  // seed for the pairing shuffle
}

// NewEpisodicSelector returns a selector with the standard settings.
func NewEpisodicSelector(seed int64) *EpisodicSelector {
	return &EpisodicSelector{Suffix: "s", NounPOS: "Noun", Seed: seed}
}

// EpisodicResult reports the narrowing of the candidate pool.
type EpisodicResult struct {
	AfterExclusion   int // rows left once finalized words are removed
	AfterPluralDedup int
	AfterNounJoin    int
	DistinctCues     int
	Selected         int
}

// Select re-consumes the pre-filtering base table. Candidate rows lose any
// cue already present in the finalized set (either column), plural cue forms
// whose base form is also a cue, and anything that is not a common noun with
// frequency data. Per cue the weakest association survives; the weakest
// cues overall, one per finalized target, are shuffled with the configured
// seed and paired element-wise with the target list.
func (e *EpisodicSelector) Select(base table.Table, freq *table.FrequencyTable, final table.Table) ([]Pairing, *EpisodicResult, error) {
	res := &EpisodicResult{}

	used := final.CueSet()
	for w := range final.ResponseSet() {
		used[w] = true
	}
	t := base.Filter(func(r table.Row) bool { return !used[r.Cue] })
	res.AfterExclusion = len(t)

	// Keep only base forms when a cue coexists with its plural.
	cues := t.CueSet()
	t = t.Filter(func(r table.Row) bool {
		base, ok := trimSuffix(r.Cue, e.Suffix)
		return !ok || !cues[base]
	})
	res.AfterPluralDedup = len(t)

	t = t.Filter(func(r table.Row) bool {
		rec, ok := freq.Lookup(r.Cue)
		return ok && rec.POS == e.NounPOS
	})
	res.AfterNounJoin = len(t)

	// Weakest association per cue; ties keep the first encountered.
	groups := t.GroupByCue()
	keep := make(map[int]bool, len(groups.Keys()))
	for _, cue := range groups.Keys() {
		idxs := groups.Rows(cue)
		weakest := idxs[0]
		for _, i := range idxs[1:] {
			if t[i].Forward < t[weakest].Forward {
				weakest = i
			}
		}
		keep[weakest] = true
	}
	t = keepIndexes(t, keep)
	res.DistinctCues = len(t)

	targets := DistinctResponses(final)
	n := len(targets)
	if res.DistinctCues < n {
		return nil, res, fmt.Errorf("%w: need %d, have %d", ErrInsufficientCandidates, n, res.DistinctCues)
	}

	// Weakest n associations overall; stable sort keeps table order on ties.
	order := make([]int, len(t))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return t[order[i]].Forward < t[order[j]].Forward
	})
	cuesOut := make([]string, n)
	for i := 0; i < n; i++ {
		cuesOut[i] = t[order[i]].Cue
	}

	// Arbitrary but reproducible pairings: the shuffle is the pipeline's
	// only randomness and always runs from the configured seed.
	rng := rand.New(rand.NewSource(e.Seed))
	rng.Shuffle(len(cuesOut), func(i, j int) {
		cuesOut[i], cuesOut[j] = cuesOut[j], cuesOut[i]
	})

	pairs := make([]Pairing, n)
	for i, target := range targets {
		pairs[i] = Pairing{Response: target, EpisodicCue: cuesOut[i]}
	}
	res.Selected = n
	return pairs, res, nil
}
