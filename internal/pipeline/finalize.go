package pipeline

import (
	"github.com/pressler-lab/stimset/internal/table"
)

// DefaultConditions is the number of experimental conditions the target set
// must divide into.
const DefaultConditions = 3

// Finalizer caps each response group at the strongest PerResponse cues and
// applies the manual response exclusion list. Exclusions are data-driven
// overrides from part-of-speech review, so they are injected, never
// hard-coded.
type Finalizer struct {
	PerResponse        int
	Conditions         int
	ResponseExclusions []string
}

// NewFinalizer returns a finalizer keeping the top 3 cues per response for a
// 3-condition design.
func NewFinalizer(exclusions []string) *Finalizer {
	return &Finalizer{
		PerResponse:        3,
		Conditions:         DefaultConditions,
		ResponseExclusions: exclusions,
	}
}

// FinalResult carries the finalized set's bookkeeping.
type FinalResult struct {
	DistinctResponses int
	UsableTargetCount int // largest multiple of Conditions <= DistinctResponses
	GroupsDropped     int // response groups that fell below PerResponse
	GroupsExcluded    int // responses removed by the manual exclusion list
}

// Finalize emits, per surviving response, exactly PerResponse rows sorted by
// descending forward association. Response groups are emitted in
// first-encounter order; groups thinner than PerResponse are dropped
// entirely so every target keeps a full cue set.
func (f *Finalizer) Finalize(t table.Table) (table.Table, *FinalResult) {
	res := &FinalResult{}

	excluded := make(map[string]bool, len(f.ResponseExclusions))
	for _, w := range f.ResponseExclusions {
		excluded[w] = true
	}

	groups := t.GroupByResponse()
	out := make(table.Table, 0, len(t))
	for _, resp := range groups.Keys() {
		idxs := groups.Rows(resp)
		if len(idxs) < f.PerResponse {
			res.GroupsDropped++
			continue
		}
		if excluded[resp] {
			res.GroupsExcluded++
			continue
		}
		top := t.TopByForward(idxs, f.PerResponse)
		sorted := t.SortIdxByForwardDesc(top)
		out = append(out, t.Select(sorted[:f.PerResponse])...)
		res.DistinctResponses++
	}

	res.UsableTargetCount = (res.DistinctResponses / f.Conditions) * f.Conditions
	return out, res
}

// DistinctResponses returns the response values of a finalized table in
// first-encounter order.
func DistinctResponses(t table.Table) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t {
		if !seen[r.Response] {
			seen[r.Response] = true
			out = append(out, r.Response)
		}
	}
	return out
}
