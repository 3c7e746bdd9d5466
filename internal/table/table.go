package table

import (
	"math"
	"sort"
)

// Row is a single cue-response association norm.
// Forward is the proportion of respondents producing Response given Cue;
// Backward is the reverse proportion. Both live in [0,1].
type Row struct {
	Cue      string
	Response string
	Forward  float64
	Backward float64
}

// Table is an ordered sequence of association rows. Stages never mutate rows
// in place; they produce reduced copies, so encounter order is stable across
// the whole pipeline.
type Table []Row

// Filter returns a new table containing the rows for which keep returns true,
// preserving order.
func (t Table) Filter(keep func(Row) bool) Table {
	out := make(Table, 0, len(t))
	for _, r := range t {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Without returns a new table with the rows at the given indexes removed.
func (t Table) Without(drop map[int]bool) Table {
	if len(drop) == 0 {
		return append(Table(nil), t...)
	}
	out := make(Table, 0, len(t)-len(drop))
	for i, r := range t {
		if !drop[i] {
			out = append(out, r)
		}
	}
	return out
}

// Groups is a view over a table: row indexes bucketed by a key column, with
// keys kept in first-encounter order so iteration is deterministic.
type Groups struct {
	order []string
	idx   map[string][]int
}

// GroupByCue buckets row indexes by cue value.
func (t Table) GroupByCue() Groups {
	return t.groupBy(func(r Row) string { return r.Cue })
}

// GroupByResponse buckets row indexes by response value.
func (t Table) GroupByResponse() Groups {
	return t.groupBy(func(r Row) string { return r.Response })
}

func (t Table) groupBy(key func(Row) string) Groups {
	g := Groups{idx: make(map[string][]int)}
	for i, r := range t {
		k := key(r)
		if _, ok := g.idx[k]; !ok {
			g.order = append(g.order, k)
		}
		g.idx[k] = append(g.idx[k], i)
	}
	return g
}

// Keys returns the group keys in first-encounter order.
func (g Groups) Keys() []string { return g.order }

// Rows returns the row indexes for a key, in table order.
func (g Groups) Rows(key string) []int { return g.idx[key] }

// Has reports whether the key has any rows.
func (g Groups) Has(key string) bool { return len(g.idx[key]) > 0 }

// CueSet returns the set of cue values.
func (t Table) CueSet() map[string]bool {
	s := make(map[string]bool, len(t))
	for _, r := range t {
		s[r.Cue] = true
	}
	return s
}

// ResponseSet returns the set of response values.
func (t Table) ResponseSet() map[string]bool {
	s := make(map[string]bool, len(t))
	for _, r := range t {
		s[r.Response] = true
	}
	return s
}

// MeanForward computes the mean forward association over the rows at the
// given indexes. An empty index set yields NaN; callers that compare means
// must treat NaN as an automatic loser (see LosesTo).
func (t Table) MeanForward(idxs []int) float64 {
	if len(idxs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, i := range idxs {
		sum += t[i].Forward
	}
	return sum / float64(len(idxs))
}

// LosesTo reports whether a group with mean a loses against a group with
// mean b under the pipeline's comparison rule: NaN (empty group) always
// loses, and a tie between defined means is NOT a loss (tie handling is the
// caller's default branch).
func LosesTo(a, b float64) bool {
	if math.IsNaN(a) {
		return true
	}
	if math.IsNaN(b) {
		return false
	}
	return a < b
}

// SortIdxByForwardDesc returns the given indexes reordered by descending
// forward association. The sort is stable, so ties keep table order.
func (t Table) SortIdxByForwardDesc(idxs []int) []int {
	out := append([]int(nil), idxs...)
	sort.SliceStable(out, func(i, j int) bool {
		return t[out[i]].Forward > t[out[j]].Forward
	})
	return out
}

// TopByForward selects indexes whose forward association is at least the
// n-th largest value in the group, so ties at the boundary are all kept.
// Order of the result follows table order. Groups of n or fewer rows are
// returned whole.
func (t Table) TopByForward(idxs []int, n int) []int {
	if len(idxs) <= n {
		return append([]int(nil), idxs...)
	}
	sorted := t.SortIdxByForwardDesc(idxs)
	cutoff := t[sorted[n-1]].Forward
	out := make([]int, 0, n)
	for _, i := range idxs {
		if t[i].Forward >= cutoff {
			out = append(out, i)
		}
	}
	return out
}

// FirstN returns at most the first n indexes.
func FirstN(idxs []int, n int) []int {
	if len(idxs) <= n {
		return idxs
	}
	return idxs[:n]
}

// Select returns a new table containing the rows at the given indexes, in
// the order given.
func (t Table) Select(idxs []int) Table {
	out := make(Table, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, t[i])
	}
	return out
}
