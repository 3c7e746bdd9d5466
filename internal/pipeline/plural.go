package pipeline

import (
	"fmt"

	"github.com/pressler-lab/stimset/internal/table"
)

// PluralCollapser removes singular/plural duplicate forms: whenever a word
// and that word plus a trailing suffix both survive, only the form with the
// greater mean top-N forward association keeps its rows.
type PluralCollapser struct {
	Suffix       string
	MinGroupSize int // response-group floor re-checked between passes
	CompareTopN  int // rows per form entering the mean comparison
}

// NewPluralCollapser returns a collapser with the standard settings:
// trailing "s", top-3 comparison, group floor of 3.
func NewPluralCollapser() *PluralCollapser {
	return &PluralCollapser{
		Suffix:       "s",
		MinGroupSize: DefaultMinGroupSize,
		CompareTopN:  3,
	}
}

// PluralResult reports how many duplicate forms each pass resolved.
type PluralResult struct {
	CueFormsResolved      int
	ResponseFormsResolved int
	CrossFormsResolved    int
	RowsRemoved           int
}

// Collapse runs the three passes in order: the cue column, the response
// column (after re-checking the response group floor, since the cue pass may
// have thinned groups), and finally the cross-column pass that pairs a
// singular in one column with its plural in the other. Each pass drains a
// worklist in table-encounter order, retiring every word touched by a
// removal. A surviving singular/plural pair afterwards is an
// internal-consistency failure.
func (p *PluralCollapser) Collapse(t table.Table) (table.Table, *PluralResult, error) {
	res := &PluralResult{}

	t = p.collapseColumn(t, cueOf, &res.CueFormsResolved, &res.RowsRemoved)
	t = p.dropSmallResponseGroups(t)
	t = p.collapseColumn(t, responseOf, &res.ResponseFormsResolved, &res.RowsRemoved)
	t = p.collapseCross(t, res)

	if w := p.firstMultiform(columnSet(t, cueOf)); w != "" {
		return nil, res, fmt.Errorf("%w: cue column keeps both %q and %q", ErrInvariant, w, w+p.Suffix)
	}
	if w := p.firstMultiform(columnSet(t, responseOf)); w != "" {
		return nil, res, fmt.Errorf("%w: response column keeps both %q and %q", ErrInvariant, w, w+p.Suffix)
	}
	if w, ws := p.firstCrossMultiform(t); w != "" {
		return nil, res, fmt.Errorf("%w: %q and %q survive across columns", ErrInvariant, w, ws)
	}
	return t, res, nil
}

func cueOf(r table.Row) string      { return r.Cue }
func responseOf(r table.Row) string { return r.Response }

// collapseColumn resolves singular/plural pairs within a single column. For
// each base word w the means of up to the first CompareTopN rows of w and of
// w+suffix are compared; the smaller mean loses its entire row-group. A tie,
// or an empty singular group, drops the singular form.
func (p *PluralCollapser) collapseColumn(t table.Table, col func(table.Row) string, resolved *int, removed *int) table.Table {
	values := columnSet(t, col)
	pending := make(map[string]bool)
	for w := range values {
		if values[w+p.Suffix] {
			pending[w] = true
		}
	}
	queue := columnEncounterOrder(t, col, pending)

	for _, w := range queue {
		if !pending[w] {
			continue
		}
		delete(pending, w)

		rows := rowsWhere(t, col, w)
		pluralRows := rowsWhere(t, col, w+p.Suffix)
		singularMean := t.MeanForward(table.FirstN(rows, p.CompareTopN))
		pluralMean := t.MeanForward(table.FirstN(pluralRows, p.CompareTopN))

		var loserRows []int
		if table.LosesTo(pluralMean, singularMean) {
			loserRows = pluralRows
		} else {
			loserRows = rows
		}
		*resolved++

		drop := make(map[int]bool, len(loserRows))
		for _, i := range loserRows {
			drop[i] = true
			retirePending(pending, t[i], p.Suffix)
		}
		*removed += len(drop)
		t = t.Without(drop)
	}
	return t
}

// crossPair is a singular form in one column whose plural lives in the other.
type crossPair struct {
	base          string
	singularInCue bool
}

// collapseCross resolves pairs straddling the two columns. The singular
// side's comparison group is broadened to the full response group of its row
// when it holds only a single row, so a lone cue row is not compared
// unfairly against a populated group.
func (p *PluralCollapser) collapseCross(t table.Table, res *PluralResult) table.Table {
	pending := make(map[crossPair]bool)
	var queue []crossPair
	enqueue := func(pair crossPair) {
		if !pending[pair] {
			pending[pair] = true
			queue = append(queue, pair)
		}
	}
	cues := columnSet(t, cueOf)
	responses := columnSet(t, responseOf)
	for _, r := range t {
		if responses[r.Cue+p.Suffix] {
			enqueue(crossPair{base: r.Cue, singularInCue: true})
		}
		if cues[r.Response+p.Suffix] {
			enqueue(crossPair{base: r.Response, singularInCue: false})
		}
	}

	retired := make(map[string]bool)
	for _, pair := range queue {
		if retired[pair.base] || retired[pair.base+p.Suffix] {
			continue
		}

		singularCol, pluralCol := cueOf, responseOf
		if !pair.singularInCue {
			singularCol, pluralCol = responseOf, cueOf
		}
		singularRows := rowsWhere(t, singularCol, pair.base)
		pluralRows := rowsWhere(t, pluralCol, pair.base+p.Suffix)
		if len(singularRows) == 0 || len(pluralRows) == 0 {
			continue
		}

		singularGroup := table.FirstN(singularRows, p.CompareTopN)
		if len(singularRows) == 1 {
			// Broaden a 1-row singular group to every row sharing its
			// response value before taking the mean.
			singularGroup = rowsWhere(t, responseOf, t[singularRows[0]].Response)
		}
		singularMean := t.MeanForward(singularGroup)
		pluralMean := t.MeanForward(table.FirstN(pluralRows, p.CompareTopN))

		var loserRows []int
		if table.LosesTo(pluralMean, singularMean) {
			loserRows = pluralRows
		} else {
			loserRows = singularRows
		}
		res.CrossFormsResolved++

		drop := make(map[int]bool, len(loserRows))
		for _, i := range loserRows {
			drop[i] = true
			retired[t[i].Cue] = true
			retired[t[i].Response] = true
		}
		res.RowsRemoved += len(drop)
		t = t.Without(drop)
	}
	return t
}

func (p *PluralCollapser) dropSmallResponseGroups(t table.Table) table.Table {
	groups := t.GroupByResponse()
	keep := make(map[int]bool, len(t))
	for _, resp := range groups.Keys() {
		idxs := groups.Rows(resp)
		if len(idxs) < p.MinGroupSize {
			continue
		}
		for _, i := range idxs {
			keep[i] = true
		}
	}
	return keepIndexes(t, keep)
}

func (p *PluralCollapser) firstMultiform(set map[string]bool) string {
	for w := range set {
		if set[w+p.Suffix] {
			return w
		}
	}
	return ""
}

func (p *PluralCollapser) firstCrossMultiform(t table.Table) (string, string) {
	cues := columnSet(t, cueOf)
	responses := columnSet(t, responseOf)
	for w := range cues {
		if responses[w+p.Suffix] {
			return w, w + p.Suffix
		}
	}
	for w := range responses {
		if cues[w+p.Suffix] {
			return w, w + p.Suffix
		}
	}
	return "", ""
}

func columnSet(t table.Table, col func(table.Row) string) map[string]bool {
	s := make(map[string]bool, len(t))
	for _, r := range t {
		s[col(r)] = true
	}
	return s
}

func columnEncounterOrder(t table.Table, col func(table.Row) string, want map[string]bool) []string {
	seen := make(map[string]bool, len(want))
	var out []string
	for _, r := range t {
		if v := col(r); want[v] && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func rowsWhere(t table.Table, col func(table.Row) string, value string) []int {
	var out []int
	for i, r := range t {
		if col(r) == value {
			out = append(out, i)
		}
	}
	return out
}

// retirePending drops from the pending set any base form touched by a
// removed row, in either its singular or plural spelling.
func retirePending(pending map[string]bool, r table.Row, suffix string) {
	for _, w := range []string{r.Cue, r.Response} {
		delete(pending, w)
		if base, ok := trimSuffix(w, suffix); ok {
			delete(pending, base)
		}
	}
}

func trimSuffix(w, suffix string) (string, bool) {
	if len(w) > len(suffix) && w[len(w)-len(suffix):] == suffix {
		return w[:len(w)-len(suffix)], true
	}
	return "", false
}
