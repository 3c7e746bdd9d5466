package pipeline

import (
	"fmt"

	"github.com/pressler-lab/stimset/internal/table"
)

// OverlapResolver eliminates words that appear as a cue in one row and as a
// response in another. Each conflicting word keeps exactly one role; the
// losing role's whole row-group is removed.
type OverlapResolver struct{}

// NewOverlapResolver returns an OverlapResolver.
func NewOverlapResolver() *OverlapResolver {
	return &OverlapResolver{}
}

// OverlapResult reports how the conflicts were settled.
type OverlapResult struct {
	ConflictsFound        int
	CueRolesKept          int // response-role group removed
	ResponseRolesKept     int // cue-role group removed
	RowsRemoved           int
	WordsRemovedFromQueue int // queue entries retired by another word's resolution
}

// Resolve drains a worklist of overlapping words, queued in table-encounter
// order. For a word w: X is the row-group w's cue row feeds into (rows
// sharing that row's response), Y is the group where w itself is the
// response. The group with the smaller mean forward association is removed;
// a tie removes Y, keeping w as a cue. Every cue and response word touched
// by the removal is retired from the worklist along with w.
//
// Postcondition: the cue and response value sets are disjoint. A leftover
// overlap is an internal-consistency failure.
func (o *OverlapResolver) Resolve(t table.Table) (table.Table, *OverlapResult, error) {
	res := &OverlapResult{}

	overlap := overlapSet(t)
	res.ConflictsFound = len(overlap)
	queue := encounterOrder(t, overlap)

	for _, w := range queue {
		if !overlap[w] {
			res.WordsRemovedFromQueue++
			continue
		}
		delete(overlap, w)

		target, ok := firstResponseOfCue(t, w)
		if !ok {
			// w's cue rows were removed without w leaving the queue;
			// it no longer conflicts.
			continue
		}
		groups := t.GroupByResponse()
		x := groups.Rows(target) // the group w's cue role feeds into
		y := groups.Rows(w)      // the group where w is a response
		if len(y) == 0 {
			continue
		}

		var removed []int
		if t.MeanForward(y) > t.MeanForward(x) {
			removed = x
			res.ResponseRolesKept++
		} else {
			removed = y
			res.CueRolesKept++
		}

		drop := make(map[int]bool, len(removed))
		for _, i := range removed {
			drop[i] = true
			delete(overlap, t[i].Cue)
			delete(overlap, t[i].Response)
		}
		res.RowsRemoved += len(drop)
		t = t.Without(drop)
	}

	if w := firstOverlap(t); w != "" {
		return nil, res, fmt.Errorf("%w: %q still appears as both cue and response", ErrInvariant, w)
	}
	return t, res, nil
}

// overlapSet returns the intersection of the cue and response value sets.
func overlapSet(t table.Table) map[string]bool {
	cues := t.CueSet()
	out := make(map[string]bool)
	for _, r := range t {
		if cues[r.Response] {
			out[r.Response] = true
		}
	}
	return out
}

// encounterOrder lists the members of want in the order they first appear in
// the table, checking the cue column before the response column per row.
func encounterOrder(t table.Table, want map[string]bool) []string {
	seen := make(map[string]bool, len(want))
	var out []string
	for _, r := range t {
		if want[r.Cue] && !seen[r.Cue] {
			seen[r.Cue] = true
			out = append(out, r.Cue)
		}
		if want[r.Response] && !seen[r.Response] {
			seen[r.Response] = true
			out = append(out, r.Response)
		}
	}
	return out
}

func firstResponseOfCue(t table.Table, cue string) (string, bool) {
	for _, r := range t {
		if r.Cue == cue {
			return r.Response, true
		}
	}
	return "", false
}

func firstOverlap(t table.Table) string {
	cues := t.CueSet()
	for _, r := range t {
		if cues[r.Response] {
			return r.Response
		}
	}
	return ""
}
