package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/pressler-lab/stimset/internal/pipeline"
	"github.com/pressler-lab/stimset/internal/table"
)

// WriteWide writes the finalized set pivoted wide: one row per response with
// columns response, semantic_cue_1..k, episodic_cue. Cue columns come out
// strongest first, matching the finalized table's within-group order.
func WriteWide(w io.Writer, final table.Table, pairings []pipeline.Pairing, perResponse int) error {
	episodic := make(map[string]string, len(pairings))
	for _, p := range pairings {
		episodic[p.Response] = p.EpisodicCue
	}

	cw := csv.NewWriter(w)
	header := []string{"response"}
	for i := 1; i <= perResponse; i++ {
		header = append(header, "semantic_cue_"+strconv.Itoa(i))
	}
	header = append(header, "episodic_cue")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	groups := final.GroupByResponse()
	for _, resp := range groups.Keys() {
		record := []string{resp}
		for _, i := range groups.Rows(resp) {
			record = append(record, final[i].Cue)
		}
		for len(record) < perResponse+1 {
			record = append(record, "")
		}
		record = append(record, episodic[resp])
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row for %q: %w", resp, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// RenderSemanticPreview writes an aligned text table of the finalized
// semantic set. limit <= 0 renders everything.
func RenderSemanticPreview(w io.Writer, final table.Table, limit int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CUE\tRESPONSE\tFORWARD\tBACKWARD")
	for i, r := range final {
		if limit > 0 && i >= limit {
			fmt.Fprintf(tw, "...\t(%d more rows)\t\t\n", len(final)-limit)
			break
		}
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.3f\n", r.Cue, r.Response, r.Forward, r.Backward)
	}
	return tw.Flush()
}

// RenderEpisodicPreview writes an aligned text table of the episodic
// pairings. limit <= 0 renders everything.
func RenderEpisodicPreview(w io.Writer, pairings []pipeline.Pairing, limit int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EPISODIC CUE\tTARGET")
	for i, p := range pairings {
		if limit > 0 && i >= limit {
			fmt.Fprintf(tw, "...\t(%d more rows)\n", len(pairings)-limit)
			break
		}
		fmt.Fprintf(tw, "%s\t%s\n", p.EpisodicCue, p.Response)
	}
	return tw.Flush()
}
