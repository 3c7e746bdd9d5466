package report

import (
	"fmt"
	"math"

	"github.com/fogleman/gg"

	"github.com/pressler-lab/stimset/internal/pipeline"
	"github.com/pressler-lab/stimset/internal/table"
)

// HistogramOptions controls histogram rendering.
type HistogramOptions struct {
	Bins   int
	Width  int
	Height int
	Title  string
}

func (o HistogramOptions) withDefaults() HistogramOptions {
	if o.Bins <= 0 {
		o.Bins = 20
	}
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 500
	}
	return o
}

// SaveForwardHistogram renders the forward-association distribution of the
// finalized set to a PNG.
func SaveForwardHistogram(path string, final table.Table, opts HistogramOptions) error {
	values := make([]float64, 0, len(final))
	for _, r := range final {
		values = append(values, r.Forward)
	}
	if opts.Title == "" {
		opts.Title = "Forward association strength"
	}
	return saveHistogram(path, values, opts)
}

// SaveFrequencyHistogram renders the SUBTLEX frequency distribution of the
// finalized responses to a PNG.
func SaveFrequencyHistogram(path string, final table.Table, freq *table.FrequencyTable, opts HistogramOptions) error {
	var values []float64
	for _, resp := range pipeline.DistinctResponses(final) {
		if rec, ok := freq.Lookup(resp); ok {
			values = append(values, rec.SubtlexWF)
		}
	}
	if opts.Title == "" {
		opts.Title = "Target word frequency (per million)"
	}
	return saveHistogram(path, values, opts)
}

func saveHistogram(path string, values []float64, opts HistogramOptions) error {
	opts = opts.withDefaults()
	if len(values) == 0 {
		return fmt.Errorf("histogram %q: no values", opts.Title)
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}

	counts := make([]int, opts.Bins)
	binWidth := (hi - lo) / float64(opts.Bins)
	maxCount := 0
	for _, v := range values {
		bin := int((v - lo) / binWidth)
		if bin >= opts.Bins {
			bin = opts.Bins - 1
		}
		counts[bin]++
		if counts[bin] > maxCount {
			maxCount = counts[bin]
		}
	}

	const margin = 50.0
	w, h := float64(opts.Width), float64(opts.Height)
	plotW, plotH := w-2*margin, h-2*margin

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Bars
	dc.SetRGB(0.27, 0.45, 0.69)
	barW := plotW / float64(opts.Bins)
	for i, c := range counts {
		if c == 0 {
			continue
		}
		barH := plotH * float64(c) / float64(maxCount)
		x := margin + float64(i)*barW
		dc.DrawRectangle(x, margin+plotH-barH, barW-1, barH)
		dc.Fill()
	}

	// Axes
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(margin, margin+plotH, margin+plotW, margin+plotH)
	dc.DrawLine(margin, margin, margin, margin+plotH)
	dc.Stroke()

	// Labels
	dc.DrawStringAnchored(opts.Title, w/2, margin/2, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", lo), margin, margin+plotH+15, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", hi), margin+plotW, margin+plotH+15, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%d", maxCount), margin-20, margin, 0.5, 0.5)

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save histogram %q: %w", path, err)
	}
	return nil
}
