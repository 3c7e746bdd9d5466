package norms

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pressler-lab/stimset/internal/table"
)

// ErrMalformedRecord is returned when an input row has the wrong number of
// fields. Rows with the right shape but invalid content (non-alphabetic
// tokens, unparseable numbers) are dropped silently and counted instead.
var ErrMalformedRecord = errors.New("malformed record")

var alphaToken = regexp.MustCompile(`^[a-z]+$`)

// AssociationLoadResult reports what the association loader saw and kept.
type AssociationLoadResult struct {
	RowsSeen    int
	RowsKept    int
	RowsDropped int // invalid cue/response token or unparseable strength
}

// LoadAssociations reads raw association norms: comma-delimited, no header,
// exactly four untitled fields per row (cue, response, forward, backward).
// String fields are lowercased; rows whose cue or response contains anything
// outside [a-z] are dropped, as are rows whose strengths do not parse into
// [0,1].
func LoadAssociations(r io.Reader) (table.Table, AssociationLoadResult, error) {
	var out AssociationLoadResult

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	var t table.Table
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				return nil, out, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
			}
			return nil, out, fmt.Errorf("read association norms: %w", err)
		}
		out.RowsSeen++

		cue := strings.ToLower(strings.TrimSpace(rec[0]))
		response := strings.ToLower(strings.TrimSpace(rec[1]))
		if !alphaToken.MatchString(cue) || !alphaToken.MatchString(response) {
			out.RowsDropped++
			continue
		}

		forward, err1 := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		backward, err2 := strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
		if err1 != nil || err2 != nil || forward < 0 || forward > 1 || backward < 0 || backward > 1 {
			out.RowsDropped++
			continue
		}

		t = append(t, table.Row{
			Cue:      cue,
			Response: response,
			Forward:  forward,
			Backward: backward,
		})
		out.RowsKept++
	}

	return t, out, nil
}

// FrequencyLoadResult reports what the frequency loader saw and kept.
type FrequencyLoadResult struct {
	RowsSeen    int
	RowsKept    int
	RowsDropped int // NULL fields, non-alphabetic word, unparseable numbers
}

// nullLiteral is how the upstream frequency export marks missing values.
const nullLiteral = "NULL"

// LoadFrequency reads the frequency/length/POS table. The source carries a
// labeled header; only the Word, Length, SUBTLWF and POS columns are used
// (the Occurences column is always 1 upstream and is discarded). Words are
// lowercased; rows with missing or unparseable fields are dropped silently.
func LoadFrequency(r io.Reader) (*table.FrequencyTable, FrequencyLoadResult, error) {
	var out FrequencyLoadResult

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, out, fmt.Errorf("read frequency header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"word", "length", "subtlwf", "pos"} {
		if _, ok := col[required]; !ok {
			return nil, out, fmt.Errorf("frequency header missing %q column", required)
		}
	}

	ft := table.NewFrequencyTable()
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				return nil, out, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
			}
			return nil, out, fmt.Errorf("read frequency table: %w", err)
		}
		out.RowsSeen++

		wordRaw := strings.TrimSpace(rec[col["word"]])
		lengthRaw := strings.TrimSpace(rec[col["length"]])
		wfRaw := strings.TrimSpace(rec[col["subtlwf"]])
		pos := strings.TrimSpace(rec[col["pos"]])

		// NULL is checked before lowercasing so the literal is not
		// mistaken for a word.
		if wordRaw == nullLiteral || lengthRaw == nullLiteral || wfRaw == nullLiteral || pos == nullLiteral {
			out.RowsDropped++
			continue
		}
		word := strings.ToLower(wordRaw)
		if !alphaToken.MatchString(word) {
			out.RowsDropped++
			continue
		}
		length, err1 := strconv.Atoi(lengthRaw)
		wf, err2 := strconv.ParseFloat(wfRaw, 64)
		if err1 != nil || err2 != nil {
			out.RowsDropped++
			continue
		}

		ft.Add(table.FrequencyRecord{
			Word:      word,
			Length:    length,
			SubtlexWF: wf,
			POS:       pos,
		})
		out.RowsKept++
	}

	return ft, out, nil
}

// FrequencyFilter restricts the frequency table to words usable as stimuli:
// mid-length, mid-frequency words.
type FrequencyFilter struct {
	MinLength int
	MaxLength int
	MinWF     float64
	MaxWF     float64
}

// DefaultFrequencyFilter returns the standard stimulus window: 4-10 letters,
// 5-200 occurrences per million.
func DefaultFrequencyFilter() FrequencyFilter {
	return FrequencyFilter{MinLength: 4, MaxLength: 10, MinWF: 5, MaxWF: 200}
}

// Apply returns the records inside the filter's length and frequency window.
func (f FrequencyFilter) Apply(ft *table.FrequencyTable) *table.FrequencyTable {
	return ft.Filter(func(rec table.FrequencyRecord) bool {
		return rec.Length >= f.MinLength && rec.Length <= f.MaxLength &&
			rec.SubtlexWF >= f.MinWF && rec.SubtlexWF <= f.MaxWF
	})
}
