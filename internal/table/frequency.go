package table

// FrequencyRecord describes one word in the frequency/length/POS norms.
// SubtlexWF is the SUBTLEX frequency per million words.
type FrequencyRecord struct {
	Word      string
	Length    int
	SubtlexWF float64
	POS       string
}

// FrequencyTable holds one record per unique word. Insertion order is kept
// so iteration stays deterministic.
type FrequencyTable struct {
	order  []string
	byWord map[string]FrequencyRecord
}

// NewFrequencyTable returns an empty frequency table.
func NewFrequencyTable() *FrequencyTable {
	return &FrequencyTable{byWord: make(map[string]FrequencyRecord)}
}

// Add inserts a record. The first record for a word wins; later duplicates
// are ignored, matching the source data's one-row-per-word contract.
func (ft *FrequencyTable) Add(rec FrequencyRecord) {
	if _, ok := ft.byWord[rec.Word]; ok {
		return
	}
	ft.order = append(ft.order, rec.Word)
	ft.byWord[rec.Word] = rec
}

// Lookup returns the record for a word, if present.
func (ft *FrequencyTable) Lookup(word string) (FrequencyRecord, bool) {
	rec, ok := ft.byWord[word]
	return rec, ok
}

// Has reports whether the word has frequency data.
func (ft *FrequencyTable) Has(word string) bool {
	_, ok := ft.byWord[word]
	return ok
}

// Words returns all words in insertion order.
func (ft *FrequencyTable) Words() []string { return ft.order }

// Len returns the number of records.
func (ft *FrequencyTable) Len() int { return len(ft.order) }

// Filter returns a new table containing the records for which keep returns
// true, preserving insertion order.
func (ft *FrequencyTable) Filter(keep func(FrequencyRecord) bool) *FrequencyTable {
	out := NewFrequencyTable()
	for _, w := range ft.order {
		if rec := ft.byWord[w]; keep(rec) {
			out.Add(rec)
		}
	}
	return out
}
