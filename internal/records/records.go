// Package records defines the in-memory tabular model shared by the reader,
// the transformers and the warehouse builders.
//
// A Record maps a column name to its value. Values are nil when absent,
// string for raw text, time.Time for parsed timestamps and int64/float64 for
// derived numeric fields. A Table is an ordered slice of records plus the
// column order the source declared.
package records

// Record is a single row keyed by column name.
type Record map[string]any

// Table is a named, ordered set of records.
type Table struct {
	Name    string
	Columns []string
	Rows    []Record
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether col is part of the declared column set.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// AddColumn appends col to the declared columns when it is not present yet.
func (t *Table) AddColumn(col string) {
	if !t.HasColumn(col) {
		t.Columns = append(t.Columns, col)
	}
}

// String returns the value of col as a string. ok is false when the value is
// absent or not textual.
func (r Record) String(col string) (string, bool) {
	v, present := r[col]
	if !present || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Values projects r onto columns, in order. Missing columns yield nil.
func (r Record) Values(columns []string) []any {
	out := make([]any, len(columns))
	for i, c := range columns {
		out[i] = r[c]
	}
	return out
}
