package builtin

import "olistdw/internal/records"

// Unknown is the sentinel written into missing categorical values.
const Unknown = "Unknown"

// FillMissing replaces absent values in Columns with Value. Columns missing
// from the table altogether are added and filled.
type FillMissing struct {
	Columns []string
	Value   string
}

// Apply implements transformer.Transformer.
func (f FillMissing) Apply(t *records.Table) *records.Table {
	if t == nil {
		return nil
	}
	val := f.Value
	if val == "" {
		val = Unknown
	}
	for _, c := range f.Columns {
		t.AddColumn(c)
	}
	for _, r := range t.Rows {
		for _, c := range f.Columns {
			if r[c] == nil {
				r[c] = val
			}
		}
	}
	return t
}

// Rename maps old column names to new ones, across header and rows.
type Rename map[string]string

// Apply implements transformer.Transformer.
func (rn Rename) Apply(t *records.Table) *records.Table {
	if t == nil || len(rn) == 0 {
		return t
	}
	for i, c := range t.Columns {
		if to, ok := rn[c]; ok {
			t.Columns[i] = to
		}
	}
	for _, r := range t.Rows {
		for from, to := range rn {
			if v, ok := r[from]; ok {
				delete(r, from)
				r[to] = v
			}
		}
	}
	return t
}
