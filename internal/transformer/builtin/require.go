package builtin

import "olistdw/internal/records"

// Require removes any record missing a value for one of the specified fields.
type Require struct {
	Fields []string

	// OnDrop, when set, is called once per removed record.
	OnDrop func(records.Record)
}

// Apply filters t in place.
func (q Require) Apply(t *records.Table) *records.Table {
	if t == nil {
		return nil
	}
	out := t.Rows[:0]
	for _, rec := range t.Rows {
		ok := true
		for _, f := range q.Fields {
			v, exists := rec[f]
			if !exists || v == nil || v == "" {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, rec)
		} else if q.OnDrop != nil {
			q.OnDrop(rec)
		}
	}
	t.Rows = out
	return t
}
