// Package builtin contains reusable table transformers: de-duplication,
// missing-value fill, column rename, type coercion, timestamp parsing and
// delivery-duration derivation.
//
// DeDup collapses duplicate records by a configured key and keeps the
// earliest occurrence. Survivors keep their input order. Records that lack a
// value for any key field cannot be keyed and pass through untouched.
package builtin

import (
	"fmt"

	"github.com/zeebo/xxh3"

	"olistdw/internal/records"
)

// DeDup drops every record whose key was already seen earlier in the table.
type DeDup struct {
	// Keys are the field names that form the natural key, e.g. ["customer_id"].
	Keys []string
}

// Apply executes the de-duplication and returns t with only the first
// record for each key.
func (d DeDup) Apply(t *records.Table) *records.Table {
	if t == nil || len(t.Rows) == 0 || len(d.Keys) == 0 {
		return t
	}

	var (
		buf  []byte
		seen = make(map[xxh3.Uint128]struct{}, len(t.Rows))
		out  = make([]records.Record, 0, len(t.Rows))
	)

	keyOf := func(r records.Record) (xxh3.Uint128, bool) {
		buf = buf[:0]
		for i, k := range d.Keys {
			v := r[k]
			if v == nil {
				return xxh3.Uint128{}, false
			}
			if i > 0 {
				buf = append(buf, '\x1f')
			}
			switch s := v.(type) {
			case string:
				buf = append(buf, s...)
			default:
				buf = append(buf, fmt.Sprint(s)...)
			}
		}
		return xxh3.Hash128(buf), true
	}

	for _, r := range t.Rows {
		key, ok := keyOf(r)
		if ok {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, r)
	}
	t.Rows = out
	return t
}
