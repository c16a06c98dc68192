package warehouse

import (
	"olistdw/internal/records"
	"olistdw/internal/storage"
)

// KeySet is the set of natural keys present in a dimension.
type KeySet map[string]struct{}

// NewKeySet collects the first column of rows.
func NewKeySet(rows [][]any) KeySet {
	s := make(KeySet, len(rows))
	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		if k, ok := storage.AsString(r[0]); ok {
			s[k] = struct{}{}
		}
	}
	return s
}

// Has reports whether k is in the set.
func (s KeySet) Has(k string) bool {
	_, ok := s[k]
	return ok
}

// Reference ties a fact column to the dimension keys it must match.
type Reference struct {
	Column string
	Keys   KeySet
}

// Gate drops fact rows that would violate a foreign key.
type Gate []Reference

// Filter returns the rows whose every referenced column holds a key present
// in its dimension, plus the number of dropped rows per column. A row is
// charged to the first reference it fails.
func (g Gate) Filter(rows []records.Record) ([]records.Record, map[string]int) {
	dropped := make(map[string]int)
	kept := rows[:0:0]
	for _, r := range rows {
		ok := true
		for _, ref := range g {
			v, present := r.String(ref.Column)
			if !present || !ref.Keys.Has(v) {
				dropped[ref.Column]++
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, r)
		}
	}
	return kept, dropped
}

// Total sums a per-column drop count.
func Total(dropped map[string]int) int {
	n := 0
	for _, v := range dropped {
		n += v
	}
	return n
}
