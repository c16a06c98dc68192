// Package warehouse turns cleaned source tables into warehouse rows: the
// calendar dimension, the date key lookup, both fact tables and the
// referential gate applied before facts are loaded.
package warehouse

import (
	"fmt"
	"time"

	"olistdw/internal/records"
	"olistdw/internal/schema"
	"olistdw/internal/storage"
	"olistdw/internal/transformer/builtin"
)

const dayLayout = "2006-01-02"

// BuildDimDate returns the dim_date rows for the purchase dates of orders.
// The first row is the reserved unknown date (key 1); real dates follow with
// keys 2..n in the order they first appear.
func BuildDimDate(orders *records.Table) []records.Record {
	out := []records.Record{{
		"date_key":  schema.UnknownDateKey,
		"full_date": nil,
		"day":       nil,
		"month":     nil,
		"year":      nil,
		"weekday":   schema.UnknownWeekday,
		"quarter":   nil,
	}}
	if orders == nil {
		return out
	}

	seen := make(map[string]bool)
	next := schema.UnknownDateKey + 1
	for _, r := range orders.Rows {
		ts, ok := r[builtin.ColPurchase].(time.Time)
		if !ok {
			continue
		}
		d := builtin.DateOf(ts)
		k := d.Format(dayLayout)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, records.Record{
			"date_key":  next,
			"full_date": d,
			"day":       int64(d.Day()),
			"month":     int64(d.Month()),
			"year":      int64(d.Year()),
			"weekday":   d.Weekday().String(),
			"quarter":   int64((d.Month()-1)/3 + 1),
		})
		next++
	}
	return out
}

// DateKeys maps a calendar day to its persisted dim_date key.
type DateKeys map[string]int64

// ResolveDateKeys builds DateKeys from (date_key, full_date) rows read back
// from the warehouse. Rows without a date (the unknown row) are skipped.
func ResolveDateKeys(rows [][]any) (DateKeys, error) {
	keys := make(DateKeys, len(rows))
	for i, row := range rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("dim_date row %d: want 2 columns, got %d", i, len(row))
		}
		if row[1] == nil {
			continue
		}
		key, ok := storage.AsInt64(row[0])
		if !ok {
			return nil, fmt.Errorf("dim_date row %d: unexpected date_key %T", i, row[0])
		}
		d, ok := storage.AsTime(row[1])
		if !ok {
			return nil, fmt.Errorf("dim_date row %d: unexpected full_date %v", i, row[1])
		}
		keys[d.Format(dayLayout)] = key
	}
	return keys, nil
}

// For returns the key of the day ts falls on, or the unknown key when ts is
// absent or the day is not in the dimension.
func (k DateKeys) For(ts any) int64 {
	t, ok := ts.(time.Time)
	if !ok {
		return schema.UnknownDateKey
	}
	if key, ok := k[builtin.DateOf(t).Format(dayLayout)]; ok {
		return key
	}
	return schema.UnknownDateKey
}
