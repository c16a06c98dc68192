package etl

import (
	"log"

	"olistdw/internal/extract"
	"olistdw/internal/metrics"
	"olistdw/internal/records"
	"olistdw/internal/transformer"
	"olistdw/internal/transformer/builtin"
)

// CleanStats counts what the Clean and Normalize stages removed or blanked.
type CleanStats struct {
	Deduplicated       int
	Unkeyed            int
	InvalidNumbers     int
	UnparsedTimestamps int
}

// natural keys of the deduplicated datasets.
var naturalKeys = map[string]string{
	extract.Customers: "customer_id",
	extract.Products:  "product_id",
	extract.Sellers:   "seller_id",
	extract.Orders:    "order_id",
}

// fillColumns lists the categorical columns that get the Unknown sentinel.
var fillColumns = map[string][]string{
	extract.Customers:   {"customer_city", "customer_state"},
	extract.Products:    {"product_category_name"},
	extract.Sellers:     {"seller_city", "seller_state"},
	extract.Geolocation: {"geolocation_city", "geolocation_state"},
}

// numericColumns are coerced from text before loading.
var numericColumns = map[string]map[string]string{
	extract.Products: {
		"product_weight_g":  "float",
		"product_length_cm": "float",
		"product_height_cm": "float",
		"product_width_cm":  "float",
	},
	extract.Geolocation: {"latitude": "float", "longitude": "float"},
	extract.OrderItems:  {"price": "float", "freight_value": "float"},
	extract.Reviews:     {"review_score": "int"},
	extract.Payments:    {"payment_value": "float"},
}

var geoRename = builtin.Rename{
	"geolocation_lat": "latitude",
	"geolocation_lng": "longitude",
}

// cleaner builds the per-dataset transformer chain. Dimension sources are
// deduplicated keep-first and then lose the rows that have no key at all,
// since those cannot be stored.
func cleaner(name string, st *CleanStats) transformer.Chain {
	var chain transformer.Chain
	if key, ok := naturalKeys[name]; ok {
		chain = append(chain,
			counting(&st.Deduplicated, builtin.DeDup{Keys: []string{key}}),
			builtin.Require{Fields: []string{key}, OnDrop: func(records.Record) { st.Unkeyed++ }},
		)
	}
	if name == extract.Geolocation {
		chain = append(chain,
			geoRename,
			builtin.Require{Fields: []string{"geolocation_zip_code_prefix"}, OnDrop: func(records.Record) { st.Unkeyed++ }},
		)
	}
	if cols, ok := fillColumns[name]; ok {
		chain = append(chain, builtin.FillMissing{Columns: cols, Value: builtin.Unknown})
	}
	if types, ok := numericColumns[name]; ok {
		chain = append(chain, builtin.Coerce{Types: types, OnInvalid: func(string, string) { st.InvalidNumbers++ }})
	}
	return chain
}

// counting wraps tr and adds the number of rows it removed to n.
func counting(n *int, tr transformer.Transformer) transformer.Transformer {
	return transformer.Func(func(t *records.Table) *records.Table {
		before := t.Len()
		out := tr.Apply(t)
		*n += before - out.Len()
		return out
	})
}

// Clean applies the cleaning chain of every dataset. The transformers work
// in place, so tables is updated directly.
func Clean(tables *extract.Tables, job string) CleanStats {
	var st CleanStats
	for _, d := range extract.Datasets {
		t := tables.Get(d.Name)
		if t == nil {
			continue
		}
		before := t.Len()
		out := cleaner(d.Name, &st).Apply(t)
		if before != out.Len() {
			log.Printf("clean: dataset=%s rows_in=%d rows_out=%d", d.Name, before, out.Len())
		}
	}
	metrics.RecordRow(job, "deduplicated", int64(st.Deduplicated))
	metrics.RecordRow(job, "unkeyed_dropped", int64(st.Unkeyed))
	metrics.RecordRow(job, "invalid_numbers", int64(st.InvalidNumbers))
	return st
}

// Normalize parses the order timestamps and derives the delivery durations.
func Normalize(tables *extract.Tables, job string, st *CleanStats) {
	chain := transformer.Chain{
		builtin.ParseTimestamps{
			Columns:   builtin.OrderTimestampColumns,
			OnInvalid: func(string, string) { st.UnparsedTimestamps++ },
		},
		builtin.DeliveryDurations{},
	}
	tables.Orders = chain.Apply(tables.Orders)
	metrics.RecordRow(job, "unparsed_timestamps", int64(st.UnparsedTimestamps))
}
