package warehouse

import (
	"olistdw/internal/records"
	"olistdw/internal/transformer/builtin"
)

// BuildOrderItemFacts joins order items to their order (bringing the
// customer and purchase date key) and to the first review of the order.
// Items whose order is unknown are dropped; duplicate
// (order_id, product_id, seller_id) rows keep the first occurrence.
func BuildOrderItemFacts(items, orders, reviews *records.Table, keys DateKeys) []records.Record {
	if items == nil {
		return nil
	}
	byOrder := indexFirst(orders, "order_id")
	review := indexFirst(reviews, "order_id")

	out := make([]records.Record, 0, len(items.Rows))
	for _, it := range items.Rows {
		id, ok := it.String("order_id")
		if !ok {
			continue
		}
		o, ok := byOrder[id]
		if !ok {
			continue
		}
		var score any
		if rv, ok := review[id]; ok {
			score = rv["review_score"]
		}
		out = append(out, records.Record{
			"order_id":      id,
			"product_id":    it["product_id"],
			"seller_id":     it["seller_id"],
			"customer_id":   o["customer_id"],
			"date_key":      keys.For(o[builtin.ColPurchase]),
			"price":         it["price"],
			"freight_value": it["freight_value"],
			"review_score":  score,
			"quantity":      int64(1),
		})
	}

	dedup := builtin.DeDup{Keys: []string{"order_id", "product_id", "seller_id"}}
	return dedup.Apply(&records.Table{Rows: out}).Rows
}

// BuildOrderDeliveryFacts returns one row per order with its item count,
// total item value, purchase date key and delivery durations. Orders without
// items get zero count and value.
func BuildOrderDeliveryFacts(orders, items *records.Table, keys DateKeys) []records.Record {
	if orders == nil {
		return nil
	}
	counts := make(map[string]int64)
	totals := make(map[string]float64)
	if items != nil {
		for _, it := range items.Rows {
			id, ok := it.String("order_id")
			if !ok {
				continue
			}
			counts[id]++
			if p, ok := it["price"].(float64); ok {
				totals[id] += p
			}
		}
	}

	out := make([]records.Record, 0, len(orders.Rows))
	for _, o := range orders.Rows {
		id, ok := o.String("order_id")
		if !ok {
			continue
		}
		out = append(out, records.Record{
			"order_id":                      id,
			"customer_id":                   o["customer_id"],
			"date_key":                      keys.For(o[builtin.ColPurchase]),
			"geolocation_id":                nil,
			"num_items":                     counts[id],
			"total_order_value":             totals[id],
			"order_estimated_delivery_days": o[builtin.ColEstimatedDays],
			"order_actual_delivery_days":    o[builtin.ColActualDays],
			"delivery_delay_days":           o[builtin.ColDelayDays],
		})
	}
	return out
}

// indexFirst maps each value of col to the first row carrying it.
func indexFirst(t *records.Table, col string) map[string]records.Record {
	idx := make(map[string]records.Record)
	if t == nil {
		return idx
	}
	for _, r := range t.Rows {
		k, ok := r.String(col)
		if !ok {
			continue
		}
		if _, dup := idx[k]; !dup {
			idx[k] = r
		}
	}
	return idx
}
