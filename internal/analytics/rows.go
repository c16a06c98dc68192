// Package analytics consumes the warehouse through its read contract: one
// query joining fact_order_items with its dimensions. It prints a descriptive
// delivery summary and exports the joined rows as parquet for downstream
// modelling.
package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"olistdw/internal/schema"
	"olistdw/internal/storage"
)

// DeliveryRow is one order item with its delivery outcome.
type DeliveryRow struct {
	OrderID       string   `parquet:"order_id"`
	CustomerState string   `parquet:"customer_state"`
	SellerState   string   `parquet:"seller_state"`
	Year          *int32   `parquet:"year,optional"`
	Month         *int32   `parquet:"month,optional"`
	WeightG       *float64 `parquet:"product_weight_g,optional"`
	LengthCM      *float64 `parquet:"product_length_cm,optional"`
	HeightCM      *float64 `parquet:"product_height_cm,optional"`
	WidthCM       *float64 `parquet:"product_width_cm,optional"`
	Quantity      int64    `parquet:"quantity"`
	Price         *float64 `parquet:"price,optional"`
	FreightValue  *float64 `parquet:"freight_value,optional"`
	ReviewScore   *int64   `parquet:"review_score,optional"`
	// DeliveryDays is delivered minus purchase, in fractional days.
	DeliveryDays float64 `parquet:"delivery_days"`
	// DelayDays is delivered minus estimate; positive means late.
	DelayDays *float64 `parquet:"delay_days,optional"`
}

// readColumns is the select list of the read contract, in scan order.
var readColumns = []string{
	"f.order_id",
	"c.customer_state",
	"s.seller_state",
	"d.year",
	"d.month",
	"p.product_weight_g",
	"p.product_length_cm",
	"p.product_height_cm",
	"p.product_width_cm",
	"f.quantity",
	"f.price",
	"f.freight_value",
	"f.review_score",
	"o.order_purchase_timestamp",
	"o.order_delivered_customer_date",
	"o.order_estimated_delivery_date",
}

// ReadQuery renders the read-contract query for repo's dialect. Timestamps
// are selected raw; durations are derived in Go since date arithmetic differs
// across dialects.
func ReadQuery(repo storage.Repository) string {
	q := func(t string) string { return storage.Qualified(repo, t) }
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(readColumns, ", "))
	fmt.Fprintf(&b, "\nFROM %s f", q(schema.FactOrderItems))
	fmt.Fprintf(&b, "\nJOIN %s c ON f.customer_id = c.customer_id", q(schema.DimCustomer))
	fmt.Fprintf(&b, "\nJOIN %s s ON f.seller_id = s.seller_id", q(schema.DimSeller))
	fmt.Fprintf(&b, "\nJOIN %s d ON f.date_key = d.date_key", q(schema.DimDate))
	fmt.Fprintf(&b, "\nJOIN %s p ON f.product_id = p.product_id", q(schema.DimProduct))
	fmt.Fprintf(&b, "\nJOIN %s o ON f.order_id = o.order_id", q(schema.DimOrder))
	b.WriteString("\nORDER BY f.order_id, f.product_id, f.seller_id")
	return b.String()
}

// ReadDeliveryRows runs the read contract. Items whose order has no delivery
// date are left out.
func ReadDeliveryRows(ctx context.Context, repo storage.Repository) ([]DeliveryRow, error) {
	raw, err := repo.Query(ctx, ReadQuery(repo))
	if err != nil {
		return nil, fmt.Errorf("read contract: %w", err)
	}
	out := make([]DeliveryRow, 0, len(raw))
	for i, vals := range raw {
		row, ok, err := scanRow(vals)
		if err != nil {
			return nil, fmt.Errorf("read contract row %d: %w", i, err)
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// scanRow converts one result row. ok is false when the delivery duration
// cannot be computed.
func scanRow(v []any) (DeliveryRow, bool, error) {
	if len(v) != len(readColumns) {
		return DeliveryRow{}, false, fmt.Errorf("want %d columns, got %d", len(readColumns), len(v))
	}
	purchase, hasPurchase := optTime(v[13])
	delivered, hasDelivered := optTime(v[14])
	if !hasPurchase || !hasDelivered {
		return DeliveryRow{}, false, nil
	}

	var row DeliveryRow
	var ok bool
	if row.OrderID, ok = storage.AsString(v[0]); !ok {
		return row, false, fmt.Errorf("order_id: unexpected %T", v[0])
	}
	row.CustomerState, _ = storage.AsString(v[1])
	row.SellerState, _ = storage.AsString(v[2])
	row.Year = optInt32(v[3])
	row.Month = optInt32(v[4])
	row.WeightG = optFloat(v[5])
	row.LengthCM = optFloat(v[6])
	row.HeightCM = optFloat(v[7])
	row.WidthCM = optFloat(v[8])
	row.Quantity, _ = storage.AsInt64(v[9])
	row.Price = optFloat(v[10])
	row.FreightValue = optFloat(v[11])
	if n, ok := storage.AsInt64(v[12]); ok {
		row.ReviewScore = &n
	}
	row.DeliveryDays = Days(delivered.Sub(purchase))
	if est, ok := optTime(v[15]); ok {
		d := Days(delivered.Sub(est))
		row.DelayDays = &d
	}
	return row, true, nil
}

// Days converts d to fractional days.
func Days(d time.Duration) float64 {
	return d.Hours() / 24
}

func optTime(v any) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	return storage.AsTime(v)
}

func optFloat(v any) *float64 {
	if f, ok := storage.AsFloat64(v); ok {
		return &f
	}
	return nil
}

func optInt32(v any) *int32 {
	if n, ok := storage.AsInt64(v); ok {
		m := int32(n)
		return &m
	}
	return nil
}
