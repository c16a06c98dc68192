package builtin

import (
	"strings"
	"time"

	"olistdw/internal/records"
)

// TimestampLayouts are tried in order by ParseTimestamps.
var TimestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses s with TimestampLayouts and returns it in UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range TimestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseTimestamps converts the listed columns to time.Time. Values that do
// not parse become nil; they never fail the row.
type ParseTimestamps struct {
	Columns []string

	OnInvalid func(field, raw string)
}

// Apply implements transformer.Transformer.
func (p ParseTimestamps) Apply(t *records.Table) *records.Table {
	if t == nil {
		return nil
	}
	for _, r := range t.Rows {
		for _, c := range p.Columns {
			switch v := r[c].(type) {
			case time.Time:
				r[c] = v.UTC()
			case string:
				ts, ok := ParseTimestamp(v)
				if !ok {
					r[c] = nil
					if p.OnInvalid != nil {
						p.OnInvalid(c, v)
					}
					continue
				}
				r[c] = ts
			default:
				r[c] = nil
			}
		}
	}
	return t
}

// Order timestamp and duration columns.
const (
	ColPurchase      = "order_purchase_timestamp"
	ColApproved      = "order_approved_at"
	ColCarrier       = "order_delivered_carrier_date"
	ColDelivered     = "order_delivered_customer_date"
	ColEstimated     = "order_estimated_delivery_date"
	ColActualDays    = "order_actual_delivery_days"
	ColEstimatedDays = "order_estimated_delivery_days"
	ColDelayDays     = "delivery_delay_days"
)

// OrderTimestampColumns lists every order lifecycle timestamp.
var OrderTimestampColumns = []string{ColPurchase, ColApproved, ColCarrier, ColDelivered, ColEstimated}

const day = 24 * time.Hour

// DeliveryDurations derives, per order row:
//
//	order_actual_delivery_days    whole days from purchase to delivery, floored
//	order_estimated_delivery_days calendar days from purchase date to estimate date
//	delivery_delay_days           actual - estimated (positive = late)
//
// Each is int64 when its operands are present and nil otherwise.
type DeliveryDurations struct{}

// Apply implements transformer.Transformer.
func (DeliveryDurations) Apply(t *records.Table) *records.Table {
	if t == nil {
		return nil
	}
	t.AddColumn(ColActualDays)
	t.AddColumn(ColEstimatedDays)
	t.AddColumn(ColDelayDays)

	for _, r := range t.Rows {
		purchase, hasPurchase := r[ColPurchase].(time.Time)
		delivered, hasDelivered := r[ColDelivered].(time.Time)
		estimated, hasEstimated := r[ColEstimated].(time.Time)

		var actual, est any
		if hasPurchase && hasDelivered {
			actual = ActualDays(purchase, delivered)
		}
		if hasPurchase && hasEstimated {
			est = CalendarDays(purchase, estimated)
		}
		r[ColActualDays] = actual
		r[ColEstimatedDays] = est
		if actual != nil && est != nil {
			r[ColDelayDays] = actual.(int64) - est.(int64)
		} else {
			r[ColDelayDays] = nil
		}
	}
	return t
}

// ActualDays returns the whole days in to-from, rounded toward negative
// infinity: a delivery 12h before purchase is -1.
func ActualDays(from, to time.Time) int64 {
	d := to.Sub(from)
	n := int64(d / day)
	if d%day < 0 {
		n--
	}
	return n
}

// CalendarDays returns the number of calendar dates between from and to (UTC).
func CalendarDays(from, to time.Time) int64 {
	return int64(DateOf(to).Sub(DateOf(from)) / day)
}

// DateOf truncates ts to midnight UTC of its calendar date.
func DateOf(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
