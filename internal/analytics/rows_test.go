package analytics

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"olistdw/internal/schema"
	"olistdw/internal/storage"
	_ "olistdw/internal/storage/sqlite"
)

func ptr[T any](v T) *T { return &v }

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

// seededWarehouse returns an in-memory warehouse with three item facts: a
// delivered order, an undelivered one and a delivered order on the unknown
// date without an estimate.
func seededWarehouse(t *testing.T) storage.Repository {
	t.Helper()
	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open warehouse: %v", err)
	}
	t.Cleanup(repo.Close)
	if err := storage.EnsureSchema(ctx, "sqlite", repo); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	seed := []struct {
		table string
		rows  [][]any
	}{
		{schema.DimDate, [][]any{
			{int64(1), nil, nil, nil, nil, schema.UnknownWeekday, nil},
			{int64(2), at("2017-10-02 00:00"), int64(2), int64(10), int64(2017), "Monday", int64(4)},
		}},
		{schema.DimCustomer, [][]any{{"c1", "u1", "sao paulo", "SP"}, {"c2", "u2", "rio", "RJ"}}},
		{schema.DimProduct, [][]any{{"p1", "bebes", 500.0, 20.0, 10.0, 15.0}}},
		{schema.DimSeller, [][]any{{"s1", "campinas", "SP"}}},
		{schema.DimOrder, [][]any{
			{"o1", "delivered", at("2017-10-02 10:00"), nil, nil, at("2017-10-12 22:00"), at("2017-10-10 10:00")},
			{"o2", "shipped", at("2017-10-02 11:00"), nil, nil, nil, at("2017-10-20 00:00")},
			{"o3", "delivered", at("2018-01-01 00:00"), nil, nil, at("2018-01-04 12:00"), nil},
		}},
		{schema.FactOrderItems, [][]any{
			{"o1", "p1", "s1", "c1", int64(2), 29.99, 8.72, int64(4), int64(1)},
			{"o2", "p1", "s1", "c2", int64(2), 10.0, 1.0, nil, int64(1)},
			{"o3", "p1", "s1", "c2", int64(1), 5.0, 2.0, nil, int64(1)},
		}},
	}
	for _, s := range seed {
		tbl := schema.MustLookup(s.table)
		if _, err := repo.CopyFrom(ctx, tbl, tbl.InsertColumns(), s.rows); err != nil {
			t.Fatalf("seed %s: %v", s.table, err)
		}
	}
	return repo
}

func TestReadDeliveryRows(t *testing.T) {
	t.Parallel()

	repo := seededWarehouse(t)
	got, err := ReadDeliveryRows(context.Background(), repo)
	if err != nil {
		t.Fatalf("ReadDeliveryRows: %v", err)
	}

	want := []DeliveryRow{
		{
			OrderID:       "o1",
			CustomerState: "SP",
			SellerState:   "SP",
			Year:          ptr[int32](2017),
			Month:         ptr[int32](10),
			WeightG:       ptr(500.0),
			LengthCM:      ptr(20.0),
			HeightCM:      ptr(10.0),
			WidthCM:       ptr(15.0),
			Quantity:      1,
			Price:         ptr(29.99),
			FreightValue:  ptr(8.72),
			ReviewScore:   ptr[int64](4),
			DeliveryDays:  10.5,
			DelayDays:     ptr(2.5),
		},
		{
			OrderID:       "o3",
			CustomerState: "RJ",
			SellerState:   "SP",
			WeightG:       ptr(500.0),
			LengthCM:      ptr(20.0),
			HeightCM:      ptr(10.0),
			WidthCM:       ptr(15.0),
			Quantity:      1,
			Price:         ptr(5.0),
			FreightValue:  ptr(2.0),
			DeliveryDays:  3.5,
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rows:\n got %+v\nwant %+v", got, want)
	}
}

func TestReadQuery(t *testing.T) {
	t.Parallel()

	repo := seededWarehouse(t)
	q := ReadQuery(repo)
	for _, want := range []string{
		`FROM "fact_order_items" f`,
		`JOIN "dim_customer" c ON f.customer_id = c.customer_id`,
		`JOIN "dim_product" p ON f.product_id = p.product_id`,
		"o.order_estimated_delivery_date",
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query lacks %q:\n%s", want, q)
		}
	}
}

func TestScanRow(t *testing.T) {
	t.Parallel()

	full := func() []any {
		return []any{
			"o1", "SP", "RJ", int64(2018), int64(3), nil, nil, nil, nil,
			int64(1), 10.0, 1.0, nil,
			"2018-03-01 00:00:00", "2018-03-03 06:00:00", nil,
		}
	}

	row, ok, err := scanRow(full())
	if err != nil || !ok {
		t.Fatalf("scanRow: ok=%v err=%v", ok, err)
	}
	if row.DeliveryDays != 2.25 || row.DelayDays != nil || *row.Year != 2018 {
		t.Fatalf("row = %+v", row)
	}

	undelivered := full()
	undelivered[14] = nil
	if _, ok, err := scanRow(undelivered); ok || err != nil {
		t.Fatalf("undelivered: ok=%v err=%v", ok, err)
	}

	if _, _, err := scanRow(full()[:3]); err == nil {
		t.Fatal("expected column count error")
	}

	badID := full()
	badID[0] = 42
	if _, _, err := scanRow(badID); err == nil {
		t.Fatal("expected order_id type error")
	}
}
