package warehouse

import (
	"reflect"
	"testing"
	"time"

	"olistdw/internal/records"
	"olistdw/internal/schema"
	"olistdw/internal/transformer/builtin"
)

func ts(s string) time.Time {
	t, ok := builtin.ParseTimestamp(s)
	if !ok {
		panic("bad timestamp " + s)
	}
	return t
}

func orders(rows ...records.Record) *records.Table {
	return &records.Table{Name: "orders", Rows: rows}
}

func TestBuildDimDate(t *testing.T) {
	t.Parallel()

	got := BuildDimDate(orders(
		records.Record{"order_id": "o1", builtin.ColPurchase: ts("2017-10-02 10:56:33")},
		records.Record{"order_id": "o2", builtin.ColPurchase: ts("2017-10-02 23:01:00")},
		records.Record{"order_id": "o3", builtin.ColPurchase: nil},
		records.Record{"order_id": "o4", builtin.ColPurchase: ts("2018-07-24 20:41:37")},
	))

	if len(got) != 3 {
		t.Fatalf("rows=%d, want 3 (unknown + 2 dates)", len(got))
	}
	unknown := got[0]
	if unknown["date_key"] != schema.UnknownDateKey || unknown["weekday"] != schema.UnknownWeekday || unknown["full_date"] != nil {
		t.Fatalf("unknown row = %v", unknown)
	}

	want := records.Record{
		"date_key":  int64(2),
		"full_date": time.Date(2017, 10, 2, 0, 0, 0, 0, time.UTC),
		"day":       int64(2),
		"month":     int64(10),
		"year":      int64(2017),
		"weekday":   "Monday",
		"quarter":   int64(4),
	}
	if !reflect.DeepEqual(got[1], want) {
		t.Fatalf("first date row:\n got %v\nwant %v", got[1], want)
	}
	if got[2]["date_key"] != int64(3) || got[2]["quarter"] != int64(3) || got[2]["weekday"] != "Tuesday" {
		t.Fatalf("second date row = %v", got[2])
	}
}

func TestBuildDimDate_NoOrders(t *testing.T) {
	t.Parallel()

	got := BuildDimDate(nil)
	if len(got) != 1 || got[0]["date_key"] != schema.UnknownDateKey {
		t.Fatalf("got %v, want only the unknown row", got)
	}
}

func TestResolveDateKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rows    [][]any
		want    DateKeys
		wantErr bool
	}{
		{
			name: "skips unknown row",
			rows: [][]any{
				{int64(1), nil},
				{int64(2), time.Date(2017, 10, 2, 0, 0, 0, 0, time.UTC)},
				{int32(3), "2018-07-24"},
			},
			want: DateKeys{"2017-10-02": 2, "2018-07-24": 3},
		},
		{name: "short row", rows: [][]any{{int64(1)}}, wantErr: true},
		{name: "bad key", rows: [][]any{{"x", "2018-07-24"}}, wantErr: true},
		{name: "bad date", rows: [][]any{{int64(2), "not a date"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ResolveDateKeys(tt.rows)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v, wantErr=%v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDateKeysFor(t *testing.T) {
	t.Parallel()

	keys := DateKeys{"2017-10-02": 2}
	tests := []struct {
		name string
		in   any
		want int64
	}{
		{"known day", ts("2017-10-02 10:56:33"), 2},
		{"unknown day", ts("2019-01-01 00:00:00"), schema.UnknownDateKey},
		{"missing", nil, schema.UnknownDateKey},
		{"unparsed text", "2017-10-02", schema.UnknownDateKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := keys.For(tt.in); got != tt.want {
				t.Fatalf("For(%v)=%d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
