package warehouse

import (
	"reflect"
	"testing"

	"olistdw/internal/records"
)

func TestNewKeySet(t *testing.T) {
	t.Parallel()

	s := NewKeySet([][]any{{"a"}, {[]byte("b")}, {nil}, {}})
	if !s.Has("a") || !s.Has("b") || len(s) != 2 {
		t.Fatalf("got %v", s)
	}
}

func TestGateFilter(t *testing.T) {
	t.Parallel()

	gate := Gate{
		{Column: "customer_id", Keys: KeySet{"c1": {}}},
		{Column: "product_id", Keys: KeySet{"p1": {}, "p2": {}}},
	}
	rows := []records.Record{
		{"order_id": "o1", "customer_id": "c1", "product_id": "p1"},
		{"order_id": "o2", "customer_id": "c9", "product_id": "p1"},
		{"order_id": "o3", "customer_id": "c1", "product_id": "p9"},
		{"order_id": "o4", "customer_id": nil, "product_id": "p9"},
		{"order_id": "o5", "customer_id": "c1", "product_id": "p2"},
	}

	kept, dropped := gate.Filter(rows)

	var ids []string
	for _, r := range kept {
		id, _ := r.String("order_id")
		ids = append(ids, id)
	}
	if want := []string{"o1", "o5"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("kept=%v, want %v", ids, want)
	}
	if want := map[string]int{"customer_id": 2, "product_id": 1}; !reflect.DeepEqual(dropped, want) {
		t.Fatalf("dropped=%v, want %v", dropped, want)
	}
	if Total(dropped) != 3 {
		t.Fatalf("Total=%d, want 3", Total(dropped))
	}
	if len(rows) != 5 {
		t.Fatal("input slice was modified")
	}
}

func TestGateFilter_Empty(t *testing.T) {
	t.Parallel()

	kept, dropped := Gate(nil).Filter([]records.Record{{"a": 1}})
	if len(kept) != 1 || len(dropped) != 0 {
		t.Fatalf("kept=%v dropped=%v", kept, dropped)
	}
}
