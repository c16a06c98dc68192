// Package schema describes the warehouse: the dimension and fact tables, their
// columns, natural keys and foreign keys. Backends render it to dialect DDL and
// the loaders use it to align rows to columns.
package schema

// Kind is the logical type of a column, independent of SQL dialect.
type Kind int

const (
	// ID is a short textual identifier (hash-like business keys).
	ID Kind = iota
	// Text is free-form text such as city names.
	Text
	Integer
	Float
	Date
	Timestamp
)

// Column describes one table column.
type Column struct {
	Name     string
	Kind     Kind
	Nullable bool
	// Identity columns are generated by the database and never inserted.
	Identity bool
}

// ForeignKey references a key column of another warehouse table. Deleting the
// referenced row cascades.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Table is a warehouse table definition.
type Table struct {
	Name    string
	Columns []Column
	// Key is the primary key; for facts it is also the conflict target.
	Key         []string
	ForeignKeys []ForeignKey
}

// Table names.
const (
	DimDate           = "dim_date"
	DimCustomer       = "dim_customer"
	DimProduct        = "dim_product"
	DimSeller         = "dim_seller"
	DimGeolocation    = "dim_geolocation"
	DimOrder          = "dim_order"
	FactOrderItems    = "fact_order_items"
	FactOrderDelivery = "fact_order_delivery"
)

// UnknownDateKey is the reserved dim_date key for missing or unmatched dates.
const UnknownDateKey int64 = 1

// UnknownWeekday labels the reserved dim_date row.
const UnknownWeekday = "Unknown"

var (
	dimDate = Table{
		Name: DimDate,
		Columns: []Column{
			{Name: "date_key", Kind: Integer},
			{Name: "full_date", Kind: Date, Nullable: true},
			{Name: "day", Kind: Integer, Nullable: true},
			{Name: "month", Kind: Integer, Nullable: true},
			{Name: "year", Kind: Integer, Nullable: true},
			{Name: "weekday", Kind: Text},
			{Name: "quarter", Kind: Integer, Nullable: true},
		},
		Key: []string{"date_key"},
	}

	dimCustomer = Table{
		Name: DimCustomer,
		Columns: []Column{
			{Name: "customer_id", Kind: ID},
			{Name: "customer_unique_id", Kind: ID},
			{Name: "customer_city", Kind: Text},
			{Name: "customer_state", Kind: Text},
		},
		Key: []string{"customer_id"},
	}

	dimProduct = Table{
		Name: DimProduct,
		Columns: []Column{
			{Name: "product_id", Kind: ID},
			{Name: "product_category_name", Kind: Text},
			{Name: "product_weight_g", Kind: Float, Nullable: true},
			{Name: "product_length_cm", Kind: Float, Nullable: true},
			{Name: "product_height_cm", Kind: Float, Nullable: true},
			{Name: "product_width_cm", Kind: Float, Nullable: true},
		},
		Key: []string{"product_id"},
	}

	dimSeller = Table{
		Name: DimSeller,
		Columns: []Column{
			{Name: "seller_id", Kind: ID},
			{Name: "seller_city", Kind: Text},
			{Name: "seller_state", Kind: Text},
		},
		Key: []string{"seller_id"},
	}

	dimGeolocation = Table{
		Name: DimGeolocation,
		Columns: []Column{
			{Name: "geolocation_id", Kind: Integer, Identity: true},
			{Name: "geolocation_zip_code_prefix", Kind: ID},
			{Name: "geolocation_city", Kind: Text},
			{Name: "geolocation_state", Kind: Text},
			{Name: "latitude", Kind: Float, Nullable: true},
			{Name: "longitude", Kind: Float, Nullable: true},
		},
		Key: []string{"geolocation_id"},
	}

	dimOrder = Table{
		Name: DimOrder,
		Columns: []Column{
			{Name: "order_id", Kind: ID},
			{Name: "order_status", Kind: Text, Nullable: true},
			{Name: "order_purchase_timestamp", Kind: Timestamp, Nullable: true},
			{Name: "order_approved_at", Kind: Timestamp, Nullable: true},
			{Name: "order_delivered_carrier_date", Kind: Timestamp, Nullable: true},
			{Name: "order_delivered_customer_date", Kind: Timestamp, Nullable: true},
			{Name: "order_estimated_delivery_date", Kind: Timestamp, Nullable: true},
		},
		Key: []string{"order_id"},
	}

	factOrderItems = Table{
		Name: FactOrderItems,
		Columns: []Column{
			{Name: "order_id", Kind: ID},
			{Name: "product_id", Kind: ID},
			{Name: "seller_id", Kind: ID},
			{Name: "customer_id", Kind: ID},
			{Name: "date_key", Kind: Integer},
			{Name: "price", Kind: Float, Nullable: true},
			{Name: "freight_value", Kind: Float, Nullable: true},
			{Name: "review_score", Kind: Integer, Nullable: true},
			{Name: "quantity", Kind: Integer},
		},
		Key: []string{"order_id", "product_id", "seller_id"},
		ForeignKeys: []ForeignKey{
			{Column: "order_id", RefTable: DimOrder, RefColumn: "order_id"},
			{Column: "product_id", RefTable: DimProduct, RefColumn: "product_id"},
			{Column: "seller_id", RefTable: DimSeller, RefColumn: "seller_id"},
			{Column: "customer_id", RefTable: DimCustomer, RefColumn: "customer_id"},
			{Column: "date_key", RefTable: DimDate, RefColumn: "date_key"},
		},
	}

	factOrderDelivery = Table{
		Name: FactOrderDelivery,
		Columns: []Column{
			{Name: "order_id", Kind: ID},
			{Name: "customer_id", Kind: ID},
			{Name: "date_key", Kind: Integer},
			{Name: "geolocation_id", Kind: Integer, Nullable: true},
			{Name: "num_items", Kind: Integer},
			{Name: "total_order_value", Kind: Float},
			{Name: "order_estimated_delivery_days", Kind: Integer, Nullable: true},
			{Name: "order_actual_delivery_days", Kind: Integer, Nullable: true},
			{Name: "delivery_delay_days", Kind: Integer, Nullable: true},
		},
		Key: []string{"order_id"},
		ForeignKeys: []ForeignKey{
			{Column: "order_id", RefTable: DimOrder, RefColumn: "order_id"},
			{Column: "customer_id", RefTable: DimCustomer, RefColumn: "customer_id"},
			{Column: "date_key", RefTable: DimDate, RefColumn: "date_key"},
			{Column: "geolocation_id", RefTable: DimGeolocation, RefColumn: "geolocation_id"},
		},
	}
)

// Dimensions lists the dimension tables in load order.
var Dimensions = []Table{dimDate, dimCustomer, dimProduct, dimSeller, dimGeolocation, dimOrder}

// Facts lists the fact tables in load order.
var Facts = []Table{factOrderItems, factOrderDelivery}

// All returns every warehouse table, dimensions first, so that creating them
// in order satisfies foreign keys.
func All() []Table {
	out := make([]Table, 0, len(Dimensions)+len(Facts))
	out = append(out, Dimensions...)
	return append(out, Facts...)
}

// Lookup returns the table called name.
func Lookup(name string) (Table, bool) {
	for _, t := range All() {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// MustLookup is Lookup for names known at compile time.
func MustLookup(name string) Table {
	t, ok := Lookup(name)
	if !ok {
		panic("schema: unknown table " + name)
	}
	return t
}

// InsertColumns returns the columns a loader writes: all but identity ones.
func (t Table) InsertColumns() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !c.Identity {
			out = append(out, c.Name)
		}
	}
	return out
}

// HasIdentity reports whether the table has a database-generated column.
func (t Table) HasIdentity() bool {
	for _, c := range t.Columns {
		if c.Identity {
			return true
		}
	}
	return false
}
