// Package extract reads the fixed set of Olist source datasets into memory.
package extract

import (
	"fmt"
	"strings"

	"olistdw/internal/records"
)

// Dataset names.
const (
	Customers   = "customers"
	Orders      = "orders"
	OrderItems  = "order_items"
	Products    = "products"
	Sellers     = "sellers"
	Geolocation = "geolocation"
	Reviews     = "reviews"
	Payments    = "payments"
)

// Dataset describes one source file and the columns the pipeline relies on.
// Columns that the cleaner can fill (cities, states, categories) are not
// required.
type Dataset struct {
	Name     string
	File     string
	Required []string
}

// Datasets is the fixed input set, in load order.
var Datasets = []Dataset{
	{Name: Customers, File: "olist_customers_dataset.csv",
		Required: []string{"customer_id", "customer_unique_id"}},
	{Name: Orders, File: "olist_orders_dataset.csv",
		Required: []string{
			"order_id", "customer_id", "order_status",
			"order_purchase_timestamp", "order_approved_at",
			"order_delivered_carrier_date", "order_delivered_customer_date",
			"order_estimated_delivery_date",
		}},
	{Name: OrderItems, File: "olist_order_items_dataset.csv",
		Required: []string{"order_id", "order_item_id", "product_id", "seller_id", "price", "freight_value"}},
	{Name: Products, File: "olist_products_dataset.csv",
		Required: []string{"product_id"}},
	{Name: Sellers, File: "olist_sellers_dataset.csv",
		Required: []string{"seller_id"}},
	{Name: Geolocation, File: "olist_geolocation_dataset.csv",
		Required: []string{"geolocation_zip_code_prefix", "geolocation_lat", "geolocation_lng"}},
	{Name: Reviews, File: "olist_order_reviews_dataset.csv",
		Required: []string{"order_id", "review_score"}},
	{Name: Payments, File: "olist_order_payments_dataset.csv",
		Required: []string{"order_id", "payment_value"}},
}

// Lookup returns the dataset definition for name.
func Lookup(name string) (Dataset, bool) {
	for _, d := range Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return Dataset{}, false
}

// SchemaError reports a dataset whose header lacks required columns.
type SchemaError struct {
	Dataset string
	File    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset %s (%s): missing required columns: %s",
		e.Dataset, e.File, strings.Join(e.Missing, ", "))
}

// checkColumns returns a *SchemaError when t lacks any of d.Required.
func checkColumns(d Dataset, file string, t *records.Table) error {
	var missing []string
	for _, c := range d.Required {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Dataset: d.Name, File: file, Missing: missing}
	}
	return nil
}

// Tables holds every extracted dataset.
type Tables struct {
	Customers   *records.Table
	Orders      *records.Table
	OrderItems  *records.Table
	Products    *records.Table
	Sellers     *records.Table
	Geolocation *records.Table
	Reviews     *records.Table
	Payments    *records.Table
}

func (t *Tables) slot(name string) **records.Table {
	switch name {
	case Customers:
		return &t.Customers
	case Orders:
		return &t.Orders
	case OrderItems:
		return &t.OrderItems
	case Products:
		return &t.Products
	case Sellers:
		return &t.Sellers
	case Geolocation:
		return &t.Geolocation
	case Reviews:
		return &t.Reviews
	case Payments:
		return &t.Payments
	}
	return nil
}

// Get returns the table for a dataset name, or nil.
func (t *Tables) Get(name string) *records.Table {
	if p := t.slot(name); p != nil {
		return *p
	}
	return nil
}
