package etl

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"olistdw/internal/schema"
	"olistdw/internal/storage"
)

// VerifyTables are counted after every load, dimensions first.
var VerifyTables = []string{
	schema.DimCustomer,
	schema.DimProduct,
	schema.DimSeller,
	schema.DimOrder,
	schema.DimDate,
	schema.DimGeolocation,
	schema.FactOrderItems,
	schema.FactOrderDelivery,
}

// TableCount is the row count of one warehouse table.
type TableCount struct {
	Table string
	Rows  int64
}

// Verify counts the rows of every table in VerifyTables. It only reads.
func Verify(ctx context.Context, repo storage.Repository) ([]TableCount, error) {
	out := make([]TableCount, 0, len(VerifyTables))
	for _, t := range VerifyTables {
		n, err := storage.CountRows(ctx, repo, t)
		if err != nil {
			return out, err
		}
		out = append(out, TableCount{Table: t, Rows: n})
	}
	return out, nil
}

// FormatCounts renders counts as an aligned two-column listing.
func FormatCounts(counts []TableCount) string {
	width := 0
	for _, c := range counts {
		if len(c.Table) > width {
			width = len(c.Table)
		}
	}
	var b strings.Builder
	for _, c := range counts {
		fmt.Fprintf(&b, "  %-*s %12s\n", width, c.Table, humanize.Comma(c.Rows))
	}
	return b.String()
}
