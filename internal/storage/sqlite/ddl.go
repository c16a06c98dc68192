package sqlite

import (
	"context"

	"olistdw/internal/schema"
	"olistdw/internal/storage"
)

// Dialect renders SQLite DDL. Identity keys use AUTOINCREMENT so that the
// counter lives in sqlite_sequence and can be reset.
var Dialect = schema.Dialect{
	Name:  "sqlite",
	Quote: schema.DoubleQuote,
	Types: map[schema.Kind]string{
		schema.ID:        "TEXT",
		schema.Text:      "TEXT",
		schema.Integer:   "INTEGER",
		schema.Float:     "REAL",
		schema.Date:      "DATE",
		schema.Timestamp: "TIMESTAMP",
	},
	Identity:      "INTEGER PRIMARY KEY AUTOINCREMENT",
	IdentityIsKey: true,
}

// EnsureSchema creates every warehouse table if missing.
func EnsureSchema(ctx context.Context, repo storage.Repository) error {
	return storage.CreateTables(ctx, repo)
}
