package postgres

import (
	"context"
	"fmt"

	"olistdw/internal/schema"
	"olistdw/internal/storage"
)

// Dialect renders Postgres DDL.
var Dialect = schema.Dialect{
	Name:  "postgres",
	Quote: schema.DoubleQuote,
	Types: map[schema.Kind]string{
		schema.ID:        "TEXT",
		schema.Text:      "TEXT",
		schema.Integer:   "INTEGER",
		schema.Float:     "DOUBLE PRECISION",
		schema.Date:      "DATE",
		schema.Timestamp: "TIMESTAMP",
	},
	Identity: "INTEGER GENERATED BY DEFAULT AS IDENTITY",
}

// EnsureSchema creates the namespace and every warehouse table if missing.
func EnsureSchema(ctx context.Context, repo storage.Repository) error {
	if ns := repo.Namespace(); ns != "" {
		if err := repo.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgIdent(ns)); err != nil {
			return fmt.Errorf("create schema %s: %w", ns, err)
		}
	}
	return storage.CreateTables(ctx, repo)
}
