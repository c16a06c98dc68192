package mysql

import (
	"context"
	"fmt"

	"olistdw/internal/schema"
	"olistdw/internal/storage"
)

// Dialect renders MySQL DDL. Key columns are VARCHAR because TEXT cannot be
// part of a primary key without a prefix length.
var Dialect = schema.Dialect{
	Name:  "mysql",
	Quote: schema.BacktickQuote,
	Types: map[schema.Kind]string{
		schema.ID:        "VARCHAR(64)",
		schema.Text:      "VARCHAR(255)",
		schema.Integer:   "INT",
		schema.Float:     "DOUBLE",
		schema.Date:      "DATE",
		schema.Timestamp: "DATETIME",
	},
	Identity: "INT NOT NULL AUTO_INCREMENT",
}

// EnsureSchema creates the database and every warehouse table if missing.
func EnsureSchema(ctx context.Context, repo storage.Repository) error {
	if ns := repo.Namespace(); ns != "" {
		if err := repo.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+myIdent(ns)); err != nil {
			return fmt.Errorf("create database %s: %w", ns, err)
		}
	}
	return storage.CreateTables(ctx, repo)
}
