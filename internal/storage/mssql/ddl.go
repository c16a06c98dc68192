package mssql

import (
	"context"
	"fmt"
	"strings"

	"olistdw/internal/schema"
	"olistdw/internal/storage"
)

// Dialect renders SQL Server DDL. Key columns are bounded NVARCHAR so that
// composite primary keys stay within the index key size limit.
var Dialect = schema.Dialect{
	Name:  "mssql",
	Quote: schema.BracketQuote,
	Types: map[schema.Kind]string{
		schema.ID:        "NVARCHAR(64)",
		schema.Text:      "NVARCHAR(255)",
		schema.Integer:   "INT",
		schema.Float:     "FLOAT",
		schema.Date:      "DATE",
		schema.Timestamp: "DATETIME2",
	},
	Identity: "INT IDENTITY(1,1) NOT NULL",
	Wrap: func(qualified, create string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL %s;", strings.ReplaceAll(qualified, "'", "''"), create)
	},
}

// EnsureSchema creates the namespace and every warehouse table if missing.
func EnsureSchema(ctx context.Context, repo storage.Repository) error {
	if ns := repo.Namespace(); ns != "" {
		if err := repo.Exec(ctx, createSchemaSQL(ns)); err != nil {
			return fmt.Errorf("create schema %s: %w", ns, err)
		}
	}
	return storage.CreateTables(ctx, repo)
}

// createSchemaSQL wraps CREATE SCHEMA in EXEC because it must be the only
// statement in its batch.
func createSchemaSQL(ns string) string {
	lit := strings.ReplaceAll(ns, "'", "''")
	body := strings.ReplaceAll("CREATE SCHEMA "+msIdent(ns), "'", "''")
	return fmt.Sprintf("IF SCHEMA_ID(N'%s') IS NULL EXEC(N'%s')", lit, body)
}
