// Package mssql implements the warehouse Repository on Microsoft SQL Server
// using the go-mssqldb bulk copy API. Fact loads bulk copy into a session
// temporary table (#temp) and then insert only the rows whose key is new.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"olistdw/internal/schema"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN    string
	Schema string
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	close := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, close, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() schema.Dialect { return Dialect }

// Namespace implements storage.Repository.
func (r *Repository) Namespace() string { return r.cfg.Schema }

// Truncate deletes every row of t and reseeds its identity. SQL Server
// refuses TRUNCATE on tables referenced by foreign keys, so rows are deleted
// and the ON DELETE CASCADE constraints clear dependent facts.
func (r *Repository) Truncate(ctx context.Context, t schema.Table) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	fq := Dialect.Qualify(r.cfg.Schema, t.Name)
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+fq); err != nil {
		rollback()
		return fmt.Errorf("delete %s: %w", t.Name, err)
	}
	if t.HasIdentity() {
		if _, err := tx.ExecContext(ctx, reseedSQL(fq)); err != nil {
			rollback()
			return fmt.Errorf("reseed %s: %w", t.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CopyFrom performs a bulk insert directly into t.
func (r *Repository) CopyFrom(ctx context.Context, t schema.Table, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	n, err := bulkCopy(ctx, tx, Dialect.Qualify(r.cfg.Schema, t.Name), columns, rows)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// InsertIgnore bulk copies rows into a temp table, then inserts the first row
// per key that does not exist in t yet.
func (r *Repository) InsertIgnore(ctx context.Context, t schema.Table, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(t.Key) == 0 {
		return 0, fmt.Errorf("insert into %s: no conflict key", t.Name)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	fq := Dialect.Qualify(r.cfg.Schema, t.Name)
	tmp := "#tmp_" + strings.ReplaceAll(t.Name, ".", "_")

	create := fmt.Sprintf("SELECT TOP 0 %s INTO %s FROM %s", strings.Join(mapIdent(columns), ","), msIdent(tmp), fq)
	if _, err := tx.ExecContext(ctx, create); err != nil {
		rollback()
		return 0, fmt.Errorf("create temp: %w", err)
	}
	if _, err := bulkCopy(ctx, tx, tmp, columns, rows); err != nil {
		rollback()
		return 0, err
	}
	res, err := tx.ExecContext(ctx, insertNewSQL(fq, msIdent(tmp), columns, t.Key))
	if err != nil {
		rollback()
		return 0, fmt.Errorf("insert into %s: %w", t.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		rollback()
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE "+msIdent(tmp)); err != nil {
		rollback()
		return 0, fmt.Errorf("drop temp: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// bulkCopy streams rows into table through mssql.CopyIn on tx.
func bulkCopy(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx) // flush
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Query implements storage.Repository.
func (r *Repository) Query(ctx context.Context, query string) ([][]any, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	_, err := r.db.ExecContext(ctx, sqlText)
	return err
}

// reseedSQL resets the identity of fq so the next row gets 1. Tables that
// never held a row already start at 1 and are left alone, because reseeding
// them would hand out 0 first.
func reseedSQL(fq string) string {
	lit := strings.ReplaceAll(fq, "'", "''")
	return fmt.Sprintf(
		"IF EXISTS (SELECT 1 FROM sys.identity_columns WHERE object_id = OBJECT_ID(N'%s') AND last_value IS NOT NULL) DBCC CHECKIDENT (N'%s', RESEED, 0)",
		lit, lit,
	)
}

// insertNewSQL inserts from tmp into fq the first staged row per key whose key
// is absent from fq.
func insertNewSQL(fq, tmp string, columns, keys []string) string {
	cols := strings.Join(mapIdent(columns), ",")
	return fmt.Sprintf(
		`INSERT INTO %s (%s)
SELECT %s FROM (
  SELECT %s, ROW_NUMBER() OVER (PARTITION BY %s ORDER BY (SELECT NULL)) AS __rn FROM %s
) AS S
WHERE S.__rn = 1 AND NOT EXISTS (SELECT 1 FROM %s AS T WHERE %s)`,
		fq, cols,
		cols,
		cols, strings.Join(mapIdent(keys), ","), tmp,
		fq, buildKeyCondition(keys),
	)
}

// buildKeyCondition builds the T=S equality join for the provided key columns.
func buildKeyCondition(keyColumns []string) string {
	conds := make([]string, 0, len(keyColumns))
	for _, col := range keyColumns {
		conds = append(conds, fmt.Sprintf("T.%s = S.%s", msIdent(col), msIdent(col)))
	}
	return strings.Join(conds, " AND ")
}

// msIdent safely quotes a SQL Server identifier using [brackets], escaping ].
func msIdent(id string) string { return schema.BracketQuote(id) }

// mapIdent maps a list of column names to their bracket-quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = msIdent(c)
	}
	return out
}
