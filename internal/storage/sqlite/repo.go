// Package sqlite implements the warehouse Repository on SQLite using
// database/sql and modernc.org/sqlite. SQLite has no bulk-load API, so each
// batch is a prepared INSERT executed row by row inside one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"olistdw/internal/schema"
)

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
//
// The pool is limited to one connection: an in-memory database exists per
// connection, and PRAGMA foreign_keys is a per-connection setting.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	// Cascading deletes from dimensions to facts depend on this.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() schema.Dialect { return Dialect }

// Namespace implements storage.Repository. SQLite tables live in "main".
func (r *Repository) Namespace() string { return "" }

// Truncate deletes every row of t (cascading to facts) and resets its
// AUTOINCREMENT counter, in one transaction.
func (r *Repository) Truncate(ctx context.Context, t schema.Table) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+sqlIdent(t.Name)); err != nil {
		return fmt.Errorf("sqlite: delete %s: %w", t.Name, err)
	}
	if t.HasIdentity() {
		var seq int
		err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence'").Scan(&seq)
		if err != nil {
			return fmt.Errorf("sqlite: probe sqlite_sequence: %w", err)
		}
		if seq > 0 {
			if _, err := tx.ExecContext(ctx, "DELETE FROM sqlite_sequence WHERE name = ?", t.Name); err != nil {
				return fmt.Errorf("sqlite: reset identity %s: %w", t.Name, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// CopyFrom inserts rows into t using a single transaction and a prepared
// INSERT statement.
func (r *Repository) CopyFrom(ctx context.Context, t schema.Table, columns []string, rows [][]any) (int64, error) {
	return r.insert(ctx, insertSQL(t, columns, false), columns, rows)
}

// InsertIgnore inserts rows into t, skipping rows that conflict on t.Key.
func (r *Repository) InsertIgnore(ctx context.Context, t schema.Table, columns []string, rows [][]any) (int64, error) {
	if len(t.Key) == 0 {
		return 0, fmt.Errorf("sqlite: insert into %s: no conflict key", t.Name)
	}
	return r.insert(ctx, insertSQL(t, columns, true), columns, rows)
}

func (r *Repository) insert(ctx context.Context, stmtSQL string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: insert: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("sqlite: insert: row length %d != columns length %d", len(row), len(columns))
		}
		res, err := stmt.ExecContext(ctx, row...)
		if err != nil {
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("sqlite: rows affected: %w", err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// Query implements storage.Repository.
func (r *Repository) Query(ctx context.Context, query string) ([][]any, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// Exec executes an arbitrary SQL statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

func insertSQL(t schema.Table, columns []string, ignore bool) string {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	s := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		sqlIdent(t.Name),
		strings.Join(Dialect.Idents(columns), ", "),
		strings.Join(placeholders, ", "),
	)
	if ignore {
		s += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(Dialect.Idents(t.Key), ", "))
	}
	return s
}

// scanAll reads every row of rows into generic values.
func scanAll(rows *sql.Rows) ([][]any, error) {
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

func sqlIdent(id string) string { return schema.DoubleQuote(id) }
