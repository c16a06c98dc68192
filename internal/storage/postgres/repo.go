// Package postgres implements the warehouse Repository on Postgres using pgx
// v5. Dimension loads use COPY directly; fact loads COPY into a temporary
// table and then INSERT … ON CONFLICT DO NOTHING into the target.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"olistdw/internal/schema"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN    string // connection string for pgxpool
	Schema string // namespace of the warehouse tables, e.g. "olist_dw"
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", wrapPgErr(err))
	}
	close := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, close, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() schema.Dialect { return Dialect }

// Namespace implements storage.Repository.
func (r *Repository) Namespace() string { return r.cfg.Schema }

// Truncate empties t, restarts its identity sequence and cascades to the facts
// referencing it.
func (r *Repository) Truncate(ctx context.Context, t schema.Table) error {
	if _, err := r.pool.Exec(ctx, truncateSQL(r.cfg.Schema, t.Name)); err != nil {
		return wrapPgErr(err)
	}
	return nil
}

// CopyFrom streams rows into t with the COPY protocol. COPY is a single
// statement, so a batch commits or fails as a whole.
func (r *Repository) CopyFrom(ctx context.Context, t schema.Table, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, identifier(r.cfg.Schema, t.Name), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", t.Name, wrapPgErr(err))
	}
	return n, nil
}

// InsertIgnore stages rows in a temporary table and moves them into t,
// skipping rows whose key already exists. Everything runs in one transaction.
func (r *Repository) InsertIgnore(ctx context.Context, t schema.Table, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(t.Key) == 0 {
		return 0, fmt.Errorf("insert into %s: no conflict key", t.Name)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", wrapPgErr(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tmp := tempName(t.Name)
	if _, err := tx.Exec(ctx, createTempSQL(r.cfg.Schema, t.Name, tmp, columns)); err != nil {
		return 0, fmt.Errorf("create temp: %w", wrapPgErr(err))
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tmp}, columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, fmt.Errorf("copy into temp: %w", wrapPgErr(err))
	}
	tag, err := tx.Exec(ctx, insertIgnoreSQL(r.cfg.Schema, t, tmp, columns))
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", t.Name, wrapPgErr(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", wrapPgErr(err))
	}
	return tag.RowsAffected(), nil
}

// Query implements storage.Repository.
func (r *Repository) Query(ctx context.Context, query string) ([][]any, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr(err)
	}
	return out, nil
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	_, err := r.pool.Exec(ctx, sql)
	return wrapPgErr(err)
}

func truncateSQL(ns, table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", Dialect.Qualify(ns, table))
}

// createTempSQL creates a session temp table shaped like the selected columns
// of the target; it disappears when the transaction ends.
func createTempSQL(ns, table, tmp string, columns []string) string {
	return fmt.Sprintf(
		"CREATE TEMP TABLE %s ON COMMIT DROP AS SELECT %s FROM %s WHERE false",
		pgIdent(tmp), strings.Join(mapIdent(columns), ","), Dialect.Qualify(ns, table),
	)
}

func insertIgnoreSQL(ns string, t schema.Table, tmp string, columns []string) string {
	cols := strings.Join(mapIdent(columns), ",")
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO NOTHING",
		Dialect.Qualify(ns, t.Name), cols, cols, pgIdent(tmp), strings.Join(mapIdent(t.Key), ","),
	)
}

func tempName(table string) string {
	return "tmp_" + strings.ReplaceAll(table, ".", "_")
}

// wrapPgErr surfaces the server message, detail and SQLSTATE of a
// *pgconn.PgError while keeping it reachable through errors.As.
func wrapPgErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Detail != "" {
			return fmt.Errorf("%s: %s (%s): %w", pgErr.Message, pgErr.Detail, pgErr.SQLState(), err)
		}
		return fmt.Errorf("%s (%s): %w", pgErr.Message, pgErr.SQLState(), err)
	}
	return err
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return schema.DoubleQuote(id) }

// mapIdent maps a list of column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}

// identifier converts a namespace and table into a pgx.Identifier.
func identifier(ns, table string) pgx.Identifier {
	if ns == "" {
		return pgx.Identifier{table}
	}
	return pgx.Identifier{ns, table}
}
