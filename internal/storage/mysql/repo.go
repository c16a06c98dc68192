// Package mysql implements the warehouse Repository on MySQL using
// go-sql-driver/mysql. Batches are written as multi-row INSERT statements;
// fact batches add ON DUPLICATE KEY UPDATE with a no-op assignment so that
// existing keys count as zero affected rows.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"olistdw/internal/schema"
)

// maxPlaceholders is the server limit on bound parameters per statement.
const maxPlaceholders = 65535

// Config holds MySQL repository configuration.
type Config struct {
	DSN    string
	Schema string // database holding the warehouse tables
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
// DATE and DATETIME columns are always scanned as time.Time.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	dsn, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	dsn.ParseTime = true
	db, err := sql.Open("mysql", dsn.FormatDSN())
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

// Truncate deletes every row of t in one transaction, letting ON DELETE
// CASCADE clear dependent facts, then resets AUTO_INCREMENT. TRUNCATE is not
// allowed on tables referenced by foreign keys.
func (r *Repository) Truncate(ctx context.Context, t schema.Table) error {
	fq := myFQN(r.cfg.Schema, t.Name)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+fq); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete %s: %w", t.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	// ALTER TABLE commits implicitly, so it runs after the delete committed.
	if t.HasIdentity() {
		if _, err := r.db.ExecContext(ctx, "ALTER TABLE "+fq+" AUTO_INCREMENT = 1"); err != nil {
			return fmt.Errorf("reset identity %s: %w", t.Name, err)
		}
	}
	return nil
}

// CopyFrom inserts rows into t with multi-row INSERT statements in one
// transaction.
func (r *Repository) CopyFrom(ctx context.Context, t schema.Table, columns []string, rows [][]any) (int64, error) {
	return r.insert(ctx, t, columns, rows, "")
}

// InsertIgnore inserts rows into t; rows whose key already exists are left
// untouched and not counted. Unlike INSERT IGNORE, foreign key and NOT NULL
// violations still fail the batch.
func (r *Repository) InsertIgnore(ctx context.Context, t schema.Table, columns []string, rows [][]any) (int64, error) {
	if len(t.Key) == 0 {
		return 0, fmt.Errorf("insert into %s: no conflict key", t.Name)
	}
	k := myIdent(t.Key[0])
	return r.insert(ctx, t, columns, rows, fmt.Sprintf(" ON DUPLICATE KEY UPDATE %s = %s", k, k))
}

func (r *Repository) insert(ctx context.Context, t schema.Table, columns []string, rows [][]any, suffix string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("insert into %s: columns must not be empty", t.Name)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	fq := myFQN(r.cfg.Schema, t.Name)
	per := maxPlaceholders / len(columns)
	var total int64
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		chunk := rows[start:end]

		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			if len(row) != len(columns) {
				rollback()
				return 0, fmt.Errorf("row %d: length %d != columns length %d", start+i, len(row), len(columns))
			}
			args = append(args, row...)
		}
		res, err := tx.ExecContext(ctx, insertSQL(fq, columns, len(chunk))+suffix, args...)
		if err != nil {
			rollback()
			return 0, fmt.Errorf("insert into %s: %w", t.Name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			rollback()
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

// Query implements storage.Repository. Numeric values come back as []byte on
// the text protocol; callers normalize them.
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

// insertSQL renders INSERT INTO fq (cols) VALUES (?,…),(?,…) for n rows.
func insertSQL(fq string, columns []string, n int) string {
	one := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", fq, strings.Join(mapIdent(columns), ","))
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(one)
	}
	return sb.String()
}

// myIdent backtick-quotes an identifier, doubling embedded backticks.
func myIdent(id string) string { return schema.BacktickQuote(id) }

// myFQN qualifies table with the database name when one is set.
func myFQN(db, table string) string { return Dialect.Qualify(db, table) }

func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = myIdent(c)
	}
	return out
}
