// Package storage holds the backend-agnostic warehouse contract, the backend
// registry and the batched dimension and fact loaders built on top of it.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"olistdw/internal/schema"
)

// Repository is the warehouse access a backend provides. Every write method
// runs in its own transaction.
type Repository interface {
	// Dialect describes quoting and DDL types of the backend.
	Dialect() schema.Dialect

	// Namespace is the schema (or database) tables live in; empty means the
	// connection default.
	Namespace() string

	// Truncate removes every row of t and resets its identity numbering.
	// Dependent fact rows are removed with it.
	Truncate(ctx context.Context, t schema.Table) error

	// CopyFrom inserts rows aligned to columns and returns the rows written.
	CopyFrom(ctx context.Context, t schema.Table, columns []string, rows [][]any) (int64, error)

	// InsertIgnore inserts rows, skipping those whose key (t.Key) already
	// exists, and returns the rows actually inserted. Any other constraint
	// violation fails the whole call.
	InsertIgnore(ctx context.Context, t schema.Table, columns []string, rows [][]any) (int64, error)

	// Query runs a read-only statement and returns every row.
	Query(ctx context.Context, query string) ([][]any, error)

	// Exec runs a statement that returns no rows (typically DDL).
	Exec(ctx context.Context, sql string) error

	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind   string // postgres | sqlite | mssql | mysql
	DSN    string
	Schema string // namespace for warehouse tables
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. Registering the same kind
// again replaces the previous factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s (registered: %s)", cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered backend kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Qualified returns the quoted, namespace-qualified name of table.
func Qualified(repo Repository, table string) string {
	return repo.Dialect().Qualify(repo.Namespace(), table)
}

// SelectColumns reads columns of every row in table.
func SelectColumns(ctx context.Context, repo Repository, table string, columns ...string) ([][]any, error) {
	d := repo.Dialect()
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(d.Idents(columns), ", "), Qualified(repo, table))
	rows, err := repo.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return rows, nil
}

// CountRows returns the number of rows in table.
func CountRows(ctx context.Context, repo Repository, table string) (int64, error) {
	rows, err := repo.Query(ctx, "SELECT COUNT(*) FROM "+Qualified(repo, table))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	if len(rows) != 1 || len(rows[0]) != 1 {
		return 0, fmt.Errorf("count %s: unexpected result shape", table)
	}
	n, ok := AsInt64(rows[0][0])
	if !ok {
		return 0, fmt.Errorf("count %s: unexpected value %T", table, rows[0][0])
	}
	return n, nil
}
