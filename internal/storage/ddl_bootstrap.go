package storage

import (
	"context"
	"fmt"
	"log"
	"sync"

	"olistdw/internal/schema"
)

// DDLBootstrapper creates the warehouse namespace and tables for one backend
// kind, typically via CreateTables after a dialect-specific namespace step.
// Backends register their implementation at init time.
type DDLBootstrapper func(ctx context.Context, repo Repository) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) the DDLBootstrapper for kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureSchema runs the bootstrapper registered for kind against repo.
func EnsureSchema(ctx context.Context, kind string, repo Repository) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	return fn(ctx, repo)
}

// CreateTables renders and executes CREATE TABLE for every warehouse table,
// dimensions first.
func CreateTables(ctx context.Context, repo Repository) error {
	d := repo.Dialect()
	for _, t := range schema.All() {
		stmt, err := d.CreateTableSQL(repo.Namespace(), t)
		if err != nil {
			return err
		}
		if err := repo.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create %s: %w", t.Name, err)
		}
	}
	log.Printf("ddl: dialect=%s namespace=%q tables=%d", d.Name, repo.Namespace(), len(schema.All()))
	return nil
}
