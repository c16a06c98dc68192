// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each backend, which register their
// repository factories and DDL bootstrappers with the storage package. After
// the import the following kinds are available to storage.New and
// storage.EnsureSchema:
//
//   - "postgres" (olistdw/internal/storage/postgres)
//   - "sqlite"   (olistdw/internal/storage/sqlite)
//   - "mssql"    (olistdw/internal/storage/mssql)
//   - "mysql"    (olistdw/internal/storage/mysql)
//
// Typical usage:
//
//	import _ "olistdw/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: cfg.DB.Driver, DSN: cfg.DB.ConnString(), Schema: cfg.DB.Schema})
//	if err != nil {
//	    // handle error
//	}
//	defer repo.Close()
//
// A binary that needs only a subset of backends can import those packages
// directly instead.
package all

import (
	_ "olistdw/internal/storage/mssql"
	_ "olistdw/internal/storage/mysql"
	_ "olistdw/internal/storage/postgres"
	_ "olistdw/internal/storage/sqlite"
)
