// Package dialect describes the SQL dialects querygen compiles for.
//
// Each dialect is identified by a name constant and described by a flat,
// immutable Capabilities descriptor. Compilers in dialect/sql consult the
// descriptor instead of switching on the dialect name, so adding a dialect
// is a matter of registering a new descriptor.
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL
//   - MySQL: MySQL/MariaDB
//   - MSSQL: Microsoft SQL Server
//   - SQLite: SQLite 3
//
// # Dialect Constants
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.MSSQL    = "mssql"
//	dialect.SQLite   = "sqlite"
//
// # Capabilities
//
// Descriptors are validated when the package is initialized and looked up
// by name:
//
//	caps, err := dialect.Lookup(dialect.Postgres)
//	if err != nil {
//	    return err
//	}
//	if caps.Returning == dialect.ReturnReturning {
//	    // RETURNING is available.
//	}
//
// Lookup returns a copy; mutating it never affects other callers.
//
// # Driver Interface
//
// The package also defines the small execution interfaces implemented by
// dialect/sql for running compiled statements:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Sub-packages
//
//   - dialect/sql: the statement compilers and the execution driver
//   - dialect/sql/schema: DDL and transaction-control emitters
package dialect
