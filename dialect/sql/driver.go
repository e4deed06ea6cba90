package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/syssam/querygen/dialect"
)

// driverNames maps dialect names to the database/sql driver registered for
// them. Dialects missing here use their own name.
var driverNames = map[string]string{
	dialect.Postgres: "postgres",
	dialect.MySQL:    "mysql",
	dialect.SQLite:   "sqlite",
}

// Driver executes compiled statements over a database/sql connection pool.
// It implements dialect.Driver.
type Driver struct {
	Conn
}

// Open opens a connection pool for the named dialect. The database/sql
// driver for it must be registered by the caller, e.g. by importing
// github.com/lib/pq or modernc.org/sqlite.
func Open(name, source string, opts ...Option) (*Driver, error) {
	g, err := NewGenerator(name, opts...)
	if err != nil {
		return nil, err
	}
	driverName, ok := driverNames[name]
	if !ok {
		driverName = name
	}
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: open %s: %w", name, err)
	}
	return &Driver{Conn{db, g}}, nil
}

// OpenDB wraps an open pool. It panics on unknown dialects.
func OpenDB(name string, db *sql.DB, opts ...Option) *Driver {
	return &Driver{Conn{db, Dialect(name, opts...)}}
}

// DB returns the underlying pool.
func (d *Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect implements dialect.Driver.
func (d *Driver) Dialect() string { return d.gen.Name() }

// Tx implements dialect.Driver.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// BeginTx starts a transaction whose statements compile with the driver's
// generator.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (*Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: begin: %w", err)
	}
	return &Tx{Conn: Conn{tx, d.gen}, Tx: tx}, nil
}

// Close closes the pool.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx is a transaction. It implements dialect.Tx.
type Tx struct {
	Conn
	driver.Tx
}

// ExecQuerier is implemented by *sql.DB, *sql.Tx and *sql.Conn.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn binds an ExecQuerier to the generator its statements are compiled
// with.
type Conn struct {
	ExecQuerier
	gen *Generator
}

// Generator returns the generator bound to the connection.
func (c Conn) Generator() *Generator { return c.gen }

// Compiled builds a statement with the generator of a connection.
type Compiled func(*Generator) (string, error)

// ExecCompiled compiles and executes a statement that returns no rows.
// An empty statement, such as an UPDATE without assignments, is skipped
// and yields a nil Result.
//
//	res, err := drv.ExecCompiled(ctx, func(g *sql.Generator) (string, error) {
//		return g.DeleteQuery(sql.Table("users"), sql.M("id", 5), nil, users)
//	})
func (c Conn) ExecCompiled(ctx context.Context, build Compiled) (Result, error) {
	return execCompiled(ctx, c, c.gen, build)
}

// QueryCompiled compiles and runs a statement returning rows. The caller
// closes the returned Rows.
func (c Conn) QueryCompiled(ctx context.Context, build Compiled) (*Rows, error) {
	return queryCompiled(ctx, c, c.gen, build)
}

func execCompiled(ctx context.Context, ex dialect.ExecQuerier, g *Generator, build Compiled) (Result, error) {
	query, err := build(g)
	if err != nil || query == "" {
		return nil, err
	}
	var res Result
	if err := ex.Exec(ctx, query, []any{}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func queryCompiled(ctx context.Context, ex dialect.ExecQuerier, g *Generator, build Compiled) (*Rows, error) {
	query, err := build(g)
	if err != nil {
		return nil, err
	}
	rows := &Rows{}
	if err := ex.Query(ctx, query, []any{}, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Exec implements dialect.ExecQuerier. v is nil or a *Result. Constraint
// violations are returned as querygen.ConstraintError.
func (c Conn) Exec(ctx context.Context, query string, args, v any) (rerr error) {
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	ex, release, err := c.withVars(ctx)
	if err != nil {
		return fmt.Errorf("dialect/sql: exec: set session vars: %w", err)
	}
	if release != nil {
		defer func() { rerr = errors.Join(rerr, release()) }()
	}
	switch v := v.(type) {
	case nil:
		if _, err := ex.ExecContext(ctx, query, argv...); err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", constraintError(err))
		}
	case *Result:
		res, err := ex.ExecContext(ctx, query, argv...)
		if err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", constraintError(err))
		}
		*v = res
	default:
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Result", v)
	}
	return nil
}

// Query implements dialect.ExecQuerier. v must be a *Rows.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	ex, release, err := c.withVars(ctx)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: set session vars: %w", err)
	}
	rows, err := ex.QueryContext(ctx, query, argv...)
	if err != nil {
		if release != nil {
			err = errors.Join(err, release())
		}
		return fmt.Errorf("dialect/sql: query: %w", constraintError(err))
	}
	*vr = Rows{rows}
	if release != nil {
		vr.ColumnScanner = rowsWithCloser{rows, release}
	}
	return nil
}

type varsKey struct{}

type sessionVar struct{ name, value string }

// WithVar returns a context carrying a session variable that is set
// before every statement executed with it.
func WithVar(ctx context.Context, name, value string) context.Context {
	vars, _ := ctx.Value(varsKey{}).([]sessionVar)
	vars = append(vars[:len(vars):len(vars)], sessionVar{name, value})
	return context.WithValue(ctx, varsKey{}, vars)
}

// VarFromContext returns the last value set for a session variable.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	vars, _ := ctx.Value(varsKey{}).([]sessionVar)
	for i := len(vars) - 1; i >= 0; i-- {
		if vars[i].name == name {
			return vars[i].value, true
		}
	}
	return "", false
}

var varNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]{0,127}$`)

// withVars pins a connection and sets the context session variables on
// it. The release function resets them and returns the connection.
func (c Conn) withVars(ctx context.Context) (ExecQuerier, func() error, error) {
	vars, _ := ctx.Value(varsKey{}).([]sessionVar)
	if len(vars) == 0 {
		return c, nil, nil
	}
	var (
		ex      ExecQuerier
		release func() error
	)
	switch e := c.ExecQuerier.(type) {
	case *sql.Tx:
		ex = e
	case *sql.DB:
		conn, err := e.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		ex, release = conn, conn.Close
	default:
		return nil, nil, fmt.Errorf("unsupported ExecQuerier type: %T", c.ExecQuerier)
	}
	fail := func(err error) (ExecQuerier, func() error, error) {
		if release != nil {
			err = errors.Join(err, release())
		}
		return nil, nil, err
	}
	var reset []string
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		if !varNameRe.MatchString(v.name) {
			return fail(fmt.Errorf("invalid session variable name: %q", v.name))
		}
		if !seen[v.name] {
			seen[v.name] = true
			switch c.gen.Name() {
			case dialect.Postgres:
				reset = append(reset, "RESET "+v.name)
			case dialect.MySQL:
				reset = append(reset, "SET "+v.name+" = NULL")
			}
		}
		if _, err := ex.ExecContext(ctx, "SET "+v.name+" = "+c.gen.quoteString(v.value)); err != nil {
			return fail(err)
		}
	}
	if closeConn := release; release != nil && len(reset) > 0 {
		release = func() error {
			// The statement context may be canceled by now.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for _, q := range reset {
				if _, err := ex.ExecContext(ctx, q); err != nil {
					return errors.Join(err, closeConn())
				}
			}
			return closeConn()
		}
	}
	return ex, release, nil
}

var _ dialect.Driver = (*Driver)(nil)

type (
	// Rows wraps sql.Rows to avoid copying its lock.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
	// TxOptions holds the options of BeginTx.
	TxOptions = sql.TxOptions
)

// ColumnScanner is the subset of *sql.Rows used to read results.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}

type rowsWithCloser struct {
	ColumnScanner
	closer func() error
}

func (r rowsWithCloser) Close() error {
	return errors.Join(r.ColumnScanner.Close(), r.closer())
}
