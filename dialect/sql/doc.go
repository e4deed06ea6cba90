// Package sql compiles operation descriptors into dialect-specific SQL
// text and executes the result over database/sql.
//
// # Generators
//
// A Generator is bound to the capabilities of one dialect and is safe for
// concurrent use:
//
//	g := sql.Dialect(dialect.Postgres, sql.WithLogger(logger))
//
// Every compiler returns the complete statement, terminated by a
// semicolon, or an error. No compiler returns partial SQL.
//
// # Conditions
//
// Conditions are ordered Maps whose keys are attribute names, column
// names or operator tokens:
//
//	sql.M("status", "A", "or", []any{
//		sql.M("qty", sql.M("lt", 30)),
//		sql.M("item", sql.M("regexp", "^p")),
//	})
//	// "status" = 'A' AND ("qty" < 30 OR "item" ~ '^p')
//
// Typed fields build the same trees:
//
//	var Age = sql.IntField("age")
//	sql.And(Age.GTE(18), Age.LT(65))
//
// Values are always escaped. Lit is the only way to embed caller-written
// SQL, and Fn, Col, Cast, JSON and Where build expressions from parts.
//
// # Statements
//
//   - SelectQuery: attributes, includes (joins over model associations),
//     where, group, having, order, limit, offset, locks and hints.
//   - InsertQuery and BulkInsertQuery: single and multi-row inserts with
//     upserts, duplicate handling and returned rows.
//   - UpdateQuery and ArithmeticQuery: assignments and counter updates.
//   - DeleteQuery and TruncateQuery.
//
// # Execution
//
// Driver runs compiled statements and classifies constraint violations:
//
//	drv, err := sql.Open(dialect.SQLite, "file:app.db")
//	res, err := drv.ExecCompiled(ctx, func(g *sql.Generator) (string, error) {
//		return g.InsertQuery(sql.Table("users"), sql.M("name", "a8m"), users, nil)
//	})
//	if sql.IsUniqueConstraintError(err) {
//		// ...
//	}
//
// StatsDriver wraps a Driver with counters and slow statement logging.
package sql
