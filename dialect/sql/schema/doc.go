// Package schema emits the DDL and transaction-control statements that
// accompany generated queries: index and constraint management, table
// rename, drop and describe, and BEGIN/COMMIT/SAVEPOINT control.
//
//	e := schema.New(sql.Dialect(dialect.Postgres))
//	e.AddIndexQuery(sql.Table("users"), index.Fields("email").Unique().Descriptor())
//	// CREATE UNIQUE INDEX "users_email" ON "users" ("email");
//
// Emitters share the quoting and escaping rules of the sql.Generator they
// wrap. Descriptors are validated before anything is emitted.
package schema
