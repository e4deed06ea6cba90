package schema

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/dialect/sql"
	"github.com/syssam/querygen/schema/index"
)

func emitter(name string) *Emitter {
	return New(sql.Dialect(name))
}

func TestAddIndexQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect string
		table   sql.TableRef
		index   *index.Builder
		want    string
	}{
		{
			name:    "unique",
			dialect: dialect.Postgres,
			table:   sql.Table("users"),
			index:   index.Fields("email").Unique(),
			want:    `CREATE UNIQUE INDEX "users_email" ON "users" ("email");`,
		},
		{
			name:    "derived_name_underscored",
			dialect: dialect.Postgres,
			table:   sql.Table("users"),
			index:   index.Fields("firstName"),
			want:    `CREATE INDEX "users_first_name" ON "users" ("firstName");`,
		},
		{
			name:    "schema_prefix",
			dialect: dialect.Postgres,
			table:   sql.Table("users").InSchema("app"),
			index:   index.Fields("email"),
			want:    `CREATE INDEX "app_users_email" ON "app"."users" ("email");`,
		},
		{
			name:    "explicit_prefix",
			dialect: dialect.Postgres,
			table:   sql.Table("users"),
			index:   index.Fields("email").Prefix("people"),
			want:    `CREATE INDEX "people_email" ON "users" ("email");`,
		},
		{
			name:    "postgres_modifiers",
			dialect: dialect.Postgres,
			table:   sql.Table("users"),
			index: index.Columns(index.Column("name").Collate("C").Operator("text_pattern_ops").Desc()).
				StorageKey("users_name").
				Using("btree").
				Concurrently().
				Where(sql.M("deletedAt", nil)).
				Include("id"),
			want: `CREATE INDEX CONCURRENTLY "users_name" ON "users" USING BTREE ("name" COLLATE "C" text_pattern_ops DESC) INCLUDE ("id") WHERE "deletedAt" IS NULL;`,
		},
		{
			name:    "operator_for_all_columns",
			dialect: dialect.Postgres,
			table:   sql.Table("posts"),
			index:   index.Fields("title", "body").Operator("gin_trgm_ops").Using("gin"),
			want:    `CREATE INDEX "posts_title_body" ON "posts" USING GIN ("title" gin_trgm_ops, "body" gin_trgm_ops);`,
		},
		{
			name:    "qualified_operator_class",
			dialect: dialect.Postgres,
			table:   sql.Table("users"),
			index:   index.Columns(index.Column("email").Operator("pg_catalog.text_pattern_ops")),
			want:    `CREATE INDEX "users_email" ON "users" ("email" pg_catalog.text_pattern_ops);`,
		},
		{
			name:    "mysql_fulltext",
			dialect: dialect.MySQL,
			table:   sql.Table("posts"),
			index:   index.Columns(index.Column("title").Length(10)).Type("FULLTEXT").Parser("ngram").StorageKey("posts_title"),
			want:    "ALTER TABLE `posts` ADD FULLTEXT INDEX `posts_title` (`title`(10)) WITH PARSER ngram;",
		},
		{
			name:    "mysql_using_before_table",
			dialect: dialect.MySQL,
			table:   sql.Table("users"),
			index:   index.Fields("email").Unique().Using("hash"),
			want:    "ALTER TABLE `users` ADD UNIQUE INDEX `users_email` USING HASH (`email`);",
		},
		{
			name:    "mssql_filtered",
			dialect: dialect.MSSQL,
			table:   sql.Table("users"),
			index:   index.Fields("email").Where(sql.M("active", true)).Include("name"),
			want:    "CREATE INDEX [users_email] ON [users] ([email]) INCLUDE ([name]) WHERE [active] = 1;",
		},
		{
			name:    "sqlite_expression",
			dialect: dialect.SQLite,
			table:   sql.Table("users"),
			index:   index.Columns(index.Expression(sql.Fn("lower", sql.Col("email")))).StorageKey("users_lower_email"),
			want:    "CREATE INDEX `users_lower_email` ON `users` ((lower(`email`)));",
		},
		{
			name:    "sqlite_collate",
			dialect: dialect.SQLite,
			table:   sql.Table("users"),
			index:   index.Columns(index.Column("name").Collate("NOCASE").Asc()),
			want:    "CREATE INDEX `users_name` ON `users` (`name` COLLATE `NOCASE` ASC);",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := emitter(tt.dialect).AddIndexQuery(tt.table, tt.index.Descriptor())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddIndexQueryErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect string
		table   sql.TableRef
		desc    *index.Descriptor
		target  error
	}{
		{name: "no_table", dialect: dialect.Postgres, desc: index.Fields("a").Descriptor(), target: querygen.ErrMalformed},
		{name: "nil_descriptor", dialect: dialect.Postgres, table: sql.Table("t"), target: querygen.ErrMalformed},
		{name: "no_fields", dialect: dialect.Postgres, table: sql.Table("t"), desc: index.Fields().Descriptor(), target: querygen.ErrMalformed},
		{
			name:    "unnamed_expression",
			dialect: dialect.Postgres,
			table:   sql.Table("t"),
			desc:    index.Columns(index.Expression(sql.Fn("lower", sql.Col("a")))).Descriptor(),
			target:  querygen.ErrMalformed,
		},
		{
			name:    "invalid_order",
			dialect: dialect.Postgres,
			table:   sql.Table("t"),
			desc:    &index.Descriptor{Fields: []index.Field{{Name: "a", Order: "SIDEWAYS"}}},
			target:  querygen.ErrMalformed,
		},
		{
			name:    "unique_fulltext",
			dialect: dialect.MySQL,
			table:   sql.Table("t"),
			desc:    index.Fields("a").Unique().Type("FULLTEXT").Descriptor(),
			target:  querygen.ErrMalformed,
		},
		{name: "mysql_concurrently", dialect: dialect.MySQL, table: sql.Table("t"), desc: index.Fields("a").Concurrently().Descriptor(), target: querygen.ErrUnsupported},
		{name: "sqlite_using", dialect: dialect.SQLite, table: sql.Table("t"), desc: index.Fields("a").Using("btree").Descriptor(), target: querygen.ErrUnsupported},
		{name: "postgres_type", dialect: dialect.Postgres, table: sql.Table("t"), desc: index.Fields("a").Type("FULLTEXT").Descriptor(), target: querygen.ErrUnsupported},
		{name: "mysql_where", dialect: dialect.MySQL, table: sql.Table("t"), desc: index.Fields("a").Where(sql.M("b", 1)).Descriptor(), target: querygen.ErrUnsupported},
		{
			name:    "postgres_length",
			dialect: dialect.Postgres,
			table:   sql.Table("t"),
			desc:    index.Columns(index.Column("a").Length(3)).Descriptor(),
			target:  querygen.ErrUnsupported,
		},
		{name: "sqlite_include", dialect: dialect.SQLite, table: sql.Table("t"), desc: index.Fields("a").Include("b").Descriptor(), target: querygen.ErrUnsupported},
		{name: "postgres_parser", dialect: dialect.Postgres, table: sql.Table("t"), desc: index.Fields("a").Parser("ngram").Descriptor(), target: querygen.ErrUnsupported},
		{
			name:    "order_injection",
			dialect: dialect.Postgres,
			table:   sql.Table("t"),
			desc:    &index.Descriptor{Fields: []index.Field{{Name: "a", Order: "ASC); DROP TABLE t; --"}}},
			target:  querygen.ErrMalformed,
		},
		{
			name:    "column_operator_injection",
			dialect: dialect.Postgres,
			table:   sql.Table("t"),
			desc:    index.Columns(index.Column("a").Operator("text_ops); DROP TABLE t; --")).Descriptor(),
			target:  querygen.ErrMalformed,
		},
		{
			name:    "operator_injection",
			dialect: dialect.Postgres,
			table:   sql.Table("t"),
			desc:    index.Fields("a").Operator("gin_trgm_ops) --").Descriptor(),
			target:  querygen.ErrMalformed,
		},
		{
			name:    "parser_injection",
			dialect: dialect.MySQL,
			table:   sql.Table("t"),
			desc:    index.Fields("a").Type("FULLTEXT").Parser("ngram; DROP TABLE t").Descriptor(),
			target:  querygen.ErrMalformed,
		},
		{name: "using_injection", dialect: dialect.Postgres, table: sql.Table("t"), desc: index.Fields("a").Using("btree (a); --").Descriptor(), target: querygen.ErrMalformed},
		{name: "type_injection", dialect: dialect.MySQL, table: sql.Table("t"), desc: index.Fields("a").Type("FULLTEXT INDEX x ON t (a); --").Descriptor(), target: querygen.ErrMalformed},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := emitter(tt.dialect).AddIndexQuery(tt.table, tt.desc)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestRemoveIndexQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect string
		table   sql.TableRef
		fields  []string
		opts    *RemoveIndexOptions
		want    string
	}{
		{name: "postgres_name", dialect: dialect.Postgres, table: sql.Table("users"), fields: []string{"users_email"}, want: `DROP INDEX IF EXISTS "users_email";`},
		{
			name:    "postgres_fields_concurrently",
			dialect: dialect.Postgres,
			table:   sql.Table("users").InSchema("app"),
			fields:  []string{"firstName", "lastName"},
			opts:    &RemoveIndexOptions{Concurrently: true},
			want:    `DROP INDEX CONCURRENTLY IF EXISTS "app"."app_users_first_name_last_name";`,
		},
		{name: "mysql", dialect: dialect.MySQL, table: sql.Table("users"), fields: []string{"users_email"}, want: "DROP INDEX `users_email` ON `users`;"},
		{name: "mssql", dialect: dialect.MSSQL, table: sql.Table("users"), fields: []string{"users_email"}, want: "DROP INDEX [users_email] ON [users];"},
		{name: "sqlite", dialect: dialect.SQLite, table: sql.Table("users"), fields: []string{"users_email"}, want: "DROP INDEX IF EXISTS `users_email`;"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := emitter(tt.dialect).RemoveIndexQuery(tt.table, tt.fields, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := emitter(dialect.Postgres).RemoveIndexQuery(sql.Table("users"), nil, nil)
	assert.True(t, errors.Is(err, querygen.ErrMalformed))
	_, err = emitter(dialect.MySQL).RemoveIndexQuery(sql.Table("users"), []string{"a"}, &RemoveIndexOptions{Concurrently: true})
	assert.True(t, errors.Is(err, querygen.ErrUnsupported))
	_, err = emitter(dialect.MySQL).RemoveIndexQuery(sql.TableRef{}, []string{"a"}, nil)
	assert.True(t, errors.Is(err, querygen.ErrMalformed))
}

func TestAddIndexQueryMatchesRemove(t *testing.T) {
	t.Parallel()
	e := emitter(dialect.Postgres)
	table := sql.Table("users")
	d := index.Fields("firstName", "lastName").Descriptor()
	add, err := e.AddIndexQuery(table, d)
	require.NoError(t, err)
	drop, err := e.RemoveIndexQuery(table, d.FieldNames(), nil)
	require.NoError(t, err)
	name := e.Generator().QuoteName(e.IndexName(table, d))
	assert.Contains(t, add, name)
	assert.Contains(t, drop, name)
}

func TestEmitterLogs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := New(sql.Dialect(dialect.Postgres, sql.WithLogger(logger)))
	_, err := e.AddIndexQuery(sql.Table("users"), index.Fields("email").Descriptor())
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "compiled statement")
	assert.Contains(t, out, `kind="add index"`)
	assert.True(t, strings.Contains(out, "dialect=postgres"), out)
}
