package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/querygen/dialect"
)

func TestQuoteIdentifierRoundTrip(t *testing.T) {
	t.Parallel()
	for _, name := range dialect.Names() {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			g := Dialect(name)
			assert.Equal(t, g.QuoteIdentifier("a")+"."+g.QuoteIdentifier("b"), g.QuoteIdentifier("a.b"))
			assert.Equal(t, "*", g.QuoteName("*"))
		})
	}
}

func TestQuoteName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dialect string
		name    string
		want    string
	}{
		{dialect: dialect.Postgres, name: "users", want: `"users"`},
		{dialect: dialect.Postgres, name: `us"ers`, want: `"users"`},
		{dialect: dialect.MySQL, name: "users", want: "`users`"},
		{dialect: dialect.MySQL, name: "us`ers", want: "`users`"},
		{dialect: dialect.MSSQL, name: "users", want: "[users]"},
		{dialect: dialect.MSSQL, name: "[us]ers", want: "[users]"},
		{dialect: dialect.SQLite, name: "users", want: "`users`"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.dialect+"/"+tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Dialect(tt.dialect).QuoteName(tt.name))
		})
	}
}

func TestQuoteTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect string
		table   TableRef
		want    string
	}{
		{name: "plain", dialect: dialect.Postgres, table: Table("users"), want: `"users"`},
		{name: "alias", dialect: dialect.Postgres, table: Table("users").As("u"), want: `"users" AS "u"`},
		{name: "schema", dialect: dialect.Postgres, table: Table("users").InSchema("app"), want: `"app"."users"`},
		{name: "schema_mssql", dialect: dialect.MSSQL, table: Table("users").InSchema("dbo"), want: "[dbo].[users]"},
		{name: "schema_sqlite", dialect: dialect.SQLite, table: Table("users").InSchema("app"), want: "`app.users`"},
		{
			name:    "schema_sqlite_delimiter",
			dialect: dialect.SQLite,
			table:   TableRef{Name: "users", Schema: "app", Delimiter: "_"},
			want:    "`app_users`",
		},
		{
			name:    "schema_alias",
			dialect: dialect.MySQL,
			table:   Table("users").InSchema("app").As("u"),
			want:    "`app`.`users` AS `u`",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Dialect(tt.dialect).QuoteTable(tt.table))
		})
	}
}

func TestQuotePath(t *testing.T) {
	t.Parallel()
	g := Dialect(dialect.Postgres)
	assert.Equal(t, `"id"`, g.quotePath("id"))
	assert.Equal(t, `"posts"."id"`, g.quotePath("posts.id"))
	assert.Equal(t, `"posts->comments"."id"`, g.quotePath("posts.comments.id"))
}
