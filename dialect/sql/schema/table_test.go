package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/dialect/sql"
)

func TestRenameTableQuery(t *testing.T) {
	t.Parallel()
	want := map[string]string{
		dialect.Postgres: `ALTER TABLE "users" RENAME TO "people";`,
		dialect.MySQL:    "RENAME TABLE `users` TO `people`;",
		dialect.MSSQL:    "EXEC sp_rename [users], [people];",
		dialect.SQLite:   "ALTER TABLE `users` RENAME TO `people`;",
	}
	for name, query := range want {
		got, err := emitter(name).RenameTableQuery(sql.Table("users"), sql.Table("people"))
		require.NoError(t, err)
		assert.Equal(t, query, got, name)
	}
	_, err := emitter(dialect.Postgres).RenameTableQuery(sql.Table("users"), sql.TableRef{})
	assert.True(t, errors.Is(err, querygen.ErrMalformed))
}

func TestDropTableQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dialect string
		opts    *DropTableOptions
		want    string
	}{
		{dialect: dialect.Postgres, want: `DROP TABLE IF EXISTS "users";`},
		{dialect: dialect.Postgres, opts: &DropTableOptions{Cascade: true}, want: `DROP TABLE IF EXISTS "users" CASCADE;`},
		{dialect: dialect.MySQL, want: "DROP TABLE IF EXISTS `users`;"},
		{dialect: dialect.SQLite, want: "DROP TABLE IF EXISTS `users`;"},
		{dialect: dialect.MSSQL, want: "IF OBJECT_ID(N'[users]', 'U') IS NOT NULL DROP TABLE [users];"},
	}
	for _, tt := range tests {
		got, err := emitter(tt.dialect).DropTableQuery(sql.Table("users"), tt.opts)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := emitter(dialect.MySQL).DropTableQuery(sql.Table("users"), &DropTableOptions{Cascade: true})
	assert.True(t, errors.Is(err, querygen.ErrUnsupported))
	_, err = emitter(dialect.MySQL).DropTableQuery(sql.TableRef{}, nil)
	assert.True(t, errors.Is(err, querygen.ErrMalformed))
}

func TestDescribeTableQuery(t *testing.T) {
	t.Parallel()

	got, err := emitter(dialect.MySQL).DescribeTableQuery(sql.Table("users").InSchema("app"))
	require.NoError(t, err)
	assert.Equal(t, "SHOW FULL COLUMNS FROM `app`.`users`;", got)

	got, err = emitter(dialect.SQLite).DescribeTableQuery(sql.Table("users"))
	require.NoError(t, err)
	assert.Equal(t, "PRAGMA TABLE_INFO(`users`);", got)

	got, err = emitter(dialect.Postgres).DescribeTableQuery(sql.Table("users"))
	require.NoError(t, err)
	assert.Contains(t, got, `FROM information_schema.columns c`)
	assert.Contains(t, got, `WHERE c.table_name = 'users' AND c.table_schema = 'public';`)

	got, err = emitter(dialect.Postgres).DescribeTableQuery(sql.Table("it's").InSchema("app"))
	require.NoError(t, err)
	assert.Contains(t, got, `WHERE c.table_name = 'it''s' AND c.table_schema = 'app';`)

	got, err = emitter(dialect.MSSQL).DescribeTableQuery(sql.Table("users"))
	require.NoError(t, err)
	assert.Contains(t, got, "FROM INFORMATION_SCHEMA.COLUMNS c")
	assert.Contains(t, got, "WHERE c.TABLE_NAME = N'users' AND c.TABLE_SCHEMA = N'dbo';")

	_, err = emitter(dialect.Postgres).DescribeTableQuery(sql.TableRef{})
	assert.True(t, errors.Is(err, querygen.ErrMalformed))
}

func TestShowIndexesQuery(t *testing.T) {
	t.Parallel()
	want := map[string]string{
		dialect.MySQL:  "SHOW INDEX FROM `users`;",
		dialect.SQLite: "PRAGMA INDEX_LIST(`users`);",
		dialect.MSSQL:  "EXEC sys.sp_helpindex @objname = N'[users]';",
	}
	for name, query := range want {
		got, err := emitter(name).ShowIndexesQuery(sql.Table("users"))
		require.NoError(t, err)
		assert.Equal(t, query, got, name)
	}

	got, err := emitter(dialect.Postgres).ShowIndexesQuery(sql.Table("users"))
	require.NoError(t, err)
	assert.Contains(t, got, "AND t.relname = 'users' AND s.oid = t.relnamespace AND s.nspname = 'public' GROUP BY")
	assert.Contains(t, got, "ORDER BY i.relname;")

	_, err = emitter(dialect.MySQL).ShowIndexesQuery(sql.TableRef{})
	assert.True(t, errors.Is(err, querygen.ErrMalformed))
}
