package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/dialect/sql"
	"github.com/syssam/querygen/querylanguage"
)

func TestExplainPrefix(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
	}{
		{dialect.Postgres, "EXPLAIN "},
		{dialect.MySQL, "EXPLAIN "},
		{dialect.SQLite, "EXPLAIN QUERY PLAN "},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			got, err := ExplainPrefix(tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ExplainPrefix(dialect.MSSQL)
	assert.ErrorIs(t, err, querygen.ErrUnsupported)
	assert.True(t, querygen.IsCapabilityError(err))
}

func TestValidateDSN(t *testing.T) {
	assert.NoError(t, ValidateDSN(dialect.MySQL, "user:pass@tcp(localhost:3306)/app"))
	assert.Error(t, ValidateDSN(dialect.MySQL, "user:pass@tcp(localhost:3306"))
	assert.NoError(t, ValidateDSN(dialect.Postgres, "postgres://user@localhost:5432/app?sslmode=disable"))
	assert.NoError(t, ValidateDSN(dialect.Postgres, "host=localhost dbname=app"))
	assert.NoError(t, ValidateDSN(dialect.SQLite, "file::memory:"))
	assert.EqualError(t, ValidateDSN(dialect.SQLite, ""), "no dsn given")
}

func TestExplain(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	drv := sql.NewStatsDriver(sql.OpenDB(dialect.Postgres, db))

	stmts := []querylanguage.Statement{
		{Name: "find", Op: querygen.OpSelect, SQL: `SELECT * FROM "users" WHERE "users"."id" = 5;`},
		{Name: "begin", Op: querygen.OpTx, SQL: "START TRANSACTION;"},
		{Name: "purge", Op: querygen.OpDelete, SQL: `DELETE FROM "users" WHERE "id" = 5;`},
	}
	mock.ExpectQuery(`EXPLAIN SELECT * FROM "users" WHERE "users"."id" = 5`).
		WillReturnRows(sqlmock.NewRows([]string{"QUERY PLAN"}).AddRow("Index Scan using users_pkey on users"))
	mock.ExpectQuery(`EXPLAIN DELETE FROM "users" WHERE "id" = 5`).
		WillReturnRows(sqlmock.NewRows([]string{"QUERY PLAN"}).AddRow("Delete on users").AddRow(nil))

	plans, err := Explain(context.Background(), drv, dialect.Postgres, stmts)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, plans, 2)
	assert.Equal(t, "find", plans[0].Statement.Name)
	assert.Equal(t, []string{"QUERY PLAN"}, plans[0].Columns)
	assert.Equal(t, [][]string{{"Index Scan using users_pkey on users"}}, plans[0].Rows)
	assert.Equal(t, [][]string{{"Delete on users"}, {"NULL"}}, plans[1].Rows)
	assert.Equal(t, int64(2), drv.QueryStats().Stats().TotalQueries)

	var buf bytes.Buffer
	require.NoError(t, WritePlans(&buf, plans))
	assert.Contains(t, buf.String(), "-- find\n")
	assert.Contains(t, buf.String(), "Index Scan using users_pkey on users")
}

func TestExplain_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	drv := sql.OpenDB(dialect.SQLite, db)

	mock.ExpectQuery("EXPLAIN QUERY PLAN SELECT * FROM `missing`").WillReturnError(assert.AnError)
	_, err = Explain(context.Background(), drv, dialect.SQLite, []querylanguage.Statement{
		{Name: "broken", Op: querygen.OpSelect, SQL: "SELECT * FROM `missing`;"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "explain broken")
}

func TestOpenExplainDriver_SQLite(t *testing.T) {
	drv, err := OpenExplainDriver(dialect.SQLite, "file::memory:?cache=shared", 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { drv.Close() })

	ctx := context.Background()
	require.NoError(t, drv.Exec(ctx, "CREATE TABLE IF NOT EXISTS `users` (`id` INTEGER PRIMARY KEY, `email` TEXT)", []any{}, nil))

	plans, err := Explain(ctx, drv, dialect.SQLite, []querylanguage.Statement{
		{Op: querygen.OpSelect, SQL: "SELECT * FROM `users` WHERE `users`.`id` = 5;"},
	})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.NotEmpty(t, plans[0].Rows)
	assert.Contains(t, plans[0].Columns, "detail")
}
