package sql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/querygen/dialect"
)

// TestSQLiteRoundTrip executes compiled statements against an in-memory
// SQLite database.
func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := newFixtures()

	drv, err := Open(dialect.SQLite, ":memory:")
	require.NoError(t, err)
	drv.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { drv.Close() })

	for _, ddl := range []string{
		"CREATE TABLE `users` (`id` INTEGER PRIMARY KEY AUTOINCREMENT, `first_name` TEXT, `email` TEXT UNIQUE, " +
			"`active` INTEGER, `age` INTEGER CHECK (`age` >= 0), `meta` TEXT)",
		"CREATE TABLE `posts` (`id` INTEGER PRIMARY KEY AUTOINCREMENT, `user_id` INTEGER REFERENCES `users` (`id`), `title` TEXT)",
	} {
		require.NoError(t, drv.Exec(ctx, ddl, []any{}, nil))
	}

	rows, err := drv.QueryCompiled(ctx, func(g *Generator) (string, error) {
		return g.InsertQuery(Table("users"), M("firstName", "Ada", "email", "ada@example.com", "active", true, "age", 36), fx.users,
			&InsertOptions{ReturnOptions: ReturnOptions{ReturnColumns: []string{"id"}}})
	})
	require.NoError(t, err)
	require.True(t, rows.Next())
	var id int
	require.NoError(t, rows.Scan(&id))
	require.NoError(t, rows.Close())
	assert.Equal(t, 1, id)

	_, err = drv.ExecCompiled(ctx, func(g *Generator) (string, error) {
		return g.BulkInsertQuery(Table("posts"), []any{
			M("userId", id, "title", "first"),
			M("userId", id, "title", "second"),
		}, nil, fx.posts)
	})
	require.NoError(t, err)

	t.Run("select_with_include", func(t *testing.T) {
		rows, err := drv.QueryCompiled(ctx, func(g *Generator) (string, error) {
			return g.SelectQuery(TableRef{}, &SelectOptions{
				Attributes: []any{"id", "firstName"},
				Where:      M("active", true),
				Include:    []*Include{{As: "posts", Attributes: []any{"title"}}},
				Order:      []Order{{Path: []string{"posts"}, Column: "id"}},
			}, fx.users)
		})
		require.NoError(t, err)
		defer rows.Close()
		var titles []string
		for rows.Next() {
			var (
				uid         int
				first, post string
			)
			require.NoError(t, rows.Scan(&uid, &first, &post))
			assert.Equal(t, "Ada", first)
			titles = append(titles, post)
		}
		require.NoError(t, rows.Err())
		assert.Equal(t, []string{"first", "second"}, titles)
	})

	t.Run("unique_violation", func(t *testing.T) {
		_, err := drv.ExecCompiled(ctx, func(g *Generator) (string, error) {
			return g.InsertQuery(Table("users"), M("email", "ada@example.com"), fx.users, nil)
		})
		require.Error(t, err)
		assert.True(t, IsUniqueConstraintError(err), "got %v", err)
	})

	t.Run("check_violation", func(t *testing.T) {
		_, err := drv.ExecCompiled(ctx, func(g *Generator) (string, error) {
			return g.InsertQuery(Table("users"), M("email", "neg@example.com", "age", -1), fx.users, nil)
		})
		require.Error(t, err)
		assert.True(t, IsCheckConstraintError(err), "got %v", err)
	})

	t.Run("ignore_duplicates", func(t *testing.T) {
		res, err := drv.ExecCompiled(ctx, func(g *Generator) (string, error) {
			return g.InsertQuery(Table("users"), M("email", "ada@example.com"), fx.users, &InsertOptions{IgnoreDuplicates: true})
		})
		require.NoError(t, err)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("upsert", func(t *testing.T) {
		_, err := drv.ExecCompiled(ctx, func(g *Generator) (string, error) {
			return g.InsertQuery(Table("users"), M("email", "ada@example.com", "firstName", "Augusta"), fx.users,
				&InsertOptions{UpdateOnDuplicate: []string{"firstName"}, UpsertKeys: []string{"email"}})
		})
		require.NoError(t, err)
		assert.Equal(t, "Augusta", queryString(t, drv, "SELECT `first_name` FROM `users` WHERE `id` = 1"))
	})

	t.Run("arithmetic", func(t *testing.T) {
		rows, err := drv.QueryCompiled(ctx, func(g *Generator) (string, error) {
			return g.ArithmeticQuery("+", Table("users"), M("id", id), M("age", 2), nil,
				&UpdateOptions{ReturnOptions: ReturnOptions{ReturnColumns: []string{"age"}}})
		})
		require.NoError(t, err)
		defer rows.Close()
		require.True(t, rows.Next())
		var age int
		require.NoError(t, rows.Scan(&age))
		assert.Equal(t, 38, age)
	})

	t.Run("delete_with_limit", func(t *testing.T) {
		res, err := drv.ExecCompiled(ctx, func(g *Generator) (string, error) {
			return g.DeleteQuery(Table("posts"), M("userId", id), &DeleteOptions{Limit: 1}, fx.posts)
		})
		require.NoError(t, err)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
		assert.Equal(t, "1", queryString(t, drv, "SELECT COUNT(*) FROM `posts`"))
	})

	t.Run("truncate", func(t *testing.T) {
		_, err := drv.ExecCompiled(ctx, func(g *Generator) (string, error) {
			return g.TruncateQuery(Table("posts"), nil)
		})
		require.NoError(t, err)
		assert.Equal(t, "0", queryString(t, drv, "SELECT COUNT(*) FROM `posts`"))
	})
}

func queryString(t *testing.T, drv *Driver, query string) string {
	t.Helper()
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), query, []any{}, rows))
	defer rows.Close()
	require.True(t, rows.Next())
	var s string
	require.NoError(t, rows.Scan(&s))
	return s
}
