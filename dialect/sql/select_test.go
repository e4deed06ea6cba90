package sql

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/schema"
)

func TestSelectQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect string
		table   TableRef
		opts    func(fixtures) *SelectOptions
		model   func(fixtures) *schema.Model
		want    string
	}{
		{
			name:  "where_primary_key",
			table: Table("users"),
			opts:  func(fixtures) *SelectOptions { return &SelectOptions{Where: M("id", 5)} },
			model: func(fx fixtures) *schema.Model { return fx.users },
			want:  `SELECT * FROM "users" WHERE "users"."id" = 5;`,
		},
		{
			name:  "no_options",
			table: Table("users"),
			want:  `SELECT * FROM "users";`,
		},
		{
			name:  "model_table",
			model: func(fx fixtures) *schema.Model { return fx.posts },
			want:  `SELECT * FROM "posts";`,
		},
		{
			name:  "attributes",
			table: Table("users"),
			opts: func(fixtures) *SelectOptions {
				return &SelectOptions{Attributes: []any{"firstName", "email", As(Fn("count", Col("id")), "n")}}
			},
			model: func(fx fixtures) *schema.Model { return fx.users },
			want:  `SELECT "first_name" AS "firstName", "email", count("id") AS "n" FROM "users";`,
		},
		{
			name:  "order",
			table: Table("users"),
			opts: func(fixtures) *SelectOptions {
				return &SelectOptions{Order: []Order{Desc("firstName"), Asc("id")}}
			},
			model: func(fx fixtures) *schema.Model { return fx.users },
			want:  `SELECT * FROM "users" ORDER BY "users"."first_name" DESC, "users"."id" ASC;`,
		},
		{
			name:  "group_having",
			table: Table("users"),
			opts: func(fixtures) *SelectOptions {
				return &SelectOptions{
					Attributes: []any{"age", As(Fn("count", Col("*")), "n")},
					Group:      []any{"age"},
					Having:     M("age", M("gt", 18)),
				}
			},
			model: func(fx fixtures) *schema.Model { return fx.users },
			want:  `SELECT "age", count(*) AS "n" FROM "users" GROUP BY "age" HAVING "age" > 18;`,
		},
		{
			name:  "limit_offset_postgres",
			table: Table("users"),
			opts:  func(fixtures) *SelectOptions { return &SelectOptions{Limit: 10, Offset: 5} },
			want:  `SELECT * FROM "users" LIMIT 10 OFFSET 5;`,
		},
		{
			name:    "limit_offset_mysql",
			dialect: dialect.MySQL,
			table:   Table("users"),
			opts:    func(fixtures) *SelectOptions { return &SelectOptions{Limit: 10, Offset: 5} },
			want:    "SELECT * FROM `users` LIMIT 5, 10;",
		},
		{
			name:    "offset_only_mysql",
			dialect: dialect.MySQL,
			table:   Table("users"),
			opts:    func(fixtures) *SelectOptions { return &SelectOptions{Offset: 5} },
			want:    "SELECT * FROM `users` LIMIT 5, 10000000000000;",
		},
		{
			name:    "limit_sqlite",
			dialect: dialect.SQLite,
			table:   Table("users"),
			opts:    func(fixtures) *SelectOptions { return &SelectOptions{Limit: 10} },
			want:    "SELECT * FROM `users` LIMIT 10;",
		},
		{
			name:    "limit_mssql_unordered",
			dialect: dialect.MSSQL,
			table:   Table("users"),
			opts:    func(fixtures) *SelectOptions { return &SelectOptions{Limit: 10, Offset: 5} },
			want:    "SELECT * FROM [users] ORDER BY (SELECT NULL) OFFSET 5 ROWS FETCH NEXT 10 ROWS ONLY;",
		},
		{
			name:    "limit_mssql_model",
			dialect: dialect.MSSQL,
			table:   Table("users"),
			opts:    func(fixtures) *SelectOptions { return &SelectOptions{Limit: 10} },
			model:   func(fx fixtures) *schema.Model { return fx.users },
			want:    "SELECT * FROM [users] ORDER BY [users].[id] OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY;",
		},
		{
			name:    "limit_mssql_ordered",
			dialect: dialect.MSSQL,
			table:   Table("users"),
			opts: func(fixtures) *SelectOptions {
				return &SelectOptions{Limit: 10, Order: []Order{Desc("age")}}
			},
			model: func(fx fixtures) *schema.Model { return fx.users },
			want:  "SELECT * FROM [users] ORDER BY [users].[age] DESC OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY;",
		},
		{
			name:  "lock_update",
			table: Table("users"),
			opts:  func(fixtures) *SelectOptions { return &SelectOptions{Lock: &Lock{Level: LockUpdate}} },
			want:  `SELECT * FROM "users" FOR UPDATE;`,
		},
		{
			name:  "lock_share_skip_locked",
			table: Table("users"),
			opts: func(fixtures) *SelectOptions {
				return &SelectOptions{Lock: &Lock{Level: LockShare, SkipLocked: true}}
			},
			want: `SELECT * FROM "users" FOR SHARE SKIP LOCKED;`,
		},
		{
			name:  "lock_key_share",
			table: Table("users"),
			opts:  func(fixtures) *SelectOptions { return &SelectOptions{Lock: &Lock{Level: LockKeyShare}} },
			want:  `SELECT * FROM "users" FOR KEY SHARE;`,
		},
		{
			name:  "lock_of",
			table: Table("users"),
			opts: func(fx fixtures) *SelectOptions {
				return &SelectOptions{Lock: &Lock{Level: LockUpdate, Of: fx.users}}
			},
			model: func(fx fixtures) *schema.Model { return fx.users },
			want:  `SELECT * FROM "users" FOR UPDATE OF "users";`,
		},
		{
			name:    "lock_share_mysql",
			dialect: dialect.MySQL,
			table:   Table("users"),
			opts: func(fixtures) *SelectOptions {
				return &SelectOptions{Lock: &Lock{Level: LockShare, SkipLocked: true}}
			},
			want: "SELECT * FROM `users` LOCK IN SHARE MODE;",
		},
		{
			name:    "lock_ignored_sqlite",
			dialect: dialect.SQLite,
			table:   Table("users"),
			opts:    func(fixtures) *SelectOptions { return &SelectOptions{Lock: &Lock{Level: LockUpdate}} },
			want:    "SELECT * FROM `users`;",
		},
		{
			name:    "index_hints_mysql",
			dialect: dialect.MySQL,
			table:   Table("users"),
			opts: func(fixtures) *SelectOptions {
				return &SelectOptions{IndexHints: []IndexHint{{Type: UseIndex, Values: []string{"idx_a"}}, {Type: IgnoreIndex, Values: []string{"idx_b"}}}}
			},
			want: "SELECT * FROM `users` USE INDEX (`idx_a`) IGNORE INDEX (`idx_b`);",
		},
		{
			name:  "index_hints_ignored_postgres",
			table: Table("users"),
			opts: func(fixtures) *SelectOptions {
				return &SelectOptions{IndexHints: []IndexHint{{Type: ForceIndex, Values: []string{"idx_a"}}}}
			},
			want: `SELECT * FROM "users";`,
		},
		{
			name:    "table_hint_mssql",
			dialect: dialect.MSSQL,
			table:   Table("users"),
			opts:    func(fixtures) *SelectOptions { return &SelectOptions{TableHint: "nolock"} },
			want:    "SELECT * FROM [users] WITH (NOLOCK);",
		},
		{
			name:  "table_alias",
			table: Table("users").As("u"),
			opts:  func(fixtures) *SelectOptions { return &SelectOptions{Where: M("id", 1)} },
			want:  `SELECT * FROM "users" AS "u" WHERE "u"."id" = 1;`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fx := newFixtures()
			name := tt.dialect
			if name == "" {
				name = dialect.Postgres
			}
			var (
				opts  *SelectOptions
				model *schema.Model
			)
			if tt.opts != nil {
				opts = tt.opts(fx)
			}
			if tt.model != nil {
				model = tt.model(fx)
			}
			got, err := Dialect(name).SelectQuery(tt.table, opts, model)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectQueryIncludes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		model func(fixtures) *schema.Model
		opts  *SelectOptions
		want  string
	}{
		{
			name:  "has_many",
			model: func(fx fixtures) *schema.Model { return fx.posts },
			opts:  &SelectOptions{Include: []*Include{{As: "comments"}}},
			want: `SELECT "Post".*, "comments"."id" AS "comments.id", "comments"."post_id" AS "comments.postId", ` +
				`"comments"."body" AS "comments.body" FROM "posts" AS "Post" ` +
				`LEFT OUTER JOIN "comments" AS "comments" ON "Post"."id" = "comments"."post_id";`,
		},
		{
			name:  "belongs_to_required",
			model: func(fx fixtures) *schema.Model { return fx.posts },
			opts: &SelectOptions{Include: []*Include{{
				As:         "author",
				Required:   true,
				Attributes: []any{"email"},
				Where:      M("active", true),
			}}},
			want: `SELECT "Post".*, "author"."email" AS "author.email" FROM "posts" AS "Post" ` +
				`INNER JOIN "users" AS "author" ON "Post"."user_id" = "author"."id" AND "author"."active" = true;`,
		},
		{
			name:  "nested_without_attributes",
			model: func(fx fixtures) *schema.Model { return fx.users },
			opts: &SelectOptions{
				IgnoreIncludeAttributes: true,
				Include:                 []*Include{{As: "posts", Include: []*Include{{As: "comments"}}}},
			},
			want: `SELECT "User".* FROM "users" AS "User" ` +
				`LEFT OUTER JOIN "posts" AS "posts" ON "User"."id" = "posts"."user_id" ` +
				`LEFT OUTER JOIN "comments" AS "posts->comments" ON "posts"."id" = "posts->comments"."post_id";`,
		},
		{
			name:  "belongs_to_many",
			model: func(fx fixtures) *schema.Model { return fx.users },
			opts:  &SelectOptions{Include: []*Include{{As: "groups"}}},
			want: `SELECT "User".*, "groups"."id" AS "groups.id", "groups"."name" AS "groups.name", ` +
				`"groups->Membership"."user_id" AS "groups.Membership.userId", ` +
				`"groups->Membership"."group_id" AS "groups.Membership.groupId" FROM "users" AS "User" ` +
				`LEFT OUTER JOIN ( "memberships" AS "groups->Membership" INNER JOIN "groups" AS "groups" ` +
				`ON "groups"."id" = "groups->Membership"."group_id") ON "User"."id" = "groups->Membership"."user_id";`,
		},
		{
			name:  "limit_with_fan_out",
			model: func(fx fixtures) *schema.Model { return fx.users },
			opts:  &SelectOptions{Limit: 10, Include: []*Include{{As: "posts"}}},
			want: `SELECT "User".*, "posts"."id" AS "posts.id", "posts"."user_id" AS "posts.userId", ` +
				`"posts"."title" AS "posts.title" FROM (SELECT "User".* FROM "users" AS "User" LIMIT 10) AS "User" ` +
				`LEFT OUTER JOIN "posts" AS "posts" ON "User"."id" = "posts"."user_id";`,
		},
		{
			name:  "limit_with_required_fan_out",
			model: func(fx fixtures) *schema.Model { return fx.users },
			opts:  &SelectOptions{Limit: 5, Include: []*Include{{As: "posts", Required: true}}},
			want: `SELECT "User".*, "posts"."id" AS "posts.id", "posts"."user_id" AS "posts.userId", ` +
				`"posts"."title" AS "posts.title" FROM (SELECT "User".* FROM "users" AS "User" ` +
				`WHERE ( SELECT "user_id" FROM "posts" AS "posts" WHERE "posts"."user_id" = "User"."id" LIMIT 1 ) IS NOT NULL ` +
				`LIMIT 5) AS "User" INNER JOIN "posts" AS "posts" ON "User"."id" = "posts"."user_id";`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fx := newFixtures()
			got, err := Dialect(dialect.Postgres).SelectQuery(TableRef{}, tt.opts, tt.model(fx))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectQueryGroupedLimit(t *testing.T) {
	t.Parallel()
	fx := newFixtures()
	got, err := Dialect(dialect.Postgres).SelectQuery(Table("posts"), &SelectOptions{
		GroupedLimit: &GroupedLimit{On: "userId", Values: []any{1, 2}, Limit: 2},
	}, fx.posts)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "posts".* FROM (`+
		`SELECT * FROM (SELECT * FROM "posts" WHERE "posts"."user_id" = 1 LIMIT 2) AS sub UNION ALL `+
		`SELECT * FROM (SELECT * FROM "posts" WHERE "posts"."user_id" = 2 LIMIT 2) AS sub) AS "posts";`, got)
	assert.NotContains(t, got, "PLACEHOLDER")
	assert.Equal(t, 2, strings.Count(got, "SELECT * FROM (SELECT"))
}

func TestSelectQueryErrors(t *testing.T) {
	t.Parallel()
	fx := newFixtures()
	g := Dialect(dialect.Postgres)

	tests := []struct {
		name   string
		g      *Generator
		table  TableRef
		opts   *SelectOptions
		model  *schema.Model
		target error
	}{
		{name: "missing_table", table: TableRef{}, target: querygen.ErrMalformed},
		{name: "empty_attributes", table: Table("users"), opts: &SelectOptions{Attributes: []any{}}, target: querygen.ErrMalformed},
		{
			name:   "raw_attribute",
			table:  Table("users"),
			opts:   &SelectOptions{Attributes: []any{"count(id)"}},
			target: querygen.ErrNoLongerSupported,
		},
		{
			name:   "unknown_association",
			table:  Table("users"),
			opts:   &SelectOptions{Include: []*Include{{As: "nope"}}},
			model:  fx.users,
			target: querygen.ErrMalformed,
		},
		{
			name:   "include_without_model",
			table:  Table("users"),
			opts:   &SelectOptions{Include: []*Include{{As: "posts"}}},
			target: querygen.ErrMalformed,
		},
		{
			name:   "order_direction",
			table:  Table("users"),
			opts:   &SelectOptions{Order: []Order{{Column: "id", Direction: "SIDEWAYS"}}},
			target: querygen.ErrMalformed,
		},
		{
			name:   "table_hint",
			g:      Dialect(dialect.MSSQL),
			table:  Table("users"),
			opts:   &SelectOptions{TableHint: "FASTPLEASE"},
			target: querygen.ErrMalformed,
		},
		{
			name:   "grouped_limit_values",
			table:  Table("posts"),
			opts:   &SelectOptions{GroupedLimit: &GroupedLimit{On: "userId", Limit: 1}},
			model:  fx.posts,
			target: querygen.ErrMalformed,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gen := tt.g
			if gen == nil {
				gen = g
			}
			_, err := gen.SelectQuery(tt.table, tt.opts, tt.model)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}
