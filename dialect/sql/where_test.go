package sql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
)

func TestWhereQuery(t *testing.T) {
	t.Parallel()
	fx := newFixtures()

	tests := []struct {
		name    string
		dialect string
		where   any
		opts    *WhereOptions
		want    string
	}{
		{name: "nil", where: nil, want: ""},
		{name: "empty_map", where: M(), want: ""},
		{name: "empty_list", where: []any{}, want: ""},
		{name: "equality", where: M("id", 5), want: `WHERE "id" = 5`},
		{name: "prefix", where: M("id", 5), opts: &WhereOptions{Prefix: "users"}, want: `WHERE "users"."id" = 5`},
		{
			name:  "and_or_precedence",
			where: M("status", "A", "or", []any{M("qty", M("lt", 30)), M("item", M("regexp", "^p"))}),
			want:  `WHERE "status" = 'A' AND ("qty" < 30 OR "item" ~ '^p')`,
		},
		{
			name:    "regexp_mysql",
			dialect: dialect.MySQL,
			where:   M("item", M("regexp", "^p")),
			want:    "WHERE `item` REGEXP '^p'",
		},
		{
			name:  "complex_members_parenthesized",
			where: M("or", []any{M("a", 1, "b", 2), M("c", 3)}),
			want:  `WHERE (("a" = 1 AND "b" = 2) OR "c" = 3)`,
		},
		{
			name:  "attribute_renamed_to_column",
			where: M("firstName", "Ada"),
			opts:  &WhereOptions{Model: fx.users},
			want:  `WHERE "first_name" = 'Ada'`,
		},
		{name: "literal", where: Lit("1 = 1"), want: "WHERE 1 = 1"},
		{
			name:  "list_of_maps_is_and",
			where: []any{M("a", 1), M("b", 2)},
			want:  `WHERE ("a" = 1 AND "b" = 2)`,
		},
		{
			name:  "typed_fields",
			where: And(IntField("age").GTE(18), IntField("age").LT(65)),
			want:  `WHERE ("age" >= 18 AND "age" < 65)`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			name := tt.dialect
			if name == "" {
				name = dialect.Postgres
			}
			got, err := Dialect(name).WhereQuery(tt.where, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWhereItemQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value any
		want  string
	}{
		{name: "null", key: "x", value: nil, want: `"x" IS NULL`},
		{name: "ne_null", key: "x", value: M("ne", nil), want: `"x" IS NOT NULL`},
		{name: "in", key: "status", value: M("in", []string{"A", "D"}), want: `"status" IN ('A','D')`},
		{name: "in_empty", key: "x", value: M("in", []any{}), want: `"x" IN (NULL)`},
		{name: "not_in_empty", key: "x", value: M("notIn", []any{}), want: ""},
		{name: "list_is_in", key: "id", value: []int{1, 2}, want: `"id" IN (1,2)`},
		{name: "not_list", key: "id", value: M("not", []any{1, 2}), want: `"id" NOT IN (1,2)`},
		{name: "not_value", key: "id", value: M("not", 3), want: `"id" != 3`},
		{name: "falsy_bool", key: "active", value: false, want: `"active" = false`},
		{name: "falsy_int", key: "count", value: 0, want: `"count" = 0`},
		{name: "between", key: "age", value: M("between", []any{1, 10}), want: `"age" BETWEEN 1 AND 10`},
		{name: "starts_with", key: "name", value: M("startsWith", "ab"), want: `"name" LIKE 'ab%'`},
		{name: "ends_with", key: "name", value: M("endsWith", "ab"), want: `"name" LIKE '%ab'`},
		{name: "substring", key: "name", value: M("substring", "ab"), want: `"name" LIKE '%ab%'`},
		{name: "multiple_operators", key: "age", value: M("gt", 1, "lt", 5), want: `("age" > 1 AND "age" < 5)`},
		{name: "or_values", key: "rank", value: M("or", []any{1, 2}), want: `("rank" = 1 OR "rank" = 2)`},
		{name: "col", key: "a", value: M("col", "b"), want: `"a" = "b"`},
		{name: "col_nested_include", key: "a", value: M("col", "posts.comments.id"), want: `"a" = "posts->comments"."id"`},
		{name: "dotted_key", key: "posts.title", value: "x", want: `"posts"."title" = 'x'`},
		{name: "assoc_key", key: "$posts.title$", value: "x", want: `"posts"."title" = 'x'`},
		{name: "quote_escaped", key: "name", value: "it's", want: `"name" = 'it''s'`},
		{name: "any_array", key: "id", value: M("any", []any{1, 2}), want: `"id" = ANY (ARRAY[1,2])`},
		{name: "placeholder", key: "placeholder", value: true, want: `"$PLACEHOLDER$" = true`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Dialect(dialect.Postgres).WhereItemQuery(tt.key, tt.value, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWhereItemsQuerySentinels(t *testing.T) {
	t.Parallel()
	g := Dialect(dialect.Postgres)
	for _, op := range []string{"or", "not"} {
		got, err := g.WhereItemsQuery(M(op, []any{}), nil, "")
		require.NoError(t, err)
		assert.Equal(t, "0 = 1", got, op)
	}
	got, err := g.WhereItemsQuery(M("and", []any{}), nil, "")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = g.WhereItemsQuery(M("a", 1, "b", 2), nil, "or")
	require.NoError(t, err)
	assert.Equal(t, `"a" = 1 OR "b" = 2`, got)
}

func TestWhereErrors(t *testing.T) {
	t.Parallel()
	fx := newFixtures()

	tests := []struct {
		name    string
		dialect string
		where   any
		opts    *WhereOptions
		target  error
	}{
		{name: "raw_string", where: "id = 1", target: querygen.ErrNoLongerSupported},
		{name: "raw_operator", where: M("id", M("raw", "1")), target: querygen.ErrNoLongerSupported},
		{name: "ilike_mysql", dialect: dialect.MySQL, where: M("name", M("iLike", "a%")), target: querygen.ErrMalformed},
		{name: "regexp_sqlite", dialect: dialect.SQLite, where: M("name", M("regexp", "a")), target: querygen.ErrMalformed},
		{name: "in_scalar", where: M("id", M("in", 5)), target: querygen.ErrMalformed},
		{name: "between_arity", where: M("id", M("between", []any{1})), target: querygen.ErrMalformed},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			name := tt.dialect
			if name == "" {
				name = dialect.Postgres
			}
			_, err := Dialect(name).WhereQuery(tt.where, tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}

	t.Run("type_validation", func(t *testing.T) {
		t.Parallel()
		_, err := Dialect(dialect.Postgres).WhereQuery(M("id", "abc"), &WhereOptions{Model: fx.users})
		require.Error(t, err)
		assert.True(t, querygen.IsValidationError(err))

		got, err := Dialect(dialect.Postgres, WithTypeValidation(false)).WhereQuery(M("id", "abc"), &WhereOptions{Model: fx.users})
		require.NoError(t, err)
		assert.Equal(t, `WHERE "id" = 'abc'`, got)
	})
}

func TestWhereConditions(t *testing.T) {
	t.Parallel()
	fx := newFixtures()
	g := Dialect(dialect.Postgres)

	got, err := g.WhereConditions(7, "", fx.users)
	require.NoError(t, err)
	assert.Equal(t, `"id" = 7`, got)

	got, err = g.WhereConditions(M("email", "a@b.c"), "User", fx.users)
	require.NoError(t, err)
	assert.Equal(t, `"User"."email" = 'a@b.c'`, got)

	got, err = g.WhereConditions([]any{}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "1=1", got)

	got, err = g.WhereConditions(Where(Fn("lower", Col("email")), "eq", "a@b.c"), "", nil)
	require.NoError(t, err)
	assert.Equal(t, `lower("email") = 'a@b.c'`, got)
}
