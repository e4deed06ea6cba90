package sql

import (
	"time"

	"github.com/google/uuid"
)

// Field is a typed column reference that builds condition maps, so that
// comparisons are checked by the compiler instead of at query build time.
//
//	var Age = sql.IntField("age")
//	g.WhereQuery(sql.And(Age.GTE(18), Age.LT(65)), nil)
//	// WHERE ("age" >= 18 AND "age" < 65)
type Field[T any] string

type (
	IntField     = Field[int]
	Int64Field   = Field[int64]
	Float64Field = Field[float64]
	BoolField    = Field[bool]
	TimeField    = Field[time.Time]
	UUIDField    = Field[uuid.UUID]
)

// Name returns the attribute name.
func (f Field[T]) Name() string { return string(f) }

func (f Field[T]) op(op Op, v any) Map {
	return Map{{Key: string(f), Value: Map{{Key: string(op), Value: v}}}}
}

// EQ matches rows whose value equals v.
func (f Field[T]) EQ(v T) Map { return f.op(OpEq, v) }

// NEQ matches rows whose value differs from v.
func (f Field[T]) NEQ(v T) Map { return f.op(OpNe, v) }

// GT matches rows whose value is greater than v.
func (f Field[T]) GT(v T) Map { return f.op(OpGt, v) }

// GTE matches rows whose value is greater than or equal to v.
func (f Field[T]) GTE(v T) Map { return f.op(OpGte, v) }

// LT matches rows whose value is less than v.
func (f Field[T]) LT(v T) Map { return f.op(OpLt, v) }

// LTE matches rows whose value is less than or equal to v.
func (f Field[T]) LTE(v T) Map { return f.op(OpLte, v) }

// In matches rows whose value is one of vs. An empty list matches nothing.
func (f Field[T]) In(vs ...T) Map { return f.op(OpIn, anys(vs)) }

// NotIn matches rows whose value is none of vs.
func (f Field[T]) NotIn(vs ...T) Map { return f.op(OpNotIn, anys(vs)) }

// Between matches rows whose value lies in [lo, hi].
func (f Field[T]) Between(lo, hi T) Map { return f.op(OpBetween, []any{lo, hi}) }

// NotBetween matches rows whose value lies outside [lo, hi].
func (f Field[T]) NotBetween(lo, hi T) Map { return f.op(OpNotBetween, []any{lo, hi}) }

// IsNull matches rows where the column is NULL.
func (f Field[T]) IsNull() Map { return f.op(OpIs, nil) }

// NotNull matches rows where the column is not NULL.
func (f Field[T]) NotNull() Map { return f.op(OpNot, nil) }

// EQCol compares the column with another column.
func (f Field[T]) EQCol(col string) Map { return f.op(OpCol, col) }

// StringField is a string column with pattern matching predicates.
type StringField string

func (f StringField) field() Field[string] { return Field[string](f) }

// Name returns the attribute name.
func (f StringField) Name() string { return string(f) }

func (f StringField) EQ(v string) Map          { return f.field().EQ(v) }
func (f StringField) NEQ(v string) Map         { return f.field().NEQ(v) }
func (f StringField) GT(v string) Map          { return f.field().GT(v) }
func (f StringField) GTE(v string) Map         { return f.field().GTE(v) }
func (f StringField) LT(v string) Map          { return f.field().LT(v) }
func (f StringField) LTE(v string) Map         { return f.field().LTE(v) }
func (f StringField) In(vs ...string) Map      { return f.field().In(vs...) }
func (f StringField) NotIn(vs ...string) Map   { return f.field().NotIn(vs...) }
func (f StringField) IsNull() Map              { return f.field().IsNull() }
func (f StringField) NotNull() Map             { return f.field().NotNull() }
func (f StringField) Like(pattern string) Map  { return f.field().op(OpLike, pattern) }
func (f StringField) ILike(pattern string) Map { return f.field().op(OpILike, pattern) }

// NotLike matches rows not matching a LIKE pattern.
func (f StringField) NotLike(pattern string) Map { return f.field().op(OpNotLike, pattern) }

// HasPrefix matches values starting with s. Wildcards in s are not
// escaped.
func (f StringField) HasPrefix(s string) Map { return f.field().op(OpStartsWith, s) }

// HasSuffix matches values ending with s.
func (f StringField) HasSuffix(s string) Map { return f.field().op(OpEndsWith, s) }

// Contains matches values containing s.
func (f StringField) Contains(s string) Map { return f.field().op(OpSubstring, s) }

// Regexp matches values against a regular expression. Only MySQL and
// Postgres have a regular expression operator.
func (f StringField) Regexp(re string) Map { return f.field().op(OpRegexp, re) }

// JSONField is a JSON column queried by path.
type JSONField string

// Name returns the attribute name.
func (f JSONField) Name() string { return string(f) }

// Path compares the value at a dotted path with v.
//
//	sql.JSONField("meta").Path("address.city", "Paris")
//	// ("meta"#>>'{address,city}') = 'Paris' on Postgres
func (f JSONField) Path(path string, v any) JSONExpr {
	return JSON(string(f)+"."+path, v)
}

// Match compares a set of nested path conditions.
func (f JSONField) Match(conditions Map) JSONExpr {
	return JSONWhere(Map{{Key: string(f), Value: conditions}})
}

// And joins conditions with AND.
func And(conds ...any) Map { return Map{{Key: string(OpAnd), Value: conds}} }

// Or joins conditions with OR.
func Or(conds ...any) Map { return Map{{Key: string(OpOr), Value: conds}} }

// Not negates a conjunction of conditions.
func Not(conds ...any) Map { return Map{{Key: string(OpNot), Value: conds}} }

func anys[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
