package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/dialect/sql"
	"github.com/syssam/querygen/schema/index"
)

func TestValidateIndex(t *testing.T) {
	t.Parallel()
	e := emitter(dialect.Postgres)

	r := e.ValidateIndex(sql.Table("users"), index.Fields("email").Descriptor())
	assert.False(t, r.HasErrors())
	assert.False(t, r.HasWarnings())
	assert.NoError(t, r.Err())
	assert.Equal(t, "No issues found", r.String())

	r = e.ValidateIndex(sql.TableRef{}, &index.Descriptor{Fields: []index.Field{{}, {Name: "a", Length: -1}}})
	require.True(t, r.HasErrors())
	assert.Len(t, r.Errors, 3)
	err := r.Err()
	var agg *querygen.AggregateError
	require.True(t, errors.As(err, &agg))
	assert.Len(t, agg.Errors, 3)
	assert.True(t, errors.Is(err, querygen.ErrMalformed))
	assert.True(t, strings.HasPrefix(r.String(), "Errors:\n  - index.table: missing table name\n"), r.String())
}

func TestValidateIndexLongName(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("a", 60)
	d := index.Fields(long).Descriptor()

	r := emitter(dialect.Postgres).ValidateIndex(sql.Table("users"), d)
	assert.False(t, r.HasErrors())
	require.True(t, r.HasWarnings())
	assert.Contains(t, r.Warnings[0].Error(), "exceeds 63 characters")
	assert.Contains(t, r.String(), "Warnings:\n")

	_, err := emitter(dialect.Postgres).AddIndexQuery(sql.Table("users"), d)
	assert.NoError(t, err)

	r = emitter(dialect.MSSQL).ValidateIndex(sql.Table("users"), d)
	assert.False(t, r.HasWarnings())
	r = emitter(dialect.SQLite).ValidateIndex(sql.Table("users"), d)
	assert.False(t, r.HasWarnings())
}

func TestValidateConstraint(t *testing.T) {
	t.Parallel()
	r := ValidateConstraint(sql.Table("posts"), &Constraint{
		Type:       ForeignKey,
		Fields:     []string{"userId"},
		References: &Reference{Table: sql.Table("users"), Field: "id"},
		OnDelete:   "set null",
	})
	assert.False(t, r.HasErrors())

	r = ValidateConstraint(sql.Table("posts"), &Constraint{
		Type:       ForeignKey,
		Fields:     []string{"userId"},
		References: &Reference{Table: sql.Table("users"), Field: "id"},
		OnDelete:   "drop",
		OnUpdate:   "bounce",
	})
	require.Len(t, r.Errors, 2)
	assert.Equal(t, "onDelete", r.Errors[0].Field)
	assert.Equal(t, "onUpdate", r.Errors[1].Field)
	assert.Equal(t, `constraint.onDelete: invalid referential action "drop"`, r.Errors[0].Error())
}

func TestConstraintName(t *testing.T) {
	t.Parallel()
	ref := &Reference{Table: sql.Table("users"), Field: "id"}
	assert.Equal(t, "posts_user_id_users_fk", ConstraintName(sql.Table("posts"), &Constraint{Type: ForeignKey, Fields: []string{"userId"}, References: ref}))
	assert.Equal(t, "app_users_email_uk", ConstraintName(sql.Table("users").InSchema("app"), &Constraint{Type: Unique, Fields: []string{"email"}}))
	assert.Equal(t, "custom", ConstraintName(sql.Table("users"), &Constraint{Type: Unique, Name: "custom"}))
}
