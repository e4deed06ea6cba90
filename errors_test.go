package querygen_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/querygen"
)

func TestCompileError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := querygen.NewCompileError("order", "", "invalid direction %q", "SIDEWAYS")
		assert.Equal(t, `querygen: order: invalid direction "SIDEWAYS"`, err.Error())

		err = querygen.NewCompileError("where", "age", "between requires exactly two values")
		assert.Equal(t, `querygen: where: "age": between requires exactly two values`, err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := querygen.NewCompileError("index", "", "no fields")
		assert.True(t, errors.Is(err, querygen.ErrMalformed))
		assert.False(t, errors.Is(err, querygen.ErrUnsupported))
	})

	t.Run("IsCompileError", func(t *testing.T) {
		err := fmt.Errorf("wrapper: %w", querygen.NewCompileError("group", "", "empty"))
		assert.True(t, querygen.IsCompileError(err))
		assert.False(t, querygen.IsCompileError(errors.New("other error")))
		assert.False(t, querygen.IsCompileError(nil))
	})
}

func TestDeprecationError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := querygen.NewDeprecationError("the raw operator", "sql.Lit")
		assert.Equal(t, "querygen: the raw operator is no longer supported, use sql.Lit instead", err.Error())

		err = querygen.NewDeprecationError("literal replacements in conditions", "")
		assert.Equal(t, "querygen: literal replacements in conditions is no longer supported", err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := fmt.Errorf("wrapper: %w", querygen.NewDeprecationError("x", "y"))
		assert.True(t, errors.Is(err, querygen.ErrNoLongerSupported))
		assert.True(t, querygen.IsDeprecationError(err))
		assert.False(t, querygen.IsDeprecationError(nil))
	})
}

func TestCapabilityError(t *testing.T) {
	err := querygen.NewCapabilityError("DEFAULT constraint", "postgres", "mssql")
	assert.Equal(t, "querygen: DEFAULT constraint is supported only for mssql, not postgres", err.Error())
	assert.True(t, errors.Is(err, querygen.ErrUnsupported))
	assert.True(t, querygen.IsCapabilityError(fmt.Errorf("wrap: %w", err)))

	err = querygen.NewCapabilityError("RETURNING", "mysql")
	assert.Equal(t, "querygen: RETURNING is not supported by mysql", err.Error())
}

func TestConstraintError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := querygen.NewConstraintError("unique constraint violated", nil)
		assert.Equal(t, "querygen: constraint failed: unique constraint violated", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		original := errors.New("duplicate key")
		err := querygen.NewConstraintError("unique constraint", original)
		assert.True(t, errors.Is(err, original))
	})

	t.Run("IsConstraintError", func(t *testing.T) {
		err := querygen.NewConstraintError("test", nil)
		assert.True(t, querygen.IsConstraintError(err))
		assert.True(t, querygen.IsConstraintError(fmt.Errorf("wrapper: %w", err)))
		assert.False(t, querygen.IsConstraintError(errors.New("other error")))
		assert.False(t, querygen.IsConstraintError(nil))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		underlying := errors.New(`"abc" is not a valid integer`)
		err := querygen.NewValidationError("age", "INTEGER validator", underlying)
		assert.Equal(t, `querygen: INTEGER validator failed for field "age": "abc" is not a valid integer`, err.Error())

		err = querygen.NewValidationError("email", "", errors.New("invalid"))
		assert.Equal(t, `querygen: validator failed for field "email": invalid`, err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("too short")
		err := querygen.NewValidationError("name", "", underlying)
		assert.True(t, errors.Is(err, underlying))
	})

	t.Run("IsValidationError", func(t *testing.T) {
		err := querygen.NewValidationError("x", "", errors.New("y"))
		assert.True(t, querygen.IsValidationError(fmt.Errorf("wrap: %w", err)))
		assert.False(t, querygen.IsValidationError(errors.New("other")))
		assert.False(t, querygen.IsValidationError(nil))
	})
}

func TestAggregateError(t *testing.T) {
	t.Run("NoErrors", func(t *testing.T) {
		assert.NoError(t, querygen.NewAggregateError())
		assert.NoError(t, querygen.NewAggregateError(nil, nil))
	})

	t.Run("SingleError", func(t *testing.T) {
		e := errors.New("only")
		err := querygen.NewAggregateError(nil, e)
		assert.Equal(t, e, err)
	})

	t.Run("MultipleErrors", func(t *testing.T) {
		e1, e2 := errors.New("first"), errors.New("second")
		err := querygen.NewAggregateError(e1, nil, e2)
		require.Error(t, err)
		var agg *querygen.AggregateError
		require.True(t, errors.As(err, &agg))
		assert.Len(t, agg.Errors, 2)
		assert.Contains(t, err.Error(), "querygen: multiple errors:")
		assert.Contains(t, err.Error(), "[1] first")
		assert.Contains(t, err.Error(), "[2] second")
		assert.True(t, errors.Is(err, e2))
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, "querygen: no errors", (&querygen.AggregateError{}).Error())
	})
}
