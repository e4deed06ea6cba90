package mixin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/querygen/schema"
	"github.com/syssam/querygen/schema/field"
	"github.com/syssam/querygen/schema/mixin"
)

// TestSchemaBaseMixin tests the base Schema mixin.
func TestSchemaBaseMixin(t *testing.T) {
	m := mixin.Schema{}

	t.Run("returns_nil_fields", func(t *testing.T) {
		assert.Nil(t, m.Fields())
	})

	t.Run("returns_nil_indexes", func(t *testing.T) {
		assert.Nil(t, m.Indexes())
	})
}

// TestMixinImplementsInterface tests that the mixins implement schema.Mixin.
func TestMixinImplementsInterface(t *testing.T) {
	var _ schema.Mixin = mixin.Schema{}
	var _ schema.Mixin = mixin.ID{}
	var _ schema.Mixin = mixin.Time{}
	var _ schema.Mixin = mixin.SoftDelete{}
}

// TestBuiltinMixins tests the fields contributed by each built-in mixin.
func TestBuiltinMixins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mixin   schema.Mixin
		columns []string
		indexes int
	}{
		{name: "id", mixin: mixin.ID{}, columns: []string{"id"}},
		{name: "time", mixin: mixin.Time{}, columns: []string{"created_at", "updated_at"}},
		{name: "create_time", mixin: mixin.CreateTime{}, columns: []string{"created_at"}},
		{name: "update_time", mixin: mixin.UpdateTime{}, columns: []string{"updated_at"}},
		{name: "soft_delete", mixin: mixin.SoftDelete{}, columns: []string{"deleted_at"}, indexes: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var cols []string
			for _, f := range tt.mixin.Fields() {
				cols = append(cols, f.Descriptor().Column())
			}
			assert.Equal(t, tt.columns, cols)
			assert.Len(t, tt.mixin.Indexes(), tt.indexes)
		})
	}
}

// TestMixinOnModel tests applying mixins to a model.
func TestMixinOnModel(t *testing.T) {
	users := schema.NewModel("User", "users").
		Mixin(mixin.ID{}, mixin.Time{}, mixin.SoftDelete{}).
		Fields(field.String("email"))
	require.NoError(t, users.Err())

	attr, ok := users.Resolve("deleted_at")
	require.True(t, ok)
	assert.Equal(t, "deletedAt", attr.Name)
	assert.True(t, attr.AllowNull)
	assert.Equal(t, "id", users.PrimaryKeyField())
	assert.Len(t, users.Attributes(), 5)
	assert.Len(t, users.IndexDescriptors(), 1)
}

// audit is a custom mixin embedding Schema.
type audit struct {
	mixin.Schema
}

func (audit) Fields() []schema.Field {
	return []schema.Field{
		field.String("createdBy").StorageKey("created_by"),
		field.String("updatedBy").StorageKey("updated_by").Nillable(),
	}
}

// TestCustomMixinWithSchema tests creating a custom mixin by embedding Schema.
func TestCustomMixinWithSchema(t *testing.T) {
	posts := schema.NewModel("Post", "posts").Mixin(audit{})
	require.NoError(t, posts.Err())
	assert.Equal(t, "updated_by", posts.ColumnOf("updatedBy"))
	assert.Nil(t, audit{}.Indexes())
}
