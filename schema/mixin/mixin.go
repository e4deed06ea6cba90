// Package mixin provides reusable attribute sets for models.
//
// A mixin contributes fields and indexes to every model it is applied to:
//
//	users := schema.NewModel("User", "users").
//		Mixin(mixin.ID{}, mixin.Time{}).
//		Fields(field.String("email"))
//
// Creating Custom Mixins:
//
// Embed Schema and override the methods you need:
//
//	type Audit struct {
//	    mixin.Schema
//	}
//
//	func (Audit) Fields() []schema.Field {
//	    return []schema.Field{
//	        field.String("createdBy").StorageKey("created_by"),
//	    }
//	}
package mixin

import (
	"github.com/syssam/querygen/schema"
	"github.com/syssam/querygen/schema/field"
	"github.com/syssam/querygen/schema/index"
)

// Schema is the default implementation for the schema.Mixin interface.
// It should be embedded in all custom mixin definitions.
type Schema struct{}

// Fields returns the fields of the mixin.
func (Schema) Fields() []schema.Field { return nil }

// Indexes returns the indexes of the mixin.
func (Schema) Indexes() []schema.Index { return nil }

// schema mixin must implement `Mixin` interface.
var _ schema.Mixin = (*Schema)(nil)

// ID adds an auto-incrementing integer primary key named id.
type ID struct {
	Schema
}

// Fields returns the id field.
func (ID) Fields() []schema.Field {
	return []schema.Field{
		field.Int("id").AutoIncrement(),
	}
}

// Time adds createdAt and updatedAt timestamps stored as created_at and
// updated_at.
type Time struct {
	Schema
}

// Fields returns the time tracking fields.
func (Time) Fields() []schema.Field {
	return append(CreateTime{}.Fields(), UpdateTime{}.Fields()...)
}

// CreateTime adds only the createdAt timestamp.
type CreateTime struct {
	Schema
}

// Fields returns the createdAt field.
func (CreateTime) Fields() []schema.Field {
	return []schema.Field{
		field.Time("createdAt").
			StorageKey("created_at").
			Comment("Timestamp when the row was created"),
	}
}

// UpdateTime adds only the updatedAt timestamp.
type UpdateTime struct {
	Schema
}

// Fields returns the updatedAt field.
func (UpdateTime) Fields() []schema.Field {
	return []schema.Field{
		field.Time("updatedAt").
			StorageKey("updated_at").
			Comment("Timestamp when the row was last updated"),
	}
}

// SoftDelete adds a nullable deletedAt timestamp and an index on it.
// A row is considered deleted once deletedAt is set.
type SoftDelete struct {
	Schema
}

// Fields returns the soft delete field.
func (SoftDelete) Fields() []schema.Field {
	return []schema.Field{
		field.Time("deletedAt").
			StorageKey("deleted_at").
			Nillable().
			Comment("Timestamp when the row was soft deleted (NULL means live)"),
	}
}

// Indexes returns the deleted_at index.
func (SoftDelete) Indexes() []schema.Index {
	return []schema.Index{
		index.Fields("deleted_at"),
	}
}
