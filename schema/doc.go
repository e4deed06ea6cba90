// Package schema describes the models that statements are compiled
// against: their attributes, associations and indexes.
//
// Sub-packages:
//
//   - [field]: attribute types and field builders
//   - [index]: index builders
//   - [mixin]: reusable attribute sets (timestamps, soft delete)
//
// # Quick Start
//
//	users := schema.NewModel("User", "users").Fields(
//		field.Int("id").AutoIncrement(),
//		field.String("firstName").StorageKey("first_name"),
//		field.JSONB("meta"),
//	).Mixin(mixin.Time{})
//
//	posts := schema.NewModel("Post", "posts").Fields(
//		field.Int("id").AutoIncrement(),
//		field.Int("userId").StorageKey("user_id"),
//	)
//
//	users.HasMany("posts", posts, "userId")
//	posts.BelongsTo("author", users, "userId")
//
// Attribute names are what callers use in conditions; compilers translate
// them to the backing column. Lookups accept either form:
//
//	attr, ok := users.Resolve("first_name") // attr.Name == "firstName"
//
// # Associations
//
// Association kinds are BelongsTo, HasOne, HasMany and BelongsToMany.
// HasMany and BelongsToMany fan out rows and are reported by IsMulti.
// Model definition errors (duplicate attributes or aliases) are collected
// and reported by Model.Err.
package schema
