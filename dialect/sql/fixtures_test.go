package sql

import (
	"github.com/syssam/querygen/schema"
	"github.com/syssam/querygen/schema/field"
)

type fixtures struct {
	users, posts, comments, groups, memberships, counters *schema.Model
}

// newFixtures builds a fresh model graph per test so that parallel tests
// never share models:
//
//	User hasMany posts, belongsToMany groups through Membership
//	Post belongsTo author (User), hasMany comments
func newFixtures() fixtures {
	users := schema.NewModel("User", "users").Fields(
		field.Int("id").AutoIncrement(),
		field.String("firstName").StorageKey("first_name"),
		field.String("email"),
		field.Bool("active"),
		field.Int("age"),
		field.JSON("meta"),
		field.Virtual("fullName"),
	)
	posts := schema.NewModel("Post", "posts").Fields(
		field.Int("id").AutoIncrement(),
		field.Int("userId").StorageKey("user_id"),
		field.String("title"),
	)
	comments := schema.NewModel("Comment", "comments").Fields(
		field.Int("id").AutoIncrement(),
		field.Int("postId").StorageKey("post_id"),
		field.Text("body"),
	)
	groups := schema.NewModel("Group", "groups").Fields(
		field.Int("id").AutoIncrement(),
		field.String("name"),
	)
	memberships := schema.NewModel("Membership", "memberships").Fields(
		field.Int("userId").StorageKey("user_id").PrimaryKey(),
		field.Int("groupId").StorageKey("group_id").PrimaryKey(),
	)
	counters := schema.NewModel("Counter", "counters").Fields(
		field.Int("id").AutoIncrement(),
	)
	users.HasMany("posts", posts, "userId")
	users.BelongsToMany("groups", groups, memberships, "userId", "groupId")
	posts.BelongsTo("author", users, "userId")
	posts.HasMany("comments", comments, "postId")
	return fixtures{
		users:       users,
		posts:       posts,
		comments:    comments,
		groups:      groups,
		memberships: memberships,
		counters:    counters,
	}
}
