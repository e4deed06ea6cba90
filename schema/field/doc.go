// Package field provides the attribute type system and fluent field
// builders used to describe models.
//
// Attribute names are what callers use in conditions; the storage key is
// the column the compiler emits:
//
//	field.Int("id").AutoIncrement()             // column: id
//	field.String("firstName").StorageKey("first_name")
//
// # Field Types
//
//	field.String("name")           // VARCHAR(255)
//	field.Text("bio")              // TEXT
//	field.Int("age")               // INTEGER
//	field.Int64("views")           // BIGINT
//	field.Float64("score")         // DOUBLE PRECISION
//	field.Decimal("price", 10, 2)  // DECIMAL(10,2)
//	field.Bool("active")           // BOOLEAN
//	field.Time("createdAt")        // timestamp
//	field.Date("birthday")         // DATE
//	field.UUID("token")            // UUID
//	field.JSONB("meta")            // JSONB
//	field.Enum("status", "draft", "published")
//	field.Array("tags", field.StringType{Length: 255})
//	field.Bytes("avatar")          // binary
//	field.Virtual("fullName")      // no column
//
// # Type Contract
//
// Every type implements Type: Key names the type, SQL spells it for a
// dialect and Validate checks values bound to it. Types that rewrite values
// before escaping also implement Stringifier; a Stringifier may report its
// output as already-safe SQL, which is emitted without escaping (typed
// ARRAY constructors on Postgres).
package field
