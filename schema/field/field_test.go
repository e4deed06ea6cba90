package field_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/querygen/schema/field"
)

func TestInt(t *testing.T) {
	fd := field.Int("id").
		AutoIncrement().
		Comment("comment").
		Descriptor()
	assert.Equal(t, "id", fd.Name)
	assert.Equal(t, field.IntegerType{}, fd.Type)
	assert.True(t, fd.PrimaryKey)
	assert.True(t, fd.AutoIncrement)
	assert.Equal(t, "comment", fd.Comment)
	assert.Equal(t, "id", fd.Column())

	fd = field.Int64("views").Nillable().Descriptor()
	assert.Equal(t, field.IntegerType{Big: true}, fd.Type)
	assert.True(t, fd.Nillable)
	assert.False(t, fd.PrimaryKey)
}

func TestString(t *testing.T) {
	fd := field.String("firstName").
		StorageKey("first_name").
		Descriptor()
	assert.Equal(t, "firstName", fd.Name)
	assert.Equal(t, "first_name", fd.StorageKey)
	assert.Equal(t, "first_name", fd.Column())
	assert.Equal(t, field.StringType{Length: 255}, fd.Type)

	assert.Equal(t, field.TextType{}, field.Text("bio").Descriptor().Type)
}

func TestTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		b    *field.Builder
		want field.Type
	}{
		{name: "float", b: field.Float("f"), want: field.FloatType{}},
		{name: "float64", b: field.Float64("f"), want: field.FloatType{Double: true}},
		{name: "decimal", b: field.Decimal("price", 10, 2), want: field.DecimalType{Precision: 10, Scale: 2}},
		{name: "bool", b: field.Bool("active"), want: field.BooleanType{}},
		{name: "time", b: field.Time("createdAt"), want: field.DateType{}},
		{name: "date", b: field.Date("birthday"), want: field.DateType{DateOnly: true}},
		{name: "uuid", b: field.UUID("token"), want: field.UUIDType{}},
		{name: "json", b: field.JSON("meta"), want: field.JSONType{}},
		{name: "jsonb", b: field.JSONB("meta"), want: field.JSONType{Binary: true}},
		{name: "enum", b: field.Enum("status", "a", "b"), want: field.EnumType{Values: []string{"a", "b"}}},
		{name: "array", b: field.Array("tags", field.TextType{}), want: field.ArrayType{Elem: field.TextType{}}},
		{name: "bytes", b: field.Bytes("avatar"), want: field.BlobType{}},
		{name: "virtual", b: field.Virtual("fullName"), want: field.VirtualType{}},
		{name: "other", b: field.Other("x", field.IntegerType{Big: true}), want: field.IntegerType{Big: true}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.b.Descriptor().Type)
		})
	}
}

func TestPredicates(t *testing.T) {
	assert.True(t, field.IsJSON(field.JSONType{Binary: true}))
	assert.False(t, field.IsJSON(field.TextType{}))
	assert.True(t, field.IsArray(field.ArrayType{}))
	assert.False(t, field.IsArray(field.JSONType{}))
	assert.True(t, field.IsVirtual(field.VirtualType{}))
	assert.False(t, field.IsVirtual(field.IntegerType{}))
}
