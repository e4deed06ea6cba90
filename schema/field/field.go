package field

// A Descriptor for field configuration.
type Descriptor struct {
	Name          string // attribute name.
	StorageKey    string // column name; defaults to Name.
	Type          Type   // data type.
	PrimaryKey    bool   // part of the primary key.
	AutoIncrement bool   // serial / identity column.
	Nillable      bool   // column accepts NULL.
	Comment       string // column comment.
}

// Column returns the column backing the field.
func (d *Descriptor) Column() string {
	if d.StorageKey != "" {
		return d.StorageKey
	}
	return d.Name
}

// Builder is the fluent builder shared by all field kinds.
type Builder struct {
	desc *Descriptor
}

func newBuilder(name string, t Type) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Type: t}}
}

// String returns a new VARCHAR(255) field.
func String(name string) *Builder { return newBuilder(name, StringType{Length: 255}) }

// Text returns a new TEXT field.
func Text(name string) *Builder { return newBuilder(name, TextType{}) }

// Int returns a new INTEGER field.
func Int(name string) *Builder { return newBuilder(name, IntegerType{}) }

// Int64 returns a new BIGINT field.
func Int64(name string) *Builder { return newBuilder(name, IntegerType{Big: true}) }

// Float returns a new FLOAT field.
func Float(name string) *Builder { return newBuilder(name, FloatType{}) }

// Float64 returns a new DOUBLE PRECISION field.
func Float64(name string) *Builder { return newBuilder(name, FloatType{Double: true}) }

// Decimal returns a new DECIMAL(precision,scale) field.
func Decimal(name string, precision, scale int) *Builder {
	return newBuilder(name, DecimalType{Precision: precision, Scale: scale})
}

// Bool returns a new BOOLEAN field.
func Bool(name string) *Builder { return newBuilder(name, BooleanType{}) }

// Time returns a new timestamp field.
func Time(name string) *Builder { return newBuilder(name, DateType{}) }

// Date returns a new calendar date field.
func Date(name string) *Builder { return newBuilder(name, DateType{DateOnly: true}) }

// UUID returns a new UUID field.
func UUID(name string) *Builder { return newBuilder(name, UUIDType{}) }

// JSON returns a new JSON field.
func JSON(name string) *Builder { return newBuilder(name, JSONType{}) }

// JSONB returns a new binary JSON field.
func JSONB(name string) *Builder { return newBuilder(name, JSONType{Binary: true}) }

// Enum returns a new enum field with the given values.
func Enum(name string, values ...string) *Builder {
	return newBuilder(name, EnumType{Values: values})
}

// Array returns a new ARRAY field of elem.
func Array(name string, elem Type) *Builder { return newBuilder(name, ArrayType{Elem: elem}) }

// Bytes returns a new binary field.
func Bytes(name string) *Builder { return newBuilder(name, BlobType{}) }

// Virtual returns a field without a backing column.
func Virtual(name string) *Builder { return newBuilder(name, VirtualType{}) }

// Other returns a field of a custom type.
func Other(name string, t Type) *Builder { return newBuilder(name, t) }

// StorageKey sets the column name of the field.
//
//	field.String("firstName").
//		StorageKey("first_name")
func (b *Builder) StorageKey(key string) *Builder {
	b.desc.StorageKey = key
	return b
}

// PrimaryKey marks the field as (part of) the primary key.
func (b *Builder) PrimaryKey() *Builder {
	b.desc.PrimaryKey = true
	return b
}

// AutoIncrement marks the field as a serial column. It implies PrimaryKey.
func (b *Builder) AutoIncrement() *Builder {
	b.desc.AutoIncrement = true
	b.desc.PrimaryKey = true
	return b
}

// Nillable indicates that the column accepts NULL.
func (b *Builder) Nillable() *Builder {
	b.desc.Nillable = true
	return b
}

// Comment sets the comment of the field.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the schema.Field interface by returning its descriptor.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}
