// Package index provides fluent builders for index definitions.
//
//	index.Fields("email").Unique()
//	index.Fields("status", "createdAt").StorageKey("users_status")
//	index.Columns(index.Column("name").Collate("C").Desc()).Using("BTREE")
package index

// A Field is one indexed column with its per-column modifiers.
type Field struct {
	Name     string // attribute or column name.
	Expr     any    // expression indexed instead of a column.
	Collate  string
	Length   int
	Order    string // ASC or DESC.
	Operator string // operator class.
}

// A Descriptor for index configuration.
type Descriptor struct {
	Fields       []Field
	Unique       bool
	StorageKey   string   // index name; generated when empty.
	Prefix       string   // prefix of the generated name; defaults to the table.
	Type         string   // UNIQUE, FULLTEXT, SPATIAL.
	Using        string   // BTREE, HASH, GIST, GIN.
	Parser       string   // full-text parser.
	Concurrently bool     // CREATE INDEX CONCURRENTLY.
	Where        any      // partial index condition.
	Include      []string // covering columns.
	Operator     string   // operator class applied to every column.
}

// FieldNames returns the names of the indexed columns.
func (d *Descriptor) FieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name != "" {
			names = append(names, f.Name)
		}
	}
	return names
}

// Builder for indexes on fields.
type Builder struct {
	desc *Descriptor
}

// Fields creates an index on the given fields.
//
//	index.Fields("first", "last").Unique()
func Fields(fields ...string) *Builder {
	cols := make([]Field, len(fields))
	for i, f := range fields {
		cols[i] = Field{Name: f}
	}
	return &Builder{desc: &Descriptor{Fields: cols}}
}

// Columns creates an index on columns carrying modifiers.
func Columns(cols ...*ColumnBuilder) *Builder {
	fields := make([]Field, len(cols))
	for i, c := range cols {
		fields[i] = c.f
	}
	return &Builder{desc: &Descriptor{Fields: fields}}
}

// Unique sets the index to be a unique index.
func (b *Builder) Unique() *Builder {
	b.desc.Unique = true
	return b
}

// StorageKey sets the storage key of the index. In SQL dialects, it's the
// index name.
func (b *Builder) StorageKey(key string) *Builder {
	b.desc.StorageKey = key
	return b
}

// Prefix sets the prefix of the generated index name.
func (b *Builder) Prefix(p string) *Builder {
	b.desc.Prefix = p
	return b
}

// Type sets the index type, e.g. FULLTEXT.
func (b *Builder) Type(t string) *Builder {
	b.desc.Type = t
	return b
}

// Using sets the index method.
func (b *Builder) Using(method string) *Builder {
	b.desc.Using = method
	return b
}

// Parser sets the full-text parser.
func (b *Builder) Parser(p string) *Builder {
	b.desc.Parser = p
	return b
}

// Concurrently builds the index without locking writes.
func (b *Builder) Concurrently() *Builder {
	b.desc.Concurrently = true
	return b
}

// Where makes the index partial.
func (b *Builder) Where(cond any) *Builder {
	b.desc.Where = cond
	return b
}

// Include adds covering columns.
func (b *Builder) Include(cols ...string) *Builder {
	b.desc.Include = append(b.desc.Include, cols...)
	return b
}

// Operator sets the operator class of all columns.
func (b *Builder) Operator(op string) *Builder {
	b.desc.Operator = op
	return b
}

// Descriptor implements the schema.Index interface by returning its descriptor.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}

// ColumnBuilder configures one indexed column.
type ColumnBuilder struct {
	f Field
}

// Column starts a column definition.
func Column(name string) *ColumnBuilder {
	return &ColumnBuilder{f: Field{Name: name}}
}

// Expression indexes an expression, e.g. sql.Fn("lower", sql.Col("email")).
func Expression(expr any) *ColumnBuilder {
	return &ColumnBuilder{f: Field{Expr: expr}}
}

// Collate sets the column collation.
func (c *ColumnBuilder) Collate(collation string) *ColumnBuilder {
	c.f.Collate = collation
	return c
}

// Length sets the prefix length.
func (c *ColumnBuilder) Length(n int) *ColumnBuilder {
	c.f.Length = n
	return c
}

// Asc orders the column ascending.
func (c *ColumnBuilder) Asc() *ColumnBuilder {
	c.f.Order = "ASC"
	return c
}

// Desc orders the column descending.
func (c *ColumnBuilder) Desc() *ColumnBuilder {
	c.f.Order = "DESC"
	return c
}

// Operator sets the operator class of the column.
func (c *ColumnBuilder) Operator(op string) *ColumnBuilder {
	c.f.Operator = op
	return c
}
