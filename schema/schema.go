package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/querygen/schema/field"
	"github.com/syssam/querygen/schema/index"
)

// Field is implemented by the builders of package field.
type Field interface {
	Descriptor() *field.Descriptor
}

// Index is implemented by the builders of package index.
type Index interface {
	Descriptor() *index.Descriptor
}

// Mixin is a reusable set of fields and indexes.
type Mixin interface {
	Fields() []Field
	Indexes() []Index
}

// Attribute is a resolved model attribute.
type Attribute struct {
	Name          string     // attribute name used in conditions.
	Field         string     // backing column.
	Type          field.Type // data type.
	PrimaryKey    bool
	AutoIncrement bool
	AllowNull     bool
	Comment       string
}

// A Model describes a table and its attributes and associations.
type Model struct {
	Name      string // model name, used as the default alias.
	Table     string // table name.
	Schema    string // optional schema.
	Delimiter string // schema delimiter for dialects without schemas.

	attrs   []*Attribute
	byName  map[string]*Attribute
	byField map[string]*Attribute
	indexes []*index.Descriptor
	assocs  []*Association
	byAlias map[string]*Association
	errs    []error
}

// NewModel returns a model named name stored in table.
func NewModel(name, table string) *Model {
	return &Model{
		Name:    name,
		Table:   table,
		byName:  make(map[string]*Attribute),
		byField: make(map[string]*Attribute),
		byAlias: make(map[string]*Association),
	}
}

// InSchema places the model table in the given schema.
func (m *Model) InSchema(schema string) *Model {
	m.Schema = schema
	return m
}

// Fields appends attributes to the model.
//
//	users := schema.NewModel("User", "users").Fields(
//		field.Int("id").AutoIncrement(),
//		field.String("firstName").StorageKey("first_name"),
//	)
func (m *Model) Fields(fields ...Field) *Model {
	for _, f := range fields {
		d := f.Descriptor()
		if d.Name == "" {
			m.errs = append(m.errs, fmt.Errorf("schema: model %q: field without a name", m.Name))
			continue
		}
		if _, ok := m.byName[d.Name]; ok {
			m.errs = append(m.errs, fmt.Errorf("schema: model %q: duplicate attribute %q", m.Name, d.Name))
			continue
		}
		a := &Attribute{
			Name:          d.Name,
			Field:         d.Column(),
			Type:          d.Type,
			PrimaryKey:    d.PrimaryKey,
			AutoIncrement: d.AutoIncrement,
			AllowNull:     d.Nillable,
			Comment:       d.Comment,
		}
		m.attrs = append(m.attrs, a)
		m.byName[a.Name] = a
		m.byField[a.Field] = a
	}
	return m
}

// Indexes appends index definitions to the model.
func (m *Model) Indexes(indexes ...Index) *Model {
	for _, i := range indexes {
		m.indexes = append(m.indexes, i.Descriptor())
	}
	return m
}

// Mixin applies the fields and indexes of the given mixins.
func (m *Model) Mixin(mixins ...Mixin) *Model {
	for _, mx := range mixins {
		m.Fields(mx.Fields()...)
		m.Indexes(mx.Indexes()...)
	}
	return m
}

// Err returns the errors recorded while the model was defined.
func (m *Model) Err() error {
	return errors.Join(m.errs...)
}

// Attributes returns the model attributes in definition order.
func (m *Model) Attributes() []*Attribute {
	return append([]*Attribute(nil), m.attrs...)
}

// IndexDescriptors returns the indexes defined on the model.
func (m *Model) IndexDescriptors() []*index.Descriptor {
	return append([]*index.Descriptor(nil), m.indexes...)
}

// Attribute returns the attribute with the given name.
func (m *Model) Attribute(name string) (*Attribute, bool) {
	if m == nil {
		return nil, false
	}
	a, ok := m.byName[name]
	return a, ok
}

// AttributeByField returns the attribute backed by the given column.
func (m *Model) AttributeByField(column string) (*Attribute, bool) {
	if m == nil {
		return nil, false
	}
	a, ok := m.byField[column]
	return a, ok
}

// Resolve looks key up by attribute name first, then by column.
func (m *Model) Resolve(key string) (*Attribute, bool) {
	if a, ok := m.Attribute(key); ok {
		return a, true
	}
	return m.AttributeByField(key)
}

// ColumnOf returns the column for an attribute name or column, falling
// back to key itself.
func (m *Model) ColumnOf(key string) string {
	if a, ok := m.Resolve(key); ok {
		return a.Field
	}
	return key
}

// PrimaryKeys returns the primary key attributes.
func (m *Model) PrimaryKeys() []*Attribute {
	if m == nil {
		return nil
	}
	var pks []*Attribute
	for _, a := range m.attrs {
		if a.PrimaryKey {
			pks = append(pks, a)
		}
	}
	return pks
}

// PrimaryKeyAttribute returns the name of the first primary key
// attribute, or "id".
func (m *Model) PrimaryKeyAttribute() string {
	if pks := m.PrimaryKeys(); len(pks) > 0 {
		return pks[0].Name
	}
	return "id"
}

// PrimaryKeyField returns the column of the first primary key attribute,
// or "id".
func (m *Model) PrimaryKeyField() string {
	if pks := m.PrimaryKeys(); len(pks) > 0 {
		return pks[0].Field
	}
	return "id"
}

// Associations returns the associations defined on the model.
func (m *Model) Associations() []*Association {
	return append([]*Association(nil), m.assocs...)
}

// Association returns the association with the given alias.
func (m *Model) Association(as string) (*Association, bool) {
	if m == nil {
		return nil, false
	}
	a, ok := m.byAlias[as]
	return a, ok
}

// AssociationFor finds the association pointing at target. When as is
// empty, the target must be reachable through exactly one association.
func (m *Model) AssociationFor(target *Model, as string) (*Association, error) {
	if as != "" {
		a, ok := m.byAlias[as]
		if !ok || (target != nil && a.Target != target) {
			return nil, fmt.Errorf("schema: %s is not associated to %s as %q", targetName(target), m.Name, as)
		}
		return a, nil
	}
	var found []*Association
	for _, a := range m.assocs {
		if a.Target == target {
			found = append(found, a)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("schema: %s is not associated to %s", targetName(target), m.Name)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("schema: %s is associated to %s multiple times, an alias is required", targetName(target), m.Name)
	}
}

func targetName(m *Model) string {
	if m == nil {
		return "<nil>"
	}
	return m.Name
}

func (m *Model) associate(a *Association) *Association {
	if a.As == "" {
		a.As = a.Target.Name
	}
	if _, ok := m.byAlias[a.As]; ok {
		m.errs = append(m.errs, fmt.Errorf("schema: model %q: duplicate association alias %q", m.Name, a.As))
		return a
	}
	m.assocs = append(m.assocs, a)
	m.byAlias[a.As] = a
	return a
}

// BelongsTo declares that the model holds a foreign key pointing at
// target. An empty foreignKey defaults to "<as>Id".
func (m *Model) BelongsTo(as string, target *Model, foreignKey string) *Association {
	a := &Association{Kind: BelongsTo, As: as, Source: m, Target: target, ForeignKey: foreignKey}
	if a.As == "" {
		a.As = lowerFirst(target.Name)
	}
	if a.ForeignKey == "" {
		a.ForeignKey = camelize(a.As, target.PrimaryKeyAttribute())
	}
	return m.associate(a)
}

// HasOne declares that target holds a foreign key pointing at the model
// and that at most one row matches.
func (m *Model) HasOne(as string, target *Model, foreignKey string) *Association {
	return m.associate(m.hasKey(HasOne, as, target, foreignKey))
}

// HasMany declares that target holds a foreign key pointing at the model.
// An empty foreignKey defaults to "<Model><PrimaryKey>".
func (m *Model) HasMany(as string, target *Model, foreignKey string) *Association {
	return m.associate(m.hasKey(HasMany, as, target, foreignKey))
}

func (m *Model) hasKey(kind Kind, as string, target *Model, foreignKey string) *Association {
	a := &Association{Kind: kind, As: as, Source: m, Target: target, ForeignKey: foreignKey}
	if a.ForeignKey == "" {
		a.ForeignKey = camelize(m.Name, m.PrimaryKeyAttribute())
	}
	return a
}

// BelongsToMany declares a many-to-many association through a join model.
// foreignKey is the through column pointing at the model and otherKey the
// one pointing at target.
func (m *Model) BelongsToMany(as string, target, through *Model, foreignKey, otherKey string) *Association {
	a := &Association{
		Kind:       BelongsToMany,
		As:         as,
		Source:     m,
		Target:     target,
		Through:    through,
		ForeignKey: foreignKey,
		OtherKey:   otherKey,
	}
	if a.ForeignKey == "" {
		a.ForeignKey = camelize(m.Name, m.PrimaryKeyAttribute())
	}
	if a.OtherKey == "" {
		a.OtherKey = camelize(target.Name, target.PrimaryKeyAttribute())
	}
	return m.associate(a)
}

func camelize(prefix, key string) string {
	if key == "" {
		return prefix
	}
	return prefix + strings.ToUpper(key[:1]) + key[1:]
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
