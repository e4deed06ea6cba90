package querylanguage

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	sqlschema "github.com/syssam/querygen/dialect/sql/schema"
	"github.com/syssam/querygen/schema/index"
)

// IndexSpec declares an index, on a model or in an addIndex operation.
type IndexSpec struct {
	Name         string           `yaml:"name"`
	Prefix       string           `yaml:"prefix"`
	Fields       []IndexFieldSpec `yaml:"fields"`
	Unique       bool             `yaml:"unique"`
	Type         string           `yaml:"type"`
	Using        string           `yaml:"using"`
	Parser       string           `yaml:"parser"`
	Concurrently bool             `yaml:"concurrently"`
	Where        Value            `yaml:"where"`
	Include      []string         `yaml:"include"`
	Operator     string           `yaml:"operator"`
}

// IndexFieldSpec is one indexed column, written as a plain name or as a
// mapping carrying modifiers.
type IndexFieldSpec struct {
	Name     string `yaml:"name"`
	Expr     Value  `yaml:"expr"`
	Collate  string `yaml:"collate"`
	Length   int    `yaml:"length"`
	Order    string `yaml:"order"`
	Operator string `yaml:"operator"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (f *IndexFieldSpec) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		f.Name = n.Value
		return nil
	}
	type plain IndexFieldSpec
	return n.Decode((*plain)(f))
}

func (s IndexSpec) descriptor() (*index.Descriptor, error) {
	d := &index.Descriptor{
		Unique:       s.Unique,
		StorageKey:   s.Name,
		Prefix:       s.Prefix,
		Type:         s.Type,
		Using:        s.Using,
		Parser:       s.Parser,
		Concurrently: s.Concurrently,
		Where:        s.Where.V,
		Include:      s.Include,
		Operator:     s.Operator,
	}
	for i, f := range s.Fields {
		if f.Name != "" && !f.Expr.IsZero() {
			return nil, fmt.Errorf("index field %d: name and expr are exclusive", i)
		}
		d.Fields = append(d.Fields, index.Field{
			Name:     f.Name,
			Expr:     f.Expr.V,
			Collate:  f.Collate,
			Length:   f.Length,
			Order:    f.Order,
			Operator: f.Operator,
		})
	}
	return d, nil
}

// AddIndexSpec adds an index. Without an inline index every index declared
// on the model is added.
type AddIndexSpec struct {
	Target    `yaml:",inline"`
	IndexSpec `yaml:",inline"`
}

// RemoveIndexSpec drops an index by name or by its fields.
type RemoveIndexSpec struct {
	Target       `yaml:",inline"`
	Name         string   `yaml:"name"`
	Fields       []string `yaml:"fields"`
	Concurrently bool     `yaml:"concurrently"`
}

func (s *RemoveIndexSpec) nameOrFields() []string {
	if s.Name != "" {
		return []string{s.Name}
	}
	return s.Fields
}

// ConstraintSpec adds a constraint.
type ConstraintSpec struct {
	Target     `yaml:",inline"`
	Type       string          `yaml:"type"`
	Name       string          `yaml:"name"`
	Fields     []string        `yaml:"fields"`
	Where      Value           `yaml:"where"`
	Value      Value           `yaml:"value"`
	References *ReferenceSpec  `yaml:"references"`
	OnDelete   string          `yaml:"onDelete"`
	OnUpdate   string          `yaml:"onUpdate"`
	Deferrable *DeferrableSpec `yaml:"deferrable"`
}

// ReferenceSpec is the referenced side of a foreign key.
type ReferenceSpec struct {
	Target `yaml:",inline"`
	Field  string `yaml:"field"`
}

var constraintTypes = map[string]sqlschema.ConstraintType{
	"unique":     sqlschema.Unique,
	"check":      sqlschema.Check,
	"default":    sqlschema.Default,
	"primarykey": sqlschema.PrimaryKey,
	"foreignkey": sqlschema.ForeignKey,
}

// DeferrableSpec is a deferral mode: notDeferrable, initiallyImmediate,
// initiallyDeferred, deferred or immediate.
type DeferrableSpec struct {
	Kind        string   `yaml:"kind"`
	Constraints []string `yaml:"constraints"`
}

var deferrableKinds = map[string]sqlschema.DeferrableKind{
	"notdeferrable":      sqlschema.NotDeferrable,
	"initiallyimmediate": sqlschema.InitiallyImmediate,
	"initiallydeferred":  sqlschema.InitiallyDeferred,
	"deferred":           sqlschema.SetDeferred,
	"immediate":          sqlschema.SetImmediate,
}

func (s *DeferrableSpec) deferrable() (*sqlschema.Deferrable, error) {
	if s == nil {
		return nil, nil
	}
	kind, ok := deferrableKinds[strings.ToLower(s.Kind)]
	if !ok {
		return nil, fmt.Errorf("unknown deferrable kind %q", s.Kind)
	}
	return &sqlschema.Deferrable{Kind: kind, Constraints: s.Constraints}, nil
}

// RemoveConstraintSpec drops a named constraint.
type RemoveConstraintSpec struct {
	Target `yaml:",inline"`
	Name   string `yaml:"name"`
}

// RenameTableSpec renames a table.
type RenameTableSpec struct {
	Target `yaml:",inline"`
	To     string `yaml:"to"`
}

// DropTableSpec drops a table.
type DropTableSpec struct {
	Target  `yaml:",inline"`
	Cascade bool `yaml:"cascade"`
}
