package querylanguage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/querygen/schema"
	"github.com/syssam/querygen/schema/field"
	"github.com/syssam/querygen/schema/index"
	"github.com/syssam/querygen/schema/mixin"
)

// ModelSpec declares a model.
//
//	- name: User
//	  table: users
//	  mixins: [id, time]
//	  attributes:
//	    - {name: firstName, field: first_name, type: string}
//	  associations:
//	    - {kind: hasMany, as: posts, target: Post, foreignKey: userId}
type ModelSpec struct {
	Name         string            `yaml:"name"`
	Table        string            `yaml:"table"`
	Schema       string            `yaml:"schema"`
	Mixins       []string          `yaml:"mixins"`
	Attributes   []AttributeSpec   `yaml:"attributes"`
	Indexes      []IndexSpec       `yaml:"indexes"`
	Associations []AssociationSpec `yaml:"associations"`
}

// AttributeSpec declares one attribute of a model.
type AttributeSpec struct {
	Name          string   `yaml:"name"`
	Field         string   `yaml:"field"`
	Type          string   `yaml:"type"`
	Length        int      `yaml:"length"`
	Precision     int      `yaml:"precision"`
	Scale         int      `yaml:"scale"`
	Values        []string `yaml:"values"`
	Elem          string   `yaml:"elem"`
	PrimaryKey    bool     `yaml:"primaryKey"`
	AutoIncrement bool     `yaml:"autoIncrement"`
	AllowNull     bool     `yaml:"allowNull"`
	Comment       string   `yaml:"comment"`
}

// AssociationSpec declares an association from the enclosing model.
type AssociationSpec struct {
	Kind       string `yaml:"kind"`
	As         string `yaml:"as"`
	Target     string `yaml:"target"`
	Through    string `yaml:"through"`
	ForeignKey string `yaml:"foreignKey"`
	OtherKey   string `yaml:"otherKey"`
	SourceKey  string `yaml:"sourceKey"`
	TargetKey  string `yaml:"targetKey"`
}

var mixins = map[string]schema.Mixin{
	"id":         mixin.ID{},
	"time":       mixin.Time{},
	"createTime": mixin.CreateTime{},
	"updateTime": mixin.UpdateTime{},
	"softDelete": mixin.SoftDelete{},
}

// fieldType maps a type name of the descriptor language to a field type.
func fieldType(a AttributeSpec) (field.Type, error) {
	switch strings.ToLower(a.Type) {
	case "string", "":
		n := a.Length
		if n == 0 {
			n = 255
		}
		return field.StringType{Length: n}, nil
	case "text":
		return field.TextType{}, nil
	case "int", "integer":
		return field.IntegerType{}, nil
	case "int64", "bigint":
		return field.IntegerType{Big: true}, nil
	case "float":
		return field.FloatType{}, nil
	case "float64", "double":
		return field.FloatType{Double: true}, nil
	case "decimal":
		return field.DecimalType{Precision: a.Precision, Scale: a.Scale}, nil
	case "bool", "boolean":
		return field.BooleanType{}, nil
	case "time", "datetime":
		return field.DateType{}, nil
	case "date", "dateonly":
		return field.DateType{DateOnly: true}, nil
	case "uuid":
		return field.UUIDType{}, nil
	case "json":
		return field.JSONType{}, nil
	case "jsonb":
		return field.JSONType{Binary: true}, nil
	case "enum":
		if len(a.Values) == 0 {
			return nil, fmt.Errorf("enum attribute %q has no values", a.Name)
		}
		return field.EnumType{Values: a.Values}, nil
	case "array":
		if a.Elem == "" {
			return field.ArrayType{}, nil
		}
		elem, err := fieldType(AttributeSpec{Name: a.Name, Type: a.Elem})
		if err != nil {
			return nil, err
		}
		return field.ArrayType{Elem: elem}, nil
	case "bytes", "blob":
		return field.BlobType{}, nil
	case "virtual":
		return field.VirtualType{}, nil
	}
	return nil, fmt.Errorf("attribute %q has unknown type %q", a.Name, a.Type)
}

func (a AttributeSpec) field() (schema.Field, error) {
	t, err := fieldType(a)
	if err != nil {
		return nil, err
	}
	b := field.Other(a.Name, t)
	if a.Field != "" {
		b.StorageKey(a.Field)
	}
	if a.PrimaryKey {
		b.PrimaryKey()
	}
	if a.AutoIncrement {
		b.AutoIncrement()
	}
	if a.AllowNull {
		b.Nillable()
	}
	if a.Comment != "" {
		b.Comment(a.Comment)
	}
	return b, nil
}

// buildModels turns model specs into linked schema models. Attributes are
// declared first so associations may reference models in any order.
func buildModels(specs []ModelSpec) (map[string]*schema.Model, error) {
	models := make(map[string]*schema.Model, len(specs))
	var errs []error
	for _, s := range specs {
		if s.Name == "" {
			errs = append(errs, errors.New("model without a name"))
			continue
		}
		if _, ok := models[s.Name]; ok {
			errs = append(errs, fmt.Errorf("duplicate model %q", s.Name))
			continue
		}
		table := s.Table
		if table == "" {
			table = s.Name
		}
		m := schema.NewModel(s.Name, table).InSchema(s.Schema)
		for _, name := range s.Mixins {
			mx, ok := mixins[name]
			if !ok {
				errs = append(errs, fmt.Errorf("model %q: unknown mixin %q", s.Name, name))
				continue
			}
			m.Mixin(mx)
		}
		for _, a := range s.Attributes {
			f, err := a.field()
			if err != nil {
				errs = append(errs, fmt.Errorf("model %q: %w", s.Name, err))
				continue
			}
			m.Fields(f)
		}
		for _, i := range s.Indexes {
			d, err := i.descriptor()
			if err != nil {
				errs = append(errs, fmt.Errorf("model %q: %w", s.Name, err))
				continue
			}
			m.Indexes(indexDescriptor{d})
		}
		models[s.Name] = m
	}
	for _, s := range specs {
		m, ok := models[s.Name]
		if !ok {
			continue
		}
		for _, a := range s.Associations {
			if err := associate(models, m, a); err != nil {
				errs = append(errs, fmt.Errorf("model %q: %w", s.Name, err))
			}
		}
	}
	for _, s := range specs {
		if m, ok := models[s.Name]; ok {
			if err := m.Err(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return models, nil
}

func associate(models map[string]*schema.Model, m *schema.Model, a AssociationSpec) error {
	target, ok := models[a.Target]
	if !ok {
		return fmt.Errorf("association %q: unknown target model %q", a.As, a.Target)
	}
	var assoc *schema.Association
	switch strings.ToLower(a.Kind) {
	case "belongsto":
		assoc = m.BelongsTo(a.As, target, a.ForeignKey)
	case "hasone":
		assoc = m.HasOne(a.As, target, a.ForeignKey)
	case "hasmany":
		assoc = m.HasMany(a.As, target, a.ForeignKey)
	case "belongstomany":
		through, ok := models[a.Through]
		if !ok {
			return fmt.Errorf("association %q: unknown through model %q", a.As, a.Through)
		}
		assoc = m.BelongsToMany(a.As, target, through, a.ForeignKey, a.OtherKey)
	default:
		return fmt.Errorf("association %q: unknown kind %q", a.As, a.Kind)
	}
	if a.SourceKey != "" {
		assoc.WithSourceKey(a.SourceKey)
	}
	if a.TargetKey != "" {
		assoc.WithTargetKey(a.TargetKey)
	}
	return nil
}

// indexDescriptor adapts a decoded descriptor to schema.Index.
type indexDescriptor struct{ d *index.Descriptor }

func (i indexDescriptor) Descriptor() *index.Descriptor { return i.d }
