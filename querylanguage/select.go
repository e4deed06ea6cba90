package querylanguage

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/querygen/dialect/sql"
	"github.com/syssam/querygen/schema"
)

// Target names the table an operation works on, either through a declared
// model or directly.
type Target struct {
	Model  string `yaml:"model"`
	Table  string `yaml:"table"`
	Schema string `yaml:"schema"`
}

// resolve returns the table reference and the model, if any.
func (t Target) resolve(models map[string]*schema.Model) (sql.TableRef, *schema.Model, error) {
	if t.Model != "" {
		m, ok := models[t.Model]
		if !ok {
			return sql.TableRef{}, nil, fmt.Errorf("unknown model %q", t.Model)
		}
		ref := sql.ModelTable(m)
		if t.Schema != "" {
			ref = ref.InSchema(t.Schema)
		}
		return ref, m, nil
	}
	if t.Table == "" {
		return sql.TableRef{}, nil, fmt.Errorf("either model or table is required")
	}
	return sql.Table(t.Table).InSchema(t.Schema), nil, nil
}

// name returns the table name for policy checks and logging.
func (t Target) name(models map[string]*schema.Model) string {
	if m, ok := models[t.Model]; ok {
		return m.Table
	}
	if t.Table != "" {
		return t.Table
	}
	return t.Model
}

// SelectSpec describes a SELECT.
type SelectSpec struct {
	Target                  `yaml:",inline"`
	As                      string            `yaml:"as"`
	Attributes              []Value           `yaml:"attributes"`
	Where                   Value             `yaml:"where"`
	Include                 []IncludeSpec     `yaml:"include"`
	Order                   []OrderSpec       `yaml:"order"`
	Group                   []Value           `yaml:"group"`
	Having                  Value             `yaml:"having"`
	Limit                   int               `yaml:"limit"`
	Offset                  int               `yaml:"offset"`
	Lock                    *LockSpec         `yaml:"lock"`
	SubQuery                *bool             `yaml:"subQuery"`
	GroupedLimit            *GroupedLimitSpec `yaml:"groupedLimit"`
	IndexHints              []IndexHintSpec   `yaml:"indexHints"`
	TableHint               string            `yaml:"tableHint"`
	IgnoreIncludeAttributes bool              `yaml:"ignoreIncludeAttributes"`
}

// IncludeSpec eager-loads an association.
type IncludeSpec struct {
	As          string        `yaml:"as"`
	Model       string        `yaml:"model"`
	Required    bool          `yaml:"required"`
	Right       bool          `yaml:"right"`
	Where       Value         `yaml:"where"`
	Or          bool          `yaml:"or"`
	On          Value         `yaml:"on"`
	Attributes  []Value       `yaml:"attributes"`
	Through     *ThroughSpec  `yaml:"through"`
	Include     []IncludeSpec `yaml:"include"`
	Separate    bool          `yaml:"separate"`
	SubQuery    *bool         `yaml:"subQuery"`
	Duplicating *bool         `yaml:"duplicating"`
}

// ThroughSpec configures the join model of a belongsToMany include.
type ThroughSpec struct {
	Attributes []Value `yaml:"attributes"`
	Where      Value   `yaml:"where"`
}

// OrderSpec is one ORDER BY term. It is written as a column name, as a
// sequence of association aliases ending with a column and an optional
// direction, or as a mapping.
//
//	order: [id, [posts, title, DESC], {expr: !fn [random]}]
type OrderSpec struct {
	Path      []string `yaml:"path"`
	Column    string   `yaml:"column"`
	Expr      Value    `yaml:"expr"`
	Direction string   `yaml:"direction"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (o *OrderSpec) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		o.Column = n.Value
		return nil
	case yaml.SequenceNode:
		var parts []string
		if err := n.Decode(&parts); err != nil {
			return err
		}
		if len(parts) == 0 {
			return nodeErrorf(n, "empty order term")
		}
		if len(parts) > 1 && isDirection(parts[len(parts)-1]) {
			o.Direction = parts[len(parts)-1]
			parts = parts[:len(parts)-1]
		}
		o.Column = parts[len(parts)-1]
		o.Path = parts[:len(parts)-1]
		return nil
	}
	type plain OrderSpec
	return n.Decode((*plain)(o))
}

func isDirection(s string) bool {
	fields := strings.Fields(strings.ToUpper(s))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "ASC", "DESC", "NULLS":
		return true
	}
	return false
}

// LockSpec requests a row lock.
type LockSpec struct {
	Level      string `yaml:"level"`
	Of         string `yaml:"of"`
	SkipLocked bool   `yaml:"skipLocked"`
}

// GroupedLimitSpec selects the first rows per value of On.
type GroupedLimitSpec struct {
	On     string `yaml:"on"`
	Values Value  `yaml:"values"`
	Limit  int    `yaml:"limit"`
}

// IndexHintSpec is a MySQL index hint.
type IndexHintSpec struct {
	Type   string   `yaml:"type"`
	Values []string `yaml:"values"`
}

var lockLevels = map[string]sql.LockLevel{
	"update":      sql.LockUpdate,
	"share":       sql.LockShare,
	"keyshare":    sql.LockKeyShare,
	"nokeyupdate": sql.LockNoKeyUpdate,
}

var hintTypes = map[string]sql.IndexHintType{
	"use":    sql.UseIndex,
	"force":  sql.ForceIndex,
	"ignore": sql.IgnoreIndex,
}

func (s *SelectSpec) options(models map[string]*schema.Model) (*sql.SelectOptions, error) {
	attrs, err := attributes(s.Attributes)
	if err != nil {
		return nil, err
	}
	incs, err := includes(s.Include, models)
	if err != nil {
		return nil, err
	}
	opts := &sql.SelectOptions{
		Attributes:              attrs,
		Where:                   s.Where.V,
		Include:                 incs,
		Having:                  s.Having.V,
		Limit:                   s.Limit,
		Offset:                  s.Offset,
		TableAs:                 s.As,
		SubQuery:                s.SubQuery,
		TableHint:               s.TableHint,
		IgnoreIncludeAttributes: s.IgnoreIncludeAttributes,
	}
	for _, o := range s.Order {
		var expr sql.Expr
		if !o.Expr.IsZero() {
			e, ok := o.Expr.V.(sql.Expr)
			if !ok {
				return nil, fmt.Errorf("order expression must be tagged, got %T", o.Expr.V)
			}
			expr = e
		}
		opts.Order = append(opts.Order, sql.Order{Path: o.Path, Column: o.Column, Expr: expr, Direction: o.Direction})
	}
	for _, g := range s.Group {
		opts.Group = append(opts.Group, groupTerm(g.V))
	}
	if l := s.Lock; l != nil {
		level, ok := lockLevels[strings.ToLower(strings.ReplaceAll(l.Level, " ", ""))]
		if !ok && l.Level != "" {
			return nil, fmt.Errorf("unknown lock level %q", l.Level)
		}
		lock := &sql.Lock{Level: level, SkipLocked: l.SkipLocked}
		if l.Of != "" {
			m, ok := models[l.Of]
			if !ok {
				return nil, fmt.Errorf("lock: unknown model %q", l.Of)
			}
			lock.Of = m
		}
		opts.Lock = lock
	}
	if gl := s.GroupedLimit; gl != nil {
		values, _ := gl.Values.V.([]any)
		opts.GroupedLimit = &sql.GroupedLimit{On: gl.On, Values: values, Limit: gl.Limit}
	}
	for _, h := range s.IndexHints {
		typ, ok := hintTypes[strings.ToLower(h.Type)]
		if !ok {
			return nil, fmt.Errorf("unknown index hint type %q", h.Type)
		}
		opts.IndexHints = append(opts.IndexHints, sql.IndexHint{Type: typ, Values: h.Values})
	}
	return opts, nil
}

// attributes converts decoded attribute entries. A two element sequence
// whose second element is a string is an aliased attribute.
func attributes(vs []Value) ([]any, error) {
	if vs == nil {
		return nil, nil
	}
	attrs := make([]any, 0, len(vs))
	for _, v := range vs {
		switch x := v.V.(type) {
		case string, sql.Expr:
			attrs = append(attrs, x)
		case []any:
			if len(x) != 2 {
				return nil, fmt.Errorf("aliased attribute must be [column or expression, alias]")
			}
			alias, ok := x[1].(string)
			if !ok {
				return nil, fmt.Errorf("attribute alias must be a string, got %T", x[1])
			}
			attrs = append(attrs, sql.As(x[0], alias))
		default:
			return nil, fmt.Errorf("unsupported attribute %v (%T)", x, x)
		}
	}
	return attrs, nil
}

// groupTerm turns a sequence of strings into an association path.
func groupTerm(v any) any {
	l, ok := v.([]any)
	if !ok {
		return v
	}
	path := make([]string, 0, len(l))
	for _, x := range l {
		s, ok := x.(string)
		if !ok {
			return v
		}
		path = append(path, s)
	}
	return path
}

func includes(specs []IncludeSpec, models map[string]*schema.Model) ([]*sql.Include, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	incs := make([]*sql.Include, 0, len(specs))
	for _, s := range specs {
		inc, err := s.include(models)
		if err != nil {
			return nil, err
		}
		incs = append(incs, inc)
	}
	return incs, nil
}

func (s IncludeSpec) include(models map[string]*schema.Model) (*sql.Include, error) {
	attrs, err := attributes(s.Attributes)
	if err != nil {
		return nil, fmt.Errorf("include %q: %w", s.As, err)
	}
	children, err := includes(s.Include, models)
	if err != nil {
		return nil, err
	}
	inc := &sql.Include{
		As:          s.As,
		Required:    s.Required,
		Right:       s.Right,
		Where:       s.Where.V,
		Or:          s.Or,
		On:          s.On.V,
		Attributes:  attrs,
		Include:     children,
		Separate:    s.Separate,
		SubQuery:    s.SubQuery,
		Duplicating: s.Duplicating,
	}
	if s.Model != "" {
		m, ok := models[s.Model]
		if !ok {
			return nil, fmt.Errorf("include: unknown model %q", s.Model)
		}
		inc.Model = m
	}
	if s.Through != nil {
		tattrs, err := attributes(s.Through.Attributes)
		if err != nil {
			return nil, fmt.Errorf("include %q through: %w", s.As, err)
		}
		inc.Through = &sql.Through{Attributes: tattrs, Where: s.Through.Where.V}
	}
	return inc, nil
}
