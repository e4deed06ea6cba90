package querylanguage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/syssam/querygen/dialect/sql"
)

// Local tags understood in condition and value positions.
const (
	tagCol  = "!col"  // column reference: !col posts.id
	tagLit  = "!lit"  // literal SQL: !lit NOW()
	tagFn   = "!fn"   // function call: !fn [lower, !col email]
	tagCast = "!cast" // cast: !cast [value, integer]
	tagUUID = "!uuid"
)

// Value is a YAML value decoded into the shapes the compiler accepts.
// Mappings become sql.Map in document order, sequences []any and scalars
// their natural Go type.
type Value struct {
	V any
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	x, err := decodeNode(n)
	if err != nil {
		return err
	}
	v.V = x
	return nil
}

// IsZero reports whether the value was absent or null.
func (v Value) IsZero() bool { return v.V == nil }

// Decode decodes a YAML document into the shapes described on Value.
func Decode(data []byte) (any, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return decodeNode(&n)
}

func decodeNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return decodeNode(n.Content[0])
	case yaml.AliasNode:
		return decodeNode(n.Alias)
	case yaml.MappingNode:
		return decodeMapping(n)
	case yaml.SequenceNode:
		return decodeSequence(n)
	case yaml.ScalarNode:
		return decodeScalar(n)
	}
	return nil, nodeErrorf(n, "unexpected node kind %d", n.Kind)
}

func decodeMapping(n *yaml.Node) (sql.Map, error) {
	m := make(sql.Map, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, vn := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, nodeErrorf(k, "mapping keys must be scalars")
		}
		v, err := decodeNode(vn)
		if err != nil {
			return nil, err
		}
		m = append(m, sql.Pair{Key: k.Value, Value: v})
	}
	return m, nil
}

func decodeSequence(n *yaml.Node) (any, error) {
	items := make([]any, 0, len(n.Content))
	for _, c := range n.Content {
		v, err := decodeNode(c)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	switch n.Tag {
	case tagFn:
		if len(items) == 0 {
			return nil, nodeErrorf(n, "%s needs a function name", tagFn)
		}
		name, ok := items[0].(string)
		if !ok {
			return nil, nodeErrorf(n, "%s name must be a string", tagFn)
		}
		return sql.Fn(name, items[1:]...), nil
	case tagCast:
		if len(items) != 2 {
			return nil, nodeErrorf(n, "%s takes a value and a type", tagCast)
		}
		typ, ok := items[1].(string)
		if !ok {
			return nil, nodeErrorf(n, "%s type must be a string", tagCast)
		}
		return sql.Cast(items[0], typ), nil
	}
	return items, nil
}

func decodeScalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case tagCol:
		return sql.Col(n.Value), nil
	case tagLit:
		return sql.Lit(n.Value), nil
	case tagUUID:
		id, err := uuid.Parse(n.Value)
		if err != nil {
			return nil, nodeErrorf(n, "invalid uuid %q", n.Value)
		}
		return id, nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return nil, err
		}
		return t, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func nodeErrorf(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: %s", n.Line, fmt.Sprintf(format, args...))
}
