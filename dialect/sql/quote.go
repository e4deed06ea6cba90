package sql

import (
	"strings"

	"github.com/syssam/querygen/schema"
)

// TableRef names a table, optionally inside a schema and under an alias.
type TableRef struct {
	Name      string
	Schema    string
	Delimiter string // joins schema and name on dialects without schemas; defaults to ".".
	Alias     string
}

// Table returns a reference to the named table.
func Table(name string) TableRef {
	return TableRef{Name: name}
}

// ModelTable returns a reference to the table of m.
func ModelTable(m *schema.Model) TableRef {
	return TableRef{Name: m.Table, Schema: m.Schema, Delimiter: m.Delimiter}
}

// InSchema returns a copy of t placed in the given schema.
func (t TableRef) InSchema(s string) TableRef {
	t.Schema = s
	return t
}

// As returns a copy of t with an alias.
func (t TableRef) As(alias string) TableRef {
	t.Alias = alias
	return t
}

// QuoteName wraps a single identifier segment in the dialect quote
// characters, removing any quote characters it already contains. The star
// is never quoted.
func (g *Generator) QuoteName(name string) string {
	if name == "*" {
		return name
	}
	name = strings.ReplaceAll(name, g.caps.QuoteOpen, "")
	if g.caps.QuoteClose != g.caps.QuoteOpen {
		name = strings.ReplaceAll(name, g.caps.QuoteClose, "")
	}
	return g.caps.QuoteOpen + name + g.caps.QuoteClose
}

// QuoteIdentifier quotes a dotted identifier segment by segment, so that
// "schema.table" becomes "schema"."table".
func (g *Generator) QuoteIdentifier(id string) string {
	if !strings.Contains(id, ".") {
		return g.QuoteName(id)
	}
	parts := strings.Split(id, ".")
	for i, p := range parts {
		parts[i] = g.QuoteName(p)
	}
	return strings.Join(parts, ".")
}

// quotePath quotes a column path where all segments but the last name a
// chain of nested include aliases: "posts.comments.id" becomes
// "posts->comments"."id".
func (g *Generator) quotePath(path string) string {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return g.QuoteName(path)
	}
	head := strings.ReplaceAll(path[:i], ".", "->")
	return g.QuoteName(head) + "." + g.QuoteName(path[i+1:])
}

// QuoteTable quotes a table reference. Schema-qualified names are quoted
// as two identifiers on dialects with schemas, and as one identifier joined
// by the delimiter elsewhere.
func (g *Generator) QuoteTable(t TableRef) string {
	var b strings.Builder
	switch {
	case t.Schema == "":
		b.WriteString(g.QuoteName(t.Name))
	case g.caps.Schemas:
		b.WriteString(g.QuoteName(t.Schema))
		b.WriteByte('.')
		b.WriteString(g.QuoteName(t.Name))
	default:
		delim := t.Delimiter
		if delim == "" {
			delim = "."
		}
		b.WriteString(g.QuoteName(t.Schema + delim + t.Name))
	}
	if t.Alias != "" {
		b.WriteString(" AS ")
		b.WriteString(g.QuoteName(t.Alias))
	}
	return b.String()
}
