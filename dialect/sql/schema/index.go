package schema

import (
	"strconv"
	"strings"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/dialect/sql"
	"github.com/syssam/querygen/schema/index"
)

// IndexName returns the name AddIndexQuery gives d: its storage key, or
// one derived from the prefix (the table by default) and the field names.
func (e *Emitter) IndexName(table sql.TableRef, d *index.Descriptor) string {
	if d.StorageKey != "" {
		return d.StorageKey
	}
	return deriveName(table, d.Prefix, d.FieldNames())
}

// AddIndexQuery compiles a CREATE INDEX statement, or ALTER TABLE ... ADD
// INDEX on dialects that create indexes through ALTER.
//
//	e.AddIndexQuery(sql.Table("users"), index.Fields("firstName").Descriptor())
//	// CREATE INDEX "users_first_name" ON "users" ("firstName");
func (e *Emitter) AddIndexQuery(table sql.TableRef, d *index.Descriptor) (string, error) {
	if err := e.ValidateIndex(table, d).Err(); err != nil {
		return "", err
	}
	ic := e.caps.Index
	kind, err := e.indexKind(d)
	if err != nil {
		return "", err
	}
	fields := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		if fields[i], err = e.indexField(f, d.Operator); err != nil {
			return "", err
		}
	}
	quoted := e.quoteTable(table)
	using := strings.ToUpper(d.Using)
	if using != "" && ic.Using == 0 {
		return "", e.unsupported("index method", supporting(func(c dialect.Capabilities) bool { return c.Index.Using != 0 })...)
	}

	parts := make([]string, 0, 12)
	if ic.ViaAlter {
		parts = append(parts, "ALTER TABLE "+quoted+" ADD")
	} else {
		parts = append(parts, "CREATE")
	}
	if kind != "" {
		parts = append(parts, kind)
	}
	parts = append(parts, "INDEX")
	if d.Concurrently {
		if !ic.Concurrently {
			return "", e.unsupported("concurrent index", supporting(func(c dialect.Capabilities) bool { return c.Index.Concurrently })...)
		}
		parts = append(parts, "CONCURRENTLY")
	}
	parts = append(parts, e.g.QuoteName(e.IndexName(table, d)))
	if using != "" && ic.Using == 1 {
		parts = append(parts, "USING "+using)
	}
	if !ic.ViaAlter {
		parts = append(parts, "ON "+quoted)
	}
	if using != "" && ic.Using == 2 {
		parts = append(parts, "USING "+using)
	}
	parts = append(parts, "("+strings.Join(fields, ", ")+")")
	if d.Parser != "" {
		if !ic.Parser {
			return "", e.unsupported("index parser", supporting(func(c dialect.Capabilities) bool { return c.Index.Parser })...)
		}
		parts = append(parts, "WITH PARSER "+d.Parser)
	}
	if len(d.Include) > 0 {
		if !ic.Include {
			return "", e.unsupported("index include", supporting(func(c dialect.Capabilities) bool { return c.Index.Include })...)
		}
		parts = append(parts, "INCLUDE ("+e.quoteColumns(d.Include)+")")
	}
	if d.Where != nil {
		if !ic.Where {
			return "", e.unsupported("partial index", supporting(func(c dialect.Capabilities) bool { return c.Index.Where })...)
		}
		w, err := e.g.WhereQuery(d.Where, nil)
		if err != nil {
			return "", err
		}
		if w != "" {
			parts = append(parts, w)
		}
	}
	return e.g.Log("add index", strings.Join(parts, " ")+";"), nil
}

func (e *Emitter) indexKind(d *index.Descriptor) (string, error) {
	typ := strings.ToUpper(d.Type)
	switch {
	case typ == "" && d.Unique, typ == "UNIQUE":
		return "UNIQUE", nil
	case typ == "":
		return "", nil
	case !e.caps.Index.Type:
		return "", e.unsupported("index type "+typ, supporting(func(c dialect.Capabilities) bool { return c.Index.Type })...)
	case d.Unique:
		return "", querygen.NewCompileError("index", "type", "a %s index cannot be unique", typ)
	default:
		return typ, nil
	}
}

func (e *Emitter) indexField(f index.Field, operator string) (string, error) {
	ic := e.caps.Index
	var b strings.Builder
	if f.Expr != nil {
		expr, err := e.g.Escape(f.Expr)
		if err != nil {
			return "", err
		}
		b.WriteString("(" + expr + ")")
	} else {
		b.WriteString(e.g.QuoteName(f.Name))
	}
	if f.Collate != "" {
		if !ic.Collate {
			return "", e.unsupported("index collation", supporting(func(c dialect.Capabilities) bool { return c.Index.Collate })...)
		}
		b.WriteString(" COLLATE " + e.g.QuoteName(f.Collate))
	}
	if f.Operator != "" {
		operator = f.Operator
	}
	if operator != "" {
		if !ic.Operator {
			return "", e.unsupported("operator class", supporting(func(c dialect.Capabilities) bool { return c.Index.Operator })...)
		}
		b.WriteString(" " + operator)
	}
	if f.Length > 0 {
		if !ic.Length {
			return "", e.unsupported("index prefix length", supporting(func(c dialect.Capabilities) bool { return c.Index.Length })...)
		}
		b.WriteString("(" + strconv.Itoa(f.Length) + ")")
	}
	if f.Order != "" {
		b.WriteString(" " + strings.ToUpper(f.Order))
	}
	return b.String(), nil
}

// RemoveIndexOptions configures RemoveIndexQuery.
type RemoveIndexOptions struct {
	Concurrently bool
}

// RemoveIndexQuery compiles a DROP INDEX statement. A single element of
// nameOrFields is the index name. Several elements are the indexed fields
// and the name is derived from them as in AddIndexQuery.
func (e *Emitter) RemoveIndexQuery(table sql.TableRef, nameOrFields []string, opts *RemoveIndexOptions) (string, error) {
	if opts == nil {
		opts = &RemoveIndexOptions{}
	}
	var name string
	switch len(nameOrFields) {
	case 0:
		return "", querygen.NewCompileError("index", "name", "missing index name or fields")
	case 1:
		name = nameOrFields[0]
	default:
		name = deriveName(table, "", nameOrFields)
	}
	if opts.Concurrently && !e.caps.Index.Concurrently {
		return "", e.unsupported("concurrent index", supporting(func(c dialect.Capabilities) bool { return c.Index.Concurrently })...)
	}
	var query string
	switch e.caps.DropIndex {
	case dialect.DropIndexOnTable:
		if table.Name == "" {
			return "", querygen.NewCompileError("index", "table", "missing table name")
		}
		query = "DROP INDEX " + e.g.QuoteName(name) + " ON " + e.quoteTable(table)
	default:
		query = "DROP INDEX "
		if opts.Concurrently {
			query += "CONCURRENTLY "
		}
		query += "IF EXISTS "
		if table.Schema != "" && e.caps.Schemas {
			query += e.g.QuoteName(table.Schema) + "."
		}
		query += e.g.QuoteName(name)
	}
	return e.g.Log("remove index", query+";"), nil
}
