package schema

import (
	"slices"
	"strings"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/dialect/sql"
)

// ConstraintType is the kind of a table constraint.
type ConstraintType string

// Constraint types.
const (
	Unique     ConstraintType = "UNIQUE"
	Check      ConstraintType = "CHECK"
	Default    ConstraintType = "DEFAULT"
	PrimaryKey ConstraintType = "PRIMARY KEY"
	ForeignKey ConstraintType = "FOREIGN KEY"
)

var constraintTypes = []ConstraintType{Unique, Check, Default, PrimaryKey, ForeignKey}

// suffix of generated constraint names, per type.
var constraintSuffix = map[ConstraintType]string{
	Unique:     "uk",
	Check:      "ck",
	Default:    "df",
	PrimaryKey: "pk",
	ForeignKey: "fk",
}

var referentialActions = []string{"CASCADE", "SET NULL", "SET DEFAULT", "RESTRICT", "NO ACTION"}

func validAction(a string) bool {
	return a == "" || slices.Contains(referentialActions, strings.ToUpper(a))
}

// Reference is the target of a foreign key.
type Reference struct {
	Table sql.TableRef
	Field string
}

// Constraint describes a table constraint.
type Constraint struct {
	Type ConstraintType
	// Name of the constraint. Derived from the table and fields when empty.
	Name   string
	Fields []string
	// Where is the condition of a CHECK constraint.
	Where any
	// Value is the default of a DEFAULT constraint.
	Value      any
	References *Reference
	OnDelete   string
	OnUpdate   string
	Deferrable *Deferrable
}

// ConstraintName returns the name AddConstraintQuery gives c.
func ConstraintName(table sql.TableRef, c *Constraint) string {
	if c.Name != "" {
		return c.Name
	}
	if c.Type == ForeignKey && c.References != nil {
		return deriveName(table, "", c.Fields, c.References.Table.Name, constraintSuffix[c.Type])
	}
	return deriveName(table, "", c.Fields, constraintSuffix[c.Type])
}

// AddConstraintQuery compiles ALTER TABLE ... ADD CONSTRAINT.
//
//	e.AddConstraintQuery(sql.Table("users"), &schema.Constraint{Type: schema.Unique, Fields: []string{"email"}})
//	// ALTER TABLE "users" ADD CONSTRAINT "users_email_uk" UNIQUE ("email");
func (e *Emitter) AddConstraintQuery(table sql.TableRef, c *Constraint) (string, error) {
	if err := ValidateConstraint(table, c).Err(); err != nil {
		return "", err
	}
	if !e.caps.AlterConstraint {
		return "", e.unsupported("add constraint", supporting(func(c dialect.Capabilities) bool { return c.AlterConstraint })...)
	}
	snippet, err := e.constraintSnippet(table, c)
	if err != nil {
		return "", err
	}
	return e.g.Log("add constraint", "ALTER TABLE "+e.quoteTable(table)+" ADD "+snippet+";"), nil
}

func (e *Emitter) constraintSnippet(table sql.TableRef, c *Constraint) (string, error) {
	var b strings.Builder
	b.WriteString("CONSTRAINT " + e.g.QuoteName(ConstraintName(table, c)) + " ")
	switch c.Type {
	case Unique, PrimaryKey:
		b.WriteString(string(c.Type) + " (" + e.quoteColumns(c.Fields) + ")")
	case Check:
		cond, err := e.g.WhereItemsQuery(c.Where, nil, "")
		if err != nil {
			return "", err
		}
		if cond == "" {
			return "", querygen.NewCompileError("constraint", "where", "empty CHECK condition")
		}
		b.WriteString("CHECK (" + cond + ")")
	case Default:
		if !e.caps.DefaultConstraint {
			return "", e.unsupported("default constraint", supporting(func(c dialect.Capabilities) bool { return c.DefaultConstraint })...)
		}
		v, err := e.g.Escape(c.Value)
		if err != nil {
			return "", err
		}
		b.WriteString("DEFAULT (" + v + ") FOR " + e.g.QuoteName(c.Fields[0]))
	case ForeignKey:
		ref := c.References
		b.WriteString("FOREIGN KEY (" + e.quoteColumns(c.Fields) + ") REFERENCES " + e.quoteTable(ref.Table) + " (" + e.g.QuoteName(ref.Field) + ")")
		if c.OnDelete != "" {
			b.WriteString(" ON DELETE " + strings.ToUpper(c.OnDelete))
		}
		if c.OnUpdate != "" {
			b.WriteString(" ON UPDATE " + strings.ToUpper(c.OnUpdate))
		}
	}
	if c.Deferrable != nil {
		if !e.caps.Deferrable {
			return "", e.unsupported("deferrable constraint", supporting(func(c dialect.Capabilities) bool { return c.Deferrable })...)
		}
		b.WriteString(" " + c.Deferrable.clause())
	}
	return b.String(), nil
}

// RemoveConstraintQuery compiles ALTER TABLE ... DROP CONSTRAINT.
func (e *Emitter) RemoveConstraintQuery(table sql.TableRef, name string) (string, error) {
	if table.Name == "" || name == "" {
		return "", querygen.NewCompileError("constraint", "name", "missing table or constraint name")
	}
	if !e.caps.AlterConstraint {
		return "", e.unsupported("drop constraint", supporting(func(c dialect.Capabilities) bool { return c.AlterConstraint })...)
	}
	return e.g.Log("remove constraint", "ALTER TABLE "+e.quoteTable(table)+" DROP CONSTRAINT "+e.g.QuoteName(name)+";"), nil
}

func (e *Emitter) quoteTable(t sql.TableRef) string {
	return e.g.QuoteTable(sql.TableRef{Name: t.Name, Schema: t.Schema, Delimiter: t.Delimiter})
}
