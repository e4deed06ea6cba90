package querylanguage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect/sql"
	sqlschema "github.com/syssam/querygen/dialect/sql/schema"
	"github.com/syssam/querygen/schema"
	"github.com/syssam/querygen/schema/index"
)

// Operation is one entry of a descriptor file. Exactly one statement key
// is set besides the optional name.
type Operation struct {
	Name string `yaml:"name"`

	Select           *SelectSpec           `yaml:"select"`
	Insert           *InsertSpec           `yaml:"insert"`
	Update           *UpdateSpec           `yaml:"update"`
	Increment        *ArithmeticSpec       `yaml:"increment"`
	Decrement        *ArithmeticSpec       `yaml:"decrement"`
	Delete           *DeleteSpec           `yaml:"delete"`
	Truncate         *TruncateSpec         `yaml:"truncate"`
	AddIndex         *AddIndexSpec         `yaml:"addIndex"`
	RemoveIndex      *RemoveIndexSpec      `yaml:"removeIndex"`
	AddConstraint    *ConstraintSpec       `yaml:"addConstraint"`
	RemoveConstraint *RemoveConstraintSpec `yaml:"removeConstraint"`
	RenameTable      *RenameTableSpec      `yaml:"renameTable"`
	DropTable        *DropTableSpec        `yaml:"dropTable"`
	DescribeTable    *Target               `yaml:"describeTable"`
	ShowIndexes      *Target               `yaml:"showIndexes"`
	Transaction      *TransactionSpec      `yaml:"transaction"`

	models map[string]*schema.Model
}

// Statement is a compiled operation.
type Statement struct {
	Name string
	Op   querygen.Op
	SQL  string
}

// keys returns the statement keys set on the operation.
func (o *Operation) keys() []string {
	var keys []string
	for _, k := range []struct {
		key string
		set bool
	}{
		{"select", o.Select != nil},
		{"insert", o.Insert != nil},
		{"update", o.Update != nil},
		{"increment", o.Increment != nil},
		{"decrement", o.Decrement != nil},
		{"delete", o.Delete != nil},
		{"truncate", o.Truncate != nil},
		{"addIndex", o.AddIndex != nil},
		{"removeIndex", o.RemoveIndex != nil},
		{"addConstraint", o.AddConstraint != nil},
		{"removeConstraint", o.RemoveConstraint != nil},
		{"renameTable", o.RenameTable != nil},
		{"dropTable", o.DropTable != nil},
		{"describeTable", o.DescribeTable != nil},
		{"showIndexes", o.ShowIndexes != nil},
		{"transaction", o.Transaction != nil},
	} {
		if k.set {
			keys = append(keys, k.key)
		}
	}
	return keys
}

func (o *Operation) validate() error {
	switch keys := o.keys(); len(keys) {
	case 0:
		return errors.New("no statement key")
	case 1:
		return nil
	default:
		return fmt.Errorf("several statement keys: %s", strings.Join(keys, ", "))
	}
}

// Kind returns the statement key of the operation.
func (o *Operation) Kind() string {
	if keys := o.keys(); len(keys) > 0 {
		return keys[0]
	}
	return ""
}

// Op returns the kind of statement the operation compiles to.
func (o *Operation) Op() querygen.Op {
	switch {
	case o.Select != nil, o.DescribeTable != nil, o.ShowIndexes != nil:
		return querygen.OpSelect
	case o.Insert != nil:
		return querygen.OpInsert
	case o.Update != nil, o.Increment != nil, o.Decrement != nil:
		return querygen.OpUpdate
	case o.Delete != nil:
		return querygen.OpDelete
	case o.Truncate != nil:
		return querygen.OpTruncate
	case o.Transaction != nil:
		return querygen.OpTx
	}
	return querygen.OpDDL
}

// Table returns the name of the table the operation works on, or "" for
// transaction control.
func (o *Operation) Table() string {
	var t *Target
	switch {
	case o.Select != nil:
		t = &o.Select.Target
	case o.Insert != nil:
		t = &o.Insert.Target
	case o.Update != nil:
		t = &o.Update.Target
	case o.Increment != nil:
		t = &o.Increment.Target
	case o.Decrement != nil:
		t = &o.Decrement.Target
	case o.Delete != nil:
		t = &o.Delete.Target
	case o.Truncate != nil:
		t = &o.Truncate.Target
	case o.AddIndex != nil:
		t = &o.AddIndex.Target
	case o.RemoveIndex != nil:
		t = &o.RemoveIndex.Target
	case o.AddConstraint != nil:
		t = &o.AddConstraint.Target
	case o.RemoveConstraint != nil:
		t = &o.RemoveConstraint.Target
	case o.RenameTable != nil:
		t = &o.RenameTable.Target
	case o.DropTable != nil:
		t = &o.DropTable.Target
	case o.DescribeTable != nil:
		t = o.DescribeTable
	case o.ShowIndexes != nil:
		t = o.ShowIndexes
	default:
		return ""
	}
	return t.name(o.models)
}

// Filtered reports whether the rows the operation touches are restricted
// by a condition. Inserts, DDL and transaction control are never filtered.
func (o *Operation) Filtered() bool {
	switch {
	case o.Select != nil:
		return !o.Select.Where.IsZero()
	case o.Update != nil:
		return !o.Update.Where.IsZero()
	case o.Increment != nil:
		return !o.Increment.Where.IsZero()
	case o.Decrement != nil:
		return !o.Decrement.Where.IsZero()
	case o.Delete != nil:
		return !o.Delete.Where.IsZero()
	}
	return false
}

// compiler holds the per-document compilation state.
type compiler struct {
	g      *sql.Generator
	e      *sqlschema.Emitter
	models map[string]*schema.Model
	tx     txState
}

func (c *compiler) compile(o *Operation) (string, error) {
	if err := o.validate(); err != nil {
		return "", err
	}
	switch {
	case o.Select != nil:
		s := o.Select
		table, model, err := s.resolve(c.models)
		if err != nil {
			return "", err
		}
		opts, err := s.options(c.models)
		if err != nil {
			return "", err
		}
		return c.g.SelectQuery(table, opts, model)
	case o.Insert != nil:
		s := o.Insert
		table, model, err := s.resolve(c.models)
		if err != nil {
			return "", err
		}
		rows, bulk, err := s.rows()
		if err != nil {
			return "", err
		}
		if bulk {
			return c.g.BulkInsertQuery(table, rows, s.options(), model)
		}
		return c.g.InsertQuery(table, s.Values.V, model, s.options())
	case o.Update != nil:
		s := o.Update
		table, model, err := s.resolve(c.models)
		if err != nil {
			return "", err
		}
		return c.g.UpdateQuery(table, s.Set.V, s.Where.V, s.options(), model)
	case o.Increment != nil:
		return c.arithmetic("+", o.Increment)
	case o.Decrement != nil:
		return c.arithmetic("-", o.Decrement)
	case o.Delete != nil:
		s := o.Delete
		table, model, err := s.resolve(c.models)
		if err != nil {
			return "", err
		}
		return c.g.DeleteQuery(table, s.Where.V, &sql.DeleteOptions{Limit: s.Limit}, model)
	case o.Truncate != nil:
		s := o.Truncate
		table, _, err := s.resolve(c.models)
		if err != nil {
			return "", err
		}
		return c.g.TruncateQuery(table, &sql.TruncateOptions{Cascade: s.Cascade, RestartIdentity: s.RestartIdentity})
	case o.Transaction != nil:
		return c.tx.compile(c.e, o.Transaction)
	}
	return c.ddl(o)
}

func (c *compiler) arithmetic(op string, s *ArithmeticSpec) (string, error) {
	table, _, err := s.resolve(c.models)
	if err != nil {
		return "", err
	}
	return c.g.ArithmeticQuery(op, table, s.Where.V, s.By.V, s.Set.V, s.options())
}

func (c *compiler) ddl(o *Operation) (string, error) {
	switch {
	case o.AddIndex != nil:
		return c.addIndex(o.AddIndex)
	case o.RemoveIndex != nil:
		s := o.RemoveIndex
		table, _, err := s.resolve(c.models)
		if err != nil {
			return "", err
		}
		return c.e.RemoveIndexQuery(table, s.nameOrFields(), &sqlschema.RemoveIndexOptions{Concurrently: s.Concurrently})
	case o.AddConstraint != nil:
		return c.addConstraint(o.AddConstraint)
	case o.RemoveConstraint != nil:
		s := o.RemoveConstraint
		table, _, err := s.resolve(c.models)
		if err != nil {
			return "", err
		}
		return c.e.RemoveConstraintQuery(table, s.Name)
	case o.RenameTable != nil:
		s := o.RenameTable
		from, _, err := s.resolve(c.models)
		if err != nil {
			return "", err
		}
		if s.To == "" {
			return "", errors.New("renameTable: missing target name")
		}
		return c.e.RenameTableQuery(from, sql.Table(s.To).InSchema(from.Schema))
	case o.DropTable != nil:
		s := o.DropTable
		table, _, err := s.resolve(c.models)
		if err != nil {
			return "", err
		}
		return c.e.DropTableQuery(table, &sqlschema.DropTableOptions{Cascade: s.Cascade})
	case o.DescribeTable != nil:
		table, _, err := o.DescribeTable.resolve(c.models)
		if err != nil {
			return "", err
		}
		return c.e.DescribeTableQuery(table)
	case o.ShowIndexes != nil:
		table, _, err := o.ShowIndexes.resolve(c.models)
		if err != nil {
			return "", err
		}
		return c.e.ShowIndexesQuery(table)
	}
	return "", errors.New("no statement key")
}

// addIndex emits the inline index, or every index of the model joined by
// newlines when none is given.
func (c *compiler) addIndex(s *AddIndexSpec) (string, error) {
	table, model, err := s.resolve(c.models)
	if err != nil {
		return "", err
	}
	var descs []*index.Descriptor
	if len(s.Fields) > 0 {
		d, err := s.descriptor()
		if err != nil {
			return "", err
		}
		descs = append(descs, d)
	} else if model != nil {
		descs = model.IndexDescriptors()
	}
	if len(descs) == 0 {
		return "", querygen.NewCompileError("index", "fields", "no index to add")
	}
	queries := make([]string, 0, len(descs))
	for _, d := range descs {
		q, err := c.e.AddIndexQuery(table, d)
		if err != nil {
			return "", err
		}
		queries = append(queries, q)
	}
	return strings.Join(queries, "\n"), nil
}

func (c *compiler) addConstraint(s *ConstraintSpec) (string, error) {
	table, _, err := s.resolve(c.models)
	if err != nil {
		return "", err
	}
	typ, ok := constraintTypes[strings.ToLower(strings.ReplaceAll(s.Type, " ", ""))]
	if !ok {
		return "", querygen.NewCompileError("constraint", "type", "unknown constraint type %q", s.Type)
	}
	d, err := s.Deferrable.deferrable()
	if err != nil {
		return "", err
	}
	con := &sqlschema.Constraint{
		Type:       typ,
		Name:       s.Name,
		Fields:     s.Fields,
		Where:      s.Where.V,
		Value:      s.Value.V,
		OnDelete:   s.OnDelete,
		OnUpdate:   s.OnUpdate,
		Deferrable: d,
	}
	if r := s.References; r != nil {
		ref, _, err := r.resolve(c.models)
		if err != nil {
			return "", fmt.Errorf("references: %w", err)
		}
		con.References = &sqlschema.Reference{Table: ref, Field: r.Field}
	}
	return c.e.AddConstraintQuery(table, con)
}
