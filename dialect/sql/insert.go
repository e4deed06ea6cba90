package sql

import (
	"slices"
	"strings"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/schema"
	"github.com/syssam/querygen/schema/field"
)

// ReturnOptions asks a DML statement to hand back the written rows.
type ReturnOptions struct {
	// Returning returns every stored model column, or * without a model.
	Returning bool
	// ReturnColumns restricts the returned columns. Setting it implies
	// Returning.
	ReturnColumns []string
	// HasTrigger captures OUTPUT rows in a table variable, which MSSQL
	// requires when the table has triggers.
	HasTrigger bool
}

func (o ReturnOptions) wanted() bool {
	return o.Returning || len(o.ReturnColumns) > 0
}

// InsertOptions configures InsertQuery and BulkInsertQuery.
type InsertOptions struct {
	ReturnOptions
	// IgnoreDuplicates skips rows violating a unique constraint.
	IgnoreDuplicates bool
	// UpdateOnDuplicate lists the columns refreshed from the incoming row
	// when it collides with an existing one.
	UpdateOnDuplicate []string
	// UpsertKeys is the conflict target. Defaults to the primary keys.
	UpsertKeys []string
	// ConflictWhere restricts the conflict target to a partial index.
	ConflictWhere any
}

// returning holds the rendered pieces of a RETURNING or OUTPUT request.
type returning struct {
	output   string // after the column list or SET.
	suffix   string // at the end of the statement.
	tmpTable string // before the statement.
}

func (g *Generator) returnValues(opts ReturnOptions, model *schema.Model) (returning, error) {
	var r returning
	if !opts.wanted() || g.caps.Returning == dialect.ReturnNone {
		return r, nil
	}
	var (
		fields []string
		types  []string
	)
	switch {
	case len(opts.ReturnColumns) > 0:
		for _, c := range opts.ReturnColumns {
			fields = append(fields, g.QuoteIdentifier(model.ColumnOf(c)))
			if a, ok := model.Resolve(c); ok {
				types = append(types, a.Type.SQL(g.caps.Name))
			} else {
				types = append(types, "")
			}
		}
	case model != nil:
		for _, a := range model.Attributes() {
			if field.IsVirtual(a.Type) {
				continue
			}
			fields = append(fields, g.QuoteName(a.Field))
			types = append(types, a.Type.SQL(g.caps.Name))
		}
	}
	if len(fields) == 0 {
		fields = []string{"*"}
	}
	switch g.caps.Returning {
	case dialect.ReturnReturning:
		r.suffix = " RETURNING " + strings.Join(fields, ",")
	case dialect.ReturnOutput:
		inserted := make([]string, len(fields))
		for i, f := range fields {
			inserted[i] = "INSERTED." + f
		}
		r.output = " OUTPUT " + strings.Join(inserted, ",")
		if opts.HasTrigger && g.caps.TmpTableTrigger {
			if slices.Contains(types, "") || len(types) != len(fields) {
				return r, querygen.NewCompileError("returning", "", "capturing output rows needs the type of every returned column")
			}
			cols := make([]string, len(fields))
			for i, f := range fields {
				cols[i] = f + " " + types[i]
			}
			r.tmpTable = "DECLARE @tmp TABLE (" + strings.Join(cols, ",") + "); "
			r.output += " INTO @tmp"
			r.suffix = "; SELECT * FROM @tmp"
		}
	}
	return r, nil
}

// valueMap normalizes an INSERT or UPDATE value set. nil values are
// dropped when the generator omits nulls.
func (g *Generator) valueMap(values any) (Map, error) {
	var m Map
	switch v := normalize(values).(type) {
	case nil:
	case Map:
		m = v
	default:
		return nil, querygen.NewCompileError("values", "", "values must be a mapping, got %T", values)
	}
	if g.omitNull {
		m = slices.DeleteFunc(slices.Clone(m), func(p Pair) bool { return p.Value == nil })
	}
	return m, nil
}

func (g *Generator) onDuplicate(opts *InsertOptions, model *schema.Model) (string, error) {
	if len(opts.UpdateOnDuplicate) == 0 && opts.ConflictWhere == nil {
		return "", nil
	}
	clause := g.caps.UpdateOnDuplicate
	if clause == "" {
		return "", querygen.NewCapabilityError("update on duplicate", g.caps.Name, dialect.Postgres, dialect.MySQL, dialect.SQLite)
	}
	keys := opts.UpsertKeys
	if len(keys) == 0 && model != nil {
		for _, pk := range model.PrimaryKeys() {
			keys = append(keys, pk.Field)
		}
	}
	quote := func(c string) string { return g.QuoteIdentifier(model.ColumnOf(c)) }
	if strings.Contains(clause, "ON CONFLICT") {
		if len(keys) == 0 {
			return "", querygen.NewCompileError("insert", "upsertKeys", "ON CONFLICT needs conflict target columns")
		}
		if len(opts.UpdateOnDuplicate) == 0 {
			return "", querygen.NewCompileError("insert", "updateOnDuplicate", "no columns to update on conflict")
		}
		target := make([]string, len(keys))
		for i, k := range keys {
			target[i] = quote(k)
		}
		var b strings.Builder
		b.WriteString(" ON CONFLICT (" + strings.Join(target, ",") + ")")
		if opts.ConflictWhere != nil {
			w, err := g.WhereQuery(opts.ConflictWhere, &WhereOptions{Model: model})
			if err != nil {
				return "", err
			}
			if w != "" {
				b.WriteString(" " + w)
			}
		}
		sets := make([]string, len(opts.UpdateOnDuplicate))
		for i, c := range opts.UpdateOnDuplicate {
			sets[i] = quote(c) + "=EXCLUDED." + quote(c)
		}
		b.WriteString(" DO UPDATE SET " + strings.Join(sets, ","))
		return b.String(), nil
	}
	if opts.ConflictWhere != nil {
		return "", querygen.NewCapabilityError("conflict where", g.caps.Name, dialect.Postgres, dialect.SQLite)
	}
	sets := make([]string, 0, len(opts.UpdateOnDuplicate))
	for _, c := range opts.UpdateOnDuplicate {
		sets = append(sets, quote(c)+"=VALUES("+quote(c)+")")
	}
	if len(sets) == 0 {
		for _, k := range keys {
			sets = append(sets, quote(k)+"="+quote(k))
		}
	}
	if len(sets) == 0 {
		return "", querygen.NewCompileError("insert", "updateOnDuplicate",
			"no update values found for the ON DUPLICATE KEY UPDATE clause and no identifier columns to use instead")
	}
	return clause + " " + strings.Join(sets, ","), nil
}

// ignoreDuplicates returns the keyword spliced after INSERT and the
// statement suffix that skip duplicate rows.
func (g *Generator) ignoreDuplicates(opts *InsertOptions) (keyword, suffix string, err error) {
	if !opts.IgnoreDuplicates {
		return "", "", nil
	}
	if g.caps.Ignore == "" && g.caps.OnConflictDoNothing == "" {
		return "", "", querygen.NewCapabilityError("ignore duplicates", g.caps.Name, dialect.Postgres, dialect.MySQL, dialect.SQLite)
	}
	return g.caps.Ignore, g.caps.OnConflictDoNothing, nil
}

// InsertQuery compiles a single-row INSERT.
//
//	g.InsertQuery(sql.Table("users"), sql.M("name", "foo"), users, nil)
//	// INSERT INTO "users" ("name") VALUES ('foo');
func (g *Generator) InsertQuery(table TableRef, values any, model *schema.Model, opts *InsertOptions) (string, error) {
	if opts == nil {
		opts = &InsertOptions{}
	}
	m, err := g.valueMap(values)
	if err != nil {
		return "", err
	}
	quoted := g.QuoteTable(table)
	ret, err := g.returnValues(opts.ReturnOptions, model)
	if err != nil {
		return "", err
	}
	var (
		fields, vals []string
		identity     bool
	)
	for _, p := range m {
		attr, _ := model.Resolve(p.Key)
		col := model.ColumnOf(p.Key)
		if attr != nil && attr.AutoIncrement {
			if p.Value == nil {
				switch {
				case !g.caps.AutoIncrementDefault:
				case g.caps.Default:
					fields = append(fields, g.QuoteName(col))
					vals = append(vals, "DEFAULT")
				default:
					fields = append(fields, g.QuoteName(col))
					vals = append(vals, "NULL")
				}
				continue
			}
			identity = true
		}
		v, err := g.EscapeFor(p.Value, attr)
		if err != nil {
			return "", err
		}
		fields = append(fields, g.QuoteName(col))
		vals = append(vals, v)
	}
	ignore, doNothing, err := g.ignoreDuplicates(opts)
	if err != nil {
		return "", err
	}
	onDup, err := g.onDuplicate(opts, model)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(ret.tmpTable + "INSERT" + ignore + " INTO " + quoted)
	switch {
	case len(fields) > 0:
		b.WriteString(" (" + strings.Join(fields, ",") + ")" + ret.output + " VALUES (" + strings.Join(vals, ",") + ")")
	case g.caps.DefaultValues:
		b.WriteString(ret.output + " DEFAULT VALUES")
	case g.caps.EmptyValues:
		b.WriteString(ret.output + " VALUES ()")
	default:
		return "", querygen.NewCapabilityError("insert without values", g.caps.Name, dialect.Postgres, dialect.MySQL, dialect.SQLite, dialect.MSSQL)
	}
	b.WriteString(onDup + doNothing + ret.suffix + ";")
	query := b.String()
	if identity && g.caps.IdentityInsert {
		query = "SET IDENTITY_INSERT " + quoted + " ON; " + query + " SET IDENTITY_INSERT " + quoted + " OFF;"
	}
	return g.logged("insert", query), nil
}

// BulkInsertQuery compiles a multi-row INSERT. The column list is the
// union of the row keys in first-seen order; rows missing a column insert
// NULL, or DEFAULT for auto-increment columns where the dialect allows it.
// Dialects with a VALUES row limit get one statement per batch.
func (g *Generator) BulkInsertQuery(table TableRef, rows []any, opts *InsertOptions, model *schema.Model) (string, error) {
	if opts == nil {
		opts = &InsertOptions{}
	}
	if len(rows) == 0 {
		return "", querygen.NewCompileError("insert", "", "bulk insert needs at least one row")
	}
	maps := make([]Map, len(rows))
	var keys []string
	for i, row := range rows {
		m, err := g.valueMap(row)
		if err != nil {
			return "", err
		}
		maps[i] = m
		for _, p := range m {
			if !slices.Contains(keys, p.Key) {
				keys = append(keys, p.Key)
			}
		}
	}
	quoted := g.QuoteTable(table)
	ret, err := g.returnValues(opts.ReturnOptions, model)
	if err != nil {
		return "", err
	}
	ignore, doNothing, err := g.ignoreDuplicates(opts)
	if err != nil {
		return "", err
	}
	onDup, err := g.onDuplicate(opts, model)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		stmts := make([]string, len(maps))
		for i := range maps {
			q, err := g.InsertQuery(table, nil, model, opts)
			if err != nil {
				return "", err
			}
			stmts[i] = q
		}
		return strings.Join(stmts, " "), nil
	}
	cols := make([]string, len(keys))
	attrs := make([]*schema.Attribute, len(keys))
	for i, k := range keys {
		cols[i] = g.QuoteName(model.ColumnOf(k))
		attrs[i], _ = model.Resolve(k)
	}
	identity := false
	tuples := make([]string, len(maps))
	for i, m := range maps {
		vals := make([]string, len(keys))
		for j, k := range keys {
			v, _ := m.Get(k)
			serial := attrs[j] != nil && attrs[j].AutoIncrement
			if serial && v == nil && g.caps.BulkDefault {
				vals[j] = "DEFAULT"
				continue
			}
			if serial && v != nil {
				identity = true
			}
			s, err := g.EscapeFor(v, attrs[j])
			if err != nil {
				return "", err
			}
			vals[j] = s
		}
		tuples[i] = "(" + strings.Join(vals, ",") + ")"
	}
	batch := len(tuples)
	if n := g.caps.MaxInsertRows; n > 0 && n < batch {
		batch = n
	}
	suffix := ret.suffix
	if ret.tmpTable != "" {
		suffix = ""
	}
	var stmts []string
	for start := 0; start < len(tuples); start += batch {
		chunk := tuples[start:min(start+batch, len(tuples))]
		stmts = append(stmts, "INSERT"+ignore+" INTO "+quoted+" ("+strings.Join(cols, ",")+")"+
			ret.output+" VALUES "+strings.Join(chunk, ",")+onDup+doNothing+suffix+";")
	}
	query := strings.Join(stmts, " ")
	if ret.tmpTable != "" {
		query = ret.tmpTable + query + " SELECT * FROM @tmp;"
	}
	if identity && g.caps.IdentityInsert {
		query = "SET IDENTITY_INSERT " + quoted + " ON; " + query + " SET IDENTITY_INSERT " + quoted + " OFF;"
	}
	return g.logged("bulk insert", query), nil
}
