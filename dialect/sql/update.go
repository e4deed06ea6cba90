package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/schema"
)

// UpdateOptions configures UpdateQuery and ArithmeticQuery.
type UpdateOptions struct {
	ReturnOptions
	// Limit caps the number of updated rows. Ignored when zero.
	Limit int
}

// rowLimit renders the TOP(n) prefix or LIMIT n suffix of an UPDATE or
// DELETE.
func (g *Generator) rowLimit(style dialect.RowLimit, limit int, stmt string) (top, suffix string, err error) {
	if limit <= 0 {
		return "", "", nil
	}
	n := strconv.Itoa(limit)
	switch style {
	case dialect.RowLimitClause:
		return "", " LIMIT " + n, nil
	case dialect.RowLimitTop:
		return " TOP(" + n + ")", "", nil
	}
	return "", "", querygen.NewCapabilityError(stmt+" with a row limit", g.caps.Name, dialect.MySQL, dialect.MSSQL)
}

// UpdateQuery compiles an UPDATE. It returns "" when no assignment is
// left, e.g. when every key names an auto-increment column the dialect
// does not allow to update.
//
//	g.UpdateQuery(sql.Table("users"), sql.M("name", "bar"), sql.M("id", 2), nil, users)
//	// UPDATE "users" SET "name"='bar' WHERE "id" = 2;
func (g *Generator) UpdateQuery(table TableRef, values, where any, opts *UpdateOptions, model *schema.Model) (string, error) {
	if opts == nil {
		opts = &UpdateOptions{}
	}
	m, err := g.valueMap(values)
	if err != nil {
		return "", err
	}
	sets := make([]string, 0, len(m))
	for _, p := range m {
		attr, _ := model.Resolve(p.Key)
		if attr != nil && attr.AutoIncrement && !g.caps.AutoIncrementUpdate {
			continue
		}
		v, err := g.EscapeFor(p.Value, attr)
		if err != nil {
			return "", err
		}
		sets = append(sets, g.QuoteName(model.ColumnOf(p.Key))+"="+v)
	}
	if len(sets) == 0 {
		return "", nil
	}
	return g.update("update", table, sets, where, opts, model)
}

// ArithmeticQuery compiles an atomic counter update: every column of
// increments becomes "c"="c"<op> amount, extra holds plain assignments.
// op is "+" or "-". Without options the updated rows are returned.
func (g *Generator) ArithmeticQuery(op string, table TableRef, where, increments, extra any, opts *UpdateOptions) (string, error) {
	if op != "+" && op != "-" {
		return "", querygen.NewCompileError("update", op, "arithmetic operator must be + or -")
	}
	if opts == nil {
		opts = &UpdateOptions{ReturnOptions: ReturnOptions{Returning: true}}
	}
	inc, err := g.valueMap(increments)
	if err != nil {
		return "", err
	}
	plain, err := g.valueMap(extra)
	if err != nil {
		return "", err
	}
	sets := make([]string, 0, len(inc)+len(plain))
	for _, p := range inc {
		col := g.QuoteIdentifier(p.Key)
		v, err := g.Escape(p.Value)
		if err != nil {
			return "", err
		}
		sets = append(sets, col+"="+col+op+" "+v)
	}
	for _, p := range plain {
		v, err := g.Escape(p.Value)
		if err != nil {
			return "", err
		}
		sets = append(sets, g.QuoteIdentifier(p.Key)+"="+v)
	}
	if len(sets) == 0 {
		return "", nil
	}
	return g.update("arithmetic update", table, sets, where, opts, nil)
}

func (g *Generator) update(kind string, table TableRef, sets []string, where any, opts *UpdateOptions, model *schema.Model) (string, error) {
	top, limit, err := g.rowLimit(g.caps.UpdateLimit, opts.Limit, "update")
	if err != nil {
		return "", err
	}
	ret, err := g.returnValues(opts.ReturnOptions, model)
	if err != nil {
		return "", err
	}
	cond, err := g.whereConditions(normalize(where), whereOpts{model: model})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(ret.tmpTable + "UPDATE" + top + " " + g.QuoteTable(table) + " SET " + strings.Join(sets, ",") + ret.output)
	if cond != "" {
		b.WriteString(" WHERE " + cond)
	}
	b.WriteString(limit + ret.suffix + ";")
	return g.logged(kind, b.String()), nil
}
