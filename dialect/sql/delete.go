package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/schema"
)

// DeleteOptions configures DeleteQuery.
type DeleteOptions struct {
	// Limit caps the number of deleted rows. Ignored when zero.
	Limit int
}

// DeleteQuery compiles a DELETE. On dialects without a native row limit
// the limit is applied to a primary key subquery, which needs a model.
//
//	g.DeleteQuery(sql.Table("users"), sql.M("id", 2), nil, users)
//	// DELETE FROM "users" WHERE "id" = 2;
func (g *Generator) DeleteQuery(table TableRef, where any, opts *DeleteOptions, model *schema.Model) (string, error) {
	if opts == nil {
		opts = &DeleteOptions{}
	}
	quoted := g.QuoteTable(table)
	cond, err := g.whereConditions(normalize(where), whereOpts{model: model})
	if err != nil {
		return "", err
	}
	var whereClause string
	if cond != "" {
		whereClause = " WHERE " + cond
	}
	var query string
	switch {
	case opts.Limit <= 0:
		query = "DELETE FROM " + quoted + whereClause + ";"
	case g.caps.DeleteLimit == dialect.RowLimitSubquery:
		if model == nil {
			return "", querygen.NewCompileError("delete", "limit", "cannot limit a delete without a model")
		}
		pks := model.PrimaryKeys()
		cols := make([]string, len(pks))
		for i, pk := range pks {
			cols[i] = g.QuoteName(pk.Field)
		}
		if len(cols) == 0 {
			cols = []string{g.QuoteName(model.PrimaryKeyField())}
		}
		sel := strings.Join(cols, ",")
		target := sel
		if len(cols) > 1 {
			target = "(" + sel + ")"
		}
		query = "DELETE FROM " + quoted + " WHERE " + target + " IN (SELECT " + sel + " FROM " + quoted +
			whereClause + " LIMIT " + strconv.Itoa(opts.Limit) + ");"
	default:
		top, limit, err := g.rowLimit(g.caps.DeleteLimit, opts.Limit, "delete")
		if err != nil {
			return "", err
		}
		query = "DELETE" + top + " FROM " + quoted + whereClause + limit + ";"
	}
	return g.logged("delete", query), nil
}

// TruncateOptions configures TruncateQuery.
type TruncateOptions struct {
	Cascade         bool
	RestartIdentity bool
}

// TruncateQuery empties a table. SQLite has no TRUNCATE and deletes every
// row instead, resetting the sequence when RestartIdentity is set.
func (g *Generator) TruncateQuery(table TableRef, opts *TruncateOptions) (string, error) {
	if opts == nil {
		opts = &TruncateOptions{}
	}
	quoted := g.QuoteTable(table)
	if opts.Cascade && !g.caps.TruncateCascade {
		return "", querygen.NewCapabilityError("truncate cascade", g.caps.Name, dialect.Postgres)
	}
	var b strings.Builder
	switch {
	case !g.caps.Truncate:
		b.WriteString("DELETE FROM " + quoted)
		if opts.RestartIdentity {
			b.WriteString("; DELETE FROM " + g.QuoteName("sqlite_sequence") + " WHERE " + g.QuoteName("name") +
				" = " + g.quoteString(table.Name))
		}
	case g.caps.TruncateTable:
		b.WriteString("TRUNCATE TABLE " + quoted)
	default:
		b.WriteString("TRUNCATE " + quoted)
		if opts.RestartIdentity && g.caps.TruncateCascade {
			b.WriteString(" RESTART IDENTITY")
		}
		if opts.Cascade {
			b.WriteString(" CASCADE")
		}
	}
	b.WriteString(";")
	return g.logged("truncate", b.String()), nil
}
