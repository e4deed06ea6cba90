package sql

import (
	"slices"
	"strings"

	"github.com/syssam/querygen"
)

// Expr is an expression wrapper. Wrappers are opaque to the predicate
// compiler: they render as SQL instead of being escaped as data.
//
// The set of wrappers is closed; it is implemented by Literal, FnExpr,
// ColExpr, CastExpr, JSONExpr and WhereExpr.
type Expr interface {
	expr()
}

// Literal is a verbatim SQL fragment. It is the only way to pass
// caller-written SQL through the compilers.
type Literal struct {
	SQL string
}

// FnExpr is a function call.
type FnExpr struct {
	Name string
	Args []any
}

// ColExpr references a column. Dotted names address columns of joined
// associations.
type ColExpr struct {
	Name string
}

// CastExpr converts a value to a SQL type.
type CastExpr struct {
	Value any
	Type  string
}

// JSONExpr extracts a path from a JSON column, or matches a set of path
// conditions.
type JSONExpr struct {
	Path       string // column.path.to.key
	Value      any    // compared with "=" when not nil.
	Conditions Map    // path conditions; used instead of Path when set.
}

// WhereExpr compares an attribute or expression with a value.
type WhereExpr struct {
	Attribute  any // column name or Expr.
	Comparator string
	Logic      any
}

func (Literal) expr()   {}
func (FnExpr) expr()    {}
func (ColExpr) expr()   {}
func (CastExpr) expr()  {}
func (JSONExpr) expr()  {}
func (WhereExpr) expr() {}

// Lit returns a verbatim SQL fragment.
func Lit(sql string) Literal { return Literal{SQL: sql} }

// Fn returns a function call expression.
//
//	sql.Fn("lower", sql.Col("email"))
func Fn(name string, args ...any) FnExpr { return FnExpr{Name: name, Args: args} }

// Col returns a column reference.
func Col(name string) ColExpr { return ColExpr{Name: name} }

// Cast returns a CAST expression.
func Cast(v any, typ string) CastExpr { return CastExpr{Value: v, Type: typ} }

// JSON returns a JSON path extraction, compared with value unless it is
// nil.
//
//	sql.JSON("meta.address.city", "Paris")
func JSON(path string, value any) JSONExpr { return JSONExpr{Path: path, Value: value} }

// JSONWhere returns a conjunction of JSON path conditions, given as a
// possibly nested mapping whose first level names the column.
func JSONWhere(conditions any) JSONExpr {
	m, _ := normalize(conditions).(Map)
	return JSONExpr{Conditions: m}
}

// Where returns a comparison wrapper. comparator is an operator token
// ("gt") or its SQL spelling (">").
func Where(attr any, comparator string, logic any) WhereExpr {
	return WhereExpr{Attribute: attr, Comparator: comparator, Logic: logic}
}

func (g *Generator) renderExpr(e Expr) (string, error) {
	switch e := e.(type) {
	case Literal:
		return e.SQL, nil
	case FnExpr:
		return g.renderFn(e)
	case ColExpr:
		if strings.HasPrefix(e.Name, "*") {
			return "*", nil
		}
		return g.quotePath(e.Name), nil
	case CastExpr:
		if err := checkCast(e.Type); err != nil {
			return "", err
		}
		var (
			s   string
			err error
		)
		switch v := normalize(e.Value).(type) {
		case Expr:
			s, err = g.renderExpr(v)
		case Map:
			s, err = g.whereItems(v, whereOpts{}, " AND ")
		default:
			s, err = g.Escape(v)
		}
		if err != nil {
			return "", err
		}
		return "CAST(" + s + " AS " + strings.ToUpper(e.Type) + ")", nil
	case JSONExpr:
		return g.renderJSON(e)
	case WhereExpr:
		return g.renderWhere(e)
	}
	return "", querygen.NewCompileError("expression", "", "unknown expression %T", e)
}

func (g *Generator) renderFn(e FnExpr) (string, error) {
	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		var (
			s   string
			err error
		)
		switch v := normalize(arg).(type) {
		case Expr:
			s, err = g.renderExpr(v)
		case Map:
			s, err = g.whereItems(v, whereOpts{}, " AND ")
		default:
			s, err = g.Escape(v)
		}
		if err != nil {
			return "", err
		}
		args[i] = s
	}
	return e.Name + "(" + strings.Join(args, ", ") + ")", nil
}

func (g *Generator) renderJSON(e JSONExpr) (string, error) {
	if len(e.Conditions) > 0 {
		var conds []string
		var walk func(m Map, path []string) error
		walk = func(m Map, path []string) error {
			for _, p := range m {
				cur := append(slices.Clone(path), p.Key)
				if sub, ok := p.Value.(Map); ok {
					if err := walk(sub, cur); err != nil {
						return err
					}
					continue
				}
				lhs, err := g.jsonPath(g.QuoteName(cur[0]), cur[1:], false)
				if err != nil {
					return err
				}
				rhs, err := g.Escape(p.Value)
				if err != nil {
					return err
				}
				conds = append(conds, lhs+" = "+rhs)
			}
			return nil
		}
		if err := walk(e.Conditions, nil); err != nil {
			return "", err
		}
		return strings.Join(conds, " AND "), nil
	}
	if e.Path == "" {
		return "", querygen.NewCompileError("expression", "", "json expression without a path")
	}
	parts := strings.Split(e.Path, ".")
	s, err := g.jsonPath(g.QuoteName(parts[0]), parts[1:], false)
	if err != nil {
		return "", err
	}
	if e.Value != nil {
		v, err := g.Escape(e.Value)
		if err != nil {
			return "", err
		}
		s += " = " + v
	}
	return s, nil
}

// comparator resolves a WhereExpr comparator: an operator token or one
// of the known spellings.
func (g *Generator) comparator(c string) (string, error) {
	if isOp(unalias(c)) {
		return g.Operator(Op(unalias(c)))
	}
	c = strings.ToUpper(strings.TrimSpace(c))
	for _, s := range operatorMap {
		if strings.TrimSpace(s) == c {
			return c, nil
		}
	}
	return "", querygen.NewCompileError("where", c, "unknown comparator")
}

func (g *Generator) renderWhere(e WhereExpr) (string, error) {
	var key itemKey
	switch a := e.Attribute.(type) {
	case Expr:
		s, err := g.renderExpr(a)
		if err != nil {
			return "", err
		}
		key = itemKey{sql: s}
	case string:
		key = itemKey{sql: g.QuoteIdentifier(a)}
	default:
		return "", querygen.NewCompileError("where", "", "attribute must be a column name or an expression, got %T", e.Attribute)
	}
	cmp, err := g.comparator(e.Comparator)
	if err != nil {
		return "", err
	}
	var value string
	switch v := normalize(e.Logic).(type) {
	case Map:
		return g.whereItem(key, v, whereOpts{})
	case Expr:
		if value, err = g.renderExpr(v); err != nil {
			return "", err
		}
	case []any:
		if cmp == "BETWEEN" || cmp == "NOT BETWEEN" {
			if len(v) != 2 {
				return "", querygen.NewCompileError("where", key.sql, "%s expects exactly two values", cmp)
			}
			lo, err := g.Escape(v[0])
			if err != nil {
				return "", err
			}
			hi, err := g.Escape(v[1])
			if err != nil {
				return "", err
			}
			value = lo + " AND " + hi
			break
		}
		if value, err = g.Escape(v); err != nil {
			return "", err
		}
	default:
		if value, err = g.Escape(v); err != nil {
			return "", err
		}
	}
	if value == "NULL" {
		switch cmp {
		case "=":
			cmp = "IS"
		case "!=":
			cmp = "IS NOT"
		}
	}
	return key.sql + " " + cmp + " " + value, nil
}
