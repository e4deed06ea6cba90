package sql

import (
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/schema"
)

// SelectOptions describes a SELECT statement.
type SelectOptions struct {
	// Attributes lists the selected columns: attribute or column names,
	// Attr pairs and expressions. Nil selects every column.
	Attributes []any
	Where      any
	Include    []*Include
	Order      []Order
	// Group lists GROUP BY terms: column names, expressions, or []string
	// association paths whose last element is the column.
	Group  []any
	Having any
	// Limit and Offset are ignored when zero.
	Limit  int
	Offset int
	Lock   *Lock
	// TableAs aliases the main table.
	TableAs string
	// SubQuery forces or disables the limited subquery used when a limit
	// is combined with fan-out includes.
	SubQuery     *bool
	GroupedLimit *GroupedLimit
	IndexHints   []IndexHint
	// TableHint is an MSSQL table hint such as "NOLOCK".
	TableHint string
	// IgnoreIncludeAttributes joins includes without selecting their
	// columns.
	IgnoreIncludeAttributes bool
}

// Attr selects a column or an expression under an alias.
type Attr struct {
	Column string
	Expr   Expr
	As     string
}

// As returns an aliased attribute. v is a column name or an Expr.
func As(v any, alias string) Attr {
	if e, ok := v.(Expr); ok {
		return Attr{Expr: e, As: alias}
	}
	s, _ := v.(string)
	return Attr{Column: s, As: alias}
}

// Order is an ORDER BY term.
type Order struct {
	// Path lists association aliases leading from the main model to the
	// model owning Column.
	Path      []string
	Column    string
	Expr      Expr
	Direction string
}

// Asc orders by column ascending.
func Asc(column string) Order { return Order{Column: column, Direction: "ASC"} }

// Desc orders by column descending.
func Desc(column string) Order { return Order{Column: column, Direction: "DESC"} }

// LockLevel is the strength of a row lock.
type LockLevel int

// Lock levels.
const (
	LockUpdate LockLevel = iota
	LockShare
	LockKeyShare
	LockNoKeyUpdate
)

// Lock requests a row-locking clause.
type Lock struct {
	Level      LockLevel
	Of         *schema.Model
	SkipLocked bool
}

// GroupedLimit selects the first Limit rows for every value of On.
type GroupedLimit struct {
	On     string
	Values []any
	Limit  int
}

// IndexHintType selects USE, FORCE or IGNORE INDEX.
type IndexHintType int

// Index hint types.
const (
	UseIndex IndexHintType = iota
	ForceIndex
	IgnoreIndex
)

// IndexHint is a MySQL index hint.
type IndexHint struct {
	Type   IndexHintType
	Values []string
}

var hintKeywords = map[IndexHintType]string{
	UseIndex:    "USE",
	ForceIndex:  "FORCE",
	IgnoreIndex: "IGNORE",
}

var tableHints = []string{
	"NOEXPAND", "FORCESCAN", "FORCESEEK", "HOLDLOCK", "NOLOCK", "NOWAIT",
	"PAGLOCK", "READCOMMITTED", "READCOMMITTEDLOCK", "READPAST",
	"READUNCOMMITTED", "REPEATABLEREAD", "ROWLOCK", "SERIALIZABLE",
	"SNAPSHOT", "TABLOCK", "TABLOCKX", "UPDLOCK", "XLOCK",
}

var orderDirections = []string{
	"ASC", "DESC",
	"ASC NULLS LAST", "DESC NULLS LAST",
	"ASC NULLS FIRST", "DESC NULLS FIRST",
	"NULLS FIRST", "NULLS LAST",
}

// selectPlan is the working state of one SelectQuery call.
type selectPlan struct {
	g           *Generator
	opts        *SelectOptions
	model       *schema.Model
	quotedTable string
	alias       string // unquoted main alias, empty when unaliased.
	prefix      string // quoted qualifier of main table columns.
	subQuery    bool
	hasIncludes bool
	renamed     map[string]string // column to alias, for renamed attributes.
	filters     []string
}

// SelectQuery compiles a SELECT statement.
//
//	g.SelectQuery(sql.Table("users"), &sql.SelectOptions{Where: sql.M("id", 5)}, users)
//	// SELECT * FROM "users" WHERE "users"."id" = 5;
func (g *Generator) SelectQuery(table TableRef, opts *SelectOptions, model *schema.Model) (string, error) {
	if opts == nil {
		opts = &SelectOptions{}
	}
	q, err := g.selectQuery(table, opts, model)
	if err != nil {
		return "", err
	}
	return g.logged("select", q), nil
}

func (g *Generator) selectQuery(table TableRef, opts *SelectOptions, model *schema.Model) (string, error) {
	if table.Name == "" && model != nil {
		table = ModelTable(model).As(table.Alias)
	}
	if table.Name == "" {
		return "", querygen.NewCompileError("select", "", "missing table")
	}
	p := &selectPlan{
		g:           g,
		opts:        opts,
		model:       model,
		quotedTable: g.QuoteTable(TableRef{Name: table.Name, Schema: table.Schema, Delimiter: table.Delimiter}),
		renamed:     make(map[string]string),
	}
	includes, err := p.planIncludes(nil, model, opts.Include)
	if err != nil {
		return "", err
	}
	p.hasIncludes = len(includes) > 0
	if opts.SubQuery != nil {
		p.subQuery = *opts.SubQuery
	} else if opts.Limit > 0 {
		p.subQuery = slices.ContainsFunc(includes, func(ip *includePlan) bool { return ip.hasDuplicating })
	}
	p.markSubQuery(includes, true)
	switch {
	case opts.TableAs != "":
		p.alias = opts.TableAs
	case table.Alias != "":
		p.alias = table.Alias
	case (p.hasIncludes || p.subQuery) && model != nil:
		p.alias = model.Name
	case p.hasIncludes || p.subQuery:
		p.alias = table.Name
	}
	p.prefix = p.quotedTable
	if p.alias != "" {
		p.prefix = g.QuoteName(p.alias)
	}

	mainAttrs, err := p.attributes(opts.Attributes)
	if err != nil {
		return "", err
	}
	if mainAttrs == nil {
		mainAttrs = []string{"*"}
		if p.hasIncludes {
			mainAttrs = []string{p.prefix + ".*"}
		}
	}
	var subAttrs []string
	if p.subQuery || opts.GroupedLimit != nil {
		subAttrs = mainAttrs
		if p.subQuery && opts.Attributes != nil {
			subAttrs = p.withPrimaryKey(subAttrs)
		}
		mainAttrs = []string{p.prefix + ".*"}
	}

	var mainJoins, subJoins strings.Builder
	for _, ip := range includes {
		jq, err := p.generateInclude(ip)
		if err != nil {
			return "", err
		}
		subJoins.WriteString(jq.sub)
		mainJoins.WriteString(jq.main)
		mainAttrs = appendUnique(mainAttrs, jq.mainAttrs...)
		subAttrs = p.appendSubAttrs(subAttrs, jq.subAttrs...)
	}

	var mainItems, subItems []string
	switch {
	case p.subQuery:
		from, err := p.fromFragment(subAttrs, p.quotedTable, p.alias)
		if err != nil {
			return "", err
		}
		subItems = append(subItems, from, subJoins.String())
	case opts.GroupedLimit != nil:
		from, err := p.groupedLimit(table, mainAttrs)
		if err != nil {
			return "", err
		}
		mainItems = append(mainItems, from, mainJoins.String())
	default:
		from, err := p.fromFragment(mainAttrs, p.quotedTable, p.alias)
		if err != nil {
			return "", err
		}
		mainItems = append(mainItems, from, mainJoins.String())
	}
	add := func(s string) {
		if p.subQuery {
			subItems = append(subItems, s)
		} else {
			mainItems = append(mainItems, s)
		}
	}

	if opts.GroupedLimit == nil {
		where, err := g.whereConditions(normalize(opts.Where), whereOpts{model: model, prefix: p.prefix})
		if err != nil {
			return "", err
		}
		if where = joinNonEmpty(append([]string{where}, p.filters...), " AND "); where != "" {
			add(" WHERE " + where)
		}
	}
	if len(opts.Group) > 0 {
		group, err := p.groupBy()
		if err != nil {
			return "", err
		}
		add(" GROUP BY " + group)
	}
	if opts.Having != nil {
		having, err := g.whereConditions(normalize(opts.Having), whereOpts{model: model})
		if err != nil {
			return "", err
		}
		if having != "" {
			add(" HAVING " + having)
		}
	}
	mainOrder, subOrder, err := p.orders()
	if err != nil {
		return "", err
	}
	if len(mainOrder) > 0 {
		mainItems = append(mainItems, " ORDER BY "+strings.Join(mainOrder, ", "))
	}
	if len(subOrder) > 0 {
		subItems = append(subItems, " ORDER BY "+strings.Join(subOrder, ", "))
	}
	if opts.GroupedLimit == nil {
		ordered := len(mainOrder) > 0
		if p.subQuery {
			ordered = len(subOrder) > 0
		}
		if limit := p.limitFragment(ordered); limit != "" {
			add(limit)
		}
	}

	var query string
	if p.subQuery {
		if len(mainAttrs) == 0 {
			return "", querygen.NewCompileError("select", p.alias, "no attributes selected")
		}
		query = "SELECT " + strings.Join(mainAttrs, ", ") + " FROM (" + strings.Join(subItems, "") + ") AS " +
			p.prefix + mainJoins.String() + strings.Join(mainItems, "")
	} else {
		query = strings.Join(mainItems, "")
	}
	return query + p.lockFragment() + ";", nil
}

// fromFragment renders SELECT attrs FROM tables [AS alias] with hints.
func (p *selectPlan) fromFragment(attrs []string, tables, alias string) (string, error) {
	g := p.g
	if len(attrs) == 0 {
		return "", querygen.NewCompileError("select", alias, "no attributes selected")
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(attrs, ", "))
	b.WriteString(" FROM ")
	b.WriteString(tables)
	if alias != "" {
		b.WriteString(" AS ")
		b.WriteString(g.QuoteName(alias))
	}
	if g.caps.IndexHints {
		for _, h := range p.opts.IndexHints {
			kw, ok := hintKeywords[h.Type]
			if !ok {
				return "", querygen.NewCompileError("select", "", "unknown index hint type %d", h.Type)
			}
			names := make([]string, len(h.Values))
			for i, v := range h.Values {
				names[i] = g.QuoteIdentifier(v)
			}
			b.WriteString(" " + kw + " INDEX (" + strings.Join(names, ", ") + ")")
		}
	}
	if hint := strings.ToUpper(p.opts.TableHint); hint != "" && g.caps.TableHints {
		if !slices.Contains(tableHints, hint) {
			return "", querygen.NewCompileError("select", hint, "unknown table hint")
		}
		b.WriteString(" WITH (" + hint + ")")
	}
	return b.String(), nil
}

// attributes renders the top-level attribute list.
func (p *selectPlan) attributes(attrs []any) ([]string, error) {
	if attrs == nil {
		return nil, nil
	}
	if len(attrs) == 0 {
		return nil, querygen.NewCompileError("select", "", "attributes must select at least one column")
	}
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		s, err := p.attribute(a)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (p *selectPlan) attribute(a any) (string, error) {
	g := p.g
	var col, alias string
	switch v := a.(type) {
	case string:
		col = v
		if attr, ok := p.model.Attribute(v); ok && attr.Field != v {
			col, alias = attr.Field, v
		}
	case Attr:
		if v.Expr != nil {
			s, err := g.renderExpr(v.Expr)
			if err != nil {
				return "", err
			}
			if v.As == "" {
				return s, nil
			}
			return s + " AS " + g.QuoteName(v.As), nil
		}
		col, alias = p.model.ColumnOf(v.Column), v.As
		if alias == col {
			alias = ""
		}
	case Expr:
		return g.renderExpr(v)
	default:
		return "", querygen.NewCompileError("select", "", "invalid attribute %v of type %T", a, a)
	}
	if strings.ContainsAny(col, "()") {
		return "", querygen.NewDeprecationError("raw SQL in attribute names", "sql.Lit or sql.Fn")
	}
	var s string
	switch {
	case col == "*":
		s = "*"
		if p.hasIncludes {
			s = p.prefix + ".*"
		}
	case strings.Contains(col, "."):
		s = g.QuoteIdentifier(col)
	case p.hasIncludes:
		s = p.prefix + "." + g.QuoteName(col)
	default:
		s = g.QuoteName(col)
	}
	if alias != "" {
		p.renamed[col] = alias
		s += " AS " + g.QuoteName(alias)
	}
	return s, nil
}

// withPrimaryKey makes sure the subquery selects the primary key.
func (p *selectPlan) withPrimaryKey(attrs []string) []string {
	if p.model == nil {
		return attrs
	}
	pk := p.model.PrimaryKeyField()
	for _, a := range p.opts.Attributes {
		switch v := a.(type) {
		case string:
			if p.model.ColumnOf(v) == pk {
				return attrs
			}
		case Attr:
			if v.Expr == nil && p.model.ColumnOf(v.Column) == pk {
				return attrs
			}
		}
	}
	s, err := p.attribute(p.model.PrimaryKeyAttribute())
	if err != nil {
		return attrs
	}
	return append([]string{s}, attrs...)
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		if !slices.Contains(list, item) {
			list = append(list, item)
		}
	}
	return list
}

// appendSubAttrs adds subquery attributes, skipping plain columns that a
// star selection of the same table already exposes.
func (p *selectPlan) appendSubAttrs(list []string, items ...string) []string {
	for _, item := range items {
		if i := strings.LastIndex(item, "."); i > 0 && !strings.Contains(item, " AS ") &&
			slices.Contains(list, item[:i]+".*") {
			continue
		}
		list = appendUnique(list, item)
	}
	return list
}

func (p *selectPlan) groupBy() (string, error) {
	g := p.g
	parts := make([]string, 0, len(p.opts.Group))
	for _, term := range p.opts.Group {
		switch v := term.(type) {
		case string:
			if strings.Contains(v, ".") {
				parts = append(parts, g.QuoteIdentifier(v))
			} else {
				parts = append(parts, g.QuoteName(p.model.ColumnOf(v)))
			}
		case []string:
			s, err := p.pathColumn(v[:len(v)-1], v[len(v)-1])
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		case Expr:
			s, err := g.renderExpr(v)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		default:
			return "", querygen.NewCompileError("group", "", "invalid group term %v of type %T", term, term)
		}
	}
	return strings.Join(parts, ", "), nil
}

// pathColumn quotes column of the model reached through the association
// aliases in path: "posts->comments"."col".
func (p *selectPlan) pathColumn(path []string, column string) (string, error) {
	if len(path) == 0 {
		return p.g.QuoteName(p.model.ColumnOf(column)), nil
	}
	m := p.model
	for _, as := range path {
		if m == nil {
			break
		}
		a, ok := m.Association(as)
		if !ok {
			return "", querygen.NewCompileError("order", as, "%s has no association named %q", m.Name, as)
		}
		m = a.Target
	}
	return p.g.QuoteName(strings.Join(path, "->")) + "." + p.g.QuoteName(m.ColumnOf(column)), nil
}

// orders splits ORDER BY terms between the main query and the subquery.
func (p *selectPlan) orders() (main, sub []string, err error) {
	for _, o := range p.opts.Order {
		if p.subQuery && len(o.Path) == 0 {
			s, err := p.orderTerm(o, false)
			if err != nil {
				return nil, nil, err
			}
			sub = append(sub, s)
		}
		s, err := p.orderTerm(o, p.subQuery)
		if err != nil {
			return nil, nil, err
		}
		main = append(main, s)
	}
	return main, sub, nil
}

func (p *selectPlan) orderTerm(o Order, outer bool) (string, error) {
	g := p.g
	dir := strings.ToUpper(strings.Join(strings.Fields(o.Direction), " "))
	if dir != "" && !slices.Contains(orderDirections, dir) {
		return "", querygen.NewCompileError("order", o.Direction, "invalid order direction, expected one of %s", strings.Join(orderDirections, ", "))
	}
	var s string
	switch {
	case o.Expr != nil:
		var err error
		if s, err = g.renderExpr(o.Expr); err != nil {
			return "", err
		}
	case o.Column == "":
		return "", querygen.NewCompileError("order", "", "order must be a list of order terms or a raw expression")
	case len(o.Path) > 0:
		var err error
		if s, err = p.pathColumn(o.Path, o.Column); err != nil {
			return "", err
		}
	case strings.Contains(o.Column, "."):
		s = g.quotePath(o.Column)
	default:
		col := p.model.ColumnOf(o.Column)
		if alias, ok := p.renamed[col]; ok && outer {
			col = alias
		}
		s = g.QuoteName(col)
		if p.model != nil || p.alias != "" {
			s = p.prefix + "." + s
		}
	}
	if dir != "" {
		s += " " + dir
	}
	return s, nil
}

// limitFragment renders LIMIT and OFFSET. ordered reports whether the
// same query part already carries an ORDER BY.
func (p *selectPlan) limitFragment(ordered bool) string {
	limit, offset := p.opts.Limit, p.opts.Offset
	if limit <= 0 && offset <= 0 {
		return ""
	}
	switch p.g.caps.Limit {
	case dialect.LimitComma:
		switch {
		case limit <= 0:
			return " LIMIT " + strconv.Itoa(offset) + ", 10000000000000"
		case offset > 0:
			return " LIMIT " + strconv.Itoa(offset) + ", " + strconv.Itoa(limit)
		}
		return " LIMIT " + strconv.Itoa(limit)
	case dialect.OffsetFetch:
		var b strings.Builder
		if !ordered {
			b.WriteString(" ORDER BY ")
			if p.model != nil {
				b.WriteString(p.prefix + "." + p.g.QuoteName(p.model.PrimaryKeyField()))
			} else {
				b.WriteString("(SELECT NULL)")
			}
		}
		b.WriteString(" OFFSET " + strconv.Itoa(max(offset, 0)) + " ROWS")
		if limit > 0 {
			b.WriteString(" FETCH NEXT " + strconv.Itoa(limit) + " ROWS ONLY")
		}
		return b.String()
	}
	var b strings.Builder
	if limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(limit))
	}
	if offset > 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(offset))
	}
	return b.String()
}

func (p *selectPlan) lockFragment() string {
	l, caps := p.opts.Lock, p.g.caps
	if l == nil || !caps.Lock {
		return ""
	}
	var s string
	switch {
	case caps.LockKey && l.Level == LockKeyShare:
		s = " FOR KEY SHARE"
	case caps.LockKey && l.Level == LockNoKeyUpdate:
		s = " FOR NO KEY UPDATE"
	case l.Level == LockShare:
		s = " " + caps.ForShare
	default:
		s = " FOR UPDATE"
	}
	if caps.LockOf && l.Of != nil {
		if l.Of == p.model {
			s += " OF " + p.prefix
		} else {
			s += " OF " + p.g.QuoteName(l.Of.Name)
		}
	}
	if caps.SkipLocked && l.SkipLocked {
		s += " SKIP LOCKED"
	}
	return s
}

// groupedLimit renders the UNION of one limited select per group value.
// The base select is compiled once with a placeholder predicate that is
// replaced by each group condition.
func (p *selectPlan) groupedLimit(table TableRef, mainAttrs []string) (string, error) {
	g, gl := p.g, p.opts.GroupedLimit
	if gl.On == "" || len(gl.Values) == 0 {
		return "", querygen.NewCompileError("select", "groupedLimit", "grouped limit needs a column and at least one value")
	}
	placeholder := Pair{Key: string(OpPlaceholder), Value: true}
	var where Map
	switch w := normalize(p.opts.Where).(type) {
	case nil:
		where = Map{placeholder}
	case Map:
		where = append(slices.Clone(w), placeholder)
	default:
		where = Map{{Key: string(OpAnd), Value: []any{w}}, placeholder}
	}
	inner, err := g.selectQuery(table, &SelectOptions{
		Attributes: p.opts.Attributes,
		Where:      where,
		Order:      p.opts.Order,
		Limit:      gl.Limit,
		Offset:     p.opts.Offset,
		TableAs:    p.opts.TableAs,
		IndexHints: p.opts.IndexHints,
		TableHint:  p.opts.TableHint,
	}, p.model)
	if err != nil {
		return "", err
	}
	base := "SELECT * FROM (" + strings.TrimSuffix(inner, ";") + ") AS sub"
	ph, err := g.whereItem(itemKey{name: string(OpPlaceholder)}, true, whereOpts{})
	if err != nil {
		return "", err
	}
	pos := strings.Index(base, ph)
	if pos < 0 {
		return "", querygen.NewCompileError("select", "groupedLimit", "placeholder not found in base query")
	}
	innerPrefix := p.quotedTable
	if alias := firstNonEmpty(p.opts.TableAs, table.Alias); alias != "" {
		innerPrefix = g.QuoteName(alias)
	}
	members := make([]string, len(gl.Values))
	for i, v := range gl.Values {
		cond, err := g.whereConditions(Map{{Key: gl.On, Value: normalize(v)}}, whereOpts{model: p.model, prefix: innerPrefix})
		if err != nil {
			return "", err
		}
		members[i] = base[:pos] + cond + base[pos+len(ph):]
	}
	union := " UNION "
	if g.caps.UnionAll {
		union = " UNION ALL "
	}
	alias := p.alias
	if alias == "" {
		alias = table.Name
	}
	return p.fromFragment(mainAttrs, "("+strings.Join(members, union)+")", alias)
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
