package sql

import (
	"strings"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/schema"
	"github.com/syssam/querygen/schema/field"
)

// Include eager-loads an association with a JOIN.
type Include struct {
	// Association is the association to join. When nil it is looked up
	// on the parent model by Model and As.
	Association *schema.Association
	Model       *schema.Model
	As          string
	// Required turns the LEFT OUTER JOIN into an INNER JOIN.
	Required bool
	// Right requests a RIGHT OUTER JOIN where the dialect supports it.
	Right bool
	// Where is added to the join condition, with OR when Or is set.
	Where any
	Or    bool
	// On replaces the join condition.
	On any
	// Attributes lists the selected target columns. Nil selects all.
	Attributes []any
	Through    *Through
	Include    []*Include
	// Separate includes are loaded by a separate query and skipped here.
	Separate bool
	// SubQuery overrides the placement of the join relative to the
	// limited subquery.
	SubQuery *bool
	// Duplicating overrides whether the join can multiply parent rows.
	Duplicating *bool
}

// Through configures the join model of a BelongsToMany include.
type Through struct {
	Attributes []any
	Where      any
}

type includePlan struct {
	inc        *Include
	assoc      *schema.Association
	parent     *includePlan
	children   []*includePlan
	internalAs string // a->b, used as the SQL alias.
	externalAs string // a.b, prefixes the selected column aliases.

	duplicating    bool
	hasDuplicating bool
	hasRequired    bool
	subQuery       bool
	subQueryFilter bool
}

type joinQuery struct {
	main, sub          string
	mainAttrs, subAttrs []string
}

type join struct {
	keyword, body, cond string
	mainAttrs, subAttrs []string
}

func resolveInclude(model *schema.Model, inc *Include) (*schema.Association, error) {
	if inc.Association != nil {
		return inc.Association, nil
	}
	if model == nil {
		return nil, querygen.NewCompileError("include", inc.As, "include needs a parent model or an association")
	}
	if inc.Model != nil {
		a, err := model.AssociationFor(inc.Model, inc.As)
		if err != nil {
			return nil, querygen.NewCompileError("include", inc.As, "%v", err)
		}
		return a, nil
	}
	a, ok := model.Association(inc.As)
	if !ok {
		return nil, querygen.NewCompileError("include", inc.As, "%s has no association named %q", model.Name, inc.As)
	}
	return a, nil
}

// planIncludes resolves includes and computes the flags that drive join
// placement, children first.
func (p *selectPlan) planIncludes(parent *includePlan, model *schema.Model, incs []*Include) ([]*includePlan, error) {
	var plans []*includePlan
	for _, inc := range incs {
		if inc == nil || inc.Separate {
			continue
		}
		a, err := resolveInclude(model, inc)
		if err != nil {
			return nil, err
		}
		as := inc.As
		if as == "" {
			as = a.As
		}
		ip := &includePlan{inc: inc, assoc: a, parent: parent, internalAs: as, externalAs: as}
		if parent != nil {
			ip.internalAs = parent.internalAs + "->" + as
			ip.externalAs = parent.externalAs + "." + as
		}
		ip.duplicating = a.IsMulti()
		if inc.Duplicating != nil {
			ip.duplicating = *inc.Duplicating
		}
		if ip.children, err = p.planIncludes(ip, a.Target, inc.Include); err != nil {
			return nil, err
		}
		ip.hasRequired = inc.Required
		ip.hasDuplicating = ip.duplicating
		for _, c := range ip.children {
			ip.hasRequired = ip.hasRequired || c.hasRequired
			ip.hasDuplicating = ip.hasDuplicating || c.hasDuplicating
		}
		plans = append(plans, ip)
	}
	return plans, nil
}

// markSubQuery decides which joins go inside the limited subquery. Fan-out
// joins stay outside and filter the subquery with an EXISTS-like
// condition when required; required single-row joins go inside.
func (p *selectPlan) markSubQuery(plans []*includePlan, parentInSub bool) {
	for _, ip := range plans {
		override := ip.inc.SubQuery
		switch {
		case !p.subQuery || !parentInSub || (override != nil && !*override):
		case ip.duplicating:
			ip.subQuery = override != nil
			ip.subQueryFilter = ip.hasRequired
		default:
			ip.subQuery = ip.hasRequired || override != nil
		}
		p.markSubQuery(ip.children, ip.subQuery)
	}
}

// parentRef returns the quoted alias of the include's parent.
func (p *selectPlan) parentRef(ip *includePlan) string {
	if ip.parent == nil {
		return p.prefix
	}
	return p.g.QuoteName(ip.parent.internalAs)
}

func (p *selectPlan) parentInSub(ip *includePlan) bool {
	if ip.parent == nil {
		return p.subQuery
	}
	return ip.parent.subQuery
}

func (p *selectPlan) joinKeyword(inc *Include) string {
	switch {
	case inc.Required:
		return "INNER JOIN"
	case inc.Right && p.g.caps.RightJoin:
		return "RIGHT OUTER JOIN"
	}
	return "LEFT OUTER JOIN"
}

func (p *selectPlan) generateInclude(ip *includePlan) (*joinQuery, error) {
	jq := &joinQuery{}
	if !p.opts.IgnoreIncludeAttributes {
		attrs, err := p.includeAttributes(ip)
		if err != nil {
			return nil, err
		}
		if ip.subQuery && p.subQuery {
			jq.subAttrs = attrs
		} else {
			jq.mainAttrs = attrs
		}
	}
	var (
		j   *join
		err error
	)
	if ip.assoc.Kind == schema.BelongsToMany {
		j, err = p.throughJoin(ip)
	} else {
		j, err = p.join(ip)
	}
	if err != nil {
		return nil, err
	}
	if ip.subQueryFilter {
		if err := p.subQueryFilter(ip); err != nil {
			return nil, err
		}
	}
	jq.mainAttrs = append(jq.mainAttrs, j.mainAttrs...)
	jq.subAttrs = append(jq.subAttrs, j.subAttrs...)

	var mainChildren, subChildren strings.Builder
	mismatch := false
	for _, c := range ip.children {
		cj, err := p.generateInclude(c)
		if err != nil {
			return nil, err
		}
		if !ip.inc.Required && c.inc.Required {
			mismatch = true
		}
		if c.subQuery && p.subQuery {
			subChildren.WriteString(cj.sub)
		}
		mainChildren.WriteString(cj.main)
		jq.mainAttrs = append(jq.mainAttrs, cj.mainAttrs...)
		jq.subAttrs = append(jq.subAttrs, cj.subAttrs...)
	}
	render := func(children string) string {
		if mismatch && children != "" {
			return " " + j.keyword + " ( " + j.body + children + " ) ON " + j.cond
		}
		return " " + j.keyword + " " + j.body + " ON " + j.cond + children
	}
	if ip.subQuery && p.subQuery {
		jq.sub = render(subChildren.String())
		jq.main = mainChildren.String()
	} else {
		jq.main = render(mainChildren.String())
		jq.sub = subChildren.String()
	}
	return jq, nil
}

// includeAttributes renders the target columns of an include, aliased by
// their external path: "posts"."title" AS "posts.title".
func (p *selectPlan) includeAttributes(ip *includePlan) ([]string, error) {
	g, target := p.g, ip.assoc.Target
	attrs := ip.inc.Attributes
	if attrs == nil {
		attrs = modelAttributes(target)
	}
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		var col, as string
		switch v := a.(type) {
		case string:
			col, as = target.ColumnOf(v), v
		case Attr:
			if v.Expr != nil {
				s, err := g.renderExpr(v.Expr)
				if err != nil {
					return nil, err
				}
				out = append(out, s+" AS "+g.QuoteName(ip.externalAs+"."+v.As))
				continue
			}
			col, as = target.ColumnOf(v.Column), firstNonEmpty(v.As, v.Column)
		case Literal:
			out = append(out, v.SQL)
			continue
		case FnExpr, CastExpr:
			return nil, querygen.NewCompileError("include", ip.externalAs,
				"function and cast attributes of an include need an alias")
		case ColExpr:
			col, as = target.ColumnOf(v.Name), v.Name
		default:
			return nil, querygen.NewCompileError("include", ip.externalAs, "invalid attribute %v of type %T", a, a)
		}
		if strings.ContainsAny(col, "()") {
			return nil, querygen.NewDeprecationError("raw SQL in attribute names", "sql.Lit or sql.Fn")
		}
		out = append(out, g.QuoteName(ip.internalAs)+"."+g.QuoteName(col)+" AS "+g.QuoteName(ip.externalAs+"."+as))
	}
	return out, nil
}

// modelAttributes lists the stored attributes of m, renamed to their
// attribute names where the column differs.
func modelAttributes(m *schema.Model) []any {
	var attrs []any
	for _, a := range m.Attributes() {
		if field.IsVirtual(a.Type) {
			continue
		}
		attrs = append(attrs, Attr{Column: a.Field, As: a.Name})
	}
	return attrs
}

// sourceRef renders the parent side of a join condition. Inside a limited
// select, joins performed by the outer query read the parent column from
// the subquery, under its attribute name.
func (p *selectPlan) sourceRef(ip *includePlan, attr, column string) (string, []string) {
	g := p.g
	if !p.subQuery || !p.parentInSub(ip) || ip.subQuery {
		return p.parentRef(ip) + "." + g.QuoteName(column), nil
	}
	if ip.parent != nil {
		return g.QuoteName(ip.parent.externalAs + "." + attr), nil
	}
	db := p.prefix + "." + g.QuoteName(column)
	if attr == column {
		return db, []string{db}
	}
	return p.prefix + "." + g.QuoteName(attr), []string{db + " AS " + g.QuoteName(attr)}
}

func (p *selectPlan) join(ip *includePlan) (*join, error) {
	g, a, inc := p.g, ip.assoc, ip.inc
	var attrLeft, fieldLeft, fieldRight string
	if a.Kind == schema.BelongsTo {
		attrLeft, fieldLeft, fieldRight = a.Identifier(), a.IdentifierField(), a.TargetKeyField()
	} else {
		attrLeft, fieldLeft, fieldRight = a.SourceKeyAttribute(), a.SourceKeyField(), a.IdentifierField()
	}
	left, subAttrs := p.sourceRef(ip, attrLeft, fieldLeft)
	right := g.QuoteName(ip.internalAs)
	cond := left + " = " + right + "." + g.QuoteName(fieldRight)
	o := whereOpts{model: a.Target, prefix: right}
	if inc.On != nil {
		on, err := g.whereItems(normalize(inc.On), o, " AND ")
		if err != nil {
			return nil, err
		}
		cond = on
	}
	if inc.Where != nil {
		where, err := g.whereItems(normalize(inc.Where), o, " AND ")
		if err != nil {
			return nil, err
		}
		if where != "" {
			if inc.Or {
				cond += " OR " + where
			} else {
				cond += " AND " + where
			}
		}
	}
	return &join{
		keyword:  p.joinKeyword(inc),
		body:     g.QuoteTable(ModelTable(a.Target).As(ip.internalAs)),
		cond:     cond,
		subAttrs: subAttrs,
	}, nil
}

// throughJoin joins a BelongsToMany association through its join model.
func (p *selectPlan) throughJoin(ip *includePlan) (*join, error) {
	g, a, inc := p.g, ip.assoc, ip.inc
	through := a.Through
	if through == nil {
		return nil, querygen.NewCompileError("include", ip.externalAs, "association has no through model")
	}
	throughAs := ip.internalAs + "->" + through.Name
	j := &join{keyword: p.joinKeyword(inc)}

	var throughOpts Through
	if inc.Through != nil {
		throughOpts = *inc.Through
	}
	if !p.opts.IgnoreIncludeAttributes {
		attrs := throughOpts.Attributes
		if attrs == nil {
			attrs = modelAttributes(through)
		}
		for _, attr := range attrs {
			var col, as string
			switch v := attr.(type) {
			case string:
				col, as = through.ColumnOf(v), v
			case Attr:
				col, as = through.ColumnOf(v.Column), firstNonEmpty(v.As, v.Column)
			default:
				return nil, querygen.NewCompileError("include", ip.externalAs, "invalid through attribute of type %T", attr)
			}
			j.mainAttrs = append(j.mainAttrs, g.QuoteName(throughAs)+"."+g.QuoteName(col)+" AS "+
				g.QuoteName(ip.externalAs+"."+through.Name+"."+as))
		}
	}

	src, subAttrs := p.sourceRef(ip, a.SourceKeyAttribute(), a.SourceKeyField())
	j.subAttrs = subAttrs
	sourceOn := src + " = " + g.QuoteName(throughAs) + "." + g.QuoteName(a.IdentifierField())
	targetOn := g.QuoteName(ip.internalAs) + "." + g.QuoteName(a.TargetKeyField()) + " = " +
		g.QuoteName(throughAs) + "." + g.QuoteName(a.ForeignIdentifierField())
	var throughWhere string
	if throughOpts.Where != nil {
		var err error
		throughWhere, err = g.whereConditions(normalize(throughOpts.Where), whereOpts{model: through, prefix: g.QuoteName(throughAs)})
		if err != nil {
			return nil, err
		}
	}
	throughTable := g.QuoteTable(ModelTable(through).As(throughAs))
	targetTable := g.QuoteTable(ModelTable(a.Target).As(ip.internalAs))
	if g.caps.JoinTableDependent {
		j.body = "( " + throughTable + " INNER JOIN " + targetTable + " ON " + targetOn
		if throughWhere != "" {
			j.body += " AND " + throughWhere
		}
		j.body += ")"
		j.cond = sourceOn
	} else {
		j.body = throughTable + " ON " + sourceOn + " " + j.keyword + " " + targetTable
		j.cond = targetOn
		if throughWhere != "" {
			j.cond += " AND " + throughWhere
		}
	}
	if inc.Where != nil {
		where, err := g.whereConditions(normalize(inc.Where), whereOpts{model: a.Target, prefix: g.QuoteName(ip.internalAs)})
		if err != nil {
			return nil, err
		}
		if where != "" {
			j.cond += " AND " + where
		}
	}
	return j, nil
}

// requiredClosure copies inc keeping only required descendants.
func requiredClosure(inc *Include) *Include {
	c := *inc
	c.Include = nil
	for _, child := range inc.Include {
		if child != nil && child.Required && !child.Separate {
			c.Include = append(c.Include, requiredClosure(child))
		}
	}
	return &c
}

// subQueryFilter restricts the limited subquery to parents having at
// least one row of a required fan-out include:
//
//	( SELECT "posts"."user_id" FROM "posts" AS "posts" WHERE ... LIMIT 1 ) IS NOT NULL
func (p *selectPlan) subQueryFilter(ip *includePlan) error {
	g := p.g
	nested := requiredClosure(ip.inc)
	nested.Association = ip.assoc
	top := ip
	for par := ip.parent; par != nil; par = par.parent {
		if !par.inc.Required || par.subQueryFilter {
			return nil
		}
		c := *par.inc
		c.Association = par.assoc
		c.Include = []*Include{nested}
		nested = &c
		top = par
	}
	a := top.assoc
	as := firstNonEmpty(nested.As, a.As)
	noSubQuery := false
	opts := &SelectOptions{
		Limit:                   1,
		SubQuery:                &noSubQuery,
		IgnoreIncludeAttributes: true,
	}
	var (
		table TableRef
		model *schema.Model
	)
	if a.Kind == schema.BelongsToMany {
		through := a.Through
		toTarget := &schema.Association{
			Kind:       schema.BelongsTo,
			As:         as,
			Source:     through,
			Target:     a.Target,
			ForeignKey: a.OtherKey,
			TargetKey:  a.TargetKey,
		}
		cond := p.prefix + "." + g.QuoteName(a.SourceKeyField()) + " = " +
			g.QuoteName(through.Name) + "." + g.QuoteName(a.IdentifierField())
		opts.Attributes = []any{a.IdentifierField()}
		opts.Include = []*Include{{
			Association: toTarget,
			Required:    true,
			Where:       nested.Where,
			Include:     nested.Include,
		}}
		opts.Where = Lit(cond)
		if nested.Through != nil && nested.Through.Where != nil {
			opts.Where = Map{{Key: string(OpAnd), Value: []any{Lit(cond), nested.Through.Where}}}
		}
		opts.TableAs = through.Name
		table, model = ModelTable(through), through
	} else {
		sourceField, targetField := a.SourceKeyField(), a.IdentifierField()
		if a.Kind == schema.BelongsTo {
			sourceField, targetField = a.IdentifierField(), a.TargetKeyField()
		}
		cond := g.QuoteName(as) + "." + g.QuoteName(targetField) + " = " + p.prefix + "." + g.QuoteName(sourceField)
		opts.Attributes = []any{targetField}
		opts.Include = nested.Include
		opts.Where = Lit(cond)
		if nested.Where != nil {
			opts.Where = Map{{Key: string(OpAnd), Value: []any{nested.Where, Lit(cond)}}}
		}
		opts.TableAs = as
		table, model = ModelTable(a.Target), a.Target
	}
	q, err := g.selectQuery(table, opts, model)
	if err != nil {
		return err
	}
	p.filters = append(p.filters, "( "+strings.TrimSuffix(q, ";")+" ) IS NOT NULL")
	return nil
}
