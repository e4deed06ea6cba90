package sql

import (
	"fmt"
	"strings"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/schema"
	"github.com/syssam/querygen/schema/field"
)

// WhereOptions carries the context of a condition compilation.
type WhereOptions struct {
	// Model resolves attribute names to columns and types.
	Model *schema.Model
	// Prefix qualifies plain column keys, usually a table name or alias.
	Prefix string
	// Field overrides the attribute used for every key.
	Field *schema.Attribute
	// NoJSON disables path traversal of mappings on JSON attributes.
	NoJSON bool
}

type whereOpts struct {
	model  *schema.Model
	prefix string // quoted
	field  *schema.Attribute
	noJSON bool
}

func (g *Generator) whereOpts(opts *WhereOptions) whereOpts {
	if opts == nil {
		return whereOpts{}
	}
	o := whereOpts{model: opts.Model, field: opts.Field, noJSON: opts.NoJSON}
	if opts.Prefix != "" {
		o.prefix = g.QuoteName(opts.Prefix)
	}
	return o
}

// itemKey is the left-hand side of a condition item: a name to resolve
// and quote, or an already rendered fragment.
type itemKey struct {
	name string
	sql  string
}

func (k itemKey) empty() bool { return k.name == "" && k.sql == "" }

// WhereQuery compiles a condition tree into a WHERE clause, or "" when the
// tree has no effective clause.
//
//	g.WhereQuery(sql.M("status", "A", "or", []any{
//		sql.M("qty", sql.M("lt", 30)),
//		sql.M("item", sql.M("regexp", "^p")),
//	}), nil)
//	// WHERE "status" = 'A' AND ("qty" < 30 OR "item" ~ '^p')
func (g *Generator) WhereQuery(where any, opts *WhereOptions) (string, error) {
	s, err := g.whereItems(normalize(where), g.whereOpts(opts), " AND ")
	if err != nil || s == "" {
		return "", err
	}
	return "WHERE " + s, nil
}

// WhereItemsQuery compiles a mapping or list of conditions, joining the
// items with binding ("AND" when empty).
func (g *Generator) WhereItemsQuery(where any, opts *WhereOptions, binding string) (string, error) {
	return g.whereItems(normalize(where), g.whereOpts(opts), bindingWord(binding))
}

// WhereItemQuery compiles a single key/value condition. An empty key
// compiles value on its own.
func (g *Generator) WhereItemQuery(key string, value any, opts *WhereOptions) (string, error) {
	return g.whereItem(itemKey{name: unalias(key)}, normalize(value), g.whereOpts(opts))
}

// WhereConditions compiles the where argument of a statement. Besides
// condition trees it accepts expressions, a primary key value and byte
// slices. Keys are qualified with prefix when it is not empty.
func (g *Generator) WhereConditions(where any, prefix string, model *schema.Model) (string, error) {
	o := whereOpts{model: model}
	if prefix != "" {
		o.prefix = g.QuoteName(prefix)
	}
	return g.whereConditions(normalize(where), o)
}

func (g *Generator) whereConditions(where any, o whereOpts) (string, error) {
	switch w := where.(type) {
	case nil:
		return "", nil
	case Expr:
		return g.renderExpr(w)
	case Map:
		return g.whereItems(w, o, " AND ")
	case string:
		return g.whereItems(w, o, " AND ")
	case []byte:
		return g.Escape(w)
	case []any:
		if len(w) == 0 {
			return "1=1", nil
		}
		if !canTreatAsAnd(w) {
			return "", querygen.NewDeprecationError("literal replacements in where", "condition maps")
		}
		return g.whereItems(Map{{Key: string(OpAnd), Value: w}}, o, " AND ")
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		pk := "id"
		if o.model != nil {
			pk = o.model.PrimaryKeyAttribute()
		}
		return g.whereItems(Map{{Key: pk, Value: w}}, o, " AND ")
	}
	return "1=1", nil
}

func bindingWord(binding string) string {
	binding = strings.TrimSpace(binding)
	if binding == "" {
		binding = "AND"
	}
	return " " + strings.ToUpper(binding) + " "
}

func canTreatAsAnd(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case Map, WhereExpr:
			return true
		}
	}
	return false
}

func (g *Generator) whereItems(where any, o whereOpts, binding string) (string, error) {
	var items []string
	switch w := where.(type) {
	case nil:
		return "", nil
	case string:
		return "", querygen.NewDeprecationError("raw string where conditions", "sql.Lit or a condition map")
	case Map:
		for _, p := range w {
			s, err := g.whereItem(itemKey{name: p.Key}, p.Value, o)
			if err != nil {
				return "", err
			}
			items = append(items, s)
		}
	case []any:
		if len(w) == 0 {
			return "", nil
		}
		s, err := g.whereItem(itemKey{}, w, o)
		if err != nil {
			return "", err
		}
		items = append(items, s)
	default:
		s, err := g.whereItem(itemKey{}, w, o)
		if err != nil {
			return "", err
		}
		items = append(items, s)
	}
	return joinNonEmpty(items, binding), nil
}

func joinNonEmpty(items []string, sep string) string {
	out := items[:0:0]
	for _, s := range items {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, sep)
}

// findField resolves key to an attribute. The bool reports whether key
// named the attribute rather than its column.
func (g *Generator) findField(key string, o whereOpts) (*schema.Attribute, bool) {
	if o.field != nil {
		return o.field, false
	}
	if a, ok := o.model.Attribute(key); ok {
		return a, true
	}
	if a, ok := o.model.AttributeByField(key); ok {
		return a, false
	}
	return nil, false
}

func (g *Generator) whereItem(key itemKey, value any, o whereOpts) (string, error) {
	if key.sql == "" {
		if key.name == string(OpPlaceholder) {
			v, err := g.Escape(value)
			if err != nil {
				return "", err
			}
			return g.joinKeyValue(itemKey{name: operatorMap[OpPlaceholder]}, v, "=", o), nil
		}
		if s, ok, err := g.whereJSONKey(key.name, value, o); ok || err != nil {
			return s, err
		}
	}
	var attr *schema.Attribute
	if key.sql == "" && !isLogical(key.name) && !isColKey(key.name) {
		a, byName := g.findField(key.name, o)
		if a != nil && byName && a.Field != "" {
			key.name = a.Field
		}
		attr = a
	}
	if key.empty() {
		switch v := value.(type) {
		case string:
			return "", querygen.NewDeprecationError("raw string where conditions", "sql.Lit or a condition map")
		case Map:
			if len(v) == 1 {
				return g.whereItem(itemKey{name: v[0].Key}, v[0].Value, o)
			}
		}
	}
	if value == nil {
		return g.joinKeyValue(key, "NULL", operatorMap[OpIs], o), nil
	}
	if !truthy(value) {
		v, err := g.escape(value, attr, field.ValidateOptions{})
		if err != nil {
			return "", err
		}
		return g.joinKeyValue(key, v, operatorMap[OpEq], o), nil
	}
	if e, ok := value.(Expr); ok {
		switch e.(type) {
		case WhereExpr, JSONExpr:
			return g.renderExpr(e)
		}
		if key.empty() {
			return g.renderExpr(e)
		}
	}
	list, isList := value.([]any)
	if key.empty() && isList {
		if !canTreatAsAnd(list) {
			return "", querygen.NewDeprecationError("literal replacements in where", "condition maps")
		}
		return g.groupBind(OpAnd, list, o)
	}
	if key.empty() {
		if _, ok := value.(Map); !ok {
			return "", querygen.NewCompileError("where", "", "condition value %v has no key", value)
		}
	}
	if key.sql == "" && isLogical(key.name) {
		return g.groupBind(Op(key.name), value, o)
	}
	m, isMap := value.(Map)
	if isMap && len(m) == 1 {
		switch Op(m[0].Key) {
		case OpOr:
			return g.whereBind(operatorMap[OpOr], key, m[0].Value, o)
		case OpAnd:
			return g.whereBind(operatorMap[OpAnd], key, m[0].Value, o)
		}
	}
	if isList && attr != nil && field.IsArray(attr.Type) {
		if !g.caps.Arrays {
			return "", querygen.NewCapabilityError("array comparison", g.caps.Name, dialect.Postgres)
		}
		v, err := g.escape(value, attr, field.ValidateOptions{})
		if err != nil {
			return "", err
		}
		return g.joinKeyValue(key, v, operatorMap[OpEq], o), nil
	}
	if isMap && attr != nil && field.IsJSON(attr.Type) && !o.noJSON {
		return g.whereJSON(key, m, o)
	}
	switch {
	case isMap && len(m) > 1:
		return g.whereBind(operatorMap[OpAnd], key, m, o)
	case isList:
		return g.parseSingle(key, attr, OpIn, value, o)
	case isMap && len(m) == 0:
		return "", nil
	case isMap && isOp(m[0].Key):
		return g.parseSingle(key, attr, Op(m[0].Key), m[0].Value, o)
	}
	return g.parseSingle(key, attr, OpEq, value, o)
}

// isColKey reports whether key is written $assoc.column$.
func isColKey(key string) bool {
	return len(key) > 1 && key[0] == '$' && key[len(key)-1] == '$'
}

func (g *Generator) safeKey(key itemKey, o whereOpts) string {
	switch {
	case key.sql != "":
		return key.sql
	case isColKey(key.name):
		parts := strings.Split(key.name[1:len(key.name)-1], ".")
		if len(parts) > 2 {
			parts = []string{strings.Join(parts[:len(parts)-1], "->"), parts[len(parts)-1]}
		}
		for i, p := range parts {
			parts[i] = g.QuoteName(p)
		}
		return strings.Join(parts, ".")
	case strings.Contains(key.name, "."):
		return g.quotePath(key.name)
	case o.prefix != "":
		return o.prefix + "." + g.QuoteName(key.name)
	}
	return g.QuoteName(key.name)
}

func (g *Generator) joinKeyValue(key itemKey, value, comparator string, o whereOpts) string {
	if key.empty() {
		return value
	}
	return g.safeKey(key, o) + " " + comparator + " " + value
}

// groupBind compiles the operand of and, or and not.
func (g *Generator) groupBind(op Op, value any, o whereOpts) (string, error) {
	binding := operatorMap[OpAnd]
	if op == OpOr {
		binding = operatorMap[OpOr]
	}
	var s string
	if list, ok := value.([]any); ok {
		items := make([]string, 0, len(list))
		for _, item := range list {
			q, err := g.whereItems(item, o, operatorMap[OpAnd])
			if err != nil {
				return "", err
			}
			if q != "" && complexSize(item) > 1 {
				q = "(" + q + ")"
			}
			items = append(items, q)
		}
		s = joinNonEmpty(items, binding)
	} else {
		var err error
		if s, err = g.whereItems(value, o, binding); err != nil {
			return "", err
		}
	}
	if s == "" {
		if op == OpOr || op == OpNot {
			return "0 = 1", nil
		}
		return "", nil
	}
	if op == OpNot {
		return "NOT (" + s + ")", nil
	}
	return "(" + s + ")", nil
}

// whereBind compiles every entry of value against key, joined by
// binding.
func (g *Generator) whereBind(binding string, key itemKey, value any, o whereOpts) (string, error) {
	var items []string
	add := func(v any) error {
		s, err := g.whereItem(key, v, o)
		if err == nil {
			items = append(items, s)
		}
		return err
	}
	switch v := value.(type) {
	case Map:
		for _, p := range v {
			if err := add(Map{p}); err != nil {
				return "", err
			}
		}
	case []any:
		for _, item := range v {
			if err := add(item); err != nil {
				return "", err
			}
		}
	default:
		if err := add(v); err != nil {
			return "", err
		}
	}
	if s := joinNonEmpty(items, binding); s != "" {
		return "(" + s + ")", nil
	}
	return "", nil
}

func isRegexp(op Op) bool {
	switch op {
	case OpRegexp, OpNotRegexp, OpIRegexp, OpNotIRegexp:
		return true
	}
	return false
}

// parseSingle compiles key compared with value by a single operator.
func (g *Generator) parseSingle(key itemKey, attr *schema.Attribute, op Op, value any, o whereOpts) (string, error) {
	list, isList := value.([]any)
	if op == OpNot {
		switch value.(type) {
		case []any:
			op = OpNotIn
		case nil, bool:
		default:
			op = OpNe
		}
	}
	if op == OpRaw {
		return "", querygen.NewDeprecationError("the raw where operator", "sql.Lit")
	}
	comparator := operatorMap[OpEq]
	if _, ok := operatorMap[op]; ok {
		var err error
		if comparator, err = g.Operator(op); err != nil {
			return "", err
		}
	}
	switch op {
	case OpIn, OpNotIn:
		if lit, ok := value.(Literal); ok {
			return g.joinKeyValue(key, lit.SQL, comparator, o), nil
		}
		if !isList {
			return "", querygen.NewCompileError("where", key.name, "%s expects a list of values", op)
		}
		if len(list) == 0 {
			if op == OpIn {
				return g.joinKeyValue(key, "(NULL)", comparator, o), nil
			}
			return "", nil
		}
		items := make([]string, len(list))
		for i, item := range list {
			s, err := g.escape(item, attr, field.ValidateOptions{})
			if err != nil {
				return "", err
			}
			items[i] = s
		}
		return g.joinKeyValue(key, "("+strings.Join(items, ",")+")", comparator, o), nil
	case OpAny, OpAll:
		comparator = operatorMap[OpEq] + " " + comparator
		if m, ok := value.(Map); ok {
			if vals, ok := m.Get(string(OpValues)); ok {
				s, err := g.valuesList(vals)
				if err != nil {
					return "", err
				}
				return g.joinKeyValue(key, s, comparator, o), nil
			}
		}
		s, err := g.escape(value, attr, field.ValidateOptions{IsList: true})
		if err != nil {
			return "", err
		}
		return g.joinKeyValue(key, "("+s+")", comparator, o), nil
	case OpBetween, OpNotBetween:
		if len(list) != 2 {
			return "", querygen.NewCompileError("where", key.name, "%s expects exactly two values", op)
		}
		lo, err := g.escape(list[0], attr, field.ValidateOptions{})
		if err != nil {
			return "", err
		}
		hi, err := g.escape(list[1], attr, field.ValidateOptions{})
		if err != nil {
			return "", err
		}
		return g.joinKeyValue(key, lo+" AND "+hi, comparator, o), nil
	case OpCol:
		s, ok := value.(string)
		if !ok {
			return "", querygen.NewCompileError("where", key.name, "col expects a column name, got %T", value)
		}
		return g.joinKeyValue(key, g.colRef(s), operatorMap[OpEq], o), nil
	case OpStartsWith, OpEndsWith, OpSubstring:
		var s string
		switch v := value.(type) {
		case Literal:
			s = v.SQL
		case string:
			s = v
		default:
			s = fmt.Sprint(v)
		}
		switch op {
		case OpStartsWith:
			s += "%"
		case OpEndsWith:
			s = "%" + s
		default:
			s = "%" + s + "%"
		}
		return g.joinKeyValue(key, g.quoteString(s), operatorMap[OpLike], o), nil
	}
	opts := field.ValidateOptions{AcceptStrings: strings.Contains(comparator, operatorMap[OpLike])}
	if m, ok := value.(Map); ok {
		if c, ok := m.Get(string(OpCol)); ok {
			s, ok := c.(string)
			if !ok {
				return "", querygen.NewCompileError("where", key.name, "col expects a column name, got %T", c)
			}
			return g.joinKeyValue(key, g.colRef(s), comparator, o), nil
		}
		for _, q := range []Op{OpAny, OpAll} {
			v, ok := m.Get(string(q))
			if !ok {
				continue
			}
			spelling, err := g.Operator(q)
			if err != nil {
				return "", err
			}
			opts.IsList = true
			s, err := g.escape(v, attr, opts)
			if err != nil {
				return "", err
			}
			return g.joinKeyValue(key, "("+s+")", comparator+" "+spelling, o), nil
		}
	}
	if value == nil {
		switch comparator {
		case operatorMap[OpEq]:
			return g.joinKeyValue(key, "NULL", operatorMap[OpIs], o), nil
		case operatorMap[OpNe]:
			return g.joinKeyValue(key, "NULL", operatorMap[OpNot], o), nil
		}
	}
	if s, ok := value.(string); ok && isRegexp(op) && !g.caps.BackslashEscapes {
		return g.joinKeyValue(key, "'"+strings.ReplaceAll(s, "'", "''")+"'", comparator, o), nil
	}
	s, err := g.escape(value, attr, opts)
	if err != nil {
		return "", err
	}
	return g.joinKeyValue(key, s, comparator, o), nil
}

// colRef quotes the column named by a col operator; a.b.c references
// column c of the nested association a->b.
func (g *Generator) colRef(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		parts = []string{strings.Join(parts[:len(parts)-1], "->"), parts[len(parts)-1]}
	}
	for i, p := range parts {
		parts[i] = g.QuoteName(p)
	}
	return strings.Join(parts, ".")
}

// valuesList renders (VALUES (a), (b)).
func (g *Generator) valuesList(v any) (string, error) {
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	items := make([]string, len(list))
	for i, item := range list {
		s, err := g.Escape(item)
		if err != nil {
			return "", err
		}
		items[i] = "(" + s + ")"
	}
	return "(VALUES " + strings.Join(items, ", ") + ")", nil
}
