package sql

import (
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/schema/field"
)

// whereJSONKey rewrites "data.a.b": v on a JSON attribute data into
// data: {a: {b: v}}. ok is false when key does not address a JSON
// attribute.
func (g *Generator) whereJSONKey(key string, value any, o whereOpts) (string, bool, error) {
	if o.model == nil || isColKey(key) || !strings.Contains(key, ".") {
		return "", false, nil
	}
	parts := strings.Split(key, ".")
	a, ok := o.model.Resolve(parts[0])
	if !ok || !field.IsJSON(a.Type) {
		return "", false, nil
	}
	nested := value
	for i := len(parts) - 1; i >= 1; i-- {
		nested = Map{{Key: parts[i], Value: nested}}
	}
	o.field = a
	s, err := g.whereItem(itemKey{name: a.Field}, nested, o)
	return s, true, err
}

// whereJSON compiles a mapping against a JSON column: operator keys
// compare the whole document, other keys walk into it.
func (g *Generator) whereJSON(key itemKey, m Map, o whereOpts) (string, error) {
	base := g.safeKey(key, o)
	var items []string
	for _, p := range m {
		if !isOp(p.Key) {
			continue
		}
		no := o
		no.noJSON = true
		s, err := g.whereItem(key, Map{p}, no)
		if err != nil {
			return "", err
		}
		items = append(items, s)
	}
	for _, p := range m {
		if isOp(p.Key) {
			continue
		}
		if err := g.traverseJSON(&items, base, p.Value, []string{p.Key}); err != nil {
			return "", err
		}
	}
	result := joinNonEmpty(items, operatorMap[OpAnd])
	if len(items) > 1 {
		return "(" + result + ")", nil
	}
	return result, nil
}

func (g *Generator) traverseJSON(items *[]string, base string, item any, path []string) error {
	path = slices.Clone(path)
	var cast string
	if last := path[len(path)-1]; strings.Contains(last, "::") {
		i := strings.Index(last, "::")
		cast, path[len(path)-1] = last[i+2:], last[:i]
		if err := checkCast(cast); err != nil {
			return err
		}
	}
	pathKey, err := g.jsonPath(base, path, false)
	if err != nil {
		return err
	}
	m, ok := item.(Map)
	if !ok {
		s, err := g.whereItem(itemKey{sql: g.castKey(pathKey, item, cast)}, Map{{Key: string(OpEq), Value: item}}, whereOpts{})
		if err != nil {
			return err
		}
		*items = append(*items, s)
		return nil
	}
	for _, p := range m {
		if !isOp(p.Key) {
			continue
		}
		key := pathKey
		if _, isStr := p.Value.(string); isStr && Op(p.Key) == OpContains {
			if key, err = g.jsonPath(base, path, true); err != nil {
				return err
			}
		}
		s, err := g.whereItem(itemKey{sql: g.castKey(key, p.Value, cast)}, Map{p}, whereOpts{})
		if err != nil {
			return err
		}
		*items = append(*items, s)
	}
	for _, p := range m {
		if isOp(p.Key) {
			continue
		}
		if err := g.traverseJSON(items, base, p.Value, append(path, p.Key)); err != nil {
			return err
		}
	}
	return nil
}

// jsonPath renders the extraction of path from the JSON column col.
// asJSON keeps the result a JSON value where the dialect distinguishes.
func (g *Generator) jsonPath(col string, path []string, asJSON bool) (string, error) {
	for _, p := range path {
		if p == "" || strings.ContainsAny(p, "'\"\\\x00") {
			return "", querygen.NewCompileError("where", p, "invalid JSON path segment %q", p)
		}
	}
	switch g.caps.JSON {
	case dialect.JSONPostgres:
		op := "#>>"
		if asJSON {
			op = "#>"
		}
		return "(" + col + op + g.pathLiteral("{"+strings.Join(path, ",")+"}") + ")", nil
	case dialect.JSONMySQL:
		var b strings.Builder
		b.WriteString("$")
		for _, p := range path {
			if isIndex(p) {
				b.WriteString("[" + p + "]")
				continue
			}
			b.WriteString(`."` + p + `"`)
		}
		return "json_unquote(json_extract(" + col + "," + g.pathLiteral(b.String()) + "))", nil
	case dialect.JSONSQLite, dialect.JSONMSSQL:
		var b strings.Builder
		b.WriteString("$")
		for _, p := range path {
			if isIndex(p) {
				b.WriteString("[" + p + "]")
				continue
			}
			b.WriteString("." + p)
		}
		fn := "json_extract"
		if g.caps.JSON == dialect.JSONMSSQL {
			fn = "JSON_VALUE"
		}
		return fn + "(" + col + "," + g.pathLiteral(b.String()) + ")", nil
	}
	return "", querygen.NewCapabilityError("JSON path extraction", g.caps.Name,
		dialect.Postgres, dialect.MySQL, dialect.SQLite, dialect.MSSQL)
}

// pathLiteral quotes a JSON path. Paths are never backslash escaped so
// that "$.\"a\"" stays readable on MySQL; jsonPath rejects the segments
// that would need it.
func (g *Generator) pathLiteral(s string) string {
	s = "'" + strings.ReplaceAll(s, "'", "''") + "'"
	if g.caps.NationalStrings {
		return "N" + s
	}
	return s
}

func isIndex(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// castPattern matches the type names accepted in key::type and Cast:
// a name, an optional precision or length, and an optional array suffix.
var castPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 _]*(\(\d+(,\s*\d+)?\))?(\[\])?$`)

func checkCast(typ string) error {
	if !castPattern.MatchString(typ) {
		return querygen.NewCompileError("where", typ, "invalid cast type %q", typ)
	}
	return nil
}

// castKey wraps a JSON extraction in a CAST matching the compared value,
// or the explicit cast requested with key::type.
func (g *Generator) castKey(key string, value any, cast string) string {
	if cast == "" {
		if list, ok := value.([]any); ok && len(list) > 0 {
			value = list[0]
		}
		cast = g.jsonCast(value)
	}
	if cast == "" {
		return key
	}
	return "CAST(" + key + " AS " + strings.ToUpper(cast) + ")"
}

func (g *Generator) jsonCast(v any) string {
	var kind string
	switch v.(type) {
	case time.Time:
		kind = "date"
	case bool:
		kind = "bool"
	default:
		switch reflect.ValueOf(v).Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			kind = "number"
		}
	}
	if kind == "" {
		return ""
	}
	switch g.caps.JSON {
	case dialect.JSONPostgres:
		return map[string]string{"number": "double precision", "date": "timestamptz", "bool": "boolean"}[kind]
	case dialect.JSONMySQL:
		return map[string]string{"number": "double", "date": "datetime"}[kind]
	case dialect.JSONMSSQL:
		return map[string]string{"number": "float", "date": "datetimeoffset", "bool": "bit"}[kind]
	}
	return ""
}
