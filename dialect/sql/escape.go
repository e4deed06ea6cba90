package sql

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/schema"
	"github.com/syssam/querygen/schema/field"
)

// Escape renders a value as a SQL literal. Expressions are rendered as
// SQL; everything else is quoted per the dialect rules.
func (g *Generator) Escape(v any) (string, error) {
	return g.escape(normalize(v), nil, field.ValidateOptions{})
}

// EscapeFor renders a value bound to attr: the value is validated against
// the attribute type and passed through its Stringifier, if any.
func (g *Generator) EscapeFor(v any, attr *schema.Attribute) (string, error) {
	return g.escape(normalize(v), attr, field.ValidateOptions{})
}

func (g *Generator) escape(v any, attr *schema.Attribute, opts field.ValidateOptions) (string, error) {
	if e, ok := v.(Expr); ok {
		return g.renderExpr(e)
	}
	if v != nil && attr != nil && attr.Type != nil {
		if g.typeValidation && truthy(v) {
			if err := field.ValidateValue(attr.Type, v, opts); err != nil {
				return "", querygen.NewValidationError(attr.Name, attr.Type.Key()+" validator", err)
			}
		}
		if s, ok := attr.Type.(field.Stringifier); ok {
			out, safe, err := s.Stringify(v, g.fieldContext())
			if err != nil {
				return "", err
			}
			if str, ok := out.(string); ok && safe {
				return str, nil
			}
			v = out
		}
	}
	return g.literal(v)
}

func (g *Generator) fieldContext() field.Context {
	return field.Context{Dialect: g.caps.Name, Location: g.loc, Escape: g.Escape}
}

// truthy reports whether v is a value that is validated before it is
// escaped. Nil, false, zero numbers and empty strings are not.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

func (g *Generator) literal(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "NULL", nil
	case Expr:
		return g.renderExpr(v)
	case bool:
		return g.boolean(v), nil
	case string:
		return g.quoteString(v), nil
	case []byte:
		return g.blob(v), nil
	case json.RawMessage:
		return g.quoteString(string(v)), nil
	case time.Time:
		return g.quoteString(g.formatDate(v)), nil
	case uuid.UUID:
		return g.quoteString(v.String()), nil
	case Map:
		return "", querygen.NewCompileError("escape", "", "a condition mapping cannot be used as a value")
	case []any:
		return g.list(v)
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return "", err
		}
		return g.literal(dv)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", querygen.NewCompileError("escape", "", "cannot escape non-finite number %v", f)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case reflect.String:
		return g.quoteString(rv.String()), nil
	case reflect.Bool:
		return g.boolean(rv.Bool()), nil
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return g.list(items)
	case reflect.Pointer:
		if rv.IsNil() {
			return "NULL", nil
		}
		return g.literal(rv.Elem().Interface())
	}
	return "", querygen.NewCompileError("escape", "", "unsupported value type %T", v)
}

func (g *Generator) boolean(b bool) string {
	switch {
	case g.caps.BooleanAsInt && b:
		return "1"
	case g.caps.BooleanAsInt:
		return "0"
	case b:
		return "true"
	}
	return "false"
}

var mysqlEscaper = strings.NewReplacer(
	"\x00", `\0`,
	"\b", `\b`,
	"\t", `\t`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
	`"`, `\"`,
	`'`, `\'`,
	`\`, `\\`,
)

func (g *Generator) quoteString(s string) string {
	if g.caps.BackslashEscapes {
		s = mysqlEscaper.Replace(s)
	} else {
		s = strings.ReplaceAll(s, "'", "''")
		if g.caps.EscapeNUL {
			s = strings.ReplaceAll(s, "\x00", `\0`)
		}
	}
	if g.caps.NationalStrings {
		return "N'" + s + "'"
	}
	return "'" + s + "'"
}

func (g *Generator) blob(b []byte) string {
	h := hex.EncodeToString(b)
	switch g.caps.Blob {
	case dialect.BlobEscapeHex:
		return `E'\\x` + h + "'"
	case dialect.BlobHexNumber:
		return "0x" + h
	}
	return "X'" + h + "'"
}

func (g *Generator) formatDate(t time.Time) string {
	t = t.In(g.loc)
	if g.caps.DateOffset {
		return t.Format("2006-01-02 15:04:05.000 -07:00")
	}
	return t.Format("2006-01-02 15:04:05.000")
}

// list renders a list value: an ARRAY constructor on dialects with native
// arrays, a comma separated list elsewhere.
func (g *Generator) list(items []any) (string, error) {
	parts := make([]string, len(items))
	for i, item := range items {
		var (
			s   string
			err error
		)
		if sub, ok := item.([]any); ok && !g.caps.Arrays {
			s, err = g.list(sub)
			s = "(" + s + ")"
		} else {
			s, err = g.escape(item, nil, field.ValidateOptions{})
		}
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	if g.caps.Arrays {
		return "ARRAY[" + strings.Join(parts, ",") + "]", nil
	}
	return strings.Join(parts, ", "), nil
}
