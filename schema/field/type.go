package field

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/querygen/dialect"
)

// Type describes the data type of an attribute. Compilers use it to
// validate values, to pick the SQL type name for casts and temporary
// tables, and to detect JSON and ARRAY columns.
type Type interface {
	// Key returns the upper-case type key, e.g. "INTEGER".
	Key() string
	// SQL returns the column type for the given dialect.
	SQL(dialect string) string
	// Validate reports whether v is acceptable for the type.
	Validate(v any, opts ValidateOptions) error
}

// Stringifier is implemented by types that convert values before they are
// escaped. When safe is true, out is a SQL fragment and is emitted as is.
type Stringifier interface {
	Stringify(v any, ctx Context) (out any, safe bool, err error)
}

// ValidateOptions tunes Validate.
type ValidateOptions struct {
	// AcceptStrings lets string values through for types that would
	// otherwise reject them (LIKE patterns against numeric columns).
	AcceptStrings bool
	// IsList validates every element of a list value.
	IsList bool
}

// Context carries the dialect information a Stringifier needs.
type Context struct {
	Dialect  string
	Location *time.Location
	// Escape renders a value as a SQL literal using the dialect rules.
	Escape func(any) (string, error)
}

// ErrInvalidValue is wrapped by all Validate errors.
var ErrInvalidValue = errors.New("field: invalid value")

func invalid(v any, what string) error {
	return fmt.Errorf("%w: %s is not a valid %s", ErrInvalidValue, jsonish(v), what)
}

// jsonish renders v for error messages the way JSON would.
func jsonish(v any) string {
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

// ValidateValue runs t.Validate, fanning out over list elements when
// opts.IsList is set and v is a list.
func ValidateValue(t Type, v any, opts ValidateOptions) error {
	if opts.IsList {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && !isBytes(v) {
			for i := 0; i < rv.Len(); i++ {
				if err := t.Validate(rv.Index(i).Interface(), opts); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return t.Validate(v, opts)
}

// IsJSON reports whether t stores JSON documents.
func IsJSON(t Type) bool {
	_, ok := t.(JSONType)
	return ok
}

// IsArray reports whether t is an ARRAY type.
func IsArray(t Type) bool {
	_, ok := t.(ArrayType)
	return ok
}

// IsVirtual reports whether t has no backing column.
func IsVirtual(t Type) bool {
	_, ok := t.(VirtualType)
	return ok
}

// StringType is VARCHAR(n).
type StringType struct {
	Length int
	Binary bool
}

func (StringType) Key() string { return "STRING" }

func (t StringType) SQL(d string) string {
	n := t.Length
	if n == 0 {
		n = 255
	}
	switch {
	case d == dialect.MSSQL:
		return "NVARCHAR(" + strconv.Itoa(n) + ")"
	case t.Binary:
		return "VARCHAR(" + strconv.Itoa(n) + ") BINARY"
	}
	return "VARCHAR(" + strconv.Itoa(n) + ")"
}

func (StringType) Validate(v any, _ ValidateOptions) error {
	switch v.(type) {
	case string, []byte:
		return nil
	}
	if isNumber(v) {
		return nil
	}
	return invalid(v, "string")
}

// TextType is an unbounded string.
type TextType struct{}

func (TextType) Key() string { return "TEXT" }

func (TextType) SQL(d string) string {
	if d == dialect.MSSQL {
		return "NVARCHAR(MAX)"
	}
	return "TEXT"
}

func (TextType) Validate(v any, _ ValidateOptions) error {
	if _, ok := v.(string); !ok {
		return invalid(v, "string")
	}
	return nil
}

// IntegerType is INTEGER or BIGINT.
type IntegerType struct {
	Big bool
}

func (t IntegerType) Key() string {
	if t.Big {
		return "BIGINT"
	}
	return "INTEGER"
}

func (t IntegerType) SQL(string) string { return t.Key() }

func (t IntegerType) Validate(v any, opts ValidateOptions) error {
	what := strings.ToLower(t.Key())
	switch v := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	case float32:
		if float64(v) == math.Trunc(float64(v)) {
			return nil
		}
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return nil
		}
	case string:
		if opts.AcceptStrings {
			return nil
		}
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			return nil
		}
	}
	return invalid(v, what)
}

// FloatType is FLOAT, or DOUBLE PRECISION when Double is set.
type FloatType struct {
	Double bool
}

func (t FloatType) Key() string {
	if t.Double {
		return "DOUBLE PRECISION"
	}
	return "FLOAT"
}

func (t FloatType) SQL(d string) string {
	if t.Double && d == dialect.MSSQL {
		return "FLOAT(53)"
	}
	return t.Key()
}

func (t FloatType) Validate(v any, opts ValidateOptions) error {
	if isNumber(v) {
		return nil
	}
	if s, ok := v.(string); ok {
		if opts.AcceptStrings {
			return nil
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return nil
		}
	}
	return invalid(v, strings.ToLower(t.Key()))
}

// DecimalType is DECIMAL(p,s).
type DecimalType struct {
	Precision int
	Scale     int
}

func (DecimalType) Key() string { return "DECIMAL" }

func (t DecimalType) SQL(string) string {
	switch {
	case t.Precision > 0 && t.Scale > 0:
		return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale)
	case t.Precision > 0:
		return fmt.Sprintf("DECIMAL(%d)", t.Precision)
	}
	return "DECIMAL"
}

func (t DecimalType) Validate(v any, opts ValidateOptions) error {
	if err := (FloatType{}).Validate(v, opts); err != nil {
		return invalid(v, "decimal")
	}
	return nil
}

// BooleanType is BOOLEAN.
type BooleanType struct{}

func (BooleanType) Key() string { return "BOOLEAN" }

func (BooleanType) SQL(d string) string {
	switch d {
	case dialect.MySQL:
		return "TINYINT(1)"
	case dialect.MSSQL:
		return "BIT"
	}
	return "BOOLEAN"
}

func (BooleanType) Validate(v any, _ ValidateOptions) error {
	switch v := v.(type) {
	case bool:
		return nil
	case int, int64:
		if n := reflect.ValueOf(v).Int(); n == 0 || n == 1 {
			return nil
		}
	case string:
		switch strings.ToLower(v) {
		case "true", "false", "t", "f", "1", "0":
			return nil
		}
	}
	return invalid(v, "boolean")
}

// Stringify turns accepted string spellings into booleans.
func (BooleanType) Stringify(v any, _ Context) (any, bool, error) {
	if s, ok := v.(string); ok {
		switch strings.ToLower(s) {
		case "true", "t", "1":
			return true, false, nil
		case "false", "f", "0":
			return false, false, nil
		}
	}
	return v, false, nil
}

// DateType is a timestamp, or a calendar date when DateOnly is set.
type DateType struct {
	DateOnly bool
}

func (t DateType) Key() string {
	if t.DateOnly {
		return "DATEONLY"
	}
	return "DATE"
}

func (t DateType) SQL(d string) string {
	if t.DateOnly {
		return "DATE"
	}
	switch d {
	case dialect.Postgres:
		return "TIMESTAMP WITH TIME ZONE"
	case dialect.MSSQL:
		return "DATETIMEOFFSET"
	}
	return "DATETIME"
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if tm, err := time.Parse(layout, s); err == nil {
			return tm, true
		}
	}
	return time.Time{}, false
}

func (DateType) Validate(v any, opts ValidateOptions) error {
	switch v := v.(type) {
	case time.Time:
		return nil
	case string:
		if opts.AcceptStrings {
			return nil
		}
		if _, ok := parseDate(v); ok {
			return nil
		}
	}
	return invalid(v, "date")
}

// Stringify formats dates in the configured time zone.
func (t DateType) Stringify(v any, ctx Context) (any, bool, error) {
	var tm time.Time
	switch v := v.(type) {
	case time.Time:
		tm = v
	case string:
		parsed, ok := parseDate(v)
		if !ok {
			return v, false, nil
		}
		tm = parsed
	default:
		return v, false, nil
	}
	if t.DateOnly {
		return tm.Format(time.DateOnly), false, nil
	}
	return tm, false, nil
}

// UUIDType is UUID.
type UUIDType struct{}

func (UUIDType) Key() string { return "UUID" }

func (UUIDType) SQL(d string) string {
	switch d {
	case dialect.MySQL:
		return "CHAR(36) BINARY"
	case dialect.MSSQL:
		return "UNIQUEIDENTIFIER"
	}
	return "UUID"
}

func (UUIDType) Validate(v any, opts ValidateOptions) error {
	switch v := v.(type) {
	case uuid.UUID:
		return nil
	case string:
		if opts.AcceptStrings {
			return nil
		}
		if _, err := uuid.Parse(v); err == nil {
			return nil
		}
	}
	return invalid(v, "uuid")
}

// Stringify renders uuid.UUID values in canonical form.
func (UUIDType) Stringify(v any, _ Context) (any, bool, error) {
	if u, ok := v.(uuid.UUID); ok {
		return u.String(), false, nil
	}
	return v, false, nil
}

// JSONType is JSON, or JSONB when Binary is set.
type JSONType struct {
	Binary bool
}

func (t JSONType) Key() string {
	if t.Binary {
		return "JSONB"
	}
	return "JSON"
}

func (t JSONType) SQL(d string) string {
	if d == dialect.MSSQL {
		return "NVARCHAR(MAX)"
	}
	return t.Key()
}

func (JSONType) Validate(any, ValidateOptions) error { return nil }

// Stringify encodes documents as JSON text. Strings are stored as is.
func (JSONType) Stringify(v any, _ Context) (any, bool, error) {
	switch v := v.(type) {
	case string, nil:
		return v, false, nil
	case json.RawMessage:
		return string(v), false, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false, fmt.Errorf("field: encode json: %w", err)
	}
	return string(b), false, nil
}

// EnumType is a closed set of string values.
type EnumType struct {
	Values []string
}

func (EnumType) Key() string { return "ENUM" }

func (t EnumType) SQL(d string) string {
	if d != dialect.MySQL {
		return "VARCHAR(255)"
	}
	quoted := make([]string, len(t.Values))
	for i, v := range t.Values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return "ENUM(" + strings.Join(quoted, ", ") + ")"
}

func (t EnumType) Validate(v any, opts ValidateOptions) error {
	s, ok := v.(string)
	if ok && (opts.AcceptStrings || slices.Contains(t.Values, s)) {
		return nil
	}
	return fmt.Errorf("%w: %s is not a valid choice in %s", ErrInvalidValue, jsonish(v), jsonish(t.Values))
}

// ArrayType is a Postgres ARRAY of Elem.
type ArrayType struct {
	Elem Type
}

func (t ArrayType) Key() string { return "ARRAY" }

func (t ArrayType) SQL(d string) string {
	if t.Elem == nil {
		return "[]"
	}
	return t.Elem.SQL(d) + "[]"
}

func (t ArrayType) Validate(v any, _ ValidateOptions) error {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && !isBytes(v) {
		return nil
	}
	return invalid(v, "array")
}

// Stringify renders lists as typed ARRAY constructors on dialects with
// native arrays.
func (t ArrayType) Stringify(v any, ctx Context) (any, bool, error) {
	rv := reflect.ValueOf(v)
	if ctx.Dialect != dialect.Postgres || rv.Kind() != reflect.Slice || isBytes(v) || ctx.Escape == nil {
		return v, false, nil
	}
	items := make([]string, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		s, err := ctx.Escape(rv.Index(i).Interface())
		if err != nil {
			return nil, false, err
		}
		items[i] = s
	}
	out := "ARRAY[" + strings.Join(items, ",") + "]"
	if t.Elem != nil {
		out += "::" + t.Elem.SQL(ctx.Dialect) + "[]"
	}
	return out, true, nil
}

// BlobType is binary data.
type BlobType struct{}

func (BlobType) Key() string { return "BLOB" }

func (BlobType) SQL(d string) string {
	switch d {
	case dialect.Postgres:
		return "BYTEA"
	case dialect.MSSQL:
		return "VARBINARY(MAX)"
	}
	return "BLOB"
}

func (BlobType) Validate(v any, _ ValidateOptions) error {
	switch v.(type) {
	case []byte, string:
		return nil
	}
	return invalid(v, "blob")
}

// Stringify turns strings into bytes so they are escaped as binary.
func (BlobType) Stringify(v any, _ Context) (any, bool, error) {
	if s, ok := v.(string); ok {
		return []byte(s), false, nil
	}
	return v, false, nil
}

// VirtualType has no backing column.
type VirtualType struct{}

func (VirtualType) Key() string                         { return "VIRTUAL" }
func (VirtualType) SQL(string) string                   { return "" }
func (VirtualType) Validate(any, ValidateOptions) error { return nil }

func isNumber(v any) bool {
	switch v := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		return true
	case float64:
		return !math.IsNaN(v)
	}
	return false
}

func isBytes(v any) bool {
	_, ok := v.([]byte)
	return ok
}
