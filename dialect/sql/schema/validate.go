package schema

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect/sql"
	"github.com/syssam/querygen/schema/index"
)

// ValidationError is one problem found in an index or constraint
// descriptor.
type ValidationError struct {
	Object  string // "index" or "constraint".
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s.%s: %s", e.Object, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Object, e.Message)
}

// ValidationResult holds the results of descriptor validation. Errors
// block emission, warnings do not.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Err returns the errors as querygen.CompileError values, or nil.
func (r *ValidationResult) Err() error {
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = querygen.NewCompileError(e.Object, e.Field, "%s", e.Message)
	}
	return querygen.NewAggregateError(errs...)
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

func (r *ValidationResult) errorf(object, field, format string, args ...any) {
	r.Errors = append(r.Errors, &ValidationError{Object: object, Field: field, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warnf(object, field, format string, args ...any) {
	r.Warnings = append(r.Warnings, &ValidationError{Object: object, Field: field, Message: fmt.Sprintf(format, args...)})
}

var directions = []string{"ASC", "DESC"}

// keyword matches the index method, type, parser and operator class names
// AddIndexQuery writes into the statement unquoted. Operator classes may be
// schema-qualified.
var keyword = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func (r *ValidationResult) checkKeyword(field, kind, v string) {
	if v != "" && !keyword.MatchString(v) {
		r.errorf("index", field, "invalid %s %q", kind, v)
	}
}

// ValidateIndex checks an index descriptor before AddIndexQuery emits it.
// Names longer than the identifier limit of the dialect are reported as
// warnings.
func (e *Emitter) ValidateIndex(table sql.TableRef, d *index.Descriptor) *ValidationResult {
	r := &ValidationResult{}
	if table.Name == "" {
		r.errorf("index", "table", "missing table name")
	}
	if d == nil {
		r.errorf("index", "", "missing descriptor")
		return r
	}
	if len(d.Fields) == 0 {
		r.errorf("index", "fields", "an index needs at least one field")
	}
	for i, f := range d.Fields {
		switch {
		case f.Name == "" && f.Expr == nil:
			r.errorf("index", fmt.Sprintf("fields[%d]", i), "missing name or expression")
		case f.Name != "" && f.Expr != nil:
			r.errorf("index", f.Name, "a field cannot have both a name and an expression")
		}
		if f.Length < 0 {
			r.errorf("index", f.Name, "negative length %d", f.Length)
		}
		if f.Order != "" && !slices.Contains(directions, strings.ToUpper(f.Order)) {
			r.errorf("index", f.Name, "invalid order %q", f.Order)
		}
		r.checkKeyword(f.Name, "operator class", f.Operator)
	}
	r.checkKeyword("operator", "operator class", d.Operator)
	r.checkKeyword("parser", "parser", d.Parser)
	r.checkKeyword("using", "index method", d.Using)
	r.checkKeyword("type", "index type", d.Type)
	if d.StorageKey == "" && len(d.FieldNames()) == 0 && len(d.Fields) > 0 {
		r.errorf("index", "name", "an expression index needs an explicit name")
	}
	if limit, ok := identifierLimit[e.caps.Name]; ok && table.Name != "" {
		if name := e.IndexName(table, d); len(name) > limit {
			r.warnf("index", "name", "name %q exceeds %d characters and will be truncated", name, limit)
		}
	}
	return r
}

// ValidateConstraint checks a constraint descriptor before
// AddConstraintQuery emits it.
func ValidateConstraint(table sql.TableRef, c *Constraint) *ValidationResult {
	r := &ValidationResult{}
	if table.Name == "" {
		r.errorf("constraint", "table", "missing table name")
	}
	if c == nil {
		r.errorf("constraint", "", "missing descriptor")
		return r
	}
	if !slices.Contains(constraintTypes, c.Type) {
		r.errorf("constraint", "type", "unknown constraint type %q", c.Type)
		return r
	}
	if len(c.Fields) == 0 {
		r.errorf("constraint", "fields", "a %s constraint needs at least one field", c.Type)
	}
	switch c.Type {
	case Check:
		if c.Where == nil {
			r.errorf("constraint", "where", "a CHECK constraint needs a condition")
		}
	case Default:
		if len(c.Fields) > 1 {
			r.errorf("constraint", "fields", "a DEFAULT constraint applies to exactly one field")
		}
	case ForeignKey:
		if c.References == nil || c.References.Table.Name == "" || c.References.Field == "" {
			r.errorf("constraint", "references", "a FOREIGN KEY constraint needs a referenced table and field")
		}
		if !validAction(c.OnDelete) {
			r.errorf("constraint", "onDelete", "invalid referential action %q", c.OnDelete)
		}
		if !validAction(c.OnUpdate) {
			r.errorf("constraint", "onUpdate", "invalid referential action %q", c.OnUpdate)
		}
	}
	if c.Deferrable != nil && c.Deferrable.Kind > InitiallyDeferred {
		r.errorf("constraint", "deferrable", "SET CONSTRAINTS modes cannot be attached to a constraint")
	}
	return r
}
