package querygen

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors matched by the typed errors below.
var (
	// ErrMalformed is matched by every CompileError: the operation
	// descriptor could not be compiled as given.
	ErrMalformed = errors.New("querygen: malformed input")

	// ErrNoLongerSupported is matched by DeprecationError.
	ErrNoLongerSupported = errors.New("querygen: feature no longer supported")

	// ErrUnsupported is matched by CapabilityError: the target dialect
	// lacks the requested feature.
	ErrUnsupported = errors.New("querygen: unsupported by dialect")
)

// CompileError reports a descriptor that cannot be compiled, such as an
// unknown operator, an invalid order direction or an index without fields.
type CompileError struct {
	Clause  string // Clause being compiled (e.g. "where", "order", "index").
	Field   string // Offending field or key, if any.
	Message string
}

// Error returns the error string.
func (e *CompileError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("querygen: %s: %q: %s", e.Clause, e.Field, e.Message)
	}
	return fmt.Sprintf("querygen: %s: %s", e.Clause, e.Message)
}

// Is reports whether the target error matches CompileError.
// This allows errors.Is(err, ErrMalformed) to return true.
func (e *CompileError) Is(err error) bool {
	return err == ErrMalformed
}

// NewCompileError returns a new CompileError.
func NewCompileError(clause, field, format string, args ...any) *CompileError {
	return &CompileError{Clause: clause, Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsCompileError returns true if the error is a CompileError.
func IsCompileError(err error) bool {
	if err == nil {
		return false
	}
	var e *CompileError
	return errors.As(err, &e)
}

// DeprecationError is returned for inputs that older query generators
// accepted but that are rejected now, such as raw string conditions.
type DeprecationError struct {
	Feature string // The rejected construct.
	Use     string // The replacement callers should use.
}

// Error returns the error string.
func (e *DeprecationError) Error() string {
	if e.Use == "" {
		return fmt.Sprintf("querygen: %s is no longer supported", e.Feature)
	}
	return fmt.Sprintf("querygen: %s is no longer supported, use %s instead", e.Feature, e.Use)
}

// Is reports whether the target error matches DeprecationError.
func (e *DeprecationError) Is(err error) bool {
	return err == ErrNoLongerSupported
}

// NewDeprecationError returns a new DeprecationError.
func NewDeprecationError(feature, use string) *DeprecationError {
	return &DeprecationError{Feature: feature, Use: use}
}

// IsDeprecationError returns true if the error is a DeprecationError.
func IsDeprecationError(err error) bool {
	if err == nil {
		return false
	}
	var e *DeprecationError
	return errors.As(err, &e)
}

// CapabilityError reports a feature requested from a dialect that does
// not provide it.
type CapabilityError struct {
	Feature  string   // Requested feature.
	Dialect  string   // Dialect the statement was compiled for.
	Required []string // Dialects that support the feature, if known.
}

// Error returns the error string.
func (e *CapabilityError) Error() string {
	if len(e.Required) > 0 {
		return fmt.Sprintf("querygen: %s is supported only for %s, not %s",
			e.Feature, strings.Join(e.Required, ", "), e.Dialect)
	}
	return fmt.Sprintf("querygen: %s is not supported by %s", e.Feature, e.Dialect)
}

// Is reports whether the target error matches CapabilityError.
func (e *CapabilityError) Is(err error) bool {
	return err == ErrUnsupported
}

// NewCapabilityError returns a new CapabilityError.
func NewCapabilityError(feature, dialect string, required ...string) *CapabilityError {
	return &CapabilityError{Feature: feature, Dialect: dialect, Required: required}
}

// IsCapabilityError returns true if the error is a CapabilityError.
func IsCapabilityError(err error) bool {
	if err == nil {
		return false
	}
	var e *CapabilityError
	return errors.As(err, &e)
}

// ValidationError represents a value rejected by the declared type of the
// field it is compared with or assigned to.
type ValidationError struct {
	Name string // Field name.
	Rule string // Violated rule, e.g. "INTEGER validator".
	Err  error  // Underlying validation error.
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("querygen: %s failed for field %q: %s", e.Rule, e.Name, e.Err)
	}
	return fmt.Sprintf("querygen: validator failed for field %q: %s", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError returns a new ValidationError for the given field.
func NewValidationError(name, rule string, err error) *ValidationError {
	return &ValidationError{Name: name, Rule: rule, Err: err}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// ConstraintError represents a database constraint violation reported
// while executing a compiled statement.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("querygen: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "querygen: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("querygen: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
