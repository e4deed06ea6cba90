package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/syssam/querygen"
)

// violation identifies one class of constraint failure across drivers.
type violation struct {
	name     string
	sqlState string   // Postgres SQLSTATE, class 23.
	numbers  []uint16 // MySQL error numbers.
	messages []string // Fallback substrings, SQLite included.
}

var (
	uniqueViolation = violation{
		name:     "unique",
		sqlState: "23505",
		numbers:  []uint16{1062},
		messages: []string{"Error 1062", "violates unique constraint", "UNIQUE constraint failed", "Violation of UNIQUE KEY constraint"},
	}
	foreignKeyViolation = violation{
		name:     "foreign key",
		sqlState: "23503",
		numbers:  []uint16{1451, 1452},
		messages: []string{"Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"},
	}
	checkViolation = violation{
		name:     "check",
		sqlState: "23514",
		numbers:  []uint16{3819},
		messages: []string{"Error 3819", "violates check constraint", "CHECK constraint failed"},
	}
	violations = []violation{uniqueViolation, foreignKeyViolation, checkViolation}
)

// sqlStateError is implemented by pgx errors.
type sqlStateError interface{ SQLState() string }

func (v violation) match(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[sqlStateError](err); ok && e.SQLState() == v.sqlState {
		return true
	}
	if e, ok := asError[*pq.Error](err); ok && string(e.Code) == v.sqlState {
		return true
	}
	if n, ok := errorNumber(err); ok {
		for _, want := range v.numbers {
			if n == want {
				return true
			}
		}
	}
	msg := err.Error()
	for _, sub := range v.messages {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}

// errorNumber extracts a MySQL error number. *mysql.MySQLError exposes it
// as a field, other drivers as a method.
func errorNumber(err error) (uint16, bool) {
	if e, ok := asError[interface{ Number() uint16 }](err); ok {
		return e.Number(), true
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		return e.Number, true
	}
	return 0, false
}

// IsUniqueConstraintError reports whether err is a uniqueness violation.
func IsUniqueConstraintError(err error) bool { return uniqueViolation.match(err) }

// IsForeignKeyConstraintError reports whether err is a foreign key violation.
func IsForeignKeyConstraintError(err error) bool { return foreignKeyViolation.match(err) }

// IsCheckConstraintError reports whether err is a check constraint violation.
func IsCheckConstraintError(err error) bool { return checkViolation.match(err) }

// IsConstraintError reports whether err is a querygen.ConstraintError or
// any driver constraint violation.
func IsConstraintError(err error) bool {
	if querygen.IsConstraintError(err) {
		return true
	}
	for _, v := range violations {
		if v.match(err) {
			return true
		}
	}
	return false
}

// constraintError wraps driver constraint violations in a
// querygen.ConstraintError and returns other errors unchanged.
func constraintError(err error) error {
	if err == nil || querygen.IsConstraintError(err) {
		return err
	}
	for _, v := range violations {
		if v.match(err) {
			return querygen.NewConstraintError(v.name+" constraint violated", err)
		}
	}
	return err
}

func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}
