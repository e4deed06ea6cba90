// Package cli provides shared configuration and utilities for the querygen CLI.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/privacy"
)

// Exit codes.
const (
	ExitSuccess   = 0
	ExitGeneral   = 1
	ExitConfig    = 2
	ExitParse     = 3
	ExitDBConnect = 4
	ExitCompile   = 5
	ExitDenied    = 6
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitGeneral
}

// PrintError writes err to w in the format used by ExitWithError.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err)
}

// ExitWithError prints the error and exits with the appropriate code.
func ExitWithError(err error) {
	PrintError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

// ConfigError creates an ExitError with ExitConfig code.
func ConfigError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Err: err}
}

// ParseError creates an ExitError with ExitParse code.
func ParseError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitParse, Message: msg, Err: err}
}

// DBConnectError creates an ExitError with ExitDBConnect code.
func DBConnectError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitDBConnect, Message: msg, Err: err}
}

// GeneralError creates an ExitError with ExitGeneral code.
func GeneralError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitGeneral, Message: msg, Err: err}
}

// CompileFailure classifies a compilation failure. Policy denials exit
// with ExitDenied, every other failure with ExitCompile.
func CompileFailure(msg string, err error) *ExitError {
	code := ExitCompile
	if errors.Is(err, privacy.Deny) {
		code = ExitDenied
	}
	var agg *querygen.AggregateError
	if errors.As(err, &agg) {
		for _, e := range agg.Errors {
			if !errors.Is(e, privacy.Deny) {
				code = ExitCompile
				break
			}
		}
	}
	return &ExitError{Code: code, Message: msg, Err: err}
}
