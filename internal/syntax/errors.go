package syntax

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Mootikins/crucible-sub016/internal/syntax/scan"
)

// SyntaxError reports input that a dialect recognized but could not parse.
// Line and Column are 1-based; zero means the error has no position (for
// example a validation failure over the whole pattern).
type SyntaxError struct {
	Dialect Dialect
	Line    int
	Column  int
	Reason  string
	Err     error // underlying cause, e.g. *queryir.DanglingReferenceError
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d, column %d: %s", e.Dialect, e.Line, e.Column, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Dialect, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// NewSyntaxError converts err into a SyntaxError for dialect d. Positions
// from *scan.Error are carried over.
func NewSyntaxError(d Dialect, err error) *SyntaxError {
	var serr *SyntaxError
	if errors.As(err, &serr) {
		return serr
	}
	var scanErr *scan.Error
	if errors.As(err, &scanErr) {
		return &SyntaxError{Dialect: d, Line: scanErr.Line, Column: scanErr.Column, Reason: scanErr.Reason, Err: err}
	}
	return &SyntaxError{Dialect: d, Reason: err.Error(), Err: err}
}

// Errorf builds a SyntaxError at a token position.
func Errorf(d Dialect, pos scan.Pos, format string, args ...any) *SyntaxError {
	return &SyntaxError{Dialect: d, Line: pos.Line, Column: pos.Column, Reason: fmt.Sprintf(format, args...)}
}

// Unsupported builds a SyntaxError for a recognized construct the dialect
// does not implement (ORDER BY, OR, CREATE, ...).
func Unsupported(d Dialect, pos scan.Pos, feature string) *SyntaxError {
	return Errorf(d, pos, "%s is not supported", feature)
}

// UnrecognizedQueryError reports that no parser accepted the input.
type UnrecognizedQueryError struct {
	Input     string
	Attempted []Dialect
}

func (e *UnrecognizedQueryError) Error() string {
	names := make([]string, len(e.Attempted))
	for i, d := range e.Attempted {
		names[i] = string(d)
	}
	input := e.Input
	if r := []rune(input); len(r) > 80 {
		input = string(r[:77]) + "..."
	}
	return fmt.Sprintf("unrecognized query %q (tried %s)", input, strings.Join(names, ", "))
}

// CapabilityError reports a parsed query that uses a construct outside the
// producing dialect's declared capabilities.
type CapabilityError struct {
	Feature string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("dialect cannot express %s", e.Feature)
}
