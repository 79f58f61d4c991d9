package harness

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/Mootikins/crucible-sub016/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Case     string // Case under test, empty for multi-case assertions
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Text     string // Rendered query text for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Case != "" {
		fmt.Fprintf(&buf, " (case %s)", e.Case)
	}
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Text != "" {
		fmt.Fprintf(&buf, "\nRendered query:\n%s\n", e.Text)
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertPaths:
			err = assertPaths(result, a)
		case AssertRowCount:
			err = assertRowCount(result, a)
		case AssertTextContains:
			err = assertTextContains(result, a)
		case AssertSameRows:
			err = assertSameRows(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// executed returns the result of a case that ran against the store.
func executed(result *Result, name, typ string) (*CaseResult, error) {
	cr, ok := result.Case(name)
	if !ok {
		return nil, fmt.Errorf("%s: unknown case %q", typ, name)
	}
	if cr.Rows == nil {
		actual := "case was not executed"
		if cr.Error != "" {
			actual = fmt.Sprintf("%s error: %s", cr.Error, cr.Message)
		}
		return nil, &AssertionError{Type: typ, Case: name, Expected: "rows", Actual: actual}
	}
	return cr, nil
}

// assertPaths checks the path column against the expected list, in order.
// Rows are sorted, so order is deterministic.
func assertPaths(result *Result, a Assertion) error {
	cr, err := executed(result, a.Case, AssertPaths)
	if err != nil {
		return err
	}
	if !slices.Contains(cr.Rows.Columns, "path") {
		return &AssertionError{
			Type:     AssertPaths,
			Case:     a.Case,
			Expected: "a path column",
			Actual:   fmt.Sprintf("columns %v", cr.Rows.Columns),
			Text:     cr.Text,
		}
	}

	got := cr.Rows.Strings("path")
	want := a.Paths
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertPaths,
			Case:     a.Case,
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v", got),
			Text:     cr.Text,
		}
	}
	return nil
}

// assertRowCount checks the number of rows returned.
func assertRowCount(result *Result, a Assertion) error {
	cr, err := executed(result, a.Case, AssertRowCount)
	if err != nil {
		return err
	}
	if n := len(cr.Rows.Values); n != a.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Case:     a.Case,
			Expected: fmt.Sprintf("%d rows", a.Count),
			Actual:   fmt.Sprintf("%d rows", n),
			Text:     cr.Text,
		}
	}
	return nil
}

// assertTextContains checks the rendered text.
func assertTextContains(result *Result, a Assertion) error {
	cr, ok := result.Case(a.Case)
	if !ok {
		return fmt.Errorf("%s: unknown case %q", AssertTextContains, a.Case)
	}
	if !strings.Contains(cr.Text, a.Text) {
		return &AssertionError{
			Type:     AssertTextContains,
			Case:     a.Case,
			Expected: fmt.Sprintf("text containing %q", a.Text),
			Actual:   "not found",
			Text:     cr.Text,
		}
	}
	return nil
}

// assertSameRows checks that every listed case returned identical rows,
// compared by canonical JSON.
func assertSameRows(result *Result, a Assertion) error {
	var first []byte
	for i, name := range a.Cases {
		cr, err := executed(result, name, AssertSameRows)
		if err != nil {
			return err
		}
		data, err := ir.MarshalCanonical(rowsValue(cr))
		if err != nil {
			return fmt.Errorf("%s: case %s: %w", AssertSameRows, name, err)
		}
		if i == 0 {
			first = data
			continue
		}
		if !bytes.Equal(first, data) {
			return &AssertionError{
				Type:     AssertSameRows,
				Expected: fmt.Sprintf("%s rows %s", a.Cases[0], first),
				Actual:   fmt.Sprintf("%s rows %s", name, data),
			}
		}
	}
	return nil
}

// rowsValue converts rows to canonical-JSON-compatible values.
func rowsValue(cr *CaseResult) []any {
	out := make([]any, len(cr.Rows.Values))
	for i, row := range cr.Rows.Values {
		out[i] = []any(row)
	}
	return out
}
