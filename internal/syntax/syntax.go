// Package syntax defines the contract shared by the query dialect parsers
// and the priority dispatcher that chooses between them.
//
// Each dialect lives in its own sub-package (cypher, pgq, sugar, pipeline)
// and implements Parser. A parser first performs a cheap applicability check
// on the leading tokens and only then parses:
//
//	NotApplicable  the text is not in this dialect; try the next parser
//	Matched        the text parsed into a valid, capability-checked Query
//	SyntaxError    the text is in this dialect but malformed; stop
//
// The Dispatcher tries parsers in descending priority and applies exactly
// these rules. A parser never returns a Query that uses a construct outside
// its declared Capabilities.
package syntax

import (
	"fmt"
	"slices"

	"github.com/Mootikins/crucible-sub016/internal/queryir"
)

// Dialect names one front-end query syntax. The set is closed.
type Dialect string

const (
	Cypher   Dialect = "cypher"
	PGQ      Dialect = "pgq"
	Sugar    Dialect = "sql-sugar"
	Pipeline Dialect = "pipeline"
)

var dialects = []Dialect{Cypher, PGQ, Sugar, Pipeline}

// Dialects returns every dialect in registration order.
func Dialects() []Dialect { return slices.Clone(dialects) }

// ParseDialect resolves a dialect name.
func ParseDialect(name string) (Dialect, error) {
	for _, d := range dialects {
		if string(d) == name {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown dialect %q", name)
}

// Status is the kind of a parse Outcome.
type Status uint8

const (
	StatusNotApplicable Status = iota
	StatusMatched
	StatusSyntaxError
)

func (s Status) String() string {
	switch s {
	case StatusNotApplicable:
		return "not-applicable"
	case StatusMatched:
		return "matched"
	case StatusSyntaxError:
		return "syntax-error"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Outcome is the result of Parser.TryParse.
type Outcome struct {
	Status Status
	Query  *queryir.Query // set when Matched
	Err    *SyntaxError   // set when SyntaxError
}

// NotApplicable reports that the text is not in the parser's dialect.
func NotApplicable() Outcome { return Outcome{Status: StatusNotApplicable} }

// Matched reports a successful parse.
func Matched(q *queryir.Query) Outcome { return Outcome{Status: StatusMatched, Query: q} }

// Failed reports a malformed query in the parser's dialect.
func Failed(err *SyntaxError) Outcome { return Outcome{Status: StatusSyntaxError, Err: err} }

// Parser is one dialect front end. Implementations are stateless and safe
// for concurrent use.
type Parser interface {
	Dialect() Dialect
	// Priority is the parser's default dispatch priority. A PriorityTable
	// entry overrides it.
	Priority() int
	Capabilities() Capabilities
	TryParse(text string) Outcome
}
