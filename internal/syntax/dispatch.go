package syntax

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/Mootikins/crucible-sub016/internal/queryir"
)

// PriorityTable maps dialects to dispatch priorities. Higher runs first.
// The zero value is empty; values are immutable and With returns a copy.
type PriorityTable struct {
	m map[Dialect]int
}

// DefaultPriorities returns cypher 55, pgq 50, sql-sugar 40, pipeline 30.
func DefaultPriorities() PriorityTable {
	return PriorityTable{m: map[Dialect]int{
		Cypher:   55,
		PGQ:      50,
		Sugar:    40,
		Pipeline: 30,
	}}
}

// With returns a copy of t with d set to priority p.
func (t PriorityTable) With(d Dialect, p int) PriorityTable {
	m := maps.Clone(t.m)
	if m == nil {
		m = map[Dialect]int{}
	}
	m[d] = p
	return PriorityTable{m: m}
}

// Lookup returns the priority configured for d.
func (t PriorityTable) Lookup(d Dialect) (int, bool) {
	p, ok := t.m[d]
	return p, ok
}

// Dispatch is a successful dispatch.
type Dispatch struct {
	Dialect   Dialect
	Query     *queryir.Query
	Attempted []Dialect // dialects tried, in order, ending with Dialect
}

type entry struct {
	parser   Parser
	priority int
}

// Dispatcher tries parsers in descending priority. It holds no mutable state
// after construction and is safe for concurrent use.
type Dispatcher struct {
	order []entry
}

// NewDispatcher orders parsers by priority, descending. Parsers missing from
// table use their own Priority. Ties keep registration order.
func NewDispatcher(table PriorityTable, parsers ...Parser) (*Dispatcher, error) {
	seen := map[Dialect]bool{}
	order := make([]entry, 0, len(parsers))
	for _, p := range parsers {
		if p == nil {
			return nil, fmt.Errorf("nil parser")
		}
		if seen[p.Dialect()] {
			return nil, fmt.Errorf("dialect %s registered twice", p.Dialect())
		}
		seen[p.Dialect()] = true

		prio, ok := table.Lookup(p.Dialect())
		if !ok {
			prio = p.Priority()
		}
		order = append(order, entry{parser: p, priority: prio})
	}
	slices.SortStableFunc(order, func(a, b entry) int {
		return cmp.Compare(b.priority, a.priority)
	})
	return &Dispatcher{order: order}, nil
}

// Order returns the dialects in the order they will be tried.
func (d *Dispatcher) Order() []Dialect {
	out := make([]Dialect, len(d.order))
	for i, e := range d.order {
		out[i] = e.parser.Dialect()
	}
	return out
}

// Priorities returns the resolved priority of each dialect in dispatch order.
func (d *Dispatcher) Priorities() []int {
	out := make([]int, len(d.order))
	for i, e := range d.order {
		out[i] = e.priority
	}
	return out
}

// Parsers returns the parsers in dispatch order.
func (d *Dispatcher) Parsers() []Parser {
	out := make([]Parser, len(d.order))
	for i, e := range d.order {
		out[i] = e.parser
	}
	return out
}

// Dispatch parses text with the first applicable parser.
//
// A SyntaxError from an applicable parser stops dispatch: lower-priority
// dialects are not tried. If no parser applies the error is an
// *UnrecognizedQueryError listing every dialect attempted.
func (d *Dispatcher) Dispatch(text string) (*Dispatch, error) {
	attempted := make([]Dialect, 0, len(d.order))
	for _, e := range d.order {
		attempted = append(attempted, e.parser.Dialect())
		out := e.parser.TryParse(text)
		switch out.Status {
		case StatusNotApplicable:
			continue
		case StatusMatched:
			if out.Query == nil {
				return nil, fmt.Errorf("%s: parser matched without a query", e.parser.Dialect())
			}
			return &Dispatch{Dialect: e.parser.Dialect(), Query: out.Query, Attempted: attempted}, nil
		case StatusSyntaxError:
			if out.Err == nil {
				return nil, &SyntaxError{Dialect: e.parser.Dialect(), Reason: "malformed query"}
			}
			return nil, out.Err
		default:
			return nil, fmt.Errorf("%s: unknown parse status %s", e.parser.Dialect(), out.Status)
		}
	}
	return nil, &UnrecognizedQueryError{Input: text, Attempted: attempted}
}
