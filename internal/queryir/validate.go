package queryir

import (
	"fmt"

	"github.com/Mootikins/crucible-sub016/internal/ir"
)

// DuplicateAliasError reports an alias declared by more than one node or edge.
type DuplicateAliasError struct {
	Alias string
}

func (e *DuplicateAliasError) Error() string {
	return fmt.Sprintf("duplicate alias %q", e.Alias)
}

// DanglingReferenceError reports a filter or projection naming an alias the
// pattern never declares.
type DanglingReferenceError struct {
	Alias  string
	Clause string // "filter" or "projection"
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s references undeclared alias %q", e.Clause, e.Alias)
}

// InvalidPatternError reports any other structural violation.
type InvalidPatternError struct {
	Reason string
}

func (e *InvalidPatternError) Error() string {
	return "invalid pattern: " + e.Reason
}

func invalid(format string, args ...any) error {
	return &InvalidPatternError{Reason: fmt.Sprintf(format, args...)}
}

// IsIdentifier reports whether s matches [A-Za-z_][A-Za-z0-9_]*.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// validator walks a query in path order and stops at the first violation,
// so the reported error is deterministic.
type validator struct {
	declared map[string]bool
}

func validate(q *Query) error {
	v := &validator{declared: map[string]bool{}}
	if err := v.validateSource(q.source); err != nil {
		return err
	}
	if err := v.validateNode(q.start); err != nil {
		return err
	}
	for _, h := range q.hops {
		if err := v.validateEdge(h.Edge); err != nil {
			return err
		}
		if err := v.validateNode(h.Node); err != nil {
			return err
		}
	}
	for _, f := range q.filters {
		if err := v.validateFilter(f); err != nil {
			return err
		}
	}
	return v.validateProjections(q.projections)
}

func (v *validator) validateSource(s Source) error {
	switch s.Kind {
	case SourceAll:
		if s.Value != "" {
			return invalid("source all takes no value")
		}
	case SourceTitle, SourcePath, SourceID:
		if s.Value == "" {
			return invalid("source %s requires a non-empty value", s.Kind)
		}
	default:
		return invalid("unknown source kind %d", s.Kind)
	}
	return nil
}

func (v *validator) declare(alias string) error {
	if alias == "" {
		return nil
	}
	if !IsIdentifier(alias) {
		return invalid("alias %q is not an identifier", alias)
	}
	if v.declared[alias] {
		return &DuplicateAliasError{Alias: alias}
	}
	v.declared[alias] = true
	return nil
}

func (v *validator) validateNode(n NodePattern) error {
	if err := v.declare(n.Alias); err != nil {
		return err
	}
	if n.Label != "" && !IsIdentifier(n.Label) {
		return invalid("label %q is not an identifier", n.Label)
	}
	keys := map[string]bool{}
	for _, p := range n.Properties {
		if !IsIdentifier(p.Key) {
			return invalid("property key %q is not an identifier", p.Key)
		}
		if keys[p.Key] {
			return invalid("property %q repeated in node %q", p.Key, n.Alias)
		}
		keys[p.Key] = true
		if err := validateValue(p.Value); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) validateEdge(e EdgePattern) error {
	if err := v.declare(e.Alias); err != nil {
		return err
	}
	if e.Type != "" && !IsIdentifier(e.Type) {
		return invalid("edge type %q is not an identifier", e.Type)
	}
	if e.Direction > Undirected {
		return invalid("unknown direction %d", e.Direction)
	}
	switch q := e.Quantifier.(type) {
	case nil, ZeroOrMore, OneOrMore:
	case Exactly:
		if q.N < 0 {
			return invalid("quantifier %s is negative", q)
		}
	case Range:
		if q.Min < 0 || q.Min > q.Max {
			return invalid("quantifier %s requires 0 <= min <= max", q)
		}
	case AtLeast:
		if q.Min < 0 {
			return invalid("quantifier %s is negative", q)
		}
	default:
		return invalid("unknown quantifier %T", q)
	}
	return nil
}

func (v *validator) validateFilter(f Filter) error {
	if !v.declared[f.Alias] {
		return &DanglingReferenceError{Alias: f.Alias, Clause: "filter"}
	}
	if !IsIdentifier(f.Property) {
		return invalid("filter property %q is not an identifier", f.Property)
	}
	if f.Op > OpEndsWith {
		return invalid("unknown operator %d", f.Op)
	}
	if err := validateValue(f.Value); err != nil {
		return err
	}
	if f.Op.IsSubstring() {
		switch f.Value.(type) {
		case ir.IRString, ir.IRParam:
		default:
			return invalid("%s requires a string operand, got %s", f.Op, ir.KindOf(f.Value))
		}
	}
	return nil
}

func (v *validator) validateProjections(ps []Projection) error {
	names := map[string]bool{}
	for _, p := range ps {
		if !v.declared[p.Alias] {
			return &DanglingReferenceError{Alias: p.Alias, Clause: "projection"}
		}
		if p.Property != "" && !IsIdentifier(p.Property) {
			return invalid("projection property %q is not an identifier", p.Property)
		}
		if p.Name == "" {
			continue
		}
		if !IsIdentifier(p.Name) {
			return invalid("output name %q is not an identifier", p.Name)
		}
		if names[p.Name] {
			return invalid("output name %q repeated", p.Name)
		}
		names[p.Name] = true
	}
	return nil
}

func validateValue(v ir.IRValue) error {
	switch val := v.(type) {
	case nil:
		return invalid("missing value; use ir.IRNull for null")
	case ir.IRNull, ir.IRString, ir.IRInt, ir.IRBool:
		return nil
	case ir.IRParam:
		if !IsIdentifier(string(val)) {
			return invalid("parameter name %q is not an identifier", string(val))
		}
		return nil
	default:
		return invalid("unsupported literal %T", v)
	}
}
