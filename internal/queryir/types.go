package queryir

import (
	"fmt"
	"strings"

	"github.com/Mootikins/crucible-sub016/internal/ir"
)

// SourceKind identifies how a query's path begins.
type SourceKind uint8

const (
	// SourceAll leaves the anchor unconstrained.
	SourceAll SourceKind = iota
	// SourceTitle anchors on an exact note title.
	SourceTitle
	// SourcePath anchors on a storage path.
	SourcePath
	// SourceID anchors on an identifier. Backends map it to their identity column.
	SourceID
)

// String returns the property name the source constrains ("" for SourceAll).
func (k SourceKind) String() string {
	switch k {
	case SourceTitle:
		return "title"
	case SourcePath:
		return "path"
	case SourceID:
		return "id"
	default:
		return ""
	}
}

// Source is the anchor clause of a query.
type Source struct {
	Kind  SourceKind
	Value string
}

// All returns an unconstrained source.
func All() Source { return Source{Kind: SourceAll} }

// ByTitle anchors on an exact title.
func ByTitle(title string) Source { return Source{Kind: SourceTitle, Value: ir.NormalizeString(title)} }

// ByPath anchors on a storage path.
func ByPath(path string) Source { return Source{Kind: SourcePath, Value: ir.NormalizeString(path)} }

// ByID anchors on an identifier.
func ByID(id string) Source { return Source{Kind: SourceID, Value: ir.NormalizeString(id)} }

func (s Source) String() string {
	if s.Kind == SourceAll {
		return "all"
	}
	return fmt.Sprintf("%s=%q", s.Kind, s.Value)
}

// Property is a literal constraint on a node property.
type Property struct {
	Key   string
	Value ir.IRValue
}

// NodePattern matches a node.
type NodePattern struct {
	Alias      string     // "" = anonymous
	Label      string     // "" = any
	Properties []Property // ordered, keys unique
}

// Node is a convenience constructor for an aliased node pattern.
func Node(alias string, props ...Property) NodePattern {
	return NodePattern{Alias: alias, Properties: props}
}

// Prop is a convenience constructor for a Property.
func Prop(key string, value ir.IRValue) Property {
	return Property{Key: key, Value: value}
}

func (n NodePattern) clone() NodePattern {
	out := n
	out.Properties = append([]Property(nil), n.Properties...)
	return out
}

// Direction is the orientation of an edge relative to the previous node.
type Direction uint8

const (
	// Out follows edges from the previous node to the next (prev→source, next→target).
	Out Direction = iota
	// In follows edges into the previous node (prev→target, next→source).
	In
	// Both matches either orientation (written <-[]-> in Cypher).
	Both
	// Undirected matches either orientation (written -[]- in Cypher).
	Undirected
)

func (d Direction) String() string {
	switch d {
	case Out:
		return "out"
	case In:
		return "in"
	case Both:
		return "both"
	case Undirected:
		return "undirected"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Symmetric reports whether the direction matches either orientation.
func (d Direction) Symmetric() bool {
	return d == Both || d == Undirected
}

// DirectionSet is a set of directions.
type DirectionSet uint8

// Directions builds a DirectionSet.
func Directions(ds ...Direction) DirectionSet {
	var s DirectionSet
	for _, d := range ds {
		s |= 1 << d
	}
	return s
}

// AllDirections contains Out, In, Both and Undirected.
var AllDirections = Directions(Out, In, Both, Undirected)

// Has reports whether d is in the set.
func (s DirectionSet) Has(d Direction) bool { return s&(1<<d) != 0 }

// Minus returns the directions in s that are not in other.
func (s DirectionSet) Minus(other DirectionSet) DirectionSet { return s &^ other }

func (s DirectionSet) String() string {
	var parts []string
	for _, d := range []Direction{Out, In, Both, Undirected} {
		if s.Has(d) {
			parts = append(parts, d.String())
		}
	}
	return strings.Join(parts, "|")
}

// Quantifier governs how many times an edge pattern repeats.
//
// This is a sealed interface. A nil Quantifier means exactly one hop.
type Quantifier interface {
	quantifier() // Marker method - seals interface to this package
	String() string
}

// ZeroOrMore matches paths of length 0..max (Cypher `*`).
type ZeroOrMore struct{}

// OneOrMore matches paths of length 1..max (Cypher `+`).
type OneOrMore struct{}

// Exactly matches paths of length N (Cypher `*N`).
type Exactly struct{ N int }

// Range matches paths of length Min..Max (Cypher `*Min..Max`).
type Range struct{ Min, Max int }

// AtLeast matches paths of length Min..max (Cypher `*Min..`).
type AtLeast struct{ Min int }

func (ZeroOrMore) quantifier() {}
func (OneOrMore) quantifier()  {}
func (Exactly) quantifier()    {}
func (Range) quantifier()      {}
func (AtLeast) quantifier()    {}

func (ZeroOrMore) String() string { return "*" }
func (OneOrMore) String() string  { return "+" }
func (q Exactly) String() string  { return fmt.Sprintf("*%d", q.N) }
func (q Range) String() string    { return fmt.Sprintf("*%d..%d", q.Min, q.Max) }
func (q AtLeast) String() string  { return fmt.Sprintf("*%d..", q.Min) }

// IsSingleHop reports whether q means "exactly one hop".
func IsSingleHop(q Quantifier) bool {
	switch q := q.(type) {
	case nil:
		return true
	case Exactly:
		return q.N == 1
	default:
		return false
	}
}

// IsBounded reports whether q carries its own upper depth bound.
func IsBounded(q Quantifier) bool {
	switch q.(type) {
	case nil, Exactly, Range:
		return true
	default:
		return false
	}
}

// DepthInterval returns the inclusive path-length interval implied by q.
// maxDepth bounds the open-ended variants and is ignored by bounded ones.
func DepthInterval(q Quantifier, maxDepth int) (lo, hi int) {
	switch q := q.(type) {
	case ZeroOrMore:
		return 0, maxDepth
	case OneOrMore:
		return 1, maxDepth
	case Exactly:
		return q.N, q.N
	case Range:
		return q.Min, q.Max
	case AtLeast:
		return q.Min, maxDepth
	default:
		return 1, 1
	}
}

// EdgePattern matches an edge.
type EdgePattern struct {
	Alias      string // "" = anonymous
	Type       string // "" = any edge type
	Direction  Direction
	Quantifier Quantifier // nil = exactly one hop
}

// Edge is a convenience constructor for a single-hop typed edge.
func Edge(edgeType string, dir Direction) EdgePattern {
	return EdgePattern{Type: edgeType, Direction: dir}
}

// Hop is one (edge, node) step of a path.
type Hop struct {
	Edge EdgePattern
	Node NodePattern
}

// Op is a filter comparison operator.
type Op uint8

const (
	OpEq Op = iota
	OpNe
	OpContains
	OpStartsWith
	OpEndsWith
)

// String returns the Cypher spelling of the operator.
func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpContains:
		return "CONTAINS"
	case OpStartsWith:
		return "STARTS WITH"
	case OpEndsWith:
		return "ENDS WITH"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// IsSubstring reports whether the operator is a substring match.
func (o Op) IsSubstring() bool {
	return o == OpContains || o == OpStartsWith || o == OpEndsWith
}

// OpSet is a set of filter operators.
type OpSet uint8

// Ops builds an OpSet.
func Ops(ops ...Op) OpSet {
	var s OpSet
	for _, o := range ops {
		s |= 1 << o
	}
	return s
}

// AllOps contains every filter operator.
var AllOps = Ops(OpEq, OpNe, OpContains, OpStartsWith, OpEndsWith)

// Has reports whether o is in the set.
func (s OpSet) Has(o Op) bool { return s&(1<<o) != 0 }

// Minus returns the operators in s that are not in other.
func (s OpSet) Minus(other OpSet) OpSet { return s &^ other }

func (s OpSet) String() string {
	var parts []string
	for _, o := range []Op{OpEq, OpNe, OpContains, OpStartsWith, OpEndsWith} {
		if s.Has(o) {
			parts = append(parts, o.String())
		}
	}
	return strings.Join(parts, "|")
}

// Filter is a predicate over a declared alias's property.
// Filters in a query are conjunctive.
type Filter struct {
	Alias    string
	Property string
	Op       Op
	Value    ir.IRValue
}

func (f Filter) String() string {
	return fmt.Sprintf("%s.%s %s %s", f.Alias, f.Property, f.Op, ir.FormatValue(f.Value))
}

// Projection is one output expression.
type Projection struct {
	Alias    string
	Property string // "" = the whole node
	Name     string // "" = no output name
}

// Expr returns the alias-qualified expression ("m.title" or "m").
func (p Projection) Expr() string {
	if p.Property == "" {
		return p.Alias
	}
	return p.Alias + "." + p.Property
}
