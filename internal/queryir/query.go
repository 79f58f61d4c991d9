package queryir

import (
	"slices"

	"github.com/Mootikins/crucible-sub016/internal/ir"
)

// Query is a validated, immutable graph pattern query.
// Construct with NewBuilder(...).Build().
type Query struct {
	source      Source
	start       NodePattern
	hops        []Hop
	filters     []Filter
	projections []Projection
}

// Source returns the anchor clause.
func (q *Query) Source() Source { return q.source }

// Start returns the anchor node pattern.
func (q *Query) Start() NodePattern { return q.start.clone() }

// Hops returns a copy of the path steps.
func (q *Query) Hops() []Hop {
	out := make([]Hop, len(q.hops))
	for i, h := range q.hops {
		out[i] = Hop{Edge: h.Edge, Node: h.Node.clone()}
	}
	return out
}

// Filters returns a copy of the conjunctive filters.
func (q *Query) Filters() []Filter { return slices.Clone(q.filters) }

// Projections returns a copy of the output expressions.
func (q *Query) Projections() []Projection { return slices.Clone(q.projections) }

// Nodes returns every node pattern in path order: the anchor first, then the
// node of each hop.
func (q *Query) Nodes() []NodePattern {
	out := make([]NodePattern, 0, len(q.hops)+1)
	out = append(out, q.start.clone())
	for _, h := range q.hops {
		out = append(out, h.Node.clone())
	}
	return out
}

// Final returns the last node pattern of the path.
func (q *Query) Final() NodePattern {
	if len(q.hops) == 0 {
		return q.start.clone()
	}
	return q.hops[len(q.hops)-1].Node.clone()
}

// RefKind says whether an alias names a node or an edge.
type RefKind uint8

const (
	RefNode RefKind = iota
	RefEdge
)

// Ref locates a declared alias. For nodes, Index 0 is the anchor and Index i
// is the node of hop i-1. For edges, Index i is the edge of hop i.
type Ref struct {
	Kind  RefKind
	Index int
}

// Resolve looks up a declared alias.
func (q *Query) Resolve(alias string) (Ref, bool) {
	if alias == "" {
		return Ref{}, false
	}
	if q.start.Alias == alias {
		return Ref{Kind: RefNode, Index: 0}, true
	}
	for i, h := range q.hops {
		if h.Edge.Alias == alias {
			return Ref{Kind: RefEdge, Index: i}, true
		}
		if h.Node.Alias == alias {
			return Ref{Kind: RefNode, Index: i + 1}, true
		}
	}
	return Ref{}, false
}

// Params returns the distinct parameter names the query references, sorted.
func (q *Query) Params() []string {
	seen := map[string]bool{}
	add := func(v ir.IRValue) {
		if p, ok := v.(ir.IRParam); ok {
			seen[string(p)] = true
		}
	}
	for _, n := range q.Nodes() {
		for _, p := range n.Properties {
			add(p.Value)
		}
	}
	for _, f := range q.filters {
		add(f.Value)
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Builder assembles a Query. Builder methods copy their arguments, so the
// caller may reuse slices after the call.
type Builder struct {
	q Query
}

// NewBuilder starts a query with the given source and anchor node.
func NewBuilder(source Source, start NodePattern) *Builder {
	return &Builder{q: Query{source: source, start: start.clone()}}
}

// Hop appends one (edge, node) step.
func (b *Builder) Hop(edge EdgePattern, node NodePattern) *Builder {
	b.q.hops = append(b.q.hops, Hop{Edge: edge, Node: node.clone()})
	return b
}

// Where appends conjunctive filters.
func (b *Builder) Where(filters ...Filter) *Builder {
	b.q.filters = append(b.q.filters, filters...)
	return b
}

// Return appends projections.
func (b *Builder) Return(projections ...Projection) *Builder {
	b.q.projections = append(b.q.projections, projections...)
	return b
}

// Build validates the assembled query and returns it.
// The returned Query shares no memory with the Builder.
func (b *Builder) Build() (*Query, error) {
	q := &Query{
		source:      b.q.source,
		start:       b.q.start.clone(),
		hops:        make([]Hop, len(b.q.hops)),
		filters:     slices.Clone(b.q.filters),
		projections: slices.Clone(b.q.projections),
	}
	for i, h := range b.q.hops {
		q.hops[i] = Hop{Edge: h.Edge, Node: h.Node.clone()}
	}
	if err := validate(q); err != nil {
		return nil, err
	}
	return q, nil
}
