package queryir

import "github.com/Mootikins/crucible-sub016/internal/ir"

// FeatureSet summarises the constructs a query uses. Parsers and renderers
// compare it against their declared capabilities.
type FeatureSet struct {
	PropertyConstraints bool
	Labels              bool
	Directions          DirectionSet
	Quantified          bool // some hop is not a single hop
	QuantifiedHops      int
	FilterOps           OpSet
	Projection          bool
	OutputNames         bool
	Parameters          bool
	LiteralKinds        ir.KindSet // kinds of property and filter operands, params excluded
	Hops                int
	EdgeAliasRefs       bool // a filter or projection names an edge alias
}

// Features walks q once and reports the constructs it uses.
func Features(q *Query) FeatureSet {
	var fs FeatureSet
	fs.Hops = len(q.hops)

	literal := func(v ir.IRValue) {
		k := ir.KindOf(v)
		if k == ir.KindParam {
			fs.Parameters = true
			return
		}
		fs.LiteralKinds = fs.LiteralKinds.Add(k)
	}

	node := func(n NodePattern) {
		if n.Label != "" {
			fs.Labels = true
		}
		for _, p := range n.Properties {
			fs.PropertyConstraints = true
			literal(p.Value)
		}
	}

	node(q.start)
	for _, h := range q.hops {
		fs.Directions |= Directions(h.Edge.Direction)
		if !IsSingleHop(h.Edge.Quantifier) {
			fs.Quantified = true
			fs.QuantifiedHops++
		}
		node(h.Node)
	}

	for _, f := range q.filters {
		fs.FilterOps |= Ops(f.Op)
		literal(f.Value)
		if ref, ok := q.Resolve(f.Alias); ok && ref.Kind == RefEdge {
			fs.EdgeAliasRefs = true
		}
	}

	for _, p := range q.projections {
		fs.Projection = true
		if p.Name != "" {
			fs.OutputNames = true
		}
		if ref, ok := q.Resolve(p.Alias); ok && ref.Kind == RefEdge {
			fs.EdgeAliasRefs = true
		}
	}
	return fs
}
