package syntax

import (
	"fmt"

	"github.com/Mootikins/crucible-sub016/internal/ir"
	"github.com/Mootikins/crucible-sub016/internal/queryir"
)

// Capabilities declares the subset of the IR a dialect can produce.
type Capabilities struct {
	PropertyConstraints bool
	Labels              bool
	Directions          queryir.DirectionSet
	Quantifiers         bool
	FilterOps           queryir.OpSet
	Projection          bool
	OutputNames         bool
	Parameters          bool
	LiteralKinds        ir.KindSet
}

// CheckCapabilities returns a *CapabilityError naming the first construct in
// q that caps does not declare.
func CheckCapabilities(caps Capabilities, q *queryir.Query) error {
	fs := queryir.Features(q)

	var feature string
	switch {
	case fs.PropertyConstraints && !caps.PropertyConstraints:
		feature = "property constraints"
	case fs.Labels && !caps.Labels:
		feature = "node labels"
	case fs.Directions.Minus(caps.Directions) != 0:
		feature = fmt.Sprintf("direction %s", fs.Directions.Minus(caps.Directions))
	case fs.Quantified && !caps.Quantifiers:
		feature = "quantified edges"
	case fs.FilterOps.Minus(caps.FilterOps) != 0:
		feature = fmt.Sprintf("filter operator %s", fs.FilterOps.Minus(caps.FilterOps))
	case fs.Projection && !caps.Projection:
		feature = "projections"
	case fs.OutputNames && !caps.OutputNames:
		feature = "output names"
	case fs.Parameters && !caps.Parameters:
		feature = "parameters"
	case fs.LiteralKinds.Minus(caps.LiteralKinds) != 0:
		feature = fmt.Sprintf("%s literals", fs.LiteralKinds.Minus(caps.LiteralKinds))
	default:
		return nil
	}
	return &CapabilityError{Feature: feature}
}

// Limits bounds adversarial input.
type Limits struct {
	MaxInputBytes int
	MaxHops       int // also bounds explicit quantifier counts
}

// DefaultLimits returns 64 KiB of input and 32 hops.
func DefaultLimits() Limits {
	return Limits{MaxInputBytes: 64 << 10, MaxHops: 32}
}

// CheckLimits verifies hop counts and explicit quantifier bounds.
func (l Limits) CheckLimits(q *queryir.Query) error {
	if l.MaxHops <= 0 {
		return nil
	}
	hops := q.Hops()
	if len(hops) > l.MaxHops {
		return fmt.Errorf("query has %d hops, limit is %d", len(hops), l.MaxHops)
	}
	for _, h := range hops {
		var bound int
		switch qt := h.Edge.Quantifier.(type) {
		case queryir.Exactly:
			bound = qt.N
		case queryir.Range:
			bound = qt.Max
		case queryir.AtLeast:
			bound = qt.Min
		}
		if bound > l.MaxHops {
			return fmt.Errorf("quantifier %s exceeds the hop limit %d", h.Edge.Quantifier, l.MaxHops)
		}
	}
	return nil
}

// Finish builds the query assembled by a parser, enforces limits and
// capabilities, and wraps any failure as a SyntaxError for dialect d.
// Every dialect ends its parse with Finish so that the checks are uniform.
func Finish(d Dialect, caps Capabilities, limits Limits, b *queryir.Builder) Outcome {
	q, err := b.Build()
	if err != nil {
		return Failed(NewSyntaxError(d, err))
	}
	if err := limits.CheckLimits(q); err != nil {
		return Failed(NewSyntaxError(d, err))
	}
	if err := CheckCapabilities(caps, q); err != nil {
		return Failed(NewSyntaxError(d, err))
	}
	return Matched(q)
}
