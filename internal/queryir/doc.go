// Package queryir provides the canonical intermediate representation (IR)
// of graph pattern queries over a knowledge graph of notes and links.
//
// QueryIR is the abstraction boundary between the front-end dialects and the
// backend renderers:
//
//	[cypher]   ─┐
//	[pgq]      ─┤                  ┌→ [SQLite SQL]
//	[sql-sugar]─┼→ [Query IR] ─────┤
//	[pipeline] ─┘                  └→ [SurrealQL]
//
// A Query answers "find nodes reachable from an anchor by a path of typed
// edges, filtered and optionally projected":
//
//   - Source: how the path begins (by title, path, id, or all nodes)
//   - Start: the anchor NodePattern
//   - Hops: ordered (EdgePattern, NodePattern) steps
//   - Filters: conjunctive predicates over declared aliases
//   - Projections: ordered output expressions (empty = final node, all columns)
//
// IMMUTABILITY:
//
// Queries are constructed once through Builder and never mutated. Accessors
// return copies. Build validates every structural invariant, so a *Query in
// hand is always well formed:
//
//   - aliases are valid identifiers and unique across nodes and edges
//   - property keys are unique within a node
//   - quantifier ranges satisfy 0 <= Min <= Max
//   - substring operators only take string or parameter operands
//   - every filter and projection alias is declared by the pattern
//
// A dangling alias is a construction-time error (DanglingReferenceError),
// never a render-time one.
//
// SEALED INTERFACES:
//
// Quantifier is sealed using the marker method pattern, enabling exhaustive
// type switches in the renderers:
//
//	switch q := edge.Quantifier.(type) {
//	case nil:          // exactly one hop
//	case ZeroOrMore:   // [0, max]
//	case OneOrMore:    // [1, max]
//	case Exactly:      // [n, n]
//	case Range:        // [min, max]
//	case AtLeast:      // [min, max]
//	}
//
// Literal operands use ir.IRValue (no floats).
package queryir
