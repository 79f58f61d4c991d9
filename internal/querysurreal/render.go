// Package querysurreal renders graph pattern queries to SurrealQL.
//
// Notes live in one table and edges are SurrealDB relation tables named by
// edge type. A one-hop pattern becomes a count() over a graph traversal from
// the candidate note back to the anchor.
package querysurreal

import (
	"fmt"
	"strings"

	"github.com/Mootikins/crucible-sub016/internal/backend"
	"github.com/Mootikins/crucible-sub016/internal/ir"
	"github.com/Mootikins/crucible-sub016/internal/queryir"
)

// Renderer compiles queries to parameterized SurrealQL.
type Renderer struct{}

// New creates a Renderer.
func New() *Renderer {
	return &Renderer{}
}

var _ backend.Renderer = (*Renderer)(nil)

func (r *Renderer) Backend() backend.Backend { return backend.SurrealDB }

func (r *Renderer) Capabilities() backend.Capabilities {
	return backend.Capabilities{MaxHops: 1}
}

// Render converts q to SurrealQL with $key placeholders.
func (r *Renderer) Render(q *queryir.Query, cfg backend.Config) (*backend.Rendered, error) {
	if q == nil {
		return nil, backend.Errorf(backend.SurrealDB, "cannot render nil query")
	}
	if err := cfg.Validate(); err != nil {
		return nil, backend.Errorf(backend.SurrealDB, "config: %v", err)
	}
	if err := backend.Check(backend.SurrealDB, r.Capabilities(), q); err != nil {
		return nil, err
	}

	c := &compilation{
		q:       q,
		cfg:     cfg,
		aliases: backend.AssignAliases(q),
		binder:  backend.NewBinder(backend.SurrealDB, "$"),
	}
	text, err := c.compileSelect()
	if err != nil {
		return nil, err
	}
	bindings, params, err := c.binder.Finish()
	if err != nil {
		return nil, err
	}
	return &backend.Rendered{
		Backend:    backend.SurrealDB,
		Text:       text,
		Bindings:   bindings,
		Parameters: params,
	}, nil
}

type compilation struct {
	q       *queryir.Query
	cfg     backend.Config
	aliases backend.Aliases
	binder  *backend.Binder
}

func (c *compilation) compileSelect() (string, error) {
	nodes := c.q.Nodes()
	anchor := c.aliases.Nodes[0]
	final := c.aliases.Nodes[len(nodes)-1]

	fields, err := c.compileProjections(final)
	if err != nil {
		return "", err
	}

	// Anchor conditions: the outer WHERE for a lookup, the traversal
	// subquery otherwise.
	anchorConds := c.compileSource()
	conds, err := c.compileNode(anchor, nodes[0])
	if err != nil {
		return "", err
	}
	anchorConds = append(anchorConds, conds...)

	var finalConds []string
	if len(nodes) > 1 {
		if finalConds, err = c.compileNode(final, nodes[1]); err != nil {
			return "", err
		}
	}
	for _, f := range c.q.Filters() {
		cond, err := c.compileFilter(f)
		if err != nil {
			return "", err
		}
		if f.Alias == anchor {
			anchorConds = append(anchorConds, cond)
		} else {
			finalConds = append(finalConds, cond)
		}
	}

	var where []string
	if hops := c.q.Hops(); len(hops) == 1 {
		target := c.cfg.NotesTable
		if len(anchorConds) > 0 {
			target = fmt.Sprintf("(%s WHERE %s)", c.cfg.NotesTable, strings.Join(anchorConds, " AND "))
		}
		traversal, err := c.compileTraversal(hops[0].Edge, target)
		if err != nil {
			return "", err
		}
		where = append(where, traversal)
		where = append(where, finalConds...)
	} else {
		where = append(anchorConds, finalConds...)
	}

	text := fmt.Sprintf("SELECT %s FROM %s", fields, c.cfg.NotesTable)
	if len(where) > 0 {
		text += " WHERE " + strings.Join(where, " AND ")
	}
	return text, nil
}

// quoteIdent wraps name in SurrealQL identifier brackets.
func quoteIdent(name string) string {
	return "\u27e8" + name + "\u27e9"
}

// compileTraversal matches notes reachable from target over one edge. The
// arrows point from the candidate back to the anchor.
func (c *compilation) compileTraversal(e queryir.EdgePattern, target string) (string, error) {
	table := "?"
	if e.Type != "" {
		if !queryir.IsIdentifier(e.Type) {
			return "", backend.Errorf(backend.SurrealDB, "edge type %q is not an identifier", e.Type)
		}
		table = quoteIdent(e.Type)
	}
	incoming := fmt.Sprintf("count(<-%s<-%s) > 0", table, target)
	outgoing := fmt.Sprintf("count(->%s->%s) > 0", table, target)

	switch e.Direction {
	case queryir.Out:
		return incoming, nil
	case queryir.In:
		return outgoing, nil
	case queryir.Both, queryir.Undirected:
		return fmt.Sprintf("(%s OR %s)", incoming, outgoing), nil
	default:
		return "", backend.Errorf(backend.SurrealDB, "unknown direction %v", e.Direction)
	}
}

func (c *compilation) compileProjections(final string) (string, error) {
	projections := c.q.Projections()
	if len(projections) == 0 {
		return "*", nil
	}
	fields := make([]string, 0, len(projections))
	for _, p := range projections {
		if p.Alias != final {
			return "", &backend.UnsupportedFeatureError{
				Backend: backend.SurrealDB,
				Feature: "projection of " + p.Alias,
				Detail:  "only the final node can be returned",
			}
		}
		if p.Property == "" {
			fields = append(fields, "*")
		} else {
			fields = append(fields, c.cfg.Column(p.Property))
		}
	}
	return strings.Join(fields, ", "), nil
}

func (c *compilation) compileSource() []string {
	src := c.q.Source()
	if src.Kind == queryir.SourceAll {
		return nil
	}
	ph := c.binder.BindNative(c.aliases.Nodes[0], src.Kind.String(), src.Value)
	return []string{fmt.Sprintf("%s = %s", c.cfg.SourceColumnFor(src.Kind), ph)}
}

func (c *compilation) compileNode(alias string, n queryir.NodePattern) ([]string, error) {
	var conds []string
	col, err := c.cfg.LabelFilter(backend.SurrealDB, n.Label)
	if err != nil {
		return nil, err
	}
	if col != "" {
		conds = append(conds, fmt.Sprintf("%s = %s", col, c.binder.BindNative(alias, "label", n.Label)))
	}
	for _, p := range n.Properties {
		cond, err := c.compileCompare(alias, p.Key, queryir.OpEq, p.Value)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

func (c *compilation) compileFilter(f queryir.Filter) (string, error) {
	return c.compileCompare(f.Alias, f.Property, f.Op, f.Value)
}

var stringFuncs = map[queryir.Op]string{
	queryir.OpContains:   "string::contains",
	queryir.OpStartsWith: "string::starts_with",
	queryir.OpEndsWith:   "string::ends_with",
}

// compileCompare renders one comparison. Fields are unqualified since each
// SELECT ranges over a single table.
func (c *compilation) compileCompare(alias, property string, op queryir.Op, v ir.IRValue) (string, error) {
	field := c.cfg.Column(property)
	if _, isNull := v.(ir.IRNull); isNull {
		switch op {
		case queryir.OpEq:
			return field + " IS NONE", nil
		case queryir.OpNe:
			return field + " IS NOT NONE", nil
		default:
			return "", backend.Errorf(backend.SurrealDB, "%s cannot compare against null", op)
		}
	}

	ph, err := c.binder.Bind(alias, property, v)
	if err != nil {
		return "", err
	}
	switch op {
	case queryir.OpEq:
		return fmt.Sprintf("%s = %s", field, ph), nil
	case queryir.OpNe:
		return fmt.Sprintf("%s != %s", field, ph), nil
	default:
		fn, ok := stringFuncs[op]
		if !ok {
			return "", backend.Errorf(backend.SurrealDB, "unknown operator %v", op)
		}
		return fmt.Sprintf("%s(%s, %s)", fn, field, ph), nil
	}
}
