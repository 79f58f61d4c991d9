// Package querysql renders graph pattern queries to SQLite SQL over a
// notes/edges schema.
//
// Fixed-length paths become a chain of joins. A single quantified hop
// becomes a recursive CTE that walks the edges table with a visited list,
// so cyclic graphs terminate.
package querysql

import (
	"fmt"
	"strings"

	"github.com/Mootikins/crucible-sub016/internal/backend"
	"github.com/Mootikins/crucible-sub016/internal/ir"
	"github.com/Mootikins/crucible-sub016/internal/queryir"
)

// Renderer compiles queries to parameterized SQL for SQLite.
//
// CRITICAL: All values are parameterized (never interpolated). Aliases,
// tables, columns and output names are always quoted.
type Renderer struct{}

// New creates a Renderer.
func New() *Renderer {
	return &Renderer{}
}

var _ backend.Renderer = (*Renderer)(nil)

func (r *Renderer) Backend() backend.Backend { return backend.SQLite }

func (r *Renderer) Capabilities() backend.Capabilities {
	return backend.Capabilities{
		VariableLength: true,
		OutputNames:    true,
		EdgeFilters:    true,
	}
}

// Render converts q to SQL. Values are bound as :key placeholders whose keys
// depend only on the query's structure.
func (r *Renderer) Render(q *queryir.Query, cfg backend.Config) (*backend.Rendered, error) {
	if q == nil {
		return nil, backend.Errorf(backend.SQLite, "cannot render nil query")
	}
	if err := cfg.Validate(); err != nil {
		return nil, backend.Errorf(backend.SQLite, "config: %v", err)
	}
	if err := backend.Check(backend.SQLite, r.Capabilities(), q); err != nil {
		return nil, err
	}

	c := &compilation{
		q:       q,
		cfg:     cfg,
		aliases: backend.AssignAliases(q),
		binder:  backend.NewBinder(backend.SQLite, ":"),
	}

	var text string
	var err error
	if fs := queryir.Features(q); fs.Quantified {
		text, err = c.compileRecursive(fs)
	} else {
		text, err = c.compileJoins()
	}
	if err != nil {
		return nil, err
	}

	bindings, params, err := c.binder.Finish()
	if err != nil {
		return nil, err
	}
	return &backend.Rendered{
		Backend:    backend.SQLite,
		Text:       text,
		Bindings:   bindings,
		Parameters: params,
	}, nil
}

// compilation is the state of one Render call.
type compilation struct {
	q       *queryir.Query
	cfg     backend.Config
	aliases backend.Aliases
	binder  *backend.Binder
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// quoteIdent quotes name as an SQLite identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ref renders a qualified column reference.
func ref(alias, column string) string {
	return quoteIdent(alias) + "." + quoteIdent(column)
}

// visitedSep separates paths in the traversal's visited list. Note paths
// never contain it.
const visitedSep = "char(31)"

// compileJoins renders a path with no quantified hop as a chain of joins.
func (c *compilation) compileJoins() (string, error) {
	hops := c.q.Hops()
	nodes := c.q.Nodes()
	final := c.aliases.Nodes[len(nodes)-1]

	lines := []string{
		"SELECT " + c.compileProjections(final),
		fmt.Sprintf("FROM %s %s", quoteIdent(c.cfg.NotesTable), quoteIdent(c.aliases.Nodes[0])),
	}
	for i, h := range hops {
		join, err := c.compileHopJoin(i, h.Edge)
		if err != nil {
			return "", err
		}
		lines = append(lines, join...)
	}

	var where []string
	where = append(where, c.compileSource()...)
	for i, n := range nodes {
		conds, err := c.compileNode(c.aliases.Nodes[i], n)
		if err != nil {
			return "", err
		}
		where = append(where, conds...)
	}
	for _, f := range c.q.Filters() {
		cond, err := c.compileFilter(f)
		if err != nil {
			return "", err
		}
		where = append(where, cond)
	}
	if len(where) > 0 {
		lines = append(lines, "WHERE "+strings.Join(where, "\n  AND "))
	}
	return strings.Join(lines, "\n"), nil
}

// compileHopJoin joins hop i's edge to the node before it and the next node
// to the edge.
func (c *compilation) compileHopJoin(i int, e queryir.EdgePattern) ([]string, error) {
	from := c.aliases.Nodes[i]
	to := c.aliases.Nodes[i+1]
	ea := c.aliases.Edges[i]
	src := ref(ea, c.cfg.SourceColumn)
	dst := ref(ea, c.cfg.TargetColumn)
	at := ref(from, c.cfg.IDColumn)

	var on, far string
	switch e.Direction {
	case queryir.Out:
		on, far = fmt.Sprintf("%s = %s", src, at), dst
	case queryir.In:
		on, far = fmt.Sprintf("%s = %s", dst, at), src
	case queryir.Both, queryir.Undirected:
		on = fmt.Sprintf("(%s = %s OR %s = %s)", src, at, dst, at)
		far = fmt.Sprintf("CASE WHEN %s = %s THEN %s ELSE %s END", src, at, dst, src)
	default:
		return nil, backend.Errorf(backend.SQLite, "unknown direction %v", e.Direction)
	}
	if e.Type != "" {
		on += fmt.Sprintf(" AND %s = %s", ref(ea, c.cfg.TypeColumn), c.binder.BindNative(ea, "type", e.Type))
	}
	return []string{
		fmt.Sprintf("JOIN %s %s ON %s", quoteIdent(c.cfg.EdgesTable), quoteIdent(ea), on),
		fmt.Sprintf("JOIN %s %s ON %s = %s", quoteIdent(c.cfg.NotesTable), quoteIdent(to), ref(to, c.cfg.IDColumn), far),
	}, nil
}

// compileRecursive renders a single quantified hop as a recursive CTE.
func (c *compilation) compileRecursive(fs queryir.FeatureSet) (string, error) {
	if fs.QuantifiedHops > 1 {
		return "", &backend.UnsupportedFeatureError{
			Backend: backend.SQLite,
			Feature: "multiple quantified hops",
			Detail:  "a variable-length path must be the only hop",
		}
	}
	if fs.Hops != 1 {
		return "", &backend.UnsupportedFeatureError{
			Backend: backend.SQLite,
			Feature: "mixed quantified and fixed hops",
			Detail:  "a variable-length path must be the only hop",
		}
	}
	hops := c.q.Hops()
	edge := hops[0].Edge
	anchor := c.aliases.Nodes[0]
	final := c.aliases.Nodes[1]
	ea := c.aliases.Edges[0]

	for _, p := range c.q.Projections() {
		if p.Alias != final {
			return "", &backend.UnsupportedFeatureError{
				Backend: backend.SQLite,
				Feature: "projection of " + p.Alias,
				Detail:  "variable-length paths can only return the final node",
			}
		}
	}

	lo, hi := queryir.DepthInterval(edge.Quantifier, c.cfg.MaxDepth)
	if !queryir.IsBounded(edge.Quantifier) {
		if c.cfg.MaxDepth <= 0 {
			return "", backend.Errorf(backend.SQLite, "quantifier %s needs a positive max depth", edge.Quantifier)
		}
		if lo > hi {
			return "", backend.Errorf(backend.SQLite, "quantifier %s exceeds max depth %d", edge.Quantifier, c.cfg.MaxDepth)
		}
	}

	// Seed: the anchor rows.
	seed := c.compileSource()
	conds, err := c.compileNode(anchor, c.q.Start())
	if err != nil {
		return "", err
	}
	seed = append(seed, conds...)

	// The traversal is aliased t unless the final node already is.
	tr := "t"
	if final == tr {
		tr = "tr"
	}
	at := tr + ".path"

	var outer []string
	if lo == hi {
		outer = append(outer, fmt.Sprintf("%s.depth = %d", tr, lo))
	} else {
		outer = append(outer, fmt.Sprintf("%s.depth BETWEEN %d AND %d", tr, lo, hi))
	}
	conds, err = c.compileNode(final, hops[0].Node)
	if err != nil {
		return "", err
	}
	outer = append(outer, conds...)

	for _, f := range c.q.Filters() {
		cond, err := c.compileFilter(f)
		if err != nil {
			return "", err
		}
		switch f.Alias {
		case anchor:
			seed = append(seed, cond)
		case final:
			outer = append(outer, cond)
		default:
			return "", &backend.UnsupportedFeatureError{
				Backend: backend.SQLite,
				Feature: "filter on " + f.Alias,
				Detail:  "variable-length paths can only filter the anchor and final nodes",
			}
		}
	}

	src := "e." + quoteIdent(c.cfg.SourceColumn)
	dst := "e." + quoteIdent(c.cfg.TargetColumn)
	var step, next string
	switch edge.Direction {
	case queryir.Out:
		step, next = src+" = "+at, dst
	case queryir.In:
		step, next = dst+" = "+at, src
	case queryir.Both, queryir.Undirected:
		step = fmt.Sprintf("(%s = %s OR %s = %s)", src, at, dst, at)
		next = fmt.Sprintf("CASE WHEN %s = %s THEN %s ELSE %s END", src, at, dst, src)
	default:
		return "", backend.Errorf(backend.SQLite, "unknown direction %v", edge.Direction)
	}
	if edge.Type != "" {
		step += fmt.Sprintf(" AND e.%s = %s", quoteIdent(c.cfg.TypeColumn), c.binder.BindNative(ea, "type", edge.Type))
	}

	id := ref(anchor, c.cfg.IDColumn)
	lines := []string{
		"WITH RECURSIVE traverse(path, depth, visited) AS (",
		fmt.Sprintf("  SELECT %s, 0, %s || %s || %s", id, visitedSep, id, visitedSep),
		fmt.Sprintf("  FROM %s %s", quoteIdent(c.cfg.NotesTable), quoteIdent(anchor)),
	}
	if len(seed) > 0 {
		lines = append(lines, "  WHERE "+strings.Join(seed, "\n    AND "))
	}
	lines = append(lines,
		"  UNION ALL",
		fmt.Sprintf("  SELECT %s, %s.depth + 1, %s.visited || %s || %s", next, tr, tr, next, visitedSep),
		fmt.Sprintf("  FROM traverse %s", tr),
		fmt.Sprintf("  JOIN %s e ON %s", quoteIdent(c.cfg.EdgesTable), step),
		fmt.Sprintf("  WHERE %s.depth < %d", tr, hi),
		fmt.Sprintf("    AND instr(%s.visited, %s || %s || %s) = 0", tr, visitedSep, next, visitedSep),
		")",
		"SELECT DISTINCT "+c.compileProjections(final),
		fmt.Sprintf("FROM traverse %s", tr),
		fmt.Sprintf("JOIN %s %s ON %s = %s", quoteIdent(c.cfg.NotesTable), quoteIdent(final), ref(final, c.cfg.IDColumn), at),
		"WHERE "+strings.Join(outer, "\n  AND "),
	)
	return strings.Join(lines, "\n"), nil
}

// compileProjections returns the SELECT list. With no projections the
// final node's row is returned.
func (c *compilation) compileProjections(final string) string {
	projections := c.q.Projections()
	if len(projections) == 0 {
		return quoteIdent(final) + ".*"
	}
	parts := make([]string, 0, len(projections))
	for _, p := range projections {
		expr := quoteIdent(p.Alias) + ".*"
		if p.Property != "" {
			expr = ref(p.Alias, c.column(p.Alias, p.Property))
		}
		if p.Name != "" {
			expr += " AS " + quoteIdent(p.Name)
		}
		parts = append(parts, expr)
	}
	return strings.Join(parts, ", ")
}

// compileSource constrains the anchor by the query's Source.
func (c *compilation) compileSource() []string {
	src := c.q.Source()
	if src.Kind == queryir.SourceAll {
		return nil
	}
	anchor := c.aliases.Nodes[0]
	ph := c.binder.BindNative(anchor, src.Kind.String(), src.Value)
	return []string{fmt.Sprintf("%s = %s", ref(anchor, c.cfg.SourceColumnFor(src.Kind)), ph)}
}

// compileNode renders a node's label and property constraints.
func (c *compilation) compileNode(alias string, n queryir.NodePattern) ([]string, error) {
	var conds []string
	col, err := c.cfg.LabelFilter(backend.SQLite, n.Label)
	if err != nil {
		return nil, err
	}
	if col != "" {
		conds = append(conds, fmt.Sprintf("%s = %s", ref(alias, col), c.binder.BindNative(alias, "label", n.Label)))
	}
	for _, p := range n.Properties {
		cond, err := c.compileCompare(ref(alias, c.cfg.Column(p.Key)), alias, p.Key, queryir.OpEq, p.Value)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

func (c *compilation) compileFilter(f queryir.Filter) (string, error) {
	return c.compileCompare(ref(f.Alias, c.column(f.Alias, f.Property)), f.Alias, f.Property, f.Op, f.Value)
}

// column maps a property of a node or edge alias to its column.
func (c *compilation) column(alias, property string) string {
	if r, ok := c.q.Resolve(alias); ok && r.Kind == queryir.RefEdge {
		return c.cfg.EdgeColumn(property)
	}
	return c.cfg.Column(property)
}

// compileCompare renders one comparison against expr.
func (c *compilation) compileCompare(expr, alias, property string, op queryir.Op, v ir.IRValue) (string, error) {
	if _, isNull := v.(ir.IRNull); isNull {
		switch op {
		case queryir.OpEq:
			return expr + " IS NULL", nil
		case queryir.OpNe:
			return expr + " IS NOT NULL", nil
		default:
			return "", backend.Errorf(backend.SQLite, "%s cannot compare against null", op)
		}
	}

	switch op {
	case queryir.OpEq, queryir.OpNe:
		ph, err := c.binder.Bind(alias, property, v)
		if err != nil {
			return "", err
		}
		sqlOp := "="
		if op == queryir.OpNe {
			sqlOp = "<>"
		}
		return fmt.Sprintf("%s %s %s", expr, sqlOp, ph), nil
	case queryir.OpContains, queryir.OpStartsWith, queryir.OpEndsWith:
		pattern, err := c.compileLike(alias, property, op, v)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, expr, pattern), nil
	default:
		return "", backend.Errorf(backend.SQLite, "unknown operator %v", op)
	}
}

// compileLike returns the LIKE pattern expression for a substring operator.
// Literal operands are escaped and bound whole; parameters are wrapped in
// concatenated wildcards and matched as given.
func (c *compilation) compileLike(alias, property string, op queryir.Op, v ir.IRValue) (string, error) {
	prefix, suffix := "%", "%"
	switch op {
	case queryir.OpStartsWith:
		prefix = ""
	case queryir.OpEndsWith:
		suffix = ""
	}

	switch v := v.(type) {
	case ir.IRString:
		pattern := prefix + likeEscaper.Replace(string(v)) + suffix
		return c.binder.BindNative(alias, property, pattern), nil
	case ir.IRParam:
		ph, err := c.binder.Bind(alias, property, v)
		if err != nil {
			return "", err
		}
		if prefix != "" {
			ph = "'%' || " + ph
		}
		if suffix != "" {
			ph += " || '%'"
		}
		return ph, nil
	default:
		return "", backend.Errorf(backend.SQLite, "%s needs a string operand, got %s", op, ir.KindOf(v))
	}
}
