// Package sugar parses the keyword-shorthand dialect:
//
//	SELECT outlinks FROM 'Index'
//	SELECT links FROM PATH 'projects/plan.md' DEPTH 2
//	SELECT note FROM ID 'abc123'
//
// Each shape word expands to a fixed traversal from the anchor. Edges are
// always outgoing and DEPTH expands into that many fixed hops, never a
// quantifier.
package sugar

import (
	"strings"

	"github.com/Mootikins/crucible-sub016/internal/ir"
	"github.com/Mootikins/crucible-sub016/internal/queryir"
	"github.com/Mootikins/crucible-sub016/internal/syntax"
	"github.com/Mootikins/crucible-sub016/internal/syntax/scan"
)

// DefaultPriority runs sugar after the pattern dialects.
const DefaultPriority = 40

// Edge types produced by the traversal shapes.
const (
	WikilinkEdge = "wikilink"
	TagEdge      = "tagged_with"
)

// shape describes what a shape word expands to.
type shape struct {
	lookup   bool   // zero hops
	edgeType string // "" = any edge type
}

var shapes = map[string]shape{
	"*":        {lookup: true},
	"note":     {lookup: true},
	"outlinks": {edgeType: WikilinkEdge},
	"links":    {},
	"tags":     {edgeType: TagEdge},
}

// Parser implements syntax.Parser for the sql-sugar dialect.
type Parser struct {
	limits syntax.Limits
}

// New returns a sugar parser enforcing limits.
func New(limits syntax.Limits) *Parser {
	return &Parser{limits: limits}
}

func (p *Parser) Dialect() syntax.Dialect { return syntax.Sugar }

func (p *Parser) Priority() int { return DefaultPriority }

func (p *Parser) Capabilities() syntax.Capabilities {
	return syntax.Capabilities{
		Directions:   queryir.Directions(queryir.Out),
		LiteralKinds: ir.Kinds(ir.KindString),
	}
}

// applicable requires SELECT followed by a shape word, and rejects the
// SQL/PGQ form SELECT * FROM GRAPH_TABLE.
func applicable(toks []scan.Token) bool {
	if len(toks) < 2 || !toks[0].IsKeyword("SELECT") {
		return false
	}
	if _, ok := shapes[strings.ToLower(toks[1].Text)]; !ok || toks[1].Kind == scan.String {
		return false
	}
	if len(toks) > 3 && toks[2].IsKeyword("FROM") && toks[3].IsKeyword("GRAPH_TABLE") {
		return false
	}
	return true
}

// TryParse implements syntax.Parser.
func (p *Parser) TryParse(text string) syntax.Outcome {
	word, _ := scan.LeadingWord(text)
	if !strings.EqualFold(word, "SELECT") {
		return syntax.NotApplicable()
	}
	toks, scanErr := scan.Tokenize(text, p.limits.MaxInputBytes)
	if !applicable(toks) {
		return syntax.NotApplicable()
	}
	if scanErr != nil {
		return syntax.Failed(syntax.NewSyntaxError(syntax.Sugar, scanErr))
	}

	b, err := p.parse(scan.NewCursor(toks))
	if err != nil {
		return syntax.Failed(syntax.NewSyntaxError(syntax.Sugar, err))
	}
	return syntax.Finish(syntax.Sugar, p.Capabilities(), p.limits, b)
}

func (p *Parser) parse(cur *scan.Cursor) (*queryir.Builder, error) {
	cur.Next() // SELECT
	shapeTok := cur.Next()
	sh := shapes[strings.ToLower(shapeTok.Text)]

	if err := cur.ExpectKeyword("FROM"); err != nil {
		return nil, err
	}
	source, err := parseAnchor(cur)
	if err != nil {
		return nil, err
	}

	depth := 1
	if tok := cur.Peek(); tok.IsKeyword("DEPTH") {
		cur.Next()
		if sh.lookup {
			return nil, syntax.Errorf(syntax.Sugar, tok.Pos, "DEPTH does not apply to SELECT %s", shapeTok.Text)
		}
		n, err := cur.ExpectKind(scan.Int)
		if err != nil {
			return nil, err
		}
		if n.Int < 1 || (p.limits.MaxHops > 0 && n.Int > int64(p.limits.MaxHops)) {
			return nil, syntax.Errorf(syntax.Sugar, n.Pos, "DEPTH %d out of range 1..%d", n.Int, p.limits.MaxHops)
		}
		depth = int(n.Int)
	}

	if tok := cur.Peek(); tok.Kind == scan.Ident {
		switch strings.ToUpper(tok.Text) {
		case "WHERE", "ORDER", "LIMIT", "JOIN", "GROUP":
			return nil, syntax.Unsupported(syntax.Sugar, tok.Pos, strings.ToUpper(tok.Text))
		}
	}
	if err := cur.ExpectEOF(); err != nil {
		return nil, err
	}

	b := queryir.NewBuilder(source, queryir.NodePattern{})
	if sh.lookup {
		return b, nil
	}
	for range depth {
		b.Hop(queryir.Edge(sh.edgeType, queryir.Out), queryir.NodePattern{})
	}
	return b, nil
}

// anchor := 'Title' | TITLE 'title' | PATH 'path' | ID 'id'
func parseAnchor(cur *scan.Cursor) (queryir.Source, error) {
	mk := queryir.ByTitle
	switch {
	case cur.Keyword("PATH"):
		mk = queryir.ByPath
	case cur.Keyword("ID"):
		mk = queryir.ByID
	case cur.Keyword("TITLE"):
	}
	tok := cur.Peek()
	if tok.Kind != scan.String {
		return queryir.Source{}, syntax.Errorf(syntax.Sugar, tok.Pos, "expected a quoted anchor, found %s", tok)
	}
	cur.Next()
	if tok.Text == "" {
		return queryir.Source{}, syntax.Errorf(syntax.Sugar, tok.Pos, "anchor must not be empty")
	}
	return mk(tok.Text), nil
}
