// Package pgq parses the pattern-only dialect modelled on SQL/PGQ:
//
//	MATCH (a {title: 'Index'})-[:wikilink]->(b)
//	GRAPH_TABLE (notes MATCH (a IS Note)->(b))
//	SELECT * FROM GRAPH_TABLE (MATCH (a)<-(b))
//
// The dialect describes patterns only. It has no WHERE, COLUMNS or RETURN
// clause, no quantifiers, no parameters, and only string literals.
package pgq

import (
	"strings"

	"github.com/Mootikins/crucible-sub016/internal/ir"
	"github.com/Mootikins/crucible-sub016/internal/queryir"
	"github.com/Mootikins/crucible-sub016/internal/syntax"
	"github.com/Mootikins/crucible-sub016/internal/syntax/scan"
)

// DefaultPriority runs pgq after cypher, which also claims bare MATCH.
const DefaultPriority = 50

// Parser implements syntax.Parser for the pgq dialect.
type Parser struct {
	limits syntax.Limits
}

// New returns a pgq parser enforcing limits.
func New(limits syntax.Limits) *Parser {
	return &Parser{limits: limits}
}

func (p *Parser) Dialect() syntax.Dialect { return syntax.PGQ }

func (p *Parser) Priority() int { return DefaultPriority }

func (p *Parser) Capabilities() syntax.Capabilities {
	return syntax.Capabilities{
		PropertyConstraints: true,
		Labels:              true,
		Directions:          queryir.AllDirections,
		LiteralKinds:        ir.Kinds(ir.KindString),
	}
}

// form identifies which of the three entry shapes the text uses.
type form uint8

const (
	formNone form = iota
	formMatch
	formGraphTable
	formSelect
)

func classify(text string, toks []scan.Token) form {
	word, _ := scan.LeadingWord(text)
	switch strings.ToUpper(word) {
	case "MATCH":
		return formMatch
	case "GRAPH_TABLE":
		return formGraphTable
	case "SELECT":
		for i := 1; i+1 < len(toks); i++ {
			if toks[i].IsKeyword("FROM") && toks[i+1].IsKeyword("GRAPH_TABLE") {
				return formSelect
			}
		}
	}
	return formNone
}

// TryParse implements syntax.Parser.
func (p *Parser) TryParse(text string) syntax.Outcome {
	word, _ := scan.LeadingWord(text)
	switch strings.ToUpper(word) {
	case "MATCH", "GRAPH_TABLE", "SELECT":
	default:
		return syntax.NotApplicable()
	}

	toks, scanErr := scan.Tokenize(text, p.limits.MaxInputBytes)
	f := classify(text, toks)
	if f == formNone {
		return syntax.NotApplicable()
	}
	if scanErr != nil {
		return syntax.Failed(syntax.NewSyntaxError(syntax.PGQ, scanErr))
	}

	ps := &parser{cur: scan.NewCursor(toks)}
	b, err := ps.parse(f)
	if err != nil {
		return syntax.Failed(syntax.NewSyntaxError(syntax.PGQ, err))
	}
	return syntax.Finish(syntax.PGQ, p.Capabilities(), p.limits, b)
}

type parser struct {
	cur *scan.Cursor
}

func (p *parser) unsupported(tok scan.Token, feature string) error {
	return syntax.Unsupported(syntax.PGQ, tok.Pos, feature)
}

func (p *parser) parse(f form) (*queryir.Builder, error) {
	switch f {
	case formMatch:
		b, err := p.parseMatch()
		if err != nil {
			return nil, err
		}
		return b, p.expectEnd()

	case formGraphTable:
		p.cur.Next() // GRAPH_TABLE
		b, err := p.parseGraphTable()
		if err != nil {
			return nil, err
		}
		return b, p.expectEnd()

	default:
		p.cur.Next() // SELECT
		if tok := p.cur.Peek(); !tok.Is("*") {
			return nil, p.unsupported(tok, "column selection")
		}
		p.cur.Next()
		if err := p.cur.ExpectKeyword("FROM"); err != nil {
			return nil, err
		}
		if err := p.cur.ExpectKeyword("GRAPH_TABLE"); err != nil {
			return nil, err
		}
		b, err := p.parseGraphTable()
		if err != nil {
			return nil, err
		}
		return b, p.expectEnd()
	}
}

func (p *parser) expectEnd() error {
	tok := p.cur.Peek()
	switch {
	case tok.IsKeyword("WHERE"):
		return p.unsupported(tok, "WHERE")
	case tok.IsKeyword("RETURN"), tok.IsKeyword("COLUMNS"):
		return p.unsupported(tok, "projection")
	case tok.IsKeyword("ORDER"), tok.IsKeyword("LIMIT"):
		return p.unsupported(tok, strings.ToUpper(tok.Text))
	case tok.Is(","):
		return p.unsupported(tok, "comma-separated patterns")
	}
	return p.cur.ExpectEOF()
}

// graph_table := '(' [graph] MATCH pattern ')'
func (p *parser) parseGraphTable() (*queryir.Builder, error) {
	if _, err := p.cur.Expect("("); err != nil {
		return nil, err
	}
	if tok := p.cur.Peek(); tok.Kind == scan.Ident && !tok.IsKeyword("MATCH") {
		p.cur.Next() // graph name, informational only
	}
	b, err := p.parseMatch()
	if err != nil {
		return nil, err
	}
	tok := p.cur.Peek()
	switch {
	case tok.IsKeyword("WHERE"):
		return nil, p.unsupported(tok, "WHERE")
	case tok.IsKeyword("COLUMNS"):
		return nil, p.unsupported(tok, "projection")
	}
	if _, err := p.cur.Expect(")"); err != nil {
		return nil, err
	}
	return b, nil
}

// match := MATCH node {edge node}
func (p *parser) parseMatch() (*queryir.Builder, error) {
	if err := p.cur.ExpectKeyword("MATCH"); err != nil {
		return nil, err
	}
	start, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	b := queryir.NewBuilder(queryir.All(), start)
	for isEdgeStart(p.cur.Peek()) {
		edge, err := p.parseEdge()
		if err != nil {
			return nil, err
		}
		node, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		b.Hop(edge, node)
	}
	return b, nil
}

func isEdgeStart(tok scan.Token) bool {
	return tok.Is("-") || tok.Is("->") || tok.Is("<-") || tok.Is("<->") || tok.Is("--")
}

// node := '(' [alias] [(':' | IS) Label] ['{' key ':' 'string' ... '}'] ')'
func (p *parser) parseNode() (queryir.NodePattern, error) {
	var n queryir.NodePattern
	if _, err := p.cur.Expect("("); err != nil {
		return n, err
	}
	if tok := p.cur.Peek(); tok.Kind == scan.Ident && !tok.IsKeyword("IS") {
		n.Alias = p.cur.Next().Text
	}
	if p.cur.Accept(":") || p.cur.Keyword("IS") {
		label, err := p.cur.ExpectKind(scan.Ident)
		if err != nil {
			return n, err
		}
		n.Label = label.Text
	}
	if p.cur.Peek().Is("{") {
		props, err := p.parseProperties()
		if err != nil {
			return n, err
		}
		n.Properties = props
	}
	if tok := p.cur.Peek(); tok.IsKeyword("WHERE") {
		return n, p.unsupported(tok, "WHERE")
	}
	if _, err := p.cur.Expect(")"); err != nil {
		return n, err
	}
	return n, nil
}

func (p *parser) parseProperties() ([]queryir.Property, error) {
	p.cur.Next() // {
	var props []queryir.Property
	if p.cur.Accept("}") {
		return props, nil
	}
	for {
		key, err := p.cur.ExpectKind(scan.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.cur.Expect(":"); err != nil {
			return nil, err
		}
		val := p.cur.Next()
		switch val.Kind {
		case scan.String:
		case scan.Param:
			return nil, p.unsupported(val, "parameters")
		default:
			return nil, syntax.Errorf(syntax.PGQ, val.Pos, "only string literals are supported, found %s", val)
		}
		props = append(props, queryir.Prop(key.Text, ir.NewIRString(val.Text)))
		if p.cur.Accept(",") {
			continue
		}
		if _, err := p.cur.Expect("}"); err != nil {
			return nil, err
		}
		return props, nil
	}
}

// parseEdge handles the bracketed forms
//
//	-[inner]->   <-[inner]-   <-[inner]->   -[inner]-
//
// and the abbreviated arrows -> <- <-> - and --.
func (p *parser) parseEdge() (queryir.EdgePattern, error) {
	var e queryir.EdgePattern
	tok := p.cur.Next()

	if !p.cur.Peek().Is("[") {
		switch {
		case tok.Is("->"):
			e.Direction = queryir.Out
		case tok.Is("<-"):
			e.Direction = queryir.In
		case tok.Is("<->"):
			e.Direction = queryir.Both
		case tok.Is("-"), tok.Is("--"):
			e.Direction = queryir.Undirected
		}
		return e, p.rejectQuantifier()
	}
	if !tok.Is("-") && !tok.Is("<-") {
		return e, syntax.Errorf(syntax.PGQ, tok.Pos, "unexpected %s before edge", tok)
	}

	incoming := tok.Is("<-")
	p.cur.Next() // [
	if t := p.cur.Peek(); t.Kind == scan.Ident && !t.IsKeyword("IS") {
		e.Alias = p.cur.Next().Text
	}
	if p.cur.Accept(":") || p.cur.Keyword("IS") {
		typ, err := p.cur.ExpectKind(scan.Ident)
		if err != nil {
			return e, err
		}
		e.Type = typ.Text
	}
	if err := p.rejectQuantifier(); err != nil {
		return e, err
	}
	if t := p.cur.Peek(); t.Is("{") {
		return e, p.unsupported(t, "edge property constraints")
	}
	if _, err := p.cur.Expect("]"); err != nil {
		return e, err
	}

	switch {
	case p.cur.Accept("->"):
		e.Direction = queryir.Out
		if incoming {
			e.Direction = queryir.Both
		}
	case p.cur.Accept("-"):
		e.Direction = queryir.Undirected
		if incoming {
			e.Direction = queryir.In
		}
	default:
		next := p.cur.Peek()
		return e, syntax.Errorf(syntax.PGQ, next.Pos, "expected \"->\" or \"-\" after edge, found %s", next)
	}
	return e, p.rejectQuantifier()
}

// rejectQuantifier fails on '*', '+' or a '{m,n}' repetition.
func (p *parser) rejectQuantifier() error {
	tok := p.cur.Peek()
	switch {
	case tok.Is("*"), tok.Is("+"):
		return p.unsupported(tok, "quantified edges")
	case tok.Is("{") && p.cur.PeekN(1).Kind == scan.Int:
		return p.unsupported(tok, "quantified edges")
	}
	return nil
}
