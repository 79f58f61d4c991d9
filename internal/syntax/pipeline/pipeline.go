// Package pipeline parses the jq-like pipeline dialect:
//
//	find("Index") -> wikilink -> * | select(.folder == "Projects")
//	outlinks("Index") | select(.title | startswith("Draft"))
//
// A source call picks the anchor, arrows chain hops, and select stages
// filter the final node. Nodes are aliased n0 (the anchor) through nk.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/Mootikins/crucible-sub016/internal/ir"
	"github.com/Mootikins/crucible-sub016/internal/queryir"
	"github.com/Mootikins/crucible-sub016/internal/syntax"
	"github.com/Mootikins/crucible-sub016/internal/syntax/scan"
)

// DefaultPriority runs the pipeline dialect last.
const DefaultPriority = 30

// LinkEdge is the edge type followed by outlinks, inlinks and neighbors.
const LinkEdge = "wikilink"

// sourceFunc describes a source call.
type sourceFunc struct {
	source func(string) queryir.Source // nil for all()
	hop    *queryir.Direction          // helper calls add one wikilink hop
}

func dir(d queryir.Direction) *queryir.Direction { return &d }

var sources = map[string]sourceFunc{
	"find":      {source: queryir.ByTitle},
	"path":      {source: queryir.ByPath},
	"id":        {source: queryir.ByID},
	"all":       {},
	"outlinks":  {source: queryir.ByTitle, hop: dir(queryir.Out)},
	"inlinks":   {source: queryir.ByTitle, hop: dir(queryir.In)},
	"neighbors": {source: queryir.ByTitle, hop: dir(queryir.Both)},
}

var substringFuncs = map[string]queryir.Op{
	"contains":   queryir.OpContains,
	"startswith": queryir.OpStartsWith,
	"endswith":   queryir.OpEndsWith,
}

// Parser implements syntax.Parser for the pipeline dialect.
type Parser struct {
	limits syntax.Limits
}

// New returns a pipeline parser enforcing limits.
func New(limits syntax.Limits) *Parser {
	return &Parser{limits: limits}
}

func (p *Parser) Dialect() syntax.Dialect { return syntax.Pipeline }

func (p *Parser) Priority() int { return DefaultPriority }

func (p *Parser) Capabilities() syntax.Capabilities {
	return syntax.Capabilities{
		Directions:   queryir.AllDirections,
		FilterOps:    queryir.AllOps,
		LiteralKinds: ir.Kinds(ir.KindString),
	}
}

// applicable requires a source function name immediately followed by '('.
func applicable(text string) bool {
	word, rest := scan.LeadingWord(text)
	if _, ok := sources[word]; !ok {
		return false
	}
	return strings.HasPrefix(strings.TrimLeft(rest, " \t"), "(")
}

// TryParse implements syntax.Parser.
func (p *Parser) TryParse(text string) syntax.Outcome {
	if !applicable(text) {
		return syntax.NotApplicable()
	}
	toks, err := scan.Tokenize(text, p.limits.MaxInputBytes)
	if err != nil {
		return syntax.Failed(syntax.NewSyntaxError(syntax.Pipeline, err))
	}
	ps := &parser{cur: scan.NewCursor(toks)}
	b, err := ps.parse()
	if err != nil {
		return syntax.Failed(syntax.NewSyntaxError(syntax.Pipeline, err))
	}
	return syntax.Finish(syntax.Pipeline, p.Capabilities(), p.limits, b)
}

type parser struct {
	cur   *scan.Cursor
	nodes int
}

func (p *parser) nextAlias() string {
	alias := fmt.Sprintf("n%d", p.nodes)
	p.nodes++
	return alias
}

func (p *parser) parse() (*queryir.Builder, error) {
	name := p.cur.Next()
	fn := sources[name.Text]
	if _, err := p.cur.Expect("("); err != nil {
		return nil, err
	}

	source := queryir.All()
	if fn.source != nil {
		arg, err := p.cur.ExpectKind(scan.String)
		if err != nil {
			return nil, err
		}
		if arg.Text == "" {
			return nil, syntax.Errorf(syntax.Pipeline, arg.Pos, "%s() needs a non-empty argument", name.Text)
		}
		source = fn.source(arg.Text)
	}
	if _, err := p.cur.Expect(")"); err != nil {
		return nil, err
	}

	b := queryir.NewBuilder(source, queryir.Node(p.nextAlias()))
	if fn.hop != nil {
		b.Hop(queryir.Edge(LinkEdge, *fn.hop), queryir.Node(p.nextAlias()))
	}

	for {
		d, ok := p.arrow()
		if !ok {
			break
		}
		edgeType, err := p.edgeType()
		if err != nil {
			return nil, err
		}
		b.Hop(queryir.Edge(edgeType, d), queryir.Node(p.nextAlias()))
	}

	final := fmt.Sprintf("n%d", p.nodes-1)
	for p.cur.Accept("|") {
		filters, err := p.parseStage(final)
		if err != nil {
			return nil, err
		}
		b.Where(filters...)
	}

	if tok := p.cur.Peek(); tok.Is("->") || tok.Is("<-") || tok.Is("<->") || tok.Is("--") {
		return nil, syntax.Unsupported(syntax.Pipeline, tok.Pos, "traversal after select")
	}
	if err := p.cur.ExpectEOF(); err != nil {
		return nil, err
	}
	return b, nil
}

func (p *parser) arrow() (queryir.Direction, bool) {
	switch tok := p.cur.Peek(); {
	case tok.Is("->"):
		p.cur.Next()
		return queryir.Out, true
	case tok.Is("<-"):
		p.cur.Next()
		return queryir.In, true
	case tok.Is("<->"):
		p.cur.Next()
		return queryir.Both, true
	case tok.Is("--"):
		p.cur.Next()
		return queryir.Undirected, true
	}
	return 0, false
}

// edgeType := identifier | '*'
func (p *parser) edgeType() (string, error) {
	if p.cur.Accept("*") {
		return "", nil
	}
	tok, err := p.cur.ExpectKind(scan.Ident)
	if err != nil {
		return "", err
	}
	return tok.Text, nil
}

// stage := select '(' cond {and cond} ')'
func (p *parser) parseStage(alias string) ([]queryir.Filter, error) {
	fn, err := p.cur.ExpectKind(scan.Ident)
	if err != nil {
		return nil, err
	}
	if fn.Text != "select" {
		return nil, syntax.Unsupported(syntax.Pipeline, fn.Pos, fn.Text+"()")
	}
	if _, err := p.cur.Expect("("); err != nil {
		return nil, err
	}

	var filters []queryir.Filter
	for {
		f, err := p.parseCond(alias)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
		if p.cur.Keyword("and") {
			continue
		}
		if tok := p.cur.Peek(); tok.IsKeyword("or") {
			return nil, syntax.Unsupported(syntax.Pipeline, tok.Pos, "or")
		}
		break
	}
	if _, err := p.cur.Expect(")"); err != nil {
		return nil, err
	}
	return filters, nil
}

// cond := '.' prop ('==' | '!=') "str"
//
//	| '.' prop '|' (contains | startswith | endswith) '(' "str" ')'
func (p *parser) parseCond(alias string) (queryir.Filter, error) {
	f := queryir.Filter{Alias: alias}
	if _, err := p.cur.Expect("."); err != nil {
		return f, err
	}
	prop, err := p.cur.ExpectKind(scan.Ident)
	if err != nil {
		return f, err
	}
	f.Property = prop.Text

	tok := p.cur.Next()
	switch {
	case tok.Is("=="):
		f.Op = queryir.OpEq
	case tok.Is("!="):
		f.Op = queryir.OpNe
	case tok.Is("|"):
		fn, err := p.cur.ExpectKind(scan.Ident)
		if err != nil {
			return f, err
		}
		op, ok := substringFuncs[fn.Text]
		if !ok {
			return f, syntax.Unsupported(syntax.Pipeline, fn.Pos, fn.Text+"()")
		}
		f.Op = op
		if _, err := p.cur.Expect("("); err != nil {
			return f, err
		}
		val, err := p.stringValue()
		if err != nil {
			return f, err
		}
		f.Value = val
		if _, err := p.cur.Expect(")"); err != nil {
			return f, err
		}
		return f, nil
	default:
		return f, syntax.Errorf(syntax.Pipeline, tok.Pos, "expected ==, != or |, found %s", tok)
	}

	val, err := p.stringValue()
	if err != nil {
		return f, err
	}
	f.Value = val
	return f, nil
}

func (p *parser) stringValue() (ir.IRValue, error) {
	tok := p.cur.Peek()
	if tok.Kind != scan.String {
		return nil, syntax.Errorf(syntax.Pipeline, tok.Pos, "only string literals are supported, found %s", tok)
	}
	p.cur.Next()
	return ir.NewIRString(tok.Text), nil
}
