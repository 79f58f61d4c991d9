// Package cypher parses the full graph-pattern dialect, a Cypher subset:
//
//	MATCH (n {path: 'index.md'})-[:LINKS_TO*1..3]->(m)
//	WHERE m.folder = 'Projects'
//	RETURN m.path, m.title AS name
//
// It is the only dialect with filters, projections, $parameters and
// quantified edges. Constructs outside the subset (OR, ORDER BY, LIMIT,
// CREATE, ...) are reported as syntax errors, never ignored.
package cypher

import (
	"strings"

	"github.com/Mootikins/crucible-sub016/internal/ir"
	"github.com/Mootikins/crucible-sub016/internal/queryir"
	"github.com/Mootikins/crucible-sub016/internal/syntax"
	"github.com/Mootikins/crucible-sub016/internal/syntax/scan"
)

// DefaultPriority places cypher ahead of every other dialect.
const DefaultPriority = 55

// anchorKeys are lifted from the anchor node into the query Source.
var anchorKeys = map[string]func(string) queryir.Source{
	"path":  queryir.ByPath,
	"title": queryir.ByTitle,
	"id":    queryir.ByID,
}

// unsupportedClauses maps a leading keyword to the feature it introduces.
var unsupportedClauses = map[string]string{
	"OR":       "OR",
	"XOR":      "XOR",
	"ORDER":    "ORDER BY",
	"LIMIT":    "LIMIT",
	"SKIP":     "SKIP",
	"WITH":     "WITH",
	"UNION":    "UNION",
	"CREATE":   "CREATE",
	"MERGE":    "MERGE",
	"DELETE":   "DELETE",
	"DETACH":   "DETACH DELETE",
	"SET":      "SET",
	"REMOVE":   "REMOVE",
	"OPTIONAL": "OPTIONAL MATCH",
	"MATCH":    "multiple MATCH clauses",
	"UNWIND":   "UNWIND",
	"CALL":     "CALL",
}

// Parser implements syntax.Parser for the cypher dialect.
type Parser struct {
	limits syntax.Limits
}

// New returns a cypher parser enforcing limits.
func New(limits syntax.Limits) *Parser {
	return &Parser{limits: limits}
}

func (p *Parser) Dialect() syntax.Dialect { return syntax.Cypher }

func (p *Parser) Priority() int { return DefaultPriority }

func (p *Parser) Capabilities() syntax.Capabilities {
	return syntax.Capabilities{
		PropertyConstraints: true,
		Labels:              true,
		Directions:          queryir.AllDirections,
		Quantifiers:         true,
		FilterOps:           queryir.AllOps,
		Projection:          true,
		OutputNames:         true,
		Parameters:          true,
		LiteralKinds:        ir.Kinds(ir.KindString, ir.KindInt, ir.KindBool, ir.KindNull),
	}
}

// applicable reports whether text opens with a clause keyword only this
// dialect uses.
func applicable(text string) bool {
	word, _ := scan.LeadingWord(text)
	switch strings.ToUpper(word) {
	case "MATCH", "OPTIONAL", "CREATE", "MERGE":
		return true
	default:
		return false
	}
}

// TryParse implements syntax.Parser.
func (p *Parser) TryParse(text string) syntax.Outcome {
	if !applicable(text) {
		return syntax.NotApplicable()
	}
	toks, err := scan.Tokenize(text, p.limits.MaxInputBytes)
	if err != nil {
		return syntax.Failed(syntax.NewSyntaxError(syntax.Cypher, err))
	}

	ps := &parser{cur: scan.NewCursor(toks)}
	b, err := ps.parseQuery()
	if err != nil {
		return syntax.Failed(syntax.NewSyntaxError(syntax.Cypher, err))
	}
	return syntax.Finish(syntax.Cypher, p.Capabilities(), p.limits, b)
}

type parser struct {
	cur *scan.Cursor
}

func (p *parser) unsupported(tok scan.Token, feature string) error {
	return syntax.Unsupported(syntax.Cypher, tok.Pos, feature)
}

func (p *parser) parseQuery() (*queryir.Builder, error) {
	if tok := p.cur.Peek(); !tok.IsKeyword("MATCH") {
		return nil, p.unsupported(tok, unsupportedClauses[strings.ToUpper(tok.Text)])
	}
	p.cur.Next()

	start, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	source, start := liftAnchor(start)
	b := queryir.NewBuilder(source, start)

	for p.cur.Peek().Is("-") || p.cur.Peek().Is("<-") || p.cur.Peek().Is("--") {
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
	if tok := p.cur.Peek(); tok.Is(",") {
		return nil, p.unsupported(tok, "comma-separated patterns")
	}

	if p.cur.Keyword("WHERE") {
		filters, err := p.parseWhere()
		if err != nil {
			return nil, err
		}
		b.Where(filters...)
	}

	if p.cur.Keyword("RETURN") {
		projections, err := p.parseReturn()
		if err != nil {
			return nil, err
		}
		b.Return(projections...)
	}

	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return b, nil
}

// expectEnd fails at trailing input, naming the unsupported clause when the
// trailing keyword is a known one.
func (p *parser) expectEnd() error {
	tok := p.cur.Peek()
	if tok.Kind == scan.Ident {
		if feature, ok := unsupportedClauses[strings.ToUpper(tok.Text)]; ok {
			return p.unsupported(tok, feature)
		}
	}
	return p.cur.ExpectEOF()
}

// liftAnchor moves the first literal path, title or id property of the
// anchor node into the query source.
func liftAnchor(n queryir.NodePattern) (queryir.Source, queryir.NodePattern) {
	for i, prop := range n.Properties {
		mk, ok := anchorKeys[prop.Key]
		if !ok {
			continue
		}
		s, ok := prop.Value.(ir.IRString)
		if !ok || s == "" {
			continue
		}
		rest := make([]queryir.Property, 0, len(n.Properties)-1)
		rest = append(rest, n.Properties[:i]...)
		rest = append(rest, n.Properties[i+1:]...)
		n.Properties = rest
		return mk(string(s)), n
	}
	return queryir.All(), n
}

// node := '(' [alias] [':' Label] ['{' props '}'] ')'
func (p *parser) parseNode() (queryir.NodePattern, error) {
	var n queryir.NodePattern
	if _, err := p.cur.Expect("("); err != nil {
		return n, err
	}
	if tok := p.cur.Peek(); tok.Kind == scan.Ident {
		n.Alias = p.cur.Next().Text
	}
	if p.cur.Accept(":") {
		label, err := p.cur.ExpectKind(scan.Ident)
		if err != nil {
			return n, err
		}
		n.Label = label.Text
		if tok := p.cur.Peek(); tok.Is(":") {
			return n, p.unsupported(tok, "multiple labels")
		}
	}
	if p.cur.Peek().Is("{") {
		props, err := p.parseProperties()
		if err != nil {
			return n, err
		}
		n.Properties = props
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
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		props = append(props, queryir.Prop(key.Text, val))
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
// and the bare arrows --> <-- <--> --.
func (p *parser) parseEdge() (queryir.EdgePattern, error) {
	var e queryir.EdgePattern
	tok := p.cur.Next()

	switch {
	case tok.Is("--"):
		e.Direction = queryir.Undirected
		if p.cur.Accept(">") {
			e.Direction = queryir.Out
		}
		return e, nil
	case tok.Is("<-") && p.cur.Peek().Is("->"):
		p.cur.Next()
		e.Direction = queryir.Both
		return e, nil
	case tok.Is("<-") && p.cur.Peek().Is("-"):
		p.cur.Next()
		e.Direction = queryir.In
		return e, nil
	}

	incoming := tok.Is("<-")
	if _, err := p.cur.Expect("["); err != nil {
		return e, err
	}
	if err := p.parseEdgeInner(&e); err != nil {
		return e, err
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
		return e, syntax.Errorf(syntax.Cypher, next.Pos, "expected \"->\" or \"-\" after edge, found %s", next)
	}
	return e, nil
}

// inner := [alias] [':' TYPE] [quant]
func (p *parser) parseEdgeInner(e *queryir.EdgePattern) error {
	if tok := p.cur.Peek(); tok.Kind == scan.Ident {
		e.Alias = p.cur.Next().Text
	}
	if p.cur.Accept(":") {
		typ, err := p.cur.ExpectKind(scan.Ident)
		if err != nil {
			return err
		}
		e.Type = typ.Text
		if tok := p.cur.Peek(); tok.Is("|") {
			return p.unsupported(tok, "edge type alternatives")
		}
	}
	q, err := p.parseQuantifier()
	if err != nil {
		return err
	}
	e.Quantifier = q
	if tok := p.cur.Peek(); tok.Is("{") {
		return p.unsupported(tok, "edge property constraints")
	}
	return nil
}

// quant := '*' | '+' | '*' n | '*' a '..' b | '*..' b | '*' a '..'
func (p *parser) parseQuantifier() (queryir.Quantifier, error) {
	if p.cur.Accept("+") {
		return queryir.OneOrMore{}, nil
	}
	if !p.cur.Accept("*") {
		return nil, nil
	}

	if p.cur.Accept("..") {
		if tok := p.cur.Peek(); tok.Kind == scan.Int {
			p.cur.Next()
			return queryir.Range{Min: 0, Max: int(tok.Int)}, nil
		}
		return queryir.ZeroOrMore{}, nil
	}

	lo := p.cur.Peek()
	if lo.Kind != scan.Int {
		return queryir.ZeroOrMore{}, nil
	}
	p.cur.Next()
	if !p.cur.Accept("..") {
		return queryir.Exactly{N: int(lo.Int)}, nil
	}
	if hi := p.cur.Peek(); hi.Kind == scan.Int {
		p.cur.Next()
		if hi.Int < lo.Int {
			return nil, syntax.Errorf(syntax.Cypher, lo.Pos, "quantifier *%d..%d has min greater than max", lo.Int, hi.Int)
		}
		return queryir.Range{Min: int(lo.Int), Max: int(hi.Int)}, nil
	}
	return queryir.AtLeast{Min: int(lo.Int)}, nil
}

func (p *parser) parseWhere() ([]queryir.Filter, error) {
	var filters []queryir.Filter
	for {
		if tok := p.cur.Peek(); tok.IsKeyword("NOT") {
			return nil, p.unsupported(tok, "NOT")
		}
		if tok := p.cur.Peek(); tok.Is("(") {
			return nil, p.unsupported(tok, "parenthesized conditions")
		}
		f, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
		if !p.cur.Keyword("AND") {
			return filters, nil
		}
	}
}

// cond := alias '.' prop op value | alias '.' prop IS [NOT] NULL
func (p *parser) parseCondition() (queryir.Filter, error) {
	var f queryir.Filter
	alias, err := p.cur.ExpectKind(scan.Ident)
	if err != nil {
		return f, err
	}
	if _, err := p.cur.Expect("."); err != nil {
		return f, err
	}
	prop, err := p.cur.ExpectKind(scan.Ident)
	if err != nil {
		return f, err
	}
	f.Alias, f.Property = alias.Text, prop.Text

	tok := p.cur.Next()
	switch {
	case tok.Is("="):
		f.Op = queryir.OpEq
	case tok.Is("!=") || tok.Is("<>"):
		f.Op = queryir.OpNe
	case tok.IsKeyword("CONTAINS"):
		f.Op = queryir.OpContains
	case tok.IsKeyword("STARTS"):
		if err := p.cur.ExpectKeyword("WITH"); err != nil {
			return f, err
		}
		f.Op = queryir.OpStartsWith
	case tok.IsKeyword("ENDS"):
		if err := p.cur.ExpectKeyword("WITH"); err != nil {
			return f, err
		}
		f.Op = queryir.OpEndsWith
	case tok.IsKeyword("IS"):
		f.Op = queryir.OpEq
		if p.cur.Keyword("NOT") {
			f.Op = queryir.OpNe
		}
		if err := p.cur.ExpectKeyword("NULL"); err != nil {
			return f, err
		}
		f.Value = ir.IRNull{}
		return f, nil
	case tok.Is("<") || tok.Is(">") || tok.Is("<-"):
		return f, p.unsupported(tok, "ordering comparison")
	case tok.IsKeyword("IN"):
		return f, p.unsupported(tok, "IN")
	default:
		return f, syntax.Errorf(syntax.Cypher, tok.Pos, "expected comparison operator, found %s", tok)
	}

	val, err := p.parseValue()
	if err != nil {
		return f, err
	}
	f.Value = val
	return f, nil
}

// value := 'str' | "str" | [-]int | true | false | null | $param
func (p *parser) parseValue() (ir.IRValue, error) {
	tok := p.cur.Next()
	switch tok.Kind {
	case scan.String:
		return ir.NewIRString(tok.Text), nil
	case scan.Param:
		return ir.NewIRParam(tok.Text), nil
	case scan.Int:
		if err := p.rejectFloat(); err != nil {
			return nil, err
		}
		return ir.NewIRInt(tok.Int), nil
	case scan.Ident:
		switch {
		case tok.IsKeyword("true"):
			return ir.NewIRBool(true), nil
		case tok.IsKeyword("false"):
			return ir.NewIRBool(false), nil
		case tok.IsKeyword("null"):
			return ir.IRNull{}, nil
		}
	case scan.Punct:
		if tok.Is("-") {
			n, err := p.cur.ExpectKind(scan.Int)
			if err != nil {
				return nil, err
			}
			if err := p.rejectFloat(); err != nil {
				return nil, err
			}
			return ir.NewIRInt(-n.Int), nil
		}
		if tok.Is("[") {
			return nil, p.unsupported(tok, "list literals")
		}
	}
	return nil, syntax.Errorf(syntax.Cypher, tok.Pos, "expected a literal value, found %s", tok)
}

func (p *parser) rejectFloat() error {
	if tok := p.cur.Peek(); tok.Is(".") && p.cur.PeekN(1).Kind == scan.Int {
		return p.unsupported(tok, "floating-point literals")
	}
	return nil
}

// proj := alias ['.' prop] [AS name] | '*'
func (p *parser) parseReturn() ([]queryir.Projection, error) {
	if tok := p.cur.Peek(); tok.IsKeyword("DISTINCT") {
		return nil, p.unsupported(tok, "DISTINCT")
	}
	if p.cur.Accept("*") {
		return nil, nil
	}
	var out []queryir.Projection
	for {
		alias, err := p.cur.ExpectKind(scan.Ident)
		if err != nil {
			return nil, err
		}
		if tok := p.cur.Peek(); tok.Is("(") {
			return nil, p.unsupported(alias, "function calls such as "+alias.Text+"()")
		}
		proj := queryir.Projection{Alias: alias.Text}
		if p.cur.Accept(".") {
			prop, err := p.cur.ExpectKind(scan.Ident)
			if err != nil {
				return nil, err
			}
			proj.Property = prop.Text
		}
		if p.cur.Keyword("AS") {
			name, err := p.cur.ExpectKind(scan.Ident)
			if err != nil {
				return nil, err
			}
			proj.Name = name.Text
		}
		out = append(out, proj)
		if !p.cur.Accept(",") {
			return out, nil
		}
	}
}
