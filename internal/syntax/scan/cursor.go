package scan

// Cursor walks a token slice. The slice always ends in an EOF token, and the
// cursor never advances past it.
type Cursor struct {
	toks []Token
	i    int
}

// NewCursor returns a cursor over toks. A missing EOF terminator is added.
func NewCursor(toks []Token) *Cursor {
	if len(toks) == 0 || toks[len(toks)-1].Kind != EOF {
		var pos Pos
		if len(toks) > 0 {
			pos = toks[len(toks)-1].Pos
		}
		toks = append(toks, Token{Kind: EOF, Pos: pos})
	}
	return &Cursor{toks: toks}
}

// Peek returns the current token without consuming it.
func (c *Cursor) Peek() Token { return c.toks[c.i] }

// PeekN returns the token n positions ahead (0 = current).
func (c *Cursor) PeekN(n int) Token {
	if c.i+n >= len(c.toks) {
		return c.toks[len(c.toks)-1]
	}
	return c.toks[c.i+n]
}

// Next consumes and returns the current token.
func (c *Cursor) Next() Token {
	tok := c.toks[c.i]
	if tok.Kind != EOF {
		c.i++
	}
	return tok
}

// AtEOF reports whether every token has been consumed.
func (c *Cursor) AtEOF() bool { return c.Peek().Kind == EOF }

// Mark returns the current position for Reset.
func (c *Cursor) Mark() int { return c.i }

// Reset rewinds to a position returned by Mark.
func (c *Cursor) Reset(mark int) { c.i = mark }

// Accept consumes the punctuation p if it is next.
func (c *Cursor) Accept(p string) bool {
	if c.Peek().Is(p) {
		c.i++
		return true
	}
	return false
}

// Expect consumes the punctuation p or fails.
func (c *Cursor) Expect(p string) (Token, error) {
	tok := c.Peek()
	if !tok.Is(p) {
		return tok, Errorf(tok.Pos, "expected %q, found %s", p, tok)
	}
	c.i++
	return tok, nil
}

// IsKeyword reports whether the next token is the keyword kw.
func (c *Cursor) IsKeyword(kw string) bool { return c.Peek().IsKeyword(kw) }

// Keyword consumes the keyword kw (case-insensitive) if it is next.
func (c *Cursor) Keyword(kw string) bool {
	if c.Peek().IsKeyword(kw) {
		c.i++
		return true
	}
	return false
}

// ExpectKeyword consumes the keyword kw or fails.
func (c *Cursor) ExpectKeyword(kw string) error {
	if !c.Keyword(kw) {
		tok := c.Peek()
		return Errorf(tok.Pos, "expected %s, found %s", kw, tok)
	}
	return nil
}

// ExpectKind consumes a token of kind k or fails.
func (c *Cursor) ExpectKind(k Kind) (Token, error) {
	tok := c.Peek()
	if tok.Kind != k {
		return tok, Errorf(tok.Pos, "expected %s, found %s", k, tok)
	}
	c.i++
	return tok, nil
}

// ExpectEOF fails if any token remains.
func (c *Cursor) ExpectEOF() error {
	tok := c.Peek()
	if tok.Kind != EOF {
		return Errorf(tok.Pos, "unexpected %s after end of query", tok)
	}
	return nil
}
