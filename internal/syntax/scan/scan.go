// Package scan tokenizes query text for every dialect.
//
// The scanner is deliberately dialect-agnostic: it knows identifiers,
// quoted strings, unsigned integers, $parameters and a fixed punctuation
// set. Dialect parsers decide what the tokens mean.
package scan

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Mootikins/crucible-sub016/internal/ir"
)

// Kind classifies a token.
type Kind uint8

const (
	EOF Kind = iota
	Ident
	String
	Int
	Param
	Punct
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "end of input"
	case Ident:
		return "identifier"
	case String:
		return "string"
	case Int:
		return "integer"
	case Param:
		return "parameter"
	case Punct:
		return "punctuation"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Pos is a 1-based line/column position (columns count runes).
type Pos struct {
	Offset int
	Line   int
	Column int
}

// Token is one lexical unit. For String tokens Text holds the decoded,
// NFC-normalized value; for Param tokens it holds the name without '$'.
type Token struct {
	Kind Kind
	Text string
	Int  int64
	Pos  Pos
}

// Is reports whether the token is the punctuation p.
func (t Token) Is(p string) bool {
	return t.Kind == Punct && t.Text == p
}

// IsKeyword reports whether the token is an identifier equal to kw,
// ignoring case.
func (t Token) IsKeyword(kw string) bool {
	return t.Kind == Ident && strings.EqualFold(t.Text, kw)
}

func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "end of input"
	case String:
		return strconv.Quote(t.Text)
	case Param:
		return "$" + t.Text
	default:
		return fmt.Sprintf("%q", t.Text)
	}
}

// Error is a lexical or grammatical error at a position.
type Error struct {
	Line   int
	Column int
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Reason)
}

// Errorf builds an *Error at pos.
func Errorf(pos Pos, format string, args ...any) *Error {
	return &Error{Line: pos.Line, Column: pos.Column, Reason: fmt.Sprintf(format, args...)}
}

// puncts is ordered longest first so that "<->" wins over "<-" and "<".
var puncts = []string{
	"<->",
	"->", "<-", "--", "..", "!=", "<>", "==",
	"(", ")", "[", "]", "{", "}", ":", ",", ".", "*", "+", "-", "=", "|", "<", ">",
}

type scanner struct {
	input     string
	pos       int
	line      int
	lineStart int // offset of the first byte of the current line
}

func (s *scanner) here() Pos {
	return Pos{
		Offset: s.pos,
		Line:   s.line,
		Column: utf8.RuneCountInString(s.input[s.lineStart:s.pos]) + 1,
	}
}

// Tokenize splits input into tokens terminated by an EOF token.
//
// On error the tokens scanned so far are returned alongside it, so that a
// parser can still decide whether the input was meant for its dialect.
// maxBytes <= 0 disables the size limit.
func Tokenize(input string, maxBytes int) ([]Token, error) {
	s := &scanner{input: input, line: 1}
	if maxBytes > 0 && len(input) > maxBytes {
		return nil, Errorf(s.here(), "input is %d bytes, limit is %d", len(input), maxBytes)
	}

	var toks []Token
	for {
		s.skipSpace()
		if s.pos >= len(s.input) {
			toks = append(toks, Token{Kind: EOF, Pos: s.here()})
			return toks, nil
		}
		tok, err := s.next()
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
	}
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.input) {
		switch s.input[s.pos] {
		case '\n':
			s.pos++
			s.line++
			s.lineStart = s.pos
		case ' ', '\t', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) next() (Token, error) {
	start := s.here()
	c := s.input[s.pos]

	switch {
	case isIdentStart(c):
		end := s.pos + 1
		for end < len(s.input) && isIdentPart(s.input[end]) {
			end++
		}
		tok := Token{Kind: Ident, Text: s.input[s.pos:end], Pos: start}
		s.pos = end
		return tok, nil

	case isDigit(c):
		end := s.pos + 1
		for end < len(s.input) && isDigit(s.input[end]) {
			end++
		}
		text := s.input[s.pos:end]
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Token{}, Errorf(start, "integer %s out of range", text)
		}
		s.pos = end
		return Token{Kind: Int, Text: text, Int: n, Pos: start}, nil

	case c == '\'' || c == '"':
		return s.quoted(start, c)

	case c == '$':
		end := s.pos + 1
		if end >= len(s.input) || !isIdentStart(s.input[end]) {
			return Token{}, Errorf(start, "expected parameter name after '$'")
		}
		for end < len(s.input) && isIdentPart(s.input[end]) {
			end++
		}
		tok := Token{Kind: Param, Text: s.input[s.pos+1 : end], Pos: start}
		s.pos = end
		return tok, nil
	}

	for _, p := range puncts {
		if strings.HasPrefix(s.input[s.pos:], p) {
			s.pos += len(p)
			return Token{Kind: Punct, Text: p, Pos: start}, nil
		}
	}

	r, _ := utf8.DecodeRuneInString(s.input[s.pos:])
	return Token{}, Errorf(start, "unexpected character %q", r)
}

func (s *scanner) quoted(start Pos, quote byte) (Token, error) {
	var b strings.Builder
	i := s.pos + 1
	for i < len(s.input) {
		c := s.input[i]
		switch c {
		case quote:
			s.pos = i + 1
			return Token{Kind: String, Text: ir.NormalizeString(b.String()), Pos: start}, nil
		case '\\':
			if i+1 >= len(s.input) {
				return Token{}, Errorf(start, "missing closing quote in string literal")
			}
			switch esc := s.input[i+1]; esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(esc)
			default:
				return Token{}, Errorf(start, "unknown escape \\%c in string literal", esc)
			}
			i += 2
		case '\n':
			return Token{}, Errorf(start, "newline in string literal")
		default:
			b.WriteByte(c)
			i++
		}
	}
	return Token{}, Errorf(start, "missing closing quote in string literal")
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// LeadingWord returns the identifier at the start of text, after leading
// whitespace, and the text that follows it. Parsers use it for applicability
// checks that must not depend on the rest of the input being well formed.
func LeadingWord(text string) (word, rest string) {
	i := 0
	for i < len(text) && (text[i] == ' ' || text[i] == '\t' || text[i] == '\r' || text[i] == '\n') {
		i++
	}
	if i >= len(text) || !isIdentStart(text[i]) {
		return "", text[i:]
	}
	j := i + 1
	for j < len(text) && isIdentPart(text[j]) {
		j++
	}
	return text[i:j], text[j:]
}
