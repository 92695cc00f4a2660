// Package lexer tokenizes sydraQL source text per spec.md §4.6. There is
// no retrieved lexer source for pkg/traceql in the example pack (only its
// test files), so this is written fresh in the terse, single-file,
// offset-tracking style the teacher's other hand-rolled scanners use
// (e.g. friggdb's fixed-width binary record readers), rather than copied
// from any one teacher source.
package lexer

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/sydradb/sydradb/internal/sydraerr"
	"github.com/sydradb/sydradb/sydraql/token"
)

// ErrInvalidLiteral is returned for a malformed numeric literal.
var ErrInvalidLiteral = errors.New("invalid literal")

// ErrUnterminatedString is returned for a quoted/string literal missing
// its closing delimiter.
var ErrUnterminatedString = errors.New("unterminated string")

// Lexer tokenizes one sydraQL statement's source text.
type Lexer struct {
	src string
	pos int
}

// New creates a Lexer over src.
func New(src string) *Lexer {
	return &Lexer{src: src}
}

// Next consumes and returns the next token.
func (l *Lexer) Next() (token.Token, error) {
	l.skipTrivia()

	start := l.pos
	if l.pos >= len(l.src) {
		return token.Token{Kind: token.EOF, Span: token.Span{Start: start, End: start}}, nil
	}

	c := l.src[l.pos]

	switch {
	case isIdentStart(c):
		return l.lexIdentifierOrKeyword(), nil
	case c == '"':
		return l.lexDelimited('"', token.QuotedIdentifier)
	case c == '\'':
		return l.lexDelimited('\'', token.String)
	case isDigit(c):
		return l.lexNumber()
	default:
		return l.lexOperatorOrPunct()
	}
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (token.Token, error) {
	save := l.pos
	tok, err := l.Next()
	l.pos = save
	return tok, err
}

func (l *Lexer) skipTrivia() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '-' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '-':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '*':
			l.pos += 2
			for l.pos+1 < len(l.src) && !(l.src[l.pos] == '*' && l.src[l.pos+1] == '/') {
				l.pos++
			}
			if l.pos+1 < len(l.src) {
				l.pos += 2
			} else {
				l.pos = len(l.src) // unterminated block comment falls through to EOF
			}
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentBody(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (l *Lexer) lexIdentifierOrKeyword() token.Token {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) && isIdentBody(l.src[l.pos]) {
		l.pos++
	}

	lexeme := l.src[start:l.pos]
	lower := strings.ToLower(lexeme)
	if token.Keywords[lower] {
		return token.Token{Kind: token.Keyword, Lexeme: lexeme, Span: token.Span{Start: start, End: l.pos}, Keyword: lower}
	}
	return token.Token{Kind: token.Identifier, Lexeme: lexeme, Span: token.Span{Start: start, End: l.pos}}
}

// lexDelimited scans a delimiter-quoted lexeme, where a doubled delimiter
// is an escape for one literal delimiter character.
func (l *Lexer) lexDelimited(delim byte, kind token.Kind) (token.Token, error) {
	start := l.pos
	l.pos++ // opening delimiter

	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token.Token{}, sydraerr.Wrap(sydraerr.Protocol, ErrUnterminatedString, "lexing delimited literal")
		}
		c := l.src[l.pos]
		if c == delim {
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == delim {
				sb.WriteByte(delim)
				l.pos += 2
				continue
			}
			l.pos++
			break
		}
		sb.WriteByte(c)
		l.pos++
	}

	return token.Token{Kind: kind, Lexeme: sb.String(), Span: token.Span{Start: start, End: l.pos}}, nil
}

func (l *Lexer) lexNumber() (token.Token, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}

	isFloat := false
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		isFloat = true
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}

	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		save := l.pos
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		digitsStart := l.pos
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		if l.pos == digitsStart {
			// no exponent digits: this wasn't actually an exponent, back out.
			l.pos = save
		} else {
			isFloat = true
		}
	}

	lexeme := l.src[start:l.pos]
	tok := token.Token{Kind: token.Number, Lexeme: lexeme, Span: token.Span{Start: start, End: l.pos}, IsFloat: isFloat}

	if isFloat {
		f, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			return token.Token{}, sydraerr.Wrap(sydraerr.Protocol, ErrInvalidLiteral, "parsing float literal "+lexeme)
		}
		tok.FloatValue = f
	} else {
		n, err := strconv.ParseInt(lexeme, 10, 64)
		if err != nil {
			return token.Token{}, sydraerr.Wrap(sydraerr.Protocol, ErrInvalidLiteral, "parsing int literal "+lexeme)
		}
		tok.IntValue = n
	}

	return tok, nil
}

func (l *Lexer) lexOperatorOrPunct() (token.Token, error) {
	start := l.pos
	c := l.src[l.pos]

	two := ""
	if l.pos+1 < len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}

	switch two {
	case "!=", "=~", "!~", ">=", "<=", "&&", "||", "->":
		l.pos += 2
		kind := token.Comparison
		if two == "&&" || two == "||" {
			kind = token.Logical
		}
		if two == "->" {
			kind = token.Arrow
		}
		return token.Token{Kind: kind, Lexeme: two, Span: token.Span{Start: start, End: l.pos}}, nil
	}

	switch c {
	case '=', '<', '>':
		l.pos++
		return token.Token{Kind: token.Comparison, Lexeme: string(c), Span: token.Span{Start: start, End: l.pos}}, nil
	case '+', '-', '*', '/', '%', '^':
		l.pos++
		return token.Token{Kind: token.Arithmetic, Lexeme: string(c), Span: token.Span{Start: start, End: l.pos}}, nil
	case ',', '.', ';', ':', '(', ')', '[', ']', '{', '}':
		l.pos++
		return token.Token{Kind: token.Punctuation, Lexeme: string(c), Span: token.Span{Start: start, End: l.pos}}, nil
	default:
		l.pos++
		return token.Token{Kind: token.Unknown, Lexeme: string(c), Span: token.Span{Start: start, End: l.pos}}, nil
	}
}
