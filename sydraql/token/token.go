// Package token defines sydraQL's lexical token kinds, grounded on the
// typed-token-kind shape observed in the teacher's pkg/traceql test
// suite (lexer_test.go enumerates token kinds like IDENTIFIER, DOT,
// END_ATTRIBUTE as an []int of named constants) — sydraQL's own grammar
// is simpler and spec-defined, so the kind set here is written fresh for
// spec.md §4.6 rather than copied from traceql's attribute-path grammar.
package token

// Kind classifies a lexed token.
type Kind int

const (
	EOF Kind = iota
	Identifier
	QuotedIdentifier
	Number
	String
	Keyword
	Punctuation
	Arithmetic
	Comparison
	Logical
	Arrow
	Unknown
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Identifier:
		return "Identifier"
	case QuotedIdentifier:
		return "QuotedIdentifier"
	case Number:
		return "Number"
	case String:
		return "String"
	case Keyword:
		return "Keyword"
	case Punctuation:
		return "Punctuation"
	case Arithmetic:
		return "Arithmetic"
	case Comparison:
		return "Comparison"
	case Logical:
		return "Logical"
	case Arrow:
		return "Arrow"
	default:
		return "Unknown"
	}
}

// Span is a byte-offset range into the source text, [Start, End).
type Span struct {
	Start int
	End   int
}

// Token is one lexed unit: its kind, its lexeme, its span, and (for
// Keyword tokens) the canonicalized lower-case keyword text. The lexeme
// is the source slice for most kinds; for QuotedIdentifier and String it
// is the unescaped contents without delimiters, not a slice of the source.
type Token struct {
	Kind    Kind
	Lexeme  string
	Span    Span
	Keyword string

	// IntValue/FloatValue/IsFloat hold a Number token's parsed value.
	IsFloat   bool
	IntValue  int64
	FloatValue float64
}

// Keywords is the fixed, case-insensitive keyword table. "and"/"or"/"not"
// are logical keywords; everything else is a plain reserved word.
var Keywords = map[string]bool{
	"select": true, "from": true, "where": true, "group": true, "by": true,
	"order": true, "limit": true, "offset": true, "insert": true, "into": true,
	"values": true, "delete": true, "explain": true, "fill": true,
	"previous": true, "linear": true, "null": true, "true": true, "false": true,
	"and": true, "or": true, "not": true, "as": true, "asc": true, "desc": true,
	"time": true, "tag": true, "by_id": true,
}

// LogicalKeywords maps and/or/not onto their logical-operator spelling.
var LogicalKeywords = map[string]string{
	"and": "&&",
	"or":  "||",
	"not": "!",
}
