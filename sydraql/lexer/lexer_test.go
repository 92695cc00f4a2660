package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sydradb/sydradb/sydraql/token"
)

func allKinds(t *testing.T, src string) []token.Kind {
	t.Helper()
	l := New(src)
	var kinds []token.Kind
	for {
		tok, err := l.Next()
		require.NoError(t, err)
		kinds = append(kinds, tok.Kind)
		if tok.Kind == token.EOF {
			break
		}
	}
	return kinds
}

func TestLexSelectStatement(t *testing.T) {
	kinds := allKinds(t, `select value from metrics where time > 0 limit 10`)
	require.Equal(t, []token.Kind{
		token.Keyword, token.Identifier, token.Keyword, token.Identifier,
		token.Keyword, token.Keyword, token.Comparison, token.Number,
		token.Keyword, token.Number, token.EOF,
	}, kinds)
}

func TestLexQuotedIdentifierAndString(t *testing.T) {
	l := New(`"my col" 'it''s ok'`)

	tok, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, token.QuotedIdentifier, tok.Kind)
	require.Equal(t, "my col", tok.Lexeme)

	tok, err = l.Next()
	require.NoError(t, err)
	require.Equal(t, token.String, tok.Kind)
	require.Equal(t, "it's ok", tok.Lexeme)
}

func TestLexNumbers(t *testing.T) {
	l := New(`42 3.14 1e3 2.5e-2`)

	tok, err := l.Next()
	require.NoError(t, err)
	require.False(t, tok.IsFloat)
	require.Equal(t, int64(42), tok.IntValue)

	tok, err = l.Next()
	require.NoError(t, err)
	require.True(t, tok.IsFloat)
	require.InDelta(t, 3.14, tok.FloatValue, 1e-9)

	tok, err = l.Next()
	require.NoError(t, err)
	require.True(t, tok.IsFloat)
	require.InDelta(t, 1000.0, tok.FloatValue, 1e-9)

	tok, err = l.Next()
	require.NoError(t, err)
	require.True(t, tok.IsFloat)
	require.InDelta(t, 0.025, tok.FloatValue, 1e-9)
}

func TestLexCommentsSkipped(t *testing.T) {
	kinds := allKinds(t, "select 1 -- trailing comment\n/* block */ , 2")
	require.Equal(t, []token.Kind{token.Keyword, token.Number, token.Punctuation, token.Number, token.EOF}, kinds)
}

func TestLexUnterminatedBlockCommentFallsThroughToEOF(t *testing.T) {
	kinds := allKinds(t, "select 1 /* never closed")
	require.Equal(t, []token.Kind{token.Keyword, token.Number, token.EOF}, kinds)
}

func TestLexKeywordCaseInsensitive(t *testing.T) {
	tok, err := New("SeLeCt").Next()
	require.NoError(t, err)
	require.Equal(t, token.Keyword, tok.Kind)
	require.Equal(t, "select", tok.Keyword)
}

func TestLexUnterminatedStringErrors(t *testing.T) {
	_, err := New(`'unterminated`).Next()
	require.Error(t, err)
}

func TestPeekDoesNotConsume(t *testing.T) {
	l := New("select 1")
	peeked, err := l.Peek()
	require.NoError(t, err)
	require.Equal(t, token.Keyword, peeked.Kind)

	next, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, peeked, next)
}

func TestLexComparisonAndLogicalOperators(t *testing.T) {
	kinds := allKinds(t, `=~ !~ != >= <= && || ->`)
	require.Equal(t, []token.Kind{
		token.Comparison, token.Comparison, token.Comparison, token.Comparison,
		token.Comparison, token.Logical, token.Logical, token.Arrow, token.EOF,
	}, kinds)
}

func TestLexUnknownByteBecomesSingleByteUnknownToken(t *testing.T) {
	tok, err := New("@").Next()
	require.NoError(t, err)
	require.Equal(t, token.Unknown, tok.Kind)
	require.Equal(t, "@", tok.Lexeme)
}
