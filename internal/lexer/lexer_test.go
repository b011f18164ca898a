package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazylang/internal/token"
)

func collect(t *testing.T, src string) ([]token.Token, error) {
	t.Helper()
	l := New([]byte(src))
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestLexerSimpleTokens(t *testing.T) {
	toks, err := collect(t, "x: int = 1\n")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.IDENT, token.COLON, token.IDENT, token.EQUAL, token.INT, token.NEWLINE, token.EOF,
	}, kinds(toks))
}

func TestLexerIndentAndDedent(t *testing.T) {
	src := "if true\n    x: int = 1\ny: int = 2\n"
	toks, err := collect(t, src)
	require.NoError(t, err)
	got := kinds(toks)
	assert.Contains(t, got, token.INDENT)
	assert.Contains(t, got, token.DEDENT)

	// Count balance: INDENTs must equal DEDENTs before EOF (§8 token-stack balance).
	indents, dedents := 0, 0
	for _, k := range got {
		if k == token.INDENT {
			indents++
		}
		if k == token.DEDENT {
			dedents++
		}
	}
	assert.Equal(t, indents, dedents)
}

func TestLexerMultipleDedentsAtEOF(t *testing.T) {
	src := "if true\n    if true\n        x: int = 1\n"
	toks, err := collect(t, src)
	require.NoError(t, err)
	dedents := 0
	for _, tok := range toks {
		if tok.Kind == token.DEDENT {
			dedents++
		}
	}
	assert.Equal(t, 2, dedents)
}

func TestLexerMisalignedDedentIsError(t *testing.T) {
	src := "if true\n    if true\n        x: int = 1\n   y: int = 2\n"
	_, err := collect(t, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Indentation error")
}

func TestLexerKeywords(t *testing.T) {
	toks, err := collect(t, "pub struct mut import task return true false null if else for in")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.PUB, token.STRUCT, token.MUT, token.IMPORT, token.TASK, token.RETURN,
		token.TRUE, token.FALSE, token.NULL, token.IF, token.ELSE, token.FOR, token.IN,
		token.EOF,
	}, kinds(toks))
}

func TestLexerFutureAndChanAreIdentifiers(t *testing.T) {
	toks, err := collect(t, "future chan")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{token.IDENT, token.IDENT, token.EOF}, kinds(toks))
}

func TestLexerStringLiteral(t *testing.T) {
	toks, err := collect(t, `"hello world"`)
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, "hello world", toks[0].Lexeme)
}

func TestLexerUnterminatedStringIsError(t *testing.T) {
	_, err := collect(t, `"unterminated`)
	require.Error(t, err)
}

func TestLexerNumbers(t *testing.T) {
	toks, err := collect(t, "123 1.5 3.")
	require.NoError(t, err)
	require.Len(t, toks, 4)
	assert.Equal(t, token.INT, toks[0].Kind)
	assert.Equal(t, "123", toks[0].Lexeme)
	assert.Equal(t, token.FLOAT, toks[1].Kind)
	assert.Equal(t, "1.5", toks[1].Lexeme)
	assert.Equal(t, token.FLOAT, toks[2].Kind)
	assert.Equal(t, "3.", toks[2].Lexeme)
}

func TestLexerComments(t *testing.T) {
	toks, err := collect(t, "x: int = 1 # trailing comment\n")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.IDENT, token.COLON, token.IDENT, token.EQUAL, token.INT, token.NEWLINE, token.EOF,
	}, kinds(toks))
}

func TestLexerOperators(t *testing.T) {
	toks, err := collect(t, "-> == != <= >= < >")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.ARROW, token.EQEQ, token.BANGEQ, token.LTE, token.GTE, token.LT, token.GT, token.EOF,
	}, kinds(toks))
}

func TestLexerUnexpectedBang(t *testing.T) {
	_, err := collect(t, "!")
	require.Error(t, err)
}

func TestLexerCompoundType(t *testing.T) {
	toks, err := collect(t, "result[string,FileError]")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.IDENT, token.LBRACKET, token.IDENT, token.COMMA, token.IDENT, token.RBRACKET, token.EOF,
	}, kinds(toks))
}
