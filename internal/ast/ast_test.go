package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lazylang/internal/token"
)

func tok(kind token.Kind, lexeme string) token.Token {
	return token.Token{Kind: kind, Lexeme: lexeme, Line: 1, Column: 1}
}

func TestProgramPreservesImportAndDeclarationOrder(t *testing.T) {
	prog := NewProgram(tok(token.IDENT, ""))

	first := NewImport(tok(token.IMPORT, "import"))
	first.AddSegment("net")
	first.AddSegment("http")
	second := NewImport(tok(token.IMPORT, "import"))
	second.AddSegment("os")
	prog.AddImport(first)
	prog.AddImport(second)

	fn := NewFunction(tok(token.IDENT, "main"), true, "main")
	st := NewStruct(tok(token.STRUCT, "struct"), false, "Point")
	prog.AddDeclaration(fn)
	prog.AddDeclaration(st)

	assert.Equal(t, []string{"net", "http"}, prog.Imports[0].Segments)
	assert.Equal(t, []string{"os"}, prog.Imports[1].Segments)
	assert.Same(t, fn, prog.Declarations[0])
	assert.Same(t, st, prog.Declarations[1])
}

func TestFunctionParamOrderingPreserved(t *testing.T) {
	fn := NewFunction(tok(token.IDENT, "add"), false, "add")
	fn.AddParam("a", "int", tok(token.IDENT, "a"))
	fn.AddParam("b", "int", tok(token.IDENT, "b"))

	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, "b", fn.Params[1].Name)
}

func TestStructFieldOrderingPreserved(t *testing.T) {
	st := NewStruct(tok(token.STRUCT, "struct"), true, "Point")
	st.AddField("x", "int", tok(token.IDENT, "x"))
	st.AddField("y", "int", tok(token.IDENT, "y"))

	assert.Equal(t, "x", st.Fields[0].Name)
	assert.Equal(t, "y", st.Fields[1].Name)
	assert.True(t, st.IsPublic)
}

func TestBlockStatementOrderingPreserved(t *testing.T) {
	b := NewBlock(tok(token.INDENT, ""))
	r1 := NewReturn(tok(token.RETURN, "return"), nil)
	r2 := NewReturn(tok(token.RETURN, "return"), nil)
	b.AddStatement(r1)
	b.AddStatement(r2)

	assert.Same(t, r1, b.Statements[0])
	assert.Same(t, r2, b.Statements[1])
}

func TestCallArgumentOrderingPreserved(t *testing.T) {
	callee := NewIdentifier(tok(token.IDENT, "f"), "f")
	call := NewCall(tok(token.LPAREN, "("), callee)
	a1 := NewLiteral(tok(token.INT, "1"), LitInt)
	a1.Text = "1"
	a2 := NewLiteral(tok(token.INT, "2"), LitInt)
	a2.Text = "2"
	call.AddArgument(a1)
	call.AddArgument(a2)

	assert.Same(t, a1, call.Arguments[0])
	assert.Same(t, a2, call.Arguments[1])
}

func TestExprStmtAdoptsExpressionToken(t *testing.T) {
	lit := NewLiteral(tok(token.INT, "7"), LitInt)
	stmt := NewExprStmt(lit)
	assert.Equal(t, lit.Tok(), stmt.Tok())
}

func TestBinaryCarriesOperatorToken(t *testing.T) {
	left := NewIdentifier(tok(token.IDENT, "a"), "a")
	right := NewIdentifier(tok(token.IDENT, "b"), "b")
	opTok := tok(token.PLUS, "+")
	bin := NewBinary(left, token.PLUS, right, opTok)

	assert.Equal(t, token.PLUS, bin.Op)
	assert.Same(t, left, bin.Left)
	assert.Same(t, right, bin.Right)
	assert.Equal(t, opTok, bin.Tok())
}
