// Package parser implements the recursive-descent parser that turns a token
// stream into a typed AST. It buffers exactly two tokens (current and next)
// to resolve the statement-disambiguation lookahead the grammar requires.
package parser

import (
	"fmt"
	"strings"

	"lazylang/internal/ast"
	"lazylang/internal/lexer"
	"lazylang/internal/token"
)

// Error is a located syntax diagnostic.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[line %d:%d] Parse error: %s", e.Line, e.Column, e.Message)
}

// Parser consumes a *lexer.Lexer and produces an *ast.Program.
type Parser struct {
	lex      *lexer.Lexer
	previous token.Token
	current  token.Token
	next     token.Token

	err error
}

// Parse runs the parser to completion, returning the program or the first
// error encountered. No recovery is attempted — the first malformed
// construct aborts parsing, per spec's fail-fast error policy.
func Parse(src []byte) (*ast.Program, error) {
	p := &Parser{lex: lexer.New(src)}
	if err := p.init(); err != nil {
		return nil, err
	}
	return p.parseProgram()
}

func (p *Parser) init() error {
	first, err := p.lex.Next()
	if err != nil {
		return err
	}
	second, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.current = first
	p.next = second
	return nil
}

func (p *Parser) advance() {
	p.previous = p.current
	p.current = p.next
	if p.err != nil {
		// A lexical error already latched; keep current pinned so the
		// parser reports it through the next check/consume instead of
		// reading past the end of a broken stream.
		return
	}
	tok, err := p.lex.Next()
	if err != nil {
		p.err = err
		return
	}
	p.next = tok
}

func (p *Parser) check(kind token.Kind) bool {
	return p.current.Kind == kind
}

func (p *Parser) peekNext() token.Kind {
	return p.next.Kind
}

func (p *Parser) match(kind token.Kind) bool {
	if !p.check(kind) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(kind token.Kind, message string) (token.Token, error) {
	if p.check(kind) {
		tok := p.current
		p.advance()
		return tok, nil
	}
	return token.Token{}, p.errorf(p.current, message)
}

func (p *Parser) errorf(tok token.Token, format string, args ...interface{}) error {
	return &Error{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf(format, args...)}
}

func (p *Parser) lexErr() error {
	if p.err != nil {
		return p.err
	}
	return nil
}

func (p *Parser) skipNewlines() error {
	for p.match(token.NEWLINE) {
		if err := p.lexErr(); err != nil {
			return err
		}
	}
	return p.lexErr()
}

func (p *Parser) requireLineBreak(message string) error {
	if p.match(token.NEWLINE) {
		return p.skipNewlines()
	}
	if err := p.lexErr(); err != nil {
		return err
	}
	if p.check(token.DEDENT) || p.check(token.EOF) {
		return nil
	}
	return p.errorf(p.current, message)
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	if err := p.lexErr(); err != nil {
		return nil, err
	}
	program := ast.NewProgram(p.current)
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}

	acceptingImports := true
	for !p.check(token.EOF) {
		if p.check(token.IMPORT) {
			if !acceptingImports {
				return nil, p.errorf(p.current, "imports must appear before declarations")
			}
			imp, err := p.parseImport()
			if err != nil {
				return nil, err
			}
			program.AddImport(imp)
		} else {
			acceptingImports = false
			decl, err := p.parseTopLevelDecl()
			if err != nil {
				return nil, err
			}
			program.AddDeclaration(decl)
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
	}
	return program, nil
}

func (p *Parser) parseImport() (*ast.Import, error) {
	importTok, err := p.consume(token.IMPORT, "expected 'import'")
	if err != nil {
		return nil, err
	}
	imp := ast.NewImport(importTok)

	for {
		seg, err := p.consume(token.IDENT, "expected identifier in import path")
		if err != nil {
			return nil, err
		}
		imp.AddSegment(seg.Lexeme)
		if !p.match(token.DOT) {
			break
		}
		if err := p.lexErr(); err != nil {
			return nil, err
		}
	}

	if err := p.requireLineBreak("expected newline after import statement"); err != nil {
		return nil, err
	}
	return imp, nil
}

func (p *Parser) parseTopLevelDecl() (ast.Node, error) {
	isPublic := p.match(token.PUB)
	if err := p.lexErr(); err != nil {
		return nil, err
	}

	if p.check(token.STRUCT) {
		return p.parseStructDecl(isPublic)
	}

	nameTok, err := p.consume(token.IDENT, "expected identifier for declaration")
	if err != nil {
		return nil, err
	}
	return p.parseFunctionDecl(isPublic, nameTok)
}

func (p *Parser) parseFunctionDecl(isPublic bool, nameTok token.Token) (*ast.Function, error) {
	fn := ast.NewFunction(nameTok, isPublic, nameTok.Lexeme)
	if err := p.parseFunctionParams(fn); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

func (p *Parser) parseFunctionParams(fn *ast.Function) error {
	if _, err := p.consume(token.COLON, "expected ':' after function name"); err != nil {
		return err
	}
	if _, err := p.consume(token.LPAREN, "expected '(' before parameter type list"); err != nil {
		return err
	}

	var typeNames []string
	if !p.check(token.RPAREN) {
		for {
			typeName, err := p.collectType(paramTypeTerminators)
			if err != nil {
				return err
			}
			typeNames = append(typeNames, typeName)
			if !p.match(token.COMMA) {
				break
			}
			if err := p.lexErr(); err != nil {
				return err
			}
		}
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after parameter types"); err != nil {
		return err
	}

	if _, err := p.consume(token.ARROW, "expected '->' before return type"); err != nil {
		return err
	}
	returnType, err := p.collectType(returnTypeTerminators)
	if err != nil {
		return err
	}
	fn.ReturnType = returnType

	if _, err := p.consume(token.EQUAL, "expected '=' before parameter names"); err != nil {
		return err
	}
	if _, err := p.consume(token.LPAREN, "expected '(' before parameter names"); err != nil {
		return err
	}

	index := 0
	if !p.check(token.RPAREN) {
		for {
			nameTok, err := p.consume(token.IDENT, "expected parameter name")
			if err != nil {
				return err
			}
			if index >= len(typeNames) {
				return p.errorf(nameTok, "missing parameter type")
			}
			fn.AddParam(nameTok.Lexeme, typeNames[index], nameTok)
			index++
			if !p.match(token.COMMA) {
				break
			}
			if err := p.lexErr(); err != nil {
				return err
			}
		}
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after parameter names"); err != nil {
		return err
	}

	if index != len(typeNames) {
		return p.errorf(p.current, "mismatched parameter types and names")
	}
	return nil
}

func (p *Parser) parseStructDecl(isPublic bool) (*ast.Struct, error) {
	structTok, err := p.consume(token.STRUCT, "expected 'struct'")
	if err != nil {
		return nil, err
	}
	nameTok, err := p.consume(token.IDENT, "expected struct name")
	if err != nil {
		return nil, err
	}
	decl := ast.NewStruct(structTok, isPublic, nameTok.Lexeme)

	if _, err := p.consume(token.NEWLINE, "expected newline after struct name"); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.INDENT, "expected indent before struct body"); err != nil {
		return nil, err
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}

	for !p.check(token.DEDENT) && !p.check(token.EOF) {
		fieldName, err := p.consume(token.IDENT, "expected field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.COLON, "expected ':' after field name"); err != nil {
			return nil, err
		}
		typeName, err := p.collectType(fieldTypeTerminators)
		if err != nil {
			return nil, err
		}
		decl.AddField(fieldName.Lexeme, typeName, fieldName)
		if err := p.requireLineBreak("expected newline after struct field"); err != nil {
			return nil, err
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
	}

	if _, err := p.consume(token.DEDENT, "expected dedent after struct body"); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	if _, err := p.consume(token.NEWLINE, "expected newline before block"); err != nil {
		return nil, err
	}
	startTok, err := p.consume(token.INDENT, "expected indentation to start block")
	if err != nil {
		return nil, err
	}

	block := ast.NewBlock(startTok)
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}

	for !p.check(token.DEDENT) && !p.check(token.EOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.AddStatement(stmt)
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
	}

	if _, err := p.consume(token.DEDENT, "expected dedent to close block"); err != nil {
		return nil, err
	}
	return block, nil
}

// parseStatement implements the one-token-lookahead disambiguation: after a
// bare IDENT, ':' means a var decl, '=' means an assignment, anything else
// falls through to an expression statement.
func (p *Parser) parseStatement() (ast.Node, error) {
	if p.match(token.IF) {
		return p.parseIfStmt()
	}
	if p.match(token.FOR) {
		return p.parseForStmt()
	}
	if p.match(token.MUT) {
		return p.parseVarDecl(true)
	}
	if p.match(token.RETURN) {
		return p.parseReturn()
	}
	if err := p.lexErr(); err != nil {
		return nil, err
	}
	if p.check(token.IDENT) {
		switch p.peekNext() {
		case token.COLON:
			return p.parseVarDecl(false)
		case token.EQUAL:
			return p.parseAssignment()
		}
	}
	return p.parseExprStmt()
}

func (p *Parser) parseIfStmt() (ast.Node, error) {
	ifTok := p.previous
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	var elseBlock *ast.Block
	if p.match(token.ELSE) {
		elseBlock, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}

	return ast.NewIf(ifTok, cond, then, elseBlock), nil
}

func (p *Parser) parseForStmt() (ast.Node, error) {
	forTok := p.previous
	iterator, err := p.consume(token.IDENT, "expected loop iterator name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.IN, "expected 'in' after loop iterator"); err != nil {
		return nil, err
	}
	iterable, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.NewFor(forTok, iterator.Lexeme, iterable, body), nil
}

func (p *Parser) parseVarDecl(isMutable bool) (ast.Node, error) {
	message := "expected identifier in variable declaration"
	if isMutable {
		message = "expected identifier after 'mut'"
	}
	nameTok, err := p.consume(token.IDENT, message)
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.COLON, "expected ':' in variable declaration"); err != nil {
		return nil, err
	}
	typeName, err := p.collectType(varDeclTypeTerminators)
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.EQUAL, "expected '=' before initializer"); err != nil {
		return nil, err
	}
	initializer, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.requireLineBreak("expected newline after variable declaration"); err != nil {
		return nil, err
	}

	decl := ast.NewVarDecl(nameTok, isMutable, nameTok.Lexeme)
	decl.TypeName = typeName
	decl.Initializer = initializer
	return decl, nil
}

func (p *Parser) parseAssignment() (ast.Node, error) {
	nameTok, err := p.consume(token.IDENT, "expected identifier for assignment")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.EQUAL, "expected '=' in assignment"); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.requireLineBreak("expected newline after assignment"); err != nil {
		return nil, err
	}
	return ast.NewAssign(nameTok, nameTok.Lexeme, value), nil
}

func (p *Parser) parseReturn() (ast.Node, error) {
	returnTok := p.previous
	var value ast.Expr
	if !p.check(token.NEWLINE) && !p.check(token.DEDENT) && !p.check(token.EOF) {
		var err error
		value, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if err := p.requireLineBreak("expected newline after return"); err != nil {
		return nil, err
	}
	return ast.NewReturn(returnTok, value), nil
}

func (p *Parser) parseExprStmt() (ast.Node, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.requireLineBreak("expected newline after expression"); err != nil {
		return nil, err
	}
	return ast.NewExprStmt(expr), nil
}

func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parseEquality()
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	expr, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.check(token.EQEQ) || p.check(token.BANGEQ) {
		opTok := p.current
		p.advance()
		if err := p.lexErr(); err != nil {
			return nil, err
		}
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		expr = ast.NewBinary(expr, opTok.Kind, right, opTok)
	}
	return expr, nil
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	expr, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.check(token.LT) || p.check(token.LTE) || p.check(token.GT) || p.check(token.GTE) {
		opTok := p.current
		p.advance()
		if err := p.lexErr(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		expr = ast.NewBinary(expr, opTok.Kind, right, opTok)
	}
	return expr, nil
}

func (p *Parser) parseTerm() (ast.Expr, error) {
	expr, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.check(token.PLUS) || p.check(token.MINUS) {
		opTok := p.current
		p.advance()
		if err := p.lexErr(); err != nil {
			return nil, err
		}
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		expr = ast.NewBinary(expr, opTok.Kind, right, opTok)
	}
	return expr, nil
}

func (p *Parser) parseFactor() (ast.Expr, error) {
	expr, err := p.parseCall()
	if err != nil {
		return nil, err
	}
	for p.check(token.STAR) || p.check(token.SLASH) {
		opTok := p.current
		p.advance()
		if err := p.lexErr(); err != nil {
			return nil, err
		}
		right, err := p.parseCall()
		if err != nil {
			return nil, err
		}
		expr = ast.NewBinary(expr, opTok.Kind, right, opTok)
	}
	return expr, nil
}

func (p *Parser) parseCall() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.match(token.LPAREN) {
		if err := p.lexErr(); err != nil {
			return nil, err
		}
		expr, err = p.finishCall(expr)
		if err != nil {
			return nil, err
		}
	}
	return expr, nil
}

func (p *Parser) finishCall(callee ast.Expr) (ast.Expr, error) {
	lparen := p.previous
	call := ast.NewCall(lparen, callee)

	if !p.check(token.RPAREN) {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			call.AddArgument(arg)
			if !p.match(token.COMMA) {
				break
			}
			if err := p.lexErr(); err != nil {
				return nil, err
			}
		}
	}

	if _, err := p.consume(token.RPAREN, "expected ')' after arguments"); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	if p.match(token.INT) {
		lit := ast.NewLiteral(p.previous, ast.LitInt)
		lit.Text = p.previous.Lexeme
		return lit, p.lexErr()
	}
	if p.match(token.FLOAT) {
		lit := ast.NewLiteral(p.previous, ast.LitFloat)
		lit.Text = p.previous.Lexeme
		return lit, p.lexErr()
	}
	if p.match(token.STRING) {
		lit := ast.NewLiteral(p.previous, ast.LitString)
		lit.Text = p.previous.Lexeme
		return lit, p.lexErr()
	}
	if p.match(token.TRUE) {
		lit := ast.NewLiteral(p.previous, ast.LitBool)
		lit.Bool = true
		return lit, p.lexErr()
	}
	if p.match(token.FALSE) {
		lit := ast.NewLiteral(p.previous, ast.LitBool)
		lit.Bool = false
		return lit, p.lexErr()
	}
	if p.match(token.NULL) {
		return ast.NewLiteral(p.previous, ast.LitNull), p.lexErr()
	}
	if p.match(token.IDENT) {
		return ast.NewIdentifier(p.previous, p.previous.Lexeme), p.lexErr()
	}
	if p.match(token.LPAREN) {
		if err := p.lexErr(); err != nil {
			return nil, err
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RPAREN, "expected ')' after expression"); err != nil {
			return nil, err
		}
		return expr, nil
	}

	if err := p.lexErr(); err != nil {
		return nil, err
	}
	return nil, p.errorf(p.current, "unexpected token in expression")
}

// --- type-fragment collection (spec §4.3) ---

var (
	paramTypeTerminators   = []token.Kind{token.COMMA, token.RPAREN}
	returnTypeTerminators  = []token.Kind{token.EQUAL}
	varDeclTypeTerminators = []token.Kind{token.EQUAL}
	fieldTypeTerminators   = []token.Kind{token.NEWLINE, token.DEDENT}
)

func isTerminator(kind token.Kind, terminators []token.Kind) bool {
	for _, t := range terminators {
		if kind == t {
			return true
		}
	}
	return false
}

// collectType concatenates token lexemes into an opaque type-name string by
// scanning until a zero-bracket-depth terminator. IDENT, the 'null' keyword,
// ',', '[', ']' and '.' are the only tokens allowed inside a fragment;
// brackets may nest, and a line break at depth 0 that isn't itself a
// terminator is an error.
func (p *Parser) collectType(terminators []token.Kind) (string, error) {
	var b strings.Builder
	depth := 0
	collected := false

	for {
		kind := p.current.Kind
		if kind == token.EOF {
			break
		}

		terminal := isTerminator(kind, terminators)
		if (kind == token.NEWLINE || kind == token.DEDENT) && depth == 0 {
			if !terminal {
				return "", p.errorf(p.current, "unexpected line break in type")
			}
			break
		}
		if terminal && depth == 0 {
			break
		}

		if kind == token.LBRACKET {
			depth++
		} else if kind == token.RBRACKET {
			if depth == 0 {
				return "", p.errorf(p.current, "unmatched ']' in type")
			}
			depth--
		}

		if kind != token.IDENT && kind != token.NULL && kind != token.COMMA &&
			kind != token.LBRACKET && kind != token.RBRACKET && kind != token.DOT {
			return "", p.errorf(p.current, "unexpected token in type")
		}

		b.WriteString(p.current.Lexeme)
		collected = true
		p.advance()
		if err := p.lexErr(); err != nil {
			return "", err
		}
	}

	if !collected {
		return "", p.errorf(p.current, "expected type name")
	}
	return b.String(), nil
}
