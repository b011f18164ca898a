// Package codegen lowers a type-checked AST to C99 source that links
// against the small runtime declared in runtime.h. Emission follows the
// same ordered phases the reference backend uses: struct forward
// declarations, struct definitions, struct assign helpers, function
// prototypes, function bodies, then the entrypoint — so every symbol a
// phase references has already been declared by an earlier one.
package codegen

import (
	"fmt"
	"strings"

	"lazylang/internal/ast"
	"lazylang/internal/token"
)

// Error reports a codegen-time failure. These are internal-consistency
// failures (an unreachable construct slipping past sema), not user errors.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	if e.Line == 0 {
		return "Codegen error: " + e.Message
	}
	return fmt.Sprintf("[line %d:%d] Codegen error: %s", e.Line, e.Column, e.Message)
}

const includesBlock = `/* Auto-generated C output from lazylang */
#include <stdint.h>
#include <stdbool.h>
#include <stddef.h>
#include <stdio.h>
#include <stdlib.h>
#include <string.h>
#if defined(__GNUC__) || defined(__clang__)
#define LZ_UNUSED __attribute__((unused))
#else
#define LZ_UNUSED
#endif
#define LZ_RUNTIME_DEFINE_STRUCTS
#include "runtime.h"

`

// varBinding is one scope-stack entry carried through codegen so assignment
// lowering can pick the right assign-helper without re-deriving the type.
type varBinding struct {
	name      string
	typeName  string
	isMutable bool
}

// Generator carries the struct/function metadata collected from the
// program plus the scope stack used while lowering a function body.
type Generator struct {
	structs     map[string]*ast.Struct
	structOrder []string
	funcs       map[string]*ast.Function
	funcOrder   []string
	scopes      [][]varBinding
	out         strings.Builder
	err         error
}

// Generate lowers prog to a complete C99 translation unit.
func Generate(prog *ast.Program) (string, error) {
	g := &Generator{
		structs: map[string]*ast.Struct{},
		funcs:   map[string]*ast.Function{},
	}
	for _, decl := range prog.Declarations {
		switch d := decl.(type) {
		case *ast.Struct:
			g.structs[d.Name] = d
			g.structOrder = append(g.structOrder, d.Name)
		case *ast.Function:
			g.funcs[d.Name] = d
			g.funcOrder = append(g.funcOrder, d.Name)
		}
	}

	g.out.WriteString(includesBlock)
	g.emitStructForwardDecls()
	g.out.WriteString("\n")
	g.emitStructDefs()
	g.out.WriteString("\n")
	g.emitStructAssignHelpers()
	g.out.WriteString("\n")
	g.emitFunctionPrototypes()
	g.out.WriteString("\n")
	g.emitFunctionDefinitions()
	g.out.WriteString("\n")
	g.emitEntrypoint()

	if g.err != nil {
		return "", g.err
	}
	return g.out.String(), nil
}

func (g *Generator) fail(tok token.Token, format string, args ...interface{}) {
	if g.err != nil {
		return
	}
	g.err = &Error{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf(format, args...)}
}

func (g *Generator) line(depth int, format string, args ...interface{}) {
	g.out.WriteString(strings.Repeat("    ", depth))
	fmt.Fprintf(&g.out, format, args...)
	g.out.WriteByte('\n')
}

func cFuncName(name string) string {
	if name == "main" {
		return "lz_fn_main"
	}
	return "lz_fn_" + name
}

func (g *Generator) emitStructForwardDecls() {
	for _, name := range g.structOrder {
		g.line(0, "typedef struct %s %s;", name, name)
	}
}

func (g *Generator) emitStructDefs() {
	for _, name := range g.structOrder {
		st := g.structs[name]
		g.line(0, "struct %s {", name)
		for _, f := range st.Fields {
			g.line(1, "%s %s;", g.cType(f.TypeName), f.Name)
		}
		g.line(0, "};")
		g.out.WriteString("\n")
	}
}

// emitStructAssignHelpers emits one lz_assign_struct_<Name> funnel per
// struct. Every assignment — var decl, reassignment, tail-expression
// return — is routed through a named helper instead of a bare '=' so a
// future reference-counted runtime can intercept the write in one place.
func (g *Generator) emitStructAssignHelpers() {
	for _, name := range g.structOrder {
		helper := structAssignHelper(name)
		g.line(0, "static void LZ_UNUSED %s(%s *dst, %s value) {", helper, name, name)
		g.line(1, "*dst = value;")
		g.line(0, "}")
		g.out.WriteString("\n")
	}
}

func structAssignHelper(name string) string {
	return "lz_assign_struct_" + name
}

func (g *Generator) emitFunctionPrototypes() {
	for _, name := range g.funcOrder {
		fn := g.funcs[name]
		g.line(0, "%s;", g.signature(fn))
	}
}

func (g *Generator) signature(fn *ast.Function) string {
	retType := g.cReturnType(fn.ReturnType)
	var params []string
	for _, p := range fn.Params {
		params = append(params, fmt.Sprintf("%s %s", g.cType(p.TypeName), p.Name))
	}
	if len(params) == 0 {
		params = []string{"void"}
	}
	return fmt.Sprintf("static %s %s(%s)", retType, cFuncName(fn.Name), strings.Join(params, ", "))
}

func (g *Generator) emitFunctionDefinitions() {
	for _, name := range g.funcOrder {
		fn := g.funcs[name]
		g.line(0, "%s {", g.signature(fn))
		g.pushScope()
		for _, p := range fn.Params {
			g.declare(p.Name, p.TypeName, false)
		}

		retType := g.cReturnType(fn.ReturnType)
		returnsValue := retType != "void"
		var tailVar, tailHelper string
		needsTailReturn := false
		if fn.Body != nil {
			stmts := fn.Body.Statements
			var lastStmt ast.Node
			if len(stmts) > 0 {
				lastStmt = stmts[len(stmts)-1]
			}
			_, lastIsReturn := lastStmt.(*ast.Return)
			needsTailReturn = returnsValue && (lastStmt == nil || !lastIsReturn)
		} else {
			needsTailReturn = returnsValue
		}

		if needsTailReturn {
			storageType := g.cType(fn.ReturnType)
			tailVar = "__lz_ret"
			tailHelper = g.assignHelperFor(fn.ReturnType)
			g.line(1, "%s %s = {0};", storageType, tailVar)
		}

		if fn.Body != nil {
			g.emitStatementsWithTail(fn.Body.Statements, 1, tailVar, tailHelper)
		}
		if needsTailReturn {
			g.line(1, "return %s;", tailVar)
		}

		g.popScope()
		g.line(0, "}")
		g.out.WriteString("\n")
	}
}

func (g *Generator) emitEntrypoint() {
	g.line(0, "int main(void) {")
	if mainFn, ok := g.funcs["main"]; ok {
		if len(mainFn.Params) == 0 {
			g.line(1, "%s();", cFuncName("main"))
		} else {
			g.line(1, "/* TODO: pass CLI arguments to main */")
			g.line(1, "%s();", cFuncName("main"))
		}
		g.line(1, "return 0;")
	} else {
		g.line(1, `fprintf(stderr, "no entry point defined\n");`)
		g.line(1, "return 1;")
	}
	g.line(0, "}")
}

func (g *Generator) pushScope() { g.scopes = append(g.scopes, nil) }
func (g *Generator) popScope()  { g.scopes = g.scopes[:len(g.scopes)-1] }

func (g *Generator) declare(name, typeName string, mutable bool) {
	top := len(g.scopes) - 1
	g.scopes[top] = append(g.scopes[top], varBinding{name: name, typeName: typeName, isMutable: mutable})
}

func (g *Generator) lookup(name string) *varBinding {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		scope := g.scopes[i]
		for j := len(scope) - 1; j >= 0; j-- {
			if scope[j].name == name {
				return &scope[j]
			}
		}
	}
	return nil
}

// emitStatementsWithTail emits a statement list, threading the destination
// tail-var/helper pair through only the final statement — and, when that
// final statement is itself an if, into both of its branches.
func (g *Generator) emitStatementsWithTail(stmts []ast.Node, depth int, tailVar, tailHelper string) {
	for i, stmt := range stmts {
		isLast := i == len(stmts)-1
		stmtTailVar, stmtTailHelper := "", ""
		if isLast {
			stmtTailVar, stmtTailHelper = tailVar, tailHelper
		}
		g.emitStatement(stmt, depth, stmtTailVar, stmtTailHelper)
	}
}

func (g *Generator) emitBlock(b *ast.Block, depth int, tailVar, tailHelper string) {
	g.line(depth, "{")
	g.pushScope()
	if b != nil {
		g.emitStatementsWithTail(b.Statements, depth+1, tailVar, tailHelper)
	}
	g.popScope()
	g.line(depth, "}")
}

func (g *Generator) emitStatement(stmt ast.Node, depth int, tailVar, tailHelper string) {
	if g.err != nil {
		return
	}
	switch s := stmt.(type) {
	case *ast.VarDecl:
		g.emitVarDecl(s, depth)
	case *ast.Assign:
		g.emitAssign(s, depth)
	case *ast.If:
		g.emitIf(s, depth, tailVar, tailHelper)
	case *ast.Return:
		g.emitReturn(s, depth)
	case *ast.ExprStmt:
		g.emitExprStmt(s, depth, tailVar, tailHelper)
	case *ast.For:
		g.fail(s.Tok(), "for-in loops are not supported yet")
	default:
		g.fail(stmt.Tok(), "unsupported statement kind in codegen")
	}
}

func (g *Generator) emitVarDecl(decl *ast.VarDecl, depth int) {
	cType := g.cType(decl.TypeName)
	g.line(depth, "%s %s = {0};", cType, decl.Name)
	g.declare(decl.Name, decl.TypeName, decl.IsMutable)
	g.emitAssignmentCall(decl.Name, decl.TypeName, decl.Initializer, depth)
}

func (g *Generator) emitAssign(assign *ast.Assign, depth int) {
	binding := g.lookup(assign.Target)
	if binding == nil {
		g.fail(assign.Tok(), "assignment to unknown symbol '%s'", assign.Target)
		return
	}
	g.emitAssignmentCall(assign.Target, binding.typeName, assign.Value, depth)
}

func (g *Generator) emitAssignmentCall(target, typeName string, value ast.Expr, depth int) {
	helper := g.assignHelperFor(typeName)
	expr := g.expr(value)
	g.line(depth, "%s(&%s, %s);", helper, target, expr)
}

func (g *Generator) emitIf(stmt *ast.If, depth int, tailVar, tailHelper string) {
	g.out.WriteString(strings.Repeat("    ", depth))
	fmt.Fprintf(&g.out, "if (%s) \n", g.expr(stmt.Condition))
	g.emitBlock(stmt.Then, depth, tailVar, tailHelper)
	if stmt.Else != nil {
		g.line(depth, "else")
		g.emitBlock(stmt.Else, depth, tailVar, tailHelper)
	}
}

func (g *Generator) emitReturn(stmt *ast.Return, depth int) {
	if stmt.Value == nil {
		g.line(depth, "return;")
		return
	}
	g.line(depth, "return %s;", g.expr(stmt.Value))
}

func (g *Generator) emitExprStmt(stmt *ast.ExprStmt, depth int, tailVar, tailHelper string) {
	if tailVar != "" && tailHelper != "" {
		g.line(depth, "%s(&%s, %s);", tailHelper, tailVar, g.expr(stmt.X))
		return
	}
	g.line(depth, "%s;", g.expr(stmt.X))
}

func (g *Generator) expr(e ast.Expr) string {
	if e == nil {
		return "NULL"
	}
	switch n := e.(type) {
	case *ast.Literal:
		return g.literal(n)
	case *ast.Identifier:
		return g.identifier(n)
	case *ast.Call:
		return g.call(n)
	case *ast.Binary:
		return fmt.Sprintf("(%s %s %s)", g.expr(n.Left), binaryOp(n.Op), g.expr(n.Right))
	default:
		g.fail(e.Tok(), "unsupported expression kind")
		return "/* unsupported expr */"
	}
}

func (g *Generator) literal(lit *ast.Literal) string {
	switch lit.Kind {
	case ast.LitInt, ast.LitFloat:
		if lit.Text == "" {
			return "0"
		}
		return lit.Text
	case ast.LitBool:
		if lit.Bool {
			return "true"
		}
		return "false"
	case ast.LitString:
		return escapeCString(lit.Text)
	case ast.LitNull:
		return "NULL"
	default:
		return "NULL"
	}
}

func (g *Generator) identifier(ident *ast.Identifier) string {
	if ident.Name == "log" {
		return "lz_runtime_log"
	}
	if g.lookup(ident.Name) != nil {
		return ident.Name
	}
	if _, isFunc := g.funcs[ident.Name]; isFunc {
		return cFuncName(ident.Name)
	}
	return ident.Name
}

func (g *Generator) call(call *ast.Call) string {
	args := make([]string, len(call.Arguments))
	for i, a := range call.Arguments {
		args[i] = g.expr(a)
	}
	return fmt.Sprintf("%s(%s)", g.expr(call.Callee), strings.Join(args, ", "))
}

func binaryOp(kind token.Kind) string {
	switch kind {
	case token.PLUS:
		return "+"
	case token.MINUS:
		return "-"
	case token.STAR:
		return "*"
	case token.SLASH:
		return "/"
	case token.EQEQ:
		return "=="
	case token.BANGEQ:
		return "!="
	case token.LT:
		return "<"
	case token.LTE:
		return "<="
	case token.GT:
		return ">"
	case token.GTE:
		return ">="
	default:
		return "/*?*/"
	}
}

// escapeCString renders text as a "lz_string_from_literal(\"...\")" call,
// escaping byte-by-byte exactly as the reference backend does so generated
// output is stable across inputs containing non-ASCII bytes.
func escapeCString(text string) string {
	var b strings.Builder
	b.WriteString(`lz_string_from_literal("`)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				fmt.Fprintf(&b, `\x%02X`, c)
			}
		}
	}
	b.WriteString(`")`)
	return b.String()
}

// cType maps an opaque source type-name fragment to its C storage type.
// Compound wrappers (result[...], maybe[...]) collapse to the runtime's
// generic tagged-union carrier; the payload's real shape lives only at the
// call sites that produced it, matching the untyped-union payload the
// runtime itself exposes.
func (g *Generator) cType(typeName string) string {
	switch {
	case typeName == "" || typeName == "null":
		return "void *"
	case typeName == "int":
		return "int64_t"
	case typeName == "float":
		return "double"
	case typeName == "bool":
		return "bool"
	case typeName == "string":
		return "struct lz_string *"
	case typeStartsWith(typeName, "result"):
		return "lz_result"
	case typeStartsWith(typeName, "maybe"):
		return "lz_maybe"
	case g.structs[typeName] != nil:
		return typeName
	default:
		return typeName
	}
}

// typeStartsWith reports whether typeName is exactly prefix or a compound
// type headed by prefix (e.g. "result[int,string]" starts with "result",
// but "resultish" does not) — the next byte after prefix must be '[' or the
// end of the string.
func typeStartsWith(typeName, prefix string) bool {
	if !strings.HasPrefix(typeName, prefix) {
		return false
	}
	rest := typeName[len(prefix):]
	return rest == "" || rest[0] == '['
}

func (g *Generator) cReturnType(typeName string) string {
	if typeName == "" || typeName == "null" {
		return "void"
	}
	return g.cType(typeName)
}

func (g *Generator) assignHelperFor(typeName string) string {
	switch {
	case typeName == "int":
		return "lz_assign_int64"
	case typeName == "float":
		return "lz_assign_double"
	case typeName == "bool":
		return "lz_assign_bool"
	case typeName == "string":
		return "lz_assign_string"
	case typeStartsWith(typeName, "result"):
		return "lz_assign_result"
	case typeStartsWith(typeName, "maybe"):
		return "lz_assign_maybe"
	case g.structs[typeName] != nil:
		return structAssignHelper(typeName)
	default:
		return "lz_assign_ptr"
	}
}
