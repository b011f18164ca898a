// Package sema implements the semantic analysis pass: name resolution, flow
// mode unification between maybe/result/none, unused-result enforcement,
// concurrency-keyword rejection, and struct/function shape validation.
package sema

import (
	"fmt"
	"strings"

	"lazylang/internal/ast"
	"lazylang/internal/token"
)

// Error is a located semantic diagnostic.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[line %d:%d] Semantic error: %s", e.Line, e.Column, e.Message)
}

// FlowMode classifies a function's return-type shape for unification.
type FlowMode uint8

const (
	FlowNone FlowMode = iota
	FlowMaybe
	FlowResult
)

func (m FlowMode) String() string {
	switch m {
	case FlowMaybe:
		return "maybe"
	case FlowResult:
		return "result"
	default:
		return "none"
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

func classifyFlow(typeName string) FlowMode {
	switch {
	case typeStartsWith(typeName, "result"):
		return FlowResult
	case typeStartsWith(typeName, "maybe"):
		return FlowMaybe
	default:
		return FlowNone
	}
}

func isConcurrencyType(typeName string) bool {
	return typeStartsWith(typeName, "future") || typeStartsWith(typeName, "chan")
}

// isConcurrencyKeyword reports whether name is one of the reserved
// concurrency identifiers this backend does not support, checked wherever
// an identifier is used as a value (not just as a type).
func isConcurrencyKeyword(name string) bool {
	return name == "task" || name == "future" || name == "chan"
}

var primitiveTypes = map[string]bool{
	"int":    true,
	"float":  true,
	"string": true,
	"bool":   true,
	"null":   true,
}

// funcSig is the registered shape of a declared function.
type funcSig struct {
	decl       *ast.Function
	paramTypes []string
	returnType string
	flow       FlowMode
}

// varSym is a resolvable binding in the current scope stack.
type varSym struct {
	name      string
	typeName  string
	isMutable bool
}

// scope is one lexical level of the variable scope stack.
type scope struct {
	vars map[string]*varSym
}

func newScope() *scope {
	return &scope{vars: map[string]*varSym{}}
}

// Analyzer runs the full semantic pass over a parsed Program.
type Analyzer struct {
	structs map[string]*ast.Struct
	funcs   map[string]*funcSig
	scopes  []*scope
	curFlow FlowMode
	curFunc *funcSig
	errs    []error
}

// Check runs semantic analysis and returns every diagnostic found. An empty
// slice means the program is well-formed. Unlike the parser, sema collects
// as many errors as it can instead of stopping at the first one, matching
// the original's per-declaration analysis loop.
func Check(prog *ast.Program) []error {
	a := &Analyzer{
		structs: map[string]*ast.Struct{},
		funcs:   map[string]*funcSig{},
	}
	a.registerBuiltins()
	a.registerDeclarations(prog)
	a.checkStructs(prog)
	a.checkFunctions(prog)
	return a.errs
}

func (a *Analyzer) registerBuiltins() {
	a.funcs["log"] = &funcSig{paramTypes: []string{"string"}, returnType: "null", flow: FlowNone}
}

func (a *Analyzer) fail(tok token.Token, format string, args ...interface{}) {
	a.errs = append(a.errs, &Error{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf(format, args...)})
}

// registerDeclarations does a first pass over every top-level declaration so
// forward references between functions and structs resolve regardless of
// declaration order.
func (a *Analyzer) registerDeclarations(prog *ast.Program) {
	for _, decl := range prog.Declarations {
		switch d := decl.(type) {
		case *ast.Function:
			if _, exists := a.funcs[d.Name]; exists {
				a.fail(d.Tok(), "function '%s' is already declared", d.Name)
				continue
			}
			paramTypes := make([]string, len(d.Params))
			for i, p := range d.Params {
				paramTypes[i] = p.TypeName
			}
			a.funcs[d.Name] = &funcSig{
				decl:       d,
				paramTypes: paramTypes,
				returnType: d.ReturnType,
				flow:       classifyFlow(d.ReturnType),
			}
		case *ast.Struct:
			if _, exists := a.structs[d.Name]; exists {
				a.fail(d.Tok(), "struct '%s' is already declared", d.Name)
				continue
			}
			a.structs[d.Name] = d
		}
	}
}

func (a *Analyzer) checkStructs(prog *ast.Program) {
	for _, decl := range prog.Declarations {
		st, ok := decl.(*ast.Struct)
		if !ok {
			continue
		}
		seen := map[string]bool{}
		for _, f := range st.Fields {
			if seen[f.Name] {
				a.fail(f.Token, "duplicate field '%s' in struct '%s'", f.Name, st.Name)
				continue
			}
			seen[f.Name] = true
			if f.TypeName == st.Name {
				a.fail(f.Token, "struct '%s' cannot contain a field of its own type", st.Name)
				continue
			}
			if !primitiveTypes[f.TypeName] {
				a.fail(f.Token, "struct field '%s' must have a primitive type, got '%s'", f.Name, f.TypeName)
			}
		}
	}
}

func (a *Analyzer) checkFunctions(prog *ast.Program) {
	for _, decl := range prog.Declarations {
		fn, ok := decl.(*ast.Function)
		if !ok {
			continue
		}
		sig := a.funcs[fn.Name]
		if sig == nil {
			continue // registration already failed and recorded an error
		}
		if isConcurrencyType(sig.returnType) {
			a.fail(fn.Tok(), "function '%s' may not return unsupported concurrency type '%s'", fn.Name, sig.returnType)
		}
		if fn.Name == "main" && sig.flow == FlowResult {
			a.fail(fn.Tok(), "'main' may not return a result type")
		}

		a.curFunc = sig
		a.curFlow = sig.flow
		a.pushScope()
		for _, p := range fn.Params {
			if isConcurrencyType(p.TypeName) {
				a.fail(p.Token, "parameter '%s' uses unsupported concurrency type '%s'", p.Name, p.TypeName)
			}
			a.noteFlow(p.Token, classifyFlow(p.TypeName))
			a.declare(p.Token, p.Name, p.TypeName, false)
		}
		if fn.Body != nil {
			// Params and the body's top-level locals share this one frame
			// (no extra push here), so a local that shadows a parameter name
			// is a redeclaration, not a nested shadow.
			for _, stmt := range fn.Body.Statements {
				a.checkStmt(stmt)
			}
		}
		a.popScope()
	}
}

func (a *Analyzer) pushScope() { a.scopes = append(a.scopes, newScope()) }
func (a *Analyzer) popScope()  { a.scopes = a.scopes[:len(a.scopes)-1] }

func (a *Analyzer) declare(tok token.Token, name, typeName string, mutable bool) {
	top := a.scopes[len(a.scopes)-1]
	if _, exists := top.vars[name]; exists {
		a.fail(tok, "'%s' is already declared in this scope", name)
		return
	}
	top.vars[name] = &varSym{name: name, typeName: typeName, isMutable: mutable}
}

func (a *Analyzer) resolve(name string) *varSym {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if sym, ok := a.scopes[i].vars[name]; ok {
			return sym
		}
	}
	return nil
}

func (a *Analyzer) checkBlock(b *ast.Block) {
	a.pushScope()
	for _, stmt := range b.Statements {
		a.checkStmt(stmt)
	}
	a.popScope()
}

func (a *Analyzer) checkStmt(stmt ast.Node) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		if isConcurrencyType(s.TypeName) {
			a.fail(s.Tok(), "variable '%s' uses unsupported concurrency type '%s'", s.Name, s.TypeName)
		}
		a.noteFlow(s.Tok(), classifyFlow(s.TypeName))
		a.checkExpr(s.Initializer, false)
		a.declare(s.Tok(), s.Name, s.TypeName, s.IsMutable)

	case *ast.Assign:
		sym := a.resolve(s.Target)
		if sym == nil {
			a.fail(s.Tok(), "assignment to undeclared identifier '%s'", s.Target)
		} else if !sym.isMutable {
			a.fail(s.Tok(), "cannot assign to immutable variable")
		}
		a.checkExpr(s.Value, false)

	case *ast.If:
		a.checkExpr(s.Condition, false)
		a.checkBlock(s.Then)
		if s.Else != nil {
			a.checkBlock(s.Else)
		}

	case *ast.For:
		// 'for in' has no runtime lowering in this implementation; every
		// occurrence is rejected regardless of the iterable's type.
		a.fail(s.Tok(), "'for' loops are not supported")

	case *ast.Return:
		if s.Value != nil {
			a.checkExpr(s.Value, false)
		}

	case *ast.ExprStmt:
		a.checkExpr(s.X, true)

	default:
		a.fail(stmt.Tok(), "unsupported statement")
	}
}

// noteFlow folds one more maybe/result-typed contribution (a parameter, a
// local var-decl) into the current function's running flow mode. A NONE
// contribution is ignored; the first non-NONE contribution pins the mode;
// any later contribution that disagrees is rejected.
func (a *Analyzer) noteFlow(tok token.Token, mode FlowMode) {
	if mode == FlowNone {
		return
	}
	if a.curFlow == FlowNone {
		a.curFlow = mode
		return
	}
	if a.curFlow != mode {
		a.fail(tok, "cannot mix '%s' and '%s' in the same function", a.curFlow, mode)
	}
}

// checkExpr walks an expression for resolution and the unused-result rule.
// asStatement is true when expr is the entire statement (an ExprStmt),
// which is the only position where an unused result is rejected.
func (a *Analyzer) checkExpr(expr ast.Expr, asStatement bool) {
	switch e := expr.(type) {
	case *ast.Identifier:
		if isConcurrencyKeyword(e.Name) {
			a.fail(e.Tok(), "concurrency is not supported by the current backend")
			return
		}
		if a.resolve(e.Name) == nil {
			if _, isFunc := a.funcs[e.Name]; !isFunc {
				a.fail(e.Tok(), "use of undeclared identifier '%s'", e.Name)
			}
		}

	case *ast.Binary:
		a.checkExpr(e.Left, false)
		a.checkExpr(e.Right, false)

	case *ast.Call:
		if id, ok := e.Callee.(*ast.Identifier); ok && isConcurrencyKeyword(id.Name) {
			a.fail(e.Tok(), "concurrency is not supported by the current backend")
		} else {
			a.checkExpr(e.Callee, false)
		}
		for _, arg := range e.Arguments {
			a.checkExpr(arg, false)
		}
		if id, ok := e.Callee.(*ast.Identifier); ok {
			sig := a.funcs[id.Name]
			if sig != nil {
				if id.Name == "log" && len(e.Arguments) != 1 {
					a.fail(e.Tok(), "'log' expects exactly one argument")
				}
				if len(e.Arguments) != len(sig.paramTypes) && sig.decl != nil {
					a.fail(e.Tok(), "'%s' expects %d argument(s), got %d", id.Name, len(sig.paramTypes), len(e.Arguments))
				}
				if asStatement && sig.flow == FlowResult {
					a.fail(e.Tok(), "result-returning function must not be ignored")
				}
			}
		}

	case *ast.Literal:
		// literals always resolve; nothing to check

	default:
		// unknown expression kinds are a parser/AST bug, not a user error
	}
}
