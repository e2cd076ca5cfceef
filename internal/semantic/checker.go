// Package semantic implements the Noxy Semantic Checker (§4.4): duplicate
// struct/function name detection, undefined struct-field type references,
// return-type consistency per function, and f-string part validation — all
// run after parsing and resolution and before code generation, so that a
// program with one of these mistakes gets a clean semantic Diagnostic
// instead of falling through to codegen's raw, ad-hoc errors.
package semantic

import (
	"regexp"

	"github.com/estevaofon/noxy/internal/ast"
	"github.com/estevaofon/noxy/internal/diag"
)

// Checker walks a parsed Program validating every property of §4.4.
type Checker struct {
	src string
}

// New creates a Checker. src is used to render the offending source line in
// diagnostics.
func New(src string) *Checker {
	return &Checker{src: src}
}

// Check runs every validation, first-error-wins (§7).
func (c *Checker) Check(prog *ast.Program) *diag.Diagnostic {
	structNames, err := c.checkDuplicateNames(prog.Statements)
	if err != nil {
		return err
	}
	if err := c.checkStructFieldTypes(prog.Statements, structNames); err != nil {
		return err
	}
	for i := range prog.Statements {
		s := &prog.Statements[i]
		if s.Kind == ast.StmtFuncDef {
			if err := c.checkFunction(s.FuncDef); err != nil {
				return err
			}
		}
	}
	return c.checkFStrings(prog.Statements)
}

// checkDuplicateNames rejects a program declaring the same struct name or
// the same function name twice, mirroring the teacher's
// internal/validator.ValidateModule's typeNames/functionNames dedup passes.
// It also returns the set of declared struct names, reused by
// checkStructFieldTypes so both passes walk the top level only once.
func (c *Checker) checkDuplicateNames(stmts []ast.Stmt) (map[string]bool, *diag.Diagnostic) {
	structNames := make(map[string]bool)
	funcNames := make(map[string]bool)
	for i := range stmts {
		s := &stmts[i]
		switch s.Kind {
		case ast.StmtStructDef:
			name := s.StructDef.Name
			if structNames[name] {
				return nil, diag.New(diag.KindSemantic, c.pos(s.StructDef.Pos), c.src,
					"duplicate struct name %q", name)
			}
			structNames[name] = true
		case ast.StmtFuncDef:
			name := s.FuncDef.Name
			if funcNames[name] {
				return nil, diag.New(diag.KindSemantic, c.pos(s.FuncDef.Pos), c.src,
					"duplicate function name %q", name)
			}
			funcNames[name] = true
		}
	}
	return structNames, nil
}

// checkStructFieldTypes rejects a struct field whose type names a struct
// that was never declared, looking through array element types and
// reference targets to find the named struct being referred to. Mirrors the
// teacher's validateTypeDefinition field-by-field validation.
func (c *Checker) checkStructFieldTypes(stmts []ast.Stmt, structNames map[string]bool) *diag.Diagnostic {
	for i := range stmts {
		s := &stmts[i]
		if s.Kind != ast.StmtStructDef {
			continue
		}
		for _, field := range s.StructDef.Fields {
			if name, ok := namedStructType(field.Type); ok && !structNames[name] {
				return diag.New(diag.KindSemantic, c.pos(s.StructDef.Pos), c.src,
					"struct %q field %q references undefined struct type %q", s.StructDef.Name, field.Name, name)
			}
		}
	}
	return nil
}

// namedStructType reports the struct name a field's type ultimately names,
// looking through array-element and reference-target wrapping (`Point[3]`,
// `ref Point`) to the innermost type.
func namedStructType(t ast.Type) (string, bool) {
	switch t.Kind {
	case ast.TStruct:
		return t.StructName, true
	case ast.TArray:
		if t.Elem != nil {
			return namedStructType(*t.Elem)
		}
	case ast.TReference:
		if t.Target != nil {
			return namedStructType(*t.Target)
		}
	}
	return "", false
}

func (c *Checker) pos(p ast.Pos) diag.Pos { return diag.Pos{Line: p.Line, Column: p.Column} }

// checkFunction collects every Return in the body, descending into If/While
// branches, and checks it against the declared return type (§4.4).
func (c *Checker) checkFunction(fn *ast.Function) *diag.Diagnostic {
	isVoid := fn.Return.Kind == ast.TVoid
	var err *diag.Diagnostic
	walkReturns(fn.Body, func(r *ast.Stmt) bool {
		if isVoid && r.Value != nil {
			suggested := inferType(r.Value)
			err = diag.New(diag.KindSemantic, c.pos(r.Pos), c.src,
				"function %q is declared void but returns a value (declare it -> %s instead?)", fn.Name, suggested)
			return false
		}
		if !isVoid && r.Value == nil {
			err = diag.New(diag.KindSemantic, c.pos(r.Pos), c.src,
				"function %q is declared to return %s but has a bare return", fn.Name, fn.Return.String())
			return false
		}
		return true
	})
	return err
}

// walkReturns visits every Return statement reachable through If/While
// bodies, in textual order, stopping early when visit returns false.
func walkReturns(stmts []ast.Stmt, visit func(*ast.Stmt) bool) bool {
	for i := range stmts {
		s := &stmts[i]
		if s.Kind == ast.StmtReturn {
			if !visit(s) {
				return false
			}
			continue
		}
		if !walkReturns(s.Then, visit) {
			return false
		}
		if !walkReturns(s.Else, visit) {
			return false
		}
		if !walkReturns(s.Body, visit) {
			return false
		}
	}
	return true
}

var identHeuristic = struct {
	intRe    *regexp.Regexp
	stringRe *regexp.Regexp
	boolRe   *regexp.Regexp
}{
	intRe:    regexp.MustCompile(`(?i)count|size|length|index|hash|^i$|^j$|^k$`),
	stringRe: regexp.MustCompile(`(?i)name|key|text|str|message`),
	boolRe:   regexp.MustCompile(`(?i)found|valid|ok|flag`),
}

var comparisonAndLogicalOps = map[string]bool{
	">": true, "<": true, ">=": true, "<=": true, "==": true, "!=": true,
	"and": true, "or": true,
}

// inferType implements the diagnostic-only return-type heuristics of §4.4.
func inferType(e *ast.Expr) string {
	if e == nil {
		return "void"
	}
	switch e.Kind {
	case ast.ExprNumber:
		return "int"
	case ast.ExprFloat:
		return "float"
	case ast.ExprString, ast.ExprFString, ast.ExprConcat:
		return "string"
	case ast.ExprBool:
		return "bool"
	case ast.ExprIdentifier:
		return inferIdentType(e.Name)
	case ast.ExprBinaryOp:
		if comparisonAndLogicalOps[e.Op] {
			return "bool"
		}
		if inferType(e.Left) == "float" || inferType(e.Right) == "float" {
			return "float"
		}
		return "int"
	case ast.ExprUnaryOp:
		if e.Op == "!" {
			return "bool"
		}
		return inferType(e.Operand)
	default:
		return "unknown"
	}
}

func inferIdentType(name string) string {
	switch {
	case identHeuristic.intRe.MatchString(name):
		return "int"
	case identHeuristic.stringRe.MatchString(name):
		return "string"
	case identHeuristic.boolRe.MatchString(name):
		return "bool"
	default:
		return "unknown"
	}
}

// checkFStrings walks every expression in the program and validates each
// FString's non-literal parts (§4.4).
func (c *Checker) checkFStrings(stmts []ast.Stmt) *diag.Diagnostic {
	var err *diag.Diagnostic
	walkStmtExprs(stmts, func(e *ast.Expr) bool {
		if e.Kind != ast.ExprFString {
			return true
		}
		for _, part := range e.FString {
			// A part tagged with a format spec came from a `{expr:spec}`
			// site and must carry its parsed expression; a bare literal
			// part never has a spec.
			if part.Expr == nil && (part.HasSpec || part.Spec != "") {
				err = diag.New(diag.KindSemantic, diag.Pos{Line: e.Pos.Line, Column: e.Pos.Column}, c.src,
					"f-string part has neither literal text nor a parsed expression")
				return false
			}
		}
		return true
	})
	return err
}

func walkStmtExprs(stmts []ast.Stmt, visit func(*ast.Expr) bool) bool {
	for i := range stmts {
		s := &stmts[i]
		if !walkExprTree(s.Value, visit) {
			return false
		}
		if !walkExprTree(s.Cond, visit) {
			return false
		}
		if !walkExprTree(s.Index, visit) {
			return false
		}
		if !walkStmtExprs(s.Then, visit) {
			return false
		}
		if !walkStmtExprs(s.Else, visit) {
			return false
		}
		if !walkStmtExprs(s.Body, visit) {
			return false
		}
		if s.FuncDef != nil {
			if !walkStmtExprs(s.FuncDef.Body, visit) {
				return false
			}
		}
	}
	return true
}

func walkExprTree(e *ast.Expr, visit func(*ast.Expr) bool) bool {
	if e == nil {
		return true
	}
	if !visit(e) {
		return false
	}
	for _, child := range []*ast.Expr{e.Left, e.Right, e.Operand, e.Index, e.Base, e.SizeExpr} {
		if !walkExprTree(child, visit) {
			return false
		}
	}
	for i := range e.Elements {
		if !walkExprTree(&e.Elements[i], visit) {
			return false
		}
	}
	for i := range e.Args {
		if !walkExprTree(&e.Args[i], visit) {
			return false
		}
	}
	for _, part := range e.FString {
		if !walkExprTree(part.Expr, visit) {
			return false
		}
	}
	return true
}
