// Package resolver implements the Noxy Module Resolver (§4.3): for each
// `use` statement, locate the source file, parse (but do not code-generate)
// it, extract its export set, and compute the transitive symbol closure the
// import form requests.
package resolver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/estevaofon/noxy/internal/ast"
	"github.com/estevaofon/noxy/internal/diag"
	"github.com/estevaofon/noxy/internal/parser"
)

// builtins are excluded from transitive-closure scanning (§4.3 step 4).
var builtins = map[string]bool{
	"printf": true, "malloc": true, "free": true, "strlen": true, "strcpy": true,
	"strcat": true, "to_str": true, "array_to_str": true, "to_int": true,
	"to_float": true, "ord": true, "length": true, "print": true,
}

// Module is one parsed, exported source file.
type Module struct {
	Path      string
	Program   *ast.Program
	Functions map[string]*ast.Function
	Globals   map[string]*ast.Stmt
	Structs   map[string]*ast.StructDefinition
}

// BindingKind tags which field of a Binding is meaningful.
type BindingKind int

const (
	BindFunc BindingKind = iota
	BindGlobal
	BindStruct
)

// Binding is one symbol imported from a Module, ready for registration in
// the importer's function/global/struct tables.
type Binding struct {
	Kind   BindingKind
	Module string
	Func   *ast.Function
	Global *ast.Stmt
	Struct *ast.StructDefinition
}

// Resolver locates and memoizes Modules by dotted module name (§4.3 step 5).
type Resolver struct {
	roots []string
	cache map[string]*Module
}

// New creates a Resolver. Default roots are current dir, std/, noxy_examples/
// (§5 "Source files"); extra roots append.
func New(extraRoots ...string) *Resolver {
	roots := append([]string{".", "std", "noxy_examples"}, extraRoots...)
	return &Resolver{roots: roots, cache: make(map[string]*Module)}
}

// errAt builds a diagnostic with no source-line context, since resolution
// errors are not anchored to a single line of the importing file's text.
func errAt(pos ast.Pos, format string, args ...any) *diag.Diagnostic {
	return diag.New(diag.KindSemantic, diag.Pos{Line: pos.Line, Column: pos.Column}, "", format, args...)
}

// Load locates, parses, and exports a module by dotted path, memoizing the
// result (§4.3 steps 1-3, 5).
func (r *Resolver) Load(use *ast.Use) (*Module, *diag.Diagnostic) {
	if m, ok := r.cache[use.Module]; ok {
		return m, nil
	}
	path, ok := r.locate(use.Module)
	if !ok {
		return nil, errAt(use.Pos, "cannot locate module %q (searched roots %v)", use.Module, r.roots)
	}
	src, rerr := os.ReadFile(path)
	if rerr != nil {
		return nil, errAt(use.Pos, "cannot read module %q: %s", use.Module, rerr.Error())
	}
	prog, perr := parser.Parse(path, string(src))
	if perr != nil {
		return nil, perr
	}
	m := &Module{
		Path:      path,
		Program:   prog,
		Functions: make(map[string]*ast.Function),
		Globals:   make(map[string]*ast.Stmt),
		Structs:   make(map[string]*ast.StructDefinition),
	}
	for i := range prog.Statements {
		s := &prog.Statements[i]
		switch s.Kind {
		case ast.StmtFuncDef:
			m.Functions[s.FuncDef.Name] = s.FuncDef
		case ast.StmtStructDef:
			m.Structs[s.StructDef.Name] = s.StructDef
		case ast.StmtAssignment:
			if s.IsGlobal {
				m.Globals[s.Target] = s
			}
		}
	}
	r.cache[use.Module] = m
	return m, nil
}

// locate implements §4.3 step 1's search order: for a dotted path `a.b.c`,
// try `a/b/c.nx` then `a/b/c/__init__.nx` in each root. A single-segment
// path degenerates to the same two candidates, so no extra form is needed.
func (r *Resolver) locate(modulePath string) (string, bool) {
	segs := strings.Split(modulePath, ".")
	rel := filepath.Join(segs...) + ".nx"
	relInit := filepath.Join(append(append([]string{}, segs...), "__init__.nx")...)
	for _, root := range r.roots {
		if p := filepath.Join(root, rel); fileExists(p) {
			return p, true
		}
		if p := filepath.Join(root, relInit); fileExists(p) {
			return p, true
		}
	}
	return "", false
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// Resolve loads the module named by use and returns the bindings the
// importer must register, per the three import forms of §4.3 step 4.
func (r *Resolver) Resolve(use *ast.Use) (map[string]Binding, *diag.Diagnostic) {
	m, err := r.Load(use)
	if err != nil {
		return nil, err
	}
	switch {
	case use.ImportAll:
		return exportAllBindings(m), nil
	case len(use.Selected) > 0:
		return r.selectedClosureBindings(use, m)
	default:
		return namespacedBindings(m, use.Module), nil
	}
}

func exportAllBindings(m *Module) map[string]Binding {
	out := make(map[string]Binding)
	for name, fn := range m.Functions {
		out[name] = Binding{Kind: BindFunc, Module: m.Path, Func: fn}
	}
	for name, g := range m.Globals {
		out[name] = Binding{Kind: BindGlobal, Module: m.Path, Global: g}
	}
	for name, sd := range m.Structs {
		out[name] = Binding{Kind: BindStruct, Module: m.Path, Struct: sd}
	}
	return out
}

func namespacedBindings(m *Module, namespace string) map[string]Binding {
	out := make(map[string]Binding)
	for name, fn := range m.Functions {
		out[namespace+"."+name] = Binding{Kind: BindFunc, Module: m.Path, Func: fn}
	}
	for name, g := range m.Globals {
		out[namespace+"."+name] = Binding{Kind: BindGlobal, Module: m.Path, Global: g}
	}
	for name, sd := range m.Structs {
		out[namespace+"."+name] = Binding{Kind: BindStruct, Module: m.Path, Struct: sd}
	}
	return out
}

// selectedClosureBindings computes, for each requested symbol, the
// transitive closure of symbols it references (§4.3 step 4 third form).
func (r *Resolver) selectedClosureBindings(use *ast.Use, m *Module) (map[string]Binding, *diag.Diagnostic) {
	visited := make(map[string]bool)
	queue := append([]string{}, use.Selected...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if visited[name] {
			continue
		}
		if !isExported(m, name) {
			return nil, errAt(use.Pos, "module %q does not export symbol %q", use.Module, name)
		}
		visited[name] = true
		for _, ref := range directRefs(m, name) {
			if !visited[ref] && isExported(m, ref) {
				queue = append(queue, ref)
			}
		}
	}
	out := make(map[string]Binding)
	for name := range visited {
		if fn, ok := m.Functions[name]; ok {
			out[name] = Binding{Kind: BindFunc, Module: m.Path, Func: fn}
		} else if g, ok := m.Globals[name]; ok {
			out[name] = Binding{Kind: BindGlobal, Module: m.Path, Global: g}
		} else if sd, ok := m.Structs[name]; ok {
			out[name] = Binding{Kind: BindStruct, Module: m.Path, Struct: sd}
		}
	}
	return out, nil
}

func isExported(m *Module, name string) bool {
	if _, ok := m.Functions[name]; ok {
		return true
	}
	if _, ok := m.Globals[name]; ok {
		return true
	}
	if _, ok := m.Structs[name]; ok {
		return true
	}
	return false
}

// directRefs returns the names a single exported symbol's definition
// references directly, excluding built-ins and (for functions) parameters.
func directRefs(m *Module, name string) []string {
	if fn, ok := m.Functions[name]; ok {
		params := make(map[string]bool, len(fn.Params))
		for _, p := range fn.Params {
			params[p.Name] = true
		}
		refs := make(map[string]bool)
		collectStmtRefs(fn.Body, params, refs)
		return keys(refs)
	}
	if g, ok := m.Globals[name]; ok {
		refs := make(map[string]bool)
		collectExprRefs(g.Value, nil, refs)
		return keys(refs)
	}
	if sd, ok := m.Structs[name]; ok {
		refs := make(map[string]bool)
		for _, f := range sd.Fields {
			collectTypeRefs(f.Type, refs)
		}
		return keys(refs)
	}
	return nil
}

func collectTypeRefs(t ast.Type, out map[string]bool) {
	switch t.Kind {
	case ast.TStruct:
		out[t.StructName] = true
	case ast.TArray:
		collectTypeRefs(*t.Elem, out)
	case ast.TReference:
		collectTypeRefs(*t.Target, out)
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// collectStmtRefs walks a statement list recording every Identifier, Call,
// StructConstructor, and ArrayAccess base name (§4.3 step 4), minus built-ins
// and the given parameter set.
func collectStmtRefs(stmts []ast.Stmt, exclude map[string]bool, out map[string]bool) {
	for i := range stmts {
		s := &stmts[i]
		collectExprRefs(s.Value, exclude, out)
		collectExprRefs(s.Cond, exclude, out)
		collectStmtRefs(s.Then, exclude, out)
		collectStmtRefs(s.Else, exclude, out)
		collectStmtRefs(s.Body, exclude, out)
		if !exclude[s.Target] && s.Target != "" {
			switch s.Kind {
			case ast.StmtArrayAssignment, ast.StmtArrayFieldAssignment,
				ast.StmtStructAssignment, ast.StmtNestedStructAssignment:
				out[s.Target] = true
			}
		}
		collectExprRefs(s.Index, exclude, out)
	}
}

func collectExprRefs(e *ast.Expr, exclude map[string]bool, out map[string]bool) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprIdentifier:
		addRef(e.Name, exclude, out, builtins)
	case ast.ExprCall, ast.ExprStructConstructor, ast.ExprArrayAccess:
		addRef(e.Name, exclude, out, builtins)
	}
	collectExprRefs(e.Left, exclude, out)
	collectExprRefs(e.Right, exclude, out)
	collectExprRefs(e.Operand, exclude, out)
	collectExprRefs(e.Index, exclude, out)
	collectExprRefs(e.Base, exclude, out)
	collectExprRefs(e.SizeExpr, exclude, out)
	for i := range e.Elements {
		collectExprRefs(&e.Elements[i], exclude, out)
	}
	for i := range e.Args {
		collectExprRefs(&e.Args[i], exclude, out)
	}
	for i := range e.FString {
		collectExprRefs(e.FString[i].Expr, exclude, out)
	}
}

func addRef(name string, exclude map[string]bool, out map[string]bool, builtinSet map[string]bool) {
	if name == "" || exclude[name] || builtinSet[name] {
		return
	}
	out[name] = true
}
