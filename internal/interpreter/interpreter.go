// Package interpreter is a tree-walking reference evaluator for Noxy,
// grounded on the teacher's internal/interpreter (Environment + recursive
// executeStatement/evaluateExpression dispatch). It exists purely as a test
// oracle: its printed output and error strings give the code generator's
// test suite something independent to check generated-IR behavior against,
// not a second production execution path.
package interpreter

import (
	"fmt"
	"strings"

	"github.com/estevaofon/noxy/internal/ast"
	"github.com/estevaofon/noxy/internal/resolver"
	"github.com/estevaofon/noxy/internal/runtime"
)

// Interpreter holds one program's declarations. Unlike the teacher's
// Interpreter, which accumulates modules loaded from the filesystem across
// its lifetime, a Noxy Interpreter is built fresh per Run call: the
// resolver has already produced the full import closure, so there is no
// module-loading responsibility left to carry.
type Interpreter struct {
	structDefs map[string]*ast.StructDefinition
	functions  map[string]*ast.Function
	globals    *scope
	ledger     *runtime.Ledger
	out        strings.Builder
	inMain     bool
}

// New returns an empty Interpreter.
func New() *Interpreter {
	return &Interpreter{
		structDefs: make(map[string]*ast.StructDefinition),
		functions:  make(map[string]*ast.Function),
		globals:    newScope(nil),
		ledger:     runtime.NewLedger(),
	}
}

// scope is the teacher's Environment, renamed and adapted to store pointers
// rather than values: Noxy's `ref` expression needs an addressable target,
// and a map[string]runtime.Value cannot yield one.
type scope struct {
	vars   map[string]*runtime.Value
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{vars: make(map[string]*runtime.Value), parent: parent}
}

func (s *scope) get(name string) (*runtime.Value, bool) {
	if v, ok := s.vars[name]; ok {
		return v, true
	}
	if s.parent != nil {
		return s.parent.get(name)
	}
	return nil, false
}

func (s *scope) set(name string, v runtime.Value) {
	if existing, ok := s.vars[name]; ok {
		*existing = v
		return
	}
	stored := v
	s.vars[name] = &stored
}

// breakSignal unwinds a While loop's body on `break`, mirroring generateWhile
// / generateStmts' terminated-bool propagation in codegen without needing a
// parallel boolean return threaded through every eval call.
type breakSignal struct{}

func (breakSignal) Error() string { return "break outside loop" }

// returnSignal carries a function's return value out through execStmts.
type returnSignal struct{ value runtime.Value }

func (returnSignal) Error() string { return "return outside function" }

// Run interprets prog plus its resolved import closure (matching
// codegen.Generator.Generate's signature and ordering: imported globals'
// initializers run before the importing program's own top-level
// statements) and returns everything written via Print.
func (it *Interpreter) Run(prog *ast.Program, imports map[string]map[string]resolver.Binding) (string, error) {
	var mainBody []ast.Stmt

	collect := func(stmts []ast.Stmt) {
		for i := range stmts {
			s := &stmts[i]
			switch s.Kind {
			case ast.StmtStructDef:
				it.structDefs[s.StructDef.Name] = s.StructDef
			case ast.StmtFuncDef:
				it.functions[s.FuncDef.Name] = s.FuncDef
			case ast.StmtUse:
			default:
				mainBody = append(mainBody, *s)
			}
		}
	}

	for _, bindings := range imports {
		for key, b := range bindings {
			switch b.Kind {
			case resolver.BindStruct:
				it.structDefs[b.Struct.Name] = b.Struct
			case resolver.BindFunc:
				it.functions[key] = b.Func
			case resolver.BindGlobal:
				renamed := *b.Global
				renamed.Target = key
				mainBody = append(mainBody, renamed)
			}
		}
	}
	collect(prog.Statements)

	root := newScope(it.globals)
	it.inMain = true
	_, err := it.execStmts(mainBody, root)
	if err != nil {
		return it.out.String(), err
	}
	it.ledger.Release()
	return it.out.String(), nil
}

// track records one heap allocation against the ledger when executing
// top-level code, mirroring codegen's trackAllocation/inMain gate: function
// bodies are documented as intentionally leaked (§5), so allocations made
// while running inside a Call are never tracked.
func (it *Interpreter) track() error {
	if !it.inMain {
		return nil
	}
	return it.ledger.Track()
}

func (it *Interpreter) execStmts(stmts []ast.Stmt, sc *scope) (runtime.Value, error) {
	last := runtime.NewNull()
	for i := range stmts {
		v, err := it.execStmt(&stmts[i], sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		last = v
	}
	return last, nil
}

func (it *Interpreter) execStmt(s *ast.Stmt, sc *scope) (runtime.Value, error) {
	switch s.Kind {
	case ast.StmtAssignment:
		val, err := it.eval(s.Value, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		if s.IsGlobal {
			it.globals.set(s.Target, val)
		} else if ptr, ok := sc.get(s.Target); ok && s.DeclType == nil {
			*ptr = val
		} else {
			sc.set(s.Target, val)
		}
		return val, nil

	case ast.StmtArrayAssignment:
		ptr, ok := sc.get(s.Target)
		if !ok {
			return runtime.NewNull(), fmt.Errorf("undefined variable %q", s.Target)
		}
		idx, err := it.eval(s.Index, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		val, err := it.eval(s.Value, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		i := idx.AsInt()
		if i < 0 || int(i) >= len(ptr.Elem) {
			return runtime.NewNull(), fmt.Errorf("array index %d out of bounds", i)
		}
		ptr.Elem[i] = val
		return val, nil

	case ast.StmtArrayFieldAssignment:
		ptr, ok := sc.get(s.Target)
		if !ok {
			return runtime.NewNull(), fmt.Errorf("undefined variable %q", s.Target)
		}
		idx, err := it.eval(s.Index, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		i := idx.AsInt()
		if i < 0 || int(i) >= len(ptr.Elem) {
			return runtime.NewNull(), fmt.Errorf("array index %d out of bounds", i)
		}
		target := derefStruct(&ptr.Elem[i])
		val, err := it.eval(s.Value, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		if err := setFieldPath(target, s.FieldPath, val); err != nil {
			return runtime.NewNull(), err
		}
		return val, nil

	case ast.StmtStructAssignment, ast.StmtNestedStructAssignment:
		ptr, ok := sc.get(s.Target)
		if !ok {
			return runtime.NewNull(), fmt.Errorf("undefined variable %q", s.Target)
		}
		val, err := it.eval(s.Value, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		if err := setFieldPath(derefStruct(ptr), s.FieldPath, val); err != nil {
			return runtime.NewNull(), err
		}
		return val, nil

	case ast.StmtIf:
		cond, err := it.eval(s.Cond, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		if cond.AsBool() {
			return it.execStmts(s.Then, newScope(sc))
		}
		return it.execStmts(s.Else, newScope(sc))

	case ast.StmtWhile:
		for {
			cond, err := it.eval(s.Cond, sc)
			if err != nil {
				return runtime.NewNull(), err
			}
			if !cond.AsBool() {
				break
			}
			_, err = it.execStmts(s.Body, newScope(sc))
			if err != nil {
				if _, ok := err.(breakSignal); ok {
					break
				}
				return runtime.NewNull(), err
			}
		}
		return runtime.NewNull(), nil

	case ast.StmtReturn:
		if s.Value == nil {
			return runtime.NewNull(), returnSignal{runtime.NewNull()}
		}
		val, err := it.eval(s.Value, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		return runtime.NewNull(), returnSignal{val}

	case ast.StmtBreak:
		return runtime.NewNull(), breakSignal{}

	case ast.StmtPrint:
		val, err := it.eval(s.Value, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		it.out.WriteString(val.AsString())
		it.out.WriteByte('\n')
		return val, nil

	case ast.StmtExpr:
		return it.eval(s.Value, sc)

	case ast.StmtStructDef, ast.StmtFuncDef, ast.StmtUse:
		return runtime.NewNull(), nil

	default:
		return runtime.NewNull(), fmt.Errorf("unsupported statement kind %v", s.Kind)
	}
}

// derefStruct follows a Reference down to the struct it targets, returning
// the addressable Value the field path should mutate. A nil-reference
// dereference is a runtime error in the generated IR (a null pointer
// store); here it would panic, so callers only reach this after a
// StructConstructor (§4.5) has guaranteed non-null storage.
func derefStruct(v *runtime.Value) *runtime.Value {
	for v.Kind == runtime.Reference && v.Ref != nil {
		v = v.Ref
	}
	return v
}

// setFieldPath mutates container.<path...> = val. A reference-typed
// intermediate is a real Go pointer (runtime.Value.Ref), so descending
// through it mutates the target directly; an inline (embedded, non-
// reference) struct field is a plain map value with no address, so it is
// copied out, mutated, and written back — behaviorally equivalent to the
// generated IR's direct GEP-into-parent-storage mutation, since nothing
// else observes the field between the read and the write-back.
func setFieldPath(container *runtime.Value, path []string, val runtime.Value) error {
	if container.Kind != runtime.Struct {
		return fmt.Errorf("field %q: not a struct", path[0])
	}
	field := path[0]
	if len(path) == 1 {
		container.Fields[field] = val
		return nil
	}
	child, ok := container.Fields[field]
	if !ok {
		return fmt.Errorf("struct %q has no field %q", container.Type, field)
	}
	if child.Kind == runtime.Reference {
		if child.Ref == nil {
			return fmt.Errorf("field %q: dereferencing a null reference", field)
		}
		return setFieldPath(child.Ref, path[1:], val)
	}
	if err := setFieldPath(&child, path[1:], val); err != nil {
		return err
	}
	container.Fields[field] = child
	return nil
}

// getFieldPath reads base.<path...>, following reference-typed
// intermediates and the final segment alike.
func getFieldPath(base runtime.Value, path []string) (runtime.Value, error) {
	cur := base
	if cur.Kind == runtime.Reference {
		if cur.Ref == nil {
			return runtime.Value{}, fmt.Errorf("dereferencing a null reference")
		}
		cur = *cur.Ref
	}
	for _, field := range path {
		if cur.Kind != runtime.Struct {
			return runtime.Value{}, fmt.Errorf("field %q: not a struct", field)
		}
		next, ok := cur.Fields[field]
		if !ok {
			return runtime.Value{}, fmt.Errorf("struct %q has no field %q", cur.Type, field)
		}
		cur = next
		if cur.Kind == runtime.Reference && cur.Ref != nil {
			cur = *cur.Ref
		}
	}
	return cur, nil
}
