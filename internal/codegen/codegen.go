// Package codegen lowers a checked Noxy AST to an LLVM IR module (§4.5).
//
// Generation runs in two phases: Phase A declares every struct, global and
// function signature (so no function body ever references an undeclared
// symbol — testable property 4), then Phase B generates function bodies and
// synthesizes the `main` entry point that runs the program's top-level
// statements in textual order.
//
// Unlike the teacher's LLVMCodegen, which carries its struct table, symbol
// maps and LLVM one-shot init as package-level/receiver mutable state shared
// across unrelated compilations, Generator is a fresh value per call to New
// (§9 "mutable global compiler state" redesign): nothing here survives past
// one Generate call.
package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/estevaofon/noxy/internal/ast"
	"github.com/estevaofon/noxy/internal/diag"
	"github.com/estevaofon/noxy/internal/resolver"
	"github.com/estevaofon/noxy/internal/stdlib"
)

// structState is the UNSEEN -> PROCESSING -> DONE machine of §4.5's struct
// processing pass.
type structState int

const (
	unseen structState = iota
	processing
	done
)

// structInfo is the per-compilation struct-table entry (§4.5 Phase A step 1):
// the lowered LLVM type plus the (field name -> index) and (field name ->
// Noxy Type) auxiliary maps every StructAccess/StructConstructor lowering
// consults.
type structInfo struct {
	def         *ast.StructDefinition
	llvmType    *types.StructType
	fieldIndex  map[string]int
	fieldType   map[string]ast.Type
	placeholder map[string]bool // field name -> true if lowered as an i8* cycle placeholder
}

// Generator holds the state of one compilation. Every map is populated once
// during Generate and never reused across calls.
type Generator struct {
	module   *ir.Module
	registry *stdlib.Registry
	src      string

	structDefs  map[string]*ast.StructDefinition
	structState map[string]structState
	structs     map[string]*structInfo

	globals     map[string]*ir.Global
	globalTypes map[string]ast.Type

	functions map[string]*ir.Func
	astFuncs  map[string]*ast.Function

	// Per-function (or per-main) local scope, save/restored around each body.
	vars        map[string]value.Value
	varTypes    map[string]ast.Type
	builder     *ir.Block
	currentFunc *ast.Function

	loopEnds []*ir.Block // enclosing-loop end-block stack, for Break (§4.5)

	// The generated `main`'s allocation ledger (§5): a fixed [100 x i8*]
	// array and a counter, both local to main. inMain gates tracking:
	// allocations made inside ordinary functions are intentionally leaked,
	// per spec.
	inMain        bool
	ledgerArray   value.Value
	ledgerCounter value.Value

	strCounter int // disambiguates anonymous string/global names
}

// New returns a Generator targeting a fresh LLVM module, with the libc and
// casting-shim externals already declared.
func New(src string) *Generator {
	m := ir.NewModule()
	g := &Generator{
		module:      m,
		registry:    stdlib.New(m),
		src:         src,
		structDefs:  make(map[string]*ast.StructDefinition),
		structState: make(map[string]structState),
		structs:     make(map[string]*structInfo),
		globals:     make(map[string]*ir.Global),
		globalTypes: make(map[string]ast.Type),
		functions:   make(map[string]*ir.Func),
		astFuncs:    make(map[string]*ast.Function),
	}
	return g
}

func (g *Generator) errf(pos ast.Pos, format string, args ...any) *diag.Diagnostic {
	return diag.New(diag.KindCodegen, diag.Pos{Line: pos.Line, Column: pos.Column}, g.src, format, args...)
}

// Generate lowers prog (plus any modules transitively imported via `use`,
// already resolved into bindings by internal/resolver) to an LLVM module.
//
// imports maps each `use` statement's module path to its resolved bindings,
// produced by resolver.Resolve; Generate declares every imported struct,
// global and function alongside prog's own, matching §4.5 Phase A's "local +
// imported" wording and testable property 8 (import closure).
func (g *Generator) Generate(prog *ast.Program, imports map[string]map[string]resolver.Binding) (mod *ir.Module, diagErr *diag.Diagnostic) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			diagErr = diag.Wrap(diag.KindCodegen, diag.Pos{}, g.src, err)
			mod = g.module
		}
	}()

	type namedFunc struct {
		name string
		fn   *ast.Function
	}
	type namedGlobal struct {
		name string
		stmt ast.Stmt
	}

	var structDefs []*ast.StructDefinition
	var globals []namedGlobal
	var funcs []namedFunc
	var mainBody []ast.Stmt

	collect := func(stmts []ast.Stmt) {
		for i := range stmts {
			s := &stmts[i]
			switch s.Kind {
			case ast.StmtStructDef:
				structDefs = append(structDefs, s.StructDef)
			case ast.StmtFuncDef:
				funcs = append(funcs, namedFunc{s.FuncDef.Name, s.FuncDef})
			case ast.StmtAssignment:
				if s.IsGlobal {
					globals = append(globals, namedGlobal{s.Target, *s})
				}
				mainBody = append(mainBody, *s)
			case ast.StmtUse:
				// handled via the resolver-produced imports map; nothing to
				// lower for the `use` statement itself.
			default:
				mainBody = append(mainBody, *s)
			}
		}
	}
	// Imported symbols are declared under the name the importing file's
	// identifiers/calls actually use (the resolver.Binding map key): a bare
	// `use M` import namespaces every symbol as `M.name` (§4.3), while a
	// `use M select f` import keeps the bare name. Struct *type* names are
	// never namespace-qualified (the parser has no dotted-type syntax), so
	// struct definitions are always declared under their bare name.
	//
	// Imported globals' initializers run before the importing program's own
	// top-level statements, so they are collected first.
	for _, bindings := range imports {
		for key, b := range bindings {
			switch b.Kind {
			case resolver.BindStruct:
				structDefs = append(structDefs, b.Struct)
			case resolver.BindFunc:
				funcs = append(funcs, namedFunc{key, b.Func})
			case resolver.BindGlobal:
				renamed := *b.Global
				renamed.Target = key
				globals = append(globals, namedGlobal{key, renamed})
				mainBody = append(mainBody, renamed)
			}
		}
	}
	collect(prog.Statements)

	for _, sd := range structDefs {
		g.structDefs[sd.Name] = sd
	}
	for name := range g.structDefs {
		if err := g.buildStruct(name); err != nil {
			return g.module, diag.Wrap(diag.KindCodegen, diag.Pos{Line: g.structDefs[name].Line, Column: g.structDefs[name].Column}, g.src, err)
		}
	}

	for _, gl := range globals {
		if err := g.declareGlobal(gl.name, &gl.stmt); err != nil {
			return g.module, diag.Wrap(diag.KindCodegen, diag.Pos{Line: gl.stmt.Line, Column: gl.stmt.Column}, g.src, err)
		}
	}

	for _, nf := range funcs {
		g.astFuncs[nf.name] = nf.fn
		if err := g.declareFunction(nf.name, nf.fn); err != nil {
			return g.module, diag.Wrap(diag.KindCodegen, diag.Pos{Line: nf.fn.Line, Column: nf.fn.Column}, g.src, err)
		}
	}

	if err := g.generateMain(mainBody); err != nil {
		return g.module, diag.Wrap(diag.KindCodegen, diag.Pos{}, g.src, err)
	}

	for _, nf := range funcs {
		if err := g.generateFunction(nf.name, nf.fn); err != nil {
			return g.module, diag.Wrap(diag.KindCodegen, diag.Pos{Line: nf.fn.Line, Column: nf.fn.Column}, g.src, err)
		}
	}

	return g.module, nil
}

// buildStruct implements the UNSEEN->PROCESSING->DONE pass of §4.5 Phase A
// step 1 and §9's cyclic-struct redesign: a DFS over field types, building
// i8* placeholders for any field whose type is a reference back into a
// struct already PROCESSING (a cycle), and erroring on a non-reference cycle
// (testable property 3 permits cycles only through reference fields).
func (g *Generator) buildStruct(name string) error {
	if g.structState[name] == done {
		return nil
	}
	def, ok := g.structDefs[name]
	if !ok {
		return fmt.Errorf("unknown struct %q", name)
	}
	if g.structState[name] == processing {
		return fmt.Errorf("struct %q is involved in a non-reference cycle", name)
	}
	g.structState[name] = processing

	var fieldTypes []types.Type
	fieldIndex := make(map[string]int)
	fieldType := make(map[string]ast.Type)
	placeholder := make(map[string]bool)

	for i, f := range def.Fields {
		lt, isPlaceholder, err := g.lowerStructFieldType(f.Type)
		if err != nil {
			return fmt.Errorf("field %s.%s: %w", name, f.Name, err)
		}
		fieldTypes = append(fieldTypes, lt)
		fieldIndex[f.Name] = i
		fieldType[f.Name] = f.Type
		if isPlaceholder {
			placeholder[f.Name] = true
		}
	}

	llvmType := types.NewStruct(fieldTypes...)
	llvmType.TypeName = name
	g.module.TypeDefs = append(g.module.TypeDefs, llvmType)

	g.structs[name] = &structInfo{
		def:         def,
		llvmType:    llvmType,
		fieldIndex:  fieldIndex,
		fieldType:   fieldType,
		placeholder: placeholder,
	}
	g.structState[name] = done
	return nil
}

// lowerStructFieldType lowers one struct field's declared type, detecting
// the auto-reference case (`ref Self`, or any reference back into a struct
// currently PROCESSING) and substituting an i8* placeholder for the back
// edge instead of recursing into buildStruct again.
func (g *Generator) lowerStructFieldType(t ast.Type) (types.Type, bool, error) {
	switch t.Kind {
	case ast.TReference:
		target := *t.Target
		if target.Kind == ast.TStruct {
			if g.structState[target.StructName] == processing {
				return types.I8Ptr, true, nil
			}
			if err := g.buildStruct(target.StructName); err != nil {
				return nil, false, err
			}
			return types.NewPointer(g.structs[target.StructName].llvmType), false, nil
		}
		inner, _, err := g.lowerStructFieldType(target)
		if err != nil {
			return nil, false, err
		}
		return types.NewPointer(inner), false, nil

	case ast.TStruct:
		if g.structState[t.StructName] == processing {
			return nil, false, fmt.Errorf("struct %q embeds itself without `ref` (non-reference cycles are not allowed)", t.StructName)
		}
		if err := g.buildStruct(t.StructName); err != nil {
			return nil, false, err
		}
		return g.structs[t.StructName].llvmType, false, nil

	case ast.TArray:
		elem, _, err := g.lowerStructFieldType(*t.Elem)
		if err != nil {
			return nil, false, err
		}
		if t.Size != nil {
			return types.NewArray(uint64(*t.Size), elem), false, nil
		}
		return types.NewPointer(elem), false, nil

	default:
		lt, err := g.convertType(t)
		return lt, false, err
	}
}

// convertType lowers a Noxy Type to LLVM per §4.5's type-lowering table.
func (g *Generator) convertType(t ast.Type) (types.Type, error) {
	switch t.Kind {
	case ast.TInt:
		return types.I64, nil
	case ast.TFloat:
		return types.Double, nil
	case ast.TBool:
		return types.I1, nil
	case ast.TString:
		return types.I8Ptr, nil
	case ast.TVoid:
		return types.Void, nil
	case ast.TNull:
		return types.I8Ptr, nil
	case ast.TArray:
		elem, err := g.convertType(*t.Elem)
		if err != nil {
			return nil, err
		}
		if t.Size != nil {
			return types.NewArray(uint64(*t.Size), elem), nil
		}
		return types.NewPointer(elem), nil
	case ast.TStruct:
		if err := g.buildStruct(t.StructName); err != nil {
			return nil, err
		}
		return g.structs[t.StructName].llvmType, nil
	case ast.TReference:
		inner, err := g.convertType(*t.Target)
		if err != nil {
			return nil, err
		}
		return types.NewPointer(inner), nil
	default:
		return nil, fmt.Errorf("unsupported type %s", t.String())
	}
}

// zeroValue returns the zero constant for a lowered LLVM type, used for
// global zero-initializers and the implicit end-of-function return.
func (g *Generator) zeroValue(t types.Type) value.Value {
	return zeroValueOf(t)
}
