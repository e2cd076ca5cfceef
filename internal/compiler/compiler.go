// Package compiler wires the Noxy pipeline's stages — Lexer (invoked by the
// parser), Parser, Module Resolver, Semantic Checker, and Code Generator —
// into the single entry point cmd/noxyc calls, mirroring the teacher's
// cmd/alas-compile's straight-line "validate, parse, generate" sequence but
// adding the resolver/checker stages the teacher's JSON-IR pipeline has no
// equivalent of.
package compiler

import (
	"github.com/llir/llvm/ir"

	"github.com/estevaofon/noxy/internal/ast"
	"github.com/estevaofon/noxy/internal/codegen"
	"github.com/estevaofon/noxy/internal/diag"
	"github.com/estevaofon/noxy/internal/parser"
	"github.com/estevaofon/noxy/internal/resolver"
	"github.com/estevaofon/noxy/internal/semantic"
)

// Options configures one Compiler. ExtraRoots extends the resolver's module
// search path (§4.3 step 1) beyond the default `.`, `std/`, `noxy_examples/`.
type Options struct {
	ExtraRoots []string
}

// Compiler runs the full pipeline for one source file. It is a thin
// stateless orchestrator: every stage (parser, resolver, checker, codegen)
// already owns its own state, so Compiler carries only the resolver (which
// memoizes loaded modules across the `use` statements of a single
// compilation, per §4.3 step 5).
type Compiler struct {
	resolver *resolver.Resolver
}

// New returns a Compiler configured per opts.
func New(opts Options) *Compiler {
	return &Compiler{resolver: resolver.New(opts.ExtraRoots...)}
}

// Compile runs filename/src through every stage and returns the generated
// LLVM module, or the first Diagnostic any stage raises (§7's
// single-error-wins failure semantics: parsing, resolution, checking and
// codegen each stop the pipeline on their first error).
func (c *Compiler) Compile(filename, src string) (*ir.Module, *diag.Diagnostic) {
	prog, perr := parser.Parse(filename, src)
	if perr != nil {
		return nil, perr
	}

	imports, rerr := c.resolveImports(prog)
	if rerr != nil {
		return nil, rerr
	}

	checker := semantic.New(src)
	if cerr := checker.Check(prog); cerr != nil {
		return nil, cerr
	}

	gen := codegen.New(src)
	mod, gerr := gen.Generate(prog, imports)
	if gerr != nil {
		return nil, gerr
	}
	return mod, nil
}

// CompileDebugIR runs the pipeline but always returns whatever IR the code
// generator managed to build: a semantic-checker Diagnostic does not stop
// code generation, and a Diagnostic raised inside Generate comes back with
// the partially lowered module — useful for inspecting a partially lowered
// module while debugging the generator itself. The checker's Diagnostic,
// when there is one, is the one returned. Parser/resolver failures still
// stop the pipeline, since there is no IR to show yet.
func (c *Compiler) CompileDebugIR(filename, src string) (*ir.Module, *diag.Diagnostic) {
	prog, perr := parser.Parse(filename, src)
	if perr != nil {
		return nil, perr
	}
	imports, rerr := c.resolveImports(prog)
	if rerr != nil {
		return nil, rerr
	}
	checker := semantic.New(src)
	cerr := checker.Check(prog)
	gen := codegen.New(src)
	mod, gerr := gen.Generate(prog, imports)
	if cerr != nil {
		return mod, cerr
	}
	return mod, gerr
}

// resolveImports walks prog's top-level `use` statements (§4.3 step 4) and
// resolves each to its binding set, keyed by module path, so the map holds
// one entry per distinct module — codegen.Generate itself only iterates the
// values. Two `use` statements for the same module (e.g. once namespaced,
// once selectively) do not merge: the later one's bindings replace the
// earlier one's (not a case §4.3 gives distinct semantics for).
func (c *Compiler) resolveImports(prog *ast.Program) (map[string]map[string]resolver.Binding, *diag.Diagnostic) {
	imports := make(map[string]map[string]resolver.Binding)
	for i := range prog.Statements {
		s := &prog.Statements[i]
		if s.Kind != ast.StmtUse {
			continue
		}
		bindings, err := c.resolver.Resolve(s.UseDecl)
		if err != nil {
			return nil, err
		}
		imports[s.UseDecl.Module] = bindings
	}
	return imports, nil
}
