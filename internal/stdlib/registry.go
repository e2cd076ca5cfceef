// Package stdlib declares the external C runtime and Noxy casting-shim
// symbols the generated LLVM IR module expects to be linked against (§6
// "LLVM IR module layout"). The functions themselves — libc, and Noxy's
// small casting_functions shim — are external collaborators, not
// respecified; only their signatures are.
package stdlib

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// Registry holds the external function declarations for one module,
// grounded on the teacher's external-symbol registration pattern
// (declareGCFunctions/declareBuiltinFunctions): one module.NewFunc call per
// symbol, collected in a name-keyed map the generator looks up by name.
type Registry struct {
	module *ir.Module
	funcs  map[string]*ir.Func
}

// New declares every symbol of §6's table against module and returns the
// populated Registry.
func New(module *ir.Module) *Registry {
	r := &Registry{module: module, funcs: make(map[string]*ir.Func)}
	r.declareLibc()
	r.declareCastingShim()
	return r
}

// Get looks up a previously declared external function by name.
func (r *Registry) Get(name string) *ir.Func { return r.funcs[name] }

func (r *Registry) declare(name string, ret types.Type, params ...*ir.Param) *ir.Func {
	fn := r.module.NewFunc(name, ret, params...)
	r.funcs[name] = fn
	return fn
}

func (r *Registry) declareLibc() {
	i8ptr := types.I8Ptr

	printfFunc := r.declare("printf", types.I32, ir.NewParam("", i8ptr))
	printfFunc.Sig.Variadic = true

	sprintfFunc := r.declare("sprintf", types.I32, ir.NewParam("", i8ptr), ir.NewParam("", i8ptr))
	sprintfFunc.Sig.Variadic = true

	r.declare("malloc", i8ptr, ir.NewParam("", types.I64))
	r.declare("free", types.Void, ir.NewParam("", i8ptr))
	r.declare("strlen", types.I64, ir.NewParam("", i8ptr))
	r.declare("strcpy", i8ptr, ir.NewParam("", i8ptr), ir.NewParam("", i8ptr))
	r.declare("strcat", i8ptr, ir.NewParam("", i8ptr), ir.NewParam("", i8ptr))
	r.declare("strcmp", types.I32, ir.NewParam("", i8ptr), ir.NewParam("", i8ptr))
	r.declare("fmod", types.Double, ir.NewParam("", types.Double), ir.NewParam("", types.Double))
}

// declareCastingShim declares Noxy's small casting_functions runtime shim
// (§6): value-to-string and parse conversions used by Print, Cast, and
// FString lowerings.
func (r *Registry) declareCastingShim() {
	i8ptr := types.I8Ptr

	r.declare("to_str_int", i8ptr, ir.NewParam("", types.I64))
	r.declare("to_str_float", i8ptr, ir.NewParam("", types.Double))
	r.declare("array_to_str_int", i8ptr, ir.NewParam("", i8ptr), ir.NewParam("", types.I64))
	r.declare("array_to_str_float", i8ptr, ir.NewParam("", i8ptr), ir.NewParam("", types.I64))
	r.declare("to_int", types.I64, ir.NewParam("", i8ptr))
	r.declare("to_float", types.Double, ir.NewParam("", i8ptr))
	r.declare("char_to_str", i8ptr, ir.NewParam("", types.I8))
}

// DeclareWindowsConsole adds the Windows-only UTF-8 console setup symbols
// (§6). The code generator does not call it, so the modules it builds do
// not declare these symbols.
func (r *Registry) DeclareWindowsConsole() {
	wprintfFunc := r.declare("wprintf", types.I32, ir.NewParam("", types.NewPointer(types.I16)))
	wprintfFunc.Sig.Variadic = true
	r.declare("_setmode", types.I32, ir.NewParam("", types.I32), ir.NewParam("", types.I32))
	r.declare("SetConsoleOutputCP", types.I32, ir.NewParam("", types.I32))
}

// BuiltinNames are the casting/IO symbols the module resolver's transitive
// closure treats as always-available and never imports across modules (§4.3
// step 4, §4.4's built-in exclusion set).
var BuiltinNames = []string{
	"printf", "malloc", "free", "strlen", "strcpy", "strcat",
	"to_str", "array_to_str", "to_int", "to_float", "ord", "length", "print",
}
