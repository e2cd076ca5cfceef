package stdlib

import (
	"testing"

	"github.com/llir/llvm/ir"
)

func TestRegistryDeclaresLibcAndCastingShim(t *testing.T) {
	m := ir.NewModule()
	r := New(m)

	for _, name := range []string{
		"printf", "sprintf", "malloc", "free", "strlen", "strcpy", "strcat", "strcmp", "fmod",
		"to_str_int", "to_str_float", "array_to_str_int", "array_to_str_float",
		"to_int", "to_float", "char_to_str",
	} {
		if r.Get(name) == nil {
			t.Errorf("expected %q to be declared", name)
		}
	}
}

func TestRegistryVariadicSignatures(t *testing.T) {
	m := ir.NewModule()
	r := New(m)

	if !r.Get("printf").Sig.Variadic {
		t.Error("printf should be variadic")
	}
	if !r.Get("sprintf").Sig.Variadic {
		t.Error("sprintf should be variadic")
	}
	if r.Get("malloc").Sig.Variadic {
		t.Error("malloc should not be variadic")
	}
}

func TestRegistryWindowsConsoleIsOptIn(t *testing.T) {
	m := ir.NewModule()
	r := New(m)
	if r.Get("wprintf") != nil {
		t.Fatal("wprintf should not be declared unless DeclareWindowsConsole is called")
	}
	r.DeclareWindowsConsole()
	if r.Get("wprintf") == nil || r.Get("_setmode") == nil || r.Get("SetConsoleOutputCP") == nil {
		t.Fatal("expected Windows console symbols after DeclareWindowsConsole")
	}
}
