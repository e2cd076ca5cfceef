package compiler

import (
	"strings"
	"testing"
)

func TestCompileValidProgramProducesIR(t *testing.T) {
	mod, derr := New(Options{}).Compile("test.nx", "print(1 + 2)")
	if derr != nil {
		t.Fatalf("unexpected diagnostic: %v", derr)
	}
	if !strings.Contains(mod.String(), "define i32 @main()") {
		t.Fatalf("expected generated IR to contain main, got:\n%s", mod.String())
	}
}

func TestCompileSyntaxErrorStopsBeforeCodegen(t *testing.T) {
	_, derr := New(Options{}).Compile("test.nx", "let x: int =")
	if derr == nil {
		t.Fatal("expected a parse-stage diagnostic")
	}
}

func TestCompileSemanticErrorStopsBeforeCodegen(t *testing.T) {
	_, derr := New(Options{}).Compile("test.nx", "func f() -> void return 1 end")
	if derr == nil {
		t.Fatal("expected a semantic-stage diagnostic for a void function returning a value")
	}
}

func TestCompileDebugIRMatchesCompileOnSuccess(t *testing.T) {
	c := New(Options{})
	mod, derr := c.Compile("test.nx", "print(42)")
	if derr != nil {
		t.Fatalf("unexpected diagnostic: %v", derr)
	}
	debugMod, debugErr := c.CompileDebugIR("test.nx", "print(42)")
	if debugErr != nil {
		t.Fatalf("unexpected diagnostic: %v", debugErr)
	}
	if mod.String() != debugMod.String() {
		t.Fatalf("Compile and CompileDebugIR diverged on a successful program")
	}
}

func TestCompileUnknownModuleUseIsDiagnostic(t *testing.T) {
	_, derr := New(Options{}).Compile("test.nx", "use nonexistent_module\nprint(1)")
	if derr == nil {
		t.Fatal("expected a resolver-stage diagnostic for an unresolvable module")
	}
}
