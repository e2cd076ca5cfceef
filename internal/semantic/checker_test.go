package semantic

import (
	"testing"

	"github.com/estevaofon/noxy/internal/parser"
)

func checkSrc(t *testing.T, src string) error {
	t.Helper()
	prog, perr := parser.Parse("test.nx", src)
	if perr != nil {
		t.Fatalf("unexpected parse error: %v", perr)
	}
	if err := New(src).Check(prog); err != nil {
		return err
	}
	return nil
}

func TestCheckVoidFunctionWithValueIsError(t *testing.T) {
	err := checkSrc(t, "func f() -> void return 1 end")
	if err == nil {
		t.Fatal("expected error: void function returning a value")
	}
}

func TestCheckNonVoidFunctionBareReturnIsError(t *testing.T) {
	err := checkSrc(t, "func f() -> int return end")
	if err == nil {
		t.Fatal("expected error: non-void function with bare return")
	}
}

func TestCheckValidReturnsPass(t *testing.T) {
	if err := checkSrc(t, "func f() -> int return 1 end"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := checkSrc(t, "func g() -> void print(1) return end"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckReturnInsideIf(t *testing.T) {
	src := "func f() -> void if true then return 1 end end"
	err := checkSrc(t, src)
	if err == nil {
		t.Fatal("expected error: return with value nested inside if, in a void function")
	}
}

func TestCheckFStringValid(t *testing.T) {
	if err := checkSrc(t, `print(f"x={x}")`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckDuplicateStructNameIsError(t *testing.T) {
	src := "struct Point x: int end\nstruct Point y: int end\nprint(1)"
	if err := checkSrc(t, src); err == nil {
		t.Fatal("expected error: duplicate struct name")
	}
}

func TestCheckDuplicateFunctionNameIsError(t *testing.T) {
	src := "func f() -> int return 1 end\nfunc f() -> int return 2 end"
	if err := checkSrc(t, src); err == nil {
		t.Fatal("expected error: duplicate function name")
	}
}

func TestCheckUndefinedStructFieldTypeIsError(t *testing.T) {
	src := "struct Box inner: Missing end\nprint(1)"
	if err := checkSrc(t, src); err == nil {
		t.Fatal("expected error: undefined struct type referenced by a field")
	}
}

func TestCheckStructFieldReferenceThroughArrayAndRefIsValid(t *testing.T) {
	src := "struct Point x: int end\nstruct Path pts: Point[3] end\nstruct Node next: ref Point end\nprint(1)"
	if err := checkSrc(t, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInferTypeHeuristics(t *testing.T) {
	prog, perr := parser.Parse("test.nx", "print(1)\nprint(1.5)\nprint(\"s\")\nprint(true)\nprint(count)\nprint(name)\nprint(found)")
	if perr != nil {
		t.Fatalf("unexpected parse error: %v", perr)
	}
	want := []string{"int", "float", "string", "bool", "int", "string", "bool"}
	for i, s := range prog.Statements {
		got := inferType(s.Value)
		if got != want[i] {
			t.Errorf("statement %d: got %q, want %q", i, got, want[i])
		}
	}
}
