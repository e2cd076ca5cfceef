package interpreter

import (
	"testing"

	"github.com/estevaofon/noxy/internal/parser"
)

func runSrc(t *testing.T, src string) string {
	t.Helper()
	prog, perr := parser.Parse("test.nx", src)
	if perr != nil {
		t.Fatalf("unexpected parse error: %v", perr)
	}
	out, err := New().Run(prog, nil)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v (output so far: %q)", err, out)
	}
	return out
}

func TestRunArithmeticAndPrint(t *testing.T) {
	out := runSrc(t, "print(2 + 3 * 2)")
	if out != "8\n" {
		t.Fatalf("got %q, want %q", out, "8\n")
	}
}

func TestRunIfElse(t *testing.T) {
	src := "let x: int = 5\nif x > 3 then print(1) else print(0) end"
	if out := runSrc(t, src); out != "1\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRunWhileBreak(t *testing.T) {
	src := "let i: int = 0\nwhile true do\n" +
		"if i == 3 then break end\n" +
		"print(i)\n" +
		"i = i + 1\n" +
		"end"
	if out := runSrc(t, src); out != "0\n1\n2\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRunFunctionCallSeesGlobal(t *testing.T) {
	src := "let g: int = 41\n" +
		"func bump() -> int return g + 1 end\n" +
		"print(bump())"
	if out := runSrc(t, src); out != "42\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRunFunctionReturnsLocal(t *testing.T) {
	src := "func f() -> int let local: int = 9 return local end\n" +
		"print(f())"
	if out := runSrc(t, src); out != "9\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRunArrayLiteralAndAccess(t *testing.T) {
	src := "let xs: int[3] = [10, 20, 30]\nprint(xs[1])"
	if out := runSrc(t, src); out != "20\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRunArrayAssignment(t *testing.T) {
	src := "let xs: int[3] = zeros(3)\nxs[0] = 7\nprint(xs[0])"
	if out := runSrc(t, src); out != "7\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRunStructConstructorAndFieldAccess(t *testing.T) {
	src := "struct Point x: int, y: int end\n" +
		"let p: Point = Point(1, 2)\n" +
		"print(p.x)\nprint(p.y)"
	if out := runSrc(t, src); out != "1\n2\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRunStructFieldAssignment(t *testing.T) {
	src := "struct Point x: int, y: int end\n" +
		"let p: Point = Point(1, 2)\n" +
		"p.x = 99\n" +
		"print(p.x)"
	if out := runSrc(t, src); out != "99\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRunStructAliasingSharesStorage(t *testing.T) {
	src := "struct Point x: int, y: int end\n" +
		"let p: Point = Point(1, 2)\n" +
		"let q: Point = p\n" +
		"q.x = 55\n" +
		"print(p.x)"
	if out := runSrc(t, src); out != "55\n" {
		t.Fatalf("got %q, want aliasing to share storage", out)
	}
}

func TestRunTakingReferenceLeavesOriginalIntact(t *testing.T) {
	src := "let x: int = 1\nlet r: ref int = ref x\nprint(x)"
	if out := runSrc(t, src); out != "1\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRunFString(t *testing.T) {
	src := "let x: int = 5\nprint(f\"x={x}\")"
	if out := runSrc(t, src); out != "x=5\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRunConcat(t *testing.T) {
	src := `print("foo" + "bar")`
	if out := runSrc(t, src); out != "foobar\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRunCastIntToFloat(t *testing.T) {
	src := "let x: int = 3\nlet y: float = x as float\nprint(y)"
	out := runSrc(t, src)
	if out != "3\n" && out != "3.0\n" && out != "3.000000\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRunBuiltinToStrPolymorphicDispatch(t *testing.T) {
	src := "let x: int = 7\nprint(to_str(x))"
	if out := runSrc(t, src); out != "7\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRunMismatchedStringOperandIsError(t *testing.T) {
	prog, perr := parser.Parse("test.nx", `let x: int = 1
print(x + "s")`)
	if perr != nil {
		t.Fatalf("unexpected parse error: %v", perr)
	}
	if _, err := New().Run(prog, nil); err == nil {
		t.Fatal("expected a runtime error for `+` with one string and one non-string operand")
	}
}

func TestRunBreakOutsideLoopIsParseError(t *testing.T) {
	if _, err := parser.Parse("test.nx", "break"); err == nil {
		t.Fatal("expected parse error for break outside loop")
	}
}
