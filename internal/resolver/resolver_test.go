package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/estevaofon/noxy/internal/ast"
)

func writeModule(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".nx"), []byte(src), 0o644); err != nil {
		t.Fatalf("writeModule: %v", err)
	}
}

func TestResolveBareNamespace(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "geom", "func area(w: int, h: int) -> int return w * h end\nlet pi: float = 3.14")
	r := New(dir)
	use := &ast.Use{Module: "geom"}
	bindings, err := r.Resolve(use)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := bindings["geom.area"]; !ok {
		t.Fatalf("expected geom.area binding, got %+v", bindings)
	}
	if _, ok := bindings["geom.pi"]; !ok {
		t.Fatalf("expected geom.pi binding, got %+v", bindings)
	}
}

func TestResolveSelectStar(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "geom2", "func area(w: int, h: int) -> int return w * h end")
	r := New(dir)
	use := &ast.Use{Module: "geom2", ImportAll: true}
	bindings, err := r.Resolve(use)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := bindings["area"]; !ok {
		t.Fatalf("expected bare 'area' binding, got %+v", bindings)
	}
}

func TestResolveSelectedClosure(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "mathx", `
func square(n: int) -> int return n * helper(n) end
func helper(n: int) -> int return n end
func unrelated() -> int return 1 end
`)
	r := New(dir)
	use := &ast.Use{Module: "mathx", Selected: []string{"square"}}
	bindings, err := r.Resolve(use)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := bindings["square"]; !ok {
		t.Fatalf("expected 'square' in closure, got %+v", bindings)
	}
	if _, ok := bindings["helper"]; !ok {
		t.Fatalf("expected transitively-referenced 'helper' in closure, got %+v", bindings)
	}
	if _, ok := bindings["unrelated"]; ok {
		t.Fatalf("'unrelated' should not be pulled into the closure, got %+v", bindings)
	}
}

func TestResolveSelectedClosureExcludesBuiltinsAndParams(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "strs", `
func greet(name: string) -> string return printf(name) end
`)
	r := New(dir)
	use := &ast.Use{Module: "strs", Selected: []string{"greet"}}
	bindings, err := r.Resolve(use)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bindings) != 1 {
		t.Fatalf("expected only 'greet' (printf built-in and 'name' param excluded), got %+v", bindings)
	}
}

func TestResolveMissingModule(t *testing.T) {
	r := New(t.TempDir())
	use := &ast.Use{Module: "nope"}
	_, err := r.Resolve(use)
	if err == nil {
		t.Fatal("expected error locating missing module")
	}
}

func TestResolveMissingSymbol(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "m3", "func f() -> int return 1 end")
	r := New(dir)
	use := &ast.Use{Module: "m3", Selected: []string{"doesNotExist"}}
	_, err := r.Resolve(use)
	if err == nil {
		t.Fatal("expected error for unexported symbol")
	}
}

func TestResolveDottedModulePath(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a", "b", "c.nx"), []byte("func f() -> int return 1 end"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := New(dir)
	use := &ast.Use{Module: "a.b.c"}
	bindings, err := r.Resolve(use)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := bindings["a.b.c.f"]; !ok {
		t.Fatalf("got %+v", bindings)
	}
}

func TestResolveMemoizesModules(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "cached", "func f() -> int return 1 end")
	r := New(dir)
	m1, err := r.Load(&ast.Use{Module: "cached"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m2, err := r.Load(&ast.Use{Module: "cached"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m1 != m2 {
		t.Fatal("expected memoized module to be the same pointer across loads")
	}
}
