package parser

import (
	"testing"

	"github.com/estevaofon/noxy/internal/ast"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := Parse("test.nx", src)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return prog
}

func TestParseLetGlobalDepth(t *testing.T) {
	prog := mustParse(t, "let a: int = 1\nfunc f() -> void let b: int = 2 end")
	if len(prog.Statements) != 2 {
		t.Fatalf("got %d top-level statements, want 2", len(prog.Statements))
	}
	top := prog.Statements[0]
	if top.Kind != ast.StmtAssignment || !top.IsGlobal {
		t.Fatalf("top-level let should be global: %+v", top)
	}
	fn := prog.Statements[1].FuncDef
	inner := fn.Body[0]
	if inner.IsGlobal {
		t.Fatalf("let inside func body should not be global: %+v", inner)
	}
}

func TestParseArithmeticPrecedence(t *testing.T) {
	prog := mustParse(t, "print(2 + 3 * 2)")
	print := prog.Statements[0]
	expr := print.Value
	if expr.Kind != ast.ExprBinaryOp || expr.Op != "+" {
		t.Fatalf("expected top-level '+', got %+v", expr)
	}
	if expr.Right.Kind != ast.ExprBinaryOp || expr.Right.Op != "*" {
		t.Fatalf("expected '*' nested on the right of '+', got %+v", expr.Right)
	}
}

func TestParseRepeatPlusNormalizesToPlus(t *testing.T) {
	prog := mustParse(t, "print(1 ++ 2)")
	expr := prog.Statements[0].Value
	if expr.Kind != ast.ExprBinaryOp || expr.Op != "+" {
		t.Fatalf("++ should normalize to +, got %+v", expr)
	}
}

func TestParseArrayAssignment(t *testing.T) {
	prog := mustParse(t, "arr[0] = 5")
	stmt := prog.Statements[0]
	if stmt.Kind != ast.StmtArrayAssignment || stmt.Target != "arr" {
		t.Fatalf("got %+v", stmt)
	}
}

func TestParseArrayFieldAssignment(t *testing.T) {
	prog := mustParse(t, "arr[0].x = 5")
	stmt := prog.Statements[0]
	if stmt.Kind != ast.StmtArrayFieldAssignment || stmt.Target != "arr" {
		t.Fatalf("got %+v", stmt)
	}
	if len(stmt.FieldPath) != 1 || stmt.FieldPath[0] != "x" {
		t.Fatalf("got field path %+v", stmt.FieldPath)
	}
}

func TestParseStructAssignmentNested(t *testing.T) {
	prog := mustParse(t, "p.inner.x = 5")
	stmt := prog.Statements[0]
	if stmt.Kind != ast.StmtNestedStructAssignment {
		t.Fatalf("expected nested struct assignment, got %+v", stmt)
	}
	if len(stmt.FieldPath) != 2 {
		t.Fatalf("got field path %+v", stmt.FieldPath)
	}
}

func TestParseStructConstructorVsCall(t *testing.T) {
	prog := mustParse(t, "struct Point x: int, y: int end\nlet p: Point = Point(1, 2)\nlet n: int = helper(3)")
	letP := prog.Statements[1]
	if letP.Value.Kind != ast.ExprStructConstructor {
		t.Fatalf("expected StructConstructor for declared struct name, got %+v", letP.Value)
	}
	letN := prog.Statements[2]
	if letN.Value.Kind != ast.ExprCall {
		t.Fatalf("expected Call for undeclared name, got %+v", letN.Value)
	}
}

func TestParseMethodLikeCall(t *testing.T) {
	prog := mustParse(t, "p.distance(origin)")
	stmt := prog.Statements[0]
	if stmt.Kind != ast.StmtExpr || stmt.Value.Kind != ast.ExprCall {
		t.Fatalf("got %+v", stmt)
	}
	if stmt.Value.Name != "p.distance" {
		t.Fatalf("expected qualified call name 'p.distance', got %q", stmt.Value.Name)
	}
}

func TestParseStructAccessDottedChain(t *testing.T) {
	prog := mustParse(t, "print(p.x)")
	expr := prog.Statements[0].Value
	if expr.Kind != ast.ExprStructAccess || expr.Name != "p" || len(expr.FieldPath) != 1 || expr.FieldPath[0] != "x" {
		t.Fatalf("got %+v", expr)
	}
}

func TestParseNamespacedIdentifier(t *testing.T) {
	prog := mustParse(t, "use utils\nprint(utils.helper)")
	expr := prog.Statements[1].Value
	if expr.Kind != ast.ExprIdentifier || expr.Name != "utils.helper" {
		t.Fatalf("expected namespaced identifier, got %+v", expr)
	}
}

func TestParseUseSelectForms(t *testing.T) {
	prog := mustParse(t, "use math select sqrt, pow\nuse geo select *")
	u1 := prog.Statements[0].UseDecl
	if u1.Module != "math" || len(u1.Selected) != 2 || u1.ImportAll {
		t.Fatalf("got %+v", u1)
	}
	u2 := prog.Statements[1].UseDecl
	if u2.Module != "geo" || !u2.ImportAll {
		t.Fatalf("got %+v", u2)
	}
}

func TestParseArrayAccessFromStruct(t *testing.T) {
	prog := mustParse(t, "print(arr[i].x)")
	expr := prog.Statements[0].Value
	if expr.Kind != ast.ExprStructAccessFromArray {
		t.Fatalf("got %+v", expr)
	}
	if expr.Base.Kind != ast.ExprArrayAccess || expr.Base.Name != "arr" {
		t.Fatalf("got base %+v", expr.Base)
	}
}

func TestParseIfWhileBreak(t *testing.T) {
	prog := mustParse(t, "while true do if true then break end end")
	w := prog.Statements[0]
	if w.Kind != ast.StmtWhile {
		t.Fatalf("got %+v", w)
	}
	inner := w.Body[0]
	if inner.Kind != ast.StmtIf {
		t.Fatalf("got %+v", inner)
	}
	if inner.Then[0].Kind != ast.StmtBreak {
		t.Fatalf("got %+v", inner.Then[0])
	}
}

func TestParseBreakOutsideLoopIsError(t *testing.T) {
	_, err := Parse("test.nx", "break")
	if err == nil {
		t.Fatal("expected semantic error for break outside loop")
	}
}

func TestParseReferenceAndUnary(t *testing.T) {
	prog := mustParse(t, "let r: ref int = ref x\nlet n: int = -1\nlet b: bool = !true")
	r := prog.Statements[0]
	if r.DeclType.Kind != ast.TReference {
		t.Fatalf("got %+v", r.DeclType)
	}
	if r.Value.Kind != ast.ExprReference {
		t.Fatalf("got %+v", r.Value)
	}
	n := prog.Statements[1]
	if n.Value.Kind != ast.ExprUnaryOp || n.Value.Op != "-" {
		t.Fatalf("got %+v", n.Value)
	}
	b := prog.Statements[2]
	if b.Value.Kind != ast.ExprUnaryOp || b.Value.Op != "!" {
		t.Fatalf("got %+v", b.Value)
	}
}

func TestParseArrayTypeAndLiteral(t *testing.T) {
	prog := mustParse(t, "let xs: int[3] = [1, 2, 3]")
	s := prog.Statements[0]
	if s.DeclType.Kind != ast.TArray || s.DeclType.Size == nil || *s.DeclType.Size != 3 {
		t.Fatalf("got %+v", s.DeclType)
	}
	if s.Value.Kind != ast.ExprArray || len(s.Value.Elements) != 3 {
		t.Fatalf("got %+v", s.Value)
	}
}

func TestParseZeros(t *testing.T) {
	prog := mustParse(t, "let xs: int[5] = zeros(5)")
	s := prog.Statements[0]
	if s.Value.Kind != ast.ExprZeros {
		t.Fatalf("got %+v", s.Value)
	}
}

func TestParseFunctionSignature(t *testing.T) {
	prog := mustParse(t, "func add(a: int, b: int) -> int return a + b end")
	fn := prog.Statements[0].FuncDef
	if fn.Name != "add" || len(fn.Params) != 2 || fn.Return.Kind != ast.TInt {
		t.Fatalf("got %+v", fn)
	}
}

func TestParseFString(t *testing.T) {
	prog := mustParse(t, `print(f"x={x}")`)
	expr := prog.Statements[0].Value
	if expr.Kind != ast.ExprFString || len(expr.FString) != 2 {
		t.Fatalf("got %+v", expr)
	}
	if expr.FString[0].Literal != "x=" {
		t.Fatalf("got literal part %+v", expr.FString[0])
	}
	sub := expr.FString[1].Expr
	if sub == nil || sub.Kind != ast.ExprIdentifier || sub.Name != "x" {
		t.Fatalf("got expr part %+v", expr.FString[1])
	}
	// Sub-expression location propagates to the outer f-string token (§4.2).
	if sub.Pos != expr.Pos {
		t.Fatalf("sub-expression position %+v should match outer %+v", sub.Pos, expr.Pos)
	}
}

func TestParseFStringWithFormatSpec(t *testing.T) {
	prog := mustParse(t, `print(f"{y:.2f}")`)
	expr := prog.Statements[0].Value
	if len(expr.FString) != 1 {
		t.Fatalf("got %+v", expr.FString)
	}
	if expr.FString[0].Spec != ".2f" || !expr.FString[0].HasSpec {
		t.Fatalf("got %+v", expr.FString[0])
	}
}

func TestParseStructDefinition(t *testing.T) {
	prog := mustParse(t, "struct Point x: int, y: int end")
	def := prog.Statements[0].StructDef
	if def.Name != "Point" || len(def.Fields) != 2 {
		t.Fatalf("got %+v", def)
	}
}

func TestParseLogicalAndOr(t *testing.T) {
	prog := mustParse(t, "print(a & b | c)")
	expr := prog.Statements[0].Value
	if expr.Kind != ast.ExprBinaryOp || expr.Op != "or" {
		t.Fatalf("expected top-level 'or', got %+v", expr)
	}
	if expr.Left.Kind != ast.ExprBinaryOp || expr.Left.Op != "and" {
		t.Fatalf("expected 'and' nested on the left, got %+v", expr.Left)
	}
}
