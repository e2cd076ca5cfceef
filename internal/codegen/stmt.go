package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/estevaofon/noxy/internal/ast"
)

// generateStmts lowers a statement list, honoring §4.5 If/While's
// unreachable-after-terminator rule: once a Return or Break has been
// generated, later sibling statements are skipped (their block is
// unreachable) and the caller is told the block already has a terminator.
func (g *Generator) generateStmts(stmts []ast.Stmt) (terminated bool, err error) {
	for i := range stmts {
		terminated, err = g.generateStmt(&stmts[i])
		if err != nil {
			return false, err
		}
		if terminated {
			return true, nil
		}
	}
	return false, nil
}

func (g *Generator) generateStmt(s *ast.Stmt) (bool, error) {
	switch s.Kind {
	case ast.StmtAssignment:
		return false, g.generateAssignment(s)
	case ast.StmtArrayAssignment:
		return false, g.generateArrayAssignment(s)
	case ast.StmtArrayFieldAssignment:
		return false, g.generateArrayFieldAssignment(s)
	case ast.StmtStructAssignment, ast.StmtNestedStructAssignment:
		return false, g.generateStructAssignment(s)
	case ast.StmtIf:
		return g.generateIf(s)
	case ast.StmtWhile:
		return g.generateWhile(s)
	case ast.StmtReturn:
		return g.generateReturn(s)
	case ast.StmtBreak:
		if len(g.loopEnds) == 0 {
			return false, fmt.Errorf("break outside loop")
		}
		g.builder.NewBr(g.loopEnds[len(g.loopEnds)-1])
		return true, nil
	case ast.StmtPrint:
		return false, g.generatePrint(s)
	case ast.StmtExpr:
		_, err := g.generateExpression(s.Value)
		return false, err
	case ast.StmtStructDef, ast.StmtFuncDef, ast.StmtUse:
		return false, nil
	default:
		return false, fmt.Errorf("unsupported statement kind %v", s.Kind)
	}
}

// generateAssignment implements §4.5's `Assignment` lowering: a declaration
// (DeclType set) allocates fresh storage; a reassignment stores into
// whichever of local/global storage `lookupVar` resolves (locals shadow
// globals). Global declarations were already given zero-initialized storage
// in Phase A, so a global `Assignment` here only stores its initial value.
func (g *Generator) generateAssignment(s *ast.Stmt) error {
	val, err := g.generateExpression(s.Value)
	if err != nil {
		return err
	}

	// A sized-array value is the address of its [n]T storage; storing it
	// into an existing sized array's [n]T storage copies the whole aggregate.
	if s.IsGlobal || s.DeclType == nil {
		t, ok := g.globalTypes[s.Target]
		if !s.IsGlobal {
			_, t, ok = g.lookupVar(s.Target)
		}
		if ok && t.Kind == ast.TArray && t.Size != nil {
			lt, err := g.convertType(t)
			if err != nil {
				return err
			}
			val = g.builder.NewLoad(lt, val)
		}
	}

	if s.IsGlobal {
		gv, ok := g.globals[s.Target]
		if !ok {
			return fmt.Errorf("global %q was not declared", s.Target)
		}
		g.builder.NewStore(val, gv)
		return nil
	}

	if s.DeclType != nil {
		return g.declareLocal(s.Target, *s.DeclType, val)
	}

	ptr, _, ok := g.lookupVar(s.Target)
	if !ok {
		return fmt.Errorf("undefined variable %q", s.Target)
	}
	g.builder.NewStore(val, ptr)
	return nil
}

// generateArrayAssignment lowers `base[index] = value` (§4.5
// ArrayAssignment).
func (g *Generator) generateArrayAssignment(s *ast.Stmt) error {
	basePtr, baseType, ok := g.lookupVar(s.Target)
	if !ok {
		return fmt.Errorf("undefined variable %q", s.Target)
	}
	idx, err := g.generateExpression(s.Index)
	if err != nil {
		return err
	}
	elemPtr, _, err := g.arrayElementPointer(basePtr, baseType, idx)
	if err != nil {
		return err
	}
	val, err := g.generateExpression(s.Value)
	if err != nil {
		return err
	}
	g.builder.NewStore(val, elemPtr)
	return nil
}

// generateArrayFieldAssignment lowers `base[index].path... = value` (§4.5
// ArrayFieldAssignment): compute the indexed element's struct pointer, then
// walk FieldPath to the final field.
func (g *Generator) generateArrayFieldAssignment(s *ast.Stmt) error {
	basePtr, baseType, ok := g.lookupVar(s.Target)
	if !ok {
		return fmt.Errorf("undefined variable %q", s.Target)
	}
	idx, err := g.generateExpression(s.Index)
	if err != nil {
		return err
	}
	elemPtr, elemType, err := g.arrayElementPointer(basePtr, baseType, idx)
	if err != nil {
		return err
	}
	_, structName, err := g.structInfoFor(elemType)
	if err != nil {
		return err
	}
	fieldPtr, _, err := g.walkFieldPath(elemPtr, structName, s.FieldPath)
	if err != nil {
		return err
	}
	val, err := g.generateExpression(s.Value)
	if err != nil {
		return err
	}
	g.builder.NewStore(val, fieldPtr)
	return nil
}

// generateStructAssignment lowers both `base.path = value` and its
// multi-segment (Nested) form identically (§4.5 StructAssignment /
// NestedStructAssignment): both are a single walk down FieldPath ending in a
// store. The source's reference-to-struct-intermediate phi-merge (malloc a
// fresh struct when an intermediate reference is null) is a corner this
// implementation does not special-case: an intermediate reference is
// expected to already point at storage, matching every construction path in
// this generator (StructConstructor always mallocs before a reference can
// be taken).
func (g *Generator) generateStructAssignment(s *ast.Stmt) error {
	basePtr, baseType, ok := g.lookupVar(s.Target)
	if !ok {
		return fmt.Errorf("undefined variable %q", s.Target)
	}
	_, structName, err := g.structInfoFor(baseType)
	if err != nil {
		return err
	}
	fieldPtr, _, err := g.walkFieldPath(basePtr, structName, s.FieldPath)
	if err != nil {
		return err
	}
	val, err := g.generateExpression(s.Value)
	if err != nil {
		return err
	}
	g.builder.NewStore(val, fieldPtr)
	return nil
}

// generateIf lowers If/else with standard then/else/end blocks (§4.5).
func (g *Generator) generateIf(s *ast.Stmt) (bool, error) {
	cond, err := g.generateExpression(s.Cond)
	if err != nil {
		return false, err
	}
	fn := g.builder.Parent
	thenBlock := fn.NewBlock("if.then")
	elseBlock := fn.NewBlock("if.else")
	endBlock := fn.NewBlock("if.end")
	g.builder.NewCondBr(cond, thenBlock, elseBlock)

	g.builder = thenBlock
	thenTerm, err := g.generateStmts(s.Then)
	if err != nil {
		return false, err
	}
	if !thenTerm {
		g.builder.NewBr(endBlock)
	}

	g.builder = elseBlock
	elseTerm, err := g.generateStmts(s.Else)
	if err != nil {
		return false, err
	}
	if !elseTerm {
		g.builder.NewBr(endBlock)
	}

	if thenTerm && elseTerm {
		endBlock.NewUnreachable()
		return true, nil
	}
	g.builder = endBlock
	return false, nil
}

// generateWhile lowers While/Break with standard cond/body/end blocks
// (§4.5), pushing endBlock onto the loop-end stack so a nested Break targets
// it.
func (g *Generator) generateWhile(s *ast.Stmt) (bool, error) {
	fn := g.builder.Parent
	condBlock := fn.NewBlock("while.cond")
	bodyBlock := fn.NewBlock("while.body")
	endBlock := fn.NewBlock("while.end")

	g.builder.NewBr(condBlock)
	g.builder = condBlock
	cond, err := g.generateExpression(s.Cond)
	if err != nil {
		return false, err
	}
	g.builder.NewCondBr(cond, bodyBlock, endBlock)

	g.builder = bodyBlock
	g.loopEnds = append(g.loopEnds, endBlock)
	bodyTerm, err := g.generateStmts(s.Body)
	g.loopEnds = g.loopEnds[:len(g.loopEnds)-1]
	if err != nil {
		return false, err
	}
	if !bodyTerm {
		g.builder.NewBr(condBlock)
	}

	g.builder = endBlock
	return false, nil
}

// generateReturn lowers Return per declared function return type. A
// top-level `return` (no enclosing function; no earlier stage rejects one)
// is ignored, and generation goes on with the next statement.
func (g *Generator) generateReturn(s *ast.Stmt) (bool, error) {
	if g.currentFunc == nil {
		return false, nil
	}
	if s.Value == nil {
		g.builder.NewRet(nil)
		return true, nil
	}
	val, err := g.generateExpression(s.Value)
	if err != nil {
		return false, err
	}
	g.builder.NewRet(val)
	return true, nil
}

// generatePrint lowers Print by dispatching on the printed expression's
// static type (§4.5 Print lowering): ints/floats/strings/bools/identifier
// arrays each get their own printf format, via the printf external and the
// casting shim for arrays.
func (g *Generator) generatePrint(s *ast.Stmt) error {
	t := g.inferExprType(s.Value)
	printf := g.registry.Get("printf")

	if t.Kind == ast.TArray {
		return g.printArray(s.Value, t)
	}

	val, err := g.generateExpression(s.Value)
	if err != nil {
		return err
	}
	switch t.Kind {
	case ast.TInt:
		fmtStr := g.newStringConstant(g.builder, "%lld\n")
		g.builder.NewCall(printf, fmtStr, val)
	case ast.TFloat:
		fmtStr := g.newStringConstant(g.builder, "%f\n")
		g.builder.NewCall(printf, fmtStr, val)
	case ast.TBool:
		trueStr := g.newStringConstant(g.builder, "true")
		falseStr := g.newStringConstant(g.builder, "false")
		chosen := g.builder.NewSelect(val, trueStr, falseStr)
		fmtStr := g.newStringConstant(g.builder, "%s\n")
		g.builder.NewCall(printf, fmtStr, chosen)
	default:
		fmtStr := g.newStringConstant(g.builder, "%s\n")
		g.builder.NewCall(printf, fmtStr, val)
	}
	return nil
}

// printArray renders `[e1, e2, …]` via the casting shim's array_to_str_*
// helpers (§4.5 Print: "dispatch to the array printer"). It needs the
// array's raw pointer and static length, so — unlike every other Print
// branch — it resolves the printed expression as an lvalue rather than
// going through the ordinary load path; non-identifier array expressions
// (e.g. printing a literal array inline) fall back to a placeholder, a
// documented narrowing of the general case this generator does not cover.
func (g *Generator) printArray(e *ast.Expr, t ast.Type) error {
	printf := g.registry.Get("printf")
	if e.Kind != ast.ExprIdentifier {
		fmtStr := g.newStringConstant(g.builder, "%s\n")
		placeholder := g.newStringConstant(g.builder, "[array]")
		g.builder.NewCall(printf, fmtStr, placeholder)
		return nil
	}
	ptr, vt, ok := g.lookupVar(e.Name)
	if !ok {
		return fmt.Errorf("undefined variable %q", e.Name)
	}
	if vt.Kind != ast.TArray || vt.Size == nil {
		fmtStr := g.newStringConstant(g.builder, "%s\n")
		placeholder := g.newStringConstant(g.builder, "[array]")
		g.builder.NewCall(printf, fmtStr, placeholder)
		return nil
	}
	n := int64(*vt.Size)
	i8ptr := g.builder.NewBitCast(ptr, types.I8Ptr)

	var shimName string
	switch vt.Elem.Kind {
	case ast.TInt:
		shimName = "array_to_str_int"
	case ast.TFloat:
		shimName = "array_to_str_float"
	default:
		fmtStr := g.newStringConstant(g.builder, "%s\n")
		placeholder := g.newStringConstant(g.builder, "[array]")
		g.builder.NewCall(printf, fmtStr, placeholder)
		return nil
	}
	shim := g.registry.Get(shimName)
	str := g.builder.NewCall(shim, i8ptr, constant.NewInt(types.I64, n))
	fmtStr := g.newStringConstant(g.builder, "%s\n")
	g.builder.NewCall(printf, fmtStr, str)
	return nil
}
