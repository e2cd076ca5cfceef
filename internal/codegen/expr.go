package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/estevaofon/noxy/internal/ast"
)

// inferExprType resolves an expression's static Noxy type using the
// generator's declared variable/global/struct/function tables — unlike
// internal/semantic's name-heuristic inference (a diagnostic aid only),
// this drives real lowering decisions: which printf format to pick, which
// side of `+` needs string concatenation, which comparison needs strcmp.
func (g *Generator) inferExprType(e *ast.Expr) ast.Type {
	switch e.Kind {
	case ast.ExprNumber:
		return ast.Int()
	case ast.ExprFloat:
		return ast.Float()
	case ast.ExprString, ast.ExprFString:
		return ast.Str()
	case ast.ExprBool:
		return ast.Bool()
	case ast.ExprNull:
		return ast.Null()
	case ast.ExprIdentifier:
		if _, t, ok := g.lookupVar(e.Name); ok {
			return t
		}
		return ast.Null()
	case ast.ExprArray:
		elem := ast.Int()
		if e.ElemType != nil {
			elem = *e.ElemType
		} else if len(e.Elements) > 0 {
			elem = g.inferExprType(&e.Elements[0])
		}
		n := len(e.Elements)
		return ast.Array(elem, &n)
	case ast.ExprZeros:
		elem := ast.Int()
		if e.ElemType != nil {
			elem = *e.ElemType
		}
		if e.SizeExpr != nil && e.SizeExpr.Kind == ast.ExprNumber {
			n := int(e.SizeExpr.IntVal)
			return ast.Array(elem, &n)
		}
		return ast.Array(elem, nil)
	case ast.ExprArrayAccess:
		if _, t, ok := g.lookupVar(e.Name); ok && t.Kind == ast.TArray {
			return *t.Elem
		}
		return ast.Int()
	case ast.ExprStringCharAccess:
		return ast.Str()
	case ast.ExprStructAccess:
		baseType := g.inferExprType(e.Base)
		return g.fieldChainType(baseType, e.FieldPath)
	case ast.ExprStructAccessFromArray:
		var elemType ast.Type
		if e.Base != nil {
			if _, t, ok := g.lookupVar(e.Base.Name); ok && t.Kind == ast.TArray {
				elemType = *t.Elem
			}
		}
		return g.fieldChainType(elemType, e.FieldPath)
	case ast.ExprBinaryOp:
		return g.binaryOpType(e)
	case ast.ExprUnaryOp:
		if e.Op == "!" {
			return ast.Bool()
		}
		return g.inferExprType(e.Operand)
	case ast.ExprCast:
		if e.TargetType != nil {
			return *e.TargetType
		}
		return ast.Int()
	case ast.ExprConcat:
		return ast.Str()
	case ast.ExprReference:
		return ast.Ref(g.inferExprType(e.Operand), true)
	case ast.ExprCall:
		if fn, ok := g.astFuncs[e.Name]; ok {
			return fn.Return
		}
		return builtinReturnType(e.Name)
	case ast.ExprStructConstructor:
		return ast.Struct(e.Name)
	default:
		return ast.Int()
	}
}

func builtinReturnType(name string) ast.Type {
	switch name {
	case "to_str", "array_to_str":
		return ast.Str()
	case "to_int", "ord", "length", "strlen":
		return ast.Int()
	case "to_float":
		return ast.Float()
	default:
		return ast.Void()
	}
}

// fieldChainType walks FieldPath over the struct table's field-type maps,
// mirroring walkFieldPath's descent logic but on types only (no IR), for
// use by inferExprType.
func (g *Generator) fieldChainType(baseType ast.Type, path []string) ast.Type {
	_, name, err := g.structInfoFor(baseType)
	if err != nil {
		return ast.Int()
	}
	for i, field := range path {
		info, ok := g.structs[name]
		if !ok {
			return ast.Int()
		}
		ft, ok := info.fieldType[field]
		if !ok {
			return ast.Int()
		}
		if i == len(path)-1 {
			return ft
		}
		switch {
		case ft.Kind == ast.TStruct:
			name = ft.StructName
		case ft.Kind == ast.TReference && ft.Target.Kind == ast.TStruct:
			name = ft.Target.StructName
		default:
			return ast.Int()
		}
	}
	return ast.Int()
}

func (g *Generator) binaryOpType(e *ast.Expr) ast.Type {
	switch e.Op {
	case ">", "<", ">=", "<=", "==", "!=", "and", "or":
		return ast.Bool()
	}
	lt := g.inferExprType(e.Left)
	rt := g.inferExprType(e.Right)
	if lt.Kind == ast.TString || rt.Kind == ast.TString {
		return ast.Str()
	}
	if lt.Kind == ast.TFloat || rt.Kind == ast.TFloat {
		return ast.Float()
	}
	return ast.Int()
}

// generateExpression lowers e per §4.5's expression-lowering highlights.
func (g *Generator) generateExpression(e *ast.Expr) (value.Value, error) {
	switch e.Kind {
	case ast.ExprNumber:
		return constant.NewInt(types.I64, e.IntVal), nil
	case ast.ExprFloat:
		return constant.NewFloat(types.Double, e.FloatVal), nil
	case ast.ExprBool:
		if e.BoolVal {
			return constant.NewInt(types.I1, 1), nil
		}
		return constant.NewInt(types.I1, 0), nil
	case ast.ExprNull:
		return constant.NewNull(types.I8Ptr), nil
	case ast.ExprString:
		return g.newStringConstant(g.builder, e.StrVal), nil
	case ast.ExprFString:
		return g.generateFString(e)
	case ast.ExprIdentifier:
		return g.generateIdentifier(e)
	case ast.ExprArray:
		return g.generateArrayLiteral(e)
	case ast.ExprZeros:
		return g.generateZeros(e)
	case ast.ExprArrayAccess:
		return g.generateArrayAccess(e)
	case ast.ExprStringCharAccess:
		return g.generateStringCharAccess(e)
	case ast.ExprStructAccess:
		return g.generateStructAccess(e)
	case ast.ExprStructAccessFromArray:
		return g.generateStructAccessFromArray(e)
	case ast.ExprBinaryOp:
		return g.generateBinaryOp(e)
	case ast.ExprUnaryOp:
		return g.generateUnaryOp(e)
	case ast.ExprCast:
		return g.generateCast(e)
	case ast.ExprConcat:
		left, err := g.generateExpression(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := g.generateExpression(e.Right)
		if err != nil {
			return nil, err
		}
		return g.concatStrings(left, right), nil
	case ast.ExprReference:
		return g.generateExpression(e.Operand)
	case ast.ExprCall:
		return g.generateCall(e)
	case ast.ExprStructConstructor:
		return g.generateStructConstructor(e)
	default:
		return nil, fmt.Errorf("unsupported expression kind %v", e.Kind)
	}
}

func (g *Generator) generateIdentifier(e *ast.Expr) (value.Value, error) {
	ptr, t, ok := g.lookupVar(e.Name)
	if !ok {
		return nil, fmt.Errorf("undefined identifier %q", e.Name)
	}
	if t.Kind == ast.TArray && t.Size != nil {
		return ptr, nil
	}
	lt, err := g.variableStorageType(t)
	if err != nil {
		return nil, err
	}
	return g.builder.NewLoad(lt, ptr), nil
}

// sizeOfType computes sizeof(t) in bytes via the classic
// `ptrtoint(gep(null, 1))` trick, used by StructConstructor and array
// literal/zeros lowering to size a `malloc` call.
func (g *Generator) sizeOfType(t types.Type) value.Value {
	null := constant.NewNull(types.NewPointer(t))
	gep := g.builder.NewGetElementPtr(t, null, i64(1))
	return g.builder.NewPtrToInt(gep, types.I64)
}

func (g *Generator) generateArrayLiteral(e *ast.Expr) (value.Value, error) {
	elemType := ast.Int()
	if e.ElemType != nil {
		elemType = *e.ElemType
	} else if len(e.Elements) > 0 {
		elemType = g.inferExprType(&e.Elements[0])
	}
	elemLLVM, err := g.convertType(elemType)
	if err != nil {
		return nil, err
	}
	n := len(e.Elements)
	arrType := types.NewArray(uint64(n), elemLLVM)

	size := g.sizeOfType(arrType)
	malloc := g.registry.Get("malloc")
	raw := g.builder.NewCall(malloc, size)
	g.trackAllocation(raw)
	typed := g.builder.NewBitCast(raw, types.NewPointer(arrType))

	for i := range e.Elements {
		val, err := g.generateExpression(&e.Elements[i])
		if err != nil {
			return nil, err
		}
		ptr := g.builder.NewGetElementPtr(arrType, typed, i64(0), i64(int64(i)))
		g.builder.NewStore(val, ptr)
	}
	return typed, nil
}

func (g *Generator) generateZeros(e *ast.Expr) (value.Value, error) {
	elemType := ast.Int()
	if e.ElemType != nil {
		elemType = *e.ElemType
	}
	elemLLVM, err := g.convertType(elemType)
	if err != nil {
		return nil, err
	}
	if e.SizeExpr == nil || e.SizeExpr.Kind != ast.ExprNumber {
		return nil, fmt.Errorf("zeros(n) requires a literal integer size")
	}
	n := e.SizeExpr.IntVal
	arrType := types.NewArray(uint64(n), elemLLVM)

	size := g.sizeOfType(arrType)
	malloc := g.registry.Get("malloc")
	raw := g.builder.NewCall(malloc, size)
	g.trackAllocation(raw)
	typed := g.builder.NewBitCast(raw, types.NewPointer(arrType))

	zero := zeroValueOf(elemLLVM)
	for i := int64(0); i < n; i++ {
		ptr := g.builder.NewGetElementPtr(arrType, typed, i64(0), i64(i))
		g.builder.NewStore(zero, ptr)
	}
	return typed, nil
}

func (g *Generator) generateArrayAccess(e *ast.Expr) (value.Value, error) {
	basePtr, baseType, ok := g.lookupVar(e.Name)
	if !ok {
		return nil, fmt.Errorf("undefined identifier %q", e.Name)
	}
	idx, err := g.generateExpression(e.Index)
	if err != nil {
		return nil, err
	}
	if baseType.Kind == ast.TString {
		b := g.builder.NewLoad(types.I8Ptr, basePtr)
		charPtr := g.builder.NewGetElementPtr(types.I8, b, idx)
		ch := g.builder.NewLoad(types.I8, charPtr)
		shim := g.registry.Get("char_to_str")
		str := g.builder.NewCall(shim, ch)
		g.trackAllocation(str)
		return str, nil
	}
	elemPtr, elemType, err := g.arrayElementPointer(basePtr, baseType, idx)
	if err != nil {
		return nil, err
	}
	if elemType.Kind == ast.TArray || (elemType.Kind == ast.TStruct) {
		return elemPtr, nil
	}
	lt, err := g.variableStorageType(elemType)
	if err != nil {
		return nil, err
	}
	return g.builder.NewLoad(lt, elemPtr), nil
}

func (g *Generator) generateStringCharAccess(e *ast.Expr) (value.Value, error) {
	base, err := g.generateExpression(e.Base)
	if err != nil {
		return nil, err
	}
	idx, err := g.generateExpression(e.Index)
	if err != nil {
		return nil, err
	}
	charPtr := g.builder.NewGetElementPtr(types.I8, base, idx)
	ch := g.builder.NewLoad(types.I8, charPtr)
	shim := g.registry.Get("char_to_str")
	str := g.builder.NewCall(shim, ch)
	g.trackAllocation(str)
	return str, nil
}

// generateStructAccess lowers `base.path...` (§4.5 StructAccess): resolve
// the base variable's declared struct type, walk FieldPath, then apply the
// final-segment load rules (array fields returned unloaded, reference
// fields bitcast, everything else loaded).
func (g *Generator) generateStructAccess(e *ast.Expr) (value.Value, error) {
	baseType := g.inferExprType(e.Base)
	_, structName, err := g.structInfoFor(baseType)
	if err != nil {
		return nil, err
	}
	basePtr, err := g.generateExpression(e.Base)
	if err != nil {
		return nil, err
	}
	fieldPtr, ft, err := g.walkFieldPath(basePtr, structName, e.FieldPath)
	if err != nil {
		return nil, err
	}
	lastField := e.FieldPath[len(e.FieldPath)-1]
	parentStruct := g.fieldChainParent(structName, e.FieldPath)
	return g.loadField(fieldPtr, ft, parentStruct, lastField)
}

// fieldChainParent returns the struct-table entry that directly owns
// FieldPath's last segment, needed by loadField to look up that field's
// lowered LLVM type.
func (g *Generator) fieldChainParent(structName string, path []string) *structInfo {
	name := structName
	for _, field := range path[:len(path)-1] {
		info := g.structs[name]
		ft := info.fieldType[field]
		switch {
		case ft.Kind == ast.TStruct:
			name = ft.StructName
		case ft.Kind == ast.TReference && ft.Target.Kind == ast.TStruct:
			name = ft.Target.StructName
		}
	}
	return g.structs[name]
}

func (g *Generator) generateStructAccessFromArray(e *ast.Expr) (value.Value, error) {
	if e.Base == nil || e.Base.Kind != ast.ExprArrayAccess {
		return nil, fmt.Errorf("malformed array-of-struct access")
	}
	basePtr, baseType, ok := g.lookupVar(e.Base.Name)
	if !ok {
		return nil, fmt.Errorf("undefined identifier %q", e.Base.Name)
	}
	idx, err := g.generateExpression(e.Base.Index)
	if err != nil {
		return nil, err
	}
	elemPtr, elemType, err := g.arrayElementPointer(basePtr, baseType, idx)
	if err != nil {
		return nil, err
	}
	_, structName, err := g.structInfoFor(elemType)
	if err != nil {
		return nil, err
	}
	fieldPtr, ft, err := g.walkFieldPath(elemPtr, structName, e.FieldPath)
	if err != nil {
		return nil, err
	}
	lastField := e.FieldPath[len(e.FieldPath)-1]
	parentStruct := g.fieldChainParent(structName, e.FieldPath)
	return g.loadField(fieldPtr, ft, parentStruct, lastField)
}

// generateStructConstructor lowers `Name(args)` (§4.5 StructConstructor):
// malloc(sizeof(struct)), then fill fields in declaration order.
func (g *Generator) generateStructConstructor(e *ast.Expr) (value.Value, error) {
	info, ok := g.structs[e.Name]
	if !ok {
		return nil, fmt.Errorf("unknown struct %q", e.Name)
	}
	size := g.sizeOfType(info.llvmType)
	malloc := g.registry.Get("malloc")
	raw := g.builder.NewCall(malloc, size)
	g.trackAllocation(raw)
	typed := g.builder.NewBitCast(raw, types.NewPointer(info.llvmType))

	for i := range info.def.Fields {
		if i >= len(e.Args) {
			break
		}
		val, err := g.generateExpression(&e.Args[i])
		if err != nil {
			return nil, err
		}
		fieldPtr := g.builder.NewGetElementPtr(info.llvmType, typed, i32(0), i32(i))
		g.builder.NewStore(val, fieldPtr)
	}
	return typed, nil
}

// generateCall lowers a plain function call. §4.4's built-in exclusion set
// (to_str, array_to_str, to_int, to_float, ord, length) names polymorphic
// surface functions with no single matching external symbol, so those
// dispatch on their argument's static type to the right casting-shim
// variant; every other name is either a user function or a direct external.
func (g *Generator) generateCall(e *ast.Expr) (value.Value, error) {
	switch e.Name {
	case "to_str", "array_to_str", "to_int", "to_float", "ord", "length":
		return g.generateBuiltinCall(e)
	}

	args := make([]value.Value, 0, len(e.Args))
	for i := range e.Args {
		v, err := g.generateExpression(&e.Args[i])
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	if fn, ok := g.functions[e.Name]; ok {
		return g.builder.NewCall(fn, args...), nil
	}
	if fn := g.registry.Get(e.Name); fn != nil {
		return g.builder.NewCall(fn, args...), nil
	}
	return nil, fmt.Errorf("undefined function %q", e.Name)
}

// generateBuiltinCall lowers the always-available polymorphic builtins
// (§4.4) by inspecting each argument's static type to pick the concrete
// casting-shim entry point.
func (g *Generator) generateBuiltinCall(e *ast.Expr) (value.Value, error) {
	if len(e.Args) == 0 {
		return nil, fmt.Errorf("%s: expected at least one argument", e.Name)
	}
	argType := g.inferExprType(&e.Args[0])
	arg, err := g.generateExpression(&e.Args[0])
	if err != nil {
		return nil, err
	}

	switch e.Name {
	case "to_str":
		return g.valueToString(arg, argType), nil
	case "to_int":
		if argType.Kind == ast.TString {
			return g.builder.NewCall(g.registry.Get("to_int"), arg), nil
		}
		if argType.Kind == ast.TFloat {
			return g.builder.NewFPToSI(arg, types.I64), nil
		}
		return arg, nil
	case "to_float":
		if argType.Kind == ast.TString {
			return g.builder.NewCall(g.registry.Get("to_float"), arg), nil
		}
		if argType.Kind == ast.TInt {
			return g.builder.NewSIToFP(arg, types.Double), nil
		}
		return arg, nil
	case "ord":
		ch := g.builder.NewLoad(types.I8, arg)
		return g.builder.NewZExt(ch, types.I64), nil
	case "length":
		if argType.Kind == ast.TArray && argType.Size != nil {
			return constant.NewInt(types.I64, int64(*argType.Size)), nil
		}
		return g.builder.NewCall(g.registry.Get("strlen"), arg), nil
	case "array_to_str":
		if argType.Kind != ast.TArray || argType.Size == nil {
			return nil, fmt.Errorf("array_to_str requires a sized array argument")
		}
		i8ptr := g.builder.NewBitCast(arg, types.I8Ptr)
		n := constant.NewInt(types.I64, int64(*argType.Size))
		var shim string
		switch argType.Elem.Kind {
		case ast.TFloat:
			shim = "array_to_str_float"
		default:
			shim = "array_to_str_int"
		}
		str := g.builder.NewCall(g.registry.Get(shim), i8ptr, n)
		g.trackAllocation(str)
		return str, nil
	}
	return nil, fmt.Errorf("unsupported builtin %q", e.Name)
}
