package interpreter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/estevaofon/noxy/internal/ast"
	"github.com/estevaofon/noxy/internal/runtime"
)

// eval evaluates one expression against scope sc, mirroring codegen's
// generateExpression switch but producing a runtime.Value instead of LLVM
// IR (§4.5 "Expression lowering highlights").
func (it *Interpreter) eval(e *ast.Expr, sc *scope) (runtime.Value, error) {
	switch e.Kind {
	case ast.ExprNumber:
		return runtime.NewInt(e.IntVal), nil
	case ast.ExprFloat:
		return runtime.NewFloat(e.FloatVal), nil
	case ast.ExprString:
		return runtime.NewString(e.StrVal), nil
	case ast.ExprFString:
		return it.evalFString(e, sc)
	case ast.ExprBool:
		return runtime.NewBool(e.BoolVal), nil
	case ast.ExprNull:
		return runtime.NewNull(), nil

	case ast.ExprIdentifier:
		v, ok := sc.get(e.Name)
		if !ok {
			return runtime.NewNull(), fmt.Errorf("undefined identifier %q", e.Name)
		}
		return *v, nil

	case ast.ExprArray:
		elems := make([]runtime.Value, len(e.Elements))
		for i := range e.Elements {
			v, err := it.eval(&e.Elements[i], sc)
			if err != nil {
				return runtime.NewNull(), err
			}
			elems[i] = v
		}
		if err := it.track(); err != nil {
			return runtime.NewNull(), err
		}
		return runtime.NewArray(elems), nil

	case ast.ExprZeros:
		n, err := it.eval(e.SizeExpr, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		elemType := ast.Int()
		if e.ElemType != nil {
			elemType = *e.ElemType
		}
		elems := make([]runtime.Value, n.AsInt())
		for i := range elems {
			elems[i] = zeroRuntimeValue(elemType)
		}
		if err := it.track(); err != nil {
			return runtime.NewNull(), err
		}
		return runtime.NewArray(elems), nil

	case ast.ExprArrayAccess:
		base, ok := sc.get(e.Name)
		if !ok {
			return runtime.NewNull(), fmt.Errorf("undefined identifier %q", e.Name)
		}
		idx, err := it.eval(e.Index, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		if base.Kind == runtime.String {
			i := idx.AsInt()
			if i < 0 || int(i) >= len(base.S) {
				return runtime.NewNull(), fmt.Errorf("string index %d out of bounds", i)
			}
			return runtime.NewString(string(base.S[i])), nil
		}
		i := idx.AsInt()
		if i < 0 || int(i) >= len(base.Elem) {
			return runtime.NewNull(), fmt.Errorf("array index %d out of bounds", i)
		}
		return base.Elem[i], nil

	case ast.ExprStringCharAccess:
		base, err := it.eval(e.Base, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		idx, err := it.eval(e.Index, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		i := idx.AsInt()
		if i < 0 || int(i) >= len(base.S) {
			return runtime.NewNull(), fmt.Errorf("string index %d out of bounds", i)
		}
		return runtime.NewString(string(base.S[i])), nil

	case ast.ExprStructAccess:
		base, err := it.eval(e.Base, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		return getFieldPath(base, e.FieldPath)

	case ast.ExprStructAccessFromArray:
		if e.Base == nil || e.Base.Kind != ast.ExprArrayAccess {
			return runtime.NewNull(), fmt.Errorf("malformed array-of-struct access")
		}
		elem, err := it.eval(e.Base, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		return getFieldPath(elem, e.FieldPath)

	case ast.ExprBinaryOp:
		return it.evalBinaryOp(e, sc)
	case ast.ExprUnaryOp:
		return it.evalUnaryOp(e, sc)
	case ast.ExprCast:
		return it.evalCast(e, sc)
	case ast.ExprConcat:
		left, err := it.eval(e.Left, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		right, err := it.eval(e.Right, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		if err := it.track(); err != nil {
			return runtime.NewNull(), err
		}
		return runtime.NewString(left.AsString() + right.AsString()), nil

	case ast.ExprReference:
		return it.evalReference(e, sc)

	case ast.ExprCall:
		return it.evalCall(e, sc)

	case ast.ExprStructConstructor:
		return it.evalStructConstructor(e, sc)

	default:
		return runtime.NewNull(), fmt.Errorf("unsupported expression kind %v", e.Kind)
	}
}

func zeroRuntimeValue(t ast.Type) runtime.Value {
	switch t.Kind {
	case ast.TFloat:
		return runtime.NewFloat(0)
	case ast.TString:
		return runtime.NewString("")
	case ast.TBool:
		return runtime.NewBool(false)
	default:
		return runtime.NewInt(0)
	}
}

// evalReference takes the address of a named variable. Any other operand
// (the parser accepts any unary expression after `ref`) is evaluated and a
// reference to a fresh copy of the result is returned; a struct copy shares
// its field map with the original, a scalar copy does not.
func (it *Interpreter) evalReference(e *ast.Expr, sc *scope) (runtime.Value, error) {
	target := e.Operand
	switch target.Kind {
	case ast.ExprIdentifier:
		v, ok := sc.get(target.Name)
		if !ok {
			return runtime.NewNull(), fmt.Errorf("undefined identifier %q", target.Name)
		}
		return runtime.NewReference(v), nil
	default:
		v, err := it.eval(target, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		return runtime.NewReference(&v), nil
	}
}

func (it *Interpreter) evalUnaryOp(e *ast.Expr, sc *scope) (runtime.Value, error) {
	v, err := it.eval(e.Operand, sc)
	if err != nil {
		return runtime.NewNull(), err
	}
	switch e.Op {
	case "!":
		return runtime.NewBool(!v.AsBool()), nil
	case "-":
		if v.Kind == runtime.Float {
			return runtime.NewFloat(-v.F), nil
		}
		return runtime.NewInt(-v.AsInt()), nil
	}
	return runtime.NewNull(), fmt.Errorf("unsupported unary operator %q", e.Op)
}

func (it *Interpreter) evalBinaryOp(e *ast.Expr, sc *scope) (runtime.Value, error) {
	left, err := it.eval(e.Left, sc)
	if err != nil {
		return runtime.NewNull(), err
	}
	right, err := it.eval(e.Right, sc)
	if err != nil {
		return runtime.NewNull(), err
	}

	switch e.Op {
	case "and":
		return runtime.NewBool(left.AsBool() && right.AsBool()), nil
	case "or":
		return runtime.NewBool(left.AsBool() || right.AsBool()), nil
	}

	if left.Kind == runtime.String && right.Kind == runtime.String {
		switch e.Op {
		case "+":
			if err := it.track(); err != nil {
				return runtime.NewNull(), err
			}
			return runtime.NewString(left.S + right.S), nil
		case "==":
			return runtime.NewBool(left.S == right.S), nil
		case "!=":
			return runtime.NewBool(left.S != right.S), nil
		}
	}

	if left.Kind == runtime.Null || right.Kind == runtime.Null ||
		left.Kind == runtime.Reference || right.Kind == runtime.Reference {
		switch e.Op {
		case "==":
			return runtime.NewBool(left.IsNull() == right.IsNull()), nil
		case "!=":
			return runtime.NewBool(left.IsNull() != right.IsNull()), nil
		}
	}

	// One side a string and the other not is never legal for any operator
	// (testable property 7, spec.md §8) — without this check a String
	// operand would otherwise fall through to AsInt()/AsFloat() below, which
	// silently coerce a non-numeric value to 0 instead of raising an error,
	// masking the same bug in the codegen oracle this interpreter checks.
	if (left.Kind == runtime.String) != (right.Kind == runtime.String) {
		return runtime.NewNull(), fmt.Errorf("mismatched operand types for %q", e.Op)
	}

	if left.Kind == runtime.Float || right.Kind == runtime.Float {
		l, r := left.AsFloat(), right.AsFloat()
		switch e.Op {
		case "+":
			return runtime.NewFloat(l + r), nil
		case "-":
			return runtime.NewFloat(l - r), nil
		case "*":
			return runtime.NewFloat(l * r), nil
		case "/":
			return runtime.NewFloat(l / r), nil
		case "%":
			return runtime.NewFloat(math.Mod(l, r)), nil
		case "==":
			return runtime.NewBool(l == r), nil
		case "!=":
			return runtime.NewBool(l != r), nil
		case "<":
			return runtime.NewBool(l < r), nil
		case "<=":
			return runtime.NewBool(l <= r), nil
		case ">":
			return runtime.NewBool(l > r), nil
		case ">=":
			return runtime.NewBool(l >= r), nil
		}
		return runtime.NewNull(), fmt.Errorf("unsupported float operator %q", e.Op)
	}

	l, r := left.AsInt(), right.AsInt()
	switch e.Op {
	case "+":
		return runtime.NewInt(l + r), nil
	case "-":
		return runtime.NewInt(l - r), nil
	case "*":
		return runtime.NewInt(l * r), nil
	case "/":
		if r == 0 {
			return runtime.NewNull(), fmt.Errorf("integer division by zero")
		}
		return runtime.NewInt(l / r), nil
	case "%":
		if r == 0 {
			return runtime.NewNull(), fmt.Errorf("integer division by zero")
		}
		return runtime.NewInt(l % r), nil
	case "==":
		return runtime.NewBool(l == r), nil
	case "!=":
		return runtime.NewBool(l != r), nil
	case "<":
		return runtime.NewBool(l < r), nil
	case "<=":
		return runtime.NewBool(l <= r), nil
	case ">":
		return runtime.NewBool(l > r), nil
	case ">=":
		return runtime.NewBool(l >= r), nil
	}
	return runtime.NewNull(), fmt.Errorf("unsupported operator %q", e.Op)
}

func (it *Interpreter) evalCast(e *ast.Expr, sc *scope) (runtime.Value, error) {
	v, err := it.eval(e.Operand, sc)
	if err != nil {
		return runtime.NewNull(), err
	}
	dst := *e.TargetType
	switch dst.Kind {
	case ast.TInt:
		if v.Kind == runtime.String {
			n, err := strconv.ParseInt(strings.TrimSpace(v.S), 10, 64)
			if err != nil {
				return runtime.NewNull(), fmt.Errorf("cannot parse %q as int", v.S)
			}
			return runtime.NewInt(n), nil
		}
		return runtime.NewInt(v.AsInt()), nil
	case ast.TFloat:
		if v.Kind == runtime.String {
			f, err := strconv.ParseFloat(strings.TrimSpace(v.S), 64)
			if err != nil {
				return runtime.NewNull(), fmt.Errorf("cannot parse %q as float", v.S)
			}
			return runtime.NewFloat(f), nil
		}
		return runtime.NewFloat(v.AsFloat()), nil
	case ast.TString:
		if err := it.track(); err != nil {
			return runtime.NewNull(), err
		}
		return runtime.NewString(v.AsString()), nil
	case ast.TBool:
		return runtime.NewBool(v.AsBool()), nil
	}
	return runtime.NewNull(), fmt.Errorf("unsupported cast to %s", dst.String())
}

// evalFString renders an FString's parts left to right, ignoring any parsed
// format spec (§4.5, matching codegen's valueToString simplification): each
// embedded expression gets its value's default AsString rendering.
func (it *Interpreter) evalFString(e *ast.Expr, sc *scope) (runtime.Value, error) {
	var b strings.Builder
	for _, part := range e.FString {
		if part.Expr == nil {
			b.WriteString(part.Literal)
			continue
		}
		v, err := it.eval(part.Expr, sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		b.WriteString(v.AsString())
	}
	if err := it.track(); err != nil {
		return runtime.NewNull(), err
	}
	return runtime.NewString(b.String()), nil
}

// evalCall dispatches to either a user function (fresh scope, parameters
// bound positionally, body executed to a returnSignal/fallthrough) or one
// of §4.4's always-available builtins.
func (it *Interpreter) evalCall(e *ast.Expr, sc *scope) (runtime.Value, error) {
	switch e.Name {
	case "to_str", "to_int", "to_float", "ord", "length", "array_to_str":
		return it.evalBuiltin(e, sc)
	}

	fn, ok := it.functions[e.Name]
	if !ok {
		return runtime.NewNull(), fmt.Errorf("undefined function %q", e.Name)
	}
	if len(e.Args) != len(fn.Params) {
		return runtime.NewNull(), fmt.Errorf("function %q expects %d arguments, got %d", e.Name, len(fn.Params), len(e.Args))
	}

	fnScope := newScope(it.globals)
	for i, p := range fn.Params {
		v, err := it.eval(&e.Args[i], sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		fnScope.set(p.Name, v)
	}

	wasMain := it.inMain
	it.inMain = false
	_, err := it.execStmts(fn.Body, fnScope)
	it.inMain = wasMain

	if ret, ok := err.(returnSignal); ok {
		return ret.value, nil
	}
	if err != nil {
		return runtime.NewNull(), err
	}
	return runtime.NewNull(), nil
}

func (it *Interpreter) evalBuiltin(e *ast.Expr, sc *scope) (runtime.Value, error) {
	if len(e.Args) == 0 {
		return runtime.NewNull(), fmt.Errorf("%s: expected at least one argument", e.Name)
	}
	arg, err := it.eval(&e.Args[0], sc)
	if err != nil {
		return runtime.NewNull(), err
	}

	switch e.Name {
	case "to_str":
		if err := it.track(); err != nil {
			return runtime.NewNull(), err
		}
		return runtime.NewString(arg.AsString()), nil
	case "array_to_str":
		if err := it.track(); err != nil {
			return runtime.NewNull(), err
		}
		return runtime.NewString(arg.AsString()), nil
	case "to_int":
		if arg.Kind == runtime.String {
			n, err := strconv.ParseInt(strings.TrimSpace(arg.S), 10, 64)
			if err != nil {
				return runtime.NewNull(), fmt.Errorf("cannot parse %q as int", arg.S)
			}
			return runtime.NewInt(n), nil
		}
		return runtime.NewInt(arg.AsInt()), nil
	case "to_float":
		if arg.Kind == runtime.String {
			f, err := strconv.ParseFloat(strings.TrimSpace(arg.S), 64)
			if err != nil {
				return runtime.NewNull(), fmt.Errorf("cannot parse %q as float", arg.S)
			}
			return runtime.NewFloat(f), nil
		}
		return runtime.NewFloat(arg.AsFloat()), nil
	case "ord":
		if arg.Kind != runtime.String || len(arg.S) == 0 {
			return runtime.NewNull(), fmt.Errorf("ord: expected a non-empty string")
		}
		return runtime.NewInt(int64(arg.S[0])), nil
	case "length":
		switch arg.Kind {
		case runtime.Array:
			return runtime.NewInt(int64(len(arg.Elem))), nil
		case runtime.String:
			return runtime.NewInt(int64(len(arg.S))), nil
		}
		return runtime.NewNull(), fmt.Errorf("length: unsupported operand")
	}
	return runtime.NewNull(), fmt.Errorf("unsupported builtin %q", e.Name)
}

// evalStructConstructor builds a struct.Value field-by-field in
// declaration order, matching StructConstructor's malloc-then-fill lowering
// (§4.5); the Go map it allocates plays the role of the generator's heap
// allocation, giving every alias of this value the same shared storage.
func (it *Interpreter) evalStructConstructor(e *ast.Expr, sc *scope) (runtime.Value, error) {
	def, ok := it.structDefs[e.Name]
	if !ok {
		return runtime.NewNull(), fmt.Errorf("unknown struct %q", e.Name)
	}
	fields := make(map[string]runtime.Value, len(def.Fields))
	for i, f := range def.Fields {
		if i >= len(e.Args) {
			break
		}
		v, err := it.eval(&e.Args[i], sc)
		if err != nil {
			return runtime.NewNull(), err
		}
		fields[f.Name] = v
	}
	if err := it.track(); err != nil {
		return runtime.NewNull(), err
	}
	return runtime.NewStruct(e.Name, fields), nil
}
