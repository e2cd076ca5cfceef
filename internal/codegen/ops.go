package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/estevaofon/noxy/internal/ast"
)

// concatStrings lowers string `+` (§4.5 BinaryOp, the Concat specialization):
// strlen both operands, malloc their combined length plus the NUL
// terminator, then strcpy/strcat into the fresh buffer and track it for the
// ledger.
func (g *Generator) concatStrings(left, right value.Value) value.Value {
	strlen := g.registry.Get("strlen")
	malloc := g.registry.Get("malloc")
	strcpyFn := g.registry.Get("strcpy")
	strcatFn := g.registry.Get("strcat")

	lLen := g.builder.NewCall(strlen, left)
	rLen := g.builder.NewCall(strlen, right)
	total := g.builder.NewAdd(lLen, rLen)
	total = g.builder.NewAdd(total, constant.NewInt(types.I64, 1))

	buf := g.builder.NewCall(malloc, total)
	g.trackAllocation(buf)
	g.builder.NewCall(strcpyFn, buf, left)
	g.builder.NewCall(strcatFn, buf, right)
	return buf
}

// toFloat promotes an int operand to double when the other side of a binary
// op is float, per §4.5's numeric-promotion rule.
func (g *Generator) toFloat(v value.Value) value.Value {
	if v.Type().Equal(types.Double) {
		return v
	}
	return g.builder.NewSIToFP(v, types.Double)
}

func isFloatType(t ast.Type) bool { return t.Kind == ast.TFloat }

// generateBinaryOp lowers every BinaryOp operator (§4.5): arithmetic with
// int/float promotion, string `+` via concatStrings, string/null equality
// via strcmp/direct pointer comparison, and short-circuit-free `and`/`or`
// (both operands are always evaluated, matching the parser's eager
// evaluation of boolean operators).
func (g *Generator) generateBinaryOp(e *ast.Expr) (value.Value, error) {
	leftType := g.inferExprType(e.Left)
	rightType := g.inferExprType(e.Right)

	left, err := g.generateExpression(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := g.generateExpression(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "and":
		return g.builder.NewAnd(g.truthify(left, leftType), g.truthify(right, rightType)), nil
	case "or":
		return g.builder.NewOr(g.truthify(left, leftType), g.truthify(right, rightType)), nil
	}

	if leftType.Kind == ast.TString && rightType.Kind == ast.TString {
		switch e.Op {
		case "+":
			return g.concatStrings(left, right), nil
		case "==":
			cmp := g.builder.NewCall(g.registry.Get("strcmp"), left, right)
			return g.builder.NewICmp(enum.IPredEQ, cmp, constant.NewInt(types.I32, 0)), nil
		case "!=":
			cmp := g.builder.NewCall(g.registry.Get("strcmp"), left, right)
			return g.builder.NewICmp(enum.IPredNE, cmp, constant.NewInt(types.I32, 0)), nil
		}
	}

	if leftType.Kind == ast.TNull || rightType.Kind == ast.TNull {
		switch e.Op {
		case "==":
			return g.builder.NewICmp(enum.IPredEQ, left, right), nil
		case "!=":
			return g.builder.NewICmp(enum.IPredNE, left, right), nil
		}
	}

	// One side a string and the other not is never legal for any operator
	// (testable property 7, spec.md §8) — without this check a stray `i8*`
	// operand would otherwise fall through into the integer switch below and
	// be handed to NewAdd/NewICmp/etc. as if it were an i64.
	if (leftType.Kind == ast.TString) != (rightType.Kind == ast.TString) {
		return nil, fmt.Errorf("mismatched operand types for %q: %s and %s", e.Op, leftType, rightType)
	}

	useFloat := isFloatType(leftType) || isFloatType(rightType)
	if useFloat {
		left = g.toFloat(left)
		right = g.toFloat(right)
		switch e.Op {
		case "+":
			return g.builder.NewFAdd(left, right), nil
		case "-":
			return g.builder.NewFSub(left, right), nil
		case "*":
			return g.builder.NewFMul(left, right), nil
		case "/":
			return g.builder.NewFDiv(left, right), nil
		case "%":
			return g.builder.NewCall(g.registry.Get("fmod"), left, right), nil
		case "==":
			return g.builder.NewFCmp(enum.FPredOEQ, left, right), nil
		case "!=":
			return g.builder.NewFCmp(enum.FPredONE, left, right), nil
		case "<":
			return g.builder.NewFCmp(enum.FPredOLT, left, right), nil
		case "<=":
			return g.builder.NewFCmp(enum.FPredOLE, left, right), nil
		case ">":
			return g.builder.NewFCmp(enum.FPredOGT, left, right), nil
		case ">=":
			return g.builder.NewFCmp(enum.FPredOGE, left, right), nil
		}
		return nil, fmt.Errorf("unsupported float operator %q", e.Op)
	}

	switch e.Op {
	case "+":
		return g.builder.NewAdd(left, right), nil
	case "-":
		return g.builder.NewSub(left, right), nil
	case "*":
		return g.builder.NewMul(left, right), nil
	case "/":
		return g.builder.NewSDiv(left, right), nil
	case "%":
		return g.builder.NewSRem(left, right), nil
	case "==":
		return g.builder.NewICmp(enum.IPredEQ, left, right), nil
	case "!=":
		return g.builder.NewICmp(enum.IPredNE, left, right), nil
	case "<":
		return g.builder.NewICmp(enum.IPredSLT, left, right), nil
	case "<=":
		return g.builder.NewICmp(enum.IPredSLE, left, right), nil
	case ">":
		return g.builder.NewICmp(enum.IPredSGT, left, right), nil
	case ">=":
		return g.builder.NewICmp(enum.IPredSGE, left, right), nil
	}
	return nil, fmt.Errorf("unsupported operator %q", e.Op)
}

// truthify normalizes an `and`/`or` operand to i1: a bool-typed or already
// i1 operand is returned as is, and any other value is compared against its
// type's zero (the checker does not restrict these operands' types).
func (g *Generator) truthify(v value.Value, t ast.Type) value.Value {
	if t.Kind == ast.TBool {
		return v
	}
	if v.Type().Equal(types.I1) {
		return v
	}
	return g.builder.NewICmp(enum.IPredNE, v, zeroValueOf(v.Type()))
}

// generateUnaryOp lowers `!`/`-` (§4.5 UnaryOp).
func (g *Generator) generateUnaryOp(e *ast.Expr) (value.Value, error) {
	v, err := g.generateExpression(e.Operand)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "!":
		return g.builder.NewXor(v, constant.NewInt(types.I1, 1)), nil
	case "-":
		if v.Type().Equal(types.Double) {
			return g.builder.NewFSub(constant.NewFloat(types.Double, 0), v), nil
		}
		return g.builder.NewSub(constant.NewInt(types.I64, 0), v), nil
	}
	return nil, fmt.Errorf("unsupported unary operator %q", e.Op)
}

// generateCast lowers `expr as Type` (§4.5 Cast): numeric conversions go
// through native LLVM instructions, string conversions through the casting
// shim.
func (g *Generator) generateCast(e *ast.Expr) (value.Value, error) {
	srcType := g.inferExprType(e.Operand)
	v, err := g.generateExpression(e.Operand)
	if err != nil {
		return nil, err
	}
	dst := *e.TargetType

	if srcType.Equal(dst) {
		return v, nil
	}

	switch {
	case srcType.Kind == ast.TInt && dst.Kind == ast.TFloat:
		return g.builder.NewSIToFP(v, types.Double), nil
	case srcType.Kind == ast.TFloat && dst.Kind == ast.TInt:
		return g.builder.NewFPToSI(v, types.I64), nil
	case srcType.Kind == ast.TInt && dst.Kind == ast.TString:
		str := g.builder.NewCall(g.registry.Get("to_str_int"), v)
		g.trackAllocation(str)
		return str, nil
	case srcType.Kind == ast.TFloat && dst.Kind == ast.TString:
		str := g.builder.NewCall(g.registry.Get("to_str_float"), v)
		g.trackAllocation(str)
		return str, nil
	case srcType.Kind == ast.TString && dst.Kind == ast.TInt:
		return g.builder.NewCall(g.registry.Get("to_int"), v), nil
	case srcType.Kind == ast.TString && dst.Kind == ast.TFloat:
		return g.builder.NewCall(g.registry.Get("to_float"), v), nil
	case srcType.Kind == ast.TInt && dst.Kind == ast.TBool:
		return g.builder.NewICmp(enum.IPredNE, v, constant.NewInt(types.I64, 0)), nil
	case srcType.Kind == ast.TBool && dst.Kind == ast.TInt:
		return g.builder.NewZExt(v, types.I64), nil
	}
	return nil, fmt.Errorf("unsupported cast from %s to %s", srcType, dst)
}

// valueToString renders val (of static type t) as an owned, NUL-terminated
// i8* for FString interpolation, simplified to ignore any parsed format
// spec (§4.5 FString): every interpolated value gets its cast's default
// decimal/string rendering regardless of a `%x`/`%.2f`-style spec.
func (g *Generator) valueToString(val value.Value, t ast.Type) value.Value {
	switch t.Kind {
	case ast.TString:
		return val
	case ast.TInt:
		str := g.builder.NewCall(g.registry.Get("to_str_int"), val)
		g.trackAllocation(str)
		return str
	case ast.TFloat:
		str := g.builder.NewCall(g.registry.Get("to_str_float"), val)
		g.trackAllocation(str)
		return str
	case ast.TBool:
		trueStr := g.newStringConstant(g.builder, "true")
		falseStr := g.newStringConstant(g.builder, "false")
		return g.builder.NewSelect(val, trueStr, falseStr)
	default:
		return g.newStringConstant(g.builder, "")
	}
}

// generateFString lowers an FString by rendering every embedded expression
// with valueToString and concatenating literal/rendered parts left to right
// via concatStrings; each of those helpers tracks its own malloc'd buffer on
// the ledger, so the concatenated result needs no further tracking here.
func (g *Generator) generateFString(e *ast.Expr) (value.Value, error) {
	var acc value.Value
	for _, part := range e.FString {
		var piece value.Value
		if part.Expr == nil {
			piece = g.newStringConstant(g.builder, part.Literal)
		} else {
			t := g.inferExprType(part.Expr)
			v, err := g.generateExpression(part.Expr)
			if err != nil {
				return nil, err
			}
			piece = g.valueToString(v, t)
		}
		if acc == nil {
			acc = piece
		} else {
			acc = g.concatStrings(acc, piece)
		}
	}
	if acc == nil {
		return g.newStringConstant(g.builder, ""), nil
	}
	// Every path that actually mallocs a buffer (concatStrings, and
	// valueToString's int/float shims) already tracks its own result; acc
	// here is whichever of those calls produced the final piece, or else an
	// untracked non-heap pointer (a lone literal part's global constant, or
	// a bool part's select between two string constants) that must not be
	// tracked at all. Tracking it again here either double-tracks an
	// already-tracked buffer (freed twice by the ledger) or hands the ledger
	// a non-malloc'd pointer to free.
	return acc, nil
}
