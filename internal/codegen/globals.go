package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/estevaofon/noxy/internal/ast"
)

// declareGlobal implements §4.5 Phase A step 2: declare every top-level
// `let`/`global` once, zero-initialized (the initializer expression is
// evaluated later, inside the synthesized `main`, in textual order). A
// second declaration of the same name with a conflicting declared type is an
// error; redeclaration with the same type is idempotent (a global re-seen
// through more than one `use select` import path).
func (g *Generator) declareGlobal(name string, s *ast.Stmt) error {
	declType := s.DeclType
	if declType == nil {
		return fmt.Errorf("global %q has no declared type", name)
	}
	if existing, ok := g.globalTypes[name]; ok {
		if !existing.Equal(*declType) {
			return fmt.Errorf("global %q redeclared with conflicting type %s (was %s)", name, declType, existing)
		}
		return nil
	}

	lt, err := g.variableStorageType(*declType)
	if err != nil {
		return err
	}
	gv := g.module.NewGlobalDef(name, zeroValueOf(lt))
	g.globals[name] = gv
	g.globalTypes[name] = *declType
	return nil
}

// zeroValueOf returns the zero constant for a lowered LLVM type: used for
// global zero-initializers (§4.5 Phase A step 2) and as the implicit
// end-of-function return when a non-void function falls off its body
// without a return statement (§4.5 statement lowering, `Return`).
func zeroValueOf(t types.Type) value.Value {
	switch tt := t.(type) {
	case *types.IntType:
		return constant.NewInt(tt, 0)
	case *types.FloatType:
		return constant.NewFloat(tt, 0.0)
	case *types.PointerType:
		return constant.NewNull(tt)
	case *types.ArrayType:
		elemZero := zeroValueOf(tt.ElemType)
		elems := make([]constant.Constant, tt.Len)
		zc, ok := elemZero.(constant.Constant)
		if !ok {
			zc = constant.NewZeroInitializer(tt.ElemType)
		}
		for i := range elems {
			elems[i] = zc
		}
		return constant.NewArray(tt, elems...)
	case *types.StructType:
		fields := make([]constant.Constant, len(tt.Fields))
		for i, ft := range tt.Fields {
			if c, ok := zeroValueOf(ft).(constant.Constant); ok {
				fields[i] = c
			} else {
				fields[i] = constant.NewZeroInitializer(ft)
			}
		}
		return constant.NewStruct(tt, fields...)
	default:
		return constant.NewZeroInitializer(t)
	}
}

// newStringConstant creates a private module-scope constant for s (NUL
// terminated, per §4.5 `String` expression lowering) and returns a pointer
// to its first character, ready to use as an i8* value.
func (g *Generator) newStringConstant(b *ir.Block, s string) value.Value {
	arr := constant.NewCharArrayFromString(s + "\x00")
	g.strCounter++
	gv := g.module.NewGlobalDef(fmt.Sprintf(".str.%d", g.strCounter), arr)
	gv.Immutable = true
	return b.NewGetElementPtr(arr.Type(), gv, constant.NewInt(types.I64, 0), constant.NewInt(types.I64, 0))
}
