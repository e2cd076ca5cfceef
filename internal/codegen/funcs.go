package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/estevaofon/noxy/internal/ast"
)

// ledgerCapacity mirrors internal/runtime.Capacity: the fixed slot count the
// synthesized `main`'s allocation ledger allocates (§5).
const ledgerCapacity = 100

// declareFunction implements §4.5 Phase A step 3: register a function's
// signature, lowering `ref Struct` params/returns to typed pointers, before
// any body is generated (testable property 4 — two-pass declaration).
func (g *Generator) declareFunction(name string, fn *ast.Function) error {
	retType, err := g.variableStorageType(fn.Return)
	if err != nil {
		return fmt.Errorf("function %s: return type: %w", name, err)
	}
	llvmFn := g.module.NewFunc(name, retType)
	for _, p := range fn.Params {
		pt, err := g.variableStorageType(p.Type)
		if err != nil {
			return fmt.Errorf("function %s: param %s: %w", name, p.Name, err)
		}
		llvmFn.Params = append(llvmFn.Params, ir.NewParam(p.Name, pt))
	}
	g.functions[name] = llvmFn
	return nil
}

// generateFunction lowers one function body in a fresh local scope, per
// §4.5 Phase A step 6. Allocations inside a function body are not added to
// main's ledger (§5: "intentionally leaked" — documented limitation), so
// inMain stays false throughout.
func (g *Generator) generateFunction(name string, fn *ast.Function) error {
	llvmFn := g.functions[name]
	entry := llvmFn.NewBlock("entry")

	oldBuilder, oldVars, oldTypes, oldFunc, oldInMain := g.builder, g.vars, g.varTypes, g.currentFunc, g.inMain
	g.builder = entry
	g.vars = make(map[string]value.Value)
	g.varTypes = make(map[string]ast.Type)
	g.currentFunc = fn
	g.inMain = false

	for i, p := range fn.Params {
		alloca := g.builder.NewAlloca(llvmFn.Params[i].Type())
		alloca.SetName(p.Name + "_ptr")
		g.builder.NewStore(llvmFn.Params[i], alloca)
		g.vars[p.Name] = alloca
		g.varTypes[p.Name] = p.Type
	}

	terminated, err := g.generateStmts(fn.Body)
	if err != nil {
		return err
	}
	if !terminated {
		if fn.Return.Kind == ast.TVoid {
			g.builder.NewRet(nil)
		} else {
			retType, _ := g.variableStorageType(fn.Return)
			g.builder.NewRet(zeroValueOf(retType))
		}
	}

	g.builder, g.vars, g.varTypes, g.currentFunc, g.inMain = oldBuilder, oldVars, oldTypes, oldFunc, oldInMain
	return nil
}

// generateMain synthesizes the program entry point (§4.5 Phase A step 4-5):
// it initializes the allocation ledger, runs every top-level statement
// (global initializations interleaved with top-level control/print
// statements) in textual order, frees every tracked allocation, and returns
// 0.
func (g *Generator) generateMain(body []ast.Stmt) error {
	mainFn := g.module.NewFunc("main", types.I32)
	g.functions["main"] = mainFn
	entry := mainFn.NewBlock("entry")

	g.builder = entry
	g.vars = make(map[string]value.Value)
	g.varTypes = make(map[string]ast.Type)
	g.currentFunc = nil
	g.inMain = true

	ledgerArrType := types.NewArray(ledgerCapacity, types.I8Ptr)
	ledgerArr := g.builder.NewAlloca(ledgerArrType)
	ledgerArr.SetName("alloc_ledger")
	ledgerCounter := g.builder.NewAlloca(types.I64)
	ledgerCounter.SetName("alloc_count")
	g.builder.NewStore(constant.NewInt(types.I64, 0), ledgerCounter)
	g.ledgerArray = ledgerArr
	g.ledgerCounter = ledgerCounter

	if _, err := g.generateStmts(body); err != nil {
		return err
	}

	g.emitLedgerCleanup()
	g.builder.NewRet(constant.NewInt(types.I32, 0))

	g.inMain = false
	return nil
}

// trackAllocation appends ptr (bitcast to i8*) to main's allocation ledger
// and advances the counter, per §5's allocation-ledger discipline. It is a
// no-op outside main: per spec, function-body allocations are intentionally
// leaked rather than tracked, since there is no per-function cleanup path.
func (g *Generator) trackAllocation(ptr value.Value) {
	if !g.inMain {
		return
	}
	idx := g.builder.NewLoad(types.I64, g.ledgerCounter)
	slot := g.builder.NewGetElementPtr(
		types.NewArray(ledgerCapacity, types.I8Ptr),
		g.ledgerArray,
		constant.NewInt(types.I64, 0),
		idx,
	)
	casted := ptr
	if !ptr.Type().Equal(types.I8Ptr) {
		casted = g.builder.NewBitCast(ptr, types.I8Ptr)
	}
	g.builder.NewStore(casted, slot)
	next := g.builder.NewAdd(idx, constant.NewInt(types.I64, 1))
	g.builder.NewStore(next, g.ledgerCounter)
}

// emitLedgerCleanup emits the `free` loop of §5: iterate [0, counter) and
// free every tracked pointer, just before main returns.
func (g *Generator) emitLedgerCleanup() {
	freeFn := g.registry.Get("free")

	condBlock := g.builder.Parent.NewBlock("ledger.cond")
	bodyBlock := g.builder.Parent.NewBlock("ledger.body")
	endBlock := g.builder.Parent.NewBlock("ledger.end")

	iPtr := g.builder.NewAlloca(types.I64)
	iPtr.SetName("ledger_i")
	g.builder.NewStore(constant.NewInt(types.I64, 0), iPtr)
	g.builder.NewBr(condBlock)

	g.builder = condBlock
	i := g.builder.NewLoad(types.I64, iPtr)
	count := g.builder.NewLoad(types.I64, g.ledgerCounter)
	cond := g.builder.NewICmp(enum.IPredSLT, i, count)
	g.builder.NewCondBr(cond, bodyBlock, endBlock)

	g.builder = bodyBlock
	i2 := g.builder.NewLoad(types.I64, iPtr)
	slot := g.builder.NewGetElementPtr(
		types.NewArray(ledgerCapacity, types.I8Ptr),
		g.ledgerArray,
		constant.NewInt(types.I64, 0),
		i2,
	)
	ptr := g.builder.NewLoad(types.I8Ptr, slot)
	g.builder.NewCall(freeFn, ptr)
	next := g.builder.NewAdd(i2, constant.NewInt(types.I64, 1))
	g.builder.NewStore(next, iPtr)
	g.builder.NewBr(condBlock)

	g.builder = endBlock
}
