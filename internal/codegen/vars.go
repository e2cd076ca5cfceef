package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/estevaofon/noxy/internal/ast"
)

// lookupVar resolves name to its alloca/global pointer and declared type,
// honoring §4.5's "locals shadow globals" rule.
func (g *Generator) lookupVar(name string) (value.Value, ast.Type, bool) {
	if p, ok := g.vars[name]; ok {
		return p, g.varTypes[name], true
	}
	if gv, ok := g.globals[name]; ok {
		return gv, g.globalTypes[name], true
	}
	return nil, ast.Type{}, false
}

// variableStorageType is the lowered type of a *variable's* storage, as
// opposed to convertType's lowering of an aggregate field/element type.
// Every Noxy struct instance lives on the heap (StructConstructor always
// mallocs, §4.5), so a struct-typed variable holds a pointer, never an
// inline struct value — unlike a struct-typed *field* or *array element*,
// which convertType still lowers to the literal struct type for inline
// storage (§4.5 type-lowering table, "Array{Struct{N},n} ... stored
// inline"). Every other type's variable storage matches convertType.
func (g *Generator) variableStorageType(t ast.Type) (types.Type, error) {
	if t.Kind == ast.TStruct {
		if err := g.buildStruct(t.StructName); err != nil {
			return nil, err
		}
		return types.NewPointer(g.structs[t.StructName].llvmType), nil
	}
	return g.convertType(t)
}

// declareLocal binds a new local variable to val (§4.5 `Assignment`
// (declaration)). Sized arrays are already addresses (malloc'd or an alias
// of another sized-array variable) — val itself serves as the GEP base
// `arrayElementPointer` expects, so no extra alloca is introduced. Every
// other type gets a fresh alloca holding val.
func (g *Generator) declareLocal(name string, t ast.Type, val value.Value) error {
	if t.Kind == ast.TArray && t.Size != nil {
		g.vars[name] = val
		g.varTypes[name] = t
		return nil
	}
	lt, err := g.variableStorageType(t)
	if err != nil {
		return err
	}
	alloca := g.builder.NewAlloca(lt)
	alloca.SetName(name + "_ptr")
	g.builder.NewStore(val, alloca)
	g.vars[name] = alloca
	g.varTypes[name] = t
	return nil
}

// structInfoFor resolves t (TStruct or TReference{TStruct}) to the struct
// table entry it names.
func (g *Generator) structInfoFor(t ast.Type) (*structInfo, string, error) {
	name := ""
	switch {
	case t.Kind == ast.TStruct:
		name = t.StructName
	case t.Kind == ast.TReference && t.Target.Kind == ast.TStruct:
		name = t.Target.StructName
	default:
		return nil, "", fmt.Errorf("type %s is not a struct or struct reference", t.String())
	}
	info, ok := g.structs[name]
	if !ok {
		return nil, "", fmt.Errorf("unknown struct %q", name)
	}
	return info, name, nil
}

// walkFieldPath descends path from a struct pointer ptr (of struct
// structName), returning a pointer to the *final* field (never loaded) and
// that field's declared Noxy type. Every intermediate segment must itself
// resolve to a struct (embedded value or `ref` pointer); cycle-placeholder
// fields are bitcast back to their concrete struct pointer type before the
// walk continues, per §4.5 StructAccess lowering and §9's cyclic-struct
// redesign.
func (g *Generator) walkFieldPath(ptr value.Value, structName string, path []string) (value.Value, ast.Type, error) {
	cur := ptr
	curName := structName
	for i, field := range path {
		info, ok := g.structs[curName]
		if !ok {
			return nil, ast.Type{}, fmt.Errorf("unknown struct %q", curName)
		}
		idx, ok := info.fieldIndex[field]
		if !ok {
			return nil, ast.Type{}, fmt.Errorf("struct %q has no field %q", curName, field)
		}
		ft := info.fieldType[field]
		fieldPtr := g.builder.NewGetElementPtr(info.llvmType, cur, i32(0), i32(idx))

		if i == len(path)-1 {
			return fieldPtr, ft, nil
		}

		switch {
		case ft.Kind == ast.TStruct:
			cur = fieldPtr
			curName = ft.StructName
		case ft.Kind == ast.TReference && ft.Target.Kind == ast.TStruct:
			loaded := g.builder.NewLoad(info.fieldLLVMType(field), fieldPtr)
			if info.placeholder[field] {
				target := g.structs[ft.Target.StructName]
				loaded = g.builder.NewBitCast(loaded, types.NewPointer(target.llvmType))
			}
			cur = loaded
			curName = ft.Target.StructName
		default:
			return nil, ast.Type{}, fmt.Errorf("field %q of struct %q is not a struct (cannot continue dotted chain)", field, curName)
		}
	}
	return cur, ast.Type{StructName: curName, Kind: ast.TStruct}, nil
}

// fieldLLVMType returns the lowered field type as stored in the struct
// literal (used to type the load when descending through a reference
// field).
func (si *structInfo) fieldLLVMType(field string) types.Type {
	return si.llvmType.Fields[si.fieldIndex[field]]
}

// loadField reads the value of the field addressed by fieldPtr, per §4.5
// StructAccess's final-segment rules: array fields return the (unloaded)
// field pointer; reference-to-struct fields load and bitcast; everything
// else loads the scalar/aggregate value.
func (g *Generator) loadField(fieldPtr value.Value, ft ast.Type, info *structInfo, field string) (value.Value, error) {
	switch {
	case ft.Kind == ast.TArray:
		return fieldPtr, nil
	case ft.Kind == ast.TReference && ft.Target.Kind == ast.TStruct:
		loaded := g.builder.NewLoad(info.fieldLLVMType(field), fieldPtr)
		if info.placeholder[field] {
			target := g.structs[ft.Target.StructName]
			loaded = g.builder.NewBitCast(loaded, types.NewPointer(target.llvmType))
		}
		return loaded, nil
	default:
		return g.builder.NewLoad(info.fieldLLVMType(field), fieldPtr), nil
	}
}

// arrayElementPointer computes the address of base[index], handling both
// sized local-array storage (GEP [0,i]) and pointer-to-elements storage
// (GEP [i]), per §4.5 ArrayAccess lowering.
func (g *Generator) arrayElementPointer(basePtr value.Value, t ast.Type, index value.Value) (value.Value, ast.Type, error) {
	if t.Kind != ast.TArray {
		return nil, ast.Type{}, fmt.Errorf("type %s is not an array", t.String())
	}
	elemLLVM, err := g.convertType(*t.Elem)
	if err != nil {
		return nil, ast.Type{}, err
	}
	if t.Size != nil {
		arrType := types.NewArray(uint64(*t.Size), elemLLVM)
		ptr := g.builder.NewGetElementPtr(arrType, basePtr, i64(0), index)
		return ptr, *t.Elem, nil
	}
	loadedPtr := g.builder.NewLoad(types.NewPointer(elemLLVM), basePtr)
	ptr := g.builder.NewGetElementPtr(elemLLVM, loadedPtr, index)
	return ptr, *t.Elem, nil
}
