// Package runtime provides the value representation and allocation-ledger
// model shared by the interpreter oracle and, as documentation of the
// code generator's compile-time bookkeeping, the codegen package (§5).
//
// Noxy has no garbage collector (§9 REDESIGN FLAGS): the code generator's
// LLVM IR tracks heap allocations in a fixed-capacity ledger freed in bulk
// when the synthesized `main` returns, rather than the teacher's
// concurrent, reference-counted GCManager. Ledger here is the single-
// threaded Go-side model of that same discipline, used by the interpreter
// to reproduce ledger-overflow as a runtime error during testing.
package runtime

import "fmt"

// Kind tags which field of a Value is meaningful.
type Kind int

const (
	Int Kind = iota
	Float
	String
	Bool
	Null
	Array
	Struct
	Reference
)

// Value is the tagged runtime value the interpreter oracle operates on.
type Value struct {
	Kind Kind

	I int64
	F float64
	S string
	B bool

	Elem   []Value          // Array
	Fields map[string]Value // Struct
	Type   string           // Struct name

	Ref *Value // Reference target; nil means a null reference
}

func NewInt(i int64) Value    { return Value{Kind: Int, I: i} }
func NewFloat(f float64) Value { return Value{Kind: Float, F: f} }
func NewString(s string) Value { return Value{Kind: String, S: s} }
func NewBool(b bool) Value    { return Value{Kind: Bool, B: b} }
func NewNull() Value          { return Value{Kind: Null} }
func NewArray(elems []Value) Value { return Value{Kind: Array, Elem: elems} }
func NewStruct(typ string, fields map[string]Value) Value {
	return Value{Kind: Struct, Type: typ, Fields: fields}
}
func NewReference(target *Value) Value { return Value{Kind: Reference, Ref: target} }

func (v Value) IsNull() bool { return v.Kind == Null || (v.Kind == Reference && v.Ref == nil) }

func (v Value) AsInt() int64 {
	switch v.Kind {
	case Int:
		return v.I
	case Float:
		return int64(v.F)
	case Bool:
		if v.B {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func (v Value) AsFloat() float64 {
	switch v.Kind {
	case Float:
		return v.F
	case Int:
		return float64(v.I)
	default:
		return 0
	}
}

func (v Value) AsBool() bool {
	switch v.Kind {
	case Bool:
		return v.B
	case Int:
		return v.I != 0
	case Float:
		return v.F != 0
	case Null:
		return false
	case Reference:
		return v.Ref != nil
	default:
		return true
	}
}

// AsString renders v the way the generated Print/FString lowering would
// (§4.5): integers render with %d and floats with %f (six decimals, like
// Print's printf format), booleans render as "true"/"false", arrays render
// as "[e1, e2, …]".
func (v Value) AsString() string {
	switch v.Kind {
	case String:
		return v.S
	case Int:
		return fmt.Sprintf("%d", v.I)
	case Float:
		return fmt.Sprintf("%f", v.F)
	case Bool:
		if v.B {
			return "true"
		}
		return "false"
	case Null:
		return "null"
	case Array:
		out := "["
		for i, e := range v.Elem {
			if i > 0 {
				out += ", "
			}
			out += e.AsString()
		}
		return out + "]"
	case Struct:
		return v.Type
	case Reference:
		if v.Ref == nil {
			return "null"
		}
		return v.Ref.AsString()
	default:
		return ""
	}
}
