// Package ast defines the Noxy abstract syntax tree.
//
// Every node is a tagged, flat struct (Expr, Stmt) rather than an open
// interface hierarchy: a Kind field selects which of the struct's fields
// are meaningful, and every consumer switches exhaustively over Kind. This
// keeps the parser, semantic checker and code generator free of dynamic
// type assertions or reflection-based dispatch.
package ast

import "fmt"

// Pos is the (line, column, source line) triple every node carries for
// diagnostics.
type Pos struct {
	Line       int
	Column     int
	SourceLine string
}

// TypeKind is the closed sum of Noxy types (§3).
type TypeKind int

const (
	TInt TypeKind = iota
	TFloat
	TString
	TBool
	TVoid
	TNull
	TArray
	TFunction
	TStruct
	TReference
)

// StructField is one field of a Struct type, in declaration order.
type StructField struct {
	Name string
	Type Type
}

// Type is the closed type sum described in spec.md §3. Struct{name,fields}
// compares equal to another Struct iff the names match; Array{element,size}
// has an optional Size (nil means heap/dynamic).
type Type struct {
	Kind TypeKind

	// TArray
	Elem *Type
	Size *int // nil => unsized/heap array

	// TFunction
	Params []Type
	Return *Type

	// TStruct
	StructName string
	Fields     []StructField

	// TReference
	Target  *Type
	Mutable bool
}

// Equal implements the type-equality rule of §3: struct types compare by
// name only; everything else compares structurally.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TArray:
		if !t.Elem.Equal(*o.Elem) {
			return false
		}
		if (t.Size == nil) != (o.Size == nil) {
			return false
		}
		return t.Size == nil || *t.Size == *o.Size
	case TStruct:
		return t.StructName == o.StructName
	case TReference:
		return t.Target.Equal(*o.Target)
	case TFunction:
		if len(t.Params) != len(o.Params) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(o.Params[i]) {
				return false
			}
		}
		return t.Return.Equal(*o.Return)
	default:
		return true
	}
}

func (t Type) String() string {
	switch t.Kind {
	case TInt:
		return "int"
	case TFloat:
		return "float"
	case TString:
		return "string"
	case TBool:
		return "bool"
	case TVoid:
		return "void"
	case TNull:
		return "null"
	case TArray:
		if t.Size != nil {
			return fmt.Sprintf("%s[%d]", t.Elem, *t.Size)
		}
		return fmt.Sprintf("%s[]", t.Elem)
	case TStruct:
		return t.StructName
	case TReference:
		return "ref " + t.Target.String()
	case TFunction:
		return fmt.Sprintf("func(%v)->%s", t.Params, t.Return)
	default:
		return "?"
	}
}

// IsNumeric reports whether the type participates in arithmetic promotion.
func (t Type) IsNumeric() bool { return t.Kind == TInt || t.Kind == TFloat }

// Basic type constructors, used pervasively by parser and checker.
func Int() Type    { return Type{Kind: TInt} }
func Float() Type  { return Type{Kind: TFloat} }
func Str() Type    { return Type{Kind: TString} }
func Bool() Type   { return Type{Kind: TBool} }
func Void() Type   { return Type{Kind: TVoid} }
func Null() Type   { return Type{Kind: TNull} }
func Struct(name string) Type { return Type{Kind: TStruct, StructName: name} }
func Array(elem Type, size *int) Type { return Type{Kind: TArray, Elem: &elem, Size: size} }
func Ref(target Type, mutable bool) Type {
	return Type{Kind: TReference, Target: &target, Mutable: mutable}
}

// ExprKind tags which fields of Expr are meaningful.
type ExprKind int

const (
	ExprNumber ExprKind = iota
	ExprFloat
	ExprString
	ExprFString
	ExprBool
	ExprNull
	ExprIdentifier

	ExprArray
	ExprZeros
	ExprArrayAccess
	ExprStructAccess
	ExprStructAccessFromArray
	ExprStringCharAccess

	ExprBinaryOp
	ExprUnaryOp
	ExprCast
	ExprConcat
	ExprReference

	ExprCall
	ExprStructConstructor
)

// FStringPart is one part of a parsed FString expression: either literal
// text (Expr == nil) or an embedded expression with an optional format spec.
type FStringPart struct {
	Literal string
	Expr    *Expr
	Spec    string
	HasSpec bool
}

// Expr is every Noxy expression node, tagged by Kind (§3 "Literals &
// lvalues", "Aggregates", "Operators").
type Expr struct {
	Pos
	Kind ExprKind

	IntVal    int64
	FloatVal  float64
	StrVal    string
	BoolVal   bool
	FString   []FStringPart

	Name string // Identifier name, ArrayAccess base name, Call/StructConstructor name

	Elements  []Expr // Array literal elements
	ElemType  *Type  // declared element type for Array/Zeros, when annotated
	SizeExpr  *Expr  // Zeros(size) / sized-array bound

	Index     *Expr // ArrayAccess index, StringCharAccess index
	Base      *Expr // StructAccess base expression, StructAccessFromArray's ArrayAccess
	FieldPath []string // StructAccess / StructAccessFromArray dotted field chain

	Op      string // BinaryOp / UnaryOp operator
	Left    *Expr
	Right   *Expr
	Operand *Expr // UnaryOp operand, Cast source, Reference target

	TargetType *Type // Cast target type

	Args []Expr // Call / StructConstructor arguments
}

// StmtKind tags which fields of Stmt are meaningful.
type StmtKind int

const (
	StmtAssignment StmtKind = iota
	StmtArrayAssignment
	StmtArrayFieldAssignment
	StmtStructAssignment
	StmtNestedStructAssignment

	StmtIf
	StmtWhile
	StmtReturn
	StmtBreak
	StmtPrint
	StmtExpr // bare Call / StructConstructor used as a statement

	StmtStructDef
	StmtFuncDef
	StmtUse
)

// Param is one function parameter.
type Param struct {
	Name string
	Type Type
}

// StructDefinition declares a struct type (§4.5 struct table).
type StructDefinition struct {
	Pos
	Name   string
	Fields []StructField
}

// Function is a top-level function definition.
type Function struct {
	Pos
	Name   string
	Params []Param
	Return Type
	Body   []Stmt
}

// Use is a `use` statement (§4.3 Module Resolver).
type Use struct {
	Pos
	Module    string
	Selected  []string // non-nil for `use M select s1, s2`
	ImportAll bool      // true for `use M select *`
}

// Stmt is every Noxy statement, including the top-level definitions
// (StructDefinition, Function, Use) so that Program.Statements can preserve
// strict textual order across globals, control flow, and definitions, as
// required when synthesizing the program entry (§4.5 step 4).
type Stmt struct {
	Pos
	Kind StmtKind

	Target    string   // Assignment/ArrayAssignment/StructAssignment name
	DeclType  *Type    // Assignment declared type, if given
	Value     *Expr    // Assignment value, Return value, Print expr, StmtExpr call
	IsGlobal  bool     // Assignment: declared at depth 0
	Index     *Expr    // ArrayAssignment / ArrayFieldAssignment index
	FieldPath []string // StructAssignment / NestedStructAssignment / ArrayFieldAssignment path

	Cond *Expr
	Then []Stmt
	Else []Stmt
	Body []Stmt

	StructDef *StructDefinition
	FuncDef   *Function
	UseDecl   *Use
}

// Program is the root AST node: the full ordered list of top-level
// statements in a single source file.
type Program struct {
	Statements []Stmt
}
