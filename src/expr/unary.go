package expr

import (
	"github.com/tomsik68/llvm2c/src/ctype"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// StructItem defines one member of a struct definition.
type StructItem struct {
	Typ  ctype.Type
	Name string
}

// Struct defines a C struct definition owned by the program context.
type Struct struct {
	Name    string
	Items   []StructItem
	Printed bool // Set once the definition has been emitted.
}

// StructElement accesses one member of a struct value or pointer.
type StructElement struct {
	Strct   *Struct
	Base    Expr
	Element int   // Member index into Strct.Items.
	Move    int64 // Pointer offset applied before member selection.
}

// ArrayElement subscripts an array expression.
type ArrayElement struct {
	Base    Expr
	Element Expr // Index expression.
	Typ     ctype.Type
}

// ExtractValueExpr walks an aggregate along a chain of member and element
// accesses; it prints as the last link of the chain.
type ExtractValueExpr struct {
	Indices []Expr
}

// Value is a named C value: a local variable, a literal or a synthesized
// name. Init drives first-declaration printing.
type Value struct {
	Name string
	Typ  ctype.Type
	Init bool
}

// GlobalValue is a named global variable with its textual initializer.
type GlobalValue struct {
	Value
	InitValue string
}

// RefExpr takes the address of its inner expression.
type RefExpr struct {
	E   Expr
	Typ ctype.Type
}

// DerefExpr dereferences its inner expression.
type DerefExpr struct {
	E   Expr
	Typ ctype.Type
}

// RetExpr returns from the enclosing function, with an optional value.
type RetExpr struct {
	E Expr // May be nil for void returns.
}

// CastExpr converts its inner expression to the target type.
type CastExpr struct {
	E   Expr
	Typ ctype.Type
}

// StackAlloc declares a stack variable at statement position.
type StackAlloc struct {
	Val *Value
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewRef returns an address-of node for the given expression.
func NewRef(e Expr) *RefExpr {
	return &RefExpr{E: e, Typ: &ctype.Pointer{Pointee: e.Type(), Levels: 1}}
}

// NewDeref returns a dereference node for the given expression. The result
// type is the pointee when the inner type is a plain pointer.
func NewDeref(e Expr) *DerefExpr {
	d := &DerefExpr{E: e}
	if pt, ok := e.Type().(*ctype.Pointer); ok && !pt.IsFuncPointer {
		if pt.Levels > 1 {
			inner := *pt
			inner.Levels--
			d.Typ = &inner
		} else {
			d.Typ = pt.Pointee
		}
	} else {
		d.Typ = e.Type()
	}
	return d
}

func (e *Struct) Type() ctype.Type { return &ctype.Struct{Name: e.Name} }
func (*Struct) IsSimple() bool     { return false }
func (e *Struct) Accept(v Visitor) { v.VisitStruct(e) }

// AddItem appends a member with the given type and name to the definition.
func (e *Struct) AddItem(t ctype.Type, name string) {
	e.Items = append(e.Items, StructItem{Typ: t, Name: name})
}

func (e *StructElement) Type() ctype.Type {
	if e.Element < len(e.Strct.Items) {
		return e.Strct.Items[e.Element].Typ
	}
	return &ctype.Void{}
}
func (*StructElement) IsSimple() bool     { return true }
func (e *StructElement) Accept(v Visitor) { v.VisitStructElement(e) }

func (e *ArrayElement) Type() ctype.Type { return e.Typ }
func (*ArrayElement) IsSimple() bool     { return true }
func (e *ArrayElement) Accept(v Visitor) { v.VisitArrayElement(e) }

func (e *ExtractValueExpr) Type() ctype.Type {
	if len(e.Indices) == 0 {
		return &ctype.Void{}
	}
	return e.Indices[len(e.Indices)-1].Type()
}
func (*ExtractValueExpr) IsSimple() bool     { return true }
func (e *ExtractValueExpr) Accept(v Visitor) { v.VisitExtractValue(e) }

func (e *Value) Type() ctype.Type { return e.Typ }
func (*Value) IsSimple() bool     { return true }
func (e *Value) Accept(v Visitor) { v.VisitValue(e) }

func (e *GlobalValue) Accept(v Visitor) { v.VisitGlobalValue(e) }

func (e *RefExpr) Type() ctype.Type { return e.Typ }
func (*RefExpr) IsSimple() bool     { return true }
func (e *RefExpr) Accept(v Visitor) { v.VisitRef(e) }

func (e *DerefExpr) Type() ctype.Type { return e.Typ }
func (*DerefExpr) IsSimple() bool     { return true }
func (e *DerefExpr) Accept(v Visitor) { v.VisitDeref(e) }

func (e *RetExpr) Type() ctype.Type {
	if e.E == nil {
		return &ctype.Void{}
	}
	return e.E.Type()
}
func (*RetExpr) IsSimple() bool     { return false }
func (e *RetExpr) Accept(v Visitor) { v.VisitRet(e) }

func (e *CastExpr) Type() ctype.Type { return e.Typ }
func (*CastExpr) IsSimple() bool     { return false }
func (e *CastExpr) Accept(v Visitor) { v.VisitCast(e) }

func (e *StackAlloc) Type() ctype.Type { return e.Val.Typ }
func (*StackAlloc) IsSimple() bool     { return false }
func (e *StackAlloc) Accept(v Visitor) { v.VisitStackAlloc(e) }
