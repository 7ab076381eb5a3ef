package expr

import (
	"github.com/tomsik68/llvm2c/src/ctype"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// IfExpr lowers a branch terminator. An unconditional branch carries no
// condition and no false block.
type IfExpr struct {
	Cond  Expr // Nil for unconditional branches.
	True  BlockRef
	False BlockRef // Nil for unconditional branches.
}

// SwitchCase defines one switch arm with its signed 64-bit selector.
type SwitchCase struct {
	V      int64
	Target BlockRef
}

// SwitchExpr lowers a switch terminator. Case order follows the IR's case
// iteration.
type SwitchExpr struct {
	Cond    Expr
	Default BlockRef // May be nil.
	Cases   []SwitchCase
}

// AsmArg pairs a rendered constraint with its bound expression.
type AsmArg struct {
	Constraint string
	E          Expr // Nil for output slots that are not bound yet.
}

// AsmExpr is an inline assembly statement with parsed constraints.
type AsmExpr struct {
	Inst     string // Assembly template, unquoted; the writer adds the quotes.
	Output   []AsmArg
	Input    []AsmArg
	Clobbers string // Rendered clobber list, e.g. `"%rax", "%rbx"`.
}

// CallExpr calls a named function or a function pointer value.
type CallExpr struct {
	FuncName      string
	FuncValue     Expr // Non-nil for indirect calls; printed instead of FuncName.
	Params        []Expr
	RetType       ctype.Type
	IsFuncPointer bool
}

// PointerShift advances a pointer by an index, printed as
// *(((T)(ptr)) + move). A zero move collapses to the plain pointer.
type PointerShift struct {
	PtrType ctype.Type
	Pointer Expr
	Move    Expr
}

// GepExpr is typed pointer arithmetic through composite types. Earlier
// arguments track the walked types; only the last one is printed.
type GepExpr struct {
	Indices []Expr
	Typ     ctype.Type
}

// SelectExpr is the C conditional operator.
type SelectExpr struct {
	Cond  Expr
	Left  Expr
	Right Expr
}

// ---------------------
// ----- Functions -----
// ---------------------

func (*IfExpr) Type() ctype.Type { return &ctype.Void{} }
func (*IfExpr) IsSimple() bool   { return false }
func (e *IfExpr) Accept(v Visitor) { v.VisitIf(e) }

func (*SwitchExpr) Type() ctype.Type { return &ctype.Void{} }
func (*SwitchExpr) IsSimple() bool   { return false }
func (e *SwitchExpr) Accept(v Visitor) { v.VisitSwitch(e) }

func (*AsmExpr) Type() ctype.Type { return &ctype.Void{} }
func (*AsmExpr) IsSimple() bool   { return false }
func (e *AsmExpr) Accept(v Visitor) { v.VisitAsm(e) }

// AddOutputExpr binds the expression to the indexed output slot of the
// assembly statement. Consumers of multi-output asm rebind through this
// instead of emitting assignments.
func (e *AsmExpr) AddOutputExpr(out Expr, index int) {
	for i1 := range e.Output {
		if i1 == index {
			e.Output[i1].E = out
			return
		}
	}
}

func (e *CallExpr) Type() ctype.Type { return e.RetType }
func (*CallExpr) IsSimple() bool     { return false }
func (e *CallExpr) Accept(v Visitor) { v.VisitCall(e) }

func (e *PointerShift) Type() ctype.Type {
	if pt, ok := e.PtrType.(*ctype.Pointer); ok {
		return pt.Pointee
	}
	return e.PtrType
}
func (*PointerShift) IsSimple() bool     { return false }
func (e *PointerShift) Accept(v Visitor) { v.VisitPointerShift(e) }

func (e *GepExpr) Type() ctype.Type { return e.Typ }
func (*GepExpr) IsSimple() bool     { return false }
func (e *GepExpr) Accept(v Visitor) { v.VisitGep(e) }

// AddArg appends one walked index to the path.
func (e *GepExpr) AddArg(arg Expr) {
	e.Indices = append(e.Indices, arg)
}

// Last returns the printed form of the path: its last argument.
func (e *GepExpr) Last() Expr {
	if len(e.Indices) == 0 {
		return nil
	}
	return e.Indices[len(e.Indices)-1]
}

func (e *SelectExpr) Type() ctype.Type {
	if e.Left != nil {
		return e.Left.Type()
	}
	return &ctype.Void{}
}
func (*SelectExpr) IsSimple() bool     { return false }
func (e *SelectExpr) Accept(v Visitor) { v.VisitSelect(e) }
