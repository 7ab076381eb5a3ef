package expr

import (
	"github.com/tomsik68/llvm2c/src/ctype"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// binary carries the two children shared by all binary nodes. The result
// type follows the left operand.
type binary struct {
	Left  Expr
	Right Expr
}

// AddExpr is C addition.
type AddExpr struct{ binary }

// SubExpr is C subtraction.
type SubExpr struct{ binary }

// MulExpr is C multiplication.
type MulExpr struct{ binary }

// DivExpr is C division.
type DivExpr struct{ binary }

// RemExpr is C remainder.
type RemExpr struct{ binary }

// AndExpr is C bitwise and.
type AndExpr struct{ binary }

// OrExpr is C bitwise or.
type OrExpr struct{ binary }

// XorExpr is C bitwise xor.
type XorExpr struct{ binary }

// ShlExpr is C shift left.
type ShlExpr struct{ binary }

// AshrExpr is C arithmetic shift right.
type AshrExpr struct{ binary }

// LshrExpr is logical shift right. The writer casts the left operand to its
// unsigned form, the one place where C semantics diverge from the IR opcode.
type LshrExpr struct{ binary }

// AssignExpr assigns the right expression to the left one.
type AssignExpr struct{ binary }

// CmpExpr compares two expressions with the given C operator.
type CmpExpr struct {
	binary
	Comparison string // One of ==, !=, <, <=, >, >=.
	Unsigned   bool
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewAdd returns an addition node.
func NewAdd(left, right Expr) *AddExpr { return &AddExpr{binary{left, right}} }

// NewSub returns a subtraction node.
func NewSub(left, right Expr) *SubExpr { return &SubExpr{binary{left, right}} }

// NewMul returns a multiplication node.
func NewMul(left, right Expr) *MulExpr { return &MulExpr{binary{left, right}} }

// NewDiv returns a division node.
func NewDiv(left, right Expr) *DivExpr { return &DivExpr{binary{left, right}} }

// NewRem returns a remainder node.
func NewRem(left, right Expr) *RemExpr { return &RemExpr{binary{left, right}} }

// NewAnd returns a bitwise and node.
func NewAnd(left, right Expr) *AndExpr { return &AndExpr{binary{left, right}} }

// NewOr returns a bitwise or node.
func NewOr(left, right Expr) *OrExpr { return &OrExpr{binary{left, right}} }

// NewXor returns a bitwise xor node.
func NewXor(left, right Expr) *XorExpr { return &XorExpr{binary{left, right}} }

// NewShl returns a shift left node.
func NewShl(left, right Expr) *ShlExpr { return &ShlExpr{binary{left, right}} }

// NewAshr returns an arithmetic shift right node.
func NewAshr(left, right Expr) *AshrExpr { return &AshrExpr{binary{left, right}} }

// NewLshr returns a logical shift right node.
func NewLshr(left, right Expr) *LshrExpr { return &LshrExpr{binary{left, right}} }

// NewAssign returns an assignment node.
func NewAssign(left, right Expr) *AssignExpr { return &AssignExpr{binary{left, right}} }

// NewCmp returns a comparison node with the given C operator.
func NewCmp(left, right Expr, comparison string, unsigned bool) *CmpExpr {
	return &CmpExpr{binary: binary{left, right}, Comparison: comparison, Unsigned: unsigned}
}

func (b *binary) Type() ctype.Type {
	if b.Left != nil {
		return b.Left.Type()
	}
	return &ctype.Void{}
}
func (*binary) IsSimple() bool { return false }

func (e *AddExpr) Accept(v Visitor)    { v.VisitAdd(e) }
func (e *SubExpr) Accept(v Visitor)    { v.VisitSub(e) }
func (e *MulExpr) Accept(v Visitor)    { v.VisitMul(e) }
func (e *DivExpr) Accept(v Visitor)    { v.VisitDiv(e) }
func (e *RemExpr) Accept(v Visitor)    { v.VisitRem(e) }
func (e *AndExpr) Accept(v Visitor)    { v.VisitAnd(e) }
func (e *OrExpr) Accept(v Visitor)     { v.VisitOr(e) }
func (e *XorExpr) Accept(v Visitor)    { v.VisitXor(e) }
func (e *ShlExpr) Accept(v Visitor)    { v.VisitShl(e) }
func (e *AshrExpr) Accept(v Visitor)   { v.VisitAshr(e) }
func (e *LshrExpr) Accept(v Visitor)   { v.VisitLshr(e) }
func (e *AssignExpr) Accept(v Visitor) { v.VisitAssign(e) }

func (e *CmpExpr) Type() ctype.Type { return &ctype.Int{Width: 32} }
func (e *CmpExpr) Accept(v Visitor) { v.VisitCmp(e) }
