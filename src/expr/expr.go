// Package expr defines the typed C expression nodes produced by the lifter.
// Nodes form a tagged hierarchy visited through a single Accept call; no node
// owns another node, children are weak references into the owning function's
// tables.
package expr

import (
	"github.com/tomsik68/llvm2c/src/ctype"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Expr is the interface implemented by all C expression nodes.
type Expr interface {
	// Type returns the C result type of the expression.
	Type() ctype.Type
	// IsSimple reports whether the writer may omit surrounding parentheses.
	IsSimple() bool
	// Accept dispatches the node to the matching visitor method.
	Accept(v Visitor)
}

// BlockRef abstracts the per-block statement list targeted by control flow
// nodes. The concrete block lives in the program context.
type BlockRef interface {
	// BlockName returns the C label of the block.
	BlockName() string
	// DoInline reports whether the block body is emitted in place of a goto.
	DoInline() bool
	// Statements returns the ordered statement list of the block.
	Statements() []Expr
}

// Visitor visits every expression node kind.
type Visitor interface {
	VisitStruct(e *Struct)
	VisitStructElement(e *StructElement)
	VisitArrayElement(e *ArrayElement)
	VisitExtractValue(e *ExtractValueExpr)
	VisitValue(e *Value)
	VisitGlobalValue(e *GlobalValue)
	VisitIf(e *IfExpr)
	VisitSwitch(e *SwitchExpr)
	VisitAsm(e *AsmExpr)
	VisitCall(e *CallExpr)
	VisitPointerShift(e *PointerShift)
	VisitGep(e *GepExpr)
	VisitSelect(e *SelectExpr)
	VisitRef(e *RefExpr)
	VisitDeref(e *DerefExpr)
	VisitRet(e *RetExpr)
	VisitCast(e *CastExpr)
	VisitAdd(e *AddExpr)
	VisitSub(e *SubExpr)
	VisitAssign(e *AssignExpr)
	VisitMul(e *MulExpr)
	VisitDiv(e *DivExpr)
	VisitRem(e *RemExpr)
	VisitAnd(e *AndExpr)
	VisitOr(e *OrExpr)
	VisitXor(e *XorExpr)
	VisitCmp(e *CmpExpr)
	VisitAshr(e *AshrExpr)
	VisitLshr(e *LshrExpr)
	VisitShl(e *ShlExpr)
	VisitStackAlloc(e *StackAlloc)
}
