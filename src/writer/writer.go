// Package writer renders a translated program as C11 source. It is a single
// read-only pass over the expression tree; all mutation it performs is
// limited to the first-declaration and struct-printed bookkeeping flags.
package writer

import (
	"fmt"

	"github.com/tomsik68/llvm2c/src/core"
	"github.com/tomsik68/llvm2c/src/ctype"
	"github.com/tomsik68/llvm2c/src/expr"
	"github.com/tomsik68/llvm2c/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Writer emits a Program as C text through the buffered output writer.
type Writer struct {
	out *util.Writer
	p   *core.Program
}

// ---------------------
// ----- Functions -----
// ---------------------

// New returns a writer rendering the given program.
func New(out *util.Writer, p *core.Program) *Writer {
	return &Writer{out: out, p: p}
}

// WriteProgram emits the whole program: the include prologue, function
// declarations, struct definitions in dependency order, global definitions
// and function definitions.
func (w *Writer) WriteProgram() {
	w.p.UnsetAllInit()
	w.writeIncludes()
	w.writeDeclarations()
	w.writeStructs()
	w.writeGlobals()
	w.writeFunctions()
}

// writeIncludes emits the prologue. stdarg.h follows the module's vararg
// flag; the remaining headers are emitted in includes mode when the matching
// standard-name heuristic fired.
func (w *Writer) writeIncludes() {
	any := false
	if w.p.HasVarArg {
		w.out.WriteString("#include <stdarg.h>\n")
		any = true
	}
	if w.p.Includes {
		if w.p.HasString {
			w.out.WriteString("#include <string.h>\n")
			any = true
		}
		if w.p.HasStdio {
			w.out.WriteString("#include <stdio.h>\n")
			any = true
		}
		if w.p.HasStdLib {
			w.out.WriteString("#include <stdlib.h>\n")
			any = true
		}
		if w.p.HasPthread {
			w.out.WriteString("#include <pthread.h>\n")
			any = true
		}
	}
	if any {
		w.out.Newline()
	}
}

// writeDeclarations emits one prototype per declared function.
func (w *Writer) writeDeclarations() {
	for _, e1 := range w.p.Declarations {
		w.out.WriteString(typeString(e1.RetType))
		w.out.WriteString(" ")
		w.out.WriteString(e1.Name)
		w.out.WriteString("(")
		for i1, e2 := range e1.Params {
			if i1 > 0 {
				w.out.WriteString(", ")
			}
			w.out.WriteString(typeString(e2.Typ))
		}
		if e1.VarArg {
			if len(e1.Params) > 0 {
				w.out.WriteString(", ")
			}
			w.out.WriteString("...")
		}
		w.out.WriteString(");\n")
	}
	if len(w.p.Declarations) > 0 {
		w.out.Newline()
	}
}

// writeStructs emits struct definitions so that every struct a definition
// references, directly or as an array element, is emitted first. Cycles are
// not supported; the input is assumed acyclic.
func (w *Writer) writeStructs() {
	for _, e1 := range w.p.Structs() {
		if e1.Printed {
			continue
		}
		st := util.Stack{}
		st.Push(e1)
		for st.Size() > 0 {
			cur := st.Peek().(*expr.Struct)
			if dep := w.unprintedDep(cur); dep != nil {
				st.Push(dep)
				continue
			}
			if !cur.Printed {
				cur.Accept(w)
				w.out.WriteString("\n\n")
				cur.Printed = true
			}
			st.Pop()
		}
	}
}

// unprintedDep returns a struct referenced by cur that has not been emitted
// yet, nil when cur is ready.
func (w *Writer) unprintedDep(cur *expr.Struct) *expr.Struct {
	for _, e1 := range cur.Items {
		t := e1.Typ
		if at, ok := t.(*ctype.Array); ok {
			t = at.Elem
		}
		if sref, ok := t.(*ctype.Struct); ok {
			dep := w.p.GetStruct(sref.Name)
			if dep != nil && dep != cur && !dep.Printed {
				return dep
			}
		}
	}
	return nil
}

// writeGlobals emits global definitions with their loader-formed
// initializers.
func (w *Writer) writeGlobals() {
	for _, e1 := range w.p.GlobalVars {
		if e1.Init {
			continue
		}
		w.out.WriteString(ctype.SurroundName(e1.Typ, e1.Name))
		if len(e1.InitValue) > 0 {
			w.out.WriteString(" = ")
			w.out.WriteString(e1.InitValue)
		}
		w.out.WriteString(";\n")
		e1.Init = true
	}
	if len(w.p.GlobalVars) > 0 {
		w.out.Newline()
	}
}

// writeFunctions emits every function definition: header, labelled blocks
// and statements. Blocks picked for inlining are emitted at their branch
// sites instead.
func (w *Writer) writeFunctions() {
	for _, e1 := range w.p.Definitions {
		w.out.WriteString(typeString(e1.RetType))
		w.out.WriteString(" ")
		w.out.WriteString(e1.Name)
		w.out.WriteString("(")
		for i1, e2 := range e1.Params {
			if i1 > 0 {
				w.out.WriteString(", ")
			}
			w.out.WriteString(ctype.SurroundName(e2.Typ, e2.Name))
		}
		if e1.VarArg {
			if len(e1.Params) > 0 {
				w.out.WriteString(", ")
			}
			w.out.WriteString("...")
		}
		w.out.WriteString(") {\n")
		if e1.StackIgnored {
			w.out.WriteString("    // stack save/restore elided\n")
		}
		for i1, e2 := range e1.BlockList {
			if i1 > 0 {
				if e2.DoInline() {
					continue
				}
				w.out.Label(e2.BlockName())
			}
			for _, e3 := range e2.Statements() {
				w.emitStatement(e3)
			}
		}
		w.out.WriteString("}\n\n")
	}
}

// emitStatement renders one statement list entry. First appearances of
// values emit their declarator; assignments into undeclared values fold the
// declaration into the assignment.
func (w *Writer) emitStatement(e expr.Expr) {
	switch s := e.(type) {
	case *expr.IfExpr, *expr.SwitchExpr:
		w.out.Indent()
		e.Accept(w)
	case *expr.Value:
		if !s.Init {
			w.out.Line(ctype.SurroundName(s.Typ, s.Name))
			s.Init = true
		}
	case *expr.StackAlloc:
		w.out.Indent()
		e.Accept(w)
		w.out.WriteString(";\n")
	case *expr.AssignExpr:
		if lv, ok := s.Left.(*expr.Value); ok && !lv.Init {
			w.out.Indent()
			w.out.WriteString(ctype.SurroundName(lv.Typ, lv.Name))
			lv.Init = true
			w.out.WriteString(" = ")
			s.Right.Accept(w)
			w.out.WriteString(";\n")
			return
		}
		w.out.Indent()
		e.Accept(w)
		w.out.WriteString(";\n")
	default:
		w.out.Indent()
		e.Accept(w)
		w.out.WriteString(";\n")
	}
}

// gotoOrInline renders a branch target: the block's statements in place when
// it is picked for inlining, a goto otherwise.
func (w *Writer) gotoOrInline(b expr.BlockRef) {
	if b == nil {
		return
	}
	if b.DoInline() {
		w.out.WriteString("{ // ")
		w.out.WriteString(b.BlockName())
		w.out.Newline()
		for _, e1 := range b.Statements() {
			w.emitStatement(e1)
		}
		w.out.WriteString("    }\n")
		return
	}
	w.out.WriteString("goto ")
	w.out.WriteString(b.BlockName())
	w.out.WriteString(";\n")
}

// parensIfNotSimple wraps composite children in parentheses.
func (w *Writer) parensIfNotSimple(e expr.Expr) {
	if e.IsSimple() {
		e.Accept(w)
		return
	}
	w.out.WriteString("(")
	e.Accept(w)
	w.out.WriteString(")")
}

// parensUnlessName wraps every child that is not a bare name in
// parentheses. Used where C member access and dereference precedence
// requires it even for simple children.
func (w *Writer) parensUnlessName(e expr.Expr) {
	switch e.(type) {
	case *expr.Value, *expr.GlobalValue:
		e.Accept(w)
		return
	}
	w.out.WriteString("(")
	e.Accept(w)
	w.out.WriteString(")")
}

// typeString renders a type without a declared name.
func typeString(t ctype.Type) string {
	return t.String() + t.Suffix()
}

// binaryOp renders one infix binary node.
func (w *Writer) binaryOp(left expr.Expr, op string, right expr.Expr) {
	w.parensIfNotSimple(left)
	w.out.WriteString(" ")
	w.out.WriteString(op)
	w.out.WriteString(" ")
	w.parensIfNotSimple(right)
}

// VisitStruct emits a struct definition with all member declarators.
func (w *Writer) VisitStruct(e *expr.Struct) {
	w.out.WriteString("struct ")
	w.out.WriteString(e.Name)
	w.out.WriteString(" {\n")
	for _, e1 := range e.Items {
		w.out.Line(ctype.SurroundName(e1.Typ, e1.Name))
	}
	w.out.WriteString("};")
}

// VisitStructElement emits a member access, arrow through pointers, dot
// otherwise.
func (w *Writer) VisitStructElement(e *expr.StructElement) {
	if _, ok := e.Base.Type().(*ctype.Pointer); ok {
		if e.Move != 0 {
			w.out.WriteString("(")
			w.parensUnlessName(e.Base)
			w.out.WriteString(fmt.Sprintf(" + %d)", e.Move))
		} else {
			w.parensUnlessName(e.Base)
		}
		w.out.WriteString("->")
	} else {
		w.parensUnlessName(e.Base)
		w.out.WriteString(".")
	}
	if e.Element < len(e.Strct.Items) {
		w.out.WriteString(e.Strct.Items[e.Element].Name)
	}
}

// VisitArrayElement emits an array subscript.
func (w *Writer) VisitArrayElement(e *expr.ArrayElement) {
	w.parensUnlessName(e.Base)
	w.out.WriteString("[")
	e.Element.Accept(w)
	w.out.WriteString("]")
}

// VisitExtractValue emits the last link of the access chain.
func (w *Writer) VisitExtractValue(e *expr.ExtractValueExpr) {
	if len(e.Indices) == 0 {
		return
	}
	e.Indices[len(e.Indices)-1].Accept(w)
}

// VisitValue emits the value's name.
func (w *Writer) VisitValue(e *expr.Value) {
	w.out.WriteString(e.Name)
}

// VisitGlobalValue emits the global's name.
func (w *Writer) VisitGlobalValue(e *expr.GlobalValue) {
	w.out.WriteString(e.Name)
}

// VisitIf emits a conditional with goto-or-inline branches, or the bare
// branch for unconditional jumps.
func (w *Writer) VisitIf(e *expr.IfExpr) {
	if e.Cond == nil {
		w.gotoOrInline(e.True)
		return
	}
	w.out.WriteString("if (")
	e.Cond.Accept(w)
	w.out.WriteString(") {\n")
	w.out.WriteString("        ")
	w.gotoOrInline(e.True)
	w.out.WriteString("    } else {\n")
	w.out.WriteString("        ")
	w.gotoOrInline(e.False)
	w.out.WriteString("    }\n")
}

// VisitSwitch emits a switch preserving case order.
func (w *Writer) VisitSwitch(e *expr.SwitchExpr) {
	w.out.WriteString("switch (")
	e.Cond.Accept(w)
	w.out.WriteString(") {\n")
	for _, e1 := range e.Cases {
		w.out.WriteString(fmt.Sprintf("    case %d: ", e1.V))
		w.gotoOrInline(e1.Target)
	}
	if e.Default != nil {
		w.out.WriteString("    default: ")
		w.gotoOrInline(e.Default)
	}
	w.out.WriteString("    }\n")
}

// VisitAsm emits an extended inline assembly expression. Empty trailing
// sections are omitted.
func (w *Writer) VisitAsm(e *expr.AsmExpr) {
	w.out.WriteString("__asm__(\"")
	w.out.WriteString(e.Inst)
	w.out.WriteString("\"")

	sections := 0
	if len(e.Clobbers) > 0 {
		sections = 3
	} else if len(e.Input) > 0 {
		sections = 2
	} else if len(e.Output) > 0 {
		sections = 1
	}

	if sections >= 1 {
		w.out.WriteString(" : ")
		first := true
		for _, e1 := range e.Output {
			if e1.E == nil {
				break
			}
			if !first {
				w.out.WriteString(", ")
			}
			first = false
			w.out.WriteString(e1.Constraint)
			w.out.WriteString(" (")
			e1.E.Accept(w)
			w.out.WriteString(")")
		}
	}
	if sections >= 2 {
		w.out.WriteString(" : ")
		first := true
		for _, e1 := range e.Input {
			if !first {
				w.out.WriteString(", ")
			}
			first = false
			w.out.WriteString(e1.Constraint)
			w.out.WriteString(" (")
			e1.E.Accept(w)
			w.out.WriteString(")")
		}
	}
	if sections >= 3 {
		w.out.WriteString(" : ")
		w.out.WriteString(e.Clobbers)
	}
	w.out.WriteString(")")
}

// VisitCall emits a function call. Calls through pointer values print the
// callee expression, with cast chains stripped in no-func-casts mode.
// va_start and va_end cast their first argument through void* to match the
// macro signatures.
func (w *Writer) VisitCall(e *expr.CallExpr) {
	isVaFunc := e.FuncName == "va_start" || e.FuncName == "va_end"

	if e.FuncValue != nil {
		w.out.WriteString("(")
		call := e.FuncValue
		if w.p.NoFuncCasts {
			// Strip all the casts.
			for {
				cast, ok := call.(*expr.CastExpr)
				if !ok {
					break
				}
				call = cast.E
			}
		}
		call.Accept(w)
		w.out.WriteString(")")
	} else {
		w.out.WriteString(e.FuncName)
	}

	w.out.WriteString("(")
	for i1, e1 := range e.Params {
		if i1 > 0 {
			w.out.WriteString(", ")
		}
		if i1 == 0 && isVaFunc {
			w.out.WriteString("(void*)(")
			e1.Accept(w)
			w.out.WriteString(")")
			continue
		}
		e1.Accept(w)
	}
	w.out.WriteString(")")
}

// VisitPointerShift emits pointer arithmetic through a cast; a zero move
// collapses to the plain pointer.
func (w *Writer) VisitPointerShift(e *expr.PointerShift) {
	if v, ok := e.Move.(*expr.Value); ok && v.Name == "0" {
		e.Pointer.Accept(w)
		return
	}
	w.out.WriteString("*(((")
	w.out.WriteString(typeString(e.PtrType))
	w.out.WriteString(")(")
	e.Pointer.Accept(w)
	w.out.WriteString(")) + ")
	w.parensIfNotSimple(e.Move)
	w.out.WriteString(")")
}

// VisitGep emits the last argument of the path; earlier arguments only
// track types.
func (w *Writer) VisitGep(e *expr.GepExpr) {
	last := e.Last()
	if last == nil {
		return
	}
	last.Accept(w)
}

// VisitSelect emits the C conditional operator.
func (w *Writer) VisitSelect(e *expr.SelectExpr) {
	w.parensIfNotSimple(e.Cond)
	w.out.WriteString(" ? ")
	w.parensIfNotSimple(e.Left)
	w.out.WriteString(" : ")
	w.parensIfNotSimple(e.Right)
}

// VisitRef emits an address-of.
func (w *Writer) VisitRef(e *expr.RefExpr) {
	w.out.WriteString("&")
	w.parensUnlessName(e.E)
}

// VisitDeref emits a dereference.
func (w *Writer) VisitDeref(e *expr.DerefExpr) {
	w.out.WriteString("*")
	w.parensUnlessName(e.E)
}

// VisitRet emits a return statement.
func (w *Writer) VisitRet(e *expr.RetExpr) {
	w.out.WriteString("return")
	if e.E != nil {
		w.out.WriteString(" ")
		e.E.Accept(w)
	}
}

// VisitCast emits a C cast.
func (w *Writer) VisitCast(e *expr.CastExpr) {
	w.out.WriteString("(")
	w.out.WriteString(typeString(e.Typ))
	w.out.WriteString(")")
	w.parensIfNotSimple(e.E)
}

func (w *Writer) VisitAdd(e *expr.AddExpr) { w.binaryOp(e.Left, "+", e.Right) }
func (w *Writer) VisitSub(e *expr.SubExpr) { w.binaryOp(e.Left, "-", e.Right) }
func (w *Writer) VisitMul(e *expr.MulExpr) { w.binaryOp(e.Left, "*", e.Right) }
func (w *Writer) VisitDiv(e *expr.DivExpr) { w.binaryOp(e.Left, "/", e.Right) }
func (w *Writer) VisitRem(e *expr.RemExpr) { w.binaryOp(e.Left, "%", e.Right) }
func (w *Writer) VisitAnd(e *expr.AndExpr) { w.binaryOp(e.Left, "&", e.Right) }
func (w *Writer) VisitOr(e *expr.OrExpr)   { w.binaryOp(e.Left, "|", e.Right) }
func (w *Writer) VisitXor(e *expr.XorExpr) { w.binaryOp(e.Left, "^", e.Right) }

// VisitAssign emits an assignment.
func (w *Writer) VisitAssign(e *expr.AssignExpr) {
	w.parensIfNotSimple(e.Left)
	w.out.WriteString(" = ")
	w.parensIfNotSimple(e.Right)
}

// VisitCmp emits a comparison.
func (w *Writer) VisitCmp(e *expr.CmpExpr) {
	w.binaryOp(e.Left, e.Comparison, e.Right)
}

func (w *Writer) VisitAshr(e *expr.AshrExpr) { w.binaryOp(e.Left, ">>", e.Right) }
func (w *Writer) VisitShl(e *expr.ShlExpr)   { w.binaryOp(e.Left, "<<", e.Right) }

// VisitLshr emits a logical shift right. The left operand is cast to the
// unsigned form of its integer type unless it is unsigned already.
func (w *Writer) VisitLshr(e *expr.LshrExpr) {
	if it, ok := e.Left.Type().(*ctype.Int); ok && !it.Unsigned {
		w.out.WriteString("(unsigned ")
		w.out.WriteString(it.BaseName())
		w.out.WriteString(")(")
	} else {
		w.out.WriteString("(")
	}
	e.Left.Accept(w)
	w.out.WriteString(") >> (")
	e.Right.Accept(w)
	w.out.WriteString(")")
}

// VisitStackAlloc emits the declarator of a stack variable and marks it
// declared.
func (w *Writer) VisitStackAlloc(e *expr.StackAlloc) {
	w.out.WriteString(ctype.SurroundName(e.Val.Typ, e.Val.Name))
	e.Val.Init = true
}

var _ expr.Visitor = (*Writer)(nil)
