package core

import (
	"regexp"
	"strconv"

	"github.com/tomsik68/llvm2c/src/ctype"
	"github.com/tomsik68/llvm2c/src/expr"
	"github.com/tomsik68/llvm2c/src/ir"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Block is the lifted form of one basic block: an ordered statement list
// over expressions owned by the enclosing function.
type Block struct {
	f       *Func
	irBlock *ir.Block
	name    string
	stmts   []expr.Expr
}

// -------------------
// ----- Globals -----
// -------------------

// cFunctions lists the intrinsic stems that lower to plain calls of the C
// standard function with the same name.
var cFunctions = map[string]bool{
	"memcpy": true, "memmove": true, "memset": true, "sqrt": true,
	"powi": true, "sin": true, "cos": true, "pow": true, "exp": true,
	"exp2": true, "log": true, "log10": true, "log2": true, "fma": true,
	"fabs": true, "minnum": true, "maxnum": true, "minimum": true,
	"maximum": true, "copysign": true, "floor": true, "ceil": true,
	"trunc": true, "rint": true, "nearbyint": true, "round": true,
	"va_start": true, "va_end": true,
}

// intrinsicStemRegex extracts the stem of an llvm.* intrinsic name.
var intrinsicStemRegex = regexp.MustCompile(`^llvm\.(\w+)`)

// asmClobberRegs is the allow-list of x86-64 registers accepted in clobber
// constraints.
var asmClobberRegs = map[string]bool{
	"%rax": true, "%eax": true, "%ax": true, "%al": true,
	"%rbx": true, "%ebx": true, "%bx": true, "%bl": true,
	"%rcx": true, "%ecx": true, "%cx": true, "%cl": true,
	"%rdx": true, "%edx": true, "%dx": true, "%dl": true,
	"%rsi": true, "%esi": true, "%si": true,
	"%rdi": true, "%edi": true, "%di": true,
}

// ---------------------
// ----- Functions -----
// ---------------------

// BlockName returns the C label of the block.
func (b *Block) BlockName() string { return b.name }

// DoInline reports whether the block is emitted in place of a goto.
func (b *Block) DoInline() bool { return b.irBlock.Inline }

// Statements returns the ordered statement list of the block.
func (b *Block) Statements() []expr.Expr { return b.stmts }

// append adds a statement to the block unless the lift runs in
// constant-expression mode.
func (b *Block) append(isConstExpr bool, e expr.Expr) {
	if !isConstExpr {
		b.stmts = append(b.stmts, e)
	}
}

// key returns the value handle the lifted expression binds to: the
// originating constant in constant-expression mode, the instruction
// otherwise.
func key(inst *ir.Instruction, isConstExpr bool, val ir.Value) ir.Value {
	if isConstExpr {
		return val
	}
	return inst
}

// bindValue binds the lifted expression under the value handle. Outside
// constant-expression mode a fresh named value is bound instead and the
// expression is assigned to it at statement position, so every value
// producing instruction declares exactly one variable.
func (b *Block) bindValue(inst *ir.Instruction, isConstExpr bool, val ir.Value, e expr.Expr) error {
	k := key(inst, isConstExpr, val)
	if isConstExpr {
		b.f.createExpr(k, e)
		return nil
	}
	t, err := b.f.getType(inst.Typ)
	if err != nil {
		return err
	}
	v := &expr.Value{Name: b.f.getVarName(), Typ: t}
	b.f.valueMap[k] = v
	b.f.createExpr(k, v)
	b.stmts = append(b.stmts, expr.NewAssign(v, e))
	return nil
}

// parseInstruction dispatches on the instruction opcode, binds the produced
// expression into the function's table and appends statement entries.
func (b *Block) parseInstruction(inst *ir.Instruction, isConstExpr bool, val ir.Value) error {
	switch inst.Op {
	case ir.Add, ir.FAdd, ir.Sub, ir.FSub, ir.Mul, ir.FMul,
		ir.UDiv, ir.SDiv, ir.FDiv, ir.URem, ir.SRem, ir.FRem,
		ir.And, ir.Or, ir.Xor:
		return b.parseBinary(inst, isConstExpr, val)
	case ir.Alloca:
		return b.parseAlloca(inst, isConstExpr, val)
	case ir.Load:
		return b.parseLoad(inst, isConstExpr, val)
	case ir.Store:
		return b.parseStore(inst, isConstExpr, val)
	case ir.ICmp, ir.FCmp:
		return b.parseCmp(inst, isConstExpr, val)
	case ir.Br:
		return b.parseBr(inst, isConstExpr, val)
	case ir.Ret:
		return b.parseRet(inst, isConstExpr, val)
	case ir.Switch:
		return b.parseSwitch(inst, isConstExpr, val)
	case ir.Unreachable, ir.Fence:
		return b.parseAsmStub(inst, isConstExpr, val)
	case ir.Shl, ir.LShr, ir.AShr:
		return b.parseShift(inst, isConstExpr, val)
	case ir.Call:
		return b.parseCall(inst, isConstExpr, val)
	case ir.SExt, ir.ZExt, ir.Trunc, ir.FPToSI, ir.SIToFP, ir.FPToUI,
		ir.UIToFP, ir.FPTrunc, ir.FPExt, ir.PtrToInt, ir.IntToPtr, ir.BitCast:
		return b.parseCast(inst, isConstExpr, val)
	case ir.Select:
		return b.parseSelect(inst, isConstExpr, val)
	case ir.GetElementPtr:
		return b.parseGep(inst, isConstExpr, val)
	case ir.ExtractValue:
		return b.parseExtractValue(inst, isConstExpr, val)
	}
	return errUnsupported(inst, "unknown opcode "+inst.Op.String())
}

// materialize looks the operand up in the expression table, synthesizing a
// literal when it is absent.
func (b *Block) materialize(v ir.Value) (expr.Expr, error) {
	if e := b.f.getExpr(v); e != nil {
		return e, nil
	}
	if err := b.createConstantValue(v); err != nil {
		return nil, err
	}
	if e := b.f.getExpr(v); e != nil {
		return e, nil
	}
	return nil, &Error{Kind: ErrMissingOperand, Inst: v.String(), Msg: "operand has no expression and literal synthesis failed"}
}

// createConstantValue synthesizes the literal expression of a constant
// operand. Constant expressions are lifted recursively in
// constant-expression mode, binding the result under the constant's handle.
func (b *Block) createConstantValue(v ir.Value) error {
	switch c := v.(type) {
	case *ir.ConstNull:
		t, err := b.f.getType(c.Typ)
		if err != nil {
			return err
		}
		b.f.createExpr(v, &expr.Value{Name: "0", Typ: t})
		return nil
	case *ir.ConstInt:
		t, err := b.f.getType(c.Typ)
		if err != nil {
			return err
		}
		value := c.Raw
		if len(value) == 0 {
			value = strconv.FormatInt(c.V, 10)
		}
		b.f.createExpr(v, &expr.Value{Name: value, Typ: t})
		return nil
	case *ir.ConstFloat:
		t, err := b.f.getType(c.Typ)
		if err != nil {
			return err
		}
		b.f.createExpr(v, &expr.Value{Name: strconv.FormatFloat(c.V, 'g', -1, 64), Typ: t})
		return nil
	case *ir.Undef:
		t, err := b.f.getType(c.Typ)
		if err != nil {
			return err
		}
		b.f.createExpr(v, &expr.Value{Name: "0", Typ: t})
		return nil
	case *ir.Function:
		b.f.createExpr(v, &expr.Value{Name: c.Name, Typ: &ctype.Void{}})
		return nil
	case *ir.ConstExpr:
		synth := &ir.Instruction{
			Op:      c.Op,
			Typ:     c.Typ,
			Ops:     c.Ops,
			Pred:    c.Pred,
			Indices: c.Indices,
		}
		return b.parseInstruction(synth, true, v)
	}
	return nil
}

// createFuncCallParam synthesizes literals for call arguments; function
// handles become bare names so address semantics match C.
func (b *Block) createFuncCallParam(v ir.Value) error {
	if fn, ok := v.(*ir.Function); ok {
		b.f.createExpr(v, &expr.Value{Name: fn.Name, Typ: &ctype.Void{}})
		return nil
	}
	return b.createConstantValue(v)
}

// parseAlloca creates the stack variable and appends its declaration
// statement. The variable's expression is its address.
func (b *Block) parseAlloca(inst *ir.Instruction, isConstExpr bool, val ir.Value) error {
	k := key(inst, isConstExpr, val)
	pt, ok := inst.Typ.(*ir.PointerType)
	if !ok {
		return errUnsupported(inst, "alloca without pointer result type")
	}
	t, err := b.f.getType(pt.Elem)
	if err != nil {
		return err
	}
	v := &expr.Value{Name: b.f.getVarName(), Typ: t}
	b.f.valueMap[k] = v
	b.f.createExpr(k, b.f.refOf(v))
	b.append(isConstExpr, &expr.StackAlloc{Val: v})
	return nil
}

// parseLoad lifts a load into a dereference expression. No statement is
// emitted.
func (b *Block) parseLoad(inst *ir.Instruction, isConstExpr bool, val ir.Value) error {
	op, err := b.materialize(inst.Ops[0])
	if err != nil {
		return err
	}
	b.f.createExpr(key(inst, isConstExpr, val), b.f.derefOf(op))
	return nil
}

// parseStore lifts a store into an assignment through the dereferenced
// target. Stores of stacksave results are dropped and stores of asm outputs
// rebind the output slot instead.
func (b *Block) parseStore(inst *ir.Instruction, isConstExpr bool, val ir.Value) error {
	op0, op1 := inst.Ops[0], inst.Ops[1]

	if fn, ok := op0.(*ir.Function); ok {
		if b.f.getExpr(op0) == nil {
			b.f.createExpr(op0, &expr.Value{Name: "&" + fn.Name, Typ: &ctype.Void{}})
		}
	}

	if ci, ok := op0.(*ir.Instruction); ok && ci.Op == ir.Call {
		if callee, ok := ci.Callee.(*ir.Function); ok && callee.Name == "llvm.stacksave" {
			return nil
		}
	}

	if evi, ok := op0.(*ir.Instruction); ok && evi.Op == ir.ExtractValue {
		if ae, ok := b.f.getExpr(evi.Ops[0]).(*expr.AsmExpr); ok {
			target, err := b.materialize(op1)
			if err != nil {
				return err
			}
			if len(evi.Indices) == 0 {
				return &Error{Kind: ErrIllFormedMetadata, Inst: inst.String(), Msg: "extractvalue without indices"}
			}
			ae.AddOutputExpr(target, int(evi.Indices[0]))
			return nil
		}
	}

	val0, err := b.materialize(op0)
	if err != nil {
		return err
	}
	val1, err := b.materialize(op1)
	if err != nil {
		return err
	}

	if ae, ok := val0.(*expr.AsmExpr); ok {
		ae.AddOutputExpr(val1, 0)
		return nil
	}

	assign := expr.NewAssign(b.f.derefOf(val1), val0)
	b.f.createExpr(key(inst, isConstExpr, val), assign)
	b.append(isConstExpr, assign)
	return nil
}

// parseBinary lifts arithmetic and bitwise instructions. Floating point
// opcodes share nodes with the integer ones; the printed C operator is
// identical.
func (b *Block) parseBinary(inst *ir.Instruction, isConstExpr bool, val ir.Value) error {
	val0, err := b.materialize(inst.Ops[0])
	if err != nil {
		return err
	}
	val1, err := b.materialize(inst.Ops[1])
	if err != nil {
		return err
	}
	var e expr.Expr
	switch inst.Op {
	case ir.Add, ir.FAdd:
		e = expr.NewAdd(val0, val1)
	case ir.Sub, ir.FSub:
		e = expr.NewSub(val0, val1)
	case ir.Mul, ir.FMul:
		e = expr.NewMul(val0, val1)
	case ir.SDiv, ir.UDiv, ir.FDiv:
		e = expr.NewDiv(val0, val1)
	case ir.SRem, ir.URem, ir.FRem:
		e = expr.NewRem(val0, val1)
	case ir.And:
		e = expr.NewAnd(val0, val1)
	case ir.Or:
		e = expr.NewOr(val0, val1)
	case ir.Xor:
		e = expr.NewXor(val0, val1)
	}
	return b.bindValue(inst, isConstExpr, val, e)
}

// parseShift lifts the three shift instructions.
func (b *Block) parseShift(inst *ir.Instruction, isConstExpr bool, val ir.Value) error {
	val0, err := b.materialize(inst.Ops[0])
	if err != nil {
		return err
	}
	val1, err := b.materialize(inst.Ops[1])
	if err != nil {
		return err
	}
	var e expr.Expr
	switch inst.Op {
	case ir.Shl:
		e = expr.NewShl(val0, val1)
	case ir.LShr:
		e = expr.NewLshr(val0, val1)
	case ir.AShr:
		e = expr.NewAshr(val0, val1)
	}
	return b.bindValue(inst, isConstExpr, val, e)
}

// parseCmp lifts integer and floating point comparisons. The always-false
// and always-true predicates reduce to literals; the ordered/unordered
// checks have no C lowering and are rejected.
func (b *Block) parseCmp(inst *ir.Instruction, isConstExpr bool, val ir.Value) error {
	val0, err := b.materialize(inst.Ops[0])
	if err != nil {
		return err
	}
	val1, err := b.materialize(inst.Ops[1])
	if err != nil {
		return err
	}
	var e expr.Expr
	switch inst.Pred {
	case ir.IntEQ, ir.FloatOEQ, ir.FloatUEQ:
		e = expr.NewCmp(val0, val1, "==", false)
	case ir.IntNE, ir.FloatONE, ir.FloatUNE:
		e = expr.NewCmp(val0, val1, "!=", false)
	case ir.IntUGT, ir.IntSGT, ir.FloatOGT, ir.FloatUGT:
		e = expr.NewCmp(val0, val1, ">", inst.Pred == ir.IntUGT)
	case ir.IntUGE, ir.IntSGE, ir.FloatOGE, ir.FloatUGE:
		e = expr.NewCmp(val0, val1, ">=", inst.Pred == ir.IntUGE)
	case ir.IntULT, ir.IntSLT, ir.FloatOLT, ir.FloatULT:
		e = expr.NewCmp(val0, val1, "<", inst.Pred == ir.IntULT)
	case ir.IntULE, ir.IntSLE, ir.FloatOLE, ir.FloatULE:
		e = expr.NewCmp(val0, val1, "<=", inst.Pred == ir.IntULE)
	case ir.FloatFalse:
		e = &expr.Value{Name: "0", Typ: &ctype.Int{Width: 32}}
	case ir.FloatTrue:
		e = &expr.Value{Name: "1", Typ: &ctype.Int{Width: 32}}
	default:
		return errUnsupported(inst, "FCMP ORD/UNO and BAD predicate not supported")
	}
	return b.bindValue(inst, isConstExpr, val, e)
}

// parseBr lifts branch terminators into if expressions over block targets.
func (b *Block) parseBr(inst *ir.Instruction, isConstExpr bool, val ir.Value) error {
	k := key(inst, isConstExpr, val)

	if len(inst.Ops) == 1 {
		target, ok := inst.Ops[0].(*ir.Block)
		if !ok {
			return errUnsupported(inst, "branch target is not a block")
		}
		e := &expr.IfExpr{True: b.f.createBlockIfNotExist(target)}
		b.f.createExpr(k, e)
		b.append(isConstExpr, e)
		return nil
	}

	cmp, err := b.materialize(inst.Ops[0])
	if err != nil {
		return err
	}
	falseTarget, ok := inst.Ops[1].(*ir.Block)
	if !ok {
		return errUnsupported(inst, "branch target is not a block")
	}
	trueTarget, ok := inst.Ops[2].(*ir.Block)
	if !ok {
		return errUnsupported(inst, "branch target is not a block")
	}

	e := &expr.IfExpr{
		Cond:  cmp,
		True:  b.f.createBlockIfNotExist(trueTarget),
		False: b.f.createBlockIfNotExist(falseTarget),
	}
	b.f.createExpr(k, e)
	b.append(isConstExpr, e)
	return nil
}

// parseRet lifts return terminators.
func (b *Block) parseRet(inst *ir.Instruction, isConstExpr bool, val ir.Value) error {
	k := key(inst, isConstExpr, val)
	e := &expr.RetExpr{}
	if len(inst.Ops) > 0 {
		op, err := b.materialize(inst.Ops[0])
		if err != nil {
			return err
		}
		e.E = op
	}
	b.f.createExpr(k, e)
	b.append(isConstExpr, e)
	return nil
}

// parseSwitch lifts switch terminators, preserving the IR case order.
func (b *Block) parseSwitch(inst *ir.Instruction, isConstExpr bool, val ir.Value) error {
	cmp, err := b.materialize(inst.Ops[0])
	if err != nil {
		return err
	}
	e := &expr.SwitchExpr{Cond: cmp}
	if inst.Default != nil {
		e.Default = b.f.createBlockIfNotExist(inst.Default)
	}
	for _, e1 := range inst.Cases {
		e.Cases = append(e.Cases, expr.SwitchCase{
			V:      e1.V,
			Target: b.f.createBlockIfNotExist(e1.Target),
		})
	}
	k := key(inst, isConstExpr, val)
	b.f.createExpr(k, e)
	b.append(isConstExpr, e)
	return nil
}

// parseAsmStub lowers unreachable and fence to inline assembly stubs with
// empty constraint lists.
func (b *Block) parseAsmStub(inst *ir.Instruction, isConstExpr bool, val ir.Value) error {
	var template string
	switch inst.Op {
	case ir.Unreachable:
		template = "int3"
	case ir.Fence:
		template = "fence"
	}
	e := &expr.AsmExpr{Inst: template}
	k := key(inst, isConstExpr, val)
	b.f.createExpr(k, e)
	b.append(isConstExpr, e)
	return nil
}

// parseCast lifts the value conversion family into C casts.
func (b *Block) parseCast(inst *ir.Instruction, isConstExpr bool, val ir.Value) error {
	op, err := b.materialize(inst.Ops[0])
	if err != nil {
		return err
	}
	t, err := b.f.getType(inst.Typ)
	if err != nil {
		return err
	}
	b.f.createExpr(key(inst, isConstExpr, val), &expr.CastExpr{E: op, Typ: t})
	return nil
}

// parseSelect lifts select into the C conditional operator.
func (b *Block) parseSelect(inst *ir.Instruction, isConstExpr bool, val ir.Value) error {
	cond, err := b.materialize(inst.Ops[0])
	if err != nil {
		return err
	}
	val0, err := b.materialize(inst.Ops[1])
	if err != nil {
		return err
	}
	val1, err := b.materialize(inst.Ops[2])
	if err != nil {
		return err
	}
	b.f.createExpr(key(inst, isConstExpr, val), &expr.SelectExpr{Cond: cond, Left: val0, Right: val1})
	return nil
}
