// Package llvm loads LLVM IR modules through the system installed LLVM
// runtime and builds the read-only ir model consumed by the lifting engine.
package llvm

import (
	"fmt"
	"strconv"
	"strings"
)

import (
	"tinygo.org/x/go-llvm"
)

import (
	"github.com/tomsik68/llvm2c/src/core"
	"github.com/tomsik68/llvm2c/src/ir"
	"github.com/tomsik68/llvm2c/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// loader carries the conversion state of one module walk. Types, values and
// blocks memoize by their LLVM handle so identity is preserved across uses.
type loader struct {
	types   map[llvm.Type]ir.Type
	values  map[llvm.Value]ir.Value
	blocks  map[llvm.BasicBlock]*ir.Block
	structs []*ir.StructType // Identified structs in encounter order.
}

// ---------------------
// ----- Functions -----
// ---------------------

// ParseModule reads and parses the input file and converts the parsed module
// into the engine's input model.
func ParseModule(opt util.Options) (*ir.Module, error) {
	ctx := llvm.NewContext()
	defer ctx.Dispose()

	buf, err := llvm.NewMemoryBufferFromFile(opt.Src)
	if err != nil {
		return nil, &core.Error{Kind: core.ErrIO, Msg: fmt.Sprintf("could not read %s: %s", opt.Src, err)}
	}
	m, err := ctx.ParseIR(buf)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %s", opt.Src, err)
	}
	defer m.Dispose()

	l := &loader{
		types:  make(map[llvm.Type]ir.Type),
		values: make(map[llvm.Value]ir.Value),
		blocks: make(map[llvm.BasicBlock]*ir.Block),
	}
	return l.convModule(m, opt)
}

// convModule walks globals and functions in module order. Shells are created
// first so that forward references between functions, globals and blocks
// resolve regardless of layout order.
func (l *loader) convModule(m llvm.Module, opt util.Options) (*ir.Module, error) {
	mod := &ir.Module{Name: opt.Src}

	// Global variable shells.
	for g := m.FirstGlobal(); !g.IsNil(); g = llvm.NextGlobal(g) {
		t, err := l.convType(g.Type())
		if err != nil {
			return nil, err
		}
		gv := &ir.Global{
			Name:    g.Name(),
			HasName: len(g.Name()) > 0,
			Private: g.Linkage() == llvm.PrivateLinkage,
			Typ:     t,
		}
		l.values[g] = gv
		mod.Globals = append(mod.Globals, gv)
	}

	// Function shells with their arguments.
	for fn := m.FirstFunction(); !fn.IsNil(); fn = llvm.NextFunction(fn) {
		ft, err := l.convType(fn.Type().ElementType())
		if err != nil {
			return nil, err
		}
		fnType, ok := ft.(*ir.FuncType)
		if !ok {
			return nil, fmt.Errorf("function %s has no function type", fn.Name())
		}
		f := &ir.Function{
			Name:     fn.Name(),
			Typ:      fnType,
			IsDecl:   fn.IsDeclaration(),
			Internal: fn.Linkage() == llvm.InternalLinkage || fn.Linkage() == llvm.PrivateLinkage,
		}
		for _, e1 := range fn.Params() {
			arg := &ir.Argument{Name: e1.Name(), Parent: f}
			if arg.Typ, err = l.convType(e1.Type()); err != nil {
				return nil, err
			}
			l.values[e1] = arg
			f.Args = append(f.Args, arg)
		}
		l.values[fn] = f
		mod.Funcs = append(mod.Funcs, f)
	}

	// Global initializers, textually formed.
	for g := m.FirstGlobal(); !g.IsNil(); g = llvm.NextGlobal(g) {
		gv := l.values[g].(*ir.Global)
		if init := g.Initializer(); !init.IsNil() {
			gv.Init = l.initValue(init)
			gv.HasInit = true
		}
	}

	// Function bodies.
	for fn := m.FirstFunction(); !fn.IsNil(); fn = llvm.NextFunction(fn) {
		if err := l.convBody(fn, l.values[fn].(*ir.Function)); err != nil {
			return nil, err
		}
	}

	mod.Structs = l.structs
	return mod, nil
}

// convBody converts the basic blocks of a function definition. Instruction
// shells are registered for the whole function before operands are filled,
// because block layout order does not follow dominance.
func (l *loader) convBody(fn llvm.Value, f *ir.Function) error {
	if fn.IsDeclaration() {
		return nil
	}

	bbs := fn.BasicBlocks()
	insts := make([]llvm.Value, 0, 16)
	for i1, e1 := range bbs {
		name := e1.AsValue().Name()
		if len(name) == 0 {
			name = fmt.Sprintf("bb%d", i1)
		}
		bb := &ir.Block{Name: name}
		l.blocks[e1] = bb
		f.Blocks = append(f.Blocks, bb)
	}

	for _, e1 := range bbs {
		bb := l.blocks[e1]
		for inst := e1.FirstInstruction(); !inst.IsNil(); inst = llvm.NextInstruction(inst) {
			if isSkippedCall(inst) {
				continue
			}
			op, err := convOpcode(inst.InstructionOpcode())
			if err != nil {
				return fmt.Errorf("%s in function %s", err, f.Name)
			}
			t, err := l.convType(inst.Type())
			if err != nil {
				return err
			}
			sh := &ir.Instruction{Op: op, Name: inst.Name(), Typ: t}
			l.values[inst] = sh
			bb.Insts = append(bb.Insts, sh)
			insts = append(insts, inst)
		}
	}

	// Fill operands now that every instruction of the function has a shell.
	idx := 0
	for _, e1 := range bbs {
		bb := l.blocks[e1]
		for _, e2 := range bb.Insts {
			if err := l.fillInstruction(insts[idx], e2); err != nil {
				return err
			}
			idx++
		}
	}
	return nil
}

// fillInstruction converts the operands and opcode specific payload of one
// instruction into its shell.
func (l *loader) fillInstruction(v llvm.Value, inst *ir.Instruction) error {
	switch inst.Op {
	case ir.Call:
		n := v.OperandsCount()
		callee, err := l.convValue(v.Operand(n - 1))
		if err != nil {
			return err
		}
		inst.Callee = callee
		for i1 := 0; i1 < n-1; i1++ {
			arg, err := l.convValue(v.Operand(i1))
			if err != nil {
				return err
			}
			inst.Args = append(inst.Args, arg)
		}
		return nil
	case ir.Switch:
		cond, err := l.convValue(v.Operand(0))
		if err != nil {
			return err
		}
		inst.Ops = []ir.Value{cond}
		def := v.Operand(1)
		if def.IsBasicBlock() {
			inst.Default = l.blocks[def.AsBasicBlock()]
		}
		for i1 := 2; i1+1 < v.OperandsCount(); i1 += 2 {
			sel := v.Operand(i1)
			target := v.Operand(i1 + 1)
			if !target.IsBasicBlock() {
				continue
			}
			inst.Cases = append(inst.Cases, ir.SwitchCase{
				V:      sel.SExtValue(),
				Target: l.blocks[target.AsBasicBlock()],
			})
		}
		return nil
	case ir.ICmp:
		inst.Pred = convIntPredicate(v.IntPredicate())
	case ir.FCmp:
		inst.Pred = convFloatPredicate(v.FloatPredicate())
	case ir.ExtractValue:
		inst.Indices = v.Indices()
	}

	for i1 := 0; i1 < v.OperandsCount(); i1++ {
		op, err := l.convValue(v.Operand(i1))
		if err != nil {
			return err
		}
		inst.Ops = append(inst.Ops, op)
	}
	return nil
}

// convValue resolves an operand to its model value, synthesizing constants
// on first sight.
func (l *loader) convValue(v llvm.Value) (ir.Value, error) {
	if r, ok := l.values[v]; ok {
		return r, nil
	}
	if v.IsBasicBlock() {
		if bb, ok := l.blocks[v.AsBasicBlock()]; ok {
			return bb, nil
		}
		return nil, fmt.Errorf("reference to unknown basic block %s", v.Name())
	}

	t, err := l.convType(v.Type())
	if err != nil {
		return nil, err
	}

	var res ir.Value
	switch {
	case !v.IsAConstantInt().IsNil():
		c := &ir.ConstInt{Typ: t}
		if it, ok := t.(*ir.IntType); ok && it.Width > 64 {
			// The C API truncates wide constants; keep the low 64 bits.
			c.Raw = strconv.FormatUint(v.ZExtValue(), 10)
		} else {
			c.V = v.SExtValue()
		}
		res = c
	case !v.IsAConstantFP().IsNil():
		f, _ := v.DoubleValue()
		res = &ir.ConstFloat{Typ: t, V: f}
	case !v.IsAConstantPointerNull().IsNil():
		res = &ir.ConstNull{Typ: t}
	case v.IsUndef():
		res = &ir.Undef{Typ: t}
	case !v.IsAInlineAsm().IsNil():
		// The pinned bindings expose no reader for the template and
		// constraint strings.
		return nil, fmt.Errorf("inline assembly is not recoverable through the IR reader")
	case !v.IsAConstantExpr().IsNil():
		ce := &ir.ConstExpr{Typ: t}
		op, err := convOpcode(v.Opcode())
		if err != nil {
			return nil, err
		}
		ce.Op = op
		if op == ir.ICmp {
			ce.Pred = convIntPredicate(v.IntPredicate())
		} else if op == ir.FCmp {
			ce.Pred = convFloatPredicate(v.FloatPredicate())
		}
		l.values[v] = ce
		for i1 := 0; i1 < v.OperandsCount(); i1++ {
			cop, err := l.convValue(v.Operand(i1))
			if err != nil {
				return nil, err
			}
			ce.Ops = append(ce.Ops, cop)
		}
		return ce, nil
	default:
		return nil, fmt.Errorf("unsupported operand kind for %q", v.Name())
	}

	l.values[v] = res
	return res, nil
}

// convType converts an LLVM type, memoizing by handle so struct identity is
// stable. Identified structs register before their fields are walked, which
// breaks self-referential cycles.
func (l *loader) convType(t llvm.Type) (ir.Type, error) {
	if r, ok := l.types[t]; ok {
		return r, nil
	}
	switch t.TypeKind() {
	case llvm.VoidTypeKind:
		r := &ir.VoidType{}
		l.types[t] = r
		return r, nil
	case llvm.IntegerTypeKind:
		r := &ir.IntType{Width: t.IntTypeWidth()}
		l.types[t] = r
		return r, nil
	case llvm.FloatTypeKind:
		r := &ir.FloatType{Kind: ir.Float}
		l.types[t] = r
		return r, nil
	case llvm.DoubleTypeKind:
		r := &ir.FloatType{Kind: ir.Double}
		l.types[t] = r
		return r, nil
	case llvm.X86_FP80TypeKind:
		r := &ir.FloatType{Kind: ir.FP80}
		l.types[t] = r
		return r, nil
	case llvm.PointerTypeKind:
		r := &ir.PointerType{}
		l.types[t] = r
		elem, err := l.convType(t.ElementType())
		if err != nil {
			return nil, err
		}
		r.Elem = elem
		return r, nil
	case llvm.ArrayTypeKind:
		r := &ir.ArrayType{Len: uint64(t.ArrayLength())}
		l.types[t] = r
		elem, err := l.convType(t.ElementType())
		if err != nil {
			return nil, err
		}
		r.Elem = elem
		return r, nil
	case llvm.StructTypeKind:
		name := t.StructName()
		name = strings.TrimPrefix(name, "struct.")
		name = strings.TrimPrefix(name, "union.")
		r := &ir.StructType{Name: name, HasName: len(t.StructName()) > 0}
		l.types[t] = r
		for _, e1 := range t.StructElementTypes() {
			ft, err := l.convType(e1)
			if err != nil {
				return nil, err
			}
			r.Fields = append(r.Fields, ft)
		}
		if r.HasName {
			l.structs = append(l.structs, r)
		}
		return r, nil
	case llvm.FunctionTypeKind:
		r := &ir.FuncType{VarArg: t.IsFunctionVarArg()}
		l.types[t] = r
		ret, err := l.convType(t.ReturnType())
		if err != nil {
			return nil, err
		}
		r.Ret = ret
		for _, e1 := range t.ParamTypes() {
			pt, err := l.convType(e1)
			if err != nil {
				return nil, err
			}
			r.Params = append(r.Params, pt)
		}
		return r, nil
	case llvm.VectorTypeKind:
		elem, err := l.convType(t.ElementType())
		if err != nil {
			return nil, err
		}
		r := &ir.VectorType{Elem: elem}
		l.types[t] = r
		return r, nil
	case llvm.TokenTypeKind:
		r := &ir.TokenType{}
		l.types[t] = r
		return r, nil
	case llvm.MetadataTypeKind:
		r := &ir.MetadataType{}
		l.types[t] = r
		return r, nil
	case llvm.LabelTypeKind:
		r := &ir.LabelType{}
		l.types[t] = r
		return r, nil
	}
	return nil, fmt.Errorf("unsupported type kind %d", int(t.TypeKind()))
}

// initValue textually forms a global initializer. Pointer constants render
// as addresses, aggregates as brace lists. The engine emits the text
// verbatim.
func (l *loader) initValue(v llvm.Value) string {
	if !v.IsAFunction().IsNil() || !v.IsAGlobalVariable().IsNil() {
		return "&" + v.Name()
	}
	if !v.IsAConstantInt().IsNil() {
		return strconv.FormatInt(v.SExtValue(), 10)
	}
	if !v.IsAConstantFP().IsNil() {
		f, _ := v.DoubleValue()
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if !v.IsAConstantPointerNull().IsNil() {
		return "0"
	}
	if !v.IsAConstantAggregateZero().IsNil() {
		return "{0}"
	}
	if !v.IsAConstantArray().IsNil() || !v.IsAConstantStruct().IsNil() {
		sb := strings.Builder{}
		sb.WriteString("{")
		for i1 := 0; i1 < v.OperandsCount(); i1++ {
			if i1 > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(l.initValue(v.Operand(i1)))
		}
		sb.WriteString("}")
		return sb.String()
	}
	if !v.IsAConstantDataArray().IsNil() {
		// Element readers are not exposed by the bindings.
		return "{0}"
	}
	return ""
}

// isSkippedCall reports whether the instruction is a debug metadata call the
// model does not carry. The descriptor payload is not readable through the
// C API, so name recovery is left to richer loaders.
func isSkippedCall(v llvm.Value) bool {
	if v.InstructionOpcode() != llvm.Call {
		return false
	}
	callee := v.Operand(v.OperandsCount() - 1)
	if callee.IsAFunction().IsNil() {
		return false
	}
	return strings.HasPrefix(callee.Name(), "llvm.dbg")
}

// convOpcode maps an LLVM opcode to the model opcode.
func convOpcode(op llvm.Opcode) (ir.Opcode, error) {
	switch op {
	case llvm.Add:
		return ir.Add, nil
	case llvm.FAdd:
		return ir.FAdd, nil
	case llvm.Sub:
		return ir.Sub, nil
	case llvm.FSub:
		return ir.FSub, nil
	case llvm.Mul:
		return ir.Mul, nil
	case llvm.FMul:
		return ir.FMul, nil
	case llvm.UDiv:
		return ir.UDiv, nil
	case llvm.SDiv:
		return ir.SDiv, nil
	case llvm.FDiv:
		return ir.FDiv, nil
	case llvm.URem:
		return ir.URem, nil
	case llvm.SRem:
		return ir.SRem, nil
	case llvm.FRem:
		return ir.FRem, nil
	case llvm.And:
		return ir.And, nil
	case llvm.Or:
		return ir.Or, nil
	case llvm.Xor:
		return ir.Xor, nil
	case llvm.Shl:
		return ir.Shl, nil
	case llvm.LShr:
		return ir.LShr, nil
	case llvm.AShr:
		return ir.AShr, nil
	case llvm.Alloca:
		return ir.Alloca, nil
	case llvm.Load:
		return ir.Load, nil
	case llvm.Store:
		return ir.Store, nil
	case llvm.GetElementPtr:
		return ir.GetElementPtr, nil
	case llvm.ExtractValue:
		return ir.ExtractValue, nil
	case llvm.ICmp:
		return ir.ICmp, nil
	case llvm.FCmp:
		return ir.FCmp, nil
	case llvm.Br:
		return ir.Br, nil
	case llvm.Ret:
		return ir.Ret, nil
	case llvm.Switch:
		return ir.Switch, nil
	case llvm.Unreachable:
		return ir.Unreachable, nil
	case llvm.Fence:
		return ir.Fence, nil
	case llvm.Call:
		return ir.Call, nil
	case llvm.Select:
		return ir.Select, nil
	case llvm.Trunc:
		return ir.Trunc, nil
	case llvm.ZExt:
		return ir.ZExt, nil
	case llvm.SExt:
		return ir.SExt, nil
	case llvm.FPToUI:
		return ir.FPToUI, nil
	case llvm.FPToSI:
		return ir.FPToSI, nil
	case llvm.UIToFP:
		return ir.UIToFP, nil
	case llvm.SIToFP:
		return ir.SIToFP, nil
	case llvm.FPTrunc:
		return ir.FPTrunc, nil
	case llvm.FPExt:
		return ir.FPExt, nil
	case llvm.PtrToInt:
		return ir.PtrToInt, nil
	case llvm.IntToPtr:
		return ir.IntToPtr, nil
	case llvm.BitCast:
		return ir.BitCast, nil
	case llvm.PHI:
		return ir.Phi, nil
	}
	return 0, fmt.Errorf("unsupported opcode %d", int(op))
}

// convIntPredicate maps an integer compare predicate.
func convIntPredicate(p llvm.IntPredicate) ir.Predicate {
	switch p {
	case llvm.IntEQ:
		return ir.IntEQ
	case llvm.IntNE:
		return ir.IntNE
	case llvm.IntUGT:
		return ir.IntUGT
	case llvm.IntUGE:
		return ir.IntUGE
	case llvm.IntULT:
		return ir.IntULT
	case llvm.IntULE:
		return ir.IntULE
	case llvm.IntSGT:
		return ir.IntSGT
	case llvm.IntSGE:
		return ir.IntSGE
	case llvm.IntSLT:
		return ir.IntSLT
	case llvm.IntSLE:
		return ir.IntSLE
	}
	return ir.BadPredicate
}

// convFloatPredicate maps a floating point compare predicate.
func convFloatPredicate(p llvm.FloatPredicate) ir.Predicate {
	switch p {
	case llvm.FloatPredicateFalse:
		return ir.FloatFalse
	case llvm.FloatOEQ:
		return ir.FloatOEQ
	case llvm.FloatOGT:
		return ir.FloatOGT
	case llvm.FloatOGE:
		return ir.FloatOGE
	case llvm.FloatOLT:
		return ir.FloatOLT
	case llvm.FloatOLE:
		return ir.FloatOLE
	case llvm.FloatONE:
		return ir.FloatONE
	case llvm.FloatORD:
		return ir.FloatORD
	case llvm.FloatUNO:
		return ir.FloatUNO
	case llvm.FloatUEQ:
		return ir.FloatUEQ
	case llvm.FloatUGT:
		return ir.FloatUGT
	case llvm.FloatUGE:
		return ir.FloatUGE
	case llvm.FloatULT:
		return ir.FloatULT
	case llvm.FloatULE:
		return ir.FloatULE
	case llvm.FloatUNE:
		return ir.FloatUNE
	case llvm.FloatPredicateTrue:
		return ir.FloatTrue
	}
	return ir.BadPredicate
}
