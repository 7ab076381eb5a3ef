package core

import (
	"strings"

	"github.com/tomsik68/llvm2c/src/ctype"
	"github.com/tomsik68/llvm2c/src/expr"
	"github.com/tomsik68/llvm2c/src/ir"
)

// ---------------------
// ----- Functions -----
// ---------------------

// parseCall lifts call instructions: intrinsics, inline assembly, direct and
// indirect calls. Non-void calls emit a fresh value and its companion
// assignment; the bare call never reaches statement position.
func (b *Block) parseCall(inst *ir.Instruction, isConstExpr bool, val ir.Value) error {
	k := key(inst, isConstExpr, val)
	var funcName string
	var funcValue expr.Expr
	var retType ctype.Type
	isFuncPointer := false

	switch callee := inst.Callee.(type) {
	case *ir.Function:
		funcName = callee.Name
		t, err := b.f.getType(callee.Typ.Ret)
		if err != nil {
			return err
		}
		retType = t

		if funcName == "llvm.dbg.declare" {
			return b.setMetadataInfo(inst)
		}
		if funcName == "llvm.trap" || funcName == "llvm.debugtrap" {
			e := &expr.AsmExpr{Inst: "int3"}
			b.f.createExpr(k, e)
			b.append(isConstExpr, e)
			return nil
		}
		if funcName == "llvm.stacksave" || funcName == "llvm.stackrestore" {
			b.f.StackIgnored = true
			b.f.p.StackIgnored = true
			return nil
		}
		if strings.HasPrefix(funcName, "llvm") {
			stem := getCFunc(funcName)
			if cFunctions[stem] {
				funcName = stem
			} else {
				funcName = replaceDots(funcName)
			}
		}
		b.f.p.markIncludes(funcName)

	case *ir.InlineAsm:
		return b.parseInlineAsm(inst, callee, isConstExpr, val)

	default:
		// Indirect call through a function pointer value.
		isFuncPointer = true
		pt, ok := inst.Callee.Type().(*ir.PointerType)
		if !ok {
			return errUnsupported(inst, "called value is not a function pointer")
		}
		ft, ok := pt.Elem.(*ir.FuncType)
		if !ok {
			return errUnsupported(inst, "called value is not a function pointer")
		}
		t, err := b.f.getType(ft.Ret)
		if err != nil {
			return err
		}
		retType = t

		fv, err := b.materialize(inst.Callee)
		if err != nil {
			return err
		}
		funcValue = fv
	}

	params := make([]expr.Expr, 0, len(inst.Args))
	for _, e1 := range inst.Args {
		if b.f.getExpr(e1) == nil {
			if err := b.createFuncCallParam(e1); err != nil {
				return err
			}
		}
		p, err := b.materialize(e1)
		if err != nil {
			return err
		}
		params = append(params, p)
	}

	if funcName == "va_start" && b.f.lastArg != nil {
		params = append(params, b.f.lastArg)
	}

	call := &expr.CallExpr{
		FuncName:      funcName,
		FuncValue:     funcValue,
		Params:        params,
		RetType:       retType,
		IsFuncPointer: isFuncPointer,
	}

	if _, ok := retType.(*ctype.Void); ok {
		b.f.createExpr(k, call)
		b.append(isConstExpr, call)
		return nil
	}

	b.f.callExprMap[k] = call
	v := &expr.Value{Name: b.f.getVarName(), Typ: retType.Clone()}
	b.f.valueMap[k] = v
	b.f.createExpr(k, v)
	assign := expr.NewAssign(v, call)
	b.f.callValueMap[k] = assign
	b.append(isConstExpr, assign)
	return nil
}

// parseInlineAsm lifts a call to inline assembly, parsing the constraint
// string into output, input and clobber lists.
func (b *Block) parseInlineAsm(inst *ir.Instruction, ia *ir.InlineAsm, isConstExpr bool, val ir.Value) error {
	outputs := asmOutputStrings(ia.Constraints)
	inputs := asmInputStrings(ia.Constraints)
	clobbers := asmUsedRegString(ia.Constraints)

	e := &expr.AsmExpr{Inst: ia.Template, Clobbers: clobbers}
	for _, e1 := range outputs {
		e.Output = append(e.Output, expr.AsmArg{Constraint: e1})
	}

	for i1, e1 := range inst.Args {
		if b.f.getExpr(e1) == nil {
			if err := b.createFuncCallParam(e1); err != nil {
				return err
			}
		}
		p, err := b.materialize(e1)
		if err != nil {
			return err
		}
		if i1 < len(inputs) {
			e.Input = append(e.Input, expr.AsmArg{Constraint: inputs[i1], E: p})
		}
	}

	k := key(inst, isConstExpr, val)
	b.f.createExpr(k, e)
	b.append(isConstExpr, e)
	return nil
}

// setMetadataInfo applies the debug declare payload to the referred value:
// const qualification, void-based pointer rebinding, display name recovery
// and signedness upgrade.
func (b *Block) setMetadataInfo(inst *ir.Instruction) error {
	d := inst.Debug
	if d == nil || d.Target == nil {
		return &Error{Kind: ErrIllFormedMetadata, Inst: inst.String(), Msg: "dbg.declare without payload"}
	}

	variable, ok := b.f.valueMap[d.Target]
	if !ok {
		return nil
	}

	if d.Const {
		variable.Typ.SetConst(true)
	}

	if d.VoidBase {
		if pt, ok := d.Target.Type().(*ir.PointerType); ok {
			t, err := b.f.p.th.getType(pt, true)
			if err != nil {
				return err
			}
			variable.Typ = t
		}
	}

	if len(d.Name) > 0 && !varNameRegex.MatchString(d.Name) && !constGlobalRegex.MatchString(d.Name) {
		variable.Name = d.Name
	}

	if strings.HasPrefix(d.TypeName, "unsigned") {
		if it, ok := variable.Typ.(*ctype.Int); ok {
			it.Unsigned = true
		}
	}
	return nil
}

// getCFunc extracts the stem of an llvm.* intrinsic name: the word after
// "llvm." and before any dotted suffix.
func getCFunc(name string) string {
	m := intrinsicStemRegex.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

// asmOutputStrings collects the leading "=" tokens of a constraint string as
// quoted output constraints.
func asmOutputStrings(constraint string) []string {
	var ret []string
	for _, e1 := range strings.Split(constraint, ",") {
		if len(e1) == 0 || e1[0] != '=' {
			break
		}
		ret = append(ret, `"=`+registerString(e1[1:])+`"`)
	}
	return ret
}

// asmInputStrings collects the input tokens of a constraint string, skipping
// outputs and stopping at the first clobber.
func asmInputStrings(constraint string) []string {
	var ret []string
	for _, e1 := range strings.Split(constraint, ",") {
		if len(e1) == 0 {
			continue
		}
		if e1[0] == '=' {
			continue
		}
		if e1[0] == '~' {
			break
		}
		ret = append(ret, `"`+registerString(e1)+`"`)
	}
	return ret
}

// registerString maps a register spec of the form {ri…} or {rx…} to its
// conventional constraint letter; bare constraints pass through.
func registerString(tok string) string {
	if len(tok) < 4 || tok[0] != '{' {
		return tok
	}
	inner := tok[1 : len(tok)-1]
	if len(inner) == 2 && inner[1] == 'i' {
		return strings.ToUpper(inner[:1])
	}
	if len(inner) == 2 && inner[1] == 'x' {
		return inner[:1]
	}
	return tok
}

// asmUsedRegString renders the clobber list of a constraint string, keeping
// only the allow-listed x86-64 registers.
func asmUsedRegString(constraint string) string {
	sb := strings.Builder{}
	first := true
	for _, e1 := range strings.Split(constraint, ",") {
		if len(e1) < 3 || e1[0] != '~' {
			continue
		}
		reg := "%" + e1[2:len(e1)-1]
		if !asmClobberRegs[reg] {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(`"` + reg + `"`)
	}
	return sb.String()
}
