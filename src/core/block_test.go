package core

import (
	"testing"

	"github.com/tomsik68/llvm2c/src/ctype"
	"github.com/tomsik68/llvm2c/src/expr"
	"github.com/tomsik68/llvm2c/src/ir"
	"github.com/tomsik68/llvm2c/src/util"
)

// -------------------
// ----- Helpers -----
// -------------------

var i32 = &ir.IntType{Width: 32}
var voidT = &ir.VoidType{}

// helperConst returns a 32-bit integer constant.
func helperConst(v int64) *ir.ConstInt {
	return &ir.ConstInt{Typ: i32, V: v}
}

// helperFunc wraps blocks into a function definition returning int.
func helperFunc(name string, blocks ...*ir.Block) *ir.Function {
	return &ir.Function{
		Name:   name,
		Typ:    &ir.FuncType{Ret: i32},
		Blocks: blocks,
	}
}

// helperProgram lifts a module and fails the test on error.
func helperProgram(t *testing.T, m *ir.Module) *Program {
	t.Helper()
	p, err := NewProgram(util.Options{Threads: 1}, m)
	if err != nil {
		t.Fatalf("could not translate module: %s", err)
	}
	return p
}

// ---------------------
// ----- Functions -----
// ---------------------

// TestConstantAddition lifts "add i32 1, 2; ret" into an assignment of a
// fresh value followed by a return of that value.
func TestConstantAddition(t *testing.T) {
	add := &ir.Instruction{Op: ir.Add, Typ: i32, Ops: []ir.Value{helperConst(1), helperConst(2)}}
	ret := &ir.Instruction{Op: ir.Ret, Typ: voidT, Ops: []ir.Value{add}}
	bb := &ir.Block{Name: "entry", Insts: []*ir.Instruction{add, ret}}
	m := &ir.Module{Funcs: []*ir.Function{helperFunc("f", bb)}}

	p := helperProgram(t, m)
	f := p.Definitions[0]
	stmts := f.BlockList[0].Statements()
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}

	assign, ok := stmts[0].(*expr.AssignExpr)
	if !ok {
		t.Fatalf("statement 0 is %T, expected assignment", stmts[0])
	}
	lv, ok := assign.Left.(*expr.Value)
	if !ok || lv.Name != "var0" {
		t.Fatalf("assignment target is not var0")
	}
	if _, ok := assign.Right.(*expr.AddExpr); !ok {
		t.Fatalf("assignment source is %T, expected addition", assign.Right)
	}

	retE, ok := stmts[1].(*expr.RetExpr)
	if !ok {
		t.Fatalf("statement 1 is %T, expected return", stmts[1])
	}
	if retE.E != f.getExpr(add) {
		t.Error("return does not reference the bound value of the addition")
	}
}

// TestPointerLoadStore lifts alloca/store/load/ret and checks the statement
// shapes and the shared dereference cache.
func TestPointerLoadStore(t *testing.T) {
	alloca := &ir.Instruction{Op: ir.Alloca, Typ: &ir.PointerType{Elem: i32}}
	store := &ir.Instruction{Op: ir.Store, Typ: voidT, Ops: []ir.Value{helperConst(7), alloca}}
	load := &ir.Instruction{Op: ir.Load, Typ: i32, Ops: []ir.Value{alloca}}
	ret := &ir.Instruction{Op: ir.Ret, Typ: voidT, Ops: []ir.Value{load}}
	bb := &ir.Block{Name: "entry", Insts: []*ir.Instruction{alloca, store, load, ret}}
	m := &ir.Module{Funcs: []*ir.Function{helperFunc("f", bb)}}

	p := helperProgram(t, m)
	f := p.Definitions[0]
	stmts := f.BlockList[0].Statements()
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(stmts))
	}
	if _, ok := stmts[0].(*expr.StackAlloc); !ok {
		t.Fatalf("statement 0 is %T, expected stack allocation", stmts[0])
	}
	assign, ok := stmts[1].(*expr.AssignExpr)
	if !ok {
		t.Fatalf("statement 1 is %T, expected assignment", stmts[1])
	}
	// The store target and the load share the cached dereference node.
	if f.getExpr(load) != assign.Left {
		t.Error("load and store do not share the cached dereference")
	}
}

// TestStructField lifts a struct field store and checks the addressed field
// access chain.
func TestStructField(t *testing.T) {
	st := &ir.StructType{Name: "struct.S", HasName: true, Fields: []ir.Type{i32, i32}}
	alloca := &ir.Instruction{Op: ir.Alloca, Typ: &ir.PointerType{Elem: st}}
	gep := &ir.Instruction{
		Op:  ir.GetElementPtr,
		Typ: &ir.PointerType{Elem: i32},
		Ops: []ir.Value{alloca, helperConst(0), helperConst(1)},
	}
	store := &ir.Instruction{Op: ir.Store, Typ: voidT, Ops: []ir.Value{helperConst(5), gep}}
	bb := &ir.Block{Name: "entry", Insts: []*ir.Instruction{alloca, gep, store}}
	m := &ir.Module{
		Structs: []*ir.StructType{st},
		Funcs:   []*ir.Function{helperFunc("f", bb)},
	}

	p := helperProgram(t, m)
	s := p.GetStruct("S")
	if s == nil {
		t.Fatal("struct S was not registered")
	}
	if len(s.Items) != 2 || s.Items[0].Name != "structVar0" || s.Items[1].Name != "structVar1" {
		t.Fatalf("unexpected struct member names: %+v", s.Items)
	}

	f := p.Definitions[0]
	stmts := f.BlockList[0].Statements()
	assign, ok := stmts[len(stmts)-1].(*expr.AssignExpr)
	if !ok {
		t.Fatalf("last statement is %T, expected assignment", stmts[len(stmts)-1])
	}
	se, ok := assign.Left.(*expr.StructElement)
	if !ok {
		t.Fatalf("store target is %T, expected struct member access", assign.Left)
	}
	if se.Element != 1 {
		t.Errorf("store selects member %d, expected 1", se.Element)
	}
}

// TestSwitchCaseOrder verifies switch lifting preserves the IR case order.
func TestSwitchCaseOrder(t *testing.T) {
	retBlock := func(v int64) *ir.Block {
		return &ir.Block{Insts: []*ir.Instruction{
			{Op: ir.Ret, Typ: voidT, Ops: []ir.Value{helperConst(v)}},
		}}
	}
	bb1, bb2, bb3 := retBlock(1), retBlock(2), retBlock(3)
	arg := &ir.Argument{Name: "x", Typ: i32}
	sw := &ir.Instruction{
		Op:      ir.Switch,
		Typ:     voidT,
		Ops:     []ir.Value{arg},
		Default: bb3,
		Cases: []ir.SwitchCase{
			{V: 0, Target: bb1},
			{V: 1, Target: bb2},
		},
	}
	entry := &ir.Block{Insts: []*ir.Instruction{sw}}
	fn := &ir.Function{
		Name:   "f",
		Typ:    &ir.FuncType{Ret: i32, Params: []ir.Type{i32}},
		Args:   []*ir.Argument{arg},
		Blocks: []*ir.Block{entry, bb1, bb2, bb3},
	}
	p := helperProgram(t, &ir.Module{Funcs: []*ir.Function{fn}})

	f := p.Definitions[0]
	sws, ok := f.BlockList[0].Statements()[0].(*expr.SwitchExpr)
	if !ok {
		t.Fatal("entry statement is not a switch")
	}
	if len(sws.Cases) != 2 || sws.Cases[0].V != 0 || sws.Cases[1].V != 1 {
		t.Fatalf("case order not preserved: %+v", sws.Cases)
	}
	if sws.Default == nil {
		t.Fatal("default target lost")
	}
}

// TestDebugNameRecovery applies a dbg.declare payload and checks name and
// signedness recovery.
func TestDebugNameRecovery(t *testing.T) {
	alloca := &ir.Instruction{Op: ir.Alloca, Typ: &ir.PointerType{Elem: i32}}
	dbgFn := &ir.Function{Name: "llvm.dbg.declare", Typ: &ir.FuncType{Ret: voidT}, IsDecl: true}
	dbg := &ir.Instruction{
		Op:     ir.Call,
		Typ:    voidT,
		Callee: dbgFn,
		Debug:  &ir.DebugDeclare{Target: alloca, Name: "count", TypeName: "unsigned int"},
	}
	ret := &ir.Instruction{Op: ir.Ret, Typ: voidT}
	bb := &ir.Block{Insts: []*ir.Instruction{alloca, dbg, ret}}
	m := &ir.Module{Funcs: []*ir.Function{helperFunc("f", bb)}}

	p := helperProgram(t, m)
	f := p.Definitions[0]
	v := f.valueMap[ir.Value(alloca)]
	if v == nil {
		t.Fatal("alloca has no value entry")
	}
	if v.Name != "count" {
		t.Errorf("recovered name = %q, expected count", v.Name)
	}
	it, ok := v.Typ.(*ctype.Int)
	if !ok || !it.Unsigned {
		t.Error("signedness was not upgraded from debug metadata")
	}
}

// TestDebugNameSkipsSynthesized verifies that synthesized source names never
// overwrite the display name.
func TestDebugNameSkipsSynthesized(t *testing.T) {
	alloca := &ir.Instruction{Op: ir.Alloca, Typ: &ir.PointerType{Elem: i32}}
	dbgFn := &ir.Function{Name: "llvm.dbg.declare", Typ: &ir.FuncType{Ret: voidT}, IsDecl: true}
	dbg := &ir.Instruction{
		Op:     ir.Call,
		Typ:    voidT,
		Callee: dbgFn,
		Debug:  &ir.DebugDeclare{Target: alloca, Name: "var7"},
	}
	bb := &ir.Block{Insts: []*ir.Instruction{alloca, dbg}}
	p := helperProgram(t, &ir.Module{Funcs: []*ir.Function{helperFunc("f", bb)}})

	v := p.Definitions[0].valueMap[ir.Value(alloca)]
	if v.Name != "var0" {
		t.Errorf("display name = %q, expected var0 to survive", v.Name)
	}
}

// TestConstantExpressionMode lifts a constant expression operand without a
// statement entry, bound under the constant's handle.
func TestConstantExpressionMode(t *testing.T) {
	ce := &ir.ConstExpr{Op: ir.Add, Typ: i32, Ops: []ir.Value{helperConst(1), helperConst(2)}}
	ret := &ir.Instruction{Op: ir.Ret, Typ: voidT, Ops: []ir.Value{ce}}
	bb := &ir.Block{Insts: []*ir.Instruction{ret}}
	p := helperProgram(t, &ir.Module{Funcs: []*ir.Function{helperFunc("f", bb)}})

	f := p.Definitions[0]
	if len(f.BlockList[0].Statements()) != 1 {
		t.Fatalf("constant expression leaked a statement")
	}
	if _, ok := f.getExpr(ce).(*expr.AddExpr); !ok {
		t.Fatalf("constant expression bound as %T, expected addition", f.getExpr(ce))
	}
}

// TestUnsupportedOpcode verifies phi surfaces a structured error carrying
// the rendered instruction.
func TestUnsupportedOpcode(t *testing.T) {
	phi := &ir.Instruction{Op: ir.Phi, Typ: i32, Name: "p"}
	bb := &ir.Block{Insts: []*ir.Instruction{phi}}
	_, err := NewProgram(util.Options{Threads: 1}, &ir.Module{Funcs: []*ir.Function{helperFunc("f", bb)}})
	if err == nil {
		t.Fatal("expected an error for phi")
	}
	ce, ok := err.(*Error)
	if !ok || ce.Kind != ErrUnsupportedInstruction {
		t.Fatalf("expected unsupported-instruction error, got %v", err)
	}
	if len(ce.Inst) == 0 {
		t.Error("error does not carry the rendered instruction")
	}
}

// TestUnorderedCompareRejected verifies FCMP ORD/UNO surface errors.
func TestUnorderedCompareRejected(t *testing.T) {
	for _, e1 := range []ir.Predicate{ir.FloatORD, ir.FloatUNO, ir.BadPredicate} {
		cmp := &ir.Instruction{
			Op:   ir.FCmp,
			Typ:  &ir.IntType{Width: 1},
			Ops:  []ir.Value{&ir.ConstFloat{Typ: &ir.FloatType{Kind: ir.Double}}, &ir.ConstFloat{Typ: &ir.FloatType{Kind: ir.Double}}},
			Pred: e1,
		}
		bb := &ir.Block{Insts: []*ir.Instruction{cmp}}
		_, err := NewProgram(util.Options{Threads: 1}, &ir.Module{Funcs: []*ir.Function{helperFunc("f", bb)}})
		if err == nil {
			t.Fatalf("expected an error for predicate %s", e1)
		}
	}
}

// TestVarNameCollision verifies global names of the var<N> form are excluded
// from the per-function counter.
func TestVarNameCollision(t *testing.T) {
	g := &ir.Global{Name: "var1", HasName: true, Typ: &ir.PointerType{Elem: i32}}
	a1 := &ir.Instruction{Op: ir.Alloca, Typ: &ir.PointerType{Elem: i32}}
	a2 := &ir.Instruction{Op: ir.Alloca, Typ: &ir.PointerType{Elem: i32}}
	bb := &ir.Block{Insts: []*ir.Instruction{a1, a2}}
	m := &ir.Module{Globals: []*ir.Global{g}, Funcs: []*ir.Function{helperFunc("f", bb)}}

	p := helperProgram(t, m)
	f := p.Definitions[0]
	n1 := f.valueMap[ir.Value(a1)].Name
	n2 := f.valueMap[ir.Value(a2)].Name
	if n1 != "var0" || n2 != "var2" {
		t.Errorf("variable names = %q, %q; expected var0, var2", n1, n2)
	}
}

// TestGlobalNaming verifies private linkage prefixing, dot replacement and
// unnamed global name synthesis.
func TestGlobalNaming(t *testing.T) {
	m := &ir.Module{Globals: []*ir.Global{
		{Name: ".str", HasName: true, Private: true, Typ: &ir.PointerType{Elem: i32}},
		{Typ: &ir.PointerType{Elem: i32}},
	}}
	p := helperProgram(t, m)
	if p.GlobalVars[0].Name != "ConstGlobalVar_str" {
		t.Errorf("private global name = %q", p.GlobalVars[0].Name)
	}
	if p.GlobalVars[1].Name != "gvar0" {
		t.Errorf("unnamed global name = %q", p.GlobalVars[1].Name)
	}
}

// TestStackSaveElided verifies stacksave/stackrestore calls are dropped and
// the function is flagged.
func TestStackSaveElided(t *testing.T) {
	ssFn := &ir.Function{Name: "llvm.stacksave", Typ: &ir.FuncType{Ret: &ir.PointerType{Elem: &ir.IntType{Width: 8}}}, IsDecl: true}
	call := &ir.Instruction{Op: ir.Call, Typ: ssFn.Typ.Ret, Callee: ssFn}
	bb := &ir.Block{Insts: []*ir.Instruction{call}}
	p := helperProgram(t, &ir.Module{Funcs: []*ir.Function{helperFunc("f", bb)}})

	f := p.Definitions[0]
	if len(f.BlockList[0].Statements()) != 0 {
		t.Error("stacksave leaked a statement")
	}
	if !f.StackIgnored || !p.StackIgnored {
		t.Error("stack elision flag not set")
	}
}

// TestIncludeHeuristics verifies called standard names flip the header
// flags.
func TestIncludeHeuristics(t *testing.T) {
	pf := &ir.Function{Name: "printf", Typ: &ir.FuncType{Ret: i32, VarArg: true}, IsDecl: true}
	call := &ir.Instruction{Op: ir.Call, Typ: i32, Callee: pf}
	bb := &ir.Block{Insts: []*ir.Instruction{call}}
	m := &ir.Module{Funcs: []*ir.Function{pf, helperFunc("f", bb)}}

	p := helperProgram(t, m)
	if !p.HasStdio {
		t.Error("printf call did not set the stdio flag")
	}
}

// TestVaListStruct verifies the __va_list_tag struct synthesis and the
// vararg flag.
func TestVaListStruct(t *testing.T) {
	st := &ir.StructType{Name: "struct.__va_list_tag", HasName: true}
	p := helperProgram(t, &ir.Module{Structs: []*ir.StructType{st}})
	if !p.HasVarArg {
		t.Error("vararg flag not set")
	}
	s := p.GetStruct("__va_list_tag")
	if s == nil || len(s.Items) != 4 || s.Items[0].Name != "gp_offset" {
		t.Error("va_list struct members not synthesized")
	}
}
