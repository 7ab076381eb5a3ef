package writer

import (
	"strings"
	"testing"

	"github.com/tomsik68/llvm2c/src/core"
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

// helperRender translates the module and renders it into a string.
func helperRender(t *testing.T, opt util.Options, m *ir.Module) string {
	t.Helper()
	p, err := core.NewProgram(opt, m)
	if err != nil {
		t.Fatalf("could not translate module: %s", err)
	}
	out := util.NewBufferWriter()
	New(&out, p).WriteProgram()
	return out.String()
}

// helperContains fails unless every want string appears in the output.
func helperContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, e1 := range want {
		if !strings.Contains(out, e1) {
			t.Errorf("output does not contain %q\noutput:\n%s", e1, out)
		}
	}
}

// ---------------------
// ----- Functions -----
// ---------------------

// TestRenderConstantAddition renders S1: the folded declaration assignment
// and the return of the fresh value.
func TestRenderConstantAddition(t *testing.T) {
	add := &ir.Instruction{Op: ir.Add, Typ: i32, Ops: []ir.Value{helperConst(1), helperConst(2)}}
	ret := &ir.Instruction{Op: ir.Ret, Typ: voidT, Ops: []ir.Value{add}}
	bb := &ir.Block{Insts: []*ir.Instruction{add, ret}}
	out := helperRender(t, util.Options{Threads: 1}, &ir.Module{Funcs: []*ir.Function{helperFunc("f", bb)}})

	helperContains(t, out, "int f()", "int var0 = 1 + 2;", "return var0;")
}

// TestRenderPointerLoadStore renders S2: store and load through the address
// of a stack variable.
func TestRenderPointerLoadStore(t *testing.T) {
	alloca := &ir.Instruction{Op: ir.Alloca, Typ: &ir.PointerType{Elem: i32}}
	store := &ir.Instruction{Op: ir.Store, Typ: voidT, Ops: []ir.Value{helperConst(7), alloca}}
	load := &ir.Instruction{Op: ir.Load, Typ: i32, Ops: []ir.Value{alloca}}
	ret := &ir.Instruction{Op: ir.Ret, Typ: voidT, Ops: []ir.Value{load}}
	bb := &ir.Block{Insts: []*ir.Instruction{alloca, store, load, ret}}
	out := helperRender(t, util.Options{Threads: 1}, &ir.Module{Funcs: []*ir.Function{helperFunc("f", bb)}})

	helperContains(t, out, "int var0;", "*(&var0) = 7;", "return *(&var0);")
}

// TestRenderStructField renders S3: the struct definition with synthesized
// member names and the field assignment through the stack variable.
func TestRenderStructField(t *testing.T) {
	st := &ir.StructType{Name: "struct.S", HasName: true, Fields: []ir.Type{i32, i32}}
	alloca := &ir.Instruction{Op: ir.Alloca, Typ: &ir.PointerType{Elem: st}}
	gep := &ir.Instruction{
		Op:  ir.GetElementPtr,
		Typ: &ir.PointerType{Elem: i32},
		Ops: []ir.Value{alloca, helperConst(0), helperConst(1)},
	}
	store := &ir.Instruction{Op: ir.Store, Typ: voidT, Ops: []ir.Value{helperConst(5), gep}}
	bb := &ir.Block{Insts: []*ir.Instruction{alloca, gep, store}}
	m := &ir.Module{Structs: []*ir.StructType{st}, Funcs: []*ir.Function{helperFunc("f", bb)}}
	out := helperRender(t, util.Options{Threads: 1}, m)

	helperContains(t, out,
		"struct S {",
		"int structVar0;",
		"int structVar1;",
		"struct S var0;",
		"(&var0)->structVar1 = 5;")
}

// TestRenderSwitch renders S4: case order and goto targets.
func TestRenderSwitch(t *testing.T) {
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
		Cases:   []ir.SwitchCase{{V: 0, Target: bb1}, {V: 1, Target: bb2}},
	}
	entry := &ir.Block{Insts: []*ir.Instruction{sw}}
	fn := &ir.Function{
		Name:   "f",
		Typ:    &ir.FuncType{Ret: i32, Params: []ir.Type{i32}},
		Args:   []*ir.Argument{arg},
		Blocks: []*ir.Block{entry, bb1, bb2, bb3},
	}
	out := helperRender(t, util.Options{Threads: 1}, &ir.Module{Funcs: []*ir.Function{fn}})

	helperContains(t, out,
		"switch (var0)",
		"case 0: goto block1;",
		"case 1: goto block2;",
		"default: goto block3;",
		"block1:",
		"return 1;")

	if strings.Index(out, "case 0:") > strings.Index(out, "case 1:") {
		t.Error("case order not preserved in output")
	}
}

// TestRenderInlineAsm renders S5: constraint parsing, output binding through
// the consuming store and the clobber list.
func TestRenderInlineAsm(t *testing.T) {
	ia := &ir.InlineAsm{
		Typ:         &ir.FuncType{Ret: i32, Params: []ir.Type{i32}},
		Template:    "movl %1, %0",
		Constraints: "=r,r,~{rax}",
	}
	in := &ir.Instruction{Op: ir.Alloca, Typ: &ir.PointerType{Elem: i32}}
	outVar := &ir.Instruction{Op: ir.Alloca, Typ: &ir.PointerType{Elem: i32}}
	load := &ir.Instruction{Op: ir.Load, Typ: i32, Ops: []ir.Value{in}}
	call := &ir.Instruction{Op: ir.Call, Typ: i32, Callee: ia, Args: []ir.Value{load}}
	store := &ir.Instruction{Op: ir.Store, Typ: voidT, Ops: []ir.Value{call, outVar}}
	bb := &ir.Block{Insts: []*ir.Instruction{in, outVar, load, call, store}}
	out := helperRender(t, util.Options{Threads: 1}, &ir.Module{Funcs: []*ir.Function{helperFunc("f", bb)}})

	helperContains(t, out,
		`__asm__("movl %1, %0"`,
		`"=r" (&var1)`,
		`"r" (*(&var0))`,
		`"%rax"`)
}

// TestRenderDebugName renders S6: the recovered name and signedness in the
// declaration.
func TestRenderDebugName(t *testing.T) {
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
	out := helperRender(t, util.Options{Threads: 1}, &ir.Module{Funcs: []*ir.Function{helperFunc("f", bb)}})

	helperContains(t, out, "unsigned int count;")
}

// TestRenderLogicalShift verifies the unsigned cast around the left operand
// of lshr.
func TestRenderLogicalShift(t *testing.T) {
	arg := &ir.Argument{Name: "x", Typ: i32}
	shift := &ir.Instruction{Op: ir.LShr, Typ: i32, Ops: []ir.Value{arg, helperConst(2)}}
	ret := &ir.Instruction{Op: ir.Ret, Typ: voidT, Ops: []ir.Value{shift}}
	bb := &ir.Block{Insts: []*ir.Instruction{shift, ret}}
	fn := &ir.Function{
		Name:   "f",
		Typ:    &ir.FuncType{Ret: i32, Params: []ir.Type{i32}},
		Args:   []*ir.Argument{arg},
		Blocks: []*ir.Block{bb},
	}
	out := helperRender(t, util.Options{Threads: 1}, &ir.Module{Funcs: []*ir.Function{fn}})

	helperContains(t, out, "(unsigned int)(var0) >> (2)")
}

// TestRenderStructOrder verifies a struct referencing another struct forces
// the referenced definition first.
func TestRenderStructOrder(t *testing.T) {
	inner := &ir.StructType{Name: "struct.Inner", HasName: true, Fields: []ir.Type{i32}}
	outer := &ir.StructType{Name: "struct.Outer", HasName: true, Fields: []ir.Type{inner}}
	m := &ir.Module{Structs: []*ir.StructType{outer, inner}}
	out := helperRender(t, util.Options{Threads: 1}, m)

	pi := strings.Index(out, "struct Inner {")
	po := strings.Index(out, "struct Outer {")
	if pi < 0 || po < 0 {
		t.Fatalf("struct definitions missing:\n%s", out)
	}
	if pi > po {
		t.Error("referenced struct emitted after its user")
	}
}

// TestRenderGlobals verifies global definitions carry the loader-formed
// initializer and references go through the address.
func TestRenderGlobals(t *testing.T) {
	g := &ir.Global{Name: "g", HasName: true, Typ: &ir.PointerType{Elem: i32}, Init: "7", HasInit: true}
	store := &ir.Instruction{Op: ir.Store, Typ: voidT, Ops: []ir.Value{helperConst(5), g}}
	ret := &ir.Instruction{Op: ir.Ret, Typ: voidT}
	bb := &ir.Block{Insts: []*ir.Instruction{store, ret}}
	m := &ir.Module{Globals: []*ir.Global{g}, Funcs: []*ir.Function{helperFunc("f", bb)}}
	out := helperRender(t, util.Options{Threads: 1}, m)

	helperContains(t, out, "int g = 7;", "*(&g) = 5;")
}

// TestRenderVaStart verifies the trailing last-parameter argument and the
// void* cast of the va_list argument.
func TestRenderVaStart(t *testing.T) {
	i8 := &ir.IntType{Width: 8}
	vaFn := &ir.Function{Name: "llvm.va_start", Typ: &ir.FuncType{Ret: voidT, Params: []ir.Type{&ir.PointerType{Elem: i8}}}, IsDecl: true}
	arg := &ir.Argument{Name: "n", Typ: i32}
	alloca := &ir.Instruction{Op: ir.Alloca, Typ: &ir.PointerType{Elem: i8}}
	call := &ir.Instruction{Op: ir.Call, Typ: voidT, Callee: vaFn, Args: []ir.Value{alloca}}
	ret := &ir.Instruction{Op: ir.Ret, Typ: voidT, Ops: []ir.Value{helperConst(0)}}
	bb := &ir.Block{Insts: []*ir.Instruction{alloca, call, ret}}
	fn := &ir.Function{
		Name:   "f",
		Typ:    &ir.FuncType{Ret: i32, Params: []ir.Type{i32}, VarArg: true},
		Args:   []*ir.Argument{arg},
		Blocks: []*ir.Block{bb},
	}
	out := helperRender(t, util.Options{Threads: 1}, &ir.Module{Funcs: []*ir.Function{vaFn, fn}})

	helperContains(t, out, "va_start((void*)(&var1), var0);")
}

// TestRenderInlinedBlock verifies a block flagged for inlining is emitted in
// place of its goto.
func TestRenderInlinedBlock(t *testing.T) {
	body := &ir.Block{Inline: true, Insts: []*ir.Instruction{
		{Op: ir.Ret, Typ: voidT, Ops: []ir.Value{helperConst(3)}},
	}}
	br := &ir.Instruction{Op: ir.Br, Typ: voidT, Ops: []ir.Value{body}}
	entry := &ir.Block{Insts: []*ir.Instruction{br}}
	out := helperRender(t, util.Options{Threads: 1}, &ir.Module{Funcs: []*ir.Function{helperFunc("f", entry, body)}})

	if strings.Contains(out, "goto") {
		t.Errorf("inlined block still emitted as goto:\n%s", out)
	}
	helperContains(t, out, "return 3;")
}

// TestRenderConditionalBranch verifies if/else rendering over block labels.
func TestRenderConditionalBranch(t *testing.T) {
	thenB := &ir.Block{Insts: []*ir.Instruction{{Op: ir.Ret, Typ: voidT, Ops: []ir.Value{helperConst(1)}}}}
	elseB := &ir.Block{Insts: []*ir.Instruction{{Op: ir.Ret, Typ: voidT, Ops: []ir.Value{helperConst(0)}}}}
	arg := &ir.Argument{Name: "x", Typ: i32}
	cmp := &ir.Instruction{Op: ir.ICmp, Typ: &ir.IntType{Width: 1}, Pred: ir.IntSGT, Ops: []ir.Value{arg, helperConst(0)}}
	br := &ir.Instruction{Op: ir.Br, Typ: voidT, Ops: []ir.Value{cmp, elseB, thenB}}
	entry := &ir.Block{Insts: []*ir.Instruction{cmp, br}}
	fn := &ir.Function{
		Name:   "f",
		Typ:    &ir.FuncType{Ret: i32, Params: []ir.Type{i32}},
		Args:   []*ir.Argument{arg},
		Blocks: []*ir.Block{entry, thenB, elseB},
	}
	out := helperRender(t, util.Options{Threads: 1}, &ir.Module{Funcs: []*ir.Function{fn}})

	helperContains(t, out,
		"bool var1 = var0 > 0;",
		"if (var1) {",
		"goto block1;",
		"} else {",
		"goto block2;")
}

// TestFirstDeclarationOnce verifies each value's declarator appears exactly
// once in its defining function.
func TestFirstDeclarationOnce(t *testing.T) {
	alloca := &ir.Instruction{Op: ir.Alloca, Typ: &ir.PointerType{Elem: i32}}
	s1 := &ir.Instruction{Op: ir.Store, Typ: voidT, Ops: []ir.Value{helperConst(1), alloca}}
	s2 := &ir.Instruction{Op: ir.Store, Typ: voidT, Ops: []ir.Value{helperConst(2), alloca}}
	ret := &ir.Instruction{Op: ir.Ret, Typ: voidT, Ops: []ir.Value{helperConst(0)}}
	bb := &ir.Block{Insts: []*ir.Instruction{alloca, s1, s2, ret}}
	out := helperRender(t, util.Options{Threads: 1}, &ir.Module{Funcs: []*ir.Function{helperFunc("f", bb)}})

	if strings.Count(out, "int var0;") != 1 {
		t.Errorf("declarator of var0 emitted %d times:\n%s", strings.Count(out, "int var0;"), out)
	}
}
