package main

import (
	"fmt"
	"strings"
	"testing"

	"github.com/tomsik68/llvm2c/src/core"
	"github.com/tomsik68/llvm2c/src/ir"
	"github.com/tomsik68/llvm2c/src/util"
	"github.com/tomsik68/llvm2c/src/writer"
)

// -----------------------------
// ----- Type definitions ------
// -----------------------------

// benchType defines a benchmark with a pre-built input module.
type benchType struct {
	name string // Informative name of benchmark.
	mod  *ir.Module
}

// ----------------------
// ----- Constants ------
// ----------------------

// p defines the maximum number of parallel threads to pass to the decompiler.
const p = 4

// ----------------------
// ----- Functions ------
// ----------------------

// helperModule builds a synthetic module with n small function definitions,
// each storing and reloading a stack variable.
func helperModule(n int) *ir.Module {
	i32 := &ir.IntType{Width: 32}
	m := &ir.Module{}
	for i1 := 0; i1 < n; i1++ {
		alloca := &ir.Instruction{Op: ir.Alloca, Typ: &ir.PointerType{Elem: i32}}
		store := &ir.Instruction{
			Op:  ir.Store,
			Typ: &ir.VoidType{},
			Ops: []ir.Value{&ir.ConstInt{Typ: i32, V: int64(i1)}, alloca},
		}
		load := &ir.Instruction{Op: ir.Load, Typ: i32, Ops: []ir.Value{alloca}}
		ret := &ir.Instruction{Op: ir.Ret, Typ: &ir.VoidType{}, Ops: []ir.Value{load}}
		bb := &ir.Block{Insts: []*ir.Instruction{alloca, store, load, ret}}
		m.Funcs = append(m.Funcs, &ir.Function{
			Name:   fmt.Sprintf("f%d", i1),
			Typ:    &ir.FuncType{Ret: i32},
			Blocks: []*ir.Block{bb},
		})
	}
	return m
}

// translate runs the lift and render stages over a module, like the run
// function but without the IR reader and without MarkInline.
func translate(opt util.Options, m *ir.Module) (string, error) {
	prog, err := core.NewProgram(opt, m)
	if err != nil {
		return "", err
	}
	out := util.NewBufferWriter()
	writer.New(&out, prog).WriteProgram()
	return out.String(), nil
}

// TestTranslatePipeline lifts a synthetic module end to end and checks every
// function body made it into the output.
func TestTranslatePipeline(t *testing.T) {
	out, err := translate(util.Options{Threads: 1}, helperModule(8))
	if err != nil {
		t.Fatalf("translation failed: %s", err)
	}
	for i1 := 0; i1 < 8; i1++ {
		if !strings.Contains(out, fmt.Sprintf("int f%d()", i1)) {
			t.Errorf("function f%d missing from output", i1)
		}
	}
}

// TestTranslateParallel verifies parallel lifting produces the same output
// as the sequential reference.
func TestTranslateParallel(t *testing.T) {
	seq, err := translate(util.Options{Threads: 1}, helperModule(16))
	if err != nil {
		t.Fatalf("sequential translation failed: %s", err)
	}
	for i2 := 2; i2 <= p; i2++ {
		par, err := translate(util.Options{Threads: i2}, helperModule(16))
		if err != nil {
			t.Fatalf("parallel translation failed with %d threads: %s", i2, err)
		}
		if par != seq {
			t.Errorf("output with %d threads differs from sequential output", i2)
		}
	}
}

// BenchmarkTranslate benchmarks lifting and rendering synthetic modules of
// growing size for 1 to p worker threads.
func BenchmarkTranslate(b *testing.B) {
	benchmarks := []benchType{
		{name: "small", mod: helperModule(4)},
		{name: "medium", mod: helperModule(64)},
		{name: "large", mod: helperModule(512)},
	}

	for _, e1 := range benchmarks {
		for i2 := 1; i2 <= p; i2++ {
			opt := util.Options{Threads: i2}
			b.Run(fmt.Sprintf("%s-threads=%d", e1.name, i2), func(b *testing.B) {
				for n := 0; n < b.N; n++ {
					if _, err := translate(opt, e1.mod); err != nil {
						b.Fatalf("translation error: %s", err)
					}
				}
			})
		}
	}
}
