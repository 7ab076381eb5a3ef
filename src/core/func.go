package core

import (
	"fmt"

	"github.com/tomsik68/llvm2c/src/ctype"
	"github.com/tomsik68/llvm2c/src/expr"
	"github.com/tomsik68/llvm2c/src/ir"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Func owns the lifted form of one IR function: its blocks, one Value node
// per SSA result and the auxiliary node tables that preserve node identity
// between creation and later consumers.
type Func struct {
	p      *Program
	irFunc *ir.Function

	Name          string
	RetType       ctype.Type
	Params        []*expr.Value
	VarArg        bool
	IsDeclaration bool
	StackIgnored  bool // Set when stacksave/stackrestore was elided in this function.

	blocks    map[*ir.Block]*Block
	BlockList []*Block // Blocks in IR order.

	exprMap  map[ir.Value]expr.Expr  // One expression per lifted SSA value.
	valueMap map[ir.Value]*expr.Value // Stack variables and named values.

	derefs         map[expr.Expr]*expr.DerefExpr       // Cached dereference per target.
	refs           map[expr.Expr]*expr.RefExpr         // Cached address-of per target.
	structElements map[*ir.Instruction]*expr.StructElement // Cached field access per GEP.
	callExprMap    map[ir.Value]*expr.CallExpr         // Call node of non-void calls.
	callValueMap   map[ir.Value]*expr.AssignExpr       // Companion assignment of non-void calls.

	lastArg expr.Expr // Last declared parameter, appended to va_start calls.

	varCount   int // Counter for synthesized local names.
	blockCount int // Counter for synthesized block labels.
}

// ---------------------
// ----- Functions -----
// ---------------------

// newFunc creates the translated scaffold of an IR function: its return
// type, parameter values and, for definitions, the empty block table.
func newFunc(p *Program, f *ir.Function, isDeclaration bool) (*Func, error) {
	ret, err := p.th.getType(f.Typ.Ret, false)
	if err != nil {
		return nil, err
	}
	fn := &Func{
		p:             p,
		irFunc:        f,
		Name:          f.Name,
		RetType:       ret,
		VarArg:        f.Typ.VarArg,
		IsDeclaration: isDeclaration,
		blocks:        make(map[*ir.Block]*Block, len(f.Blocks)),
		exprMap:       make(map[ir.Value]expr.Expr),
		valueMap:      make(map[ir.Value]*expr.Value),
		derefs:        make(map[expr.Expr]*expr.DerefExpr),
		refs:          make(map[expr.Expr]*expr.RefExpr),
		structElements: make(map[*ir.Instruction]*expr.StructElement),
		callExprMap:   make(map[ir.Value]*expr.CallExpr),
		callValueMap:  make(map[ir.Value]*expr.AssignExpr),
	}

	for _, e1 := range f.Args {
		t, err := p.th.getType(e1.Typ, false)
		if err != nil {
			return nil, err
		}
		val := &expr.Value{Name: fn.getVarName(), Typ: t}
		fn.exprMap[e1] = val
		fn.valueMap[e1] = val
		fn.Params = append(fn.Params, val)
		fn.lastArg = val
	}
	return fn, nil
}

// parse lifts every basic block of the function definition into its
// statement list.
func (f *Func) parse() error {
	for _, e1 := range f.irFunc.Blocks {
		f.createBlockIfNotExist(e1)
	}
	for _, e1 := range f.irFunc.Blocks {
		b := f.blocks[e1]
		for _, e2 := range e1.Insts {
			if err := b.parseInstruction(e2, false, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// createBlockIfNotExist returns the translated block of the given IR block,
// creating it on first use.
func (f *Func) createBlockIfNotExist(bb *ir.Block) *Block {
	if b, ok := f.blocks[bb]; ok {
		return b
	}
	b := &Block{
		f:       f,
		irBlock: bb,
		name:    fmt.Sprintf("block%d", f.blockCount),
	}
	f.blockCount++
	f.blocks[bb] = b
	f.BlockList = append(f.BlockList, b)
	return b
}

// getVarName creates a new local variable name. Names already taken by
// global variables are skipped to avoid collisions.
func (f *Func) getVarName() string {
	for {
		name := fmt.Sprintf("var%d", f.varCount)
		f.varCount++
		if !f.p.globalVarNames[name] {
			return name
		}
	}
}

// getExpr looks the value up in the expression table. Global variables
// resolve to their address-of reference.
func (f *Func) getExpr(v ir.Value) expr.Expr {
	if e, ok := f.exprMap[v]; ok {
		return e
	}
	if g, ok := v.(*ir.Global); ok {
		if ref := f.p.getGlobalRef(g); ref != nil {
			return ref
		}
	}
	return nil
}

// createExpr binds the expression to the given SSA value handle.
func (f *Func) createExpr(v ir.Value, e expr.Expr) {
	f.exprMap[v] = e
}

// getType translates an IR type through the program's type handler.
func (f *Func) getType(t ir.Type) (ctype.Type, error) {
	return f.p.th.getType(t, false)
}

// derefOf returns the dereferenced form of a store or load target. A path
// expression ending in an address-of collapses to the addressed expression;
// other targets get a cached dereference node.
func (f *Func) derefOf(target expr.Expr) expr.Expr {
	if gep, ok := target.(*expr.GepExpr); ok {
		if ref, ok := gep.Last().(*expr.RefExpr); ok {
			return ref.E
		}
	}
	if d, ok := f.derefs[target]; ok {
		return d
	}
	d := expr.NewDeref(target)
	f.derefs[target] = d
	return d
}

// refOf returns the cached address-of node of the expression.
func (f *Func) refOf(e expr.Expr) *expr.RefExpr {
	if r, ok := f.refs[e]; ok {
		return r
	}
	r := expr.NewRef(e)
	f.refs[e] = r
	return r
}
