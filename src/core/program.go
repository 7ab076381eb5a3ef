// Package core owns the translated program: functions, structs and global
// variables, name synthesis, and the per-instruction lifting of IR into the
// C expression tree.
package core

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/tomsik68/llvm2c/src/ctype"
	"github.com/tomsik68/llvm2c/src/expr"
	"github.com/tomsik68/llvm2c/src/ir"
	"github.com/tomsik68/llvm2c/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Program represents the whole translated module. It exclusively owns all
// functions, structs and global values for the module's lifetime; expression
// children are weak references into these owners.
type Program struct {
	mod *ir.Module
	th  *TypeHandler

	funcs        map[*ir.Function]*Func // Function definitions by IR handle.
	Definitions  []*Func                // Definitions in module order.
	Declarations []*Func                // Declarations in module order.

	structs        []*expr.Struct               // Owned struct definitions in registration order.
	unnamedStructs map[*ir.StructType]*expr.Struct // Unnamed structs keyed by IR identity.

	GlobalVars []*expr.GlobalValue         // Owned globals in module order.
	globalRefs map[*ir.Global]*expr.RefExpr // Address-of wrappers for global references.

	// Names of global variables in "var[0-9]+" form, excluded from the
	// per-function variable counters to avoid collisions.
	globalVarNames map[string]bool

	structVarCount  int // Counter for unnamed struct members.
	anonStructCount int // Counter for unnamed structs.
	gvarCount       int // Counter for unnamed globals.

	StackIgnored bool // Set when stacksave/stackrestore calls were dropped.

	HasVarArg  bool // Module uses "stdarg.h".
	HasStdLib  bool // Module uses "stdlib.h".
	HasString  bool // Module uses "string.h".
	HasStdio   bool // Module uses "stdio.h".
	HasPthread bool // Module uses "pthread.h".

	Includes    bool // Emit #include prologue for recognised standard functions.
	NoFuncCasts bool // Strip casts around function pointer calls.

	mx sync.Mutex // Guards counters and registries during parallel lifts.
}

// -------------------
// ----- Globals -----
// -------------------

// varNameRegex matches synthesized local variable names.
var varNameRegex = regexp.MustCompile(`^var[0-9]+$`)

// constGlobalRegex matches synthesized private global names.
var constGlobalRegex = regexp.MustCompile(`^ConstGlobalVar_.+$`)

// ---------------------
// ----- Functions -----
// ---------------------

// NewProgram translates the given module into a Program. The reference
// behaviour is deterministic sequential; opt.Threads above one lifts distinct
// functions in parallel with the type interner and registries guarded.
func NewProgram(opt util.Options, m *ir.Module) (*Program, error) {
	p := &Program{
		mod:            m,
		funcs:          make(map[*ir.Function]*Func, len(m.Funcs)),
		unnamedStructs: make(map[*ir.StructType]*expr.Struct),
		globalRefs:     make(map[*ir.Global]*expr.RefExpr, len(m.Globals)),
		globalVarNames: make(map[string]bool),
		Includes:       opt.Includes,
		NoFuncCasts:    opt.NoFuncCasts,
	}
	p.th = &TypeHandler{p: p}

	if err := p.parseStructs(); err != nil {
		return nil, err
	}
	if err := p.parseGlobalVars(); err != nil {
		return nil, err
	}
	if err := p.parseFunctions(opt.Threads); err != nil {
		return nil, err
	}
	return p, nil
}

// parseStructs registers every identified struct type of the module in order.
// The __va_list_tag struct is synthesized with its fixed member list and
// flags the module as variadic.
func (p *Program) parseStructs() error {
	for _, e1 := range p.mod.Structs {
		name := trimStructPrefix(e1.Name)

		if name == "__va_list_tag" {
			p.HasVarArg = true
			s := &expr.Struct{Name: name}
			s.AddItem(&ctype.Int{Width: 32, Unsigned: true}, "gp_offset")
			s.AddItem(&ctype.Int{Width: 32, Unsigned: true}, "fp_offset")
			s.AddItem(&ctype.Pointer{Pointee: &ctype.Void{}, Levels: 1}, "overflow_arg_area")
			s.AddItem(&ctype.Pointer{Pointee: &ctype.Void{}, Levels: 1}, "reg_save_area")
			p.structs = append(p.structs, s)
			continue
		}

		s := &expr.Struct{Name: name}
		for _, e2 := range e1.Fields {
			t, err := p.th.getType(e2, false)
			if err != nil {
				return err
			}
			s.AddItem(t, p.getStructVarName())
		}
		p.structs = append(p.structs, s)
	}
	return nil
}

// parseGlobalVars registers every global variable, synthesizing names for
// unnamed globals and rewriting private linkage names. Globals are always
// referenced by address.
func (p *Program) parseGlobalVars() error {
	for _, e1 := range p.mod.Globals {
		var name string
		if e1.HasName {
			if e1.Private {
				name = "ConstGlobalVar"
			}
			name += replaceDots(e1.Name)
		} else {
			name = p.getGvarName()
		}

		if varNameRegex.MatchString(name) {
			p.globalVarNames[name] = true
		}

		pt, ok := e1.Typ.(*ir.PointerType)
		if !ok {
			return &Error{Kind: ErrUnsupportedType, Msg: "global variable without pointer type: " + e1.String()}
		}
		t, err := p.th.getType(pt.Elem, false)
		if err != nil {
			return err
		}

		gv := &expr.GlobalValue{
			Value:     expr.Value{Name: name, Typ: t},
			InitValue: e1.Init,
		}
		p.GlobalVars = append(p.GlobalVars, gv)
		p.globalRefs[e1] = expr.NewRef(gv)
	}
	return nil
}

// parseFunctions creates declaration entries, then lifts every function
// definition, sequentially or across the given number of worker threads.
func (p *Program) parseFunctions(threads int) error {
	for _, e1 := range p.mod.Funcs {
		// Intrinsics are renamed or dropped at their call sites; emitting
		// declarations for dotted llvm.* names would not be valid C.
		if strings.HasPrefix(e1.Name, "llvm.") {
			continue
		}
		if e1.IsDecl || e1.Internal {
			decl, err := newFunc(p, e1, true)
			if err != nil {
				return err
			}
			p.Declarations = append(p.Declarations, decl)
		}
		if !e1.IsDecl {
			f, err := newFunc(p, e1, false)
			if err != nil {
				return err
			}
			if !e1.Internal {
				p.Declarations = append(p.Declarations, f)
			}
			p.funcs[e1] = f
			p.Definitions = append(p.Definitions, f)
		}
	}

	if threads > 1 {
		return p.parseBodiesParallel(threads)
	}
	for _, e1 := range p.Definitions {
		if err := e1.parse(); err != nil {
			return err
		}
	}
	return nil
}

// parseBodiesParallel lifts distinct function bodies across worker threads.
// Shared registries are guarded; errors funnel through the parallel error
// collector.
func (p *Program) parseBodiesParallel(threads int) error {
	l := len(p.Definitions)
	if l == 0 {
		return nil
	}
	t := threads
	if t > l {
		t = l
	}
	n := l / t
	res := l % t

	pe := util.NewPerror(l)
	wg := sync.WaitGroup{}
	wg.Add(t)

	start := 0
	end := n
	for i1 := 0; i1 < t; i1++ {
		if i1 < res {
			// This thread should do one extra residual job.
			end++
		}
		go func(start, end int) {
			defer wg.Done()
			for _, e1 := range p.Definitions[start:end] {
				pe.Append(e1.parse())
			}
		}(start, end)
		start = end
		end += n
	}
	wg.Wait()

	if pe.Len() > 0 {
		for e1 := range pe.Errors() {
			return e1
		}
	}
	return nil
}

// GetFunction returns the translated function for the given IR handle, nil
// if the handle is unknown.
func (p *Program) GetFunction(f *ir.Function) *Func {
	return p.funcs[f]
}

// GetStruct returns the owned struct definition with the given name, nil if
// no such struct exists.
func (p *Program) GetStruct(name string) *expr.Struct {
	for _, e1 := range p.structs {
		if e1.Name == name {
			return e1
		}
	}
	return nil
}

// getStructByType resolves an IR struct type to the owned definition,
// registering unnamed structs on first sighting.
func (p *Program) getStructByType(t *ir.StructType) (*expr.Struct, error) {
	if !t.HasName {
		return p.createUnnamedStruct(t)
	}
	if s := p.GetStruct(trimStructPrefix(t.Name)); s != nil {
		return s, nil
	}
	// An identified struct reached through an instruction before the module
	// listed it; register it now.
	s := &expr.Struct{Name: trimStructPrefix(t.Name)}
	for _, e1 := range t.Fields {
		ft, err := p.th.getType(e1, false)
		if err != nil {
			return nil, err
		}
		s.AddItem(ft, p.getStructVarName())
	}
	p.mx.Lock()
	p.structs = append(p.structs, s)
	p.mx.Unlock()
	return s, nil
}

// Structs returns the owned struct definitions in registration order.
func (p *Program) Structs() []*expr.Struct {
	return p.structs
}

// createUnnamedStruct registers the unnamed struct and assigns it a fresh
// anonStruct name on first sighting.
func (p *Program) createUnnamedStruct(t *ir.StructType) (*expr.Struct, error) {
	p.th.Lock()
	defer p.th.Unlock()
	return p.createUnnamedStructLocked(t)
}

func (p *Program) createUnnamedStructLocked(t *ir.StructType) (*expr.Struct, error) {
	if s, ok := p.unnamedStructs[t]; ok {
		return s, nil
	}
	s := &expr.Struct{Name: p.getAnonStructName()}
	p.unnamedStructs[t] = s
	for _, e1 := range t.Fields {
		ft, err := p.th.getTypeLocked(e1, false)
		if err != nil {
			return nil, err
		}
		s.AddItem(ft, p.getStructVarName())
	}
	p.mx.Lock()
	p.structs = append(p.structs, s)
	p.mx.Unlock()
	return s, nil
}

// getGlobalRef returns the address-of reference of the given IR global, nil
// if the global is unknown.
func (p *Program) getGlobalRef(g *ir.Global) *expr.RefExpr {
	return p.globalRefs[g]
}

// getStructVarName creates a new name for an unnamed struct member.
func (p *Program) getStructVarName() string {
	p.mx.Lock()
	defer p.mx.Unlock()
	name := fmt.Sprintf("structVar%d", p.structVarCount)
	p.structVarCount++
	return name
}

// getAnonStructName creates a new name for an anonymous struct.
func (p *Program) getAnonStructName() string {
	p.mx.Lock()
	defer p.mx.Unlock()
	name := fmt.Sprintf("anonStruct%d", p.anonStructCount)
	p.anonStructCount++
	return name
}

// getGvarName creates a new name for an unnamed global variable.
func (p *Program) getGvarName() string {
	p.mx.Lock()
	defer p.mx.Unlock()
	name := fmt.Sprintf("gvar%d", p.gvarCount)
	p.gvarCount++
	return name
}

// UnsetAllInit resets the first-declaration flags on global values and the
// printed flags on structs so the program can be emitted more than once.
func (p *Program) UnsetAllInit() {
	for _, e1 := range p.GlobalVars {
		e1.Init = false
	}
	for _, e1 := range p.structs {
		e1.Printed = false
	}
}

// markIncludes flips the include heuristics for the given called function
// name.
func (p *Program) markIncludes(name string) {
	switch name {
	case "memcpy", "memmove", "memset", "strcpy", "strncpy", "strcat", "strcmp", "strlen":
		p.HasString = true
	case "printf", "fprintf", "sprintf", "snprintf", "scanf", "fscanf", "sscanf", "puts", "gets", "putchar", "getchar":
		p.HasStdio = true
	case "malloc", "calloc", "realloc", "free", "exit", "abort", "atoi", "atof":
		p.HasStdLib = true
	}
	if len(name) > 8 && name[:8] == "pthread_" {
		p.HasPthread = true
	}
}

// replaceDots maps IR names with dots into valid C identifiers.
func replaceDots(name string) string {
	b := []byte(name)
	for i1 := range b {
		if b[i1] == '.' {
			b[i1] = '_'
		}
	}
	return string(b)
}
