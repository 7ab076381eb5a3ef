package ir

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Opcode identifies an IR instruction kind.
type Opcode int

// Instruction opcodes.
const (
	Add Opcode = iota
	FAdd
	Sub
	FSub
	Mul
	FMul
	UDiv
	SDiv
	FDiv
	URem
	SRem
	FRem
	And
	Or
	Xor
	Shl
	LShr
	AShr
	Alloca
	Load
	Store
	GetElementPtr
	ExtractValue
	ICmp
	FCmp
	Br
	Ret
	Switch
	Unreachable
	Fence
	Call
	Select
	Trunc
	ZExt
	SExt
	FPToUI
	FPToSI
	UIToFP
	SIToFP
	FPTrunc
	FPExt
	PtrToInt
	IntToPtr
	BitCast
	Phi
)

// Predicate identifies an integer or floating point compare predicate.
type Predicate int

// Compare predicates.
const (
	PredNone Predicate = iota
	IntEQ
	IntNE
	IntUGT
	IntUGE
	IntULT
	IntULE
	IntSGT
	IntSGE
	IntSLT
	IntSLE
	FloatFalse
	FloatOEQ
	FloatOGT
	FloatOGE
	FloatOLT
	FloatOLE
	FloatONE
	FloatORD
	FloatUNO
	FloatUEQ
	FloatUGT
	FloatUGE
	FloatULT
	FloatULE
	FloatUNE
	FloatTrue
	BadPredicate
)

// SwitchCase defines one labelled switch arm.
type SwitchCase struct {
	V      int64 // Signed 64-bit case selector.
	Target *Block
}

// DebugDeclare carries the payload of a llvm.dbg.declare call, distilled by
// the loader from the local variable descriptor metadata.
type DebugDeclare struct {
	Target   Value  // The value the metadata refers to.
	Name     string // Source-level variable name, may be empty.
	TypeName string // Source-level type name, e.g. "unsigned int", may be empty.
	Const    bool   // Set when the descriptor is tagged DW_TAG_const_type.
	VoidBase bool   // Set when the descriptor's ultimate base type is void.
}

// Instruction defines one typed SSA instruction. The generic operand slice is
// complemented by opcode-specific fields.
//
// Operand conventions follow the IR operand order:
//
//	Store:	Ops[0] value, Ops[1] pointer.
//	Br:	unconditional Ops[0] target; conditional Ops[0] condition,
//		Ops[1] false target, Ops[2] true target.
//	Select:	Ops[0] condition, Ops[1] true value, Ops[2] false value.
//	GEP:	Ops[0] base pointer, Ops[1:] indices.
type Instruction struct {
	Op   Opcode
	Name string // SSA result name for diagnostics, may be empty.
	Typ  Type   // Result type; *VoidType when the instruction produces no value.
	Ops  []Value

	Pred    Predicate     // ICmp/FCmp predicate.
	Cases   []SwitchCase  // Switch arms in IR case order.
	Default *Block        // Switch default target, may be nil.
	Indices []uint32      // ExtractValue index path.
	Callee  Value         // Call target: *Function, *InlineAsm or an SSA value.
	Args    []Value       // Call arguments.
	Debug   *DebugDeclare // Payload of llvm.dbg.declare calls.
}

// ---------------------
// ----- Functions -----
// ---------------------

// Type returns the result type of the instruction.
func (inst *Instruction) Type() Type { return inst.Typ }

// IsCast returns true for the value conversion opcodes that lift to a C cast.
func (inst *Instruction) IsCast() bool {
	return inst.Op >= Trunc && inst.Op <= BitCast
}

// IsTerminator returns true if the instruction ends a basic block.
func (inst *Instruction) IsTerminator() bool {
	switch inst.Op {
	case Br, Ret, Switch, Unreachable:
		return true
	}
	return false
}

// MarkInline sets the Inline flag on every block of the module's functions
// that has exactly one predecessor. The entry block is never marked: it is
// rendered in place. Anything smarter than the single-predecessor rule is the
// job of an external control flow pass.
func (m *Module) MarkInline() {
	for _, e1 := range m.Funcs {
		preds := make(map[*Block]int, len(e1.Blocks))
		for _, e2 := range e1.Blocks {
			if len(e2.Insts) == 0 {
				continue
			}
			term := e2.Insts[len(e2.Insts)-1]
			switch term.Op {
			case Br:
				for _, e3 := range term.Ops {
					if bb, ok := e3.(*Block); ok {
						preds[bb]++
					}
				}
			case Switch:
				if term.Default != nil {
					preds[term.Default]++
				}
				for _, e3 := range term.Cases {
					preds[e3.Target]++
				}
			}
		}
		for i1, e2 := range e1.Blocks {
			if i1 == 0 {
				continue
			}
			e2.Inline = preds[e2] == 1
		}
	}
}
