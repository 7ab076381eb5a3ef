package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// -------------------
// ----- Globals -----
// -------------------

// opcodeNames holds the textual IR mnemonics, indexed by Opcode.
var opcodeNames = [...]string{
	"add", "fadd", "sub", "fsub", "mul", "fmul", "udiv", "sdiv", "fdiv",
	"urem", "srem", "frem", "and", "or", "xor", "shl", "lshr", "ashr",
	"alloca", "load", "store", "getelementptr", "extractvalue", "icmp",
	"fcmp", "br", "ret", "switch", "unreachable", "fence", "call",
	"select", "trunc", "zext", "sext", "fptoui", "fptosi", "uitofp",
	"sitofp", "fptrunc", "fpext", "ptrtoint", "inttoptr", "bitcast", "phi",
}

// predicateNames holds the textual predicate mnemonics, indexed by Predicate.
var predicateNames = [...]string{
	"", "eq", "ne", "ugt", "uge", "ult", "ule", "sgt", "sge", "slt", "sle",
	"false", "oeq", "ogt", "oge", "olt", "ole", "one", "ord", "uno",
	"ueq", "ugt", "uge", "ult", "ule", "une", "true", "bad",
}

// ---------------------
// ----- Functions -----
// ---------------------

// String returns the textual IR mnemonic of the opcode.
func (op Opcode) String() string {
	if op < 0 || int(op) >= len(opcodeNames) {
		return fmt.Sprintf("opcode%d", int(op))
	}
	return opcodeNames[op]
}

// String returns the textual mnemonic of the predicate.
func (p Predicate) String() string {
	if p < 0 || int(p) >= len(predicateNames) {
		return fmt.Sprintf("pred%d", int(p))
	}
	return predicateNames[p]
}

func (*VoidType) String() string { return "void" }

func (t *IntType) String() string { return fmt.Sprintf("i%d", t.Width) }

func (t *FloatType) String() string {
	switch t.Kind {
	case Float:
		return "float"
	case FP80:
		return "x86_fp80"
	}
	return "double"
}

func (t *PointerType) String() string { return t.Elem.String() + "*" }

func (t *ArrayType) String() string {
	return fmt.Sprintf("[%d x %s]", t.Len, t.Elem.String())
}

func (t *StructType) String() string {
	if t.HasName {
		return "%struct." + t.Name
	}
	sb := strings.Builder{}
	sb.WriteString("{ ")
	for i1, e1 := range t.Fields {
		if i1 > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e1.String())
	}
	sb.WriteString(" }")
	return sb.String()
}

func (t *FuncType) String() string {
	sb := strings.Builder{}
	sb.WriteString(t.Ret.String())
	sb.WriteString(" (")
	for i1, e1 := range t.Params {
		if i1 > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e1.String())
	}
	if t.VarArg {
		if len(t.Params) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("...")
	}
	sb.WriteString(")")
	return sb.String()
}

func (t *VectorType) String() string {
	return fmt.Sprintf("<%d x %s>", t.Len, t.Elem.String())
}

func (*TokenType) String() string    { return "token" }
func (*MetadataType) String() string { return "metadata" }
func (*LabelType) String() string    { return "label" }

// String returns the textual reference form of the argument.
func (a *Argument) String() string { return "%" + a.Name }

// String returns the textual reference form of the global.
func (g *Global) String() string { return "@" + g.Name }

// String returns the textual reference form of the function.
func (f *Function) String() string { return "@" + f.Name }

// String returns the textual label form of the block.
func (b *Block) String() string { return "%" + b.Name }

// String returns the decimal rendering of the integer constant.
func (c *ConstInt) String() string {
	if len(c.Raw) > 0 {
		return c.Raw
	}
	return strconv.FormatInt(c.V, 10)
}

// String returns the decimal rendering of the floating point constant.
func (c *ConstFloat) String() string {
	return strconv.FormatFloat(c.V, 'g', -1, 64)
}

// String returns the textual form of the null pointer constant.
func (*ConstNull) String() string { return "null" }

// String returns the textual form of the undefined value.
func (*Undef) String() string { return "undef" }

// String returns the textual form of the constant expression.
func (c *ConstExpr) String() string {
	sb := strings.Builder{}
	sb.WriteString(c.Op.String())
	sb.WriteString(" (")
	for i1, e1 := range c.Ops {
		if i1 > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e1.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// String returns the textual form of the inline assembly callee.
func (a *InlineAsm) String() string {
	return fmt.Sprintf("asm %q, %q", a.Template, a.Constraints)
}

// String returns a one-line textual rendering of the instruction, used when
// surfacing lift errors next to the offending instruction.
func (inst *Instruction) String() string {
	sb := strings.Builder{}
	if len(inst.Name) > 0 {
		sb.WriteString("%")
		sb.WriteString(inst.Name)
		sb.WriteString(" = ")
	}
	sb.WriteString(inst.Op.String())
	if inst.Pred != PredNone {
		sb.WriteRune(' ')
		sb.WriteString(inst.Pred.String())
	}
	if inst.Op == Call {
		sb.WriteRune(' ')
		if inst.Callee != nil {
			sb.WriteString(inst.Callee.String())
		}
		sb.WriteString("(")
		for i1, e1 := range inst.Args {
			if i1 > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(e1.String())
		}
		sb.WriteString(")")
		return sb.String()
	}
	for i1, e1 := range inst.Ops {
		if i1 > 0 {
			sb.WriteString(",")
		}
		sb.WriteRune(' ')
		sb.WriteString(e1.String())
	}
	return sb.String()
}
