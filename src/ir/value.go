package ir

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Value defines a typed SSA value handle. Concrete kinds are instructions,
// function arguments, globals, functions, basic blocks and constants.
type Value interface {
	Type() Type
	String() string
}

// Argument defines a formal function parameter.
type Argument struct {
	Name   string // Source name, may be empty.
	Typ    Type
	Parent *Function
}

// Global defines a global variable. The initializer is carried textually:
// forming it is the loader's job, the engine emits it verbatim.
type Global struct {
	Name    string // IR name, may be empty for unnamed globals.
	HasName bool
	Private bool   // Set true for private linkage.
	Typ     Type   // Pointer type; the pointee is the variable's value type.
	Init    string // Textual initializer, e.g. "{1, 2}" or "7".
	HasInit bool
}

// Function defines a function declaration or definition.
type Function struct {
	Name     string
	Typ      *FuncType
	Args     []*Argument
	IsDecl   bool // Set true when the function has no body.
	Internal bool // Set true for internal or private linkage.
	Blocks   []*Block
}

// Block defines a basic block: an ordered instruction sequence ending in a
// terminator. Inline is the block inlining input signal consumed by the
// writer; MarkInline computes the single-predecessor rule.
type Block struct {
	Name   string
	Insts  []*Instruction
	Inline bool
}

// ConstInt defines an integer constant. Values wider than 64 bits carry
// their decimal rendering in Raw.
type ConstInt struct {
	Typ Type
	V   int64  // Sign-extended value for widths up to 64 bits.
	Raw string // Base-10 rendering for wider values, empty otherwise.
}

// ConstFloat defines a floating point constant.
type ConstFloat struct {
	Typ Type
	V   float64
}

// ConstNull defines a null pointer constant.
type ConstNull struct {
	Typ Type
}

// Undef defines an undefined value of the given type.
type Undef struct {
	Typ Type
}

// ConstExpr defines a constant expression: an opcode applied to constant
// operands, lifted recursively in constant-expression mode.
type ConstExpr struct {
	Op      Opcode
	Typ     Type
	Ops     []Value
	Pred    Predicate // Compare predicate for ICmp/FCmp constant expressions.
	Indices []uint32  // ExtractValue indices.
}

// InlineAsm defines an inline assembly callee with its template and
// constraint strings.
type InlineAsm struct {
	Typ         Type // Function type of the asm body.
	Template    string
	Constraints string
}

// ---------------------
// ----- Functions -----
// ---------------------

// Type returns the type of the argument.
func (a *Argument) Type() Type { return a.Typ }

// Type returns the pointer type of the global variable.
func (g *Global) Type() Type { return g.Typ }

// Type returns the function's type behind a pointer, matching the IR view of
// a function symbol as a pointer to code.
func (f *Function) Type() Type { return &PointerType{Elem: f.Typ} }

// Type returns the label type.
func (b *Block) Type() Type { return &LabelType{} }

// Type returns the type of the integer constant.
func (c *ConstInt) Type() Type { return c.Typ }

// Type returns the type of the floating point constant.
func (c *ConstFloat) Type() Type { return c.Typ }

// Type returns the pointer type of the null constant.
func (c *ConstNull) Type() Type { return c.Typ }

// Type returns the type of the undefined value.
func (u *Undef) Type() Type { return u.Typ }

// Type returns the result type of the constant expression.
func (c *ConstExpr) Type() Type { return c.Typ }

// Type returns the function type of the asm body behind a pointer.
func (a *InlineAsm) Type() Type { return &PointerType{Elem: a.Typ} }
