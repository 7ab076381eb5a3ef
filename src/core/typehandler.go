package core

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tomsik68/llvm2c/src/ctype"
	"github.com/tomsik68/llvm2c/src/ir"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// TypeHandler translates IR types into C types. Struct references are
// interned through the owning program so unnamed structs get stable
// synthesized names. The handler is guarded for parallel function lifts.
type TypeHandler struct {
	p *Program
	sync.Mutex
}

// ---------------------
// ----- Functions -----
// ---------------------

// getType transforms an IR type into the corresponding C type. The returned
// type is an independent copy the caller may mutate. With preferVoidPtr set,
// pointers lower to void* regardless of their pointee; this serves debug
// metadata rebinding of void-based pointer chains.
func (th *TypeHandler) getType(t ir.Type, preferVoidPtr bool) (ctype.Type, error) {
	th.Lock()
	defer th.Unlock()
	return th.getTypeLocked(t, preferVoidPtr)
}

func (th *TypeHandler) getTypeLocked(t ir.Type, preferVoidPtr bool) (ctype.Type, error) {
	switch tt := t.(type) {
	case *ir.VoidType:
		return &ctype.Void{}, nil
	case *ir.IntType:
		switch tt.Width {
		case 1, 8, 16, 32, 64, 128:
			return &ctype.Int{Width: tt.Width}, nil
		}
		return nil, &Error{Kind: ErrUnsupportedType, Msg: fmt.Sprintf("integer width %d", tt.Width)}
	case *ir.FloatType:
		switch tt.Kind {
		case ir.Float:
			return &ctype.FloatT{Kind: ctype.Float}, nil
		case ir.FP80:
			return &ctype.FloatT{Kind: ctype.LongDouble}, nil
		}
		return &ctype.FloatT{Kind: ctype.Double}, nil
	case *ir.PointerType:
		return th.getPointer(tt, preferVoidPtr)
	case *ir.ArrayType:
		return th.getArray(tt)
	case *ir.StructType:
		return th.getStructRef(tt)
	case *ir.FuncType:
		ret, err := th.getTypeLocked(tt.Ret, false)
		if err != nil {
			return nil, err
		}
		params := make([]ctype.Type, len(tt.Params))
		for i1, e1 := range tt.Params {
			if params[i1], err = th.getTypeLocked(e1, false); err != nil {
				return nil, err
			}
		}
		return &ctype.Func{Ret: ret, Params: params, VarArg: tt.VarArg}, nil
	case *ir.VectorType:
		return nil, &Error{Kind: ErrUnsupportedType, Msg: "vector type " + tt.String()}
	case *ir.TokenType:
		return nil, &Error{Kind: ErrUnsupportedType, Msg: "token type"}
	}
	return nil, &Error{Kind: ErrUnsupportedType, Msg: t.String()}
}

// getPointer lowers a pointer type, collapsing pointer-to-array,
// pointer-to-function and multi-level pointers into a single node so the
// declarator can be rearranged around the declared name.
func (th *TypeHandler) getPointer(t *ir.PointerType, preferVoidPtr bool) (ctype.Type, error) {
	if preferVoidPtr {
		return &ctype.Pointer{Pointee: &ctype.Void{}, Levels: 1}, nil
	}

	if ft, ok := t.Elem.(*ir.FuncType); ok {
		ret, err := th.getTypeLocked(ft.Ret, false)
		if err != nil {
			return nil, err
		}
		params, err := th.paramString(ft)
		if err != nil {
			return nil, err
		}
		return &ctype.Pointer{
			Pointee:       ret,
			Levels:        1,
			IsFuncPointer: true,
			Params:        params,
		}, nil
	}

	inner, err := th.getTypeLocked(t.Elem, false)
	if err != nil {
		return nil, err
	}

	switch it := inner.(type) {
	case *ctype.Pointer:
		c := *it
		c.Levels++
		return &c, nil
	case *ctype.Array:
		// Pointer to array: the element type becomes the base and the sizes
		// move behind the declared name.
		base := it.Elem
		sizes := it.SizeSuffix()
		if it.IsPointerArray && it.Ptr != nil {
			base = it.Ptr
		}
		return &ctype.Pointer{
			Pointee:        base,
			Levels:         1,
			ArraySizes:     sizes,
			IsArrayPointer: true,
		}, nil
	}
	return &ctype.Pointer{Pointee: inner, Levels: 1}, nil
}

// getArray lowers an array type, keeping rearranged pointer elements on the
// node for declarator reassembly.
func (th *TypeHandler) getArray(t *ir.ArrayType) (ctype.Type, error) {
	elem, err := th.getTypeLocked(t.Elem, false)
	if err != nil {
		return nil, err
	}
	at := &ctype.Array{Elem: elem, Size: t.Len}
	if pt, ok := elem.(*ctype.Pointer); ok {
		at.IsPointerArray = true
		at.Ptr = pt
	}
	return at, nil
}

// getStructRef interns the struct type in the owning program and returns a
// reference to it. Unnamed structs are registered and named on first
// sighting.
func (th *TypeHandler) getStructRef(t *ir.StructType) (ctype.Type, error) {
	if !t.HasName {
		s, err := th.p.createUnnamedStructLocked(t)
		if err != nil {
			return nil, err
		}
		return &ctype.Struct{Name: s.Name}, nil
	}
	return &ctype.Struct{Name: trimStructPrefix(t.Name)}, nil
}

// paramString renders the C parameter list of a function type, e.g.
// "(int, char*)".
func (th *TypeHandler) paramString(t *ir.FuncType) (string, error) {
	sb := strings.Builder{}
	sb.WriteString("(")
	for i1, e1 := range t.Params {
		if i1 > 0 {
			sb.WriteString(", ")
		}
		pt, err := th.getTypeLocked(e1, false)
		if err != nil {
			return "", err
		}
		sb.WriteString(pt.String())
		sb.WriteString(pt.Suffix())
	}
	if t.VarArg {
		if len(t.Params) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("...")
	}
	sb.WriteString(")")
	return sb.String(), nil
}

// trimStructPrefix drops the "struct."/"union." namespace LLVM prepends to
// identified struct type names.
func trimStructPrefix(name string) string {
	if strings.HasPrefix(name, "struct.") {
		return name[len("struct."):]
	}
	if strings.HasPrefix(name, "union.") {
		return name[len("union."):]
	}
	return name
}
