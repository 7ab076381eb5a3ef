package core

import (
	"strconv"

	"github.com/tomsik68/llvm2c/src/ctype"
	"github.com/tomsik68/llvm2c/src/expr"
	"github.com/tomsik68/llvm2c/src/ir"
)

// ---------------------
// ----- Functions -----
// ---------------------

// parseGep lifts getelementptr into a path expression. The first index pair
// over a struct pointer becomes an addressed field access; every further
// index becomes an array subscript, a nested field access or a pointer
// shift, depending on the walked type.
func (b *Block) parseGep(inst *ir.Instruction, isConstExpr bool, val ir.Value) error {
	base, err := b.materialize(inst.Ops[0])
	if err != nil {
		return err
	}
	resType, err := b.f.getType(inst.Typ)
	if err != nil {
		return err
	}
	gep := &expr.GepExpr{Typ: resType}

	pt, ok := inst.Ops[0].Type().(*ir.PointerType)
	if !ok {
		return errUnsupported(inst, "getelementptr base is not a pointer")
	}

	idxs := inst.Ops[1:]
	current := base
	var prevType ir.Type
	i1 := 0

	if st, ok := pt.Elem.(*ir.StructType); ok {
		if !st.HasName {
			if _, err := b.f.p.createUnnamedStruct(st); err != nil {
				return err
			}
		}
		if len(idxs) >= 2 {
			strct, err := b.f.p.getStructByType(st)
			if err != nil {
				return err
			}
			move, ok := constIntValue(idxs[0])
			if !ok {
				return errUnsupported(inst, "non-constant pointer offset into struct")
			}
			field, ok := constIntValue(idxs[1])
			if !ok {
				return errUnsupported(inst, "non-constant struct field index")
			}
			se := &expr.StructElement{Strct: strct, Base: base, Element: int(field), Move: move}
			b.f.structElements[inst] = se
			ref := b.f.refOf(se)
			gep.AddArg(ref)
			current = ref
			if int(field) < len(st.Fields) {
				prevType = st.Fields[field]
			}
			i1 = 2
		} else if len(idxs) == 1 {
			idx, err := b.materialize(idxs[0])
			if err != nil {
				return err
			}
			ptType, err := b.f.getType(pt)
			if err != nil {
				return err
			}
			gep.AddArg(&expr.PointerShift{PtrType: ptType, Pointer: base, Move: idx})
			current = gep.Last()
			prevType = pt.Elem
			i1 = 1
		}
	} else if len(idxs) > 0 {
		// Consume one index at pointer level.
		idx, err := b.materialize(idxs[0])
		if err != nil {
			return err
		}
		ptType, err := b.f.getType(pt)
		if err != nil {
			return err
		}
		gep.AddArg(&expr.PointerShift{PtrType: ptType, Pointer: base, Move: idx})
		current = gep.Last()
		prevType = pt.Elem
		i1 = 1
	}

	for ; i1 < len(idxs); i1++ {
		switch wt := prevType.(type) {
		case *ir.ArrayType:
			idx, err := b.materialize(idxs[i1])
			if err != nil {
				return err
			}
			elemType, err := b.f.getType(wt.Elem)
			if err != nil {
				return err
			}
			gep.AddArg(&expr.ArrayElement{Base: current, Element: idx, Typ: elemType})
			prevType = wt.Elem
		case *ir.StructType:
			strct, err := b.f.p.getStructByType(wt)
			if err != nil {
				return err
			}
			field, ok := constIntValue(idxs[i1])
			if !ok {
				return errUnsupported(inst, "non-constant struct field index")
			}
			gep.AddArg(&expr.StructElement{Strct: strct, Base: current, Element: int(field)})
			if int(field) < len(wt.Fields) {
				prevType = wt.Fields[field]
			}
		default:
			idx, err := b.materialize(idxs[i1])
			if err != nil {
				return err
			}
			ptType, err := b.f.getType(&ir.PointerType{Elem: prevType})
			if err != nil {
				return err
			}
			gep.AddArg(&expr.PointerShift{PtrType: ptType, Pointer: current, Move: idx})
			if pt2, ok := prevType.(*ir.PointerType); ok {
				prevType = pt2.Elem
			}
		}
		current = gep.Last()
	}

	b.f.createExpr(key(inst, isConstExpr, val), gep)
	return nil
}

// parseExtractValue walks the aggregate's index path, producing a field or
// element access per step. Extracts out of inline assembly results produce
// no node; the consuming store binds the output slot instead.
func (b *Block) parseExtractValue(inst *ir.Instruction, isConstExpr bool, val ir.Value) error {
	agg, err := b.materialize(inst.Ops[0])
	if err != nil {
		return err
	}
	if _, ok := agg.(*expr.AsmExpr); ok {
		return nil
	}

	indices := make([]expr.Expr, 0, len(inst.Indices))
	prevType := inst.Ops[0].Type()
	current := agg

	for _, e1 := range inst.Indices {
		switch wt := prevType.(type) {
		case *ir.StructType:
			strct, err := b.f.p.getStructByType(wt)
			if err != nil {
				return err
			}
			se := &expr.StructElement{Strct: strct, Base: current, Element: int(e1)}
			indices = append(indices, se)
			if int(e1) < len(wt.Fields) {
				prevType = wt.Fields[e1]
			}
			current = se
		case *ir.ArrayType:
			elemType, err := b.f.getType(wt.Elem)
			if err != nil {
				return err
			}
			ae := &expr.ArrayElement{
				Base:    current,
				Element: &expr.Value{Name: strconv.FormatUint(uint64(e1), 10), Typ: &ctype.Int{Width: 32}},
				Typ:     elemType,
			}
			indices = append(indices, ae)
			prevType = wt.Elem
			current = ae
		default:
			return errUnsupported(inst, "extractvalue through non-aggregate type")
		}
	}

	b.f.createExpr(key(inst, isConstExpr, val), &expr.ExtractValueExpr{Indices: indices})
	return nil
}

// constIntValue extracts the signed value of a constant integer operand.
func constIntValue(v ir.Value) (int64, bool) {
	if c, ok := v.(*ir.ConstInt); ok {
		return c.V, true
	}
	return 0, false
}
