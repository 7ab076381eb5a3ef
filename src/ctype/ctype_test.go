package ctype

import "testing"

// TestSurroundNamePrimitives verifies declarators of primitive and qualified
// types.
func TestSurroundNamePrimitives(t *testing.T) {
	tests := []struct {
		typ  Type
		name string
		want string
	}{
		{&Void{}, "", "void"},
		{&Int{Width: 1}, "b", "bool b"},
		{&Int{Width: 8}, "c", "char c"},
		{&Int{Width: 16}, "s", "short s"},
		{&Int{Width: 32}, "i", "int i"},
		{&Int{Width: 64}, "l", "long long l"},
		{&Int{Width: 128}, "w", "__int128 w"},
		{&Int{Width: 32, Unsigned: true}, "u", "unsigned int u"},
		{&Int{Width: 32, Const: true}, "k", "const int k"},
		{&FloatT{Kind: Float}, "f", "float f"},
		{&FloatT{Kind: Double}, "d", "double d"},
		{&FloatT{Kind: LongDouble}, "ld", "long double ld"},
		{&Struct{Name: "S"}, "s", "struct S s"},
	}
	for _, e1 := range tests {
		if got := SurroundName(e1.typ, e1.name); got != e1.want {
			t.Errorf("SurroundName(%q) = %q, want %q", e1.name, got, e1.want)
		}
	}
}

// TestSurroundNamePointers verifies pointer declarator rearrangement: plain,
// multi-level, function pointer and pointer-to-array forms.
func TestSurroundNamePointers(t *testing.T) {
	intT := &Int{Width: 32}

	p := &Pointer{Pointee: intT, Levels: 1}
	if got := SurroundName(p, "p"); got != "int*p" {
		t.Errorf("pointer declarator = %q", got)
	}

	pp := &Pointer{Pointee: intT, Levels: 2}
	if got := SurroundName(pp, "pp"); got != "int**pp" {
		t.Errorf("double pointer declarator = %q", got)
	}

	fp := &Pointer{Pointee: intT, Levels: 1, IsFuncPointer: true, Params: "(int, char)"}
	if got := SurroundName(fp, "f"); got != "int (*f)(int, char)" {
		t.Errorf("function pointer declarator = %q", got)
	}

	ap := &Pointer{Pointee: intT, Levels: 1, IsArrayPointer: true, ArraySizes: "[4]"}
	if got := SurroundName(ap, "a"); got != "int (*a)[4]" {
		t.Errorf("array pointer declarator = %q", got)
	}

	// Cast form: no name between prefix and suffix.
	if got := ap.String() + ap.Suffix(); got != "int (*)[4]" {
		t.Errorf("array pointer cast form = %q", got)
	}
}

// TestSurroundNameArrays verifies array declarators, including arrays of
// pointers and nested arrays.
func TestSurroundNameArrays(t *testing.T) {
	intT := &Int{Width: 32}

	a := &Array{Elem: intT, Size: 4}
	if got := SurroundName(a, "a"); got != "int a[4]" {
		t.Errorf("array declarator = %q", got)
	}

	nested := &Array{Elem: &Array{Elem: intT, Size: 3}, Size: 2}
	if got := SurroundName(nested, "m"); got != "int m[2][3]" {
		t.Errorf("nested array declarator = %q", got)
	}

	pa := &Array{Elem: &Pointer{Pointee: intT, Levels: 1}, Size: 8}
	pa.IsPointerArray = true
	pa.Ptr = pa.Elem.(*Pointer)
	if got := SurroundName(pa, "v"); got != "int*v[8]" {
		t.Errorf("pointer array declarator = %q", got)
	}

	apa := &Pointer{Pointee: intT, Levels: 1, IsArrayPointer: true, ArraySizes: "[3]"}
	arr := &Array{Elem: apa, Size: 2, IsPointerArray: true, Ptr: apa}
	if got := SurroundName(arr, "x"); got != "int (*x[2])[3]" {
		t.Errorf("array of array pointers declarator = %q", got)
	}
}

// TestClone verifies that cloned types mutate independently.
func TestClone(t *testing.T) {
	it := &Int{Width: 32}
	c := it.Clone().(*Int)
	c.Unsigned = true
	c.SetConst(true)
	if it.Unsigned || it.IsConst() {
		t.Error("clone mutation leaked into the original type")
	}
}
