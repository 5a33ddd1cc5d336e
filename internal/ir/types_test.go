package ir

import (
	"testing"
)

func TestIntTypeString(t *testing.T) {
	testCases := []struct {
		bits     int
		expected string
	}{
		{1, "i1"},
		{8, "i8"},
		{16, "i16"},
		{32, "i32"},
		{64, "i64"},
	}

	for _, tc := range testCases {
		intType := &IntType{Bits: tc.bits}
		result := intType.String()
		if result != tc.expected {
			t.Errorf("IntType{Bits: %d}.String() = %s, expected %s", tc.bits, result, tc.expected)
		}
	}
}

func TestOtherTypeStrings(t *testing.T) {
	testCases := []struct {
		typ      Type
		expected string
	}{
		{&FloatType{Bits: 32}, "f32"},
		{F64, "f64"},
		{Bool, "bool"},
		{Ptr, "ptr"},
		{&OpaqueType{Name: "chan int"}, "opaque"},
		{Void, "void"},
	}

	for _, tc := range testCases {
		if result := tc.typ.String(); result != tc.expected {
			t.Errorf("%T.String() = %s, expected %s", tc.typ, result, tc.expected)
		}
	}
}

func TestPosition(t *testing.T) {
	var zero Position
	if zero.IsValid() {
		t.Error("zero Position should not be valid")
	}
	if zero.String() != "-" {
		t.Errorf("zero Position.String() = %s, expected -", zero.String())
	}

	pos := Position{Line: 3, Column: 7}
	if pos.String() != "3:7" {
		t.Errorf("Position.String() = %s, expected 3:7", pos.String())
	}
	pos.Filename = "a.lir"
	if pos.String() != "a.lir:3:7" {
		t.Errorf("Position.String() = %s, expected a.lir:3:7", pos.String())
	}
}

func TestValue(t *testing.T) {
	fn := NewFunction("f", nil)
	if fn.ReturnType != Void {
		t.Error("NewFunction should default to a void result")
	}

	p := fn.AddParam("n", I64)
	v := fn.NewValue("", I64)
	c := ConstInt(I64, 4)

	if !p.IsParam() || p.IsConst() {
		t.Error("parameter value should be a parameter")
	}
	if v.IsParam() || v.IsConst() {
		t.Error("plain value should be neither parameter nor constant")
	}
	if !c.IsConst() {
		t.Error("constant value should be a constant")
	}
	if v.Name == "" {
		t.Error("NewValue should generate a name")
	}
	if p.ID == v.ID {
		t.Error("values of a function should have distinct IDs")
	}

	var none *Value
	if none.IsConst() || none.IsParam() {
		t.Error("nil value should be neither parameter nor constant")
	}
}

func TestConstant(t *testing.T) {
	a := ConstInt(I64, -5).Const
	b := ConstInt(I64, -5).Const
	c := ConstInt(&IntType{Bits: 32}, -5).Const

	if a.Int() != -5 {
		t.Errorf("Constant.Int() = %d, expected -5", a.Int())
	}
	if !a.IsInt() || a.IsFloat() {
		t.Error("integer constant should be an integer")
	}
	if !a.Equal(b) {
		t.Error("constants with the same type and bits should be equal")
	}
	if a.Equal(c) {
		t.Error("constants of different widths should not be equal")
	}
	if a.Equal(nil) {
		t.Error("constant should not equal nil")
	}
	if a.String() != "i64 -5" {
		t.Errorf("Constant.String() = %s, expected i64 -5", a.String())
	}

	f := ConstFloat(&FloatType{Bits: 32}, 1.5).Const
	if !f.IsFloat() || f.Float() != 1.5 {
		t.Errorf("f32 constant = %v, expected 1.5", f.Float())
	}
	if f.String() != "f32 1.5" {
		t.Errorf("Constant.String() = %s, expected f32 1.5", f.String())
	}
	if ConstFloat(F64, 1.5).Const.Equal(f) {
		t.Error("f32 and f64 constants should not be equal")
	}

	if ConstBool(true).Const.String() != "true" || ConstBool(false).Const.String() != "false" {
		t.Error("boolean constants should print as true and false")
	}
}

func TestBasicBlock(t *testing.T) {
	fn := NewFunction("f", nil)
	entry := fn.NewBlock("entry")
	next := fn.NewBlock("next")

	if fn.Entry != entry {
		t.Error("first block should become the entry")
	}
	if fn.Index(next) != 1 || fn.Index(&BasicBlock{}) != -1 {
		t.Error("Index should report block positions")
	}

	x := entry.Alloca("x", I64)
	entry.Store(x, ConstInt(I64, 1))
	entry.Jump(next)
	v := next.Load("v", I64, x)
	next.Return(v)

	if x.DefBlock != entry || v.DefBlock != next {
		t.Error("emitted values should record their defining block")
	}
	if len(next.Predecessors) != 1 || next.Predecessors[0] != entry {
		t.Error("Jump should update predecessors")
	}
	if entry.Terminator.GetBlock() != entry {
		t.Error("terminator should belong to its block")
	}
	if entry.Terminator.GetID() == 0 {
		t.Error("terminator should have an ID")
	}
}

func TestPhis(t *testing.T) {
	fn := NewFunction("f", nil)
	entry := fn.NewBlock("entry")
	join := fn.NewBlock("join")
	entry.Jump(join)

	join.Binary("sum", OpAdd, ConstInt(I64, 1), ConstInt(I64, 2))
	first := join.Phi("a", I64, PhiEdge{Block: entry, Value: ConstInt(I64, 1)})
	second := join.Phi("b", I64, PhiEdge{Block: entry, Value: ConstInt(I64, 2)})

	phis := join.Phis()
	if len(phis) != 2 || phis[0] != first || phis[1] != second {
		t.Fatalf("Phis() = %v, expected the two phis in order", phis)
	}
	if _, ok := join.Instructions[2].(*BinaryInstruction); !ok {
		t.Error("phis should be placed before other instructions")
	}
	if first.Incoming(entry).Const.Int() != 1 {
		t.Error("Incoming should return the value for the edge")
	}
	if first.Incoming(join) != nil {
		t.Error("Incoming should return nil for a missing edge")
	}
}

func TestProgram(t *testing.T) {
	program := &Program{Name: "p", Functions: []*Function{NewFunction("a", nil), NewFunction("b", nil)}}

	if program.Function("b") != program.Functions[1] {
		t.Error("Function should find functions by name")
	}
	if program.Function("c") != nil {
		t.Error("Function should return nil for unknown names")
	}
}
