package ir

import (
	"fmt"
	"math"
)

// NewFunction creates an empty function
func NewFunction(name string, returnType Type) *Function {
	if returnType == nil {
		returnType = Void
	}
	return &Function{Name: name, ReturnType: returnType}
}

// AddParam appends a parameter and returns the value that names it
func (f *Function) AddParam(name string, t Type) *Value {
	param := &Parameter{Name: name, Type: t}
	v := f.NewValue(name, t)
	v.Param = param
	param.Value = v
	f.Params = append(f.Params, param)
	return v
}

// NewBlock appends a new block to the function. The first block created
// becomes the entry block.
func (f *Function) NewBlock(label string) *BasicBlock {
	b := &BasicBlock{Label: label, Parent: f}
	f.Blocks = append(f.Blocks, b)
	if f.Entry == nil {
		f.Entry = b
	}
	return b
}

// NewValue creates a value owned by the function. An empty name is
// replaced by a generated one.
func (f *Function) NewValue(name string, t Type) *Value {
	f.nextValue++
	if name == "" {
		name = fmt.Sprintf("v%d", f.nextValue)
	}
	return &Value{ID: f.nextValue, Name: name, Type: t}
}

// Block returns the block with the given label, or nil
func (f *Function) Block(label string) *BasicBlock {
	for _, b := range f.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}

// Index returns the position of b in the function's block list, or -1
func (f *Function) Index(b *BasicBlock) int {
	for i, block := range f.Blocks {
		if block == b {
			return i
		}
	}
	return -1
}

// Function returns the function with the given name, or nil
func (p *Program) Function(name string) *Function {
	for _, fn := range p.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

func (f *Function) newID() int {
	f.nextInst++
	return f.nextInst
}

func (f *Function) uniqueLabel(base string) string {
	if f.Block(base) == nil {
		return base
	}
	for i := 1; ; i++ {
		label := fmt.Sprintf("%s.%d", base, i)
		if f.Block(label) == nil {
			return label
		}
	}
}

// ConstInt returns a fresh integer constant of type t
func ConstInt(t Type, v int64) *Value {
	return &Value{Name: fmt.Sprint(v), Type: t, Const: &Constant{Type: t, Bits: uint64(v)}}
}

// ConstFloat returns a fresh floating point constant of type t
func ConstFloat(t Type, v float64) *Value {
	bits := math.Float64bits(v)
	if ft, ok := t.(*FloatType); ok && ft.Bits == 32 {
		bits = uint64(math.Float32bits(float32(v)))
	}
	return &Value{Name: fmt.Sprint(v), Type: t, Const: &Constant{Type: t, Bits: bits}}
}

// ConstBool returns a fresh boolean constant
func ConstBool(v bool) *Value {
	var bits uint64
	if v {
		bits = 1
	}
	return &Value{Name: fmt.Sprint(v), Type: Bool, Const: &Constant{Type: Bool, Bits: bits}}
}

// Append adds inst at the end of the block
func (b *BasicBlock) Append(inst Instruction) Instruction {
	b.adopt(inst)
	b.Instructions = append(b.Instructions, inst)
	return inst
}

func (b *BasicBlock) adopt(inst Instruction) {
	inst.setBlock(b)
	if res := inst.GetResult(); res != nil {
		res.DefBlock = b
		res.DefInst = inst
	}
}

// Phis returns the leading phi nodes of the block
func (b *BasicBlock) Phis() []*PhiInstruction {
	var phis []*PhiInstruction
	for _, inst := range b.Instructions {
		phi, ok := inst.(*PhiInstruction)
		if !ok {
			break
		}
		phis = append(phis, phi)
	}
	return phis
}

// Emitters used by the builders and the frontend

func (b *BasicBlock) Alloca(name string, t Type) *Value {
	res := b.Parent.NewValue(name, Ptr)
	b.Append(&AllocaInstruction{ID: b.Parent.newID(), Result: res, Allocated: t})
	return res
}

func (b *BasicBlock) Load(name string, t Type, addr *Value) *Value {
	res := b.Parent.NewValue(name, t)
	b.Append(&LoadInstruction{ID: b.Parent.newID(), Result: res, Address: addr})
	return res
}

func (b *BasicBlock) Store(addr, v *Value) *StoreInstruction {
	st := &StoreInstruction{ID: b.Parent.newID(), Address: addr, Value: v}
	b.Append(st)
	return st
}

func (b *BasicBlock) Addr(name string, base *Value, checked bool, indices ...*Value) *Value {
	res := b.Parent.NewValue(name, Ptr)
	b.Append(&AddrInstruction{ID: b.Parent.newID(), Result: res, Base: base, Indices: indices, Checked: checked})
	return res
}

func (b *BasicBlock) Binary(name string, op BinaryOp, left, right *Value) *Value {
	res := b.Parent.NewValue(name, left.Type)
	b.Append(&BinaryInstruction{ID: b.Parent.newID(), Result: res, Op: op, Left: left, Right: right})
	return res
}

func (b *BasicBlock) Compare(name string, pred Predicate, left, right *Value) *Value {
	res := b.Parent.NewValue(name, Bool)
	b.Append(&CompareInstruction{ID: b.Parent.newID(), Result: res, Predicate: pred, Left: left, Right: right})
	return res
}

func (b *BasicBlock) Convert(name string, t Type, v *Value) *Value {
	res := b.Parent.NewValue(name, t)
	b.Append(&ConvertInstruction{ID: b.Parent.newID(), Result: res, Value: v})
	return res
}

// Call emits a call. A nil result type discards the result.
func (b *BasicBlock) Call(name string, t Type, function string, noUnwind bool, args ...*Value) *Value {
	var res *Value
	if t != nil {
		res = b.Parent.NewValue(name, t)
	}
	b.Append(&CallInstruction{ID: b.Parent.newID(), Result: res, Function: function, Args: args, NoUnwind: noUnwind})
	return res
}

func (b *BasicBlock) Phi(name string, t Type, edges ...PhiEdge) *PhiInstruction {
	phi := &PhiInstruction{ID: b.Parent.newID(), Result: b.Parent.NewValue(name, t), Edges: edges}
	b.adopt(phi)
	n := len(b.Phis())
	b.Instructions = append(b.Instructions[:n], append([]Instruction{phi}, b.Instructions[n:]...)...)
	return phi
}

func (b *BasicBlock) Jump(target *BasicBlock) *JumpTerminator {
	t := &JumpTerminator{ID: b.Parent.newID(), Target: target}
	b.SetTerminator(t)
	return t
}

func (b *BasicBlock) Branch(cond *Value, ifTrue, ifFalse *BasicBlock) *BranchTerminator {
	t := &BranchTerminator{ID: b.Parent.newID(), Condition: cond, TrueBlock: ifTrue, FalseBlock: ifFalse}
	b.SetTerminator(t)
	return t
}

func (b *BasicBlock) Return(v *Value) *ReturnTerminator {
	t := &ReturnTerminator{ID: b.Parent.newID(), Value: v}
	b.SetTerminator(t)
	return t
}
