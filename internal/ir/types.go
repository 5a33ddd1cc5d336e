package ir

import (
	"fmt"
	"math"
)

// IR types and structures for loop-level transformations.
// Values are in SSA form; local variables live in memory and are accessed
// through explicit load and store instructions.

// Program represents a translation unit in IR form
type Program struct {
	Name      string
	Functions []*Function
}

// Function represents a function in IR form
type Function struct {
	Name       string
	Params     []*Parameter
	ReturnType Type
	Entry      *BasicBlock
	Blocks     []*BasicBlock
	Pos        Position

	nextInst  int
	nextValue int
}

// BasicBlock represents a sequence of instructions ending in a terminator
type BasicBlock struct {
	Label        string
	Instructions []Instruction
	Terminator   Terminator
	Predecessors []*BasicBlock
	Successors   []*BasicBlock
	Parent       *Function
	Pos          Position
}

// Value represents a value in SSA form - each value has exactly one definition.
// Values are compared by identity; two distinct *Value never alias.
type Value struct {
	ID       int
	Name     string
	Type     Type
	DefBlock *BasicBlock
	DefInst  Instruction
	Param    *Parameter
	Const    *Constant
}

// Parameter represents a function parameter
type Parameter struct {
	Name  string
	Type  Type
	Value *Value
}

// Constant is the payload of a constant value. Bits holds the raw bit
// pattern: two's complement for integers, IEEE 754 for floats.
type Constant struct {
	Type Type
	Bits uint64
}

// Position is a location in the source an IR entity was built from
type Position struct {
	Filename string
	Line     int
	Column   int
}

func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// IsConst reports whether v is a constant
func (v *Value) IsConst() bool { return v != nil && v.Const != nil }

// IsParam reports whether v is a function parameter
func (v *Value) IsParam() bool { return v != nil && v.Param != nil }

// Int returns the constant as a signed integer
func (c *Constant) Int() int64 { return int64(c.Bits) }

// Float returns the constant as a float64
func (c *Constant) Float() float64 {
	if ft, ok := c.Type.(*FloatType); ok && ft.Bits == 32 {
		return float64(math.Float32frombits(uint32(c.Bits)))
	}
	return math.Float64frombits(c.Bits)
}

// IsInt reports whether the constant has an integer type
func (c *Constant) IsInt() bool {
	_, ok := c.Type.(*IntType)
	return ok
}

// IsFloat reports whether the constant has a floating point type
func (c *Constant) IsFloat() bool {
	_, ok := c.Type.(*FloatType)
	return ok
}

// Equal compares two constants by type and exact bit pattern
func (c *Constant) Equal(other *Constant) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Type.String() == other.Type.String() && c.Bits == other.Bits
}

func (c *Constant) String() string {
	switch t := c.Type.(type) {
	case *FloatType:
		return fmt.Sprintf("%s %g", t, c.Float())
	case *BoolType:
		if c.Bits != 0 {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%s %d", c.Type, c.Int())
	}
}

// Instructions in SSA form

type Instruction interface {
	GetID() int
	GetResult() *Value
	GetOperands() []*Value
	GetBlock() *BasicBlock
	IsTerminator() bool
	String() string
	GetEffects() []Effect

	setBlock(b *BasicBlock)
	replaceOperand(old, new *Value)
}

// Terminators end basic blocks
type Terminator interface {
	Instruction
	GetSuccessors() []*BasicBlock

	replaceSuccessor(old, new *BasicBlock) bool
}

// BinaryOp is the opcode of a binary arithmetic or bitwise instruction
type BinaryOp string

const (
	OpAdd    BinaryOp = "add"
	OpSub    BinaryOp = "sub"
	OpMul    BinaryOp = "mul"
	OpDiv    BinaryOp = "div"
	OpRem    BinaryOp = "rem"
	OpAnd    BinaryOp = "and"
	OpOr     BinaryOp = "or"
	OpXor    BinaryOp = "xor"
	OpShl    BinaryOp = "shl"
	OpShr    BinaryOp = "shr"
	OpAndNot BinaryOp = "andnot"
)

// Predicate is the condition of a compare instruction
type Predicate string

const (
	PredEQ Predicate = "eq"
	PredNE Predicate = "ne"
	PredLT Predicate = "lt"
	PredLE Predicate = "le"
	PredGT Predicate = "gt"
	PredGE Predicate = "ge"
)

// AllocaInstruction reserves a stack slot and yields its address
type AllocaInstruction struct {
	ID        int
	Result    *Value
	Block     *BasicBlock
	Allocated Type
}

type LoadInstruction struct {
	ID       int
	Result   *Value
	Block    *BasicBlock
	Address  *Value
	Volatile bool
}

type StoreInstruction struct {
	ID       int
	Block    *BasicBlock
	Address  *Value
	Value    *Value
	Volatile bool
}

// AddrInstruction computes an element or field address from a base.
// Checked address computations trap when the index is out of range.
type AddrInstruction struct {
	ID      int
	Result  *Value
	Block   *BasicBlock
	Base    *Value
	Indices []*Value
	Checked bool
}

type BinaryInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Op     BinaryOp
	Left   *Value
	Right  *Value
}

type CompareInstruction struct {
	ID        int
	Result    *Value
	Block     *BasicBlock
	Predicate Predicate
	Left      *Value
	Right     *Value
}

type ConvertInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Value  *Value
}

// CallInstruction calls a named function. Result is nil for calls whose
// value is discarded.
type CallInstruction struct {
	ID       int
	Result   *Value
	Block    *BasicBlock
	Function string
	Args     []*Value
	NoUnwind bool
}

// PhiEdge is one incoming (block, value) pair of a phi node
type PhiEdge struct {
	Block *BasicBlock
	Value *Value
}

type PhiInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Edges  []PhiEdge
}

// Terminators

type ReturnTerminator struct {
	ID    int
	Block *BasicBlock
	Value *Value
}

// BranchTerminator is a two-way conditional branch. Parallel marks a loop
// back edge whose iterations are known to be independent.
type BranchTerminator struct {
	ID         int
	Block      *BasicBlock
	Condition  *Value
	TrueBlock  *BasicBlock
	FalseBlock *BasicBlock
	Parallel   bool
}

type JumpTerminator struct {
	ID       int
	Block    *BasicBlock
	Target   *BasicBlock
	Parallel bool
}

type UnreachableTerminator struct {
	ID    int
	Block *BasicBlock
}

// Implementation of interfaces

func (a *AllocaInstruction) GetID() int              { return a.ID }
func (a *AllocaInstruction) GetResult() *Value       { return a.Result }
func (a *AllocaInstruction) GetOperands() []*Value   { return []*Value{} }
func (a *AllocaInstruction) GetBlock() *BasicBlock   { return a.Block }
func (a *AllocaInstruction) IsTerminator() bool      { return false }
func (a *AllocaInstruction) setBlock(b *BasicBlock)  { a.Block = b }
func (a *AllocaInstruction) replaceOperand(_, _ *Value) {}

func (l *LoadInstruction) GetID() int             { return l.ID }
func (l *LoadInstruction) GetResult() *Value      { return l.Result }
func (l *LoadInstruction) GetOperands() []*Value  { return []*Value{l.Address} }
func (l *LoadInstruction) GetBlock() *BasicBlock  { return l.Block }
func (l *LoadInstruction) IsTerminator() bool     { return false }
func (l *LoadInstruction) setBlock(b *BasicBlock) { l.Block = b }
func (l *LoadInstruction) replaceOperand(old, new *Value) {
	l.Address = swap(l.Address, old, new)
}

func (s *StoreInstruction) GetID() int             { return s.ID }
func (s *StoreInstruction) GetResult() *Value      { return nil }
func (s *StoreInstruction) GetOperands() []*Value  { return []*Value{s.Address, s.Value} }
func (s *StoreInstruction) GetBlock() *BasicBlock  { return s.Block }
func (s *StoreInstruction) IsTerminator() bool     { return false }
func (s *StoreInstruction) setBlock(b *BasicBlock) { s.Block = b }
func (s *StoreInstruction) replaceOperand(old, new *Value) {
	s.Address = swap(s.Address, old, new)
	s.Value = swap(s.Value, old, new)
}

func (a *AddrInstruction) GetID() int        { return a.ID }
func (a *AddrInstruction) GetResult() *Value { return a.Result }
func (a *AddrInstruction) GetOperands() []*Value {
	return append([]*Value{a.Base}, a.Indices...)
}
func (a *AddrInstruction) GetBlock() *BasicBlock  { return a.Block }
func (a *AddrInstruction) IsTerminator() bool     { return false }
func (a *AddrInstruction) setBlock(b *BasicBlock) { a.Block = b }
func (a *AddrInstruction) replaceOperand(old, new *Value) {
	a.Base = swap(a.Base, old, new)
	for i := range a.Indices {
		a.Indices[i] = swap(a.Indices[i], old, new)
	}
}

func (b *BinaryInstruction) GetID() int               { return b.ID }
func (b *BinaryInstruction) GetResult() *Value        { return b.Result }
func (b *BinaryInstruction) GetOperands() []*Value    { return []*Value{b.Left, b.Right} }
func (b *BinaryInstruction) GetBlock() *BasicBlock    { return b.Block }
func (b *BinaryInstruction) IsTerminator() bool       { return false }
func (b *BinaryInstruction) setBlock(bb *BasicBlock)  { b.Block = bb }
func (b *BinaryInstruction) replaceOperand(old, new *Value) {
	b.Left = swap(b.Left, old, new)
	b.Right = swap(b.Right, old, new)
}

func (c *CompareInstruction) GetID() int              { return c.ID }
func (c *CompareInstruction) GetResult() *Value       { return c.Result }
func (c *CompareInstruction) GetOperands() []*Value   { return []*Value{c.Left, c.Right} }
func (c *CompareInstruction) GetBlock() *BasicBlock   { return c.Block }
func (c *CompareInstruction) IsTerminator() bool      { return false }
func (c *CompareInstruction) setBlock(b *BasicBlock)  { c.Block = b }
func (c *CompareInstruction) replaceOperand(old, new *Value) {
	c.Left = swap(c.Left, old, new)
	c.Right = swap(c.Right, old, new)
}

func (c *ConvertInstruction) GetID() int             { return c.ID }
func (c *ConvertInstruction) GetResult() *Value      { return c.Result }
func (c *ConvertInstruction) GetOperands() []*Value  { return []*Value{c.Value} }
func (c *ConvertInstruction) GetBlock() *BasicBlock  { return c.Block }
func (c *ConvertInstruction) IsTerminator() bool     { return false }
func (c *ConvertInstruction) setBlock(b *BasicBlock) { c.Block = b }
func (c *ConvertInstruction) replaceOperand(old, new *Value) {
	c.Value = swap(c.Value, old, new)
}

func (c *CallInstruction) GetID() int             { return c.ID }
func (c *CallInstruction) GetResult() *Value      { return c.Result }
func (c *CallInstruction) GetOperands() []*Value  { return c.Args }
func (c *CallInstruction) GetBlock() *BasicBlock  { return c.Block }
func (c *CallInstruction) IsTerminator() bool     { return false }
func (c *CallInstruction) setBlock(b *BasicBlock) { c.Block = b }
func (c *CallInstruction) replaceOperand(old, new *Value) {
	for i := range c.Args {
		c.Args[i] = swap(c.Args[i], old, new)
	}
}

func (p *PhiInstruction) GetID() int        { return p.ID }
func (p *PhiInstruction) GetResult() *Value { return p.Result }
func (p *PhiInstruction) GetOperands() []*Value {
	ops := make([]*Value, 0, len(p.Edges))
	for _, e := range p.Edges {
		ops = append(ops, e.Value)
	}
	return ops
}
func (p *PhiInstruction) GetBlock() *BasicBlock  { return p.Block }
func (p *PhiInstruction) IsTerminator() bool     { return false }
func (p *PhiInstruction) setBlock(b *BasicBlock) { p.Block = b }
func (p *PhiInstruction) replaceOperand(old, new *Value) {
	for i := range p.Edges {
		p.Edges[i].Value = swap(p.Edges[i].Value, old, new)
	}
}

// Incoming returns the value flowing in from pred, or nil
func (p *PhiInstruction) Incoming(pred *BasicBlock) *Value {
	for _, e := range p.Edges {
		if e.Block == pred {
			return e.Value
		}
	}
	return nil
}

// Terminator implementations

func (r *ReturnTerminator) GetID() int        { return r.ID }
func (r *ReturnTerminator) GetResult() *Value { return nil }
func (r *ReturnTerminator) GetOperands() []*Value {
	if r.Value != nil {
		return []*Value{r.Value}
	}
	return []*Value{}
}
func (r *ReturnTerminator) GetBlock() *BasicBlock                    { return r.Block }
func (r *ReturnTerminator) IsTerminator() bool                       { return true }
func (r *ReturnTerminator) GetSuccessors() []*BasicBlock             { return []*BasicBlock{} }
func (r *ReturnTerminator) setBlock(b *BasicBlock)                   { r.Block = b }
func (r *ReturnTerminator) replaceOperand(old, new *Value)           { r.Value = swap(r.Value, old, new) }
func (r *ReturnTerminator) replaceSuccessor(_, _ *BasicBlock) bool   { return false }

func (b *BranchTerminator) GetID() int             { return b.ID }
func (b *BranchTerminator) GetResult() *Value      { return nil }
func (b *BranchTerminator) GetOperands() []*Value  { return []*Value{b.Condition} }
func (b *BranchTerminator) GetBlock() *BasicBlock  { return b.Block }
func (b *BranchTerminator) IsTerminator() bool     { return true }
func (b *BranchTerminator) setBlock(bb *BasicBlock) { b.Block = bb }
func (b *BranchTerminator) GetSuccessors() []*BasicBlock {
	return []*BasicBlock{b.TrueBlock, b.FalseBlock}
}
func (b *BranchTerminator) replaceOperand(old, new *Value) {
	b.Condition = swap(b.Condition, old, new)
}
func (b *BranchTerminator) replaceSuccessor(old, new *BasicBlock) bool {
	replaced := false
	if b.TrueBlock == old {
		b.TrueBlock = new
		replaced = true
	}
	if b.FalseBlock == old {
		b.FalseBlock = new
		replaced = true
	}
	return replaced
}

func (j *JumpTerminator) GetID() int                     { return j.ID }
func (j *JumpTerminator) GetResult() *Value              { return nil }
func (j *JumpTerminator) GetOperands() []*Value          { return []*Value{} }
func (j *JumpTerminator) GetBlock() *BasicBlock          { return j.Block }
func (j *JumpTerminator) IsTerminator() bool             { return true }
func (j *JumpTerminator) GetSuccessors() []*BasicBlock   { return []*BasicBlock{j.Target} }
func (j *JumpTerminator) setBlock(b *BasicBlock)         { j.Block = b }
func (j *JumpTerminator) replaceOperand(_, _ *Value)     {}
func (j *JumpTerminator) replaceSuccessor(old, new *BasicBlock) bool {
	if j.Target == old {
		j.Target = new
		return true
	}
	return false
}

func (u *UnreachableTerminator) GetID() int                            { return u.ID }
func (u *UnreachableTerminator) GetResult() *Value                     { return nil }
func (u *UnreachableTerminator) GetOperands() []*Value                 { return []*Value{} }
func (u *UnreachableTerminator) GetBlock() *BasicBlock                 { return u.Block }
func (u *UnreachableTerminator) IsTerminator() bool                    { return true }
func (u *UnreachableTerminator) GetSuccessors() []*BasicBlock          { return []*BasicBlock{} }
func (u *UnreachableTerminator) setBlock(b *BasicBlock)                { u.Block = b }
func (u *UnreachableTerminator) replaceOperand(_, _ *Value)            {}
func (u *UnreachableTerminator) replaceSuccessor(_, _ *BasicBlock) bool { return false }

func swap(v, old, new *Value) *Value {
	if v == old {
		return new
	}
	return v
}

// Types

type Type interface {
	String() string
}

type IntType struct {
	Bits int
}

type FloatType struct {
	Bits int
}

type BoolType struct{}

// PointerType is an untyped address
type PointerType struct{}

// OpaqueType stands for any type the IR does not model
type OpaqueType struct {
	Name string
}

type VoidType struct{}

func (i *IntType) String() string     { return fmt.Sprintf("i%d", i.Bits) }
func (f *FloatType) String() string   { return fmt.Sprintf("f%d", f.Bits) }
func (b *BoolType) String() string    { return "bool" }
func (p *PointerType) String() string { return "ptr" }
func (o *OpaqueType) String() string  { return "opaque" }
func (v *VoidType) String() string    { return "void" }

var (
	I64  = &IntType{Bits: 64}
	F64  = &FloatType{Bits: 64}
	Bool = &BoolType{}
	Ptr  = &PointerType{}
	Void = &VoidType{}
)
