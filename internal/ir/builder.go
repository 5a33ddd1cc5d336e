package ir

import (
	"strconv"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"

	"loopfuse/grammar"
)

// Builder converts parsed textual IR into a Program
type Builder struct {
	program *Program

	// Per-function state
	fn     *Function
	values map[string]*Value
	blocks map[string]*BasicBlock
}

// NewBuilder creates a new IR builder
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildProgram lowers a parsed module into IR
func BuildProgram(name string, module *grammar.Module) (*Program, error) {
	return NewBuilder().Build(name, module)
}

// ParseProgram parses and lowers textual IR in one step
func ParseProgram(filename, source string) (*Program, error) {
	module, err := grammar.ParseString(filename, source)
	if err != nil {
		return nil, err
	}
	return BuildProgram(filename, module)
}

// Build converts a parsed module to IR
func (b *Builder) Build(name string, module *grammar.Module) (*Program, error) {
	b.program = &Program{Name: name}

	for _, f := range module.Functions {
		if b.program.Function(f.Name[1:]) != nil {
			return nil, errors.Errorf("%s: function %s redefined", position(f.Pos), f.Name)
		}
		fn, err := b.buildFunction(f)
		if err != nil {
			return nil, errors.Wrapf(err, "function %s", f.Name)
		}
		b.program.Functions = append(b.program.Functions, fn)
	}

	return b.program, nil
}

// buildFunction creates blocks and result values first so that operands
// and branch targets may refer forward, then fills in the instructions
func (b *Builder) buildFunction(f *grammar.Function) (*Function, error) {
	b.fn = NewFunction(f.Name[1:], Void)
	b.fn.Pos = position(f.Pos)
	b.values = make(map[string]*Value)
	b.blocks = make(map[string]*BasicBlock)

	if f.Return != nil {
		b.fn.ReturnType = lowerType(f.Return)
	}
	for _, p := range f.Params {
		name := p.Name[1:]
		if _, dup := b.values[name]; dup {
			return nil, errors.Errorf("%s: parameter %%%s redefined", position(p.Pos), name)
		}
		b.values[name] = b.fn.AddParam(name, lowerType(p.Type))
	}

	if len(f.Blocks) == 0 {
		return nil, errors.Errorf("%s: function has no blocks", position(f.Pos))
	}

	for _, blk := range f.Blocks {
		if _, dup := b.blocks[blk.Label]; dup {
			return nil, errors.Errorf("%s: block %s redefined", position(blk.Pos), blk.Label)
		}
		block := b.fn.NewBlock(blk.Label)
		block.Pos = position(blk.Pos)
		b.blocks[blk.Label] = block

		for _, inst := range blk.Instructions {
			if err := b.declareResult(inst); err != nil {
				return nil, err
			}
		}
	}

	for _, blk := range f.Blocks {
		block := b.blocks[blk.Label]
		for _, inst := range blk.Instructions {
			lowered, err := b.buildInstruction(inst)
			if err != nil {
				return nil, err
			}
			lowered.setBlock(block)
			if res := lowered.GetResult(); res != nil {
				res.DefBlock = block
				res.DefInst = lowered
			}
			block.Instructions = append(block.Instructions, lowered)
		}
		term, err := b.buildTerminator(blk.Terminator)
		if err != nil {
			return nil, err
		}
		term.setBlock(block)
		block.Terminator = term
	}

	b.fn.RebuildCFG()
	return b.fn, nil
}

// declareResult creates the value defined by an instruction
func (b *Builder) declareResult(inst *grammar.Instruction) error {
	if inst.Assign == nil {
		return nil
	}
	a := inst.Assign
	name := a.Result[1:]
	if _, dup := b.values[name]; dup {
		return errors.Errorf("%s: value %%%s redefined", position(a.Pos), name)
	}

	var t Type
	switch {
	case a.Alloca != nil, a.Addr != nil:
		t = Ptr
	case a.Load != nil:
		t = lowerType(a.Load.Type)
	case a.Compare != nil:
		t = Bool
	case a.Convert != nil:
		t = lowerType(a.Convert.Type)
	case a.Call != nil:
		t = I64
		if a.Call.Type != nil {
			t = lowerType(a.Call.Type)
		}
	case a.Phi != nil:
		t = lowerType(a.Phi.Type)
	}
	// Binary results take their operand type, fixed up when lowered
	b.values[name] = b.fn.NewValue(name, t)
	return nil
}

func (b *Builder) buildInstruction(inst *grammar.Instruction) (Instruction, error) {
	id := b.fn.newID()

	if inst.Store != nil {
		value, err := b.operand(inst.Store.Value)
		if err != nil {
			return nil, err
		}
		addr, err := b.operand(inst.Store.Address)
		if err != nil {
			return nil, err
		}
		return &StoreInstruction{ID: id, Address: addr, Value: value, Volatile: inst.Store.Volatile}, nil
	}
	if inst.Call != nil {
		return b.buildCall(id, nil, inst.Call)
	}

	a := inst.Assign
	res := b.values[a.Result[1:]]
	switch {
	case a.Alloca != nil:
		return &AllocaInstruction{ID: id, Result: res, Allocated: lowerType(a.Alloca.Type)}, nil
	case a.Load != nil:
		addr, err := b.operand(a.Load.Address)
		if err != nil {
			return nil, err
		}
		return &LoadInstruction{ID: id, Result: res, Address: addr, Volatile: a.Load.Volatile}, nil
	case a.Addr != nil:
		base, err := b.operand(a.Addr.Base)
		if err != nil {
			return nil, err
		}
		indices, err := b.operands(a.Addr.Indices)
		if err != nil {
			return nil, err
		}
		return &AddrInstruction{ID: id, Result: res, Base: base, Indices: indices, Checked: a.Addr.Checked}, nil
	case a.Binary != nil:
		left, err := b.operand(a.Binary.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.operand(a.Binary.Right)
		if err != nil {
			return nil, err
		}
		res.Type = left.Type
		if res.Type == nil {
			res.Type = right.Type
		}
		if res.Type == nil {
			res.Type = I64
		}
		return &BinaryInstruction{ID: id, Result: res, Op: BinaryOp(a.Binary.Op), Left: left, Right: right}, nil
	case a.Compare != nil:
		left, err := b.operand(a.Compare.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.operand(a.Compare.Right)
		if err != nil {
			return nil, err
		}
		return &CompareInstruction{ID: id, Result: res, Predicate: Predicate(a.Compare.Predicate), Left: left, Right: right}, nil
	case a.Convert != nil:
		value, err := b.operand(a.Convert.Value)
		if err != nil {
			return nil, err
		}
		return &ConvertInstruction{ID: id, Result: res, Value: value}, nil
	case a.Call != nil:
		return b.buildCall(id, res, a.Call)
	case a.Phi != nil:
		phi := &PhiInstruction{ID: id, Result: res}
		for _, e := range a.Phi.Edges {
			value, err := b.operand(e.Value)
			if err != nil {
				return nil, err
			}
			pred, ok := b.blocks[e.Block]
			if !ok {
				return nil, errors.Errorf("%s: undefined block %s", position(a.Pos), e.Block)
			}
			phi.Edges = append(phi.Edges, PhiEdge{Block: pred, Value: value})
		}
		return phi, nil
	}
	return nil, errors.Errorf("%s: unsupported instruction", position(inst.Pos))
}

func (b *Builder) buildCall(id int, res *Value, call *grammar.Call) (Instruction, error) {
	args, err := b.operands(call.Args)
	if err != nil {
		return nil, err
	}
	return &CallInstruction{ID: id, Result: res, Function: call.Callee[1:], Args: args, NoUnwind: call.NoUnwind}, nil
}

func (b *Builder) buildTerminator(t *grammar.Terminator) (Terminator, error) {
	id := b.fn.newID()

	switch {
	case t.Jump != nil:
		target, err := b.block(t.Pos, t.Jump.Target)
		if err != nil {
			return nil, err
		}
		return &JumpTerminator{ID: id, Target: target, Parallel: t.Jump.Parallel}, nil
	case t.Branch != nil:
		cond, err := b.operand(t.Branch.Condition)
		if err != nil {
			return nil, err
		}
		ifTrue, err := b.block(t.Pos, t.Branch.True)
		if err != nil {
			return nil, err
		}
		ifFalse, err := b.block(t.Pos, t.Branch.False)
		if err != nil {
			return nil, err
		}
		return &BranchTerminator{ID: id, Condition: cond, TrueBlock: ifTrue, FalseBlock: ifFalse, Parallel: t.Branch.Parallel}, nil
	case t.Return != nil:
		ret := &ReturnTerminator{ID: id}
		if t.Return.Value != nil {
			v, err := b.operand(t.Return.Value)
			if err != nil {
				return nil, err
			}
			ret.Value = v
		}
		return ret, nil
	default:
		return &UnreachableTerminator{ID: id}, nil
	}
}

func (b *Builder) block(pos lexer.Position, label string) (*BasicBlock, error) {
	block, ok := b.blocks[label]
	if !ok {
		return nil, errors.Errorf("%s: undefined block %s", position(pos), label)
	}
	return block, nil
}

func (b *Builder) operands(ops []*grammar.Operand) ([]*Value, error) {
	values := make([]*Value, 0, len(ops))
	for _, op := range ops {
		v, err := b.operand(op)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// operand resolves a local reference or materialises a literal.
// Every literal yields a fresh constant value.
func (b *Builder) operand(op *grammar.Operand) (*Value, error) {
	if op.Local != "" {
		v, ok := b.values[op.Local[1:]]
		if !ok {
			return nil, errors.Errorf("%s: undefined value %s", position(op.Pos), op.Local)
		}
		return v, nil
	}

	lit := op.Literal
	switch {
	case lit.Float != nil:
		t := Type(F64)
		if lit.Type != nil {
			t = lowerType(lit.Type)
		}
		return ConstFloat(t, *lit.Float), nil
	case lit.Int != nil:
		n, err := parseInt(*lit.Int)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: bad integer literal", position(op.Pos))
		}
		t := Type(I64)
		if lit.Type != nil {
			t = lowerType(lit.Type)
		}
		if _, isFloat := t.(*FloatType); isFloat {
			return ConstFloat(t, float64(n)), nil
		}
		return ConstInt(t, n), nil
	default:
		return ConstBool(*lit.Bool == "true"), nil
	}
}

func parseInt(text string) (int64, error) {
	n, err := strconv.ParseInt(text, 0, 64)
	if err == nil {
		return n, nil
	}
	u, uerr := strconv.ParseUint(text, 0, 64)
	if uerr != nil {
		return 0, err
	}
	return int64(u), nil
}

func lowerType(t *grammar.Type) Type {
	switch t.Name {
	case "i1", "i8", "i16", "i32", "i64":
		bits, _ := strconv.Atoi(t.Name[1:])
		return &IntType{Bits: bits}
	case "f32":
		return &FloatType{Bits: 32}
	case "f64":
		return F64
	case "bool":
		return Bool
	case "ptr":
		return Ptr
	case "void":
		return Void
	default:
		return &OpaqueType{Name: t.Name}
	}
}

func position(pos lexer.Position) Position {
	return Position{Filename: pos.Filename, Line: pos.Line, Column: pos.Column}
}
