package ir

// This file contains the generic IR optimization passes and the pipeline
// that sequences them. Loop passes live in the fusion package and plug
// into the same pipeline.

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// OptimizationPass represents a single optimization transformation
type OptimizationPass interface {
	Name() string
	Apply(program *Program) bool // Returns true if changes were made
	Description() string
}

// OptimizationPipeline manages the sequence of optimization passes
type OptimizationPipeline struct {
	passes []OptimizationPass
	log    *zap.SugaredLogger
}

// NewOptimizationPipeline creates a new optimization pipeline with default passes
func NewOptimizationPipeline() *OptimizationPipeline {
	pipeline := NewEmptyPipeline()

	pipeline.AddPass(&ConstantFolding{})
	pipeline.AddPass(&CommonSubexpressionElimination{})
	pipeline.AddPass(&DeadCodeElimination{})

	return pipeline
}

// NewEmptyPipeline creates a pipeline without passes
func NewEmptyPipeline() *OptimizationPipeline {
	return &OptimizationPipeline{log: zap.NewNop().Sugar()}
}

// SetLogger sets the logger the pipeline reports progress to
func (p *OptimizationPipeline) SetLogger(log *zap.SugaredLogger) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	p.log = log
}

// AddPass adds an optimization pass to the pipeline
func (p *OptimizationPipeline) AddPass(pass OptimizationPass) {
	p.passes = append(p.passes, pass)
}

// Passes returns the names of the passes in execution order
func (p *OptimizationPipeline) Passes() []string {
	names := make([]string, len(p.passes))
	for i, pass := range p.passes {
		names[i] = pass.Name()
	}
	return names
}

// Run executes all optimization passes on the IR program and reports
// whether any of them changed it
func (p *OptimizationPipeline) Run(program *Program) bool {
	p.log.Debugf("Running %d optimization passes on %s", len(p.passes), program.Name)

	changed := false
	for _, pass := range p.passes {
		if pass.Apply(program) {
			changed = true
			p.log.Debugw("pass applied", "pass", pass.Name(), "description", pass.Description())
		} else {
			p.log.Debugw("pass made no changes", "pass", pass.Name())
		}
	}
	return changed
}

// ConstantFolding evaluates constant expressions at compile time
type ConstantFolding struct{}

func (cf *ConstantFolding) Name() string {
	return "Constant Folding"
}

func (cf *ConstantFolding) Description() string {
	return "Evaluates constant integer expressions and replaces them with literals"
}

func (cf *ConstantFolding) Apply(program *Program) bool {
	changed := false

	for _, fn := range program.Functions {
		if cf.foldConstants(fn) {
			changed = true
		}
	}

	return changed
}

// foldConstants performs constant folding within a function
func (cf *ConstantFolding) foldConstants(fn *Function) bool {
	changed := false

	for _, block := range fn.Blocks {
		var kept []Instruction
		for _, inst := range block.Instructions {
			folded := cf.foldInstruction(inst)
			if folded == nil {
				kept = append(kept, inst)
				continue
			}
			ReplaceAllUses(fn, inst.GetResult(), folded)
			changed = true
		}
		block.Instructions = kept
	}

	return changed
}

// foldInstruction returns the constant an instruction evaluates to, or nil
func (cf *ConstantFolding) foldInstruction(inst Instruction) *Value {
	switch i := inst.(type) {
	case *BinaryInstruction:
		if !i.Left.IsConst() || !i.Right.IsConst() || !i.Left.Const.IsInt() || !i.Right.Const.IsInt() {
			return nil
		}
		result, ok := cf.computeBinaryOp(i.Op, i.Left.Const.Int(), i.Right.Const.Int())
		if !ok {
			return nil
		}
		return ConstInt(i.Result.Type, truncate(result, i.Result.Type))
	case *CompareInstruction:
		if !i.Left.IsConst() || !i.Right.IsConst() || !i.Left.Const.IsInt() || !i.Right.Const.IsInt() {
			return nil
		}
		return ConstBool(cf.computeCompare(i.Predicate, i.Left.Const.Int(), i.Right.Const.Int()))
	}
	return nil
}

// computeBinaryOp performs constant computation for binary operations
func (cf *ConstantFolding) computeBinaryOp(op BinaryOp, left, right int64) (int64, bool) {
	switch op {
	case OpAdd:
		return left + right, true
	case OpSub:
		return left - right, true
	case OpMul:
		return left * right, true
	case OpDiv:
		if right != 0 {
			return left / right, true
		}
	case OpRem:
		if right != 0 {
			return left % right, true
		}
	case OpAnd:
		return left & right, true
	case OpOr:
		return left | right, true
	case OpXor:
		return left ^ right, true
	case OpAndNot:
		return left &^ right, true
	case OpShl:
		if right >= 0 && right < 64 {
			return left << uint(right), true
		}
	case OpShr:
		if right >= 0 && right < 64 {
			return left >> uint(right), true
		}
	}
	return 0, false // Cannot fold
}

func (cf *ConstantFolding) computeCompare(pred Predicate, left, right int64) bool {
	switch pred {
	case PredEQ:
		return left == right
	case PredNE:
		return left != right
	case PredLT:
		return left < right
	case PredLE:
		return left <= right
	case PredGT:
		return left > right
	default:
		return left >= right
	}
}

// truncate wraps v to the width of an integer type, sign-extending back
func truncate(v int64, t Type) int64 {
	it, ok := t.(*IntType)
	if !ok || it.Bits >= 64 || it.Bits <= 0 {
		return v
	}
	shift := uint(64 - it.Bits)
	return (v << shift) >> shift
}

// DeadCodeElimination removes unreachable code and unused values
type DeadCodeElimination struct{}

func (dce *DeadCodeElimination) Name() string {
	return "Dead Code Elimination"
}

func (dce *DeadCodeElimination) Description() string {
	return "Removes unreachable basic blocks and unused side-effect free instructions"
}

func (dce *DeadCodeElimination) Apply(program *Program) bool {
	changed := false

	for _, fn := range program.Functions {
		if dce.eliminateDeadBlocks(fn) {
			changed = true
		}
		if dce.eliminateDeadInstructions(fn) {
			changed = true
		}
	}

	return changed
}

// eliminateDeadBlocks removes unreachable basic blocks using reachability analysis
func (dce *DeadCodeElimination) eliminateDeadBlocks(fn *Function) bool {
	if len(fn.Blocks) == 0 {
		return false
	}
	return len(RemoveUnreachableBlocks(fn)) > 0
}

// eliminateDeadInstructions removes instructions whose results are never
// used, until nothing more can be removed
func (dce *DeadCodeElimination) eliminateDeadInstructions(fn *Function) bool {
	changed := false

	for {
		used := make(map[*Value]bool)
		for _, block := range fn.Blocks {
			for _, inst := range block.Instructions {
				dce.markUsedValues(inst, used)
			}
			if block.Terminator != nil {
				dce.markUsedValues(block.Terminator, used)
			}
		}

		removed := false
		for _, block := range fn.Blocks {
			var kept []Instruction
			for _, inst := range block.Instructions {
				if dce.shouldKeepInstruction(inst, used) {
					kept = append(kept, inst)
				} else {
					removed = true
				}
			}
			block.Instructions = kept
		}

		if !removed {
			return changed
		}
		changed = true
	}
}

// markUsedValues marks all values used by an instruction
func (dce *DeadCodeElimination) markUsedValues(inst Instruction, used map[*Value]bool) {
	for _, op := range inst.GetOperands() {
		used[op] = true
	}
}

// shouldKeepInstruction reports whether inst is live
func (dce *DeadCodeElimination) shouldKeepInstruction(inst Instruction, used map[*Value]bool) bool {
	res := inst.GetResult()
	if res == nil || used[res] {
		return true
	}
	switch i := inst.(type) {
	case *LoadInstruction:
		// A non-volatile load of an unused value can go
		return i.Volatile
	case *AllocaInstruction:
		return false
	}
	return !IsPure(inst)
}

// CommonSubexpressionElimination removes redundant computations within basic blocks
type CommonSubexpressionElimination struct{}

func (cse *CommonSubexpressionElimination) Name() string {
	return "Common Subexpression Elimination"
}

func (cse *CommonSubexpressionElimination) Description() string {
	return "Eliminates redundant side-effect free computations within basic blocks"
}

func (cse *CommonSubexpressionElimination) Apply(program *Program) bool {
	changed := false

	for _, fn := range program.Functions {
		for _, block := range fn.Blocks {
			if cse.optimizeBlock(fn, block) {
				changed = true
			}
		}
	}

	return changed
}

// optimizeBlock removes redundant computations within a single basic block
func (cse *CommonSubexpressionElimination) optimizeBlock(fn *Function, block *BasicBlock) bool {
	changed := false
	available := make(map[string]*Value)

	var kept []Instruction
	for _, inst := range block.Instructions {
		key, ok := cse.expressionKey(inst)
		if !ok {
			kept = append(kept, inst)
			continue
		}
		if prev, seen := available[key]; seen {
			// Redundant computation - replace all uses of this result with the first one
			ReplaceAllUses(fn, inst.GetResult(), prev)
			changed = true
			continue
		}
		available[key] = inst.GetResult()
		kept = append(kept, inst)
	}
	block.Instructions = kept

	return changed
}

// expressionKey identifies a pure computation by opcode and operand identity
func (cse *CommonSubexpressionElimination) expressionKey(inst Instruction) (string, bool) {
	if !IsPure(inst) || inst.GetResult() == nil {
		return "", false
	}
	var op string
	switch i := inst.(type) {
	case *BinaryInstruction:
		op = string(i.Op)
	case *CompareInstruction:
		op = "cmp " + string(i.Predicate)
	case *ConvertInstruction:
		op = "convert " + i.Result.Type.String()
	case *AddrInstruction:
		op = "addr"
	default:
		return "", false
	}
	var sb strings.Builder
	sb.WriteString(op)
	for _, operand := range inst.GetOperands() {
		if operand.IsConst() {
			fmt.Fprintf(&sb, " c:%s", operand.Const)
		} else {
			fmt.Fprintf(&sb, " v:%p", operand)
		}
	}
	return sb.String(), true
}
