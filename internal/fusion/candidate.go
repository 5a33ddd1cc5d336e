package fusion

import (
	"loopfuse/internal/analysis"
	"loopfuse/internal/errors"
	"loopfuse/internal/ir"
)

// Candidate is a loop that has the shape the fusion pass can transform,
// together with its induction and memory footprint
type Candidate struct {
	Loop *analysis.Loop

	Preheader *ir.BasicBlock
	Header    *ir.BasicBlock
	PreExit   *ir.BasicBlock
	Latch     *ir.BasicBlock
	Exit      *ir.BasicBlock

	Induction Induction

	Writes LocationSet
	Reads  LocationSet
}

// BuildCandidate checks that loop can take part in fusion and collects
// what the legality check needs. The returned reason names the first
// check that failed.
func BuildCandidate(loop *analysis.Loop, vars VariableMap) (*Candidate, *Reason) {
	for _, b := range loop.Blocks {
		for _, inst := range b.Instructions {
			if ir.MayThrow(inst) {
				return nil, reasonf(errors.ErrorMayThrow,
					"loop contains instruction that may throw: %s", ir.FormatInstruction(inst))
			}
		}
	}
	for _, b := range loop.Blocks {
		for _, inst := range b.Instructions {
			if ir.IsVolatile(inst) {
				return nil, reason(errors.ErrorVolatileAccess)
			}
		}
	}

	c := &Candidate{
		Loop:      loop,
		Preheader: loop.Preheader(),
		Exit:      loop.UniqueExitBlock(),
	}
	if c.Preheader == nil || c.Exit == nil {
		return nil, reason(errors.ErrorNoSingleEntryExit)
	}

	if loop.IsAnnotatedParallel() {
		return nil, reason(errors.ErrorAnnotatedParallel)
	}

	c.Header = loop.Header
	c.Latch = loop.Latch()
	c.PreExit = loop.ExitingBlock()
	if c.Header == nil || c.Latch == nil || c.PreExit == nil {
		return nil, reason(errors.ErrorMissingLoopBlocks)
	}
	if !distinct(c.Preheader, c.Header, c.PreExit, c.Latch, c.Exit) {
		return nil, reason(errors.ErrorLoopBlocksNotDistinct)
	}
	if len(c.Header.Phis()) > 0 || len(c.Exit.Phis()) > 0 {
		return nil, reason(errors.ErrorLoopPhi)
	}

	c.collectMemoryOperations()

	if why := c.extractInduction(vars); why != nil {
		return nil, why
	}
	return c, nil
}

func distinct(blocks ...*ir.BasicBlock) bool {
	seen := make(map[*ir.BasicBlock]bool, len(blocks))
	for _, b := range blocks {
		if seen[b] {
			return false
		}
		seen[b] = true
	}
	return true
}
