package fusion

import (
	"fmt"

	"loopfuse/internal/analysis"
	"loopfuse/internal/errors"
	"loopfuse/internal/ir"
)

// hoister decides which preheader instructions of c2 may move to the end
// of c1's preheader
type hoister struct {
	c1, c2 *Candidate
	dom    *analysis.DomTree
	pdom   *analysis.PostDomTree
	moved  map[*ir.Value]bool

	// every memory access of c1's loop, by root address
	reads, writes access
	escaped       map[*ir.Value]bool
}

// access is the set of locations a loop touches. Allocas are tracked one
// by one; unknown is set when some access may reach any location whose
// address escaped.
type access struct {
	roots   map[*ir.Value]bool
	unknown bool
}

func (a *access) add(addr *ir.Value) {
	root := rootAddress(addr)
	if !isAlloca(root) {
		a.unknown = true
		return
	}
	a.roots[root] = true
}

// mayTouch reports whether the access can reach the location addr points
// to. Only escaped allocas can be reached through unknown accesses.
func (a *access) mayTouch(addr *ir.Value, escaped map[*ir.Value]bool) bool {
	root := rootAddress(addr)
	switch {
	case !isAlloca(root):
		return a.unknown || len(a.roots) > 0
	case escaped[root]:
		return a.unknown || a.roots[root]
	default:
		return a.roots[root]
	}
}

// escapedAllocas returns the allocas of fn whose address is used other than
// to load, store or compute an address
func escapedAllocas(fn *ir.Function) map[*ir.Value]bool {
	escaped := make(map[*ir.Value]bool)
	mark := func(v *ir.Value) {
		if root := rootAddress(v); isAlloca(root) {
			escaped[root] = true
		}
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			switch i := inst.(type) {
			case *ir.LoadInstruction:
			case *ir.StoreInstruction:
				mark(i.Value)
			case *ir.AddrInstruction:
				for _, idx := range i.Indices {
					mark(idx)
				}
			default:
				for _, op := range inst.GetOperands() {
					mark(op)
				}
			}
		}
		if ret, ok := b.Terminator.(*ir.ReturnTerminator); ok && ret.Value != nil {
			mark(ret.Value)
		}
	}
	return escaped
}

// rootAddress follows address computations down to the base they index
func rootAddress(v *ir.Value) *ir.Value {
	for v != nil {
		addr, ok := v.DefInst.(*ir.AddrInstruction)
		if !ok {
			break
		}
		v = addr.Base
	}
	return v
}

func isAlloca(v *ir.Value) bool {
	if v == nil {
		return false
	}
	_, ok := v.DefInst.(*ir.AllocaInstruction)
	return ok
}

func newHoister(c1, c2 *Candidate, cache *analysis.Cache) *hoister {
	h := &hoister{
		c1:      c1,
		c2:      c2,
		dom:     cache.Dominators(),
		pdom:    cache.PostDominators(),
		moved:   make(map[*ir.Value]bool),
		reads:   access{roots: make(map[*ir.Value]bool)},
		writes:  access{roots: make(map[*ir.Value]bool)},
		escaped: escapedAllocas(c1.Header.Parent),
	}
	for _, b := range c1.Loop.Blocks {
		for _, inst := range b.Instructions {
			switch i := inst.(type) {
			case *ir.LoadInstruction:
				h.reads.add(i.Address)
			case *ir.StoreInstruction:
				h.writes.add(i.Address)
			case *ir.CallInstruction:
				h.reads.unknown = true
				h.writes.unknown = true
			}
		}
	}
	return h
}

// canHoist reports whether inst can run at the end of c1's preheader
// without changing what it computes. Accepted results become available to
// later instructions.
//
// Loads and stores are compared with everything c1's loop accesses, not
// with its footprint sets: those record one location per address
// computation and may name a different base than the one accessed.
func (h *hoister) canHoist(inst ir.Instruction) bool {
	if !h.dom.Dominates(h.c1.Preheader, h.c2.Preheader) || !h.pdom.PostDominates(h.c2.Preheader, h.c1.Preheader) {
		return false
	}
	if ir.MayThrow(inst) {
		return false
	}
	switch i := inst.(type) {
	case *ir.CallInstruction, *ir.PhiInstruction:
		return false
	case *ir.LoadInstruction:
		if h.writes.mayTouch(i.Address, h.escaped) {
			return false
		}
	case *ir.StoreInstruction:
		if h.writes.mayTouch(i.Address, h.escaped) || h.reads.mayTouch(i.Address, h.escaped) {
			return false
		}
	}
	for _, op := range inst.GetOperands() {
		if op.IsConst() || op.IsParam() || h.moved[op] {
			continue
		}
		if op.DefBlock == h.c2.Preheader || op.DefBlock == nil || h.c1.Loop.Contains(op.DefBlock) {
			return false
		}
	}
	if res := inst.GetResult(); res != nil {
		h.moved[res] = true
	}
	return true
}

// preheaderRelocatable returns why some instruction of c2's preheader
// cannot be hoisted, or nil
func preheaderRelocatable(c1, c2 *Candidate, cache *analysis.Cache) *Reason {
	h := newHoister(c1, c2, cache)
	for _, inst := range c2.Preheader.Instructions {
		if !h.canHoist(inst) {
			return reasonf(errors.ErrorPreheaderNotRelocatable,
				"preheader %s of the second loop cannot be hoisted: %s", c2.Preheader.Label, ir.FormatInstruction(inst))
		}
	}
	return nil
}

// fuse merges c2 into c1. Legality must already hold; nothing is checked
// and nothing is undone. Analyses are recomputed after each structural
// step.
func (f *Fuser) fuse(c1, c2 *Candidate) {
	fn := f.fn
	log := f.log.With("func", fn.Name, "first", c1.Header.Label, "second", c2.Header.Label)

	// 1. Hoist c2's preheader into c1's preheader
	h := newHoister(c1, c2, f.cache)
	moved := ir.MoveToEnd(c2.Preheader, c1.Preheader, h.canHoist)
	for _, inst := range c2.Preheader.Instructions {
		f.emit(c2.Loop, errors.WarningDroppedInstruction,
			fmt.Sprintf("preheader instruction dropped: %s", ir.FormatInstruction(inst)))
	}
	log.Debugw("hoisted preheader", "moved", len(moved), "dropped", len(c2.Preheader.Instructions))

	// 2. c1 leaves straight to c2's exit; c2's preheader becomes dead
	ir.ReplaceSuccessor(c1.PreExit, c2.Preheader, c2.Exit)
	ir.SetUnreachable(c2.Preheader)

	// 3. Splice c2's body between c1's latch and c1's header
	ir.ReplaceSuccessor(c1.Latch, c1.Header, c2.Header)
	ir.ReplaceSuccessor(c2.Latch, c2.Header, c1.Header)

	f.cache.Recompute()
	f.loops.RemoveBlock(c2.Preheader)
	f.cache.Recompute()

	// 5. Advance both counters after both bodies; c2's header now only
	// follows c1's latch and is folded into it
	ir.MoveToFront(c1.Latch, c2.Latch)
	if succ := c1.Latch.UniqueSuccessor(); succ != nil && ir.MergeIntoPredecessor(succ) {
		f.loops.RemoveBlock(succ)
		log.Debugw("merged block into latch", "block", succ.Label, "latch", c1.Latch.Label)
	}
	f.cache.Recompute()

	// 6. c1 takes over c2's blocks and sub-loops
	for _, b := range append([]*ir.BasicBlock(nil), c2.Loop.Blocks...) {
		c1.Loop.AddBlockEntry(b)
		c2.Loop.RemoveBlockFromLoop(b)
		if f.loops.LoopFor(b) == c2.Loop {
			f.loops.ChangeLoopFor(b, c1.Loop)
		}
	}
	for _, sub := range append([]*analysis.Loop(nil), c2.Loop.SubLoops...) {
		f.loops.Reparent(sub, c1.Loop)
	}

	// 7. Drop dead blocks and c2's loop
	for _, b := range ir.RemoveUnreachableBlocks(fn) {
		f.loops.RemoveBlock(b)
	}
	f.loops.Erase(c2.Loop)
	f.cache.Recompute()

	f.emitRelated(c2.Loop, errors.NoteFused,
		fmt.Sprintf("loop fused into loop %s%s", c1.Header.Label, linePart(c1.Header.Pos)), c1.Header.Pos)
	log.Debug("fused")
}

func linePart(pos ir.Position) string {
	if !pos.IsValid() {
		return ""
	}
	return fmt.Sprintf(" at line %d", pos.Line)
}
