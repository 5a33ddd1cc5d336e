package fusion

import (
	"loopfuse/internal/errors"
	"loopfuse/internal/ir"
)

// extractInduction recovers start, stop and step of the loop counter.
//
// The counter is the address of the first load in the header that comes
// before any comparison. The last comparison of the header gives the stop
// bound. The last qualifying store of the preheader gives the start and
// the last binary operation of the latch gives the step.
func (c *Candidate) extractInduction(vars VariableMap) *Reason {
	var ind Induction
	seenCompare := false

	for _, inst := range c.Header.Instructions {
		switch i := inst.(type) {
		case *ir.CompareInstruction:
			seenCompare = true
			switch {
			case i.Right.IsConst():
				ind.Stop.setConst(i.Right.Const)
			case vars[i.Right] != nil:
				ind.Stop.setVar(vars[i.Right])
			default:
				ind.Stop = Bound{}
			}
		case *ir.LoadInstruction:
			if ind.Variable == nil && !seenCompare {
				ind.Variable = i.Address
			}
		}
	}

	if ind.Variable == nil {
		return reason(errors.ErrorNoInductionVariable)
	}
	if !ind.Stop.IsSet() {
		return reason(errors.ErrorStopNotResolved)
	}

	if !c.storesInLoop(ind.Variable) {
		return reasonf(errors.ErrorInductionNotStored,
			"loop induction variable %s is never stored in the loop", ind.Variable)
	}

	for _, inst := range c.Preheader.Instructions {
		store, ok := inst.(*ir.StoreInstruction)
		if !ok {
			continue
		}
		switch {
		case store.Value.IsConst() && store.Value.Const.IsInt():
			ind.Start.setConst(store.Value.Const)
		case vars[store.Value] != nil:
			ind.Start.setVar(vars[store.Value])
		}
	}
	if !ind.Start.IsSet() {
		return reason(errors.ErrorStartNotResolved)
	}

	for _, inst := range c.Latch.Instructions {
		bin, ok := inst.(*ir.BinaryInstruction)
		if !ok {
			continue
		}
		ind.AdvanceOp = bin.Op
		switch {
		case bin.Right.IsConst() && bin.Right.Const.IsInt():
			ind.Advance.setConst(bin.Right.Const)
		case vars[bin.Right] != nil:
			ind.Advance.setVar(vars[bin.Right])
		default:
			ind.Advance = Bound{}
		}
	}
	if !ind.Advance.IsSet() {
		return reason(errors.ErrorAdvanceNotResolved)
	}

	c.Induction = ind
	return nil
}

// storesInLoop reports whether a loop block other than the header and
// the pre-exit stores to addr. Stores in the latch count.
func (c *Candidate) storesInLoop(addr *ir.Value) bool {
	for _, b := range c.Loop.Blocks {
		if b == c.Header || b == c.PreExit {
			continue
		}
		for _, inst := range b.Instructions {
			if store, ok := inst.(*ir.StoreInstruction); ok && store.Address == addr {
				return true
			}
		}
	}
	return false
}
