package fusion

import (
	"loopfuse/internal/ir"
)

// isBody reports whether b is a body block: neither header, latch nor
// pre-exit
func (c *Candidate) isBody(b *ir.BasicBlock) bool {
	return b != c.Header && b != c.Latch && b != c.PreExit
}

// collectMemoryOperations fills the write and read sets of c.
//
// In the header the first load is the comparison operand and counts as a
// write; later header loads are reads. In body blocks the base of the
// latest address computation, if not yet consumed, stands in for the
// address of the next load or store. The pending base survives block
// boundaries and a new address computation overwrites it.
func (c *Candidate) collectMemoryOperations() {
	var pending *ir.Value
	headerSeenLoad := false

	for _, b := range c.Loop.Blocks {
		if b == c.Header {
			for _, inst := range b.Instructions {
				load, ok := inst.(*ir.LoadInstruction)
				if !ok {
					continue
				}
				if !headerSeenLoad {
					c.Writes.Add(load.Address)
					headerSeenLoad = true
					continue
				}
				c.Reads.Add(load.Address)
			}
			continue
		}
		if !c.isBody(b) {
			continue
		}

		for _, inst := range b.Instructions {
			switch i := inst.(type) {
			case *ir.LoadInstruction:
				if pending != nil {
					c.Reads.Add(pending)
					pending = nil
					continue
				}
				c.Reads.Add(i.Address)
			case *ir.StoreInstruction:
				if pending != nil {
					c.Writes.Add(pending)
					pending = nil
					continue
				}
				c.Writes.Add(i.Address)
			case *ir.AddrInstruction:
				pending = i.Base
			}
		}
	}
}
