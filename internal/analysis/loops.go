package analysis

import (
	"sort"

	"loopfuse/internal/ir"
)

// Loop is a natural loop: a header plus every block that reaches one of
// the header's back edges without passing through the header
type Loop struct {
	Header *ir.BasicBlock

	// Blocks lists the loop's blocks, nested loops included, header first
	Blocks []*ir.BasicBlock

	Parent   *Loop
	SubLoops []*Loop

	set map[*ir.BasicBlock]bool
}

// Contains reports whether b belongs to the loop or one of its sub-loops
func (l *Loop) Contains(b *ir.BasicBlock) bool {
	return l.set[b]
}

// Depth is 1 for an outermost loop
func (l *Loop) Depth() int {
	d := 0
	for p := l; p != nil; p = p.Parent {
		d++
	}
	return d
}

// Predecessor returns the unique block outside the loop that branches to
// the header, or nil
func (l *Loop) Predecessor() *ir.BasicBlock {
	var out *ir.BasicBlock
	for _, p := range l.Header.Predecessors {
		if l.Contains(p) {
			continue
		}
		if out != nil && out != p {
			return nil
		}
		out = p
	}
	return out
}

// Preheader returns the loop predecessor when its only successor is the
// header, or nil
func (l *Loop) Preheader() *ir.BasicBlock {
	pred := l.Predecessor()
	if pred == nil || pred.UniqueSuccessor() != l.Header {
		return nil
	}
	return pred
}

// Latch returns the unique in-loop predecessor of the header, or nil
func (l *Loop) Latch() *ir.BasicBlock {
	var latch *ir.BasicBlock
	for _, p := range l.Header.Predecessors {
		if !l.Contains(p) {
			continue
		}
		if latch != nil {
			return nil
		}
		latch = p
	}
	return latch
}

// ExitingBlock returns the unique loop block with an edge leaving the
// loop, or nil
func (l *Loop) ExitingBlock() *ir.BasicBlock {
	var exiting *ir.BasicBlock
	for _, b := range l.Blocks {
		for _, s := range b.Successors {
			if l.Contains(s) {
				continue
			}
			if exiting != nil && exiting != b {
				return nil
			}
			exiting = b
		}
	}
	return exiting
}

// ExitBlocks returns the distinct blocks outside the loop that loop
// blocks branch to, in discovery order
func (l *Loop) ExitBlocks() []*ir.BasicBlock {
	var exits []*ir.BasicBlock
	seen := make(map[*ir.BasicBlock]bool)
	for _, b := range l.Blocks {
		for _, s := range b.Successors {
			if l.Contains(s) || seen[s] {
				continue
			}
			seen[s] = true
			exits = append(exits, s)
		}
	}
	return exits
}

// UniqueExitBlock returns the only exit block, or nil
func (l *Loop) UniqueExitBlock() *ir.BasicBlock {
	exits := l.ExitBlocks()
	if len(exits) != 1 {
		return nil
	}
	return exits[0]
}

// IsAnnotatedParallel reports whether a back edge of the loop carries the
// parallel annotation
func (l *Loop) IsAnnotatedParallel() bool {
	for _, p := range l.Header.Predecessors {
		if !l.Contains(p) {
			continue
		}
		switch t := p.Terminator.(type) {
		case *ir.JumpTerminator:
			if t.Parallel {
				return true
			}
		case *ir.BranchTerminator:
			if t.Parallel {
				return true
			}
		}
	}
	return false
}

// AddBlockEntry appends b to this loop only; parents are not updated
func (l *Loop) AddBlockEntry(b *ir.BasicBlock) {
	if l.set[b] {
		return
	}
	l.set[b] = true
	l.Blocks = append(l.Blocks, b)
}

// RemoveBlockFromLoop drops b from this loop only
func (l *Loop) RemoveBlockFromLoop(b *ir.BasicBlock) {
	if !l.set[b] {
		return
	}
	delete(l.set, b)
	for i, block := range l.Blocks {
		if block == b {
			l.Blocks = append(l.Blocks[:i], l.Blocks[i+1:]...)
			break
		}
	}
}

func (l *Loop) String() string {
	return l.Header.Label
}

// LoopInfo is the loop nest of a function
type LoopInfo struct {
	fn       *ir.Function
	TopLevel []*Loop
	loopFor  map[*ir.BasicBlock]*Loop
}

// NewLoopInfo finds the natural loops of fn. Loops sharing a header are
// merged. Siblings are ordered by the position of their headers.
func NewLoopInfo(fn *ir.Function, dom *DomTree) *LoopInfo {
	li := &LoopInfo{fn: fn, loopFor: make(map[*ir.BasicBlock]*Loop)}
	order := blockIndex(fn)

	var loops []*Loop
	for _, header := range fn.Blocks {
		var latches []*ir.BasicBlock
		for _, p := range header.Predecessors {
			if dom.Reachable(p) && dom.Dominates(header, p) {
				latches = append(latches, p)
			}
		}
		if len(latches) == 0 {
			continue
		}

		loop := &Loop{Header: header, set: map[*ir.BasicBlock]bool{header: true}}
		work := latches
		for len(work) > 0 {
			b := work[len(work)-1]
			work = work[:len(work)-1]
			if loop.set[b] {
				continue
			}
			loop.set[b] = true
			for _, p := range b.Predecessors {
				if dom.Reachable(p) && !loop.set[p] {
					work = append(work, p)
				}
			}
		}
		for b := range loop.set {
			loop.Blocks = append(loop.Blocks, b)
		}
		sortBlocks(loop.Blocks, order, header)
		loops = append(loops, loop)
	}

	// Smaller loops nest inside larger ones that contain their header
	sort.SliceStable(loops, func(i, j int) bool { return len(loops[i].Blocks) < len(loops[j].Blocks) })
	for i, loop := range loops {
		for _, outer := range loops[i+1:] {
			if outer.Contains(loop.Header) {
				loop.Parent = outer
				outer.SubLoops = append(outer.SubLoops, loop)
				break
			}
		}
		if loop.Parent == nil {
			li.TopLevel = append(li.TopLevel, loop)
		}
		for _, b := range loop.Blocks {
			if _, ok := li.loopFor[b]; !ok {
				li.loopFor[b] = loop
			}
		}
	}

	li.sortLoops(li.TopLevel)
	for _, loop := range loops {
		li.sortLoops(loop.SubLoops)
	}
	return li
}

// LoopFor returns the innermost loop containing b, or nil
func (li *LoopInfo) LoopFor(b *ir.BasicBlock) *Loop {
	return li.loopFor[b]
}

// ChangeLoopFor makes l the innermost loop of b
func (li *LoopInfo) ChangeLoopFor(b *ir.BasicBlock, l *Loop) {
	if l == nil {
		delete(li.loopFor, b)
		return
	}
	li.loopFor[b] = l
}

// RemoveBlock forgets b entirely: it leaves every loop it belonged to
func (li *LoopInfo) RemoveBlock(b *ir.BasicBlock) {
	for l := li.loopFor[b]; l != nil; l = l.Parent {
		l.RemoveBlockFromLoop(b)
	}
	delete(li.loopFor, b)
}

// Reparent moves child under parent, or to the top level when parent is
// nil. Blocks of child are added to parent and its ancestors.
func (li *LoopInfo) Reparent(child, parent *Loop) {
	li.detach(child)
	child.Parent = parent
	if parent == nil {
		li.TopLevel = append(li.TopLevel, child)
		li.sortLoops(li.TopLevel)
		return
	}
	parent.SubLoops = append(parent.SubLoops, child)
	li.sortLoops(parent.SubLoops)
	for p := parent; p != nil; p = p.Parent {
		for _, b := range child.Blocks {
			p.AddBlockEntry(b)
		}
	}
}

// Erase deletes l from the nest. Its sub-loops move to l's parent and
// blocks whose innermost loop was l are attributed to the parent.
func (li *LoopInfo) Erase(l *Loop) {
	for _, b := range l.Blocks {
		if li.loopFor[b] == l {
			li.ChangeLoopFor(b, l.Parent)
		}
	}
	for _, sub := range append([]*Loop(nil), l.SubLoops...) {
		li.Reparent(sub, l.Parent)
	}
	li.detach(l)
	l.Parent = nil
	l.SubLoops = nil
}

// Loops returns every loop in the nest in preorder
func (li *LoopInfo) Loops() []*Loop {
	var all []*Loop
	var walk func(loops []*Loop)
	walk = func(loops []*Loop) {
		for _, l := range loops {
			all = append(all, l)
			walk(l.SubLoops)
		}
	}
	walk(li.TopLevel)
	return all
}

func (li *LoopInfo) detach(l *Loop) {
	if l.Parent == nil {
		li.TopLevel = removeLoop(li.TopLevel, l)
		return
	}
	l.Parent.SubLoops = removeLoop(l.Parent.SubLoops, l)
}

func (li *LoopInfo) sortLoops(loops []*Loop) {
	sort.SliceStable(loops, func(i, j int) bool {
		return li.fn.Index(loops[i].Header) < li.fn.Index(loops[j].Header)
	})
}

func removeLoop(loops []*Loop, l *Loop) []*Loop {
	for i, other := range loops {
		if other == l {
			return append(loops[:i], loops[i+1:]...)
		}
	}
	return loops
}

// sortBlocks puts the header first and the rest in function order
func sortBlocks(blocks []*ir.BasicBlock, order map[*ir.BasicBlock]int, header *ir.BasicBlock) {
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i] == header || blocks[j] == header {
			return blocks[i] == header && blocks[j] != header
		}
		return order[blocks[i]] < order[blocks[j]]
	})
}
