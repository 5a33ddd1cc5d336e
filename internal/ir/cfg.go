package ir

// Structural CFG edits. Every primitive leaves Predecessors and Successors
// consistent with the terminators of the function.

// SetTerminator replaces the terminator of the block
func (b *BasicBlock) SetTerminator(t Terminator) {
	if t != nil {
		t.setBlock(b)
		if t.GetID() == 0 && b.Parent != nil {
			setID(t, b.Parent.newID())
		}
	}
	b.Terminator = t
	if b.Parent != nil {
		b.Parent.RebuildCFG()
	}
}

func setID(t Terminator, id int) {
	switch term := t.(type) {
	case *JumpTerminator:
		term.ID = id
	case *BranchTerminator:
		term.ID = id
	case *ReturnTerminator:
		term.ID = id
	case *UnreachableTerminator:
		term.ID = id
	}
}

// RebuildCFG recomputes predecessor and successor lists from terminators.
// Predecessors are listed in block order.
func (f *Function) RebuildCFG() {
	for _, b := range f.Blocks {
		b.Predecessors = nil
		b.Successors = nil
	}
	for _, b := range f.Blocks {
		if b.Terminator == nil {
			continue
		}
		for _, succ := range b.Terminator.GetSuccessors() {
			if succ == nil || containsBlock(b.Successors, succ) {
				continue
			}
			b.Successors = append(b.Successors, succ)
			succ.Predecessors = append(succ.Predecessors, b)
		}
	}
}

func containsBlock(blocks []*BasicBlock, b *BasicBlock) bool {
	for _, block := range blocks {
		if block == b {
			return true
		}
	}
	return false
}

// UniqueSuccessor returns the only successor of the block, or nil
func (b *BasicBlock) UniqueSuccessor() *BasicBlock {
	if len(b.Successors) == 1 {
		return b.Successors[0]
	}
	return nil
}

// UniquePredecessor returns the only predecessor of the block, or nil
func (b *BasicBlock) UniquePredecessor() *BasicBlock {
	if len(b.Predecessors) == 1 {
		return b.Predecessors[0]
	}
	return nil
}

// ReplaceSuccessor retargets every edge from b to old so that it points to
// new. Phi edges of new are not touched.
func ReplaceSuccessor(b, old, new *BasicBlock) bool {
	if b.Terminator == nil || !b.Terminator.replaceSuccessor(old, new) {
		return false
	}
	b.Parent.RebuildCFG()
	return true
}

// SetUnreachable replaces the terminator of b with unreachable and drops
// b's incoming phi edges in its former successors.
func SetUnreachable(b *BasicBlock) {
	for _, succ := range b.Successors {
		removePhiEdges(succ, b)
	}
	b.SetTerminator(&UnreachableTerminator{})
}

// MoveToEnd moves the non-terminator instructions of from accepted by
// filter to the end of to, preserving their order. A nil filter moves
// everything. It returns the moved instructions.
func MoveToEnd(from, to *BasicBlock, filter func(Instruction) bool) []Instruction {
	var moved, kept []Instruction
	for _, inst := range from.Instructions {
		if filter == nil || filter(inst) {
			moved = append(moved, inst)
		} else {
			kept = append(kept, inst)
		}
	}
	from.Instructions = kept
	for _, inst := range moved {
		to.Append(inst)
	}
	return moved
}

// MoveToFront moves every non-phi instruction of from to the front of to,
// after to's phis.
func MoveToFront(from, to *BasicBlock) []Instruction {
	nphi := len(from.Phis())
	moved := append([]Instruction(nil), from.Instructions[nphi:]...)
	from.Instructions = from.Instructions[:nphi]
	for _, inst := range moved {
		to.adopt(inst)
	}
	n := len(to.Phis())
	rest := append([]Instruction(nil), to.Instructions[n:]...)
	to.Instructions = append(append(to.Instructions[:n], moved...), rest...)
	return moved
}

// MergeIntoPredecessor folds b into its unique predecessor when that
// predecessor has b as its unique successor. Phis of b collapse to their
// single incoming value; phi edges naming b in b's successors are renamed.
func MergeIntoPredecessor(b *BasicBlock) bool {
	pred := b.UniquePredecessor()
	if pred == nil || pred == b || pred.UniqueSuccessor() != b {
		return false
	}
	fn := b.Parent
	for _, phi := range b.Phis() {
		ReplaceAllUses(fn, phi.Result, phi.Incoming(pred))
	}
	body := b.Instructions[len(b.Phis()):]
	for _, inst := range body {
		pred.adopt(inst)
	}
	pred.Instructions = append(pred.Instructions, body...)
	b.Instructions = nil

	for _, succ := range b.Successors {
		renamePhiEdges(succ, b, pred)
	}
	term := b.Terminator
	b.Terminator = nil
	term.setBlock(pred)
	pred.Terminator = term
	if b.Pos.IsValid() && !pred.Pos.IsValid() {
		pred.Pos = b.Pos
	}
	fn.removeFromList(b)
	fn.RebuildCFG()
	return true
}

// RemoveBlock deletes b from the function and drops the phi edges its
// successors hold for it.
func RemoveBlock(b *BasicBlock) {
	for _, succ := range b.Successors {
		removePhiEdges(succ, b)
	}
	fn := b.Parent
	fn.removeFromList(b)
	fn.RebuildCFG()
}

// RemoveUnreachableBlocks deletes every block not reachable from the entry
// and returns the removed blocks in their former order.
func RemoveUnreachableBlocks(f *Function) []*BasicBlock {
	if f.Entry == nil {
		return nil
	}
	reachable := Reachable(f)
	var removed []*BasicBlock
	for _, b := range f.Blocks {
		if !reachable[b] {
			removed = append(removed, b)
		}
	}
	for _, b := range removed {
		for _, succ := range b.Successors {
			if reachable[succ] {
				removePhiEdges(succ, b)
			}
		}
		f.removeFromList(b)
	}
	if len(removed) > 0 {
		f.RebuildCFG()
	}
	return removed
}

// Reachable returns the set of blocks reachable from the entry
func Reachable(f *Function) map[*BasicBlock]bool {
	reachable := make(map[*BasicBlock]bool)
	if f.Entry == nil {
		return reachable
	}
	stack := []*BasicBlock{f.Entry}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[b] {
			continue
		}
		reachable[b] = true
		stack = append(stack, b.Successors...)
	}
	return reachable
}

// SplitBlock moves the instructions of b from index at onwards, together
// with its terminator, into a new block placed right after b. b then jumps
// to the new block.
func SplitBlock(b *BasicBlock, at int, label string) *BasicBlock {
	fn := b.Parent
	nb := &BasicBlock{Label: fn.uniqueLabel(label), Parent: fn, Pos: b.Pos}
	fn.insertAfter(b, nb)

	tail := append([]Instruction(nil), b.Instructions[at:]...)
	b.Instructions = b.Instructions[:at]
	for _, inst := range tail {
		nb.adopt(inst)
	}
	nb.Instructions = tail

	for _, succ := range b.Successors {
		renamePhiEdges(succ, b, nb)
	}
	term := b.Terminator
	term.setBlock(nb)
	nb.Terminator = term
	b.Terminator = nil
	b.Jump(nb)
	return nb
}

// InsertBlockBefore creates an empty block placed before target in block
// order that jumps to target.
func InsertBlockBefore(target *BasicBlock, label string) *BasicBlock {
	fn := target.Parent
	nb := &BasicBlock{Label: fn.uniqueLabel(label), Parent: fn, Pos: target.Pos}
	i := fn.Index(target)
	fn.Blocks = append(fn.Blocks[:i], append([]*BasicBlock{nb}, fn.Blocks[i:]...)...)
	if fn.Entry == target {
		fn.Entry = nb
	}
	nb.Jump(target)
	return nb
}

// ReplaceAllUses rewrites every operand equal to old into new
func ReplaceAllUses(f *Function, old, new *Value) {
	for _, b := range f.Blocks {
		for _, inst := range b.Instructions {
			inst.replaceOperand(old, new)
		}
		if b.Terminator != nil {
			b.Terminator.replaceOperand(old, new)
		}
	}
}

// RemoveInstruction deletes inst from its block
func RemoveInstruction(inst Instruction) {
	b := inst.GetBlock()
	for i, in := range b.Instructions {
		if in == inst {
			b.Instructions = append(b.Instructions[:i], b.Instructions[i+1:]...)
			return
		}
	}
}

// RenamePhiEdges rewrites phi edges of b coming from old to come from new
func RenamePhiEdges(b, old, new *BasicBlock) {
	renamePhiEdges(b, old, new)
}

func renamePhiEdges(b, old, new *BasicBlock) {
	for _, phi := range b.Phis() {
		for i := range phi.Edges {
			if phi.Edges[i].Block == old {
				phi.Edges[i].Block = new
			}
		}
	}
}

func removePhiEdges(b, pred *BasicBlock) {
	for _, phi := range b.Phis() {
		edges := phi.Edges[:0]
		for _, e := range phi.Edges {
			if e.Block != pred {
				edges = append(edges, e)
			}
		}
		phi.Edges = edges
	}
}

func (f *Function) removeFromList(b *BasicBlock) {
	if i := f.Index(b); i >= 0 {
		f.Blocks = append(f.Blocks[:i], f.Blocks[i+1:]...)
	}
	if f.Entry == b {
		f.Entry = nil
		if len(f.Blocks) > 0 {
			f.Entry = f.Blocks[0]
		}
	}
	b.Predecessors = nil
	b.Successors = nil
}

func (f *Function) insertAfter(after, nb *BasicBlock) {
	i := f.Index(after) + 1
	f.Blocks = append(f.Blocks[:i], append([]*BasicBlock{nb}, f.Blocks[i:]...)...)
}
