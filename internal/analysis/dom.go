package analysis

import (
	"loopfuse/internal/ir"
)

// graph is a CFG over dense node indices. Dominators and post-dominators
// both run on it; post-dominators use the reversed edges.
type graph struct {
	succs [][]int
	preds [][]int
}

// reversePostOrder returns the nodes reachable from root in reverse
// postorder. Successors are explored in list order.
func (g *graph) reversePostOrder(root int) []int {
	const unseen, seen, done = 0, 1, 2
	state := make([]int, len(g.succs))
	var order []int

	stack := []int{root}
	state[root] = seen
	for len(stack) > 0 {
		tail := len(stack) - 1
		n := stack[tail]
		stack = stack[:tail]
		switch state[n] {
		case seen:
			// Revisit n after its successors are done
			stack = append(stack, n)
			for i := len(g.succs[n]) - 1; i >= 0; i-- {
				succ := g.succs[n][i]
				if state[succ] == unseen {
					state[succ] = seen
					stack = append(stack, succ)
				}
			}
			state[n] = done
		case done:
			order = append(order, n)
		}
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// immediateDominators computes the immediate dominator of every node with
// the Cooper-Harvey-Kennedy iteration. Unreachable nodes get -1; the root
// is its own immediate dominator.
func (g *graph) immediateDominators(root int) []int {
	rpo := g.reversePostOrder(root)
	number := make([]int, len(g.succs))
	for i := range number {
		number[i] = -1
	}
	for i, n := range rpo {
		number[n] = i
	}

	doms := make([]int, len(g.succs))
	for i := range doms {
		doms[i] = -1
	}
	doms[root] = root

	intersect := func(a, b int) int {
		for a != b {
			for number[a] > number[b] {
				a = doms[a]
			}
			for number[b] > number[a] {
				b = doms[b]
			}
		}
		return a
	}

	for changed := true; changed; {
		changed = false
		for _, n := range rpo[1:] {
			u := -1
			for _, p := range g.preds[n] {
				// Skip predecessors not processed yet, or unreachable
				if doms[p] == -1 {
					continue
				}
				if u == -1 {
					u = p
				} else {
					u = intersect(u, p)
				}
			}
			if doms[n] != u {
				doms[n] = u
				changed = true
			}
		}
	}
	return doms
}

// DomTree is the dominator tree of a function
type DomTree struct {
	fn     *ir.Function
	index  map[*ir.BasicBlock]int
	blocks []*ir.BasicBlock
	idom   []int
}

// NewDomTree computes the dominator tree of fn rooted at its entry block
func NewDomTree(fn *ir.Function) *DomTree {
	index := blockIndex(fn)
	g := &graph{succs: make([][]int, len(fn.Blocks)), preds: make([][]int, len(fn.Blocks))}
	for i, b := range fn.Blocks {
		for _, s := range b.Successors {
			if j, ok := index[s]; ok {
				g.succs[i] = append(g.succs[i], j)
				g.preds[j] = append(g.preds[j], i)
			}
		}
	}

	d := &DomTree{fn: fn, index: index, blocks: fn.Blocks}
	if fn.Entry == nil {
		d.idom = make([]int, len(fn.Blocks))
		for i := range d.idom {
			d.idom[i] = -1
		}
		return d
	}
	d.idom = g.immediateDominators(index[fn.Entry])
	return d
}

// Reachable reports whether b is reachable from the entry block
func (d *DomTree) Reachable(b *ir.BasicBlock) bool {
	i, ok := d.index[b]
	return ok && d.idom[i] != -1
}

// IDom returns the immediate dominator of b, or nil for the entry block
// and for unreachable blocks
func (d *DomTree) IDom(b *ir.BasicBlock) *ir.BasicBlock {
	i, ok := d.index[b]
	if !ok || d.idom[i] == -1 || d.idom[i] == i {
		return nil
	}
	return d.blocks[d.idom[i]]
}

// Dominates reports whether a dominates b. Every reachable block
// dominates itself.
func (d *DomTree) Dominates(a, b *ir.BasicBlock) bool {
	ai, aok := d.index[a]
	bi, bok := d.index[b]
	if !aok || !bok || d.idom[ai] == -1 || d.idom[bi] == -1 {
		return false
	}
	return dominates(d.idom, ai, bi)
}

// PostDomTree is the post-dominator tree of a function. A virtual exit
// node succeeds every block without successors.
type PostDomTree struct {
	fn     *ir.Function
	index  map[*ir.BasicBlock]int
	blocks []*ir.BasicBlock
	ipdom  []int
	exit   int
}

// NewPostDomTree computes the post-dominator tree of fn
func NewPostDomTree(fn *ir.Function) *PostDomTree {
	index := blockIndex(fn)
	n := len(fn.Blocks)
	exit := n

	// Reversed CFG: edges run from a block to its predecessors
	g := &graph{succs: make([][]int, n+1), preds: make([][]int, n+1)}
	for i, b := range fn.Blocks {
		if len(b.Successors) == 0 {
			g.succs[exit] = append(g.succs[exit], i)
			g.preds[i] = append(g.preds[i], exit)
		}
		for _, s := range b.Successors {
			if j, ok := index[s]; ok {
				g.succs[j] = append(g.succs[j], i)
				g.preds[i] = append(g.preds[i], j)
			}
		}
	}

	return &PostDomTree{
		fn:     fn,
		index:  index,
		blocks: fn.Blocks,
		ipdom:  g.immediateDominators(exit),
		exit:   exit,
	}
}

// IPostDom returns the immediate post-dominator of b, or nil when it is
// the virtual exit or b cannot reach an exit
func (p *PostDomTree) IPostDom(b *ir.BasicBlock) *ir.BasicBlock {
	i, ok := p.index[b]
	if !ok || p.ipdom[i] == -1 || p.ipdom[i] == p.exit {
		return nil
	}
	return p.blocks[p.ipdom[i]]
}

// PostDominates reports whether every path from b to the function exit
// passes through a
func (p *PostDomTree) PostDominates(a, b *ir.BasicBlock) bool {
	ai, aok := p.index[a]
	bi, bok := p.index[b]
	if !aok || !bok || p.ipdom[ai] == -1 || p.ipdom[bi] == -1 {
		return false
	}
	return dominates(p.ipdom, ai, bi)
}

// dominates walks the tree up from b looking for a
func dominates(idom []int, a, b int) bool {
	for {
		if b == a {
			return true
		}
		next := idom[b]
		if next == b || next == -1 {
			return false
		}
		b = next
	}
}

func blockIndex(fn *ir.Function) map[*ir.BasicBlock]int {
	index := make(map[*ir.BasicBlock]int, len(fn.Blocks))
	for i, b := range fn.Blocks {
		index[b] = i
	}
	return index
}
