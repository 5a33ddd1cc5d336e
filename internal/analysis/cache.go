package analysis

import (
	"loopfuse/internal/ir"
)

// Cache holds the dominator and post-dominator trees of one function.
// Trees are built on first use and must be invalidated after any edit
// to the CFG.
type Cache struct {
	fn   *ir.Function
	dom  *DomTree
	pdom *PostDomTree

	// Recomputations counts Recompute calls
	Recomputations int
}

func NewCache(fn *ir.Function) *Cache {
	return &Cache{fn: fn}
}

// Function returns the function the cache describes
func (c *Cache) Function() *ir.Function {
	return c.fn
}

// Dominators returns the dominator tree, computing it if needed
func (c *Cache) Dominators() *DomTree {
	if c.dom == nil {
		c.dom = NewDomTree(c.fn)
	}
	return c.dom
}

// PostDominators returns the post-dominator tree, computing it if needed
func (c *Cache) PostDominators() *PostDomTree {
	if c.pdom == nil {
		c.pdom = NewPostDomTree(c.fn)
	}
	return c.pdom
}

// Invalidate drops both trees
func (c *Cache) Invalidate() {
	c.dom = nil
	c.pdom = nil
}

// Recompute rebuilds both trees from the current CFG
func (c *Cache) Recompute() {
	c.Recomputations++
	c.dom = NewDomTree(c.fn)
	c.pdom = NewPostDomTree(c.fn)
}

// LoopInfo builds the loop nest from the current dominator tree
func (c *Cache) LoopInfo() *LoopInfo {
	return NewLoopInfo(c.fn, c.Dominators())
}
