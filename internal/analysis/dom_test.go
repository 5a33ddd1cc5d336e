package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopfuse/internal/ir"
)

func mustFunction(t *testing.T, src string) *ir.Function {
	t.Helper()
	program, err := ir.ParseProgram("test.lir", src)
	require.NoError(t, err)
	require.NotEmpty(t, program.Functions)
	return program.Functions[0]
}

const diamondSource = `
func @diamond(%n: i64) {
entry:
  %c = cmp lt %n, 10
  br %c, left, right
left:
  jump join
right:
  jump join
join:
  ret
dead:
  jump join
}
`

func TestDomTreeDiamond(t *testing.T) {
	fn := mustFunction(t, diamondSource)
	dom := NewDomTree(fn)

	entry, left, right, join, dead := fn.Block("entry"), fn.Block("left"), fn.Block("right"), fn.Block("join"), fn.Block("dead")

	assert.Nil(t, dom.IDom(entry))
	assert.Equal(t, entry, dom.IDom(left))
	assert.Equal(t, entry, dom.IDom(right))
	assert.Equal(t, entry, dom.IDom(join), "join is reached from both arms")

	assert.True(t, dom.Dominates(entry, join))
	assert.True(t, dom.Dominates(join, join))
	assert.False(t, dom.Dominates(left, join))
	assert.False(t, dom.Dominates(join, entry))

	assert.False(t, dom.Reachable(dead))
	assert.Nil(t, dom.IDom(dead))
	assert.False(t, dom.Dominates(entry, dead))
}

func TestPostDomTreeDiamond(t *testing.T) {
	fn := mustFunction(t, diamondSource)
	pdom := NewPostDomTree(fn)

	entry, left, right, join := fn.Block("entry"), fn.Block("left"), fn.Block("right"), fn.Block("join")

	assert.True(t, pdom.PostDominates(join, entry))
	assert.True(t, pdom.PostDominates(join, left))
	assert.False(t, pdom.PostDominates(left, entry))
	assert.False(t, pdom.PostDominates(entry, join))

	assert.Equal(t, join, pdom.IPostDom(entry))
	assert.Equal(t, join, pdom.IPostDom(right))
	assert.Nil(t, pdom.IPostDom(join), "exit blocks are post-dominated by the virtual exit only")
}

func TestPostDomTreeInfiniteLoop(t *testing.T) {
	fn := mustFunction(t, `
func @spin() {
entry:
  jump spin
spin:
  jump spin
}
`)
	pdom := NewPostDomTree(fn)

	assert.False(t, pdom.PostDominates(fn.Block("spin"), fn.Block("entry")),
		"blocks that never reach an exit have no post-dominators")
}

func TestCacheRecompute(t *testing.T) {
	fn := mustFunction(t, diamondSource)
	cache := NewCache(fn)

	first := cache.Dominators()
	assert.Same(t, first, cache.Dominators(), "trees are cached until invalidated")

	// Route the left arm around join
	left, join := fn.Block("left"), fn.Block("join")
	ret := fn.NewBlock("early")
	ret.Return(nil)
	require.True(t, ir.ReplaceSuccessor(left, join, ret))

	cache.Recompute()
	assert.Equal(t, 1, cache.Recomputations)
	assert.NotSame(t, first, cache.Dominators())
	assert.Equal(t, left, cache.Dominators().IDom(ret))
	assert.False(t, cache.PostDominators().PostDominates(join, fn.Block("entry")))

	cache.Invalidate()
	assert.NotNil(t, cache.PostDominators())
}
