package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const diamond = `
func @diamond(%c: bool, %x: i64) i64 {
entry:
  %a = add %x, 1
  br %c, left, right
left:
  %l = mul %a, 2
  jump join
right:
  %r = mul %a, 3
  jump join
join:
  %m = phi i64 [%l, left], [%r, right]
  ret %m
}
`

func TestReplaceSuccessor(t *testing.T) {
	fn := mustParse(t, diamond).Functions[0]
	left, right, join := fn.Block("left"), fn.Block("right"), fn.Block("join")

	assert.True(t, ReplaceSuccessor(fn.Entry, right, left))
	assert.Equal(t, []string{"left"}, labelsOf(fn.Entry.Successors))
	assert.Empty(t, right.Predecessors)
	assert.Equal(t, []string{"left", "right"}, labelsOf(join.Predecessors))

	assert.False(t, ReplaceSuccessor(fn.Entry, join, left), "no edge to replace")
}

func TestSetUnreachable(t *testing.T) {
	fn := mustParse(t, diamond).Functions[0]
	right, join := fn.Block("right"), fn.Block("join")

	SetUnreachable(right)

	assert.IsType(t, &UnreachableTerminator{}, right.Terminator)
	assert.Empty(t, right.Successors)
	phi := join.Phis()[0]
	require.Len(t, phi.Edges, 1)
	assert.Equal(t, fn.Block("left"), phi.Edges[0].Block)
}

func TestMoveInstructions(t *testing.T) {
	fn := mustParse(t, diamond).Functions[0]
	left, right := fn.Block("left"), fn.Block("right")

	moved := MoveToEnd(right, left, func(Instruction) bool { return false })
	assert.Empty(t, moved)
	assert.Len(t, right.Instructions, 1)

	moved = MoveToEnd(right, left, nil)
	require.Len(t, moved, 1)
	assert.Empty(t, right.Instructions)
	require.Len(t, left.Instructions, 2)
	assert.Equal(t, left, left.Instructions[1].GetBlock())
	assert.Equal(t, left, left.Instructions[1].GetResult().DefBlock)

	moved = MoveToFront(fn.Entry, fn.Block("join"))
	require.Len(t, moved, 1)
	join := fn.Block("join")
	require.Len(t, join.Instructions, 2)
	assert.IsType(t, &PhiInstruction{}, join.Instructions[0], "phis stay first")
	assert.Equal(t, "%a = add %x, 1", join.Instructions[1].String())
	assert.Empty(t, fn.Entry.Instructions)
}

func TestMergeIntoPredecessor(t *testing.T) {
	fn := mustParse(t, `
func @chain(%x: i64) i64 {
entry:
  %a = add %x, 1
  jump mid
mid:
  %p = phi i64 [%a, entry]
  %b = add %p, 2
  jump last
last:
  %q = phi i64 [%b, mid]
  ret %q
}
`).Functions[0]
	mid, last := fn.Block("mid"), fn.Block("last")

	require.True(t, MergeIntoPredecessor(mid))

	assert.Nil(t, fn.Block("mid"))
	assert.Equal(t, []string{"entry", "last"}, labelsOf(fn.Blocks))
	require.Len(t, fn.Entry.Instructions, 2)
	b := fn.Entry.Instructions[1].(*BinaryInstruction)
	assert.Equal(t, "a", b.Left.Name, "phi collapsed to its incoming value")
	assert.Equal(t, fn.Entry, b.Result.DefBlock)
	assert.Equal(t, fn.Entry, last.Phis()[0].Edges[0].Block)
	assert.Equal(t, []string{"entry"}, labelsOf(last.Predecessors))

	assert.False(t, MergeIntoPredecessor(fn.Entry), "entry has no predecessor")
}

func TestMergeRefusesSharedPredecessor(t *testing.T) {
	fn := mustParse(t, diamond).Functions[0]
	assert.False(t, MergeIntoPredecessor(fn.Block("left")))
	assert.False(t, MergeIntoPredecessor(fn.Block("join")))
}

func TestRemoveUnreachableBlocks(t *testing.T) {
	fn := mustParse(t, diamond).Functions[0]
	SetUnreachable(fn.Entry)
	ReplaceSuccessor(fn.Block("left"), fn.Block("join"), fn.Block("right"))

	removed := RemoveUnreachableBlocks(fn)

	assert.Equal(t, []string{"left", "right", "join"}, labelsOf(removed))
	assert.Equal(t, []string{"entry"}, labelsOf(fn.Blocks))
	assert.Empty(t, RemoveUnreachableBlocks(fn))
}

func TestRemoveBlock(t *testing.T) {
	fn := mustParse(t, diamond).Functions[0]
	SetUnreachable(fn.Entry)
	right := fn.Block("right")

	RemoveBlock(right)

	assert.Nil(t, fn.Block("right"))
	phi := fn.Block("join").Phis()[0]
	require.Len(t, phi.Edges, 1)
	assert.Equal(t, "left", phi.Edges[0].Block.Label)
}

func TestSplitBlock(t *testing.T) {
	fn := mustParse(t, diamond).Functions[0]
	left := fn.Block("left")
	join := fn.Block("join")

	nb := SplitBlock(left, 0, "left.tail")

	assert.Equal(t, []string{"entry", "left", "left.tail", "right", "join"}, labelsOf(fn.Blocks))
	assert.Empty(t, left.Instructions)
	assert.Equal(t, nb, left.UniqueSuccessor())
	require.Len(t, nb.Instructions, 1)
	assert.Equal(t, nb, nb.Instructions[0].GetBlock())
	assert.Equal(t, nb, join.Phis()[0].Edges[0].Block)
	assert.Equal(t, []string{"left.tail", "right"}, labelsOf(join.Predecessors))

	again := SplitBlock(nb, 1, "left.tail")
	assert.Equal(t, "left.tail.1", again.Label, "labels stay unique")
}

func TestInsertBlockBefore(t *testing.T) {
	fn := mustParse(t, diamond).Functions[0]

	pre := InsertBlockBefore(fn.Entry, "pre")

	assert.Equal(t, pre, fn.Entry)
	assert.Equal(t, "entry", pre.UniqueSuccessor().Label)
	assert.Equal(t, []string{"pre", "entry", "left", "right", "join"}, labelsOf(fn.Blocks))
}

func TestReplaceAllUsesAndRemove(t *testing.T) {
	fn := mustParse(t, diamond).Functions[0]
	x := fn.Params[1].Value
	seven := ConstInt(I64, 7)

	ReplaceAllUses(fn, x, seven)
	add := fn.Entry.Instructions[0].(*BinaryInstruction)
	assert.Same(t, seven, add.Left)

	RemoveInstruction(add)
	assert.Empty(t, fn.Entry.Instructions)

	ReplaceAllUses(fn, fn.Block("join").Phis()[0].Result, seven)
	assert.Same(t, seven, fn.Block("join").Terminator.(*ReturnTerminator).Value)
}

func TestReachable(t *testing.T) {
	fn := mustParse(t, diamond).Functions[0]
	assert.Len(t, Reachable(fn), 4)

	ReplaceSuccessor(fn.Entry, fn.Block("left"), fn.Block("right"))
	reachable := Reachable(fn)
	assert.False(t, reachable[fn.Block("left")])
	assert.True(t, reachable[fn.Block("join")])
}
