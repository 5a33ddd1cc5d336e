package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const countdown = `
; counts %n down to zero
func @countdown(%n: i64) i64 {
entry:
  %c = alloca i64
  store %n, %c
  jump head
head:
  %v = load i64, %c
  %done = cmp le %v, 0
  br %done, exit, body
body:
  %next = sub %v, 1
  store %next, %c
  jump head
exit:
  ret %v
}
`

func mustParse(t *testing.T, src string) *Program {
	t.Helper()
	program, err := ParseProgram("test.lir", src)
	require.NoError(t, err)
	return program
}

func TestBuildFunction(t *testing.T) {
	program := mustParse(t, countdown)

	require.Len(t, program.Functions, 1)
	fn := program.Function("countdown")
	require.NotNil(t, fn)
	assert.Equal(t, "test.lir", program.Name)
	assert.Equal(t, I64, fn.ReturnType)
	require.Len(t, fn.Params, 1)
	assert.Equal(t, "n", fn.Params[0].Name)
	assert.True(t, fn.Params[0].Value.IsParam())

	assert.Equal(t, fn.Block("entry"), fn.Entry)
	assert.Equal(t, []string{"entry", "head", "body", "exit"}, labelsOf(fn.Blocks))
	assert.Equal(t, 4, fn.Block("head").Pos.Line-fn.Block("entry").Pos.Line)
	assert.Equal(t, "test.lir", fn.Block("head").Pos.Filename)
}

func TestBuildCFG(t *testing.T) {
	fn := mustParse(t, countdown).Functions[0]
	head := fn.Block("head")

	assert.Equal(t, []string{"entry", "body"}, labelsOf(head.Predecessors))
	assert.Equal(t, []string{"exit", "body"}, labelsOf(head.Successors))
	assert.Equal(t, head, fn.Block("body").UniqueSuccessor())
	assert.Nil(t, head.UniqueSuccessor())
	assert.Equal(t, head, fn.Block("exit").UniquePredecessor())
}

func TestBuildValues(t *testing.T) {
	fn := mustParse(t, countdown).Functions[0]
	head := fn.Block("head")

	load, ok := head.Instructions[0].(*LoadInstruction)
	require.True(t, ok)
	assert.Equal(t, I64, load.Result.Type)
	assert.Equal(t, head, load.Result.DefBlock)
	assert.Equal(t, Instruction(load), load.Result.DefInst)
	assert.Equal(t, head, load.GetBlock())

	alloca := fn.Entry.Instructions[0].(*AllocaInstruction)
	assert.Same(t, alloca.Result, load.Address, "operands refer to the defining value")

	cmp := head.Instructions[1].(*CompareInstruction)
	assert.Equal(t, Bool, cmp.Result.Type)
	assert.Equal(t, PredLE, cmp.Predicate)

	// Forward reference: the branch names blocks defined later
	br := head.Terminator.(*BranchTerminator)
	assert.Same(t, cmp.Result, br.Condition)
	assert.Equal(t, fn.Block("exit"), br.TrueBlock)
}

func TestBuildLiterals(t *testing.T) {
	program := mustParse(t, `
func @lits(%p: ptr) {
entry:
  %a = add 0x10, 1
  %b = add i32 7, i32 -2
  %c = add f32 3, 1.5
  %d = cmp eq true, false
  %e = add 0xFFFFFFFFFFFFFFFF, 0
  store volatile %a, %p
  ret
}
`)
	insts := program.Functions[0].Entry.Instructions

	a := insts[0].(*BinaryInstruction)
	assert.Equal(t, int64(16), a.Left.Const.Int())
	assert.Equal(t, I64, a.Result.Type)

	b := insts[1].(*BinaryInstruction)
	assert.Equal(t, "i32", b.Result.Type.String())
	assert.Equal(t, int64(-2), b.Right.Const.Int())

	c := insts[2].(*BinaryInstruction)
	assert.True(t, c.Left.Const.IsFloat(), "typed float with an integer literal")
	assert.Equal(t, 3.0, c.Left.Const.Float())
	assert.Equal(t, "f32", c.Result.Type.String())

	d := insts[3].(*CompareInstruction)
	assert.Equal(t, uint64(1), d.Left.Const.Bits)
	assert.Equal(t, uint64(0), d.Right.Const.Bits)

	e := insts[4].(*BinaryInstruction)
	assert.Equal(t, int64(-1), e.Left.Const.Int())

	st := insts[5].(*StoreInstruction)
	assert.True(t, st.Volatile)
	assert.Nil(t, program.Functions[0].Entry.Terminator.(*ReturnTerminator).Value)
}

func TestBuildCallsAndPhis(t *testing.T) {
	program := mustParse(t, `
func @calls(%x: i64) i64 {
entry:
  call @log(%x)
  %r = call i32 @get() nounwind
  %q = call @any()
  br %x, left, join
left:
  jump join !parallel
join:
  %m = phi i64 [%x, entry], [1, left]
  ret %m
}
`)
	fn := program.Functions[0]
	insts := fn.Entry.Instructions

	log := insts[0].(*CallInstruction)
	assert.Nil(t, log.Result)
	assert.Equal(t, "log", log.Function)
	assert.False(t, log.NoUnwind)

	get := insts[1].(*CallInstruction)
	assert.Equal(t, "i32", get.Result.Type.String())
	assert.True(t, get.NoUnwind)

	assert.Equal(t, I64, insts[2].(*CallInstruction).Result.Type)

	assert.True(t, fn.Block("left").Terminator.(*JumpTerminator).Parallel)

	join := fn.Block("join")
	require.Len(t, join.Phis(), 1)
	phi := join.Phis()[0]
	assert.Same(t, fn.Params[0].Value, phi.Incoming(fn.Entry))
	assert.Equal(t, int64(1), phi.Incoming(fn.Block("left")).Const.Int())
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "undefined value",
			src:  "func @f() {\nentry:\n  %a = add %nope, 1\n  ret\n}",
			want: "undefined value %nope",
		},
		{
			name: "undefined block",
			src:  "func @f() {\nentry:\n  jump nowhere\n}",
			want: "undefined block nowhere",
		},
		{
			name: "redefined value",
			src:  "func @f() {\nentry:\n  %a = add 1, 1\n  %a = add 2, 2\n  ret\n}",
			want: "value %a redefined",
		},
		{
			name: "redefined block",
			src:  "func @f() {\nentry:\n  jump entry\nentry:\n  ret\n}",
			want: "block entry redefined",
		},
		{
			name: "redefined function",
			src:  "func @f() {\nentry:\n  ret\n}\nfunc @f() {\nentry:\n  ret\n}",
			want: "function @f redefined",
		},
		{
			name: "redefined parameter",
			src:  "func @f(%a: i64, %a: i64) {\nentry:\n  ret\n}",
			want: "parameter %a redefined",
		},
		{
			name: "undefined phi block",
			src:  "func @f() {\nentry:\n  %p = phi i64 [1, other]\n  ret\n}",
			want: "undefined block other",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProgram("bad.lir", tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "bad.lir:")
		})
	}
}

func TestParseError(t *testing.T) {
	_, err := ParseProgram("bad.lir", "func @f( {")
	assert.Error(t, err)
}

func labelsOf(blocks []*BasicBlock) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.Label
	}
	return out
}
