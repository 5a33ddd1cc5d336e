package grammar_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopfuse/grammar"
)

const source = `; two adjacent loops
func @doit(%n: i64) i64 {
entry:
  %i = alloca i64
  store 1, %i
  jump loop
loop:
  %iv = load i64, %i
  %c = cmp lt %iv, 0xFFFF
  br %c, body, exit
body:
  %next = mul %iv, 2
  store volatile %next, %i
  call @tick() nounwind
  jump loop !parallel
exit:
  %p = phi i64 [%iv, loop]
  %f = add f32 1.5, f32 2
  ret %p
}
`

func TestParseModule(t *testing.T) {
	module, err := grammar.ParseString("doit.lir", source)
	require.NoError(t, err)

	require.Len(t, module.Functions, 1)
	fn := module.Functions[0]
	assert.Equal(t, "@doit", fn.Name)
	assert.Equal(t, 2, fn.Pos.Line)
	require.Len(t, fn.Params, 1)
	assert.Equal(t, "%n", fn.Params[0].Name)
	assert.Equal(t, "i64", fn.Return.Name)

	require.Len(t, fn.Blocks, 4)
	loop := fn.Blocks[1]
	assert.Equal(t, "loop", loop.Label)
	assert.Equal(t, 7, loop.Pos.Line)
	assert.Equal(t, "doit.lir", loop.Pos.Filename)

	cmp := loop.Instructions[1].Assign.Compare
	require.NotNil(t, cmp)
	assert.Equal(t, "lt", cmp.Predicate)
	assert.Equal(t, "0xFFFF", *cmp.Right.Literal.Int)

	br := loop.Terminator.Branch
	require.NotNil(t, br)
	assert.Equal(t, "body", br.True)
	assert.False(t, br.Parallel)

	body := fn.Blocks[2]
	assert.True(t, body.Instructions[1].Store.Volatile)
	assert.True(t, body.Instructions[2].Call.NoUnwind)
	assert.True(t, body.Terminator.Jump.Parallel)

	exit := fn.Blocks[3]
	require.NotNil(t, exit.Instructions[0].Assign.Phi)
	assert.Equal(t, "loop", exit.Instructions[0].Assign.Phi.Edges[0].Block)
	assert.Equal(t, "f32", exit.Instructions[1].Assign.Binary.Left.Literal.Type.Name)
	require.NotNil(t, exit.Terminator.Return)
	assert.Equal(t, "%p", exit.Terminator.Return.Value.Local)
}

func TestParseBareTerminators(t *testing.T) {
	module, err := grammar.ParseString("t.lir", "func @f() {\na:\n  ret\nb:\n  unreachable\n}")
	require.NoError(t, err)

	blocks := module.Functions[0].Blocks
	require.NotNil(t, blocks[0].Terminator.Return)
	assert.Nil(t, blocks[0].Terminator.Return.Value)
	assert.True(t, blocks[1].Terminator.Unreachable)
}

func TestFormat(t *testing.T) {
	formatted, err := grammar.Format("doit.lir", source)
	require.NoError(t, err)

	// The leading comment is gone; everything else is already canonical
	assert.Equal(t, source[len("; two adjacent loops\n"):], formatted)
	assert.True(t, grammar.HasComments(source))
	assert.False(t, grammar.HasComments(formatted))
}

func TestFormatNormalisesLayout(t *testing.T) {
	messy := "func @g(%a:i64,%b:ptr){\nentry: store   %a,%b\n %x=addr checked %b,1,2\n   ret}\nfunc @h() { e: unreachable }"

	formatted, err := grammar.Format("messy.lir", messy)
	require.NoError(t, err)

	want := `func @g(%a: i64, %b: ptr) {
entry:
  store %a, %b
  %x = addr checked %b, 1, 2
  ret
}

func @h() {
e:
  unreachable
}
`
	assert.Equal(t, want, formatted)
}

func TestParseErrorReport(t *testing.T) {
	src := "func @f() {\nentry:\n  jump\n}"
	_, err := grammar.ParseString("bad.lir", src)
	require.Error(t, err)

	var out bytes.Buffer
	grammar.ReportParseError(&out, src, err)

	assert.Contains(t, out.String(), "Syntax error in bad.lir at line")
	assert.Contains(t, out.String(), "^")
}

func TestParseFileMissing(t *testing.T) {
	_, err := grammar.ParseFile("does/not/exist.lir")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}
