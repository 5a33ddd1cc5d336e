package ir

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const printed = `func @sum(%n: i64, %p: ptr) i64 {
entry:
  %acc = alloca i64
  %i = alloca i64
  store 0, %acc
  store 0, %i
  jump head
head:
  %iv = load i64, %i
  %c = cmp lt %iv, %n
  br %c, body, exit !parallel
body:
  %e = addr checked %p, %iv
  %ev = load volatile i32, %e
  %w = convert %ev to i64
  %a = load i64, %acc
  %a1 = add %a, %w
  store volatile %a1, %acc
  %f = call f32 @scale(1.5, f32 2.5, i8 3) nounwind
  call @tick()
  %i1 = add %iv, 1
  store %i1, %i
  jump head
exit:
  %m = phi i64 [%iv, head]
  %r = load i64, %acc
  %s = add %r, %m
  ret %s
}

func @noop() {
entry:
  unreachable
}
`

func TestPrintRoundTrip(t *testing.T) {
	program := mustParse(t, printed)

	if diff := cmp.Diff(printed, Print(program)); diff != "" {
		t.Errorf("printed program mismatch (-want +got):\n%s", diff)
	}

	// Printing is stable across a second parse
	again := mustParse(t, Print(program))
	assert.Equal(t, Print(program), PrintProgram(again))
}

func TestPrintFunction(t *testing.T) {
	program := mustParse(t, printed)

	out := PrintFunction(program.Function("noop"))
	assert.Equal(t, "func @noop() {\nentry:\n  unreachable\n}\n", out)
	assert.Equal(t, out, program.Function("noop").String())
}

func TestPrintPredecessors(t *testing.T) {
	program := mustParse(t, printed)

	p := NewPrinter()
	p.ShowPreds = true
	out := p.Format(program)

	assert.Contains(t, out, "head:  ; preds = entry, body\n")
	assert.Contains(t, out, "\nentry:\n")
	assert.Equal(t, out, p.Format(program), "output is reset between calls")
}

func TestFormatInstruction(t *testing.T) {
	fn := NewFunction("f", nil)
	b := fn.NewBlock("entry")
	x := b.Alloca("x", I64)
	v := b.Load("v", I64, x)
	st := b.Store(x, ConstInt(&IntType{Bits: 8}, -1))
	b.Call("", nil, "g", false, v, ConstBool(true), ConstFloat(F64, 2))

	insts := b.Instructions
	require.Len(t, insts, 4)
	assert.Equal(t, "%x = alloca i64", insts[0].String())
	assert.Equal(t, "%v = load i64, %x", FormatInstruction(insts[1]))
	assert.Equal(t, "store i8 -1, %x", st.String())
	assert.Equal(t, "call @g(%v, true, 2.0)", insts[3].String())
	assert.Equal(t, "%x", x.String())
	assert.Equal(t, "<nil>", valueString(nil))
}

func TestPrintedSourceParses(t *testing.T) {
	program := mustParse(t, printed)
	sum := program.Function("sum")

	// Edits show up in the printed form
	ReplaceSuccessor(sum.Block("body"), sum.Block("head"), sum.Block("exit"))
	out := PrintFunction(sum)
	assert.True(t, strings.Contains(out, "body:\n"))
	assert.Contains(t, out, "  store %i1, %i\n  jump exit\n")

	_, err := ParseProgram("again.lir", out)
	assert.NoError(t, err)
}
