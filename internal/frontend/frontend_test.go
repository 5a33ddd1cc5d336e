package frontend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopfuse/internal/analysis"
	"loopfuse/internal/errors"
	"loopfuse/internal/fusion"
	"loopfuse/internal/ir"
)

const twoLoops = `package loops

func doit() int {
	x, y := 1, 1
	for i := 1; i < 0xFFFF; i *= 2 {
		x += i % 5
	}
	for j := 1; j < 0xFFFF; j *= 2 {
		y += j % 7
	}
	return x + y
}
`

func load(t *testing.T, src string) *ir.Program {
	t.Helper()
	program, err := LoadSource("loops.go", src)
	require.NoError(t, err)
	return program
}

func loopCount(fn *ir.Function) int {
	return len(analysis.NewCache(fn).LoopInfo().Loops())
}

func blocksWithPrefix(fn *ir.Function, prefix string) []*ir.BasicBlock {
	var out []*ir.BasicBlock
	for _, b := range fn.Blocks {
		if strings.HasPrefix(b.Label, prefix) {
			out = append(out, b)
		}
	}
	return out
}

func TestLowerCountedLoops(t *testing.T) {
	program := load(t, twoLoops)
	fn := program.Function("doit")
	require.NotNil(t, fn)

	assert.Equal(t, "loops.go", program.Name)
	assert.Equal(t, "entry", fn.Entry.Label)
	assert.Equal(t, ir.I64, fn.ReturnType)
	assert.Equal(t, 3, fn.Pos.Line)
	assert.Equal(t, 2, loopCount(fn))

	posts := blocksWithPrefix(fn, "for.post.")
	require.Len(t, posts, 2)
	for _, post := range posts {
		require.Len(t, post.Instructions, 3, "post statement %s", post.Label)
		assert.IsType(t, &ir.LoadInstruction{}, post.Instructions[0])
		mul, ok := post.Instructions[1].(*ir.BinaryInstruction)
		require.True(t, ok)
		assert.Equal(t, ir.OpMul, mul.Op)
		assert.IsType(t, &ir.StoreInstruction{}, post.Instructions[2])
	}
	assert.Equal(t, 5, posts[0].Pos.Line)
	assert.Equal(t, 8, posts[1].Pos.Line)

	for _, body := range blocksWithPrefix(fn, "for.body.") {
		assert.Same(t, body.UniqueSuccessor(), blocksWithPrefix(fn, "for.post."+strings.TrimPrefix(body.Label, "for.body."))[0])
	}

	// The textual form parses back
	_, err := ir.ParseProgram("again.lir", ir.Print(program))
	assert.NoError(t, err)
}

func TestFuseLoweredLoops(t *testing.T) {
	program := load(t, twoLoops)

	diags := fusion.Optimize(program, nil)

	require.Len(t, diags, 1)
	d := diags[0]
	assert.Equal(t, errors.NoteFused, d.Code)
	assert.Equal(t, "doit", d.Func)
	assert.Equal(t, 8, d.Pos.Line)
	assert.Equal(t, "loops.go", d.Pos.Filename)
	assert.Equal(t, 5, d.Related.Line)
	assert.Equal(t, 1, loopCount(program.Function("doit")))
}

func TestLoweredLoopsNotFused(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
		line int
	}{
		{
			name: "different stops",
			src:  strings.Replace(twoLoops, "j < 0xFFFF", "j < 0xFF", 1),
			code: errors.ErrorStopMismatch,
			line: 8,
		},
		{
			name: "second loop reads the first one's variable",
			src:  strings.Replace(twoLoops, "y += j % 7", "y += x", 1),
			code: errors.ErrorDependent,
			line: 8,
		},
		{
			name: "code between the loops",
			src:  strings.Replace(twoLoops, "\tfor j", "\tif x > 3 {\n\t\ty = 2\n\t}\n\tfor j", 1),
			code: errors.ErrorNotAdjacent,
			line: 11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program := load(t, tt.src)

			diags := fusion.Optimize(program, nil)

			require.Len(t, diags, 1)
			assert.Equal(t, tt.code, diags[0].Code)
			assert.Equal(t, tt.line, diags[0].Pos.Line)
			assert.Equal(t, 2, loopCount(program.Function("doit")))
		})
	}
}

func TestSliceLoopMayPanic(t *testing.T) {
	program := load(t, `package loops

func sum(a []int) int {
	s := 0
	for i := 0; i < 10; i++ {
		s += a[i]
	}
	return s
}
`)

	diags := fusion.Optimize(program, nil)

	require.Len(t, diags, 1)
	assert.Equal(t, errors.ErrorMayThrow, diags[0].Code)
	assert.Contains(t, diags[0].Message, "addr checked")
	assert.Equal(t, 5, diags[0].Pos.Line)
}

func TestLowerInstructions(t *testing.T) {
	program := load(t, `package loops

type T struct{ n int }

func (t *T) Inc() { t.n++ }

func size(s []int, p *int8) int {
	n := len(s)
	*p = -int8(n)
	return n
}

func counter() func() int {
	k := 0
	return func() int {
		k++
		return k
	}
}
`)

	var names []string
	for _, fn := range program.Functions {
		names = append(names, fn.Name)
	}
	assert.Equal(t, []string{"T.Inc", "size", "counter", "counter$1"}, names)

	size := program.Function("size")
	require.Len(t, size.Params, 2)
	assert.Equal(t, "s", size.Params[0].Name)
	assert.Equal(t, "opaque", size.Params[0].Type.String())
	assert.Equal(t, ir.Ptr, size.Params[1].Type)

	out := ir.PrintFunction(size)
	assert.Contains(t, out, "call i64 @builtin.len(")
	assert.Contains(t, out, ") nounwind")
	assert.Contains(t, out, "= sub i8 0, ")
	assert.Contains(t, out, "= convert ")

	inc := ir.PrintFunction(program.Function("T.Inc"))
	assert.Contains(t, inc, "= addr ")
	assert.NotContains(t, inc, "addr checked")
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadSource("bad.go", "package loops\nfunc {")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse bad.go")

	_, err = LoadSource("bad.go", "package loops\nfunc f() int { return undefined }\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to type-check bad.go")

	_, err = LoadFile("missing.go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}
