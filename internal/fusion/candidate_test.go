package fusion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopfuse/internal/analysis"
	"loopfuse/internal/ir"
)

// oneLoop is a counted loop over %i whose preheader, header, body and
// latch are filled in by each test
const oneLoop = `
func @f(%n: i64) {
entry:
  %i = alloca i64
  %a = alloca i64
  %b = alloca i64
  %lim = alloca i64
  %step = alloca i64
PREHEADER
  jump head
head:
HEADER
  br %c0, body, exit
body:
BODY
  jump latch
latch:
LATCH
  store %i2, %i
  jump head
exit:
  ret
}
`

type loopParts struct {
	preheader string
	header    string
	body      string
	latch     string
}

func (p loopParts) source() string {
	fill := func(s, def string) string {
		if s == "" {
			return def
		}
		return s
	}
	return strings.NewReplacer(
		"PREHEADER", fill(p.preheader, "  store 0, %i"),
		"HEADER", fill(p.header, "  %iv = load i64, %i\n  %c0 = cmp lt %iv, 10"),
		"BODY", fill(p.body, "  %v = load i64, %a\n  store %v, %b"),
		"LATCH", fill(p.latch, "  %i1 = load i64, %i\n  %i2 = add %i1, 1"),
	).Replace(oneLoop)
}

func buildCandidate(t *testing.T, src string) *Candidate {
	t.Helper()
	fn := prepare(t, src)
	loops := analysis.NewLoopInfo(fn, analysis.NewDomTree(fn)).TopLevel
	require.Len(t, loops, 1)
	c, why := BuildCandidate(loops[0], MapVariables(fn))
	require.Nil(t, why)
	return c
}

func names(values []*ir.Value) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.Name
	}
	return out
}

func TestCandidateMemoryFootprint(t *testing.T) {
	tests := []struct {
		name   string
		parts  loopParts
		writes []string
		reads  []string
	}{
		{
			name:   "plain body accesses",
			parts:  loopParts{},
			writes: []string{"i", "b"},
			reads:  []string{"a"},
		},
		{
			name:   "first header load counts as a write",
			parts:  loopParts{header: "  %iv = load i64, %i\n  %t = load i64, %lim\n  %u = load i64, %step\n  %c0 = cmp lt %iv, %t", body: "  %v = load i64, %a"},
			writes: []string{"i"},
			reads:  []string{"lim", "step"},
		},
		{
			name:   "address base stands in for the load",
			parts:  loopParts{body: "  %p = addr %a, %iv\n  %v = load i64, %p\n  store %v, %b"},
			writes: []string{"i", "b"},
			reads:  []string{"a"},
		},
		{
			name:   "address base stands in for the store",
			parts:  loopParts{body: "  %v = load i64, %a\n  %p = addr %b, %iv\n  store %v, %p"},
			writes: []string{"i", "b"},
			reads:  []string{"a"},
		},
		{
			name:   "second address overwrites an unconsumed base",
			parts:  loopParts{body: "  %p = addr %a, 0\n  %q = addr %b, 0\n  %v = load i64, %p"},
			writes: []string{"i"},
			reads:  []string{"b"},
		},
		{
			name:   "pending base carries into the next block",
			parts:  loopParts{body: "  %p = addr %a, 0\n  jump more\nmore:\n  store 1, %p"},
			writes: []string{"i", "a"},
			reads:  nil,
		},
		{
			name:   "consumed base is not reused",
			parts:  loopParts{body: "  %p = addr %a, 0\n  store 1, %p\n  %v = load i64, %b"},
			writes: []string{"i", "a"},
			reads:  []string{"b"},
		},
		{
			name:   "latch accesses are not collected",
			parts:  loopParts{body: "  %v = load i64, %a", latch: "  %w = load i64, %b\n  %i1 = load i64, %i\n  %i2 = add %i1, 1"},
			writes: []string{"i"},
			reads:  []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := buildCandidate(t, tt.parts.source())

			assert.Equal(t, tt.writes, names(c.Writes.Items()))
			if tt.reads == nil {
				assert.Zero(t, c.Reads.Len())
			} else {
				assert.Equal(t, tt.reads, names(c.Reads.Items()))
			}
		})
	}
}

func TestCandidateInduction(t *testing.T) {
	tests := []struct {
		name      string
		parts     loopParts
		start     string
		stop      string
		advance   string
		advanceOp ir.BinaryOp
	}{
		{
			name:      "constant bounds",
			parts:     loopParts{},
			start:     "i64 0",
			stop:      "i64 10",
			advance:   "i64 1",
			advanceOp: ir.OpAdd,
		},
		{
			name:      "stop through a variable",
			parts:     loopParts{header: "  %iv = load i64, %i\n  %t = load i64, %lim\n  %c0 = cmp lt %iv, %t"},
			start:     "i64 0",
			stop:      "%lim",
			advance:   "i64 1",
			advanceOp: ir.OpAdd,
		},
		{
			name:      "last comparison gives the stop",
			parts:     loopParts{header: "  %iv = load i64, %i\n  %d = cmp lt %iv, 3\n  %c0 = cmp lt %iv, 7"},
			start:     "i64 0",
			stop:      "i64 7",
			advance:   "i64 1",
			advanceOp: ir.OpAdd,
		},
		{
			name:      "start through a variable",
			parts:     loopParts{preheader: "  %s = load i64, %b\n  store %s, %i"},
			start:     "%b",
			stop:      "i64 10",
			advance:   "i64 1",
			advanceOp: ir.OpAdd,
		},
		{
			name:      "last preheader store wins",
			parts:     loopParts{preheader: "  %s = load i64, %b\n  store %s, %i\n  store 4, %a"},
			start:     "i64 4",
			stop:      "i64 10",
			advance:   "i64 1",
			advanceOp: ir.OpAdd,
		},
		{
			name:      "advance through a variable",
			parts:     loopParts{latch: "  %st = load i64, %step\n  %i1 = load i64, %i\n  %i2 = add %i1, %st"},
			start:     "i64 0",
			stop:      "i64 10",
			advance:   "%step",
			advanceOp: ir.OpAdd,
		},
		{
			name:      "last latch operation wins",
			parts:     loopParts{latch: "  %i1 = load i64, %i\n  %h = add %i1, 1\n  %i2 = mul %h, 3"},
			start:     "i64 0",
			stop:      "i64 10",
			advance:   "i64 3",
			advanceOp: ir.OpMul,
		},
		{
			name:      "counter stored only in the latch",
			parts:     loopParts{body: "  %v = load i64, %a"},
			start:     "i64 0",
			stop:      "i64 10",
			advance:   "i64 1",
			advanceOp: ir.OpAdd,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := buildCandidate(t, tt.parts.source())

			ind := c.Induction
			require.NotNil(t, ind.Variable)
			assert.Equal(t, "i", ind.Variable.Name)
			assert.Equal(t, tt.start, ind.Start.String())
			assert.Equal(t, tt.stop, ind.Stop.String())
			assert.Equal(t, tt.advance, ind.Advance.String())
			assert.Equal(t, tt.advanceOp, ind.AdvanceOp)
		})
	}
}
