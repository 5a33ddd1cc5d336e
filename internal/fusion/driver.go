package fusion

import (
	"loopfuse/internal/analysis"
	"loopfuse/internal/errors"
	"loopfuse/internal/ir"
)

// Options configure a Fuser
type Options struct {
	// Logger receives debug output; nil discards it
	Logger *Logger

	// Sink receives diagnostics; nil discards them
	Sink Sink
}

// Fuser runs loop fusion over functions, one at a time
type Fuser struct {
	log  *Logger
	sink Sink

	// Per-function state
	fn    *ir.Function
	cache *analysis.Cache
	loops *analysis.LoopInfo
	vars  VariableMap
	fused int
}

// NewFuser creates a Fuser
func NewFuser(opts Options) *Fuser {
	f := &Fuser{log: opts.Logger, sink: opts.Sink}
	if f.log == nil {
		f.log = NopLogger()
	}
	if f.sink == nil {
		f.sink = func(Diagnostic) {}
	}
	return f
}

// RunOnProgram fuses loops in every function and returns the number of
// fusions performed
func (f *Fuser) RunOnProgram(program *ir.Program) int {
	total := 0
	for _, fn := range program.Functions {
		total += f.RunOnFunction(fn)
	}
	return total
}

// RunOnFunction fuses adjacent loops of fn, innermost loops first, and
// returns the number of fusions performed
func (f *Fuser) RunOnFunction(fn *ir.Function) int {
	if fn.Entry == nil {
		return 0
	}
	f.fn = fn
	f.cache = analysis.NewCache(fn)
	f.loops = f.cache.LoopInfo()
	f.vars = MapVariables(fn)
	f.fused = 0

	f.log.Debugw("fusing loops", "func", fn.Name, "loops", len(f.loops.Loops()))
	f.fuseSameDepth(f.loops.TopLevel)

	fused := f.fused
	f.fn, f.cache, f.loops, f.vars = nil, nil, nil, nil
	return fused
}

// fuseSameDepth visits sub-loops before their parent and greedily fuses
// each sibling into the latest candidate that did not fuse. A candidate
// that absorbed a sibling stays the collector.
func (f *Fuser) fuseSameDepth(loops []*analysis.Loop) {
	var collector *Candidate

	for _, loop := range append([]*analysis.Loop(nil), loops...) {
		f.fuseSameDepth(loop.SubLoops)

		current, why := BuildCandidate(loop, f.vars)
		if why != nil {
			f.report(loop, why)
			continue
		}
		f.log.Debugw("candidate", "func", f.fn.Name, "loop", loop.Header.Label,
			"induction", current.Induction.String(),
			"writes", current.Writes.String(), "reads", current.Reads.String())

		if collector != nil {
			why := CheckFusion(collector, current)
			if why == nil {
				why = preheaderRelocatable(collector, current, f.cache)
			}
			if why == nil {
				f.fuse(collector, current)
				f.fused++
				continue
			}
			f.report(loop, why)
		}
		collector = current
	}
}

func (f *Fuser) report(loop *analysis.Loop, why *Reason) {
	f.log.Debugw("not fused", "func", f.fn.Name, "loop", loop.Header.Label, "code", why.Code, "reason", why.Message)
	f.emit(loop, why.Code, why.Message)
}

func (f *Fuser) emit(loop *analysis.Loop, code, message string) {
	f.emitRelated(loop, code, message, ir.Position{})
}

func (f *Fuser) emitRelated(loop *analysis.Loop, code, message string, related ir.Position) {
	f.sink(Diagnostic{
		Code:     code,
		Severity: errors.LevelFor(code),
		Func:     f.fn.Name,
		Loop:     loop.Header.Label,
		Pos:      loop.Header.Pos,
		Message:  message,
		Related:  related,
	})
}
