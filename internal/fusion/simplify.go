package fusion

import (
	"loopfuse/internal/analysis"
	"loopfuse/internal/ir"
)

// LoopSimplify puts loops in the shape the fusion pass expects: a
// dedicated preheader, and a header that does not exit. An exiting
// header has its branch split off into "<header>.test".
type LoopSimplify struct {
	Logger *Logger
}

func (s *LoopSimplify) Name() string {
	return "Loop Simplify"
}

func (s *LoopSimplify) Description() string {
	return "Inserts loop preheaders and moves the exit test out of loop headers"
}

func (s *LoopSimplify) Apply(program *ir.Program) bool {
	changed := false
	for _, fn := range program.Functions {
		if s.SimplifyFunction(fn) {
			changed = true
		}
	}
	return changed
}

// SimplifyFunction canonicalises every loop of fn. The loop nest is
// rebuilt after each edit.
func (s *LoopSimplify) SimplifyFunction(fn *ir.Function) bool {
	if fn.Entry == nil {
		return false
	}
	log := s.Logger
	if log == nil {
		log = NopLogger()
	}

	changed := false
	for {
		li := analysis.NewLoopInfo(fn, analysis.NewDomTree(fn))
		progress := false
		for _, loop := range li.Loops() {
			if nb := insertPreheader(loop); nb != nil {
				log.Debugw("inserted preheader", "func", fn.Name, "loop", loop.Header.Label, "block", nb.Label)
				progress = true
				break
			}
			if nb := splitExitingHeader(loop); nb != nil {
				log.Debugw("split exiting header", "func", fn.Name, "loop", loop.Header.Label, "block", nb.Label)
				progress = true
				break
			}
		}
		if !progress {
			return changed
		}
		changed = true
	}
}

// insertPreheader gives the loop a preheader when it has none. Header
// phis need exactly one outside incoming edge to be renamed; other loops
// with header phis are left alone.
func insertPreheader(loop *analysis.Loop) *ir.BasicBlock {
	if loop.Preheader() != nil {
		return nil
	}
	header := loop.Header
	var outside []*ir.BasicBlock
	for _, p := range header.Predecessors {
		if !loop.Contains(p) {
			outside = append(outside, p)
		}
	}
	if len(outside) != 1 && len(header.Phis()) > 0 {
		return nil
	}

	nb := ir.InsertBlockBefore(header, header.Label+".preheader")
	for _, p := range outside {
		ir.ReplaceSuccessor(p, header, nb)
		ir.RenamePhiEdges(header, p, nb)
	}
	return nb
}

// splitExitingHeader moves the terminator of an exiting header into a new
// block right after it
func splitExitingHeader(loop *analysis.Loop) *ir.BasicBlock {
	header := loop.Header
	if _, ok := header.Terminator.(*ir.BranchTerminator); !ok {
		return nil
	}
	exits := false
	for _, s := range header.Successors {
		if !loop.Contains(s) {
			exits = true
		}
	}
	if !exits {
		return nil
	}
	return ir.SplitBlock(header, len(header.Instructions), header.Label+".test")
}
