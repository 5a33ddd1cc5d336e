package fusion

import (
	"loopfuse/internal/ir"
)

// LoopFusion is the optimization pass wrapper around Fuser
type LoopFusion struct {
	fuser *Fuser

	// Fused counts the fusions of the last Apply
	Fused int
}

// NewLoopFusion creates the pass
func NewLoopFusion(opts Options) *LoopFusion {
	return &LoopFusion{fuser: NewFuser(opts)}
}

func (lf *LoopFusion) Name() string {
	return "Loop Fusion"
}

func (lf *LoopFusion) Description() string {
	return "Fuses adjacent counted loops with the same evolution and disjoint memory footprints"
}

func (lf *LoopFusion) Apply(program *ir.Program) bool {
	lf.Fused = lf.fuser.RunOnProgram(program)
	return lf.Fused > 0
}

// NewPipeline returns the default pipeline: constant folding, loop
// canonicalisation, loop fusion, then the cleanup passes
func NewPipeline(opts Options) *ir.OptimizationPipeline {
	log := opts.Logger
	if log == nil {
		log = NopLogger()
	}

	pipeline := ir.NewEmptyPipeline()
	pipeline.SetLogger(log.SugaredLogger)
	pipeline.AddPass(&ir.ConstantFolding{})
	pipeline.AddPass(&LoopSimplify{Logger: log})
	pipeline.AddPass(NewLoopFusion(Options{Logger: log, Sink: opts.Sink}))
	pipeline.AddPass(&ir.CommonSubexpressionElimination{})
	pipeline.AddPass(&ir.DeadCodeElimination{})
	return pipeline
}

// Optimize runs the default pipeline on program and returns the
// diagnostics it produced
func Optimize(program *ir.Program, log *Logger) []Diagnostic {
	var diags []Diagnostic
	NewPipeline(Options{Logger: log, Sink: Collect(&diags)}).Run(program)
	return diags
}
