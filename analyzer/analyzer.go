// Package analyzer reports adjacent counted loops that the loop fusion
// pass would merge.
//
// The package is lowered to the loop IR, the fusion pipeline runs on the
// lowered copy, and every loop that was fused into its predecessor is
// reported at its header. The source itself is never changed.
//
// Loops are lowered with pre-1.22 loop variable semantics (see
// frontend.GoVersion), whatever go directive the module declares: a
// for statement has one counter for the whole loop. In a go1.22 module
// a loop whose closures capture the counter gets a fresh copy per
// iteration, so findings for such loops may not hold.
package analyzer

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	"golang.org/x/tools/go/analysis"

	"loopfuse/internal/errors"
	"loopfuse/internal/frontend"
	"loopfuse/internal/fusion"
	"loopfuse/internal/ir"
)

// Analyzer reports loops that can be fused with the loop before them
var Analyzer = &analysis.Analyzer{
	Name: "loopfuse",
	Doc:  "reports adjacent counted loops that can be fused into one",
	Run:  run,
}

var explain bool

func init() {
	Analyzer.Flags.BoolVar(&explain, "explain", false,
		"also report adjacent loops that were not fused and why")
}

func run(pass *analysis.Pass) (any, error) {
	skip := generatedFiles(pass)

	pkg := frontend.BuildPackage(pass.Fset, pass.Pkg, pass.Files, pass.TypesInfo)
	program := frontend.NewLowerer(pass.Fset, nil).LowerPackage(pkg)

	for _, d := range fusion.Optimize(program, nil) {
		if skip[d.Pos.Filename] {
			continue
		}
		pos := tokenPos(pass, d.Pos)
		if !pos.IsValid() {
			continue
		}

		switch {
		case d.Code == errors.NoteFused:
			diag := analysis.Diagnostic{
				Pos:      pos,
				Category: d.Code,
				Message:  fmt.Sprintf("loop can be fused with the preceding loop at line %d", d.Related.Line),
			}
			if related := tokenPos(pass, d.Related); related.IsValid() {
				diag.Related = []analysis.RelatedInformation{{Pos: related, Message: "preceding loop"}}
			}
			pass.Report(diag)
		case explain && isLegalityFailure(d.Code):
			pass.Report(analysis.Diagnostic{
				Pos:      pos,
				Category: d.Code,
				Message:  "loop not fused with the preceding loop: " + d.Message,
			})
		}
	}
	return nil, nil
}

// isLegalityFailure reports whether code rejects a pair of candidate loops
// rather than a single loop
func isLegalityFailure(code string) bool {
	return strings.HasPrefix(code, "F01")
}

// generatedFiles returns the names of files carrying a generated-code
// header
func generatedFiles(pass *analysis.Pass) map[string]bool {
	skip := make(map[string]bool)
	for _, file := range pass.Files {
		if ast.IsGenerated(file) {
			skip[pass.Fset.Position(file.Pos()).Filename] = true
		}
	}
	return skip
}

func tokenPos(pass *analysis.Pass, p ir.Position) token.Pos {
	if !p.IsValid() {
		return token.NoPos
	}
	for _, file := range pass.Files {
		tf := pass.Fset.File(file.Pos())
		if tf == nil || tf.Name() != p.Filename || p.Line > tf.LineCount() {
			continue
		}
		return tf.LineStart(p.Line) + token.Pos(p.Column-1)
	}
	return token.NoPos
}
