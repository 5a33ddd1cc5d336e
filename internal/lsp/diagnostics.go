package lsp

import (
	stderrors "errors"

	"github.com/alecthomas/participle/v2"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"loopfuse/internal/errors"
	"loopfuse/internal/fusion"
	"loopfuse/internal/ir"
)

const (
	parserSource = "loopfuse-parser"
	fusionSource = "loopfuse"
)

// Diagnose parses source and runs the fusion pipeline on it. The result is
// never nil so that a clean document clears earlier diagnostics.
func Diagnose(uri protocol.DocumentUri, filename, source string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	program, err := ir.ParseProgram(filename, source)
	if err != nil {
		return append(diagnostics, ConvertParseError(err))
	}

	for _, d := range fusion.Optimize(program, nil) {
		diagnostics = append(diagnostics, ConvertFusionDiagnostic(uri, d))
	}
	return diagnostics
}

// ConvertParseError turns a syntax or IR construction error into a
// diagnostic. Errors without a position are reported at the top of the file.
func ConvertParseError(err error) protocol.Diagnostic {
	var start protocol.Position
	message := err.Error()

	var pe participle.Error
	if stderrors.As(err, &pe) {
		start = toPosition(pe.Position().Line, pe.Position().Column)
		message = pe.Message()
	}

	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: start,
			End:   protocol.Position{Line: start.Line, Character: start.Character + 1},
		},
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString(parserSource),
		Message:  message,
	}
}

// ConvertFusionDiagnostic places d on the header label of its loop
func ConvertFusionDiagnostic(uri protocol.DocumentUri, d fusion.Diagnostic) protocol.Diagnostic {
	start := toPosition(d.Pos.Line, d.Pos.Column)
	diagnostic := protocol.Diagnostic{
		Range: protocol.Range{
			Start: start,
			End:   protocol.Position{Line: start.Line, Character: start.Character + protocol.UInteger(max(len(d.Loop), 1))},
		},
		Severity: ptrSeverity(severity(d.Severity)),
		Code:     &protocol.IntegerOrString{Value: d.Code},
		Source:   ptrString(fusionSource),
		Message:  d.Message,
	}

	if d.Related.Line > 0 {
		related := toPosition(d.Related.Line, d.Related.Column)
		diagnostic.RelatedInformation = []protocol.DiagnosticRelatedInformation{{
			Location: protocol.Location{
				URI:   uri,
				Range: protocol.Range{Start: related, End: related},
			},
			Message: "preceding loop",
		}}
	}
	return diagnostic
}

func severity(level errors.ErrorLevel) protocol.DiagnosticSeverity {
	switch level {
	case errors.Error:
		return protocol.DiagnosticSeverityError
	case errors.Warning:
		return protocol.DiagnosticSeverityWarning
	case errors.Note:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityHint
	}
}

// toPosition converts a 1-based line and column to the 0-based LSP form
func toPosition(line, column int) protocol.Position {
	return protocol.Position{
		Line:      protocol.UInteger(max(line-1, 0)),
		Character: protocol.UInteger(max(column-1, 0)),
	}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
