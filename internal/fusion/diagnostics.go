package fusion

import (
	"fmt"

	"loopfuse/internal/errors"
	"loopfuse/internal/ir"
)

// Diagnostic is one line of the pass's report: why a loop is not a
// candidate, why two loops cannot be fused, or that they were
type Diagnostic struct {
	Code     string
	Severity errors.ErrorLevel
	Func     string
	Loop     string // header label of the loop the diagnostic is about
	Pos      ir.Position
	Message  string

	// Related is the header of the other loop of a fused pair
	Related ir.Position
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s[%s] %s: loop %s: %s", d.Pos, d.Severity, d.Code, d.Func, d.Loop, d.Message)
}

// CompilerError converts d for the source reporter
func (d Diagnostic) CompilerError() errors.CompilerError {
	return errors.CompilerError{
		Level:    d.Severity,
		Code:     d.Code,
		Message:  d.Message,
		Position: d.Pos,
		Length:   len(d.Loop),
		HelpText: fmt.Sprintf("in function %s, loop %s", d.Func, d.Loop),
	}
}

// Sink receives diagnostics as they are produced
type Sink func(Diagnostic)

// Collect returns a sink that appends to *out
func Collect(out *[]Diagnostic) Sink {
	return func(d Diagnostic) { *out = append(*out, d) }
}

// Reason is a diagnosable failure of a candidate build or a legality check
type Reason struct {
	Code    string
	Message string
}

func (r *Reason) Error() string {
	return r.Message
}

func reason(code string) *Reason {
	return &Reason{Code: code, Message: errors.GetErrorDescription(code)}
}

func reasonf(code, format string, args ...interface{}) *Reason {
	return &Reason{Code: code, Message: fmt.Sprintf(format, args...)}
}
