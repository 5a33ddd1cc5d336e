// Package repl reads functions in textual IR from a stream and fuses their
// loops as soon as each one is complete.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"loopfuse/grammar"
	"loopfuse/internal/errors"
	"loopfuse/internal/fusion"
	"loopfuse/internal/ir"
)

const (
	PROMPT   = ">> "
	CONTINUE = ".. "
)

const inputName = "<stdin>"

// Start reads from in until EOF. A line holding only "}" ends a function,
// which is then run through the fusion pipeline.
func Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	var buf strings.Builder

	fmt.Fprint(out, PROMPT)
	for scanner.Scan() {
		line := scanner.Text()
		buf.WriteString(line)
		buf.WriteString("\n")

		if strings.TrimSpace(line) != "}" {
			fmt.Fprint(out, CONTINUE)
			continue
		}
		Eval(out, buf.String())
		buf.Reset()
		fmt.Fprint(out, PROMPT)
	}
	fmt.Fprintln(out)
}

// Eval runs the pipeline on source and writes the diagnostics followed by
// the resulting IR
func Eval(out io.Writer, source string) {
	program, err := ir.ParseProgram(inputName, source)
	if err != nil {
		grammar.ReportParseError(out, source, err)
		return
	}

	reporter := errors.NewErrorReporter(inputName, source)
	for _, d := range fusion.Optimize(program, nil) {
		fmt.Fprint(out, reporter.FormatError(d.CompilerError()))
	}
	fmt.Fprint(out, ir.Print(program))
}
