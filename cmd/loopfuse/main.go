// SPDX-License-Identifier: Apache-2.0

// Command loopfuse runs the loop fusion pipeline on a .lir or .go file and
// prints the transformed IR together with the pass's diagnostics.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"loopfuse/grammar"
	"loopfuse/internal/errors"
	"loopfuse/internal/frontend"
	"loopfuse/internal/fusion"
	"loopfuse/internal/ir"
)

const usage = `loopfuse fuses adjacent counted loops.

Usage:

  loopfuse [options] file.lir|file.go

Options:

`

var (
	logPath    string
	noColor    bool
	diagOnly   bool
	formatOnly bool
	showPreds  bool
)

func init() {
	flag.StringVar(&logPath, "log", "", "Write a debug log of the pipeline to a file (use '-' for stderr)")
	flag.BoolVar(&noColor, "no-color", false, "Disable colored output")
	flag.BoolVar(&diagOnly, "diag-only", false, "Print diagnostics only, not the transformed IR")
	flag.BoolVar(&formatOnly, "fmt", false, "Print a .lir file in canonical layout and exit")
	flag.BoolVar(&showPreds, "preds", false, "Annotate block labels with their predecessors")
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
		os.Exit(1)
	}
	if noColor {
		color.NoColor = true
	}

	startTime := time.Now()
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		os.Exit(1)
	}

	if formatOnly {
		out, err := grammar.Format(path, string(source))
		if err != nil {
			grammar.ReportParseError(os.Stderr, string(source), err)
			os.Exit(1)
		}
		fmt.Print(out)
		return
	}

	program, err := load(path, string(source))
	if err != nil {
		grammar.ReportParseError(os.Stderr, string(source), err)
		color.Red("Compilation failed after %s", formatDuration(time.Since(startTime)))
		os.Exit(1)
	}

	log := fusion.NopLogger()
	if logPath != "" {
		log, err = fusion.NewLogger(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot create log %s: %v\n", logPath, err)
			os.Exit(1)
		}
		defer log.Sync()
	}

	diags := fusion.Optimize(program, log)

	reporter := errors.NewErrorReporter(path, string(source))
	fused := 0
	for _, d := range diags {
		if d.Code == errors.NoteFused {
			fused++
		}
		fmt.Print(reporter.FormatError(d.CompilerError()))
	}

	if !diagOnly {
		printer := ir.NewPrinter()
		printer.ShowPreds = showPreds
		fmt.Print(printer.Format(program))
	}

	duration := time.Since(startTime)
	color.Green("Processed %s in %s: %d loop(s) fused", path, formatDuration(duration), fused)
}

func load(path, source string) (*ir.Program, error) {
	if filepath.Ext(path) == ".go" {
		return frontend.LoadSource(path, source)
	}
	return ir.ParseProgram(path, source)
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
