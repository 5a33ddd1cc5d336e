package ir

// This file provides the main entry points for the IR system.
// The IR is in SSA form; locals live in memory and are accessed with
// explicit loads and stores, the shape loop passes pattern-match on.

import (
	"loopfuse/grammar"
)

// LoadFile parses a .lir file and lowers it to IR
func LoadFile(path string) (*Program, error) {
	module, err := grammar.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return BuildProgram(path, module)
}

// PrintProgram returns a pretty-printed representation of the IR
func PrintProgram(program *Program) string {
	return Print(program)
}
