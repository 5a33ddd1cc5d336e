package grammar

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"
	"github.com/pkg/errors"
)

var parser = participle.MustBuild[Module](
	participle.Lexer(IRLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(3),
)

// ParseFile parses a .lir file
func ParseFile(path string) (*Module, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	return ParseString(path, string(source))
}

// ParseString parses textual IR. The returned error is a participle.Error
// when the input is malformed.
func ParseString(filename, source string) (*Module, error) {
	module, err := parser.ParseString(filename, source)
	if err != nil {
		return nil, err
	}
	return module, nil
}

// ReportParseError writes a friendly caret-style parse error message.
func ReportParseError(w io.Writer, src string, err error) {
	var pe participle.Error
	if !errors.As(err, &pe) {
		fmt.Fprintln(w, color.RedString("Unexpected error: %s", err))
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		fmt.Fprintln(w, color.RedString("Syntax error at unknown location: %s", err))
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", max(0, pos.Column-1)) + "^"

	fmt.Fprintln(w, color.RedString("Syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column))
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, color.HiRedString(caret))
	fmt.Fprintf(w, "→ %s\n", pe.Message())
}
