package ir

import (
	"fmt"
	"strings"
)

// Printer provides pretty-printing for IR. The output is valid textual IR
// that the grammar package parses back.
type Printer struct {
	indent int
	output strings.Builder

	// ShowPreds annotates every block label with its predecessors
	ShowPreds bool
}

// NewPrinter creates a new IR printer
func NewPrinter() *Printer {
	return &Printer{indent: 0}
}

// Print returns the string representation of an IR program
func Print(program *Program) string {
	p := NewPrinter()
	p.printProgram(program)
	return p.output.String()
}

// PrintFunction returns the string representation of a single function
func PrintFunction(fn *Function) string {
	p := NewPrinter()
	p.printFunction(fn)
	return p.output.String()
}

// Format prints program with the printer's settings
func (p *Printer) Format(program *Program) string {
	p.output.Reset()
	p.printProgram(program)
	return p.output.String()
}

// Helper methods

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

// printProgram prints the entire IR program
func (p *Printer) printProgram(program *Program) {
	for i, fn := range program.Functions {
		if i > 0 {
			p.writeLine("")
		}
		p.printFunction(fn)
	}
}

// printFunction prints an SSA function
func (p *Printer) printFunction(fn *Function) {
	params := make([]string, len(fn.Params))
	for i, param := range fn.Params {
		params[i] = fmt.Sprintf("%%%s: %s", param.Name, param.Type)
	}
	sig := fmt.Sprintf("func @%s(%s)", fn.Name, strings.Join(params, ", "))
	if _, void := fn.ReturnType.(*VoidType); fn.ReturnType != nil && !void {
		sig += " " + fn.ReturnType.String()
	}
	p.writeLine("%s {", sig)
	for _, block := range fn.Blocks {
		p.printBasicBlock(block)
	}
	p.writeLine("}")
}

// printBasicBlock prints a basic block in IR form
func (p *Printer) printBasicBlock(block *BasicBlock) {
	if p.ShowPreds && len(block.Predecessors) > 0 {
		p.writeLine("%s:  ; preds = %s", block.Label, blockLabels(block.Predecessors))
	} else {
		p.writeLine("%s:", block.Label)
	}

	p.indent++
	for _, inst := range block.Instructions {
		p.writeLine("%s", FormatInstruction(inst))
	}
	if block.Terminator != nil {
		p.writeLine("%s", FormatInstruction(block.Terminator))
	}
	p.indent--
}

// FormatInstruction renders one instruction in textual IR form
func FormatInstruction(inst Instruction) string {
	switch i := inst.(type) {
	case *AllocaInstruction:
		return fmt.Sprintf("%s = alloca %s", valueString(i.Result), i.Allocated)
	case *LoadInstruction:
		return fmt.Sprintf("%s = load %s%s, %s",
			valueString(i.Result), volatileString(i.Volatile), i.Result.Type, valueString(i.Address))
	case *StoreInstruction:
		return fmt.Sprintf("store %s%s, %s",
			volatileString(i.Volatile), valueString(i.Value), valueString(i.Address))
	case *AddrInstruction:
		operands := append([]*Value{i.Base}, i.Indices...)
		checked := ""
		if i.Checked {
			checked = "checked "
		}
		return fmt.Sprintf("%s = addr %s%s", valueString(i.Result), checked, argsString(operands))
	case *BinaryInstruction:
		return fmt.Sprintf("%s = %s %s, %s",
			valueString(i.Result), i.Op, valueString(i.Left), valueString(i.Right))
	case *CompareInstruction:
		return fmt.Sprintf("%s = cmp %s %s, %s",
			valueString(i.Result), i.Predicate, valueString(i.Left), valueString(i.Right))
	case *ConvertInstruction:
		return fmt.Sprintf("%s = convert %s to %s", valueString(i.Result), valueString(i.Value), i.Result.Type)
	case *CallInstruction:
		call := fmt.Sprintf("call @%s(%s)", i.Function, argsString(i.Args))
		if i.Result != nil {
			call = fmt.Sprintf("%s = call %s @%s(%s)", valueString(i.Result), i.Result.Type, i.Function, argsString(i.Args))
		}
		if i.NoUnwind {
			call += " nounwind"
		}
		return call
	case *PhiInstruction:
		edges := make([]string, len(i.Edges))
		for j, e := range i.Edges {
			edges[j] = fmt.Sprintf("[%s, %s]", valueString(e.Value), e.Block.Label)
		}
		return fmt.Sprintf("%s = phi %s %s", valueString(i.Result), i.Result.Type, strings.Join(edges, ", "))
	case *ReturnTerminator:
		if i.Value != nil {
			return "ret " + valueString(i.Value)
		}
		return "ret"
	case *BranchTerminator:
		return fmt.Sprintf("br %s, %s, %s%s",
			valueString(i.Condition), i.TrueBlock.Label, i.FalseBlock.Label, parallelString(i.Parallel))
	case *JumpTerminator:
		return fmt.Sprintf("jump %s%s", i.Target.Label, parallelString(i.Parallel))
	case *UnreachableTerminator:
		return "unreachable"
	default:
		return fmt.Sprintf("unknown<%T> %d", i, i.GetID())
	}
}

// valueString renders an operand. Constants of the default types print
// without a type prefix.
func valueString(v *Value) string {
	if v == nil {
		return "<nil>"
	}
	if v.Const == nil {
		return "%" + v.Name
	}
	switch t := v.Const.Type.(type) {
	case *IntType:
		if t.Bits == 64 {
			return fmt.Sprintf("%d", v.Const.Int())
		}
	case *FloatType:
		if t.Bits == 64 {
			s := fmt.Sprintf("%g", v.Const.Float())
			if !strings.ContainsAny(s, ".eEnN") {
				s += ".0"
			}
			return s
		}
	case *BoolType:
		return v.Const.String()
	}
	return v.Const.String()
}

func argsString(args []*Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = valueString(arg)
	}
	return strings.Join(parts, ", ")
}

func volatileString(volatile bool) string {
	if volatile {
		return "volatile "
	}
	return ""
}

func parallelString(parallel bool) string {
	if parallel {
		return " !parallel"
	}
	return ""
}

func blockLabels(blocks []*BasicBlock) string {
	labels := make([]string, len(blocks))
	for i, b := range blocks {
		labels[i] = b.Label
	}
	return strings.Join(labels, ", ")
}

// String methods for debugging

func (p *Program) String() string    { return Print(p) }
func (f *Function) String() string   { return PrintFunction(f) }
func (b *BasicBlock) String() string { return b.Label }
func (v *Value) String() string      { return valueString(v) }

func (i *AllocaInstruction) String() string     { return FormatInstruction(i) }
func (i *LoadInstruction) String() string       { return FormatInstruction(i) }
func (i *StoreInstruction) String() string      { return FormatInstruction(i) }
func (i *AddrInstruction) String() string       { return FormatInstruction(i) }
func (i *BinaryInstruction) String() string     { return FormatInstruction(i) }
func (i *CompareInstruction) String() string    { return FormatInstruction(i) }
func (i *ConvertInstruction) String() string    { return FormatInstruction(i) }
func (i *CallInstruction) String() string       { return FormatInstruction(i) }
func (i *PhiInstruction) String() string        { return FormatInstruction(i) }
func (t *ReturnTerminator) String() string      { return FormatInstruction(t) }
func (t *BranchTerminator) String() string      { return FormatInstruction(t) }
func (t *JumpTerminator) String() string        { return FormatInstruction(t) }
func (t *UnreachableTerminator) String() string { return FormatInstruction(t) }
