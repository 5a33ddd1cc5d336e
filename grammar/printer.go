package grammar

import (
	"fmt"
	"strings"
)

func indent(level int) string {
	return strings.Repeat("  ", level)
}

// Format parses source and prints it back in canonical layout. Literals
// keep their spelling; comments are dropped.
func Format(filename, source string) (string, error) {
	module, err := ParseString(filename, source)
	if err != nil {
		return "", err
	}
	return module.String(), nil
}

// HasComments reports whether source contains a comment that Format
// would drop
func HasComments(source string) bool {
	return strings.Contains(source, ";")
}

func (m *Module) String() string {
	var b strings.Builder
	for i, f := range m.Functions {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(f.StringWithIndent(0))
	}
	return b.String()
}

func (f *Function) StringWithIndent(level int) string {
	var b strings.Builder
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	b.WriteString(fmt.Sprintf("%sfunc %s(%s)", indent(level), f.Name, strings.Join(params, ", ")))
	if f.Return != nil {
		b.WriteString(" " + f.Return.String())
	}
	b.WriteString(" {\n")
	for _, blk := range f.Blocks {
		b.WriteString(blk.StringWithIndent(level))
	}
	b.WriteString(indent(level) + "}\n")
	return b.String()
}

func (p *Param) String() string {
	return fmt.Sprintf("%s: %s", p.Name, p.Type)
}

func (t *Type) String() string {
	return t.Name
}

func (blk *Block) StringWithIndent(level int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s%s:\n", indent(level), blk.Label))
	for _, inst := range blk.Instructions {
		b.WriteString(indent(level+1) + inst.String() + "\n")
	}
	b.WriteString(indent(level+1) + blk.Terminator.String() + "\n")
	return b.String()
}

func (i *Instruction) String() string {
	switch {
	case i.Store != nil:
		return i.Store.String()
	case i.Call != nil:
		return i.Call.String()
	default:
		return i.Assign.String()
	}
}

func (a *Assign) String() string {
	var rhs string
	switch {
	case a.Alloca != nil:
		rhs = "alloca " + a.Alloca.Type.String()
	case a.Load != nil:
		rhs = fmt.Sprintf("load %s%s, %s", volatile(a.Load.Volatile), a.Load.Type, a.Load.Address)
	case a.Addr != nil:
		checked := ""
		if a.Addr.Checked {
			checked = "checked "
		}
		rhs = fmt.Sprintf("addr %s%s", checked, operands(append([]*Operand{a.Addr.Base}, a.Addr.Indices...)))
	case a.Compare != nil:
		rhs = fmt.Sprintf("cmp %s %s, %s", a.Compare.Predicate, a.Compare.Left, a.Compare.Right)
	case a.Convert != nil:
		rhs = fmt.Sprintf("convert %s to %s", a.Convert.Value, a.Convert.Type)
	case a.Call != nil:
		rhs = a.Call.String()
	case a.Phi != nil:
		edges := make([]string, len(a.Phi.Edges))
		for i, e := range a.Phi.Edges {
			edges[i] = fmt.Sprintf("[%s, %s]", e.Value, e.Block)
		}
		rhs = fmt.Sprintf("phi %s %s", a.Phi.Type, strings.Join(edges, ", "))
	case a.Binary != nil:
		rhs = fmt.Sprintf("%s %s, %s", a.Binary.Op, a.Binary.Left, a.Binary.Right)
	}
	return a.Result + " = " + rhs
}

func (s *Store) String() string {
	return fmt.Sprintf("store %s%s, %s", volatile(s.Volatile), s.Value, s.Address)
}

func (c *Call) String() string {
	var b strings.Builder
	b.WriteString("call ")
	if c.Type != nil {
		b.WriteString(c.Type.String() + " ")
	}
	b.WriteString(fmt.Sprintf("%s(%s)", c.Callee, operands(c.Args)))
	if c.NoUnwind {
		b.WriteString(" nounwind")
	}
	return b.String()
}

func (o *Operand) String() string {
	if o.Local != "" {
		return o.Local
	}
	return o.Literal.String()
}

func (l *Literal) String() string {
	var value string
	switch {
	case l.Float != nil:
		value = fmt.Sprintf("%g", *l.Float)
		if !strings.ContainsAny(value, ".eE") {
			value += ".0"
		}
	case l.Int != nil:
		value = *l.Int
	default:
		value = *l.Bool
	}
	if l.Type != nil {
		return l.Type.String() + " " + value
	}
	return value
}

func (t *Terminator) String() string {
	switch {
	case t.Jump != nil:
		return "jump " + t.Jump.Target + parallel(t.Jump.Parallel)
	case t.Branch != nil:
		return fmt.Sprintf("br %s, %s, %s%s", t.Branch.Condition, t.Branch.True, t.Branch.False, parallel(t.Branch.Parallel))
	case t.Return != nil:
		if t.Return.Value != nil {
			return "ret " + t.Return.Value.String()
		}
		return "ret"
	default:
		return "unreachable"
	}
}

func operands(ops []*Operand) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, ", ")
}

func volatile(v bool) string {
	if v {
		return "volatile "
	}
	return ""
}

func parallel(p bool) string {
	if p {
		return " !parallel"
	}
	return ""
}
