package fusion

import (
	"strings"

	"loopfuse/internal/ir"
)

// VariableMap maps a loaded value to the address it was loaded from
type VariableMap map[*ir.Value]*ir.Value

// MapVariables records the address of every load in fn
func MapVariables(fn *ir.Function) VariableMap {
	vars := make(VariableMap)
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if load, ok := inst.(*ir.LoadInstruction); ok {
				vars[load.Result] = load.Address
			}
		}
	}
	return vars
}

// Bound is a loop bound: a constant or the memory location of a variable.
// A resolved bound holds exactly one of the two.
type Bound struct {
	Const *ir.Constant
	Var   *ir.Value
}

// IsSet reports whether the bound is resolved
func (b Bound) IsSet() bool {
	return b.Const != nil || b.Var != nil
}

func (b *Bound) setConst(c *ir.Constant) {
	b.Const = c
	b.Var = nil
}

func (b *Bound) setVar(v *ir.Value) {
	b.Const = nil
	b.Var = v
}

func (b Bound) String() string {
	switch {
	case b.Const != nil:
		return b.Const.String()
	case b.Var != nil:
		return "%" + b.Var.Name
	default:
		return "?"
	}
}

// Induction describes how a counted loop evolves
type Induction struct {
	Variable  *ir.Value // address of the loop counter
	Start     Bound
	Stop      Bound
	Advance   Bound
	AdvanceOp ir.BinaryOp
}

func (ind *Induction) String() string {
	return "%" + ind.Variable.Name + " = " + ind.Start.String() +
		"; < " + ind.Stop.String() +
		"; " + string(ind.AdvanceOp) + " " + ind.Advance.String()
}

// LocationSet is an insertion-ordered set of memory locations compared by
// identity
type LocationSet struct {
	items []*ir.Value
	index map[*ir.Value]bool
}

// Add inserts v unless it is already present
func (s *LocationSet) Add(v *ir.Value) {
	if v == nil {
		return
	}
	if s.index == nil {
		s.index = make(map[*ir.Value]bool)
	}
	if s.index[v] {
		return
	}
	s.index[v] = true
	s.items = append(s.items, v)
}

// Contains reports whether v is in the set
func (s *LocationSet) Contains(v *ir.Value) bool {
	return s.index[v]
}

// Items returns the locations in insertion order
func (s *LocationSet) Items() []*ir.Value {
	return s.items
}

func (s *LocationSet) Len() int {
	return len(s.items)
}

// Intersects reports whether s and other share a location
func (s *LocationSet) Intersects(other *LocationSet) bool {
	for _, v := range s.items {
		if other.Contains(v) {
			return true
		}
	}
	return false
}

func (s *LocationSet) String() string {
	names := make([]string, len(s.items))
	for i, v := range s.items {
		names[i] = v.String()
	}
	return "{" + strings.Join(names, ", ") + "}"
}
