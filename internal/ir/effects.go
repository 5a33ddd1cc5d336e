package ir

// This file implements the GetEffects() method for all instruction types
// Effects describe the side effects of instructions (Memory, Throw, Pure)

// Effect represents the side effects of an instruction
type Effect interface {
	EffectKind() string
}

// MemoryEffectType categorizes memory access patterns
type MemoryEffectType string

const (
	MemoryEffectRead     MemoryEffectType = "read"
	MemoryEffectWrite    MemoryEffectType = "write"
	MemoryEffectAllocate MemoryEffectType = "allocate"
)

// MemoryEffectOp represents a memory access
type MemoryEffectOp struct {
	Type     MemoryEffectType
	Address  *Value // nil when the accessed location is unknown
	Volatile bool
}

func (m *MemoryEffectOp) EffectKind() string { return "memory" }

// ThrowEffect marks an instruction that may transfer control out of the
// function abnormally (panic, trap, unwind)
type ThrowEffect struct{}

func (t *ThrowEffect) EffectKind() string { return "throw" }

// PureEffect indicates no side effects
type PureEffect struct{}

func (p *PureEffect) EffectKind() string { return "pure" }

// AllocaInstruction effects
func (i *AllocaInstruction) GetEffects() []Effect {
	return []Effect{&MemoryEffectOp{Type: MemoryEffectAllocate, Address: i.Result}}
}

// LoadInstruction effects
func (i *LoadInstruction) GetEffects() []Effect {
	return []Effect{&MemoryEffectOp{Type: MemoryEffectRead, Address: i.Address, Volatile: i.Volatile}}
}

// StoreInstruction effects
func (i *StoreInstruction) GetEffects() []Effect {
	return []Effect{&MemoryEffectOp{Type: MemoryEffectWrite, Address: i.Address, Volatile: i.Volatile}}
}

// AddrInstruction effects: a checked address computation traps out of range
func (i *AddrInstruction) GetEffects() []Effect {
	if i.Checked {
		return []Effect{&ThrowEffect{}}
	}
	return []Effect{&PureEffect{}}
}

// BinaryInstruction effects: division traps unless the divisor is a
// non-zero constant
func (i *BinaryInstruction) GetEffects() []Effect {
	if i.Op == OpDiv || i.Op == OpRem {
		if !i.Right.IsConst() || i.Right.Const.Bits == 0 {
			return []Effect{&ThrowEffect{}}
		}
	}
	return []Effect{&PureEffect{}}
}

// CompareInstruction effects
func (i *CompareInstruction) GetEffects() []Effect {
	return []Effect{&PureEffect{}}
}

// ConvertInstruction effects
func (i *ConvertInstruction) GetEffects() []Effect {
	return []Effect{&PureEffect{}}
}

// CallInstruction effects (depends on the function being called)
func (i *CallInstruction) GetEffects() []Effect {
	// Nothing is known about the callee: it may touch any memory
	effects := []Effect{
		&MemoryEffectOp{Type: MemoryEffectRead},
		&MemoryEffectOp{Type: MemoryEffectWrite},
	}
	if !i.NoUnwind {
		effects = append(effects, &ThrowEffect{})
	}
	return effects
}

// PhiInstruction effects
func (i *PhiInstruction) GetEffects() []Effect {
	return []Effect{&PureEffect{}}
}

// Terminator effects

// ReturnTerminator effects
func (t *ReturnTerminator) GetEffects() []Effect {
	return []Effect{&PureEffect{}}
}

// BranchTerminator effects
func (t *BranchTerminator) GetEffects() []Effect {
	return []Effect{&PureEffect{}}
}

// JumpTerminator effects
func (t *JumpTerminator) GetEffects() []Effect {
	return []Effect{&PureEffect{}}
}

// UnreachableTerminator effects
func (t *UnreachableTerminator) GetEffects() []Effect {
	return []Effect{&PureEffect{}}
}

// MayThrow reports whether inst may leave the function abnormally
func MayThrow(inst Instruction) bool {
	for _, e := range inst.GetEffects() {
		if _, ok := e.(*ThrowEffect); ok {
			return true
		}
	}
	return false
}

// IsVolatile reports whether inst performs a volatile memory access
func IsVolatile(inst Instruction) bool {
	for _, e := range inst.GetEffects() {
		if m, ok := e.(*MemoryEffectOp); ok && m.Volatile {
			return true
		}
	}
	return false
}

// IsPure reports whether inst has no side effects at all
func IsPure(inst Instruction) bool {
	for _, e := range inst.GetEffects() {
		if _, ok := e.(*PureEffect); !ok {
			return false
		}
	}
	return true
}

// WritesMemory reports whether inst may write memory
func WritesMemory(inst Instruction) bool {
	for _, e := range inst.GetEffects() {
		if m, ok := e.(*MemoryEffectOp); ok && m.Type == MemoryEffectWrite {
			return true
		}
	}
	return false
}
