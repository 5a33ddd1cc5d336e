package fusion

import (
	"loopfuse/internal/errors"
)

// CanBeFused reports whether c2 can be fused into c1
func CanBeFused(c1, c2 *Candidate) bool {
	return CheckFusion(c1, c2) == nil
}

// CheckFusion returns why c2 cannot be fused into c1, or nil when both
// loops evolve the same way, touch disjoint memory and c1 exits straight
// into c2's preheader
func CheckFusion(c1, c2 *Candidate) *Reason {
	if why := SameEvolution(c1, c2); why != nil {
		return why
	}
	if Dependent(c1, c2) {
		return reasonf(errors.ErrorDependent,
			"loops access a common memory location: writes %s, %s; reads %s, %s",
			&c1.Writes, &c2.Writes, &c1.Reads, &c2.Reads)
	}
	if !Adjacent(c1, c2) {
		return reasonf(errors.ErrorNotAdjacent,
			"loops are not adjacent: exit %s is not preheader %s", c1.Exit.Label, c2.Preheader.Label)
	}
	return nil
}

// SameEvolution compares stop, step, step operation and start, in that
// order. Bounds must be of the same kind; constants compare by type and
// bits, variables by identity.
func SameEvolution(c1, c2 *Candidate) *Reason {
	i1, i2 := &c1.Induction, &c2.Induction

	if why := sameBound(i1.Stop, i2.Stop, errors.ErrorStopMismatch, errors.ErrorStopKindMismatch); why != nil {
		return why
	}
	if why := sameBound(i1.Advance, i2.Advance, errors.ErrorAdvanceMismatch, errors.ErrorAdvanceKindMismatch); why != nil {
		return why
	}
	if i1.AdvanceOp != i2.AdvanceOp {
		return reasonf(errors.ErrorAdvanceOpMismatch,
			"loop advance operations are not the same: %s, %s", i1.AdvanceOp, i2.AdvanceOp)
	}
	if why := sameBound(i1.Start, i2.Start, errors.ErrorStartMismatch, errors.ErrorStartKindMismatch); why != nil {
		return why
	}
	return nil
}

func sameBound(b1, b2 Bound, valueCode, kindCode string) *Reason {
	switch {
	case b1.Const != nil && b2.Const != nil:
		if !b1.Const.Equal(b2.Const) {
			return reasonf(valueCode, "%s: %s, %s", lowerFirst(errors.GetErrorDescription(valueCode)), b1, b2)
		}
	case b1.Var != nil && b2.Var != nil:
		if b1.Var != b2.Var {
			return reasonf(valueCode, "%s: %s, %s", lowerFirst(errors.GetErrorDescription(valueCode)), b1, b2)
		}
	default:
		return reasonf(kindCode, "%s: %s, %s", lowerFirst(errors.GetErrorDescription(kindCode)), b1, b2)
	}
	return nil
}

// Dependent reports whether a location written by one loop is read or
// written by the other
func Dependent(c1, c2 *Candidate) bool {
	return c1.Writes.Intersects(&c2.Reads) ||
		c1.Writes.Intersects(&c2.Writes) ||
		c2.Writes.Intersects(&c1.Reads)
}

// Adjacent reports whether c1's exit block is c2's preheader
func Adjacent(c1, c2 *Candidate) bool {
	return c1.Exit == c2.Preheader
}

func lowerFirst(s string) string {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return s
	}
	return string(s[0]+'a'-'A') + s[1:]
}
