package errors

// Diagnostic codes for the loop fusion pass
// These codes are used in diagnostic lines, editor diagnostics and
// documentation to identify why a loop was or was not fused.
//
// Code ranges:
// F0001-F0099: Candidate build failures (the loop is not a candidate)
// F0100-F0199: Legality failures (two candidates cannot be fused)
// F0200-F0299: Transformation notes and warnings
// F0900-F0999: Reserved for tooling errors

const (
	// Candidate build failures (F0001-F0099)

	// F0001: An instruction of the loop may throw
	ErrorMayThrow = "F0001"

	// F0002: The loop performs a volatile load or store
	ErrorVolatileAccess = "F0002"

	// F0003: No unique preheader or no unique exit block
	ErrorNoSingleEntryExit = "F0003"

	// F0004: The loop carries the parallel annotation
	ErrorAnnotatedParallel = "F0004"

	// F0005: Header, latch or pre-exit block cannot be determined
	ErrorMissingLoopBlocks = "F0005"

	// F0006: Preheader, header, pre-exit, latch and exit are not distinct
	ErrorLoopBlocksNotDistinct = "F0006"

	// F0007: The header or the exit block starts with phi nodes
	ErrorLoopPhi = "F0007"

	// F0010: No load precedes the loop comparison
	ErrorNoInductionVariable = "F0010"

	// F0011: The loop bound is neither a constant nor a variable
	ErrorStopNotResolved = "F0011"

	// F0012: The induction variable is never stored inside the loop
	ErrorInductionNotStored = "F0012"

	// F0013: The start value is neither a constant nor a variable
	ErrorStartNotResolved = "F0013"

	// F0014: The step is neither a constant nor a variable
	ErrorAdvanceNotResolved = "F0014"

	// Legality failures (F0100-F0199)

	// F0100: Loop bounds differ
	ErrorStopMismatch = "F0100"

	// F0101: One bound is a constant, the other a variable
	ErrorStopKindMismatch = "F0101"

	// F0102: Steps differ
	ErrorAdvanceMismatch = "F0102"

	// F0103: One step is a constant, the other a variable
	ErrorAdvanceKindMismatch = "F0103"

	// F0104: Step operations differ
	ErrorAdvanceOpMismatch = "F0104"

	// F0105: Start values differ
	ErrorStartMismatch = "F0105"

	// F0106: One start value is a constant, the other a variable
	ErrorStartKindMismatch = "F0106"

	// F0107: The loops touch a common memory location
	ErrorDependent = "F0107"

	// F0108: The first loop does not exit into the second loop's preheader
	ErrorNotAdjacent = "F0108"

	// F0109: The second loop's preheader holds code that cannot be hoisted
	ErrorPreheaderNotRelocatable = "F0109"

	// Transformation notes and warnings (F0200-F0299)

	// F0200: Two loops were fused
	NoteFused = "F0200"

	// W0201: A preheader instruction was dropped instead of hoisted
	WarningDroppedInstruction = "W0201"
)

// GetErrorDescription returns a human-readable description of the code
func GetErrorDescription(code string) string {
	switch code {
	case ErrorMayThrow:
		return "Loop contains an instruction that may throw"
	case ErrorVolatileAccess:
		return "Loop contains a volatile memory access"
	case ErrorNoSingleEntryExit:
		return "Loop does not have a single entry and a single exit"
	case ErrorAnnotatedParallel:
		return "Loop is annotated parallel"
	case ErrorMissingLoopBlocks:
		return "Header, latch or pre-exit block is not available"
	case ErrorLoopBlocksNotDistinct:
		return "Loop blocks are not in canonical form"
	case ErrorLoopPhi:
		return "Loop header or exit block has phi nodes"
	case ErrorNoInductionVariable:
		return "Loop does not have an induction variable"
	case ErrorStopNotResolved:
		return "Loop stop is not a constant or a variable"
	case ErrorInductionNotStored:
		return "Loop induction variable is never stored in the loop"
	case ErrorStartNotResolved:
		return "Loop start is not a constant or a variable"
	case ErrorAdvanceNotResolved:
		return "Loop advance is not a constant or a variable"
	case ErrorStopMismatch:
		return "Loop stops are not equal"
	case ErrorStopKindMismatch:
		return "Loop stops are not the same kinds of values"
	case ErrorAdvanceMismatch:
		return "Loop advances are not equal"
	case ErrorAdvanceKindMismatch:
		return "Loop advances are not the same kinds of values"
	case ErrorAdvanceOpMismatch:
		return "Loop advance operations are not the same"
	case ErrorStartMismatch:
		return "Loop starts are not equal"
	case ErrorStartKindMismatch:
		return "Loop starts are not the same kinds of values"
	case ErrorDependent:
		return "Loops access a common memory location"
	case ErrorNotAdjacent:
		return "Loops are not adjacent"
	case ErrorPreheaderNotRelocatable:
		return "Preheader of the second loop cannot be hoisted"
	case NoteFused:
		return "Loops were fused"
	case WarningDroppedInstruction:
		return "Preheader instruction was dropped during fusion"
	default:
		return "Unknown diagnostic code"
	}
}

// IsWarning returns true if the code represents a warning
func IsWarning(code string) bool {
	return code != "" && code[0] == 'W'
}

// IsNote returns true if the code reports a successful transformation
func IsNote(code string) bool {
	return code >= "F0200" && code < "F0300"
}

// GetErrorCategory returns the category of the diagnostic based on its code
func GetErrorCategory(code string) string {
	switch {
	case code == "":
		return "Unknown"
	case code[0] == 'W':
		return "Warning"
	case code >= "F0001" && code < "F0100":
		return "Candidate"
	case code >= "F0100" && code < "F0200":
		return "Legality"
	case code >= "F0200" && code < "F0300":
		return "Transformation"
	case code >= "F0900" && code < "F1000":
		return "Tooling"
	default:
		return "Unknown"
	}
}
