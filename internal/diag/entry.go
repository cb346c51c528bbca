package diag

import "fmt"

// Kind names a specific diagnostic condition. Kinds are grouped informally
// by prefix (Parse*, Eval*, EA*, Match*, Encode*, IO*, Config*) but the type
// itself carries no structure beyond being a short, stable identifier.
type Kind string

const (
	// Evaluator kinds.
	NonScalarOp          Kind = "non-scalar-op"
	NonScalarMul         Kind = "non-scalar-mul"
	NonScalarCompare     Kind = "non-scalar-compare"
	DivByZero            Kind = "div-by-zero"
	NonRelocatable       Kind = "non-relocatable"
	CannotResolveSegment Kind = "cannot-resolve-segment"
	InvalidWRT           Kind = "invalid-wrt"
	UndefinedSymbol      Kind = "undefined-symbol"
	NotDefinedBeforeUse  Kind = "not-defined-before-use"
	ExpressionTooLong    Kind = "expression-too-long"

	// Parser / EA kinds.
	BadSegmentBase       Kind = "bad-segment-base"
	ConflictingSegOver   Kind = "conflicting-seg-override"
	TooManyIncbinArgs    Kind = "too-many-incbin-args"
	BroadcastOnReg       Kind = "broadcast-on-reg"
	ConflictingPrefix    Kind = "conflicting-prefix"
	DuplicatePrefix      Kind = "duplicate-prefix"
	InvalidEAComponents  Kind = "invalid-ea-components"
	RIPRelativeWithMIB   Kind = "rip-relative-with-mib"
	Disp8OutOfRange      Kind = "disp8-out-of-range"

	// Template matcher kinds (spec.md MERR_* family).
	InvalOp        Kind = "inval-op"
	OpSizeMissing  Kind = "op-size-missing"
	OpSizeMismatch Kind = "op-size-mismatch"
	BrNotHere      Kind = "br-not-here"
	BrNumMismatch  Kind = "br-num-mismatch"
	MaskNotHere    Kind = "mask-not-here"
	DecoNotHere    Kind = "deco-not-here"
	BadCpu         Kind = "bad-cpu"
	BadMode        Kind = "bad-mode"
	BadHLE         Kind = "bad-hle"
	EncMismatch    Kind = "enc-mismatch"
	BadBND         Kind = "bad-bnd"
	BadRepNE       Kind = "bad-repne"
	RegsetSize     Kind = "regset-size"
	Regset         Kind = "regset"

	// Encoder kinds.
	BoundedDataOverflow Kind = "bounded-data-overflow"
	ShortJumpOutOfRange Kind = "short-jump-out-of-range"
	ZeroExtension       Kind = "zero-extension"
	BytecodeCorruption  Kind = "bytecode-corruption"

	// I/O kinds.
	OpenFailed         Kind = "open-failed"
	UnknownFileSize    Kind = "unknown-file-size"
	SeekFailed         Kind = "seek-failed"
	UnexpectedEOF      Kind = "unexpected-eof"
	BadSourceExtension Kind = "bad-source-extension"
	NotAFile           Kind = "not-a-file"

	// Configuration kinds.
	UnknownWarningName Kind = "unknown-warning"
	WarnStackEmpty     Kind = "warn-stack-empty"
)

// Entry is a single recorded diagnostic. Its core fields are immutable once
// created.
type Entry struct {
	Severity Severity
	Kind     Kind
	Phase    string
	Message  string
	Location Location
}

func (e Entry) String() string {
	return fmt.Sprintf("%s [%s] %s (%s): %s", e.Severity, e.Phase, e.Location, e.Kind, e.Message)
}

// Error is the result-carrying error value returned by pipeline stages, per
// the "replace raw error-return integers with a result type" design
// guidance: a severity, a kind, and a position travel together instead of a
// bare integer code.
type Error struct {
	Severity Severity
	Kind     Kind
	Location Location
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Location, e.Kind, e.Message)
}

// New builds an *Error. It is the normal way errors are constructed inside
// the scanner/evaluator/parser/encoder — never a bare fmt.Errorf for a
// condition that has a Kind.
func New(severity Severity, kind Kind, loc Location, format string, args ...any) *Error {
	return &Error{
		Severity: severity,
		Kind:     kind,
		Location: loc,
		Message:  fmt.Sprintf(format, args...),
	}
}
