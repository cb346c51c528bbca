// Package parser implements the recursive-descent instruction parser of
// spec.md §4.4: labels, prefixes (including TIMES), mnemonic recognition,
// and the full operand grammar (registers, immediates, effective addresses
// with MIB/RIP-relative forms, and EVEX decorator braces).
package parser

import "github.com/keurnel/x86asm/internal/scan"

// OperandKind discriminates the variant an Operand carries.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandRegister
	OperandImmediate
	OperandMemory
	OperandFarPointer

	// OperandRawString is a string literal operand to a DB-family directive
	// or an INCBIN filename (spec.md §4.4 step 4, §4.8): it carries its
	// characters verbatim rather than folding them into a scalar immediate
	// the way a general expression's string constant does.
	OperandRawString
)

// EAComponent is one sum-of-terms slot in an effective-address bracket
// expression: `[base + index*scale + offset]` (spec.md §3 "effective
// address"). Base/Index are register codes, meaningful only when
// HasBase/HasIndex is set (they stay 0 otherwise); Scale is 1 for an index
// register with no explicit `*N`, and 0 when there is no index.
type EAComponent struct {
	HasBase  bool
	Base     int64
	HasIndex bool
	Index    int64
	Scale    int64

	// OffsetTokens is the raw token span of the offset sub-expression,
	// handed to expr.NewEvaluator once the label store is known (the
	// parser itself stays expression-agnostic: spec.md §4.4 keeps parsing
	// and evaluation as separate passes).
	OffsetTokens []scan.Token

	RIPRelative bool

	HasSegOverride bool
	SegOverride    int64 // register code of the overriding segment register

	// HasMIBIndex/MIBIndex carry the index register of the compound MIB
	// syntax `[base + offset, index*scale]` (spec.md §4.4 "MIB compound
	// syntax", used by AMX/gather instructions): the comma splits the
	// bracket into a base+offset half and an index*scale half, parsed
	// independently and merged here.
	HasMIBIndex bool
	MIBIndex    int64
}

// Decorator is one `{...}` brace's contents: an opmask register, the zero-
// merge flag, a broadcast ratio, or a rounding/SAE tag (spec.md §4.1
// "decorators", consumed structurally by the parser but interpreted by
// internal/template/internal/ea).
type Decorator struct {
	Opmask      int64 // register code, 0 (k0, "no mask") when HasOpmask is false
	HasOpmask   bool
	Zero        bool
	Broadcast   string // "1to2", "1to4", "1to8", "1to16", or "" when absent
	RoundingSAE string // "rn-sae", "rd-sae", "ru-sae", "rz-sae", "sae", or ""
}

// Operand is one argument to an instruction. Exactly the fields matching
// Kind are meaningful; the rest are zero.
type Operand struct {
	Kind OperandKind

	Register int64 // OperandRegister

	// ImmediateTokens is the raw token span of an immediate expression,
	// deferred to expr.Evaluator the same way EAComponent.OffsetTokens is.
	ImmediateTokens []scan.Token

	// RawString is the literal character data of an OperandRawString
	// operand — a DB-family string item (emitted one element per
	// character) or an INCBIN filename.
	RawString string

	EA EAComponent // OperandMemory

	SizeHint int64 // 0 = unspecified; otherwise a byte count (1,2,4,8,10,16,32,64)
	Strict   bool  // STRICT keyword: suppress fuzzy operand-size retry
	Far      bool  // FAR keyword on a jump/call target
	Near     bool  // NEAR keyword
	Short    bool  // SHORT keyword (forces an 8-bit relative jump)

	Decorators []Decorator

	Line   int
	Column int
}

// Instruction is one parsed source line (spec.md §3 "Instruction"): zero or
// more labels, zero or more prefixes, an optional TIMES repeat count, a
// mnemonic, and its operand list.
type Instruction struct {
	Labels   []string
	Prefixes []string

	// TimesTokens is the raw token span of the TIMES repeat count
	// expression, nil when the line has no TIMES prefix.
	TimesTokens []scan.Token

	Mnemonic string
	Operands []Operand

	// NoSplit is a slot for the NOSPLIT keyword. ParseLine never sets it
	// and internal/ea does not read it, so NOSPLIT has no effect on
	// effective-address encoding.
	NoSplit bool

	Line   int
	Column int
}
