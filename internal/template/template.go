// Package template implements the instruction-template model and matcher of
// spec.md §4.6: given a parsed Instruction, find the template whose operand
// shapes and mode flags it satisfies, producing the bytecode program
// internal/encoder runs to size and emit it.
package template

import "github.com/keurnel/x86asm/internal/scan"

// Flag is a template-level mode/behavior bit (spec.md §3's IF_* family).
type Flag uint32

const (
	FlagOptimizeOnly Flag = 1 << iota // IF_OPT: requires optimization enabled
	FlagLong                         // IF_LONG: valid in 64-bit mode
	FlagNoLong                       // IF_NOLONG: invalid in 64-bit mode
	FlagVEX                          // IF_VEX: must be encoded with a VEX prefix
	FlagEVEX                         // IF_EVEX: must be encoded with an EVEX prefix
	FlagBND                          // IF_BND: accepts a BND prefix
	FlagNoHLE                        // IF_NOHLE: xacquire/xrelease illegal
	FlagLock                         // IF_LOCK: accepts a LOCK prefix
	FlagMIB                          // IF_MIB: operand 0 is MIB-form memory
)

func (f Flag) has(bit Flag) bool { return f&bit != 0 }

// OperandKind is the set of operand forms a template slot accepts.
type OperandKind uint8

const (
	AcceptNone OperandKind = 0
	AcceptReg  OperandKind = 1 << iota
	AcceptMem
	AcceptImm
)

// OperandSpec constrains one operand slot of a Template.
type OperandSpec struct {
	Accept OperandKind

	// Size is the operand's required width in bytes; 0 means "infer from
	// context" (spec.md's IF_SM "size match", resolved by the fuzzy retry).
	Size int

	// RegClass restricts a register operand to exactly one scanner register
	// class; the zero value is ClassGPR8 and is matched like any other
	// class. Set AnyRegClass to accept a register of any class.
	RegClass    scan.RegisterClass
	AnyRegClass bool

	// AllowBroadcast lists the legal {1toN} ratios; nil means broadcasting
	// is not permitted on this operand.
	AllowBroadcast []string
	AllowOpmask    bool
	AllowZero      bool
	AllowRoundSAE  bool
}

// Template is one encodable shape for a mnemonic (spec.md §3 "Instruction
// template"): its operand constraints, mode flags, and the bytecode program
// that emits it.
type Template struct {
	Mnemonic string
	Operands []OperandSpec
	CPULevel int
	Flags    Flag
	Bytecode []byte
}

// Table is a mnemonic-keyed set of candidate templates, iterated in
// declaration order (spec.md §4.6 "iterate templates for its opcode").
type Table struct {
	byMnemonic map[string][]*Template
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{byMnemonic: make(map[string][]*Template)}
}

// Add registers a template under its mnemonic.
func (t *Table) Add(tpl *Template) {
	t.byMnemonic[tpl.Mnemonic] = append(t.byMnemonic[tpl.Mnemonic], tpl)
}

// Candidates returns every template declared for mnemonic, in order.
func (t *Table) Candidates(mnemonic string) []*Template {
	return t.byMnemonic[mnemonic]
}
