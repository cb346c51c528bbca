package template

// Bytecode dispatch codes (spec.md §4.7's octal dispatch table). Exported so
// internal/encoder's VM and internal/template's builtin seed table share one
// set of names instead of each re-deriving the octal values.
const (
	BcEnd        = 0000 // end of template
	BcLit1       = 0001 // next 1 byte is a literal opcode byte
	BcLit2       = 0002 // next 2 bytes are literal opcode bytes
	BcPlusR0     = 0010 // fold low 3 bits of operand 0's register into the last literal
	BcImm8Op0    = 0020 // 1-byte immediate from operand 0
	BcImm8Op1    = 0021 // 1-byte immediate from operand 1
	BcImm32Op0   = 0040 // 4-byte immediate from operand 0
	BcImm32Op1   = 0041 // 4-byte immediate from operand 1
	BcImm64Op0   = 0054 // 8-byte immediate from operand 0
	BcImm64Op1   = 0055 // 8-byte immediate from operand 1
	BcRel8Op0    = 0050 // 1-byte relative from operand 0
	BcRel32Op0   = 0070 // 4-byte relative from operand 0
	BcModRM01    = 0100 // ModRM from (operand 0 EA/reg, operand 1 reg)
	BcModRM10    = 0101 // ModRM from (operand 1 EA/reg, operand 0 reg)
	BcModRMDigit = 0102 // ModRM from (operand 0 EA/reg, a fixed digit)
	BcVEXMode    = 0260 // VEX mode: next 2 bytes are cm, wlp
	BcEVEXMode   = 0240 // EVEX mode: next 3 bytes are cm, wlp, tuple
	BcResb       = 0340 // RESB: reserve operand 0's offset uninitialized bytes
	BcShortJcc   = 0370 // short-jump candidate: Jcc8
	BcShortJmp   = 0371 // short-jump candidate: JMP8
	BcForceRexW  = 0324 // force REX.W
)
