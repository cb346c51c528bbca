package template

import "github.com/keurnel/x86asm/internal/scan"

// Builtin returns a Table seeded with templates exercising the bytecode
// dispatch classes: legacy ModRM forms, 32- and 64-bit immediates, 8- and
// 32-bit relative targets, the short-jump pair, VEX and EVEX mode bytes,
// and RESB. It has no 8- or 16-bit immediate and no 16-bit relative form.
// It is not a complete x86 instruction database — spec.md's own on-disk
// table (insns.dat-equivalent) is explicitly out of scope; this is the
// in-memory seed the encoder exercises end to end.
func Builtin() *Table {
	t := NewTable()

	reg64 := OperandSpec{Accept: AcceptReg, Size: 8, RegClass: scan.ClassGPR64}
	reg32 := OperandSpec{Accept: AcceptReg, Size: 4, RegClass: scan.ClassGPR32}
	mem := OperandSpec{Accept: AcceptMem, Size: 0, AnyRegClass: true}
	mem64 := OperandSpec{Accept: AcceptMem, Size: 8, AnyRegClass: true}
	imm32 := OperandSpec{Accept: AcceptImm, Size: 4}
	imm64 := OperandSpec{Accept: AcceptImm, Size: 8}
	rel := OperandSpec{Accept: AcceptImm, Size: 0}

	// mov r64, r64 — plain ModRM form (\1 opcode, \100 ModRM): 0x89 is the
	// MR encoding, so rm is operand 0 (destination) and reg is operand 1
	// (source).
	t.Add(&Template{
		Mnemonic: "mov", Flags: FlagLong,
		Operands: []OperandSpec{reg64, reg64},
		Bytecode: []byte{BcLit1, 0x89, BcModRM01, 0, BcEnd},
	})
	// mov r64, imm64 — register folded into the opcode byte, 8-byte immediate.
	t.Add(&Template{
		Mnemonic: "mov", Flags: FlagLong,
		Operands: []OperandSpec{reg64, imm64},
		Bytecode: []byte{BcLit1, 0xB8, BcPlusR0, BcImm64Op1, BcEnd},
	})
	// add r/m64, r64 — ModRM against a memory or register destination; 0x01
	// is the MR encoding, same rm/reg assignment as mov above.
	t.Add(&Template{
		Mnemonic: "add", Flags: FlagLong,
		Operands: []OperandSpec{mem, reg64},
		Bytecode: []byte{BcLit1, 0x01, BcModRM01, 0, BcEnd},
	})
	t.Add(&Template{
		Mnemonic: "add", Flags: FlagLong,
		Operands: []OperandSpec{reg64, reg64},
		Bytecode: []byte{BcLit1, 0x01, BcModRM01, 0, BcEnd},
	})
	// inc r/m64 — ModRM with a fixed digit reg field (/0).
	t.Add(&Template{
		Mnemonic: "inc", Flags: FlagLong,
		Operands: []OperandSpec{reg64},
		Bytecode: []byte{BcLit1, 0xFF, BcModRMDigit, 0, BcEnd},
	})
	// push r64 — register folded into opcode, no ModRM.
	t.Add(&Template{
		Mnemonic: "push", Flags: FlagLong,
		Operands: []OperandSpec{reg64},
		Bytecode: []byte{BcLit1, 0x50, BcPlusR0, BcEnd},
	})
	t.Add(&Template{
		Mnemonic: "pop", Flags: FlagLong,
		Operands: []OperandSpec{reg64},
		Bytecode: []byte{BcLit1, 0x58, BcPlusR0, BcEnd},
	})
	// lea r64, m — ModRM memory-only source; 0x8D is the RM encoding, so reg
	// is operand 0 (destination register) and rm is operand 1 (address).
	t.Add(&Template{
		Mnemonic: "lea", Flags: FlagLong,
		Operands: []OperandSpec{reg64, mem},
		Bytecode: []byte{BcLit1, 0x8D, BcModRM10, 0, BcEnd},
	})
	// cmp r/m32, imm32 — /7 digit ModRM plus a 4-byte immediate.
	t.Add(&Template{
		Mnemonic: "cmp",
		Operands: []OperandSpec{reg32, imm32},
		Bytecode: []byte{BcLit1, 0x81, BcModRMDigit, 7, BcImm32Op1, BcEnd},
	})
	// ret — bare literal opcode, no operands.
	t.Add(&Template{
		Mnemonic: "ret",
		Operands: nil,
		Bytecode: []byte{BcLit1, 0xC3, BcEnd},
	})
	// nop
	t.Add(&Template{
		Mnemonic: "nop",
		Operands: nil,
		Bytecode: []byte{BcLit1, 0x90, BcEnd},
	})
	// int3
	t.Add(&Template{
		Mnemonic: "int3",
		Operands: nil,
		Bytecode: []byte{BcLit1, 0xCC, BcEnd},
	})
	// call rel32 — long relative form.
	t.Add(&Template{
		Mnemonic: "call",
		Operands: []OperandSpec{rel},
		Bytecode: []byte{BcLit1, 0xE8, BcRel32Op0, BcEnd},
	})
	// jmp — short (\371) and long relative forms. Best ranks the short
	// candidate (ScoreJump) below the long one (ScoreGood), so jmp always
	// encodes as E9 rel32; the matcher does not consult JumpReach.
	t.Add(&Template{
		Mnemonic: "jmp",
		Operands: []OperandSpec{rel},
		Bytecode: []byte{BcShortJmp, BcLit1, 0xEB, BcRel8Op0, BcEnd},
	})
	t.Add(&Template{
		Mnemonic: "jmp",
		Operands: []OperandSpec{rel},
		Bytecode: []byte{BcLit1, 0xE9, BcRel32Op0, BcEnd},
	})
	// je — conditional short jump (Jcc8 candidate, \370).
	t.Add(&Template{
		Mnemonic: "je",
		Operands: []OperandSpec{rel},
		Bytecode: []byte{BcShortJcc, BcLit1, 0x74, BcRel8Op0, BcEnd},
	})
	// db/dw/dd/… and incbin are not in this table at all: their operand
	// count and emitted length are data-dependent (a string's character
	// count, a file's byte range) in a way the fixed-arity bytecode VM
	// below was never built to dispatch on, so internal/assemble.Run
	// handles the whole DB-family/INCBIN grammar directly instead of
	// matching a template for it (spec.md §4.8 already frames INCBIN as
	// "a single-instruction loop" at the driver level).
	//
	// resb n — reserves n uninitialized bytes. RESW/RESD/RESQ/REST/RESO/
	// RESY/RESZ are normalized into this same form by the parser (spec.md
	// §4.4 "Normalization") before a template is ever matched.
	t.Add(&Template{
		Mnemonic: "resb",
		Operands: []OperandSpec{imm32},
		Bytecode: []byte{BcResb, BcEnd},
	})
	// vaddps xmm, xmm, xmm — VEX.128.0F.WIG form exercising the VEX mode
	// bytecode class.
	t.Add(&Template{
		Mnemonic: "vaddps", Flags: FlagVEX,
		Operands: []OperandSpec{
			{Accept: AcceptReg, Size: 16, RegClass: scan.ClassXMM},
			{Accept: AcceptReg, Size: 16, RegClass: scan.ClassXMM},
			{Accept: AcceptReg, Size: 16, RegClass: scan.ClassXMM},
		},
		Bytecode: []byte{BcVEXMode, 0x01, 0x00, BcLit1, 0x58, BcModRM10, 0, BcEnd},
	})
	// vaddps zmm{k1}{z}, zmm, zmm/m512/b32 — EVEX form exercising the EVEX
	// mode bytecode class plus opmask/zero/broadcast decorator checks.
	t.Add(&Template{
		Mnemonic: "vaddps", Flags: FlagEVEX,
		Operands: []OperandSpec{
			{Accept: AcceptReg, Size: 64, RegClass: scan.ClassZMM, AllowOpmask: true, AllowZero: true},
			{Accept: AcceptReg, Size: 64, RegClass: scan.ClassZMM},
			{Accept: AcceptReg | AcceptMem, Size: 64, RegClass: scan.ClassZMM, AnyRegClass: true, AllowBroadcast: []string{"1to16"}, AllowRoundSAE: true},
		},
		Bytecode: []byte{BcEVEXMode, 0x01, 0x00, 0x40, BcLit1, 0x58, BcModRM10, 0, BcEnd},
	})
	// mov m64, imm32 — REX.W C7 /0 with a 4-byte immediate.
	t.Add(&Template{
		Mnemonic: "mov", Flags: FlagLong,
		Operands: []OperandSpec{mem64, imm32},
		Bytecode: []byte{BcForceRexW, BcLit1, 0xC7, BcModRMDigit, 0, BcImm32Op1, BcEnd},
	})

	return t
}
