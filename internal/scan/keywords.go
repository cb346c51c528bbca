package scan

import "strings"

// registerNames maps every recognised register spelling (lower-case) to its
// internal register code. The scanner only needs to know that a word is a
// register and which code it carries — the encoder decides what REX/VEX bits
// that code implies.
var registerNames = buildRegisterTable()

func buildRegisterTable() map[string]int64 {
	names := [...]string{
		// 8-bit
		"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh",
		"spl", "bpl", "sil", "dil",
		"r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b",
		// 16-bit
		"ax", "cx", "dx", "bx", "sp", "bp", "si", "di",
		"r8w", "r9w", "r10w", "r11w", "r12w", "r13w", "r14w", "r15w",
		// 32-bit
		"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi",
		"r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d",
		// 64-bit
		"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
		"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
		// segment
		"es", "cs", "ss", "ds", "fs", "gs",
		// control/debug/test
		"cr0", "cr2", "cr3", "cr4", "cr8",
		"dr0", "dr1", "dr2", "dr3", "dr6", "dr7",
		// x87/mmx
		"st0", "st1", "st2", "st3", "st4", "st5", "st6", "st7",
		"mm0", "mm1", "mm2", "mm3", "mm4", "mm5", "mm6", "mm7",
		// sse/avx/avx512
		"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7",
		"ymm0", "ymm1", "ymm2", "ymm3", "ymm4", "ymm5", "ymm6", "ymm7",
		"zmm0", "zmm1", "zmm2", "zmm3", "zmm4", "zmm5", "zmm6", "zmm7",
		// opmask
		"k0", "k1", "k2", "k3", "k4", "k5", "k6", "k7",
		// pointers
		"rip", "eip",
	}
	out := make(map[string]int64, len(names))
	for i, n := range names {
		out[n] = int64(i)
	}
	return out
}

// mnemonics holds every recognised instruction mnemonic, lower-cased. The
// template matcher (internal/template) owns the actual operand-encoding
// tables; the scanner only needs to know a word names an instruction so it
// can tag it as Mnemonic rather than a bare Identifier.
var mnemonics = func() map[string]bool {
	names := [...]string{
		"mov", "movzx", "movsx", "movsxd", "lea", "push", "pop", "xchg",
		"add", "adc", "sub", "sbb", "mul", "imul", "div", "idiv",
		"inc", "dec", "neg", "not",
		"and", "or", "xor", "test", "cmp",
		"shl", "sal", "shr", "sar", "rol", "ror", "rcl", "rcr",
		"jmp", "je", "jz", "jne", "jnz", "jg", "jge", "jl", "jle",
		"ja", "jae", "jb", "jbe", "jo", "jno", "js", "jns", "jp", "jnp",
		"jcxz", "jecxz", "jrcxz",
		"call", "ret", "retn", "retf", "leave", "enter",
		"nop", "hlt", "cli", "sti", "cld", "std", "clc", "stc", "cmc",
		"syscall", "sysenter", "sysexit", "int", "int3", "into", "iret", "iretd", "iretq",
		"loop", "loope", "loopz", "loopne", "loopnz",
		"cmove", "cmovne", "cmovg", "cmovl", "cmovge", "cmovle",
		"cmova", "cmovae", "cmovb", "cmovbe",
		"sete", "setne", "setg", "setl", "setge", "setle",
		"seta", "setae", "setb", "setbe",
		"rep", "repe", "repz", "repne", "repnz",
		"movsb", "movsw", "movsd", "movsq",
		"stosb", "stosw", "stosd", "stosq",
		"lodsb", "lodsw", "lodsd", "lodsq",
		"scasb", "scasw", "scasd", "scasq",
		"cmpsb", "cmpsw", "cmpsd", "cmpsq",
		"cbw", "cwde", "cdqe", "cwd", "cdq", "cqo",
		"pushf", "pushfq", "popf", "popfq",
		"db", "dw", "dd", "dq", "dt", "do", "dy", "dz",
		"resb", "resw", "resd", "resq", "rest", "reso", "resy", "resz",
		"incbin", "equ",
		"movaps", "movups", "movdqa", "movdqu", "paddb", "paddw", "paddd", "paddq",
		"vmovaps", "vmovups", "vmovdqa", "vmovdqu32", "vmovdqu64",
		"vpaddd", "vpaddq", "vaddps", "vaddpd", "vfmadd132ps",
	}
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[strings.ToLower(n)] = true
	}
	return m
}()

// prefixNames are instruction prefixes handled as their own token kind so
// the parser can attach them to the instruction that follows (spec.md §4.4).
var prefixNames = map[string]bool{
	"lock": true, "rep": true, "repe": true, "repz": true,
	"repne": true, "repnz": true, "bnd": true, "xacquire": true, "xrelease": true,
	"rex": true, "a16": true, "a32": true, "a64": true, "o16": true, "o32": true, "o64": true,
	"wait": true, "fwait": true, "segcs": true, "segds": true, "seges": true,
	"segfs": true, "seggs": true, "segss": true,
}

// specialWords carries the grammar keywords that are neither registers,
// mnemonics, nor prefixes: segment-override and relocation keywords, size
// specifiers, and structural keywords recognised by the parser and
// evaluator.
var specialWords = map[string]bool{
	"wrt": true, "seg": true, "strict": true, "nosplit": true, "times": true,
	"byte": true, "word": true, "dword": true, "qword": true, "tword": true,
	"oword": true, "yword": true, "zword": true, "far": true, "near": true, "short": true,
	"to": true, "abs": true, "rel": true,
	"default": true, "bits": true, "section": true, "segment": true, "global": true,
	"extern": true, "common": true, "static": true,
}

// decoratorWords are the keywords legal inside a `{...}` EVEX decorator
// brace (spec.md §4.1 "decorators").
var decoratorWords = map[string]bool{
	"z": true, "1to2": true, "1to4": true, "1to8": true, "1to16": true,
	"rn-sae": true, "rd-sae": true, "ru-sae": true, "rz-sae": true, "sae": true,
}

// classify determines the Kind a scanned word should carry, given its
// lower-cased spelling. Registers and opmask registers win over mnemonics,
// which win over prefixes, which win over specials; anything left over is a
// plain Identifier.
func classify(lower string) (Kind, int64) {
	if code, ok := registerNames[lower]; ok {
		if lower[0] == 'k' && len(lower) == 2 && lower[1] >= '0' && lower[1] <= '7' {
			return OpmaskRegister, code
		}
		return Register, code
	}
	if mnemonics[lower] {
		return Mnemonic, 0
	}
	if prefixNames[lower] {
		return Prefix, 0
	}
	if specialWords[lower] {
		return Special, 0
	}
	return Identifier, 0
}
