package scan

// RegisterClass groups a register code by the encoding family it belongs
// to — the pieces downstream (internal/ea, internal/encoder) need to turn a
// bare integer code into ModRM/REX/VEX bits.
type RegisterClass int

const (
	ClassGPR8 RegisterClass = iota
	ClassGPR16
	ClassGPR32
	ClassGPR64
	ClassSegment
	ClassControlDebug
	ClassX87
	ClassMMX
	ClassXMM
	ClassYMM
	ClassZMM
	ClassOpmask
	ClassPointer
)

// RegisterInfo is the metadata the scanner's flat register-code table
// carries implicitly via table position; exported here so other packages
// never need to re-derive it from a register's spelling.
type RegisterInfo struct {
	Name  string
	Class RegisterClass
	Width int   // bits
	Low3  int64 // low 3 bits of the code, fed into ModRM reg/rm or SIB base/index

	// Extended is REX.B/X/R (or VEX.vvvv's extension bit): true for r8-r15,
	// their sub-registers, and cr8.
	Extended bool

	// NeedsRexPresence marks spl/bpl/sil/dil: same Low3 (4-7) as
	// ah/ch/dh/bh, but selects the low-byte-of-a-32/64-bit-register form
	// only when a REX prefix is present (even REX.0 with no bits set),
	// rather than the legacy high-byte form.
	NeedsRexPresence bool

	// HighByte marks ah/ch/dh/bh: forbidden together with any REX prefix
	// byte, and with r8-r15 as the other operand (spec.md's `nohi`,
	// bytecode class \325).
	HighByte bool
}

// registerMeta is built in exact lockstep with buildRegisterTable's names
// list in keywords.go — same names, same order. A register added there
// needs an entry added here too.
var registerMeta = buildRegisterMeta()

func buildRegisterMeta() []RegisterInfo {
	entry := func(name string, class RegisterClass, width int, low3 int64, extended bool) RegisterInfo {
		return RegisterInfo{Name: name, Class: class, Width: width, Low3: low3, Extended: extended}
	}

	var out []RegisterInfo

	// 8-bit: al..bh share low3 0-3 (al-bl) and 4-7 (ah-bh, no REX); spl/bpl/
	// sil/dil reuse low3 4-7 but need a REX prefix present to pick the
	// low-byte-of-rsp/rbp/rsi/rdi form instead of ah/ch/dh/bh; r8b-r15b are
	// the REX.B-extended bank with their own low3 0-7.
	gpr8 := []string{"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh"}
	for i, n := range gpr8 {
		r := entry(n, ClassGPR8, 8, int64(i), false)
		if i >= 4 {
			r.HighByte = true
		}
		out = append(out, r)
	}
	gpr8Rex := []string{"spl", "bpl", "sil", "dil"}
	for i, n := range gpr8Rex {
		r := entry(n, ClassGPR8, 8, int64(i+4), false)
		r.NeedsRexPresence = true
		out = append(out, r)
	}
	gpr8Ext := []string{"r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b"}
	for i, n := range gpr8Ext {
		out = append(out, entry(n, ClassGPR8, 8, int64(i), true))
	}

	appendPlainBank := func(names []string, class RegisterClass, width int) {
		for i, n := range names[:8] {
			out = append(out, entry(n, class, width, int64(i), false))
		}
		for i, n := range names[8:] {
			out = append(out, entry(n, class, width, int64(i), true))
		}
	}
	appendPlainBank([]string{
		"ax", "cx", "dx", "bx", "sp", "bp", "si", "di",
		"r8w", "r9w", "r10w", "r11w", "r12w", "r13w", "r14w", "r15w",
	}, ClassGPR16, 16)
	appendPlainBank([]string{
		"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi",
		"r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d",
	}, ClassGPR32, 32)
	appendPlainBank([]string{
		"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
		"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
	}, ClassGPR64, 64)

	for i, n := range []string{"es", "cs", "ss", "ds", "fs", "gs"} {
		out = append(out, entry(n, ClassSegment, 16, int64(i), false))
	}
	ctrlDebugNums := []int64{0, 2, 3, 4, 8, 0, 1, 2, 3, 6, 7}
	for i, n := range []string{"cr0", "cr2", "cr3", "cr4", "cr8", "dr0", "dr1", "dr2", "dr3", "dr6", "dr7"} {
		num := ctrlDebugNums[i]
		out = append(out, entry(n, ClassControlDebug, 64, num&7, num >= 8))
	}
	for i, n := range []string{"st0", "st1", "st2", "st3", "st4", "st5", "st6", "st7"} {
		out = append(out, entry(n, ClassX87, 80, int64(i), false))
	}
	for i, n := range []string{"mm0", "mm1", "mm2", "mm3", "mm4", "mm5", "mm6", "mm7"} {
		out = append(out, entry(n, ClassMMX, 64, int64(i), false))
	}
	for i, n := range []string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7"} {
		out = append(out, entry(n, ClassXMM, 128, int64(i), false))
	}
	for i, n := range []string{"ymm0", "ymm1", "ymm2", "ymm3", "ymm4", "ymm5", "ymm6", "ymm7"} {
		out = append(out, entry(n, ClassYMM, 256, int64(i), false))
	}
	for i, n := range []string{"zmm0", "zmm1", "zmm2", "zmm3", "zmm4", "zmm5", "zmm6", "zmm7"} {
		out = append(out, entry(n, ClassZMM, 512, int64(i), false))
	}
	for i, n := range []string{"k0", "k1", "k2", "k3", "k4", "k5", "k6", "k7"} {
		out = append(out, entry(n, ClassOpmask, 64, int64(i), false))
	}
	out = append(out, entry("rip", ClassPointer, 64, 0, false))
	out = append(out, entry("eip", ClassPointer, 32, 0, false))

	return out
}

// RegisterInfoFor returns the metadata for a register code produced by the
// scanner's Register/OpmaskRegister token kind.
func RegisterInfoFor(code int64) RegisterInfo {
	return registerMeta[code]
}

// RegisterCount is the number of distinct register codes the scanner
// recognises, for callers that want to size a lookup table.
func RegisterCount() int { return len(registerMeta) }
