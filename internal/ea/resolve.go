// Package ea implements the effective-address resolver of spec.md §4.5:
// it reduces a parsed operand's register/offset components down to a
// ModRM+SIB+displacement record carrying the REX/VSIB bits the encoder
// needs, independent of any particular instruction's bytecode program.
package ea

import (
	"fmt"

	"github.com/keurnel/x86asm/internal/expr"
	"github.com/keurnel/x86asm/internal/labels"
	"github.com/keurnel/x86asm/internal/parser"
	"github.com/keurnel/x86asm/internal/scan"
)

// Type discriminates the address form a Record resolves to.
type Type int

const (
	Invalid Type = iota
	Reg                 // register direct: mod=3
	Offset              // pure offset: moffs or RIP-relative
	Mem16               // 16-bit [BX/BP/SI/DI] addressing
	Mem3264             // 32/64-bit base/index/scale/disp addressing
	VSIBxmm
	VSIBymm
	VSIBzmm
)

// Record is the resolver's output: a populated ModRM/SIB/displacement
// description plus the REX/VSIB bits it contributes, or Invalid with a
// diagnostic explaining why.
type Record struct {
	Type Type

	ModRM   byte
	HasSIB  bool
	SIB     byte
	DispLen int // 0, 1, 2, or 4
	Disp    int64

	RIPRelative bool

	RexB, RexX, RexR bool

	// VSIBScale describes a vector-SIB index register's metadata
	// for the EVEX emitter (the SIB byte already carries the raw bits).
	VSIBScale int64

	// CompressedDisp8 is set when the displacement was scaled down by the
	// EVEX tuple size, per spec.md §4.5's compressed-disp8 rule.
	CompressedDisp8 bool

	Err error
}

// Options carries the per-call parameters the algorithm needs beyond the
// operand itself (spec.md §4.5 "Input").
type Options struct {
	Bits       int // 16, 32, or 64
	RegField   int64
	Store      labels.Store
	Here       func() (seg, off, sectionStart int64)
	CurrentSeg int64

	// TupleBytes scales an EVEX memory operand's displacement for the
	// compressed-disp8 form; nil when the instruction carries no EVEX
	// tuple type (ordinary legacy/VEX encodings skip compression).
	TupleBytes func() int64
}

func fail(kind string, format string, args ...any) Record {
	return Record{Type: Invalid, Err: fmt.Errorf(kind+": "+format, args...)}
}

// Resolve reduces one parsed operand down to a Record (spec.md §4.5).
func Resolve(op parser.Operand, opts Options) Record {
	if op.Kind == parser.OperandRegister {
		return resolveRegister(op, opts)
	}
	if op.Kind != parser.OperandMemory {
		return fail("ea", "operand is not a memory or register reference")
	}

	c := op.EA
	if c.RIPRelative && c.HasMIBIndex {
		return fail("rip-relative-with-mib", "RIP-relative addressing cannot be combined with a MIB index")
	}

	offsetVal, offsetKnown, forwardRef, err := evalOffset(c.OffsetTokens, opts)
	if err != nil {
		return fail("ea", "%v", err)
	}

	if c.RIPRelative {
		return Record{Type: Mem3264, RIPRelative: true, ModRM: modRM(0, byte(opts.RegField&7), 5), DispLen: 4, Disp: offsetVal}
	}

	if !c.HasBase && !c.HasIndex {
		return resolveOffsetOnly(offsetVal, offsetKnown, opts)
	}

	in := recordInput{HasBase: c.HasBase, Base: c.Base, HasIndex: c.HasIndex, Index: c.Index, Scale: c.Scale}

	if c.HasIndex && isVectorClass(c.Index) {
		return resolveVSIB(in, offsetVal, offsetKnown, forwardRef, opts)
	}

	if opts.Bits == 16 {
		return resolveMem16(in, offsetVal, offsetKnown, forwardRef)
	}

	return resolveMem3264(in, offsetVal, offsetKnown, forwardRef, opts)
}

func resolveRegister(op parser.Operand, opts Options) Record {
	info := scan.RegisterInfoFor(op.Register)
	rec := Record{
		Type:  Reg,
		RexB:  info.Extended,
		ModRM: modRM(3, byte(opts.RegField&7), byte(info.Low3)),
	}
	return rec
}

func isVectorClass(code int64) bool {
	c := scan.RegisterInfoFor(code).Class
	return c == scan.ClassXMM || c == scan.ClassYMM || c == scan.ClassZMM
}

// evalOffset evaluates an EA's offset token span against the label store,
// returning (value, known, forwardRef, error). An empty span is a known
// zero offset.
func evalOffset(tokens []scan.Token, opts Options) (int64, bool, bool, error) {
	if len(tokens) == 0 {
		return 0, true, false, nil
	}
	if opts.Store == nil {
		return 0, false, false, nil
	}
	ev := expr.NewEvaluator(tokens, opts.Store, opts.CurrentSeg)
	v, err := ev.Evaluate()
	if err != nil {
		return 0, false, false, err
	}
	if v.ForwardRef {
		return 0, false, true, nil
	}
	if !v.IsRelocatable(opts.CurrentSeg) {
		return 0, false, false, fmt.Errorf("effective-address offset is not relocatable")
	}
	return v.RelocValue(), true, false, nil
}

func resolveOffsetOnly(offsetVal int64, offsetKnown bool, opts Options) Record {
	return Record{
		Type:    Offset,
		DispLen: addressSizeBytes(opts.Bits),
		Disp:    offsetVal,
	}
}

func addressSizeBytes(bits int) int {
	switch bits {
	case 16:
		return 2
	case 32:
		return 4
	default:
		return 8
	}
}

func modRM(mod, reg, rm byte) byte {
	return (mod << 6) | ((reg & 7) << 3) | (rm & 7)
}

func sib(scale, index, base byte) byte {
	return (scale << 6) | ((index & 7) << 3) | (base & 7)
}

// scaleEncoding maps a SIB scale factor (1,2,4,8) to its 2-bit field.
func scaleEncoding(n int64) (byte, error) {
	switch n {
	case 1:
		return 0, nil
	case 2:
		return 1, nil
	case 4:
		return 2, nil
	case 8:
		return 3, nil
	}
	return 0, fmt.Errorf("scale factor %d is not one of 1, 2, 4, 8", n)
}
