// Package encoder implements the bytecode VM of spec.md §4.7: given a
// matched template and the instruction it matched, it walks the template's
// Bytecode program twice — once to size the instruction (CalcSize, used to
// fix label offsets before any bytes exist) and once to actually emit it
// (GenCode, run once offsets are known) — through the same interpreter so
// the two walks can never disagree about what the program does.
package encoder

import (
	"encoding/binary"
	"fmt"

	"github.com/keurnel/x86asm/internal/ea"
	"github.com/keurnel/x86asm/internal/expr"
	"github.com/keurnel/x86asm/internal/labels"
	"github.com/keurnel/x86asm/internal/parser"
	"github.com/keurnel/x86asm/internal/scan"
	"github.com/keurnel/x86asm/internal/sink"
	"github.com/keurnel/x86asm/internal/template"
)

// Options carries the per-instruction context the VM needs beyond the
// template and the parsed instruction itself.
type Options struct {
	Bits       int // 16, 32, or 64
	Store      labels.Store
	Here       func() (seg, off, sectionStart int64)
	CurrentSeg int64

	// TupleBytes scales an EVEX memory operand's displacement for the
	// compressed-disp8 form; nil for non-EVEX templates.
	TupleBytes func() int64

	// Length is the instruction's own byte length as already determined by
	// a prior CalcSize call. GenCode needs it to compute rel8/rel32
	// displacements (target − (here + Length)); CalcSize ignores it.
	Length int64
}

// CalcSize runs the bytecode program in length-counting mode. It still
// performs every side effect that influences length: EA resolution (via
// internal/ea, which already folds in the mode=2-on-forward-reference
// conservatism), REX/VEX/EVEX mode selection, and legacy-prefix counting.
// Returns -1 if the template does not apply in opts.Bits.
func CalcSize(tpl *template.Template, inst *parser.Instruction, opts Options) (int, error) {
	p := &program{tpl: tpl, inst: inst, opts: opts, calc: true}
	if err := p.run(); err != nil {
		if err == errModeMismatch {
			return -1, nil
		}
		return 0, err
	}
	return p.length(), nil
}

// GenCode runs the same program in emission mode, writing through out.
// Returns the number of bytes emitted.
func GenCode(tpl *template.Template, inst *parser.Instruction, opts Options, out sink.Output) (int, error) {
	p := &program{tpl: tpl, inst: inst, opts: opts, calc: false}
	if err := p.run(); err != nil {
		return 0, err
	}
	rec := sink.Record{Type: sink.RAWDATA, Segment: opts.CurrentSeg, Data: p.bytes()}
	if len(rec.Data) == 0 {
		return 0, nil
	}
	if err := out.Emit(rec); err != nil {
		return 0, err
	}
	return len(rec.Data), nil
}

var errModeMismatch = fmt.Errorf("template does not apply in this mode")

// program is one interpretation of a Template.Bytecode program against one
// Instruction. The same struct drives both CalcSize (calc=true, byte
// buffers stay empty, only their lengths matter) and GenCode (calc=false,
// buffers carry real bytes).
type program struct {
	tpl  *template.Template
	inst *parser.Instruction
	opts Options
	calc bool

	legacy []byte
	prefix []byte // VEX/EVEX/REX bytes
	opcode []byte
	modrm  []byte
	disp   []byte
	imm    []byte

	rexW, rexR, rexX, rexB, needRex bool
}

func (p *program) length() int {
	return len(p.legacy) + len(p.prefix) + len(p.opcode) + len(p.modrm) + len(p.disp) + len(p.imm)
}

func (p *program) bytes() []byte {
	out := make([]byte, 0, p.length())
	out = append(out, p.legacy...)
	out = append(out, p.prefix...)
	out = append(out, p.opcode...)
	out = append(out, p.modrm...)
	out = append(out, p.disp...)
	out = append(out, p.imm...)
	return out
}

func (p *program) run() error {
	if p.tpl.Flags&template.FlagLong != 0 && p.opts.Bits != 64 {
		return errModeMismatch
	}
	if p.tpl.Flags&template.FlagNoLong != 0 && p.opts.Bits == 64 {
		return errModeMismatch
	}

	code := p.tpl.Bytecode
	pc := 0
	var eaRec *ea.Record

	for pc < len(code) {
		b := code[pc]
		pc++
		switch b {
		case template.BcEnd:
			return p.finalize(eaRec)

		case template.BcLit1:
			if pc >= len(code) {
				return fmt.Errorf("bytecode: BcLit1 with no literal byte")
			}
			p.opcode = append(p.opcode, code[pc])
			pc++

		case template.BcLit2:
			if pc+1 >= len(code) {
				return fmt.Errorf("bytecode: BcLit2 with no literal bytes")
			}
			p.opcode = append(p.opcode, code[pc], code[pc+1])
			pc += 2

		case template.BcPlusR0:
			if len(p.opcode) == 0 {
				return fmt.Errorf("bytecode: BcPlusR0 before any opcode byte")
			}
			op := p.operandAt(0)
			if op.Kind != parser.OperandRegister {
				return fmt.Errorf("bytecode: BcPlusR0 expects operand 0 to be a register")
			}
			info := scan.RegisterInfoFor(op.Register)
			p.opcode[len(p.opcode)-1] |= byte(info.Low3) & 7
			p.rexB = p.rexB || info.Extended
			p.needRex = p.needRex || info.Extended

		case template.BcForceRexW:
			p.rexW = true
			p.needRex = true

		case template.BcModRM01:
			if pc >= len(code) {
				return fmt.Errorf("bytecode: BcModRM01 with no reserved byte")
			}
			pc++ // reserved byte following the ModRM class marker
			r, err := p.buildModRM(0, 1, -1)
			if err != nil {
				return err
			}
			eaRec = r

		case template.BcModRM10:
			if pc >= len(code) {
				return fmt.Errorf("bytecode: BcModRM10 with no reserved byte")
			}
			pc++ // reserved byte following the ModRM class marker
			r, err := p.buildModRM(1, 0, -1)
			if err != nil {
				return err
			}
			eaRec = r

		case template.BcModRMDigit:
			if pc >= len(code) {
				return fmt.Errorf("bytecode: BcModRMDigit with no digit byte")
			}
			digit := int64(code[pc])
			pc++
			r, err := p.buildModRM(0, -1, digit)
			if err != nil {
				return err
			}
			eaRec = r

		case template.BcImm8Op0:
			if err := p.emitImmediate(0, 1); err != nil {
				return err
			}
		case template.BcImm8Op1:
			if err := p.emitImmediate(1, 1); err != nil {
				return err
			}
		case template.BcImm32Op0:
			if err := p.emitImmediate(0, 4); err != nil {
				return err
			}
		case template.BcImm32Op1:
			if err := p.emitImmediate(1, 4); err != nil {
				return err
			}
		case template.BcImm64Op0:
			if err := p.emitImmediate(0, 8); err != nil {
				return err
			}
		case template.BcImm64Op1:
			if err := p.emitImmediate(1, 8); err != nil {
				return err
			}

		case template.BcRel8Op0:
			if err := p.emitRelative(0, 1); err != nil {
				return err
			}
		case template.BcRel32Op0:
			if err := p.emitRelative(0, 4); err != nil {
				return err
			}

		case template.BcResb:
			if err := p.emitReserve(0); err != nil {
				return err
			}

		case template.BcShortJcc, template.BcShortJmp:
			// Marker only: the matcher already decided this candidate is a
			// short jump before CalcSize/GenCode ever run.

		case template.BcVEXMode:
			if pc+1 >= len(code) {
				return fmt.Errorf("bytecode: BcVEXMode with missing cm/wlp bytes")
			}
			p.emitVEX(code[pc], code[pc+1])
			pc += 2

		case template.BcEVEXMode:
			if pc+2 >= len(code) {
				return fmt.Errorf("bytecode: BcEVEXMode with missing cm/wlp/tuple bytes")
			}
			p.emitEVEX(code[pc], code[pc+1], code[pc+2])
			pc += 3

		default:
			return fmt.Errorf("bytecode: unrecognized dispatch byte %#o", b)
		}
	}
	return p.finalize(eaRec)
}

func (p *program) operandAt(i int) parser.Operand {
	if i < 0 || i >= len(p.inst.Operands) {
		return parser.Operand{}
	}
	return p.inst.Operands[i]
}

// buildModRM resolves the EA operand (eaIdx) against a reg field taken
// either from another operand's register (regOperandIdx >= 0) or a literal
// digit (digit >= 0, regOperandIdx < 0).
func (p *program) buildModRM(eaIdx, regOperandIdx int, digit int64) (*ea.Record, error) {
	regField := digit
	if regOperandIdx >= 0 {
		regOp := p.operandAt(regOperandIdx)
		if regOp.Kind != parser.OperandRegister {
			return nil, fmt.Errorf("bytecode: ModRM reg operand %d is not a register", regOperandIdx)
		}
		info := scan.RegisterInfoFor(regOp.Register)
		regField = info.Low3
		p.rexR = p.rexR || info.Extended
		p.needRex = p.needRex || info.Extended
		if info.Width == 64 {
			p.rexW = true
			p.needRex = true
		}
	}

	// A register-direct EA slot (mod=3) carries an operand value, not an
	// address component — a 64-bit register there needs REX.W the same way
	// the reg field does. Registers that only ever address memory (base,
	// index) get their width from the address size, never REX.W.
	if eaOp := p.operandAt(eaIdx); eaOp.Kind == parser.OperandRegister {
		if info := scan.RegisterInfoFor(eaOp.Register); info.Width == 64 {
			p.rexW = true
			p.needRex = true
		}
	}

	rec := ea.Resolve(p.operandAt(eaIdx), ea.Options{
		Bits:       p.opts.Bits,
		RegField:   regField,
		Store:      p.opts.Store,
		Here:       p.opts.Here,
		CurrentSeg: p.opts.CurrentSeg,
		TupleBytes: p.opts.TupleBytes,
	})
	if rec.Err != nil {
		return nil, rec.Err
	}

	p.rexB = p.rexB || rec.RexB
	p.rexX = p.rexX || rec.RexX
	p.rexR = p.rexR || rec.RexR
	p.needRex = p.needRex || rec.RexB || rec.RexX || rec.RexR

	p.modrm = append(p.modrm, rec.ModRM)
	if rec.HasSIB {
		p.modrm = append(p.modrm, rec.SIB)
	}
	if rec.DispLen > 0 {
		p.disp = append(p.disp, encodeSigned(rec.Disp, rec.DispLen)...)
	}
	return &rec, nil
}

// immediateValue evaluates an operand's token span. CalcSize never needs
// the resolved value (the bytecode class already fixes the immediate's
// width), so it tolerates a forward reference and returns 0; GenCode
// requires a fully resolved scalar.
func (p *program) immediateValue(tokens []scan.Token) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	if p.opts.Store == nil {
		return 0, nil
	}
	v, err := expr.NewEvaluator(tokens, p.opts.Store, p.opts.CurrentSeg).Evaluate()
	if err != nil {
		return 0, err
	}
	if v.IsUnknown() {
		if p.calc {
			return 0, nil
		}
		return 0, fmt.Errorf("immediate operand is still unresolved")
	}
	return v.RelocValue(), nil
}

func (p *program) emitImmediate(opIdx, size int) error {
	op := p.operandAt(opIdx)
	val, err := p.immediateValue(op.ImmediateTokens)
	if err != nil {
		return err
	}
	if size == 8 {
		p.rexW = true
		p.needRex = true
	}
	p.imm = append(p.imm, encodeSigned(val, size)...)
	return nil
}

// emitRelative computes a rel8/rel32 displacement: target − (here.offset +
// this instruction's total length). During CalcSize, Length isn't known
// yet (it's what we're computing), so the placeholder value 0 is written —
// length only depends on the class's fixed width, never the value.
func (p *program) emitRelative(opIdx, size int) error {
	if p.calc {
		p.imm = append(p.imm, make([]byte, size)...)
		return nil
	}

	op := p.operandAt(opIdx)
	val, err := p.immediateValue(op.ImmediateTokens)
	if err != nil {
		return err
	}

	_, here, _ := p.opts.Here()
	relBase := here + p.opts.Length
	delta := val - relBase
	if size == 1 && (delta < -128 || delta > 127) {
		return fmt.Errorf("short jump target out of range: %d", delta)
	}
	p.imm = append(p.imm, encodeSigned(delta, size)...)
	return nil
}

func (p *program) emitReserve(opIdx int) error {
	op := p.operandAt(opIdx)
	n, err := p.immediateValue(op.ImmediateTokens)
	if err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("resb count must not be negative")
	}
	p.imm = append(p.imm, make([]byte, n)...)
	return nil
}

func encodeSigned(v int64, size int) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	return append([]byte(nil), buf[:size]...)
}

// emitVEX writes a 2-byte VEX prefix (C5) when no rexX/rexB/rexW bit is
// needed, else the 3-byte form (C4); cm/wlp are the template's raw VEX
// payload bytes (map/vvvv-length/pp encoding lives in the table, not here).
func (p *program) emitVEX(cm, wlp byte) {
	if !p.rexX && !p.rexB && !p.rexW {
		p.prefix = append(p.prefix, 0xC5, wlp&0x7F|boolBit(!p.rexR, 7))
		return
	}
	rxb := boolBit(!p.rexR, 7) | boolBit(!p.rexX, 6) | boolBit(!p.rexB, 5)
	p.prefix = append(p.prefix, 0xC4, rxb|cm&0x1F, wlp)
}

// emitEVEX writes the fixed 4-byte EVEX prefix (62 + 3 payload bytes); the
// tuple byte only affects internal/ea's compressed-disp8 math, already
// applied through opts.TupleBytes before the VM ever sees the displacement.
func (p *program) emitEVEX(cm, wlp, _ byte) {
	rxb := boolBit(!p.rexR, 7) | boolBit(!p.rexX, 6) | boolBit(!p.rexB, 5)
	p.prefix = append(p.prefix, 0x62, rxb|cm&0x0F, wlp, 0x08)
}

func boolBit(b bool, shift uint) byte {
	if b {
		return 1 << shift
	}
	return 0
}

// finalize prepends the REX byte, if needed, now that every operand has
// been walked and every REX.* bit is known.
func (p *program) finalize(_ *ea.Record) error {
	if p.needRex && len(p.prefix) == 0 {
		rex := byte(0x40)
		if p.rexW {
			rex |= 0x08
		}
		if p.rexR {
			rex |= 0x04
		}
		if p.rexX {
			rex |= 0x02
		}
		if p.rexB {
			rex |= 0x01
		}
		p.prefix = append([]byte{rex}, p.prefix...)
	}
	return nil
}
