package template

import (
	"github.com/keurnel/x86asm/internal/parser"
	"github.com/keurnel/x86asm/internal/scan"
)

// Score ranks a match attempt's outcome (spec.md §4.6's MERR_*/MOK_* family,
// ordered worst to best so the matcher can keep "the most useful error").
type Score int

const (
	ScoreInvalOp Score = iota
	ScoreOpSizeMissing
	ScoreOpSizeMismatch
	ScoreBrNotHere
	ScoreMaskNotHere
	ScoreBadMode
	ScoreBadHLE
	ScoreBadBND
	ScoreRegset
	ScoreJump
	ScoreGood
)

// Result is one matches() outcome: a score, the template it was computed
// against, and — for ScoreOpSizeMissing — the set of sizes a later fuzzy
// retry could assign.
type Result struct {
	Template    *Template
	Score       Score
	FuzzySizes  []int
	IsShortJump bool
}

// Best scans every template registered for inst.Mnemonic and returns the
// highest-scoring Result (spec.md §4.6). When the best score is
// ScoreOpSizeMissing and at least one candidate offered a unique fuzzy
// size, the caller should apply Retry and call Best again.
func Best(table *Table, inst *parser.Instruction, bits int) Result {
	best := Result{Score: ScoreInvalOp}
	for _, tpl := range table.Candidates(inst.Mnemonic) {
		r := matches(tpl, inst, bits)
		if r.Score > best.Score {
			best = r
		}
	}
	return best
}

// Retry resolves a unique fuzzy size across every ScoreOpSizeMissing
// candidate and reports whether a single size could be determined.
func Retry(table *Table, inst *parser.Instruction, bits int) (int, bool) {
	sizes := map[int]bool{}
	for _, tpl := range table.Candidates(inst.Mnemonic) {
		r := matches(tpl, inst, bits)
		if r.Score != ScoreOpSizeMissing {
			continue
		}
		for _, s := range r.FuzzySizes {
			sizes[s] = true
		}
	}
	if len(sizes) != 1 {
		return 0, false
	}
	for s := range sizes {
		return s, true
	}
	return 0, false
}

func matches(tpl *Template, inst *parser.Instruction, bits int) Result {
	if len(inst.Operands) != len(tpl.Operands) {
		return Result{Template: tpl, Score: ScoreInvalOp}
	}

	if tpl.Flags.has(FlagLong) && bits != 64 {
		return Result{Template: tpl, Score: ScoreBadMode}
	}
	if tpl.Flags.has(FlagNoLong) && bits == 64 {
		return Result{Template: tpl, Score: ScoreBadMode}
	}

	for _, p := range inst.Prefixes {
		if (p == "xacquire" || p == "xrelease") && tpl.Flags.has(FlagNoHLE) {
			return Result{Template: tpl, Score: ScoreBadHLE}
		}
		if (p == "repne" || p == "repnz") && tpl.Flags.has(FlagBND) {
			return Result{Template: tpl, Score: ScoreBadBND}
		}
		if p == "bnd" && !tpl.Flags.has(FlagBND) {
			return Result{Template: tpl, Score: ScoreBadBND}
		}
	}

	var fuzzy []int
	opSizeMissing := false

	for i, op := range inst.Operands {
		spec := tpl.Operands[i]
		if !operandKindMatches(spec, op) {
			return Result{Template: tpl, Score: ScoreInvalOp}
		}

		if decoScore := checkDecorators(spec, op); decoScore != ScoreGood {
			return Result{Template: tpl, Score: decoScore}
		}

		// Size ambiguity (spec.md's fuzzy operand-size retry) is a property
		// of bare memory references lacking a byte/word/dword/qword prefix
		// ("inc [rax]"); a plain immediate has no independent size of its
		// own to be ambiguous about — the chosen template's width always
		// wins, the same way "mov rax, 1" needs no size keyword at all.
		if op.Kind == parser.OperandMemory {
			size := operandSize(op)
			switch {
			case size == 0 && spec.Size != 0 && !op.Strict:
				opSizeMissing = true
				fuzzy = append(fuzzy, spec.Size)
			case size != 0 && spec.Size != 0 && size != spec.Size:
				return Result{Template: tpl, Score: ScoreOpSizeMismatch}
			}
		} else if op.Kind == parser.OperandRegister {
			size := operandSize(op)
			if size != 0 && spec.Size != 0 && size != spec.Size {
				return Result{Template: tpl, Score: ScoreOpSizeMismatch}
			}
		}
	}

	if opSizeMissing {
		return Result{Template: tpl, Score: ScoreOpSizeMissing, FuzzySizes: fuzzy}
	}

	if isShortJumpCandidate(tpl) {
		return Result{Template: tpl, Score: ScoreJump, IsShortJump: true}
	}

	return Result{Template: tpl, Score: ScoreGood}
}

func operandKindMatches(spec OperandSpec, op parser.Operand) bool {
	switch op.Kind {
	case parser.OperandRegister:
		if spec.Accept&AcceptReg == 0 {
			return false
		}
		if spec.AnyRegClass {
			return true
		}
		return scan.RegisterInfoFor(op.Register).Class == spec.RegClass
	case parser.OperandMemory:
		return spec.Accept&AcceptMem != 0
	case parser.OperandImmediate:
		return spec.Accept&AcceptImm != 0
	}
	return false
}

func operandSize(op parser.Operand) int {
	if op.SizeHint != 0 {
		return int(op.SizeHint)
	}
	if op.Kind == parser.OperandRegister {
		return scan.RegisterInfoFor(op.Register).Width / 8
	}
	return 0
}

func checkDecorators(spec OperandSpec, op parser.Operand) Score {
	for _, d := range op.Decorators {
		if d.HasOpmask && !spec.AllowOpmask {
			return ScoreMaskNotHere
		}
		if d.Zero && !spec.AllowZero {
			return ScoreMaskNotHere
		}
		if d.Broadcast != "" {
			ok := false
			for _, b := range spec.AllowBroadcast {
				if b == d.Broadcast {
					ok = true
					break
				}
			}
			if !ok {
				return ScoreBrNotHere
			}
		}
		if d.RoundingSAE != "" && !spec.AllowRoundSAE {
			return ScoreMaskNotHere
		}
	}
	return ScoreGood
}

func isShortJumpCandidate(tpl *Template) bool {
	for _, b := range tpl.Bytecode {
		if b == 0370 || b == 0371 {
			return true
		}
	}
	return false
}

// JumpReach computes a short (8-bit) relative jump displacement, returning
// (disp, true) when it fits, or (0, false) when the long-form template must
// be used instead (spec.md §4.6 "jmp_match").
func JumpReach(from, to int64) (int8, bool) {
	d := to - from
	if d < -128 || d > 127 {
		return 0, false
	}
	return int8(d), true
}
