package expr

import (
	"fmt"

	"github.com/keurnel/x86asm/internal/diag"
	"github.com/keurnel/x86asm/internal/labels"
	"github.com/keurnel/x86asm/internal/scan"
)

// maxRecursionDepth bounds the evaluator's nested-parenthesis recursion
// (spec.md §4.3's recursion-depth guard) so a malformed or adversarial
// expression fails with a diagnostic instead of overflowing the goroutine
// stack.
const maxRecursionDepth = 200

// Evaluator folds a token stream down to one Vector using the recursive-
// descent/precedence-climbing grammar of spec.md §4.3. It operates over one
// of two grammars selected by Critical: the critical grammar (used for
// TIMES counts, EQU right-hand sides, and anything that must be known on
// the first pass) treats an undefined symbol as a hard error, while the
// non-critical grammar (used for ordinary operands) tolerates a forward
// reference by folding it to an Unknown vector and flagging ForwardRef.
type Evaluator struct {
	tokens []scan.Token
	pos    int

	Labels      labels.Store
	Here        labels.HereLabel
	FloatParser FloatParser
	Diag        *diag.Sink

	CurrentSeg int64
	Critical   bool

	depth int
}

// NewEvaluator constructs an Evaluator over a pre-scanned token slice
// (typically the operand span the parser has already isolated). FloatParser
// defaults to DefaultFloatParser when nil.
func NewEvaluator(tokens []scan.Token, store labels.Store, currentSeg int64) *Evaluator {
	return &Evaluator{
		tokens:      tokens,
		Labels:      store,
		FloatParser: fallbackFloatParser,
		CurrentSeg:  currentSeg,
	}
}

func fallbackFloatParser(text string) (uint64, int, error) { return DefaultFloatParser(text) }

// WithCritical sets the critical/non-critical grammar switch and returns the
// Evaluator for chaining.
func (e *Evaluator) WithCritical(critical bool) *Evaluator {
	e.Critical = critical
	return e
}

// WithHere attaches the "$"/"$$" current-location resolver.
func (e *Evaluator) WithHere(here labels.HereLabel) *Evaluator {
	e.Here = here
	return e
}

// WithDiag attaches a diagnostic sink. A nil sink is safe (internal/diag's
// Sink methods are nil-receiver safe).
func (e *Evaluator) WithDiag(sink *diag.Sink) *Evaluator {
	e.Diag = sink
	return e
}

// ---------------------------------------------------------------------------
// Token cursor (mirrors the teacher's Parser current/peek/advance/expect)
// ---------------------------------------------------------------------------

func (e *Evaluator) current() scan.Token {
	if e.pos >= len(e.tokens) {
		return scan.Token{Kind: scan.EOL}
	}
	return e.tokens[e.pos]
}

func (e *Evaluator) advance() scan.Token {
	tok := e.current()
	if e.pos < len(e.tokens) {
		e.pos++
	}
	return tok
}

func (e *Evaluator) atEnd() bool { return e.pos >= len(e.tokens) }

func (e *Evaluator) isOp(r rune) bool {
	tok := e.current()
	return tok.Kind == scan.Operator && tok.IntVal == int64(r)
}

func (e *Evaluator) isOpCode(code int64) bool {
	tok := e.current()
	return tok.Kind == scan.Operator && tok.IntVal == code
}

func (e *Evaluator) isSpecial(word string) bool {
	tok := e.current()
	return tok.Kind == scan.Special && lowerASCII(tok.StrVal) == word
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func (e *Evaluator) loc() diag.Location {
	tok := e.current()
	return diag.Loc("", tok.Line, tok.Column)
}

func (e *Evaluator) fail(kind diag.Kind, format string, args ...any) Vector {
	e.Diag.Record(diag.New(diag.Nonfatal, kind, e.loc(), format, args...))
	return UnknownVector(false)
}

// Evaluate parses and folds the whole token stream, returning an error only
// for a structural problem (unexpected trailing tokens, unmatched
// parenthesis); semantic problems (division by zero, a non-scalar shift
// count) are reported through Diag and fold to an Unknown result so the
// caller can keep assembling and collect every diagnostic in one pass.
func (e *Evaluator) Evaluate() (Vector, error) {
	e.pos = 0
	e.depth = 0
	v := e.parseWrt()
	if !e.atEnd() {
		tok := e.current()
		return v, fmt.Errorf("unexpected token at line %d column %d", tok.Line, tok.Column)
	}
	return v, nil
}

// Simplify folds the token stream and, if the result is ReallySimple, also
// returns its integer value — the convenience spec.md §8 calls for to drive
// TIMES counts and INCBIN offset/length operands.
func Simplify(tokens []scan.Token, store labels.Store, currentSeg int64) (int64, bool, error) {
	ev := NewEvaluator(tokens, store, currentSeg).WithCritical(true)
	v, err := ev.Evaluate()
	if err != nil {
		return 0, false, err
	}
	if !v.IsReallySimple() {
		return 0, false, nil
	}
	return v.RelocValue(), true, nil
}

// ---------------------------------------------------------------------------
// Grammar, lowest to highest precedence
// ---------------------------------------------------------------------------

// parseWrt handles the "expr WRT segexpr" suffix, which binds looser than
// every operator (spec.md §4.3).
func (e *Evaluator) parseWrt() Vector {
	v := e.parseLogicalOr()
	for e.isSpecial("wrt") {
		e.advance()
		seg := e.parseLogicalOr()
		if seg.IsReallySimple() {
			v.HasWrt, v.WrtSeg = true, seg.RelocValue()
		} else if !seg.IsUnknown() {
			v.HasWrt, v.WrtSeg = true, seg.RelocSeg()
		}
	}
	return v
}

func (e *Evaluator) parseLogicalOr() Vector {
	v := e.parseLogicalXor()
	for e.isOpCode(scan.OpOr) {
		e.advance()
		rhs := e.parseLogicalXor()
		v = e.logicalOp(v, rhs, func(a, b bool) bool { return a || b })
	}
	return v
}

func (e *Evaluator) parseLogicalXor() Vector {
	v := e.parseLogicalAnd()
	for e.isOpCode(scan.OpXAnd) {
		e.advance()
		rhs := e.parseLogicalAnd()
		v = e.logicalOp(v, rhs, func(a, b bool) bool { return a != b })
	}
	return v
}

func (e *Evaluator) parseLogicalAnd() Vector {
	v := e.parseEquality()
	for e.isOpCode(scan.OpAnd) {
		e.advance()
		rhs := e.parseEquality()
		v = e.logicalOp(v, rhs, func(a, b bool) bool { return a && b })
	}
	return v
}

func (e *Evaluator) parseEquality() Vector {
	v := e.parseRelational()
	for {
		switch {
		case e.isOpCode(scan.OpEq):
			e.advance()
			rhs := e.parseRelational()
			v = e.compareOp(v, rhs, func(c int) bool { return c == 0 })
		case e.isOpCode(scan.OpNeq):
			e.advance()
			rhs := e.parseRelational()
			v = e.compareOp(v, rhs, func(c int) bool { return c != 0 })
		default:
			return v
		}
	}
}

func (e *Evaluator) parseRelational() Vector {
	v := e.parseBitOr()
	for {
		switch {
		case e.isOp('<'):
			e.advance()
			rhs := e.parseBitOr()
			v = e.compareOp(v, rhs, func(c int) bool { return c < 0 })
		case e.isOp('>'):
			e.advance()
			rhs := e.parseBitOr()
			v = e.compareOp(v, rhs, func(c int) bool { return c > 0 })
		case e.isOpCode(scan.OpLe):
			e.advance()
			rhs := e.parseBitOr()
			v = e.compareOp(v, rhs, func(c int) bool { return c <= 0 })
		case e.isOpCode(scan.OpGe):
			e.advance()
			rhs := e.parseBitOr()
			v = e.compareOp(v, rhs, func(c int) bool { return c >= 0 })
		default:
			return v
		}
	}
}

func (e *Evaluator) parseBitOr() Vector {
	v := e.parseBitXor()
	for e.isOp('|') {
		e.advance()
		rhs := e.parseBitXor()
		v = e.scalarBinOp(v, rhs, func(a, b int64) int64 { return a | b })
	}
	return v
}

func (e *Evaluator) parseBitXor() Vector {
	v := e.parseBitAnd()
	for e.isOp('^') {
		e.advance()
		rhs := e.parseBitAnd()
		v = e.scalarBinOp(v, rhs, func(a, b int64) int64 { return a ^ b })
	}
	return v
}

func (e *Evaluator) parseBitAnd() Vector {
	v := e.parseShift()
	for e.isOp('&') {
		e.advance()
		rhs := e.parseShift()
		v = e.scalarBinOp(v, rhs, func(a, b int64) int64 { return a & b })
	}
	return v
}

func (e *Evaluator) parseShift() Vector {
	v := e.parseAdditive()
	for {
		switch {
		case e.isOpCode(scan.OpShl):
			e.advance()
			rhs := e.parseAdditive()
			v = e.scalarBinOp(v, rhs, func(a, b int64) int64 { return a << uint(b) })
		case e.isOpCode(scan.OpShr):
			e.advance()
			rhs := e.parseAdditive()
			v = e.scalarBinOp(v, rhs, func(a, b int64) int64 { return int64(uint64(a) >> uint(b)) })
		case e.isOpCode(scan.OpSar):
			e.advance()
			rhs := e.parseAdditive()
			v = e.scalarBinOp(v, rhs, func(a, b int64) int64 { return a >> uint(b) })
		default:
			return v
		}
	}
}

// parseAdditive is where AddVectors/ScalarMult actually get exercised —
// relocatable values are legal operands of + and - (spec.md §4.2).
func (e *Evaluator) parseAdditive() Vector {
	v := e.parseMultiplicative()
	for {
		switch {
		case e.isOp('+'):
			e.advance()
			rhs := e.parseMultiplicative()
			v = AddVectors(v, rhs).Sum
		case e.isOp('-'):
			e.advance()
			rhs := e.parseMultiplicative()
			v = AddVectors(v, ScalarMult(rhs, -1, nil)).Sum
		default:
			return v
		}
	}
}

func (e *Evaluator) parseMultiplicative() Vector {
	v := e.parseUnary()
	for {
		switch {
		case e.isOp('*'):
			e.advance()
			rhs := e.parseUnary()
			v = e.multiply(v, rhs)
		case e.isOpCode(scan.OpSDiv):
			e.advance()
			rhs := e.parseUnary()
			v = e.divide(v, rhs, true)
		case e.isOp('/'):
			e.advance()
			rhs := e.parseUnary()
			v = e.divide(v, rhs, false)
		case e.isOpCode(scan.OpSMod):
			e.advance()
			rhs := e.parseUnary()
			v = e.modulo(v, rhs, true)
		case e.isOp('%'):
			e.advance()
			rhs := e.parseUnary()
			v = e.modulo(v, rhs, false)
		default:
			return v
		}
	}
}

func (e *Evaluator) parseUnary() Vector {
	switch {
	case e.isOp('+'):
		e.advance()
		return e.parseUnary()
	case e.isOp('-'):
		e.advance()
		return ScalarMult(e.parseUnary(), -1, nil)
	case e.isOp('~'):
		e.advance()
		v := e.parseUnary()
		n, ok := e.scalarOf(v)
		if !ok {
			return e.fail(diag.NonScalarOp, "bitwise NOT requires a scalar operand")
		}
		return Int(^n)
	case e.isOp('!'):
		e.advance()
		v := e.parseUnary()
		n, ok := e.scalarOf(v)
		if !ok {
			return e.fail(diag.NonScalarOp, "logical NOT requires a scalar operand")
		}
		if n == 0 {
			return Int(1)
		}
		return Int(0)
	case e.isSpecial("seg"):
		e.advance()
		v := e.parseUnary()
		out, ok := SegmentPart(v, e.CurrentSeg)
		if !ok {
			return e.fail(diag.CannotResolveSegment, "SEG operand is not relocatable")
		}
		return out
	default:
		return e.parsePrimary()
	}
}

func (e *Evaluator) parsePrimary() Vector {
	tok := e.current()

	switch tok.Kind {
	case scan.Number:
		e.advance()
		return Int(tok.IntVal)

	case scan.Float:
		e.advance()
		bits, _, err := e.FloatParser(tok.StrVal)
		if err != nil {
			return e.fail(diag.InvalOp, "malformed floating point literal %q: %v", tok.StrVal, err)
		}
		return Int(int64(bits))

	case scan.String:
		e.advance()
		return Int(packString(tok.StrVal))

	case scan.Register:
		e.advance()
		return Reg(tok.IntVal)

	case scan.Identifier, scan.ForcedIdentifier:
		e.advance()
		return e.resolveSymbol(tok.StrVal)

	case scan.Special:
		switch lowerASCII(tok.StrVal) {
		case "$":
			e.advance()
			return e.resolveHere(false)
		case "$$":
			e.advance()
			return e.resolveHere(true)
		case "strict":
			e.advance()
			return e.parseUnary()
		}
	}

	if tok.Kind == scan.Operator && tok.IntVal == int64('(') {
		e.advance()
		e.depth++
		if e.depth > maxRecursionDepth {
			e.Diag.Record(diag.New(diag.Fatal, diag.ExpressionTooLong, e.loc(), "expression nesting too deep"))
			e.depth--
			return UnknownVector(false)
		}
		v := e.parseWrt()
		if e.isOp(')') {
			e.advance()
		}
		e.depth--
		return v
	}

	// Nothing recognisable: consume the token so the caller doesn't spin,
	// and surface Unknown.
	e.advance()
	return UnknownVector(false)
}

// ---------------------------------------------------------------------------
// Symbol / here-label resolution
// ---------------------------------------------------------------------------

func (e *Evaluator) resolveSymbol(name string) Vector {
	if e.Labels == nil {
		return UnknownVector(true)
	}
	seg, off, defined := e.Labels.Lookup(name)
	if defined {
		return AddVectors(SegBaseTerm(seg, 1), Int(off)).Sum
	}
	if e.Labels.IsExtern(name) {
		return UnknownVector(false)
	}
	if e.Critical {
		e.Diag.Record(diag.New(diag.Fatal, diag.UndefinedSymbol, e.loc(), "undefined symbol %q in critical expression", name))
		return UnknownVector(false)
	}
	return UnknownVector(true)
}

func (e *Evaluator) resolveHere(sectionStart bool) Vector {
	if e.Here == nil {
		return UnknownVector(false)
	}
	seg, offset, start := e.Here()
	base := offset
	if sectionStart {
		base = start
	}
	return AddVectors(SegBaseTerm(seg, 1), Int(base)).Sum
}

// ---------------------------------------------------------------------------
// Scalar operator helpers
// ---------------------------------------------------------------------------

// scalarOf extracts an operand's integer value when it is ReallySimple,
// reporting ok=false (and leaving diagnostics to the caller) otherwise.
func (e *Evaluator) scalarOf(v Vector) (int64, bool) {
	if v.IsUnknown() {
		return 0, false
	}
	if !v.IsReallySimple() {
		return 0, false
	}
	return v.RelocValue(), true
}

func (e *Evaluator) scalarBinOp(a, b Vector, f func(int64, int64) int64) Vector {
	x, okX := e.scalarOf(a)
	y, okY := e.scalarOf(b)
	if !okX || !okY {
		if a.IsUnknown() || b.IsUnknown() {
			return UnknownVector(a.ForwardRef || b.ForwardRef)
		}
		return e.fail(diag.NonScalarOp, "operator requires scalar operands")
	}
	return Int(f(x, y))
}

func (e *Evaluator) multiply(a, b Vector) Vector {
	if a.IsUnknown() || b.IsUnknown() {
		return UnknownVector(a.ForwardRef || b.ForwardRef)
	}
	if x, ok := e.scalarOf(a); ok {
		hint := &Hint{}
		return ScalarMult(b, x, hint)
	}
	if y, ok := e.scalarOf(b); ok {
		hint := &Hint{}
		return ScalarMult(a, y, hint)
	}
	return e.fail(diag.NonScalarMul, "multiplication requires at least one scalar operand")
}

func (e *Evaluator) divide(a, b Vector, signed bool) Vector {
	x, okX := e.scalarOf(a)
	y, okY := e.scalarOf(b)
	if a.IsUnknown() || b.IsUnknown() {
		return UnknownVector(a.ForwardRef || b.ForwardRef)
	}
	if !okX || !okY {
		return e.fail(diag.NonScalarOp, "division requires scalar operands")
	}
	if y == 0 {
		return e.fail(diag.DivByZero, "division by zero")
	}
	if signed {
		return Int(x / y)
	}
	return Int(int64(uint64(x) / uint64(y)))
}

func (e *Evaluator) modulo(a, b Vector, signed bool) Vector {
	x, okX := e.scalarOf(a)
	y, okY := e.scalarOf(b)
	if a.IsUnknown() || b.IsUnknown() {
		return UnknownVector(a.ForwardRef || b.ForwardRef)
	}
	if !okX || !okY {
		return e.fail(diag.NonScalarOp, "modulo requires scalar operands")
	}
	if y == 0 {
		return e.fail(diag.DivByZero, "modulo by zero")
	}
	if signed {
		return Int(x % y)
	}
	return Int(int64(uint64(x) % uint64(y)))
}

func (e *Evaluator) compareOp(a, b Vector, f func(int) bool) Vector {
	x, okX := e.scalarOf(a)
	y, okY := e.scalarOf(b)
	if a.IsUnknown() || b.IsUnknown() {
		return UnknownVector(a.ForwardRef || b.ForwardRef)
	}
	if !okX || !okY {
		return e.fail(diag.NonScalarCompare, "comparison requires scalar operands")
	}
	c := 0
	switch {
	case x < y:
		c = -1
	case x > y:
		c = 1
	}
	if f(c) {
		return Int(1)
	}
	return Int(0)
}

func (e *Evaluator) logicalOp(a, b Vector, f func(bool, bool) bool) Vector {
	x, okX := e.scalarOf(a)
	y, okY := e.scalarOf(b)
	if a.IsUnknown() || b.IsUnknown() {
		return UnknownVector(a.ForwardRef || b.ForwardRef)
	}
	if !okX || !okY {
		return e.fail(diag.NonScalarOp, "logical operator requires scalar operands")
	}
	if f(x != 0, y != 0) {
		return Int(1)
	}
	return Int(0)
}

// packString folds a short string constant into a little-endian integer the
// way NASM treats 'ab' as a two-byte immediate; longer strings keep their
// low 8 bytes, matching the scalar width every Term.Coeff carries.
func packString(s string) int64 {
	var v uint64
	n := len(s)
	if n > 8 {
		n = 8
	}
	for i := 0; i < n; i++ {
		v |= uint64(s[i]) << (8 * uint(i))
	}
	return int64(v)
}
