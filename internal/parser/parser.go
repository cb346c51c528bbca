package parser

import (
	"fmt"

	"github.com/keurnel/x86asm/internal/scan"
)

var segmentRegisterWords = map[string]bool{
	"es": true, "cs": true, "ss": true, "ds": true, "fs": true, "gs": true,
}

// Parser walks a single line's token slice and builds one Instruction
// (spec.md §4.4). It follows the teacher's current/peek/advance/expect
// cursor idiom rather than a streaming callback style, since the grammar
// needs unbounded lookahead within one line (labels vs. bare mnemonics,
// TIMES counts, EA bracket contents).
type Parser struct {
	tokens []scan.Token
	pos    int

	// mnemonic is the line's mnemonic, set once ParseLine reads it, so
	// parseOperand can key its grammar off it (DB-family/INCBIN raw-string
	// operands parse differently from an ordinary immediate expression).
	mnemonic string
}

// dataListMnemonics accepts the extended operand grammar of spec.md §4.4
// step 4: raw strings (byte-per-character, not a scalar expression),
// floats, and general expressions, comma-separated. INCBIN shares the
// grammar for its filename string.
var dataListMnemonics = map[string]bool{
	"db": true, "dw": true, "dd": true, "dq": true,
	"dt": true, "do": true, "dy": true, "dz": true,
	"incbin": true,
}

// resWidths maps a wide RESx mnemonic to its element width in bytes; these
// are normalized to RESB by ParseLine (spec.md §4.4 "Normalization").
var resWidths = map[string]int64{
	"resw": 2, "resd": 4, "resq": 8, "rest": 10, "reso": 16, "resy": 32, "resz": 64,
}

// New constructs a Parser over one line's already-scanned tokens.
func New(tokens []scan.Token) *Parser {
	return &Parser{tokens: tokens}
}

func (p *Parser) current() scan.Token {
	if p.pos >= len(p.tokens) {
		return scan.Token{Kind: scan.EOL}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek() scan.Token {
	if p.pos+1 >= len(p.tokens) {
		return scan.Token{Kind: scan.EOL}
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) advance() scan.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) atEnd() bool { return p.pos >= len(p.tokens) || p.current().Kind == scan.EOL }

func (p *Parser) isOp(r rune) bool {
	tok := p.current()
	return tok.Kind == scan.Operator && tok.IntVal == int64(r)
}

func (p *Parser) isSpecialWord(word string) bool {
	tok := p.current()
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

// ParseLine parses one source line's tokens into an Instruction. A
// label-only or blank line returns an Instruction with an empty Mnemonic
// and zero Operands — callers check Mnemonic == "" to skip emission.
func (p *Parser) ParseLine() (*Instruction, error) {
	inst := &Instruction{}
	if !p.atEnd() {
		first := p.current()
		inst.Line, inst.Column = first.Line, first.Column
	}

	for {
		tok := p.current()
		if (tok.Kind == scan.Identifier || tok.Kind == scan.ForcedIdentifier) && p.peek().Kind == scan.Operator && p.peek().IntVal == int64(':') {
			p.advance()
			p.advance() // ':'
			inst.Labels = append(inst.Labels, tok.StrVal)
			continue
		}
		// Bare "name EQU expr" form: no colon, but the next token names the
		// EQU pseudo-mnemonic.
		if (tok.Kind == scan.Identifier || tok.Kind == scan.ForcedIdentifier) &&
			p.peek().Kind == scan.Mnemonic && lowerASCII(p.peek().StrVal) == "equ" {
			p.advance()
			inst.Labels = append(inst.Labels, tok.StrVal)
			continue
		}
		break
	}

	if p.isSpecialWord("times") {
		p.advance()
		start := p.pos
		for !p.atEnd() && p.current().Kind != scan.Mnemonic {
			p.advance()
		}
		inst.TimesTokens = p.tokens[start:p.pos]
	}

	for p.current().Kind == scan.Prefix {
		inst.Prefixes = append(inst.Prefixes, lowerASCII(p.advance().StrVal))
	}

	if p.atEnd() {
		return inst, nil
	}

	if p.current().Kind != scan.Mnemonic {
		return inst, fmt.Errorf("line %d: expected instruction mnemonic, found %q", inst.Line, p.current().StrVal)
	}
	inst.Mnemonic = lowerASCII(p.advance().StrVal)
	p.mnemonic = inst.Mnemonic

	for !p.atEnd() {
		op, err := p.parseOperand()
		if err != nil {
			return inst, err
		}
		inst.Operands = append(inst.Operands, op)
		if p.isOp(',') {
			p.advance()
			continue
		}
		break
	}

	if dataListMnemonics[inst.Mnemonic] {
		if err := validateDataOperands(inst); err != nil {
			return inst, err
		}
	}
	if width, ok := resWidths[inst.Mnemonic]; ok {
		if err := normalizeReserve(inst, width); err != nil {
			return inst, err
		}
	}

	return inst, nil
}

// validateDataOperands checks a DB-family/INCBIN instruction's operand
// list against spec.md §4.4 step 4 / §4.8: DB-family operands must each be
// a raw string or a general expression, while INCBIN accepts exactly one
// filename string followed by up to two numeric operands (offset, length).
func validateDataOperands(inst *Instruction) error {
	if inst.Mnemonic == "incbin" {
		if len(inst.Operands) == 0 || inst.Operands[0].Kind != OperandRawString {
			return fmt.Errorf("line %d: incbin requires a filename string", inst.Line)
		}
		if len(inst.Operands) > 3 {
			return fmt.Errorf("too-many-incbin-args: line %d: incbin accepts at most 3 operands (filename, offset, length)", inst.Line)
		}
		for _, op := range inst.Operands[1:] {
			if op.Kind != OperandImmediate {
				return fmt.Errorf("line %d: incbin offset/length must be plain expressions", inst.Line)
			}
		}
		return nil
	}
	if len(inst.Operands) == 0 {
		return fmt.Errorf("line %d: %s requires at least one operand", inst.Line, inst.Mnemonic)
	}
	for _, op := range inst.Operands {
		if op.Kind != OperandImmediate && op.Kind != OperandRawString {
			return fmt.Errorf("line %d: %s operand must be a number, string, or expression", inst.Line, inst.Mnemonic)
		}
	}
	return nil
}

// normalizeReserve rewrites a RESW/RESD/RESQ/REST/RESO/RESY/RESZ
// instruction into RESB by multiplying its count operand by the element
// width and folding any TIMES prefix into that same product (spec.md §4.4
// "Normalization"): `times 2 resd 3` becomes one `resb 24`.
func normalizeReserve(inst *Instruction, width int64) error {
	if len(inst.Operands) != 1 || inst.Operands[0].Kind != OperandImmediate {
		return fmt.Errorf("line %d: %s requires a single count operand", inst.Line, inst.Mnemonic)
	}
	op := &inst.Operands[0]

	tokens := append([]scan.Token{}, op.ImmediateTokens...)
	tokens = append(tokens,
		scan.Token{Kind: scan.Operator, IntVal: int64('*')},
		scan.Token{Kind: scan.Number, IntVal: width},
	)
	if len(inst.TimesTokens) > 0 {
		tokens = append(tokens, scan.Token{Kind: scan.Operator, IntVal: int64('*')})
		tokens = append(tokens, scan.Token{Kind: scan.Operator, IntVal: int64('(')})
		tokens = append(tokens, inst.TimesTokens...)
		tokens = append(tokens, scan.Token{Kind: scan.Operator, IntVal: int64(')')})
		inst.TimesTokens = nil
	}
	op.ImmediateTokens = tokens
	inst.Mnemonic = "resb"
	return nil
}

var sizeHints = map[string]int64{
	"byte": 1, "word": 2, "dword": 4, "qword": 8,
	"tword": 10, "oword": 16, "yword": 32, "zword": 64,
}

func (p *Parser) parseOperand() (Operand, error) {
	op := Operand{}
	tok := p.current()
	op.Line, op.Column = tok.Line, tok.Column

	for {
		switch {
		case p.isSpecialWord("strict"):
			op.Strict = true
			p.advance()
		case p.isSpecialWord("far"):
			op.Far = true
			p.advance()
		case p.isSpecialWord("near"):
			op.Near = true
			p.advance()
		case p.isSpecialWord("short"):
			op.Short = true
			p.advance()
		default:
			if p.current().Kind == scan.Special {
				if size, ok := sizeHints[lowerASCII(p.current().StrVal)]; ok {
					op.SizeHint = size
					p.advance()
					continue
				}
			}
			goto sizeLoopDone
		}
	}
sizeLoopDone:

	switch {
	case p.current().Kind == scan.Register:
		regTok := p.advance()
		op.Kind = OperandRegister
		op.Register = regTok.IntVal
	case p.isOp('['):
		ea, err := p.parseMemory()
		if err != nil {
			return op, err
		}
		op.Kind = OperandMemory
		op.EA = ea
	case dataListMnemonics[p.mnemonic] && p.current().Kind == scan.String:
		// DB-family/INCBIN raw string: kept as literal character data
		// rather than folded into a scalar the way a general expression's
		// string constant is (spec.md §4.4 step 4).
		strTok := p.advance()
		op.Kind = OperandRawString
		op.RawString = strTok.StrVal
	default:
		start := p.pos
		for !p.atEnd() && !p.isOp(',') && !p.isOp('{') {
			p.advance()
		}
		op.Kind = OperandImmediate
		op.ImmediateTokens = p.tokens[start:p.pos]
	}

	for p.isOp('{') {
		dec, err := p.parseDecorator()
		if err != nil {
			return op, err
		}
		op.Decorators = append(op.Decorators, dec)
	}

	return op, nil
}

// parseDecorator consumes one already-opened '{...}' brace. The scanner
// emits each piece inside a brace as one Decorator or OpmaskRegister token
// (spec.md §4.1), e.g. "{k1}{z}" is two braces, while "{1to4}" is one.
func (p *Parser) parseDecorator() (Decorator, error) {
	var dec Decorator
	p.advance() // '{'
	for !p.isOp('}') && !p.atEnd() {
		tok := p.current()
		switch tok.Kind {
		case scan.OpmaskRegister:
			dec.Opmask, dec.HasOpmask = tok.IntVal, true
			p.advance()
		case scan.Decorator:
			switch lowerASCII(tok.StrVal) {
			case "z":
				dec.Zero = true
			case "1to2", "1to4", "1to8", "1to16":
				dec.Broadcast = lowerASCII(tok.StrVal)
			default:
				dec.RoundingSAE = lowerASCII(tok.StrVal)
			}
			p.advance()
		case scan.Operator:
			p.advance() // any other operator inside the brace is skipped
		default:
			return dec, fmt.Errorf("line %d: malformed decorator", tok.Line)
		}
	}
	if p.isOp('}') {
		p.advance()
	} else {
		return dec, fmt.Errorf("unterminated decorator brace")
	}
	return dec, nil
}

// parseMemory parses the contents of a `[...]` effective-address bracket
// into an EAComponent (spec.md §3/§4.4): an optional segment override, a
// base register, an optional `index*scale` term, an offset sub-expression
// carried as a raw token span for later evaluation, or — when a top-level
// comma appears — the MIB compound syntax `[base + offset, index*scale]`.
func (p *Parser) parseMemory() (EAComponent, error) {
	var ea EAComponent
	p.advance() // '['

	if p.current().Kind == scan.Register && isSegmentRegister(p.current().StrVal) && p.peek().Kind == scan.Operator && p.peek().IntVal == int64(':') {
		ea.HasSegOverride, ea.SegOverride = true, p.advance().IntVal
		p.advance() // ':'
	}

	if p.hasTopLevelComma() {
		return p.parseMIBBracket(ea)
	}

	ea, err := p.parseEABody(ea)
	if err != nil {
		return ea, err
	}
	if p.isOp(']') {
		p.advance()
	} else {
		return ea, fmt.Errorf("unterminated effective address bracket")
	}
	return ea, nil
}

// hasTopLevelComma reports whether the bracket contents ahead of the
// current position contain a ',' before the matching ']' — the signal for
// the MIB compound syntax (spec.md §4.4 "MIB compound syntax"). EA brackets
// never nest, so a plain linear scan is enough.
func (p *Parser) hasTopLevelComma() bool {
	for i := p.pos; i < len(p.tokens); i++ {
		tok := p.tokens[i]
		switch {
		case tok.Kind == scan.EOL:
			return false
		case tok.Kind == scan.Operator && tok.IntVal == int64(']'):
			return false
		case tok.Kind == scan.Operator && tok.IntVal == int64(','):
			return true
		}
	}
	return false
}

// parseMIBBracket parses the MIB compound syntax `[base + offset,
// index*scale]`: the base+offset half and the index*scale half are each
// parsed with parseEABody, then merged into one EAComponent, validating
// that only the permitted fields are populated on each side (spec.md §4.4
// "MIB compound syntax") — the base half may not also carry an index or be
// RIP-relative, and the index half may carry nothing but a bare index with
// an optional scale.
func (p *Parser) parseMIBBracket(ea EAComponent) (EAComponent, error) {
	left, err := p.parseEABody(EAComponent{})
	if err != nil {
		return ea, err
	}
	if left.HasIndex || left.RIPRelative {
		return ea, fmt.Errorf("line %d: MIB base half may not contain an index register", p.current().Line)
	}

	if !p.isOp(',') {
		return ea, fmt.Errorf("line %d: expected ',' in MIB effective address", p.current().Line)
	}
	p.advance() // ','

	right, err := p.parseEABody(EAComponent{})
	if err != nil {
		return ea, err
	}
	if right.HasBase || right.RIPRelative || len(right.OffsetTokens) != 0 {
		return ea, fmt.Errorf("line %d: MIB index half may only contain index*scale", p.current().Line)
	}
	if !right.HasIndex {
		return ea, fmt.Errorf("line %d: MIB index half requires an index register", p.current().Line)
	}

	ea.HasBase, ea.Base = left.HasBase, left.Base
	ea.OffsetTokens = left.OffsetTokens
	ea.HasMIBIndex, ea.MIBIndex, ea.Scale = true, right.Index, right.Scale

	if p.isOp(']') {
		p.advance()
	} else {
		return ea, fmt.Errorf("unterminated effective address bracket")
	}
	return ea, nil
}

// parseEABody parses a base/index*scale/offset term run, starting at the
// current position, up to the next top-level ',' or the closing ']' — the
// shared loop behind the plain EA form and each half of a MIB bracket.
func (p *Parser) parseEABody(ea EAComponent) (EAComponent, error) {
	var offsetTokens []scan.Token
	sign := int64(1)

	flushOffsetTerm := func(terms []scan.Token) {
		if len(terms) == 0 {
			return
		}
		if sign < 0 {
			offsetTokens = append(offsetTokens, scan.Token{Kind: scan.Operator, IntVal: int64('-')})
		} else if len(offsetTokens) > 0 {
			offsetTokens = append(offsetTokens, scan.Token{Kind: scan.Operator, IntVal: int64('+')})
		}
		offsetTokens = append(offsetTokens, terms...)
	}

	for !p.isOp(']') && !p.isOp(',') && !p.atEnd() {
		if p.isOp('+') {
			sign = 1
			p.advance()
			continue
		}
		if p.isOp('-') {
			sign = -1
			p.advance()
			continue
		}

		if p.current().Kind == scan.Register {
			reg := p.advance()
			if isRIPRegister(reg.IntVal, reg.StrVal) {
				ea.RIPRelative = true
			} else if p.isOp('*') {
				p.advance()
				scale, err := p.parseScale()
				if err != nil {
					return ea, err
				}
				if ea.HasIndex {
					return ea, fmt.Errorf("line %d: effective address has more than one index register", reg.Line)
				}
				ea.HasIndex, ea.Index, ea.Scale = true, reg.IntVal, scale
			} else if !ea.HasBase {
				ea.HasBase, ea.Base = true, reg.IntVal
			} else if !ea.HasIndex {
				ea.HasIndex, ea.Index, ea.Scale = true, reg.IntVal, 1
			} else {
				return ea, fmt.Errorf("line %d: effective address has too many registers", reg.Line)
			}
			continue
		}

		// Anything else belongs to the constant offset sub-expression:
		// collect it as one term up to the next top-level +/-/,/].
		start := p.pos
		for !p.atEnd() && !p.isOp(']') && !p.isOp(',') && !p.isOp('+') && !p.isOp('-') {
			p.advance()
		}
		flushOffsetTerm(p.tokens[start:p.pos])
		sign = 1
	}

	ea.OffsetTokens = offsetTokens
	return ea, nil
}

func (p *Parser) parseScale() (int64, error) {
	tok := p.current()
	if tok.Kind != scan.Number {
		return 0, fmt.Errorf("line %d: expected a numeric scale factor", tok.Line)
	}
	p.advance()
	return tok.IntVal, nil
}

func isRIPRegister(code int64, name string) bool {
	return lowerASCII(name) == "rip"
}

func isSegmentRegister(name string) bool {
	return segmentRegisterWords[lowerASCII(name)]
}
