package scan_test

import (
	"testing"

	"github.com/keurnel/x86asm/internal/scan"
)

func allTokens(input string) []scan.Token {
	s := scan.New(input, 1)
	var toks []scan.Token
	for {
		tok := s.Next()
		if tok.Kind == scan.EOL {
			break
		}
		toks = append(toks, tok)
	}
	return toks
}

func requireCount(t *testing.T, toks []scan.Token, n int) {
	t.Helper()
	if len(toks) != n {
		t.Fatalf("expected %d tokens, got %d: %+v", n, len(toks), toks)
	}
}

func TestScanner_EmptyLine(t *testing.T) {
	requireCount(t, allTokens(""), 0)
	requireCount(t, allTokens("   \t  "), 0)
}

func TestScanner_Comment(t *testing.T) {
	requireCount(t, allTokens("  ; a comment, with commas"), 0)
}

func TestScanner_Identifier(t *testing.T) {
	toks := allTokens("my_label")
	requireCount(t, toks, 1)
	if toks[0].Kind != scan.Identifier || toks[0].StrVal != "my_label" {
		t.Fatalf("unexpected token: %+v", toks[0])
	}
}

func TestScanner_ForcedIdentifier(t *testing.T) {
	toks := allTokens("$mov")
	requireCount(t, toks, 1)
	if toks[0].Kind != scan.ForcedIdentifier || toks[0].StrVal != "mov" {
		t.Fatalf("unexpected token: %+v", toks[0])
	}
}

func TestScanner_HereAndSectionStart(t *testing.T) {
	toks := allTokens("$ $$")
	requireCount(t, toks, 2)
	if toks[0].Kind != scan.Special || toks[0].StrVal != "$" {
		t.Fatalf("unexpected token 0: %+v", toks[0])
	}
	if toks[1].Kind != scan.Special || toks[1].StrVal != "$$" {
		t.Fatalf("unexpected token 1: %+v", toks[1])
	}
}

func TestScanner_MnemonicAndRegister(t *testing.T) {
	toks := allTokens("mov rax, rbx")
	requireCount(t, toks, 4)
	if toks[0].Kind != scan.Mnemonic || toks[0].StrVal != "mov" {
		t.Fatalf("unexpected mnemonic token: %+v", toks[0])
	}
	if toks[1].Kind != scan.Register || toks[1].StrVal != "rax" {
		t.Fatalf("unexpected register token: %+v", toks[1])
	}
	if toks[2].Kind != scan.Operator || toks[2].IntVal != int64(',') {
		t.Fatalf("unexpected comma token: %+v", toks[2])
	}
	if toks[3].Kind != scan.Register || toks[3].StrVal != "rbx" {
		t.Fatalf("unexpected register token: %+v", toks[3])
	}
}

func TestScanner_NumberBases(t *testing.T) {
	cases := []struct {
		text string
		want int64
	}{
		{"10", 10},
		{"0x1F", 31},
		{"10h", 16},
		{"0o17", 15},
		{"17q", 15},
		{"0b101", 5},
		{"101y", 5},
		{"0d42", 42},
		{"1_000", 1000},
	}
	for _, c := range cases {
		toks := allTokens(c.text)
		requireCount(t, toks, 1)
		if toks[0].Kind != scan.Number {
			t.Fatalf("%q: expected Number, got %+v", c.text, toks[0])
		}
		if toks[0].IntVal != c.want {
			t.Errorf("%q: expected %d, got %d", c.text, c.want, toks[0].IntVal)
		}
	}
}

func TestScanner_Float(t *testing.T) {
	toks := allTokens("3.14")
	requireCount(t, toks, 1)
	if toks[0].Kind != scan.Float || toks[0].StrVal != "3.14" {
		t.Fatalf("unexpected token: %+v", toks[0])
	}
}

func TestScanner_FloatWithExponent(t *testing.T) {
	toks := allTokens("1.5e10")
	requireCount(t, toks, 1)
	if toks[0].Kind != scan.Float || toks[0].StrVal != "1.5e10" {
		t.Fatalf("unexpected token: %+v", toks[0])
	}
}

func TestScanner_PrefixedHexDigitLetterE(t *testing.T) {
	// The 0x prefix form must accept a trailing hex digit 'e' without the
	// decimal exponent logic (reserved for the unprefixed path) kicking in.
	toks := allTokens("0x1e")
	requireCount(t, toks, 1)
	if toks[0].Kind != scan.Number || toks[0].IntVal != 0x1e {
		t.Fatalf("unexpected token: %+v", toks[0])
	}
}

func TestScanner_StringPlainQuotes(t *testing.T) {
	for _, src := range []string{`'hello'`, `"hello"`} {
		toks := allTokens(src)
		requireCount(t, toks, 1)
		if toks[0].Kind != scan.String || toks[0].StrVal != "hello" {
			t.Fatalf("%q: unexpected token: %+v", src, toks[0])
		}
	}
}

func TestScanner_BacktickEscapes(t *testing.T) {
	toks := allTokens("`a\\nb\\x41\\u0042`")
	requireCount(t, toks, 1)
	if toks[0].Kind != scan.String {
		t.Fatalf("unexpected token: %+v", toks[0])
	}
	want := "a\nbAB"
	if toks[0].StrVal != want {
		t.Fatalf("expected %q, got %q", want, toks[0].StrVal)
	}
}

func TestScanner_EffectiveAddressPunctuation(t *testing.T) {
	toks := allTokens("[rax+rbx*4+10]")
	var kinds []scan.Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	want := []scan.Kind{
		scan.Operator, scan.Register, scan.Operator, scan.Register,
		scan.Operator, scan.Number, scan.Operator, scan.Number, scan.Operator,
	}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %+v", len(want), len(kinds), toks)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("token %d: expected kind %v, got %v", i, want[i], kinds[i])
		}
	}
}

func TestScanner_TwoCharOperators(t *testing.T) {
	cases := []struct {
		text string
		want int64
	}{
		{"<<", scan.OpShl},
		{">>", scan.OpShr},
		{">>>", scan.OpSar},
		{"//", scan.OpSDiv},
		{"%%", scan.OpSMod},
		{"==", scan.OpEq},
		{"<>", scan.OpNeq},
		{"!=", scan.OpNeq},
		{"<=", scan.OpLe},
		{">=", scan.OpGe},
		{"&&", scan.OpAnd},
		{"^^", scan.OpXAnd},
		{"||", scan.OpOr},
	}
	for _, c := range cases {
		toks := allTokens(c.text)
		requireCount(t, toks, 1)
		if toks[0].Kind != scan.Operator || toks[0].IntVal != c.want {
			t.Errorf("%q: unexpected token: %+v", c.text, toks[0])
		}
	}
}

func TestScanner_BroadcastDecorator(t *testing.T) {
	toks := allTokens("{1to16}")
	requireCount(t, toks, 3)
	if toks[0].IntVal != int64('{') {
		t.Fatalf("unexpected open brace token: %+v", toks[0])
	}
	if toks[1].Kind != scan.Decorator || toks[1].StrVal != "1to16" {
		t.Fatalf("unexpected decorator token: %+v", toks[1])
	}
	if toks[2].IntVal != int64('}') {
		t.Fatalf("unexpected close brace token: %+v", toks[2])
	}
}

func TestScanner_OpmaskDecorator(t *testing.T) {
	toks := allTokens("{k1}{z}")
	requireCount(t, toks, 6)
	if toks[1].Kind != scan.OpmaskRegister {
		t.Fatalf("unexpected opmask token: %+v", toks[1])
	}
	if toks[4].Kind != scan.Decorator || toks[4].StrVal != "z" {
		t.Fatalf("unexpected decorator token: %+v", toks[4])
	}
}

func TestScanner_LineAndColumnTracking(t *testing.T) {
	s := scan.New("  mov", 42)
	tok := s.Next()
	if tok.Line != 42 {
		t.Errorf("expected line 42, got %d", tok.Line)
	}
	if tok.Column != 3 {
		t.Errorf("expected column 3, got %d", tok.Column)
	}
}
