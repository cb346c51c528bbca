package encoder_test

import (
	"bytes"
	"testing"

	"github.com/keurnel/x86asm/internal/encoder"
	"github.com/keurnel/x86asm/internal/labels"
	"github.com/keurnel/x86asm/internal/parser"
	"github.com/keurnel/x86asm/internal/scan"
	"github.com/keurnel/x86asm/internal/sink"
	"github.com/keurnel/x86asm/internal/template"
)

func tokenize(t *testing.T, src string) []scan.Token {
	t.Helper()
	s := scan.New(src, 1)
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

func parseLine(t *testing.T, src string) *parser.Instruction {
	t.Helper()
	inst, err := parser.New(tokenize(t, src)).ParseLine()
	if err != nil {
		t.Fatalf("%q: %v", src, err)
	}
	return inst
}

func here() (int64, int64, int64) { return 0, 0, 0 }

func encode(t *testing.T, src string, bits int) []byte {
	t.Helper()
	inst := parseLine(t, src)
	table := template.Builtin()
	best := template.Best(table, inst, bits)
	if best.Score != template.ScoreGood && best.Score != template.ScoreJump {
		t.Fatalf("%q: no matching template, score=%v", src, best.Score)
	}

	opts := encoder.Options{Bits: bits, Store: labels.NewMapStore(), Here: here, CurrentSeg: 0}
	size, err := encoder.CalcSize(best.Template, inst, opts)
	if err != nil {
		t.Fatalf("%q: CalcSize: %v", src, err)
	}
	opts.Length = int64(size)

	buf := sink.NewBuffer(0, 64)
	n, err := encoder.GenCode(best.Template, inst, opts, buf)
	if err != nil {
		t.Fatalf("%q: GenCode: %v", src, err)
	}
	if n != size {
		t.Fatalf("%q: CalcSize=%d but GenCode emitted %d bytes", src, size, n)
	}
	return buf.Bytes
}

func TestEncode_MovRegReg(t *testing.T) {
	got := encode(t, "mov rax, rcx", 64)
	want := []byte{0x48, 0x89, 0xC8}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncode_MovRegImm64(t *testing.T) {
	got := encode(t, "mov rax, 1", 64)
	want := append([]byte{0x48, 0xB8}, 1, 0, 0, 0, 0, 0, 0, 0)
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncode_IncReg(t *testing.T) {
	got := encode(t, "inc rcx", 64)
	want := []byte{0x48, 0xFF, 0xC1}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncode_PushPop(t *testing.T) {
	if got := encode(t, "push rbp", 64); !bytes.Equal(got, []byte{0x55}) {
		t.Fatalf("push rbp = % x, want 55", got)
	}
	if got := encode(t, "pop rbp", 64); !bytes.Equal(got, []byte{0x5D}) {
		t.Fatalf("pop rbp = % x, want 5d", got)
	}
}

func TestEncode_ExtendedRegisterSetsRexB(t *testing.T) {
	got := encode(t, "push r12", 64)
	want := []byte{0x41, 0x54}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncode_RetNop(t *testing.T) {
	if got := encode(t, "ret", 64); !bytes.Equal(got, []byte{0xC3}) {
		t.Fatalf("ret = % x", got)
	}
	if got := encode(t, "nop", 64); !bytes.Equal(got, []byte{0x90}) {
		t.Fatalf("nop = % x", got)
	}
}

func TestEncode_CalcSizeMatchesGenCodeLength(t *testing.T) {
	for _, src := range []string{"mov rax, rcx", "mov rax, 1", "inc rcx", "lea rax, [rbx+rcx*4+8]"} {
		got := encode(t, src, 64)
		_ = got // encode() already asserts CalcSize == len(GenCode)
	}
}

func TestEncode_LeaMemoryOperand(t *testing.T) {
	got := encode(t, "lea rax, [rbx]", 64)
	want := []byte{0x48, 0x8D, 0x03}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}
