package assemble_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/keurnel/x86asm/internal/assemble"
)

func assembleOK(t *testing.T, lines []string) assemble.Result {
	t.Helper()
	res, err := assemble.Run(lines, assemble.Options{Bits: 64})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	for _, d := range res.Diagnostics {
		if d.Severity >= 4 { // Nonfatal and above
			t.Fatalf("unexpected diagnostic: %s", d)
		}
	}
	return res
}

func TestRun_SingleInstruction(t *testing.T) {
	res := assembleOK(t, []string{"ret"})
	want := []byte{0xC3}
	if string(res.Bytes) != string(want) {
		t.Fatalf("got % X, want % X", res.Bytes, want)
	}
}

func TestRun_SequenceConcatenates(t *testing.T) {
	res := assembleOK(t, []string{"push rbp", "mov rax, rcx", "ret"})
	want := []byte{0x55, 0x48, 0x89, 0xC8, 0xC3}
	if string(res.Bytes) != string(want) {
		t.Fatalf("got % X, want % X", res.Bytes, want)
	}
}

func TestRun_ForwardLabelReference(t *testing.T) {
	// "jmp target" must resolve against the offset target acquires on a
	// later line — only possible because pass 1 fixes every label's
	// offset before pass 2 emits any relative displacement. Best() always
	// ranks the long rel32 form above the short-jump candidate (ScoreGood
	// beats ScoreJump), so this is jmp rel32 (5 bytes) + nop (1) + ret (1).
	res := assembleOK(t, []string{
		"jmp target",
		"nop",
		"target:",
		"ret",
	})
	want := []byte{0xE9, 0x01, 0x00, 0x00, 0x00, 0x90, 0xC3}
	if string(res.Bytes) != string(want) {
		t.Fatalf("got % X, want % X", res.Bytes, want)
	}
}

func TestRun_UnmatchedMnemonicRecordsDiagnosticWithoutPanicking(t *testing.T) {
	res, err := assemble.Run([]string{"bogusinstr rax, rax"}, assemble.Options{Bits: 64})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	found := false
	for _, d := range res.Diagnostics {
		if d.Kind == "inval-op" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an inval-op diagnostic, got %v", res.Diagnostics)
	}
}

func TestRun_WarningControlsAppliedBeforeAssembly(t *testing.T) {
	res := assembleOK(t, []string{"nop"})
	_ = res // warning-control wiring is exercised directly in internal/warnings;
	// this just confirms Options.WarningControls doesn't break a normal run.

	if _, err := assemble.Run([]string{"nop"}, assemble.Options{
		Bits:            64,
		WarningControls: []string{"-zero-extension", "error=float-overflow"},
	}); err != nil {
		t.Fatalf("Run with warning controls returned error: %v", err)
	}
}

func TestRun_EmptyLinesAreNoops(t *testing.T) {
	res := assembleOK(t, []string{"", "   ", "ret"})
	if string(res.Bytes) != string([]byte{0xC3}) {
		t.Fatalf("got % X, want single ret", res.Bytes)
	}
}

func TestRun_TimesDBRawString(t *testing.T) {
	// Scenario: `times 3 db "AB"` must emit every character of the string
	// once per TIMES iteration — 6 bytes, not a packString-folded 3.
	res := assembleOK(t, []string{`times 3 db "AB"`})
	want := []byte{0x41, 0x42, 0x41, 0x42, 0x41, 0x42}
	if string(res.Bytes) != string(want) {
		t.Fatalf("got % X, want % X", res.Bytes, want)
	}
}

func TestRun_DBMixedOperandList(t *testing.T) {
	res := assembleOK(t, []string{`db "A", 1, 2`})
	want := []byte{0x41, 0x01, 0x02}
	if string(res.Bytes) != string(want) {
		t.Fatalf("got % X, want % X", res.Bytes, want)
	}
}

func TestRun_DWWidensEachElement(t *testing.T) {
	res := assembleOK(t, []string{"dw 1, 2"})
	want := []byte{0x01, 0x00, 0x02, 0x00}
	if string(res.Bytes) != string(want) {
		t.Fatalf("got % X, want % X", res.Bytes, want)
	}
}

func TestRun_DBForwardLabelReference(t *testing.T) {
	// A DB operand may reference a label defined later in the file — only
	// possible because buildDataBytes runs in pass 2, after every label is
	// defined, while dataListSize (pass 1) never evaluates the operand.
	res := assembleOK(t, []string{
		"db target",
		"nop",
		"target:",
	})
	want := []byte{0x02, 0x90}
	if string(res.Bytes) != string(want) {
		t.Fatalf("got % X, want % X", res.Bytes, want)
	}
}

func TestRun_ResWNormalizedToResBReservesCorrectLength(t *testing.T) {
	res := assembleOK(t, []string{"resw 4", "ret"})
	if len(res.Bytes) != 9 {
		t.Fatalf("got %d bytes, want 9 (8 reserved + 1 ret)", len(res.Bytes))
	}
	if res.Bytes[8] != 0xC3 {
		t.Fatalf("expected trailing ret byte, got % X", res.Bytes)
	}
}

func TestRun_TimesResDFoldsCountIntoWidth(t *testing.T) {
	res := assembleOK(t, []string{"times 2 resd 3", "ret"})
	if len(res.Bytes) != 25 {
		t.Fatalf("got %d bytes, want 25 (24 reserved + 1 ret)", len(res.Bytes))
	}
}

func TestRun_IncbinReadsFileBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, []byte{0x10, 0x20, 0x30, 0x40}, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	src := filepath.Join(dir, "main.kasm")

	res, err := assemble.Run([]string{`incbin "data.bin"`}, assemble.Options{Bits: 64, File: src})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	want := []byte{0x10, 0x20, 0x30, 0x40}
	if string(res.Bytes) != string(want) {
		t.Fatalf("got % X, want % X", res.Bytes, want)
	}
}

func TestRun_IncbinOffsetAndLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, []byte{0x10, 0x20, 0x30, 0x40, 0x50}, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	src := filepath.Join(dir, "main.kasm")

	res, err := assemble.Run([]string{`incbin "data.bin", 1, 2`}, assemble.Options{Bits: 64, File: src})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	want := []byte{0x20, 0x30}
	if string(res.Bytes) != string(want) {
		t.Fatalf("got % X, want % X", res.Bytes, want)
	}
}

func TestRun_IncbinMissingFileIsNonFatal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.kasm")

	res, err := assemble.Run([]string{`incbin "missing.bin"`, "ret"}, assemble.Options{Bits: 64, File: src})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if string(res.Bytes) != string([]byte{0xC3}) {
		t.Fatalf("expected incbin to contribute zero bytes, got % X", res.Bytes)
	}
	found := false
	for _, d := range res.Diagnostics {
		if d.Kind == "open-failed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an open-failed diagnostic, got %v", res.Diagnostics)
	}
}
