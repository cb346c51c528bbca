package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunAssemble_WritesOutputFile(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "hello.kasm")
	if err := os.WriteFile(src, []byte("push rbp\nmov rax, rcx\nret\n"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	assembleBits = 64
	assembleOut = filepath.Join(tmpDir, "hello.bin")
	assembleW = nil

	if err := runAssemble(assembleCmd, src); err != nil {
		t.Fatalf("runAssemble returned error: %v", err)
	}

	got, err := os.ReadFile(assembleOut)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	want := []byte{0x55, 0x48, 0x89, 0xC8, 0xC3}
	if string(got) != string(want) {
		t.Fatalf("got % X, want % X", got, want)
	}
}

func TestRunAssemble_RejectsMissingFile(t *testing.T) {
	if err := runAssemble(assembleCmd, "/no/such/file.kasm"); err == nil {
		t.Fatalf("expected an error for a missing source file")
	}
}
