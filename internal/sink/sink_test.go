package sink_test

import (
	"bytes"
	"testing"

	"github.com/keurnel/x86asm/internal/sink"
)

func TestBuffer_RawData(t *testing.T) {
	b := sink.NewBuffer(0, 64)
	if err := b.Emit(sink.Record{Type: sink.RAWDATA, Data: []byte{0xB8, 0x01}}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !bytes.Equal(b.Bytes, []byte{0xB8, 0x01}) {
		t.Fatalf("Bytes = % x, want b8 01", b.Bytes)
	}
}

func TestBuffer_Reserve(t *testing.T) {
	b := sink.NewBuffer(0, 64)
	if err := b.Emit(sink.Record{Type: sink.RESERVE, Size: 4}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(b.Bytes) != 4 {
		t.Fatalf("len = %d, want 4", len(b.Bytes))
	}
}

func TestBuffer_AddressFoldsToLittleEndian(t *testing.T) {
	b := sink.NewBuffer(0, 64)
	err := b.Emit(sink.Record{Type: sink.ADDRESS, Segment: 0, TargetSeg: 0, TargetOffset: 0x20, Size: 8})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	want := []byte{0x20, 0, 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(b.Bytes, want) {
		t.Fatalf("Bytes = % x, want % x", b.Bytes, want)
	}
}

func TestBuffer_AddressZeroPadsToFormatWidth(t *testing.T) {
	b := sink.NewBuffer(0, 64)
	if err := b.Emit(sink.Record{Type: sink.ADDRESS, TargetOffset: 1, Size: 4}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(b.Bytes) != 8 {
		t.Fatalf("len = %d, want 8 (4-byte value zero-padded to maxbits/8)", len(b.Bytes))
	}
}

func TestBuffer_RelativeSubtractsRelBase(t *testing.T) {
	b := sink.NewBuffer(0, 64)
	if err := b.Emit(sink.Record{Type: sink.RELADDR, TargetOffset: 10, RelBase: 5, Size: 4}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	want := []byte{5, 0, 0, 0}
	if !bytes.Equal(b.Bytes, want) {
		t.Fatalf("Bytes = % x, want % x", b.Bytes, want)
	}
}

func TestBuffer_ZeroExtensionFlagged(t *testing.T) {
	b := sink.NewBuffer(0, 64)
	// 300 doesn't fit in a single unsigned byte (0..255).
	if err := b.Emit(sink.Record{Type: sink.ADDRESS, TargetOffset: 300, Size: 1}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !b.Overflowed {
		t.Fatalf("expected Overflowed to be set for a value that doesn't fit in 1 byte")
	}
}
