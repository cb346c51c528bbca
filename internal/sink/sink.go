// Package sink implements the output back-end contract of spec.md §6: the
// encoder never appends bytes to a buffer directly, it calls Output.Emit
// with a typed Record so a back-end (object-file writer, listing
// collaborator, or — here — a single flat byte buffer) decides how each
// record is realized.
package sink

import "encoding/binary"

// Type tags what a Record represents.
type Type int

const (
	RAWDATA Type = iota
	ADDRESS
	RELADDR
	SEGMENT
	RESERVE
	ZERODATA
)

func (t Type) String() string {
	switch t {
	case RAWDATA:
		return "RAWDATA"
	case ADDRESS:
		return "ADDRESS"
	case RELADDR:
		return "RELADDR"
	case SEGMENT:
		return "SEGMENT"
	case RESERVE:
		return "RESERVE"
	case ZERODATA:
		return "ZERODATA"
	default:
		return "UNKNOWN"
	}
}

// Sign selects the overflow-checking mode a Record's numeric value is
// subjected to before truncation to Size bytes.
type Sign int

const (
	WRAP Sign = iota
	SIGNED
	UNSIGNED
)

// Record is one emission from the encoder (spec.md §6 "output sink"). Data
// carries literal bytes for RAWDATA/RESERVE-filler records; the remaining
// fields describe a not-yet-resolved address/relative/segment value.
type Record struct {
	Type   Type
	Segment int64
	Offset  int64
	Size    int // byte width of the emission

	Data []byte // RAWDATA

	// ADDRESS / RELADDR fields.
	TargetSeg    int64
	TargetOffset int64
	Wrt          int64 // NoSeg (expr.NoSeg) when absent
	Sign         Sign
	RelBase      int64 // RELADDR: offset to subtract (end of the instruction)
}

// Output is the back-end contract the encoder writes through. An overflow
// or zero-extension condition is advisory, not fatal (spec.md §4.7 "range
// violation triggers a bounded-data warning"): Buffer records it in its
// Overflowed field rather than returning an error.
type Output interface {
	Emit(rec Record) error
}

// Buffer is the simplest Output: a single flat byte slice and current
// segment/offset cursor, good enough to assemble one file into one
// contiguous region (spec.md's "no output-format back-ends" non-goal keeps
// ELF/COFF section layout out of scope).
type Buffer struct {
	Bytes      []byte
	Segment    int64
	MaxBits    int // format width for ADDRESS folding, e.g. 64
	Overflowed bool // set when a zero-extension was needed
}

// NewBuffer returns a Buffer ready to receive records for the given
// segment.
func NewBuffer(segment int64, maxBits int) *Buffer {
	return &Buffer{Segment: segment, MaxBits: maxBits}
}

// Emit realizes one Record into Bytes. For ADDRESS records whose target
// segment matches the buffer's own, it performs the little-endian fold
// spec.md §6 describes; a target in a different segment is recorded as raw
// zero bytes here since this Buffer has no relocation table (single-file,
// non-goal: symbol persistence across files).
func (b *Buffer) Emit(rec Record) error {
	switch rec.Type {
	case RAWDATA:
		b.Bytes = append(b.Bytes, rec.Data...)
		return nil
	case RESERVE, ZERODATA:
		b.Bytes = append(b.Bytes, make([]byte, rec.Size)...)
		return nil
	case ADDRESS:
		return b.emitAddress(rec)
	case RELADDR:
		return b.emitRelative(rec)
	case SEGMENT:
		b.Bytes = append(b.Bytes, make([]byte, rec.Size)...)
		return nil
	}
	return nil
}

// emitAddress folds an ADDRESS record into RAWDATA when the target shares
// this buffer's segment: little-endian encode the low rec.Size bytes, then
// zero-pad the remainder up to MaxBits/8. When padding applies and the value
// doesn't fit in rec.Size bytes, Overflowed is set so the caller can raise
// the zero-extension warning (spec.md §6 "addresses wider than the format's
// maxbits produce a zero-extension warning"). A target in another segment
// is written as rec.Size zero bytes.
func (b *Buffer) emitAddress(rec Record) error {
	if rec.TargetSeg != b.Segment {
		b.Bytes = append(b.Bytes, make([]byte, rec.Size)...)
		return nil
	}
	value := rec.TargetOffset
	folded := foldLittleEndian(value, rec.Size)

	formatWidth := b.MaxBits / 8
	if formatWidth > rec.Size {
		b.Overflowed = b.Overflowed || needsZeroExtension(value, rec.Size)
		folded = append(folded, make([]byte, formatWidth-rec.Size)...)
	}
	b.Bytes = append(b.Bytes, folded...)
	return nil
}

// emitRelative folds a RELADDR record the same way, after subtracting
// RelBase (the position right after the instruction, per the standard
// relative-addressing convention).
func (b *Buffer) emitRelative(rec Record) error {
	delta := rec.TargetOffset - rec.RelBase
	b.Bytes = append(b.Bytes, foldLittleEndian(delta, rec.Size)...)
	return nil
}

func foldLittleEndian(value int64, size int) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(value))
	out := make([]byte, size)
	copy(out, buf[:size])
	return out
}

// needsZeroExtension reports whether value doesn't fit unsigned in size
// bytes, meaning the fold above silently dropped high bits.
func needsZeroExtension(value int64, size int) bool {
	if size >= 8 {
		return false
	}
	limit := int64(1) << uint(size*8)
	return value >= limit || value < 0
}
