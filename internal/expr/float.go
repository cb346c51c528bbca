package expr

import (
	"math"
	"strconv"
	"strings"
)

// FloatParser converts a scanned floating-point literal's raw text into its
// IEEE-754 bit pattern. spec.md §1 calls out "floating point literal
// conversion" as an opaque external function; this type is the injection
// point an Evaluator accepts instead of hard-coding one conversion strategy.
type FloatParser func(text string) (bits uint64, byteWidth int, err error)

// DefaultFloatParser handles plain decimal floats ("3.14", "1.5e10") via
// strconv, and NASM-style hex floats ("0x1.8p3") by delegating to
// strconv.ParseFloat's own hex-float support. The literal is always folded
// to a 64-bit (double precision) bit pattern; narrower encodings are the
// encoder's job once it knows the operand's declared size (DD vs DQ).
func DefaultFloatParser(text string) (uint64, int, error) {
	clean := strings.ReplaceAll(text, "_", "")
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, 0, err
	}
	return math.Float64bits(f), 8, nil
}
