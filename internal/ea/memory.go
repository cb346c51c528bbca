package ea

import "github.com/keurnel/x86asm/internal/scan"

// resolveMem3264 handles 32-bit and 64-bit addressing (spec.md §4.5's
// "32/64-bit memory" branch): base+index*scale+disp, reduced to a ModRM
// byte plus an optional SIB byte.
func resolveMem3264(c recordInput, offsetVal int64, offsetKnown, forwardRef bool, opts Options) Record {
	var baseInfo, indexInfo scan.RegisterInfo
	if c.HasBase {
		baseInfo = scan.RegisterInfoFor(c.Base)
	}
	if c.HasIndex {
		indexInfo = scan.RegisterInfoFor(c.Index)
		if c.HasBase && baseInfo.Class != indexInfo.Class {
			return fail("invalid-ea-components", "base and index registers must be the same width")
		}
	}

	needsSIB := c.HasIndex || !c.HasBase || baseInfo.Low3 == 4

	compressed := false
	var mod byte
	switch {
	case !offsetKnown || forwardRef:
		mod = 2
	case !c.HasBase:
		mod = 0 // base-less SIB form always carries a disp32
	case offsetVal == 0 && baseInfo.Low3 != 5:
		mod = 0
	case fitsInt8(offsetVal):
		mod = 1
	case opts.TupleBytes != nil && compressedDisp8(offsetVal, opts.TupleBytes()):
		mod, compressed = 1, true
	default:
		mod = 2
	}

	rec := Record{Type: Mem3264, CompressedDisp8: compressed}

	if !needsSIB {
		rec.ModRM = modRM(mod, byte(opts.RegField&7), byte(baseInfo.Low3))
		rec.RexB = baseInfo.Extended
	} else {
		var scaleBits byte
		var indexField byte = 4 // 100b: "no index"
		if c.HasIndex {
			var err error
			scale := c.Scale
			if scale == 0 {
				scale = 1
			}
			scaleBits, err = scaleEncoding(scale)
			if err != nil {
				return fail("invalid-ea-components", "%v", err)
			}
			indexField = byte(indexInfo.Low3)
			rec.RexX = indexInfo.Extended
		}
		var baseField byte = 5 // 101b: "no base" (disp32 follows)
		if c.HasBase {
			baseField = byte(baseInfo.Low3)
			rec.RexB = baseInfo.Extended
		}
		rec.HasSIB = true
		rec.SIB = sib(scaleBits, indexField, baseField)
		rec.ModRM = modRM(mod, byte(opts.RegField&7), 4) // rm=100b signals SIB follows
	}

	switch mod {
	case 0:
		if !c.HasBase {
			rec.DispLen = 4
		}
	case 1:
		rec.DispLen = 1
	case 2:
		rec.DispLen = 4
	}
	if compressed {
		rec.Disp = offsetVal / opts.TupleBytes()
	} else {
		rec.Disp = offsetVal
	}
	return rec
}

func compressedDisp8(offset, tupleBytes int64) bool {
	if tupleBytes <= 0 || offset%tupleBytes != 0 {
		return false
	}
	d := offset / tupleBytes
	return d >= -128 && d <= 127
}

// mem16RM maps the eight legal 16-bit base/index combinations (spec.md
// §4.5's "16-bit memory" branch) to their ModRM r/m field.
var mem16RM = map[[2]string]byte{
	{"bx", "si"}: 0, {"bx", "di"}: 1, {"bp", "si"}: 2, {"bp", "di"}: 3,
	{"si", ""}: 4, {"di", ""}: 5, {"bp", ""}: 6, {"bx", ""}: 7,
}

func resolveMem16(c recordInput, offsetVal int64, offsetKnown, forwardRef bool) Record {
	baseName, indexName := "", ""
	if c.HasBase {
		baseName = scan.RegisterInfoFor(c.Base).Name
	}
	if c.HasIndex {
		indexName = scan.RegisterInfoFor(c.Index).Name
	}

	if !c.HasBase && !c.HasIndex {
		return Record{Type: Mem16, ModRM: modRM(0, 0, 6), DispLen: 2, Disp: offsetVal}
	}

	key := [2]string{baseName, indexName}
	if baseName == "" {
		key = [2]string{indexName, ""}
	}
	rm, ok := mem16RM[key]
	if !ok {
		return fail("invalid-ea-components", "16-bit addressing requires base/index from BX, BP, SI, DI")
	}

	var mod byte
	switch {
	case !offsetKnown || forwardRef:
		mod = 2
	case offsetVal == 0 && rm != 6:
		mod = 0
	case rm == 6 && offsetVal == 0:
		mod = 1 // [BP] with zero displacement must still encode a byte
	case fitsInt8(offsetVal):
		mod = 1
	default:
		mod = 2
	}

	rec := Record{Type: Mem16, ModRM: modRM(mod, 0, rm), Disp: offsetVal}
	switch mod {
	case 1:
		rec.DispLen = 1
	case 2:
		rec.DispLen = 2
	}
	return rec
}

func resolveVSIB(c recordInput, offsetVal int64, offsetKnown, forwardRef bool, opts Options) Record {
	indexInfo := scan.RegisterInfoFor(c.Index)
	var typ Type
	switch indexInfo.Class {
	case scan.ClassXMM:
		typ = VSIBxmm
	case scan.ClassYMM:
		typ = VSIBymm
	case scan.ClassZMM:
		typ = VSIBzmm
	default:
		return fail("invalid-ea-components", "VSIB index must be an xmm/ymm/zmm register")
	}

	scale := c.Scale
	if scale == 0 {
		scale = 1
	}
	scaleBits, err := scaleEncoding(scale)
	if err != nil {
		return fail("invalid-ea-components", "%v", err)
	}

	var baseField byte = 5
	var baseExt bool
	var mod byte
	switch {
	case !c.HasBase:
		mod = 0
	case !offsetKnown || forwardRef:
		mod = 2
	case offsetVal == 0 && scan.RegisterInfoFor(c.Base).Low3 != 5:
		mod = 0
	case fitsInt8(offsetVal):
		mod = 1
	default:
		mod = 2
	}
	if c.HasBase {
		bi := scan.RegisterInfoFor(c.Base)
		baseField = byte(bi.Low3)
		baseExt = bi.Extended
	}

	rec := Record{
		Type:      typ,
		HasSIB:    true,
		SIB:       sib(scaleBits, byte(indexInfo.Low3), baseField),
		ModRM:     modRM(mod, byte(opts.RegField&7), 4),
		VSIBScale: scale,
		RexB:      baseExt,
	}
	switch mod {
	case 0:
		if !c.HasBase {
			rec.DispLen = 4
		}
	case 1:
		rec.DispLen = 1
	case 2:
		rec.DispLen = 4
	}
	rec.Disp = offsetVal
	return rec
}

func fitsInt8(v int64) bool { return v >= -128 && v <= 127 }

// recordInput is the subset of parser.EAComponent the memory-form resolvers
// need; Resolve adapts the real type so this file stays decoupled from the
// parser package's decorator/segment-override fields it never touches.
type recordInput struct {
	HasBase  bool
	Base     int64
	HasIndex bool
	Index    int64
	Scale    int64
}
