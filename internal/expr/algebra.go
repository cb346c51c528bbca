package expr

// HintType classifies why a register term is scaled/combined the way it is,
// consumed by the effective-address resolver to decide base/index ordering
// (spec.md §4.4 "addressing hints").
type HintType int

const (
	HintNone HintType = iota
	HintMakeBase
	HintNotBase
	HintSummed
)

// Hint records the EA hint produced while folding register terms.
type Hint struct {
	Type HintType
	Reg  int64
}

// AddResult bundles the sum together with any EA hint the addition produced.
type AddResult struct {
	Sum  Vector
	Hint Hint
}

// AddVectors merges two expressions per spec.md §4.2: terms of the same
// type are summed once; far-absolute SEGBASE terms are preserved from
// whichever side is not really-simple, as long as the OTHER side is really
// simple (spec.md adopts the code's "either side" behavior over its own
// doc comment — see DESIGN.md). Evaluation short-circuits to Unknown the
// moment either side is Unknown.
func AddVectors(p, q Vector) AddResult {
	if p.IsUnknown() || q.IsUnknown() {
		return AddResult{Sum: UnknownVector(p.ForwardRef || q.ForwardRef)}
	}

	pReallySimple := p.IsReallySimple()
	qReallySimple := q.IsReallySimple()

	sums := map[Term]int64{}
	order := []Term{}
	key := func(t Term) Term { return Term{Type: t.Type, Value: t.Value} }

	add := func(t Term) {
		if !nonZero(t) {
			return
		}
		k := key(t)
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] += t.Coeff
	}

	var hint Hint

	for _, t := range p.Terms {
		if t.Type == SegBase && t.Value == SegAbs && !(pReallySimple || qReallySimple) {
			continue
		}
		add(t)
	}
	for _, t := range q.Terms {
		if t.Type == SegBase && t.Value == SegAbs && !(pReallySimple || qReallySimple) {
			continue
		}
		before, existed := sums[key(t)]
		add(t)
		if existed && t.Type == Register && sums[key(t)] != 0 && before != 0 {
			hint = Hint{Type: HintSummed, Reg: t.Value}
		}
	}

	out := Vector{}
	for _, k := range order {
		coeff := sums[k]
		if coeff == 0 {
			continue
		}
		out.Terms = append(out.Terms, Term{Type: k.Type, Value: k.Value, Coeff: coeff})
	}

	if p.HasWrt {
		out.HasWrt, out.WrtSeg = true, p.WrtSeg
	} else if q.HasWrt {
		out.HasWrt, out.WrtSeg = true, q.WrtSeg
	}

	return AddResult{Sum: out, Hint: hint}
}

// ScalarMult multiplies the coefficient of every term of v by k, other
// segment-base terms included. Far-absolute SEGBASE terms are dropped from
// the result since a scaled segment base is not meaningful. When hint is
// non-nil and is a "make-base" hint pointing at a register of v, the hint is
// downgraded to "not-base" (spec.md §4.2).
func ScalarMult(v Vector, k int64, hint *Hint) Vector {
	if v.IsUnknown() {
		return v
	}

	out := Vector{HasWrt: v.HasWrt, WrtSeg: v.WrtSeg, ForwardRef: v.ForwardRef}
	for _, t := range v.Terms {
		if !nonZero(t) {
			continue
		}
		if t.Type == SegBase && t.Value == SegAbs {
			continue // stripped: scaling a far-absolute segment is meaningless
		}
		out.Terms = append(out.Terms, Term{Type: t.Type, Value: t.Value, Coeff: t.Coeff * k})
	}

	if hint != nil && hint.Type == HintMakeBase {
		for _, t := range v.Terms {
			if t.Type == Register && t.Value == hint.Reg {
				hint.Type = HintNotBase
			}
		}
	}

	return out
}

// SegmentPart returns the segment base of e as a scalar-value expression
// (spec.md §4.2 segment_part). ok is false when e is not relocatable; when
// e is Unknown, the returned vector is itself Unknown and ok is true (the
// caller is expected to check IsUnknown on the result).
func SegmentPart(e Vector, currentSeg int64) (Vector, bool) {
	if e.IsUnknown() {
		return UnknownVector(e.ForwardRef), true
	}
	if !e.IsRelocatable(currentSeg) {
		return Vector{}, false
	}
	seg := e.RelocSeg()
	if seg == NoSeg {
		return Vector{}, false
	}
	return Int(seg), true
}
