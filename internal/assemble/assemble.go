// Package assemble wires the scanner, parser, template matcher, and encoder
// into the single-buffer pipeline driver of spec.md §5: a sequential,
// two-pass state machine (collect sizes and label offsets, then emit bytes)
// with one explicit AssemblerContext carrying the process-wide mutable
// state (current bits, warning stack, current segment/offset) instead of
// package-level globals (spec.md §9's re-architecture guidance).
package assemble

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/keurnel/x86asm/internal/diag"
	"github.com/keurnel/x86asm/internal/encoder"
	"github.com/keurnel/x86asm/internal/expr"
	"github.com/keurnel/x86asm/internal/labels"
	"github.com/keurnel/x86asm/internal/parser"
	"github.com/keurnel/x86asm/internal/scan"
	"github.com/keurnel/x86asm/internal/sink"
	"github.com/keurnel/x86asm/internal/template"
	"github.com/keurnel/x86asm/internal/warnings"
)

// dataElementWidths maps a DB-family mnemonic to its element width in
// bytes. These bypass the template/encoder bytecode VM entirely (see
// internal/template/builtin.go): their emitted length depends on operand
// data (a string's character count), which the VM's fixed-arity dispatch
// was never built to express.
var dataElementWidths = map[string]int{
	"db": 1, "dw": 2, "dd": 4, "dq": 8, "dt": 10, "do": 16, "dy": 32, "dz": 64,
}

// Options configures one assembly run.
type Options struct {
	Bits     int // 16, 32, or 64
	Optimize int
	File     string

	// WarningControls are applied, in order, before any source line is
	// assembled — the equivalent of -w flags on a command line (spec.md
	// §6 "CLI surface"). The resulting state becomes the permanent
	// bottom-of-stack snapshot.
	WarningControls []string

	Table *template.Table // nil defaults to template.Builtin()
}

// Context is the single explicit object carrying the process-wide mutable
// state spec.md §5 lists (current bits, warning stack, current
// segment/offset, optimization level) instead of scattering it across
// package globals.
type Context struct {
	Bits       int
	Optimize   int
	Segment    int64
	Offset     int64
	SectionOff int64

	Store    labels.Store
	Warnings *warnings.Set
	Sink     *diag.Sink
	Table    *template.Table
}

// Result is the outcome of assembling one source file: the emitted bytes
// and every diagnostic recorded along the way.
type Result struct {
	Bytes       []byte
	Diagnostics []diag.Entry
}

// Run assembles src (already split into lines by the caller's scanner
// front-end) end to end: pass 1 parses every line and sizes its
// instruction (fixing label offsets), pass 2 re-encodes with those offsets
// resolved. A single top-level recover() boundary converts any internal
// panic (bytecode corruption — spec.md §7's Panic severity) into a
// diag.Entry instead of crashing the process.
func Run(lines []string, opts Options) (result Result, err error) {
	ctx := newContext(opts)
	sinkBuf := sink.NewBuffer(ctx.Segment, maxBitsFor(opts.Bits))

	defer func() {
		if r := recover(); r != nil {
			ctx.Sink.Note(diag.Panic, diag.Loc(opts.File, 0, 0), "internal error: %v", r)
			result = Result{Bytes: sinkBuf.Bytes, Diagnostics: ctx.Sink.Entries()}
			err = fmt.Errorf("assemble: %v", r)
		}
	}()

	insts := make([]*parser.Instruction, len(lines))
	sizes := make([]int, len(lines))
	incbinData := make([][]byte, len(lines))

	// Pass 1: parse + size every line, advancing ctx.Offset as we go so
	// later label references resolve against final offsets.
	ctx.Sink.SetPhase("parse")
	for i, line := range lines {
		inst, perr := parseLine(line, i+1, opts.File)
		if perr != nil {
			ctx.Sink.Record(perr)
			continue
		}
		insts[i] = inst
		for _, label := range inst.Labels {
			ctx.Store.Define(label, ctx.Segment, ctx.Offset)
		}
		if inst.Mnemonic == "" {
			continue
		}

		// DB-family: size is purely structural (a string's character count,
		// everything else one fixed-width element), so it needs no label
		// resolution yet — the actual bytes are built fresh in pass 2 once
		// every label is defined, which lets a data item reference a label
		// declared later in the file.
		if width, ok := dataElementWidths[inst.Mnemonic]; ok {
			times := timesCount(ctx, inst)
			sizes[i] = dataListSize(inst, width) * int(times)
			ctx.Offset += int64(sizes[i])
			continue
		}

		// INCBIN: the byte range comes from the filesystem, not from any
		// label, so it is read once here and the bytes are cached for pass
		// 2 to replay — every failure mode is non-fatal (spec.md §4.8): it
		// is recorded once and the instruction contributes zero bytes.
		if inst.Mnemonic == "incbin" {
			data, derr := ctx.readIncbin(inst, opts.File)
			if derr != nil {
				ctx.Sink.Record(derr)
			}
			incbinData[i] = data
			times := timesCount(ctx, inst)
			sizes[i] = len(data) * int(times)
			ctx.Offset += int64(sizes[i])
			continue
		}

		ctx.Sink.SetPhase("match")
		best := template.Best(ctx.Table, inst, ctx.Bits)
		if best.Score < template.ScoreGood {
			ctx.Sink.Record(diag.New(diag.Nonfatal, diag.InvalOp, diag.Loc(opts.File, inst.Line, inst.Column),
				"no matching template for %q", inst.Mnemonic))
			continue
		}

		ctx.Sink.SetPhase("encode")
		size, serr := encoder.CalcSize(best.Template, inst, ctx.encoderOptions())
		if serr != nil {
			ctx.Sink.Record(diag.New(diag.Nonfatal, diag.BytecodeCorruption, diag.Loc(opts.File, inst.Line, inst.Column), "%v", serr))
			continue
		}
		times := timesCount(ctx, inst)
		sizes[i] = size * int(times)
		ctx.Offset += int64(sizes[i])
	}

	// Pass 2: re-encode with every label now defined, emitting through the
	// sink. ctx.Offset is rewound and re-driven the same way so Here()
	// reports identical per-instruction positions to pass 1.
	ctx.Offset = 0
	ctx.Sink.SetPhase("encode")
	for i, inst := range insts {
		if inst == nil || inst.Mnemonic == "" {
			continue
		}

		if width, ok := dataElementWidths[inst.Mnemonic]; ok {
			data, derr := ctx.buildDataBytes(inst, width)
			if derr != nil {
				ctx.Sink.Record(derr)
				ctx.Offset += int64(sizes[i])
				continue
			}
			times := timesCount(ctx, inst)
			for n := int64(0); n < times; n++ {
				if err := sinkBuf.Emit(sink.Record{Type: sink.RAWDATA, Data: data}); err != nil {
					ctx.Sink.Record(diag.New(diag.Nonfatal, diag.BytecodeCorruption, diag.Loc(opts.File, inst.Line, inst.Column), "%v", err))
					break
				}
			}
			ctx.Offset += int64(sizes[i])
			continue
		}
		if inst.Mnemonic == "incbin" {
			data := incbinData[i]
			times := timesCount(ctx, inst)
			for n := int64(0); n < times; n++ {
				if err := sinkBuf.Emit(sink.Record{Type: sink.RAWDATA, Data: data}); err != nil {
					ctx.Sink.Record(diag.New(diag.Nonfatal, diag.BytecodeCorruption, diag.Loc(opts.File, inst.Line, inst.Column), "%v", err))
					break
				}
			}
			ctx.Offset += int64(sizes[i])
			continue
		}

		best := template.Best(ctx.Table, inst, ctx.Bits)
		if best.Score < template.ScoreGood {
			ctx.Offset += int64(sizes[i])
			continue
		}

		times := timesCount(ctx, inst)
		perInstr := sizes[i]
		if times > 0 {
			perInstr = sizes[i] / int(times)
		}
		eo := ctx.encoderOptions()
		eo.Length = int64(perInstr)
		for n := int64(0); n < times; n++ {
			if _, gerr := encoder.GenCode(best.Template, inst, eo, sinkBuf); gerr != nil {
				ctx.Sink.Record(diag.New(diag.Nonfatal, diag.BytecodeCorruption, diag.Loc(opts.File, inst.Line, inst.Column), "%v", gerr))
				break
			}
			ctx.Offset += int64(perInstr)
		}
	}

	if sinkBuf.Overflowed && ctx.Warnings.IsEnabled("zero-extension") {
		severity := diag.Warning
		if ctx.Warnings.IsError("zero-extension") {
			severity = diag.Nonfatal
		}
		ctx.Sink.Record(diag.New(severity, diag.ZeroExtension, diag.Loc(opts.File, 0, 0),
			"an address did not fit the target format width and was zero-extended"))
	}

	return Result{Bytes: sinkBuf.Bytes, Diagnostics: ctx.Sink.Entries()}, nil
}

func newContext(opts Options) *Context {
	table := opts.Table
	if table == nil {
		table = template.Builtin()
	}
	ds := diag.NewSink()
	ws := warnings.NewSet(warnings.Builtin)
	for _, tok := range opts.WarningControls {
		if !ws.Apply(tok) && ws.IsEnabled("unknown-warning") {
			ds.Record(diag.New(diag.Warning, diag.UnknownWarningName, diag.Loc(opts.File, 0, 0), "unknown warning %q", tok))
		}
	}
	ws.Snapshot()

	return &Context{
		Bits:     opts.Bits,
		Optimize: opts.Optimize,
		Store:    labels.NewMapStore(),
		Warnings: ws,
		Sink:     ds,
		Table:    table,
	}
}

func (ctx *Context) encoderOptions() encoder.Options {
	return encoder.Options{
		Bits:       ctx.Bits,
		Store:      ctx.Store,
		CurrentSeg: ctx.Segment,
		Here: func() (int64, int64, int64) {
			return ctx.Segment, ctx.Offset, ctx.SectionOff
		},
	}
}

// timesCount evaluates an instruction's TIMES prefix, defaulting to 1 when
// absent (spec.md §4.8: "TIMES > 1 causes the outer driver to call the
// encoder once per iteration").
func timesCount(ctx *Context, inst *parser.Instruction) int64 {
	if len(inst.TimesTokens) == 0 {
		return 1
	}
	n, _, err := expr.Simplify(inst.TimesTokens, ctx.Store, ctx.Segment)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func parseLine(line string, lineNo int, file string) (*parser.Instruction, *diag.Error) {
	s := scan.New(line, lineNo)
	var toks []scan.Token
	for {
		tok := s.Next()
		if tok.Kind == scan.EOL {
			break
		}
		toks = append(toks, tok)
	}
	if len(toks) == 0 {
		return &parser.Instruction{Line: lineNo}, nil
	}
	inst, err := parser.New(toks).ParseLine()
	if err != nil {
		return nil, diag.New(diag.Nonfatal, classifyParseError(err), diag.Loc(file, lineNo, 0), "%v", err)
	}
	return inst, nil
}

// parseErrorKinds maps the "kind: message" prefix convention internal/ea's
// fail() helper established onto the specific diag.Kind a parse failure
// carries, so a caller doesn't have to settle for a generic InvalOp for
// conditions spec.md names explicitly (e.g. TooManyIncbinArgs).
var parseErrorKinds = map[string]diag.Kind{
	"too-many-incbin-args": diag.TooManyIncbinArgs,
}

func classifyParseError(err error) diag.Kind {
	msg := err.Error()
	for prefix, kind := range parseErrorKinds {
		if strings.HasPrefix(msg, prefix+":") {
			return kind
		}
	}
	return diag.InvalOp
}

// dataListSize computes a DB-family instruction's emitted length without
// evaluating any operand: a raw string contributes one width-wide element
// per character, everything else (NUMBER, FLOAT, general expression)
// contributes exactly one element (spec.md §4.4 step 4). Because this
// never evaluates an expression, it needs no label to already be defined —
// unlike buildDataBytes, it is safe to call in pass 1.
func dataListSize(inst *parser.Instruction, width int) int {
	n := 0
	for _, op := range inst.Operands {
		if op.Kind == parser.OperandRawString {
			n += len(op.RawString) * width
		} else {
			n += width
		}
	}
	return n
}

// buildDataBytes evaluates a DB-family instruction's operand list into its
// emitted byte sequence. Called in pass 2, once every label in the file is
// defined, so a data item may reference a label declared later in the
// source.
func (ctx *Context) buildDataBytes(inst *parser.Instruction, width int) ([]byte, *diag.Error) {
	out := make([]byte, 0, dataListSize(inst, width))
	for _, op := range inst.Operands {
		if op.Kind == parser.OperandRawString {
			for i := 0; i < len(op.RawString); i++ {
				out = append(out, packLittleEndian(int64(op.RawString[i]), width)...)
			}
			continue
		}
		v, err := expr.NewEvaluator(op.ImmediateTokens, ctx.Store, ctx.Segment).Evaluate()
		if err != nil {
			return nil, diag.New(diag.Nonfatal, diag.InvalOp, diag.Loc("", op.Line, op.Column), "%v", err)
		}
		out = append(out, packLittleEndian(v.RelocValue(), width)...)
	}
	return out, nil
}

func packLittleEndian(v int64, width int) []byte {
	b := make([]byte, width)
	for i := 0; i < width; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
	return b
}

// readIncbin resolves an INCBIN instruction's filename/offset/length
// operands and reads the selected byte range (spec.md §4.8): it maps
// [start, start+want) of the file, min(filesize, limit) bounding the upper
// edge. Every I/O failure is non-fatal — it returns a diagnostic and zero
// bytes rather than aborting the rest of the assembly.
func (ctx *Context) readIncbin(inst *parser.Instruction, srcFile string) ([]byte, *diag.Error) {
	name := inst.Operands[0].RawString
	loc := diag.Loc(srcFile, inst.Line, inst.Column)

	var start, length int64 = 0, -1
	if len(inst.Operands) > 1 {
		if v, ok, _ := expr.Simplify(inst.Operands[1].ImmediateTokens, ctx.Store, ctx.Segment); ok {
			start = v
		}
	}
	if len(inst.Operands) > 2 {
		if v, ok, _ := expr.Simplify(inst.Operands[2].ImmediateTokens, ctx.Store, ctx.Segment); ok {
			length = v
		}
	}

	f, err := os.Open(incbinPath(srcFile, name))
	if err != nil {
		return nil, diag.New(diag.Nonfatal, diag.OpenFailed, loc, "incbin %q: %v", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, diag.New(diag.Nonfatal, diag.UnknownFileSize, loc, "incbin %q: %v", name, err)
	}

	size := info.Size()
	if start > size {
		start = size
	}
	want := size - start
	if length >= 0 && length < want {
		want = length
	}
	if want <= 0 {
		return nil, nil
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, diag.New(diag.Nonfatal, diag.SeekFailed, loc, "incbin %q: %v", name, err)
	}

	buf := make([]byte, want)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, diag.New(diag.Nonfatal, diag.UnexpectedEOF, loc, "incbin %q: %v", name, err)
	}
	return buf, nil
}

// incbinPath resolves a bare filename against the including source file's
// directory, the conventional "relative to the file that named it" rule.
func incbinPath(srcFile, name string) string {
	if srcFile == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(filepath.Dir(srcFile), name)
}

func maxBitsFor(bits int) int {
	if bits == 0 {
		return 64
	}
	return bits
}
