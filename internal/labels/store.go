// Package labels implements the label-store external interface from
// spec.md §4.10 and provides one concrete, in-memory backend (MapStore)
// good enough to assemble a single file end to end.
package labels

// Store is the symbol table the evaluator and parser consult while
// resolving label references. Spec.md marks this interface-only; a real
// multi-object linker sits behind it in a full toolchain, out of scope here.
type Store interface {
	// Lookup resolves name to a (segment, offset) pair and reports whether
	// it is currently defined. An undefined symbol is not necessarily an
	// error — the non-critical evaluator grammar tolerates forward
	// references by returning an Unknown vector instead.
	Lookup(name string) (segment int64, offset int64, defined bool)

	// IsExtern reports whether name was declared EXTERN (so a reference to
	// it is always "unknown but legal", never a forward-reference error).
	IsExtern(name string) bool

	// Declare registers name as EXTERN/COMMON/GLOBAL without giving it a
	// value yet.
	Declare(name string, extern bool)

	// Define binds name to (segment, offset). Re-defining an already
	// defined non-local symbol is the caller's responsibility to reject
	// (spec.md's "duplicate symbol" is a parser/assembler-level concern,
	// not the store's).
	Define(name string, segment int64, offset int64)

	// LocalScope reports the enclosing non-local label that a `.local`
	// style identifier should be mangled against, and whether one is set.
	LocalScope() (string, bool)

	// SetMangle sets the enclosing non-local label new `.local` references
	// mangle against, per spec.md's identifier-scoping rule.
	SetMangle(nonLocal string)
}

// HereLabel resolves the "$"/"$$" current-location pseudo-symbols. It is a
// function rather than part of Store because the current location belongs
// to the assembler's cursor state, not the symbol table.
type HereLabel func() (segment int64, offset int64, sectionStart int64)
