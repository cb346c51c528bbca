// Package warnings implements the named warning-class state machine of
// spec.md §4.9: each class defaults to on, off, or error; the control
// language (`+name`, `-name`, `*name`, `none`, `all`, `error=name`) mutates
// a snapshot; PUSH/POP maintain a snapshot stack whose bottom entry (the
// state right after command-line processing) is never popped away.
package warnings

import "strings"

// State is one class's current enablement.
type State int

const (
	Off State = iota
	On
	Error
)

// Class describes one named warning with its default state.
type Class struct {
	Name    string
	Default State
}

// Builtin lists the warning classes the core itself raises (spec.md's
// diag.Kind entries that have a warning-severity counterpart); a host can
// pass its own class list to NewSet instead.
var Builtin = []Class{
	{Name: "bounded-data-overflow", Default: On},
	{Name: "zero-extension", Default: On},
	{Name: "short-jump-out-of-range", Default: Error},
	{Name: "float-overflow", Default: On},
	{Name: "float-denorm", Default: Off},
	{Name: "unknown-warning", Default: On},
	{Name: "warn-stack-empty", Default: On},
	{Name: "other", Default: On},
}

// Set is the mutable state table consulted while assembling: current state
// per class, plus the snapshot stack PUSH/POP manipulates.
type Set struct {
	classes map[string]State
	order   []string // declaration order, for a stable class-table listing
	stack   []map[string]State
}

// NewSet builds a Set seeded from classes (use Builtin for the default
// table), every class starting at its own default.
func NewSet(classes []Class) *Set {
	s := &Set{classes: make(map[string]State, len(classes))}
	for _, c := range classes {
		s.classes[strings.ToLower(c.Name)] = c.Default
		s.order = append(s.order, strings.ToLower(c.Name))
	}
	return s
}

// Classes returns every registered class name in declaration order.
func (s *Set) Classes() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// State reports the current state of name, or (Off, false) if name is not
// a registered class.
func (s *Set) State(name string) (State, bool) {
	st, ok := s.classes[strings.ToLower(name)]
	return st, ok
}

// IsEnabled reports whether diagnostics of the named class should be
// reported at all (On or Error); unregistered names report false.
func (s *Set) IsEnabled(name string) bool {
	st, ok := s.State(name)
	return ok && st != Off
}

// IsError reports whether the named class has been promoted to error
// severity.
func (s *Set) IsError(name string) bool {
	st, ok := s.State(name)
	return ok && st == Error
}

// Snapshot captures the permanent command-line baseline. Call this once,
// immediately after applying every `-w`/`-W` flag, before any `[WARNING
// push]` directive in source can run — it becomes the floor POP can never
// go below (spec.md §4.9 "the snapshot captured immediately after
// command-line processing is permanent and never popped").
func (s *Set) Snapshot() {
	s.stack = append(s.stack, s.copy())
}

// Push duplicates the current state onto the stack (`[WARNING push]`).
func (s *Set) Push() {
	s.stack = append(s.stack, s.copy())
}

// Pop restores the state captured by the most recent Push, removing it
// from the stack. Popping below the permanent command-line snapshot is not
// allowed: it raises warn-stack-empty and resets every class to "on"
// instead, leaving the permanent snapshot itself untouched (spec.md §4.9).
func (s *Set) Pop() (raisedStackEmpty bool) {
	if len(s.stack) <= 1 {
		s.resetAllOn()
		return true
	}
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	s.classes = top
	return false
}

func (s *Set) resetAllOn() {
	for name := range s.classes {
		s.classes[name] = On
	}
}

func (s *Set) copy() map[string]State {
	return s.copyFrom(s.classes)
}

func (s *Set) copyFrom(src map[string]State) map[string]State {
	out := make(map[string]State, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Apply runs one control-language token against the Set (spec.md §4.9 and
// §6 "warning directive"): `+name` enables, `-name`/`no-name` disables,
// `*name` resets to that class's default, `none` disables everything,
// `all` enables everything, `error=name` (or `+error=name`) promotes name
// to error. Matching is case-insensitive; a trailing `-` on name performs
// prefix matching ("float-" matches every class beginning with "float-").
// Reports false when name matches no registered class; Apply records no
// diagnostic itself, so raising unknown-warning is left to the caller.
func (s *Set) Apply(token string) bool {
	switch strings.ToLower(token) {
	case "none":
		for name := range s.classes {
			s.classes[name] = Off
		}
		return true
	case "all":
		for name := range s.classes {
			s.classes[name] = On
		}
		return true
	}

	verb, name := splitVerb(token)
	matched := false
	for _, candidate := range s.matching(name) {
		matched = true
		switch verb {
		case '+':
			s.classes[candidate] = On
		case '-':
			s.classes[candidate] = Off
		case '*':
			s.resetDefault(candidate)
		case 'e':
			s.classes[candidate] = Error
		}
	}
	return matched
}

// splitVerb extracts the leading verb character and the bare class name
// from one control-language token.
func splitVerb(token string) (verb byte, name string) {
	lower := strings.ToLower(token)
	switch {
	case strings.HasPrefix(lower, "error="):
		return 'e', lower[len("error="):]
	case strings.HasPrefix(lower, "+error="):
		return 'e', lower[len("+error="):]
	case strings.HasPrefix(lower, "+"):
		return '+', lower[1:]
	case strings.HasPrefix(lower, "-"):
		return '-', lower[1:]
	case strings.HasPrefix(lower, "no-"):
		return '-', lower[len("no-"):]
	case strings.HasPrefix(lower, "*"):
		return '*', lower[1:]
	default:
		return '+', lower
	}
}

// matching returns every registered class name that name addresses: an
// exact match, or — when name ends in "-" — every class whose name begins
// with the prefix (spec.md §4.9's prefix-matching rule).
func (s *Set) matching(name string) []string {
	if strings.HasSuffix(name, "-") {
		var out []string
		for _, candidate := range s.order {
			if strings.HasPrefix(candidate, name) {
				out = append(out, candidate)
			}
		}
		return out
	}
	if _, ok := s.classes[name]; ok {
		return []string{name}
	}
	return nil
}

func (s *Set) resetDefault(name string) {
	for _, c := range Builtin {
		if strings.ToLower(c.Name) == name {
			s.classes[name] = c.Default
			return
		}
	}
}
