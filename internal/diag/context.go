package diag

import "sync"

// Sink is a thread-safe, append-only collector of diagnostic entries. Every
// assembler stage that can observe a line number takes a *Sink (or nil — all
// methods are nil-safe so tests can skip it) and records through it instead
// of returning bare strings.
type Sink struct {
	mu      sync.Mutex
	phase   string
	entries []Entry
}

// NewSink returns an empty, ready-to-use Sink.
func NewSink() *Sink {
	return &Sink{}
}

// SetPhase tags subsequent entries with the named pipeline phase (e.g.
// "scan", "parse", "match", "encode") until changed again.
func (s *Sink) SetPhase(name string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.phase = name
	s.mu.Unlock()
}

// Record appends an entry built from an *Error, tagging it with the sink's
// current phase.
func (s *Sink) Record(err *Error) {
	if s == nil || err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{
		Severity: err.Severity,
		Kind:     err.Kind,
		Phase:    s.phase,
		Message:  err.Message,
		Location: err.Location,
	})
}

// Note records a plain message at the given severity without a Kind (used
// for trace/info logging that has no associated error code).
func (s *Sink) Note(severity Severity, loc Location, format string, args ...any) {
	if s == nil {
		return
	}
	s.Record(New(severity, "", loc, format, args...))
}

// Entries returns a copy of every recorded entry, in insertion order.
func (s *Sink) Entries() []Entry {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// HasFatal reports whether any recorded entry aborts the pipeline.
func (s *Sink) HasFatal() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Severity.Aborts() {
			return true
		}
	}
	return false
}

// Count returns the number of recorded entries.
func (s *Sink) Count() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
