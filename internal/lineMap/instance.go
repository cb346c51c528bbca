package lineMap

import (
	"strings"
	"sync"
)

// Instance holds the current text of a tracked source buffer together with
// the full history of snapshots taken as pre-processing transforms it.
type Instance struct {
	value      string
	valueMutex sync.Mutex

	source  Source
	history History
}

// New creates an Instance seeded with an initial snapshot of value. source
// records where the buffer originally came from (for diagnostics); it is not
// re-read — the caller supplies the initial content directly.
func New(value string, source Source) *Instance {
	inst := &Instance{
		value:  value,
		source: source,
	}
	// The initial snapshot can never fail: History.snapshot only rejects a
	// second "initial" snapshot, and the history starts empty.
	_ = inst.history.snapshot(inst, LineSnapshotTypeInitial, nil)
	return inst
}

// Update replaces the tracked value with newValue and records a snapshot.
// When newValue is identical to the latest snapshot, a LineSnapshotTypeNoChange
// snapshot is recorded instead of re-diffing.
func (i *Instance) Update(newValue string) {
	i.valueMutex.Lock()
	defer i.valueMutex.Unlock()

	latest := i.history.latest()
	if latest != nil && latest.SourceCompare(newValue) {
		_ = i.history.snapshot(i, LineSnapshotTypeNoChange, nil)
		return
	}

	changes := i.diff(i.value, newValue)
	i.value = newValue
	_ = i.history.snapshot(i, LineSnapshotTypeChange, &changes)
}

// Value returns the current tracked text.
func (i *Instance) Value() string {
	i.valueMutex.Lock()
	defer i.valueMutex.Unlock()
	return i.value
}

// Lines returns the current tracked text split on newlines.
func (i *Instance) Lines() []string {
	return strings.Split(i.Value(), "\n")
}

// LineOrigin traces lineNumber in the current snapshot back to its line
// number in the initial snapshot, or -1 if it cannot be traced.
func (i *Instance) LineOrigin(lineNumber int) int {
	return i.history.LineOrigin(lineNumber)
}

// LineHistory returns every recorded change affecting lineNumber, oldest first.
func (i *Instance) LineHistory(lineNumber int) []LineChange {
	return i.history.lineHistory(lineNumber)
}

// diff produces a naive line-by-line change map between old and next,
// classifying every line of next beyond the length of old as "expanding"
// (inserted). Surplus lines of old are not recorded: diff produces no
// "contracting" entries. Lines that appear at the same index in both are
// left unrecorded — LineOrigin treats an absent entry as an unchanged 1:1
// map.
func (i *Instance) diff(old, next string) map[int]LineChange {
	oldLines := strings.Split(old, "\n")
	nextLines := strings.Split(next, "\n")

	changes := make(map[int]LineChange)

	common := len(oldLines)
	if len(nextLines) < common {
		common = len(nextLines)
	}

	for idx := common; idx < len(nextLines); idx++ {
		changes[idx] = LineChange{
			_type:  LineSnapshotTypeExpanding,
			origin: -1,
		}
	}

	return changes
}
