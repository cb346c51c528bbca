package diag

import "fmt"

// Location identifies a position in source text. It is a value type, safe
// to copy and compare.
type Location struct {
	File   string
	Line   int
	Column int // 0 means "entire line"
}

// Loc builds a Location.
func Loc(file string, line, column int) Location {
	return Location{File: file, Line: line, Column: column}
}

func (l Location) String() string {
	if l.Column == 0 {
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}
