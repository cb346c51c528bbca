package lineMap

import (
	"errors"
	"os"
	"strings"

	"github.com/keurnel/x86asm/internal/diag"
)

var (
	osStat     = os.Stat
	osReadFile = os.ReadFile
)

// Source represents a validated, loaded source file. If a Source value
// exists, it is guaranteed to hold a valid path and its file content.
// There is no unloaded or partially-initialised state.
//
// Create a Source exclusively through LoadSource().
type Source struct {
	// path - absolute path to the source file.
	path string
	// content - the content of the source file.
	content string
}

// LoadSource validates the path, reads the file, and returns a ready-to-use
// Source — or an error. This is the only way to construct a Source.
func LoadSource(path string) (Source, error) {
	// Validate file extension.
	//
	if !strings.HasSuffix(path, ".kasm") {
		return Source{}, errors.New("lineMap error: source file must have a .kasm extension")
	}

	// Check if file exists and is accessible.
	//
	file, err := osStat(path)
	if err != nil {
		return Source{}, err
	}

	// Ensure path is not a directory.
	//
	if file.IsDir() {
		return Source{}, errors.New("lineMap error: source path is a directory where a file is expected")
	}

	// Read the file content.
	//
	contentBytes, err := osReadFile(path)
	if err != nil {
		return Source{}, err
	}

	return Source{
		path:    path,
		content: string(contentBytes),
	}, nil
}

// ClassifyError maps an error returned by LoadSource onto a diag.Kind, so a
// caller that reports diagnostics through internal/diag doesn't have to
// pattern-match LoadSource's message text itself. LoadSource's own error
// values are left untouched (callers that only check errors.Is/err.Error()
// see exactly what LoadSource returned); this is purely an additional,
// read-only lens onto the same errors.
func ClassifyError(err error) diag.Kind {
	switch {
	case err == nil:
		return ""
	case strings.Contains(err.Error(), "extension"):
		return diag.BadSourceExtension
	case strings.Contains(err.Error(), "directory"):
		return diag.NotAFile
	default:
		return diag.OpenFailed
	}
}

// Path returns the file path of the source.
func (s Source) Path() string {
	return s.path
}

// Content returns the loaded content of the source file.
func (s Source) Content() string {
	return s.content
}
