package archive

import "fmt"

// IoError is spec.md §7's IoError kind: the underlying archive.Writer
// (or the file it's backed by) failed. Wraps the cause rather than
// reformatting it, since the cause already carries the useful detail
// (a path, an open-file error).
type IoError struct {
	Op    string
	Cause error
}

func (e IoError) Error() string {
	return fmt.Sprintf("archive: %s: %s", e.Op, e.Cause)
}

func (e IoError) Unwrap() error { return e.Cause }
