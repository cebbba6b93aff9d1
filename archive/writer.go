// Package archive is the Archive Assembly & Planner from spec.md §4.9:
// it walks an ir.Module's functions and globals, groups them into
// per-class plans via the Name Mapping Interface, drives classfile and
// lower to build each class, and writes the result to a zip-backed
// output container. Grounded on wasm/module.go's "accumulate sections,
// then serialize" structure for the planning half, and on
// original_source/src/linker/mod.rs's use of the `zip` crate (here,
// the stdlib archive/zip) for the container half.
package archive

import (
	"archive/zip"
	"io"
	"time"
)

// Writer is the literal Go expression of spec.md §6's "Output
// container": open a named entry, get back an io.Writer to stream its
// bytes into. Close finishes the container — callers must call it
// exactly once, after every entry has been written, on every exit path
// including error paths (spec.md §5: "any fatal abort must leave no
// partial archive on disk" — achieved by the caller removing the
// half-written output file rather than by this interface, which has no
// abort/rollback operation of its own).
type Writer interface {
	StartFile(name string) (io.Writer, error)
	Close() error
}

// fixedModTime is the timestamp every entry is pinned to, per spec.md
// §5's determinism requirement ("Timestamps must be a fixed value for
// reproducibility"). 1980-01-01 is the zip format's own epoch — the
// earliest timestamp the DOS date/time fields the format uses can
// represent at all.
var fixedModTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// zipWriter is the archive/zip-backed Writer implementation.
type zipWriter struct {
	zw *zip.Writer
}

// NewZipWriter wraps w as an archive Writer, streaming a zip (jar)
// container to it.
func NewZipWriter(w io.Writer) Writer {
	return &zipWriter{zw: zip.NewWriter(w)}
}

func (z *zipWriter) StartFile(name string) (io.Writer, error) {
	out, err := z.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: fixedModTime,
	})
	if err != nil {
		return nil, IoError{Op: "start entry " + name, Cause: err}
	}
	return out, nil
}

func (z *zipWriter) Close() error {
	if err := z.zw.Close(); err != nil {
		return IoError{Op: "close archive", Cause: err}
	}
	return nil
}
