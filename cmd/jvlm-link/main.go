// Command jvlm-link is the archive linker from SPEC_FULL.md §4.10: it
// concatenates the entries of several prebuilt classfile archives into
// one output archive, grounded on original_source/src/linker/mod.rs's
// use of the `zip` crate for the same merge operation.
package main

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

// fixedModTime matches archive.Writer's own epoch pin (spec.md §5's
// determinism requirement), so a linked archive is byte-for-byte stable
// across runs just like a freshly compiled one.
var fixedModTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

func main() {
	app := &cli.App{
		Name:      "jvlm-link",
		Usage:     "concatenate classfile archives, last input wins on duplicate entries",
		ArgsUsage: "<input-archive>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Required: true, Usage: "output archive path"},
		},
		Action: runLink,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runLink(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("expected at least one input archive path", 1)
	}

	f, err := os.Create(c.String("out"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	linkErr := link(c.Args().Slice(), f)
	closeErr := f.Close()
	if linkErr != nil {
		os.Remove(c.String("out"))
		return cli.Exit(linkErr, 1)
	}
	if closeErr != nil {
		os.Remove(c.String("out"))
		return cli.Exit(closeErr, 1)
	}
	return nil
}

// link is runLink's testable core: it merges the named archives into
// out, last path wins when two archives share an entry name.
func link(inputPaths []string, out io.Writer) error {
	entries, order, err := mergeEntries(inputPaths)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(out)
	for _, name := range order {
		data := entries[name]
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: fixedModTime})
		if err != nil {
			return fmt.Errorf("jvlm-link: writing entry %q: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("jvlm-link: writing entry %q: %w", name, err)
		}
	}
	return zw.Close()
}

// mergeEntries reads every input archive in order, keeping the bytes of
// the LAST archive to define a given entry name (spec.md §6's
// implementer-choice last-wins policy) while preserving first-seen
// ordering for the merged entry list, so output iteration order stays
// stable across runs.
func mergeEntries(inputPaths []string) (entries map[string][]byte, order []string, err error) {
	entries = make(map[string][]byte)
	for _, path := range inputPaths {
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, nil, fmt.Errorf("jvlm-link: opening %q: %w", path, err)
		}
		for _, f := range zr.File {
			data, err := readZipFile(f)
			if err != nil {
				zr.Close()
				return nil, nil, fmt.Errorf("jvlm-link: reading %q from %q: %w", f.Name, path, err)
			}
			if _, seen := entries[f.Name]; !seen {
				order = append(order, f.Name)
			}
			entries[f.Name] = data
		}
		zr.Close()
	}
	return entries, order, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
