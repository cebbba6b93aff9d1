package main

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, contents := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(contents))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestLinkConcatenatesDistinctEntries(t *testing.T) {
	a := buildZip(t, map[string]string{"a/A.class": "AAAA"})
	b := buildZip(t, map[string]string{"b/B.class": "BBBB"})

	pathA := writeTempFile(t, a)
	pathB := writeTempFile(t, b)

	var out bytes.Buffer
	require.NoError(t, link([]string{pathA, pathB}, &out))

	zr, err := zip.NewReader(bytes.NewReader(out.Bytes()), int64(out.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "AAAA", readEntry(t, zr, "a/A.class"))
	assert.Equal(t, "BBBB", readEntry(t, zr, "b/B.class"))
}

func TestLinkLastWinsOnDuplicateEntry(t *testing.T) {
	first := buildZip(t, map[string]string{"a/B.class": "first"})
	second := buildZip(t, map[string]string{"a/B.class": "second"})

	pathFirst := writeTempFile(t, first)
	pathSecond := writeTempFile(t, second)

	var out bytes.Buffer
	require.NoError(t, link([]string{pathFirst, pathSecond}, &out))

	zr, err := zip.NewReader(bytes.NewReader(out.Bytes()), int64(out.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "second", readEntry(t, zr, "a/B.class"))
}

func TestLinkRejectsUnreadableArchive(t *testing.T) {
	var out bytes.Buffer
	err := link([]string{"/nonexistent/archive.zip"}, &out)
	assert.Error(t, err)
}

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.zip")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func readEntry(t *testing.T, zr *zip.Reader, name string) string {
	t.Helper()
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()
			var buf bytes.Buffer
			_, err = buf.ReadFrom(rc)
			require.NoError(t, err)
			return buf.String()
		}
	}
	t.Fatalf("entry %q not found", name)
	return ""
}
