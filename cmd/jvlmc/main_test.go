package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvlm-go/jvlmc/internal/testir"
	"github.com/jvlm-go/jvlmc/ir"
	"github.com/jvlm-go/jvlmc/memstrategy"
	"github.com/jvlm-go/jvlmc/namemap"
)

func TestStrategyByName(t *testing.T) {
	s, err := strategyByName("")
	require.NoError(t, err)
	assert.IsType(t, memstrategy.SegmentStrategy{}, s)

	s, err = strategyByName("segment")
	require.NoError(t, err)
	assert.IsType(t, memstrategy.SegmentStrategy{}, s)

	s, err = strategyByName("shadow-heap")
	require.NoError(t, err)
	assert.IsType(t, memstrategy.ShadowHeapStrategy{}, s)

	_, err = strategyByName("bogus")
	assert.Error(t, err)
}

func TestCompileProducesArchive(t *testing.T) {
	i32 := testir.IntType(32)
	ret := &testir.Instruction{Op: ir.OpReturn, Ops: []ir.Value{testir.NewIntConst(i32, 0)}}
	block := &testir.Block{Label: "entry", Instrs: []ir.Instruction{ret}}
	fn := &testir.Function{FName: "jvlm__pkg_Thing_go", FBlocks: []ir.Block{block}, FReturn: i32}
	mod := &testir.Module{Funcs: []ir.Function{fn}}

	var buf bytes.Buffer
	err := compile("segment", namemap.DefaultNameMapper{}, mod, testir.AbiSizer{}, &buf)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "pkg/Thing.class")
}

func TestCompileRejectsUnknownStrategy(t *testing.T) {
	mod := &testir.Module{}
	var buf bytes.Buffer
	err := compile("nonsense", namemap.DefaultNameMapper{}, mod, testir.AbiSizer{}, &buf)
	assert.Error(t, err)
}

func TestNameMapperFromFlagDefault(t *testing.T) {
	m, err := nameMapperFromFlag("")
	require.NoError(t, err)
	assert.Equal(t, namemap.DefaultNameMapper{}, m)
}

func TestNameMapperFromFlagOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.json")
	contents, err := json.Marshal(overrideFile{
		Functions: map[string]namemap.FunctionLocation{
			"weird_symbol": {ClassName: "custom/Class", MemberName: "method", Dispatch: namemap.Static},
		},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	m, err := nameMapperFromFlag(path)
	require.NoError(t, err)

	loc, err := m.LocationOfFunction("weird_symbol")
	require.NoError(t, err)
	assert.Equal(t, "custom/Class", loc.ClassName)
	assert.Equal(t, "method", loc.MemberName)

	// Falls through to the default policy for anything not overridden.
	loc, err = m.LocationOfFunction("jvlm__pkg_Other_run")
	require.NoError(t, err)
	assert.Equal(t, "pkg/Other", loc.ClassName)
}

func TestNameMapperFromFlagMissingFile(t *testing.T) {
	_, err := nameMapperFromFlag("/nonexistent/path/overrides.json")
	assert.Error(t, err)
}

func TestLoadModuleReportsOutOfScope(t *testing.T) {
	_, _, err := loadModule("some/path.bc")
	assert.Error(t, err)
}

// TestRunCompileWritesArchiveViaTempRename drives the real CLI path
// (newApp().Run, not compile() directly) end to end, confirming the
// output file only appears at outputPath once — via the temp-then-rename
// in runCompile — and that its contents are a valid archive.
func TestRunCompileWritesArchiveViaTempRename(t *testing.T) {
	origLoadModule := loadModule
	defer func() { loadModule = origLoadModule }()
	loadModule = func(path string) (ir.Module, ir.AbiSizer, error) {
		i32 := testir.IntType(32)
		ret := &testir.Instruction{Op: ir.OpReturn, Ops: []ir.Value{testir.NewIntConst(i32, 0)}}
		block := &testir.Block{Label: "entry", Instrs: []ir.Instruction{ret}}
		fn := &testir.Function{FName: "jvlm__pkg_Thing_go", FBlocks: []ir.Block{block}, FReturn: i32}
		return &testir.Module{Funcs: []ir.Function{fn}}, testir.AbiSizer{}, nil
	}

	dir := t.TempDir()
	outputPath := filepath.Join(dir, "out.jar")

	err := newApp().Run([]string{"jvlmc", "in.bc", outputPath})
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "pkg/Thing.class")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no stray temp file should survive a successful compile")
}

// TestRunCompileLeavesNoPartialArchiveOnError drives runCompile through
// newApp().Run with a loadModule that fails: Run must return the error,
// and no file, partial or otherwise, may be left at outputPath.
func TestRunCompileLeavesNoPartialArchiveOnError(t *testing.T) {
	origLoadModule := loadModule
	defer func() { loadModule = origLoadModule }()
	loadModule = func(path string) (ir.Module, ir.AbiSizer, error) {
		return nil, nil, fmt.Errorf("boom: %s", path)
	}

	dir := t.TempDir()
	outputPath := filepath.Join(dir, "out.jar")

	err := newApp().Run([]string{"jvlmc", "in.bc", outputPath})
	assert.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "a failed compile must leave no file, partial or otherwise, at outputPath")
}
