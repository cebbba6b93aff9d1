package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvlm-go/jvlmc/internal/testir"
	"github.com/jvlm-go/jvlmc/ir"
	"github.com/jvlm-go/jvlmc/memstrategy"
	"github.com/jvlm-go/jvlmc/namemap"
)

func compileToZip(t *testing.T, mod ir.Module, strategy memstrategy.Strategy) *zip.Reader {
	t.Helper()
	var buf bytes.Buffer
	w := NewZipWriter(&buf)
	p := NewPlanner(namemap.DefaultNameMapper{}, strategy, testir.AbiSizer{})
	require.NoError(t, p.Compile(mod, w))
	require.NoError(t, w.Close())
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return zr
}

func entryNames(zr *zip.Reader) []string {
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestPlannerEmitsOneClassPerFunctionSymbol(t *testing.T) {
	i32 := testir.IntType(32)
	a := &testir.Value{Ty: i32, Label: "a"}
	b := &testir.Value{Ty: i32, Label: "b"}
	add := &testir.Instruction{Value: testir.Value{Ty: i32}, Op: ir.OpAdd, Ops: []ir.Value{a, b}}
	ret := &testir.Instruction{Op: ir.OpReturn, Ops: []ir.Value{add}}
	block := &testir.Block{Label: "entry", Instrs: []ir.Instruction{add, ret}}
	fn := &testir.Function{FName: "jvlm__pkg_Math_sum", FParams: []ir.Value{a, b}, FBlocks: []ir.Block{block}, FReturn: i32}

	mod := &testir.Module{Funcs: []ir.Function{fn}}
	zr := compileToZip(t, mod, memstrategy.SegmentStrategy{})

	names := entryNames(zr)
	assert.Contains(t, names, "pkg/Math.class")
	assert.Contains(t, names, "jvlm/rt/MemorySegmentStack.class")
}

func TestPlannerWritesArchiveResourceGlobalAsRawEntry(t *testing.T) {
	res := &testir.Global{GName: "jvlm__blob", ResourcePath: "META-INF/blob.bin", IsResource: true, ResourceData: []byte("hello")}
	mod := &testir.Module{Globs: []ir.Global{res}}
	zr := compileToZip(t, mod, memstrategy.SegmentStrategy{})

	var found *zip.File
	for _, f := range zr.File {
		if f.Name == "META-INF/blob.bin" {
			found = f
		}
	}
	require.NotNil(t, found)
	rc, err := found.Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestPlannerRejectsExternalFunctionDefinition(t *testing.T) {
	i32 := testir.IntType(32)
	ret := &testir.Instruction{Op: ir.OpReturn, Ops: []ir.Value{testir.NewIntConst(i32, 0)}}
	block := &testir.Block{Label: "entry", Instrs: []ir.Instruction{ret}}
	fn := &testir.Function{FName: "jvlm_extern__should_not_be_defined", FBlocks: []ir.Block{block}, FReturn: i32}
	mod := &testir.Module{Funcs: []ir.Function{fn}}

	var buf bytes.Buffer
	w := NewZipWriter(&buf)
	p := NewPlanner(namemap.DefaultNameMapper{}, memstrategy.SegmentStrategy{}, testir.AbiSizer{})
	err := p.Compile(mod, w)
	require.Error(t, err)
}

func TestPlannerSkipsBodylessFunctionsAndUninitializedGlobals(t *testing.T) {
	i32 := testir.IntType(32)
	decl := &testir.Function{FName: "jvlm__decl_only", FReturn: i32}
	extGlobal := &testir.Global{GName: "jvlm__ext", GType: i32}
	mod := &testir.Module{Funcs: []ir.Function{decl}, Globs: []ir.Global{extGlobal}}
	zr := compileToZip(t, mod, memstrategy.SegmentStrategy{})

	assert.Len(t, zr.File, 1) // only the support class
	assert.Equal(t, "jvlm/rt/MemorySegmentStack.class", zr.File[0].Name)
}
