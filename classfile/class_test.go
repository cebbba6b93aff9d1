package classfile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassWriterFinalizeProducesValidHeader(t *testing.T) {
	cw, err := NewClassWriter("jvlm/Math", "java/lang/Object")
	require.NoError(t, err)
	mw, err := cw.WriteMethod(MethodMetadata{
		Name:       "add",
		Descriptor: MethodDescriptor{Params: []FieldType{TInt(), TInt()}, Return: ptr(TInt())},
		IsStatic:   true,
		Public:     true,
	})
	require.NoError(t, err)
	require.NoError(t, mw.Load(KInt, 0))
	require.NoError(t, mw.Load(KInt, 1))
	require.NoError(t, mw.BinOp(KInt, ArithAdd))
	k := KInt
	require.NoError(t, mw.Return(&k))

	out, err := cw.Finalize()
	require.NoError(t, err)

	assert.Equal(t, uint32(classMagic), binary.BigEndian.Uint32(out[0:4]))
	assert.Equal(t, classMinorVer, binary.BigEndian.Uint16(out[4:6]))
	assert.Equal(t, classMajorVer, binary.BigEndian.Uint16(out[6:8]))
}

func TestClassWriterWithFields(t *testing.T) {
	cw, err := NewClassWriter("jvlm/Counter", "java/lang/Object")
	require.NoError(t, err)
	require.NoError(t, cw.WriteField(FieldMetadata{Name: "count", Type: TInt(), IsStatic: true, Public: true}))

	out, err := cw.Finalize()
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestClassWriterMethodLocalsSeededWithReceiver(t *testing.T) {
	cw, err := NewClassWriter("jvlm/Box", "java/lang/Object")
	require.NoError(t, err)
	mw, err := cw.WriteMethod(MethodMetadata{
		Name:       "get",
		Descriptor: MethodDescriptor{Return: ptr(TInt())},
		IsStatic:   false,
		Public:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, mw.Tracker().MaxLocals(), "instance methods seed local slot 0 with the receiver")
}

func TestClassWriterStaticMethodLocalsExcludeReceiver(t *testing.T) {
	cw, err := NewClassWriter("jvlm/Box", "java/lang/Object")
	require.NoError(t, err)
	mw, err := cw.WriteMethod(MethodMetadata{
		Name:       "make",
		Descriptor: MethodDescriptor{Params: []FieldType{TInt()}, Return: ptr(TClass("jvlm/Box"))},
		IsStatic:   true,
		Public:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, mw.Tracker().MaxLocals(), "one param slot, no receiver slot")
}

func TestBuildStackMapTableEmptyWhenNoFramesRecorded(t *testing.T) {
	pool := NewPool()
	out, err := buildStackMapTable(pool, map[CodeLocation]StackMapFrame{})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestBuildStackMapTableRecordsFrameAtBranchTarget(t *testing.T) {
	cw, err := NewClassWriter("jvlm/Cond", "java/lang/Object")
	require.NoError(t, err)
	mw, err := cw.WriteMethod(MethodMetadata{
		Name:       "pick",
		Descriptor: MethodDescriptor{Params: []FieldType{TInt()}, Return: ptr(TInt())},
		IsStatic:   true,
		Public:     true,
	})
	require.NoError(t, err)

	require.NoError(t, mw.Load(KInt, 0))
	target, err := mw.IfZero(CmpEq)
	require.NoError(t, err)
	require.NoError(t, mw.ConstInt(1))
	k := KInt
	require.NoError(t, mw.Return(&k))
	require.NoError(t, mw.Code().SetTarget(target, mw.Code().Offset()))
	mw.RecordFrame()
	require.NoError(t, mw.ConstInt(0))
	require.NoError(t, mw.Return(&k))

	out, err := cw.Finalize()
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func ptr(ft FieldType) *FieldType { return &ft }
