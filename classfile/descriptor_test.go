package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldTypeEncode(t *testing.T) {
	tcs := []struct {
		name string
		ft   FieldType
		want string
	}{
		{"byte", TByte(), "B"},
		{"int", TInt(), "I"},
		{"long", TLong(), "J"},
		{"boolean", TBoolean(), "Z"},
		{"class", TClass("jvlm/Math"), "Ljvlm/Math;"},
		{"array of int", TArray(TInt()), "[I"},
		{"array of class", TArray(TClass("java/lang/Object")), "[Ljava/lang/Object;"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.ft.Encode())
		})
	}
}

func TestMethodDescriptorEncode(t *testing.T) {
	md := MethodDescriptor{
		Params: []FieldType{TInt(), TLong(), TClass("jvlm/Math")},
		Return: nil,
	}
	assert.Equal(t, "(IJLjvlm/Math;)V", md.Encode())

	ret := TInt()
	md.Return = &ret
	assert.Equal(t, "(IJLjvlm/Math;)I", md.Encode())
}

func TestIntFieldTypeForWidthBoundaries(t *testing.T) {
	tcs := []struct {
		bits int
		want FieldKind
		ok   bool
	}{
		{1, KindBoolean, true},
		{2, KindByte, true},
		{8, KindByte, true},
		{9, KindShort, true},
		{16, KindShort, true},
		{17, KindInt, true},
		{32, KindInt, true},
		{33, KindLong, true},
		{64, KindLong, true},
		{65, 0, false},
		{128, 0, false},
	}
	for _, tc := range tcs {
		ft, ok := IntFieldTypeForWidth(tc.bits)
		if tc.ok {
			assert.Truef(t, ok, "width %d should map to a primitive", tc.bits)
			assert.Equal(t, tc.want, ft.Kind, "width %d", tc.bits)
		} else {
			assert.Falsef(t, ok, "width %d should have no primitive mapping", tc.bits)
		}
	}
}

func TestClassConstantName(t *testing.T) {
	assert.Equal(t, "jvlm/Math", TClass("jvlm/Math").ClassConstantName())
	assert.Equal(t, "[I", TArray(TInt()).ClassConstantName())
}

func TestIsWide(t *testing.T) {
	assert.True(t, TLong().IsWide())
	assert.True(t, TDouble().IsWide())
	assert.False(t, TInt().IsWide())
	assert.False(t, TClass("jvlm/Math").IsWide())
}
