package classfile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolDeduplicatesEqualEntries(t *testing.T) {
	p := NewPool()

	r1, err := p.Utf8("jvlm/Math")
	require.NoError(t, err)
	r2, err := p.Utf8("jvlm/Math")
	require.NoError(t, err)
	assert.Equal(t, r1, r2, "identical Utf8 interns must return the same reference")

	c1, err := p.Class("jvlm/Math")
	require.NoError(t, err)
	c2, err := p.Class("jvlm/Math")
	require.NoError(t, err)
	assert.Equal(t, c1, c2)

	m1, err := p.MethodRef("jvlm/Math", "add", "(II)I")
	require.NoError(t, err)
	m2, err := p.MethodRef("jvlm/Math", "add", "(II)I")
	require.NoError(t, err)
	assert.Equal(t, m1, m2)
}

func TestPoolDistinctEntriesGetDistinctReferences(t *testing.T) {
	p := NewPool()
	a, err := p.Utf8("a")
	require.NoError(t, err)
	b, err := p.Utf8("b")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPoolLongEntryConsumesTwoSlots(t *testing.T) {
	p := NewPool()
	longRef, err := p.Long(1 << 40)
	require.NoError(t, err)
	nextUtf8, err := p.Utf8("after-long")
	require.NoError(t, err)

	assert.Equal(t, Reference(1), longRef)
	assert.Equal(t, Reference(3), nextUtf8, "a Utf8 interned after a Long must skip the Long's phantom second slot")
	assert.Equal(t, 4, p.Count())
}

func TestPoolOverflowReturnsError(t *testing.T) {
	p := NewPool()
	p.nextRef = maxPoolSize + 1
	_, err := p.Utf8("one too many")
	assert.Error(t, err)
	assert.IsType(t, EncodingOverflowError{}, err)
}

func TestPoolWriteToRoundTrip(t *testing.T) {
	p := NewPool()
	_, err := p.Utf8("hello")
	require.NoError(t, err)
	_, err = p.Integer(42)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.WriteTo(&buf))
	assert.NotEmpty(t, buf.Bytes())

	// count field (u2) comes first and must equal Count().
	count := uint16(buf.Bytes()[0])<<8 | uint16(buf.Bytes()[1])
	assert.Equal(t, uint16(p.Count()), count)
}
