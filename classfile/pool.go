package classfile

import (
	"encoding/binary"
	"io"
)

// Reference is a 1-based index into a constant pool. Zero is never a valid
// reference.
type Reference uint16

// maxPoolSize is the largest number of entries a 16-bit count field can
// describe once the leading implicit slot is accounted for.
const maxPoolSize = 0xFFFE

type tag byte

const (
	tagUtf8               tag = 1
	tagInteger            tag = 3
	tagLong               tag = 5
	tagClass              tag = 7
	tagNameAndType        tag = 12
	tagFieldRef           tag = 9
	tagMethodRef          tag = 10
	tagInterfaceMethodRef tag = 11
)

// entry is a single constant pool slot. It is comparable so the pool can
// use it directly as a map key for de-duplication.
type entry struct {
	tag tag

	utf8 string
	i32  int32
	i64  int64

	classUtf8 Reference

	natName Reference
	natDesc Reference

	refClass Reference
	refNat   Reference
}

// Pool is an insertion-ordered, de-duplicating constant pool. Every
// operation is idempotent: calling it twice with equal arguments returns
// the same Reference. References are handed out in the order entries are
// first inserted and serialize in that same order; a referrer (e.g. a
// Class entry) may be inserted before the entry it refers to is flushed
// to the wire, since the only ordering invariant is that the referenced
// entry exists somewhere in the pool by finalization.
type Pool struct {
	entries []entry
	index   map[entry]Reference
	nextRef int
}

// NewPool returns an empty constant pool.
func NewPool() *Pool {
	return &Pool{index: make(map[entry]Reference), nextRef: 1}
}

// intern assigns the next reference and advances nextRef by the entry's
// slot width. Long constants occupy two consecutive indices — the slot
// after a Long is unusable per the classfile format — so width is 2 for
// tagLong and 1 for everything else.
func (p *Pool) intern(e entry) (Reference, error) {
	if r, ok := p.index[e]; ok {
		return r, nil
	}
	width := 1
	if e.tag == tagLong {
		width = 2
	}
	if p.nextRef+width-1 > maxPoolSize {
		return 0, EncodingOverflowError{What: "constant pool reference", Value: int64(p.nextRef + width - 1), Limit: maxPoolSize}
	}
	r := Reference(p.nextRef)
	p.entries = append(p.entries, e)
	p.index[e] = r
	p.nextRef += width
	logger.Printf("intern tag=%d -> #%d", e.tag, r)
	return r, nil
}

// Utf8 interns a UTF-8 constant.
func (p *Pool) Utf8(s string) (Reference, error) {
	return p.intern(entry{tag: tagUtf8, utf8: s})
}

// Class interns a Class constant naming the given binary class name
// (slash-separated, e.g. "jvlm/Math").
func (p *Pool) Class(binaryName string) (Reference, error) {
	u, err := p.Utf8(binaryName)
	if err != nil {
		return 0, err
	}
	return p.intern(entry{tag: tagClass, classUtf8: u})
}

// Integer interns a 32-bit integer constant.
func (p *Pool) Integer(n int32) (Reference, error) {
	return p.intern(entry{tag: tagInteger, i32: n})
}

// Long interns a 64-bit integer constant. Not part of spec.md §3's entry
// list; added because ConstLong needs somewhere to put values outside the
// 32-bit range a single iconst/ldc + i2l can widen from (spec.md §9 leaves
// the long-constant representation implementer-specified).
func (p *Pool) Long(n int64) (Reference, error) {
	return p.intern(entry{tag: tagLong, i64: n})
}

// NameAndType interns a NameAndType constant.
func (p *Pool) NameAndType(name, descriptor string) (Reference, error) {
	n, err := p.Utf8(name)
	if err != nil {
		return 0, err
	}
	d, err := p.Utf8(descriptor)
	if err != nil {
		return 0, err
	}
	return p.intern(entry{tag: tagNameAndType, natName: n, natDesc: d})
}

// FieldRef interns a Fieldref constant.
func (p *Pool) FieldRef(class, name, descriptor string) (Reference, error) {
	c, err := p.Class(class)
	if err != nil {
		return 0, err
	}
	nat, err := p.NameAndType(name, descriptor)
	if err != nil {
		return 0, err
	}
	return p.intern(entry{tag: tagFieldRef, refClass: c, refNat: nat})
}

// MethodRef interns a Methodref constant.
func (p *Pool) MethodRef(class, name, descriptor string) (Reference, error) {
	c, err := p.Class(class)
	if err != nil {
		return 0, err
	}
	nat, err := p.NameAndType(name, descriptor)
	if err != nil {
		return 0, err
	}
	return p.intern(entry{tag: tagMethodRef, refClass: c, refNat: nat})
}

// InterfaceMethodRef interns an InterfaceMethodref constant.
func (p *Pool) InterfaceMethodRef(class, name, descriptor string) (Reference, error) {
	c, err := p.Class(class)
	if err != nil {
		return 0, err
	}
	nat, err := p.NameAndType(name, descriptor)
	if err != nil {
		return 0, err
	}
	return p.intern(entry{tag: tagInterfaceMethodRef, refClass: c, refNat: nat})
}

// Count is the constant_pool_count field: one past the highest valid
// index, accounting for the extra unusable slot after each Long entry.
func (p *Pool) Count() int {
	return p.nextRef
}

// WriteTo serializes the pool count followed by each entry in insertion
// order, per the classfile wire format in spec.md §6.
func (p *Pool) WriteTo(w io.Writer) error {
	if err := writeU16(w, uint16(p.Count())); err != nil {
		return err
	}
	for _, e := range p.entries {
		if err := writeEntry(w, e); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(w io.Writer, e entry) error {
	if err := writeU8(w, byte(e.tag)); err != nil {
		return err
	}
	switch e.tag {
	case tagUtf8:
		b := []byte(e.utf8)
		if err := writeU16(w, uint16(len(b))); err != nil {
			return err
		}
		_, err := w.Write(b)
		return err
	case tagInteger:
		return binary.Write(w, binary.BigEndian, e.i32)
	case tagLong:
		return binary.Write(w, binary.BigEndian, e.i64)
	case tagClass:
		return writeU16(w, uint16(e.classUtf8))
	case tagNameAndType:
		if err := writeU16(w, uint16(e.natName)); err != nil {
			return err
		}
		return writeU16(w, uint16(e.natDesc))
	case tagFieldRef, tagMethodRef, tagInterfaceMethodRef:
		if err := writeU16(w, uint16(e.refClass)); err != nil {
			return err
		}
		return writeU16(w, uint16(e.refNat))
	}
	return InvariantViolationError{What: "unknown constant pool tag"}
}

func writeU8(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func writeU16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}
