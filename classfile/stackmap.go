package classfile

import (
	"bytes"
	"sort"
)

// wireTag is the verification_type_info tag byte from the StackMapTable
// attribute format — a different numbering than VTag, since the two
// enums serve different documents (ours vs. the classfile spec's).
const (
	wireTop               = 0
	wireInteger           = 1
	wireFloat             = 2
	wireDouble            = 3
	wireLong              = 4
	wireNull              = 5
	wireUninitializedThis = 6
	wireObject            = 7
	wireUninitialized     = 8
)

func wireTagFor(t VTag) byte {
	switch t {
	case VTInteger:
		return wireInteger
	case VTFloat:
		return wireFloat
	case VTLong:
		return wireLong
	case VTDouble:
		return wireDouble
	case VTNull:
		return wireNull
	case VTUninitializedThis:
		return wireUninitializedThis
	case VTObject:
		return wireObject
	case VTUninitializedVariable:
		return wireUninitialized
	default:
		return wireTop
	}
}

func writeVerificationType(buf *bytes.Buffer, pool *Pool, vt VerificationType) error {
	if err := writeU8(buf, wireTagFor(vt.Tag)); err != nil {
		return err
	}
	switch vt.Tag {
	case VTObject:
		ref, err := pool.Class(vt.ObjectClass)
		if err != nil {
			return err
		}
		return writeU16(buf, uint16(ref))
	case VTUninitializedVariable:
		return writeU16(buf, uint16(vt.NewOffset))
	}
	return nil
}

func writeVerificationTypeList(buf *bytes.Buffer, pool *Pool, l VerificationTypeList) error {
	types := l.Slice()
	if err := writeU16(buf, uint16(len(types))); err != nil {
		return err
	}
	for _, t := range types {
		if err := writeVerificationType(buf, pool, t); err != nil {
			return err
		}
	}
	return nil
}

func sameLocals(a, b VerificationTypeList) bool {
	as, bs := a.Slice(), b.Slice()
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !as[i].Equal(bs[i]) {
			return false
		}
	}
	return true
}

// buildStackMapTable serializes every recorded frame, in ascending
// offset order, choosing the most compact of the three frame kinds this
// package implements: same_frame/same_frame_extended for an unchanged,
// empty-stack frame; same_locals_1_stack_item(_frame_extended) for an
// unchanged-locals, single-item-stack frame; full_frame otherwise. A
// nil/empty table (no branch targets recorded) returns a nil slice and
// the caller omits the attribute entirely.
func buildStackMapTable(pool *Pool, frames map[CodeLocation]StackMapFrame) ([]byte, error) {
	if len(frames) == 0 {
		return nil, nil
	}
	offsets := make([]CodeLocation, 0, len(frames))
	for off := range frames {
		offsets = append(offsets, off)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	var entries bytes.Buffer
	prevOffset := -1
	prevLocals := VerificationTypeList{}
	for i, off := range offsets {
		frame := frames[off]
		var delta int
		if i == 0 {
			delta = int(off)
		} else {
			delta = int(off) - prevOffset - 1
		}
		if err := writeStackMapFrame(&entries, pool, delta, frame, prevLocals, i == 0); err != nil {
			return nil, err
		}
		prevOffset = int(off)
		prevLocals = frame.Locals
	}

	nameRef, err := pool.Utf8("StackMapTable")
	if err != nil {
		return nil, err
	}
	var body bytes.Buffer
	if err := writeU16(&body, uint16(len(offsets))); err != nil {
		return nil, err
	}
	if _, err := body.Write(entries.Bytes()); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := writeU16(&out, uint16(nameRef)); err != nil {
		return nil, err
	}
	if err := writeU32(&out, uint32(body.Len())); err != nil {
		return nil, err
	}
	if _, err := out.Write(body.Bytes()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writeStackMapFrame(buf *bytes.Buffer, pool *Pool, delta int, frame StackMapFrame, prevLocals VerificationTypeList, isFirst bool) error {
	localsUnchanged := !isFirst && sameLocals(prevLocals, frame.Locals)

	switch {
	case localsUnchanged && frame.Stack.Len() == 0:
		if delta <= 63 {
			return writeU8(buf, byte(delta))
		}
		if err := writeU8(buf, 251); err != nil {
			return err
		}
		return writeU16(buf, uint16(delta))

	case localsUnchanged && frame.Stack.Len() == 1:
		item := frame.Stack.Slice()[0]
		if delta <= 63 {
			if err := writeU8(buf, byte(64+delta)); err != nil {
				return err
			}
			return writeVerificationType(buf, pool, item)
		}
		if err := writeU8(buf, 247); err != nil {
			return err
		}
		if err := writeU16(buf, uint16(delta)); err != nil {
			return err
		}
		return writeVerificationType(buf, pool, item)

	default:
		if err := writeU8(buf, 255); err != nil {
			return err
		}
		if err := writeU16(buf, uint16(delta)); err != nil {
			return err
		}
		if err := writeVerificationTypeList(buf, pool, frame.Locals); err != nil {
			return err
		}
		return writeVerificationTypeList(buf, pool, frame.Stack)
	}
}
