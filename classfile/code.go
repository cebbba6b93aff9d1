package classfile

import "encoding/binary"

// maxCodeSize is the 64KiB cap on a single method's code array (spec.md §4.3).
const maxCodeSize = 0xFFFF

// InstructionTarget pairs the offset of a branch instruction with the
// offset of its 16-bit displacement operand, per spec.md §3. It is
// returned by every branch-emitting CodeBuffer/MethodWriter method and
// must eventually be resolved with SetTarget.
type InstructionTarget struct {
	instructionOffset int
	operandOffset     int
}

// InstructionOffset is the byte offset of the branch instruction's opcode
// itself (the base the displacement is relative to).
func (t InstructionTarget) InstructionOffset() CodeLocation {
	return CodeLocation(t.instructionOffset)
}

// CodeBuffer is an append-only, byte-addressed instruction stream with
// forward-reference branch patching. Grounded on the "grab the backing
// slice, mutate the already-written bytes in place" idiom
// exec/internal/compile/compile.go uses for its own branch patching
// (there: 8-byte absolute addresses; here: 16-bit relative displacements
// per the classfile wire format).
type CodeBuffer struct {
	bytes      []byte
	unresolved map[int]InstructionTarget
}

// NewCodeBuffer returns an empty code buffer.
func NewCodeBuffer() *CodeBuffer {
	return &CodeBuffer{unresolved: make(map[int]InstructionTarget)}
}

// Offset returns the current write position, usable as a branch target.
func (c *CodeBuffer) Offset() CodeLocation {
	return CodeLocation(len(c.bytes))
}

func (c *CodeBuffer) WriteU8(b byte) {
	c.bytes = append(c.bytes, b)
}

func (c *CodeBuffer) WriteU16(v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	c.bytes = append(c.bytes, buf[:]...)
}

func (c *CodeBuffer) WriteI16(v int16) {
	c.WriteU16(uint16(v))
}

func (c *CodeBuffer) WriteU32(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	c.bytes = append(c.bytes, buf[:]...)
}

// EmitBranch writes opcode, reserves a 16-bit placeholder displacement
// immediately after it, and returns the InstructionTarget SetTarget will
// later patch.
func (c *CodeBuffer) EmitBranch(opcode byte) InstructionTarget {
	instr := len(c.bytes)
	c.WriteU8(opcode)
	operand := len(c.bytes)
	c.WriteI16(0)
	t := InstructionTarget{instructionOffset: instr, operandOffset: operand}
	c.unresolved[operand] = t
	return t
}

// SetTarget patches the 16-bit signed displacement `loc - target's
// instruction offset` into the placeholder reserved by EmitBranch.
func (c *CodeBuffer) SetTarget(target InstructionTarget, loc CodeLocation) error {
	disp := int64(loc) - int64(target.instructionOffset)
	if disp < -0x8000 || disp > 0x7FFF {
		return EncodingOverflowError{What: "branch displacement", Value: disp, Limit: 0x7FFF}
	}
	binary.BigEndian.PutUint16(c.bytes[target.operandOffset:], uint16(int16(disp)))
	delete(c.unresolved, target.operandOffset)
	logger.Printf("patched branch at %d -> %d (disp %d)", target.instructionOffset, loc, disp)
	return nil
}

// Len is the number of bytes written so far.
func (c *CodeBuffer) Len() int { return len(c.bytes) }

// Finalize returns the completed code array. It is a fatal
// UnresolvedTargetError if any InstructionTarget was never patched, and
// a fatal EncodingOverflowError if the buffer exceeds the 64KiB cap.
func (c *CodeBuffer) Finalize() ([]byte, error) {
	if len(c.unresolved) > 0 {
		for _, t := range c.unresolved {
			return nil, UnresolvedTargetError{InstructionOffset: t.instructionOffset}
		}
	}
	if len(c.bytes) > maxCodeSize {
		return nil, EncodingOverflowError{What: "code length", Value: int64(len(c.bytes)), Limit: maxCodeSize}
	}
	return c.bytes, nil
}
