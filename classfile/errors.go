package classfile

import "fmt"

// EncodingOverflowError is returned when a value that must fit in the
// classfile's fixed-width wire encoding does not: a code buffer over 64KiB,
// a constant pool reference past 65534, a local slot past 65535, or a
// branch displacement that doesn't fit in a signed 16-bit integer.
type EncodingOverflowError struct {
	What  string
	Value int64
	Limit int64
}

func (e EncodingOverflowError) Error() string {
	return fmt.Sprintf("classfile: %s overflows encoding limit (%d > %d)", e.What, e.Value, e.Limit)
}

// InvariantViolationError indicates a bug in the emitter: a tracker pop on
// an empty stack or a width mismatch on load/store. (An unresolved branch
// target at finalization is reported as UnresolvedTargetError.) These are
// never caused by the input IR.
type InvariantViolationError struct {
	What string
}

func (e InvariantViolationError) Error() string {
	return fmt.Sprintf("classfile: invariant violated: %s", e.What)
}

// InvalidTypeError is returned when the stack/locals tracker observes a
// verification type that doesn't match what an instruction declared it
// would pop.
type InvalidTypeError struct {
	Wanted VerificationType
	Got    VerificationType
}

func (e InvalidTypeError) Error() string {
	return fmt.Sprintf("classfile: invalid type on stack, got %v, wanted %v", e.Got, e.Wanted)
}

// UnresolvedTargetError is returned at finalization if an InstructionTarget
// allocated by a branch-emitting method was never bound with SetTarget.
type UnresolvedTargetError struct {
	InstructionOffset int
}

func (e UnresolvedTargetError) Error() string {
	return fmt.Sprintf("classfile: branch at offset %d was never patched", e.InstructionOffset)
}
