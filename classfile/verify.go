package classfile

import "fmt"

// VTag is the tagged-variant discriminant for a VerificationType, per
// spec.md §3.
type VTag byte

const (
	VTTop VTag = iota
	VTInteger
	VTFloat
	VTLong
	VTDouble
	VTNull
	VTUninitializedThis
	VTObject
	VTUninitializedVariable
)

// VerificationType is the verifier's abstract description of a single
// operand-stack or local-variable slot.
type VerificationType struct {
	Tag VTag

	// ObjectClass holds the class name in the form a Class constant uses
	// when Tag == VTObject: a binary name for classes (e.g. "jvlm/Math")
	// and the descriptor for arrays (e.g. "[B").
	ObjectClass string

	// NewOffset holds the `new` instruction's CodeLocation when Tag ==
	// VTUninitializedVariable.
	NewOffset CodeLocation
}

// CodeLocation is a byte offset into a method's code buffer.
type CodeLocation int

func (vt VerificationType) String() string {
	switch vt.Tag {
	case VTTop:
		return "top"
	case VTInteger:
		return "int"
	case VTFloat:
		return "float"
	case VTLong:
		return "long"
	case VTDouble:
		return "double"
	case VTNull:
		return "null"
	case VTUninitializedThis:
		return "uninitializedThis"
	case VTObject:
		return fmt.Sprintf("object(%s)", vt.ObjectClass)
	case VTUninitializedVariable:
		return fmt.Sprintf("uninitialized(@%d)", vt.NewOffset)
	}
	return "?"
}

// Width is the number of operand-stack/local slots this type occupies:
// two for Long/Double, one otherwise.
func (vt VerificationType) Width() int {
	if vt.Tag == VTLong || vt.Tag == VTDouble {
		return 2
	}
	return 1
}

func (vt VerificationType) Equal(o VerificationType) bool {
	return vt.Tag == o.Tag && vt.ObjectClass == o.ObjectClass && vt.NewOffset == o.NewOffset
}

// VerificationTypeList is an ordered sequence of verification types with a
// cached slot count, maintained incrementally by Push/Pop.
type VerificationTypeList struct {
	types      []VerificationType
	slotCount  int
}

func (l *VerificationTypeList) Push(vt VerificationType) {
	l.types = append(l.types, vt)
	l.slotCount += vt.Width()
}

// Pop removes and returns the top entry. It returns an
// InvariantViolationError if the list is empty: every caller reaches Pop
// only after a balanced push, so an empty Pop indicates an emitter bug
// rather than bad input — but per spec.md §7 that still surfaces as a
// structured error, never a panic, so a fatal abort never skips the
// caller's output cleanup.
func (l *VerificationTypeList) Pop() (VerificationType, error) {
	if len(l.types) == 0 {
		return VerificationType{}, InvariantViolationError{What: "pop on empty verification type list"}
	}
	top := l.types[len(l.types)-1]
	l.types = l.types[:len(l.types)-1]
	l.slotCount -= top.Width()
	return top, nil
}

func (l *VerificationTypeList) Peek() (VerificationType, bool) {
	if len(l.types) == 0 {
		return VerificationType{}, false
	}
	return l.types[len(l.types)-1], true
}

func (l *VerificationTypeList) Len() int { return len(l.types) }

func (l *VerificationTypeList) SlotCount() int { return l.slotCount }

// Clone returns an independent copy, used to snapshot the tracker at
// control-flow merges.
func (l *VerificationTypeList) Clone() VerificationTypeList {
	cp := make([]VerificationType, len(l.types))
	copy(cp, l.types)
	return VerificationTypeList{types: cp, slotCount: l.slotCount}
}

// Slice exposes the entries in bottom-to-top order, for stack-map
// serialization.
func (l *VerificationTypeList) Slice() []VerificationType {
	return l.types
}

// StackMapFrame is a snapshot of verification types recorded at a branch
// target.
type StackMapFrame struct {
	Stack  VerificationTypeList
	Locals VerificationTypeList
}
