package classfile

// Tracker runs the abstract interpretation described in spec.md §4.4: it
// mirrors every opcode's declared stack effect so the operand stack and
// locals stay in lockstep with emission, clamps max_stack to the
// high-water mark, and can be snapshotted/restored to model control-flow
// merges (the fall-through/branch-arm pattern every conditional lowering
// needs). Grounded on validate/vm.go's mockVM — same push/pop/frame
// bookkeeping, retargeted from type-checking parsed WASM bytes to
// accounting for bytes this package is itself emitting.
type Tracker struct {
	Stack  VerificationTypeList
	Locals VerificationTypeList

	maxStackObserved int
}

// NewTracker returns a tracker with the given initial locals (method
// entry: receiver, if any, followed by parameters) and an empty stack.
func NewTracker(initialLocals []VerificationType) *Tracker {
	t := &Tracker{}
	for _, vt := range initialLocals {
		t.Locals.Push(vt)
	}
	return t
}

// Push records a value pushed to the operand stack and updates the
// high-water mark.
func (t *Tracker) Push(vt VerificationType) {
	t.Stack.Push(vt)
	if t.Stack.SlotCount() > t.maxStackObserved {
		t.maxStackObserved = t.Stack.SlotCount()
	}
}

// Pop removes and returns the top of the operand stack. An empty pop
// returns an InvariantViolationError — per spec.md §4.4 this can only
// happen if the emitter itself is wrong, never from bad input, since
// unsupported IR is rejected by the translator before it emits any
// bytecode for that instruction — but §7
// still requires it surface as a structured error, not a panic.
func (t *Tracker) Pop() (VerificationType, error) {
	return t.Stack.Pop()
}

// PopExpect pops and asserts the popped type matches the expected one
// (by verification tag only — object class names are not compared here,
// matching the WASM validator's "unknownType matches anything" leniency
// for the cases this package itself controls both sides of).
func (t *Tracker) PopExpect(want VTag) (VerificationType, error) {
	got, err := t.Stack.Pop()
	if err != nil {
		return VerificationType{}, err
	}
	if got.Tag != want {
		return VerificationType{}, InvalidTypeError{Wanted: VerificationType{Tag: want}, Got: got}
	}
	return got, nil
}

// DeclareLocal appends a new local variable slot (used both for method
// parameters at entry and for each SSA value the translator decides to
// store). It returns the slot index the value is addressed by.
func (t *Tracker) DeclareLocal(vt VerificationType) int {
	slot := t.Locals.SlotCount()
	t.Locals.Push(vt)
	return slot
}

// MaxStack is the high-water mark of slotCount reached by Push, i.e. the
// method's max_stack.
func (t *Tracker) MaxStack() int { return t.maxStackObserved }

// MaxLocals is the tracker's current locals slot count, i.e. the method's
// max_locals as of this point in translation. Per spec.md §9's resolved
// Open Question, this — not a fixed constant — is what must be written to
// the classfile.
func (t *Tracker) MaxLocals() int { return t.Locals.SlotCount() }

// TrackerSnapshot is an opaque, independent copy of a Tracker's stack and
// locals, used to restore state at a control-flow merge point (e.g. after
// emitting one arm of a Select, to replay from the pre-arm baseline for
// the other arm).
type TrackerSnapshot struct {
	stack  VerificationTypeList
	locals VerificationTypeList
}

// Snapshot captures the current stack and locals.
func (t *Tracker) Snapshot() TrackerSnapshot {
	return TrackerSnapshot{stack: t.Stack.Clone(), locals: t.Locals.Clone()}
}

// Restore replaces the current stack and locals with a prior snapshot.
// The max_stack high-water mark is not rolled back by this — it is
// monotonic for the whole method. MaxLocals, being the current locals
// slot count, reflects the restored locals.
func (t *Tracker) Restore(s TrackerSnapshot) {
	t.Stack = s.stack.Clone()
	t.Locals = s.locals.Clone()
}

// CurrentFrame captures a StackMapFrame describing the present stack and
// locals, for recording at a branch target.
func (t *Tracker) CurrentFrame() StackMapFrame {
	return StackMapFrame{Stack: t.Stack.Clone(), Locals: t.Locals.Clone()}
}
