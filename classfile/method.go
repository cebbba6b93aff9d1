package classfile

// CompareKind names the six relational operators If/IfIcmp can test.
type CompareKind byte

const (
	CmpEq CompareKind = iota
	CmpNe
	CmpLt
	CmpGe
	CmpGt
	CmpLe
)

// MethodMetadata describes a method's signature and access flags, the
// input to ClassWriter.WriteMethod.
type MethodMetadata struct {
	Name       string
	Descriptor MethodDescriptor
	IsStatic   bool

	Public    bool
	Private   bool
	Protected bool
	Final     bool
	Abstract  bool
	Synthetic bool
	Strictfp  bool
}

// accessFlags renders the metadata's boolean fields as the method_info
// access_flags bitmask, per the classfile wire format.
func (m MethodMetadata) accessFlags() uint16 {
	var f uint16
	if m.Public {
		f |= 0x0001
	}
	if m.Private {
		f |= 0x0002
	}
	if m.Protected {
		f |= 0x0004
	}
	if m.IsStatic {
		f |= 0x0008
	}
	if m.Final {
		f |= 0x0010
	}
	if m.Abstract {
		f |= 0x0400
	}
	if m.Synthetic {
		f |= 0x1000
	}
	if m.Strictfp {
		f |= 0x0800
	}
	return f
}

// MethodData is the accumulated, not-yet-serialized state of one method:
// its constant-pool-resolved header plus the CodeBuffer/Tracker/
// StackMapTable the MethodWriter fills in as the caller emits
// instructions. ClassWriter.WriteMethod allocates these on the heap (via
// a pointer, kept in a []*MethodData) so a later append to the method
// list never invalidates a MethodWriter already handed out.
type MethodData struct {
	accessFlags uint16
	nameRef     Reference
	descRef     Reference
	descriptor  MethodDescriptor
	isStatic    bool

	code    *CodeBuffer
	tracker *Tracker

	// stackMapTable maps a branch target's CodeLocation to the frame
	// recorded there. Populated by RecordFrame; serialized in offset
	// order by the ClassWriter at Finalize time.
	stackMapTable map[CodeLocation]StackMapFrame
}

// MethodWriter is the Method Writer component from spec.md §4.5: typed
// opcode emitters that keep the CodeBuffer and Tracker in lockstep, plus
// wide-form selection for local slot and increment operands. Grounded on
// exec/vm.go's one-opcode-at-a-time dispatch style, generalized from
// interpreting bytes to emitting them.
type MethodWriter struct {
	pool *Pool
	data *MethodData
}

// Code exposes the underlying CodeBuffer, for callers (the SSA
// translator) that need InstructionTarget bookkeeping the typed emitters
// below don't cover directly — e.g. recording a frame at Offset().
func (w *MethodWriter) Code() *CodeBuffer { return w.data.code }

// Tracker exposes the underlying stack/locals tracker.
func (w *MethodWriter) Tracker() *Tracker { return w.data.tracker }

// DeclareLocal reserves a new local variable slot, forwarding to the
// Tracker.
func (w *MethodWriter) DeclareLocal(vt VerificationType) int {
	return w.data.tracker.DeclareLocal(vt)
}

// RecordFrame snapshots the tracker's current stack/locals and stores it
// as the StackMapFrame for the current code offset. Call this at every
// branch target before any instruction at that offset is emitted.
func (w *MethodWriter) RecordFrame() {
	w.data.stackMapTable[w.data.code.Offset()] = w.data.tracker.CurrentFrame()
}

func (w *MethodWriter) emitLoadStore(short, long byte, slot int) error {
	switch {
	case slot >= 0 && slot <= 3:
		w.data.code.WriteU8(short + byte(slot))
	case slot < 256:
		w.data.code.WriteU8(long)
		w.data.code.WriteU8(byte(slot))
	case slot <= 0xFFFF:
		w.data.code.WriteU8(opWide)
		w.data.code.WriteU8(long)
		w.data.code.WriteU16(uint16(slot))
	default:
		return EncodingOverflowError{What: "local variable slot", Value: int64(slot), Limit: 0xFFFF}
	}
	return nil
}

func loadStoreOps(kind JavaKind) (shortLoad, longLoad, shortStore, longStore byte) {
	switch kind {
	case KLong:
		return opLload0, opLload, opLstore0, opLstore
	case KFloat:
		return opFload0, opFload, opFstore0, opFstore
	case KDouble:
		return opDload0, opDload, opDstore0, opDstore
	case KRef:
		return opAload0, opAload, opAstore0, opAstore
	default:
		return opIload0, opIload, opIstore0, opIstore
	}
}

// Load emits the narrowest load form for slot (0-3 short form, <256
// one-byte-operand form, else a wide-prefixed two-byte-operand form) and
// pushes the corresponding verification type.
func (w *MethodWriter) Load(kind JavaKind, slot int) error {
	short, long, _, _ := loadStoreOps(kind)
	if err := w.emitLoadStore(short, long, slot); err != nil {
		return err
	}
	w.data.tracker.Push(VerificationType{Tag: kind.verificationTag()})
	return nil
}

// Store emits the narrowest store form for slot, popping the matching
// verification type first.
func (w *MethodWriter) Store(kind JavaKind, slot int) error {
	if _, err := w.data.tracker.PopExpect(kind.verificationTag()); err != nil {
		return err
	}
	_, _, short, long := loadStoreOps(kind)
	return w.emitLoadStore(short, long, slot)
}

// ConstInt materializes a 32-bit integer constant: the iconst_m1..
// iconst_5 single-byte forms for -1..5, otherwise an Integer constant
// pool entry loaded via ldc (8-bit reference) or ldc_w (16-bit
// reference).
func (w *MethodWriter) ConstInt(n int32) error {
	if n >= -1 && n <= 5 {
		w.data.code.WriteU8(opIconstM1 + byte(n+1))
	} else {
		ref, err := w.pool.Integer(n)
		if err != nil {
			return err
		}
		w.emitLdc(ref)
	}
	w.data.tracker.Push(VerificationType{Tag: VTInteger})
	return nil
}

func (w *MethodWriter) emitLdc(ref Reference) {
	if ref <= 0xFF {
		w.data.code.WriteU8(opLdc)
		w.data.code.WriteU8(byte(ref))
	} else {
		w.data.code.WriteU8(opLdcW)
		w.data.code.WriteU16(uint16(ref))
	}
}

// ConstLong materializes a 64-bit integer constant. Values that fit in
// int32 go through ConstInt followed by a widening I2L (cheaper, and
// needs no pool entry); larger values intern a Long constant pool entry
// and load it with ldc2_w, which always takes a 16-bit reference.
func (w *MethodWriter) ConstLong(n int64) error {
	if n >= -0x80000000 && n <= 0x7FFFFFFF {
		if err := w.ConstInt(int32(n)); err != nil {
			return err
		}
		return w.I2L()
	}
	ref, err := w.pool.Long(n)
	if err != nil {
		return err
	}
	w.data.code.WriteU8(opLdc2W)
	w.data.code.WriteU16(uint16(ref))
	w.data.tracker.Push(VerificationType{Tag: VTLong})
	return nil
}

// ConstNull pushes the null reference.
func (w *MethodWriter) ConstNull() {
	w.data.code.WriteU8(opAconstNull)
	w.data.tracker.Push(VerificationType{Tag: VTNull})
}

// Return emits the kind-appropriate return instruction, popping the
// returned value first. A nil kind emits the void return and pops
// nothing.
func (w *MethodWriter) Return(kind *JavaKind) error {
	if kind == nil {
		w.data.code.WriteU8(opReturn)
		return nil
	}
	if _, err := w.data.tracker.PopExpect(kind.verificationTag()); err != nil {
		return err
	}
	switch *kind {
	case KLong:
		w.data.code.WriteU8(opLreturn)
	case KFloat:
		w.data.code.WriteU8(opFreturn)
	case KDouble:
		w.data.code.WriteU8(opDreturn)
	case KRef:
		w.data.code.WriteU8(opAreturn)
	default:
		w.data.code.WriteU8(opIreturn)
	}
	return nil
}

// IncLocal emits iinc for slot by delta, using the 3-byte short form
// when both slot and delta fit in a signed/unsigned byte, otherwise the
// wide-prefixed 6-byte form. Does not touch the operand stack.
func (w *MethodWriter) IncLocal(slot int, delta int16) error {
	if slot >= 0 && slot <= 0xFF && delta >= -128 && delta <= 127 {
		w.data.code.WriteU8(opIinc)
		w.data.code.WriteU8(byte(slot))
		w.data.code.WriteU8(byte(int8(delta)))
		return nil
	}
	if slot < 0 || slot > 0xFFFF {
		return EncodingOverflowError{What: "local variable slot", Value: int64(slot), Limit: 0xFFFF}
	}
	w.data.code.WriteU8(opWide)
	w.data.code.WriteU8(opIinc)
	w.data.code.WriteU16(uint16(slot))
	w.data.code.WriteI16(delta)
	return nil
}

// Dup duplicates the top single-width operand stack value.
func (w *MethodWriter) Dup() error {
	top, ok := w.data.tracker.Stack.Peek()
	if !ok {
		return InvariantViolationError{What: "dup on empty operand stack"}
	}
	if top.Width() != 1 {
		return InvariantViolationError{What: "dup on wide (long/double) operand — needs dup2"}
	}
	w.data.code.WriteU8(opDup)
	w.data.tracker.Push(top)
	return nil
}

// BinArith names the two arithmetic operators BinOp emits.
type BinArith byte

const (
	ArithAdd BinArith = iota
	ArithMul
)

// BinOp pops two values of kind and pushes one of kind, emitting the
// kind/op-selected arithmetic opcode.
func (w *MethodWriter) BinOp(kind JavaKind, op BinArith) error {
	if _, err := w.data.tracker.PopExpect(kind.verificationTag()); err != nil {
		return err
	}
	if _, err := w.data.tracker.PopExpect(kind.verificationTag()); err != nil {
		return err
	}
	var opcode byte
	switch {
	case op == ArithAdd && kind == KInt:
		opcode = opIadd
	case op == ArithAdd && kind == KLong:
		opcode = opLadd
	case op == ArithAdd && kind == KFloat:
		opcode = opFadd
	case op == ArithAdd && kind == KDouble:
		opcode = opDadd
	case op == ArithMul && kind == KInt:
		opcode = opImul
	case op == ArithMul && kind == KLong:
		opcode = opLmul
	case op == ArithMul && kind == KFloat:
		opcode = opFmul
	case op == ArithMul && kind == KDouble:
		opcode = opDmul
	default:
		return InvariantViolationError{What: "unsupported BinOp kind/op combination"}
	}
	w.data.code.WriteU8(opcode)
	w.data.tracker.Push(VerificationType{Tag: kind.verificationTag()})
	return nil
}

// I2L widens an int on top of the stack to a long.
func (w *MethodWriter) I2L() error {
	if _, err := w.data.tracker.PopExpect(VTInteger); err != nil {
		return err
	}
	w.data.code.WriteU8(opI2l)
	w.data.tracker.Push(VerificationType{Tag: VTLong})
	return nil
}

// Goto emits an unconditional branch and returns its InstructionTarget
// for later resolution via Code().SetTarget.
func (w *MethodWriter) Goto() InstructionTarget {
	return w.data.code.EmitBranch(opGoto)
}

var ifIcmpOps = [...]byte{opIfIcmpeq, opIfIcmpne, opIfIcmplt, opIfIcmpge, opIfIcmpgt, opIfIcmple}
var ifZeroOps = [...]byte{opIfeq, opIfne, opIflt, opIfge, opIfgt, opIfle}

// IfIcmp pops two ints, compares them with cmp, and emits the matching
// if_icmp<cond> branch.
func (w *MethodWriter) IfIcmp(cmp CompareKind) (InstructionTarget, error) {
	if _, err := w.data.tracker.PopExpect(VTInteger); err != nil {
		return InstructionTarget{}, err
	}
	if _, err := w.data.tracker.PopExpect(VTInteger); err != nil {
		return InstructionTarget{}, err
	}
	return w.data.code.EmitBranch(ifIcmpOps[cmp]), nil
}

// IfZero pops one int and compares it against zero with cmp, emitting
// the matching if<cond> branch.
func (w *MethodWriter) IfZero(cmp CompareKind) (InstructionTarget, error) {
	if _, err := w.data.tracker.PopExpect(VTInteger); err != nil {
		return InstructionTarget{}, err
	}
	return w.data.code.EmitBranch(ifZeroOps[cmp]), nil
}

// GetStatic pushes the value of a static field.
func (w *MethodWriter) GetStatic(class, name string, ty FieldType) error {
	ref, err := w.pool.FieldRef(class, name, ty.Encode())
	if err != nil {
		return err
	}
	w.data.code.WriteU8(opGetstatic)
	w.data.code.WriteU16(uint16(ref))
	w.data.tracker.Push(ty.AsVerificationType())
	return nil
}

// PutStatic pops a value and stores it to a static field.
func (w *MethodWriter) PutStatic(class, name string, ty FieldType) error {
	if _, err := w.data.tracker.PopExpect(ty.AsVerificationType().Tag); err != nil {
		return err
	}
	ref, err := w.pool.FieldRef(class, name, ty.Encode())
	if err != nil {
		return err
	}
	w.data.code.WriteU8(opPutstatic)
	w.data.code.WriteU16(uint16(ref))
	return nil
}

// New pushes a freshly allocated, unconstructed instance of class. Per
// spec.md §4.5's simplification this models it directly as an Object
// verification type rather than the verifier's strict pre-<init>
// "uninitialized" state.
func (w *MethodWriter) New(class string) error {
	ref, err := w.pool.Class(class)
	if err != nil {
		return err
	}
	w.data.code.WriteU8(opNew)
	w.data.code.WriteU16(uint16(ref))
	w.data.tracker.Push(VerificationType{Tag: VTObject, ObjectClass: class})
	return nil
}

func (w *MethodWriter) popArgs(desc MethodDescriptor, hasReceiver bool) error {
	for i := len(desc.Params) - 1; i >= 0; i-- {
		if _, err := w.data.tracker.PopExpect(desc.Params[i].AsVerificationType().Tag); err != nil {
			return err
		}
	}
	if hasReceiver {
		if _, err := w.data.tracker.PopExpect(VTObject); err != nil {
			return err
		}
	}
	return nil
}

func (w *MethodWriter) pushReturn(desc MethodDescriptor) {
	if desc.Return != nil {
		w.data.tracker.Push(desc.Return.AsVerificationType())
	}
}

// InvokeStatic emits invokestatic for class.name(desc).
func (w *MethodWriter) InvokeStatic(class, name string, desc MethodDescriptor) error {
	if err := w.popArgs(desc, false); err != nil {
		return err
	}
	ref, err := w.pool.MethodRef(class, name, desc.Encode())
	if err != nil {
		return err
	}
	w.data.code.WriteU8(opInvokestatic)
	w.data.code.WriteU16(uint16(ref))
	w.pushReturn(desc)
	return nil
}

// InvokeStaticInterface emits invokestatic for class.name(desc) where
// class is an interface — the same opcode as InvokeStatic, but the
// constant pool entry must be an InterfaceMethodref rather than a
// Methodref per the classfile wire format's rules for referencing a
// static method declared on an interface.
func (w *MethodWriter) InvokeStaticInterface(class, name string, desc MethodDescriptor) error {
	if err := w.popArgs(desc, false); err != nil {
		return err
	}
	ref, err := w.pool.InterfaceMethodRef(class, name, desc.Encode())
	if err != nil {
		return err
	}
	w.data.code.WriteU8(opInvokestatic)
	w.data.code.WriteU16(uint16(ref))
	w.pushReturn(desc)
	return nil
}

// InvokeSpecial emits invokespecial for class.name(desc) — constructors,
// private methods, and superclass calls.
func (w *MethodWriter) InvokeSpecial(class, name string, desc MethodDescriptor) error {
	if err := w.popArgs(desc, true); err != nil {
		return err
	}
	ref, err := w.pool.MethodRef(class, name, desc.Encode())
	if err != nil {
		return err
	}
	w.data.code.WriteU8(opInvokespecial)
	w.data.code.WriteU16(uint16(ref))
	w.pushReturn(desc)
	return nil
}

// InvokeVirtual emits invokevirtual for class.name(desc).
func (w *MethodWriter) InvokeVirtual(class, name string, desc MethodDescriptor) error {
	if err := w.popArgs(desc, true); err != nil {
		return err
	}
	ref, err := w.pool.MethodRef(class, name, desc.Encode())
	if err != nil {
		return err
	}
	w.data.code.WriteU8(opInvokevirtual)
	w.data.code.WriteU16(uint16(ref))
	w.pushReturn(desc)
	return nil
}

// InvokeInterface emits invokeinterface for class.name(desc), including
// the trailing argument-word-count and zero-pad bytes the instruction
// requires.
func (w *MethodWriter) InvokeInterface(class, name string, desc MethodDescriptor) error {
	if err := w.popArgs(desc, true); err != nil {
		return err
	}
	ref, err := w.pool.InterfaceMethodRef(class, name, desc.Encode())
	if err != nil {
		return err
	}
	w.data.code.WriteU8(opInvokeinterface)
	w.data.code.WriteU16(uint16(ref))
	argWords := 1 // receiver
	for _, p := range desc.Params {
		argWords += p.Width()
	}
	if argWords > 0xFF {
		return EncodingOverflowError{What: "invokeinterface argument word count", Value: int64(argWords), Limit: 0xFF}
	}
	w.data.code.WriteU8(byte(argWords))
	w.data.code.WriteU8(0)
	w.pushReturn(desc)
	return nil
}
