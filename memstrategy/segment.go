package memstrategy

import "github.com/jvlm-go/jvlmc/classfile"

// Grounded on original_source/src/memory.rs's MemorySegmentStrategy /
// MemorySegmentEmitter: java.lang.foreign.MemorySegment backs each
// function's stack frame, sliced once per Alloca and read/written
// through the ValueLayout matching the access's primitive category.

const (
	segmentClass    = "java/lang/foreign/MemorySegment"
	valueLayoutBase = "java/lang/foreign/ValueLayout"
	// supportClassName is the per-thread stack holder spec.md §4.8 calls
	// "process-wide storage" — grounded on java_support_lib::MEMORYSEGMENTSTACK.
	supportClassName = "jvlm/rt/MemorySegmentStack"
)

// SegmentStrategy lowers alloca/load/store onto MemorySegment slices of
// a per-thread backing segment.
type SegmentStrategy struct{}

func (SegmentStrategy) NewFunctionEmitter() FunctionEmitter {
	return &segmentEmitter{}
}

// PointerFieldType renders a raw-memory pointer as a MemorySegment
// reference, per spec.md §4.2.
func (SegmentStrategy) PointerFieldType() classfile.FieldType {
	return classfile.TClass(segmentClass)
}

// AppendSupportClasses embeds the MemorySegmentStack helper. Its real
// bytecode body is the IR producer's prebuilt-artifact concern (the
// original crate links a separately-compiled java_support_lib jar); this
// engine only guarantees the archive entry exists under the name its own
// call sites reference.
func (SegmentStrategy) AppendSupportClasses(w Writer) error {
	entry, err := w.StartFile(supportClassName + ".class")
	if err != nil {
		return err
	}
	stub, err := supportClassStub(supportClassName)
	if err != nil {
		return err
	}
	_, err = entry.Write(stub)
	return err
}

type stackPointerLocals struct {
	base   int // MemorySegment, the thread's fixed backing segment
	offset int // int, the mutable stack pointer within it
}

// segmentEmitter is a per-function FunctionEmitter.
type segmentEmitter struct {
	stackPointer *stackPointerLocals
}

// PointerKind reports that this strategy's pointers are MemorySegment
// object references.
func (e *segmentEmitter) PointerKind() classfile.JavaKind { return classfile.KRef }

func (e *segmentEmitter) ensureStackPointer(mw *classfile.MethodWriter) (stackPointerLocals, error) {
	if e.stackPointer != nil {
		return *e.stackPointer, nil
	}
	base := mw.DeclareLocal(classfile.VerificationType{Tag: classfile.VTObject, ObjectClass: segmentClass})
	if err := mw.InvokeStatic(supportClassName, "getBase", classfile.MethodDescriptor{Return: classType(segmentClass)}); err != nil {
		return stackPointerLocals{}, err
	}
	if err := mw.Store(classfile.KRef, base); err != nil {
		return stackPointerLocals{}, err
	}

	offset := mw.DeclareLocal(classfile.VerificationType{Tag: classfile.VTInteger})
	if err := mw.InvokeStatic(supportClassName, "getOffset", classfile.MethodDescriptor{Return: intType()}); err != nil {
		return stackPointerLocals{}, err
	}
	if err := mw.Store(classfile.KInt, offset); err != nil {
		return stackPointerLocals{}, err
	}

	vars := stackPointerLocals{base: base, offset: offset}
	e.stackPointer = &vars
	return vars, nil
}

// ConstStackAlloc decrements the stack pointer by size and slices out
// size bytes at the new offset, leaving the slice MemorySegment on the
// stack as the SSA translator's "pointer" result — stored by the caller
// into an ordinary KRef local, exactly like any other instruction
// result (spec.md §4.8).
func (e *segmentEmitter) ConstStackAlloc(mw *classfile.MethodWriter, size int64) error {
	sp, err := e.ensureStackPointer(mw)
	if err != nil {
		return err
	}
	if err := mw.IncLocal(sp.offset, int16(-size)); err != nil {
		return err
	}

	if err := mw.Load(classfile.KRef, sp.base); err != nil {
		return err
	}
	if err := mw.Load(classfile.KInt, sp.offset); err != nil {
		return err
	}
	if err := mw.I2L(); err != nil {
		return err
	}
	if err := mw.ConstLong(size); err != nil {
		return err
	}
	return mw.InvokeInterface(segmentClass, "asSlice", classfile.MethodDescriptor{
		Params: []classfile.FieldType{classfile.TLong(), classfile.TLong()},
		Return: classType(segmentClass),
	})
}

// PreCall writes the current offset back to the thread-local holder so
// a re-entrant callee observes the live frame rather than a stale base.
func (e *segmentEmitter) PreCall(mw *classfile.MethodWriter) error {
	if e.stackPointer == nil {
		return nil
	}
	if err := mw.Load(classfile.KInt, e.stackPointer.offset); err != nil {
		return err
	}
	return mw.InvokeStatic(supportClassName, "setOffset", classfile.MethodDescriptor{
		Params: []classfile.FieldType{classfile.TInt()},
	})
}

// Load consumes the slice MemorySegment already on mw's stack (per the
// FunctionEmitter contract) and reads one value of the matching
// ValueLayout/primitive category at offset 0 within it.
func (e *segmentEmitter) Load(mw *classfile.MethodWriter, abiBits int, kind classfile.JavaKind) error {
	cat := PrimitiveCategoryFor(abiBits, kind)
	info := cat.info()
	if err := mw.GetStatic(valueLayoutBase, info.valueLayoutField, classfile.TClass(info.valueLayoutClass)); err != nil {
		return err
	}
	if err := mw.ConstLong(0); err != nil {
		return err
	}
	return mw.InvokeInterface(segmentClass, "get", classfile.MethodDescriptor{
		Params: []classfile.FieldType{classfile.TClass(info.valueLayoutClass), classfile.TLong()},
		Return: fieldTypePtr(cat.FieldType()),
	})
}

// Store consumes the slice MemorySegment already on mw's stack, calls
// push to place the value, then writes it at offset 0 within the slice.
func (e *segmentEmitter) Store(mw *classfile.MethodWriter, abiBits int, kind classfile.JavaKind, push func() error) error {
	cat := PrimitiveCategoryFor(abiBits, kind)
	info := cat.info()
	if err := mw.GetStatic(valueLayoutBase, info.valueLayoutField, classfile.TClass(info.valueLayoutClass)); err != nil {
		return err
	}
	if err := mw.ConstLong(0); err != nil {
		return err
	}
	if err := push(); err != nil {
		return err
	}
	return mw.InvokeInterface(segmentClass, "set", classfile.MethodDescriptor{
		Params: []classfile.FieldType{classfile.TClass(info.valueLayoutClass), classfile.TLong(), cat.FieldType()},
	})
}

func classType(name string) *classfile.FieldType {
	t := classfile.TClass(name)
	return &t
}

func intType() *classfile.FieldType {
	t := classfile.TInt()
	return &t
}

func fieldTypePtr(t classfile.FieldType) *classfile.FieldType {
	return &t
}

// supportClassStub returns a minimal valid classfile for name: a public
// final class extending java/lang/Object with no members, so
// AppendSupportClasses never leaves a dangling archive entry.
func supportClassStub(name string) ([]byte, error) {
	cw, err := classfile.NewClassWriter(name, "java/lang/Object")
	if err != nil {
		return nil, err
	}
	return cw.Finalize()
}
