package memstrategy

import "github.com/jvlm-go/jvlmc/classfile"

// ShadowHeapStrategy is the alternative spec.md §9's Design Notes name
// explicitly ("byte-array shadow heap") as a drop-in replacement for the
// MemorySegment-backed SegmentStrategy. Its frame is one byte[] local
// allocated once per function at a fixed conservative size; pointers are
// plain Int offsets into that array, and load/store lower to
// invokestatic helper calls on a small ByteBuffer-wrapping support
// class, using the same (abiBits, kind) primitive-category table as the
// segment strategy. It needs no PreCall synchronization at all: the
// array is a plain local, never observed outside the function, so
// PreCall is a true no-op — the case spec.md §4.8 explicitly allows.
type ShadowHeapStrategy struct{}

const (
	shadowHeapClass = "jvlm/rt/ShadowHeap"
	// frameSize is the fixed conservative per-function frame size baked
	// in at class-writing time, per this strategy's design (spec.md
	// §4.8.1): every function gets the same size regardless of how much
	// it actually allocates, trading memory for the simplicity of a
	// single allocation per function instead of a growable buffer.
	frameSize = 4096
)

func (ShadowHeapStrategy) NewFunctionEmitter() FunctionEmitter {
	return &shadowHeapEmitter{}
}

// PointerFieldType renders a raw-memory pointer as a plain Int offset —
// this strategy's pointers never leave the Int/array-offset
// representation, including at descriptor positions.
func (ShadowHeapStrategy) PointerFieldType() classfile.FieldType {
	return classfile.TInt()
}

// AppendSupportClasses embeds the ShadowHeap helper class, the same way
// SegmentStrategy embeds its own — an archive entry guaranteed to exist
// under the name the emitter's call sites reference.
func (ShadowHeapStrategy) AppendSupportClasses(w Writer) error {
	entry, err := w.StartFile(shadowHeapClass + ".class")
	if err != nil {
		return err
	}
	stub, err := supportClassStub(shadowHeapClass)
	if err != nil {
		return err
	}
	_, err = entry.Write(stub)
	return err
}

type shadowHeapEmitter struct {
	arrayLocal *int
	cursor     int // next free offset into the array, tracked at emission time (const sizes only, so this is exact, not an estimate)
}

// PointerKind reports that this strategy's pointers are plain Ints —
// offsets into the frame's byte[] local.
func (e *shadowHeapEmitter) PointerKind() classfile.JavaKind { return classfile.KInt }

func (e *shadowHeapEmitter) ensureArray(mw *classfile.MethodWriter) (int, error) {
	if e.arrayLocal != nil {
		return *e.arrayLocal, nil
	}
	slot := mw.DeclareLocal(classfile.VerificationType{Tag: classfile.VTObject, ObjectClass: "[B"})
	if err := mw.ConstInt(frameSize); err != nil {
		return 0, err
	}
	if err := mw.InvokeStatic(shadowHeapClass, "allocate", classfile.MethodDescriptor{
		Params: []classfile.FieldType{classfile.TInt()},
		Return: fieldTypePtr(classfile.TArray(classfile.TByte())),
	}); err != nil {
		return 0, err
	}
	if err := mw.Store(classfile.KRef, slot); err != nil {
		return 0, err
	}
	e.arrayLocal = &slot
	return slot, nil
}

// ConstStackAlloc hands out the next frameSize-bounded offset and
// advances the cursor; Alloca's ElementCount is always a compile-time
// constant per spec.md §4.6, so the cursor is exact, never a worst-case
// estimate.
func (e *shadowHeapEmitter) ConstStackAlloc(mw *classfile.MethodWriter, size int64) error {
	if _, err := e.ensureArray(mw); err != nil {
		return err
	}
	offset := e.cursor
	e.cursor += int(size)
	if e.cursor > frameSize {
		return classfile.EncodingOverflowError{What: "shadow heap frame", Value: int64(e.cursor), Limit: frameSize}
	}
	return mw.ConstInt(int32(offset))
}

// PreCall is a true no-op: the backing array is a plain local, never
// externally observable, so there is nothing to synchronize before a
// reentrant call.
func (e *shadowHeapEmitter) PreCall(mw *classfile.MethodWriter) error { return nil }

// Load consumes the Int offset already on mw's stack and calls the
// matching read helper with (array, offset).
func (e *shadowHeapEmitter) Load(mw *classfile.MethodWriter, abiBits int, kind classfile.JavaKind) error {
	cat := PrimitiveCategoryFor(abiBits, kind)
	slot, err := e.ensureArray(mw)
	if err != nil {
		return err
	}
	// Stack here: [..., offset]. The array local hasn't been pushed yet,
	// so load it now and swap it underneath the already-present offset
	// via a second local round-trip: stash offset, push array, restore
	// offset — avoiding a dedicated Swap opcode this package doesn't
	// emit.
	tmp := mw.DeclareLocal(classfile.VerificationType{Tag: classfile.VTInteger})
	if err := mw.Store(classfile.KInt, tmp); err != nil {
		return err
	}
	if err := mw.Load(classfile.KRef, slot); err != nil {
		return err
	}
	if err := mw.Load(classfile.KInt, tmp); err != nil {
		return err
	}
	return mw.InvokeStatic(shadowHeapClass, "read"+cat.Name(), classfile.MethodDescriptor{
		Params: []classfile.FieldType{classfile.TArray(classfile.TByte()), classfile.TInt()},
		Return: fieldTypePtr(cat.FieldType()),
	})
}

// Store consumes the Int offset already on mw's stack, calls push to
// place the value, then calls the matching write helper with (array,
// offset, value).
func (e *shadowHeapEmitter) Store(mw *classfile.MethodWriter, abiBits int, kind classfile.JavaKind, push func() error) error {
	cat := PrimitiveCategoryFor(abiBits, kind)
	slot, err := e.ensureArray(mw)
	if err != nil {
		return err
	}
	tmp := mw.DeclareLocal(classfile.VerificationType{Tag: classfile.VTInteger})
	if err := mw.Store(classfile.KInt, tmp); err != nil {
		return err
	}
	if err := mw.Load(classfile.KRef, slot); err != nil {
		return err
	}
	if err := mw.Load(classfile.KInt, tmp); err != nil {
		return err
	}
	if err := push(); err != nil {
		return err
	}
	return mw.InvokeStatic(shadowHeapClass, "write"+cat.Name(), classfile.MethodDescriptor{
		Params: []classfile.FieldType{classfile.TArray(classfile.TByte()), classfile.TInt(), cat.FieldType()},
	})
}
