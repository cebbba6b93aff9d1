// Package memstrategy is the Memory Strategy from spec.md §4.8: a
// pluggable lowering for alloca/load/store/call-fence onto a concrete
// managed-heap primitive. Grounded on original_source/src/memory.rs's
// MemorySegmentStrategy/MemorySegmentEmitter split (a per-compilation
// strategy that hands out a per-function emitter holding the lazily
// materialized stack-pointer locals), generalized to a second,
// supplementary strategy the distillation didn't carry over.
package memstrategy

import (
	"io"

	"github.com/jvlm-go/jvlmc/classfile"
)

// Writer is the minimal archive-entry surface a strategy needs to embed
// its support classes: a subset of archive.Writer's method set (just
// StartFile, not Close), declared here rather than imported from it so
// this package and archive never form an import cycle. archive.Writer's
// concrete zip-backed implementation satisfies this interface for free,
// since Go interface satisfaction only requires the method subset to be
// present.
type Writer interface {
	StartFile(name string) (io.Writer, error)
}

// Strategy is a per-compilation memory-model choice. The core holds
// exactly one for a given compile invocation.
type Strategy interface {
	// NewFunctionEmitter returns an emitter good for exactly one
	// function's worth of lowering; reusing one across functions
	// produces wrong code (its stack-pointer locals are function-local).
	NewFunctionEmitter() FunctionEmitter

	// AppendSupportClasses embeds any helper classes this strategy
	// depends on at runtime, once per compilation.
	AppendSupportClasses(w Writer) error

	// PointerFieldType is the descriptor-level FieldType a raw-memory
	// (default-address-space) pointer renders as under this strategy —
	// spec.md §4.2's "generic managed-object class name of the ambient
	// memory strategy", generalized: the Descriptor Encoder asks the
	// active strategy rather than assuming every strategy represents a
	// pointer as an object reference. SegmentStrategy answers with its
	// MemorySegment class; ShadowHeapStrategy, whose pointers are plain
	// Ints end to end, answers with the Int primitive itself — still the
	// "drop-in replacement" spec.md §9 calls for, just not object-shaped.
	PointerFieldType() classfile.FieldType
}

// FunctionEmitter is the per-function memory instruction emitter
// contract from spec.md §4.8.
type FunctionEmitter interface {
	// PointerKind is the operand-stack/local kind this strategy
	// represents its "pointer" values as. Two strategies are free to
	// disagree (an object reference for a MemorySegment slice, a plain
	// Int for a byte-array offset) — the SSA translator asks the active
	// emitter rather than assuming either shape, which is what makes the
	// Memory Strategy interface genuinely pluggable rather than
	// Int-shaped by hard-wired assumption.
	PointerKind() classfile.JavaKind

	// ConstStackAlloc reserves size bytes in the current frame and
	// pushes the resulting pointer (PointerKind()'s kind) onto mw's
	// operand stack, so the SSA translator can Store it into a local
	// slot exactly like any other instruction result.
	ConstStackAlloc(mw *classfile.MethodWriter, size int64) error

	// PreCall synchronizes any dirty stack-pointer state to
	// process-wide storage, so a reentrant callee observes the current
	// frame. May be a no-op if nothing is dirty yet.
	PreCall(mw *classfile.MethodWriter) error

	// Load consumes a pointer (PointerKind()'s kind) already on mw's
	// stack and pushes the value stored there, in the VM primitive
	// category PrimitiveCategoryFor(abiBits, kind) selects.
	Load(mw *classfile.MethodWriter, abiBits int, kind classfile.JavaKind) error

	// Store consumes a pointer (PointerKind()'s kind) already on mw's
	// stack, calls push to place the value being stored, then writes it
	// to memory.
	Store(mw *classfile.MethodWriter, abiBits int, kind classfile.JavaKind, push func() error) error
}

// PrimitiveCategory is the VM-primitive bucket a memory access falls
// into, per spec.md §4.8's selection table.
type PrimitiveCategory byte

const (
	CatByte PrimitiveCategory = iota
	CatShort
	CatInt
	CatFloat
	CatLong
	CatDouble
)

type catInfo struct {
	name             string
	valueLayoutField string
	valueLayoutClass string
	fieldType        classfile.FieldType
}

var catTable = map[PrimitiveCategory]catInfo{
	CatByte:   {"Byte", "JAVA_BYTE", "java/lang/foreign/ValueLayout$OfByte", classfile.TByte()},
	CatShort:  {"Short", "JAVA_SHORT", "java/lang/foreign/ValueLayout$OfShort", classfile.TShort()},
	CatInt:    {"Int", "JAVA_INT", "java/lang/foreign/ValueLayout$OfInt", classfile.TInt()},
	CatFloat:  {"Float", "JAVA_FLOAT", "java/lang/foreign/ValueLayout$OfFloat", classfile.TFloat()},
	CatLong:   {"Long", "JAVA_LONG", "java/lang/foreign/ValueLayout$OfLong", classfile.TLong()},
	CatDouble: {"Double", "JAVA_DOUBLE", "java/lang/foreign/ValueLayout$OfDouble", classfile.TDouble()},
}

func (c PrimitiveCategory) info() catInfo { return catTable[c] }

// Name is the category's title-case name, used to build support-class
// method names ("readInt", "writeFloat", ...).
func (c PrimitiveCategory) Name() string { return c.info().name }

// FieldType is the descriptor-level type a value of this category has
// once loaded (or before it's stored).
func (c PrimitiveCategory) FieldType() classfile.FieldType { return c.info().fieldType }

// JavaKind is the classfile operand-stack kind a value of this category
// occupies — byte/short/int all surface as Int on the JVM stack.
func (c PrimitiveCategory) JavaKind() classfile.JavaKind {
	switch c {
	case CatFloat:
		return classfile.KFloat
	case CatLong:
		return classfile.KLong
	case CatDouble:
		return classfile.KDouble
	default:
		return classfile.KInt
	}
}

// PrimitiveCategoryFor implements spec.md §4.8's selection table:
// {≤8→Byte, ≤16→Short, ≤32 float→Float else Int, ≤64 double→Double
// else Long}.
func PrimitiveCategoryFor(abiBits int, resultKind classfile.JavaKind) PrimitiveCategory {
	switch {
	case abiBits <= 8:
		return CatByte
	case abiBits <= 16:
		return CatShort
	case abiBits <= 32:
		if resultKind == classfile.KFloat {
			return CatFloat
		}
		return CatInt
	default:
		if resultKind == classfile.KDouble {
			return CatDouble
		}
		return CatLong
	}
}
