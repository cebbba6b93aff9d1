// Package lower is the SSA Translator from spec.md §4.6: it walks IR
// functions and basic blocks in declaration order, maps SSA values to
// local variable slots, and drives a classfile.MethodWriter — consulting
// the active memstrategy.Strategy for memory operations and the
// namemap.NameMapper for every call/global reference. Grounded on
// exec/vm.go's single-pass, one-instruction-at-a-time interpreter loop
// (wagon's bytecode *interpreter*), generalized from interpreting
// instructions to emitting the instructions that would produce the same
// values on a different stack machine.
package lower

import (
	"github.com/jvlm-go/jvlmc/classfile"
	"github.com/jvlm-go/jvlmc/ir"
	"github.com/jvlm-go/jvlmc/memstrategy"
	"github.com/jvlm-go/jvlmc/namemap"
)

// Translator holds the compilation-wide collaborators every function's
// lowering consults: the external Name Mapping policy, the chosen
// Memory Strategy, and the host IR library's ABI size oracle. One
// Translator lowers every function of a compilation; TranslateFunction
// is safe to call repeatedly (each call resets all per-function state).
type Translator struct {
	Names  namemap.NameMapper
	Memory memstrategy.Strategy
	Sizer  ir.AbiSizer
}

// New returns a Translator wired to the given collaborators.
func New(names namemap.NameMapper, memory memstrategy.Strategy, sizer ir.AbiSizer) *Translator {
	return &Translator{Names: names, Memory: memory, Sizer: sizer}
}

// TranslateFunction lowers one IR function into a method on cw. The
// caller (the archive Planner) is responsible for having already
// rejected symbols the Name Mapping Interface flags external; this
// method checks again defensively and returns a NameMappingViolationError
// rather than silently emitting a definition for one.
func (t *Translator) TranslateFunction(cw *classfile.ClassWriter, fn ir.Function) error {
	loc, err := t.Names.LocationOfFunction(fn.Name())
	if err != nil {
		return err
	}
	if loc.IsExternal {
		return NameMappingViolationError{Symbol: fn.Name(), Reason: "external symbol has a definition"}
	}

	desc, err := methodDescriptorFor(fn, loc.ExtraTypeInfo, t.Sizer, t.Memory)
	if err != nil {
		return err
	}

	mw, err := cw.WriteMethod(classfile.MethodMetadata{
		Name:       loc.MemberName,
		Descriptor: desc,
		IsStatic:   true,
		Public:     true,
		Final:      true,
		Strictfp:   true,
	})
	if err != nil {
		return err
	}

	ft := &funcTranslator{
		funcName:       fn.Name(),
		mw:             mw,
		names:          t.Names,
		memory:         t.Memory,
		sizer:          t.Sizer,
		emitter:        t.Memory.NewFunctionEmitter(),
		params:         make(map[ir.Value]int),
		paramKinds:     make(map[ir.Value]classfile.JavaKind),
		ssaValues:      make(map[ir.Value]int),
		ssaKind:        make(map[ir.Value]classfile.JavaKind),
		alreadyWritten: make(map[ir.Block]classfile.CodeLocation),
		toPatch:        make(map[ir.Block][]classfile.InstructionTarget),
	}
	ft.bindParams(fn, desc)

	for _, b := range fn.Blocks() {
		if err := ft.recordStartOfBlock(b); err != nil {
			return err
		}
		for _, instr := range b.Instructions() {
			if err := ft.translateAndStore(instr); err != nil {
				return err
			}
		}
	}
	return nil
}

// funcTranslator is the per-function translation state from spec.md
// §3's "SSA translation state": params, ssa_values, next_slot (here:
// implicit in classfile.Tracker's DeclareLocal), basic_block_tracker,
// and memory_state (here: the strategy's FunctionEmitter). It is
// created fresh for every function and discarded at the function's end.
type funcTranslator struct {
	funcName string
	mw       *classfile.MethodWriter
	names    namemap.NameMapper
	memory   memstrategy.Strategy
	sizer    ir.AbiSizer
	emitter  memstrategy.FunctionEmitter

	params     map[ir.Value]int
	paramKinds map[ir.Value]classfile.JavaKind

	ssaValues map[ir.Value]int
	ssaKind   map[ir.Value]classfile.JavaKind

	// basic_block_tracker, per spec.md §3/§4.6.
	alreadyWritten map[ir.Block]classfile.CodeLocation
	toPatch        map[ir.Block][]classfile.InstructionTarget
}

// bindParams populates the params map from fn's formals in declaration
// order, consuming the slot widths classfile.ClassWriter.WriteMethod
// already pre-seeded into the tracker's locals.
func (ft *funcTranslator) bindParams(fn ir.Function, desc classfile.MethodDescriptor) {
	slot := 0
	for i, p := range fn.Params() {
		ft.params[p] = slot
		kind := kindFromFieldType(desc.Params[i])
		ft.paramKinds[p] = kind
		slot += desc.Params[i].Width()
	}
}

// bind resolves target to b's location if b has already been visited
// (a backward reference); otherwise it queues the target on b's
// to_patch list for recordStartOfBlock to resolve when b is reached.
func (ft *funcTranslator) bind(target classfile.InstructionTarget, b ir.Block) error {
	if loc, ok := ft.alreadyWritten[b]; ok {
		return ft.mw.Code().SetTarget(target, loc)
	}
	ft.toPatch[b] = append(ft.toPatch[b], target)
	return nil
}

// recordStartOfBlock is spec.md §4.6's record_start_of_block: capture
// the current location, flush any pending forward-reference patches for
// b, mark b visited, and record a stack-map frame here — every block
// start is treated as a potential branch target.
func (ft *funcTranslator) recordStartOfBlock(b ir.Block) error {
	loc := ft.mw.Code().Offset()
	for _, target := range ft.toPatch[b] {
		if err := ft.mw.Code().SetTarget(target, loc); err != nil {
			return err
		}
	}
	delete(ft.toPatch, b)
	ft.alreadyWritten[b] = loc
	ft.mw.RecordFrame()
	logger.Printf("%s: block start at %d", ft.funcName, loc)
	return nil
}

// translateAndStore is spec.md §4.6's translate_and_store: emit v, and
// if it produced a result, allocate a local slot for it and store it,
// recording the slot so later loads of v find it.
func (ft *funcTranslator) translateAndStore(instr ir.Instruction) error {
	kind, hasResult, err := ft.emit(instr)
	if err != nil {
		return err
	}
	if !hasResult {
		return nil
	}
	slot := ft.mw.DeclareLocal(verificationTypeForKind(kind))
	if err := ft.mw.Store(kind, slot); err != nil {
		return err
	}
	ft.ssaValues[instr] = slot
	ft.ssaKind[instr] = kind
	return nil
}

// load is spec.md §4.6's three-way choice: a parameter slot, a
// previously stored SSA value's slot, or (for constants) re-emission.
func (ft *funcTranslator) load(v ir.Value) (classfile.JavaKind, error) {
	if slot, ok := ft.params[v]; ok {
		kind := ft.paramKinds[v]
		if err := ft.mw.Load(kind, slot); err != nil {
			return 0, err
		}
		return kind, nil
	}
	if slot, ok := ft.ssaValues[v]; ok {
		kind := ft.ssaKind[v]
		if err := ft.mw.Load(kind, slot); err != nil {
			return 0, err
		}
		return kind, nil
	}
	if c, ok := ir.AsConstant(v); ok {
		return ft.loadConstant(c)
	}
	return 0, UnsupportedConstructError{Function: ft.funcName, What: "value is neither a parameter, a stored SSA result, nor a constant", Detail: v.Type().String()}
}

func (ft *funcTranslator) loadConstant(c ir.Constant) (classfile.JavaKind, error) {
	t := c.Type()
	switch {
	case t.IsInt():
		kind, err := ft.typeKind(t)
		if err != nil {
			return 0, err
		}
		if kind == classfile.KLong {
			if err := ft.mw.ConstLong(c.SExt()); err != nil {
				return 0, err
			}
		} else {
			if err := ft.mw.ConstInt(int32(c.SExt())); err != nil {
				return 0, err
			}
		}
		return kind, nil
	case t.IsPointer() && c.SExt() == 0:
		ft.mw.ConstNull()
		return classfile.KRef, nil
	default:
		return 0, UnsupportedConstructError{Function: ft.funcName, What: "constant form", Detail: t.String()}
	}
}

// typeKind maps an ir.Type to the JavaKind an SSA value of that type
// occupies, via the same Descriptor Encoder the method/call descriptors
// use (fieldTypeFor with no extra_type_info cursor — ordinary
// intermediate values never need a positional extra-type-info slot;
// only managed pointers carrying no intrinsic ManagedClassName do, and
// those are rejected here with the same UnsupportedConstructError
// fieldTypeFor already raises).
func (ft *funcTranslator) typeKind(t ir.Type) (classfile.JavaKind, error) {
	fty, err := fieldTypeFor(t, nil, ft.sizer, ft.memory)
	if err != nil {
		return 0, err
	}
	return kindFromFieldType(fty), nil
}

func kindFromFieldType(t classfile.FieldType) classfile.JavaKind {
	switch t.AsVerificationType().Tag {
	case classfile.VTLong:
		return classfile.KLong
	case classfile.VTFloat:
		return classfile.KFloat
	case classfile.VTDouble:
		return classfile.KDouble
	case classfile.VTObject:
		return classfile.KRef
	default:
		return classfile.KInt
	}
}

func isManagedPointer(t ir.Type) bool {
	return t.IsPointer() && t.PointerAddressSpace() == ir.AddrManaged
}

// verificationTypeForKind maps a JavaKind to the VerificationType a
// freshly declared local of that kind starts as. Matches the same
// simplification classfile.MethodWriter.Load already makes for object
// references: no ObjectClass is recorded, since the Tracker here only
// ever compares verification types by tag (PopExpect takes a bare VTag).
func verificationTypeForKind(k classfile.JavaKind) classfile.VerificationType {
	switch k {
	case classfile.KLong:
		return classfile.VerificationType{Tag: classfile.VTLong}
	case classfile.KFloat:
		return classfile.VerificationType{Tag: classfile.VTFloat}
	case classfile.KDouble:
		return classfile.VerificationType{Tag: classfile.VTDouble}
	case classfile.KRef:
		return classfile.VerificationType{Tag: classfile.VTObject}
	default:
		return classfile.VerificationType{Tag: classfile.VTInteger}
	}
}
