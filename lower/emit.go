package lower

import (
	"github.com/jvlm-go/jvlmc/classfile"
	"github.com/jvlm-go/jvlmc/ir"
	"github.com/jvlm-go/jvlmc/namemap"
)

// emit is the dispatch table spec.md §4.6 describes: one case per
// ir.Opcode this package lowers. It returns the JavaKind of the value
// produced (meaningful only when hasResult is true) so translateAndStore
// knows what local slot shape to declare.
func (ft *funcTranslator) emit(instr ir.Instruction) (kind classfile.JavaKind, hasResult bool, err error) {
	switch instr.Opcode() {
	case ir.OpAdd, ir.OpMul:
		return ft.emitBinOp(instr)
	case ir.OpReturn:
		return ft.emitReturn(instr)
	case ir.OpBr:
		return ft.emitBr(instr)
	case ir.OpICmp:
		return ft.emitICmp(instr)
	case ir.OpSelect:
		return ft.emitSelect(instr)
	case ir.OpAlloca:
		return ft.emitAlloca(instr)
	case ir.OpLoad:
		return ft.emitLoad(instr)
	case ir.OpStore:
		return ft.emitStore(instr)
	case ir.OpCall:
		return ft.emitCall(instr)
	default:
		return 0, false, UnsupportedConstructError{Function: ft.funcName, What: "opcode", Detail: instr.Opcode().String()}
	}
}

func (ft *funcTranslator) emitBinOp(instr ir.Instruction) (classfile.JavaKind, bool, error) {
	ops := instr.Operands()
	if len(ops) != 2 {
		return 0, false, UnsupportedConstructError{Function: ft.funcName, What: "arithmetic operand count", Detail: instr.Opcode().String()}
	}
	kind, err := ft.typeKind(instr.Type())
	if err != nil {
		return 0, false, err
	}
	if _, err := ft.load(ops[0]); err != nil {
		return 0, false, err
	}
	if _, err := ft.load(ops[1]); err != nil {
		return 0, false, err
	}
	op := classfile.ArithAdd
	if instr.Opcode() == ir.OpMul {
		op = classfile.ArithMul
	}
	if err := ft.mw.BinOp(kind, op); err != nil {
		return 0, false, err
	}
	return kind, true, nil
}

func (ft *funcTranslator) emitReturn(instr ir.Instruction) (classfile.JavaKind, bool, error) {
	ops := instr.Operands()
	switch len(ops) {
	case 0:
		if err := ft.mw.Return(nil); err != nil {
			return 0, false, err
		}
		return 0, false, nil
	case 1:
		kind, err := ft.typeKind(ops[0].Type())
		if err != nil {
			return 0, false, err
		}
		if _, err := ft.load(ops[0]); err != nil {
			return 0, false, err
		}
		if err := ft.mw.Return(&kind); err != nil {
			return 0, false, err
		}
		return 0, false, nil
	default:
		return 0, false, UnsupportedConstructError{Function: ft.funcName, What: "return operand count", Detail: instr.Opcode().String()}
	}
}

// emitBr lowers both the unconditional form (one successor, no operand)
// and the conditional form (two successors, the predicate as the sole
// operand) — spec.md §4.6: the condition is tested against zero, the
// false-successor is reached by IfZero's branch, and the true-successor
// by a Goto emitted right after it, so neither depends on block order.
func (ft *funcTranslator) emitBr(instr ir.Instruction) (classfile.JavaKind, bool, error) {
	ops := instr.Operands()
	succs := instr.Successors()
	switch {
	case len(ops) == 0 && len(succs) == 1:
		target := ft.mw.Goto()
		if err := ft.bind(target, succs[0]); err != nil {
			return 0, false, err
		}
		return 0, false, nil
	case len(ops) == 1 && len(succs) == 2:
		if _, err := ft.load(ops[0]); err != nil {
			return 0, false, err
		}
		target, err := ft.mw.IfZero(classfile.CmpEq)
		if err != nil {
			return 0, false, err
		}
		if err := ft.bind(target, succs[1]); err != nil {
			return 0, false, err
		}
		trueTarget := ft.mw.Goto()
		if err := ft.bind(trueTarget, succs[0]); err != nil {
			return 0, false, err
		}
		return 0, false, nil
	default:
		return 0, false, UnsupportedConstructError{Function: ft.funcName, What: "br operand/successor shape", Detail: instr.Opcode().String()}
	}
}

// comparePredicate maps an ir.Predicate to the classfile CompareKind
// used for IfIcmp. Per spec.md §9's resolved Open Question, unsigned
// predicates are mapped onto the same signed opcodes as their signed
// counterparts rather than emulated with an offset trick — the IR this
// module lowers restricts itself to values where that distinction never
// materializes, and emulating true unsigned comparison is out of scope
// for the opcode set spec.md §4.5 defines. This is a known, documented
// imprecision, not an oversight.
func comparePredicate(p ir.Predicate) classfile.CompareKind {
	switch p {
	case ir.PredEQ:
		return classfile.CmpEq
	case ir.PredNE:
		return classfile.CmpNe
	case ir.PredSLT, ir.PredULT:
		return classfile.CmpLt
	case ir.PredSLE, ir.PredULE:
		return classfile.CmpLe
	case ir.PredSGT, ir.PredUGT:
		return classfile.CmpGt
	default: // PredSGE, PredUGE
		return classfile.CmpGe
	}
}

// emitICmp materializes an ICmp's boolean result the only way the
// classfile's opcode set allows without a dedicated compare-and-push
// instruction: branch past a "push false", then "push true" at the
// target, joined by a frame recorded at both labels — spec.md §8 scenario
// 3's literal sequence, mirrored here with the roles that produce it:
// false is the fallthrough value, true is the branch-target value.
func (ft *funcTranslator) emitICmp(instr ir.Instruction) (classfile.JavaKind, bool, error) {
	ops := instr.Operands()
	if len(ops) != 2 {
		return 0, false, UnsupportedConstructError{Function: ft.funcName, What: "icmp operand count", Detail: instr.Opcode().String()}
	}
	opKind, err := ft.typeKind(ops[0].Type())
	if err != nil {
		return 0, false, err
	}
	if opKind != classfile.KInt {
		return 0, false, UnsupportedConstructError{Function: ft.funcName, What: "icmp on non-int operand kind", Detail: ops[0].Type().String()}
	}
	if _, err := ft.load(ops[0]); err != nil {
		return 0, false, err
	}
	if _, err := ft.load(ops[1]); err != nil {
		return 0, false, err
	}

	trueTarget, err := ft.mw.IfIcmp(comparePredicate(instr.Predicate()))
	if err != nil {
		return 0, false, err
	}
	preBranch := ft.mw.Tracker().Snapshot()

	if err := ft.mw.ConstInt(0); err != nil {
		return 0, false, err
	}
	joinTarget := ft.mw.Goto()

	trueLoc := ft.mw.Code().Offset()
	if err := ft.mw.Code().SetTarget(trueTarget, trueLoc); err != nil {
		return 0, false, err
	}
	ft.mw.Tracker().Restore(preBranch)
	ft.mw.RecordFrame()
	if err := ft.mw.ConstInt(1); err != nil {
		return 0, false, err
	}

	joinLoc := ft.mw.Code().Offset()
	if err := ft.mw.Code().SetTarget(joinTarget, joinLoc); err != nil {
		return 0, false, err
	}
	ft.mw.RecordFrame()

	return classfile.KInt, true, nil
}

// emitSelect lowers a Select the same branch-merge way as ICmp, but with
// the then/else arms in the opposite roles: the then-arm is the
// fallthrough value (condition nonzero falls through), the else-arm is
// the branch-target value.
func (ft *funcTranslator) emitSelect(instr ir.Instruction) (classfile.JavaKind, bool, error) {
	ops := instr.Operands()
	if len(ops) != 3 {
		return 0, false, UnsupportedConstructError{Function: ft.funcName, What: "select operand count", Detail: instr.Opcode().String()}
	}
	cond, thenV, elseV := ops[0], ops[1], ops[2]

	if _, err := ft.load(cond); err != nil {
		return 0, false, err
	}
	elseTarget, err := ft.mw.IfZero(classfile.CmpEq)
	if err != nil {
		return 0, false, err
	}
	preBranch := ft.mw.Tracker().Snapshot()

	resultKind, err := ft.typeKind(thenV.Type())
	if err != nil {
		return 0, false, err
	}
	if _, err := ft.load(thenV); err != nil {
		return 0, false, err
	}
	joinTarget := ft.mw.Goto()

	elseLoc := ft.mw.Code().Offset()
	if err := ft.mw.Code().SetTarget(elseTarget, elseLoc); err != nil {
		return 0, false, err
	}
	ft.mw.Tracker().Restore(preBranch)
	ft.mw.RecordFrame()
	if _, err := ft.load(elseV); err != nil {
		return 0, false, err
	}

	joinLoc := ft.mw.Code().Offset()
	if err := ft.mw.Code().SetTarget(joinTarget, joinLoc); err != nil {
		return 0, false, err
	}
	ft.mw.RecordFrame()

	return resultKind, true, nil
}

func (ft *funcTranslator) emitAlloca(instr ir.Instruction) (classfile.JavaKind, bool, error) {
	count, ok := instr.ElementCount()
	if !ok {
		return 0, false, UnsupportedConstructError{Function: ft.funcName, What: "alloca with non-constant element count", Detail: instr.ElementType().String()}
	}
	if count <= 0 {
		count = 1
	}
	size := ft.sizer.SizeOf(instr.ElementType()) * count
	if err := ft.emitter.ConstStackAlloc(ft.mw, size); err != nil {
		return 0, false, err
	}
	return ft.emitter.PointerKind(), true, nil
}

func (ft *funcTranslator) emitLoad(instr ir.Instruction) (classfile.JavaKind, bool, error) {
	ops := instr.Operands()
	if len(ops) != 1 {
		return 0, false, UnsupportedConstructError{Function: ft.funcName, What: "load operand count", Detail: instr.Opcode().String()}
	}
	ptr := ops[0]

	if g, ok := ptr.(ir.Global); ok && isManagedPointer(g.Type()) {
		loc, err := ft.names.LocationOfStaticField(g.Name())
		if err != nil {
			return 0, false, err
		}
		cursor := &extraTypeCursor{names: loc.ExtraTypeInfo}
		fty, err := fieldTypeFor(g.Type(), cursor, ft.sizer, ft.memory)
		if err != nil {
			return 0, false, err
		}
		if err := ft.mw.GetStatic(loc.ClassName, loc.FieldName, fty); err != nil {
			return 0, false, err
		}
		return kindFromFieldType(fty), true, nil
	}

	kind, err := ft.typeKind(instr.Type())
	if err != nil {
		return 0, false, err
	}
	if _, err := ft.load(ptr); err != nil {
		return 0, false, err
	}
	abiBits := int(ft.sizer.SizeOf(instr.Type())) * 8
	if err := ft.emitter.Load(ft.mw, abiBits, kind); err != nil {
		return 0, false, err
	}
	return kind, true, nil
}

func (ft *funcTranslator) emitStore(instr ir.Instruction) (classfile.JavaKind, bool, error) {
	ops := instr.Operands()
	if len(ops) != 2 {
		return 0, false, UnsupportedConstructError{Function: ft.funcName, What: "store operand count", Detail: instr.Opcode().String()}
	}
	val, ptr := ops[0], ops[1]

	if g, ok := ptr.(ir.Global); ok && isManagedPointer(g.Type()) {
		loc, err := ft.names.LocationOfStaticField(g.Name())
		if err != nil {
			return 0, false, err
		}
		cursor := &extraTypeCursor{names: loc.ExtraTypeInfo}
		fty, err := fieldTypeFor(g.Type(), cursor, ft.sizer, ft.memory)
		if err != nil {
			return 0, false, err
		}
		if _, err := ft.load(val); err != nil {
			return 0, false, err
		}
		if err := ft.mw.PutStatic(loc.ClassName, loc.FieldName, fty); err != nil {
			return 0, false, err
		}
		return 0, false, nil
	}

	kind, err := ft.typeKind(val.Type())
	if err != nil {
		return 0, false, err
	}
	if _, err := ft.load(ptr); err != nil {
		return 0, false, err
	}
	abiBits := int(ft.sizer.SizeOf(val.Type())) * 8

	if err := ft.emitter.Store(ft.mw, abiBits, kind, func() error {
		_, err := ft.load(val)
		return err
	}); err != nil {
		return 0, false, err
	}
	return 0, false, nil
}

// emitCall resolves the callee in the order spec.md §4.6 specifies:
// reserved intrinsics first (never touch the Name Mapping Interface at
// all), then is_special_new, then the general location_of_function path.
func (ft *funcTranslator) emitCall(instr ir.Instruction) (classfile.JavaKind, bool, error) {
	symbol := instr.Callee()

	if action, ok := intrinsicTable[symbol]; ok {
		switch action {
		case intrinsicNoOp:
			return 0, false, nil
		case intrinsicAbort:
			if err := ft.mw.InvokeStatic(trapClass, trapMethod, classfile.MethodDescriptor{}); err != nil {
				return 0, false, err
			}
			return 0, false, nil
		}
	}

	if className, ok := ft.names.IsSpecialNew(symbol); ok {
		if err := ft.mw.New(className); err != nil {
			return 0, false, err
		}
		return classfile.KRef, true, nil
	}

	loc, err := ft.names.LocationOfFunction(symbol)
	if err != nil {
		return 0, false, err
	}

	args := instr.Operands()
	hasReceiver := loc.Dispatch != namemap.Static && loc.Dispatch != namemap.StaticInterface
	var receiver ir.Value
	if hasReceiver {
		if len(args) == 0 {
			return 0, false, UnsupportedConstructError{Function: ft.funcName, What: "non-static call with no receiver operand", Detail: symbol}
		}
		receiver, args = args[0], args[1:]
	}

	cursor := &extraTypeCursor{names: loc.ExtraTypeInfo}
	var desc classfile.MethodDescriptor
	for _, a := range args {
		fty, err := fieldTypeFor(a.Type(), cursor, ft.sizer, ft.memory)
		if err != nil {
			return 0, false, err
		}
		desc.Params = append(desc.Params, fty)
	}

	var resultKind classfile.JavaKind
	hasResult := !instr.Type().IsVoid()
	if hasResult {
		rf, err := fieldTypeFor(instr.Type(), cursor, ft.sizer, ft.memory)
		if err != nil {
			return 0, false, err
		}
		desc.Return = &rf
		resultKind = kindFromFieldType(rf)
	}

	if err := ft.emitter.PreCall(ft.mw); err != nil {
		return 0, false, err
	}

	if hasReceiver {
		if _, err := ft.load(receiver); err != nil {
			return 0, false, err
		}
	}
	for _, a := range args {
		if _, err := ft.load(a); err != nil {
			return 0, false, err
		}
	}

	var invokeErr error
	switch loc.Dispatch {
	case namemap.Static:
		invokeErr = ft.mw.InvokeStatic(loc.ClassName, loc.MemberName, desc)
	case namemap.StaticInterface:
		invokeErr = ft.mw.InvokeStaticInterface(loc.ClassName, loc.MemberName, desc)
	case namemap.Special:
		invokeErr = ft.mw.InvokeSpecial(loc.ClassName, loc.MemberName, desc)
	case namemap.Virtual:
		invokeErr = ft.mw.InvokeVirtual(loc.ClassName, loc.MemberName, desc)
	case namemap.Interface:
		invokeErr = ft.mw.InvokeInterface(loc.ClassName, loc.MemberName, desc)
	default:
		return 0, false, UnsupportedConstructError{Function: ft.funcName, What: "unknown dispatch kind", Detail: loc.Dispatch.String()}
	}
	if invokeErr != nil {
		return 0, false, invokeErr
	}

	return resultKind, hasResult, nil
}
