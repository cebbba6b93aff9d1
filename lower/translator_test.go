package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvlm-go/jvlmc/classfile"
	"github.com/jvlm-go/jvlmc/internal/testir"
	"github.com/jvlm-go/jvlmc/ir"
	"github.com/jvlm-go/jvlmc/memstrategy"
	"github.com/jvlm-go/jvlmc/namemap"
)

func newTranslator(strategy memstrategy.Strategy) *Translator {
	return New(namemap.DefaultNameMapper{}, strategy, testir.AbiSizer{})
}

func newClassWriter(t *testing.T) *classfile.ClassWriter {
	t.Helper()
	cw, err := classfile.NewClassWriter("jvlm/Test", "java/lang/Object")
	require.NoError(t, err)
	return cw
}

// sumFunction builds "jvlm__sum" (a + b), both i32 params, the scenario
// spec.md §8's simplest test case describes.
func sumFunction() *testir.Function {
	i32 := testir.IntType(32)
	a := &testir.Value{Ty: i32, Label: "a"}
	b := &testir.Value{Ty: i32, Label: "b"}
	add := &testir.Instruction{Value: testir.Value{Ty: i32}, Op: ir.OpAdd, Ops: []ir.Value{a, b}}
	ret := &testir.Instruction{Op: ir.OpReturn, Ops: []ir.Value{add}}
	block := &testir.Block{Label: "entry", Instrs: []ir.Instruction{add, ret}}
	return &testir.Function{
		FName:   "jvlm__sum",
		FParams: []ir.Value{a, b},
		FBlocks: []ir.Block{block},
		FReturn: i32,
	}
}

func TestTranslateFunctionSum(t *testing.T) {
	cw := newClassWriter(t)
	tr := newTranslator(memstrategy.SegmentStrategy{})
	require.NoError(t, tr.TranslateFunction(cw, sumFunction()))
	out, err := cw.Finalize()
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

// identityFunction returns its single i32 parameter unchanged.
func identityFunction() *testir.Function {
	i32 := testir.IntType(32)
	a := &testir.Value{Ty: i32, Label: "a"}
	ret := &testir.Instruction{Op: ir.OpReturn, Ops: []ir.Value{a}}
	block := &testir.Block{Label: "entry", Instrs: []ir.Instruction{ret}}
	return &testir.Function{
		FName:   "jvlm__identity",
		FParams: []ir.Value{a},
		FBlocks: []ir.Block{block},
		FReturn: i32,
	}
}

func TestTranslateFunctionIdentity(t *testing.T) {
	cw := newClassWriter(t)
	tr := newTranslator(memstrategy.SegmentStrategy{})
	require.NoError(t, tr.TranslateFunction(cw, identityFunction()))
	_, err := cw.Finalize()
	require.NoError(t, err)
}

// selectFunction returns cond != 0 ? a : b, exercising spec.md §8
// scenario 3's boolean-merge bytecode shape.
func selectFunction() *testir.Function {
	i32 := testir.IntType(32)
	cond := &testir.Value{Ty: i32, Label: "cond"}
	a := &testir.Value{Ty: i32, Label: "a"}
	b := &testir.Value{Ty: i32, Label: "b"}
	sel := &testir.Instruction{Value: testir.Value{Ty: i32}, Op: ir.OpSelect, Ops: []ir.Value{cond, a, b}}
	ret := &testir.Instruction{Op: ir.OpReturn, Ops: []ir.Value{sel}}
	block := &testir.Block{Label: "entry", Instrs: []ir.Instruction{sel, ret}}
	return &testir.Function{
		FName:   "jvlm__pick",
		FParams: []ir.Value{cond, a, b},
		FBlocks: []ir.Block{block},
		FReturn: i32,
	}
}

func TestTranslateFunctionSelect(t *testing.T) {
	cw := newClassWriter(t)
	tr := newTranslator(memstrategy.SegmentStrategy{})
	require.NoError(t, tr.TranslateFunction(cw, selectFunction()))
	_, err := cw.Finalize()
	require.NoError(t, err)
}

// icmpFunction returns (a < b) as an i32 boolean.
func icmpFunction() *testir.Function {
	i32 := testir.IntType(32)
	a := &testir.Value{Ty: i32, Label: "a"}
	b := &testir.Value{Ty: i32, Label: "b"}
	cmp := &testir.Instruction{Value: testir.Value{Ty: i32}, Op: ir.OpICmp, Pred: ir.PredSLT, Ops: []ir.Value{a, b}}
	ret := &testir.Instruction{Op: ir.OpReturn, Ops: []ir.Value{cmp}}
	block := &testir.Block{Label: "entry", Instrs: []ir.Instruction{cmp, ret}}
	return &testir.Function{
		FName:   "jvlm__less",
		FParams: []ir.Value{a, b},
		FBlocks: []ir.Block{block},
		FReturn: i32,
	}
}

func TestTranslateFunctionICmp(t *testing.T) {
	cw := newClassWriter(t)
	tr := newTranslator(memstrategy.SegmentStrategy{})
	require.NoError(t, tr.TranslateFunction(cw, icmpFunction()))
	_, err := cw.Finalize()
	require.NoError(t, err)
}

// forwardBranchFunction unconditionally jumps over a dead block straight
// to a shared exit block, exercising to_patch/already_written forward
// reference resolution (spec.md §8 scenario 4).
func forwardBranchFunction() *testir.Function {
	i32 := testir.IntType(32)
	a := &testir.Value{Ty: i32, Label: "a"}

	exit := &testir.Block{Label: "exit"}
	ret := &testir.Instruction{Op: ir.OpReturn, Ops: []ir.Value{a}}
	exit.Instrs = []ir.Instruction{ret}

	deadConst := testir.NewIntConst(i32, 0)
	deadRet := &testir.Instruction{Op: ir.OpReturn, Ops: []ir.Value{deadConst}}
	dead := &testir.Block{Label: "dead", Instrs: []ir.Instruction{deadRet}}

	br := &testir.Instruction{Op: ir.OpBr, Succs: []ir.Block{exit}}
	entry := &testir.Block{Label: "entry", Instrs: []ir.Instruction{br}}

	return &testir.Function{
		FName:   "jvlm__skip",
		FParams: []ir.Value{a},
		FBlocks: []ir.Block{entry, dead, exit},
		FReturn: i32,
	}
}

func TestTranslateFunctionForwardBranch(t *testing.T) {
	cw := newClassWriter(t)
	tr := newTranslator(memstrategy.SegmentStrategy{})
	require.NoError(t, tr.TranslateFunction(cw, forwardBranchFunction()))
	_, err := cw.Finalize()
	require.NoError(t, err)
}

// allocaStoreLoadFunction allocates one i32 stack slot, stores its
// parameter into it, then loads it back out — spec.md §8 scenario 5,
// parameterized over both memory strategies below.
func allocaStoreLoadFunction() *testir.Function {
	i32 := testir.IntType(32)
	ptrTy := testir.PointerType(ir.AddrDefault, i32)
	v := &testir.Value{Ty: i32, Label: "v"}

	alloca := &testir.Instruction{Value: testir.Value{Ty: ptrTy}, Op: ir.OpAlloca, ElemType: i32, ElemCount: 1, ElemCountOK: true}
	store := &testir.Instruction{Op: ir.OpStore, Ops: []ir.Value{v, alloca}}
	load := &testir.Instruction{Value: testir.Value{Ty: i32}, Op: ir.OpLoad, Ops: []ir.Value{alloca}}
	ret := &testir.Instruction{Op: ir.OpReturn, Ops: []ir.Value{load}}
	block := &testir.Block{Label: "entry", Instrs: []ir.Instruction{alloca, store, load, ret}}

	return &testir.Function{
		FName:   "jvlm__roundtrip",
		FParams: []ir.Value{v},
		FBlocks: []ir.Block{block},
		FReturn: i32,
	}
}

func TestTranslateFunctionAllocaStoreLoad(t *testing.T) {
	strategies := map[string]memstrategy.Strategy{
		"segment":     memstrategy.SegmentStrategy{},
		"shadow-heap": memstrategy.ShadowHeapStrategy{},
	}
	for name, strategy := range strategies {
		t.Run(name, func(t *testing.T) {
			cw := newClassWriter(t)
			tr := newTranslator(strategy)
			require.NoError(t, tr.TranslateFunction(cw, allocaStoreLoadFunction()))
			_, err := cw.Finalize()
			require.NoError(t, err)
		})
	}
}

// mixedDispatchFunction calls a static helper, then an instance method
// on its own first parameter (spec.md §8 scenario 6's mixed-dispatch
// case): jvlm__helper is static, jvlm_extern_invokevirtual__pkg_Foo_bar
// is an external virtual call on a managed-pointer receiver.
func mixedDispatchFunction() *testir.Function {
	i32 := testir.IntType(32)
	fooClass := testir.ManagedPointerType("pkg/Foo", nil)
	recv := &testir.Value{Ty: fooClass, Label: "recv"}
	arg := &testir.Value{Ty: i32, Label: "arg"}

	staticCall := &testir.Instruction{Value: testir.Value{Ty: i32}, Op: ir.OpCall, CalleeName: "jvlm__helper", Ops: []ir.Value{arg}}
	virtCall := &testir.Instruction{
		Value:      testir.Value{Ty: i32},
		Op:         ir.OpCall,
		CalleeName: "jvlm_extern_invokevirtual__pkg_Foo_bar",
		Ops:        []ir.Value{recv, staticCall},
	}
	ret := &testir.Instruction{Op: ir.OpReturn, Ops: []ir.Value{virtCall}}
	block := &testir.Block{Label: "entry", Instrs: []ir.Instruction{staticCall, virtCall, ret}}

	return &testir.Function{
		FName:   "jvlm__dispatch",
		FParams: []ir.Value{recv, arg},
		FBlocks: []ir.Block{block},
		FReturn: i32,
	}
}

func TestTranslateFunctionMixedDispatch(t *testing.T) {
	cw := newClassWriter(t)
	tr := newTranslator(memstrategy.SegmentStrategy{})
	require.NoError(t, tr.TranslateFunction(cw, mixedDispatchFunction()))
	_, err := cw.Finalize()
	require.NoError(t, err)
}

// specialDispatchFunction calls an external constructor-style method via
// the jvlm_extern_invokespecial__ prefix, exercising namemap.Special —
// InvokeSpecial was previously never reached by any lower test.
func specialDispatchFunction() *testir.Function {
	i32 := testir.IntType(32)
	fooClass := testir.ManagedPointerType("pkg/Foo", nil)
	recv := &testir.Value{Ty: fooClass, Label: "recv"}

	call := &testir.Instruction{
		Value:      testir.Value{Ty: i32},
		Op:         ir.OpCall,
		CalleeName: "jvlm_extern_invokespecial__pkg_Foo_init",
		Ops:        []ir.Value{recv},
	}
	ret := &testir.Instruction{Op: ir.OpReturn, Ops: []ir.Value{call}}
	block := &testir.Block{Label: "entry", Instrs: []ir.Instruction{call, ret}}

	return &testir.Function{
		FName:   "jvlm__constructThing",
		FParams: []ir.Value{recv},
		FBlocks: []ir.Block{block},
		FReturn: i32,
	}
}

func TestTranslateFunctionSpecialDispatch(t *testing.T) {
	cw := newClassWriter(t)
	tr := newTranslator(memstrategy.SegmentStrategy{})
	require.NoError(t, tr.TranslateFunction(cw, specialDispatchFunction()))
	_, err := cw.Finalize()
	require.NoError(t, err)
}

// staticInterfaceNameMapper routes every call through namemap.StaticInterface
// — no prefix in DefaultNameMapper's table produces that dispatch kind, so
// a dedicated test policy is needed to reach InvokeStaticInterface.
type staticInterfaceNameMapper struct{}

func (staticInterfaceNameMapper) LocationOfFunction(symbol string) (namemap.FunctionLocation, error) {
	if symbol == "jvlm__caller" {
		return namemap.FunctionLocation{ClassName: "jvlm/Caller", MemberName: "caller", Dispatch: namemap.Static}, nil
	}
	return namemap.FunctionLocation{
		ClassName:  "pkg/Ops",
		MemberName: "defaultMethod",
		Dispatch:   namemap.StaticInterface,
		IsExternal: true,
	}, nil
}

func (staticInterfaceNameMapper) IsSpecialNew(symbol string) (string, bool) { return "", false }

func (staticInterfaceNameMapper) LocationOfStaticField(symbol string) (namemap.FieldLocation, error) {
	return namemap.FieldLocation{}, nil
}

// staticInterfaceDispatchFunction calls an external interface static
// method, exercising namemap.StaticInterface — InvokeStaticInterface was
// previously never reached by any lower test.
func staticInterfaceDispatchFunction() *testir.Function {
	i32 := testir.IntType(32)
	arg := &testir.Value{Ty: i32, Label: "arg"}

	call := &testir.Instruction{
		Value:      testir.Value{Ty: i32},
		Op:         ir.OpCall,
		CalleeName: "jvlm_extern__pkg_Ops_defaultMethod",
		Ops:        []ir.Value{arg},
	}
	ret := &testir.Instruction{Op: ir.OpReturn, Ops: []ir.Value{call}}
	block := &testir.Block{Label: "entry", Instrs: []ir.Instruction{call, ret}}

	return &testir.Function{
		FName:   "jvlm__caller",
		FParams: []ir.Value{arg},
		FBlocks: []ir.Block{block},
		FReturn: i32,
	}
}

func TestTranslateFunctionStaticInterfaceDispatch(t *testing.T) {
	cw := newClassWriter(t)
	tr := New(staticInterfaceNameMapper{}, memstrategy.SegmentStrategy{}, testir.AbiSizer{})
	require.NoError(t, tr.TranslateFunction(cw, staticInterfaceDispatchFunction()))
	_, err := cw.Finalize()
	require.NoError(t, err)
}

func TestTranslateFunctionRejectsExternalDefinition(t *testing.T) {
	i32 := testir.IntType(32)
	ret := &testir.Instruction{Op: ir.OpReturn, Ops: []ir.Value{testir.NewIntConst(i32, 0)}}
	block := &testir.Block{Label: "entry", Instrs: []ir.Instruction{ret}}
	fn := &testir.Function{
		FName:   "jvlm_extern__should_not_be_defined",
		FBlocks: []ir.Block{block},
		FReturn: i32,
	}

	cw := newClassWriter(t)
	tr := newTranslator(memstrategy.SegmentStrategy{})
	err := tr.TranslateFunction(cw, fn)
	require.Error(t, err)
	var violation NameMappingViolationError
	require.ErrorAs(t, err, &violation)
}

func TestTranslateFunctionRejectsUnsupportedOpcode(t *testing.T) {
	i32 := testir.IntType(32)
	bogus := &testir.Instruction{Value: testir.Value{Ty: i32}, Op: ir.Opcode(999)}
	block := &testir.Block{Label: "entry", Instrs: []ir.Instruction{bogus}}
	fn := &testir.Function{
		FName:   "jvlm__bogus",
		FBlocks: []ir.Block{block},
		FReturn: i32,
	}

	cw := newClassWriter(t)
	tr := newTranslator(memstrategy.SegmentStrategy{})
	err := tr.TranslateFunction(cw, fn)
	require.Error(t, err)
	var unsupported UnsupportedConstructError
	require.ErrorAs(t, err, &unsupported)
}
