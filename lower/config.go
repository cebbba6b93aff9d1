package lower

// intrinsicAction is this package's documented intrinsic handler
// policy (spec.md §9 Design Notes: "Intrinsic handler policy ... is
// data-driven and must be documented by the implementer"). Calls whose
// callee symbol appears in intrinsicTable never reach the Name Mapping
// Interface at all — they are recognized before dispatch is resolved.
type intrinsicAction byte

const (
	// intrinsicNoOp elides the call entirely: no bytecode is emitted for
	// it, and (since it is always void-typed in this table — every
	// entry here is a side-effect-only hint) it produces no SSA result.
	intrinsicNoOp intrinsicAction = iota
	// intrinsicAbort lowers the call to an invokestatic on the runtime
	// trap helper, modelling a source-level "this is unreachable" or
	// "this invariant must hold" assertion as a hard runtime abort
	// rather than a silent no-op.
	intrinsicAbort
)

// reservedIntrinsicPrefix marks a callee symbol as one of this engine's
// own recognized intrinsics rather than an ordinary Name-Mapping-routed
// call — the "host's reserved namespace" spec.md §4.6 refers to.
const reservedIntrinsicPrefix = "jvlm_intrinsic__"

// intrinsicTable is the global policy data spec.md §9 calls for: one
// unexported literal built at package init, not a mutable global. The
// two entries here are illustrative of the two actions the table
// supports; a real deployment's exact list is a data file the IR
// producer's front end and this table are kept in sync with, not
// something this package's code encodes beyond the mechanism.
var intrinsicTable = map[string]intrinsicAction{
	reservedIntrinsicPrefix + "assume":      intrinsicNoOp,
	reservedIntrinsicPrefix + "unreachable": intrinsicAbort,
}

// trapClass/trapMethod are the runtime helper an intrinsicAbort call
// lowers to.
const (
	trapClass  = "jvlm/rt/Trap"
	trapMethod = "raise"
)
