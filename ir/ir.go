// Package ir is the dynamic-dispatch boundary into the host SSA IR
// library. Nothing in this package parses or traverses IR itself — it
// only declares the shapes lower and memstrategy consume. A real
// front-end binding (reading LLVM-class bitcode, say) implements these
// interfaces; internal/testir is the in-memory stand-in this module's
// own tests are written against.
package ir

// Opcode names the SSA instructions the translator understands. Any
// Instruction reporting an Opcode outside this set is rejected with an
// UnsupportedConstruct-class error when the translator reaches it, before
// any bytecode is emitted for that instruction.
type Opcode int

const (
	OpAdd Opcode = iota
	OpMul
	OpReturn
	OpBr
	OpICmp
	OpSelect
	OpAlloca
	OpLoad
	OpStore
	OpCall
)

func (op Opcode) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpMul:
		return "mul"
	case OpReturn:
		return "return"
	case OpBr:
		return "br"
	case OpICmp:
		return "icmp"
	case OpSelect:
		return "select"
	case OpAlloca:
		return "alloca"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpCall:
		return "call"
	default:
		return "<unknown opcode>"
	}
}

// Predicate is an ICmp comparison predicate. Signed and unsigned
// variants are both named here even though the current lowering (per
// spec §9's flagged open question) maps every predicate onto the
// classfile's signed compare opcodes.
type Predicate int

const (
	PredEQ Predicate = iota
	PredNE
	PredSLT
	PredSLE
	PredSGT
	PredSGE
	PredULT
	PredULE
	PredUGT
	PredUGE
)

// IsUnsigned reports whether p is one of the four unsigned ordering
// predicates.
func (p Predicate) IsUnsigned() bool {
	switch p {
	case PredULT, PredULE, PredUGT, PredUGE:
		return true
	default:
		return false
	}
}

// AddressSpace distinguishes the default raw-memory address space from
// the managed-object address space a Memory Strategy's pointers live in.
type AddressSpace int

const (
	AddrDefault AddressSpace = iota
	AddrManaged
)

// FloatWidth is the IEEE width of a float-kind Type.
type FloatWidth int

const (
	Float32 FloatWidth = 32
	Float64 FloatWidth = 64
)

// Type is the host IR's type introspection surface: enough to pick a
// descriptor primitive (classfile.IntFieldTypeForWidth,
// FieldKind{Float,Double}) or recognize a pointer's address space.
type Type interface {
	IsVoid() bool
	IsInt() bool
	IntBits() int // valid when IsInt()

	IsFloat() bool
	FloatBits() FloatWidth // valid when IsFloat()

	IsPointer() bool
	PointerAddressSpace() AddressSpace // valid when IsPointer()
	PointeeType() Type                 // valid when IsPointer()

	// ManagedClassName is the binary class name a managed-address-space
	// pointer's pointee is rendered as in a descriptor, when the Name
	// Mapping Interface's extra_type_info supplies one. Empty when this
	// Type carries none (the generic memory-strategy object class is
	// used instead).
	ManagedClassName() string

	String() string
}

// AbiSizer answers the one data-layout question the translator needs:
// how many bytes a type occupies, for Alloca's size computation.
type AbiSizer interface {
	SizeOf(t Type) int64
}

// Value is an opaque SSA value identity: an instruction result, a
// function parameter, or a constant. Per spec §9, the core keys its
// internal maps on these identities directly (never on raw pointers
// escaping the IR library's lifetime) — a concrete Value is expected to
// be a comparable handle (a pointer or small struct), usable as a map
// key as-is.
type Value interface {
	Type() Type
}

// Constant is a Value known at compile time. SExt/ZExt mirror the two
// materialization forms spec §6 requires the Input interface to expose;
// the translator picks whichever matches the destination descriptor's
// signedness convention (classfile constants are always signed word
// values, so SExt is the one actually used today, but both are part of
// the contract).
type Constant interface {
	Value
	SExt() int64
	ZExt() uint64
}

// AsConstant type-asserts v to a Constant, the way the translator's
// three-way `load` choice distinguishes a re-materializable constant
// from a stored SSA slot or parameter.
func AsConstant(v Value) (Constant, bool) {
	c, ok := v.(Constant)
	return c, ok
}

// Block is one SSA basic block: an ordered instruction list. A concrete
// Block is expected to be a comparable handle, since the translator's
// basic_block_tracker keys already_written/to_patch maps on it directly.
type Block interface {
	Instructions() []Instruction
}

// Instruction is one SSA instruction. Which of Operands/Predicate/
// Successors/Callee/ElementCount are meaningful depends on Opcode() —
// see the dispatch table this interface exists to serve:
//
//	Add, Mul        Operands() has exactly 2 entries, same-kind operands.
//	Return          Operands() has 0 or 1 entries.
//	Br              Operands() has 0 (unconditional) or 1 (conditional,
//	                the predicate) entries; Successors() has 1 or 2
//	                blocks respectively (true-successor first).
//	ICmp            Predicate() is meaningful; Operands() has 2 entries.
//	Select          Operands() has 3 entries: condition, then-value,
//	                else-value.
//	Alloca          ElementType()/ElementCount() are meaningful.
//	Load            Operands() has 1 entry: the pointer.
//	Store           Operands() has 2 entries: value, pointer.
//	Call            Callee() is meaningful; Operands() are the arguments.
type Instruction interface {
	Value
	Opcode() Opcode
	Operands() []Value
	Predicate() Predicate
	Successors() []Block
	Callee() string
	ElementType() Type
	ElementCount() (int64, bool) // false if non-constant (unsupported)
}

// Function is one SSA function: a name, formal parameters (each a
// Value, consuming a local slot in declaration order), and a body of
// basic blocks visited in declaration order.
type Function interface {
	Name() string
	Params() []Value
	Blocks() []Block
	ReturnType() Type // IsVoid() true for a void-returning function
}

// Global is a module-level IR global. ArchiveResourcePath distinguishes
// an archive-resource annotated global (written as a raw archive entry,
// producing no class field) from an ordinary static field global.
type Global interface {
	Name() string
	Type() Type
	Initializer() (Constant, bool)
	ArchiveResourcePath() (string, bool)
	ArchiveResourceData() []byte // valid when ArchiveResourcePath returns true
}

// Module is the whole compilation unit: every function and global the
// Planner walks to build per-class plans.
type Module interface {
	Functions() []Function
	Globals() []Global
}
