// Package testir is a minimal in-memory implementation of the ir
// interfaces, used only by this module's own tests. It stands in for
// the real, out-of-scope host IR library (spec.md §9's dynamic-dispatch
// boundary) the way exec/internal/compile's tests build a Module by
// hand rather than parsing real .wasm fixtures for every case.
package testir

import "github.com/jvlm-go/jvlmc/ir"

// Type is a hand-built ir.Type.
type Type struct {
	Void         bool
	Int          bool
	Bits         int
	Float        bool
	FWidth       ir.FloatWidth
	Pointer      bool
	AddrSpace    ir.AddressSpace
	Pointee      *Type
	ManagedClass string
	Name         string
}

func VoidType() *Type { return &Type{Void: true, Name: "void"} }

func IntType(bits int) *Type { return &Type{Int: true, Bits: bits, Name: "i" + itoa(bits)} }

func FloatType(w ir.FloatWidth) *Type { return &Type{Float: true, FWidth: w, Name: "f" + itoa(int(w))} }

func PointerType(space ir.AddressSpace, pointee *Type) *Type {
	return &Type{Pointer: true, AddrSpace: space, Pointee: pointee, Name: "ptr"}
}

func ManagedPointerType(class string, pointee *Type) *Type {
	return &Type{Pointer: true, AddrSpace: ir.AddrManaged, Pointee: pointee, ManagedClass: class, Name: "ptr<" + class + ">"}
}

func (t *Type) IsVoid() bool                         { return t.Void }
func (t *Type) IsInt() bool                          { return t.Int }
func (t *Type) IntBits() int                         { return t.Bits }
func (t *Type) IsFloat() bool                        { return t.Float }
func (t *Type) FloatBits() ir.FloatWidth              { return t.FWidth }
func (t *Type) IsPointer() bool                      { return t.Pointer }
func (t *Type) PointerAddressSpace() ir.AddressSpace { return t.AddrSpace }
func (t *Type) PointeeType() ir.Type                 { return t.Pointee }
func (t *Type) ManagedClassName() string             { return t.ManagedClass }
func (t *Type) String() string                       { return t.Name }

// Value is a hand-built ir.Value: a function parameter or an
// instruction result not otherwise wrapped by Instruction.
type Value struct {
	Ty    *Type
	Label string
}

func (v *Value) Type() ir.Type { return v.Ty }

// Const is a compile-time constant value.
type Const struct {
	Value
	S int64
	Z uint64
}

func NewIntConst(ty *Type, signed int64) *Const {
	return &Const{Value: Value{Ty: ty}, S: signed, Z: uint64(signed)}
}

func (c *Const) SExt() int64  { return c.S }
func (c *Const) ZExt() uint64 { return c.Z }

// Block is a hand-built ir.Block.
type Block struct {
	Label  string
	Instrs []ir.Instruction
}

func (b *Block) Instructions() []ir.Instruction { return b.Instrs }

// Instruction is a hand-built ir.Instruction covering every opcode's
// fields; which are meaningful depends on Op, per ir.Instruction's doc.
type Instruction struct {
	Value
	Op          ir.Opcode
	Ops         []ir.Value
	Pred        ir.Predicate
	Succs       []ir.Block
	CalleeName  string
	ElemType    *Type
	ElemCount   int64
	ElemCountOK bool
}

func (i *Instruction) Opcode() ir.Opcode         { return i.Op }
func (i *Instruction) Operands() []ir.Value      { return i.Ops }
func (i *Instruction) Predicate() ir.Predicate   { return i.Pred }
func (i *Instruction) Successors() []ir.Block    { return i.Succs }
func (i *Instruction) Callee() string            { return i.CalleeName }
func (i *Instruction) ElementType() ir.Type       { return i.ElemType }
func (i *Instruction) ElementCount() (int64, bool) { return i.ElemCount, i.ElemCountOK }

// Function is a hand-built ir.Function.
type Function struct {
	FName    string
	FParams  []ir.Value
	FBlocks  []ir.Block
	FReturn  *Type
}

func (f *Function) Name() string         { return f.FName }
func (f *Function) Params() []ir.Value   { return f.FParams }
func (f *Function) Blocks() []ir.Block   { return f.FBlocks }
func (f *Function) ReturnType() ir.Type  { return f.FReturn }

// Global is a hand-built ir.Global.
type Global struct {
	GName        string
	GType        *Type
	GInit        ir.Constant
	HasInit      bool
	ResourcePath string
	IsResource   bool
	ResourceData []byte
}

func (g *Global) Name() string { return g.GName }
func (g *Global) Type() ir.Type { return g.GType }
func (g *Global) Initializer() (ir.Constant, bool) { return g.GInit, g.HasInit }
func (g *Global) ArchiveResourcePath() (string, bool) { return g.ResourcePath, g.IsResource }
func (g *Global) ArchiveResourceData() []byte { return g.ResourceData }

// Module is a hand-built ir.Module.
type Module struct {
	Funcs []ir.Function
	Globs []ir.Global
}

func (m *Module) Functions() []ir.Function { return m.Funcs }
func (m *Module) Globals() []ir.Global     { return m.Globs }

// AbiSizer is a straightforward byte-size rule: ints round up to whole
// bytes, floats take their IEEE width, pointers are always 8 bytes (the
// managed-segment strategy's handle width).
type AbiSizer struct{}

func (AbiSizer) SizeOf(t ir.Type) int64 {
	switch {
	case t.IsInt():
		return int64((t.IntBits() + 7) / 8)
	case t.IsFloat():
		return int64(t.FloatBits()) / 8
	case t.IsPointer():
		return 8
	default:
		return 0
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
