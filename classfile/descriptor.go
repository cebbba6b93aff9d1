package classfile

import "strings"

// FieldKind distinguishes the primitive/reference/array shapes a
// FieldType can take, per the grammar in spec.md §3:
//
//	B|C|D|F|I|J|S|Z | L<binary-name>; | [<field>
type FieldKind byte

const (
	KindByte FieldKind = iota
	KindChar
	KindDouble
	KindFloat
	KindInt
	KindLong
	KindShort
	KindBoolean
	KindClass
	KindArray
)

// FieldType is a node in the descriptor type tree.
type FieldType struct {
	Kind      FieldKind
	ClassName string     // valid when Kind == KindClass (slash-separated binary name)
	Elem      *FieldType // valid when Kind == KindArray
}

func TByte() FieldType    { return FieldType{Kind: KindByte} }
func TChar() FieldType    { return FieldType{Kind: KindChar} }
func TDouble() FieldType  { return FieldType{Kind: KindDouble} }
func TFloat() FieldType   { return FieldType{Kind: KindFloat} }
func TInt() FieldType     { return FieldType{Kind: KindInt} }
func TLong() FieldType    { return FieldType{Kind: KindLong} }
func TShort() FieldType   { return FieldType{Kind: KindShort} }
func TBoolean() FieldType { return FieldType{Kind: KindBoolean} }

func TClass(binaryName string) FieldType {
	return FieldType{Kind: KindClass, ClassName: binaryName}
}

func TArray(elem FieldType) FieldType {
	return FieldType{Kind: KindArray, Elem: &elem}
}

// Encode renders a FieldType as its descriptor string.
func (t FieldType) Encode() string {
	switch t.Kind {
	case KindByte:
		return "B"
	case KindChar:
		return "C"
	case KindDouble:
		return "D"
	case KindFloat:
		return "F"
	case KindInt:
		return "I"
	case KindLong:
		return "J"
	case KindShort:
		return "S"
	case KindBoolean:
		return "Z"
	case KindClass:
		return "L" + t.ClassName + ";"
	case KindArray:
		return "[" + t.Elem.Encode()
	}
	return ""
}

// IsWide reports whether a value of this type occupies two operand-stack
// or local-variable slots (Long and Double only).
func (t FieldType) IsWide() bool {
	return t.Kind == KindLong || t.Kind == KindDouble
}

// Width is 2 for Long/Double, 1 for everything else (including object and
// array references) — the slot count a CONSTANT_Class/field of this type
// contributes to an invokeinterface argument count or a locals layout.
func (t FieldType) Width() int {
	if t.IsWide() {
		return 2
	}
	return 1
}

// ClassConstantName is the string a CONSTANT_Class_info's name_index
// should reference for this type: the bare binary name for an object
// type ("jvlm/Math", no L/; wrapper), or the full array descriptor for
// an array type ("[I"). Only valid when Kind is KindClass or KindArray.
func (t FieldType) ClassConstantName() string {
	if t.Kind == KindArray {
		return t.Encode()
	}
	return t.ClassName
}

// AsVerificationType maps a descriptor-level FieldType to the abstract
// verification type the tracker pushes/pops for it.
func (t FieldType) AsVerificationType() VerificationType {
	switch t.Kind {
	case KindLong:
		return VerificationType{Tag: VTLong}
	case KindDouble:
		return VerificationType{Tag: VTDouble}
	case KindFloat:
		return VerificationType{Tag: VTFloat}
	case KindClass, KindArray:
		return VerificationType{Tag: VTObject, ObjectClass: t.ClassConstantName()}
	default:
		// Byte, Char, Short, Boolean, Int all occupy an Integer slot.
		return VerificationType{Tag: VTInteger}
	}
}

// MethodDescriptor is a parameter list plus an optional return type (nil
// means void), per the grammar `(<field>*)(<field>|V)`.
type MethodDescriptor struct {
	Params []FieldType
	Return *FieldType
}

// Encode renders a MethodDescriptor as its descriptor string.
func (m MethodDescriptor) Encode() string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range m.Params {
		b.WriteString(p.Encode())
	}
	b.WriteByte(')')
	if m.Return != nil {
		b.WriteString(m.Return.Encode())
	} else {
		b.WriteByte('V')
	}
	return b.String()
}

// IntFieldTypeForWidth maps an IR integer bit-width to a descriptor
// primitive per spec.md §3: 1→Z; 2..8→B; 9..16→S; 17..32→I; 33..64→J.
// Widths above 64 have no primitive mapping — ok is false and the caller
// (the SSA translator, via the Name Mapping Interface's extra_type_info
// channel) must supply an object reference descriptor for a bignum type.
func IntFieldTypeForWidth(bits int) (FieldType, bool) {
	switch {
	case bits == 1:
		return TBoolean(), true
	case bits >= 2 && bits <= 8:
		return TByte(), true
	case bits >= 9 && bits <= 16:
		return TShort(), true
	case bits >= 17 && bits <= 32:
		return TInt(), true
	case bits >= 33 && bits <= 64:
		return TLong(), true
	default:
		return FieldType{}, false
	}
}
