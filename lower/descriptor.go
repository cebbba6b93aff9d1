package lower

import (
	"github.com/jvlm-go/jvlmc/classfile"
	"github.com/jvlm-go/jvlmc/ir"
	"github.com/jvlm-go/jvlmc/memstrategy"
)

// extraTypeCursor walks a Name Mapping Interface's extra_type_info list
// in order, handing out one binary class name per opaque managed
// pointer position — spec.md §4.7: "extra_type_info is an ordered
// optional list ... used to fill in descriptor positions whose ambient
// IR type is an opaque pointer in the managed address space."
type extraTypeCursor struct {
	names []string
	next  int
}

func (c *extraTypeCursor) take() (string, bool) {
	if c == nil || c.next >= len(c.names) {
		return "", false
	}
	n := c.names[c.next]
	c.next++
	return n, true
}

// fieldTypeFor is the Descriptor Encoder from spec.md §4.2: a pure
// function of an ir.Type (plus the extra-type-info channel and the
// active Memory Strategy, the two external inputs §4.2 names) into a
// classfile.FieldType.
func fieldTypeFor(t ir.Type, extra *extraTypeCursor, sizer ir.AbiSizer, strategy memstrategy.Strategy) (classfile.FieldType, error) {
	switch {
	case t.IsInt():
		ft, ok := classfile.IntFieldTypeForWidth(t.IntBits())
		if ok {
			return ft, nil
		}
		if name, ok := extra.take(); ok {
			return classfile.TClass(name), nil
		}
		return classfile.FieldType{}, UnsupportedConstructError{What: "integer width with no bignum descriptor", Detail: t.String()}

	case t.IsFloat():
		if t.FloatBits() == ir.Float64 {
			return classfile.TDouble(), nil
		}
		return classfile.TFloat(), nil

	case t.IsPointer():
		if t.PointerAddressSpace() == ir.AddrManaged {
			// spec.md §4.2: the name comes from the extra_type_info
			// channel. A Type that already carries its own
			// ManagedClassName (as internal/testir fixtures may, for
			// convenience) is accepted too, so long as the positional
			// channel has nothing queued for this slot — a genuine
			// extra_type_info entry always wins when present.
			if name, ok := extra.take(); ok {
				return classfile.TClass(name), nil
			}
			if name := t.ManagedClassName(); name != "" {
				return classfile.TClass(name), nil
			}
			return classfile.FieldType{}, UnsupportedConstructError{What: "managed pointer with no extra_type_info class name", Detail: t.String()}
		}
		return strategy.PointerFieldType(), nil

	default:
		return classfile.FieldType{}, UnsupportedConstructError{What: "type has no descriptor mapping", Detail: t.String()}
	}
}

// FieldTypeFor is the exported form of the Descriptor Encoder, for
// callers outside this package that need a single type's descriptor
// without the positional, whole-function cursor methodDescriptorFor
// threads — the archive Planner's field declarations, one independent
// extra_type_info list per global.
func FieldTypeFor(t ir.Type, extraTypeInfo []string, sizer ir.AbiSizer, strategy memstrategy.Strategy) (classfile.FieldType, error) {
	cursor := &extraTypeCursor{names: extraTypeInfo}
	return fieldTypeFor(t, cursor, sizer, strategy)
}

// methodDescriptorFor builds a full MethodDescriptor for fn, consuming
// extraTypeInfo positionally across parameters (return type consumes
// from the same cursor last, matching the order a real mangler would
// encode: parameters left to right, then the return type).
func methodDescriptorFor(fn ir.Function, extraTypeInfo []string, sizer ir.AbiSizer, strategy memstrategy.Strategy) (classfile.MethodDescriptor, error) {
	cursor := &extraTypeCursor{names: extraTypeInfo}
	var desc classfile.MethodDescriptor
	for _, p := range fn.Params() {
		ft, err := fieldTypeFor(p.Type(), cursor, sizer, strategy)
		if err != nil {
			return classfile.MethodDescriptor{}, err
		}
		desc.Params = append(desc.Params, ft)
	}
	if !fn.ReturnType().IsVoid() {
		ft, err := fieldTypeFor(fn.ReturnType(), cursor, sizer, strategy)
		if err != nil {
			return classfile.MethodDescriptor{}, err
		}
		desc.Return = &ft
	}
	return desc, nil
}
