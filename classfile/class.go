package classfile

import (
	"bytes"
	"io"
)

// classfile format constants (spec.md §6).
const (
	classMagic      uint32 = 0xCAFEBABE
	classMinorVer   uint16 = 0
	classMajorVer   uint16 = 52 // Java 8, the lowest version with java.lang.invoke-free StackMapTable support this package needs
	accPublic       uint16 = 0x0001
	accSuper        uint16 = 0x0020
	accFieldStatic  uint16 = 0x0008
	accFieldFinal   uint16 = 0x0010
	accFieldPrivate uint16 = 0x0002
)

// FieldMetadata describes one class field, per spec.md §3's added
// ClassFile.fields.
type FieldMetadata struct {
	Name     string
	Type     FieldType
	IsStatic bool
	Final    bool
	Public   bool
	Private  bool
}

func (m FieldMetadata) accessFlags() uint16 {
	var f uint16
	if m.Public {
		f |= accPublic
	}
	if m.Private {
		f |= accFieldPrivate
	}
	if m.IsStatic {
		f |= accFieldStatic
	}
	if m.Final {
		f |= accFieldFinal
	}
	return f
}

type fieldData struct {
	accessFlags uint16
	nameRef     Reference
	descRef     Reference
}

// ClassWriter is the Class Writer component from spec.md §4.9: owns the
// constant pool and assembles header, fields, and methods into the
// final classfile byte stream. Grounded on wasm/module.go's Module,
// which plays the same "accumulate sections, then serialize" role for
// the WASM container format.
type ClassWriter struct {
	pool *Pool

	thisName   string
	thisClass  Reference
	superClass Reference

	fields  []fieldData
	methods []*MethodData
}

// NewClassWriter starts a new class named thisName (slash-separated
// binary name) extending superName.
func NewClassWriter(thisName, superName string) (*ClassWriter, error) {
	pool := NewPool()
	thisClass, err := pool.Class(thisName)
	if err != nil {
		return nil, err
	}
	superClass, err := pool.Class(superName)
	if err != nil {
		return nil, err
	}
	return &ClassWriter{
		pool:       pool,
		thisName:   thisName,
		thisClass:  thisClass,
		superClass: superClass,
	}, nil
}

// Pool exposes the class's constant pool, so collaborators (the Memory
// Strategy, the Name Mapping Interface's callers) can intern entries
// that end up referenced only from field/method metadata this writer
// doesn't itself construct.
func (cw *ClassWriter) Pool() *Pool { return cw.pool }

// WriteField appends a field to the class.
func (cw *ClassWriter) WriteField(meta FieldMetadata) error {
	nameRef, err := cw.pool.Utf8(meta.Name)
	if err != nil {
		return err
	}
	descRef, err := cw.pool.Utf8(meta.Type.Encode())
	if err != nil {
		return err
	}
	cw.fields = append(cw.fields, fieldData{
		accessFlags: meta.accessFlags(),
		nameRef:     nameRef,
		descRef:     descRef,
	})
	return nil
}

// WriteMethod appends a new method and returns a MethodWriter bound to
// it. The returned writer's Tracker starts pre-seeded with the
// receiver's local slot (unless IsStatic) followed by one local per
// declared parameter, in order (two slots for a long or double).
func (cw *ClassWriter) WriteMethod(meta MethodMetadata) (*MethodWriter, error) {
	var locals []VerificationType
	if !meta.IsStatic {
		locals = append(locals, VerificationType{Tag: VTObject, ObjectClass: cw.thisName})
	}
	for _, p := range meta.Descriptor.Params {
		locals = append(locals, p.AsVerificationType())
	}
	nameRef, err := cw.pool.Utf8(meta.Name)
	if err != nil {
		return nil, err
	}
	descRef, err := cw.pool.Utf8(meta.Descriptor.Encode())
	if err != nil {
		return nil, err
	}
	md := &MethodData{
		accessFlags:   meta.accessFlags(),
		nameRef:       nameRef,
		descRef:       descRef,
		descriptor:    meta.Descriptor,
		isStatic:      meta.IsStatic,
		code:          NewCodeBuffer(),
		tracker:       NewTracker(locals),
		stackMapTable: make(map[CodeLocation]StackMapFrame),
	}
	cw.methods = append(cw.methods, md)
	return &MethodWriter{pool: cw.pool, data: md}, nil
}

// Finalize serializes the complete classfile: magic/version, constant
// pool, header, fields, methods (each with its Code and, when any
// branch targets were recorded, StackMapTable attributes), and an empty
// class-attribute list.
// Finalize builds every method's Code/StackMapTable attribute bytes
// first — doing so may still intern constant pool entries ("Code",
// "StackMapTable", branch-target Object class names) — and only then
// serializes the pool, since the wire format fixes the pool immediately
// after the version fields, before any method body appears.
func (cw *ClassWriter) Finalize() ([]byte, error) {
	methodAttrs := make([][]byte, len(cw.methods))
	for i, m := range cw.methods {
		code, err := m.code.Finalize()
		if err != nil {
			return nil, err
		}
		attr, err := buildCodeAttribute(cw.pool, m, code)
		if err != nil {
			return nil, err
		}
		methodAttrs[i] = attr
	}

	var buf bytes.Buffer
	if err := writeU32(&buf, classMagic); err != nil {
		return nil, err
	}
	if err := writeU16(&buf, classMinorVer); err != nil {
		return nil, err
	}
	if err := writeU16(&buf, classMajorVer); err != nil {
		return nil, err
	}
	if err := cw.pool.WriteTo(&buf); err != nil {
		return nil, err
	}
	if err := writeU16(&buf, accPublic|0x0010|accSuper); err != nil { // public final super
		return nil, err
	}
	if err := writeU16(&buf, uint16(cw.thisClass)); err != nil {
		return nil, err
	}
	if err := writeU16(&buf, uint16(cw.superClass)); err != nil {
		return nil, err
	}
	if err := writeU16(&buf, 0); err != nil { // interfaces_count
		return nil, err
	}
	if err := writeU16(&buf, uint16(len(cw.fields))); err != nil {
		return nil, err
	}
	for _, f := range cw.fields {
		if err := writeFieldInfo(&buf, f); err != nil {
			return nil, err
		}
	}
	if err := writeU16(&buf, uint16(len(cw.methods))); err != nil {
		return nil, err
	}
	for i, m := range cw.methods {
		if err := writeMethodInfo(&buf, m, methodAttrs[i]); err != nil {
			return nil, err
		}
	}
	if err := writeU16(&buf, 0); err != nil { // class attributes_count
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFieldInfo(w io.Writer, f fieldData) error {
	if err := writeU16(w, f.accessFlags); err != nil {
		return err
	}
	if err := writeU16(w, uint16(f.nameRef)); err != nil {
		return err
	}
	if err := writeU16(w, uint16(f.descRef)); err != nil {
		return err
	}
	return writeU16(w, 0) // attributes_count
}

func writeMethodInfo(w io.Writer, m *MethodData, codeAttr []byte) error {
	if err := writeU16(w, m.accessFlags); err != nil {
		return err
	}
	if err := writeU16(w, uint16(m.nameRef)); err != nil {
		return err
	}
	if err := writeU16(w, uint16(m.descRef)); err != nil {
		return err
	}
	if err := writeU16(w, 1); err != nil { // attributes_count: Code only
		return err
	}
	_, err := w.Write(codeAttr)
	return err
}

// buildCodeAttribute serializes the Code attribute body (including its
// own attribute_name_index/attribute_length header) for one method.
func buildCodeAttribute(pool *Pool, m *MethodData, code []byte) ([]byte, error) {
	var inner bytes.Buffer
	if err := writeU16(&inner, uint16(m.tracker.MaxStack())); err != nil {
		return nil, err
	}
	if err := writeU16(&inner, uint16(m.tracker.MaxLocals())); err != nil {
		return nil, err
	}
	if err := writeU32(&inner, uint32(len(code))); err != nil {
		return nil, err
	}
	if _, err := inner.Write(code); err != nil {
		return nil, err
	}
	if err := writeU16(&inner, 0); err != nil { // exception_table_length
		return nil, err
	}

	smt, err := buildStackMapTable(pool, m.stackMapTable)
	if err != nil {
		return nil, err
	}
	if len(smt) == 0 {
		if err := writeU16(&inner, 0); err != nil { // attributes_count
			return nil, err
		}
	} else {
		if err := writeU16(&inner, 1); err != nil {
			return nil, err
		}
		if _, err := inner.Write(smt); err != nil {
			return nil, err
		}
	}

	nameRef, err := pool.Utf8("Code")
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := writeU16(&out, uint16(nameRef)); err != nil {
		return nil, err
	}
	if err := writeU32(&out, uint32(inner.Len())); err != nil {
		return nil, err
	}
	if _, err := out.Write(inner.Bytes()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
