// Package namemap is the Name Mapping Interface from spec.md §4.7: an
// external policy, consumed (not implemented) by the lowering core. It
// also ships the default transliteration policy spec.md §6 describes,
// as one pluggable NameMapper among any number an embedder could supply.
package namemap

import "strings"

// DispatchKind selects which invoke opcode a Call lowers to.
type DispatchKind int

const (
	Static DispatchKind = iota
	StaticInterface
	Special
	Virtual
	Interface
)

func (d DispatchKind) String() string {
	switch d {
	case Static:
		return "static"
	case StaticInterface:
		return "static-interface"
	case Special:
		return "special"
	case Virtual:
		return "virtual"
	case Interface:
		return "interface"
	default:
		return "<unknown dispatch kind>"
	}
}

// FunctionLocation is location_of_function's result.
type FunctionLocation struct {
	ClassName     string
	MemberName    string
	Dispatch      DispatchKind
	IsExternal    bool
	ExtraTypeInfo []string
}

// FieldLocation is location_of_static_field's result.
type FieldLocation struct {
	ClassName     string
	FieldName     string
	ExtraTypeInfo []string
}

// NameMapper is the external policy the core consumes. A symbol flagged
// IsExternal in a FunctionLocation must never receive a definition in
// the emitted output — the Planner rejects such a case as a
// NameMappingViolation.
type NameMapper interface {
	LocationOfFunction(symbol string) (FunctionLocation, error)
	IsSpecialNew(symbol string) (className string, ok bool)
	LocationOfStaticField(symbol string) (FieldLocation, error)
}

// Reserved private-use code points standing in for characters the
// transliteration can't pass through `_` unambiguously: `_` itself
// already means "path separator", so a literal underscore, a literal
// `<`, and a literal `>` each need an escape the IR producer emits
// instead of the bare character.
const (
	puaLt          = '\ue000' // → '<'
	puaGt          = '\ue001' // → '>'
	puaUnderscore  = '\ue002' // → '_'
	puaParamSepRun = '\ue003' // separates $jvlm_param$ suffix segments
)

const paramSuffixMarker = "$jvlm_param$"

var functionPrefixes = []struct {
	prefix     string
	dispatch   DispatchKind
	isExternal bool
}{
	{"jvlm_extern_invokespecial__", Special, true},
	{"jvlm_extern_invokevirtual__", Virtual, true},
	{"jvlm_extern__", Static, true},
	{"jvlm__", Static, false},
}

const newPrefix = "jvlm_extern_new__"
const fieldPrefix = "jvlm__"

// transliterate renders the reserved-code-point escapes and converts
// every remaining literal `_` to `/`.
func transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '_':
			b.WriteByte('/')
		case puaLt:
			b.WriteByte('<')
		case puaGt:
			b.WriteByte('>')
		case puaUnderscore:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitClassMember divides a fully transliterated, slash-separated
// symbol at its last separator: everything before is the class, the
// final segment is the member (method or field) name. A symbol with no
// slash at all becomes a bare top-level class named "jvlm".
func splitClassMember(transliterated string) (class, member string) {
	idx := strings.LastIndex(transliterated, "/")
	if idx < 0 {
		return "jvlm", transliterated
	}
	return transliterated[:idx], transliterated[idx+1:]
}

// stripParamSuffix splits off a trailing "$jvlm_param$<segments>"
// marker, returning the symbol without it and the segments (each
// transliterated as a binary class name) as extra_type_info.
func stripParamSuffix(symbol string) (core string, extraTypeInfo []string) {
	idx := strings.Index(symbol, paramSuffixMarker)
	if idx < 0 {
		return symbol, nil
	}
	core = symbol[:idx]
	suffix := symbol[idx+len(paramSuffixMarker):]
	if suffix == "" {
		return core, nil
	}
	for _, seg := range strings.Split(suffix, string(puaParamSepRun)) {
		extraTypeInfo = append(extraTypeInfo, transliterate(seg))
	}
	return core, extraTypeInfo
}

// DefaultNameMapper implements the default policy documented in
// spec.md §6. It is a pure function of the symbol string; the original
// crate's naming scheme supplied the prefix table (original_source's
// `rustc_codegen_jvlm` embeds the same `jvlm__`/`jvlm_extern__` marker
// convention in its symbol-mangling pass).
type DefaultNameMapper struct{}

func (DefaultNameMapper) LocationOfFunction(symbol string) (FunctionLocation, error) {
	core, extra := stripParamSuffix(symbol)

	if rest := strings.TrimPrefix(core, newPrefix); rest != core {
		// is_special_new claims this symbol; location_of_function still
		// needs to answer something sane if called directly.
		return FunctionLocation{
			ClassName:     transliterate(rest),
			MemberName:    "<init>",
			Dispatch:      Special,
			IsExternal:    true,
			ExtraTypeInfo: extra,
		}, nil
	}

	for _, fp := range functionPrefixes {
		rest := strings.TrimPrefix(core, fp.prefix)
		if rest == core {
			continue
		}
		class, member := splitClassMember(transliterate(rest))
		return FunctionLocation{
			ClassName:     class,
			MemberName:    member,
			Dispatch:      fp.dispatch,
			IsExternal:    fp.isExternal,
			ExtraTypeInfo: extra,
		}, nil
	}

	return FunctionLocation{
		ClassName:     "jvlm/" + transliterate(core),
		MemberName:    core,
		Dispatch:      Static,
		IsExternal:    false,
		ExtraTypeInfo: extra,
	}, nil
}

func (DefaultNameMapper) IsSpecialNew(symbol string) (string, bool) {
	core, _ := stripParamSuffix(symbol)
	rest := strings.TrimPrefix(core, newPrefix)
	if rest == core {
		return "", false
	}
	return transliterate(rest), true
}

func (DefaultNameMapper) LocationOfStaticField(symbol string) (FieldLocation, error) {
	core, extra := stripParamSuffix(symbol)

	if rest := strings.TrimPrefix(core, fieldPrefix); rest != core {
		class, field := splitClassMember(transliterate(rest))
		return FieldLocation{ClassName: class, FieldName: field, ExtraTypeInfo: extra}, nil
	}

	return FieldLocation{
		ClassName:     "jvlm/s/" + transliterate(core),
		FieldName:     core,
		ExtraTypeInfo: extra,
	}, nil
}
