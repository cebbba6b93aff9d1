package archive

import (
	"github.com/jvlm-go/jvlmc/classfile"
	"github.com/jvlm-go/jvlmc/ir"
	"github.com/jvlm-go/jvlmc/lower"
	"github.com/jvlm-go/jvlmc/memstrategy"
	"github.com/jvlm-go/jvlmc/namemap"
)

const classSuperName = "java/lang/Object"

// Planner drives one whole compilation: every function and global of an
// ir.Module, grouped into per-class plans by the Name Mapping Interface,
// written out as classfiles plus the active Memory Strategy's support
// classes, per spec.md §4.9.
type Planner struct {
	Names  namemap.NameMapper
	Memory memstrategy.Strategy
	Sizer  ir.AbiSizer
}

// NewPlanner returns a Planner wired to the given collaborators.
func NewPlanner(names namemap.NameMapper, memory memstrategy.Strategy, sizer ir.AbiSizer) *Planner {
	return &Planner{Names: names, Memory: memory, Sizer: sizer}
}

type fieldPlan struct {
	name string
	ty   classfile.FieldType
}

type classPlan struct {
	name      string
	fields    []fieldPlan
	functions []ir.Function
}

// Compile lowers every function and global of mod into w. On the first
// error, it returns immediately without calling w.Close() — the caller
// closes w and discards the output on error, per spec.md §5's "no
// partial archive on disk" requirement.
func (p *Planner) Compile(mod ir.Module, w Writer) error {
	plans := make(map[string]*classPlan)
	var order []string // stabilizes class iteration order (spec.md §5)

	planFor := func(class string) *classPlan {
		pl, ok := plans[class]
		if !ok {
			pl = &classPlan{name: class}
			plans[class] = pl
			order = append(order, class)
		}
		return pl
	}

	for _, fn := range mod.Functions() {
		if len(fn.Blocks()) == 0 {
			continue // declaration only, no body to lower
		}
		loc, err := p.Names.LocationOfFunction(fn.Name())
		if err != nil {
			return err
		}
		if loc.IsExternal {
			return lower.NameMappingViolationError{Symbol: fn.Name(), Reason: "external symbol has a definition"}
		}
		pl := planFor(loc.ClassName)
		pl.functions = append(pl.functions, fn)
		logger.Printf("function %s -> %s.%s", fn.Name(), loc.ClassName, loc.MemberName)
	}

	for _, g := range mod.Globals() {
		if path, ok := g.ArchiveResourcePath(); ok {
			entry, err := w.StartFile(path)
			if err != nil {
				return err
			}
			if _, err := entry.Write(g.ArchiveResourceData()); err != nil {
				return IoError{Op: "write archive resource " + path, Cause: err}
			}
			logger.Printf("global %s -> raw resource entry %s", g.Name(), path)
			continue
		}
		if _, ok := g.Initializer(); !ok {
			continue // external declaration, nothing to emit
		}

		loc, err := p.Names.LocationOfStaticField(g.Name())
		if err != nil {
			return err
		}
		fty, err := lower.FieldTypeFor(g.Type(), loc.ExtraTypeInfo, p.Sizer, p.Memory)
		if err != nil {
			return err
		}
		pl := planFor(loc.ClassName)
		pl.fields = append(pl.fields, fieldPlan{name: loc.FieldName, ty: fty})
		logger.Printf("global %s -> %s.%s", g.Name(), loc.ClassName, loc.FieldName)
	}

	translator := lower.New(p.Names, p.Memory, p.Sizer)

	for _, name := range order {
		pl := plans[name]
		cw, err := classfile.NewClassWriter(pl.name, classSuperName)
		if err != nil {
			return err
		}

		for _, f := range pl.fields {
			if err := cw.WriteField(classfile.FieldMetadata{
				Name:     f.name,
				Type:     f.ty,
				IsStatic: true,
				Public:   true,
			}); err != nil {
				return err
			}
		}
		for _, fn := range pl.functions {
			if err := translator.TranslateFunction(cw, fn); err != nil {
				return err
			}
		}

		out, err := cw.Finalize()
		if err != nil {
			return err
		}
		entry, err := w.StartFile(pl.name + ".class")
		if err != nil {
			return err
		}
		if _, err := entry.Write(out); err != nil {
			return IoError{Op: "write class entry " + pl.name, Cause: err}
		}
	}

	if err := p.Memory.AppendSupportClasses(w); err != nil {
		return err
	}
	return nil
}
