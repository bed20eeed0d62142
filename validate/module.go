package validate

import (
	"github.com/google/uuid"

	"github.com/stackwasm/wasmvalidate/ast"
	"github.com/stackwasm/wasmvalidate/free"
)

// Profile carries the two toggles spec §9(a) leaves open: both default to
// the restrictive MVP baseline, since lifting either changes what a
// downstream engine must support.
type Profile struct {
	AllowMultipleMemories bool `yaml:"allow_multiple_memories"`
	AllowMultiValueBlocks bool `yaml:"allow_multi_value_blocks"`
}

func funcTypeIndices(fs []ast.Phrase[ast.Func]) []uint32 {
	out := make([]uint32, len(fs))
	for i, f := range fs {
		out[i] = f.It.Type
	}
	return out
}

func tableTypes(ts []ast.Phrase[ast.Table]) []ast.TableType {
	out := make([]ast.TableType, len(ts))
	for i, t := range ts {
		out[i] = t.It.Type
	}
	return out
}

func memoryTypes(ms []ast.Phrase[ast.Memory]) []ast.MemoryType {
	out := make([]ast.MemoryType, len(ms))
	for i, mm := range ms {
		out[i] = mm.It.Type
	}
	return out
}

func globalTypes(gs []ast.Phrase[ast.Global]) []ast.GlobalType {
	out := make([]ast.GlobalType, len(gs))
	for i, g := range gs {
		out[i] = g.It.Type
	}
	return out
}

func elemRefTypes(es []ast.Phrase[ast.ElemSegment]) []ast.RefType {
	out := make([]ast.RefType, len(es))
	for i, e := range es {
		out[i] = e.It.Type
	}
	return out
}

// importedSpaces splits a module's imports into per-kind index spaces, in
// declaration order, the same way the binary format's combined index
// spaces are seeded by imports before module-local declarations.
func importedSpaces(m *ast.Module) (funcs []uint32, tables []ast.TableType, memories []ast.MemoryType, globals []ast.GlobalType) {
	for _, imp := range m.Imports {
		switch d := imp.It.Desc.(type) {
		case ast.ImportFunc:
			funcs = append(funcs, d.Type)
		case ast.ImportTable:
			tables = append(tables, d.Type)
		case ast.ImportMemory:
			memories = append(memories, d.Type)
		case ast.ImportGlobal:
			globals = append(globals, d.Type)
		}
	}
	return
}

// Module validates m end to end (spec §C9): a three-phase context build —
// imports alone, then +declarations, then +globals last — followed by
// every declaration and body checker in turn. Each global's initializer
// sees imported globals plus every module-defined global declared before
// it, but never a sibling or later one; elems and datas are checked against
// the +declarations phase (c1), before any module-defined global exists;
// tables, start, and function bodies see the full +globals context (c),
// and memories are checked without a context. It returns either nil or the single Diagnostic (wrapped in
// FuncError when it originates inside a function body) spec §1 calls for.
func Module(m *ast.Module, profile Profile) error {
	reqID := uuid.New()
	log := logger.With("request_id", reqID.String())
	log.Debugw("validating module", "types", len(m.Types), "funcs", len(m.Funcs), "imports", len(m.Imports))

	types := make([]ast.DefType, len(m.Types))
	for i, t := range m.Types {
		types[i] = t.It
	}

	impFuncs, impTables, impMemories, impGlobals := importedSpaces(m)

	typesOnly := Context{Types: types}
	for _, imp := range m.Imports {
		if d := checkImportDesc(typesOnly, imp.It.Desc, imp.At); d != nil {
			log.Debugw("rejected", "message", d.Message)
			return *d
		}
	}

	refs := free.Module(m.Elems)

	c1 := Context{
		Types:                 types,
		Funcs:                 append(append([]uint32{}, impFuncs...), funcTypeIndices(m.Funcs)...),
		Tables:                append(append([]ast.TableType{}, impTables...), tableTypes(m.Tables)...),
		Memories:              append(append([]ast.MemoryType{}, impMemories...), memoryTypes(m.Memories)...),
		Globals:               impGlobals,
		Elems:                 elemRefTypes(m.Elems),
		Datas:                 len(m.Datas),
		Refs:                  refs,
		AllowMultiValueBlocks: profile.AllowMultiValueBlocks,
	}

	for i, t := range m.Types {
		if d := wfDefType(c1, t.It, t.At); d != nil {
			log.Debugw("rejected", "type", i, "message", d.Message)
			return *d
		}
	}

	// Each global's initializer is checked against the globals declared
	// strictly before it (imports first, then this module's own globals in
	// order): a later global is invisible to an earlier one's const-expr,
	// but a prior module-defined global is as visible as an imported one —
	// spec §8 scenario 6 depends on a prior *mutable* global tripping
	// "constant expression required" rather than "unknown global".
	gctx := c1
	gctx.Globals = append([]ast.GlobalType{}, impGlobals...)
	for i, g := range m.Globals {
		if d := checkGlobal(gctx, g.It, g.At); d != nil {
			log.Debugw("rejected", "global", i, "message", d.Message)
			return *d
		}
		gctx.Globals = append(gctx.Globals, g.It.Type)
	}

	c := c1
	c.Globals = append(append([]ast.GlobalType{}, impGlobals...), globalTypes(m.Globals)...)

	if !profile.AllowMultipleMemories && len(c.Memories) > 1 {
		d := errMultipleMemories(ast.Span{})
		log.Debugw("rejected", "message", d.Message)
		return d
	}

	for i, t := range m.Tables {
		if d := checkTable(c, t.It, t.At); d != nil {
			log.Debugw("rejected", "table", i, "message", d.Message)
			return *d
		}
	}

	for i, mem := range m.Memories {
		if d := checkMemory(mem.It, mem.At); d != nil {
			log.Debugw("rejected", "memory", i, "message", d.Message)
			return *d
		}
	}

	for i, e := range m.Elems {
		if d := checkElem(c1, e.It, e.At); d != nil {
			log.Debugw("rejected", "elem", i, "message", d.Message)
			return *d
		}
	}

	for i, dseg := range m.Datas {
		if d := checkData(c1, dseg.It, dseg.At); d != nil {
			log.Debugw("rejected", "data", i, "message", d.Message)
			return *d
		}
	}

	funcBase := uint32(len(impFuncs))
	for i, f := range m.Funcs {
		absIdx := funcBase + uint32(i)
		ft, derr := c.TypeFuncAt(f.It.Type, f.At)
		if derr != nil {
			log.Debugw("rejected", "func", absIdx, "message", derr.Message)
			return FuncError{Func: absIdx, Diagnostic: *derr}
		}
		fc := c
		fc.Locals = append(append([]ast.ValueType{}, ft.Ins...), f.It.Locals...)
		fc.Results = ft.Out
		fc.Labels = [][]ast.ValueType{ft.Out}
		if d := checkFunc(fc, f.It, f.At); d != nil {
			log.Debugw("rejected", "func", absIdx, "message", d.Message)
			return FuncError{Func: absIdx, Diagnostic: *d}
		}
	}

	if m.Start != nil {
		if d := checkStart(c, m.Start.It, m.Start.At); d != nil {
			log.Debugw("rejected", "message", d.Message)
			return *d
		}
	}

	seen := make(map[string]struct{}, len(m.Exports))
	for _, ex := range m.Exports {
		if d := checkExportDesc(c, ex.It.Desc, ex.At); d != nil {
			log.Debugw("rejected", "export", ex.It.Name, "message", d.Message)
			return *d
		}
		if _, dup := seen[ex.It.Name]; dup {
			d := errDuplicateExport(ex.At)
			log.Debugw("rejected", "export", ex.It.Name, "message", d.Message)
			return d
		}
		seen[ex.It.Name] = struct{}{}
	}

	log.Debugw("accepted")
	return nil
}
