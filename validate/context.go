package validate

import (
	"github.com/stackwasm/wasmvalidate/ast"
	"github.com/stackwasm/wasmvalidate/free"
	"github.com/stackwasm/wasmvalidate/match"
)

// Context is the indexed environment every checker consults (spec §3):
// built once per phase by the module driver and handed to checkers by
// value — appending a label or a local produces a new Context rather
// than mutating the caller's.
type Context struct {
	Types    []ast.DefType
	Funcs    []uint32 // Funcs[i] is the type index of function i
	Tables   []ast.TableType
	Memories []ast.MemoryType
	Globals  []ast.GlobalType
	Elems    []ast.RefType
	Datas    int // only existence matters; datas carry no type content

	Locals  []ast.ValueType
	Results []ast.ValueType
	Labels  [][]ast.ValueType // index 0 = innermost enclosing label

	Refs free.Set // function indices declared via some element segment

	// AllowMultiValueBlocks lifts the restrictive default (spec §9a) that
	// forbids block/loop/if/let result arities greater than one.
	AllowMultiValueBlocks bool
}

func (c Context) match() match.Types { return match.Types(c.Types) }

func (c Context) Type(idx uint32, span ast.Span) (ast.DefType, *Diagnostic) {
	if int(idx) >= len(c.Types) {
		d := errUnknown("type", idx, span)
		return nil, &d
	}
	return c.Types[idx], nil
}

func (c Context) FuncType(idx uint32, span ast.Span) (ast.FuncType, *Diagnostic) {
	if int(idx) >= len(c.Funcs) {
		d := errUnknown("func", idx, span)
		return ast.FuncType{}, &d
	}
	return c.TypeFuncAt(c.Funcs[idx], span)
}

// TypeFuncAt resolves a type index directly (used by call_indirect, which
// names a type rather than a function).
func (c Context) TypeFuncAt(typeIdx uint32, span ast.Span) (ast.FuncType, *Diagnostic) {
	dt, derr := c.Type(typeIdx, span)
	if derr != nil {
		return ast.FuncType{}, derr
	}
	fd, ok := dt.(ast.FuncDefType)
	if !ok {
		d := errUnknown("type", typeIdx, span)
		return ast.FuncType{}, &d
	}
	return fd.Type, nil
}

func (c Context) Table(idx uint32, span ast.Span) (ast.TableType, *Diagnostic) {
	if int(idx) >= len(c.Tables) {
		d := errUnknown("table", idx, span)
		return ast.TableType{}, &d
	}
	return c.Tables[idx], nil
}

func (c Context) Memory(idx uint32, span ast.Span) (ast.MemoryType, *Diagnostic) {
	if int(idx) >= len(c.Memories) {
		d := errUnknown("memory", idx, span)
		return ast.MemoryType{}, &d
	}
	return c.Memories[idx], nil
}

func (c Context) Global(idx uint32, span ast.Span) (ast.GlobalType, *Diagnostic) {
	if int(idx) >= len(c.Globals) {
		d := errUnknown("global", idx, span)
		return ast.GlobalType{}, &d
	}
	return c.Globals[idx], nil
}

func (c Context) Elem(idx uint32, span ast.Span) (ast.RefType, *Diagnostic) {
	if int(idx) >= len(c.Elems) {
		d := errUnknown("elem", idx, span)
		return ast.RefType{}, &d
	}
	return c.Elems[idx], nil
}

func (c Context) Data(idx uint32, span ast.Span) *Diagnostic {
	if int(idx) >= c.Datas {
		d := errUnknown("data", idx, span)
		return &d
	}
	return nil
}

func (c Context) Local(idx uint32, span ast.Span) (ast.ValueType, *Diagnostic) {
	if int(idx) >= len(c.Locals) {
		d := errUnknown("local", idx, span)
		return ast.ValueType{}, &d
	}
	return c.Locals[idx], nil
}

func (c Context) Label(idx uint32, span ast.Span) ([]ast.ValueType, *Diagnostic) {
	if int(idx) >= len(c.Labels) {
		d := errUnknown("label", idx, span)
		return nil, &d
	}
	return c.Labels[idx], nil
}

// WithLabel prepends a new innermost label, as done when entering a
// Block/If (ts = its result types) or a Loop (ts = nil, branches target
// the head).
func (c Context) WithLabel(ts []ast.ValueType) Context {
	nc := c
	labels := make([][]ast.ValueType, 0, len(c.Labels)+1)
	labels = append(labels, ts)
	labels = append(labels, c.Labels...)
	nc.Labels = labels
	return nc
}

// WithLocals extends the locals environment, as done when entering a Let.
// The newly declared locals get the lowest indices, with the enclosing
// scope's locals shifted up above them — a let-bound local at source
// index 0 is always the most recently introduced one, independent of how
// many locals already existed outside the let.
func (c Context) WithLocals(extra []ast.ValueType) Context {
	nc := c
	locals := make([]ast.ValueType, 0, len(c.Locals)+len(extra))
	locals = append(locals, extra...)
	locals = append(locals, c.Locals...)
	nc.Locals = locals
	return nc
}
