package validate

import (
	"github.com/stackwasm/wasmvalidate/ast"
	"github.com/stackwasm/wasmvalidate/match"
)

// checkFunc validates one function body under c, where c already carries
// the module's full index spaces plus this function's locals, results, and
// a single enclosing label for its implicit outermost block.
func checkFunc(c Context, f ast.Func, span ast.Span) *Diagnostic {
	for _, lt := range f.Locals {
		if !lt.Defaultable() {
			d := errNonDefaultableLocal(span)
			return &d
		}
	}
	final, derr := checkSeq(c, f.Body, closed())
	if derr != nil {
		return derr
	}
	return checkExit(c, c.Results, final, span)
}

func checkTable(c Context, t ast.Table, span ast.Span) *Diagnostic {
	if d := wfTableType(c, t.Type, span); d != nil {
		return d
	}
	if !ast.Ref(t.Type.Elem).Defaultable() {
		d := errNonDefaultableElement(span)
		return &d
	}
	return nil
}

func checkMemory(m ast.Memory, span ast.Span) *Diagnostic {
	return wfMemoryType(m.Type, span)
}

func checkGlobal(c Context, g ast.Global, span ast.Span) *Diagnostic {
	if d := wfGlobalType(c, g.Type, span); d != nil {
		return d
	}
	return checkConst(c, g.Init, g.Type.Type, span)
}

func checkElem(c Context, e ast.ElemSegment, span ast.Span) *Diagnostic {
	if d := wfRefType(c, e.Type, span); d != nil {
		return d
	}
	for _, init := range e.Init {
		if d := checkConst(c, init, ast.Ref(e.Type), span); d != nil {
			return d
		}
	}
	switch mode := e.Mode.(type) {
	case ast.ElemActive:
		tt, derr := c.Table(mode.Table, span)
		if derr != nil {
			return derr
		}
		if !match.RefType(c.match(), e.Type, tt.Elem) {
			d := errTypeMismatch(span, "elem segment type is not compatible with its target table")
			return &d
		}
		return checkConst(c, mode.Offset, ast.Num(ast.I32), span)
	case ast.ElemPassive, ast.ElemDeclarative:
		return nil
	default:
		return nil
	}
}

func checkData(c Context, d ast.DataSegment, span ast.Span) *Diagnostic {
	switch mode := d.Mode.(type) {
	case ast.DataActive:
		if _, derr := c.Memory(mode.Memory, span); derr != nil {
			return derr
		}
		return checkConst(c, mode.Offset, ast.Num(ast.I32), span)
	case ast.DataPassive:
		return nil
	default:
		return nil
	}
}

func checkImportDesc(c Context, desc ast.ImportDesc, span ast.Span) *Diagnostic {
	switch t := desc.(type) {
	case ast.ImportFunc:
		_, derr := c.Type(t.Type, span)
		return derr
	case ast.ImportTable:
		return wfTableType(c, t.Type, span)
	case ast.ImportMemory:
		return wfMemoryType(t.Type, span)
	case ast.ImportGlobal:
		return wfGlobalType(c, t.Type, span)
	default:
		return nil
	}
}

func checkStart(c Context, idx uint32, span ast.Span) *Diagnostic {
	ft, derr := c.FuncType(idx, span)
	if derr != nil {
		return derr
	}
	if len(ft.Ins) != 0 || len(ft.Out) != 0 {
		d := errStartSignature(span)
		return &d
	}
	return nil
}

func checkExportDesc(c Context, desc ast.ExportDesc, span ast.Span) *Diagnostic {
	switch t := desc.(type) {
	case ast.ExportFunc:
		if int(t.Index) >= len(c.Funcs) {
			d := errUnknown("func", t.Index, span)
			return &d
		}
	case ast.ExportTable:
		if int(t.Index) >= len(c.Tables) {
			d := errUnknown("table", t.Index, span)
			return &d
		}
	case ast.ExportMemory:
		if int(t.Index) >= len(c.Memories) {
			d := errUnknown("memory", t.Index, span)
			return &d
		}
	case ast.ExportGlobal:
		if int(t.Index) >= len(c.Globals) {
			d := errUnknown("global", t.Index, span)
			return &d
		}
	}
	return nil
}
