package validate

import "github.com/stackwasm/wasmvalidate/ast"

// leU32 is the unsigned integer-comparison helper spec §6 calls out
// explicitly: the range check for table limits (min/max ≤
// 2^32) needs 64-bit unsigned comparison since 2^32 itself overflows a
// 32-bit value.
func leU32(a uint32, b uint64) bool { return uint64(a) <= b }

const (
	tableRange  uint64 = 1 << 32
	memoryRange uint64 = 1 << 16 // pages
)

// wfValueType checks that a value type is well-formed in c: a Def
// reference must name a type index that resolves.
func wfValueType(c Context, v ast.ValueType, span ast.Span) *Diagnostic {
	if v.Kind != ast.ValRef || v.Ref.Kind != ast.RefDef {
		return nil
	}
	_, derr := c.Type(v.Ref.TypeIdx, span)
	return derr
}

func wfValueTypes(c Context, vs []ast.ValueType, span ast.Span) *Diagnostic {
	for _, v := range vs {
		if d := wfValueType(c, v, span); d != nil {
			return d
		}
	}
	return nil
}

func wfRefType(c Context, r ast.RefType, span ast.Span) *Diagnostic {
	if r.Kind != ast.RefDef {
		return nil
	}
	_, derr := c.Type(r.TypeIdx, span)
	return derr
}

func wfFuncType(c Context, f ast.FuncType, span ast.Span) *Diagnostic {
	if d := wfValueTypes(c, f.Ins, span); d != nil {
		return d
	}
	return wfValueTypes(c, f.Out, span)
}

func wfLimits(l ast.Limits, rangeMax uint64, span ast.Span, overflow func(ast.Span) Diagnostic) *Diagnostic {
	if !leU32(l.Min, rangeMax) {
		d := overflow(span)
		return &d
	}
	if l.Max != nil {
		if !leU32(*l.Max, rangeMax) {
			d := overflow(span)
			return &d
		}
		if l.Min > *l.Max {
			d := errLimitsMinMax(span)
			return &d
		}
	}
	return nil
}

func wfTableType(c Context, t ast.TableType, span ast.Span) *Diagnostic {
	if d := wfLimits(t.Limits, tableRange, span, errTableSizeRange); d != nil {
		return d
	}
	return wfRefType(c, t.Elem, span)
}

func wfMemoryType(m ast.MemoryType, span ast.Span) *Diagnostic {
	return wfLimits(m.Limits, memoryRange, span, errMemorySizeRange)
}

func wfGlobalType(c Context, g ast.GlobalType, span ast.Span) *Diagnostic {
	return wfValueType(c, g.Type, span)
}

func wfDefType(c Context, d ast.DefType, span ast.Span) *Diagnostic {
	switch t := d.(type) {
	case ast.FuncDefType:
		return wfFuncType(c, t.Type, span)
	default:
		return nil
	}
}
