package validate

import (
	"github.com/stackwasm/wasmvalidate/ast"
	"github.com/stackwasm/wasmvalidate/match"
)

// topOf returns the value type at the top of s without consuming it. It is
// only ever Bot when s is genuinely Open and its known tail is exhausted —
// a Closed stack that runs dry is a real underflow, reported here rather
// than silently treated as a wildcard.
func topOf(s Stack, span ast.Span) (ast.ValueType, *Diagnostic) {
	if len(s.Tail) > 0 {
		return s.Tail[len(s.Tail)-1], nil
	}
	if s.Poly == Open {
		return ast.Bot, nil
	}
	d := errTypeMismatch(span, "operator requires a value but stack has "+stackString(s))
	return ast.ValueType{}, &d
}

// popAny consumes exactly one value of unconstrained type.
func popAny(s Stack, span ast.Span) (Stack, *Diagnostic) {
	if len(s.Tail) > 0 {
		return Stack{Poly: s.Poly, Tail: s.Tail[:len(s.Tail)-1]}, nil
	}
	if s.Poly == Open {
		return Stack{Poly: Open}, nil
	}
	d := errTypeMismatch(span, "operator requires a value but stack has "+stackString(s))
	return s, &d
}

// popAnyRef consumes one value that must be some reference type, returning
// the reference descriptor popped (RefAny stands for "unconstrained" when
// the value came from below an Open tail rather than a concrete slot).
func popAnyRef(s Stack, span ast.Span) (Stack, ast.RefType, *Diagnostic) {
	top, derr := topOf(s, span)
	if derr != nil {
		return s, ast.RefType{}, derr
	}
	if top.IsBot() {
		return Stack{Poly: Open}, ast.RefType{Kind: ast.RefAny}, nil
	}
	if top.Kind != ast.ValRef {
		d := errTypeMismatch(span, "operator requires a reference type but stack has "+stackString(s))
		return s, ast.RefType{}, &d
	}
	return Stack{Poly: s.Poly, Tail: s.Tail[:len(s.Tail)-1]}, top.Ref, nil
}

var convertSource = map[ast.ConvertOp]ast.NumType{
	ast.CvtWrapI64:         ast.I64,
	ast.CvtExtendI32S:      ast.I32,
	ast.CvtExtendI32U:      ast.I32,
	ast.CvtTruncF32S:       ast.F32,
	ast.CvtTruncF32U:       ast.F32,
	ast.CvtTruncF64S:       ast.F64,
	ast.CvtTruncF64U:       ast.F64,
	ast.CvtConvertI32S:     ast.I32,
	ast.CvtConvertI32U:     ast.I32,
	ast.CvtConvertI64S:     ast.I64,
	ast.CvtConvertI64U:     ast.I64,
	ast.CvtDemoteF64:       ast.F64,
	ast.CvtPromoteF32:      ast.F32,
	ast.CvtReinterpretI32:  ast.I32,
	ast.CvtReinterpretI64:  ast.I64,
	ast.CvtReinterpretF32:  ast.F32,
	ast.CvtReinterpretF64:  ast.F64,
}

func accessWidth(t ast.NumType, p ast.PackSize) uint32 {
	switch p {
	case ast.Pack8:
		return 1
	case ast.Pack16:
		return 2
	case ast.Pack32:
		return 4
	default:
		if t == ast.I32 || t == ast.F32 {
			return 4
		}
		return 8
	}
}

func naturalAlign(width uint32) uint32 {
	switch width {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	default:
		return 3
	}
}

// checkInstr applies a single instruction's contract to s, dispatching
// control-flow forms recursively through checkSeq/checkBlockBody. This is
// the instruction checker (spec §4.2): every case below either calls apply
// directly with a fixed ins/outs contract, or — for the stack-polymorphic
// and reference-peeking forms — resolves its contract from the stack or
// context first.
func checkInstr(c Context, instr ast.Instr, s Stack, span ast.Span) (Stack, *Diagnostic) {
	types := c.match()

	switch v := instr.(type) {

	case ast.Unreachable:
		return apply(types, s, nil, open(), span)

	case ast.Nop:
		return s, nil

	case ast.Block:
		if d := checkBlockBody(c, v.Type, v.Type, v.Body, span); d != nil {
			return s, d
		}
		return apply(types, s, nil, closed(v.Type...), span)

	case ast.Loop:
		if d := checkBlockBody(c, nil, v.Type, v.Body, span); d != nil {
			return s, d
		}
		return apply(types, s, nil, closed(v.Type...), span)

	case ast.If:
		if d := checkBlockBody(c, v.Type, v.Type, v.Then, span); d != nil {
			return s, d
		}
		if d := checkBlockBody(c, v.Type, v.Type, v.Else, span); d != nil {
			return s, d
		}
		return apply(types, s, []ast.ValueType{ast.Num(ast.I32)}, closed(v.Type...), span)

	case ast.Let:
		if d := checkArity(c, v.Type, span); d != nil {
			return s, d
		}
		inner := c.WithLabel(v.Type).WithLocals(v.Locals)
		final, derr := checkSeq(inner, v.Body, closed())
		if derr != nil {
			return s, derr
		}
		if d := checkExit(c, v.Type, final, span); d != nil {
			return s, d
		}
		return apply(types, s, v.Locals, closed(v.Type...), span)

	case ast.Br:
		ts, derr := c.Label(v.Label, span)
		if derr != nil {
			return s, derr
		}
		return apply(types, s, ts, open(), span)

	case ast.BrIf:
		ts, derr := c.Label(v.Label, span)
		if derr != nil {
			return s, derr
		}
		ins := append(append([]ast.ValueType{}, ts...), ast.Num(ast.I32))
		return apply(types, s, ins, closed(ts...), span)

	case ast.BrTable:
		defTs, derr := c.Label(v.Default, span)
		if derr != nil {
			return s, derr
		}
		// ts is formed by peeking the actual stack, not by trusting any one
		// target's label: the top slot is the i32 selector (skipped), and
		// the n == |defTs| slots below it are ts, bottom-most first.
		n := len(defTs)
		ts := make([]ast.ValueType, n)
		for i := 0; i < n; i++ {
			ts[i] = peek(n-i, s)
		}
		subsumes := func(lbl []ast.ValueType) *Diagnostic {
			if !match.StackType(types, ts, lbl) {
				d := errTypeMismatch(span, "br_table target types do not match")
				return &d
			}
			return nil
		}
		if d := subsumes(defTs); d != nil {
			return s, d
		}
		for _, t := range v.Targets {
			lbl, derr := c.Label(t, span)
			if derr != nil {
				return s, derr
			}
			if d := subsumes(lbl); d != nil {
				return s, d
			}
		}
		ins := append(append([]ast.ValueType{}, ts...), ast.Num(ast.I32))
		return apply(types, s, ins, open(), span)

	case ast.BrOnNull:
		residual, rt, derr := popAnyRef(s, span)
		if derr != nil {
			return s, derr
		}
		ts, derr := c.Label(v.Label, span)
		if derr != nil {
			return s, derr
		}
		if _, derr := pop(types, ts, residual, span); derr != nil {
			return s, derr
		}
		nonNull := rt
		nonNull.Null = ast.NonNullable
		return push(residual, closed(ast.Ref(nonNull))), nil

	case ast.Return:
		return apply(types, s, c.Results, open(), span)

	case ast.Call:
		ft, derr := c.FuncType(v.Func, span)
		if derr != nil {
			return s, derr
		}
		return apply(types, s, ft.Ins, closed(ft.Out...), span)

	case ast.CallIndirect:
		tt, derr := c.Table(v.Table, span)
		if derr != nil {
			return s, derr
		}
		if !match.RefType(types, tt.Elem, ast.RefType{Kind: ast.RefFunc}) {
			d := errTypeMismatch(span, "call_indirect requires a table of funcref")
			return s, &d
		}
		ft, derr := c.TypeFuncAt(v.Type, span)
		if derr != nil {
			return s, derr
		}
		ins := append(append([]ast.ValueType{}, ft.Ins...), ast.Num(ast.I32))
		return apply(types, s, ins, closed(ft.Out...), span)

	case ast.CallRef:
		residual, rt, derr := popAnyRef(s, span)
		if derr != nil {
			return s, derr
		}
		if rt.Kind == ast.RefAny {
			return residual, nil
		}
		if rt.Kind != ast.RefDef {
			d := errTypeMismatch(span, "call_ref requires a typed function reference")
			return s, &d
		}
		ft, derr := c.TypeFuncAt(rt.TypeIdx, span)
		if derr != nil {
			return s, derr
		}
		return apply(types, residual, ft.Ins, closed(ft.Out...), span)

	case ast.ReturnCallRef:
		residual, rt, derr := popAnyRef(s, span)
		if derr != nil {
			return s, derr
		}
		if rt.Kind == ast.RefAny {
			return Stack{Poly: Open}, nil
		}
		if rt.Kind != ast.RefDef {
			d := errTypeMismatch(span, "return_call_ref requires a typed function reference")
			return s, &d
		}
		ft, derr := c.TypeFuncAt(rt.TypeIdx, span)
		if derr != nil {
			return s, derr
		}
		if !match.StackType(types, ft.Out, c.Results) {
			d := errTypeMismatch(span, "return_call_ref target result type does not match the enclosing function")
			return s, &d
		}
		return apply(types, residual, ft.Ins, open(), span)

	case ast.FuncBind:
		residual, rt, derr := popAnyRef(s, span)
		if derr != nil {
			return s, derr
		}
		if rt.Kind == ast.RefAny {
			return push(residual, closed(ast.Ref(ast.RefType{Kind: ast.RefDef, Null: ast.NonNullable, TypeIdx: v.Type}))), nil
		}
		if rt.Kind != ast.RefDef {
			d := errTypeMismatch(span, "func.bind requires a typed function reference")
			return s, &d
		}
		srcFt, derr := c.TypeFuncAt(rt.TypeIdx, span)
		if derr != nil {
			return s, derr
		}
		dstFt, derr := c.TypeFuncAt(v.Type, span)
		if derr != nil {
			return s, derr
		}
		bound := len(srcFt.Ins) - len(dstFt.Ins)
		if bound < 0 || !match.StackType(types, srcFt.Ins[bound:], dstFt.Ins) || !match.StackType(types, srcFt.Out, dstFt.Out) {
			d := errTypeMismatch(span, "func.bind target type is not a valid partial application")
			return s, &d
		}
		outs := closed(ast.Ref(ast.RefType{Kind: ast.RefDef, Null: ast.NonNullable, TypeIdx: v.Type}))
		return apply(types, residual, srcFt.Ins[:bound], outs, span)

	case ast.LocalGet:
		t, derr := c.Local(v.Local, span)
		if derr != nil {
			return s, derr
		}
		return apply(types, s, nil, closed(t), span)

	case ast.LocalSet:
		t, derr := c.Local(v.Local, span)
		if derr != nil {
			return s, derr
		}
		return apply(types, s, []ast.ValueType{t}, closed(), span)

	case ast.LocalTee:
		t, derr := c.Local(v.Local, span)
		if derr != nil {
			return s, derr
		}
		return apply(types, s, []ast.ValueType{t}, closed(t), span)

	case ast.GlobalGet:
		gt, derr := c.Global(v.Global, span)
		if derr != nil {
			return s, derr
		}
		return apply(types, s, nil, closed(gt.Type), span)

	case ast.GlobalSet:
		gt, derr := c.Global(v.Global, span)
		if derr != nil {
			return s, derr
		}
		if gt.Mut == ast.Immutable {
			d := errGlobalImmutable(span)
			return s, &d
		}
		return apply(types, s, []ast.ValueType{gt.Type}, closed(), span)

	case ast.TableGet:
		tt, derr := c.Table(v.Table, span)
		if derr != nil {
			return s, derr
		}
		return apply(types, s, []ast.ValueType{ast.Num(ast.I32)}, closed(ast.Ref(tt.Elem)), span)

	case ast.TableSet:
		tt, derr := c.Table(v.Table, span)
		if derr != nil {
			return s, derr
		}
		return apply(types, s, []ast.ValueType{ast.Num(ast.I32), ast.Ref(tt.Elem)}, closed(), span)

	case ast.TableSize:
		if _, derr := c.Table(v.Table, span); derr != nil {
			return s, derr
		}
		return apply(types, s, nil, closed(ast.Num(ast.I32)), span)

	case ast.TableGrow:
		tt, derr := c.Table(v.Table, span)
		if derr != nil {
			return s, derr
		}
		ins := []ast.ValueType{ast.Ref(tt.Elem), ast.Num(ast.I32)}
		return apply(types, s, ins, closed(ast.Num(ast.I32)), span)

	case ast.TableFill:
		tt, derr := c.Table(v.Table, span)
		if derr != nil {
			return s, derr
		}
		ins := []ast.ValueType{ast.Num(ast.I32), ast.Ref(tt.Elem), ast.Num(ast.I32)}
		return apply(types, s, ins, closed(), span)

	case ast.TableCopy:
		dst, derr := c.Table(v.Dst, span)
		if derr != nil {
			return s, derr
		}
		src, derr := c.Table(v.Src, span)
		if derr != nil {
			return s, derr
		}
		if !match.RefType(types, src.Elem, dst.Elem) {
			d := errTypeMismatch(span, "table.copy source element type is not compatible with destination")
			return s, &d
		}
		ins := []ast.ValueType{ast.Num(ast.I32), ast.Num(ast.I32), ast.Num(ast.I32)}
		return apply(types, s, ins, closed(), span)

	case ast.TableInit:
		tt, derr := c.Table(v.Table, span)
		if derr != nil {
			return s, derr
		}
		et, derr := c.Elem(v.Elem, span)
		if derr != nil {
			return s, derr
		}
		if !match.RefType(types, et, tt.Elem) {
			d := errTypeMismatch(span, "table.init element type is not compatible with destination table")
			return s, &d
		}
		ins := []ast.ValueType{ast.Num(ast.I32), ast.Num(ast.I32), ast.Num(ast.I32)}
		return apply(types, s, ins, closed(), span)

	case ast.ElemDrop:
		if _, derr := c.Elem(v.Elem, span); derr != nil {
			return s, derr
		}
		return s, nil

	case ast.Load:
		if _, derr := c.Memory(0, span); derr != nil {
			return s, derr
		}
		if v.Pack == ast.Pack32 && v.Type == ast.I32 {
			d := errMemorySizeTooBig(span)
			return s, &d
		}
		width := accessWidth(v.Type, v.Pack)
		if v.Memarg.Align > naturalAlign(width) {
			d := errAlignment(span)
			return s, &d
		}
		return apply(types, s, []ast.ValueType{ast.Num(ast.I32)}, closed(ast.Num(v.Type)), span)

	case ast.Store:
		if _, derr := c.Memory(0, span); derr != nil {
			return s, derr
		}
		if v.Pack == ast.Pack32 && v.Type == ast.I32 {
			d := errMemorySizeTooBig(span)
			return s, &d
		}
		width := accessWidth(v.Type, v.Pack)
		if v.Memarg.Align > naturalAlign(width) {
			d := errAlignment(span)
			return s, &d
		}
		ins := []ast.ValueType{ast.Num(ast.I32), ast.Num(v.Type)}
		return apply(types, s, ins, closed(), span)

	case ast.MemorySize:
		if _, derr := c.Memory(0, span); derr != nil {
			return s, derr
		}
		return apply(types, s, nil, closed(ast.Num(ast.I32)), span)

	case ast.MemoryGrow:
		if _, derr := c.Memory(0, span); derr != nil {
			return s, derr
		}
		return apply(types, s, []ast.ValueType{ast.Num(ast.I32)}, closed(ast.Num(ast.I32)), span)

	case ast.MemoryFill:
		if _, derr := c.Memory(0, span); derr != nil {
			return s, derr
		}
		ins := []ast.ValueType{ast.Num(ast.I32), ast.Num(ast.I32), ast.Num(ast.I32)}
		return apply(types, s, ins, closed(), span)

	case ast.MemoryCopy:
		if _, derr := c.Memory(0, span); derr != nil {
			return s, derr
		}
		ins := []ast.ValueType{ast.Num(ast.I32), ast.Num(ast.I32), ast.Num(ast.I32)}
		return apply(types, s, ins, closed(), span)

	case ast.MemoryInit:
		if _, derr := c.Memory(0, span); derr != nil {
			return s, derr
		}
		if derr := c.Data(v.Data, span); derr != nil {
			return s, derr
		}
		ins := []ast.ValueType{ast.Num(ast.I32), ast.Num(ast.I32), ast.Num(ast.I32)}
		return apply(types, s, ins, closed(), span)

	case ast.DataDrop:
		if derr := c.Data(v.Data, span); derr != nil {
			return s, derr
		}
		return s, nil

	case ast.RefNull:
		t := v.Type
		t.Null = ast.Nullable
		return apply(types, s, nil, closed(ast.Ref(t)), span)

	case ast.RefIsNull:
		residual, _, derr := popAnyRef(s, span)
		if derr != nil {
			return s, derr
		}
		return push(residual, closed(ast.Num(ast.I32))), nil

	case ast.RefAsNonNull:
		residual, rt, derr := popAnyRef(s, span)
		if derr != nil {
			return s, derr
		}
		nonNull := rt
		nonNull.Null = ast.NonNullable
		return push(residual, closed(ast.Ref(nonNull))), nil

	case ast.RefFuncInstr:
		if int(v.Func) >= len(c.Funcs) {
			d := errUnknown("func", v.Func, span)
			return s, &d
		}
		if !c.Refs.Has(v.Func) {
			d := errUndeclaredFuncRef(v.Func, span)
			return s, &d
		}
		typeIdx := c.Funcs[v.Func]
		outs := closed(ast.Ref(ast.RefType{Kind: ast.RefDef, Null: ast.NonNullable, TypeIdx: typeIdx}))
		return apply(types, s, nil, outs, span)

	case ast.Const:
		return apply(types, s, nil, closed(ast.Num(v.Type)), span)

	case ast.Test:
		return apply(types, s, []ast.ValueType{ast.Num(v.Type)}, closed(ast.Num(ast.I32)), span)

	case ast.Compare:
		ins := []ast.ValueType{ast.Num(v.Type), ast.Num(v.Type)}
		return apply(types, s, ins, closed(ast.Num(ast.I32)), span)

	case ast.Unary:
		return apply(types, s, []ast.ValueType{ast.Num(v.Type)}, closed(ast.Num(v.Type)), span)

	case ast.Binary:
		ins := []ast.ValueType{ast.Num(v.Type), ast.Num(v.Type)}
		return apply(types, s, ins, closed(ast.Num(v.Type)), span)

	case ast.Convert:
		src, ok := convertSource[v.Op]
		if !ok {
			d := errInvalidConversion(span)
			return s, &d
		}
		return apply(types, s, []ast.ValueType{ast.Num(src)}, closed(ast.Num(v.To)), span)

	case ast.Drop:
		residual, derr := popAny(s, span)
		if derr != nil {
			return s, derr
		}
		return residual, nil

	case ast.Select:
		if v.Type != nil {
			t := *v.Type
			ins := []ast.ValueType{t, t, ast.Num(ast.I32)}
			return apply(types, s, ins, closed(t), span)
		}
		afterCond, derr := pop(types, []ast.ValueType{ast.Num(ast.I32)}, s, span)
		if derr != nil {
			return s, derr
		}
		top, derr := topOf(afterCond, span)
		if derr != nil {
			return s, derr
		}
		if top.IsBot() {
			return Stack{Poly: Open}, nil
		}
		if top.Kind != ast.ValNum {
			d := errTypeMismatch(span, "select without an explicit type requires numeric operands")
			return s, &d
		}
		ins := []ast.ValueType{top, top}
		return apply(types, afterCond, ins, closed(top), span)

	default:
		d := errTypeMismatch(span, "unrecognized instruction")
		return s, &d
	}
}
