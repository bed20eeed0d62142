package validate

import "github.com/stackwasm/wasmvalidate/ast"

// checkConstInstr restricts a constant expression to the four forms spec
// §C7 allows: null/func references, numeric literals, and reads of an
// already-defined immutable global.
func checkConstInstr(c Context, instr ast.Instr, span ast.Span) *Diagnostic {
	switch v := instr.(type) {
	case ast.RefNull, ast.Const:
		return nil
	case ast.RefFuncInstr:
		if int(v.Func) >= len(c.Funcs) {
			d := errUnknown("func", v.Func, span)
			return &d
		}
		return nil
	case ast.GlobalGet:
		gt, derr := c.Global(v.Global, span)
		if derr != nil {
			return derr
		}
		if gt.Mut == ast.Mutable {
			d := errConstantRequired(span)
			return &d
		}
		return nil
	default:
		d := errConstantRequired(span)
		return &d
	}
}

// checkConst validates e as a constant expression: every instruction must
// be one of the allowed forms, and it must leave exactly one value of
// type ts on the stack.
func checkConst(c Context, e ast.Expr, ts ast.ValueType, span ast.Span) *Diagnostic {
	for _, p := range e {
		if d := checkConstInstr(c, p.It, p.At); d != nil {
			return d
		}
	}
	final, derr := checkSeq(c, e, closed())
	if derr != nil {
		return derr
	}
	return checkExit(c, []ast.ValueType{ts}, final, span)
}
