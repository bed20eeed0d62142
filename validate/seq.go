package validate

import "github.com/stackwasm/wasmvalidate/ast"

// checkSeq threads the inferred stack through es in order, stopping at the
// first instruction that fails.
func checkSeq(c Context, es ast.Expr, s Stack) (Stack, *Diagnostic) {
	for _, p := range es {
		ns, derr := checkInstr(c, p.It, s, p.At)
		if derr != nil {
			return s, derr
		}
		s = ns
	}
	return s, nil
}

// checkExit verifies that the stack left behind by a block body is exactly
// ts: reusing pop's widening-under-Open behavior means unreachable code may
// leave a shorter, Open stack and still satisfy a block with a declared
// result type.
func checkExit(c Context, ts []ast.ValueType, final Stack, span ast.Span) *Diagnostic {
	residual, derr := pop(c.match(), ts, final, span)
	if derr != nil {
		return derr
	}
	if len(residual.Tail) != 0 {
		d := errTypeMismatch(span, "block exit requires exactly "+valueTypesString(ts)+" but stack has "+stackString(final))
		return &d
	}
	return nil
}

// checkBlockBody runs body from an empty closed stack under the label
// environment lbl, then verifies it leaves exactly ts behind.
func checkBlockBody(c Context, lbl, ts []ast.ValueType, body ast.Expr, span ast.Span) *Diagnostic {
	if d := checkArity(c, ts, span); d != nil {
		return d
	}
	inner := c.WithLabel(lbl)
	final, derr := checkSeq(inner, body, closed())
	if derr != nil {
		return derr
	}
	return checkExit(c, ts, final, span)
}

func checkArity(c Context, ts []ast.ValueType, span ast.Span) *Diagnostic {
	if !c.AllowMultiValueBlocks && len(ts) > 1 {
		d := errArity(len(ts), span)
		return &d
	}
	return nil
}
