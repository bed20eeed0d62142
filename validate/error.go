package validate

import (
	"fmt"

	"github.com/stackwasm/wasmvalidate/ast"
)

// Diagnostic is the sole output of a failed validation (spec §1, §7): a
// source span plus a message drawn from the stable taxonomy below. The
// teacher's per-category typed errors (InvalidTypeError, InvalidLabelError,
// ...) are collapsed into this one shape because the spec requires exactly
// one diagnostic with a canonical string, not a Go type switch.
type Diagnostic struct {
	Span    ast.Span
	Message string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Span, d.Message)
}

func diag(span ast.Span, format string, args ...any) Diagnostic {
	return Diagnostic{Span: span, Message: fmt.Sprintf(format, args...)}
}

// FuncError wraps a Diagnostic raised while checking a function body with
// the function's index in the function index space, mirroring the
// teacher's Error{Offset, Function, Err} — two functions can otherwise
// report diagnostics with identical spans relative to their own bodies.
type FuncError struct {
	Func       uint32
	Diagnostic Diagnostic
}

func (e FuncError) Error() string {
	return fmt.Sprintf("function %d: %s", e.Func, e.Diagnostic.Error())
}

func (e FuncError) Unwrap() error { return e.Diagnostic }

var categoryNames = map[string]string{
	"type": "type", "func": "function", "table": "table", "memory": "memory",
	"global": "global", "elem": "elem segment", "data": "data segment",
	"local": "local", "label": "label",
}

func errUnknown(category string, idx uint32, span ast.Span) Diagnostic {
	name, ok := categoryNames[category]
	if !ok {
		name = category
	}
	return diag(span, "unknown %s %d", name, idx)
}

func errUndeclaredFuncRef(idx uint32, span ast.Span) Diagnostic {
	return diag(span, "undeclared function reference %d", idx)
}

func errTypeMismatch(span ast.Span, detail string) Diagnostic {
	return diag(span, "type mismatch: %s", detail)
}

func arityWord(n int) string {
	if n > 1 {
		return "larger than 1"
	}
	return fmt.Sprintf("%d", n)
}

func errArity(n int, span ast.Span) Diagnostic {
	return diag(span, "invalid result arity, %s is not (yet) allowed", arityWord(n))
}

func errAlignment(span ast.Span) Diagnostic {
	return diag(span, "alignment must not be larger than natural")
}

func errMemorySizeTooBig(span ast.Span) Diagnostic {
	return diag(span, "memory size too big")
}

func errNonDefaultableLocal(span ast.Span) Diagnostic {
	return diag(span, "non-defaultable local type")
}

func errNonDefaultableElement(span ast.Span) Diagnostic {
	return diag(span, "non-defaultable element type")
}

func errLimitsMinMax(span ast.Span) Diagnostic {
	return diag(span, "size minimum must not be greater than maximum")
}

func errTableSizeRange(span ast.Span) Diagnostic {
	return diag(span, "table size must be at most 2^32")
}

func errMemorySizeRange(span ast.Span) Diagnostic {
	return diag(span, "memory size must be at most 65536 pages (4GiB)")
}

func errGlobalImmutable(span ast.Span) Diagnostic {
	return diag(span, "global is immutable")
}

func errConstantRequired(span ast.Span) Diagnostic {
	return diag(span, "constant expression required")
}

func errStartSignature(span ast.Span) Diagnostic {
	return diag(span, "start function must not have parameters or results")
}

func errDuplicateExport(span ast.Span) Diagnostic {
	return diag(span, "duplicate export name")
}

func errMultipleMemories(span ast.Span) Diagnostic {
	return diag(span, "multiple memories are not allowed (yet)")
}

func errInvalidConversion(span ast.Span) Diagnostic {
	return diag(span, "invalid conversion")
}
