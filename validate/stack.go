package validate

import (
	"strings"

	"github.com/stackwasm/wasmvalidate/ast"
	"github.com/stackwasm/wasmvalidate/match"
)

// Poly marks whether an arbitrary, unknown prefix of value types lies
// below a Stack's known Tail — the model of the operand stack beneath
// unreachable code (spec §4.1).
type Poly uint8

const (
	Closed Poly = iota
	Open
)

// Stack is the inferred stack: a polymorphism flag plus a finite ordered
// tail, nearest-to-top last (so push is append and pop trims the end).
type Stack struct {
	Poly Poly
	Tail []ast.ValueType
}

func closed(tail ...ast.ValueType) Stack { return Stack{Poly: Closed, Tail: tail} }
func open(tail ...ast.ValueType) Stack   { return Stack{Poly: Open, Tail: tail} }

func stackString(s Stack) string {
	parts := make([]string, len(s.Tail))
	for i, t := range s.Tail {
		parts[i] = t.String()
	}
	body := strings.Join(parts, ", ")
	if s.Poly == Open {
		if body == "" {
			return "[...]"
		}
		return "[..., " + body + "]"
	}
	return "[" + body + "]"
}

// pop matches the top len(expected) slots of s against expected, widening
// with Bot when s is Open and shorter than expected, per spec §4.1.
func pop(types match.Types, expected []ast.ValueType, s Stack, span ast.Span) (Stack, *Diagnostic) {
	m := len(expected)
	n := m
	if len(s.Tail) < m {
		n = len(s.Tail)
	}
	for i := 0; i < n; i++ {
		actual := s.Tail[len(s.Tail)-1-i]
		want := expected[m-1-i]
		if !match.ValueType(types, actual, want) {
			d := errTypeMismatch(span, "operator requires "+valueTypesString(expected)+" but stack has "+stackString(s))
			return s, &d
		}
	}
	if n < m {
		if s.Poly == Closed {
			d := errTypeMismatch(span, "operator requires "+valueTypesString(expected)+" but stack has "+stackString(s))
			return s, &d
		}
		// The missing m-n slots are satisfied by the unknown open prefix
		// (Bot matches anything); the entire visible tail was consumed.
		return Stack{Poly: Open}, nil
	}
	residual := append([]ast.ValueType{}, s.Tail[:len(s.Tail)-n]...)
	return Stack{Poly: s.Poly, Tail: residual}, nil
}

// push concatenates outs above residual; the combined stack is Open iff
// either operand is.
func push(residual, outs Stack) Stack {
	poly := Closed
	if residual.Poly == Open || outs.Poly == Open {
		poly = Open
	}
	tail := append(append([]ast.ValueType{}, residual.Tail...), outs.Tail...)
	return Stack{Poly: poly, Tail: tail}
}

// peek returns the i-th element from the top of s (0 = top), or Bot if
// out of range — always well-defined thanks to Open tails below
// unreachable code.
func peek(i int, s Stack) ast.ValueType {
	idx := len(s.Tail) - 1 - i
	if idx < 0 {
		return ast.Bot
	}
	return s.Tail[idx]
}

// apply is the shared shape of every instruction contract: pop ins (a
// plain, always-closed list of required operand types) off s, then push
// outs (a Stack, whose own Poly forces the whole result Open for
// stack-polymorphic instructions like Unreachable/Br/Return).
func apply(types match.Types, s Stack, ins []ast.ValueType, outs Stack, span ast.Span) (Stack, *Diagnostic) {
	residual, derr := pop(types, ins, s, span)
	if derr != nil {
		return s, derr
	}
	return push(residual, outs), nil
}

func valueTypesString(ts []ast.ValueType) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
