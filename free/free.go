// Package free collects the declared function references that occur
// syntactically inside a piece of syntax — the only free-variable query
// the validator needs: gating ref.func on the set of function indices
// mentioned in the module's element segments.
package free

import "github.com/stackwasm/wasmvalidate/ast"

// Set is an unordered collection of function indices.
type Set map[uint32]struct{}

func NewSet(ids ...uint32) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Has(id uint32) bool {
	_, ok := s[id]
	return ok
}

func (s Set) union(other Set) Set {
	if len(other) == 0 {
		return s
	}
	out := make(Set, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Vars is the record of free variables found in some syntax; Funcs is the
// only field this profile needs.
type Vars struct {
	Funcs Set
}

func (v Vars) union(other Vars) Vars {
	return Vars{Funcs: v.Funcs.union(other.Funcs)}
}

// List folds project across xs and unions the results — the generic
// free-variable combinator every syntactic form reduces to.
func List[T any](project func(T) Vars, xs []T) Vars {
	var acc Vars
	for _, x := range xs {
		acc = acc.union(project(x))
	}
	return acc
}

// Instr computes the free function references in a single instruction,
// recursing into nested control-flow bodies.
func Instr(i ast.Instr) Vars {
	switch v := i.(type) {
	case ast.RefFuncInstr:
		return Vars{Funcs: NewSet(v.Func)}
	case ast.Block:
		return Expr(v.Body)
	case ast.Loop:
		return Expr(v.Body)
	case ast.If:
		return Expr(v.Then).union(Expr(v.Else))
	case ast.Let:
		return Expr(v.Body)
	default:
		return Vars{}
	}
}

// Expr computes the free function references across an instruction
// sequence.
func Expr(es ast.Expr) Vars {
	return List(func(p ast.Phrase[ast.Instr]) Vars { return Instr(p.It) }, es)
}

// Module computes the module-wide declared reference set: the union of
// every element segment's initializer expressions, across all three
// segment modes identically (Declarative's whole purpose is to populate
// this set; Active and Passive segments contribute the same way).
func Module(elems []ast.Phrase[ast.ElemSegment]) Set {
	var acc Vars
	for _, e := range elems {
		for _, init := range e.It.Init {
			acc = acc.union(Expr(init))
		}
	}
	if acc.Funcs == nil {
		return Set{}
	}
	return acc.Funcs
}
