// Package match decides subtyping and type-equivalence for the validator.
// It is consumed as a black box by the type checker (spec §6): the checker
// never inspects reference hierarchies itself, it only asks this package
// whether one type matches another.
package match

import "github.com/stackwasm/wasmvalidate/ast"

// Types is the variance context every match query is decided against: the
// module's type section, indexed the same way ast.RefType.TypeIdx is.
type Types []ast.DefType

func (t Types) funcDefAt(idx uint32) (ast.FuncType, bool) {
	if int(idx) >= len(t) {
		return ast.FuncType{}, false
	}
	fd, ok := t[idx].(ast.FuncDefType)
	if !ok {
		return ast.FuncType{}, false
	}
	return fd.Type, true
}

// ValueType reports whether sub is a subtype of (matches) sup.
func ValueType(types Types, sub, sup ast.ValueType) bool {
	if sub.IsBot() {
		return true
	}
	if sub.Kind != sup.Kind {
		return false
	}
	switch sub.Kind {
	case ast.ValNum:
		return sub.Num == sup.Num
	case ast.ValRef:
		return RefType(types, sub.Ref, sup.Ref)
	default:
		return false
	}
}

// RefType reports whether sub is a subtype of sup under the reference
// hierarchy: Null <: Def(Nullable, _), Def(_, x) <: Def(Nullable, x),
// Def(_, x) <: Func when x resolves to a function type, everything <: Any,
// and Def-to-Def otherwise requires depth-equal function types.
func RefType(types Types, sub, sup ast.RefType) bool {
	if sup.Kind == ast.RefAny {
		return true
	}

	switch sub.Kind {
	case ast.RefNullRef:
		switch sup.Kind {
		case ast.RefNullRef:
			return true
		case ast.RefFunc:
			return true
		case ast.RefDef:
			return sup.Null == ast.Nullable
		default:
			return false
		}

	case ast.RefFunc:
		return sup.Kind == ast.RefFunc

	case ast.RefDef:
		switch sup.Kind {
		case ast.RefDef:
			if sub.Null == ast.Nullable && sup.Null == ast.NonNullable {
				return false
			}
			if sub.TypeIdx == sup.TypeIdx {
				return true
			}
			subFn, ok1 := types.funcDefAt(sub.TypeIdx)
			supFn, ok2 := types.funcDefAt(sup.TypeIdx)
			return ok1 && ok2 && FuncType(types, subFn, supFn)
		case ast.RefFunc:
			_, ok := types.funcDefAt(sub.TypeIdx)
			return ok
		default:
			return false
		}

	default:
		return false
	}
}

// FuncType reports whether sub matches sup: at this profile function
// types carry no width/depth variance, so this is structural equality of
// parameter and result lists (each compared with exact ValueType equality,
// not subtyping — a function type is not itself a subtype lattice here).
func FuncType(types Types, sub, sup ast.FuncType) bool {
	return valueTypeListEqual(sub.Ins, sup.Ins) && valueTypeListEqual(sub.Out, sup.Out)
}

func valueTypeListEqual(a, b []ast.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// StackType reports whether each type in subs matches the corresponding
// type in sups, pointwise, at equal length. Used to compare an inferred
// stack's tail against an expected shape once both have been reduced to
// plain slices (e.g. br_table arm compatibility).
func StackType(types Types, subs, sups []ast.ValueType) bool {
	if len(subs) != len(sups) {
		return false
	}
	for i := range subs {
		if !ValueType(types, subs[i], sups[i]) {
			return false
		}
	}
	return true
}
