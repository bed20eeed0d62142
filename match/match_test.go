package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackwasm/wasmvalidate/ast"
)

func TestValueTypeBotMatchesAnything(t *testing.T) {
	types := Types{}
	assert.True(t, ValueType(types, ast.Bot, ast.Num(ast.I32)))
	assert.True(t, ValueType(types, ast.Bot, ast.Ref(ast.RefType{Kind: ast.RefFunc})))
}

func TestValueTypeNumRequiresExactMatch(t *testing.T) {
	types := Types{}
	assert.True(t, ValueType(types, ast.Num(ast.I32), ast.Num(ast.I32)))
	assert.False(t, ValueType(types, ast.Num(ast.I32), ast.Num(ast.I64)))
}

func TestRefTypeEverythingIsASubtypeOfAny(t *testing.T) {
	types := Types{}
	any := ast.RefType{Kind: ast.RefAny}
	assert.True(t, RefType(types, ast.RefType{Kind: ast.RefFunc}, any))
	assert.True(t, RefType(types, ast.RefType{Kind: ast.RefNullRef}, any))
}

func TestRefTypeNullRefSubtypesNullableDef(t *testing.T) {
	types := Types{}
	nullableDef := ast.RefType{Kind: ast.RefDef, Null: ast.Nullable, TypeIdx: 0}
	nonNullDef := ast.RefType{Kind: ast.RefDef, Null: ast.NonNullable, TypeIdx: 0}
	assert.True(t, RefType(types, ast.RefType{Kind: ast.RefNullRef}, nullableDef))
	assert.False(t, RefType(types, ast.RefType{Kind: ast.RefNullRef}, nonNullDef))
}

func TestRefTypeNonNullDefSubtypesNullableSameIndex(t *testing.T) {
	types := Types{}
	nonNull := ast.RefType{Kind: ast.RefDef, Null: ast.NonNullable, TypeIdx: 3}
	nullable := ast.RefType{Kind: ast.RefDef, Null: ast.Nullable, TypeIdx: 3}
	assert.True(t, RefType(types, nonNull, nullable))
	assert.False(t, RefType(types, nullable, nonNull))
}

func TestRefTypeDefSubtypesFuncWhenItResolvesToAFunction(t *testing.T) {
	types := Types{ast.FuncDefType{Type: ast.FuncType{Ins: []ast.ValueType{ast.Num(ast.I32)}}}}
	def := ast.RefType{Kind: ast.RefDef, Null: ast.NonNullable, TypeIdx: 0}
	assert.True(t, RefType(types, def, ast.RefType{Kind: ast.RefFunc}))
}

func TestRefTypeDefToDefRequiresEqualFunctionTypes(t *testing.T) {
	types := Types{
		ast.FuncDefType{Type: ast.FuncType{Ins: []ast.ValueType{ast.Num(ast.I32)}}},
		ast.FuncDefType{Type: ast.FuncType{Ins: []ast.ValueType{ast.Num(ast.I32)}}},
		ast.FuncDefType{Type: ast.FuncType{Ins: []ast.ValueType{ast.Num(ast.I64)}}},
	}
	a := ast.RefType{Kind: ast.RefDef, TypeIdx: 0}
	b := ast.RefType{Kind: ast.RefDef, TypeIdx: 1}
	c := ast.RefType{Kind: ast.RefDef, TypeIdx: 2}
	require.True(t, RefType(types, a, b))
	require.False(t, RefType(types, a, c))
}

func TestStackTypePointwise(t *testing.T) {
	types := Types{}
	a := []ast.ValueType{ast.Num(ast.I32), ast.Num(ast.F64)}
	b := []ast.ValueType{ast.Bot, ast.Num(ast.F64)}
	assert.True(t, StackType(types, b, a))
	assert.False(t, StackType(types, a, []ast.ValueType{ast.Num(ast.I32)}))
}
