package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackwasm/wasmvalidate/ast"
)

func instr(i ast.Instr) ast.Phrase[ast.Instr] {
	return ast.At[ast.Instr](i, ast.Span{})
}

func expr(is ...ast.Instr) ast.Expr {
	out := make(ast.Expr, len(is))
	for i, v := range is {
		out[i] = instr(v)
	}
	return out
}

func phrase[T any](v T) ast.Phrase[T] {
	return ast.At(v, ast.Span{})
}

func funcType(ins, out []ast.ValueType) ast.DefType {
	return ast.FuncDefType{Type: ast.FuncType{Ins: ins, Out: out}}
}

func TestModuleAcceptsIdentityFunction(t *testing.T) {
	m := &ast.Module{
		Types: []ast.Phrase[ast.DefType]{phrase(funcType([]ast.ValueType{ast.Num(ast.I32)}, []ast.ValueType{ast.Num(ast.I32)}))},
		Funcs: []ast.Phrase[ast.Func]{phrase(ast.Func{
			Type: 0,
			Body: expr(ast.LocalGet{Local: 0}),
		})},
		Exports: []ast.Phrase[ast.Export]{phrase(ast.Export{Name: "id", Desc: ast.ExportFunc{Index: 0}})},
	}
	assert.NoError(t, Module(m, Profile{}))
}

func TestModuleRejectsStackUnderflow(t *testing.T) {
	m := &ast.Module{
		Types: []ast.Phrase[ast.DefType]{phrase(funcType(nil, []ast.ValueType{ast.Num(ast.I32)}))},
		Funcs: []ast.Phrase[ast.Func]{phrase(ast.Func{Type: 0, Body: expr()})},
	}
	err := Module(m, Profile{})
	require.Error(t, err)
	var fe FuncError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Diagnostic.Message, "type mismatch")
}

func TestModuleAcceptsUnreachableAsPolymorphic(t *testing.T) {
	m := &ast.Module{
		Types: []ast.Phrase[ast.DefType]{phrase(funcType(nil, []ast.ValueType{ast.Num(ast.I32)}))},
		Funcs: []ast.Phrase[ast.Func]{phrase(ast.Func{Type: 0, Body: expr(ast.Unreachable{})})},
	}
	assert.NoError(t, Module(m, Profile{}))
}

func TestModuleRejectsIncompatibleBrTableArms(t *testing.T) {
	inner := ast.Block{Type: nil, Body: expr(ast.BrTable{Targets: []uint32{1}, Default: 0})}
	outer := ast.Block{Type: ast.BlockType{ast.Num(ast.I32)}, Body: expr(inner)}
	m := &ast.Module{
		Types: []ast.Phrase[ast.DefType]{phrase(funcType(nil, nil))},
		Funcs: []ast.Phrase[ast.Func]{phrase(ast.Func{Type: 0, Body: expr(outer, ast.Unreachable{})})},
	}
	err := Module(m, Profile{})
	require.Error(t, err)
	var fe FuncError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Diagnostic.Message, "br_table")
}

func TestModuleRejectsUndeclaredFuncRef(t *testing.T) {
	m := &ast.Module{
		Types: []ast.Phrase[ast.DefType]{
			phrase(funcType(nil, nil)),
			phrase(funcType(nil, []ast.ValueType{ast.Ref(ast.RefType{Kind: ast.RefDef, Null: ast.NonNullable, TypeIdx: 0})})),
		},
		Funcs: []ast.Phrase[ast.Func]{
			phrase(ast.Func{Type: 0, Body: expr()}),
			phrase(ast.Func{Type: 1, Body: expr(ast.RefFuncInstr{Func: 0})}),
		},
	}
	err := Module(m, Profile{})
	require.Error(t, err)
	var fe FuncError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Diagnostic.Message, "undeclared function reference")
}

func TestModuleRejectsMutableGlobalInInitializer(t *testing.T) {
	m := &ast.Module{
		Globals: []ast.Phrase[ast.Global]{
			phrase(ast.Global{
				Type: ast.GlobalType{Type: ast.Num(ast.I32), Mut: ast.Mutable},
				Init: expr(ast.Const{Type: ast.I32, Bits: 0}),
			}),
			phrase(ast.Global{
				Type: ast.GlobalType{Type: ast.Num(ast.I32), Mut: ast.Immutable},
				Init: expr(ast.GlobalGet{Global: 0}),
			}),
		},
	}
	err := Module(m, Profile{})
	require.Error(t, err)
	var d Diagnostic
	require.ErrorAs(t, err, &d)
	assert.Contains(t, d.Message, "constant expression required")
}

func TestModuleRejectsDuplicateExportNames(t *testing.T) {
	m := &ast.Module{
		Types: []ast.Phrase[ast.DefType]{phrase(funcType(nil, nil))},
		Funcs: []ast.Phrase[ast.Func]{phrase(ast.Func{Type: 0, Body: expr()})},
		Exports: []ast.Phrase[ast.Export]{
			phrase(ast.Export{Name: "foo", Desc: ast.ExportFunc{Index: 0}}),
			phrase(ast.Export{Name: "foo", Desc: ast.ExportFunc{Index: 0}}),
		},
	}
	err := Module(m, Profile{})
	require.Error(t, err)
	var d Diagnostic
	require.ErrorAs(t, err, &d)
	assert.Contains(t, d.Message, "duplicate export")
}

func TestMultipleMemoriesRejectedByDefault(t *testing.T) {
	m := &ast.Module{
		Memories: []ast.Phrase[ast.Memory]{
			phrase(ast.Memory{Type: ast.MemoryType{Limits: ast.Limits{Min: 1}}}),
			phrase(ast.Memory{Type: ast.MemoryType{Limits: ast.Limits{Min: 1}}}),
		},
	}
	err := Module(m, Profile{})
	require.Error(t, err)

	assert.NoError(t, Module(m, Profile{AllowMultipleMemories: true}))
}
