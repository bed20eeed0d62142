package free

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stackwasm/wasmvalidate/ast"
)

func constRefFunc(idx uint32) ast.Expr {
	return ast.Expr{ast.At[ast.Instr](ast.RefFuncInstr{Func: idx}, ast.Span{})}
}

func TestModuleUnionsAcrossAllSegmentModes(t *testing.T) {
	elems := []ast.Phrase[ast.ElemSegment]{
		ast.At(ast.ElemSegment{
			Mode: ast.ElemDeclarative{},
			Init: []ast.Expr{constRefFunc(1)},
		}, ast.Span{}),
		ast.At(ast.ElemSegment{
			Mode: ast.ElemActive{Table: 0},
			Init: []ast.Expr{constRefFunc(2), constRefFunc(3)},
		}, ast.Span{}),
		ast.At(ast.ElemSegment{
			Mode: ast.ElemPassive{},
			Init: []ast.Expr{constRefFunc(1)},
		}, ast.Span{}),
	}

	refs := Module(elems)
	assert.True(t, refs.Has(1))
	assert.True(t, refs.Has(2))
	assert.True(t, refs.Has(3))
	assert.False(t, refs.Has(4))
}

func TestModuleRecursesIntoNestedControlFlow(t *testing.T) {
	nested := ast.Expr{
		ast.At[ast.Instr](ast.Block{Body: ast.Expr{
			ast.At[ast.Instr](ast.If{
				Then: constRefFunc(9),
				Else: ast.Expr{},
			}, ast.Span{}),
		}}, ast.Span{}),
	}
	elems := []ast.Phrase[ast.ElemSegment]{
		ast.At(ast.ElemSegment{Mode: ast.ElemPassive{}, Init: []ast.Expr{nested}}, ast.Span{}),
	}
	refs := Module(elems)
	assert.True(t, refs.Has(9))
}

func TestModuleEmpty(t *testing.T) {
	refs := Module(nil)
	assert.Empty(t, refs)
}
