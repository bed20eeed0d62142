package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackwasm/wasmvalidate/ast"
	"github.com/stackwasm/wasmvalidate/match"
)

var noTypes = match.Types{}

func TestPopExactMatchReturnsResidual(t *testing.T) {
	s := closed(ast.Num(ast.I32), ast.Num(ast.I64))
	residual, derr := pop(noTypes, []ast.ValueType{ast.Num(ast.I64)}, s, ast.Span{})
	require.Nil(t, derr)
	assert.Equal(t, closed(ast.Num(ast.I32)), residual)
}

func TestPopTypeMismatchOnClosedStack(t *testing.T) {
	s := closed(ast.Num(ast.I32))
	_, derr := pop(noTypes, []ast.ValueType{ast.Num(ast.I64)}, s, ast.Span{})
	require.NotNil(t, derr)
	assert.Contains(t, derr.Message, "type mismatch")
}

func TestPopUnderflowOnClosedStackIsAnError(t *testing.T) {
	s := closed()
	_, derr := pop(noTypes, []ast.ValueType{ast.Num(ast.I32)}, s, ast.Span{})
	require.NotNil(t, derr)
}

func TestPopUnderflowOnOpenStackWidensToOpen(t *testing.T) {
	s := open()
	residual, derr := pop(noTypes, []ast.ValueType{ast.Num(ast.I32), ast.Num(ast.I64)}, s, ast.Span{})
	require.Nil(t, derr)
	assert.Equal(t, Open, residual.Poly)
	assert.Empty(t, residual.Tail)
}

func TestPushClosedStaysClosedWhenBothOperandsClosed(t *testing.T) {
	result := push(closed(ast.Num(ast.I32)), closed(ast.Num(ast.I64)))
	assert.Equal(t, closed(ast.Num(ast.I32), ast.Num(ast.I64)), result)
}

func TestPushBecomesOpenWhenEitherOperandIsOpen(t *testing.T) {
	result := push(open(ast.Num(ast.I32)), closed(ast.Num(ast.I64)))
	assert.Equal(t, Open, result.Poly)
}

func TestPeekOutOfRangeReturnsBot(t *testing.T) {
	s := closed(ast.Num(ast.I32))
	assert.True(t, peek(5, s).IsBot())
}

func TestApplyChainsPopAndPush(t *testing.T) {
	s := closed(ast.Num(ast.I32), ast.Num(ast.I32))
	result, derr := apply(noTypes, s, []ast.ValueType{ast.Num(ast.I32), ast.Num(ast.I32)}, closed(ast.Num(ast.I32)), ast.Span{})
	require.Nil(t, derr)
	assert.Equal(t, closed(ast.Num(ast.I32)), result)
}
