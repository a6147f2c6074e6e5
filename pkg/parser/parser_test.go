package parser

import (
	"testing"

	"github.com/kristofer/det/pkg/ast"
	"github.com/kristofer/det/pkg/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOK(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := New(src)
	program, err := p.Parse()
	require.NoError(t, err, "errors: %v", p.Errors())
	return program
}

func TestParse_IntLiteral(t *testing.T) {
	program := parseOK(t, "42;")
	require.Len(t, program.Statements, 1)

	stmt, ok := program.Statements[0].(*ast.ExprStmt)
	require.True(t, ok, "expected ExprStmt, got %T", program.Statements[0])

	lit, ok := stmt.Expr.(*ast.IntLiteral)
	require.True(t, ok, "expected IntLiteral, got %T", stmt.Expr)
	assert.EqualValues(t, 42, lit.Value)
}

func TestParse_StringConcat(t *testing.T) {
	program := parseOK(t, `"a" + "b";`)
	stmt := program.Statements[0].(*ast.ExprStmt)
	bin, ok := stmt.Expr.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, lexer.TokenPlus, bin.Operator)
}

func TestParse_VarDeclWithInitializer(t *testing.T) {
	program := parseOK(t, "var x = 10;")
	decl, ok := program.Statements[0].(*ast.VarDecl)
	require.True(t, ok)
	assert.Equal(t, "x", decl.Name)
	require.NotNil(t, decl.Initializer)
}

func TestParse_VarDeclWithoutInitializer(t *testing.T) {
	// Syntactically legal; the checker is the one that rejects a missing
	// initializer, not the parser.
	program := parseOK(t, "var x;")
	decl := program.Statements[0].(*ast.VarDecl)
	assert.Nil(t, decl.Initializer)
}

func TestParse_Assignment(t *testing.T) {
	program := parseOK(t, "x = 5;")
	stmt := program.Statements[0].(*ast.ExprStmt)
	assign, ok := stmt.Expr.(*ast.VarAssign)
	require.True(t, ok)
	assert.Equal(t, "x", assign.Name)
}

func TestParse_InvalidAssignmentTarget(t *testing.T) {
	p := New("1 = 2;")
	_, err := p.Parse()
	require.Error(t, err)
	require.NotEmpty(t, p.Errors())
	assert.Contains(t, p.Errors()[0], "Invalid assignment target")
}

func TestParse_CompoundAssignDesugarsToBinaryOp(t *testing.T) {
	program := parseOK(t, "x += 1;")
	stmt := program.Statements[0].(*ast.ExprStmt)
	assign := stmt.Expr.(*ast.VarAssign)
	bin, ok := assign.Value.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, lexer.TokenPlus, bin.Operator)

	read, ok := bin.Left.(*ast.VarAccess)
	require.True(t, ok)
	assert.Equal(t, "x", read.Name)
}

func TestParse_ArithmeticPrecedence(t *testing.T) {
	// 1 + 2 * 3 must parse as 1 + (2 * 3): the outer node is '+'.
	program := parseOK(t, "1 + 2 * 3;")
	stmt := program.Statements[0].(*ast.ExprStmt)
	outer := stmt.Expr.(*ast.BinaryOp)
	assert.Equal(t, lexer.TokenPlus, outer.Operator)

	inner, ok := outer.Right.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, lexer.TokenStar, inner.Operator)
}

func TestParse_UnaryMinusBindsTighterThanFactor(t *testing.T) {
	program := parseOK(t, "-2 * 3;")
	stmt := program.Statements[0].(*ast.ExprStmt)
	outer := stmt.Expr.(*ast.BinaryOp)
	assert.Equal(t, lexer.TokenStar, outer.Operator)

	neg, ok := outer.Left.(*ast.UnaryOp)
	require.True(t, ok)
	assert.Equal(t, lexer.TokenMinus, neg.Operator)
}

func TestParse_IfElifElse(t *testing.T) {
	src := `if x > 0 { print 1; } elif x < 0 { print 2; } else { print 3; }`
	program := parseOK(t, src)
	ifStmt := program.Statements[0].(*ast.If)
	require.NotNil(t, ifStmt.Else)

	elif, ok := ifStmt.Else.(*ast.If)
	require.True(t, ok, "expected elif to parse as a nested If")
	require.NotNil(t, elif.Else)

	_, ok = elif.Else.(*ast.Block)
	assert.True(t, ok, "expected final else to be a Block")
}

func TestParse_While(t *testing.T) {
	program := parseOK(t, "while x < 10 { x = x + 1; }")
	while, ok := program.Statements[0].(*ast.While)
	require.True(t, ok)
	assert.Len(t, while.Body.Statements, 1)
}

func TestParse_FuncDeclWithParamsAndReturnType(t *testing.T) {
	program := parseOK(t, "func add(a, b): int { return a + b; }")
	fn, ok := program.Statements[0].(*ast.FuncDecl)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, lexer.TokenIntType, fn.ReturnType)
}

func TestParse_FuncDeclDefaultsToVoidReturn(t *testing.T) {
	program := parseOK(t, "func greet() { print \"hi\"; }")
	fn := program.Statements[0].(*ast.FuncDecl)
	assert.Equal(t, lexer.TokenVoidType, fn.ReturnType)
}

func TestParse_CallWithArguments(t *testing.T) {
	program := parseOK(t, "add(1, 2);")
	stmt := program.Statements[0].(*ast.ExprStmt)
	call, ok := stmt.Expr.(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "add", call.Callee)
	require.Len(t, call.Args, 2)
}

func TestParse_BareReturn(t *testing.T) {
	program := parseOK(t, "func f() { return; }")
	fn := program.Statements[0].(*ast.FuncDecl)
	ret := fn.Body.Statements[0].(*ast.Return)
	assert.Nil(t, ret.Value)
}

func TestParse_NestedBlockScoping(t *testing.T) {
	program := parseOK(t, "{ var a = 1; { var a = 2; } }")
	outer := program.Statements[0].(*ast.Block)
	require.Len(t, outer.Statements, 2)
	_, ok := outer.Statements[1].(*ast.Block)
	assert.True(t, ok)
}

func TestParse_SyntaxErrorRecoversAndReportsMultiple(t *testing.T) {
	p := New("var = 1; var = 2;")
	_, err := p.Parse()
	require.Error(t, err)
	assert.Len(t, p.Errors(), 2)
}

func TestParse_MissingSemicolonReportsErrorAtEnd(t *testing.T) {
	p := New("var x = 1")
	_, err := p.Parse()
	require.Error(t, err)
	require.NotEmpty(t, p.Errors())
	assert.Contains(t, p.Errors()[0], "at end")
}
