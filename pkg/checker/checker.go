// Package checker implements det's single-pass static type checker.
//
// The checker walks the AST produced by pkg/parser and annotates nothing —
// it only validates, using a scratch copy of the persistent symbol table so
// a run that ends in error never pollutes global state (spec.md §4.3). It
// borrows the teacher's "keep going after an error to surface every
// problem in one pass" posture from the parser's panic-mode recovery, but
// there is nothing to synchronize to here: a type error just yields
// types.Error for the offending subtree and checking continues outward.
package checker

import (
	"fmt"
	"io"

	"github.com/kristofer/det/pkg/ast"
	"github.com/kristofer/det/pkg/lexer"
	"github.com/kristofer/det/pkg/symbols"
	"github.com/kristofer/det/pkg/types"
)

// FuncSig is what the checker remembers about a declared function: its
// parameter count and declared return type, enough to check call arity and
// return-type agreement without re-walking the FuncDecl. Exported so a
// driver (pkg/det) can hold the persistent signature table across separate
// Checker runs the same way it holds the persistent *symbols.Table.
type FuncSig struct {
	Arity      int
	ReturnType types.DataType
}

// Checker runs one type-checking pass over a Program.
type Checker struct {
	out io.Writer

	table *symbols.Table
	funcs map[string]FuncSig

	// enclosingReturn/inFunc track the declared return type of the
	// function currently being checked, so Return statements can be
	// validated against it. Top-level code (inFunc == false) has no
	// declared return type; a Return there is accepted with any value or
	// none (see checkReturn).
	enclosingReturn types.DataType
	inFunc          bool

	hadError bool
	errors   []string
}

// New creates a Checker that reports diagnostics to out and checks against
// (a clone of) the persistent symbol table and function signature set.
func New(out io.Writer, persistent *symbols.Table, persistentFuncs map[string]FuncSig) *Checker {
	funcs := make(map[string]FuncSig, len(persistentFuncs))
	for k, v := range persistentFuncs {
		funcs[k] = v
	}
	return &Checker{out: out, table: persistent.Clone(), funcs: funcs}
}

// HadError reports whether any diagnostic was emitted this pass.
func (c *Checker) HadError() bool { return c.hadError }

// Errors returns every diagnostic emitted this pass.
func (c *Checker) Errors() []string { return c.errors }

// Table returns the checker-local symbol table. Callers should only adopt
// this into persistent state when HadError is false.
func (c *Checker) Table() *symbols.Table { return c.table }

// Funcs returns the checker-local function signature table, for the same
// commit-on-success discipline as Table.
func (c *Checker) Funcs() map[string]FuncSig { return c.funcs }

func (c *Checker) report(line int, format string, args ...any) {
	c.hadError = true
	msg := fmt.Sprintf("[Line %d] Error: %s", line, fmt.Sprintf(format, args...))
	c.errors = append(c.errors, msg)
	fmt.Fprintln(c.out, msg)
}

// Check type-checks every top-level statement of program in order.
func (c *Checker) Check(program *ast.Program) {
	for _, stmt := range program.Statements {
		c.checkStatement(stmt)
	}
}

func (c *Checker) checkStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		c.checkVarDecl(s)
	case *ast.PrintStmt:
		c.checkPrintStmt(s)
	case *ast.ExprStmt:
		c.checkExpr(s.Expr)
	case *ast.If:
		c.checkIf(s)
	case *ast.While:
		c.checkWhile(s)
	case *ast.Block:
		c.checkBlock(s)
	case *ast.FuncDecl:
		c.checkFuncDecl(s)
	case *ast.Return:
		c.checkReturn(s)
	default:
		c.report(stmt.Line(), "unsupported statement %T", stmt)
	}
}

func (c *Checker) checkVarDecl(s *ast.VarDecl) {
	if s.Initializer == nil {
		c.report(s.Line(), "variable '%s' has no initializer", s.Name)
		c.table.Define(s.Name, types.Error)
		return
	}
	t := c.checkExpr(s.Initializer)
	if !c.table.Define(s.Name, t) {
		c.report(s.Line(), "redefinition of '%s' in the same scope", s.Name)
	}
}

func (c *Checker) checkPrintStmt(s *ast.PrintStmt) {
	t := c.checkExpr(s.Value)
	if t == types.Void {
		c.report(s.Line(), "cannot print a void expression")
	}
}

func (c *Checker) checkIf(s *ast.If) {
	if t := c.checkExpr(s.Condition); t != types.Bool && t != types.Error {
		c.report(s.Line(), "if condition must be bool, got %s", t)
	}
	c.checkBlock(s.Then)
	if s.Else != nil {
		c.checkStatement(s.Else)
	}
}

func (c *Checker) checkWhile(s *ast.While) {
	if t := c.checkExpr(s.Condition); t != types.Bool && t != types.Error {
		c.report(s.Line(), "while condition must be bool, got %s", t)
	}
	c.checkBlock(s.Body)
}

func (c *Checker) checkBlock(b *ast.Block) {
	c.table.EnterScope()
	for _, stmt := range b.Statements {
		c.checkStatement(stmt)
	}
	c.table.ExitScope()
}

func (c *Checker) checkFuncDecl(s *ast.FuncDecl) {
	returnType := tokenToDataType(s.ReturnType)
	sig := FuncSig{Arity: len(s.Params), ReturnType: returnType}
	c.funcs[s.Name] = sig

	outerReturn, outerInFunc := c.enclosingReturn, c.inFunc
	c.enclosingReturn, c.inFunc = returnType, true
	defer func() { c.enclosingReturn, c.inFunc = outerReturn, outerInFunc }()

	c.table.EnterScope()
	for _, param := range s.Params {
		c.table.Define(param.Name, types.Int)
	}

	hasReturn := blockReturns(s.Body)
	if returnType != types.Void && !hasReturn {
		c.report(s.Line(), "function '%s' must return a value on every path", s.Name)
	}

	for _, stmt := range s.Body.Statements {
		c.checkStatement(stmt)
	}
	c.table.ExitScope()
}

// blockReturns reports whether every execution path through b ends in an
// explicit Return — a conservative check: it only recognizes a trailing
// Return, a trailing If whose every branch returns, or a trailing nested
// Block that itself ends that way, which is enough for
// det's straight-line-or-if-chain function bodies (spec.md §9: non-void
// functions must explicitly return).
func blockReturns(b *ast.Block) bool {
	if len(b.Statements) == 0 {
		return false
	}
	last := b.Statements[len(b.Statements)-1]
	switch s := last.(type) {
	case *ast.Return:
		return true
	case *ast.If:
		if s.Else == nil {
			return false
		}
		thenReturns := blockReturns(s.Then)
		var elseReturns bool
		switch e := s.Else.(type) {
		case *ast.Block:
			elseReturns = blockReturns(e)
		case *ast.If:
			elseReturns = ifReturns(e)
		}
		return thenReturns && elseReturns
	case *ast.Block:
		return blockReturns(s)
	default:
		return false
	}
}

func ifReturns(s *ast.If) bool {
	if s.Else == nil {
		return false
	}
	thenReturns := blockReturns(s.Then)
	var elseReturns bool
	switch e := s.Else.(type) {
	case *ast.Block:
		elseReturns = blockReturns(e)
	case *ast.If:
		elseReturns = ifReturns(e)
	}
	return thenReturns && elseReturns
}

// checkReturn validates a Return statement. The grammar allows 'return' as
// an ordinary statement anywhere, including at top level (spec.md §4.2:
// `statement := ... | 'return' ret_stmt | ...`) — the whole script is
// itself the synthetic top-level function (spec.md §4.4), so a return
// outside any func_decl is checked against no declared type at all: any
// expression (or none) is accepted, and its value becomes the script's
// result.
func (c *Checker) checkReturn(s *ast.Return) {
	if !c.inFunc {
		if s.Value != nil {
			c.checkExpr(s.Value)
		}
		return
	}

	if s.Value == nil {
		if c.enclosingReturn != types.Void {
			c.report(s.Line(), "function must return a %s value", c.enclosingReturn)
		}
		return
	}

	t := c.checkExpr(s.Value)
	if t != types.Error && t != c.enclosingReturn {
		c.report(s.Line(), "return type mismatch: expected %s, got %s", c.enclosingReturn, t)
	}
}

func (c *Checker) checkExpr(expr ast.Expression) types.DataType {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return types.Int
	case *ast.StringLiteral:
		return types.String
	case *ast.BoolLiteral:
		return types.Bool
	case *ast.VarAccess:
		t := c.table.Lookup(e.Name)
		if t == types.Error {
			c.report(e.Line(), "undefined variable '%s'", e.Name)
		}
		return t
	case *ast.UnaryOp:
		return c.checkUnaryOp(e)
	case *ast.BinaryOp:
		return c.checkBinaryOp(e)
	case *ast.VarAssign:
		return c.checkVarAssign(e)
	case *ast.Call:
		return c.checkCall(e)
	default:
		c.report(expr.Line(), "unsupported expression %T", expr)
		return types.Error
	}
}

func (c *Checker) checkUnaryOp(e *ast.UnaryOp) types.DataType {
	operandType := c.checkExpr(e.Operand)
	switch e.Operator {
	case lexer.TokenMinus:
		if operandType == types.Int {
			return types.Int
		}
		if operandType != types.Error {
			c.report(e.Line(), "unary '-' requires int, got %s", operandType)
		}
		return types.Error
	case lexer.TokenBang:
		if operandType == types.Bool {
			return types.Bool
		}
		if operandType != types.Error {
			c.report(e.Line(), "unary '!' requires bool, got %s", operandType)
		}
		return types.Error
	default:
		c.report(e.Line(), "unsupported unary operator")
		return types.Error
	}
}

func (c *Checker) checkBinaryOp(e *ast.BinaryOp) types.DataType {
	left := c.checkExpr(e.Left)
	right := c.checkExpr(e.Right)
	if left == types.Error || right == types.Error {
		return types.Error
	}

	op := e.Operator
	switch op {
	case lexer.TokenPlus:
		if left == types.Int && right == types.Int {
			return types.Int
		}
		if left == types.String && right == types.String {
			return types.String
		}
		c.report(e.Line(), "'+' requires two ints or two strings, got %s and %s", left, right)
		return types.Error
	case lexer.TokenMinus, lexer.TokenStar, lexer.TokenSlash, lexer.TokenPercent:
		if left == types.Int && right == types.Int {
			return types.Int
		}
		c.report(e.Line(), "'%s' requires two ints, got %s and %s", op, left, right)
		return types.Error
	case lexer.TokenLess, lexer.TokenLessEqual, lexer.TokenGreater, lexer.TokenGreaterEqual:
		if left == types.Int && right == types.Int {
			return types.Bool
		}
		c.report(e.Line(), "'%s' requires two ints, got %s and %s", op, left, right)
		return types.Error
	case lexer.TokenEqualEqual, lexer.TokenBangEqual:
		if left == right {
			return types.Bool
		}
		c.report(e.Line(), "'%s' requires operands of the same type, got %s and %s", op, left, right)
		return types.Error
	default:
		c.report(e.Line(), "unsupported binary operator")
		return types.Error
	}
}

func (c *Checker) checkVarAssign(e *ast.VarAssign) types.DataType {
	declared := c.table.Lookup(e.Name)
	if declared == types.Error {
		c.report(e.Line(), "undefined variable '%s'", e.Name)
	}
	valueType := c.checkExpr(e.Value)
	if declared != types.Error && valueType != types.Error && declared != valueType {
		c.report(e.Line(), "cannot assign %s to '%s' of type %s", valueType, e.Name, declared)
	}
	return valueType
}

func (c *Checker) checkCall(e *ast.Call) types.DataType {
	sig, ok := c.funcs[e.Callee]
	if !ok {
		c.report(e.Line(), "undefined function '%s'", e.Callee)
		for _, arg := range e.Args {
			c.checkExpr(arg)
		}
		return types.Error
	}
	if len(e.Args) != sig.Arity {
		c.report(e.Line(), "'%s' expects %d argument(s), got %d", e.Callee, sig.Arity, len(e.Args))
	}
	for _, arg := range e.Args {
		c.checkExpr(arg)
	}
	return sig.ReturnType
}

// tokenToDataType maps a return-type annotation token to its DataType.
func tokenToDataType(kind lexer.TokenKind) types.DataType {
	switch kind {
	case lexer.TokenIntType:
		return types.Int
	case lexer.TokenBoolType:
		return types.Bool
	case lexer.TokenStrType:
		return types.String
	default:
		return types.Void
	}
}
