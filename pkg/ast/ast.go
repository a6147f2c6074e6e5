// Package ast defines the det abstract syntax tree.
//
// Every node carries its Kind (a closed tag) and source Line, satisfying
// the base Node interface; concrete node types are plain Go structs
// reached through the Statement/Expression interfaces and a type switch in
// the checker and compiler. This is the "tagged variant" redesign spec.md
// §9 calls for in place of the original's cast-based header+variant
// struct: the Kind tag and the type switch are checked together by the Go
// compiler, so a caller can never read a field that doesn't belong to the
// concrete kind in hand.
//
// Ownership is a single tree rooted at Program; there are no shared or
// cyclic edges, so a plain Go value tree (garbage collected by the host
// runtime once unreferenced) is sufficient — no arena or explicit free is
// needed the way spec.md's source language requires.
package ast

import "github.com/kristofer/det/pkg/lexer"

// Kind is the closed tag identifying a concrete node type.
type Kind int

const (
	KindProgram Kind = iota
	KindBlock
	KindIntLiteral
	KindStringLiteral
	KindBoolLiteral
	KindVarAccess
	KindUnaryOp
	KindBinaryOp
	KindVarDecl
	KindVarAssign
	KindPrintStmt
	KindExprStmt
	KindIf
	KindWhile
	KindFuncDecl
	KindReturn
	KindCall
)

// Node is implemented by every AST node.
type Node interface {
	Kind() Kind
	Line() int
}

// Statement is implemented by every statement node.
type Statement interface {
	Node
	statementNode()
}

// Expression is implemented by every expression node.
type Expression interface {
	Node
	expressionNode()
}

// base carries the fields every node has; concrete types embed it.
type base struct {
	line int
}

func (b base) Line() int { return b.line }

// Program is the AST root: an ordered sequence of top-level statements.
// The Program owns the entire tree beneath it.
type Program struct {
	base
	Statements []Statement
}

func (*Program) Kind() Kind { return KindProgram }

// NewProgram constructs an empty Program at line 0 (it has no single
// source position of its own).
func NewProgram() *Program { return &Program{base: base{line: 0}} }

// Block is an ordered sequence of statements introducing a new scope.
type Block struct {
	base
	Statements []Statement
}

func (*Block) Kind() Kind       { return KindBlock }
func (*Block) statementNode()   {}
func NewBlock(line int) *Block  { return &Block{base: base{line: line}} }

// IntLiteral is a 32-bit signed integer literal.
type IntLiteral struct {
	base
	Value int32
}

func (*IntLiteral) Kind() Kind        { return KindIntLiteral }
func (*IntLiteral) expressionNode()   {}

// StringLiteral is an owned byte string with the surrounding quotes
// already stripped by the lexer.
type StringLiteral struct {
	base
	Value string
}

func (*StringLiteral) Kind() Kind      { return KindStringLiteral }
func (*StringLiteral) expressionNode() {}

// BoolLiteral is a boolean literal.
type BoolLiteral struct {
	base
	Value bool
}

func (*BoolLiteral) Kind() Kind      { return KindBoolLiteral }
func (*BoolLiteral) expressionNode() {}

// VarAccess reads the value bound to an identifier.
type VarAccess struct {
	base
	Name string
}

func (*VarAccess) Kind() Kind      { return KindVarAccess }
func (*VarAccess) expressionNode() {}

// UnaryOp applies a prefix operator ("-" or "!") to an operand.
type UnaryOp struct {
	base
	Operator lexer.TokenKind
	Operand  Expression
}

func (*UnaryOp) Kind() Kind      { return KindUnaryOp }
func (*UnaryOp) expressionNode() {}

// BinaryOp applies an infix operator to two operands.
type BinaryOp struct {
	base
	Operator lexer.TokenKind
	Left     Expression
	Right    Expression
}

func (*BinaryOp) Kind() Kind      { return KindBinaryOp }
func (*BinaryOp) expressionNode() {}

// VarDecl declares a variable. Initializer is nil for `var x;`, which the
// parser accepts and the checker rejects (spec.md §4.3: "requires an
// initializer — no declaration without inference source").
type VarDecl struct {
	base
	Name        string
	Initializer Expression
}

func (*VarDecl) Kind() Kind     { return KindVarDecl }
func (*VarDecl) statementNode() {}

// VarAssign assigns a new value to an existing variable. Assignment is an
// expression: it yields the assigned value.
type VarAssign struct {
	base
	Name  string
	Value Expression
}

func (*VarAssign) Kind() Kind      { return KindVarAssign }
func (*VarAssign) expressionNode() {}

// PrintStmt writes an expression's printed form to the output stream.
type PrintStmt struct {
	base
	Value Expression
}

func (*PrintStmt) Kind() Kind     { return KindPrintStmt }
func (*PrintStmt) statementNode() {}

// ExprStmt evaluates an expression and discards its value.
type ExprStmt struct {
	base
	Expr Expression
}

func (*ExprStmt) Kind() Kind     { return KindExprStmt }
func (*ExprStmt) statementNode() {}

// If is a conditional. Else is either a *Block, another *If (an "elif"
// chain), or nil.
type If struct {
	base
	Condition Expression
	Then      *Block
	Else      Statement
}

func (*If) Kind() Kind     { return KindIf }
func (*If) statementNode() {}

// While is a condition-checked-first loop.
type While struct {
	base
	Condition Expression
	Body      *Block
}

func (*While) Kind() Kind     { return KindWhile }
func (*While) statementNode() {}

// Param is a single declared function parameter (name only; det has no
// parameter type annotations — the checker types every parameter as int
// and checks a call's argument count, not its argument types).
type Param struct {
	Name string
	Line int
}

// FuncDecl declares a named function: its parameters, declared return
// type token (one of int/bool/str/void), and body.
type FuncDecl struct {
	base
	Name       string
	Params     []Param
	ReturnType lexer.TokenKind
	Body       *Block
}

func (*FuncDecl) Kind() Kind     { return KindFuncDecl }
func (*FuncDecl) statementNode() {}

// Return exits the enclosing function, optionally with a value.
type Return struct {
	base
	Value Expression // nil for a bare "return;"
}

func (*Return) Kind() Kind     { return KindReturn }
func (*Return) statementNode() {}

// Call invokes a named function with ordered arguments.
type Call struct {
	base
	Callee string
	Args   []Expression
}

func (*Call) Kind() Kind      { return KindCall }
func (*Call) expressionNode() {}

// Constructors. base's line field is unexported so that Line() always
// returns the value a node was built with; every node is built through one
// of these rather than a bare composite literal from outside the package.

func NewIntLiteral(line int, value int32) *IntLiteral {
	return &IntLiteral{base: base{line}, Value: value}
}

func NewStringLiteral(line int, value string) *StringLiteral {
	return &StringLiteral{base: base{line}, Value: value}
}

func NewBoolLiteral(line int, value bool) *BoolLiteral {
	return &BoolLiteral{base: base{line}, Value: value}
}

func NewVarAccess(line int, name string) *VarAccess {
	return &VarAccess{base: base{line}, Name: name}
}

func NewUnaryOp(line int, operator lexer.TokenKind, operand Expression) *UnaryOp {
	return &UnaryOp{base: base{line}, Operator: operator, Operand: operand}
}

func NewBinaryOp(line int, operator lexer.TokenKind, left, right Expression) *BinaryOp {
	return &BinaryOp{base: base{line}, Operator: operator, Left: left, Right: right}
}

func NewVarDecl(line int, name string, initializer Expression) *VarDecl {
	return &VarDecl{base: base{line}, Name: name, Initializer: initializer}
}

func NewVarAssign(line int, name string, value Expression) *VarAssign {
	return &VarAssign{base: base{line}, Name: name, Value: value}
}

func NewPrintStmt(line int, value Expression) *PrintStmt {
	return &PrintStmt{base: base{line}, Value: value}
}

func NewExprStmt(line int, expr Expression) *ExprStmt {
	return &ExprStmt{base: base{line}, Expr: expr}
}

func NewIf(line int, condition Expression, then *Block, elseBranch Statement) *If {
	return &If{base: base{line}, Condition: condition, Then: then, Else: elseBranch}
}

func NewWhile(line int, condition Expression, body *Block) *While {
	return &While{base: base{line}, Condition: condition, Body: body}
}

func NewFuncDecl(line int, name string, params []Param, returnType lexer.TokenKind, body *Block) *FuncDecl {
	return &FuncDecl{base: base{line}, Name: name, Params: params, ReturnType: returnType, Body: body}
}

func NewReturn(line int, value Expression) *Return {
	return &Return{base: base{line}, Value: value}
}

func NewCall(line int, callee string, args []Expression) *Call {
	return &Call{base: base{line}, Callee: callee, Args: args}
}
