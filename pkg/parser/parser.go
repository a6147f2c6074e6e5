// Package parser implements the det recursive-descent parser.
//
// The parser consumes a lazy token stream from pkg/lexer and builds an AST
// rooted at *ast.Program (spec.md §4.2). It keeps one token of lookahead
// (current/previous) the same way the teacher's Smalltalk parser keeps a
// curTok/peekTok window, but det's grammar is precedence-climbing rather
// than message-send based, so the recursive-descent ladder below follows
// the classic expression/term/factor/unary/primary shape instead.
//
// Error recovery is panic-mode: on a syntax error, errorAt records the
// message, the parser sets hadError, and synchronize() skips tokens up to
// and including the next ';' (or EOF), then parsing resumes — this lets a
// single pass surface every syntax error in the source instead of bailing
// after the first one (spec.md §4.2, §7).
package parser

import (
	"fmt"
	"strconv"

	"github.com/kristofer/det/pkg/ast"
	"github.com/kristofer/det/pkg/lexer"
)

// Parser is stateful and single-use: construct one per source string.
type Parser struct {
	lex *lexer.Lexer

	current  lexer.Token
	previous lexer.Token

	hadError bool
	errors   []string

	// trace, when true, prints an indented push/pop line on entry/exit of
	// every grammar function. Purely diagnostic; spec.md §4.2 calls this
	// out as having "no semantic effect."
	trace      bool
	traceDepth int
}

// New creates a Parser over source and primes the lookahead token.
func New(source string) *Parser {
	p := &Parser{lex: lexer.New(source)}
	p.advance()
	return p
}

// SetTrace toggles the PDA-style push/pop diagnostic trace.
func (p *Parser) SetTrace(on bool) { p.trace = on }

func (p *Parser) enter(rule string) {
	if !p.trace {
		return
	}
	fmt.Printf("%*spush %s\n", p.traceDepth*2, "", rule)
	p.traceDepth++
}

func (p *Parser) exit(rule string) {
	if !p.trace {
		return
	}
	p.traceDepth--
	fmt.Printf("%*spop %s\n", p.traceDepth*2, "", rule)
}

// Errors returns every syntax error message accumulated during Parse.
func (p *Parser) Errors() []string { return p.errors }

// Parse runs the parser to completion. On success it returns the Program
// and a nil error. On any syntax error the AST built so far is discarded
// and (nil, error) is returned, with the individual messages available via
// Errors() — spec.md §4.2: "the returned AST is discarded and null is
// returned."
func (p *Parser) Parse() (*ast.Program, error) {
	program := ast.NewProgram()

	for !p.check(lexer.TokenEOF) {
		stmt := p.declaration()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
	}

	if p.hadError {
		return nil, fmt.Errorf("%d syntax error(s)", len(p.errors))
	}
	return program, nil
}

// --- token plumbing -------------------------------------------------------

func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.lex.NextToken()
		if p.current.Kind != lexer.TokenError {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) check(kind lexer.TokenKind) bool {
	return p.current.Kind == kind
}

func (p *Parser) matchKind(kind lexer.TokenKind) bool {
	if !p.check(kind) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(kind lexer.TokenKind, message string) {
	if p.current.Kind == kind {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

func (p *Parser) errorAtCurrent(message string) {
	p.errorAt(p.current, message)
}

func (p *Parser) error(message string) {
	p.errorAt(p.previous, message)
}

func (p *Parser) errorAt(tok lexer.Token, message string) {
	p.hadError = true
	where := fmt.Sprintf("at '%s'", tok.Lexeme)
	if tok.Kind == lexer.TokenEOF {
		where = "at end"
	}
	p.errors = append(p.errors, fmt.Sprintf("[Line %d] Error %s: %s", tok.Line, where, message))
}

// synchronize discards tokens until it finds a likely statement boundary:
// the ';' just consumed, or EOF. This bounds how much of a malformed
// statement is swallowed before parsing resumes.
func (p *Parser) synchronize() {
	for !p.check(lexer.TokenEOF) {
		if p.previous.Kind == lexer.TokenSemicolon {
			return
		}
		p.advance()
	}
}

// --- declarations ----------------------------------------------------------

func (p *Parser) declaration() ast.Statement {
	p.enter("declaration")
	defer p.exit("declaration")

	var stmt ast.Statement
	switch {
	case p.matchKind(lexer.TokenFunc):
		stmt = p.funcDecl()
	case p.matchKind(lexer.TokenVar):
		stmt = p.varDecl()
	default:
		stmt = p.statement()
	}

	if p.hadError {
		p.synchronize()
	}
	return stmt
}

func (p *Parser) funcDecl() ast.Statement {
	p.enter("funcDecl")
	defer p.exit("funcDecl")

	line := p.previous.Line
	p.consume(lexer.TokenIdent, "Expect function name.")
	name := p.previous.Lexeme

	p.consume(lexer.TokenLParen, "Expect '(' after function name.")
	var params []ast.Param
	if !p.check(lexer.TokenRParen) {
		for {
			p.consume(lexer.TokenIdent, "Expect parameter name.")
			params = append(params, ast.Param{Name: p.previous.Lexeme, Line: p.previous.Line})
			if !p.matchKind(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRParen, "Expect ')' after parameters.")

	returnType := lexer.TokenVoidType
	if p.matchKind(lexer.TokenColon) {
		returnType = p.typeToken()
	}

	p.consume(lexer.TokenLBrace, "Expect '{' before function body.")
	body := p.block()

	return ast.NewFuncDecl(line, name, params, returnType, body)
}

func (p *Parser) typeToken() lexer.TokenKind {
	switch p.current.Kind {
	case lexer.TokenIntType, lexer.TokenBoolType, lexer.TokenStrType, lexer.TokenVoidType:
		kind := p.current.Kind
		p.advance()
		return kind
	default:
		p.errorAtCurrent("Expect type name.")
		return lexer.TokenVoidType
	}
}

func (p *Parser) varDecl() ast.Statement {
	p.enter("varDecl")
	defer p.exit("varDecl")

	line := p.previous.Line
	p.consume(lexer.TokenIdent, "Expect variable name.")
	name := p.previous.Lexeme

	var initializer ast.Expression
	if p.matchKind(lexer.TokenAssign) {
		initializer = p.expression()
	}
	p.consume(lexer.TokenSemicolon, "Expect ';' after variable declaration.")
	return ast.NewVarDecl(line, name, initializer)
}

// --- statements --------------------------------------------------------

func (p *Parser) statement() ast.Statement {
	p.enter("statement")
	defer p.exit("statement")

	switch {
	case p.matchKind(lexer.TokenIf):
		return p.ifStatement()
	case p.matchKind(lexer.TokenWhile):
		return p.whileStatement()
	case p.matchKind(lexer.TokenLBrace):
		return p.block()
	case p.matchKind(lexer.TokenReturn):
		return p.returnStatement()
	case p.matchKind(lexer.TokenPrint):
		return p.printStatement()
	default:
		return p.exprStatement()
	}
}

func (p *Parser) block() *ast.Block {
	p.enter("block")
	defer p.exit("block")

	blk := ast.NewBlock(p.previous.Line)
	for !p.check(lexer.TokenRBrace) && !p.check(lexer.TokenEOF) {
		stmt := p.declaration()
		if stmt != nil {
			blk.Statements = append(blk.Statements, stmt)
		}
	}
	p.consume(lexer.TokenRBrace, "Expect '}' after block.")
	return blk
}

func (p *Parser) ifStatement() ast.Statement {
	p.enter("ifStatement")
	defer p.exit("ifStatement")

	line := p.previous.Line
	condition := p.expression()
	p.consume(lexer.TokenLBrace, "Expect '{' after if condition.")
	then := p.block()

	var elseBranch ast.Statement
	switch {
	case p.matchKind(lexer.TokenElif):
		elseBranch = p.ifStatement()
	case p.matchKind(lexer.TokenElse):
		p.consume(lexer.TokenLBrace, "Expect '{' after else.")
		elseBranch = p.block()
	}

	return ast.NewIf(line, condition, then, elseBranch)
}

func (p *Parser) whileStatement() ast.Statement {
	p.enter("whileStatement")
	defer p.exit("whileStatement")

	line := p.previous.Line
	condition := p.expression()
	p.consume(lexer.TokenLBrace, "Expect '{' after while condition.")
	body := p.block()
	return ast.NewWhile(line, condition, body)
}

func (p *Parser) returnStatement() ast.Statement {
	p.enter("returnStatement")
	defer p.exit("returnStatement")

	line := p.previous.Line
	var value ast.Expression
	if !p.check(lexer.TokenSemicolon) {
		value = p.expression()
	}
	p.consume(lexer.TokenSemicolon, "Expect ';' after return value.")
	return ast.NewReturn(line, value)
}

func (p *Parser) printStatement() ast.Statement {
	p.enter("printStatement")
	defer p.exit("printStatement")

	line := p.previous.Line
	value := p.expression()
	p.consume(lexer.TokenSemicolon, "Expect ';' after value.")
	return ast.NewPrintStmt(line, value)
}

func (p *Parser) exprStatement() ast.Statement {
	p.enter("exprStatement")
	defer p.exit("exprStatement")

	expr := p.expression()
	line := expr.Line()
	p.consume(lexer.TokenSemicolon, "Expect ';' after expression.")
	return ast.NewExprStmt(line, expr)
}

// --- expressions ---------------------------------------------------------

var compoundAssignOps = map[lexer.TokenKind]lexer.TokenKind{
	lexer.TokenPlusAssign:    lexer.TokenPlus,
	lexer.TokenMinusAssign:   lexer.TokenMinus,
	lexer.TokenStarAssign:    lexer.TokenStar,
	lexer.TokenSlashAssign:   lexer.TokenSlash,
	lexer.TokenPercentAssign: lexer.TokenPercent,
}

func (p *Parser) expression() ast.Expression {
	p.enter("expression")
	defer p.exit("expression")
	return p.assignment()
}

// assignment := equality ( ('='|'+='|'-='|'*='|'/='|'%=') assignment )?
//
// Right-associative via the recursive call on the right-hand side. The
// left-hand side of '=' must already have parsed down to a *ast.VarAccess;
// anything else is "Invalid assignment target." Compound assignment
// desugars `x op= e` into VarAssign(x, BinaryOp(op, VarAccess(x), e)) per
// spec.md §4.2 — the redesign note in spec.md §9 calls for building a
// fresh VarAccess for the read side rather than reusing the one already
// produced by equality(), since AST nodes here have a single owner.
func (p *Parser) assignment() ast.Expression {
	p.enter("assignment")
	defer p.exit("assignment")

	expr := p.equality()

	if p.check(lexer.TokenAssign) || compoundAssignOps[p.current.Kind] != 0 {
		opTok := p.current
		p.advance()

		target, ok := expr.(*ast.VarAccess)
		if !ok {
			p.errorAt(opTok, "Invalid assignment target.")
			return expr
		}

		value := p.assignment()

		if opTok.Kind == lexer.TokenAssign {
			return ast.NewVarAssign(opTok.Line, target.Name, value)
		}

		binOp := compoundAssignOps[opTok.Kind]
		read := ast.NewVarAccess(target.Line(), target.Name)
		combined := ast.NewBinaryOp(opTok.Line, binOp, read, value)
		return ast.NewVarAssign(opTok.Line, target.Name, combined)
	}

	return expr
}

func (p *Parser) equality() ast.Expression {
	p.enter("equality")
	defer p.exit("equality")

	expr := p.comparison()
	for p.check(lexer.TokenEqualEqual) || p.check(lexer.TokenBangEqual) {
		op := p.current
		p.advance()
		right := p.comparison()
		expr = ast.NewBinaryOp(op.Line, op.Kind, expr, right)
	}
	return expr
}

func (p *Parser) comparison() ast.Expression {
	p.enter("comparison")
	defer p.exit("comparison")

	expr := p.term()
	for p.check(lexer.TokenLess) || p.check(lexer.TokenLessEqual) ||
		p.check(lexer.TokenGreater) || p.check(lexer.TokenGreaterEqual) {
		op := p.current
		p.advance()
		right := p.term()
		expr = ast.NewBinaryOp(op.Line, op.Kind, expr, right)
	}
	return expr
}

func (p *Parser) term() ast.Expression {
	p.enter("term")
	defer p.exit("term")

	expr := p.factor()
	for p.check(lexer.TokenPlus) || p.check(lexer.TokenMinus) {
		op := p.current
		p.advance()
		right := p.factor()
		expr = ast.NewBinaryOp(op.Line, op.Kind, expr, right)
	}
	return expr
}

func (p *Parser) factor() ast.Expression {
	p.enter("factor")
	defer p.exit("factor")

	expr := p.unary()
	for p.check(lexer.TokenStar) || p.check(lexer.TokenSlash) || p.check(lexer.TokenPercent) {
		op := p.current
		p.advance()
		right := p.unary()
		expr = ast.NewBinaryOp(op.Line, op.Kind, expr, right)
	}
	return expr
}

func (p *Parser) unary() ast.Expression {
	p.enter("unary")
	defer p.exit("unary")

	if p.check(lexer.TokenMinus) || p.check(lexer.TokenBang) {
		op := p.current
		p.advance()
		operand := p.unary()
		return ast.NewUnaryOp(op.Line, op.Kind, operand)
	}
	return p.primary()
}

func (p *Parser) primary() ast.Expression {
	p.enter("primary")
	defer p.exit("primary")

	switch {
	case p.matchKind(lexer.TokenInt):
		return p.intLiteral()
	case p.matchKind(lexer.TokenString):
		return ast.NewStringLiteral(p.previous.Line, p.previous.Lexeme)
	case p.matchKind(lexer.TokenTrue):
		return ast.NewBoolLiteral(p.previous.Line, true)
	case p.matchKind(lexer.TokenFalse):
		return ast.NewBoolLiteral(p.previous.Line, false)
	case p.matchKind(lexer.TokenLParen):
		expr := p.expression()
		p.consume(lexer.TokenRParen, "Expect ')' after expression.")
		return expr
	case p.matchKind(lexer.TokenIdent):
		return p.identifierOrCall()
	default:
		p.errorAtCurrent("Expect expression.")
		p.advance()
		return ast.NewIntLiteral(p.previous.Line, 0)
	}
}

func (p *Parser) intLiteral() ast.Expression {
	value, err := strconv.ParseInt(p.previous.Lexeme, 10, 32)
	if err != nil {
		p.error(fmt.Sprintf("Invalid integer literal '%s'.", p.previous.Lexeme))
		return ast.NewIntLiteral(p.previous.Line, 0)
	}
	return ast.NewIntLiteral(p.previous.Line, int32(value))
}

func (p *Parser) identifierOrCall() ast.Expression {
	name := p.previous.Lexeme
	line := p.previous.Line

	if !p.matchKind(lexer.TokenLParen) {
		return ast.NewVarAccess(line, name)
	}

	var args []ast.Expression
	if !p.check(lexer.TokenRParen) {
		for {
			args = append(args, p.expression())
			if !p.matchKind(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRParen, "Expect ')' after arguments.")
	return ast.NewCall(line, name, args)
}
