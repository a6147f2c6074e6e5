package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextToken_Punctuation(t *testing.T) {
	input := `( ) { } , : ;`

	tests := []TokenKind{
		TokenLParen, TokenRParen, TokenLBrace, TokenRBrace,
		TokenComma, TokenColon, TokenSemicolon, TokenEOF,
	}

	l := New(input)
	for i, want := range tests {
		tok := l.NextToken()
		assert.Equalf(t, want, tok.Kind, "token %d", i)
	}
}

func TestNextToken_Operators(t *testing.T) {
	input := `+ - * / % = += -= *= /= %= == != < <= > >= !`

	tests := []TokenKind{
		TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent,
		TokenAssign, TokenPlusAssign, TokenMinusAssign, TokenStarAssign,
		TokenSlashAssign, TokenPercentAssign,
		TokenEqualEqual, TokenBangEqual, TokenLess, TokenLessEqual,
		TokenGreater, TokenGreaterEqual, TokenBang, TokenEOF,
	}

	l := New(input)
	for i, want := range tests {
		tok := l.NextToken()
		assert.Equalf(t, want, tok.Kind, "token %d", i)
	}
}

func TestNextToken_Keywords(t *testing.T) {
	input := "var print if elif else while func return true false int bool str void"

	tests := []TokenKind{
		TokenVar, TokenPrint, TokenIf, TokenElif, TokenElse, TokenWhile,
		TokenFunc, TokenReturn, TokenTrue, TokenFalse,
		TokenIntType, TokenBoolType, TokenStrType, TokenVoidType, TokenEOF,
	}

	l := New(input)
	for i, want := range tests {
		tok := l.NextToken()
		assert.Equalf(t, want, tok.Kind, "token %d (%q)", i, tok.Lexeme)
	}
}

func TestNextToken_KeywordIsNeverIdent(t *testing.T) {
	for _, kw := range []string{"var", "print", "func", "true", "void"} {
		l := New(kw)
		tok := l.NextToken()
		assert.NotEqual(t, TokenIdent, tok.Kind, "keyword %q lexed as IDENT", kw)
	}
}

func TestNextToken_Identifier(t *testing.T) {
	l := New("count_1")
	tok := l.NextToken()
	require.Equal(t, TokenIdent, tok.Kind)
	assert.Equal(t, "count_1", tok.Lexeme)
}

func TestNextToken_IntLiteral(t *testing.T) {
	l := New("42")
	tok := l.NextToken()
	require.Equal(t, TokenInt, tok.Kind)
	assert.Equal(t, "42", tok.Lexeme)
}

func TestNextToken_StringLiteral(t *testing.T) {
	l := New(`"hello world"`)
	tok := l.NextToken()
	require.Equal(t, TokenString, tok.Kind)
	assert.Equal(t, "hello world", tok.Lexeme)
}

func TestNextToken_UnterminatedString(t *testing.T) {
	l := New(`"hello`)
	tok := l.NextToken()
	assert.Equal(t, TokenError, tok.Kind)

	// The stream still terminates with EOF after an error token.
	eof := l.NextToken()
	assert.Equal(t, TokenEOF, eof.Kind)
}

func TestNextToken_LineTracking(t *testing.T) {
	input := "var\nx\n=\n1;"
	l := New(input)

	var gotLines []int
	for {
		tok := l.NextToken()
		if tok.Kind == TokenEOF {
			break
		}
		gotLines = append(gotLines, tok.Line)
	}

	assert.Equal(t, []int{1, 2, 3, 4, 4}, gotLines)
}

func TestNextToken_CommentsProduceNoTokens(t *testing.T) {
	input := "// a whole line comment\nvar x = 1; // trailing\n"
	l := New(input)

	tok := l.NextToken()
	assert.Equal(t, TokenVar, tok.Kind)
	assert.Equal(t, 2, tok.Line)
}

func TestNextToken_UnexpectedCharacterRecovers(t *testing.T) {
	l := New("@ var")
	errTok := l.NextToken()
	assert.Equal(t, TokenError, errTok.Kind)

	next := l.NextToken()
	assert.Equal(t, TokenVar, next.Kind)
}

func TestNextToken_EOFIsIdempotent(t *testing.T) {
	l := New("")
	assert.Equal(t, TokenEOF, l.NextToken().Kind)
	assert.Equal(t, TokenEOF, l.NextToken().Kind)
	assert.Equal(t, TokenEOF, l.NextToken().Kind)
}

func TestNextToken_NegativeNumberIsUnaryMinus(t *testing.T) {
	// The lexer never signs numbers itself (spec.md §4.1): -5 lexes as
	// MINUS then INT, with the parser producing the UnaryOp.
	l := New("-5")
	minus := l.NextToken()
	require.Equal(t, TokenMinus, minus.Kind)
	five := l.NextToken()
	require.Equal(t, TokenInt, five.Kind)
	assert.Equal(t, "5", five.Lexeme)
}
