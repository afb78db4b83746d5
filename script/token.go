package script

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the script lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError
	TokenNewline // newline or ;

	// Literals
	TokenInteger    // 42, -7
	TokenFloat      // 3.14, 1.5e10
	TokenString     // "hello", 'raw'
	TokenSymbol     // :foo, :ok?, :"two words"
	TokenIdentifier // foo, key?, merge!
	TokenConstant   // Hash, Point
	TokenLabel      // foo: inside a hash literal

	// Operators
	TokenOperator // ==, !=, <, <=, >, >=, +, -, <<
	TokenAssign   // =
	TokenArrow    // =>

	// Delimiters
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenLBrace   // {
	TokenRBrace   // }
	TokenPeriod   // .
	TokenComma    // ,
	TokenBar      // |

	// Reserved identifiers
	TokenNil
	TokenTrue
	TokenFalse
	TokenDo
	TokenEnd
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenNewline:    "NEWLINE",
	TokenInteger:    "INTEGER",
	TokenFloat:      "FLOAT",
	TokenString:     "STRING",
	TokenSymbol:     "SYMBOL",
	TokenIdentifier: "IDENTIFIER",
	TokenConstant:   "CONSTANT",
	TokenLabel:      "LABEL",
	TokenOperator:   "OPERATOR",
	TokenAssign:     "=",
	TokenArrow:      "=>",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenPeriod:     ".",
	TokenComma:      ",",
	TokenBar:        "|",
	TokenNil:        "nil",
	TokenTrue:       "true",
	TokenFalse:      "false",
	TokenDo:         "do",
	TokenEnd:        "end",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Position is a location in source text.
type Position struct {
	Offset int
	Line   int
	Column int
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// endsValue reports whether a token of this type can end an operand, which
// decides whether a following '-' is subtraction or a sign.
func (t TokenType) endsValue() bool {
	switch t {
	case TokenInteger, TokenFloat, TokenString, TokenSymbol, TokenIdentifier,
		TokenConstant, TokenRParen, TokenRBracket, TokenRBrace,
		TokenNil, TokenTrue, TokenFalse, TokenEnd:
		return true
	}
	return false
}

var reservedWords = map[string]TokenType{
	"nil":   TokenNil,
	"true":  TokenTrue,
	"false": TokenFalse,
	"do":    TokenDo,
	"end":   TokenEnd,
}
