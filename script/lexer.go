package script

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: tokenizer for hash scripts
// ---------------------------------------------------------------------------

// Lexer tokenizes script source.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
	col     int  // current column (1-based)
	last    TokenType
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		last:  TokenNewline,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = l.readPos
		return
	}
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	tok := l.next()
	l.last = tok.Type
	return tok
}

func (l *Lexer) next() Token {
	l.skipSpaceAndComments()
	pos := l.position()

	single := func(t TokenType) Token {
		lit := string(l.ch)
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}
	}

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Pos: pos}

	case l.ch == '\n' || l.ch == ';':
		for l.ch == '\n' || l.ch == ';' {
			l.readChar()
			l.skipSpaceAndComments()
		}
		return Token{Type: TokenNewline, Literal: "\n", Pos: pos}

	case l.ch == '(':
		return single(TokenLParen)
	case l.ch == ')':
		return single(TokenRParen)
	case l.ch == '[':
		return single(TokenLBracket)
	case l.ch == ']':
		return single(TokenRBracket)
	case l.ch == '{':
		return single(TokenLBrace)
	case l.ch == '}':
		return single(TokenRBrace)
	case l.ch == '.':
		return single(TokenPeriod)
	case l.ch == ',':
		return single(TokenComma)
	case l.ch == '|':
		return single(TokenBar)

	case l.ch == '"':
		return l.readString(pos)
	case l.ch == '\'':
		return l.readRawString(pos)

	case l.ch == ':':
		return l.readSymbol(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)
	case l.ch == '-' && isDigit(l.peekChar()) && !l.last.endsValue():
		return l.readNumber(pos)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifier(pos)

	case strings.ContainsRune("=!<>+-", l.ch):
		return l.readOperator(pos)

	default:
		ch := l.ch
		l.readChar()
		return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character: %c", ch), Pos: pos}
	}
}

// skipSpaceAndComments skips blanks and # comments, stopping at newlines.
func (l *Lexer) skipSpaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
		}
		// A backslash before a newline continues the line.
		if l.ch == '\\' && l.peekChar() == '\n' {
			l.readChar()
			l.readChar()
			continue
		}
		if l.ch == '#' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		return
	}
}

// readString reads a double-quoted string with backslash escapes.
func (l *Lexer) readString(pos Position) Token {
	l.readChar() // consume opening "

	var sb strings.Builder
	for l.ch != '"' {
		if l.ch == 0 || l.ch == '\n' {
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '0':
				sb.WriteRune(0)
			case 0:
				return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
			default:
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing "

	return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
}

// readRawString reads a single-quoted string. Only \' and \\ are escapes.
func (l *Lexer) readRawString(pos Position) Token {
	l.readChar() // consume opening '

	var sb strings.Builder
	for l.ch != '\'' {
		if l.ch == 0 {
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		}
		if l.ch == '\\' && (l.peekChar() == '\'' || l.peekChar() == '\\') {
			l.readChar()
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing '

	return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
}

// readSymbol reads :name, :name?, :name=, :"quoted" or an operator symbol.
func (l *Lexer) readSymbol(pos Position) Token {
	l.readChar() // consume :

	switch {
	case l.ch == '"':
		tok := l.readString(pos)
		if tok.Type == TokenString {
			tok.Type = TokenSymbol
		}
		return tok

	case isLetter(l.ch) || l.ch == '_':
		start := l.pos
		for isIdentChar(l.ch) {
			l.readChar()
		}
		if l.ch == '?' || l.ch == '!' || (l.ch == '=' && l.peekChar() != '=' && l.peekChar() != '>') {
			l.readChar()
		}
		return Token{Type: TokenSymbol, Literal: l.input[start:l.pos], Pos: pos}

	case l.ch == '[':
		l.readChar()
		if l.ch != ']' {
			return Token{Type: TokenError, Literal: "bad symbol", Pos: pos}
		}
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenSymbol, Literal: "[]=", Pos: pos}
		}
		return Token{Type: TokenSymbol, Literal: "[]", Pos: pos}

	case strings.ContainsRune("=!<>+-", l.ch):
		op := l.readOperator(pos)
		if op.Type == TokenError || op.Type == TokenArrow || op.Type == TokenAssign {
			return Token{Type: TokenError, Literal: "bad symbol", Pos: pos}
		}
		return Token{Type: TokenSymbol, Literal: op.Literal, Pos: pos}
	}
	return Token{Type: TokenError, Literal: "unexpected ':'", Pos: pos}
}

// readNumber reads an integer or float literal.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	isFloat := false

	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar() // consume .
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		isFloat = true
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	lit := strings.ReplaceAll(l.input[start:l.pos], "_", "")
	if isFloat {
		return Token{Type: TokenFloat, Literal: lit, Pos: pos}
	}
	return Token{Type: TokenInteger, Literal: lit, Pos: pos}
}

// readIdentifier reads an identifier, constant, label or reserved word.
// Method-style suffixes ? and ! are part of the identifier.
func (l *Lexer) readIdentifier(pos Position) Token {
	start := l.pos
	for isIdentChar(l.ch) {
		l.readChar()
	}
	if (l.ch == '?' || l.ch == '!') && l.peekChar() != '=' {
		l.readChar()
	}
	literal := l.input[start:l.pos]

	if l.ch == ':' && l.peekChar() != ':' && !isLetter(l.peekChar()) && l.peekChar() != '"' {
		l.readChar() // consume :
		return Token{Type: TokenLabel, Literal: literal, Pos: pos}
	}

	if tokType, ok := reservedWords[literal]; ok {
		return Token{Type: tokType, Literal: literal, Pos: pos}
	}
	if r, _ := utf8.DecodeRuneInString(literal); unicode.IsUpper(r) {
		return Token{Type: TokenConstant, Literal: literal, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: literal, Pos: pos}
}

// readOperator reads one of = == != < <= > >= + - << =>.
func (l *Lexer) readOperator(pos Position) Token {
	first := l.ch
	l.readChar()

	two := string(first) + string(l.ch)
	switch two {
	case "==", "!=", "<=", ">=", "<<":
		l.readChar()
		return Token{Type: TokenOperator, Literal: two, Pos: pos}
	case "=>":
		l.readChar()
		return Token{Type: TokenArrow, Literal: two, Pos: pos}
	}

	switch first {
	case '=':
		return Token{Type: TokenAssign, Literal: "=", Pos: pos}
	case '<', '>', '+', '-':
		return Token{Type: TokenOperator, Literal: string(first), Pos: pos}
	}
	return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character: %c", first), Pos: pos}
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentChar(r rune) bool {
	return isLetter(r) || isDigit(r) || r == '_'
}

// Tokenize returns all tokens from the input.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}
	return tokens
}
