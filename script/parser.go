package script

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent parser for hash scripts
// ---------------------------------------------------------------------------

// Parser parses script source into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    []string
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a whole program and returns its statements, or an error
// listing every parse error.
func Parse(input string) ([]Expr, error) {
	p := NewParser(input)
	stmts := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, errors.New(strings.Join(errs, "\n"))
	}
	return stmts, nil
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) curOperatorIs(ops ...string) bool {
	if !p.curTokenIs(TokenOperator) {
		return false
	}
	for _, op := range ops {
		if p.curToken.Literal == op {
			return true
		}
	}
	return false
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.curToken)
	return false
}

func (p *Parser) errorf(format string, args ...any) {
	msg := fmt.Sprintf("line %d: %s", p.curToken.Pos.Line, fmt.Sprintf(format, args...))
	p.errors = append(p.errors, msg)
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) skipNewlines() {
	for p.curTokenIs(TokenNewline) {
		p.nextToken()
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// ParseProgram parses statements until EOF.
func (p *Parser) ParseProgram() []Expr {
	return p.parseStatements(TokenEOF)
}

// parseStatements parses newline-separated statements up to (not
// including) the terminator token.
func (p *Parser) parseStatements(terminator TokenType) []Expr {
	var stmts []Expr
	for {
		p.skipNewlines()
		if p.curTokenIs(terminator) || p.curTokenIs(TokenEOF) {
			return stmts
		}
		stmt := p.parseStatement()
		if stmt == nil {
			p.recover(terminator)
			continue
		}
		stmts = append(stmts, stmt)

		if !p.curTokenIs(TokenNewline) && !p.curTokenIs(terminator) && !p.curTokenIs(TokenEOF) {
			p.errorf("unexpected %s", p.curToken)
			p.recover(terminator)
		}
	}
}

// recover skips to the next statement boundary after an error.
func (p *Parser) recover(terminator TokenType) {
	for !p.curTokenIs(TokenNewline) && !p.curTokenIs(terminator) && !p.curTokenIs(TokenEOF) {
		p.nextToken()
	}
}

func (p *Parser) parseStatement() Expr {
	if p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenAssign) {
		tok := p.curToken
		p.nextToken() // name
		p.nextToken() // =
		p.skipNewlines()
		value := p.parseExpression()
		if value == nil {
			return nil
		}
		return &Assign{Pos: tok.Pos, Name: tok.Literal, Value: value}
	}
	return p.parseExpression()
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *Parser) parseExpression() Expr {
	left := p.parseAdditive()
	if left == nil {
		return nil
	}
	if p.curOperatorIs("==", "!=", "<", "<=", ">", ">=") {
		tok := p.curToken
		p.nextToken()
		p.skipNewlines()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		return &Send{Pos: tok.Pos, Receiver: left, Name: tok.Literal, Args: []Expr{right}}
	}
	return left
}

func (p *Parser) parseAdditive() Expr {
	left := p.parsePostfix()
	for left != nil && p.curOperatorIs("+", "-", "<<") {
		tok := p.curToken
		p.nextToken()
		p.skipNewlines()
		right := p.parsePostfix()
		if right == nil {
			return nil
		}
		left = &Send{Pos: tok.Pos, Receiver: left, Name: tok.Literal, Args: []Expr{right}}
	}
	return left
}

func (p *Parser) parsePostfix() Expr {
	expr := p.parsePrimary()
	for expr != nil {
		switch {
		case p.curTokenIs(TokenPeriod):
			p.nextToken()
			p.skipNewlines()
			expr = p.parseMethodCall(expr)

		case p.curTokenIs(TokenLBracket):
			tok := p.curToken
			p.nextToken()
			args := p.parseArgList(TokenRBracket)
			if args == nil {
				return nil
			}
			if p.curTokenIs(TokenAssign) {
				p.nextToken()
				p.skipNewlines()
				value := p.parseExpression()
				if value == nil {
					return nil
				}
				return &Send{Pos: tok.Pos, Receiver: expr, Name: "[]=", Args: append(args, value)}
			}
			expr = &Send{Pos: tok.Pos, Receiver: expr, Name: "[]", Args: args}

		default:
			return expr
		}
	}
	return nil
}

// parseMethodCall parses the part of a send after the period.
func (p *Parser) parseMethodCall(recv Expr) Expr {
	tok := p.curToken
	var name string
	switch tok.Type {
	case TokenIdentifier, TokenConstant, TokenNil, TokenTrue, TokenFalse, TokenDo, TokenEnd:
		name = tok.Literal
	case TokenOperator:
		name = tok.Literal
	case TokenLBracket:
		if !p.peekTokenIs(TokenRBracket) {
			p.errorf("expected method name, got %s", tok)
			return nil
		}
		p.nextToken()
		name = "[]"
	default:
		p.errorf("expected method name, got %s", tok)
		return nil
	}
	p.nextToken()

	send := &Send{Pos: tok.Pos, Receiver: recv, Name: name}
	switch {
	case p.curTokenIs(TokenLParen):
		p.nextToken()
		if send.Args = p.parseArgList(TokenRParen); send.Args == nil {
			return nil
		}
	case p.curTokenIs(TokenAssign) && tok.Type == TokenIdentifier:
		p.nextToken()
		p.skipNewlines()
		value := p.parseExpression()
		if value == nil {
			return nil
		}
		send.Name += "="
		send.Args = []Expr{value}
		return send
	case p.startsCommandArg():
		if send.Args = p.parseCommandArgs(); send.Args == nil {
			return nil
		}
	}

	if p.curTokenIs(TokenLBrace) || p.curTokenIs(TokenDo) {
		if send.Block = p.parseBlock(); send.Block == nil {
			return nil
		}
	}
	return send
}

// startsCommandArg reports whether the current token begins an argument
// of a call written without parentheses, as in `p h` or `h.fetch :a`.
func (p *Parser) startsCommandArg() bool {
	switch p.curToken.Type {
	case TokenInteger, TokenFloat, TokenString, TokenSymbol, TokenIdentifier,
		TokenConstant, TokenNil, TokenTrue, TokenFalse:
		return true
	}
	return false
}

func (p *Parser) parseCommandArgs() []Expr {
	args := []Expr{}
	for {
		arg := p.parseExpression()
		if arg == nil {
			return nil
		}
		args = append(args, arg)
		if !p.curTokenIs(TokenComma) {
			return args
		}
		p.nextToken()
		p.skipNewlines()
	}
}

// parseArgList parses comma-separated expressions up to the closing token,
// which it consumes. It returns a non-nil slice on success.
func (p *Parser) parseArgList(closing TokenType) []Expr {
	args := []Expr{}
	p.skipNewlines()
	for !p.curTokenIs(closing) {
		arg := p.parseExpression()
		if arg == nil {
			return nil
		}
		args = append(args, arg)
		p.skipNewlines()
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
		p.skipNewlines()
	}
	if !p.expect(closing) {
		return nil
	}
	return args
}

func (p *Parser) parseBlock() *Block {
	tok := p.curToken
	closing := TokenRBrace
	if tok.Type == TokenDo {
		closing = TokenEnd
	}
	p.nextToken()
	p.skipNewlines()

	blk := &Block{Pos: tok.Pos}
	if p.curTokenIs(TokenBar) {
		p.nextToken()
		for !p.curTokenIs(TokenBar) {
			if !p.curTokenIs(TokenIdentifier) {
				p.errorf("expected block parameter, got %s", p.curToken)
				return nil
			}
			blk.Params = append(blk.Params, p.curToken.Literal)
			p.nextToken()
			if p.curTokenIs(TokenComma) {
				p.nextToken()
			}
		}
		p.nextToken() // closing |
	}

	blk.Body = p.parseStatements(closing)
	if !p.expect(closing) {
		return nil
	}
	return blk
}

func (p *Parser) parsePrimary() Expr {
	tok := p.curToken
	switch tok.Type {
	case TokenInteger:
		p.nextToken()
		n, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.errorf("integer literal %s out of range", tok.Literal)
			return nil
		}
		return &IntLit{Pos: tok.Pos, Value: n}

	case TokenFloat:
		p.nextToken()
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorf("bad float literal %s", tok.Literal)
			return nil
		}
		return &FloatLit{Pos: tok.Pos, Value: f}

	case TokenString:
		p.nextToken()
		return &StringLit{Pos: tok.Pos, Value: tok.Literal}

	case TokenSymbol:
		p.nextToken()
		return &SymbolLit{Pos: tok.Pos, Name: tok.Literal}

	case TokenNil:
		p.nextToken()
		return &NilLit{Pos: tok.Pos}

	case TokenTrue:
		p.nextToken()
		return &TrueLit{Pos: tok.Pos}

	case TokenFalse:
		p.nextToken()
		return &FalseLit{Pos: tok.Pos}

	case TokenConstant:
		p.nextToken()
		return &Constant{Pos: tok.Pos, Name: tok.Literal}

	case TokenIdentifier:
		p.nextToken()
		return p.parseIdentifier(tok)

	case TokenLBracket:
		p.nextToken()
		elems := p.parseArgList(TokenRBracket)
		if elems == nil {
			return nil
		}
		return &ArrayLit{Pos: tok.Pos, Elements: elems}

	case TokenLBrace:
		return p.parseHashLiteral()

	case TokenLParen:
		p.nextToken()
		p.skipNewlines()
		expr := p.parseExpression()
		if expr == nil {
			return nil
		}
		p.skipNewlines()
		if !p.expect(TokenRParen) {
			return nil
		}
		return expr

	case TokenError:
		p.errorf("%s", tok.Literal)
		return nil
	}

	p.errorf("unexpected %s", tok)
	return nil
}

// parseIdentifier resolves a bare identifier into a variable read or a
// receiverless call.
func (p *Parser) parseIdentifier(tok Token) Expr {
	send := &Send{Pos: tok.Pos, Name: tok.Literal}
	switch {
	case p.curTokenIs(TokenLParen):
		p.nextToken()
		if send.Args = p.parseArgList(TokenRParen); send.Args == nil {
			return nil
		}
	case p.startsCommandArg():
		if send.Args = p.parseCommandArgs(); send.Args == nil {
			return nil
		}
	case p.curTokenIs(TokenDo), p.curTokenIs(TokenLBrace):
	default:
		return &Variable{Pos: tok.Pos, Name: tok.Literal}
	}
	if p.curTokenIs(TokenLBrace) || p.curTokenIs(TokenDo) {
		if send.Block = p.parseBlock(); send.Block == nil {
			return nil
		}
	}
	return send
}

func (p *Parser) parseHashLiteral() Expr {
	tok := p.curToken
	p.nextToken() // {
	p.skipNewlines()

	lit := &HashLit{Pos: tok.Pos}
	for !p.curTokenIs(TokenRBrace) {
		var key Expr
		if p.curTokenIs(TokenLabel) {
			key = &SymbolLit{Pos: p.curToken.Pos, Name: p.curToken.Literal}
			p.nextToken()
		} else {
			if key = p.parseExpression(); key == nil {
				return nil
			}
			if !p.expect(TokenArrow) {
				return nil
			}
		}
		p.skipNewlines()
		value := p.parseExpression()
		if value == nil {
			return nil
		}
		lit.Keys = append(lit.Keys, key)
		lit.Values = append(lit.Values, value)

		p.skipNewlines()
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
		p.skipNewlines()
	}
	if !p.expect(TokenRBrace) {
		return nil
	}
	return lit
}
