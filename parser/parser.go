package parser

import (
	"fmt"

	"github.com/ChezJrk/exo/ast"
	"github.com/ChezJrk/exo/lexer"
	"github.com/ChezJrk/exo/token"
	"github.com/ChezJrk/exo/types"
)

const (
	_ int = iota
	LOWEST
	OR          // or
	AND         // and
	NOT         // not x
	LESSGREATER // > or <
	SUM         // +
	PRODUCT     // *
	PREFIX      // -x
	CALL        // f(x) or x[i]
)

var precedences = map[token.TokenType]int{
	token.OR:     OR,
	token.AND:    AND,
	token.EQL:    LESSGREATER,
	token.NEQ:    LESSGREATER,
	token.LSS:    LESSGREATER,
	token.GTR:    LESSGREATER,
	token.LEQ:    LESSGREATER,
	token.GEQ:    LESSGREATER,
	token.ADD:    SUM,
	token.SUB:    SUM,
	token.MUL:    PRODUCT,
	token.QUO:    PRODUCT,
	token.REM:    PRODUCT,
	token.LPAREN: CALL,
	token.LBRACK: CALL,
}

type (
	objPrefixFn  func() ast.Expression
	objInfixFn   func(ast.Expression) ast.Expression
	hostPrefixFn func() ast.HostExpression
	hostInfixFn  func(ast.HostExpression) ast.HostExpression
)

// Parser parses one source file. Object regions and host regions have
// separate grammars, so the parser keeps two Pratt tables and switches
// between them as "with python" and "with exo" blocks nest.
type Parser struct {
	l      *lexer.Lexer
	errors []*token.CompileError

	curToken  token.Token
	peekToken token.Token

	objPrefixFns  map[token.TokenType]objPrefixFn
	objInfixFns   map[token.TokenType]objInfixFn
	hostPrefixFns map[token.TokenType]hostPrefixFn
	hostInfixFns  map[token.TokenType]hostInfixFn
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		errors: []*token.CompileError{},
	}

	p.objPrefixFns = make(map[token.TokenType]objPrefixFn)
	p.registerObjPrefix(token.IDENT, p.parseRead)
	p.registerObjPrefix(token.INT, p.parseIntLit)
	p.registerObjPrefix(token.FLOAT, p.parseFloatLit)
	p.registerObjPrefix(token.TRUE, p.parseBoolLit)
	p.registerObjPrefix(token.FALSE, p.parseBoolLit)
	p.registerObjPrefix(token.SUB, p.parseUSub)
	p.registerObjPrefix(token.LPAREN, p.parseGroupedObject)
	p.registerObjPrefix(token.LBRACE, p.parseSpliceExpr)

	p.objInfixFns = make(map[token.TokenType]objInfixFn)
	p.registerObjInfix(token.ADD, p.parseBinOp)
	p.registerObjInfix(token.SUB, p.parseBinOp)
	p.registerObjInfix(token.MUL, p.parseBinOp)
	p.registerObjInfix(token.QUO, p.parseBinOp)
	p.registerObjInfix(token.REM, p.parseBinOp)
	p.registerObjInfix(token.EQL, p.parseBinOp)
	p.registerObjInfix(token.NEQ, p.parseBinOp)
	p.registerObjInfix(token.LSS, p.parseBinOp)
	p.registerObjInfix(token.GTR, p.parseBinOp)
	p.registerObjInfix(token.LEQ, p.parseBinOp)
	p.registerObjInfix(token.GEQ, p.parseBinOp)
	p.registerObjInfix(token.AND, p.parseBinOp)
	p.registerObjInfix(token.OR, p.parseBinOp)
	p.registerObjInfix(token.LBRACK, p.parseReadIndex)

	p.hostPrefixFns = make(map[token.TokenType]hostPrefixFn)
	p.registerHostPrefix(token.IDENT, p.parseHostIdent)
	p.registerHostPrefix(token.RANGE, p.parseHostIdent)
	p.registerHostPrefix(token.INT, p.parseHostInt)
	p.registerHostPrefix(token.FLOAT, p.parseHostFloat)
	p.registerHostPrefix(token.STRING, p.parseHostString)
	p.registerHostPrefix(token.TRUE, p.parseHostBool)
	p.registerHostPrefix(token.FALSE, p.parseHostBool)
	p.registerHostPrefix(token.SUB, p.parseHostPrefixExpr)
	p.registerHostPrefix(token.NOT, p.parseHostPrefixExpr)
	p.registerHostPrefix(token.LPAREN, p.parseGroupedHost)
	p.registerHostPrefix(token.LBRACK, p.parseHostList)
	p.registerHostPrefix(token.TILDE, p.parseCapture)

	p.hostInfixFns = make(map[token.TokenType]hostInfixFn)
	p.registerHostInfix(token.ADD, p.parseHostInfixExpr)
	p.registerHostInfix(token.SUB, p.parseHostInfixExpr)
	p.registerHostInfix(token.MUL, p.parseHostInfixExpr)
	p.registerHostInfix(token.QUO, p.parseHostInfixExpr)
	p.registerHostInfix(token.REM, p.parseHostInfixExpr)
	p.registerHostInfix(token.EQL, p.parseHostInfixExpr)
	p.registerHostInfix(token.NEQ, p.parseHostInfixExpr)
	p.registerHostInfix(token.LSS, p.parseHostInfixExpr)
	p.registerHostInfix(token.GTR, p.parseHostInfixExpr)
	p.registerHostInfix(token.LEQ, p.parseHostInfixExpr)
	p.registerHostInfix(token.GEQ, p.parseHostInfixExpr)
	p.registerHostInfix(token.AND, p.parseHostInfixExpr)
	p.registerHostInfix(token.OR, p.parseHostInfixExpr)
	p.registerHostInfix(token.LPAREN, p.parseHostCall)
	p.registerHostInfix(token.LBRACK, p.parseHostIndex)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

// Errors returns the accumulated parse errors, rendered.
func (p *Parser) Errors() []string {
	errs := make([]string, 0, len(p.errors))
	for _, ce := range p.errors {
		errs = append(errs, ce.Error())
	}
	return errs
}

func (p *Parser) addError(tok token.Token, msg string) {
	p.errors = append(p.errors, &token.CompileError{Token: tok, Msg: msg})
}

func (p *Parser) peekError(t token.TokenType) {
	p.addError(p.peekToken, fmt.Sprintf("expected next token to be %s, got %s instead", t, p.peekToken.Type))
}

// bindName checks an identifier being declared. Scalar type names stay
// reserved for type annotations and cannot name anything else.
func (p *Parser) bindName(tok token.Token, what string) bool {
	if !types.IsReservedTypeName(tok.Literal) {
		return true
	}
	p.addError(tok, fmt.Sprintf("cannot use reserved type name %s as %s", tok.Literal, what))
	return false
}

func (p *Parser) noPrefixError() {
	if p.curTokenIs(token.ILLEGAL) {
		p.illegalError(p.curToken)
		return
	}
	p.addError(p.curToken, fmt.Sprintf("unexpected token %s in expression", p.curToken.Type))
}

// illegalError reports a lexer-rejected token. Single-rune literals
// are stray characters; anything longer is already a message.
func (p *Parser) illegalError(tok token.Token) {
	msg := tok.Literal
	if len([]rune(msg)) == 1 {
		msg = fmt.Sprintf("illegal character %q", msg)
	}
	p.addError(tok, msg)
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// Parse parses a whole file of procedure definitions.
func (p *Parser) Parse() *ast.File {
	file := &ast.File{}
	seen := map[string]bool{}

	for !p.curTokenIs(token.EOF) {
		switch p.curToken.Type {
		case token.NEWLINE:
		case token.ILLEGAL:
			p.illegalError(p.curToken)
		case token.DEF:
			proc := p.parseProc()
			if proc == nil {
				p.syncToProc()
				continue
			}
			if seen[proc.Name] {
				p.addError(proc.Token, fmt.Sprintf("procedure %s has been previously defined", proc.Name))
				break
			}
			seen[proc.Name] = true
			file.Procs = append(file.Procs, proc)
		default:
			p.addError(p.curToken, fmt.Sprintf("expected a procedure definition, got %s", p.curToken.Type))
			p.syncToProc()
			continue
		}
		p.nextToken()
	}

	return file
}

// parseProc parses "def name(params):" and its body. It returns with
// curToken on the closing DEINDENT.
func (p *Parser) parseProc() *ast.Proc {
	proc := &ast.Proc{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	if !p.bindName(p.curToken, "a procedure name") {
		return nil
	}
	proc.Name = p.curToken.Literal

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	params, ok := p.parseParams()
	if !ok {
		return nil
	}
	proc.Params = params

	if !p.expectPeek(token.COLON) {
		return nil
	}
	proc.Body = p.parseObjectBlock()
	if proc.Body == nil {
		return nil
	}

	return proc
}

// parseParams parses the parameter list after the opening paren. It
// returns with curToken on the closing paren.
func (p *Parser) parseParams() ([]*ast.Param, bool) {
	params := []*ast.Param{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params, true
	}

	for {
		if !p.expectPeek(token.IDENT) {
			return nil, false
		}
		if !p.bindName(p.curToken, "a parameter name") {
			return nil, false
		}
		param := &ast.Param{Token: p.curToken, Name: p.curToken.Literal}
		if !p.expectPeek(token.COLON) {
			return nil, false
		}
		p.nextToken()
		param.Type = p.parseType()
		if param.Type == nil {
			return nil, false
		}
		param.Mem = p.parseMemAnnotation()
		params = append(params, param)

		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expectPeek(token.RPAREN) {
		return nil, false
	}
	return params, true
}

// syncToProc skips tokens until the next top-level definition after a
// parse failure.
func (p *Parser) syncToProc() {
	p.nextToken()
	for !p.curTokenIs(token.DEF) && !p.curTokenIs(token.EOF) {
		p.nextToken()
	}
}

// syncLine skips to the end of the current statement after a parse
// failure, so one mistake does not cascade.
func (p *Parser) syncLine() {
	for !p.curTokenIs(token.NEWLINE) && !p.curTokenIs(token.DEINDENT) && !p.curTokenIs(token.EOF) {
		p.nextToken()
	}
}

func (p *Parser) registerObjPrefix(tokenType token.TokenType, fn objPrefixFn) {
	p.objPrefixFns[tokenType] = fn
}

func (p *Parser) registerObjInfix(tokenType token.TokenType, fn objInfixFn) {
	p.objInfixFns[tokenType] = fn
}

func (p *Parser) registerHostPrefix(tokenType token.TokenType, fn hostPrefixFn) {
	p.hostPrefixFns[tokenType] = fn
}

func (p *Parser) registerHostInfix(tokenType token.TokenType, fn hostInfixFn) {
	p.hostInfixFns[tokenType] = fn
}
