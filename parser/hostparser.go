package parser

import (
	"fmt"
	"strconv"

	"github.com/ChezJrk/exo/ast"
	"github.com/ChezJrk/exo/token"
)

// Host-language grammar: the statements and expressions of "with
// python" regions, which run at staging time. "with exo" blocks and
// "~{e}" captures switch back into the object grammar.

// parseHostBlock parses ": NEWLINE INDENT stmts DEINDENT". It is
// called with curToken on the colon and returns with curToken on the
// closing DEINDENT.
func (p *Parser) parseHostBlock() []ast.HostStatement {
	if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	if !p.expectPeek(token.INDENT) {
		return nil
	}

	stmts := []ast.HostStatement{}
	p.nextToken()
	for !p.curTokenIs(token.DEINDENT) && !p.curTokenIs(token.EOF) {
		stmt := p.parseHostStatement()
		if stmt == nil {
			p.syncLine()
			if !p.curTokenIs(token.NEWLINE) {
				break
			}
			p.nextToken()
			continue
		}
		stmts = append(stmts, stmt)
		p.nextToken()
	}
	return stmts
}

func (p *Parser) parseHostStatement() ast.HostStatement {
	switch p.curToken.Type {
	case token.ILLEGAL:
		p.illegalError(p.curToken)
		return nil
	case token.FOR:
		return p.parseHostFor()
	case token.WHILE:
		return p.parseHostWhile()
	case token.IF:
		return p.parseHostIf()
	case token.DEF:
		return p.parseHostDef()
	case token.RETURN:
		return p.parseHostReturn()
	case token.PASS:
		stmt := &ast.HostPass{Token: p.curToken}
		if !p.expectPeek(token.NEWLINE) {
			return nil
		}
		return stmt
	case token.WITH:
		return p.parseWithExo()
	case token.IDENT:
		if p.peekTokenIs(token.ASSIGN) {
			return p.parseHostAssign()
		}
		return p.parseHostExprStatement()
	default:
		return p.parseHostExprStatement()
	}
}

func (p *Parser) parseHostAssign() ast.HostStatement {
	stmt := &ast.HostAssign{Token: p.curToken, Name: p.curToken.Literal}

	p.nextToken() // the = token
	p.nextToken()
	stmt.Value = p.parseHostExpression(LOWEST)
	if stmt.Value == nil {
		return nil
	}
	if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	return stmt
}

func (p *Parser) parseHostExprStatement() ast.HostStatement {
	stmt := &ast.HostExprStmt{Token: p.curToken}

	stmt.Expr = p.parseHostExpression(LOWEST)
	if stmt.Expr == nil {
		return nil
	}
	if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	return stmt
}

func (p *Parser) parseHostFor() ast.HostStatement {
	f := &ast.HostFor{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	f.Iter = p.curToken.Literal

	if !p.expectPeek(token.IN) {
		return nil
	}
	p.nextToken()
	f.Seq = p.parseHostExpression(LOWEST)
	if f.Seq == nil {
		return nil
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}

	f.Body = p.parseHostBlock()
	if f.Body == nil {
		return nil
	}
	return f
}

func (p *Parser) parseHostWhile() ast.HostStatement {
	w := &ast.HostWhile{Token: p.curToken}

	p.nextToken()
	w.Cond = p.parseHostExpression(LOWEST)
	if w.Cond == nil {
		return nil
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}

	w.Body = p.parseHostBlock()
	if w.Body == nil {
		return nil
	}
	return w
}

func (p *Parser) parseHostIf() ast.HostStatement {
	stmt := &ast.HostIf{Token: p.curToken}

	p.nextToken()
	stmt.Cond = p.parseHostExpression(LOWEST)
	if stmt.Cond == nil {
		return nil
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}
	stmt.Then = p.parseHostBlock()
	if stmt.Then == nil {
		return nil
	}

	if p.peekTokenIs(token.ELIF) {
		p.nextToken()
		elif := p.parseHostIf()
		if elif == nil {
			return nil
		}
		stmt.Else = []ast.HostStatement{elif}
	} else if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		if !p.expectPeek(token.COLON) {
			return nil
		}
		stmt.Else = p.parseHostBlock()
		if stmt.Else == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseHostDef() ast.HostStatement {
	d := &ast.HostDef{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	d.Name = p.curToken.Literal

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
	} else {
		for {
			if !p.expectPeek(token.IDENT) {
				return nil
			}
			d.Params = append(d.Params, p.curToken.Literal)
			if p.peekTokenIs(token.COMMA) {
				p.nextToken()
				continue
			}
			break
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
	}

	if !p.expectPeek(token.COLON) {
		return nil
	}
	d.Body = p.parseHostBlock()
	if d.Body == nil {
		return nil
	}
	return d
}

func (p *Parser) parseHostReturn() ast.HostStatement {
	stmt := &ast.HostReturn{Token: p.curToken}

	if p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
		return stmt
	}

	p.nextToken()
	stmt.Value = p.parseHostExpression(LOWEST)
	if stmt.Value == nil {
		return nil
	}
	if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	return stmt
}

func (p *Parser) parseWithExo() ast.HostStatement {
	tok := p.curToken

	if p.peekTokenIs(token.PYTHON) {
		p.addError(p.peekToken, "with python is only allowed inside an object region")
		return nil
	}
	if !p.expectPeek(token.EXO) {
		return nil
	}

	we := &ast.WithExo{Token: tok}
	if p.peekTokenIs(token.AS) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		we.Name = p.curToken.Literal
	}

	if !p.expectPeek(token.COLON) {
		return nil
	}
	we.Body = p.parseObjectBlock()
	if we.Body == nil {
		return nil
	}
	return we
}

func (p *Parser) parseHostExpression(precedence int) ast.HostExpression {
	prefix := p.hostPrefixFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixError()
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && precedence < p.peekPrecedence() {
		infix := p.hostInfixFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) parseHostIdent() ast.HostExpression {
	return &ast.HostIdent{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseHostInt() ast.HostExpression {
	lit := &ast.HostInt{Token: p.curToken}

	value, err := strconv.ParseInt(p.curToken.Literal, 0, 64)
	if err != nil {
		p.addError(p.curToken, fmt.Sprintf("could not parse %q as integer", p.curToken.Literal))
		return nil
	}
	lit.Value = value

	return lit
}

func (p *Parser) parseHostFloat() ast.HostExpression {
	lit := &ast.HostFloat{Token: p.curToken}

	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.addError(p.curToken, fmt.Sprintf("could not parse %q as float", p.curToken.Literal))
		return nil
	}
	lit.Value = value

	return lit
}

func (p *Parser) parseHostString() ast.HostExpression {
	return &ast.HostString{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseHostBool() ast.HostExpression {
	return &ast.HostBool{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseHostPrefixExpr() ast.HostExpression {
	expression := &ast.HostPrefix{Token: p.curToken, Operator: p.curToken.Literal}

	precedence := PREFIX
	if p.curTokenIs(token.NOT) {
		precedence = NOT
	}
	p.nextToken()
	expression.Right = p.parseHostExpression(precedence)
	if expression.Right == nil {
		return nil
	}

	return expression
}

func (p *Parser) parseHostInfixExpr(left ast.HostExpression) ast.HostExpression {
	expression := &ast.HostInfix{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseHostExpression(precedence)
	if expression.Right == nil {
		return nil
	}

	return expression
}

func (p *Parser) parseGroupedHost() ast.HostExpression {
	p.nextToken()

	exp := p.parseHostExpression(LOWEST)
	if exp == nil {
		return nil
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}

	return exp
}

func (p *Parser) parseHostList() ast.HostExpression {
	lst := &ast.HostList{Token: p.curToken}

	if p.peekTokenIs(token.RBRACK) {
		p.nextToken()
		return lst
	}

	for {
		p.nextToken()
		e := p.parseHostExpression(LOWEST)
		if e == nil {
			return nil
		}
		lst.Elems = append(lst.Elems, e)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expectPeek(token.RBRACK) {
		return nil
	}
	return lst
}

func (p *Parser) parseHostCall(fn ast.HostExpression) ast.HostExpression {
	call := &ast.HostCall{Token: p.curToken, Fn: fn}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return call
	}

	for {
		p.nextToken()
		arg := p.parseHostExpression(LOWEST)
		if arg == nil {
			return nil
		}
		call.Args = append(call.Args, arg)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return call
}

func (p *Parser) parseHostIndex(x ast.HostExpression) ast.HostExpression {
	idx := &ast.HostIndex{Token: p.curToken, X: x}

	p.nextToken()
	idx.Index = p.parseHostExpression(LOWEST)
	if idx.Index == nil {
		return nil
	}

	if !p.expectPeek(token.RBRACK) {
		return nil
	}
	return idx
}

// parseCapture parses "~{e}", which captures an object expression as
// a quote value.
func (p *Parser) parseCapture() ast.HostExpression {
	tok := p.curToken

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	p.nextToken()
	body := p.parseObjectExpression(LOWEST)
	if body == nil {
		return nil
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return &ast.Capture{Token: tok, Body: body}
}
