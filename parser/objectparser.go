package parser

import (
	"fmt"
	"strconv"

	"github.com/ChezJrk/exo/ast"
	"github.com/ChezJrk/exo/token"
)

// Object-language grammar: the statements and expressions that
// describe the computation of a procedure. "{h}" splices switch into
// the host grammar for the bracketed expression.

// parseObjectBlock parses ": NEWLINE INDENT stmts DEINDENT". It is
// called with curToken on the colon and returns with curToken on the
// closing DEINDENT.
func (p *Parser) parseObjectBlock() []ast.Statement {
	if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	if !p.expectPeek(token.INDENT) {
		return nil
	}

	stmts := []ast.Statement{}
	p.nextToken()
	for !p.curTokenIs(token.DEINDENT) && !p.curTokenIs(token.EOF) {
		stmt := p.parseObjectStatement()
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

// parseObjectStatement parses one object statement. It returns with
// curToken on the statement's trailing NEWLINE, or on the closing
// DEINDENT for statements that carry a block.
func (p *Parser) parseObjectStatement() ast.Statement {
	switch p.curToken.Type {
	case token.ILLEGAL:
		p.illegalError(p.curToken)
		return nil
	case token.FOR:
		return p.parseSeqFor()
	case token.IF:
		return p.parseObjectIf()
	case token.PASS:
		return p.parsePass()
	case token.WITH:
		return p.parseWithPython()
	case token.LBRACE:
		return p.parseStmtSplice()
	case token.IDENT:
		switch p.peekToken.Type {
		case token.COLON:
			return p.parseAlloc()
		case token.LPAREN:
			return p.parseCallStmt()
		default:
			return p.parseAssignOrReduce()
		}
	default:
		p.addError(p.curToken, fmt.Sprintf("unexpected token %s at start of statement", p.curToken.Type))
		return nil
	}
}

func (p *Parser) parseAlloc() ast.Statement {
	if !p.bindName(p.curToken, "a buffer name") {
		return nil
	}
	alloc := &ast.Alloc{Token: p.curToken, Name: p.curToken.Literal}

	p.nextToken() // the colon
	p.nextToken()
	alloc.Type = p.parseType()
	if alloc.Type == nil {
		return nil
	}
	alloc.Mem = p.parseMemAnnotation()

	if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	return alloc
}

func (p *Parser) parseAssignOrReduce() ast.Statement {
	nameTok := p.curToken
	name := p.curToken.Literal

	var idx []ast.Expression
	if p.peekTokenIs(token.LBRACK) {
		p.nextToken()
		var ok bool
		idx, ok = p.parseIndexList()
		if !ok {
			return nil
		}
	}

	var reduce bool
	switch p.peekToken.Type {
	case token.ASSIGN:
	case token.ADD_ASSIGN:
		reduce = true
	default:
		p.addError(p.peekToken, fmt.Sprintf("expected = or += after assignment target, got %s", p.peekToken.Type))
		return nil
	}
	p.nextToken()

	p.nextToken()
	value := p.parseObjectExpression(LOWEST)
	if value == nil {
		return nil
	}
	if !p.expectPeek(token.NEWLINE) {
		return nil
	}

	if reduce {
		return &ast.Reduce{Token: nameTok, Name: name, Idx: idx, Value: value}
	}
	return &ast.Assign{Token: nameTok, Name: name, Idx: idx, Value: value}
}

func (p *Parser) parseCallStmt() ast.Statement {
	call := &ast.Call{Token: p.curToken, Name: p.curToken.Literal}

	p.nextToken() // the opening paren
	args, ok := p.parseObjectArgs()
	if !ok {
		return nil
	}
	call.Args = args

	if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	return call
}

// parseObjectArgs parses a parenthesized argument list. It is called
// with curToken on the opening paren and returns with curToken on the
// closing paren.
func (p *Parser) parseObjectArgs() ([]ast.Expression, bool) {
	args := []ast.Expression{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return args, true
	}

	for {
		p.nextToken()
		arg := p.parseObjectExpression(LOWEST)
		if arg == nil {
			return nil, false
		}
		args = append(args, arg)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expectPeek(token.RPAREN) {
		return nil, false
	}
	return args, true
}

func (p *Parser) parseSeqFor() ast.Statement {
	f := &ast.SeqFor{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	if !p.bindName(p.curToken, "a loop iterator") {
		return nil
	}
	f.Iter = p.curToken.Literal

	if !p.expectPeek(token.IN) {
		return nil
	}
	if !p.expectPeek(token.SEQ) {
		return nil
	}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	f.Lo = p.parseObjectExpression(LOWEST)
	if f.Lo == nil {
		return nil
	}
	if !p.expectPeek(token.COMMA) {
		return nil
	}
	p.nextToken()
	f.Hi = p.parseObjectExpression(LOWEST)
	if f.Hi == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}

	f.Body = p.parseObjectBlock()
	if f.Body == nil {
		return nil
	}
	return f
}

func (p *Parser) parseObjectIf() ast.Statement {
	stmt := &ast.If{Token: p.curToken}

	p.nextToken()
	stmt.Cond = p.parseObjectExpression(LOWEST)
	if stmt.Cond == nil {
		return nil
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}
	stmt.Then = p.parseObjectBlock()
	if stmt.Then == nil {
		return nil
	}

	if p.peekTokenIs(token.ELIF) {
		p.nextToken()
		elif := p.parseObjectIf()
		if elif == nil {
			return nil
		}
		stmt.Else = []ast.Statement{elif}
	} else if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		if !p.expectPeek(token.COLON) {
			return nil
		}
		stmt.Else = p.parseObjectBlock()
		if stmt.Else == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parsePass() ast.Statement {
	stmt := &ast.Pass{Token: p.curToken}
	if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	return stmt
}

func (p *Parser) parseWithPython() ast.Statement {
	tok := p.curToken

	if p.peekTokenIs(token.EXO) {
		p.addError(p.peekToken, "with exo is only allowed inside a with python region")
		return nil
	}
	if !p.expectPeek(token.PYTHON) {
		return nil
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}

	body := p.parseHostBlock()
	if body == nil {
		return nil
	}
	return &ast.WithPython{Token: tok, Body: body}
}

func (p *Parser) parseStmtSplice() ast.Statement {
	tok := p.curToken

	p.nextToken()
	inner := p.parseHostExpression(LOWEST)
	if inner == nil {
		return nil
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	return &ast.SpliceStmt{Token: tok, Inner: inner}
}

func (p *Parser) parseObjectExpression(precedence int) ast.Expression {
	prefix := p.objPrefixFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixError()
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && precedence < p.peekPrecedence() {
		infix := p.objInfixFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) parseRead() ast.Expression {
	return &ast.Read{Token: p.curToken, Name: p.curToken.Literal}
}

// parseReadIndex attaches an index list to a buffer reference.
func (p *Parser) parseReadIndex(left ast.Expression) ast.Expression {
	read, ok := left.(*ast.Read)
	if !ok || len(read.Idx) > 0 {
		p.addError(p.curToken, "only a buffer name can be indexed")
		return nil
	}
	idx, ok := p.parseIndexList()
	if !ok {
		return nil
	}
	read.Idx = idx
	return read
}

// parseIndexList parses "[i, j, lo:hi]". It is called with curToken
// on the opening bracket and returns with curToken on the closing
// bracket.
func (p *Parser) parseIndexList() ([]ast.Expression, bool) {
	if p.peekTokenIs(token.RBRACK) {
		p.addError(p.peekToken, "index list cannot be empty")
		return nil, false
	}

	idx := []ast.Expression{}
	for {
		p.nextToken()
		e := p.parseIndexExpr()
		if e == nil {
			return nil, false
		}
		idx = append(idx, e)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expectPeek(token.RBRACK) {
		return nil, false
	}
	return idx, true
}

// parseIndexExpr parses one index position, which may be a point
// expression or a "lo:hi" window.
func (p *Parser) parseIndexExpr() ast.Expression {
	lo := p.parseObjectExpression(LOWEST)
	if lo == nil {
		return nil
	}
	if !p.peekTokenIs(token.COLON) {
		return lo
	}

	p.nextToken()
	iv := &ast.Interval{Token: p.curToken, Lo: lo}
	p.nextToken()
	iv.Hi = p.parseObjectExpression(LOWEST)
	if iv.Hi == nil {
		return nil
	}
	return iv
}

func (p *Parser) parseIntLit() ast.Expression {
	lit := &ast.IntLit{Token: p.curToken}

	value, err := strconv.ParseInt(p.curToken.Literal, 0, 64)
	if err != nil {
		p.addError(p.curToken, fmt.Sprintf("could not parse %q as integer", p.curToken.Literal))
		return nil
	}
	lit.Value = value

	return lit
}

func (p *Parser) parseFloatLit() ast.Expression {
	lit := &ast.FloatLit{Token: p.curToken}

	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.addError(p.curToken, fmt.Sprintf("could not parse %q as float", p.curToken.Literal))
		return nil
	}
	lit.Value = value

	return lit
}

func (p *Parser) parseBoolLit() ast.Expression {
	return &ast.BoolLit{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseUSub() ast.Expression {
	expression := &ast.USub{Token: p.curToken}

	p.nextToken()
	expression.X = p.parseObjectExpression(PREFIX)
	if expression.X == nil {
		return nil
	}

	return expression
}

func (p *Parser) parseBinOp(left ast.Expression) ast.Expression {
	expression := &ast.BinOp{
		Token: p.curToken,
		Op:    p.curToken.Literal,
		Left:  left,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseObjectExpression(precedence)
	if expression.Right == nil {
		return nil
	}

	return expression
}

func (p *Parser) parseGroupedObject() ast.Expression {
	p.nextToken()

	exp := p.parseObjectExpression(LOWEST)
	if exp == nil {
		return nil
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}

	return exp
}

// parseSpliceExpr parses "{h}" in expression position. The inner
// expression belongs to the host grammar.
func (p *Parser) parseSpliceExpr() ast.Expression {
	tok := p.curToken

	p.nextToken()
	inner := p.parseHostExpression(LOWEST)
	if inner == nil {
		return nil
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return &ast.SpliceExpr{Token: tok, Inner: inner}
}

// parseType parses a scalar, a tensor or a type splice.
func (p *Parser) parseType() ast.Type {
	switch p.curToken.Type {
	case token.LBRACE:
		return p.parseTypeSplice()
	case token.IDENT:
		kind, ok := ast.LookupScalar(p.curToken.Literal)
		if !ok {
			p.addError(p.curToken, fmt.Sprintf("unknown type %s", p.curToken.Literal))
			return nil
		}
		scalar := &ast.Scalar{Token: p.curToken, Kind: kind}
		if !p.peekTokenIs(token.LBRACK) {
			return scalar
		}

		p.nextToken()
		tensor := &ast.Tensor{Token: p.curToken, Elem: scalar}
		for {
			p.nextToken()
			dim := p.parseObjectExpression(LOWEST)
			if dim == nil {
				return nil
			}
			tensor.Dims = append(tensor.Dims, dim)
			if p.peekTokenIs(token.COMMA) {
				p.nextToken()
				continue
			}
			break
		}
		if !p.expectPeek(token.RBRACK) {
			return nil
		}
		return tensor
	default:
		p.addError(p.curToken, fmt.Sprintf("expected a type, got %s", p.curToken.Type))
		return nil
	}
}

func (p *Parser) parseTypeSplice() ast.Type {
	tok := p.curToken

	p.nextToken()
	inner := p.parseHostExpression(LOWEST)
	if inner == nil {
		return nil
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return &ast.SpliceType{Token: tok, Inner: inner}
}

// parseMemAnnotation parses an optional "@ mem" suffix. It returns
// nil when the declaration has none.
func (p *Parser) parseMemAnnotation() ast.Mem {
	if !p.peekTokenIs(token.AT) {
		return nil
	}
	p.nextToken()

	p.nextToken()
	switch p.curToken.Type {
	case token.IDENT:
		return &ast.MemName{Token: p.curToken, Name: p.curToken.Literal}
	case token.LBRACE:
		return p.parseMemSplice()
	default:
		p.addError(p.curToken, fmt.Sprintf("expected a memory name after @, got %s", p.curToken.Type))
		return nil
	}
}

func (p *Parser) parseMemSplice() ast.Mem {
	tok := p.curToken

	p.nextToken()
	inner := p.parseHostExpression(LOWEST)
	if inner == nil {
		return nil
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return &ast.SpliceMem{Token: tok, Inner: inner}
}
