package parser

import (
	"github.com/ChezJrk/exo/ast"
	"github.com/ChezJrk/exo/lexer"
	"github.com/ChezJrk/exo/token"
)

// ParseTypeString parses a standalone type expression such as
// "f32[n, m]". Host strings spliced in type position go through here.
// The string must be a complete type with no splices of its own.
func ParseTypeString(src string) (ast.Type, *token.CompileError) {
	l := lexer.New("<type string>", src)
	p := New(l)

	typ := p.parseType()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	if typ == nil {
		return nil, &token.CompileError{Token: p.curToken, Msg: "expected a type"}
	}

	if !p.peekTokenIs(token.NEWLINE) && !p.peekTokenIs(token.EOF) {
		return nil, &token.CompileError{Token: p.peekToken, Msg: "unexpected trailing tokens after type"}
	}
	if tok, ok := typeSplicePos(typ); ok {
		return nil, &token.CompileError{Token: tok, Msg: "a type string cannot contain splices"}
	}
	return typ, nil
}

func typeSplicePos(t ast.Type) (token.Token, bool) {
	switch tt := t.(type) {
	case *ast.SpliceType:
		return tt.Token, true
	case *ast.Tensor:
		for _, d := range tt.Dims {
			if tok, ok := exprSplicePos(d); ok {
				return tok, true
			}
		}
	}
	return token.Token{}, false
}

func exprSplicePos(e ast.Expression) (token.Token, bool) {
	switch ex := e.(type) {
	case *ast.SpliceExpr:
		return ex.Token, true
	case *ast.BinOp:
		if tok, ok := exprSplicePos(ex.Left); ok {
			return tok, true
		}
		return exprSplicePos(ex.Right)
	case *ast.USub:
		return exprSplicePos(ex.X)
	case *ast.Interval:
		if tok, ok := exprSplicePos(ex.Lo); ok {
			return tok, true
		}
		return exprSplicePos(ex.Hi)
	case *ast.Read:
		for _, i := range ex.Idx {
			if tok, ok := exprSplicePos(i); ok {
				return tok, true
			}
		}
	}
	return token.Token{}, false
}
