package staging

import (
	"strconv"

	"github.com/ChezJrk/exo/ast"
	"github.com/ChezJrk/exo/parser"
	"github.com/ChezJrk/exo/token"
)

// evalSplice evaluates the host expression of a value-producing
// splice. While it runs, executing an object region is forbidden: the
// emitted statements would have no unambiguous place relative to the
// statement the splice sits in.
func (ev *Evaluator) evalSplice(e ast.HostExpression, env *Env) (Value, *Error) {
	ev.spliceDepth++
	v, err := ev.evalHostExpr(e, env)
	ev.spliceDepth--
	return v, err
}

// coerceExpr applies the expression-position rule: an expression
// quote splices a fresh copy of its tree, and a primitive number or
// bool becomes the matching literal.
func (ev *Evaluator) coerceExpr(v Value, tok token.Token) (ast.Expression, *Error) {
	switch val := v.(type) {
	case *Quote:
		if val.Kind == ExpressionQuote {
			return ast.CloneExpr(val.Expr), nil
		}
		return nil, newError(ErrContextMismatch, tok,
			"cannot splice a %s quote where an expression is required", val.Kind)
	case *Int:
		return &ast.IntLit{Token: intToken(tok, val.Value), Value: val.Value}, nil
	case *Float:
		return &ast.FloatLit{Token: floatToken(tok, val.Value), Value: val.Value}, nil
	case *Bool:
		return &ast.BoolLit{Token: boolToken(tok, val.Value), Value: val.Value}, nil
	case *Str:
		return nil, newError(ErrContextMismatch, tok,
			"a string can only be spliced in type position")
	}
	return nil, newError(ErrContextMismatch, tok,
		"cannot splice a %s where an expression is required", spliceKind(v))
}

// coerceIndex applies the index-position rule, which restricts
// numbers to integers and additionally admits slice descriptors as
// index windows.
func (ev *Evaluator) coerceIndex(v Value, tok token.Token) (ast.Expression, *Error) {
	switch val := v.(type) {
	case *Quote:
		if val.Kind == ExpressionQuote {
			return ast.CloneExpr(val.Expr), nil
		}
		return nil, newError(ErrContextMismatch, tok,
			"cannot splice a %s quote where an index is required", val.Kind)
	case *Int:
		return &ast.IntLit{Token: intToken(tok, val.Value), Value: val.Value}, nil
	case *Float:
		return nil, newError(ErrContextMismatch, tok, "an index must be an integer, got a float")
	case *Slice:
		if val.Step != 1 {
			return nil, newError(ErrContextMismatch, tok,
				"a stepped slice cannot become an index window")
		}
		return &ast.Interval{
			Token: token.Token{Type: token.COLON, Literal: ":", Pos: tok.Pos},
			Lo:    &ast.IntLit{Token: intToken(tok, val.Lo), Value: val.Lo},
			Hi:    &ast.IntLit{Token: intToken(tok, val.Hi), Value: val.Hi},
		}, nil
	}
	return nil, newError(ErrContextMismatch, tok,
		"cannot splice a %s where an index is required", spliceKind(v))
}

// coerceType applies the type-position rule: the host value is
// coerced to a string and parsed under the type grammar.
func (ev *Evaluator) coerceType(v Value, tok token.Token) (ast.Type, *Error) {
	var s string
	if sv, ok := v.(*Str); ok {
		s = sv.Value
	} else {
		s = v.Inspect()
	}
	typ, cerr := parser.ParseTypeString(s)
	if cerr != nil {
		return nil, newError(ErrTypeStringParse, tok,
			"cannot parse %q as a type: %s", s, cerr.Msg)
	}
	return typ, nil
}

// coerceMem applies the memory-position rule: the value must be a
// registered memory reference, substituted without coercion.
func (ev *Evaluator) coerceMem(v Value, tok token.Token) (ast.Mem, *Error) {
	ref, ok := v.(*MemRef)
	if !ok {
		return nil, newError(ErrContextMismatch, tok,
			"cannot splice a %s where a memory space is required", spliceKind(v))
	}
	name := token.Token{Type: token.IDENT, Literal: ref.Mem.Name, Pos: tok.Pos}
	return &ast.MemName{Token: name, Name: ref.Mem.Name}, nil
}

// Literal tokens synthesized by splices carry the splice position, so
// later diagnostics still point at the source that produced them.

func intToken(at token.Token, v int64) token.Token {
	return token.Token{Type: token.INT, Literal: strconv.FormatInt(v, 10), Pos: at.Pos}
}

func floatToken(at token.Token, v float64) token.Token {
	return token.Token{Type: token.FLOAT, Literal: ast.FormatFloat(v), Pos: at.Pos}
}

func boolToken(at token.Token, v bool) token.Token {
	if v {
		return token.Token{Type: token.TRUE, Literal: "True", Pos: at.Pos}
	}
	return token.Token{Type: token.FALSE, Literal: "False", Pos: at.Pos}
}
