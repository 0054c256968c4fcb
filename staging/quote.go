package staging

import (
	"strings"

	"github.com/ChezJrk/exo/ast"
	"github.com/ChezJrk/exo/token"
)

// QuoteKind classifies what a splice position receives. Statement and
// Expression quotes are first-class host values; the remaining kinds
// name the coercion classes of plain host values in error messages.
type QuoteKind int

const (
	StatementQuote QuoteKind = iota
	ExpressionQuote
	NumberQuote
	TypeStringQuote
	MemoryRefQuote
)

var quoteKindNames = map[QuoteKind]string{
	StatementQuote:  "statement",
	ExpressionQuote: "expression",
	NumberQuote:     "number",
	TypeStringQuote: "type string",
	MemoryRefQuote:  "memory reference",
}

func (k QuoteKind) String() string { return quoteKindNames[k] }

// Quote is a captured fragment of object code. A statement quote holds
// its region body unevaluated; every splice re-instantiates it against
// Env, the scope chain captured when the binding was made. An
// expression quote holds a finished tree that splices clone.
//
// Quotes compare by reference. Two captures of the same source text
// are distinct values.
type Quote struct {
	Kind  QuoteKind
	Stmts []ast.Statement
	Expr  ast.Expression
	Env   *Env
	Tok   token.Token
}

func (q *Quote) Type() ValueType { return QuoteType }

func (q *Quote) Inspect() string {
	switch q.Kind {
	case StatementQuote:
		parts := make([]string, len(q.Stmts))
		for i, s := range q.Stmts {
			parts[i] = s.String()
		}
		return strings.Join(parts, "\n")
	case ExpressionQuote:
		return q.Expr.String()
	}
	return quoteKindNames[q.Kind] + " quote"
}

// spliceKind describes a host value the way the splice rules see it.
func spliceKind(v Value) string {
	switch val := v.(type) {
	case *Quote:
		return val.Kind.String() + " quote"
	case *Int, *Float:
		return quoteKindNames[NumberQuote]
	case *Str:
		return quoteKindNames[TypeStringQuote]
	case *MemRef:
		return quoteKindNames[MemoryRefQuote]
	default:
		return string(v.Type())
	}
}
