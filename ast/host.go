package ast

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/ChezJrk/exo/token"
)

// Host statements

// HostAssign binds or rebinds a host variable, e.g. "k = n // no".
type HostAssign struct {
	Token token.Token // the target name token
	Name  string
	Value HostExpression
}

func (ha *HostAssign) hostStatementNode() {}
func (ha *HostAssign) Tok() token.Token   { return ha.Token }
func (ha *HostAssign) String() string {
	return ha.Name + " = " + ha.Value.String()
}

// HostFor iterates a host variable over an iterable, e.g.
// "for i in range(0, 10):".
type HostFor struct {
	Token token.Token // the for token
	Iter  string
	Seq   HostExpression
	Body  []HostStatement
}

func (hf *HostFor) hostStatementNode() {}
func (hf *HostFor) Tok() token.Token   { return hf.Token }
func (hf *HostFor) String() string {
	var out bytes.Buffer

	out.WriteString("for ")
	out.WriteString(hf.Iter)
	out.WriteString(" in ")
	out.WriteString(hf.Seq.String())
	out.WriteString(":\n")
	out.WriteString(indentHostBlock(hf.Body))

	return out.String()
}

type HostWhile struct {
	Token token.Token // the while token
	Cond  HostExpression
	Body  []HostStatement
}

func (hw *HostWhile) hostStatementNode() {}
func (hw *HostWhile) Tok() token.Token   { return hw.Token }
func (hw *HostWhile) String() string {
	var out bytes.Buffer

	out.WriteString("while ")
	out.WriteString(hw.Cond.String())
	out.WriteString(":\n")
	out.WriteString(indentHostBlock(hw.Body))

	return out.String()
}

// HostIf branches host control flow. An elif chain parses into a
// nested HostIf in Else.
type HostIf struct {
	Token token.Token // the if token
	Cond  HostExpression
	Then  []HostStatement
	Else  []HostStatement
}

func (hi *HostIf) hostStatementNode() {}
func (hi *HostIf) Tok() token.Token   { return hi.Token }
func (hi *HostIf) String() string {
	var out bytes.Buffer

	out.WriteString("if ")
	out.WriteString(hi.Cond.String())
	out.WriteString(":\n")
	out.WriteString(indentHostBlock(hi.Then))
	if len(hi.Else) > 0 {
		out.WriteString("\nelse:\n")
		out.WriteString(indentHostBlock(hi.Else))
	}

	return out.String()
}

// HostDef defines a host function. Host functions run entirely at
// staging time.
type HostDef struct {
	Token  token.Token // the def token
	Name   string
	Params []string
	Body   []HostStatement
}

func (hd *HostDef) hostStatementNode() {}
func (hd *HostDef) Tok() token.Token   { return hd.Token }
func (hd *HostDef) String() string {
	var out bytes.Buffer

	out.WriteString("def ")
	out.WriteString(hd.Name)
	out.WriteString("(")
	out.WriteString(strings.Join(hd.Params, ", "))
	out.WriteString("):\n")
	out.WriteString(indentHostBlock(hd.Body))

	return out.String()
}

// HostReturn returns from the enclosing host function. Value is nil
// for a bare return.
type HostReturn struct {
	Token token.Token // the return token
	Value HostExpression
}

func (hr *HostReturn) hostStatementNode() {}
func (hr *HostReturn) Tok() token.Token   { return hr.Token }
func (hr *HostReturn) String() string {
	if hr.Value == nil {
		return "return"
	}
	return "return " + hr.Value.String()
}

type HostPass struct {
	Token token.Token
}

func (hp *HostPass) hostStatementNode() {}
func (hp *HostPass) Tok() token.Token   { return hp.Token }
func (hp *HostPass) String() string     { return "pass" }

// HostExprStmt evaluates an expression for its effect, e.g. a call to
// a host function that emits object statements.
type HostExprStmt struct {
	Token token.Token
	Expr  HostExpression
}

func (he *HostExprStmt) hostStatementNode() {}
func (he *HostExprStmt) Tok() token.Token   { return he.Token }
func (he *HostExprStmt) String() string     { return he.Expr.String() }

// WithExo embeds an object region in host code. With no name the
// region's statements are instantiated and appended to the procedure
// under construction each time the region executes. With "as name"
// the region is captured unevaluated as a statement quote bound to
// name.
type WithExo struct {
	Token token.Token // the with token
	Name  string      // "" when the region is not captured
	Body  []Statement
}

func (we *WithExo) hostStatementNode() {}
func (we *WithExo) Tok() token.Token   { return we.Token }
func (we *WithExo) String() string {
	var out bytes.Buffer

	out.WriteString("with exo")
	if we.Name != "" {
		out.WriteString(" as ")
		out.WriteString(we.Name)
	}
	out.WriteString(":\n")
	out.WriteString(indentBlock(we.Body))

	return out.String()
}

// Host expressions

// HostIdent names a host binding. When no host binding exists and an
// object binding of the same name is visible, staging quotes the
// object reference instead.
type HostIdent struct {
	Token token.Token
	Value string
}

func (hi *HostIdent) hostExpressionNode() {}
func (hi *HostIdent) Tok() token.Token    { return hi.Token }
func (hi *HostIdent) String() string      { return hi.Value }

type HostInt struct {
	Token token.Token
	Value int64
}

func (hi *HostInt) hostExpressionNode() {}
func (hi *HostInt) Tok() token.Token    { return hi.Token }
func (hi *HostInt) String() string      { return strconv.FormatInt(hi.Value, 10) }

type HostFloat struct {
	Token token.Token
	Value float64
}

func (hf *HostFloat) hostExpressionNode() {}
func (hf *HostFloat) Tok() token.Token    { return hf.Token }
func (hf *HostFloat) String() string      { return FormatFloat(hf.Value) }

type HostString struct {
	Token token.Token
	Value string
}

func (hs *HostString) hostExpressionNode() {}
func (hs *HostString) Tok() token.Token    { return hs.Token }
func (hs *HostString) String() string      { return strconv.Quote(hs.Value) }

type HostBool struct {
	Token token.Token
	Value bool
}

func (hb *HostBool) hostExpressionNode() {}
func (hb *HostBool) Tok() token.Token    { return hb.Token }
func (hb *HostBool) String() string {
	if hb.Value {
		return "True"
	}
	return "False"
}

// HostPrefix is a prefix operation, "-x" or "not x".
type HostPrefix struct {
	Token    token.Token // the operator token
	Operator string
	Right    HostExpression
}

func (hp *HostPrefix) hostExpressionNode() {}
func (hp *HostPrefix) Tok() token.Token    { return hp.Token }
func (hp *HostPrefix) String() string {
	if hp.Operator == "not" {
		return "(not " + hp.Right.String() + ")"
	}
	return "(" + hp.Operator + hp.Right.String() + ")"
}

type HostInfix struct {
	Token    token.Token // the operator token
	Left     HostExpression
	Operator string
	Right    HostExpression
}

func (hi *HostInfix) hostExpressionNode() {}
func (hi *HostInfix) Tok() token.Token    { return hi.Token }
func (hi *HostInfix) String() string {
	var out bytes.Buffer

	out.WriteString("(")
	out.WriteString(hi.Left.String())
	out.WriteString(" ")
	out.WriteString(hi.Operator)
	out.WriteString(" ")
	out.WriteString(hi.Right.String())
	out.WriteString(")")

	return out.String()
}

// HostCall applies a host function or builtin.
type HostCall struct {
	Token token.Token // the ( token
	Fn    HostExpression
	Args  []HostExpression
}

func (hc *HostCall) hostExpressionNode() {}
func (hc *HostCall) Tok() token.Token    { return hc.Token }
func (hc *HostCall) String() string {
	args := make([]string, 0, len(hc.Args))
	for _, a := range hc.Args {
		args = append(args, a.String())
	}
	return hc.Fn.String() + "(" + strings.Join(args, ", ") + ")"
}

// HostIndex selects a list element, "xs[i]".
type HostIndex struct {
	Token token.Token // the [ token
	X     HostExpression
	Index HostExpression
}

func (hx *HostIndex) hostExpressionNode() {}
func (hx *HostIndex) Tok() token.Token    { return hx.Token }
func (hx *HostIndex) String() string {
	return hx.X.String() + "[" + hx.Index.String() + "]"
}

// HostList is a list literal, "[a, b, c]".
type HostList struct {
	Token token.Token // the [ token
	Elems []HostExpression
}

func (hl *HostList) hostExpressionNode() {}
func (hl *HostList) Tok() token.Token    { return hl.Token }
func (hl *HostList) String() string {
	elems := make([]string, 0, len(hl.Elems))
	for _, e := range hl.Elems {
		elems = append(elems, e.String())
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// Capture is "~{e}", capturing the object expression e as an
// expression quote. The expression is instantiated against the scope
// in force at the capture site.
type Capture struct {
	Token token.Token // the ~ token
	Body  Expression
}

func (c *Capture) hostExpressionNode() {}
func (c *Capture) Tok() token.Token    { return c.Token }
func (c *Capture) String() string {
	return "~{" + c.Body.String() + "}"
}
