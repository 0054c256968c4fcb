package ast

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/ChezJrk/exo/token"
)

// The base Node interface
type Node interface {
	Tok() token.Token
	String() string
}

// Statement nodes of the object language implement this. Object
// statements describe the computation a procedure performs.
type Statement interface {
	Node
	statementNode()
}

// Expression nodes of the object language implement this.
type Expression interface {
	Node
	expressionNode()
}

// HostStatement nodes appear inside "with python" regions and run
// during staging instead of becoming part of the procedure.
type HostStatement interface {
	Node
	hostStatementNode()
}

// HostExpression nodes are evaluated by the staging interpreter.
type HostExpression interface {
	Node
	hostExpressionNode()
}

// File is one parsed source file.
type File struct {
	Procs []*Proc
}

func (f *File) Tok() token.Token {
	if len(f.Procs) > 0 {
		return f.Procs[0].Tok()
	}
	return token.Token{Type: token.EOF, Literal: ""}
}

func (f *File) String() string {
	parts := make([]string, 0, len(f.Procs))
	for _, p := range f.Procs {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, "\n\n")
}

// Proc is one procedure definition. Before staging its body may
// contain placeholder nodes (SpliceExpr, SpliceStmt, WithPython and
// friends); after staging the body is placeholder free.
type Proc struct {
	Token  token.Token // the def token
	Name   string
	Params []*Param
	Body   []Statement
}

func (p *Proc) Tok() token.Token { return p.Token }
func (p *Proc) String() string {
	var out bytes.Buffer

	out.WriteString("def ")
	out.WriteString(p.Name)
	out.WriteString("(")
	for i, prm := range p.Params {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(prm.String())
	}
	out.WriteString("):\n")
	out.WriteString(indentBlock(p.Body))

	return out.String()
}

// Param declares one procedure argument, e.g. "A: f32[n, m] @ DRAM".
// Mem is nil when the declaration carries no @ annotation.
type Param struct {
	Token token.Token // the parameter name token
	Name  string
	Type  Type
	Mem   Mem
}

func (p *Param) Tok() token.Token { return p.Token }
func (p *Param) String() string {
	s := p.Name + ": " + p.Type.String()
	if p.Mem != nil {
		s += " @ " + p.Mem.String()
	}
	return s
}

// indentBlock renders statements indented one level, joined by
// newlines, with no trailing newline.
func indentBlock(stmts []Statement) string {
	lines := []string{}
	for _, s := range stmts {
		for _, ln := range strings.Split(s.String(), "\n") {
			lines = append(lines, "    "+ln)
		}
	}
	return strings.Join(lines, "\n")
}

func indentHostBlock(stmts []HostStatement) string {
	lines := []string{}
	for _, s := range stmts {
		for _, ln := range strings.Split(s.String(), "\n") {
			lines = append(lines, "    "+ln)
		}
	}
	return strings.Join(lines, "\n")
}

func printVec(a []Expression) string {
	if len(a) == 0 {
		return ""
	}

	ret := a[0].String()
	for _, val := range a[1:] {
		ret += ", "
		ret += val.String()
	}

	return ret
}

// Object statements

// Alloc declares a buffer or scalar local to the procedure,
// e.g. "tmp: f32[n] @ DRAM".
type Alloc struct {
	Token token.Token // the name token
	Name  string
	Type  Type
	Mem   Mem
}

func (a *Alloc) statementNode() {}
func (a *Alloc) Tok() token.Token { return a.Token }
func (a *Alloc) String() string {
	s := a.Name + ": " + a.Type.String()
	if a.Mem != nil {
		s += " @ " + a.Mem.String()
	}
	return s
}

// Assign writes a value to a buffer element, e.g. "x[i] = e". A
// scalar write has no indices.
type Assign struct {
	Token token.Token // the target name token
	Name  string
	Idx   []Expression
	Value Expression
}

func (as *Assign) statementNode() {}
func (as *Assign) Tok() token.Token { return as.Token }
func (as *Assign) String() string {
	return lhsString(as.Name, as.Idx) + " = " + as.Value.String()
}

// Reduce accumulates into a buffer element, e.g. "x[i] += e".
type Reduce struct {
	Token token.Token // the target name token
	Name  string
	Idx   []Expression
	Value Expression
}

func (r *Reduce) statementNode() {}
func (r *Reduce) Tok() token.Token { return r.Token }
func (r *Reduce) String() string {
	return lhsString(r.Name, r.Idx) + " += " + r.Value.String()
}

func lhsString(name string, idx []Expression) string {
	if len(idx) == 0 {
		return name
	}
	return name + "[" + printVec(idx) + "]"
}

// SeqFor is the sequential loop "for i in seq(lo, hi):".
type SeqFor struct {
	Token token.Token // the for token
	Iter  string
	Lo    Expression
	Hi    Expression
	Body  []Statement
}

func (f *SeqFor) statementNode() {}
func (f *SeqFor) Tok() token.Token { return f.Token }
func (f *SeqFor) String() string {
	var out bytes.Buffer

	out.WriteString("for ")
	out.WriteString(f.Iter)
	out.WriteString(" in seq(")
	out.WriteString(f.Lo.String())
	out.WriteString(", ")
	out.WriteString(f.Hi.String())
	out.WriteString("):\n")
	out.WriteString(indentBlock(f.Body))

	return out.String()
}

// If branches on an object condition. Else may be empty.
type If struct {
	Token token.Token // the if token
	Cond  Expression
	Then  []Statement
	Else  []Statement
}

func (i *If) statementNode() {}
func (i *If) Tok() token.Token { return i.Token }
func (i *If) String() string {
	var out bytes.Buffer

	out.WriteString("if ")
	out.WriteString(i.Cond.String())
	out.WriteString(":\n")
	out.WriteString(indentBlock(i.Then))
	if len(i.Else) > 0 {
		out.WriteString("\nelse:\n")
		out.WriteString(indentBlock(i.Else))
	}

	return out.String()
}

// Call invokes another procedure as a statement, e.g. "blur_x(n, m, f, inp)".
type Call struct {
	Token token.Token // the callee name token
	Name  string
	Args  []Expression
}

func (c *Call) statementNode() {}
func (c *Call) Tok() token.Token { return c.Token }
func (c *Call) String() string {
	return c.Name + "(" + printVec(c.Args) + ")"
}

// Pass is the empty statement.
type Pass struct {
	Token token.Token
}

func (p *Pass) statementNode() {}
func (p *Pass) Tok() token.Token { return p.Token }
func (p *Pass) String() string   { return "pass" }

// WithPython embeds a host region in statement position. The region
// runs during staging; only the object statements it emits survive.
type WithPython struct {
	Token token.Token // the with token
	Body  []HostStatement
}

func (w *WithPython) statementNode() {}
func (w *WithPython) Tok() token.Token { return w.Token }
func (w *WithPython) String() string {
	var out bytes.Buffer

	out.WriteString("with python:\n")
	out.WriteString(indentHostBlock(w.Body))

	return out.String()
}

// SpliceStmt is "{h}" in statement position. Staging replaces it with
// the instantiation of the statement quote h evaluates to.
type SpliceStmt struct {
	Token token.Token // the { token
	Inner HostExpression
}

func (s *SpliceStmt) statementNode() {}
func (s *SpliceStmt) Tok() token.Token { return s.Token }
func (s *SpliceStmt) String() string {
	return "{" + s.Inner.String() + "}"
}

// Object expressions

// Read references a buffer, scalar or loop iterator, optionally
// indexed, e.g. "x", "A[i, j]" or "A[i, lo:hi]". Before staging the
// name may still refer to a host binding.
type Read struct {
	Token token.Token // the name token
	Name  string
	Idx   []Expression
}

func (r *Read) expressionNode() {}
func (r *Read) Tok() token.Token { return r.Token }
func (r *Read) String() string {
	if len(r.Idx) == 0 {
		return r.Name
	}
	return r.Name + "[" + printVec(r.Idx) + "]"
}

type IntLit struct {
	Token token.Token
	Value int64
}

func (il *IntLit) expressionNode() {}
func (il *IntLit) Tok() token.Token { return il.Token }
func (il *IntLit) String() string   { return strconv.FormatInt(il.Value, 10) }

type FloatLit struct {
	Token token.Token
	Value float64
}

func (fl *FloatLit) expressionNode() {}
func (fl *FloatLit) Tok() token.Token { return fl.Token }
func (fl *FloatLit) String() string   { return FormatFloat(fl.Value) }

// FormatFloat renders a float the way the surface language spells it,
// keeping a decimal point on whole values so "2.0" does not print as
// "2".
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

type BoolLit struct {
	Token token.Token
	Value bool
}

func (bl *BoolLit) expressionNode() {}
func (bl *BoolLit) Tok() token.Token { return bl.Token }
func (bl *BoolLit) String() string {
	if bl.Value {
		return "True"
	}
	return "False"
}

// BinOp is a binary operation, e.g. "(a + b)".
type BinOp struct {
	Token token.Token // the operator token
	Left  Expression
	Op    string
	Right Expression
}

func (b *BinOp) expressionNode() {}
func (b *BinOp) Tok() token.Token { return b.Token }
func (b *BinOp) String() string {
	var out bytes.Buffer

	out.WriteString("(")
	out.WriteString(b.Left.String())
	out.WriteString(" ")
	out.WriteString(b.Op)
	out.WriteString(" ")
	out.WriteString(b.Right.String())
	out.WriteString(")")

	return out.String()
}

// USub is unary minus.
type USub struct {
	Token token.Token // the - token
	X     Expression
}

func (u *USub) expressionNode() {}
func (u *USub) Tok() token.Token { return u.Token }
func (u *USub) String() string   { return "(-" + u.X.String() + ")" }

// Interval is "lo:hi" in an index position, selecting a window of a
// buffer dimension.
type Interval struct {
	Token token.Token // the : token
	Lo    Expression
	Hi    Expression
}

func (iv *Interval) expressionNode() {}
func (iv *Interval) Tok() token.Token { return iv.Token }
func (iv *Interval) String() string {
	return iv.Lo.String() + ":" + iv.Hi.String()
}

// SpliceExpr is "{h}" in expression position. Staging replaces it
// with the object expression the host value h coerces to.
type SpliceExpr struct {
	Token token.Token // the { token
	Inner HostExpression
}

func (s *SpliceExpr) expressionNode() {}
func (s *SpliceExpr) Tok() token.Token { return s.Token }
func (s *SpliceExpr) String() string {
	return "{" + s.Inner.String() + "}"
}
