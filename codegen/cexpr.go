package codegen

import (
	"strings"

	"github.com/ChezJrk/exo/ast"
	"github.com/ChezJrk/exo/token"
)

type symKind int

const (
	symControl   symKind = iota // size, index, stride, bool: by value
	symScalar                   // local data scalar: a plain C local
	symScalarPtr                // data scalar parameter: passed by pointer
	symBuffer                   // linearly addressed buffer: flat indexing
	symVector                   // register buffer: last index picks the lane
)

// cSym describes how a staged name renders in C.
type cSym struct {
	kind  symKind
	ctype string
	dims  []ast.Expression
	mem   string
	ptr   bool // vector parameter rather than local register array
}

func (g *Generator) pushScope() {
	g.scopes = append(g.scopes, map[string]*cSym{})
}

func (g *Generator) popScope() {
	g.scopes = g.scopes[:len(g.scopes)-1]
}

func (g *Generator) define(name string, s *cSym) {
	g.scopes[len(g.scopes)-1][name] = s
}

func (g *Generator) get(name string) (*cSym, bool) {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if s, ok := g.scopes[i][name]; ok {
			return s, true
		}
	}
	return nil, false
}

var ctypes = map[ast.ScalarKind]string{
	ast.SizeKind:   "int_fast32_t",
	ast.IndexKind:  "int_fast32_t",
	ast.StrideKind: "int_fast32_t",
	ast.BoolKind:   "bool",
	ast.I8:         "int8_t",
	ast.UI8:        "uint8_t",
	ast.I16:        "int16_t",
	ast.UI16:       "uint16_t",
	ast.I32:        "int32_t",
	ast.UI32:       "uint32_t",
	ast.F16:        "_Float16",
	ast.F32:        "float",
	ast.F64:        "double",
}

// ctype maps a scalar kind to its C spelling. R has none: it must be
// substituted away before lowering.
func ctype(k ast.ScalarKind) (string, bool) {
	ct, ok := ctypes[k]
	return ct, ok
}

// C operator precedence, low to high. Parentheses are inserted only
// where the context binds tighter than the operator.
const (
	precLowest = iota
	precOr
	precAnd
	precCmp
	precAdd
	precMul
	precUnary
)

func cop(op string) (string, int, bool) {
	switch op {
	case "or":
		return "||", precOr, true
	case "and":
		return "&&", precAnd, true
	case "==", "!=", "<", ">", "<=", ">=":
		return op, precCmp, true
	case "+", "-":
		return op, precAdd, true
	case "*", "/", "%":
		return op, precMul, true
	}
	return "", 0, false
}

// cExpr renders a staged object expression as C.
func (g *Generator) cExpr(e ast.Expression, ctx int) (string, error) {
	switch ex := e.(type) {
	case *ast.IntLit:
		return ex.String(), nil
	case *ast.FloatLit:
		return ex.String(), nil
	case *ast.BoolLit:
		if ex.Value {
			return "true", nil
		}
		return "false", nil
	case *ast.Read:
		return g.readExpr(ex)
	case *ast.USub:
		x, err := g.cExpr(ex.X, precUnary)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(x, "-") {
			x = "(" + x + ")"
		}
		return "-" + x, nil
	case *ast.BinOp:
		return g.cBinOp(ex, ctx)
	case *ast.Interval:
		return "", cerror(ex.Token, "cannot use a window as a value")
	}
	return "", cerror(e.Tok(), "cannot lower unstaged expression %s", e.String())
}

func (g *Generator) cBinOp(b *ast.BinOp, ctx int) (string, error) {
	op, prec, ok := cop(b.Op)
	if !ok {
		return "", cerror(b.Token, "unknown operator %s", b.Op)
	}
	l, err := g.cExpr(b.Left, prec)
	if err != nil {
		return "", err
	}
	r, err := g.cExpr(b.Right, prec+1)
	if err != nil {
		return "", err
	}
	s := l + " " + op + " " + r
	if prec < ctx {
		s = "(" + s + ")"
	}
	return s, nil
}

func (g *Generator) readExpr(r *ast.Read) (string, error) {
	sym, ok := g.get(r.Name)
	if !ok {
		return "", cerror(r.Token, "undefined name %s", r.Name)
	}
	if sym.kind == symControl {
		if len(r.Idx) > 0 {
			return "", cerror(r.Token, "cannot index %s", r.Name)
		}
		return r.Name, nil
	}
	if (sym.kind == symBuffer || sym.kind == symVector) && len(r.Idx) == 0 {
		return "", cerror(r.Token, "cannot read tensor %s as a scalar", r.Name)
	}
	return g.elemRef(r.Token, r.Name, sym, r.Idx)
}

// lvalue renders the target of an assignment or reduction.
func (g *Generator) lvalue(tok token.Token, name string, idx []ast.Expression) (string, error) {
	sym, ok := g.get(name)
	if !ok {
		return "", cerror(tok, "undefined name %s", name)
	}
	if sym.kind == symControl {
		return "", cerror(tok, "cannot assign to %s", name)
	}
	return g.elemRef(tok, name, sym, idx)
}

// elemRef renders a single element of a symbol. Buffers take a full
// point index; windows cannot appear here.
func (g *Generator) elemRef(tok token.Token, name string, sym *cSym, idx []ast.Expression) (string, error) {
	switch sym.kind {
	case symScalar:
		if len(idx) > 0 {
			return "", cerror(tok, "%s is a scalar and cannot be indexed", name)
		}
		return name, nil
	case symScalarPtr:
		if len(idx) > 0 {
			return "", cerror(tok, "%s is a scalar and cannot be indexed", name)
		}
		return "*" + name, nil
	}
	if len(idx) != len(sym.dims) {
		return "", cerror(tok, "%s has rank %d but is indexed with %d indices", name, len(sym.dims), len(idx))
	}
	for _, ix := range idx {
		if _, ok := ix.(*ast.Interval); ok {
			return "", cerror(ix.Tok(), "cannot use a window of %s as a single element", name)
		}
	}
	if sym.kind == symVector {
		lane, err := g.cExpr(idx[len(idx)-1], precLowest)
		if err != nil {
			return "", err
		}
		base := name
		switch {
		case len(idx) == 1 && sym.ptr:
			base = name + "[0]"
		case len(idx) > 1:
			outer, err := g.flatIndex(sym.dims[:len(idx)-1], idx[:len(idx)-1])
			if err != nil {
				return "", err
			}
			base = name + "[" + outer + "]"
		}
		return base + "[" + lane + "]", nil
	}
	flat, err := g.flatIndex(sym.dims, idx)
	if err != nil {
		return "", err
	}
	return name + "[" + flat + "]", nil
}

// flatIndex renders the row-major offset of a point index in Horner
// form, "i * m + j" style, folding zero and one terms away.
func (g *Generator) flatIndex(dims, idx []ast.Expression) (string, error) {
	acc := idx[0]
	for d := 1; d < len(idx); d++ {
		acc = addIdx(mulIdx(acc, dims[d]), idx[d])
	}
	return g.cExpr(acc, precLowest)
}

func mulIdx(a, b ast.Expression) ast.Expression {
	if lit, ok := a.(*ast.IntLit); ok {
		if lit.Value == 0 {
			return lit
		}
		if lit.Value == 1 {
			return b
		}
	}
	return &ast.BinOp{Token: a.Tok(), Left: a, Op: "*", Right: b}
}

func addIdx(a, b ast.Expression) ast.Expression {
	if lit, ok := a.(*ast.IntLit); ok && lit.Value == 0 {
		return b
	}
	if lit, ok := b.(*ast.IntLit); ok && lit.Value == 0 {
		return a
	}
	return &ast.BinOp{Token: a.Tok(), Left: a, Op: "+", Right: b}
}
