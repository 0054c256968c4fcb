package interp

import (
	"math"

	"github.com/ChezJrk/exo/ast"
)

// evalExpr computes a value-position expression as a float64.
// Arithmetic happens in float64 regardless of operand kinds and the
// destination quantizes on store; comparisons and the boolean
// operators yield 0 or 1.
func evalExpr(e ast.Expression, f *frame) (float64, error) {
	switch ex := e.(type) {
	case *ast.IntLit:
		return float64(ex.Value), nil
	case *ast.FloatLit:
		return ex.Value, nil
	case *ast.BoolLit:
		return b01(ex.Value), nil
	case *ast.Read:
		return evalRead(ex, f)
	case *ast.USub:
		v, err := evalExpr(ex.X, f)
		if err != nil {
			return 0, err
		}
		return -v, nil
	case *ast.BinOp:
		return evalBinOp(ex, f)
	case *ast.Interval:
		return 0, trap(ex.Token, "cannot use a window as a value")
	}
	return 0, trap(e.Tok(), "cannot interpret unstaged expression %s", e.String())
}

func evalRead(r *ast.Read, f *frame) (float64, error) {
	v, ok := f.lookup(r.Name)
	if !ok {
		return 0, trap(r.Token, "undefined name %s", r.Name)
	}
	switch b := v.(type) {
	case int64:
		if len(r.Idx) > 0 {
			return 0, trap(r.Token, "cannot index %s", r.Name)
		}
		return float64(b), nil
	case *Buffer:
		if len(r.Idx) == 0 && b.Rank() > 0 {
			return 0, trap(r.Token, "cannot read tensor %s as a scalar", r.Name)
		}
		pos, err := locate(r.Token, r.Name, b, r.Idx, f)
		if err != nil {
			return 0, err
		}
		return b.Data[pos], nil
	}
	return 0, trap(r.Token, "%s is not a value", r.Name)
}

func evalBinOp(b *ast.BinOp, f *frame) (float64, error) {
	switch b.Op {
	case "and":
		l, err := evalExpr(b.Left, f)
		if err != nil || l == 0 {
			return 0, err
		}
		r, err := evalExpr(b.Right, f)
		if err != nil {
			return 0, err
		}
		return b01(r != 0), nil
	case "or":
		l, err := evalExpr(b.Left, f)
		if err != nil {
			return 0, err
		}
		if l != 0 {
			return 1, nil
		}
		r, err := evalExpr(b.Right, f)
		if err != nil {
			return 0, err
		}
		return b01(r != 0), nil
	}
	l, err := evalExpr(b.Left, f)
	if err != nil {
		return 0, err
	}
	r, err := evalExpr(b.Right, f)
	if err != nil {
		return 0, err
	}
	switch b.Op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, trap(b.Token, "division by zero")
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return 0, trap(b.Token, "modulo by zero")
		}
		return math.Mod(l, r), nil
	case "==":
		return b01(l == r), nil
	case "!=":
		return b01(l != r), nil
	case "<":
		return b01(l < r), nil
	case ">":
		return b01(l > r), nil
	case "<=":
		return b01(l <= r), nil
	case ">=":
		return b01(l >= r), nil
	}
	return 0, trap(b.Token, "unknown operator %s", b.Op)
}

func b01(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// evalIndex computes an index-position expression as an int64. Only
// control values may be read here; integer division truncates toward
// zero the way the generated C does.
func evalIndex(e ast.Expression, f *frame) (int64, error) {
	switch ex := e.(type) {
	case *ast.IntLit:
		return ex.Value, nil
	case *ast.FloatLit, *ast.BoolLit:
		return 0, trap(e.Tok(), "an index must be an integer")
	case *ast.Read:
		v, ok := f.lookup(ex.Name)
		if !ok {
			return 0, trap(ex.Token, "undefined name %s", ex.Name)
		}
		n, ok := v.(int64)
		if !ok {
			return 0, trap(ex.Token, "cannot use buffer %s in an index expression", ex.Name)
		}
		if len(ex.Idx) > 0 {
			return 0, trap(ex.Token, "cannot index %s", ex.Name)
		}
		return n, nil
	case *ast.USub:
		v, err := evalIndex(ex.X, f)
		if err != nil {
			return 0, err
		}
		return -v, nil
	case *ast.BinOp:
		l, err := evalIndex(ex.Left, f)
		if err != nil {
			return 0, err
		}
		r, err := evalIndex(ex.Right, f)
		if err != nil {
			return 0, err
		}
		switch ex.Op {
		case "+":
			return l + r, nil
		case "-":
			return l - r, nil
		case "*":
			return l * r, nil
		case "/":
			if r == 0 {
				return 0, trap(ex.Token, "division by zero")
			}
			return l / r, nil
		case "%":
			if r == 0 {
				return 0, trap(ex.Token, "modulo by zero")
			}
			return l % r, nil
		}
		return 0, trap(ex.Token, "operator %s cannot appear in an index expression", ex.Op)
	case *ast.Interval:
		return 0, trap(ex.Token, "a window cannot be used as an index")
	}
	return 0, trap(e.Tok(), "cannot interpret unstaged expression %s", e.String())
}

// evalCond computes a condition. The boolean operators short-circuit;
// any other expression is true when it is nonzero.
func evalCond(e ast.Expression, f *frame) (bool, error) {
	if b, ok := e.(*ast.BinOp); ok {
		switch b.Op {
		case "and":
			l, err := evalCond(b.Left, f)
			if err != nil || !l {
				return false, err
			}
			return evalCond(b.Right, f)
		case "or":
			l, err := evalCond(b.Left, f)
			if err != nil || l {
				return l, err
			}
			return evalCond(b.Right, f)
		}
	}
	v, err := evalExpr(e, f)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
