package staging

import (
	"math"

	"github.com/ChezJrk/exo/ast"
	"github.com/ChezJrk/exo/token"
)

// Evaluator drives the staging pass of one procedure. sink points at
// the statement list under construction wherever object statements are
// currently being appended; spliceDepth is positive while a
// value-producing splice evaluates, which forbids executing object
// regions until the splice finishes.
type Evaluator struct {
	procs       map[string]*ast.Proc
	sink        *[]ast.Statement
	spliceDepth int
}

// execHostBlock runs host statements in env. A non-nil first result is
// the value of a return statement unwinding to the nearest host
// function call.
func (ev *Evaluator) execHostBlock(stmts []ast.HostStatement, env *Env) (Value, *Error) {
	for _, s := range stmts {
		ret, err := ev.execHostStmt(s, env)
		if err != nil {
			return nil, err
		}
		if ret != nil {
			return ret, nil
		}
	}
	return nil, nil
}

func (ev *Evaluator) execHostStmt(s ast.HostStatement, env *Env) (Value, *Error) {
	switch st := s.(type) {
	case *ast.HostAssign:
		v, err := ev.evalHostExpr(st.Value, env)
		if err != nil {
			return nil, err
		}
		return nil, ev.bindHost(st.Token, st.Name, v, env)
	case *ast.HostFor:
		return ev.execHostFor(st, env)
	case *ast.HostWhile:
		for {
			cond, err := ev.evalHostExpr(st.Cond, env)
			if err != nil {
				return nil, err
			}
			if !isTruthy(cond) {
				return nil, nil
			}
			ret, err := ev.execHostBlock(st.Body, env)
			if err != nil {
				return nil, err
			}
			if ret != nil {
				return ret, nil
			}
		}
	case *ast.HostIf:
		cond, err := ev.evalHostExpr(st.Cond, env)
		if err != nil {
			return nil, err
		}
		if isTruthy(cond) {
			return ev.execHostBlock(st.Then, env)
		}
		return ev.execHostBlock(st.Else, env)
	case *ast.HostDef:
		fn := &Func{Name: st.Name, Params: st.Params, Body: st.Body, Env: env}
		return nil, ev.bindHost(st.Token, st.Name, fn, env)
	case *ast.HostReturn:
		if st.Value == nil {
			return None, nil
		}
		return ev.evalHostExpr(st.Value, env)
	case *ast.HostPass:
		return nil, nil
	case *ast.HostExprStmt:
		_, err := ev.evalHostExpr(st.Expr, env)
		return nil, err
	case *ast.WithExo:
		return nil, ev.execWithExo(st, env)
	}
	return nil, newError(ErrHost, s.Tok(), "cannot execute host statement")
}

func (ev *Evaluator) execHostFor(st *ast.HostFor, env *Env) (Value, *Error) {
	seq, err := ev.evalHostExpr(st.Seq, env)
	if err != nil {
		return nil, err
	}
	list, ok := seq.(*List)
	if !ok {
		return nil, newError(ErrHost, st.Token, "cannot iterate over %s", seq.Type())
	}
	for _, elem := range list.Elems {
		if err := ev.bindHost(st.Token, st.Iter, elem, env); err != nil {
			return nil, err
		}
		ret, err := ev.execHostBlock(st.Body, env)
		if err != nil {
			return nil, err
		}
		if ret != nil {
			return ret, nil
		}
	}
	return nil, nil
}

// execWithExo is an object region in host code. A named region is
// captured unevaluated as a statement quote over the current scope.
// An unnamed region instantiates immediately and appends its
// statements to the procedure under construction, which is exactly
// the side effect a value splice must not have.
func (ev *Evaluator) execWithExo(st *ast.WithExo, env *Env) *Error {
	if st.Name != "" {
		q := &Quote{Kind: StatementQuote, Stmts: st.Body, Env: env, Tok: st.Token}
		return ev.bindHost(st.Token, st.Name, q, env)
	}
	if ev.spliceDepth > 0 {
		return newError(ErrSideEffect, st.Token,
			"with exo region executed while evaluating a splice; its statements would have no position in the procedure")
	}
	stmts, err := ev.instantiateBlock(st.Body, env)
	if err != nil {
		return err
	}
	*ev.sink = append(*ev.sink, stmts...)
	return nil
}

// bindHost assigns a host value, updating the nearest scope that
// already binds the name and defining locally otherwise. Names that
// resolve as object-language bindings cannot be rebound from host
// code.
func (ev *Evaluator) bindHost(tok token.Token, name string, v Value, env *Env) *Error {
	if _, ok := env.LookupObj(name); ok {
		return newError(ErrNameResolution, tok,
			"cannot bind %s: it names an object-language value in scope", name)
	}
	if !env.AssignHost(name, v) {
		env.DefineHost(name, v)
	}
	return nil
}

func (ev *Evaluator) evalHostExpr(e ast.HostExpression, env *Env) (Value, *Error) {
	switch ex := e.(type) {
	case *ast.HostInt:
		return &Int{Value: ex.Value}, nil
	case *ast.HostFloat:
		return &Float{Value: ex.Value}, nil
	case *ast.HostString:
		return &Str{Value: ex.Value}, nil
	case *ast.HostBool:
		return nativeBool(ex.Value), nil
	case *ast.HostIdent:
		return ev.evalHostIdent(ex, env)
	case *ast.HostPrefix:
		return ev.evalHostPrefix(ex, env)
	case *ast.HostInfix:
		return ev.evalHostInfix(ex, env)
	case *ast.HostCall:
		return ev.evalHostCall(ex, env)
	case *ast.HostIndex:
		return ev.evalHostIndex(ex, env)
	case *ast.HostList:
		list := &List{Elems: make([]Value, len(ex.Elems))}
		for i, el := range ex.Elems {
			v, err := ev.evalHostExpr(el, env)
			if err != nil {
				return nil, err
			}
			list.Elems[i] = v
		}
		return list, nil
	case *ast.Capture:
		body, err := ev.instantiateExpr(ex.Body, env)
		if err != nil {
			return nil, err
		}
		return &Quote{Kind: ExpressionQuote, Expr: body, Env: env, Tok: ex.Token}, nil
	}
	return nil, newError(ErrHost, e.Tok(), "cannot evaluate host expression")
}

// evalHostIdent resolves a host identifier: host binding, then
// builtin, then implicit quote of a visible object name. Both paths
// failing is a name resolution error naming both.
func (ev *Evaluator) evalHostIdent(ex *ast.HostIdent, env *Env) (Value, *Error) {
	if v, ok := env.LookupHost(ex.Value); ok {
		return v, nil
	}
	if b, ok := builtins[ex.Value]; ok {
		return b, nil
	}
	if _, ok := env.LookupObj(ex.Value); ok {
		return &Quote{
			Kind: ExpressionQuote,
			Expr: &ast.Read{Token: ex.Token, Name: ex.Value},
			Env:  env,
			Tok:  ex.Token,
		}, nil
	}
	return nil, newError(ErrNameResolution, ex.Token,
		"cannot resolve %s: no host variable and no object-language binding of that name", ex.Value)
}

func (ev *Evaluator) evalHostPrefix(ex *ast.HostPrefix, env *Env) (Value, *Error) {
	right, err := ev.evalHostExpr(ex.Right, env)
	if err != nil {
		return nil, err
	}
	if ex.Operator == "not" {
		return nativeBool(!isTruthy(right)), nil
	}
	switch v := right.(type) {
	case *Int:
		return &Int{Value: -v.Value}, nil
	case *Float:
		return &Float{Value: -v.Value}, nil
	}
	return nil, newError(ErrHost, ex.Token, "bad operand type for unary -: %s", right.Type())
}

func (ev *Evaluator) evalHostInfix(ex *ast.HostInfix, env *Env) (Value, *Error) {
	if ex.Operator == "and" || ex.Operator == "or" {
		left, err := ev.evalHostExpr(ex.Left, env)
		if err != nil {
			return nil, err
		}
		if ex.Operator == "and" && !isTruthy(left) {
			return False, nil
		}
		if ex.Operator == "or" && isTruthy(left) {
			return True, nil
		}
		right, err := ev.evalHostExpr(ex.Right, env)
		if err != nil {
			return nil, err
		}
		return nativeBool(isTruthy(right)), nil
	}

	left, err := ev.evalHostExpr(ex.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalHostExpr(ex.Right, env)
	if err != nil {
		return nil, err
	}

	switch l := left.(type) {
	case *Int:
		if r, ok := right.(*Int); ok {
			return ev.intInfix(ex, l.Value, r.Value)
		}
		if r, ok := right.(*Float); ok {
			return ev.floatInfix(ex, float64(l.Value), r.Value)
		}
	case *Float:
		if r, ok := right.(*Int); ok {
			return ev.floatInfix(ex, l.Value, float64(r.Value))
		}
		if r, ok := right.(*Float); ok {
			return ev.floatInfix(ex, l.Value, r.Value)
		}
	case *Str:
		if r, ok := right.(*Str); ok {
			return ev.strInfix(ex, l.Value, r.Value)
		}
	case *Bool:
		if r, ok := right.(*Bool); ok {
			switch ex.Operator {
			case "==":
				return nativeBool(l.Value == r.Value), nil
			case "!=":
				return nativeBool(l.Value != r.Value), nil
			}
		}
	}
	return nil, newError(ErrHost, ex.Token,
		"bad operand types for %s: %s and %s", ex.Operator, left.Type(), right.Type())
}

// intInfix keeps integer arithmetic integral. Division truncates
// toward zero and the remainder takes the sign of the dividend.
func (ev *Evaluator) intInfix(ex *ast.HostInfix, l, r int64) (Value, *Error) {
	switch ex.Operator {
	case "+":
		return &Int{Value: l + r}, nil
	case "-":
		return &Int{Value: l - r}, nil
	case "*":
		return &Int{Value: l * r}, nil
	case "/":
		if r == 0 {
			return nil, newError(ErrHost, ex.Token, "division by zero")
		}
		return &Int{Value: l / r}, nil
	case "%":
		if r == 0 {
			return nil, newError(ErrHost, ex.Token, "division by zero")
		}
		return &Int{Value: l % r}, nil
	case "==":
		return nativeBool(l == r), nil
	case "!=":
		return nativeBool(l != r), nil
	case "<":
		return nativeBool(l < r), nil
	case ">":
		return nativeBool(l > r), nil
	case "<=":
		return nativeBool(l <= r), nil
	case ">=":
		return nativeBool(l >= r), nil
	}
	return nil, newError(ErrHost, ex.Token, "unknown operator %s", ex.Operator)
}

func (ev *Evaluator) floatInfix(ex *ast.HostInfix, l, r float64) (Value, *Error) {
	switch ex.Operator {
	case "+":
		return &Float{Value: l + r}, nil
	case "-":
		return &Float{Value: l - r}, nil
	case "*":
		return &Float{Value: l * r}, nil
	case "/":
		if r == 0 {
			return nil, newError(ErrHost, ex.Token, "division by zero")
		}
		return &Float{Value: l / r}, nil
	case "%":
		if r == 0 {
			return nil, newError(ErrHost, ex.Token, "division by zero")
		}
		return &Float{Value: math.Mod(l, r)}, nil
	case "==":
		return nativeBool(l == r), nil
	case "!=":
		return nativeBool(l != r), nil
	case "<":
		return nativeBool(l < r), nil
	case ">":
		return nativeBool(l > r), nil
	case "<=":
		return nativeBool(l <= r), nil
	case ">=":
		return nativeBool(l >= r), nil
	}
	return nil, newError(ErrHost, ex.Token, "unknown operator %s", ex.Operator)
}

func (ev *Evaluator) strInfix(ex *ast.HostInfix, l, r string) (Value, *Error) {
	switch ex.Operator {
	case "+":
		return &Str{Value: l + r}, nil
	case "==":
		return nativeBool(l == r), nil
	case "!=":
		return nativeBool(l != r), nil
	case "<":
		return nativeBool(l < r), nil
	case ">":
		return nativeBool(l > r), nil
	case "<=":
		return nativeBool(l <= r), nil
	case ">=":
		return nativeBool(l >= r), nil
	}
	return nil, newError(ErrHost, ex.Token, "bad operand types for %s: str and str", ex.Operator)
}

func (ev *Evaluator) evalHostCall(ex *ast.HostCall, env *Env) (Value, *Error) {
	fnv, err := ev.evalHostExpr(ex.Fn, env)
	if err != nil {
		return nil, err
	}
	args := make([]Value, len(ex.Args))
	for i, a := range ex.Args {
		v, err := ev.evalHostExpr(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	switch fn := fnv.(type) {
	case *Builtin:
		return fn.Fn(ev, ex.Token, args)
	case *Func:
		return ev.callFunc(fn, args, ex.Token)
	}
	return nil, newError(ErrHost, ex.Token, "%s is not callable", fnv.Type())
}

func (ev *Evaluator) callFunc(fn *Func, args []Value, tok token.Token) (Value, *Error) {
	if len(args) != len(fn.Params) {
		return nil, newError(ErrHost, tok,
			"%s expects %d arguments, got %d", fn.Name, len(fn.Params), len(args))
	}
	callEnv := NewChildEnv(fn.Env)
	for i, p := range fn.Params {
		callEnv.DefineHost(p, args[i])
	}
	ret, err := ev.execHostBlock(fn.Body, callEnv)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return None, nil
	}
	return ret, nil
}

func (ev *Evaluator) evalHostIndex(ex *ast.HostIndex, env *Env) (Value, *Error) {
	x, err := ev.evalHostExpr(ex.X, env)
	if err != nil {
		return nil, err
	}
	idx, err := ev.evalHostExpr(ex.Index, env)
	if err != nil {
		return nil, err
	}
	list, ok := x.(*List)
	if !ok {
		return nil, newError(ErrHost, ex.Token, "cannot index %s", x.Type())
	}
	iv, ok := idx.(*Int)
	if !ok {
		return nil, newError(ErrHost, ex.Token, "list index must be int, got %s", idx.Type())
	}
	i := iv.Value
	if i < 0 {
		i += int64(len(list.Elems))
	}
	if i < 0 || i >= int64(len(list.Elems)) {
		return nil, newError(ErrHost, ex.Token, "list index out of range")
	}
	return list.Elems[i], nil
}
