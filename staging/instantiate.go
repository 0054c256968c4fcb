package staging

import (
	"github.com/ChezJrk/exo/ast"
	"github.com/ChezJrk/exo/memory"
	"github.com/ChezJrk/exo/token"
)

// instantiateBlock resolves one object block against env and returns
// the finished statements. Host regions execute as they are reached;
// the sink is retargeted to this block's output for the duration, so
// whatever they emit lands exactly where they ran. Every statement
// returned is freshly constructed, so no instantiation ever shares
// nodes with a template or with another instantiation.
func (ev *Evaluator) instantiateBlock(stmts []ast.Statement, env *Env) ([]ast.Statement, *Error) {
	out := []ast.Statement{}
	prev := ev.sink
	ev.sink = &out
	defer func() { ev.sink = prev }()

	for _, s := range stmts {
		switch st := s.(type) {
		case *ast.WithPython:
			ret, err := ev.execHostBlock(st.Body, NewChildEnv(env))
			if err != nil {
				return nil, err
			}
			if ret != nil {
				return nil, newError(ErrSyntax, st.Token, "return outside host function")
			}
		case *ast.SpliceStmt:
			spliced, err := ev.spliceStmt(st, env)
			if err != nil {
				return nil, err
			}
			out = append(out, spliced...)
		case *ast.Alloc:
			alloc, err := ev.instantiateAlloc(st, env)
			if err != nil {
				return nil, err
			}
			out = append(out, alloc)
		case *ast.Assign:
			idx, value, err := ev.instantiateWrite(st.Token, st.Name, st.Idx, st.Value, env)
			if err != nil {
				return nil, err
			}
			out = append(out, &ast.Assign{Token: st.Token, Name: st.Name, Idx: idx, Value: value})
		case *ast.Reduce:
			idx, value, err := ev.instantiateWrite(st.Token, st.Name, st.Idx, st.Value, env)
			if err != nil {
				return nil, err
			}
			out = append(out, &ast.Reduce{Token: st.Token, Name: st.Name, Idx: idx, Value: value})
		case *ast.SeqFor:
			loop, err := ev.instantiateSeqFor(st, env)
			if err != nil {
				return nil, err
			}
			out = append(out, loop)
		case *ast.If:
			cond, err := ev.instantiateExpr(st.Cond, env)
			if err != nil {
				return nil, err
			}
			then, err := ev.instantiateBlock(st.Then, NewChildEnv(env))
			if err != nil {
				return nil, err
			}
			var els []ast.Statement
			if len(st.Else) > 0 {
				if els, err = ev.instantiateBlock(st.Else, NewChildEnv(env)); err != nil {
					return nil, err
				}
			}
			out = append(out, &ast.If{Token: st.Token, Cond: cond, Then: then, Else: els})
		case *ast.Call:
			call, err := ev.instantiateCall(st, env)
			if err != nil {
				return nil, err
			}
			out = append(out, call)
		case *ast.Pass:
			out = append(out, &ast.Pass{Token: st.Token})
		default:
			return nil, newError(ErrHost, s.Tok(), "cannot instantiate statement")
		}
	}
	return out, nil
}

// spliceStmt resolves "{h}" in statement position. Only a statement
// quote fits here, and splicing one re-instantiates its body against
// the scope captured when the quote was bound.
func (ev *Evaluator) spliceStmt(st *ast.SpliceStmt, env *Env) ([]ast.Statement, *Error) {
	v, err := ev.evalHostExpr(st.Inner, env)
	if err != nil {
		return nil, err
	}
	q, ok := v.(*Quote)
	if !ok || q.Kind != StatementQuote {
		return nil, newError(ErrContextMismatch, st.Token,
			"cannot splice a %s where a statement is required", spliceKind(v))
	}
	return ev.instantiateBlock(q.Stmts, q.Env)
}

func (ev *Evaluator) instantiateAlloc(st *ast.Alloc, env *Env) (*ast.Alloc, *Error) {
	typ, err := ev.instantiateType(st.Type, env)
	if err != nil {
		return nil, err
	}
	mem, err := ev.instantiateMem(st.Mem, env)
	if err != nil {
		return nil, err
	}
	if !env.DefineObj(st.Name, BufferObj) {
		return nil, newError(ErrNameResolution, st.Token, "redefinition of object name %s", st.Name)
	}
	return &ast.Alloc{Token: st.Token, Name: st.Name, Type: typ, Mem: mem}, nil
}

// instantiateWrite resolves the pieces of an assignment or reduction.
// The target name must already be an object-language binding: an
// assignment target is never implicitly unquoted, so a host variable
// of the same name does not rescue it.
func (ev *Evaluator) instantiateWrite(tok token.Token, name string, idx []ast.Expression, value ast.Expression, env *Env) ([]ast.Expression, ast.Expression, *Error) {
	kind, ok := env.LookupObj(name)
	if !ok {
		return nil, nil, newError(ErrNameResolution, tok,
			"cannot assign to %s: no object-language binding of that name", name)
	}
	if kind == IterObj {
		return nil, nil, newError(ErrNameResolution, tok, "cannot assign to loop iterator %s", name)
	}
	outIdx, err := ev.instantiateIndexList(idx, env)
	if err != nil {
		return nil, nil, err
	}
	outValue, err := ev.instantiateExpr(value, env)
	if err != nil {
		return nil, nil, err
	}
	return outIdx, outValue, nil
}

func (ev *Evaluator) instantiateSeqFor(st *ast.SeqFor, env *Env) (*ast.SeqFor, *Error) {
	lo, err := ev.instantiateExpr(st.Lo, env)
	if err != nil {
		return nil, err
	}
	hi, err := ev.instantiateExpr(st.Hi, env)
	if err != nil {
		return nil, err
	}
	loopEnv := NewChildEnv(env)
	if !loopEnv.DefineObj(st.Iter, IterObj) {
		return nil, newError(ErrNameResolution, st.Token, "redefinition of object name %s", st.Iter)
	}
	body, err := ev.instantiateBlock(st.Body, loopEnv)
	if err != nil {
		return nil, err
	}
	return &ast.SeqFor{Token: st.Token, Iter: st.Iter, Lo: lo, Hi: hi, Body: body}, nil
}

func (ev *Evaluator) instantiateCall(st *ast.Call, env *Env) (*ast.Call, *Error) {
	if _, ok := ev.procs[st.Name]; !ok {
		return nil, newError(ErrNameResolution, st.Token, "no procedure named %s", st.Name)
	}
	args := make([]ast.Expression, len(st.Args))
	for i, a := range st.Args {
		arg, err := ev.instantiateExpr(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return &ast.Call{Token: st.Token, Name: st.Name, Args: args}, nil
}

func (ev *Evaluator) instantiateExpr(e ast.Expression, env *Env) (ast.Expression, *Error) {
	switch ex := e.(type) {
	case *ast.Read:
		return ev.instantiateRead(ex, env)
	case *ast.IntLit, *ast.FloatLit, *ast.BoolLit:
		return ast.CloneExpr(e), nil
	case *ast.BinOp:
		left, err := ev.instantiateExpr(ex.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := ev.instantiateExpr(ex.Right, env)
		if err != nil {
			return nil, err
		}
		return &ast.BinOp{Token: ex.Token, Left: left, Op: ex.Op, Right: right}, nil
	case *ast.USub:
		x, err := ev.instantiateExpr(ex.X, env)
		if err != nil {
			return nil, err
		}
		return &ast.USub{Token: ex.Token, X: x}, nil
	case *ast.Interval:
		return ev.instantiateInterval(ex, env)
	case *ast.SpliceExpr:
		v, err := ev.evalSplice(ex.Inner, env)
		if err != nil {
			return nil, err
		}
		return ev.coerceExpr(v, ex.Token)
	}
	return nil, newError(ErrHost, e.Tok(), "cannot instantiate expression")
}

// instantiateRead resolves an identifier in expression position. The
// object-language binding wins; failing that, a host binding of the
// name is implicitly unquoted under the expression-position rule.
func (ev *Evaluator) instantiateRead(ex *ast.Read, env *Env) (ast.Expression, *Error) {
	if _, ok := env.LookupObj(ex.Name); ok {
		idx, err := ev.instantiateIndexList(ex.Idx, env)
		if err != nil {
			return nil, err
		}
		return &ast.Read{Token: ex.Token, Name: ex.Name, Idx: idx}, nil
	}
	if v, ok := env.LookupHost(ex.Name); ok {
		if len(ex.Idx) > 0 {
			return nil, newError(ErrContextMismatch, ex.Token,
				"cannot index host value %s in object code", ex.Name)
		}
		return ev.coerceExpr(v, ex.Token)
	}
	return nil, newError(ErrNameResolution, ex.Token,
		"cannot resolve %s: no object-language binding and no host variable of that name", ex.Name)
}

func (ev *Evaluator) instantiateIndexList(idx []ast.Expression, env *Env) ([]ast.Expression, *Error) {
	if idx == nil {
		return nil, nil
	}
	out := make([]ast.Expression, len(idx))
	for i, e := range idx {
		ie, err := ev.instantiateIndex(e, env)
		if err != nil {
			return nil, err
		}
		out[i] = ie
	}
	return out, nil
}

// instantiateIndex resolves one index-list entry. An explicit splice
// here follows the index-position rule, which additionally admits
// slice descriptors; everything else resolves as an expression.
func (ev *Evaluator) instantiateIndex(e ast.Expression, env *Env) (ast.Expression, *Error) {
	switch ex := e.(type) {
	case *ast.Interval:
		return ev.instantiateInterval(ex, env)
	case *ast.SpliceExpr:
		v, err := ev.evalSplice(ex.Inner, env)
		if err != nil {
			return nil, err
		}
		return ev.coerceIndex(v, ex.Token)
	default:
		return ev.instantiateExpr(e, env)
	}
}

func (ev *Evaluator) instantiateInterval(ex *ast.Interval, env *Env) (ast.Expression, *Error) {
	lo, err := ev.instantiateExpr(ex.Lo, env)
	if err != nil {
		return nil, err
	}
	hi, err := ev.instantiateExpr(ex.Hi, env)
	if err != nil {
		return nil, err
	}
	return &ast.Interval{Token: ex.Token, Lo: lo, Hi: hi}, nil
}

func (ev *Evaluator) instantiateType(t ast.Type, env *Env) (ast.Type, *Error) {
	switch tt := t.(type) {
	case *ast.Scalar:
		return ast.CloneType(t), nil
	case *ast.Tensor:
		dims := make([]ast.Expression, len(tt.Dims))
		for i, d := range tt.Dims {
			dim, err := ev.instantiateExpr(d, env)
			if err != nil {
				return nil, err
			}
			dims[i] = dim
		}
		elem := *tt.Elem
		return &ast.Tensor{Token: tt.Token, Elem: &elem, Dims: dims}, nil
	case *ast.SpliceType:
		v, err := ev.evalSplice(tt.Inner, env)
		if err != nil {
			return nil, err
		}
		typ, serr := ev.coerceType(v, tt.Token)
		if serr != nil {
			return nil, serr
		}
		// a parsed type string may reference object names in its
		// dimensions, so resolve it like a written type
		return ev.instantiateType(typ, env)
	}
	return nil, newError(ErrHost, t.Tok(), "cannot instantiate type")
}

func (ev *Evaluator) instantiateMem(m ast.Mem, env *Env) (ast.Mem, *Error) {
	if m == nil {
		return nil, nil
	}
	switch mm := m.(type) {
	case *ast.MemName:
		if _, ok := memory.Lookup(mm.Name); !ok {
			return nil, newError(ErrNameResolution, mm.Token,
				"no memory space named %s is registered", mm.Name)
		}
		return ast.CloneMem(m), nil
	case *ast.SpliceMem:
		v, err := ev.evalSplice(mm.Inner, env)
		if err != nil {
			return nil, err
		}
		return ev.coerceMem(v, mm.Token)
	}
	return nil, newError(ErrHost, m.Tok(), "cannot instantiate memory annotation")
}
