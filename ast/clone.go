package ast

// Deep copies of object-language nodes. Splicing the same quote into
// a procedure twice must yield independent subtrees, so downstream
// rewrites of one occurrence cannot reach the other. Host nodes are
// never mutated and are shared rather than copied.

func CloneBlock(stmts []Statement) []Statement {
	if stmts == nil {
		return nil
	}
	out := make([]Statement, len(stmts))
	for i, s := range stmts {
		out[i] = CloneStmt(s)
	}
	return out
}

func CloneStmt(s Statement) Statement {
	switch st := s.(type) {
	case *Alloc:
		return &Alloc{Token: st.Token, Name: st.Name, Type: CloneType(st.Type), Mem: CloneMem(st.Mem)}
	case *Assign:
		return &Assign{Token: st.Token, Name: st.Name, Idx: cloneExprs(st.Idx), Value: CloneExpr(st.Value)}
	case *Reduce:
		return &Reduce{Token: st.Token, Name: st.Name, Idx: cloneExprs(st.Idx), Value: CloneExpr(st.Value)}
	case *SeqFor:
		return &SeqFor{Token: st.Token, Iter: st.Iter, Lo: CloneExpr(st.Lo), Hi: CloneExpr(st.Hi), Body: CloneBlock(st.Body)}
	case *If:
		return &If{Token: st.Token, Cond: CloneExpr(st.Cond), Then: CloneBlock(st.Then), Else: CloneBlock(st.Else)}
	case *Call:
		return &Call{Token: st.Token, Name: st.Name, Args: cloneExprs(st.Args)}
	case *Pass:
		return &Pass{Token: st.Token}
	case *WithPython:
		return &WithPython{Token: st.Token, Body: st.Body}
	case *SpliceStmt:
		return &SpliceStmt{Token: st.Token, Inner: st.Inner}
	}
	return s
}

func cloneExprs(exprs []Expression) []Expression {
	if exprs == nil {
		return nil
	}
	out := make([]Expression, len(exprs))
	for i, e := range exprs {
		out[i] = CloneExpr(e)
	}
	return out
}

func CloneExpr(e Expression) Expression {
	switch ex := e.(type) {
	case *Read:
		return &Read{Token: ex.Token, Name: ex.Name, Idx: cloneExprs(ex.Idx)}
	case *IntLit:
		return &IntLit{Token: ex.Token, Value: ex.Value}
	case *FloatLit:
		return &FloatLit{Token: ex.Token, Value: ex.Value}
	case *BoolLit:
		return &BoolLit{Token: ex.Token, Value: ex.Value}
	case *BinOp:
		return &BinOp{Token: ex.Token, Left: CloneExpr(ex.Left), Op: ex.Op, Right: CloneExpr(ex.Right)}
	case *USub:
		return &USub{Token: ex.Token, X: CloneExpr(ex.X)}
	case *Interval:
		return &Interval{Token: ex.Token, Lo: CloneExpr(ex.Lo), Hi: CloneExpr(ex.Hi)}
	case *SpliceExpr:
		return &SpliceExpr{Token: ex.Token, Inner: ex.Inner}
	}
	return e
}

func CloneType(t Type) Type {
	switch tt := t.(type) {
	case *Scalar:
		return &Scalar{Token: tt.Token, Kind: tt.Kind}
	case *Tensor:
		elem := *tt.Elem
		return &Tensor{Token: tt.Token, Elem: &elem, Dims: cloneExprs(tt.Dims)}
	case *SpliceType:
		return &SpliceType{Token: tt.Token, Inner: tt.Inner}
	}
	return t
}

func CloneMem(m Mem) Mem {
	switch mm := m.(type) {
	case *MemName:
		return &MemName{Token: mm.Token, Name: mm.Name}
	case *SpliceMem:
		return &SpliceMem{Token: mm.Token, Inner: mm.Inner}
	}
	return m
}
