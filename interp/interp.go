package interp

import (
	"fmt"

	"github.com/ChezJrk/exo/ast"
	"github.com/ChezJrk/exo/token"
	"github.com/pkg/errors"
)

// Machine executes staged procedures on concrete buffers and is the
// reference for what generated C must compute. Memory annotations do
// not affect interpretation.
type Machine struct {
	procs map[string]*ast.Proc
}

// New builds a machine over the given procedures. Calls between them
// resolve by name.
func New(procs []*ast.Proc) *Machine {
	m := &Machine{procs: make(map[string]*ast.Proc, len(procs))}
	for _, p := range procs {
		m.procs[p.Name] = p
	}
	return m
}

// Run executes the named procedure. Control scalars (size, index,
// stride) are passed as int64 or int, bools as bool, and everything
// else as *Buffer; a data scalar is a rank-zero buffer, so writes the
// procedure makes to it are visible to the caller, the way the
// generated C writes through a pointer.
func (m *Machine) Run(name string, args map[string]any) error {
	p, ok := m.procs[name]
	if !ok {
		return errors.Errorf("no procedure named %s", name)
	}
	f := newFrame(nil)
	for _, prm := range p.Params {
		arg, ok := args[prm.Name]
		if !ok {
			return errors.Errorf("%s: missing argument %s", name, prm.Name)
		}
		v, err := bindArg(p, prm, arg, f)
		if err != nil {
			return err
		}
		f.vals[prm.Name] = v
	}
	for argName := range args {
		if _, ok := f.vals[argName]; !ok {
			return errors.Errorf("%s has no parameter %s", name, argName)
		}
	}
	return m.execBlock(p.Body, f)
}

// bindArg checks one top-level argument against its parameter and
// returns the frame value for it. Tensor extents are verified against
// the parameter's dimensions, which may reference parameters bound
// earlier in f.
func bindArg(p *ast.Proc, prm *ast.Param, arg any, f *frame) (any, error) {
	switch t := prm.Type.(type) {
	case *ast.Scalar:
		switch {
		case t.Kind.IsControl():
			switch n := arg.(type) {
			case int64:
				return n, nil
			case int:
				return int64(n), nil
			}
			return nil, errors.Errorf("%s: argument %s must be an integer, got %T", p.Name, prm.Name, arg)
		case t.Kind == ast.BoolKind:
			b, ok := arg.(bool)
			if !ok {
				return nil, errors.Errorf("%s: argument %s must be a bool, got %T", p.Name, prm.Name, arg)
			}
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		default:
			buf, ok := arg.(*Buffer)
			if !ok {
				return nil, errors.Errorf("%s: argument %s must be a *interp.Buffer, got %T", p.Name, prm.Name, arg)
			}
			if buf.Rank() != 0 {
				return nil, errors.Errorf("%s: argument %s must be a scalar buffer, got rank %d", p.Name, prm.Name, buf.Rank())
			}
			if buf.Kind != t.Kind {
				return nil, errors.Errorf("%s: argument %s has element kind %s, want %s", p.Name, prm.Name, buf.Kind, t.Kind)
			}
			return buf, nil
		}
	case *ast.Tensor:
		buf, ok := arg.(*Buffer)
		if !ok {
			return nil, errors.Errorf("%s: argument %s must be a *interp.Buffer, got %T", p.Name, prm.Name, arg)
		}
		if buf.Kind != t.Elem.Kind {
			return nil, errors.Errorf("%s: argument %s has element kind %s, want %s", p.Name, prm.Name, buf.Kind, t.Elem.Kind)
		}
		if buf.Rank() != len(t.Dims) {
			return nil, errors.Errorf("%s: argument %s has rank %d, want %d", p.Name, prm.Name, buf.Rank(), len(t.Dims))
		}
		for d, dim := range t.Dims {
			want, err := evalIndex(dim, f)
			if err != nil {
				return nil, err
			}
			if int64(buf.Shape[d]) != want {
				return nil, errors.Errorf("%s: argument %s has extent %d in dimension %d, want %d", p.Name, prm.Name, buf.Shape[d], d, want)
			}
		}
		return buf, nil
	}
	return nil, errors.Errorf("%s: parameter %s has unstaged type %s", p.Name, prm.Name, prm.Type.String())
}

// ShapeOf evaluates a tensor parameter's dimensions against concrete
// control-scalar bindings, so callers can allocate matching buffers
// before Run.
func ShapeOf(prm *ast.Param, sizes map[string]int64) ([]int, error) {
	t, ok := prm.Type.(*ast.Tensor)
	if !ok {
		return nil, errors.Errorf("%s is not a tensor parameter", prm.Name)
	}
	f := newFrame(nil)
	for n, v := range sizes {
		f.vals[n] = v
	}
	shape := make([]int, len(t.Dims))
	for d, dim := range t.Dims {
		n, err := evalIndex(dim, f)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, errors.Errorf("dimension %d of %s is negative (%d)", d, prm.Name, n)
		}
		shape[d] = int(n)
	}
	return shape, nil
}

// frame is one lexical scope at run time. Values are int64 for
// iterators, control scalars and bools, and *Buffer for everything
// else.
type frame struct {
	vals  map[string]any
	outer *frame
}

func newFrame(outer *frame) *frame {
	return &frame{vals: map[string]any{}, outer: outer}
}

func (f *frame) lookup(name string) (any, bool) {
	for s := f; s != nil; s = s.outer {
		if v, ok := s.vals[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// trap builds a positioned runtime fault.
func trap(tok token.Token, format string, args ...any) *token.CompileError {
	return &token.CompileError{Token: tok, Msg: fmt.Sprintf(format, args...)}
}

func (m *Machine) execBlock(stmts []ast.Statement, f *frame) error {
	for _, s := range stmts {
		if err := m.execStmt(s, f); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) execStmt(s ast.Statement, f *frame) error {
	switch st := s.(type) {
	case *ast.Alloc:
		return execAlloc(st, f)
	case *ast.Assign:
		return store(st.Token, st.Name, st.Idx, st.Value, false, f)
	case *ast.Reduce:
		return store(st.Token, st.Name, st.Idx, st.Value, true, f)
	case *ast.SeqFor:
		lo, err := evalIndex(st.Lo, f)
		if err != nil {
			return err
		}
		hi, err := evalIndex(st.Hi, f)
		if err != nil {
			return err
		}
		for i := lo; i < hi; i++ {
			body := newFrame(f)
			body.vals[st.Iter] = i
			if err := m.execBlock(st.Body, body); err != nil {
				return err
			}
		}
		return nil
	case *ast.If:
		cond, err := evalCond(st.Cond, f)
		if err != nil {
			return err
		}
		if cond {
			return m.execBlock(st.Then, newFrame(f))
		}
		return m.execBlock(st.Else, newFrame(f))
	case *ast.Call:
		return m.call(st, f)
	case *ast.Pass:
		return nil
	}
	return trap(s.Tok(), "cannot interpret unstaged statement")
}

// execAlloc allocates a fresh zeroed buffer in the current scope. An
// allocation inside a loop body is re-created on every iteration, like
// a block-scoped declaration in the generated C.
func execAlloc(a *ast.Alloc, f *frame) error {
	switch t := a.Type.(type) {
	case *ast.Scalar:
		f.vals[a.Name] = NewBuffer(t.Kind)
		return nil
	case *ast.Tensor:
		shape := make([]int, len(t.Dims))
		for d, dim := range t.Dims {
			n, err := evalIndex(dim, f)
			if err != nil {
				return err
			}
			if n < 0 {
				return trap(dim.Tok(), "negative extent %d for dimension %d of %s", n, d, a.Name)
			}
			shape[d] = int(n)
		}
		f.vals[a.Name] = NewBuffer(t.Elem.Kind, shape...)
		return nil
	}
	return trap(a.Token, "cannot allocate %s with unstaged type %s", a.Name, a.Type.String())
}

// store evaluates value and writes it to one element, adding to the
// current contents for a reduction. The result is quantized to the
// buffer's element kind.
func store(tok token.Token, name string, idx []ast.Expression, value ast.Expression, reduce bool, f *frame) error {
	v, ok := f.lookup(name)
	if !ok {
		return trap(tok, "undefined name %s", name)
	}
	b, ok := v.(*Buffer)
	if !ok {
		return trap(tok, "cannot assign to %s", name)
	}
	pos, err := locate(tok, name, b, idx, f)
	if err != nil {
		return err
	}
	x, err := evalExpr(value, f)
	if err != nil {
		return err
	}
	if reduce {
		x += b.Data[pos]
	}
	b.Data[pos] = quantize(b.Kind, x)
	return nil
}

// locate maps a fully pointed index list to a flat Data offset,
// checking bounds along the way.
func locate(tok token.Token, name string, b *Buffer, idx []ast.Expression, f *frame) (int, error) {
	if len(idx) != b.Rank() {
		if b.Rank() == 0 {
			return 0, trap(tok, "%s is a scalar and cannot be indexed", name)
		}
		return 0, trap(tok, "%s has rank %d but is indexed with %d indices", name, b.Rank(), len(idx))
	}
	pos := b.off
	for d, ix := range idx {
		if _, ok := ix.(*ast.Interval); ok {
			return 0, trap(ix.Tok(), "cannot use a window of %s as a single element", name)
		}
		i, err := evalIndex(ix, f)
		if err != nil {
			return 0, err
		}
		if i < 0 || i >= int64(b.Shape[d]) {
			return 0, trap(ix.Tok(), "index %d out of range for dimension %d of %s (extent %d)", i, d, name, b.Shape[d])
		}
		pos += int(i) * b.Strides[d]
	}
	return pos, nil
}

func (m *Machine) call(c *ast.Call, f *frame) error {
	callee, ok := m.procs[c.Name]
	if !ok {
		return trap(c.Token, "no procedure named %s", c.Name)
	}
	if len(c.Args) != len(callee.Params) {
		return trap(c.Token, "calling %s with %d arguments, want %d", c.Name, len(c.Args), len(callee.Params))
	}
	g := newFrame(nil)
	for i, prm := range callee.Params {
		v, err := m.callArg(c, prm, c.Args[i], f, g)
		if err != nil {
			return err
		}
		g.vals[prm.Name] = v
	}
	return m.execBlock(callee.Body, g)
}

// callArg evaluates one call argument in the caller's frame f and
// checks it against the callee parameter. Buffer arguments pass as
// views of the caller's storage; g holds the callee parameters bound
// so far, which tensor extents may reference.
func (m *Machine) callArg(c *ast.Call, prm *ast.Param, arg ast.Expression, f, g *frame) (any, error) {
	switch t := prm.Type.(type) {
	case *ast.Scalar:
		switch {
		case t.Kind.IsControl():
			return evalIndex(arg, f)
		case t.Kind == ast.BoolKind:
			b, err := evalCond(arg, f)
			if err != nil {
				return nil, err
			}
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		default:
			w, err := argView(c, prm, arg, f)
			if err != nil {
				return nil, err
			}
			if w.Rank() != 0 {
				return nil, trap(arg.Tok(), "argument %s of %s must be a scalar, got rank %d", prm.Name, c.Name, w.Rank())
			}
			if w.Kind != t.Kind {
				return nil, trap(arg.Tok(), "argument %s of %s has element kind %s, want %s", prm.Name, c.Name, w.Kind, t.Kind)
			}
			return w, nil
		}
	case *ast.Tensor:
		w, err := argView(c, prm, arg, f)
		if err != nil {
			return nil, err
		}
		if w.Kind != t.Elem.Kind {
			return nil, trap(arg.Tok(), "argument %s of %s has element kind %s, want %s", prm.Name, c.Name, w.Kind, t.Elem.Kind)
		}
		if w.Rank() != len(t.Dims) {
			return nil, trap(arg.Tok(), "argument %s of %s has rank %d, want %d", prm.Name, c.Name, w.Rank(), len(t.Dims))
		}
		for d, dim := range t.Dims {
			want, err := evalIndex(dim, g)
			if err != nil {
				return nil, err
			}
			if int64(w.Shape[d]) != want {
				return nil, trap(arg.Tok(), "argument %s of %s has extent %d in dimension %d, want %d", prm.Name, c.Name, w.Shape[d], d, want)
			}
		}
		return w, nil
	}
	return nil, trap(prm.Tok(), "parameter %s of %s has unstaged type %s", prm.Name, c.Name, prm.Type.String())
}

// argView resolves a buffer-typed call argument to a view of the
// caller's storage, applying any window.
func argView(c *ast.Call, prm *ast.Param, arg ast.Expression, f *frame) (*Buffer, error) {
	r, ok := arg.(*ast.Read)
	if !ok {
		return nil, trap(arg.Tok(), "argument %s of %s must name a buffer", prm.Name, c.Name)
	}
	v, ok := f.lookup(r.Name)
	if !ok {
		return nil, trap(r.Token, "undefined name %s", r.Name)
	}
	b, ok := v.(*Buffer)
	if !ok {
		return nil, trap(r.Token, "%s is not a buffer", r.Name)
	}
	return view(r, b, f)
}

// view applies r's index list to b. Point indices fix a dimension and
// intervals narrow one; the result shares b's storage. An empty index
// list is the whole buffer.
func view(r *ast.Read, b *Buffer, f *frame) (*Buffer, error) {
	if len(r.Idx) == 0 {
		return b, nil
	}
	if len(r.Idx) != b.Rank() {
		return nil, trap(r.Token, "%s has rank %d but is indexed with %d indices", r.Name, b.Rank(), len(r.Idx))
	}
	w := &Buffer{Kind: b.Kind, Data: b.Data, off: b.off}
	for d, ix := range r.Idx {
		if iv, ok := ix.(*ast.Interval); ok {
			lo, err := evalIndex(iv.Lo, f)
			if err != nil {
				return nil, err
			}
			hi, err := evalIndex(iv.Hi, f)
			if err != nil {
				return nil, err
			}
			if lo < 0 || hi < lo || hi > int64(b.Shape[d]) {
				return nil, trap(iv.Token, "window %d:%d out of range for dimension %d of %s (extent %d)", lo, hi, d, r.Name, b.Shape[d])
			}
			w.off += int(lo) * b.Strides[d]
			w.Shape = append(w.Shape, int(hi-lo))
			w.Strides = append(w.Strides, b.Strides[d])
			continue
		}
		i, err := evalIndex(ix, f)
		if err != nil {
			return nil, err
		}
		if i < 0 || i >= int64(b.Shape[d]) {
			return nil, trap(ix.Tok(), "index %d out of range for dimension %d of %s (extent %d)", i, d, r.Name, b.Shape[d])
		}
		w.off += int(i) * b.Strides[d]
	}
	return w, nil
}
