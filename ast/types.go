package ast

import (
	"strings"

	"github.com/ChezJrk/exo/token"
)

// Type nodes annotate params and allocations. Tensor dimensions are
// object expressions, so a type may carry splices until staging
// resolves them.
type Type interface {
	Node
	typeNode()
}

// Mem nodes annotate where a buffer lives. MemName is resolved
// against the memory registry during staging.
type Mem interface {
	Node
	memNode()
}

type ScalarKind int

const (
	SizeKind ScalarKind = iota
	IndexKind
	StrideKind
	BoolKind
	I8
	UI8
	I16
	UI16
	I32
	UI32
	F16
	F32
	F64
	RealKind // R, a real number of unspecified width
)

var scalarNames = map[ScalarKind]string{
	SizeKind:   "size",
	IndexKind:  "index",
	StrideKind: "stride",
	BoolKind:   "bool",
	I8:         "i8",
	UI8:        "ui8",
	I16:        "i16",
	UI16:       "ui16",
	I32:        "i32",
	UI32:       "ui32",
	F16:        "f16",
	F32:        "f32",
	F64:        "f64",
	RealKind:   "R",
}

var scalarKinds = func() map[string]ScalarKind {
	m := make(map[string]ScalarKind, len(scalarNames))
	for k, n := range scalarNames {
		m[n] = k
	}
	return m
}()

// LookupScalar maps a source-level type name to its kind.
func LookupScalar(name string) (ScalarKind, bool) {
	k, ok := scalarKinds[name]
	return k, ok
}

func (k ScalarKind) String() string { return scalarNames[k] }

// IsFloat reports whether the kind stores real values.
func (k ScalarKind) IsFloat() bool {
	return k == F16 || k == F32 || k == F64 || k == RealKind
}

// IsInt reports whether the kind stores integer values, control
// kinds (size, index, stride) included.
func (k ScalarKind) IsInt() bool {
	return !k.IsFloat() && k != BoolKind
}

// IsControl reports whether the kind indexes or sizes loops and
// buffers rather than holding data.
func (k ScalarKind) IsControl() bool {
	return k == SizeKind || k == IndexKind || k == StrideKind
}

// Scalar is a builtin scalar type.
type Scalar struct {
	Token token.Token
	Kind  ScalarKind
}

func (s *Scalar) typeNode() {}
func (s *Scalar) Tok() token.Token { return s.Token }
func (s *Scalar) String() string   { return s.Kind.String() }

// Tensor is "elem[d0, d1, ...]". Dims may contain splices before
// staging.
type Tensor struct {
	Token token.Token // the [ token
	Elem  *Scalar
	Dims  []Expression
}

func (t *Tensor) typeNode() {}
func (t *Tensor) Tok() token.Token { return t.Token }
func (t *Tensor) String() string {
	dims := make([]string, 0, len(t.Dims))
	for _, d := range t.Dims {
		dims = append(dims, d.String())
	}
	return t.Elem.String() + "[" + strings.Join(dims, ", ") + "]"
}

// SpliceType is "{h}" in type position. The host value must be a
// type string, parsed during staging.
type SpliceType struct {
	Token token.Token // the { token
	Inner HostExpression
}

func (s *SpliceType) typeNode() {}
func (s *SpliceType) Tok() token.Token { return s.Token }
func (s *SpliceType) String() string {
	return "{" + s.Inner.String() + "}"
}

// MemName names a memory space, e.g. "DRAM".
type MemName struct {
	Token token.Token
	Name  string
}

func (m *MemName) memNode() {}
func (m *MemName) Tok() token.Token { return m.Token }
func (m *MemName) String() string   { return m.Name }

// SpliceMem is "{h}" in memory position. The host value must be a
// registered memory reference; it is substituted without coercion.
type SpliceMem struct {
	Token token.Token // the { token
	Inner HostExpression
}

func (m *SpliceMem) memNode() {}
func (m *SpliceMem) Tok() token.Token { return m.Token }
func (m *SpliceMem) String() string {
	return "{" + m.Inner.String() + "}"
}

// TypeEqual reports structural equality of two staged types. Tensor
// dimensions compare by rendered form, which is exact once splices
// are gone.
func TypeEqual(a, b Type) bool {
	switch at := a.(type) {
	case *Scalar:
		bt, ok := b.(*Scalar)
		return ok && at.Kind == bt.Kind
	case *Tensor:
		bt, ok := b.(*Tensor)
		if !ok || at.Elem.Kind != bt.Elem.Kind || len(at.Dims) != len(bt.Dims) {
			return false
		}
		for i := range at.Dims {
			if at.Dims[i].String() != bt.Dims[i].String() {
				return false
			}
		}
		return true
	}
	return false
}
