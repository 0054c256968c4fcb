package staging

import (
	"strconv"
	"strings"

	"github.com/ChezJrk/exo/ast"
	"github.com/ChezJrk/exo/memory"
	"github.com/ChezJrk/exo/token"
)

// ValueType names the runtime type of a host value, as it appears in
// error messages.
type ValueType string

const (
	IntType     ValueType = "int"
	FloatType   ValueType = "float"
	StrType     ValueType = "str"
	BoolType    ValueType = "bool"
	ListType    ValueType = "list"
	SliceType   ValueType = "slice"
	FuncType    ValueType = "function"
	BuiltinType ValueType = "builtin"
	MemType     ValueType = "memory"
	QuoteType   ValueType = "quote"
	NoneType    ValueType = "none"
)

// Value is a host-language runtime value. Host code computes over
// these during staging; none of them survive into the staged tree
// except through splicing.
type Value interface {
	Type() ValueType
	Inspect() string
}

type Int struct {
	Value int64
}

func (i *Int) Type() ValueType { return IntType }
func (i *Int) Inspect() string { return strconv.FormatInt(i.Value, 10) }

type Float struct {
	Value float64
}

func (f *Float) Type() ValueType { return FloatType }
func (f *Float) Inspect() string { return ast.FormatFloat(f.Value) }

type Str struct {
	Value string
}

func (s *Str) Type() ValueType { return StrType }
func (s *Str) Inspect() string { return s.Value }

type Bool struct {
	Value bool
}

func (b *Bool) Type() ValueType { return BoolType }
func (b *Bool) Inspect() string {
	if b.Value {
		return "True"
	}
	return "False"
}

// True and False are the only Bool values the evaluator produces, so
// comparisons can use pointer identity.
var (
	True  = &Bool{Value: true}
	False = &Bool{Value: false}
	None  = &NoneVal{}
)

func nativeBool(b bool) *Bool {
	if b {
		return True
	}
	return False
}

type List struct {
	Elems []Value
}

func (l *List) Type() ValueType { return ListType }
func (l *List) Inspect() string {
	parts := make([]string, len(l.Elems))
	for i, e := range l.Elems {
		parts[i] = e.Inspect()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Slice is a sub-range descriptor built by the slice builtin. Only an
// index position accepts it, where it becomes an interval node.
type Slice struct {
	Lo, Hi int64
	Step   int64
}

func (s *Slice) Type() ValueType { return SliceType }
func (s *Slice) Inspect() string {
	out := "slice(" + strconv.FormatInt(s.Lo, 10) + ", " + strconv.FormatInt(s.Hi, 10)
	if s.Step != 1 {
		out += ", " + strconv.FormatInt(s.Step, 10)
	}
	return out + ")"
}

// Func is a host function. Env is the definition scope, so free names
// resolve where the function was written, not where it is called.
type Func struct {
	Name   string
	Params []string
	Body   []ast.HostStatement
	Env    *Env
}

func (f *Func) Type() ValueType { return FuncType }
func (f *Func) Inspect() string {
	return "def " + f.Name + "(" + strings.Join(f.Params, ", ") + ")"
}

// Builtin is a host function provided by the staging runtime.
type Builtin struct {
	Name string
	Fn   func(ev *Evaluator, tok token.Token, args []Value) (Value, *Error)
}

func (b *Builtin) Type() ValueType { return BuiltinType }
func (b *Builtin) Inspect() string { return "builtin " + b.Name }

// MemRef wraps a registered memory space. Memory names are bound as
// host values at staging start, so annotations can splice them.
type MemRef struct {
	Mem *memory.Memory
}

func (m *MemRef) Type() ValueType { return MemType }
func (m *MemRef) Inspect() string { return m.Mem.Name }

type NoneVal struct{}

func (n *NoneVal) Type() ValueType { return NoneType }
func (n *NoneVal) Inspect() string { return "None" }

func isTruthy(v Value) bool {
	switch val := v.(type) {
	case *Bool:
		return val.Value
	case *Int:
		return val.Value != 0
	case *Float:
		return val.Value != 0
	case *Str:
		return val.Value != ""
	case *List:
		return len(val.Elems) > 0
	case *NoneVal:
		return false
	default:
		return true
	}
}
