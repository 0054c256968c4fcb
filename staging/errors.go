package staging

import (
	"fmt"

	"github.com/ChezJrk/exo/token"
)

// ErrKind classifies staging failures. Every kind aborts staging of
// the enclosing procedure immediately; no partial body is kept.
type ErrKind int

const (
	// ErrSyntax covers malformed staging constructs that survive
	// parsing, such as a return at the top level of a host region.
	ErrSyntax ErrKind = iota
	// ErrContextMismatch is a spliced value whose kind does not fit
	// the syntactic position it was spliced into.
	ErrContextMismatch
	// ErrSideEffect is an object region executed while evaluating an
	// expression splice, which would leave the statement order
	// ambiguous.
	ErrSideEffect
	// ErrNameResolution is an identifier that resolves neither as an
	// object-language binding nor as a host variable, or an illegal
	// assignment target.
	ErrNameResolution
	// ErrTypeStringParse is a type-position splice whose string does
	// not parse under the type grammar.
	ErrTypeStringParse
	// ErrHost is a failure inside host code itself, such as a bad
	// operand type or an out-of-range list index. Host exceptions
	// propagate and abort staging like every other kind.
	ErrHost
)

var errKindNames = map[ErrKind]string{
	ErrSyntax:          "syntax error",
	ErrContextMismatch: "context mismatch",
	ErrSideEffect:      "side effect",
	ErrNameResolution:  "name resolution",
	ErrTypeStringParse: "type string parse",
	ErrHost:            "host error",
}

func (k ErrKind) String() string { return errKindNames[k] }

// Error is a staging failure with the position of the offending
// construct.
type Error struct {
	Kind ErrKind
	Pos  token.Position
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%s: %s", e.Pos, e.Kind, e.Msg)
}

func newError(kind ErrKind, tok token.Token, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: tok.Pos, Msg: fmt.Sprintf(format, args...)}
}
