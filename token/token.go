package token

import (
	"fmt"
	"strconv"
)

type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF
	COMMENT

	literal_beg
	// Identifiers + literals
	IDENT  // blur, g, i, ...
	INT    // 42
	FLOAT  // 5.0
	STRING // "f32[n, m]"
	literal_end

	operator_beg
	// Operators and delimiters
	ASSIGN     // =
	ADD_ASSIGN // +=

	ADD // +
	SUB // -
	MUL // *
	QUO // /
	REM // %

	TILDE // ~
	AT    // @

	LPAREN // (
	LBRACK // [
	LBRACE // {
	COMMA  // ,
	COLON  // :

	RPAREN // )
	RBRACK // ]
	RBRACE // }
	operator_end

	comparison_beg
	EQL // ==
	LSS // <
	GTR // >

	NEQ // !=
	LEQ // <=
	GEQ // >=
	comparison_end

	NEWLINE
	INDENT
	DEINDENT

	keyword_beg
	DEF
	FOR
	IN
	SEQ
	RANGE
	IF
	ELIF
	ELSE
	WHILE
	WITH
	PYTHON
	EXO
	AS
	PASS
	RETURN
	AND
	OR
	NOT
	TRUE
	FALSE
	keyword_end
)

var tokens = [...]string{
	ILLEGAL: "ILLEGAL",

	EOF:     "EOF",
	COMMENT: "COMMENT",

	IDENT:  "IDENT",
	INT:    "INT",
	FLOAT:  "FLOAT",
	STRING: "STRING",

	ASSIGN:     "=",
	ADD_ASSIGN: "+=",

	ADD: "+",
	SUB: "-",
	MUL: "*",
	QUO: "/",
	REM: "%",

	TILDE: "~",
	AT:    "@",

	LPAREN: "(",
	LBRACK: "[",
	LBRACE: "{",
	COMMA:  ",",
	COLON:  ":",

	RPAREN: ")",
	RBRACK: "]",
	RBRACE: "}",

	EQL: "==",
	LSS: "<",
	GTR: ">",

	NEQ: "!=",
	LEQ: "<=",
	GEQ: ">=",

	NEWLINE:  "NEWLINE",
	INDENT:   "INDENT",
	DEINDENT: "DEINDENT",

	DEF:    "def",
	FOR:    "for",
	IN:     "in",
	SEQ:    "seq",
	RANGE:  "range",
	IF:     "if",
	ELIF:   "elif",
	ELSE:   "else",
	WHILE:  "while",
	WITH:   "with",
	PYTHON: "python",
	EXO:    "exo",
	AS:     "as",
	PASS:   "pass",
	RETURN: "return",
	AND:    "and",
	OR:     "or",
	NOT:    "not",
	TRUE:   "True",
	FALSE:  "False",
}

var keywords = func() map[string]TokenType {
	m := make(map[string]TokenType, keyword_end-keyword_beg)
	for t := keyword_beg + 1; t < keyword_end; t++ {
		m[tokens[t]] = TokenType(t)
	}
	return m
}()

// LookupIdent maps an identifier literal to its keyword token type,
// or IDENT when it is not a keyword.
func LookupIdent(ident string) TokenType {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return IDENT
}

// Position is a source location. Line and Column are 1-based.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

func (t Token) IsComparison() bool {
	return comparison_beg < t.Type && comparison_end > t.Type
}

func (t Token) IsLiteral() bool {
	return literal_beg < t.Type && literal_end > t.Type
}

func (t Token) String() string {
	return t.Type.String()
}

func (tokenType TokenType) String() string {
	s := ""
	if 0 <= tokenType && tokenType < TokenType(len(tokens)) {
		s = tokens[tokenType]
	}

	if s == "" {
		s = "token(" + strconv.Itoa(int(tokenType)) + ")"
	}

	return s
}

// CompileError is a user-facing diagnostic anchored to a token.
type CompileError struct {
	Token Token
	Msg   string
}

func (ce *CompileError) Error() string {
	p := ce.Token.Pos
	return fmt.Sprintf("%s:%d:%d:%s", p.File, p.Line, p.Column, ce.Msg)
}
