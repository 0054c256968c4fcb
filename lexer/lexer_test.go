package lexer

import (
	"testing"

	"github.com/ChezJrk/exo/token"
	"github.com/stretchr/testify/require"
)

type Test struct {
	expectedType    token.TokenType
	expectedLiteral string
}

func checkInput(t *testing.T, input string, tests []Test) {
	t.Helper()
	l := New("test.exo", input)

	for i, tt := range tests {
		tok := l.NextToken()
		require.Equal(t, tt.expectedType, tok.Type, "tests[%d] - tokentype wrong. literal=%q", i, tok.Literal)
		require.Equal(t, tt.expectedLiteral, tok.Literal, "tests[%d] - literal wrong", i)
	}
}

func TestNextToken(t *testing.T) {
	input := `def scale(n: size, x: f32[n] @ DRAM):
    # doubles every element
    for i in seq(0, n):
        x[i] = x[i] * 2.0
`

	tests := []Test{
		{token.DEF, "def"},
		{token.IDENT, "scale"},
		{token.LPAREN, "("},
		{token.IDENT, "n"},
		{token.COLON, ":"},
		{token.IDENT, "size"},
		{token.COMMA, ","},
		{token.IDENT, "x"},
		{token.COLON, ":"},
		{token.IDENT, "f32"},
		{token.LBRACK, "["},
		{token.IDENT, "n"},
		{token.RBRACK, "]"},
		{token.AT, "@"},
		{token.IDENT, "DRAM"},
		{token.RPAREN, ")"},
		{token.COLON, ":"},
		{token.NEWLINE, "\n"},
		{token.INDENT, ""},
		{token.FOR, "for"},
		{token.IDENT, "i"},
		{token.IN, "in"},
		{token.SEQ, "seq"},
		{token.LPAREN, "("},
		{token.INT, "0"},
		{token.COMMA, ","},
		{token.IDENT, "n"},
		{token.RPAREN, ")"},
		{token.COLON, ":"},
		{token.NEWLINE, "\n"},
		{token.INDENT, ""},
		{token.IDENT, "x"},
		{token.LBRACK, "["},
		{token.IDENT, "i"},
		{token.RBRACK, "]"},
		{token.ASSIGN, "="},
		{token.IDENT, "x"},
		{token.LBRACK, "["},
		{token.IDENT, "i"},
		{token.RBRACK, "]"},
		{token.MUL, "*"},
		{token.FLOAT, "2.0"},
		{token.NEWLINE, "\n"},
		{token.DEINDENT, ""},
		{token.DEINDENT, ""},
		{token.EOF, ""},
	}

	checkInput(t, input, tests)
}

func TestStagingTokens(t *testing.T) {
	input := `with python:
    k = 4
    with exo as blk:
        y[{k}] += ~{acc * 2.0}
`

	tests := []Test{
		{token.WITH, "with"},
		{token.PYTHON, "python"},
		{token.COLON, ":"},
		{token.NEWLINE, "\n"},
		{token.INDENT, ""},
		{token.IDENT, "k"},
		{token.ASSIGN, "="},
		{token.INT, "4"},
		{token.NEWLINE, "\n"},
		{token.WITH, "with"},
		{token.EXO, "exo"},
		{token.AS, "as"},
		{token.IDENT, "blk"},
		{token.COLON, ":"},
		{token.NEWLINE, "\n"},
		{token.INDENT, ""},
		{token.IDENT, "y"},
		{token.LBRACK, "["},
		{token.LBRACE, "{"},
		{token.IDENT, "k"},
		{token.RBRACE, "}"},
		{token.RBRACK, "]"},
		{token.ADD_ASSIGN, "+="},
		{token.TILDE, "~"},
		{token.LBRACE, "{"},
		{token.IDENT, "acc"},
		{token.MUL, "*"},
		{token.FLOAT, "2.0"},
		{token.RBRACE, "}"},
		{token.NEWLINE, "\n"},
		{token.DEINDENT, ""},
		{token.DEINDENT, ""},
		{token.EOF, ""},
	}

	checkInput(t, input, tests)
}

func TestBracketsSuppressNewline(t *testing.T) {
	input := `call(a,
    b,
        c)
d = 1
`

	tests := []Test{
		{token.IDENT, "call"},
		{token.LPAREN, "("},
		{token.IDENT, "a"},
		{token.COMMA, ","},
		{token.IDENT, "b"},
		{token.COMMA, ","},
		{token.IDENT, "c"},
		{token.RPAREN, ")"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "d"},
		{token.ASSIGN, "="},
		{token.INT, "1"},
		{token.NEWLINE, "\n"},
		{token.EOF, ""},
	}

	checkInput(t, input, tests)
}

func TestBlankAndCommentLines(t *testing.T) {
	input := `a = 1

    # only a comment
# another
b = 2
`

	tests := []Test{
		{token.IDENT, "a"},
		{token.ASSIGN, "="},
		{token.INT, "1"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "b"},
		{token.ASSIGN, "="},
		{token.INT, "2"},
		{token.NEWLINE, "\n"},
		{token.EOF, ""},
	}

	checkInput(t, input, tests)
}

func TestOperators(t *testing.T) {
	input := `a == b != c <= d >= e < f > g
h = -i / j % k
`

	tests := []Test{
		{token.IDENT, "a"},
		{token.EQL, "=="},
		{token.IDENT, "b"},
		{token.NEQ, "!="},
		{token.IDENT, "c"},
		{token.LEQ, "<="},
		{token.IDENT, "d"},
		{token.GEQ, ">="},
		{token.IDENT, "e"},
		{token.LSS, "<"},
		{token.IDENT, "f"},
		{token.GTR, ">"},
		{token.IDENT, "g"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "h"},
		{token.ASSIGN, "="},
		{token.SUB, "-"},
		{token.IDENT, "i"},
		{token.QUO, "/"},
		{token.IDENT, "j"},
		{token.REM, "%"},
		{token.IDENT, "k"},
		{token.NEWLINE, "\n"},
		{token.EOF, ""},
	}

	checkInput(t, input, tests)
}

func TestMissingFinalNewline(t *testing.T) {
	input := `if flag:
    pass`

	tests := []Test{
		{token.IF, "if"},
		{token.IDENT, "flag"},
		{token.COLON, ":"},
		{token.NEWLINE, "\n"},
		{token.INDENT, ""},
		{token.PASS, "pass"},
		{token.NEWLINE, "\n"},
		{token.DEINDENT, ""},
		{token.EOF, ""},
	}

	checkInput(t, input, tests)
}

func TestIndentErr(t *testing.T) {
	input := `a = 4
    b = 5
  c = 3
`

	tests := []Test{
		{token.IDENT, "a"},
		{token.ASSIGN, "="},
		{token.INT, "4"},
		{token.NEWLINE, "\n"},
		{token.INDENT, ""},
		{token.IDENT, "b"},
		{token.ASSIGN, "="},
		{token.INT, "5"},
		{token.NEWLINE, "\n"},
		{token.DEINDENT, ""},
		{token.ILLEGAL, "unindent does not match any outer indentation level"},
	}

	checkInput(t, input, tests)
}

func TestPositions(t *testing.T) {
	l := New("pos.exo", "x = 10\ny = 2.5\n")

	x := l.NextToken()
	require.Equal(t, token.Position{File: "pos.exo", Line: 1, Column: 1}, x.Pos)

	assign := l.NextToken()
	require.Equal(t, 3, assign.Pos.Column)

	ten := l.NextToken()
	require.Equal(t, 5, ten.Pos.Column)
	require.Equal(t, token.INT, ten.Type)

	nl := l.NextToken()
	require.Equal(t, token.NEWLINE, nl.Type)

	y := l.NextToken()
	require.Equal(t, 2, y.Pos.Line)
	require.Equal(t, 1, y.Pos.Column)

	l.NextToken() // =
	f := l.NextToken()
	require.Equal(t, token.FLOAT, f.Type)
	require.Equal(t, "2.5", f.Literal)
	require.Equal(t, 5, f.Pos.Column)
}

func TestStringLiteral(t *testing.T) {
	l := New("s.exo", `m = "f32[n, m] @ DRAM"` + "\n")

	l.NextToken() // m
	l.NextToken() // =
	s := l.NextToken()
	require.Equal(t, token.STRING, s.Type)
	require.Equal(t, "f32[n, m] @ DRAM", s.Literal)
}

func TestUnterminatedString(t *testing.T) {
	l := New("s.exo", "a = \"abc\n")

	l.NextToken() // a
	l.NextToken() // =
	s := l.NextToken()
	require.Equal(t, token.ILLEGAL, s.Type)
}
