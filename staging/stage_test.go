package staging

import (
	"testing"

	"github.com/ChezJrk/exo/ast"
	"github.com/ChezJrk/exo/lexer"
	"github.com/ChezJrk/exo/parser"
	"github.com/stretchr/testify/require"
)

func stageFile(t *testing.T, input string) []*ast.Proc {
	t.Helper()
	l := lexer.New("stage.exo", input)
	p := parser.New(l)
	file := p.Parse()
	require.Empty(t, p.Errors(), "unexpected parse errors: %v", p.Errors())
	procs, err := Stage(file)
	require.NoError(t, err)
	return procs
}

func stageOneProc(t *testing.T, input string) *ast.Proc {
	t.Helper()
	procs := stageFile(t, input)
	require.Len(t, procs, 1, "expected exactly one staged procedure, got %d", len(procs))
	return procs[0]
}

// requireStageError asserts staging fails with exactly the rendered
// error and that no partially staged procedures escape.
func requireStageError(t *testing.T, input string, kind ErrKind, want string) {
	t.Helper()
	l := lexer.New("stage.exo", input)
	p := parser.New(l)
	file := p.Parse()
	require.Empty(t, p.Errors(), "unexpected parse errors: %v", p.Errors())
	procs, err := Stage(file)
	require.Nil(t, procs)
	require.Error(t, err)
	serr, ok := err.(*Error)
	require.Truef(t, ok, "expected *staging.Error, got %T", err)
	require.Equal(t, kind, serr.Kind)
	require.EqualError(t, err, want)
}

func TestDeadBranchEmitsNothing(t *testing.T) {
	input := `def dead(n: size, x: f32[n] @ DRAM):
    with python:
        if False:
            with exo:
                x[0] = 0.0
        for i in range(0, 0):
            with exo:
                x[1] = 1.0
`
	proc := stageOneProc(t, input)
	require.Empty(t, proc.Body)
}

func TestCaptureWithoutExecution(t *testing.T) {
	input := `def bindonly(x: f32[4] @ DRAM):
    with python:
        with exo as q:
            x[0] = 1.0
`
	proc := stageOneProc(t, input)
	require.Empty(t, proc.Body, "binding a statement quote must not emit its body")
}

func TestReplayCount(t *testing.T) {
	input := `def replay(n: size, acc: f32[n] @ DRAM):
    with python:
        for i in range(1, 11):
            with exo:
                acc[0] += {i % 2}
`
	proc := stageOneProc(t, input)
	require.Len(t, proc.Body, 10)

	for i, s := range proc.Body {
		red, ok := s.(*ast.Reduce)
		require.Truef(t, ok, "statement %d: expected *ast.Reduce, got %T", i, s)
		lit, ok := red.Value.(*ast.IntLit)
		require.Truef(t, ok, "statement %d: expected *ast.IntLit operand, got %T", i, red.Value)
		require.Equal(t, int64((i+1)%2), lit.Value, "statement %d", i)
		require.Equal(t, "acc", red.Name)
	}

	// copies with equal operands are still distinct trees
	first := proc.Body[0].(*ast.Reduce)
	third := proc.Body[2].(*ast.Reduce)
	require.Equal(t, first.String(), third.String())
	require.NotSame(t, first, third)
	require.NotSame(t, first.Value, third.Value)
	require.NotSame(t, first.Idx[0], third.Idx[0])
}

func TestImplicitRoundTrip(t *testing.T) {
	direct := stageOneProc(t, "def direct(s: f32, d: f32):\n    d = s\n")

	spliced := `def roundtrip(s: f32, d: f32):
    with python:
        v = s
        with exo:
            d = {v}
`
	bare := `def roundtrip(s: f32, d: f32):
    with python:
        v = s
        with exo:
            d = v
`
	for name, input := range map[string]string{"explicit splice": spliced, "implicit unquote": bare} {
		t.Run(name, func(t *testing.T) {
			proc := stageOneProc(t, input)
			require.Len(t, proc.Body, 1)
			assign, ok := proc.Body[0].(*ast.Assign)
			require.Truef(t, ok, "expected *ast.Assign, got %T", proc.Body[0])
			read, ok := assign.Value.(*ast.Read)
			require.Truef(t, ok, "expected *ast.Read, got %T", assign.Value)
			require.Equal(t, "s", read.Name)
			require.Equal(t, direct.Body[0].String(), proc.Body[0].String())
		})
	}
}

func TestSpliceTwiceIndependent(t *testing.T) {
	input := `def twice(n: size, x: f32[n] @ DRAM):
    with python:
        with exo as q:
            for i in seq(0, n):
                x[i] = 0.0
        with exo:
            {q}
            {q}
`
	proc := stageOneProc(t, input)
	require.Len(t, proc.Body, 2)

	a, ok := proc.Body[0].(*ast.SeqFor)
	require.Truef(t, ok, "expected *ast.SeqFor, got %T", proc.Body[0])
	b, ok := proc.Body[1].(*ast.SeqFor)
	require.Truef(t, ok, "expected *ast.SeqFor, got %T", proc.Body[1])

	want := "for i in seq(0, n):\n    x[i] = 0.0"
	require.Equal(t, want, a.String())
	require.Equal(t, want, b.String())

	// no node of one copy may alias the other
	require.NotSame(t, a, b)
	require.NotSame(t, a.Hi, b.Hi)
	require.NotSame(t, a.Body[0], b.Body[0])
	require.NotSame(t, a.Body[0].(*ast.Assign).Value, b.Body[0].(*ast.Assign).Value)
}

func TestCaptureSitePrecedence(t *testing.T) {
	t.Run("splice site shadow does not win", func(t *testing.T) {
		input := `def shadow(x: f32[10] @ DRAM):
    with python:
        k = 1
        with exo as q:
            x[{k}] = 0.0
        def emit(k):
            with exo:
                {q}
        emit(9)
`
		proc := stageOneProc(t, input)
		require.Len(t, proc.Body, 1)
		require.Equal(t, "x[1] = 0.0", proc.Body[0].String())
	})

	t.Run("captured scope reads current values", func(t *testing.T) {
		input := `def mutate(x: f32[10] @ DRAM):
    with python:
        k = 1
        with exo as q:
            x[{k}] = 0.0
        with exo:
            {q}
        k = 2
        with exo:
            {q}
`
		proc := stageOneProc(t, input)
		require.Len(t, proc.Body, 2)
		require.Equal(t, "x[1] = 0.0", proc.Body[0].String())
		require.Equal(t, "x[2] = 0.0", proc.Body[1].String())
	})
}

func TestLHSNeverUnquoted(t *testing.T) {
	input := `def lhs(n: size, x: f32[n] @ DRAM):
    with python:
        y = 3
        with exo:
            y = 0.0
`
	requireStageError(t, input, ErrNameResolution,
		"stage.exo:5:13:name resolution: cannot assign to y: no object-language binding of that name")

	// the same name reads fine on the right-hand side
	rhs := `def rhs(n: size, x: f32[n] @ DRAM):
    with python:
        y = 3
        with exo:
            x[0] = y
`
	proc := stageOneProc(t, rhs)
	require.Len(t, proc.Body, 1)
	require.Equal(t, "x[0] = 3", proc.Body[0].String())
}

func TestSideEffectFence(t *testing.T) {
	input := `def bad(n: size, x: f32[n] @ DRAM):
    with python:
        def leak():
            with exo:
                x[0] = 1.0
            return 2
        with exo:
            x[{leak()}] = 0.0
`
	requireStageError(t, input, ErrSideEffect,
		"stage.exo:4:13:side effect: with exo region executed while evaluating a splice; its statements would have no position in the procedure")
}

func TestExpressionSplices(t *testing.T) {
	input := `def mix(n: size, x: f32[n] @ DRAM):
    with python:
        c = 2.5
        flag = True
        e = ~{x[0] * 1.0}
        with exo:
            x[1] = {c} + {e}
            if {flag}:
                x[2] = {3 - 1}
`
	proc := stageOneProc(t, input)

	exp := `def mix(n: size, x: f32[n] @ DRAM):
    x[1] = (2.5 + (x[0] * 1.0))
    if True:
        x[2] = 2`
	require.Equal(t, exp, proc.String())
}

func TestTypeAndMemorySplices(t *testing.T) {
	input := `def typed(n: size):
    with python:
        t = "f32[" + str(n) + "]"
        m = DRAM
        with exo:
            v: {t} @ {m}
            v[0] = 0.0
`
	proc := stageOneProc(t, input)
	require.Len(t, proc.Body, 2)
	require.Equal(t, "v: f32[n] @ DRAM", proc.Body[0].String())
	require.Equal(t, "v[0] = 0.0", proc.Body[1].String())
}

func TestSliceWindow(t *testing.T) {
	input := `def consume(m: size, w: f32[4] @ DRAM):
    pass

def window(n: size, x: f32[n] @ DRAM):
    with python:
        w = slice(2, 6)
        with exo:
            consume(4, x[{w}])
`
	procs := stageFile(t, input)
	require.Len(t, procs, 2)
	require.Equal(t, "consume(4, x[2:6])", procs[1].Body[0].String())
}

func TestNestedRegions(t *testing.T) {
	input := `def nested(n: size, x: f32[n] @ DRAM):
    with python:
        for b in range(0, 2):
            with exo:
                for i in seq(0, n):
                    with python:
                        for u in range(0, 2):
                            with exo:
                                x[i] += {b * 10 + u}
`
	proc := stageOneProc(t, input)

	exp := `def nested(n: size, x: f32[n] @ DRAM):
    for i in seq(0, n):
        x[i] += 0
        x[i] += 1
    for i in seq(0, n):
        x[i] += 10
        x[i] += 11`
	require.Equal(t, exp, proc.String())
}

func TestStagingErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  ErrKind
		err   string
	}{
		{
			"unresolvable name reports both paths",
			"def err(n: size, x: f32[n] @ DRAM):\n    x[0] = zz\n",
			ErrNameResolution,
			"stage.exo:2:12:name resolution: cannot resolve zz: no object-language binding and no host variable of that name",
		},
		{
			"number in statement position",
			"def err(x: f32[4] @ DRAM):\n    with python:\n        v = 3\n        with exo:\n            {v}\n",
			ErrContextMismatch,
			"stage.exo:5:13:context mismatch: cannot splice a number where a statement is required",
		},
		{
			"statement quote in expression position",
			"def err(x: f32[4] @ DRAM):\n    with python:\n        with exo as q:\n            x[0] = 1.0\n        with exo:\n            x[0] = {q}\n",
			ErrContextMismatch,
			"stage.exo:6:20:context mismatch: cannot splice a statement quote where an expression is required",
		},
		{
			"bad type string",
			"def err():\n    with python:\n        t = \"f33\"\n        with exo:\n            v: {t}\n",
			ErrTypeStringParse,
			"stage.exo:5:16:type string parse: cannot parse \"f33\" as a type: unknown type f33",
		},
		{
			"string in memory position",
			"def err():\n    with python:\n        t = \"DRAM\"\n        with exo:\n            v: f32[4] @ {t}\n",
			ErrContextMismatch,
			"stage.exo:5:25:context mismatch: cannot splice a type string where a memory space is required",
		},
		{
			"unknown memory space",
			"def err():\n    v: f32[4] @ Cache\n",
			ErrNameResolution,
			"stage.exo:2:17:name resolution: no memory space named Cache is registered",
		},
		{
			"allocation redefines parameter",
			"def err(n: size):\n    n: f32\n",
			ErrNameResolution,
			"stage.exo:2:5:name resolution: redefinition of object name n",
		},
		{
			"assignment to loop iterator",
			"def err(n: size):\n    for i in seq(0, n):\n        i = 0\n",
			ErrNameResolution,
			"stage.exo:3:9:name resolution: cannot assign to loop iterator i",
		},
		{
			"call to unknown procedure",
			"def err():\n    helper(1)\n",
			ErrNameResolution,
			"stage.exo:2:5:name resolution: no procedure named helper",
		},
		{
			"host rebind of object name",
			"def err(n: size):\n    with python:\n        n = 3\n",
			ErrNameResolution,
			"stage.exo:3:9:name resolution: cannot bind n: it names an object-language value in scope",
		},
		{
			"division by zero",
			"def err():\n    with python:\n        k = 1 / 0\n",
			ErrHost,
			"stage.exo:3:15:host error: division by zero",
		},
		{
			"return outside host function",
			"def err():\n    with python:\n        return 1\n",
			ErrSyntax,
			"stage.exo:2:5:syntax error: return outside host function",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireStageError(t, tt.input, tt.kind, tt.err)
		})
	}
}
