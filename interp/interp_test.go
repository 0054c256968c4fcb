package interp

import (
	"testing"

	"github.com/ChezJrk/exo/ast"
	"github.com/ChezJrk/exo/lexer"
	"github.com/ChezJrk/exo/parser"
	"github.com/ChezJrk/exo/staging"
	"github.com/stretchr/testify/require"
)

func stageProcs(t *testing.T, input string) []*ast.Proc {
	t.Helper()
	l := lexer.New("interp.exo", input)
	p := parser.New(l)
	file := p.Parse()
	require.Empty(t, p.Errors(), "unexpected parse errors: %v", p.Errors())
	procs, err := staging.Stage(file)
	require.NoError(t, err)
	return procs
}

func machine(t *testing.T, input string) *Machine {
	t.Helper()
	return New(stageProcs(t, input))
}

func TestMatmul(t *testing.T) {
	m := machine(t, `def matmul(M: size, N: size, K: size, A: f32[M, K], B: f32[K, N], C: f32[M, N]):
    for i in seq(0, M):
        for j in seq(0, N):
            for k in seq(0, K):
                C[i, j] += A[i, k] * B[k, j]
`)

	M, N, K := 3, 2, 4
	A := NewBuffer(ast.F32, M, K)
	B := NewBuffer(ast.F32, K, N)
	C := NewBuffer(ast.F32, M, N)
	for i := 0; i < M; i++ {
		for k := 0; k < K; k++ {
			A.Set(float64(i*K+k+1), i, k)
		}
	}
	for k := 0; k < K; k++ {
		for j := 0; j < N; j++ {
			B.Set(float64((k+1)*(j+2)), k, j)
		}
	}

	err := m.Run("matmul", map[string]any{"M": M, "N": N, "K": K, "A": A, "B": B, "C": C})
	require.NoError(t, err)

	for i := 0; i < M; i++ {
		for j := 0; j < N; j++ {
			want := 0.0
			for k := 0; k < K; k++ {
				want += A.At(i, k) * B.At(k, j)
			}
			require.Equal(t, want, C.At(i, j), "C[%d, %d]", i, j)
		}
	}
}

func TestScalarWriteback(t *testing.T) {
	m := machine(t, `def accum(n: size, x: f32[n], out: f32):
    s: f32
    s = 0.0
    for i in seq(0, n):
        s += x[i]
    out = s + 1.0
`)

	x := NewBuffer(ast.F32, 3)
	x.Set(1, 0)
	x.Set(2, 1)
	x.Set(3, 2)
	out := NewScalar(ast.F32, 0)

	require.NoError(t, m.Run("accum", map[string]any{"n": 3, "x": x, "out": out}))
	require.Equal(t, 7.0, out.At())
}

func TestScalarAllocFreshPerIteration(t *testing.T) {
	m := machine(t, `def fresh(n: size, y: f32[n]):
    for i in seq(0, n):
        t: f32
        t += 1.0
        y[i] = t
`)

	y := NewBuffer(ast.F32, 4)
	require.NoError(t, m.Run("fresh", map[string]any{"n": 4, "y": y}))
	for i := 0; i < 4; i++ {
		require.Equal(t, 1.0, y.At(i), "y[%d]", i)
	}
}

func TestIntStoreTruncates(t *testing.T) {
	m := machine(t, `def halve(g: ui8[1]):
    g[0] = 7.0 / 2.0
`)

	g := NewBuffer(ast.UI8, 1)
	require.NoError(t, m.Run("halve", map[string]any{"g": g}))
	require.Equal(t, 3.0, g.At(0))
}

func TestStagedUnrolledWrites(t *testing.T) {
	m := machine(t, `def scale(x: f32[4]):
    with python:
        for i in range(0, 4):
            with exo:
                x[{i}] = {i} * 2.0
`)

	x := NewBuffer(ast.F32, 4)
	require.NoError(t, m.Run("scale", map[string]any{"x": x}))
	for i := 0; i < 4; i++ {
		require.Equal(t, float64(2*i), x.At(i), "x[%d]", i)
	}
}

func TestIfBranches(t *testing.T) {
	t.Run("size comparison", func(t *testing.T) {
		m := machine(t, `def pick(n: size, x: f32[2]):
    if n < 3:
        x[0] = 1.0
    else:
        x[1] = 1.0
`)
		low := NewBuffer(ast.F32, 2)
		require.NoError(t, m.Run("pick", map[string]any{"n": 2, "x": low}))
		require.Equal(t, []float64{1, 0}, low.Data)

		high := NewBuffer(ast.F32, 2)
		require.NoError(t, m.Run("pick", map[string]any{"n": 5, "x": high}))
		require.Equal(t, []float64{0, 1}, high.Data)
	})

	t.Run("bool parameter", func(t *testing.T) {
		m := machine(t, `def gate(on: bool, x: f32[1]):
    if on:
        x[0] = 1.0
`)
		x := NewBuffer(ast.F32, 1)
		require.NoError(t, m.Run("gate", map[string]any{"on": true, "x": x}))
		require.Equal(t, 1.0, x.At(0))

		y := NewBuffer(ast.F32, 1)
		require.NoError(t, m.Run("gate", map[string]any{"on": false, "x": y}))
		require.Equal(t, 0.0, y.At(0))
	})
}

func TestCallViews(t *testing.T) {
	t.Run("window of a vector", func(t *testing.T) {
		m := machine(t, `def fill(n: size, dst: f32[n]):
    for i in seq(0, n):
        dst[i] = 1.0

def driver(m: size, x: f32[m]):
    fill(4, x[2:6])
`)
		x := NewBuffer(ast.F32, 8)
		require.NoError(t, m.Run("driver", map[string]any{"m": 8, "x": x}))
		require.Equal(t, []float64{0, 0, 1, 1, 1, 1, 0, 0}, x.Data)
	})

	t.Run("row of a matrix", func(t *testing.T) {
		m := machine(t, `def bump(n: size, dst: f32[n]):
    for i in seq(0, n):
        dst[i] += 2.0

def driver(r: size, c: size, img: f32[r, c]):
    bump(c, img[1, 0:c])
`)
		img := NewBuffer(ast.F32, 3, 4)
		require.NoError(t, m.Run("driver", map[string]any{"r": 3, "c": 4, "img": img}))
		for j := 0; j < 4; j++ {
			require.Equal(t, 0.0, img.At(0, j))
			require.Equal(t, 2.0, img.At(1, j))
			require.Equal(t, 0.0, img.At(2, j))
		}
	})

	t.Run("element aliases caller storage", func(t *testing.T) {
		m := machine(t, `def setone(v: f32):
    v = 2.5

def driver(x: f32[3]):
    setone(x[1])
`)
		x := NewBuffer(ast.F32, 3)
		require.NoError(t, m.Run("driver", map[string]any{"x": x}))
		require.Equal(t, []float64{0, 2.5, 0}, x.Data)
	})
}

func TestRuntimeFaults(t *testing.T) {
	tests := []struct {
		name string
		src  string
		proc string
		args func() map[string]any
		want string
	}{
		{
			name: "index out of range",
			src: `def oob(n: size, x: f32[n]):
    x[n] = 1.0
`,
			proc: "oob",
			args: func() map[string]any {
				return map[string]any{"n": 3, "x": NewBuffer(ast.F32, 3)}
			},
			want: "interp.exo:2:7:index 3 out of range for dimension 0 of x (extent 3)",
		},
		{
			name: "tensor written without indices",
			src: `def fullwrite(x: f32[3]):
    x = 2.0
`,
			proc: "fullwrite",
			args: func() map[string]any {
				return map[string]any{"x": NewBuffer(ast.F32, 3)}
			},
			want: "interp.exo:2:5:x has rank 1 but is indexed with 0 indices",
		},
		{
			name: "division by zero",
			src: `def div(n: size, x: f32[1]):
    x[0] = 1.0 / n
`,
			proc: "div",
			args: func() map[string]any {
				return map[string]any{"n": 0, "x": NewBuffer(ast.F32, 1)}
			},
			want: "interp.exo:2:16:division by zero",
		},
		{
			name: "call arity mismatch",
			src: `def f(n: size):
    pass

def g():
    f(1, 2)
`,
			proc: "g",
			args: func() map[string]any { return map[string]any{} },
			want: "interp.exo:5:5:calling f with 2 arguments, want 1",
		},
		{
			name: "computed buffer argument",
			src: `def sink(v: f32):
    pass

def g():
    sink(1.0 + 2.0)
`,
			proc: "g",
			args: func() map[string]any { return map[string]any{} },
			want: "interp.exo:5:14:argument v of sink must name a buffer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := machine(t, tt.src)
			err := m.Run(tt.proc, tt.args())
			require.Error(t, err)
			require.EqualError(t, err, tt.want)
		})
	}
}

func TestRunArgumentErrors(t *testing.T) {
	m := machine(t, `def axpy(n: size, x: f32[n], y: f32[n]):
    for i in seq(0, n):
        y[i] += 2.0 * x[i]
`)

	tests := []struct {
		name string
		proc string
		args map[string]any
		want string
	}{
		{
			name: "missing argument",
			proc: "axpy",
			args: map[string]any{"n": 4, "x": NewBuffer(ast.F32, 4)},
			want: "axpy: missing argument y",
		},
		{
			name: "unknown argument",
			proc: "axpy",
			args: map[string]any{"n": 4, "x": NewBuffer(ast.F32, 4), "y": NewBuffer(ast.F32, 4), "z": 1},
			want: "axpy has no parameter z",
		},
		{
			name: "extent mismatch",
			proc: "axpy",
			args: map[string]any{"n": 4, "x": NewBuffer(ast.F32, 3), "y": NewBuffer(ast.F32, 4)},
			want: "axpy: argument x has extent 3 in dimension 0, want 4",
		},
		{
			name: "element kind mismatch",
			proc: "axpy",
			args: map[string]any{"n": 4, "x": NewBuffer(ast.F64, 4), "y": NewBuffer(ast.F32, 4)},
			want: "axpy: argument x has element kind f64, want f32",
		},
		{
			name: "not a buffer",
			proc: "axpy",
			args: map[string]any{"n": 4, "x": 7, "y": NewBuffer(ast.F32, 4)},
			want: "axpy: argument x must be a *interp.Buffer, got int",
		},
		{
			name: "unknown procedure",
			proc: "nope",
			args: map[string]any{},
			want: "no procedure named nope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Run(tt.proc, tt.args)
			require.Error(t, err)
			require.EqualError(t, err, tt.want)
		})
	}
}

func TestShapeOf(t *testing.T) {
	procs := stageProcs(t, `def f(n: size, A: f32[n, n * 2]):
    pass
`)
	shape, err := ShapeOf(procs[0].Params[1], map[string]int64{"n": 3})
	require.NoError(t, err)
	require.Equal(t, []int{3, 6}, shape)

	_, err = ShapeOf(procs[0].Params[0], nil)
	require.EqualError(t, err, "n is not a tensor parameter")
}
