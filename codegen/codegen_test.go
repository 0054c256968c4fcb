package codegen

import (
	"testing"

	"github.com/ChezJrk/exo/lexer"
	"github.com/ChezJrk/exo/parser"
	"github.com/ChezJrk/exo/staging"
	"github.com/stretchr/testify/require"
)

func generate(t *testing.T, name, input string) (src, hdr string) {
	t.Helper()
	l := lexer.New("cg.exo", input)
	p := parser.New(l)
	file := p.Parse()
	require.Empty(t, p.Errors(), "unexpected parse errors: %v", p.Errors())
	procs, err := staging.Stage(file)
	require.NoError(t, err)
	src, hdr, err = New(name, procs).Generate()
	require.NoError(t, err)
	return src, hdr
}

// TestBlurPipeline lowers a metaprogrammed producer, a plain consumer
// and a driver that allocates the intermediate, and checks the full
// source and header texts: static linkage for the internal procedures,
// const propagation through the call graph, flat row-major indexing
// and malloc backed DRAM allocation.
func TestBlurPipeline(t *testing.T) {
	src, hdr := generate(t, "cg", `def producer(n: size, m: size, f: f32[n, m], inp: f32[n, m + 4]):
    for i in seq(0, n):
        for j in seq(0, m):
            with python:
                e = ~{inp[i, j]}
                for k in range(1, 5):
                    e = ~{{e} + inp[i, j + {k}]}
                with exo:
                    f[i, j] = {e} / 5.0

def consumer(n: size, m: size, f: f32[n, m], g: f32[n - 1, m]):
    for i in seq(0, n - 1):
        for j in seq(0, m):
            g[i, j] = (f[i, j] + f[i + 1, j]) / 2.0

def blur_staged(n: size, m: size, g: f32[n - 1, m], inp: f32[n, m + 4]):
    f: f32[n, m] @ DRAM
    producer(n, m, f, inp)
    consumer(n, m, f, g)
`)

	wantSrc := `#include "cg.h"

#include <stdio.h>
#include <stdlib.h>

// consumer(
//     n : size,
//     m : size,
//     f : f32[n, m] @DRAM,
//     g : f32[(n - 1), m] @DRAM
// )
static void consumer(void *ctxt, int_fast32_t n, int_fast32_t m, const float *f, float *g);

// producer(
//     n : size,
//     m : size,
//     f : f32[n, m] @DRAM,
//     inp : f32[n, (m + 4)] @DRAM
// )
static void producer(void *ctxt, int_fast32_t n, int_fast32_t m, float *f, const float *inp);

// producer(
//     n : size,
//     m : size,
//     f : f32[n, m] @DRAM,
//     inp : f32[n, (m + 4)] @DRAM
// )
static void producer(void *ctxt, int_fast32_t n, int_fast32_t m, float *f, const float *inp) {
  for (int_fast32_t i = 0; i < n; i++) {
    for (int_fast32_t j = 0; j < m; j++) {
      f[i * m + j] = (inp[i * (m + 4) + j] + inp[i * (m + 4) + (j + 1)] + inp[i * (m + 4) + (j + 2)] + inp[i * (m + 4) + (j + 3)] + inp[i * (m + 4) + (j + 4)]) / 5.0;
    }
  }
}

// consumer(
//     n : size,
//     m : size,
//     f : f32[n, m] @DRAM,
//     g : f32[(n - 1), m] @DRAM
// )
static void consumer(void *ctxt, int_fast32_t n, int_fast32_t m, const float *f, float *g) {
  for (int_fast32_t i = 0; i < n - 1; i++) {
    for (int_fast32_t j = 0; j < m; j++) {
      g[i * m + j] = (f[i * m + j] + f[(i + 1) * m + j]) / 2.0;
    }
  }
}

// blur_staged(
//     n : size,
//     m : size,
//     g : f32[(n - 1), m] @DRAM,
//     inp : f32[n, (m + 4)] @DRAM
// )
void blur_staged(void *ctxt, int_fast32_t n, int_fast32_t m, float *g, const float *inp) {
  float *f = (float*) malloc(n * m * sizeof(*f));
  producer(ctxt, n, m, f, inp);
  consumer(ctxt, n, m, f, g);
  free(f);
}
`
	require.Equal(t, wantSrc, src)

	wantHdr := `#pragma once
#ifndef CG_H
#define CG_H

#ifdef __cplusplus
extern "C" {
#endif

#include <stdint.h>
#include <stdbool.h>

// Compiler feature macros adapted from Hedley (public domain)
// https://github.com/nemequ/hedley

#if defined(__has_builtin)
#  define EXO_HAS_BUILTIN(builtin) __has_builtin(builtin)
#else
#  define EXO_HAS_BUILTIN(builtin) (0)
#endif

#if EXO_HAS_BUILTIN(__builtin_assume)
#  define EXO_ASSUME(expr) __builtin_assume(expr)
#elif EXO_HAS_BUILTIN(__builtin_unreachable)
#  define EXO_ASSUME(expr) \
      ((void)((expr) ? 1 : (__builtin_unreachable(), 1)))
#else
#  define EXO_ASSUME(expr) ((void)(expr))
#endif

// blur_staged(
//     n : size,
//     m : size,
//     g : f32[(n - 1), m] @DRAM,
//     inp : f32[n, (m + 4)] @DRAM
// )
void blur_staged(void *ctxt, int_fast32_t n, int_fast32_t m, float *g, const float *inp);

#ifdef __cplusplus
}
#endif
#endif  // CG_H
`
	require.Equal(t, wantHdr, hdr)
}

func TestVectorRegisterLowering(t *testing.T) {
	src, hdr := generate(t, "vec", `def vscale(n: size, out: f32[n, 4] @ Neon, alpha: f32):
    for i in seq(0, n):
        w: f32[4] @ Neon
        for l in seq(0, 4):
            w[l] = out[i, l] * alpha
        for l in seq(0, 4):
            out[i, l] = w[l]
`)

	require.Contains(t, src, "#include <arm_neon.h>")
	require.Contains(t, hdr, "#include <arm_neon.h>")
	require.Contains(t, hdr, "void vscale(void *ctxt, int_fast32_t n, float32x4_t *out, const float *alpha);")
	require.Contains(t, src, "float32x4_t w;")
	require.Contains(t, src, "w[l] = out[i][l] * *alpha;")
	require.Contains(t, src, "out[i][l] = w[l];")
	require.NotContains(t, src, "free(")
}

func TestScalarLowering(t *testing.T) {
	src, _ := generate(t, "acc", `def total(n: size, x: f32[n], out: f32):
    s: f32
    s = 0.0
    for i in seq(0, n):
        s += x[i]
    out = s + 1.0
`)

	require.Contains(t, src, "void total(void *ctxt, int_fast32_t n, const float *x, float *out) {")
	require.Contains(t, src, "float s;")
	require.Contains(t, src, "s = 0.0;")
	require.Contains(t, src, "s += x[i];")
	require.Contains(t, src, "*out = s + 1.0;")
}

func TestWindowArguments(t *testing.T) {
	src, hdr := generate(t, "win", `def fill(k: size, v: f32[k]):
    for i in seq(0, k):
        v[i] = 1.0

def edge(s: f32):
    s = 9.0

def windows(c: size, img: f32[3, c]):
    fill(c, img[1, 0:c])
    edge(img[2, 0])
`)

	require.Contains(t, src, "static void fill(")
	require.Contains(t, src, "static void edge(")
	require.Contains(t, src, "fill(ctxt, c, &img[c]);")
	require.Contains(t, src, "edge(ctxt, &img[2 * c]);")
	require.Contains(t, src, "void windows(void *ctxt, int_fast32_t c, float *img) {")
	require.Contains(t, hdr, "void windows(")
	require.NotContains(t, hdr, "fill(")
}

func TestControlFlowLowering(t *testing.T) {
	src, _ := generate(t, "ctl", `def clamp(n: size, lo: index, x: f32[n], gate: bool):
    if gate and n > 1:
        for i in seq(lo, n - 1):
            x[i] = 0.0
    else:
        pass
`)

	require.Contains(t, src, "void clamp(void *ctxt, int_fast32_t n, int_fast32_t lo, float *x, bool gate) {")
	require.Contains(t, src, "if (gate && n > 1) {")
	require.Contains(t, src, "for (int_fast32_t i = lo; i < n - 1; i++) {")
	require.Contains(t, src, "} else {")
}

func TestLoweringErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   string
	}{
		{
			"R has no C representation",
			"def f(x: R):\n    x = 0.0\n",
			"cg.exo:1:7:cannot lower type R: it has no C representation",
		},
		{
			"non-contiguous window argument",
			`def sink(n: size, w: f32[2, 3] @ DRAM):
    pass

def f(img: f32[4, 6] @ DRAM):
    sink(2, img[0:2, 0])
`,
			"cg.exo:5:13:cannot pass a non-contiguous window of img",
		},
		{
			"write to a size parameter",
			"def f(n: size):\n    n = 4\n",
			"cg.exo:2:5:cannot assign to n",
		},
		{
			"arity mismatch",
			"def f(n: size):\n    pass\n\ndef g(n: size):\n    f(n, n)\n",
			"cg.exo:5:5:calling f with 2 arguments, want 1",
		},
		{
			"vector element argument",
			`def sink(v: f32):
    pass

def f(n: size):
    w: f32[4] @ Neon
    sink(w[0])
`,
			"cg.exo:6:10:cannot pass an element of w: Neon registers are not addressable",
		},
		{
			"window used as an element",
			"def f(n: size, x: f32[n] @ DRAM):\n    x[0] = x[0:2]\n",
			"cg.exo:2:15:cannot use a window of x as a single element",
		},
		{
			"tensor read as a scalar",
			"def f(n: size, x: f32[n] @ DRAM, s: f32):\n    s = x\n",
			"cg.exo:2:9:cannot read tensor x as a scalar",
		},
		{
			"non-f32 vector allocation",
			"def f(n: size):\n    w: i8[4] @ Neon\n    w[0] = 1.0\n",
			"cg.exo:2:5:cannot allocate w in Neon: only f32 buffers may be allocated in float32x4_t registers",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := lexer.New("cg.exo", tc.input)
			p := parser.New(l)
			file := p.Parse()
			require.Empty(t, p.Errors(), "unexpected parse errors: %v", p.Errors())
			procs, err := staging.Stage(file)
			require.NoError(t, err)
			_, _, err = New("cg", procs).Generate()
			require.EqualError(t, err, tc.err)
		})
	}
}
