package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ChezJrk/exo/ast"
)

// Buffer is an n-dimensional array in row-major order. A scalar is a
// rank-zero buffer holding one element. Windowed views share Data with
// the buffer they were taken from, so writes through a view land in
// the original storage.
//
// Elements are kept as float64 regardless of the declared kind; values
// are quantized to the kind on every store. Integer widths are not
// modeled beyond truncation.
type Buffer struct {
	Kind    ast.ScalarKind
	Shape   []int
	Strides []int
	Data    []float64
	off     int
}

// NewBuffer allocates a zeroed buffer with the given shape. With no
// dimensions the result is a scalar.
func NewBuffer(kind ast.ScalarKind, shape ...int) *Buffer {
	n := 1
	for _, s := range shape {
		if s < 0 {
			panic(fmt.Sprintf("interp: negative dimension %d", s))
		}
		n *= s
	}
	strides := make([]int, len(shape))
	stride := 1
	for d := len(shape) - 1; d >= 0; d-- {
		strides[d] = stride
		stride *= shape[d]
	}
	return &Buffer{
		Kind:    kind,
		Shape:   append([]int(nil), shape...),
		Strides: strides,
		Data:    make([]float64, n),
	}
}

// NewScalar allocates a rank-zero buffer holding v.
func NewScalar(kind ast.ScalarKind, v float64) *Buffer {
	b := NewBuffer(kind)
	b.Data[0] = quantize(kind, v)
	return b
}

// Rank returns the number of dimensions.
func (b *Buffer) Rank() int { return len(b.Shape) }

// At returns the element at the given multi-index. It panics when the
// index does not match the buffer's shape; the interpreter proper
// reports such conditions as positioned errors instead.
func (b *Buffer) At(idx ...int) float64 {
	return b.Data[b.flat(idx)]
}

// Set stores v at the given multi-index, quantized to the element
// kind. Like At it panics on a bad index.
func (b *Buffer) Set(v float64, idx ...int) {
	b.Data[b.flat(idx)] = quantize(b.Kind, v)
}

func (b *Buffer) flat(idx []int) int {
	if len(idx) != len(b.Shape) {
		panic(fmt.Sprintf("interp: rank %d buffer indexed with %d indices", len(b.Shape), len(idx)))
	}
	pos := b.off
	for d, i := range idx {
		if i < 0 || i >= b.Shape[d] {
			panic(fmt.Sprintf("interp: index %d out of range for dimension %d (extent %d)", i, d, b.Shape[d]))
		}
		pos += i * b.Strides[d]
	}
	return pos
}

// quantize maps v to the value the kind can actually store: integer
// kinds truncate toward zero and bool collapses to 0 or 1.
func quantize(k ast.ScalarKind, v float64) float64 {
	switch {
	case k == ast.BoolKind:
		if v != 0 {
			return 1
		}
		return 0
	case k.IsInt():
		return math.Trunc(v)
	}
	return v
}

func formatElem(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// String renders the buffer contents. Scalars print bare, vectors on
// one line, matrices one row per line; higher ranks flatten row-major
// with the shape as a prefix.
func (b *Buffer) String() string {
	switch b.Rank() {
	case 0:
		return formatElem(b.Data[b.off])
	case 1:
		elems := make([]string, b.Shape[0])
		for i := range elems {
			elems[i] = formatElem(b.At(i))
		}
		return "[" + strings.Join(elems, ", ") + "]"
	case 2:
		rows := make([]string, b.Shape[0])
		for i := range rows {
			elems := make([]string, b.Shape[1])
			for j := range elems {
				elems[j] = formatElem(b.At(i, j))
			}
			rows[i] = "[" + strings.Join(elems, ", ") + "]"
		}
		return "[" + strings.Join(rows, ",\n ") + "]"
	}
	dims := make([]string, b.Rank())
	for d, s := range b.Shape {
		dims[d] = strconv.Itoa(s)
	}
	var elems []string
	b.each(make([]int, 0, b.Rank()), &elems)
	return "shape [" + strings.Join(dims, ", ") + "] [" + strings.Join(elems, ", ") + "]"
}

func (b *Buffer) each(idx []int, out *[]string) {
	if len(idx) == b.Rank() {
		*out = append(*out, formatElem(b.At(idx...)))
		return
	}
	for i := 0; i < b.Shape[len(idx)]; i++ {
		b.each(append(idx, i), out)
	}
}
