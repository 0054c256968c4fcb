package memory

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Memory describes a memory space buffers may be annotated with,
// e.g. "x: f32[n] @ DRAM". The code generator consults it for the C
// text that allocates and releases a buffer.
type Memory struct {
	Name   string
	Header string // include line emitted once per generated file
	Reg    string // vector register C type, "" for linearly addressed memories
	Lanes  int    // vector lane count, 0 for linearly addressed memories

	// Alloc returns the C statement declaring name, given the
	// element C type and the C expressions for each dimension. A
	// scalar has no dimensions. Free returns the matching release
	// statement, or "" when none is needed.
	Alloc func(name, ctype string, dims []string) (string, error)
	Free  func(name, ctype string, dims []string) string
}

var registry = map[string]*Memory{}

// Register makes a memory space available to @ annotations,
// replacing any previous memory of the same name.
func Register(m *Memory) {
	registry[m.Name] = m
}

// Lookup resolves a memory space by name.
func Lookup(name string) (*Memory, bool) {
	m, ok := registry[name]
	return m, ok
}

// DRAM is the default memory space for buffers with no @ annotation.
func DRAM() *Memory {
	return registry["DRAM"]
}

// Names returns the registered memory names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func dramAlloc(name, ctype string, dims []string) (string, error) {
	if len(dims) == 0 {
		return fmt.Sprintf("%s %s;", ctype, name), nil
	}
	size := strings.Join(dims, " * ")
	return fmt.Sprintf("%s *%s = (%s*) malloc(%s * sizeof(*%s));", ctype, name, ctype, size, name), nil
}

func dramFree(name, ctype string, dims []string) string {
	if len(dims) == 0 {
		return ""
	}
	return fmt.Sprintf("free(%s);", name)
}

// vectorAlloc builds the alloc rule shared by the SIMD register
// memories. Buffers must be f32 and their innermost dimension must be
// the constant lane count.
func vectorAlloc(regType string, lanes int) func(name, ctype string, dims []string) (string, error) {
	return func(name, ctype string, dims []string) (string, error) {
		if ctype != "float" {
			return "", fmt.Errorf("only f32 buffers may be allocated in %s registers", regType)
		}
		if len(dims) == 0 || dims[len(dims)-1] != strconv.Itoa(lanes) {
			return "", fmt.Errorf("innermost dimension of a %s buffer must be %d", regType, lanes)
		}
		rest := dims[:len(dims)-1]
		if len(rest) == 0 {
			return fmt.Sprintf("%s %s;", regType, name), nil
		}
		return fmt.Sprintf("%s %s[%s];", regType, name, strings.Join(rest, " * ")), nil
	}
}

func noFree(name, ctype string, dims []string) string { return "" }

func init() {
	Register(&Memory{
		Name:  "DRAM",
		Alloc: dramAlloc,
		Free:  dramFree,
	})
	Register(&Memory{
		Name:   "Neon",
		Header: "#include <arm_neon.h>",
		Reg:    "float32x4_t",
		Lanes:  4,
		Alloc:  vectorAlloc("float32x4_t", 4),
		Free:   noFree,
	})
	Register(&Memory{
		Name:   "AVX2",
		Header: "#include <immintrin.h>",
		Reg:    "__m256",
		Lanes:  8,
		Alloc:  vectorAlloc("__m256", 8),
		Free:   noFree,
	})
}
