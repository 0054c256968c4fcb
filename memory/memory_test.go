package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	m, ok := Lookup("DRAM")
	require.True(t, ok)
	require.Equal(t, "DRAM", m.Name)
	require.Same(t, m, DRAM())

	_, ok = Lookup("GPU")
	require.False(t, ok)
}

func TestNames(t *testing.T) {
	require.Equal(t, []string{"AVX2", "DRAM", "Neon"}, Names())
}

func TestDRAMAlloc(t *testing.T) {
	m := DRAM()

	decl, err := m.Alloc("tmp", "float", []string{"n", "m"})
	require.NoError(t, err)
	require.Equal(t, "float *tmp = (float*) malloc(n * m * sizeof(*tmp));", decl)
	require.Equal(t, "free(tmp);", m.Free("tmp", "float", []string{"n", "m"}))

	decl, err = m.Alloc("acc", "double", nil)
	require.NoError(t, err)
	require.Equal(t, "double acc;", decl)
	require.Equal(t, "", m.Free("acc", "double", nil))
}

func TestVectorAlloc(t *testing.T) {
	neon, ok := Lookup("Neon")
	require.True(t, ok)
	require.Equal(t, 4, neon.Lanes)
	require.Equal(t, "float32x4_t", neon.Reg)

	decl, err := neon.Alloc("v", "float", []string{"n", "4"})
	require.NoError(t, err)
	require.Equal(t, "float32x4_t v[n];", decl)
	require.Equal(t, "", neon.Free("v", "float", []string{"n", "4"}))

	_, err = neon.Alloc("v", "double", []string{"n", "4"})
	require.Error(t, err)

	_, err = neon.Alloc("v", "float", []string{"n", "5"})
	require.ErrorContains(t, err, "must be 4")

	avx, ok := Lookup("AVX2")
	require.True(t, ok)
	decl, err = avx.Alloc("w", "float", []string{"8"})
	require.NoError(t, err)
	require.Equal(t, "__m256 w;", decl)
}
