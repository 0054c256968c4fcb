package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsReservedTypeName(t *testing.T) {
	for _, name := range reservedTypeNames {
		require.True(t, IsReservedTypeName(name), "expected %s to be reserved", name)
	}
	for _, name := range []string{"x", "f31", "ui64", "Index", "", "real"} {
		require.False(t, IsReservedTypeName(name), "expected %s not to be reserved", name)
	}
}

func TestReservedTypeNamesCopy(t *testing.T) {
	names := ReservedTypeNames()
	require.Equal(t, reservedTypeNames, names)

	names[0] = "mutated"
	require.Equal(t, "size", reservedTypeNames[0])
}
