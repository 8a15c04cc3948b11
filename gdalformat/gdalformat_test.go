package gdalformat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKnown(t *testing.T) {
	require.True(t, Known("GTiff"))
	require.True(t, Known("COG"))
	require.True(t, Known("BYTES"))
	require.True(t, Known("TORTILLA"))
	require.False(t, Known("NOT-A-REAL-FORMAT"))
}

func TestNamesContainsEveryKnownFormat(t *testing.T) {
	names := Names()
	require.Len(t, names, len(known))

	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	require.True(t, seen["GTiff"])
}
