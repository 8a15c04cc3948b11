package buildmsg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomReturnsKnownMessage(t *testing.T) {
	seen := Random()

	var found bool
	for _, m := range messages {
		if m == seen {
			found = true
			break
		}
	}
	require.True(t, found, "Random() returned %q, not in the known message set", seen)
}
