package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolGetPutReuse(t *testing.T) {
	p := New(16, 64)

	buf := p.Get()
	require.Len(t, buf.B, 16)

	buf.Grow(32)
	require.Len(t, buf.B, 32)

	p.Put(buf)

	again := p.Get()
	require.LessOrEqual(t, 32, cap(again.B))
}

func TestPoolDiscardsOversizedBuffer(t *testing.T) {
	p := New(16, 32)

	buf := p.Get()
	buf.Grow(1024)
	p.Put(buf) // should be discarded, not pooled

	fresh := p.Get()
	require.Equal(t, 16, cap(fresh.B))
}

func TestDefaultPool(t *testing.T) {
	buf := Get()
	require.NotNil(t, buf)
	Put(buf)
}
