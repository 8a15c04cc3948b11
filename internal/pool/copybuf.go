// Package pool provides a sync.Pool-backed reusable byte buffer for the
// chunked copy loops used by the writer and compiler, avoiding a fresh
// allocation per item copied.
package pool

import "sync"

const (
	// CopyBufDefaultSize is the buffer size handed out by the default pool.
	CopyBufDefaultSize = 1024 * 1024 // 1MiB

	// CopyBufMaxThreshold is the largest buffer the pool will retain;
	// anything bigger is discarded on Put to avoid memory bloat after a
	// single unusually large copy.
	CopyBufMaxThreshold = 1024 * 1024 * 16 // 16MiB
)

// Buffer is a reusable byte slice returned by a Pool.
type Buffer struct {
	B []byte
}

// Reset truncates the buffer to zero length, retaining its capacity.
func (buf *Buffer) Reset() {
	buf.B = buf.B[:0]
}

// Grow ensures the buffer can hold n bytes, reallocating if necessary.
func (buf *Buffer) Grow(n int) {
	if cap(buf.B) >= n {
		buf.B = buf.B[:n]
		return
	}
	buf.B = make([]byte, n)
}

// Pool hands out Buffers of a fixed default size, discarding any buffer
// grown past maxThreshold instead of returning it to the pool.
type Pool struct {
	pool         sync.Pool
	maxThreshold int
}

// New creates a Pool whose buffers start at defaultSize bytes.
func New(defaultSize, maxThreshold int) *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any {
				return &Buffer{B: make([]byte, defaultSize)}
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a Buffer from the pool.
func (p *Pool) Get() *Buffer {
	buf, _ := p.pool.Get().(*Buffer)
	return buf
}

// Put returns a Buffer to the pool for reuse. Buffers grown past
// maxThreshold are dropped rather than retained.
func (p *Pool) Put(buf *Buffer) {
	if buf == nil {
		return
	}
	if p.maxThreshold > 0 && cap(buf.B) > p.maxThreshold {
		return
	}
	buf.Reset()
	p.pool.Put(buf)
}

var defaultPool = New(CopyBufDefaultSize, CopyBufMaxThreshold)

// Get retrieves a Buffer from the package-level default pool.
func Get() *Buffer { return defaultPool.Get() }

// Put returns a Buffer to the package-level default pool.
func Put(buf *Buffer) { defaultPool.Put(buf) }
