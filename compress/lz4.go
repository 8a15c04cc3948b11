package compress

import (
	"errors"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// lz4CompressorPool pools lz4.Compressor instances; they retain an internal
// hash table that is expensive to re-zero on every footer encode.
var lz4CompressorPool = sync.Pool{
	New: func() any { return &lz4.Compressor{} },
}

// LZ4Codec favors very fast decompression, at the cost of ratio, for
// footers that are read far more often than they are written.
type LZ4Codec struct{}

var _ Codec = LZ4Codec{}

// Block codec tags: CompressBlock can return n == 0 when the input does not
// shrink, so Compress prefixes a one-byte tag marking whether the remainder
// is an LZ4 block or the data stored verbatim.
const (
	tagCompressed byte = 0
	tagStored     byte = 1
)

// Compress implements Codec.
func (LZ4Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dst := make([]byte, 1+lz4.CompressBlockBound(len(data)))

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst[1:])
	if err != nil {
		return nil, err
	}
	if n == 0 {
		out := make([]byte, 1+len(data))
		out[0] = tagStored
		copy(out[1:], data)

		return out, nil
	}

	dst[0] = tagCompressed

	return dst[:1+n], nil
}

// Decompress implements Codec.
func (LZ4Codec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	tag, body := data[0], data[1:]
	if tag == tagStored {
		return body, nil
	}

	bufSize := len(body) * 4
	const maxSize = 128 * 1024 * 1024 // 128MiB safety limit, footers never approach this.

	for bufSize <= maxSize {
		buf := make([]byte, bufSize)
		n, err := lz4.UncompressBlock(body, buf)
		if err != nil {
			if errors.Is(err, lz4.ErrInvalidSourceShortBuffer) && bufSize < maxSize {
				bufSize *= 2
				continue
			}

			return nil, err
		}

		return buf[:n], nil
	}

	return nil, lz4.ErrInvalidSourceShortBuffer
}
