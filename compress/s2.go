package compress

import "github.com/klauspost/compress/s2"

// S2Codec trades compression ratio for speed; useful when footers are
// rewritten often (e.g. the compiler re-encoding a subset footer on every
// invocation of an interactive tool).
type S2Codec struct{}

var _ Codec = S2Codec{}

// Compress implements Codec.
func (S2Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Encode(nil, data), nil
}

// Decompress implements Codec.
func (S2Codec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Decode(nil, data)
}
