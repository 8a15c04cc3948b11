package compress

// NoOpCodec passes data through unchanged. Useful for tests that want to
// inspect the uncompressed footer table bytes, or for callers running on a
// CPU budget where the data region already dwarfs the footer.
type NoOpCodec struct{}

var _ Codec = NoOpCodec{}

// Compress implements Codec.
func (NoOpCodec) Compress(data []byte) ([]byte, error) { return data, nil }

// Decompress implements Codec.
func (NoOpCodec) Decompress(data []byte) ([]byte, error) { return data, nil }
