package layout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tacofoundation/tortilla/errs"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{
		FooterOffset:   500,
		FooterLength:   128,
		DataFormat:     "GTiff",
		DataPartitions: 1,
	}

	b, err := Encode(h)
	require.NoError(t, err)
	require.Len(t, b, HeaderSize)
	require.Equal(t, byte(0x23), b[0])
	require.Equal(t, byte(0x79), b[1])

	got, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, h, got)

	for _, c := range b[reservedOffset:] {
		require.Zero(t, c)
	}
}

func TestDecodeAcceptsEitherPadding(t *testing.T) {
	h := Header{FooterOffset: 500, FooterLength: 10, DataFormat: "COG", DataPartitions: 1}

	b, err := Encode(h)
	require.NoError(t, err)

	// Flip the 0x20 space padding to 0x00 NUL padding; a reader must
	// accept both.
	for i := dataFormatOffset + len(h.DataFormat); i < dataFormatOffset+dataFormatSize; i++ {
		b[i] = 0x00
	}

	got, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, "COG", got.DataFormat)
}

func TestDecodeBadMagic(t *testing.T) {
	b := make([]byte, HeaderSize)
	b[0], b[1] = 'X', 'X'

	_, err := Decode(b)
	require.ErrorIs(t, err, errs.ErrBadMagic)
}

func TestDecodeTruncated(t *testing.T) {
	_, err := Decode(make([]byte, 10))
	require.ErrorIs(t, err, errs.ErrTruncated)
}

func TestEncodeRejectsOversizedFormat(t *testing.T) {
	_, err := Encode(Header{DataFormat: "THIS-IDENTIFIER-IS-WAY-TOO-LONG-FOR-24-BYTES"})
	require.Error(t, err)
}

func TestTrivialBuildHeaderOffsets(t *testing.T) {
	// Mirrors a two-item build of 100 and 200 bytes: offset[0]=200,
	// offset[1]=300, data_end=500.
	h := Header{FooterOffset: 500, FooterLength: 42, DataFormat: "BYTES", DataPartitions: 1}

	b, err := Encode(h)
	require.NoError(t, err)
	require.Equal(t, uint64(500), decodeU64(b[2:10]))
}

func decodeU64(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
