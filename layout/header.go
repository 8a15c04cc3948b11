// Package layout encodes and decodes the 200-byte fixed header that opens
// every Tortilla file. All integer fields are little-endian; the magic
// bytes and field widths are byte-exact across every implementation of the
// format, so this package never varies them by platform or build tag.
package layout

import (
	"encoding/binary"

	"github.com/tacofoundation/tortilla/errs"
)

const (
	// HeaderSize is the fixed size, in bytes, of every Tortilla header.
	HeaderSize = 200

	// PrefixSize is the number of leading header bytes that carry
	// information; bytes PrefixSize..HeaderSize are reserved and
	// zero-filled, so a header probe only needs to read this many bytes.
	PrefixSize = 50

	dataFormatSize = 24

	magicOffset        = 0
	footerOffsetOffset = 2
	footerLengthOffset = 10
	dataFormatOffset   = 18
	reservedOffset     = 50

	// DataPartitionsOffset and DataPartitionsSize locate the
	// data_partitions field within the header, so a caller that only
	// needs that one field (the remote reader's *.tortilla snippet
	// expansion) can fetch it with a single narrow Range request
	// (bytes=42-49) instead of the full PrefixSize prefix.
	DataPartitionsOffset = 42
	DataPartitionsSize   = 8
)

const dataPartitionsOffset = DataPartitionsOffset

var magic = [2]byte{0x23, 0x79} // "#y"

// Header is the parsed form of a Tortilla file's 200-byte prefix.
type Header struct {
	FooterOffset   uint64
	FooterLength   uint64
	DataFormat     string
	DataPartitions uint64
}

// Encode serializes h into a HeaderSize-byte slice. DataFormat must be at
// most 24 bytes of 7-bit ASCII; it is right-padded with 0x20 (space).
// Bytes 50-199 are zero-filled.
func Encode(h Header) ([]byte, error) {
	if len(h.DataFormat) > dataFormatSize {
		return nil, errs.ErrInvalidSample
	}
	for i := 0; i < len(h.DataFormat); i++ {
		if h.DataFormat[i] > 0x7f {
			return nil, errs.ErrInvalidSample
		}
	}

	b := make([]byte, HeaderSize)
	b[0], b[1] = magic[0], magic[1]
	binary.LittleEndian.PutUint64(b[footerOffsetOffset:], h.FooterOffset)
	binary.LittleEndian.PutUint64(b[footerLengthOffset:], h.FooterLength)

	copy(b[dataFormatOffset:dataFormatOffset+dataFormatSize], h.DataFormat)
	for i := len(h.DataFormat); i < dataFormatSize; i++ {
		b[dataFormatOffset+i] = 0x20
	}

	binary.LittleEndian.PutUint64(b[dataPartitionsOffset:], h.DataPartitions)
	// b[reservedOffset:HeaderSize] is already zero from make().

	return b, nil
}

// Decode parses a Tortilla header from b, which must be at least
// PrefixSize bytes (the reserved tail carries no information). Trailing
// spaces and NULs are stripped from DataFormat; a writer may use either
// padding byte, and a reader accepts both.
func Decode(b []byte) (Header, error) {
	if len(b) < PrefixSize {
		return Header{}, errs.ErrTruncated
	}
	if b[0] != magic[0] || b[1] != magic[1] {
		return Header{}, errs.ErrBadMagic
	}

	h := Header{
		FooterOffset:   binary.LittleEndian.Uint64(b[footerOffsetOffset : footerOffsetOffset+8]),
		FooterLength:   binary.LittleEndian.Uint64(b[footerLengthOffset : footerLengthOffset+8]),
		DataPartitions: binary.LittleEndian.Uint64(b[dataPartitionsOffset : dataPartitionsOffset+8]),
	}

	raw := b[dataFormatOffset : dataFormatOffset+dataFormatSize]
	end := len(raw)
	for end > 0 && (raw[end-1] == 0x20 || raw[end-1] == 0x00) {
		end--
	}
	h.DataFormat = string(raw[:end])

	return h, nil
}
