// Package footer implements the footer codec (C2): serializing the
// per-item metadata table to a Zstandard-compressed columnar buffer and
// back. The wire format is private to this package; only Encode/Decode
// are meant to be called from outside it.
package footer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tacofoundation/tortilla/compress"
	"github.com/tacofoundation/tortilla/errs"
	"github.com/tacofoundation/tortilla/table"
)

// Encode serializes t into a buffer compressed with codec. The first
// three columns of t must be tortilla:id (string), tortilla:offset
// (int64), and tortilla:length (int64); additional columns of any
// supported table.Kind follow in t's column order. codec is part of the
// public API so callers can swap in compress.S2Codec, compress.LZ4Codec,
// or compress.NoOpCodec{} in place of the writer's default Zstd choice.
func Encode(t *table.Table, codec compress.Codec) ([]byte, error) {
	raw, err := marshal(t)
	if err != nil {
		return nil, fmt.Errorf("footer: marshal: %w", err)
	}

	compressed, err := codec.Compress(raw)
	if err != nil {
		return nil, fmt.Errorf("footer: compress: %w", err)
	}

	return compressed, nil
}

// Decode is the inverse of Encode; codec must match whatever codec
// encoded b.
func Decode(b []byte, codec compress.Codec) (*table.Table, error) {
	raw, err := codec.Decompress(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrFooterDecode, err)
	}

	t, err := unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrFooterDecode, err)
	}

	return t, nil
}

// marshal writes the table in a simple length-prefixed columnar layout:
//
//	uint32 numRows
//	uint32 numCols
//	for each column:
//	  uint16 nameLen, name bytes
//	  uint8  kind
//	  column payload, one value per row:
//	    String:      uint32 len, bytes
//	    Int64:       int64
//	    Float64:     float64 (via math.Float64bits)
//	    Bool:        uint8
//	    Int64List:   uint32 len, then that many int64
//	    Float64List: uint32 len, then that many float64
func marshal(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer

	rows := uint32(t.NumRows())
	names := t.ColumnNames()

	if err := binary.Write(&buf, binary.LittleEndian, rows); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(names))); err != nil {
		return nil, err
	}

	for _, name := range names {
		col := t.Column(name)

		if err := writeString16(&buf, name); err != nil {
			return nil, err
		}
		if err := buf.WriteByte(byte(col.Kind)); err != nil {
			return nil, err
		}

		switch col.Kind {
		case table.String:
			for i := 0; i < col.Len(); i++ {
				if err := writeString32(&buf, col.String(i)); err != nil {
					return nil, err
				}
			}
		case table.Int64:
			for i := 0; i < col.Len(); i++ {
				if err := binary.Write(&buf, binary.LittleEndian, col.Int64(i)); err != nil {
					return nil, err
				}
			}
		case table.Float64:
			for i := 0; i < col.Len(); i++ {
				if err := binary.Write(&buf, binary.LittleEndian, col.Float64(i)); err != nil {
					return nil, err
				}
			}
		case table.Bool:
			for i := 0; i < col.Len(); i++ {
				v := byte(0)
				if col.Bool(i) {
					v = 1
				}
				if err := buf.WriteByte(v); err != nil {
					return nil, err
				}
			}
		case table.Int64List:
			for i := 0; i < col.Len(); i++ {
				list := col.Int64List(i)
				if err := binary.Write(&buf, binary.LittleEndian, uint32(len(list))); err != nil {
					return nil, err
				}
				for _, v := range list {
					if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
						return nil, err
					}
				}
			}
		case table.Float64List:
			for i := 0; i < col.Len(); i++ {
				list := col.Float64List(i)
				if err := binary.Write(&buf, binary.LittleEndian, uint32(len(list))); err != nil {
					return nil, err
				}
				for _, v := range list {
					if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
						return nil, err
					}
				}
			}
		default:
			return nil, fmt.Errorf("footer: unknown column kind %d for %q", col.Kind, name)
		}
	}

	return buf.Bytes(), nil
}

func unmarshal(raw []byte) (*table.Table, error) {
	r := bytes.NewReader(raw)

	var rows, numCols uint32
	if err := binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &numCols); err != nil {
		return nil, err
	}

	t := table.New()

	for c := uint32(0); c < numCols; c++ {
		name, err := readString16(r)
		if err != nil {
			return nil, err
		}

		kindByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		kind := table.Kind(kindByte)

		var col *table.Column
		switch kind {
		case table.String:
			vals := make([]string, rows)
			for i := range vals {
				v, err := readString32(r)
				if err != nil {
					return nil, err
				}
				vals[i] = v
			}
			col = table.NewStringColumn(name, vals)
		case table.Int64:
			vals := make([]int64, rows)
			for i := range vals {
				if err := binary.Read(r, binary.LittleEndian, &vals[i]); err != nil {
					return nil, err
				}
			}
			col = table.NewInt64Column(name, vals)
		case table.Float64:
			vals := make([]float64, rows)
			for i := range vals {
				if err := binary.Read(r, binary.LittleEndian, &vals[i]); err != nil {
					return nil, err
				}
			}
			col = table.NewFloat64Column(name, vals)
		case table.Bool:
			vals := make([]bool, rows)
			for i := range vals {
				b, err := r.ReadByte()
				if err != nil {
					return nil, err
				}
				vals[i] = b != 0
			}
			col = table.NewBoolColumn(name, vals)
		case table.Int64List:
			vals := make([][]int64, rows)
			for i := range vals {
				var n uint32
				if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
					return nil, err
				}
				list := make([]int64, n)
				for j := range list {
					if err := binary.Read(r, binary.LittleEndian, &list[j]); err != nil {
						return nil, err
					}
				}
				vals[i] = list
			}
			col = table.NewInt64ListColumn(name, vals)
		case table.Float64List:
			vals := make([][]float64, rows)
			for i := range vals {
				var n uint32
				if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
					return nil, err
				}
				list := make([]float64, n)
				for j := range list {
					if err := binary.Read(r, binary.LittleEndian, &list[j]); err != nil {
						return nil, err
					}
				}
				vals[i] = list
			}
			col = table.NewFloat64ListColumn(name, vals)
		default:
			return nil, fmt.Errorf("footer: unknown column kind %d in wire data", kindByte)
		}

		if err := t.AddColumn(col); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func writeString16(buf *bytes.Buffer, s string) error {
	if err := binary.Write(buf, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := buf.WriteString(s)
	return err
}

func readString16(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func writeString32(buf *bytes.Buffer, s string) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := buf.WriteString(s)
	return err
}

func readString32(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
