package compiler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tacofoundation/tortilla/compress"
	"github.com/tacofoundation/tortilla/footer"
	"github.com/tacofoundation/tortilla/layout"
	"github.com/tacofoundation/tortilla/reader"
	"github.com/tacofoundation/tortilla/sample"
	"github.com/tacofoundation/tortilla/table"
	"github.com/tacofoundation/tortilla/writer"
)

func repeatByte(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestCoalesceRangesMergesAdjacent(t *testing.T) {
	offsets := table.NewInt64Column(table.ColOffset, []int64{0, 100, 300})
	lengths := table.NewInt64Column(table.ColLength, []int64{100, 100, 50})
	newOffsets := []int64{200, 300, 400}

	ranges := coalesceRanges(offsets, lengths, newOffsets, 3)
	require.Len(t, ranges, 2)
	require.Equal(t, SrcDstRange{SrcOffset: 0, DstOffset: 200, Length: 200}, ranges[0])
	require.Equal(t, SrcDstRange{SrcOffset: 300, DstOffset: 400, Length: 50}, ranges[1])
}

func TestRangeHeaderFormat(t *testing.T) {
	ranges := []SrcDstRange{
		{SrcOffset: 0, Length: 200},
		{SrcOffset: 300, Length: 50},
	}
	require.Equal(t, "bytes=0-199,300-349", rangeHeader(ranges))
}

func buildLocalTortilla(t *testing.T, dir string, sizes []int) string {
	t.Helper()

	items := make([]writer.Item, len(sizes))
	for i, sz := range sizes {
		path := filepath.Join(dir, string(rune('a'+i))+".bin")
		require.NoError(t, os.WriteFile(path, make([]byte, sz), 0o644))
		items[i] = writer.Item{SourcePath: path, Length: int64(sz), Metadata: sample.Metadata{ID: "item-" + string(rune('0'+i))}}
	}

	out := filepath.Join(dir, "src.tortilla")
	_, err := writer.Write(context.Background(), out, "BYTES", items, writer.WithQuiet())
	require.NoError(t, err)

	return out
}

func TestCompileLocalSubset(t *testing.T) {
	dir := t.TempDir()
	src := buildLocalTortilla(t, dir, []int{10, 20, 30})

	tbl, err := reader.ReadLocal(context.Background(), src)
	require.NoError(t, err)

	subset := tbl.Table.Filter(func(row int) bool {
		id := tbl.Column(table.ColID).String(row)
		return id == "item-0" || id == "item-2"
	})

	dest := filepath.Join(dir, "dest.tortilla")
	err = CompileLocal(context.Background(), src, dest, subset, "BYTES", 2, 1<<16, true)
	require.NoError(t, err)

	raw, err := os.ReadFile(dest)
	require.NoError(t, err)

	h, err := layout.Decode(raw[:layout.PrefixSize])
	require.NoError(t, err)
	require.Equal(t, uint64(240), h.FooterOffset) // 200 + 10 + 30

	codec, err := compress.New(compress.KindZstd)
	require.NoError(t, err)

	ftbl, err := footer.Decode(raw[h.FooterOffset:h.FooterOffset+h.FooterLength], codec)
	require.NoError(t, err)
	require.Equal(t, 2, ftbl.NumRows())
	require.Equal(t, int64(200), ftbl.Column(table.ColOffset).Int64(0))
	require.Equal(t, int64(210), ftbl.Column(table.ColOffset).Int64(1))
}

func TestCompileLocalRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := buildLocalTortilla(t, dir, []int{10})

	tbl, err := reader.ReadLocal(context.Background(), src)
	require.NoError(t, err)

	dest := filepath.Join(dir, "dest.tortilla")
	require.NoError(t, os.WriteFile(dest, []byte("existing"), 0o644))

	err = CompileLocal(context.Background(), src, dest, tbl.Table, "BYTES", 1, 1<<16, false)
	require.Error(t, err)
}

// buildRemoteFixture writes a 3-item local Tortilla with distinct byte
// patterns per item, serves it from an httptest server via
// http.ServeContent (which implements real RFC 7233 single- and
// multi-range responses, including multipart/byteranges), and returns a
// subset table referencing items 0 and 2 — a gap at item 1 forces the
// compiler to issue a genuine multi-range request.
func buildRemoteFixture(t *testing.T) (subset *table.Table, cleanup func()) {
	t.Helper()

	dir := t.TempDir()
	patterns := [][]byte{repeatByte(0xAA, 10), repeatByte(0xBB, 20), repeatByte(0xCC, 30)}

	items := make([]writer.Item, len(patterns))
	for i, data := range patterns {
		path := filepath.Join(dir, fmt.Sprintf("src-%d.bin", i))
		require.NoError(t, os.WriteFile(path, data, 0o644))
		items[i] = writer.Item{SourcePath: path, Length: int64(len(data)), Metadata: sample.Metadata{ID: fmt.Sprintf("item-%d", i)}}
	}

	src := filepath.Join(dir, "src.tortilla")
	_, err := writer.Write(context.Background(), src, "BYTES", items, writer.WithQuiet())
	require.NoError(t, err)

	raw, err := os.ReadFile(src)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "src.tortilla", time.Time{}, bytes.NewReader(raw))
	}))

	subset = table.New()
	require.NoError(t, subset.AddColumn(table.NewStringColumn(table.ColID, []string{"item-0", "item-2"})))
	require.NoError(t, subset.AddColumn(table.NewInt64Column(table.ColOffset, []int64{200, 230})))
	require.NoError(t, subset.AddColumn(table.NewInt64Column(table.ColLength, []int64{10, 30})))
	require.NoError(t, subset.AddColumn(table.NewStringColumn("internal:subfile", []string{
		fmt.Sprintf("/vsisubfile/200_10,/vsicurl/%s", srv.URL),
		fmt.Sprintf("/vsisubfile/230_30,/vsicurl/%s", srv.URL),
	})))

	return subset, srv.Close
}

func TestCompileRemoteMultiRangeSubset(t *testing.T) {
	subset, cleanup := buildRemoteFixture(t)
	defer cleanup()

	dest := filepath.Join(t.TempDir(), "dest.tortilla")
	err := CompileRemote(context.Background(), subset, dest, "BYTES", 0)
	require.NoError(t, err)

	raw, err := os.ReadFile(dest)
	require.NoError(t, err)

	h, err := layout.Decode(raw[:layout.PrefixSize])
	require.NoError(t, err)
	require.Equal(t, uint64(240), h.FooterOffset) // 200 + 10 + 30

	require.Equal(t, repeatByte(0xAA, 10), raw[200:210])
	require.Equal(t, repeatByte(0xCC, 30), raw[210:240])

	codec, err := compress.New(compress.KindZstd)
	require.NoError(t, err)

	ftbl, err := footer.Decode(raw[h.FooterOffset:h.FooterOffset+h.FooterLength], codec)
	require.NoError(t, err)
	require.Equal(t, int64(200), ftbl.Column(table.ColOffset).Int64(0))
	require.Equal(t, int64(210), ftbl.Column(table.ColOffset).Int64(1))
}

func TestCompileRemoteResumesAndNoOps(t *testing.T) {
	subset, cleanup := buildRemoteFixture(t)
	defer cleanup()

	dest := filepath.Join(t.TempDir(), "dest.tortilla")

	p, err := prepare(subset, "BYTES")
	require.NoError(t, err)
	header, err := p.header()
	require.NoError(t, err)

	partial := append(append([]byte{}, header...), repeatByte(0xAA, 5)...)
	require.NoError(t, os.WriteFile(dest, partial, 0o644))

	err = CompileRemote(context.Background(), subset, dest, "BYTES", 0)
	require.NoError(t, err)

	raw, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, repeatByte(0xAA, 10), raw[200:210])
	require.Equal(t, repeatByte(0xCC, 30), raw[210:240])

	before, err := os.Stat(dest)
	require.NoError(t, err)

	err = CompileRemote(context.Background(), subset, dest, "BYTES", 0)
	require.NoError(t, err)

	after, err := os.Stat(dest)
	require.NoError(t, err)
	require.Equal(t, before.Size(), after.Size())
	require.Equal(t, before.ModTime(), after.ModTime()) // no-op: file untouched
}
