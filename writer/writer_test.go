package writer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tacofoundation/tortilla/compress"
	"github.com/tacofoundation/tortilla/errs"
	"github.com/tacofoundation/tortilla/footer"
	"github.com/tacofoundation/tortilla/layout"
	"github.com/tacofoundation/tortilla/sample"
	"github.com/tacofoundation/tortilla/table"
)

func writeSourceFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestWriteTrivialBuild(t *testing.T) {
	dir := t.TempDir()

	p0 := writeSourceFile(t, dir, "a.bin", make([]byte, 100))
	p1 := writeSourceFile(t, dir, "b.bin", make([]byte, 200))

	items := []Item{
		{SourcePath: p0, Length: 100, Metadata: sample.Metadata{ID: "item-0"}},
		{SourcePath: p1, Length: 200, Metadata: sample.Metadata{ID: "item-1"}},
	}

	out := filepath.Join(dir, "out.tortilla")
	results, err := Write(context.Background(), out, "BYTES", items, WithQuiet())
	require.NoError(t, err)
	require.Len(t, results, 1)

	info, err := os.Stat(out)
	require.NoError(t, err)

	res := results[0]
	require.Equal(t, int64(500), res.DataEnd)
	require.Equal(t, res.TotalSize, info.Size())

	raw, err := os.ReadFile(out)
	require.NoError(t, err)

	h, err := layout.Decode(raw[:layout.PrefixSize])
	require.NoError(t, err)
	require.Equal(t, uint64(500), h.FooterOffset)
	require.Equal(t, "BYTES", h.DataFormat)

	codec, err := compress.New(compress.KindZstd)
	require.NoError(t, err)

	footerBytes := raw[h.FooterOffset : h.FooterOffset+h.FooterLength]
	tbl, err := footer.Decode(footerBytes, codec)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.NumRows())
	require.Equal(t, int64(layout.HeaderSize), tbl.Column(table.ColOffset).Int64(0))
	require.Equal(t, int64(300), tbl.Column(table.ColOffset).Int64(1))
}

func TestWriteMultiPartPartitioning(t *testing.T) {
	dir := t.TempDir()

	p0 := writeSourceFile(t, dir, "a.bin", make([]byte, 100))
	p1 := writeSourceFile(t, dir, "b.bin", make([]byte, 100))

	items := []Item{
		{SourcePath: p0, Length: 100, Metadata: sample.Metadata{ID: "item-0"}},
		{SourcePath: p1, Length: 100, Metadata: sample.Metadata{ID: "item-1"}},
	}

	out := filepath.Join(dir, "out.tortilla")
	results, err := Write(context.Background(), out, "BYTES", items, WithQuiet(), WithChunkSizeBytes(100))
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, r := range results {
		require.Equal(t, 2, r.DataPartitions)
		require.FileExists(t, r.Path)
	}
}

func TestWriteRejectsMissingSource(t *testing.T) {
	items := []Item{
		{SourcePath: "/does/not/exist", Length: 10, Metadata: sample.Metadata{ID: "item-0"}},
	}

	_, err := Write(context.Background(), filepath.Join(t.TempDir(), "out.tortilla"), "BYTES", items, WithQuiet())
	require.Error(t, err)
}

func TestWriteRejectsEmptyInput(t *testing.T) {
	_, err := Write(context.Background(), "out.tortilla", "BYTES", nil, WithQuiet())
	require.Error(t, err)
}

func TestWriteRejectsDuplicateID(t *testing.T) {
	dir := t.TempDir()

	p0 := writeSourceFile(t, dir, "a.bin", make([]byte, 10))
	p1 := writeSourceFile(t, dir, "b.bin", make([]byte, 10))

	items := []Item{
		{SourcePath: p0, Length: 10, Metadata: sample.Metadata{ID: "dup"}},
		{SourcePath: p1, Length: 10, Metadata: sample.Metadata{ID: "dup"}},
	}

	_, err := Write(context.Background(), filepath.Join(dir, "out.tortilla"), "BYTES", items, WithQuiet())
	require.ErrorIs(t, err, errs.ErrDuplicateID)
}
