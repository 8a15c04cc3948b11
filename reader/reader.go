// Package reader implements the Tortilla reader/slicer (C4): parsing a
// header and footer from a local path or an HTTP(S) URL, exposing a
// per-item metadata table with synthetic columns appended, navigating
// nested Tortillas, and fetching an individual item's bytes.
package reader

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tacofoundation/tortilla/compress"
	"github.com/tacofoundation/tortilla/errs"
	"github.com/tacofoundation/tortilla/footer"
	"github.com/tacofoundation/tortilla/layout"
	"github.com/tacofoundation/tortilla/source"
	"github.com/tacofoundation/tortilla/table"
)

const (
	modeLocal  = "local"
	modeOnline = "online"

	fileFormatTortilla = "TORTILLA"
	fileFormatBytes    = "BYTES"
)

// Table is a reader-produced metadata table together with the source it
// was read from, needed to fetch individual items and to descend into
// nested Tortillas.
type Table struct {
	*table.Table

	src       source.Source
	baseOffset int64
	mode       string
}

// ReadLocal parses the Tortilla file at path and returns its metadata
// table. A path ending in .tortilla (but not .part.tortilla) for which no
// file exists is treated as a *.tortilla snippet: every part is expanded
// and vertically concatenated.
func ReadLocal(ctx context.Context, path string) (*Table, error) {
	if strings.HasSuffix(path, ".tortilla") && !strings.Contains(path, ".part.tortilla") {
		if _, err := os.Stat(path); err != nil {
			return readLocalSnippet(ctx, path)
		}
	}

	src, err := source.OpenLocalFile(path)
	if err != nil {
		return nil, err
	}

	return readFromSource(ctx, src, 0, modeLocal, path)
}

// ReadRemote parses the Tortilla file at url over HTTP Range requests.
// A url ending in .tortilla (but not .part.tortilla) that does not answer
// a Range request is treated as a *.tortilla snippet: every part is
// expanded (via Range requests) and vertically concatenated, mirroring
// ReadLocal's handling of local snippets.
func ReadRemote(ctx context.Context, url string) (*Table, error) {
	if strings.HasSuffix(url, ".tortilla") && !strings.Contains(url, ".part.tortilla") {
		probe := source.NewHTTPRangeSource(url, nil)
		_, err := probe.Len(ctx)
		probe.Close()
		if err != nil {
			return readRemoteSnippet(ctx, url)
		}
	}

	src := source.NewHTTPRangeSource(url, nil)
	return readFromSource(ctx, src, 0, modeOnline, url)
}

// ReadAll reads every path in paths (local or remote, dispatched by a
// simple scheme sniff) and vertically concatenates their tables.
func ReadAll(ctx context.Context, paths []string) (*table.Table, error) {
	var tables []*table.Table
	for _, p := range paths {
		var t *Table
		var err error
		if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
			t, err = ReadRemote(ctx, p)
		} else {
			t, err = ReadLocal(ctx, p)
		}
		if err != nil {
			return nil, err
		}
		tables = append(tables, t.Table)
	}

	return concatTables(tables)
}

// readFromSource reads the header + footer at baseOffset within src and
// builds the synthetic-column table. locatorSource is the string stored
// in internal:subfile (a local path or URL).
func readFromSource(ctx context.Context, src source.Source, baseOffset int64, mode, locatorSource string) (*Table, error) {
	prefix, err := src.ReadRange(ctx, baseOffset, layout.PrefixSize)
	if err != nil {
		return nil, err
	}

	h, err := layout.Decode(prefix)
	if err != nil {
		return nil, err
	}

	footerAbsOffset := baseOffset + int64(h.FooterOffset)
	footerBytes, err := src.ReadRange(ctx, footerAbsOffset, int64(h.FooterLength))
	if err != nil {
		return nil, err
	}

	codec, err := compress.New(compress.KindZstd)
	if err != nil {
		return nil, err
	}

	raw, err := footer.Decode(footerBytes, codec)
	if err != nil {
		return nil, err
	}

	t := decorate(raw, h.DataFormat, mode, locatorSource, baseOffset)

	return &Table{Table: t, src: src, baseOffset: baseOffset, mode: mode}, nil
}

// decorate appends internal:file_format, internal:mode, and
// internal:subfile, translates tortilla:offset to an absolute position
// when baseOffset is nonzero, and reorders columns per the reader's
// column-ordering rule.
func decorate(t *table.Table, dataFormat, mode, locatorSource string, baseOffset int64) *table.Table {
	rows := t.NumRows()

	fileFormats := make([]string, rows)
	modes := make([]string, rows)
	subfiles := make([]string, rows)

	offsetCol := t.Column(table.ColOffset)
	lengthCol := t.Column(table.ColLength)

	for i := 0; i < rows; i++ {
		fileFormats[i] = dataFormat
		modes[i] = mode

		abs := offsetCol.Int64(i) + baseOffset
		if mode == modeOnline {
			subfiles[i] = fmt.Sprintf("/vsisubfile/%d_%d,/vsicurl/%s", abs, lengthCol.Int64(i), locatorSource)
		} else {
			subfiles[i] = fmt.Sprintf("/vsisubfile/%d_%d,%s", abs, lengthCol.Int64(i), locatorSource)
		}
	}

	if baseOffset != 0 {
		newOffsets := make([]int64, rows)
		for i := 0; i < rows; i++ {
			newOffsets[i] = offsetCol.Int64(i) + baseOffset
		}
		t.DropColumn(table.ColOffset)
		_ = t.AddColumn(table.NewInt64Column(table.ColOffset, newOffsets))
	}

	_ = t.AddColumn(table.NewStringColumn("internal:file_format", fileFormats))
	_ = t.AddColumn(table.NewStringColumn("internal:mode", modes))
	_ = t.AddColumn(table.NewStringColumn("internal:subfile", subfiles))

	if t.HasColumn("stac:centroid") {
		geom := make([]string, rows)
		centroid := t.Column("stac:centroid")
		for i := 0; i < rows; i++ {
			geom[i] = centroid.String(i)
		}
		_ = t.AddColumn(table.NewStringColumn("geometry", geom))
	}

	return reorderColumns(t)
}

// reorderColumns rebuilds t with columns grouped internal:*, tortilla:*,
// stac:*, rai:*, remaining user columns, then geometry last.
func reorderColumns(t *table.Table) *table.Table {
	names := t.ColumnNames()

	var internalCols, tortillaCols, stacCols, raiCols, otherCols []string
	var geometryCol string

	for _, n := range names {
		switch {
		case n == "geometry":
			geometryCol = n
		case strings.HasPrefix(n, "internal:"):
			internalCols = append(internalCols, n)
		case strings.HasPrefix(n, "tortilla:"):
			tortillaCols = append(tortillaCols, n)
		case strings.HasPrefix(n, "stac:"):
			stacCols = append(stacCols, n)
		case strings.HasPrefix(n, "rai:"):
			raiCols = append(raiCols, n)
		default:
			otherCols = append(otherCols, n)
		}
	}

	ordered := table.New()
	for _, group := range [][]string{internalCols, tortillaCols, stacCols, raiCols, otherCols} {
		for _, n := range group {
			_ = ordered.AddColumn(t.Column(n))
		}
	}
	if geometryCol != "" {
		_ = ordered.AddColumn(t.Column(geometryCol))
	}

	return ordered
}

func concatTables(tables []*table.Table) (*table.Table, error) {
	if len(tables) == 0 {
		return nil, errs.ErrEmptyInput
	}
	if len(tables) == 1 {
		return tables[0], nil
	}

	out := table.New()
	names := tables[0].ColumnNames()

	for _, name := range names {
		kind := tables[0].Column(name).Kind
		switch kind {
		case table.String:
			var vals []string
			for _, t := range tables {
				c := t.Column(name)
				for i := 0; i < c.Len(); i++ {
					vals = append(vals, c.String(i))
				}
			}
			if err := out.AddColumn(table.NewStringColumn(name, vals)); err != nil {
				return nil, err
			}
		case table.Int64:
			var vals []int64
			for _, t := range tables {
				c := t.Column(name)
				for i := 0; i < c.Len(); i++ {
					vals = append(vals, c.Int64(i))
				}
			}
			if err := out.AddColumn(table.NewInt64Column(name, vals)); err != nil {
				return nil, err
			}
		case table.Float64:
			var vals []float64
			for _, t := range tables {
				c := t.Column(name)
				for i := 0; i < c.Len(); i++ {
					vals = append(vals, c.Float64(i))
				}
			}
			if err := out.AddColumn(table.NewFloat64Column(name, vals)); err != nil {
				return nil, err
			}
		case table.Bool:
			var vals []bool
			for _, t := range tables {
				c := t.Column(name)
				for i := 0; i < c.Len(); i++ {
					vals = append(vals, c.Bool(i))
				}
			}
			if err := out.AddColumn(table.NewBoolColumn(name, vals)); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// readLocalSnippet expands a `*.tortilla` path into its ordered parts,
// failing with ErrMissingPart if any expected part is absent.
func readLocalSnippet(ctx context.Context, path string) (*Table, error) {
	stem := strings.TrimSuffix(path, ".tortilla")
	part0 := fmt.Sprintf("%s.0000.part.tortilla", stem)

	f, err := os.Open(part0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrMissingPart, part0)
	}
	prefix := make([]byte, layout.PrefixSize)
	if _, err := f.ReadAt(prefix, 0); err != nil {
		f.Close()
		return nil, err
	}
	f.Close()

	h, err := layout.Decode(prefix)
	if err != nil {
		return nil, err
	}

	var paths []string
	for i := uint64(0); i < h.DataPartitions; i++ {
		p := fmt.Sprintf("%s.%04d.part.tortilla", stem, i)
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: %s", errs.ErrMissingPart, p)
		}
		paths = append(paths, p)
	}

	concatenated, err := ReadAll(ctx, paths)
	if err != nil {
		return nil, err
	}

	return &Table{Table: concatenated, mode: modeLocal}, nil
}

// readRemoteSnippet expands a `*.tortilla` URL into its ordered parts,
// reading only the data_partitions field of part 0 via a narrow
// Range: bytes=42-49 request rather than fetching its whole header,
// failing with ErrMissingPart if any expected part does not exist.
func readRemoteSnippet(ctx context.Context, rawURL string) (*Table, error) {
	stem := strings.TrimSuffix(rawURL, ".tortilla")
	part0URL := fmt.Sprintf("%s.0000.part.tortilla", stem)

	part0Src := source.NewHTTPRangeSource(part0URL, nil)
	defer part0Src.Close()

	field, err := part0Src.ReadRange(ctx, layout.DataPartitionsOffset, layout.DataPartitionsSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrMissingPart, part0URL)
	}
	dataPartitions := binary.LittleEndian.Uint64(field)

	var urls []string
	for i := uint64(0); i < dataPartitions; i++ {
		u := fmt.Sprintf("%s.%04d.part.tortilla", stem, i)

		partSrc := source.NewHTTPRangeSource(u, nil)
		if _, err := partSrc.Len(ctx); err != nil {
			partSrc.Close()
			return nil, fmt.Errorf("%w: %s", errs.ErrMissingPart, u)
		}
		partSrc.Close()

		urls = append(urls, u)
	}

	concatenated, err := ReadAll(ctx, urls)
	if err != nil {
		return nil, err
	}

	return &Table{Table: concatenated, mode: modeOnline}, nil
}

// Nested descends into row's payload, which must have
// internal:file_format == "TORTILLA", treating its tortilla:offset as the
// base offset of a child Tortilla within the same source.
func (t *Table) Nested(ctx context.Context, row int) (*Table, error) {
	ff := t.Column("internal:file_format")
	if ff == nil || ff.String(row) != fileFormatTortilla {
		return nil, fmt.Errorf("%w: row %d", errs.ErrNotNested, row)
	}

	childOffset := t.Column(table.ColOffset).Int64(row)

	locator := t.Column("internal:subfile").String(row)
	src := t.src

	return readFromSource(ctx, src, childOffset, t.mode, locatorBase(locator))
}

// locatorBase recovers the bare path or URL from an internal:subfile
// value (e.g. "/vsisubfile/200_50,/vsicurl/https://host/a.tortilla"),
// stripping both the leading "/vsisubfile/<offset>_<length>," segment and
// the "/vsicurl/" wrapper, so it can be re-wrapped by decorate for the
// next nesting level.
func locatorBase(locator string) string {
	base := locator
	if idx := strings.LastIndex(locator, ","); idx >= 0 {
		base = locator[idx+1:]
	}
	return strings.TrimPrefix(base, "/vsicurl/")
}

// ReadItem fetches the payload bytes (or descends into a nested
// Tortilla, or returns a bare locator string) for the row at index row,
// per the reader-side item fetch rule.
func (t *Table) ReadItem(ctx context.Context, row int) (any, error) {
	ff := t.Column("internal:file_format")
	format := ""
	if ff != nil {
		format = ff.String(row)
	}

	switch format {
	case fileFormatTortilla:
		return t.Nested(ctx, row)
	case fileFormatBytes:
		offset := t.Column(table.ColOffset).Int64(row)
		length := t.Column(table.ColLength).Int64(row)
		return t.src.ReadRange(ctx, offset, length)
	default:
		return t.Column("internal:subfile").String(row), nil
	}
}

// Sorted returns a copy of t with rows reordered by tortilla:offset
// ascending, for the compiler's "subset sorted and re-indexed" input
// requirement.
func Sorted(t *table.Table) *table.Table {
	rows := t.NumRows()
	idx := make([]int, rows)
	for i := range idx {
		idx[i] = i
	}
	offsets := t.Column(table.ColOffset)
	sort.Slice(idx, func(a, b int) bool { return offsets.Int64(idx[a]) < offsets.Int64(idx[b]) })

	return reorderRows(t, idx)
}

// reorderRows rebuilds t with its rows permuted according to idx (idx[j]
// is the source row that becomes row j of the result).
func reorderRows(t *table.Table, idx []int) *table.Table {
	out := table.New()

	for _, name := range t.ColumnNames() {
		src := t.Column(name)

		switch src.Kind {
		case table.String:
			vals := make([]string, len(idx))
			for j, i := range idx {
				vals[j] = src.String(i)
			}
			_ = out.AddColumn(table.NewStringColumn(name, vals))
		case table.Int64:
			vals := make([]int64, len(idx))
			for j, i := range idx {
				vals[j] = src.Int64(i)
			}
			_ = out.AddColumn(table.NewInt64Column(name, vals))
		case table.Float64:
			vals := make([]float64, len(idx))
			for j, i := range idx {
				vals[j] = src.Float64(i)
			}
			_ = out.AddColumn(table.NewFloat64Column(name, vals))
		case table.Bool:
			vals := make([]bool, len(idx))
			for j, i := range idx {
				vals[j] = src.Bool(i)
			}
			_ = out.AddColumn(table.NewBoolColumn(name, vals))
		case table.Int64List:
			vals := make([][]int64, len(idx))
			for j, i := range idx {
				vals[j] = src.Int64List(i)
			}
			_ = out.AddColumn(table.NewInt64ListColumn(name, vals))
		case table.Float64List:
			vals := make([][]float64, len(idx))
			for j, i := range idx {
				vals[j] = src.Float64List(i)
			}
			_ = out.AddColumn(table.NewFloat64ListColumn(name, vals))
		}
	}

	return out
}
