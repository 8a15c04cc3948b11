// Package compiler implements the Tortilla slicer/compiler (C5):
// materializing a subset of rows from a reader-produced table as a new,
// standalone Tortilla file, either by local mmap-based copy or by
// resumable HTTP range-coalesced streaming download.
package compiler

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sync/errgroup"

	"github.com/tacofoundation/tortilla/compress"
	"github.com/tacofoundation/tortilla/errs"
	"github.com/tacofoundation/tortilla/footer"
	"github.com/tacofoundation/tortilla/internal/pool"
	"github.com/tacofoundation/tortilla/layout"
	"github.com/tacofoundation/tortilla/reader"
	"github.com/tacofoundation/tortilla/source"
	"github.com/tacofoundation/tortilla/table"
)

// SrcDstRange is one contiguous copy: length bytes starting at SrcOffset
// in the source, landing at DstOffset in the new file.
type SrcDstRange struct {
	SrcOffset int64
	DstOffset int64
	Length    int64
}

// plan is the common preparation shared by local and remote compilation:
// new contiguous offsets, the coalesced copy ranges, and the encoded
// footer for the new file.
type plan struct {
	ranges       []SrcDstRange
	footerBytes  []byte
	dataEnd      int64
	totalSize    int64
	dataFormat   string
}

// prepare sorts subset by tortilla:offset, computes new contiguous
// offsets, coalesces adjacent source ranges, and builds + encodes the new
// footer table (dropping geometry, internal:*, and the old
// tortilla:offset, then renaming the new offset column in).
func prepare(subset *table.Table, dataFormat string) (*plan, error) {
	if subset.NumRows() == 0 {
		return nil, errs.ErrEmptyInput
	}

	sorted := reader.Sorted(subset)
	rows := sorted.NumRows()

	offsetCol := sorted.Column(table.ColOffset)
	lengthCol := sorted.Column(table.ColLength)

	newOffsets := make([]int64, rows)
	newOffsets[0] = layout.HeaderSize
	for i := 1; i < rows; i++ {
		newOffsets[i] = newOffsets[i-1] + lengthCol.Int64(i-1)
	}
	dataEnd := newOffsets[rows-1] + lengthCol.Int64(rows-1)

	ranges := coalesceRanges(offsetCol, lengthCol, newOffsets, rows)

	codec, err := compress.New(compress.KindZstd)
	if err != nil {
		return nil, err
	}

	footerTable := buildCompiledFooter(sorted, newOffsets)
	footerBytes, err := footer.Encode(footerTable, codec)
	if err != nil {
		return nil, err
	}

	return &plan{
		ranges:      ranges,
		footerBytes: footerBytes,
		dataEnd:     dataEnd,
		totalSize:   dataEnd + int64(len(footerBytes)),
		dataFormat:  dataFormat,
	}, nil
}

// coalesceRanges walks rows in ascending new-offset order (already
// guaranteed by the caller) and merges a range into the previous one when
// its source bytes are contiguous with it, exactly mirroring the
// destination-offset bookkeeping used to re-pack a tile archive's data
// section.
func coalesceRanges(offsetCol, lengthCol *table.Column, newOffsets []int64, rows int) []SrcDstRange {
	var ranges []SrcDstRange

	for i := 0; i < rows; i++ {
		srcOffset := offsetCol.Int64(i)
		length := lengthCol.Int64(i)

		if len(ranges) > 0 {
			last := &ranges[len(ranges)-1]
			if last.SrcOffset+last.Length == srcOffset {
				last.Length += length
				continue
			}
		}

		ranges = append(ranges, SrcDstRange{
			SrcOffset: srcOffset,
			DstOffset: newOffsets[i],
			Length:    length,
		})
	}

	return ranges
}

func buildCompiledFooter(sorted *table.Table, newOffsets []int64) *table.Table {
	out := table.New()

	names := sorted.ColumnNames()
	for _, name := range names {
		if name == "geometry" {
			continue
		}
		if name == table.ColOffset {
			// The new offsets take the old column's place, keeping
			// tortilla:id, tortilla:offset, tortilla:length first.
			_ = out.AddColumn(table.NewInt64Column(table.ColOffset, newOffsets))
			continue
		}
		if len(name) >= len("internal:") && name[:len("internal:")] == "internal:" {
			continue
		}
		_ = out.AddColumn(sorted.Column(name))
	}

	return out
}

// header serializes and returns the new file's 200-byte header.
func (p *plan) header() ([]byte, error) {
	return layout.Encode(layout.Header{
		FooterOffset:   uint64(p.dataEnd),
		FooterLength:   uint64(len(p.footerBytes)),
		DataFormat:     p.dataFormat,
		DataPartitions: 1,
	})
}

// CompileLocal materializes subset as a new Tortilla at destPath by
// mmap-copying ranges directly out of srcPath. Workers run in parallel
// over disjoint destination ranges, mirroring the writer's copy model.
func CompileLocal(ctx context.Context, srcPath, destPath string, subset *table.Table, dataFormat string, workers int, writeChunkBytes int64, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(destPath); err == nil {
			return fmt.Errorf("compiler: %s already exists", destPath)
		}
	}

	p, err := prepare(subset, dataFormat)
	if err != nil {
		return err
	}

	src, err := source.OpenLocalFile(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	f, err := os.OpenFile(destPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("compiler: create %s: %w", destPath, err)
	}
	defer f.Close()

	if err := f.Truncate(p.totalSize); err != nil {
		return fmt.Errorf("compiler: truncate %s: %w", destPath, err)
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("compiler: mmap %s: %w", destPath, err)
	}
	defer m.Unmap()

	header, err := p.header()
	if err != nil {
		return err
	}
	copy(m[:layout.HeaderSize], header)

	group, gctx := errgroup.WithContext(ctx)
	if workers <= 0 {
		workers = 1
	}
	group.SetLimit(workers)

	for _, r := range p.ranges {
		r := r
		group.Go(func() error {
			return copyRange(gctx, m, srcPath, r, writeChunkBytes)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	copy(m[p.dataEnd:p.totalSize], p.footerBytes)

	return m.Flush()
}

func copyRange(ctx context.Context, m mmap.MMap, srcPath string, r SrcDstRange, chunkSize int64) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if chunkSize <= 0 {
		chunkSize = pool.CopyBufDefaultSize
	}

	buf := pool.Get()
	defer pool.Put(buf)
	buf.Grow(int(chunkSize))

	var copied int64
	for copied < r.Length {
		if err := ctx.Err(); err != nil {
			return err
		}

		want := chunkSize
		if remaining := r.Length - copied; remaining < want {
			want = remaining
		}

		n, err := f.ReadAt(buf.B[:want], r.SrcOffset+copied)
		if n > 0 {
			copy(m[r.DstOffset+copied:r.DstOffset+copied+int64(n)], buf.B[:n])
			copied += int64(n)
		}
		if err != nil {
			if err == io.EOF && copied >= r.Length {
				break
			}
			if err != io.EOF {
				return err
			}
		}
	}

	return nil
}
