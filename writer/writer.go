// Package writer implements the Tortilla writer (C3): size-bounded
// partitioning of an item list into one or more output files, offset
// assignment, footer construction, and a bounded worker pool that copies
// each item's bytes into a truncated, memory-mapped output file.
package writer

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/edsrzf/mmap-go"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/tacofoundation/tortilla/compress"
	"github.com/tacofoundation/tortilla/errs"
	"github.com/tacofoundation/tortilla/footer"
	"github.com/tacofoundation/tortilla/internal/buildmsg"
	"github.com/tacofoundation/tortilla/internal/idtracker"
	"github.com/tacofoundation/tortilla/internal/options"
	"github.com/tacofoundation/tortilla/internal/pool"
	"github.com/tacofoundation/tortilla/layout"
	"github.com/tacofoundation/tortilla/sample"
	"github.com/tacofoundation/tortilla/table"
)

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n > 4 {
		return 4
	}
	if n < 1 {
		return 1
	}
	return n
}

// Item is one input to the writer: a source file, its known length, and
// its flattened metadata (as produced by sample.Sample.ExportMetadata).
type Item struct {
	SourcePath string
	Length     int64
	Metadata   sample.Metadata
}

// Result describes one output file produced by Write.
type Result struct {
	Path           string
	DataEnd        int64
	FooterLength   int64
	TotalSize      int64
	DataPartitions int
	PartIndex      int
}

// Write partitions items by size budget and writes one or more Tortilla
// files rooted at outputPath (outputPath itself if a single part results,
// otherwise "<stem>.NNNN.part.tortilla"). dataFormat is recorded verbatim
// in every part's header.
func Write(ctx context.Context, outputPath, dataFormat string, items []Item, opts ...Option) ([]Result, error) {
	if len(items) == 0 {
		return nil, errs.ErrEmptyInput
	}

	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	ids := idtracker.New(len(items))
	for _, it := range items {
		if _, err := os.Stat(it.SourcePath); err != nil {
			return nil, fmt.Errorf("%w: %s", errs.ErrInvalidPath, it.SourcePath)
		}
		if err := ids.Add(it.Metadata.ID); err != nil {
			return nil, fmt.Errorf("%w: %s", err, it.Metadata.ID)
		}
	}

	codec, err := compress.New(compress.KindZstd)
	if err != nil {
		return nil, err
	}

	groups := partition(items, cfg.ChunkSizeBytes)

	var bar *progressbar.ProgressBar
	if !cfg.Quiet {
		out := cfg.ProgressOutput
		if out == nil {
			out = os.Stderr
		}
		total := 0
		for _, g := range groups {
			total += len(g)
		}
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(buildmsg.Random()),
			progressbar.OptionSetWriter(out),
		)
	}

	results := make([]Result, 0, len(groups))
	for i, group := range groups {
		res, err := writePart(ctx, partPath(outputPath, i, len(groups)), dataFormat, group, len(groups), i, cfg, bar, codec)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	return results, nil
}

// partPath returns outputPath unmodified when there is exactly one part,
// or "<stem>.<NNNN>.part.tortilla" otherwise.
func partPath(outputPath string, index, total int) string {
	if total <= 1 {
		return outputPath
	}
	return fmt.Sprintf("%s.%04d.part.tortilla", stem(outputPath), index)
}

func stem(path string) string {
	ext := ".tortilla"
	if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
		return path[:len(path)-len(ext)]
	}
	return path
}

// partition greedily packs items into groups whose summed length does not
// exceed budget; an item larger than budget forms a group alone. Input
// order is preserved, both across and within groups.
func partition(items []Item, budget uint64) [][]Item {
	if budget == 0 {
		return [][]Item{items}
	}

	var groups [][]Item
	var current []Item
	var currentSize uint64

	for _, it := range items {
		size := uint64(it.Length)
		if size > budget {
			if len(current) > 0 {
				groups = append(groups, current)
				current = nil
				currentSize = 0
			}
			groups = append(groups, []Item{it})
			continue
		}
		if currentSize+size > budget && len(current) > 0 {
			groups = append(groups, current)
			current = nil
			currentSize = 0
		}
		current = append(current, it)
		currentSize += size
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}

	return groups
}

func writePart(ctx context.Context, outputPath, dataFormat string, items []Item, dataPartitions, partIndex int, cfg *Config, bar *progressbar.ProgressBar, codec compress.Codec) (Result, error) {
	offsets := make([]int64, len(items))
	offsets[0] = layout.HeaderSize
	for i := 1; i < len(items); i++ {
		offsets[i] = offsets[i-1] + items[i-1].Length
	}
	dataEnd := offsets[len(items)-1] + items[len(items)-1].Length

	footerTable := buildFooterTable(items, offsets)
	footerBytes, err := footer.Encode(footerTable, codec)
	if err != nil {
		return Result{}, err
	}

	totalSize := dataEnd + int64(len(footerBytes))

	f, err := os.OpenFile(outputPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return Result{}, fmt.Errorf("writer: create %s: %w", outputPath, err)
	}
	defer f.Close()

	if err := f.Truncate(totalSize); err != nil {
		return Result{}, fmt.Errorf("writer: truncate %s: %w", outputPath, err)
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return Result{}, fmt.Errorf("writer: mmap %s: %w", outputPath, err)
	}
	defer m.Unmap()

	header, err := layout.Encode(layout.Header{
		FooterOffset:   uint64(dataEnd),
		FooterLength:   uint64(len(footerBytes)),
		DataFormat:     dataFormat,
		DataPartitions: uint64(dataPartitions),
	})
	if err != nil {
		return Result{}, err
	}
	copy(m[:layout.HeaderSize], header)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(cfg.Workers)

	for i, it := range items {
		i, it := i, it
		dst := m[offsets[i] : offsets[i]+it.Length]
		group.Go(func() error {
			if err := copyItem(gctx, dst, it.SourcePath, cfg.WriteChunkBytes); err != nil {
				return err
			}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return Result{}, err
	}

	copy(m[dataEnd:totalSize], footerBytes)

	if err := m.Flush(); err != nil {
		return Result{}, fmt.Errorf("writer: flush %s: %w", outputPath, err)
	}

	return Result{
		Path:           outputPath,
		DataEnd:        dataEnd,
		FooterLength:   int64(len(footerBytes)),
		TotalSize:      totalSize,
		DataPartitions: dataPartitions,
		PartIndex:      partIndex,
	}, nil
}

// copyItem copies exactly len(dst) bytes from srcPath into dst, in
// chunkSize-sized reads. It tracks the actual number of bytes a Read call
// returns rather than assuming a full chunk was read, so a short read
// never rewrites the same destination range twice.
func copyItem(ctx context.Context, dst []byte, srcPath string, chunkSize uint64) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("writer: open %s: %w", srcPath, err)
	}
	defer f.Close()

	buf := pool.Get()
	defer pool.Put(buf)
	if chunkSize == 0 {
		chunkSize = pool.CopyBufDefaultSize
	}
	buf.Grow(int(chunkSize))

	var written int64
	remaining := int64(len(dst))

	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		want := int64(len(buf.B))
		if want > remaining {
			want = remaining
		}

		n, err := f.Read(buf.B[:want])
		if n > 0 {
			copy(dst[written:written+int64(n)], buf.B[:n])
			written += int64(n)
			remaining -= int64(n)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("writer: read %s: %w", srcPath, err)
		}
	}

	if remaining != 0 {
		return fmt.Errorf("writer: %s shorter than declared item length", srcPath)
	}

	return nil
}

func buildFooterTable(items []Item, offsets []int64) *table.Table {
	b := table.NewBuilder()
	for i, it := range items {
		b.SetString(table.ColID, it.Metadata.ID)
		b.SetInt64(table.ColOffset, offsets[i])
		b.SetInt64(table.ColLength, it.Length)

		for k, v := range it.Metadata.Strings {
			b.SetString(k, v)
		}
		for k, v := range it.Metadata.Int64s {
			b.SetInt64(k, v)
		}
		for k, v := range it.Metadata.Float64s {
			b.SetFloat64(k, v)
		}
		for k, v := range it.Metadata.Bools {
			b.SetBool(k, v)
		}

		b.EndRow()
	}

	return b.Build()
}
