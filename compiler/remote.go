package compiler

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/tacofoundation/tortilla/errs"
	"github.com/tacofoundation/tortilla/internal/pool"
	"github.com/tacofoundation/tortilla/layout"
	"github.com/tacofoundation/tortilla/source"
	"github.com/tacofoundation/tortilla/table"
)

var urlPattern = regexp.MustCompile(`(ftp|https?)://[^\s,]+`)

// sourceURL extracts the shared source URL from internal:subfile; every
// row of an online-mode table must carry the same URL.
func sourceURL(subset *table.Table) (string, error) {
	col := subset.Column("internal:subfile")
	if col == nil || col.Len() == 0 {
		return "", fmt.Errorf("%w: missing internal:subfile", errs.ErrInvalidSample)
	}

	var url string
	for i := 0; i < col.Len(); i++ {
		m := urlPattern.FindString(col.String(i))
		if m == "" {
			return "", fmt.Errorf("%w: row %d has no URL in internal:subfile", errs.ErrInvalidSample, i)
		}
		if url == "" {
			url = m
		} else if url != m {
			return "", fmt.Errorf("%w: rows reference different source URLs", errs.ErrInvalidSample)
		}
	}

	return url, nil
}

// rangeHeader renders ranges as a single coalesced multi-range header
// value, e.g. "bytes=0-199,300-349".
func rangeHeader(ranges []SrcDstRange) string {
	out := "bytes="
	for i, r := range ranges {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%d-%d", r.SrcOffset, r.SrcOffset+r.Length-1)
	}

	return out
}

// CompileRemote materializes subset (whose rows all carry
// internal:mode = "online") as a new Tortilla at destPath by issuing a
// single coalesced multi-range GET against the shared source URL and
// streaming the response body into destPath.
//
// Resume policy: if destPath already has the expected final size, this
// is a no-op. Otherwise, if it is at least HeaderSize bytes, the header
// is assumed written and streaming resumes after skipping the bytes
// already on disk; any network error during the stream leaves the
// partial file in place for a later call to resume from.
func CompileRemote(ctx context.Context, subset *table.Table, destPath, dataFormat string, writeChunkBytes int64) error {
	p, err := prepare(subset, dataFormat)
	if err != nil {
		return err
	}

	if info, err := os.Stat(destPath); err == nil {
		if info.Size() == p.totalSize {
			return nil
		}
	}

	url, err := sourceURL(subset)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(destPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("compiler: open %s: %w", destPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	var skip int64
	if info.Size() < layout.HeaderSize {
		header, err := p.header()
		if err != nil {
			return err
		}
		if _, err := f.WriteAt(header, 0); err != nil {
			return fmt.Errorf("compiler: write header %s: %w", destPath, err)
		}
		if _, err := f.Seek(layout.HeaderSize, io.SeekStart); err != nil {
			return err
		}
	} else {
		skip = info.Size() - layout.HeaderSize
		if _, err := f.Seek(info.Size(), io.SeekStart); err != nil {
			return err
		}
	}

	src := source.NewHTTPRangeSource(url, nil)
	defer src.Close()

	body, err := src.Get(ctx, rangeHeader(p.ranges))
	if err != nil {
		return err
	}
	defer body.Close()

	if skip > 0 {
		if _, err := io.CopyN(io.Discard, body, skip); err != nil {
			return fmt.Errorf("%w: resume skip failed: %v", errs.ErrHTTPError, err)
		}
	}

	if writeChunkBytes <= 0 {
		writeChunkBytes = pool.CopyBufDefaultSize
	}
	buf := pool.Get()
	defer pool.Put(buf)
	buf.Grow(int(writeChunkBytes))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := body.Read(buf.B)
		if n > 0 {
			if _, werr := f.Write(buf.B[:n]); werr != nil {
				return fmt.Errorf("compiler: write %s: %w", destPath, werr)
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("%w: %v", errs.ErrHTTPError, err)
		}
	}

	if _, err := f.Write(p.footerBytes); err != nil {
		return fmt.Errorf("compiler: write footer %s: %w", destPath, err)
	}

	return nil
}
