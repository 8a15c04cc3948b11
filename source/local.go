package source

import (
	"context"
	"fmt"
	"os"
)

// LocalFile is a Source backed by an open local file.
type LocalFile struct {
	f *os.File
}

var _ Source = (*LocalFile)(nil)

// OpenLocalFile opens path read-only as a LocalFile Source.
func OpenLocalFile(path string) (*LocalFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}

	return &LocalFile{f: f}, nil
}

// ReadRange implements Source.
func (l *LocalFile) ReadRange(_ context.Context, offset, length int64) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := l.f.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("source: read range [%d,%d): %w", offset, offset+length, err)
	}

	return buf, nil
}

// Len implements Source.
func (l *LocalFile) Len(_ context.Context) (int64, error) {
	info, err := l.f.Stat()
	if err != nil {
		return 0, err
	}

	return info.Size(), nil
}

// SupportsMultiRange implements Source. A local file trivially supports
// any number of disjoint ranges: each is just another ReadAt call.
func (l *LocalFile) SupportsMultiRange() bool { return true }

// Close implements Source.
func (l *LocalFile) Close() error { return l.f.Close() }
