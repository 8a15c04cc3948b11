// Package sizeutil parses and formats human-readable byte sizes such as
// "512MB" or "4GiB", used for the writer's chunk_size_bytes and
// write_chunk_bytes options.
package sizeutil

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/tacofoundation/tortilla/errs"
)

// ParseSize parses a human-readable byte size (e.g. "512MB", "4GiB",
// "1024") into a byte count. Decimal units (kB, MB, GB, ...) use powers of
// 1000; binary units (KiB, MiB, GiB, ...) use powers of 1024.
func ParseSize(s string) (uint64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrInvalidSize, err)
	}

	return n, nil
}

// FormatSize renders n bytes using decimal units, matching the footer and
// progress-bar conventions used elsewhere in this module.
func FormatSize(n uint64) string {
	return humanize.Bytes(n)
}
