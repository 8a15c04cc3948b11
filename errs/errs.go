// Package errs collects the sentinel errors shared by every Tortilla
// package. Callers should compare with errors.Is; call sites wrap these
// with additional context via fmt.Errorf("...: %w", ...).
package errs

import "errors"

var (
	// ErrBadMagic is returned when a file's first two bytes are not "#y".
	ErrBadMagic = errors.New("tortilla: bad magic bytes")

	// ErrTruncated is returned when a file is shorter than its header or
	// footer_offset+footer_length claim.
	ErrTruncated = errors.New("tortilla: truncated file")

	// ErrFooterDecode is returned when the footer buffer cannot be
	// decompressed or parsed as a columnar table.
	ErrFooterDecode = errors.New("tortilla: footer decode failed")

	// ErrDuplicateID is returned when two items share a tortilla:id.
	ErrDuplicateID = errors.New("tortilla: duplicate id")

	// ErrUnknownMode is returned when internal:mode is neither "local" nor
	// "online".
	ErrUnknownMode = errors.New("tortilla: unknown mode")

	// ErrMissingPart is returned when an expected partition file is absent.
	ErrMissingPart = errors.New("tortilla: missing partition file")

	// ErrHTTPError is returned for a non-success HTTP status, a server that
	// does not honor Range requests, or a transport failure.
	ErrHTTPError = errors.New("tortilla: http error")

	// ErrInvalidSize is returned when a human-readable size string cannot
	// be parsed.
	ErrInvalidSize = errors.New("tortilla: invalid size")

	// ErrInvalidPath is returned when a writer source file does not exist.
	ErrInvalidPath = errors.New("tortilla: invalid source path")

	// ErrInvalidSample is returned when item metadata fails validation at
	// construction time (bad time range, empty id, missing path).
	ErrInvalidSample = errors.New("tortilla: invalid sample")

	// ErrEmptyInput is returned when an operation is given zero items to
	// work with (nothing to write, nothing to compile).
	ErrEmptyInput = errors.New("tortilla: empty input")

	// ErrNotNested is returned when a nested-read is attempted on a row
	// whose internal:file_format is not "TORTILLA".
	ErrNotNested = errors.New("tortilla: row is not a nested tortilla")
)
