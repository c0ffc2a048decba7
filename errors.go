package bunchfile

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bunchfile/internal/directory"
)

var (
	// ErrCorruptStore is matched by every *CorruptStoreError.
	ErrCorruptStore = errors.New("corrupt store")

	// ErrDecompression is matched by every *DecompressionError.
	ErrDecompression = errors.New("decompression failed")

	// ErrNotIndexable is returned by Find and Search when no index function is set.
	ErrNotIndexable = errors.New("store is not indexable: no index function set")

	// ErrNotIndexed is returned by Find and Search when an index function is set
	// but the records are not currently sorted by it.
	ErrNotIndexed = errors.New("store is not indexed: reindex required")

	// ErrInvalidRecordType is returned when the header or record type has no
	// fixed binary size.
	ErrInvalidRecordType = errors.New("type is not fixed-size")

	// ErrInvalidBunchSize is returned when the bunch size is not positive or a
	// full block would not fit the block header.
	ErrInvalidBunchSize = errors.New("invalid bunch size")

	// ErrInvalidCompressionLevel is returned for an unsupported compression level.
	ErrInvalidCompressionLevel = errors.New("invalid compression level")

	// ErrInvalidPosition is returned when seeking to a negative position.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrClosed is returned by every operation on a closed store.
	ErrClosed = errors.New("store is closed")
)

// CorruptStoreError indicates an inconsistent block region, found either while
// scanning the directory at open time or while reading a block back.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type CorruptStoreError struct {
	Path   string
	Offset int64
	Reason string
	cause  error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("corrupt store %s at offset %d: %s", e.Path, e.Offset, e.Reason)
}

func (e *CorruptStoreError) Is(target error) bool { return target == ErrCorruptStore }

func (e *CorruptStoreError) Unwrap() error { return e.cause }

// IOError wraps a failure of the underlying file.
//
// The original underlying error can be accessed via errors.Unwrap.
type IOError struct {
	Op    string
	Path  string
	cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io: %s %s: %v", e.Op, e.Path, e.cause)
}

func (e *IOError) Unwrap() error { return e.cause }

// DecompressionError indicates a block payload that does not expand to the
// length declared by its block header.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type DecompressionError struct {
	Block    int
	Offset   int64
	Expected int
	cause    error
}

func (e *DecompressionError) Error() string {
	return fmt.Sprintf("decompress block %d at offset %d (expected %d bytes): %v", e.Block, e.Offset, e.Expected, e.cause)
}

func (e *DecompressionError) Is(target error) bool { return target == ErrDecompression }

func (e *DecompressionError) Unwrap() error { return e.cause }

// BunchSizeMismatchError indicates that an existing file was written with a
// different bunch size than the one configured, or that a block header's
// record count is corrupt. It matches ErrCorruptStore since either way the
// block region cannot be read with the configured geometry.
type BunchSizeMismatchError struct {
	Path       string
	Block      int
	Found      int
	Configured int
	cause      error
}

func (e *BunchSizeMismatchError) Error() string {
	return fmt.Sprintf("bunch size mismatch in %s: block %d holds %d records, configured bunch size is %d", e.Path, e.Block, e.Found, e.Configured)
}

func (e *BunchSizeMismatchError) Is(target error) bool { return target == ErrCorruptStore }

func (e *BunchSizeMismatchError) Unwrap() error { return e.cause }

func newIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, cause: err}
}

// translateScanError maps directory scan failures to public errors.
func translateScanError(path string, err error) error {
	if err == nil {
		return nil
	}

	var ce *directory.CorruptError
	if errors.As(err, &ce) {
		return &CorruptStoreError{Path: path, Offset: ce.Offset, Reason: ce.Reason, cause: err}
	}
	var be *directory.BunchSizeError
	if errors.As(err, &be) {
		return &BunchSizeMismatchError{Path: path, Block: be.Block, Found: be.Found, Configured: be.Configured, cause: err}
	}

	return newIOError("scan", path, err)
}
