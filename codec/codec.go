// Package codec centralizes block payload compression.
//
// A codec is a two-operation contract: Compress turns raw bytes into a
// compressed payload, Decompress expands a payload back to a length the caller
// already knows. The store never asks a codec to guess the decompressed size;
// it is always recovered from the block header.
//
// Codec selection is not persisted in the file. Opening a file with a codec
// other than the one that wrote it fails with a decompression error on the
// first block read.
package codec

import "errors"

var (
	// ErrSizeMismatch is returned when a payload does not expand to exactly
	// the requested length.
	ErrSizeMismatch = errors.New("decompressed size mismatch")

	// ErrInvalidLevel is returned for an unsupported compression level.
	ErrInvalidLevel = errors.New("invalid compression level")
)

// Codec compresses and decompresses block payloads.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Compress returns the compressed form of src. src is not retained.
	Compress(src []byte) ([]byte, error)
	// Decompress expands src into exactly n bytes.
	Decompress(src []byte, n int) ([]byte, error)
	// Name returns a stable codec name for logs and metrics.
	Name() string
}
