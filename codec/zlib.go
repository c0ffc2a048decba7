package codec

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

const (
	// MinZlibLevel is the lowest accepted zlib level (Huffman only).
	MinZlibLevel = zlib.HuffmanOnly
	// MaxZlibLevel is the highest accepted zlib level.
	MaxZlibLevel = zlib.BestCompression
	// DefaultZlibLevel selects zlib's default speed/ratio trade-off.
	DefaultZlibLevel = zlib.DefaultCompression
)

// Zlib is a codec backed by github.com/klauspost/compress/zlib.
type Zlib struct {
	level   int
	writers sync.Pool
}

// NewZlib creates a zlib codec with the given level (-2..9).
func NewZlib(level int) (*Zlib, error) {
	if level < MinZlibLevel || level > MaxZlibLevel {
		return nil, fmt.Errorf("%w: %d (expected %d..%d)", ErrInvalidLevel, level, MinZlibLevel, MaxZlibLevel)
	}
	return &Zlib{level: level}, nil
}

// Level returns the configured compression level.
func (z *Zlib) Level() int { return z.level }

// Name returns the unique name of the codec ("zlib").
func (z *Zlib) Name() string { return "zlib" }

// Compress compresses src with zlib.
func (z *Zlib) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(src)/2 + 16)

	w, err := z.getWriter(&buf)
	if err != nil {
		return nil, err
	}
	defer z.writers.Put(w)

	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress expands src into exactly n bytes. A stream that is shorter or
// longer than n fails with ErrSizeMismatch.
func (z *Zlib) Decompress(src []byte, n int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	defer r.Close()

	dst := make([]byte, n)
	got, err := io.ReadFull(r, dst)
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrSizeMismatch, n, got)
		}
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}

	// The stream must end exactly at n.
	var extra [1]byte
	m, err := r.Read(extra[:])
	if m > 0 {
		return nil, fmt.Errorf("%w: stream longer than %d bytes", ErrSizeMismatch, n)
	}
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	return dst, nil
}

func (z *Zlib) getWriter(dst io.Writer) (*zlib.Writer, error) {
	if v := z.writers.Get(); v != nil {
		w := v.(*zlib.Writer)
		w.Reset(dst)
		return w, nil
	}
	w, err := zlib.NewWriterLevel(dst, z.level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}
	return w, nil
}
