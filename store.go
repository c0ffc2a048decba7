package bunchfile

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/bunchfile/codec"
	"github.com/hupe1980/bunchfile/internal/directory"
	"github.com/hupe1980/bunchfile/internal/fs"
	"github.com/hupe1980/bunchfile/internal/layout"
)

// byteOrder is the encoding of header and record values on disk.
var byteOrder = binary.LittleEndian

// Store is a single-file store of one header value of type H followed by a
// growable sequence of fixed-size records of type T, grouped into compressed
// blocks of at most BunchSize records.
//
// A Store is not safe for concurrent use and assumes exclusive ownership of
// its file for its whole lifetime.
type Store[H, T any] struct {
	path    string
	file    fs.File
	geo     layout.Geometry
	codec   codec.Codec
	dir     *directory.Directory
	logger  *Logger
	metrics MetricsCollector

	// Write buffer: decompressed records of the last block.
	wbuf    []byte
	wcount  int
	wloaded bool // wbuf/wcount mirror the last block
	dirty   bool // wbuf holds records not yet written to disk
	pending bool // writes not yet fsync'd

	cache  blockCache
	cursor int // sequential read position

	less    Less[T]
	indexed bool
	closed  bool
}

// Open opens the store at path, creating it with a zero-valued header if the
// file does not exist or is empty.
func Open[H, T any](path string, optFns ...Option) (*Store[H, T], error) {
	var header H
	return OpenWithHeader[H, T](path, header, optFns...)
}

// OpenWithHeader opens the store at path. header is written only when a new
// file is initialized; an existing header is left untouched.
func OpenWithHeader[H, T any](path string, header H, optFns ...Option) (*Store[H, T], error) {
	opts := applyOptions(optFns)
	logger := opts.logger.WithPath(path)
	ctx := context.Background()

	if opts.bunchSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBunchSize, opts.bunchSize)
	}

	c := opts.codec
	if c == nil {
		z, err := codec.NewZlib(opts.compressionLevel)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCompressionLevel, err)
		}
		c = z
	}

	var record T
	headerSize := binary.Size(header)
	recordSize := binary.Size(record)
	if headerSize <= 0 {
		return nil, fmt.Errorf("%w: header %T", ErrInvalidRecordType, header)
	}
	if recordSize <= 0 {
		return nil, fmt.Errorf("%w: record %T", ErrInvalidRecordType, record)
	}

	geo, err := layout.NewGeometry(headerSize, recordSize, opts.bunchSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBunchSize, err)
	}

	f, err := opts.fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, newIOError("open", path, err)
	}

	s := &Store[H, T]{
		path:    path,
		file:    f,
		geo:     geo,
		codec:   c,
		logger:  logger,
		metrics: opts.metricsCollector,
		cache:   newBlockCache(),
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, newIOError("stat", path, err)
	}

	if info.Size() == 0 {
		if err := s.initialize(header); err != nil {
			_ = f.Close()
			return nil, err
		}
		logger.LogOpen(ctx, c.Name(), true, s.dir.Len(), 0)
		return s, nil
	}

	dir, err := directory.Scan(f, info.Size(), geo)
	if err != nil {
		_ = f.Close()
		err = translateScanError(path, err)
		if errors.Is(err, ErrCorruptStore) {
			logger.LogCorrupt(ctx, err)
		}
		return nil, err
	}
	s.dir = dir

	logger.LogOpen(ctx, c.Name(), false, dir.Len(), dir.Count())
	return s, nil
}

// initialize writes the header record followed by one empty block header.
func (s *Store[H, T]) initialize(header H) error {
	if err := s.writeHeader(header); err != nil {
		return err
	}
	s.dir = directory.New(s.geo)
	if err := s.writeAt(layout.BlockHeader{}.Bytes(), s.geo.FirstBlockOffset()); err != nil {
		return err
	}
	return s.syncFile()
}

// Path returns the file path of the store.
func (s *Store[H, T]) Path() string { return s.path }

// BunchSize returns the maximum number of records per block.
func (s *Store[H, T]) BunchSize() int { return s.geo.BunchSize() }

// RecordSize returns the encoded size of one record.
func (s *Store[H, T]) RecordSize() int { return s.geo.RecordSize() }

// Count returns the number of records, including appended records that are
// not yet flushed.
func (s *Store[H, T]) Count() int {
	if s.wloaded {
		return s.dir.LastIndex()*s.geo.BunchSize() + s.wcount
	}
	return s.dir.Count()
}

// WriteHeader overwrites the header record.
func (s *Store[H, T]) WriteHeader(header H) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.writeHeader(header)
}

func (s *Store[H, T]) writeHeader(header H) error {
	buf, err := binary.Append(make([]byte, 0, s.geo.HeaderSize()), byteOrder, header)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecordType, err)
	}
	return s.writeAt(buf, 0)
}

// ReadHeader reads the header record from disk.
func (s *Store[H, T]) ReadHeader() (H, error) {
	var header H
	if err := s.checkOpen(); err != nil {
		return header, err
	}
	buf := make([]byte, s.geo.HeaderSize())
	if err := s.readAt(buf, 0); err != nil {
		return header, err
	}
	if _, err := binary.Decode(buf, byteOrder, &header); err != nil {
		return header, fmt.Errorf("%w: %w", ErrInvalidRecordType, err)
	}
	return header, nil
}

// Stats describes the block region of a store.
type Stats struct {
	Blocks      int
	Records     int
	RawBytes    int64 // decompressed size of all flushed blocks
	StoredBytes int64 // payload bytes on disk, excluding block headers
	FileSize    int64 // header record plus all flushed blocks
	Dirty       bool  // last block has unflushed records
}

// Stats returns counters for the store's block region. Records counts
// unflushed records; byte counters cover flushed blocks only.
func (s *Store[H, T]) Stats() Stats {
	st := Stats{
		Blocks:   s.dir.Len(),
		Records:  s.Count(),
		FileSize: s.dir.End(),
		Dirty:    s.dirty,
	}
	for i := 0; i < s.dir.Len(); i++ {
		h := s.dir.Entry(i).Header
		st.RawBytes += int64(s.geo.RawSize(int(h.RecordCount)))
		st.StoredBytes += int64(h.PayloadLen)
	}
	return st
}

// Sync flushes the last block if it holds unflushed records and commits the
// file to stable storage. Calling Sync with nothing pending is a no-op.
func (s *Store[H, T]) Sync() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		return err
	}
	return s.syncFile()
}

// Close syncs the store and releases the file. Close is idempotent.
func (s *Store[H, T]) Close() error {
	if s.closed {
		return nil
	}
	syncErr := s.Sync()
	closeErr := newIOError("close", s.path, s.file.Close())
	s.closed = true
	s.wbuf = nil
	s.cache.reset()

	err := errors.Join(syncErr, closeErr)
	s.logger.LogClose(context.Background(), s.Count(), err)
	return err
}

func (s *Store[H, T]) checkOpen() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Store[H, T]) syncFile() error {
	if !s.pending {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		return newIOError("sync", s.path, err)
	}
	s.pending = false
	return nil
}

func (s *Store[H, T]) writeAt(b []byte, off int64) error {
	if _, err := s.file.WriteAt(b, off); err != nil {
		return newIOError("write", s.path, err)
	}
	s.pending = true
	return nil
}

func (s *Store[H, T]) truncate(size int64) error {
	if err := s.file.Truncate(size); err != nil {
		return newIOError("truncate", s.path, err)
	}
	s.pending = true
	return nil
}

// readAt fills b from off. Reading past the end of the file is corruption:
// every read is bounded by the directory.
func (s *Store[H, T]) readAt(b []byte, off int64) error {
	n, err := s.file.ReadAt(b, off)
	if n == len(b) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return &CorruptStoreError{Path: s.path, Offset: off, Reason: fmt.Sprintf("short read: %d of %d bytes", n, len(b)), cause: io.ErrUnexpectedEOF}
	}
	return newIOError("read", s.path, err)
}
