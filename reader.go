package bunchfile

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/hupe1980/bunchfile/internal/layout"
)

// blockCache holds the decompressed bytes of at most one block.
type blockCache struct {
	block int // -1 when empty
	data  []byte
}

func newBlockCache() blockCache { return blockCache{block: -1} }

func (c *blockCache) get(block int) ([]byte, bool) {
	if c.block < 0 || c.block != block {
		return nil, false
	}
	return c.data, true
}

func (c *blockCache) set(block int, data []byte) {
	c.block = block
	c.data = data
}

func (c *blockCache) reset() {
	c.block = -1
	c.data = nil
}

// Read returns the record at pos. ok is false when pos is outside
// [0, Count()). A successful read moves the sequential cursor to pos+1.
//
// Read syncs the store first so that appended records are visible on disk.
func (s *Store[H, T]) Read(pos int) (v T, ok bool, err error) {
	if err := s.Sync(); err != nil {
		return v, false, err
	}
	if pos < 0 || pos >= s.Count() {
		return v, false, nil
	}
	v, err = s.recordAt(pos)
	if err != nil {
		return v, false, err
	}
	s.cursor = pos + 1
	return v, true, nil
}

// Next returns the record at the sequential cursor and advances it.
// ok is false once the cursor reaches Count().
func (s *Store[H, T]) Next() (T, bool, error) {
	return s.Read(s.cursor)
}

// Seek moves the sequential cursor to pos. Seeking past the end is allowed;
// the next call to Next then reports no record.
func (s *Store[H, T]) Seek(pos int) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if pos < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPosition, pos)
	}
	s.cursor = pos
	return nil
}

// Pos returns the sequential cursor.
func (s *Store[H, T]) Pos() int { return s.cursor }

// recordAt decodes the record at pos, which must be in range and flushed.
// It does not move the cursor.
func (s *Store[H, T]) recordAt(pos int) (T, error) {
	var v T
	block, slot := s.geo.Locate(pos)
	raw, err := s.loadBlock(block)
	if err != nil {
		return v, err
	}
	off := s.geo.SlotOffset(slot)
	end := off + s.geo.RecordSize()
	if end > len(raw) {
		return v, &CorruptStoreError{
			Path:   s.path,
			Offset: s.dir.Offset(block),
			Reason: fmt.Sprintf("slot %d outside block of %d bytes", slot, len(raw)),
		}
	}
	if _, err := binary.Decode(raw[off:end], byteOrder, &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrInvalidRecordType, err)
	}
	return v, nil
}

// loadBlock returns the decompressed bytes of block i, replacing the cache
// on a miss. The returned slice must be treated as read-only.
func (s *Store[H, T]) loadBlock(i int) ([]byte, error) {
	if data, ok := s.cache.get(i); ok {
		s.metrics.RecordBlockLoad(true, 0, nil)
		return data, nil
	}

	start := time.Now()
	data, err := s.readBlock(i)
	s.metrics.RecordBlockLoad(false, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	s.cache.set(i, data)
	return data, nil
}

// readBlock reads block i from disk and decompresses it to the size declared
// by its block header.
func (s *Store[H, T]) readBlock(i int) ([]byte, error) {
	e := s.dir.Entry(i)
	if e.Header.Empty() {
		return nil, nil
	}

	buf := make([]byte, layout.BlockHeaderSize+int(e.Header.PayloadLen))
	if err := s.readAt(buf, e.Offset); err != nil {
		return nil, err
	}
	h, err := layout.DecodeBlockHeader(buf)
	if err != nil || h != e.Header {
		return nil, &CorruptStoreError{
			Path:   s.path,
			Offset: e.Offset,
			Reason: fmt.Sprintf("block header on disk %+v does not match directory %+v", h, e.Header),
			cause:  err,
		}
	}

	payload := buf[layout.BlockHeaderSize:]
	n := s.geo.RawSize(int(h.RecordCount))
	if s.geo.StoredRaw(h) {
		return payload, nil
	}

	raw, err := s.codec.Decompress(payload, n)
	if err != nil {
		return nil, &DecompressionError{Block: i, Offset: e.Offset, Expected: n, cause: err}
	}
	if len(raw) != n {
		return nil, &DecompressionError{
			Block:    i,
			Offset:   e.Offset,
			Expected: n,
			cause:    fmt.Errorf("got %d bytes", len(raw)),
		}
	}
	return raw, nil
}
