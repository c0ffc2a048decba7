package bunchfile

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/hupe1980/bunchfile/internal/layout"
)

// Append adds v at position Count().
//
// Records are buffered in memory until the last block is full or Sync is
// called, so a block is compressed once per fill rather than once per
// append. Append clears the indexed state.
func (s *Store[H, T]) Append(v T) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	start := time.Now()
	err := s.append(v)
	s.metrics.RecordAppend(time.Since(start), err)
	return err
}

func (s *Store[H, T]) append(v T) error {
	if err := s.loadWriteBuffer(); err != nil {
		return err
	}
	if s.wcount >= s.geo.BunchSize() {
		if err := s.startBlock(); err != nil {
			return err
		}
	}

	buf, err := binary.Append(s.wbuf, byteOrder, v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecordType, err)
	}
	s.wbuf = buf
	s.wcount++
	s.dirty = true
	s.indexed = false
	return nil
}

// loadWriteBuffer makes the write buffer mirror the last block, reading the
// block back when it already holds records on disk. A full last block is not
// read; a fresh block is started after it instead.
func (s *Store[H, T]) loadWriteBuffer() error {
	if s.wloaded {
		return nil
	}
	last := s.dir.Last()
	if int(last.Header.RecordCount) >= s.geo.BunchSize() {
		return s.startBlock()
	}
	s.wbuf = s.wbuf[:0]
	s.wcount = 0
	if !last.Header.Empty() {
		raw, err := s.loadBlock(s.dir.LastIndex())
		if err != nil {
			return err
		}
		s.wbuf = append(make([]byte, 0, s.geo.RawSize(s.geo.BunchSize())), raw...)
		s.wcount = int(last.Header.RecordCount)
	}
	s.wloaded = true
	return nil
}

// startBlock flushes the full last block and appends a fresh empty block
// after it.
func (s *Store[H, T]) startBlock() error {
	if err := s.flush(); err != nil {
		return err
	}
	off := s.dir.End()
	if err := s.writeAt(layout.BlockHeader{}.Bytes(), off); err != nil {
		return err
	}
	if err := s.dir.Append(off); err != nil {
		return err
	}
	s.wbuf = make([]byte, 0, s.geo.RawSize(s.geo.BunchSize()))
	s.wcount = 0
	s.wloaded = true
	return nil
}

// flush compresses the write buffer and writes it as the last block. The
// payload is stored raw when compression does not make it smaller. After a
// flush the decompressed bytes move to the read cache and the write buffer
// is released.
func (s *Store[H, T]) flush() error {
	if !s.dirty {
		return nil
	}
	start := time.Now()
	block := s.dir.LastIndex()
	off := s.dir.Last().Offset

	payload, err := s.codec.Compress(s.wbuf)
	if err != nil {
		return fmt.Errorf("compress block %d: %w", block, err)
	}
	if len(payload) >= len(s.wbuf) {
		payload = s.wbuf
	}

	h, err := layout.NewBlockHeader(len(payload), s.wcount)
	if err != nil {
		return fmt.Errorf("block %d: %w", block, err)
	}
	buf := make([]byte, layout.BlockHeaderSize, layout.BlockHeaderSize+len(payload))
	h.Put(buf)
	buf = append(buf, payload...)

	if err := s.writeAt(buf, off); err != nil {
		return err
	}
	end := off + int64(len(buf))
	if err := s.truncate(end); err != nil {
		return err
	}
	s.dir.SetLastHeader(h)

	s.cache.set(block, s.wbuf)
	s.wbuf = nil
	s.wcount = 0
	s.wloaded = false
	s.dirty = false

	s.metrics.RecordFlush(int(h.RecordCount), s.geo.RawSize(int(h.RecordCount)), len(payload), time.Since(start))
	s.logger.LogFlush(context.Background(), block, int(h.RecordCount), s.geo.RawSize(int(h.RecordCount)), len(payload))
	return nil
}
