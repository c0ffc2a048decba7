// Package layout defines the on-disk geometry of a bunch file: the header
// record, the block header and the offset arithmetic that maps a logical
// record position to a block and a slot inside it. It performs no I/O.
//
// File layout:
//
//	[header record: HeaderSize bytes]
//	[block 0][block 1]...
//
// Block layout:
//
//	[PayloadLen uint32][RecordCount uint32][PayloadLen bytes]
//
// All integers are little-endian.
package layout

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/bunchfile/internal/conv"
)

// BlockHeaderSize is the encoded size of a BlockHeader.
const BlockHeaderSize = 8

var (
	// ErrShortBlockHeader is returned when fewer than BlockHeaderSize bytes are decoded.
	ErrShortBlockHeader = errors.New("short block header")

	// ErrInvalidGeometry is returned for non-positive sizes.
	ErrInvalidGeometry = errors.New("invalid geometry")
)

// BlockHeader precedes every block payload.
type BlockHeader struct {
	PayloadLen  uint32 // stored payload bytes following the header
	RecordCount uint32 // records in the block
}

// Put encodes h into b, which must hold at least BlockHeaderSize bytes.
func (h BlockHeader) Put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], h.PayloadLen)
	binary.LittleEndian.PutUint32(b[4:8], h.RecordCount)
}

// Bytes returns the encoded header.
func (h BlockHeader) Bytes() []byte {
	b := make([]byte, BlockHeaderSize)
	h.Put(b)
	return b
}

// Empty reports whether the block holds no records.
func (h BlockHeader) Empty() bool { return h.RecordCount == 0 }

// DecodeBlockHeader decodes a block header from b.
func DecodeBlockHeader(b []byte) (BlockHeader, error) {
	if len(b) < BlockHeaderSize {
		return BlockHeader{}, fmt.Errorf("%w: %d bytes", ErrShortBlockHeader, len(b))
	}
	return BlockHeader{
		PayloadLen:  binary.LittleEndian.Uint32(b[0:4]),
		RecordCount: binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}

// Geometry holds the fixed sizes of one store.
type Geometry struct {
	headerSize int
	recordSize int
	bunchSize  int
}

// NewGeometry validates and returns a Geometry. A full block must fit the
// 32-bit fields of its block header.
func NewGeometry(headerSize, recordSize, bunchSize int) (Geometry, error) {
	if headerSize <= 0 || recordSize <= 0 || bunchSize <= 0 {
		return Geometry{}, fmt.Errorf("%w: header=%d record=%d bunch=%d", ErrInvalidGeometry, headerSize, recordSize, bunchSize)
	}
	if uint64(bunchSize)*uint64(recordSize) > math.MaxUint32 {
		return Geometry{}, fmt.Errorf("%w: block of %d records of %d bytes exceeds 4 GiB", ErrInvalidGeometry, bunchSize, recordSize)
	}
	return Geometry{headerSize: headerSize, recordSize: recordSize, bunchSize: bunchSize}, nil
}

// HeaderSize returns the byte width of the header record.
func (g Geometry) HeaderSize() int { return g.headerSize }

// BlockHeaderSize returns the byte width of a block header.
func (g Geometry) BlockHeaderSize() int { return BlockHeaderSize }

// RecordSize returns the byte width of one record.
func (g Geometry) RecordSize() int { return g.recordSize }

// BunchSize returns the maximum number of records per block.
func (g Geometry) BunchSize() int { return g.bunchSize }

// FirstBlockOffset is the file offset of block 0.
func (g Geometry) FirstBlockOffset() int64 { return int64(g.headerSize) }

// MinFileSize is the size of a freshly initialized file: the header record
// followed by one empty block header.
func (g Geometry) MinFileSize() int64 { return int64(g.headerSize) + BlockHeaderSize }

// Locate maps a logical record position to its block index and slot.
func (g Geometry) Locate(pos int) (block, slot int) {
	return pos / g.bunchSize, pos % g.bunchSize
}

// SlotOffset returns the byte offset of slot inside a decompressed block.
func (g Geometry) SlotOffset(slot int) int { return slot * g.recordSize }

// RawSize returns the decompressed size of a block holding count records.
func (g Geometry) RawSize(count int) int { return count * g.recordSize }

// NewBlockHeader builds the header of a block holding count records in a
// payload of payloadLen bytes.
func NewBlockHeader(payloadLen, count int) (BlockHeader, error) {
	n, err := conv.IntToUint32(payloadLen)
	if err != nil {
		return BlockHeader{}, fmt.Errorf("payload length: %w", err)
	}
	c, err := conv.IntToUint32(count)
	if err != nil {
		return BlockHeader{}, fmt.Errorf("record count: %w", err)
	}
	return BlockHeader{PayloadLen: n, RecordCount: c}, nil
}

// BlockEnd returns the offset just past the block starting at off.
func (g Geometry) BlockEnd(off int64, h BlockHeader) int64 {
	return off + BlockHeaderSize + int64(h.PayloadLen)
}

// StoredRaw reports whether the payload of h is stored uncompressed. A payload
// is written raw only when compression does not make it smaller, so a payload
// length equal to the raw size identifies it.
func (g Geometry) StoredRaw(h BlockHeader) bool {
	return h.RecordCount > 0 && int(h.PayloadLen) == g.RawSize(int(h.RecordCount))
}
