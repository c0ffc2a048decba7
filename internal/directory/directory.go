// Package directory maintains the in-memory list of block offsets of a bunch
// file.
//
// Invariants:
//   - entry 0 starts at the first byte after the header record
//   - offsets are strictly increasing and gap-free: block N ends exactly where
//     block N+1 starts, and the last block ends at the end of the block region
//   - every block except the last holds exactly BunchSize records
package directory

import (
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/bunchfile/internal/layout"
)

var (
	// ErrCorrupt is matched by every *CorruptError.
	ErrCorrupt = errors.New("corrupt block region")

	// ErrBunchSize is matched by every *BunchSizeError.
	ErrBunchSize = errors.New("block geometry does not match bunch size")

	// ErrOutOfOrder is returned when an appended block does not start at the
	// end of the current last block.
	ErrOutOfOrder = errors.New("block offset out of order")
)

// CorruptError describes an inconsistent block found while scanning.
type CorruptError struct {
	Offset int64
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt block at offset %d: %s", e.Offset, e.Reason)
}

func (e *CorruptError) Is(target error) bool { return target == ErrCorrupt }

// BunchSizeError reports a block whose record count contradicts the
// configured bunch size.
type BunchSizeError struct {
	Block      int
	Found      int
	Configured int
}

func (e *BunchSizeError) Error() string {
	return fmt.Sprintf("block %d holds %d records, bunch size is %d", e.Block, e.Found, e.Configured)
}

func (e *BunchSizeError) Is(target error) bool { return target == ErrBunchSize }

// Entry is one block of the directory.
type Entry struct {
	Offset int64
	Header layout.BlockHeader
}

// Directory is the ordered sequence of blocks in a file.
type Directory struct {
	geo     layout.Geometry
	entries []Entry
}

// New returns a directory holding a single empty block right after the
// header record.
func New(geo layout.Geometry) *Directory {
	d := &Directory{geo: geo}
	d.Reset()
	return d
}

// Scan builds a directory by walking the block headers of r, starting right
// after the header record and ending at size.
func Scan(r io.ReaderAt, size int64, geo layout.Geometry) (*Directory, error) {
	if size < geo.MinFileSize() {
		return nil, &CorruptError{Offset: size, Reason: fmt.Sprintf("file size %d is smaller than header and one block header (%d)", size, geo.MinFileSize())}
	}

	d := &Directory{geo: geo}
	buf := make([]byte, layout.BlockHeaderSize)
	bunch := geo.BunchSize()

	for off := geo.FirstBlockOffset(); off < size; {
		if size-off < layout.BlockHeaderSize {
			return nil, &CorruptError{Offset: off, Reason: "truncated block header"}
		}
		if _, err := r.ReadAt(buf, off); err != nil {
			return nil, fmt.Errorf("read block header at %d: %w", off, err)
		}
		h, err := layout.DecodeBlockHeader(buf)
		if err != nil {
			return nil, &CorruptError{Offset: off, Reason: err.Error()}
		}

		if (h.PayloadLen == 0) != (h.RecordCount == 0) {
			return nil, &CorruptError{Offset: off, Reason: fmt.Sprintf("payload length %d with %d records", h.PayloadLen, h.RecordCount)}
		}
		end := geo.BlockEnd(off, h)
		if end > size {
			return nil, &CorruptError{Offset: off, Reason: fmt.Sprintf("payload extends to %d, past end of file %d", end, size)}
		}
		if int(h.RecordCount) > bunch {
			return nil, &BunchSizeError{Block: len(d.entries), Found: int(h.RecordCount), Configured: bunch}
		}

		d.entries = append(d.entries, Entry{Offset: off, Header: h})
		off = end
	}

	for i, e := range d.entries[:len(d.entries)-1] {
		if e.Header.Empty() {
			return nil, &CorruptError{Offset: e.Offset, Reason: "empty block before the last block"}
		}
		if int(e.Header.RecordCount) != bunch {
			return nil, &BunchSizeError{Block: i, Found: int(e.Header.RecordCount), Configured: bunch}
		}
	}

	return d, nil
}

// Len returns the number of blocks.
func (d *Directory) Len() int { return len(d.entries) }

// Entry returns block i.
func (d *Directory) Entry(i int) Entry { return d.entries[i] }

// Offset returns the file offset of block i.
func (d *Directory) Offset(i int) int64 { return d.entries[i].Offset }

// LastIndex returns the index of the last block.
func (d *Directory) LastIndex() int { return len(d.entries) - 1 }

// Last returns the last block.
func (d *Directory) Last() Entry { return d.entries[len(d.entries)-1] }

// End returns the offset just past the last block.
func (d *Directory) End() int64 {
	last := d.Last()
	return d.geo.BlockEnd(last.Offset, last.Header)
}

// Count returns the total number of records across all blocks.
func (d *Directory) Count() int {
	return d.LastIndex()*d.geo.BunchSize() + int(d.Last().Header.RecordCount)
}

// SetLastHeader records the header of the last block after it was written.
func (d *Directory) SetLastHeader(h layout.BlockHeader) {
	d.entries[len(d.entries)-1].Header = h
}

// Append adds a new empty block at off, which must be the end of the last
// block.
func (d *Directory) Append(off int64) error {
	if end := d.End(); off != end {
		return fmt.Errorf("%w: got %d, expected %d", ErrOutOfOrder, off, end)
	}
	d.entries = append(d.entries, Entry{Offset: off})
	return nil
}

// Reset drops all blocks and leaves a single empty block after the header.
func (d *Directory) Reset() {
	d.entries = append(d.entries[:0], Entry{Offset: d.geo.FirstBlockOffset()})
}

// Offsets returns a copy of all block offsets.
func (d *Directory) Offsets() []int64 {
	out := make([]int64, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.Offset
	}
	return out
}
