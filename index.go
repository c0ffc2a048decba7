package bunchfile

import (
	"context"
	"slices"
	"time"

	"github.com/hupe1980/bunchfile/internal/layout"
)

// Less is a strict weak order over records. Two records are equal under the
// order when neither is less than the other.
type Less[T any] func(a, b T) bool

func (less Less[T]) compare(a, b T) int {
	switch {
	case less(a, b):
		return -1
	case less(b, a):
		return 1
	default:
		return 0
	}
}

// SetIndexFunc installs the order used by Find and Search. Installing an
// order clears the indexed state until Reindex runs; nil makes the store
// unindexable.
func (s *Store[H, T]) SetIndexFunc(less Less[T]) {
	s.less = less
	s.indexed = false
}

// IsIndexable reports whether an index function is set.
func (s *Store[H, T]) IsIndexable() bool { return s.less != nil }

// IsIndexed reports whether the records are currently sorted by the index
// function. Any Append clears it.
func (s *Store[H, T]) IsIndexed() bool { return s.less != nil && s.indexed }

// Reindex sorts all records by less, rewrites the block region and marks
// the store indexed. less also becomes the index function; nil reuses the
// current one.
//
// Reindex materializes every record in memory. The sort is stable, so
// records equal under less keep their relative order.
func (s *Store[H, T]) Reindex(less Less[T]) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if less == nil {
		less = s.less
	}
	if less == nil {
		return ErrNotIndexable
	}

	start := time.Now()
	records, err := s.reindex(less)
	duration := time.Since(start)
	s.metrics.RecordReindex(records, duration, err)
	s.logger.LogReindex(context.Background(), records, duration, err)
	return err
}

func (s *Store[H, T]) reindex(less Less[T]) (int, error) {
	records, err := s.ReadAll()
	if err != nil {
		return 0, err
	}
	slices.SortStableFunc(records, less.compare)

	if err := s.resetBlocks(); err != nil {
		return len(records), err
	}
	for _, r := range records {
		if err := s.append(r); err != nil {
			return len(records), err
		}
	}
	if err := s.Sync(); err != nil {
		return len(records), err
	}

	s.less = less
	s.indexed = true
	return len(records), nil
}

// resetBlocks truncates the block region back to a single empty block.
func (s *Store[H, T]) resetBlocks() error {
	if err := s.truncate(s.geo.FirstBlockOffset()); err != nil {
		return err
	}
	if err := s.writeAt(layout.BlockHeader{}.Bytes(), s.geo.FirstBlockOffset()); err != nil {
		return err
	}
	s.dir.Reset()
	s.cache.reset()
	s.wbuf = nil
	s.wcount = 0
	s.wloaded = true
	s.dirty = false
	s.cursor = 0
	return nil
}

// Search returns the position of a record equal to v under the index
// function, using binary search over the sorted records. ok is false when
// no record is equal to v.
//
// Search fails with ErrNotIndexable when no index function is set and with
// ErrNotIndexed when the records are not sorted by it.
func (s *Store[H, T]) Search(v T) (pos int, ok bool, err error) {
	if err := s.checkOpen(); err != nil {
		return -1, false, err
	}
	if s.less == nil {
		return -1, false, ErrNotIndexable
	}
	if !s.indexed {
		return -1, false, ErrNotIndexed
	}

	probes := 0
	defer func() {
		s.metrics.RecordSearch(ok, probes, err)
	}()

	if err := s.Sync(); err != nil {
		return -1, false, err
	}

	left, right := 0, s.Count()
	for left < right {
		mid := int(uint(left+right) >> 1)
		m, err := s.recordAt(mid)
		if err != nil {
			return -1, false, err
		}
		probes++

		switch {
		case s.less(v, m):
			right = mid
		case s.less(m, v):
			left = mid + 1
		default:
			return mid, true, nil
		}
	}
	return -1, false, nil
}

// Find returns the stored record equal to v under the index function.
// ok is false when no record matches.
//
// Find does not fall back to a linear scan: without an index function it
// fails with ErrNotIndexable. Use FindFirst with an equality predicate for
// unindexed lookups.
func (s *Store[H, T]) Find(v T) (T, bool, error) {
	var zero T
	pos, ok, err := s.Search(v)
	if err != nil || !ok {
		return zero, false, err
	}
	rec, err := s.recordAt(pos)
	if err != nil {
		return zero, false, err
	}
	return rec, true, nil
}
