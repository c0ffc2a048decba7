package bunchfile

import "iter"

// Predicate selects records in Filter and FindFirst.
type Predicate[T any] func(T) bool

// All returns an iterator over all records in position order. Iteration
// stops at the first error, which is yielded with a zero record.
//
// All does not move the sequential cursor.
func (s *Store[H, T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		if err := s.Sync(); err != nil {
			yield(zero, err)
			return
		}
		for pos := 0; pos < s.Count(); pos++ {
			v, err := s.recordAt(pos)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Filter returns all records matching pred, in position order. A nil
// predicate matches every record.
func (s *Store[H, T]) Filter(pred Predicate[T]) ([]T, error) {
	out := make([]T, 0)
	for v, err := range s.All() {
		if err != nil {
			return nil, err
		}
		if pred == nil || pred(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// FindFirst returns the first record matching pred. ok is false when no
// record matches.
func (s *Store[H, T]) FindFirst(pred Predicate[T]) (v T, ok bool, err error) {
	for rec, err := range s.All() {
		if err != nil {
			return v, false, err
		}
		if pred == nil || pred(rec) {
			return rec, true, nil
		}
	}
	return v, false, nil
}

// ReadAll returns every record in position order.
func (s *Store[H, T]) ReadAll() ([]T, error) {
	return s.Filter(nil)
}
