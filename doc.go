// Package bunchfile provides a single-file binary store for fixed-size
// records with block compression and optional sorted indexing.
//
// A store file holds one header value of type H followed by records of type
// T. Both must have a fixed binary size as defined by encoding/binary
// (structs of fixed-width integers, floats, bools and arrays). Consecutive
// records are grouped into blocks ("bunches") of at most BunchSize records;
// each block is compressed as a unit, and one decompressed block is cached
// for reads.
//
// # Quick Start
//
//	type Header struct{ Version int32 }
//	type Item struct{ A int32 }
//
//	s, err := bunchfile.Open[Header, Item]("items.bin",
//	    bunchfile.WithBunchSize(256),
//	    bunchfile.WithCompressionLevel(9),
//	)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	_ = s.WriteHeader(Header{Version: 2})
//	for i := int32(0); i < 5; i++ {
//	    _ = s.Append(Item{A: i * i})
//	}
//
//	item, ok, err := s.Read(2) // Item{A: 4}
//
// # Indexing
//
// Without an index function, lookups are linear scans (Filter, FindFirst).
// Reindex sorts all records by a caller-supplied order and rewrites the
// file, after which Find and Search use binary search:
//
//	byA := func(a, b Item) bool { return a.A < b.A }
//	if err := s.Reindex(byA); err != nil {
//	    return err
//	}
//	item, ok, err := s.Find(Item{A: 9})
//
// Any Append clears the indexed state; Find then fails with ErrNotIndexed
// until the next Reindex.
//
// # Durability
//
// Appended records are buffered until their block is full. Sync (called by
// Read and Close) writes the partially filled last block. Records appended
// after the last Sync are lost if the process crashes.
package bunchfile
