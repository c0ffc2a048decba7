// Package testutil provides testing utilities for bunchfile.
//
// This package is intended for use in tests and benchmarks only.
// It provides seeded generators for record keys with different
// compressibility and access patterns.
//
// # Key Generation
//
//	rng := testutil.NewRNG(seed)
//	keys := rng.Int32s(1000)           // uniform, hard to compress
//	runs := rng.RunKeys(1000, 16)      // long runs, compresses well
//	order := rng.Perm(1000)            // random access order
//	hot := rng.ZipfPositions(1000, 64) // skewed access order
package testutil
