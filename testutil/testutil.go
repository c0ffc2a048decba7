package testutil

import (
	"math"
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Int32s returns n uniformly distributed keys.
func (r *RNG) Int32s(n int) []int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int32, n)
	for i := range out {
		out[i] = r.rand.Int31() - math.MaxInt32/2
	}
	return out
}

// RunKeys returns n keys in runs of runLen equal values. Blocks of such
// keys compress well.
func (r *RNG) RunKeys(n, runLen int) []int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if runLen < 1 {
		runLen = 1
	}
	out := make([]int32, n)
	var v int32
	for i := range out {
		if i%runLen == 0 {
			v = r.rand.Int31n(1 << 10)
		}
		out[i] = v
	}
	return out
}

// Perm returns a random permutation of [0, n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// ZipfPositions returns n positions in [0, max) with a Zipfian skew towards
// low positions, modelling a hot set of records.
func (r *RNG) ZipfPositions(n, max int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int, n)
	if max <= 1 {
		return out
	}
	z := rand.NewZipf(r.rand, 1.5, 1, uint64(max-1))
	for i := range out {
		out[i] = int(z.Uint64())
	}
	return out
}
