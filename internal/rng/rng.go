// Package rng provides the deterministic pseudo-random streams used by the
// simulation. Each stream is a single uint64 so it can be saved and restored.
package rng

// Source is a deterministic pseudo-random number generator.
// Uses a 64-bit LCG and draws from the high bits, which have the longest period.
type Source struct {
	State uint64
}

// New creates a new stream with the given seed.
func New(seed uint64) Source {
	if seed == 0 {
		seed = 1
	}
	return Source{State: seed}
}

// Next generates the next random uint32.
func (r *Source) Next() uint32 {
	r.State = r.State*6364136223846793005 + 1442695040888963407
	return uint32(r.State >> 32)
}

// Intn returns a random int in [0, n).
func (r *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Next() % uint32(n)) //#nosec G115 -- n is always positive
}

// Chance returns true with probability percent/100.
func (r *Source) Chance(percent int) bool {
	return r.Intn(100) < percent
}

// Side returns -1 or 1.
func (r *Source) Side() int {
	if r.Next()&1 == 0 {
		return -1
	}
	return 1
}

// Derive returns a new independent stream seeded from this one and a salt.
func (r Source) Derive(salt uint64) Source {
	s := New(r.State ^ (salt+1)*0x9E3779B97F4A7C15)
	s.Next()
	return s
}
