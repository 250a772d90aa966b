// Package random provides the injectable randomness capability used by the
// detectors. Expressing randomness as a small interface keeps runs
// reproducible under a fixed seed and lets tests substitute a deterministic
// source.
package random

import "math/rand"

// Source produces the raw random draws detectors consume. Implementations
// need not be safe for concurrent use; callers that parallelize must give
// each unit of work its own Source.
type Source interface {
	// Uint64 returns a uniformly random 64-bit value.
	Uint64() uint64

	// Uint64InRange returns a uniformly random value in [lo, hi],
	// bounds inclusive.
	Uint64InRange(lo, hi uint64) uint64
}

type source struct {
	rng *rand.Rand
}

// New returns a Source seeded deterministically.
func New(seed int64) Source {
	return &source{rng: rand.New(rand.NewSource(seed))}
}

func (s *source) Uint64() uint64 {
	return s.rng.Uint64()
}

func (s *source) Uint64InRange(lo, hi uint64) uint64 {
	if hi <= lo {
		return lo
	}
	return lo + uint64(s.rng.Int63n(int64(hi-lo+1)))
}

// Float64 derives a uniform float in [0, 1) from a Source.
func Float64(s Source) float64 {
	return float64(s.Uint64()>>11) / (1 << 53)
}

// IntN returns a uniform int in [0, n). n must be positive.
func IntN(s Source, n int) int {
	return int(s.Uint64InRange(0, uint64(n-1)))
}

// Perm returns a random permutation of [0, n) using Fisher-Yates.
func Perm(s Source, n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := IntN(s, i+1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}
