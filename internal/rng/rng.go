// Package rng provides the seeded random stream a conversion draws from.
//
// Every draw goes through Float64, so the number of values consumed per
// customer is fixed by the caller and two streams with the same seed yield
// the same sequence regardless of what else runs in the process.
package rng

import (
	"math"
	"math/rand"
)

// Source is the only capability the synthesizers need.
type Source interface {
	Float64() float64
}

// Stream is a deterministic Source that counts its draws.
type Stream struct {
	r     *rand.Rand
	seed  int64
	draws int
}

func New(seed int64) *Stream {
	return &Stream{r: rand.New(rand.NewSource(seed)), seed: seed}
}

// Float64 returns the next value in [0,1).
func (s *Stream) Float64() float64 {
	s.draws++
	return s.r.Float64()
}

func (s *Stream) Seed() int64 { return s.seed }

// Draws reports how many values have been consumed.
func (s *Stream) Draws() int { return s.draws }

// Uniform maps one draw onto [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// IntInclusive maps one draw onto the integers lo..hi.
func IntInclusive(src Source, lo, hi int) int {
	if hi <= lo {
		src.Float64()
		return lo
	}
	n := hi - lo + 1
	k := int(math.Floor(src.Float64() * float64(n)))
	if k >= n {
		k = n - 1
	}
	return lo + k
}
