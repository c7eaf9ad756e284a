package rng_test

import (
	"testing"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/rng"
)

type fixed float64

func (f fixed) Float64() float64 { return float64(f) }

func TestStreamDeterministic(t *testing.T) {
	a, b := rng.New(42), rng.New(42)
	for i := 0; i < 100; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
	if a.Draws() != 100 || a.Seed() != 42 {
		t.Fatalf("unexpected counters: draws=%d seed=%d", a.Draws(), a.Seed())
	}
	if rng.New(43).Float64() == rng.New(42).Float64() {
		t.Fatalf("different seeds produced the same first draw")
	}
}

func TestUniform(t *testing.T) {
	if got := rng.Uniform(fixed(0), 0.2, 0.5); got != 0.2 {
		t.Fatalf("uniform(0) = %v", got)
	}
	if got := rng.Uniform(fixed(0.5), 0, 1); got != 0.5 {
		t.Fatalf("uniform(0.5) = %v", got)
	}
}

func TestIntInclusive(t *testing.T) {
	cases := []struct {
		u    float64
		want int
	}{{0, 1}, {0.33, 1}, {0.34, 2}, {0.67, 3}, {0.999999, 3}}
	for _, tc := range cases {
		if got := rng.IntInclusive(fixed(tc.u), 1, 3); got != tc.want {
			t.Fatalf("IntInclusive(%v) = %d, want %d", tc.u, got, tc.want)
		}
	}
	s := rng.New(1)
	if got := rng.IntInclusive(s, 2, 2); got != 2 || s.Draws() != 1 {
		t.Fatalf("degenerate range: got %d after %d draws", got, s.Draws())
	}
}
