// Package rng provides seeded, lane-isolated random streams.
// Every random draw in the simulation flows through a Stream derived from
// (global seed, round, lane) so two clients with the same seed and the same
// decisions observe identical outcomes.
package rng

import (
	"hash/fnv"
	"math/rand/v2"
)

// Lane names a logical consumer of randomness within a round.
type Lane string

const (
	LaneDeals      Lane = "deals"
	LaneEvents     Lane = "events"
	LaneSimulation Lane = "simulation"
	LaneCosmetic   Lane = "cosmetic"
	LaneMarket     Lane = "market"
)

const golden = 0x9E3779B97F4A7C15

// mix is the splitmix64 finaliser.
func mix(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// DeriveRoundSeed combines the global game seed with a round number.
func DeriveRoundSeed(globalSeed int64, round int) uint64 {
	return mix(uint64(globalSeed) ^ mix(uint64(int64(round))*golden+golden))
}

// DeriveStreamSeed derives the seed of a named stream from a parent seed.
func DeriveStreamSeed(parent uint64, label string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(label))
	return mix(parent ^ mix(h.Sum64()+golden))
}

// Stream is a deterministic pseudo-random sequence.
type Stream struct {
	seed uint64
	r    *rand.Rand
}

// NewStream creates a stream from an already-derived seed.
func NewStream(seed uint64) *Stream {
	return &Stream{
		seed: seed,
		r:    rand.New(rand.NewPCG(seed, mix(seed^golden))),
	}
}

// Seed returns the seed this stream was created from.
func (s *Stream) Seed() uint64 {
	return s.seed
}

// Next returns a float in [0, 1).
func (s *Stream) Next() float64 {
	return s.r.Float64()
}

// NextInt returns an integer in [min, max], inclusive.
func (s *Stream) NextInt(min, max int) int {
	if max < min {
		min, max = max, min
	}
	return min + s.r.IntN(max-min+1)
}

// Range returns a float in [lo, hi).
func (s *Stream) Range(lo, hi float64) float64 {
	return lo + (hi-lo)*s.Next()
}

// Chance reports whether a draw falls under probability p.
func (s *Stream) Chance(p float64) bool {
	return s.Next() < p
}

// Fork returns a sub-stream keyed by label. Forking depends only on the
// stream's seed, not on how many values have been drawn from it.
func (s *Stream) Fork(label string) *Stream {
	return NewStream(DeriveStreamSeed(s.seed, label))
}

// Pick returns a random element of list. It panics on an empty list.
func Pick[T any](s *Stream, list []T) T {
	return list[s.r.IntN(len(list))]
}

// Shuffle returns a shuffled copy of list.
func Shuffle[T any](s *Stream, list []T) []T {
	out := make([]T, len(list))
	copy(out, list)
	for i := len(out) - 1; i > 0; i-- {
		j := s.r.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// WeightedIndex picks an index with probability proportional to its weight.
// Non-positive weights are never picked; if all are non-positive it returns 0.
func WeightedIndex(s *Stream, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return 0
	}
	roll := s.Next() * total
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if roll < w {
			return i
		}
		roll -= w
	}
	return last
}
