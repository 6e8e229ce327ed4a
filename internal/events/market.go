package events

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// MarketCycle is a smooth, seed-derived sentiment curve over rounds. It
// biases how often bull markets and recessions come up so a seeded game has
// a recognisable economic shape.
type MarketCycle struct {
	noise opensimplex.Noise
}

// cycleFrequency controls how many rounds one swing spans (roughly 1/f).
const cycleFrequency = 0.18

// NewMarketCycle builds the curve for a game seed.
func NewMarketCycle(seed int64) *MarketCycle {
	return &MarketCycle{noise: opensimplex.NewNormalized(seed)}
}

// Sentiment returns a value in [-1, 1]; positive is a hot market.
func (m *MarketCycle) Sentiment(round int) float64 {
	if m == nil {
		return 0
	}
	v := octaveNoise(m.noise, float64(round), 0.5, 2, cycleFrequency, 0.5)
	s := v*2 - 1
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// octaveNoise layers frequencies for a less regular cycle.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
