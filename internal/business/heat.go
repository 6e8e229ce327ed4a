package business

import (
	"math"

	"github.com/talgya/holdco/internal/rng"
)

// Heat is the competitive pressure on a deal.
type Heat string

const (
	HeatCold      Heat = "cold"
	HeatWarm      Heat = "warm"
	HeatHot       Heat = "hot"
	HeatContested Heat = "contested"
)

// ContestedSnatchChance is the probability a rival takes a contested deal at acceptance.
const ContestedSnatchChance = 0.40

var heatLevels = []Heat{HeatCold, HeatWarm, HeatHot, HeatContested}

var baseHeatWeights = []float64{25, 35, 30, 10}

// Event types that move deal heat.
const (
	EventBullMarket = "global_bull_market"
	EventRecession  = "global_recession"
)

// HeatLevel returns the ordinal 0–3 of a heat tier. Unknown values are cold.
func HeatLevel(h Heat) int {
	for i, l := range heatLevels {
		if l == h {
			return i
		}
	}
	return 0
}

// HeatFromLevel clamps an ordinal into a heat tier.
func HeatFromLevel(level int) Heat {
	if level < 0 {
		level = 0
	}
	if level > 3 {
		level = 3
	}
	return heatLevels[level]
}

// CalculateDealHeat rolls a base tier and shifts it by deal context.
func CalculateDealHeat(quality int, source DealSource, round, maxRounds int, lastEventType string, archetype SellerArchetype, s *rng.Stream) Heat {
	level := rng.WeightedIndex(s, baseHeatWeights)

	shift := 0
	switch {
	case quality >= 4:
		shift++
	case quality <= 2:
		shift--
	}
	switch lastEventType {
	case EventBullMarket:
		shift++
	case EventRecession:
		shift--
	}
	if maxRounds > 0 && round >= int(math.Ceil(0.75*float64(maxRounds))) {
		shift++
	}
	switch source {
	case SourceProprietary:
		shift -= 2
	case SourceSourced:
		shift--
	}
	if shift < -3 {
		shift = -3
	}

	level += shift + ArchetypeProfileFor(archetype).HeatModifier
	return HeatFromLevel(level)
}

// CalculateHeatPremium draws the price multiplier for a heat tier. One value
// is always drawn so stream consumption does not depend on the tier.
func CalculateHeatPremium(h Heat, s *rng.Stream) float64 {
	r := s.Next()
	switch h {
	case HeatWarm:
		return 1.10 + 0.05*r
	case HeatHot:
		return 1.20 + 0.10*r
	case HeatContested:
		return 1.30 + 0.20*r
	default:
		return 1.0
	}
}
