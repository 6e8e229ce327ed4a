// Package integration resolves tuck-in and merger outcomes: how well an
// acquired business folds into its new parent and what that is worth.
package integration

import (
	"math"

	"github.com/talgya/holdco/internal/business"
	"github.com/talgya/holdco/internal/rng"
)

// Affinity is the graduated operational similarity of two sub-types.
type Affinity string

const (
	AffinityMatch   Affinity = "match"
	AffinityRelated Affinity = "related"
	AffinityDistant Affinity = "distant"
)

// SizeTier classifies the acquired-to-base EBITDA ratio.
type SizeTier string

const (
	SizeIdeal     SizeTier = "ideal"
	SizeStretch   SizeTier = "stretch"
	SizeStrained  SizeTier = "strained"
	SizeOverreach SizeTier = "overreach"
)

// Outcome is the integration result class.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// SizeRatio is the classified size ratio.
type SizeRatio struct {
	Tier  SizeTier `json:"tier"`
	Ratio float64  `json:"ratio"`
}

// GetSubTypeAffinity compares two sub-types of a sector. Unknown inputs are
// treated as distant.
func GetSubTypeAffinity(sectorID, a, b string) Affinity {
	sector, ok := business.LookupSector(sectorID)
	if !ok || a == "" || b == "" {
		return AffinityDistant
	}
	stA, okA := sector.FindSubType(a)
	stB, okB := sector.FindSubType(b)
	if !okA || !okB {
		return AffinityDistant
	}
	if stA.Name == stB.Name {
		return AffinityMatch
	}
	if stA.Group != "" && stA.Group == stB.Group {
		return AffinityRelated
	}
	return AffinityDistant
}

// GetSizeRatioTier classifies |acquired| / base. A non-positive base is
// maximal risk.
func GetSizeRatioTier(acquiredEbitda, baseEbitda int64) SizeRatio {
	if baseEbitda <= 0 {
		return SizeRatio{Tier: SizeOverreach, Ratio: math.Inf(1)}
	}
	ratio := math.Abs(float64(acquiredEbitda)) / float64(baseEbitda)
	switch {
	case ratio <= 0.5:
		return SizeRatio{Tier: SizeIdeal, Ratio: ratio}
	case ratio <= 1.0:
		return SizeRatio{Tier: SizeStretch, Ratio: ratio}
	case ratio <= 2.0:
		return SizeRatio{Tier: SizeStrained, Ratio: ratio}
	default:
		return SizeRatio{Tier: SizeOverreach, Ratio: ratio}
	}
}

// sizePenalty is subtracted from the success probability.
var sizePenalty = map[SizeTier]float64{
	SizeIdeal:     0,
	SizeStretch:   0.05,
	SizeStrained:  0.15,
	SizeOverreach: 0.25,
}

// mergerPenaltyScale softens the size penalty for mergers of equals.
const mergerPenaltyScale = 0.7

const (
	baseSuccessProbability = 0.60
	minSuccessProbability  = 0.05
	maxSuccessProbability  = 0.95
)

// OutcomeInput gathers the optional context of an integration. Zero values
// mean "not applicable".
type OutcomeInput struct {
	Acquired          *business.Business
	TargetPlatform    *business.Business
	HasSharedServices bool
	Affinity          Affinity
	SizeTier          SizeTier
	IsMerger          bool
}

// SuccessProbability returns the clamped probability p used to bucket the roll.
func SuccessProbability(in OutcomeInput) float64 {
	p := baseSuccessProbability
	a := in.Acquired
	if a != nil {
		p += 0.1 * float64(a.QualityRating-3)
		switch a.DueDiligence.OperatorQuality {
		case business.OperatorStrong:
			p += 0.15
		case business.OperatorWeak:
			p -= 0.15
		}
		if a.DueDiligence.RevenueConcentration == business.ConcentrationHigh {
			p -= 0.10
		}
		if in.TargetPlatform != nil && in.TargetPlatform.SectorID == a.SectorID {
			p += 0.15
		}
	}
	switch in.Affinity {
	case AffinityRelated:
		p -= 0.05
	case AffinityDistant:
		p -= 0.15
	}
	if in.HasSharedServices {
		p += 0.10
	}
	penalty := sizePenalty[in.SizeTier]
	if in.IsMerger {
		penalty *= mergerPenaltyScale
	}
	p -= penalty
	return math.Max(minSuccessProbability, math.Min(maxSuccessProbability, p))
}

// DetermineIntegrationOutcome draws one roll and buckets it against p.
func DetermineIntegrationOutcome(in OutcomeInput, s *rng.Stream) Outcome {
	return BucketOutcome(SuccessProbability(in), s.Next())
}

// BucketOutcome maps a roll to an outcome: roll < 0.6p succeeds,
// roll < 1.2p is partial, anything else fails.
func BucketOutcome(p, roll float64) Outcome {
	switch {
	case roll < p*0.6:
		return OutcomeSuccess
	case roll < p*1.2:
		return OutcomePartial
	default:
		return OutcomeFailure
	}
}

var tuckInRates = map[Outcome]float64{
	OutcomeSuccess: 0.20,
	OutcomePartial: 0.08,
	OutcomeFailure: -0.05,
}

var standaloneRates = map[Outcome]float64{
	OutcomeSuccess: 0.10,
	OutcomePartial: 0.03,
	OutcomeFailure: -0.02,
}

const mergerSuccessRate = 0.15

var affinityFactor = map[Affinity]float64{
	AffinityMatch:   1.0,
	AffinityRelated: 0.75,
	AffinityDistant: 0.45,
}

var sizeFactor = map[SizeTier]float64{
	SizeIdeal:     1.0,
	SizeStretch:   0.80,
	SizeStrained:  0.50,
	SizeOverreach: 0.25,
}

var mergerSizeFactor = map[SizeTier]float64{
	SizeIdeal:     1.0,
	SizeStretch:   0.90,
	SizeStrained:  0.65,
	SizeOverreach: 0.40,
}

// SynergyRate returns the undampened synergy rate for an outcome.
func SynergyRate(outcome Outcome, isTuckIn, isMerger bool) float64 {
	if isMerger && outcome == OutcomeSuccess {
		return mergerSuccessRate
	}
	if isTuckIn {
		return tuckInRates[outcome]
	}
	return standaloneRates[outcome]
}

// CalculateSynergies returns the signed EBITDA synergy. Failures destroy
// value; affinity and size dampening shrink gains and losses alike.
func CalculateSynergies(outcome Outcome, baseEbitda int64, isTuckIn bool, affinity Affinity, tier SizeTier, isMerger bool) int64 {
	rate := SynergyRate(outcome, isTuckIn, isMerger)

	af, ok := affinityFactor[affinity]
	if !ok {
		af = 1.0
	}
	factors := sizeFactor
	if isMerger {
		factors = mergerSizeFactor
	}
	sf, ok := factors[tier]
	if !ok {
		sf = 1.0
	}
	return int64(math.Round(float64(baseEbitda) * rate * af * sf))
}

// GrowthDrag is the permanent change to the combined growth rate after an
// integration. Distant combinations drag harder.
func GrowthDrag(outcome Outcome, affinity Affinity) float64 {
	drag := 0.0
	switch outcome {
	case OutcomePartial:
		drag = -0.01
	case OutcomeFailure:
		drag = -0.03
	}
	if affinity == AffinityDistant && drag < 0 {
		drag *= 1.5
	}
	return drag
}

var scaleBonus = []float64{0, 0.3, 0.6, 1.0}

// ScaleBonus returns the multiple expansion earned by platform scale alone.
// Beyond scale 3 it continues logarithmically.
func ScaleBonus(scale int) float64 {
	if scale <= 0 {
		return 0
	}
	if scale < len(scaleBonus) {
		return scaleBonus[scale]
	}
	return 1.0 + 0.5*math.Log(float64(scale)/3)
}

// SizeBonus returns the flat bonus for combined EBITDA thresholds.
func SizeBonus(totalEbitda int64) float64 {
	switch {
	case totalEbitda > 5000:
		return 0.3
	case totalEbitda > 3000:
		return 0.15
	default:
		return 0
	}
}

// CalculateMultipleExpansion is the full roll-up bonus for a platform.
func CalculateMultipleExpansion(platformScale int, totalEbitda int64) float64 {
	return ScaleBonus(platformScale) + SizeBonus(totalEbitda)
}

// IncrementalMultipleExpansion is the delta to apply when a platform moves
// from one scale/size to another, so the same bonus is never applied twice.
func IncrementalMultipleExpansion(prevScale int, prevEbitda int64, newScale int, newEbitda int64) float64 {
	return CalculateMultipleExpansion(newScale, newEbitda) - CalculateMultipleExpansion(prevScale, prevEbitda)
}
