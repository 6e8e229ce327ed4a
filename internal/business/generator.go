package business

import (
	"math"

	"github.com/talgya/holdco/internal/rng"
)

// qualityWeights is the distribution of quality tiers 1–5.
var qualityWeights = []float64{5, 15, 40, 25, 15}

// operatorWeights[q-1] over weak, moderate, strong.
var operatorWeights = [5][3]float64{
	{70, 25, 5},
	{45, 45, 10},
	{15, 60, 25},
	{5, 45, 50},
	{0, 25, 75},
}

// concentrationWeights by sector profile over low, medium, high.
var concentrationWeights = map[Concentration][3]float64{
	ConcentrationLow:    {60, 30, 10},
	ConcentrationMedium: {30, 45, 25},
	ConcentrationHigh:   {15, 35, 50},
}

// trendWeights[q-1] over growing, flat, declining.
var trendWeights = [5][3]float64{
	{15, 35, 50},
	{25, 40, 35},
	{40, 40, 20},
	{55, 35, 10},
	{70, 25, 5},
}

var retentionBase = [5]int{72, 80, 86, 91, 95}

// positionWeights[q-1] over commoditized, competitive, differentiated, leader.
var positionWeights = [5][4]float64{
	{70, 30, 0, 0},
	{40, 50, 10, 0},
	{10, 60, 25, 5},
	{0, 30, 55, 15},
	{0, 10, 50, 40},
}

var (
	operatorLevels      = []OperatorQuality{OperatorWeak, OperatorModerate, OperatorStrong}
	concentrationLevels = []Concentration{ConcentrationLow, ConcentrationMedium, ConcentrationHigh}
	trendLevels         = []Trend{TrendGrowing, TrendFlat, TrendDeclining}
	positionLevels      = []CompetitivePosition{PositionCommoditized, PositionCompetitive, PositionDifferentiated, PositionLeader}
)

// BusinessOptions overrides parts of the generated business.
type BusinessOptions struct {
	Quality int    // 1–5; 0 draws from the distribution
	SubType string // empty or unknown draws a sub-type
}

// Generator produces businesses and deals. It owns the id counter and the
// name registry of the game it generates for.
type Generator struct {
	IDs   *IDCounter
	Names *NameRegistry
}

// NewGenerator wires a generator to the given counter and registry.
func NewGenerator(ids *IDCounter, names *NameRegistry) *Generator {
	if ids == nil {
		ids = &IDCounter{Next: 1}
	}
	if names == nil {
		names = NewNameRegistry()
	}
	return &Generator{IDs: ids, Names: names}
}

// RollQuality draws a quality tier from the fixed distribution.
func RollQuality(s *rng.Stream) int {
	return rng.WeightedIndex(s, qualityWeights[:]) + 1
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 5 {
		return 5
	}
	return q
}

func pickWeighted3[T any](s *rng.Stream, levels []T, w [3]float64) T {
	return levels[rng.WeightedIndex(s, w[:])]
}

// DueDiligenceFor computes the signals for a given quality and sector profile.
func DueDiligenceFor(quality int, profile Concentration, s *rng.Stream) DueDiligence {
	q := clampQuality(quality)

	conc, ok := concentrationWeights[profile]
	if !ok {
		conc = concentrationWeights[ConcentrationMedium]
	}
	switch {
	case q >= 4:
		shift := math.Min(10, conc[2])
		conc[2] -= shift
		conc[0] += shift
	case q <= 2:
		shift := math.Min(10, conc[0])
		conc[0] -= shift
		conc[2] += shift
	}

	retention := retentionBase[q-1] + s.NextInt(-3, 3)
	if retention > 99 {
		retention = 99
	}

	pw := positionWeights[q-1]
	return DueDiligence{
		OperatorQuality:      pickWeighted3(s, operatorLevels, operatorWeights[q-1]),
		RevenueConcentration: pickWeighted3(s, concentrationLevels, conc),
		Trend:                pickWeighted3(s, trendLevels, trendWeights[q-1]),
		CustomerRetention:    retention,
		CompetitivePosition:  positionLevels[rng.WeightedIndex(s, pw[:])],
	}
}

func roundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}

// GenerateBusiness synthesises a business with internally consistent
// financials for the sector.
func (g *Generator) GenerateBusiness(sectorID string, round int, opts BusinessOptions, s *rng.Stream) *Business {
	sector := SectorOrDefault(sectorID)
	sectorID = sector.ID

	quality := opts.Quality
	if quality == 0 {
		quality = RollQuality(s)
	}
	quality = clampQuality(quality)
	qShift := float64(quality - 3)

	dd := DueDiligenceFor(quality, sector.Concentration, s)

	margin := ClampMargin(s.Range(sector.Margin[0], sector.Margin[1]) + 0.015*qShift)
	revenueScale := 0.8 + 0.1*float64(quality-1)
	revenue := int64(math.Round(s.Range(float64(sector.Revenue[0]), float64(sector.Revenue[1])) * revenueScale))

	growth := s.Range(sector.Growth[0], sector.Growth[1]) + 0.005*qShift
	switch dd.Trend {
	case TrendGrowing:
		growth += 0.02
	case TrendDeclining:
		growth -= 0.03
	}
	drift := s.Range(-0.005, 0.005) + 0.002*qShift

	subType, ok := sector.FindSubType(opts.SubType)
	if !ok {
		subType = rng.Pick(s, sector.SubTypes)
	}

	multiple := roundTo1(s.Range(sector.Multiple[0], sector.Multiple[1]) + 0.2*qShift)
	if multiple < 2.0 {
		multiple = 2.0
	}

	b := &Business{
		ID:                g.IDs.NextBusinessID(),
		Name:              g.Names.Generate(sectorID, s.Fork("name")),
		SectorID:          sectorID,
		SubType:           subType.Name,
		Revenue:           revenue,
		EbitdaMargin:      margin,
		QualityRating:     quality,
		DueDiligence:      dd,
		RevenueGrowthRate: growth,
		MarginDriftRate:   drift,
		Status:            StatusActive,
	}
	b.Rederive()

	if subType.MarginMod != 0 || subType.GrowthMod != 0 {
		b.RevenueGrowthRate += subType.GrowthMod
		if subType.MarginMod != 0 {
			b.SetMargin(b.EbitdaMargin + subType.MarginMod)
		}
	}

	b.AcquisitionMultiple = multiple
	b.AcquisitionPrice = int64(math.Round(float64(b.Ebitda) * multiple))
	b.snapshotAcquisition(round)
	return b
}

// snapshotAcquisition records the current financials as the acquisition baseline.
func (b *Business) snapshotAcquisition(round int) {
	b.AcquisitionRevenue = b.Revenue
	b.AcquisitionMargin = b.EbitdaMargin
	b.AcquisitionEbitda = b.Ebitda
	b.AcquisitionRound = round
	b.PeakRevenue = b.Revenue
	b.PeakEbitda = b.Ebitda
}

// MarkAcquired stamps the acquisition snapshot for a business the player bought.
func (b *Business) MarkAcquired(round int, price int64) {
	b.snapshotAcquisition(round)
	b.AcquisitionPrice = price
	b.TotalAcquisitionCost = price
	if b.Ebitda > 0 {
		b.AcquisitionMultiple = roundTo1(float64(price) / float64(b.Ebitda))
	}
	b.Status = StatusActive
}
