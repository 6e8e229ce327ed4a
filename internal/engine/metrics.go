package engine

import (
	"math"

	"github.com/talgya/holdco/internal/business"
	"github.com/talgya/holdco/internal/finance"
)

// Metrics is recomputed from GameState on demand and never persisted.
type Metrics struct {
	Round            int                   `json:"round"`
	Cash             int64                 `json:"cash"`
	TotalDebt        int64                 `json:"total_debt"`
	SellerNotes      int64                 `json:"seller_notes"`
	EarnoutsOwed     int64                 `json:"earnouts_owed"`
	NetDebt          int64                 `json:"net_debt"`
	Revenue          int64                 `json:"revenue"`
	Ebitda           int64                 `json:"ebitda"`
	Leverage         float64               `json:"leverage"`
	Distress         finance.DistressLevel `json:"distress"`
	PortfolioValue   int64                 `json:"portfolio_value"`
	EquityValue      int64                 `json:"equity_value"`
	ValuePerShare    float64               `json:"value_per_share"`
	FounderOwnership float64               `json:"founder_ownership"`
	Opcos            int                   `json:"opcos"`
	Platforms        int                   `json:"platforms"`
	AvgQuality       float64               `json:"avg_quality"`
	LastFCF          int64                 `json:"last_fcf"`
}

// minValuationMultiple keeps a distressed market from valuing a business
// below one year of EBITDA.
const minValuationMultiple = 1.0

// ValuationMultiple is the exit multiple the market would pay today.
func ValuationMultiple(b *business.Business, marketAdj float64) float64 {
	base := b.AcquisitionMultiple
	if base <= 0 {
		sec := business.SectorOrDefault(b.SectorID)
		base = (sec.Multiple[0] + sec.Multiple[1]) / 2
	}
	return math.Max(minValuationMultiple, base+b.MultipleExpansion+marketAdj)
}

// BusinessValue is EBITDA × valuation multiple, never negative.
func BusinessValue(b *business.Business, marketAdj float64) int64 {
	if b.Ebitda <= 0 {
		return 0
	}
	return int64(math.Round(float64(b.Ebitda) * ValuationMultiple(b, marketAdj)))
}

// ComputeMetrics derives the metrics view.
func ComputeMetrics(s *GameState) Metrics {
	m := Metrics{
		Round:            s.Round,
		Cash:             s.Cash,
		TotalDebt:        finance.TotalDebt(&s.Ledger, s.Businesses),
		SellerNotes:      finance.SellerNoteTotal(s.Businesses),
		Revenue:          business.StandaloneRevenue(s.Businesses),
		Ebitda:           business.StandaloneEbitda(s.Businesses),
		FounderOwnership: s.FounderOwnership(),
	}
	qualitySum := 0
	for _, b := range s.Businesses {
		if b.IsOwned() {
			m.EarnoutsOwed += b.EarnoutRemaining
		}
		if b.Status != business.StatusActive {
			continue
		}
		m.Opcos++
		if b.IsPlatform {
			m.Platforms++
		}
		qualitySum += b.QualityRating
		m.PortfolioValue += BusinessValue(b, s.MarketMultipleAdj)
	}
	if m.Opcos > 0 {
		m.AvgQuality = float64(qualitySum) / float64(m.Opcos)
	}
	m.NetDebt = finance.NetDebt(&s.Ledger, s.Businesses)
	m.Leverage = finance.Leverage(m.NetDebt, m.Ebitda)
	skipped := s.LastWaterfall != nil && s.LastWaterfall.PaymentsSkipped
	m.Distress = finance.CalculateDistress(m.Leverage, skipped)
	m.EquityValue = m.PortfolioValue + m.Cash - m.TotalDebt - m.SellerNotes
	if s.SharesOutstanding > 0 {
		m.ValuePerShare = float64(m.EquityValue) / float64(s.SharesOutstanding)
	}
	if s.LastWaterfall != nil {
		m.LastFCF = s.LastWaterfall.PreDebtFCF
	}
	return m
}
