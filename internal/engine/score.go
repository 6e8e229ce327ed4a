package engine

import "math"

// Score is the end-of-game result.
type Score struct {
	EnterpriseValue    int64   `json:"enterprise_value"`
	NetDebt            int64   `json:"net_debt"`
	EquityValue        int64   `json:"equity_value"`
	ValuePerShare      float64 `json:"value_per_share"`
	FounderOwnership   float64 `json:"founder_ownership"`
	FounderEquity      int64   `json:"founder_equity"`
	TotalDistributions int64   `json:"total_distributions"`
	FounderValue       int64   `json:"founder_value"`
	MOIC               float64 `json:"moic"`
	Grade              string  `json:"grade"`
	Bankrupt           bool    `json:"bankrupt"`
	RoundsPlayed       int     `json:"rounds_played"`
}

var gradeBands = []struct {
	moic  float64
	grade string
}{
	{10, "S"},
	{5, "A"},
	{3, "B"},
	{1.5, "C"},
	{1, "D"},
}

// GradeFor maps a founder MOIC to a letter grade.
func GradeFor(moic float64, bankrupt bool) string {
	if bankrupt {
		return "F"
	}
	for _, b := range gradeBands {
		if moic >= b.moic {
			return b.grade
		}
	}
	return "F"
}

// CalculateScore values the holdco for the founder. Bankruptcy wipes the
// equity but distributions already taken are kept.
func CalculateScore(s *GameState) Score {
	m := ComputeMetrics(s)
	sc := Score{
		EnterpriseValue:    m.PortfolioValue,
		NetDebt:            m.NetDebt,
		EquityValue:        max(m.EquityValue, 0),
		ValuePerShare:      math.Max(m.ValuePerShare, 0),
		FounderOwnership:   m.FounderOwnership,
		TotalDistributions: s.TotalDistributions,
		Bankrupt:           s.Bankrupt,
		RoundsPlayed:       min(s.Round, s.MaxRounds),
	}
	if s.Bankrupt {
		sc.EquityValue = 0
		sc.ValuePerShare = 0
	}
	sc.FounderEquity = int64(math.Round(float64(sc.EquityValue) * sc.FounderOwnership))
	founderDistributions := int64(math.Round(float64(s.TotalDistributions) * sc.FounderOwnership))
	sc.FounderValue = sc.FounderEquity + founderDistributions

	invested := float64(s.InitialEquity) * float64(FounderShares) / float64(InitialShares)
	if invested > 0 {
		sc.MOIC = math.Round(float64(sc.FounderValue)/invested*100) / 100
	}
	sc.Grade = GradeFor(sc.MOIC, s.Bankrupt)
	return sc
}
