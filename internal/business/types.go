// Package business provides the operating-company data model and the
// procedural generator for businesses and acquisition deals.
// All money values are int64 thousands of dollars.
package business

import "math"

// Margin bounds applied to every business after any mutation.
const (
	MarginFloor   = 0.03
	MarginCeiling = 0.80
)

// Status is the lifecycle state of a business.
type Status string

const (
	StatusActive     Status = "active"
	StatusIntegrated Status = "integrated" // folded into a platform
	StatusSold       Status = "sold"
	StatusWoundDown  Status = "wound_down"
	StatusMerged     Status = "merged"
)

// OperatorQuality is the due-diligence read on the management team.
type OperatorQuality string

const (
	OperatorWeak     OperatorQuality = "weak"
	OperatorModerate OperatorQuality = "moderate"
	OperatorStrong   OperatorQuality = "strong"
)

// Concentration is customer revenue concentration.
type Concentration string

const (
	ConcentrationLow    Concentration = "low"
	ConcentrationMedium Concentration = "medium"
	ConcentrationHigh   Concentration = "high"
)

// Trend is the recent revenue trajectory.
type Trend string

const (
	TrendGrowing   Trend = "growing"
	TrendFlat      Trend = "flat"
	TrendDeclining Trend = "declining"
)

// CompetitivePosition summarises the business's moat.
type CompetitivePosition string

const (
	PositionCommoditized   CompetitivePosition = "commoditized"
	PositionCompetitive    CompetitivePosition = "competitive"
	PositionDifferentiated CompetitivePosition = "differentiated"
	PositionLeader         CompetitivePosition = "leader"
)

// DueDiligence holds the signals a buyer sees before acquiring.
type DueDiligence struct {
	OperatorQuality      OperatorQuality     `json:"operator_quality"`
	OperatorNote         string              `json:"operator_note,omitempty"`
	RevenueConcentration Concentration       `json:"revenue_concentration"`
	Trend                Trend               `json:"trend"`
	CustomerRetention    int                 `json:"customer_retention"` // percent
	CompetitivePosition  CompetitivePosition `json:"competitive_position"`
}

// Business is an owned or offered operating company.
type Business struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SectorID string `json:"sector_id"`
	SubType  string `json:"sub_type"`

	Revenue      int64   `json:"revenue"`
	EbitdaMargin float64 `json:"ebitda_margin"`
	Ebitda       int64   `json:"ebitda"` // always round(Revenue × EbitdaMargin)

	QualityRating int          `json:"quality_rating"` // 1–5
	DueDiligence  DueDiligence `json:"due_diligence"`

	RevenueGrowthRate float64 `json:"revenue_growth_rate"`
	MarginDriftRate   float64 `json:"margin_drift_rate"`

	// Acquisition-time snapshots.
	AcquisitionRevenue  int64   `json:"acquisition_revenue"`
	AcquisitionMargin   float64 `json:"acquisition_margin"`
	AcquisitionEbitda   int64   `json:"acquisition_ebitda"`
	AcquisitionMultiple float64 `json:"acquisition_multiple"`
	AcquisitionPrice    int64   `json:"acquisition_price"`
	AcquisitionRound    int     `json:"acquisition_round"`

	PeakRevenue int64 `json:"peak_revenue"`
	PeakEbitda  int64 `json:"peak_ebitda"`

	// Seller note sub-ledger.
	SellerNoteBalance         int64   `json:"seller_note_balance"`
	SellerNoteRate            float64 `json:"seller_note_rate"`
	SellerNoteRoundsRemaining int     `json:"seller_note_rounds_remaining"`

	// Bank debt sub-ledger.
	BankDebtBalance         int64   `json:"bank_debt_balance"`
	BankDebtRate            float64 `json:"bank_debt_rate"`
	BankDebtRoundsRemaining int     `json:"bank_debt_rounds_remaining"`

	// Earn-out sub-ledger.
	EarnoutRemaining    int64   `json:"earnout_remaining"`
	EarnoutTargetGrowth float64 `json:"earnout_target_growth"`

	// Platform fields.
	IsPlatform           bool     `json:"is_platform"`
	PlatformScale        int      `json:"platform_scale"`
	BoltOnIDs            []string `json:"bolt_on_ids,omitempty"`
	ParentPlatformID     string   `json:"parent_platform_id,omitempty"`
	SynergiesRealized    int64    `json:"synergies_realized"`
	TotalAcquisitionCost int64    `json:"total_acquisition_cost"`
	// MultipleExpansion is the accumulated roll-up bonus on the exit multiple.
	MultipleExpansion float64 `json:"multiple_expansion"`

	Improvements []string `json:"improvements,omitempty"`
	Status       Status   `json:"status"`
	ExitRound    int      `json:"exit_round,omitempty"`
	ExitPrice    int64    `json:"exit_price,omitempty"`
}

// ClampMargin bounds a margin to [MarginFloor, MarginCeiling].
func ClampMargin(m float64) float64 {
	if math.IsNaN(m) || m < MarginFloor {
		return MarginFloor
	}
	if m > MarginCeiling {
		return MarginCeiling
	}
	return m
}

// DeriveEbitda returns round(revenue × margin).
func DeriveEbitda(revenue int64, margin float64) int64 {
	return int64(math.Round(float64(revenue) * margin))
}

// Rederive clamps the margin and recomputes EBITDA and peak trackers.
func (b *Business) Rederive() {
	if b.Revenue < 0 {
		b.Revenue = 0
	}
	b.EbitdaMargin = ClampMargin(b.EbitdaMargin)
	b.Ebitda = DeriveEbitda(b.Revenue, b.EbitdaMargin)
	if b.Revenue > b.PeakRevenue {
		b.PeakRevenue = b.Revenue
	}
	if b.Ebitda > b.PeakEbitda {
		b.PeakEbitda = b.Ebitda
	}
}

// SetRevenue updates revenue and re-derives EBITDA.
func (b *Business) SetRevenue(revenue int64) {
	b.Revenue = revenue
	b.Rederive()
}

// SetMargin updates the margin (clamped) and re-derives EBITDA.
func (b *Business) SetMargin(margin float64) {
	b.EbitdaMargin = margin
	b.Rederive()
}

// SetFinancials sets revenue and margin together.
func (b *Business) SetFinancials(revenue int64, margin float64) {
	b.Revenue = revenue
	b.EbitdaMargin = margin
	b.Rederive()
}

// IsOwned reports whether the business is still held (standalone or folded in).
func (b *Business) IsOwned() bool {
	return b.Status == StatusActive || b.Status == StatusIntegrated
}

// HasImprovement reports whether the named improvement was already applied.
func (b *Business) HasImprovement(id string) bool {
	for _, imp := range b.Improvements {
		if imp == id {
			return true
		}
	}
	return false
}

// EbitdaGrowthSinceAcquisition returns fractional EBITDA growth versus the
// acquisition snapshot. A non-positive baseline yields 0.
func (b *Business) EbitdaGrowthSinceAcquisition() float64 {
	if b.AcquisitionEbitda <= 0 {
		return 0
	}
	return float64(b.Ebitda-b.AcquisitionEbitda) / float64(b.AcquisitionEbitda)
}

// StandaloneEbitda sums EBITDA of active businesses only. Integrated bolt-ons
// are already inside their platform's numbers.
func StandaloneEbitda(list []*Business) int64 {
	var total int64
	for _, b := range list {
		if b.Status == StatusActive {
			total += b.Ebitda
		}
	}
	return total
}

// StandaloneRevenue sums revenue of active businesses only.
func StandaloneRevenue(list []*Business) int64 {
	var total int64
	for _, b := range list {
		if b.Status == StatusActive {
			total += b.Revenue
		}
	}
	return total
}

// Clone returns a deep copy.
func (b *Business) Clone() *Business {
	c := *b
	c.BoltOnIDs = append([]string(nil), b.BoltOnIDs...)
	c.Improvements = append([]string(nil), b.Improvements...)
	return &c
}
