// Package turnaround defines rehabilitation programs for weak businesses and
// resolves them into success, partial or failure.
package turnaround

import (
	"fmt"
	"math"

	"github.com/talgya/holdco/internal/business"
)

// Status of an ActiveTurnaround.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// Result is the outcome class of a resolved program.
type Result string

const (
	ResultSuccess Result = "success"
	ResultPartial Result = "partial"
	ResultFailure Result = "failure"
)

// Effect is what one outcome does to the business.
type Effect struct {
	QualityChange    int     `json:"quality_change"`
	EbitdaMultiplier float64 `json:"ebitda_multiplier"`
}

// Program is a catalog entry.
type Program struct {
	ID          string
	Name        string
	Tier        int
	Duration    int // rounds
	UpfrontCost int64
	AnnualCost  int64
	SuccessRate float64
	PartialRate float64
	MaxQuality  int // only businesses at or below this quality are eligible
	Success     Effect
	Partial     Effect
	Failure     Effect
}

// TierInfo is the holdco capability needed to run programs of a tier.
type TierInfo struct {
	Tier       int
	Name       string
	UnlockCost int64
	AnnualCost int64
}

var tiers = []TierInfo{
	{Tier: 1, Name: "Operating Partner", UnlockCost: 300, AnnualCost: 100},
	{Tier: 2, Name: "Turnaround Bench", UnlockCost: 700, AnnualCost: 200},
	{Tier: 3, Name: "Transformation Office", UnlockCost: 1200, AnnualCost: 350},
}

var programs = []Program{
	{
		ID: "cost_cleanup", Name: "Cost Cleanup", Tier: 1, Duration: 2,
		UpfrontCost: 150, AnnualCost: 50, SuccessRate: 0.65, PartialRate: 0.25, MaxQuality: 3,
		Success: Effect{1, 1.08}, Partial: Effect{0, 1.03}, Failure: Effect{0, 0.97},
	},
	{
		ID: "sales_reset", Name: "Sales Reset", Tier: 1, Duration: 2,
		UpfrontCost: 200, AnnualCost: 60, SuccessRate: 0.55, PartialRate: 0.30, MaxQuality: 3,
		Success: Effect{1, 1.10}, Partial: Effect{0, 1.04}, Failure: Effect{0, 0.95},
	},
	{
		ID: "management_overhaul", Name: "Management Overhaul", Tier: 2, Duration: 3,
		UpfrontCost: 400, AnnualCost: 120, SuccessRate: 0.55, PartialRate: 0.30, MaxQuality: 3,
		Success: Effect{2, 1.12}, Partial: Effect{1, 1.04}, Failure: Effect{-1, 0.92},
	},
	{
		ID: "pricing_repositioning", Name: "Pricing Repositioning", Tier: 2, Duration: 2,
		UpfrontCost: 300, AnnualCost: 100, SuccessRate: 0.60, PartialRate: 0.25, MaxQuality: 4,
		Success: Effect{1, 1.15}, Partial: Effect{0, 1.05}, Failure: Effect{0, 0.94},
	},
	{
		ID: "full_transformation", Name: "Full Transformation", Tier: 3, Duration: 4,
		UpfrontCost: 800, AnnualCost: 250, SuccessRate: 0.50, PartialRate: 0.30, MaxQuality: 2,
		Success: Effect{3, 1.25}, Partial: Effect{1, 1.08}, Failure: Effect{-1, 0.85},
	},
}

// Programs returns the catalog.
func Programs() []Program {
	out := make([]Program, len(programs))
	copy(out, programs)
	return out
}

// LookupProgram finds a program by id.
func LookupProgram(id string) (Program, bool) {
	for _, p := range programs {
		if p.ID == id {
			return p, true
		}
	}
	return Program{}, false
}

// Tiers returns the capability tiers.
func Tiers() []TierInfo {
	out := make([]TierInfo, len(tiers))
	copy(out, tiers)
	return out
}

// LookupTier returns the tier info; ok is false outside 1..3.
func LookupTier(tier int) (TierInfo, bool) {
	if tier < 1 || tier > len(tiers) {
		return TierInfo{}, false
	}
	return tiers[tier-1], true
}

// TierAnnualCost is the yearly charge for the unlocked tier.
func TierAnnualCost(tier int) int64 {
	info, ok := LookupTier(tier)
	if !ok {
		return 0
	}
	return info.AnnualCost
}

// ActiveTurnaround is a running program bound to one business.
type ActiveTurnaround struct {
	ID         string `json:"id"`
	BusinessID string `json:"business_id"`
	ProgramID  string `json:"program_id"`
	StartRound int    `json:"start_round"`
	EndRound   int    `json:"end_round"`
	Status     Status `json:"status"`
}

// Start creates an active program.
func Start(seq int, businessID string, p Program, round int) ActiveTurnaround {
	return ActiveTurnaround{
		ID:         fmt.Sprintf("ta_%d", seq),
		BusinessID: businessID,
		ProgramID:  p.ID,
		StartRound: round,
		EndRound:   round + p.Duration,
		Status:     StatusActive,
	}
}

// CountActive returns how many programs are still running.
func CountActive(list []ActiveTurnaround) int {
	n := 0
	for _, t := range list {
		if t.Status == StatusActive {
			n++
		}
	}
	return n
}

// AnnualProgramCosts sums the annual cost of running programs.
func AnnualProgramCosts(list []ActiveTurnaround) int64 {
	var total int64
	for _, t := range list {
		if t.Status != StatusActive {
			continue
		}
		if p, ok := LookupProgram(t.ProgramID); ok {
			total += p.AnnualCost
		}
	}
	return total
}

// BusyOn reports whether the business already has a running program.
func BusyOn(list []ActiveTurnaround, businessID string) bool {
	for _, t := range list {
		if t.Status == StatusActive && t.BusinessID == businessID {
			return true
		}
	}
	return false
}

// bandwidthFree is how many concurrent programs run without dampening.
const bandwidthFree = 2

// concurrencyPenalty is the success-rate loss per program beyond bandwidthFree.
const concurrencyPenalty = 0.05

// Resolution is the outcome of one program.
type Resolution struct {
	Result           Result  `json:"result"`
	QualityChange    int     `json:"quality_change"`
	EbitdaMultiplier float64 `json:"ebitda_multiplier"`
	TargetQuality    int     `json:"target_quality"`
}

// EffectiveSuccessRate applies the concurrency dampening.
func EffectiveSuccessRate(p Program, concurrent int) float64 {
	rate := p.SuccessRate
	if over := concurrent - bandwidthFree; over > 0 {
		rate -= concurrencyPenalty * float64(over)
	}
	return math.Max(0.05, rate)
}

// Resolve buckets a pre-rolled value against the program's cumulative
// thresholds. The resulting quality is bounded by [1, ceiling].
func Resolve(p Program, currentQuality, ceiling, concurrent int, roll float64) Resolution {
	success := EffectiveSuccessRate(p, concurrent)
	var res Resolution
	var eff Effect
	switch {
	case roll < success:
		res.Result, eff = ResultSuccess, p.Success
	case roll < success+p.PartialRate:
		res.Result, eff = ResultPartial, p.Partial
	default:
		res.Result, eff = ResultFailure, p.Failure
	}
	if ceiling < 1 {
		ceiling = 5
	}
	target := currentQuality + eff.QualityChange
	target = max(1, min(target, ceiling))
	if target < currentQuality && eff.QualityChange >= 0 {
		// already above the ceiling; a positive program never lowers quality
		target = currentQuality
	}
	res.TargetQuality = target
	res.QualityChange = target - currentQuality
	res.EbitdaMultiplier = eff.EbitdaMultiplier
	return res
}

// Apply writes a resolution onto the business. EBITDA moves through the
// margin so the revenue × margin relation holds.
func Apply(b *business.Business, r Resolution) {
	b.QualityRating = r.TargetQuality
	if r.EbitdaMultiplier > 0 && r.EbitdaMultiplier != 1 {
		b.SetMargin(b.EbitdaMargin * r.EbitdaMultiplier)
	}
}

// StatusFor maps a result to the terminal program status.
func StatusFor(r Result) Status {
	switch r {
	case ResultSuccess:
		return StatusCompleted
	case ResultPartial:
		return StatusPartial
	default:
		return StatusFailed
	}
}
