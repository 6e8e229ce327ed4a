package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/holdco/internal/business"
	"github.com/talgya/holdco/internal/finance"
	"github.com/talgya/holdco/internal/rng"
	"github.com/talgya/holdco/internal/turnaround"
)

// Improvement is a one-off operational upgrade. Each can be applied once per
// business.
type Improvement struct {
	ID            string
	Name          string
	CostRate      float64 // share of revenue
	MinCost       int64
	MarginChange  float64
	GrowthChange  float64
	QualityChange int
}

var improvements = []Improvement{
	{ID: "operating_playbook", Name: "Operating Playbook", CostRate: 0.03, MinCost: 100, MarginChange: 0.03},
	{ID: "pricing_model", Name: "Pricing Model", CostRate: 0.02, MinCost: 80, MarginChange: 0.02, GrowthChange: 0.01},
	{ID: "technology_upgrade", Name: "Technology Upgrade", CostRate: 0.04, MinCost: 150, MarginChange: 0.015, GrowthChange: 0.015},
	{ID: "management_professionalization", Name: "Management Professionalization", CostRate: 0.025, MinCost: 120, GrowthChange: 0.005, QualityChange: 1},
}

// Improvements returns the improvement catalog.
func Improvements() []Improvement {
	return append([]Improvement(nil), improvements...)
}

// LookupImprovement finds a catalog entry.
func LookupImprovement(id string) (Improvement, bool) {
	for _, imp := range improvements {
		if imp.ID == id {
			return imp, true
		}
	}
	return Improvement{}, false
}

// Cost prices the improvement for b.
func (imp Improvement) Cost(b *business.Business) int64 {
	return max(imp.MinCost, int64(math.Round(float64(b.Revenue)*imp.CostRate)))
}

// ImproveBusiness applies an improvement to an active business.
func (g *Game) ImproveBusiness(businessID, improvementID string) Result {
	if r, ok := g.requirePhase(PhaseAllocate); !ok {
		return r
	}
	st := g.State
	b := st.FindBusiness(businessID)
	if b == nil || b.Status != business.StatusActive {
		return g.reject("business %s not found", businessID)
	}
	imp, found := LookupImprovement(improvementID)
	if !found {
		return g.reject("unknown improvement %s", improvementID)
	}
	if b.HasImprovement(imp.ID) {
		return g.reject("%s already has %s", b.Name, imp.Name)
	}
	cost := imp.Cost(b)
	if st.Cash < cost {
		return g.reject("insufficient cash: %s costs %d", imp.Name, cost)
	}

	st.Cash -= cost
	b.Improvements = append(b.Improvements, imp.ID)
	b.RevenueGrowthRate += imp.GrowthChange
	if imp.QualityChange != 0 {
		ceiling := business.SectorOrDefault(b.SectorID).QualityCeiling
		if ceiling < 1 {
			ceiling = 5
		}
		b.QualityRating = max(b.QualityRating, min(b.QualityRating+imp.QualityChange, ceiling))
	}
	if imp.MarginChange != 0 {
		b.SetMargin(b.EbitdaMargin + imp.MarginChange)
	}
	g.record(ImproveAction{BusinessID: b.ID, ImprovementID: imp.ID, Cost: cost})
	return ok(fmt.Sprintf("%s: %s", b.Name, imp.Name))
}

// UnlockTurnaroundTier buys the next turnaround capability tier.
func (g *Game) UnlockTurnaroundTier() Result {
	if r, ok := g.requirePhase(PhaseAllocate); !ok {
		return r
	}
	st := g.State
	info, found := turnaround.LookupTier(st.TurnaroundTier + 1)
	if !found {
		return g.reject("turnaround capability is already at the top tier")
	}
	if st.Cash < info.UnlockCost {
		return g.reject("insufficient cash: %s costs %d", info.Name, info.UnlockCost)
	}
	st.Cash -= info.UnlockCost
	st.TurnaroundTier = info.Tier
	g.record(UnlockTierAction{Tier: info.Tier, Cost: info.UnlockCost})
	return ok(fmt.Sprintf("%s unlocked", info.Name))
}

// StartTurnaroundProgram starts a program on an eligible business. The
// program resolves at the collect phase of its end round.
func (g *Game) StartTurnaroundProgram(businessID, programID string) Result {
	if r, ok := g.requirePhase(PhaseAllocate); !ok {
		return r
	}
	st := g.State
	b := st.FindBusiness(businessID)
	if b == nil || b.Status != business.StatusActive {
		return g.reject("business %s not found", businessID)
	}
	p, found := turnaround.LookupProgram(programID)
	if !found {
		return g.reject("unknown turnaround program %s", programID)
	}
	switch {
	case p.Tier > st.TurnaroundTier:
		return g.reject("%s needs turnaround tier %d", p.Name, p.Tier)
	case b.QualityRating > p.MaxQuality:
		return g.reject("%s is too healthy for %s", b.Name, p.Name)
	case turnaround.BusyOn(st.Turnarounds, b.ID):
		return g.reject("%s already has a program running", b.Name)
	case st.Cash < p.UpfrontCost:
		return g.reject("insufficient cash: %s costs %d", p.Name, p.UpfrontCost)
	}

	st.NextTurnaroundID++
	ta := turnaround.Start(st.NextTurnaroundID, b.ID, p, st.Round)
	st.Turnarounds = append(st.Turnarounds, ta)
	st.Cash -= p.UpfrontCost
	g.record(StartTurnaroundAction{BusinessID: b.ID, ProgramID: p.ID, TurnaroundID: ta.ID, Cost: p.UpfrontCost})
	slog.Info("turnaround started", "round", st.Round, "business", b.ID, "program", p.ID, "ends", ta.EndRound)
	return ok(fmt.Sprintf("%s started at %s", p.Name, b.Name))
}

// ActivateSharedService unlocks a holdco-level shared service.
func (g *Game) ActivateSharedService(serviceID string) Result {
	if r, ok := g.requirePhase(PhaseAllocate); !ok {
		return r
	}
	st := g.State
	svc, found := finance.LookupSharedService(serviceID)
	if !found {
		return g.reject("unknown shared service %s", serviceID)
	}
	for _, id := range st.SharedServices {
		if id == svc.ID {
			return g.reject("%s is already active", svc.Name)
		}
	}
	if n := len(st.ActiveBusinesses()); n < svc.MinOpcos {
		return g.reject("%s needs at least %d opcos", svc.Name, svc.MinOpcos)
	}
	if st.Cash < svc.UnlockCost {
		return g.reject("insufficient cash: %s costs %d", svc.Name, svc.UnlockCost)
	}
	st.Cash -= svc.UnlockCost
	st.SharedServices = append(st.SharedServices, svc.ID)
	g.record(SharedServiceAction{ServiceID: svc.ID, Cost: svc.UnlockCost})
	return ok(fmt.Sprintf("%s activated", svc.Name))
}

// Sale price band around fair value.
const (
	saleLow  = 0.95
	saleHigh = 1.05
)

// SalePrice is the market bid for b this round.
func (g *Game) SalePrice(b *business.Business) int64 {
	fair := BusinessValue(b, g.State.MarketMultipleAdj)
	s := g.stream(rng.LaneMarket, "sale_"+b.ID)
	return int64(math.Round(float64(fair) * s.Range(saleLow, saleHigh)))
}

// family returns b and every integrated bolt-on folded into it.
func (s *GameState) family(b *business.Business) []*business.Business {
	out := []*business.Business{b}
	for _, c := range s.Businesses {
		if c.Status == business.StatusIntegrated && c.ParentPlatformID == b.ID {
			out = append(out, c)
		}
	}
	return out
}

// attachedDebt is the bank debt and seller notes carried by a business and
// its bolt-ons. Both are settled on exit.
func attachedDebt(list []*business.Business) int64 {
	var total int64
	for _, b := range list {
		total += b.BankDebtBalance + b.SellerNoteBalance
	}
	return total
}

// closeOut clears the sub-ledgers and sets the terminal status. Unpaid
// earn-outs lapse.
func closeOut(list []*business.Business, status business.Status, round int, price int64) {
	for i, b := range list {
		b.SellerNoteBalance, b.SellerNoteRoundsRemaining = 0, 0
		b.BankDebtBalance, b.BankDebtRoundsRemaining = 0, 0
		b.EarnoutRemaining = 0
		b.Status = status
		b.ExitRound = round
		if i == 0 {
			b.ExitPrice = price
		}
	}
}

// SellBusiness divests an active business at the market bid, repaying its
// attached debt from the proceeds.
func (g *Game) SellBusiness(businessID string) Result {
	if r, ok := g.requirePhase(PhaseAllocate); !ok {
		return r
	}
	b := g.State.FindBusiness(businessID)
	if b == nil || b.Status != business.StatusActive {
		return g.reject("business %s not found", businessID)
	}
	return g.sell(b, g.SalePrice(b), false)
}

func (g *Game) sell(b *business.Business, price int64, viaOffer bool) Result {
	st := g.State
	fam := st.family(b)
	net := price - attachedDebt(fam)
	if st.Cash+net < 0 {
		return g.reject("sale of %s does not cover its debt", b.Name)
	}
	closeOut(fam, business.StatusSold, st.Round, price)
	st.Cash += net
	g.dropTurnarounds(fam)
	g.refreshDebt()

	g.record(SellAction{BusinessID: b.ID, Price: price, NetProceeds: net, ViaOffer: viaOffer})
	slog.Info("sold", "round", st.Round, "business", b.ID, "price", price, "net", net, "offer", viaOffer)
	return ok(fmt.Sprintf("sold %s for %d", b.Name, price))
}

// windDownRate is the closure cost as a share of revenue.
const windDownRate = 0.05

// WindDownCost is severance and closure plus the attached debt.
func (g *Game) WindDownCost(b *business.Business) int64 {
	fam := g.State.family(b)
	var revenue int64
	for _, x := range fam {
		if x.Status == business.StatusActive {
			revenue += x.Revenue
		}
	}
	return max(50, int64(math.Round(float64(revenue)*windDownRate))) + attachedDebt(fam)
}

// WindDownBusiness closes a business, paying off its debt and closure costs.
func (g *Game) WindDownBusiness(businessID string) Result {
	if r, ok := g.requirePhase(PhaseAllocate); !ok {
		return r
	}
	st := g.State
	b := st.FindBusiness(businessID)
	if b == nil || b.Status != business.StatusActive {
		return g.reject("business %s not found", businessID)
	}
	cost := g.WindDownCost(b)
	if st.Cash < cost {
		return g.reject("insufficient cash: winding down %s costs %d", b.Name, cost)
	}
	fam := st.family(b)
	closeOut(fam, business.StatusWoundDown, st.Round, 0)
	st.Cash -= cost
	g.dropTurnarounds(fam)
	g.refreshDebt()
	g.record(WindDownAction{BusinessID: b.ID, Cost: cost})
	slog.Info("wound down", "round", st.Round, "business", b.ID, "cost", cost)
	return ok(fmt.Sprintf("wound down %s", b.Name))
}

func (g *Game) dropTurnarounds(list []*business.Business) {
	for i := range g.State.Turnarounds {
		ta := &g.State.Turnarounds[i]
		for _, b := range list {
			if ta.Status == turnaround.StatusActive && ta.BusinessID == b.ID {
				ta.Status = turnaround.StatusFailed
			}
		}
	}
}
