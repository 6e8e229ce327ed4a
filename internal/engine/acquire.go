package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/holdco/internal/business"
	"github.com/talgya/holdco/internal/finance"
	"github.com/talgya/holdco/internal/integration"
	"github.com/talgya/holdco/internal/rng"
)

// DealStructures lists the financing options for a pipeline deal. The
// seller-note terms are drawn per deal, so repeated calls agree.
func (g *Game) DealStructures(dealID string) []finance.DealStructure {
	d, _ := business.FindDeal(g.State.Pipeline, dealID)
	if d == nil {
		return nil
	}
	opts := finance.StructureOptions(d.EffectivePrice, d.Business.Ebitda, g.State.Distress, g.stream(rng.LaneDeals, "structure_"+d.ID))
	if !g.State.CreditTight {
		return opts
	}
	out := opts[:0]
	for _, o := range opts {
		if o.Kind != finance.StructureBankDebt {
			out = append(out, o)
		}
	}
	return out
}

// acquisitionPrecheck validates a deal purchase without mutating anything.
func (g *Game) acquisitionPrecheck(dealID string, kind finance.StructureKind) (*business.Deal, int, finance.DealStructure, Result, bool) {
	if r, ok := g.requirePhase(PhaseAllocate); !ok {
		return nil, 0, finance.DealStructure{}, r, false
	}
	if g.privilegedBlocked() {
		return nil, 0, finance.DealStructure{}, g.reject("acquisitions are frozen while covenants are in breach"), false
	}
	d, idx := business.FindDeal(g.State.Pipeline, dealID)
	if d == nil {
		return nil, 0, finance.DealStructure{}, g.reject("deal %s not found", dealID), false
	}
	if kind == "" {
		kind = finance.StructureAllCash
	}
	structure, found := finance.FindStructure(g.DealStructures(dealID), kind)
	if !found {
		return nil, 0, finance.DealStructure{}, g.reject("structure %s is not available for this deal", kind), false
	}
	if g.State.Cash < structure.Cash {
		return nil, 0, finance.DealStructure{}, g.reject("insufficient cash: need %d, have %d", structure.Cash, g.State.Cash), false
	}
	return d, idx, structure, Result{}, true
}

// snatched counts the attempt and rolls the rival-buyer check for contested
// deals. A snatched deal leaves the pipeline.
func (g *Game) snatched(d *business.Deal, idx int) bool {
	st := g.State
	st.AcquisitionAttempts++
	if d.Heat != business.HeatContested {
		return false
	}
	if g.SnatchRoll(d) >= contestedSnatchChance {
		return false
	}
	st.Pipeline = business.RemoveDeal(st.Pipeline, idx)
	st.notify("warn", fmt.Sprintf("%s was snatched by a rival buyer", d.Business.Name))
	slog.Info("deal snatched", "round", st.Round, "deal", d.ID, "business", d.Business.Name)
	return true
}

// AcquireBusiness buys a pipeline deal as a standalone opco.
func (g *Game) AcquireBusiness(dealID string, kind finance.StructureKind) Result {
	d, idx, structure, r, valid := g.acquisitionPrecheck(dealID, kind)
	if !valid {
		return r
	}
	st := g.State
	if g.snatched(d, idx) {
		g.record(AcquireAction{DealID: d.ID, Structure: structure.Kind, Price: d.EffectivePrice, Snatched: true})
		return Result{Reason: "outbid by a rival buyer"}
	}

	b := d.Business
	b.MarkAcquired(st.Round, d.EffectivePrice)
	structure.Apply(b)
	st.Businesses = append(st.Businesses, b)
	st.Pipeline = business.RemoveDeal(st.Pipeline, idx)
	st.Cash -= structure.Cash
	g.refreshDebt()

	g.record(AcquireAction{DealID: d.ID, BusinessID: b.ID, Structure: structure.Kind, Price: d.EffectivePrice})
	slog.Info("acquired", "round", st.Round, "business", b.ID, "name", b.Name, "price", d.EffectivePrice, "structure", structure.Kind)
	return ok(fmt.Sprintf("acquired %s", b.Name))
}

// weightedGrowth blends two growth rates by revenue.
func weightedGrowth(a, b *business.Business) float64 {
	total := a.Revenue + b.Revenue
	if total <= 0 {
		return (a.RevenueGrowthRate + b.RevenueGrowthRate) / 2
	}
	return (a.RevenueGrowthRate*float64(a.Revenue) + b.RevenueGrowthRate*float64(b.Revenue)) / float64(total)
}

// combine folds revenue and EBITDA plus synergy into target, keeping the
// revenue × margin relation.
func combine(target *business.Business, revenue, ebitda int64) {
	if revenue <= 0 {
		target.SetFinancials(0, target.EbitdaMargin)
		return
	}
	target.SetFinancials(revenue, float64(ebitda)/float64(revenue))
}

// rebaseAcquisition adds a bolt-on's bought revenue and EBITDA, synergy
// included, to the platform's acquisition baseline. Earn-outs measure growth
// from that baseline, so only organic growth counts.
func rebaseAcquisition(platform, bolt *business.Business, synergy int64) {
	platform.AcquisitionRevenue += bolt.AcquisitionRevenue
	platform.AcquisitionEbitda += bolt.AcquisitionEbitda + synergy
	if platform.AcquisitionRevenue > 0 {
		platform.AcquisitionMargin = float64(platform.AcquisitionEbitda) / float64(platform.AcquisitionRevenue)
	}
}

// AcquireTuckIn buys a deal and folds it into an existing platform in the
// same sector.
func (g *Game) AcquireTuckIn(dealID, platformID string, kind finance.StructureKind) Result {
	st := g.State
	if st.Phase == PhaseAllocate && !st.GameOver {
		p := st.FindBusiness(platformID)
		if p == nil || p.Status != business.StatusActive || !p.IsPlatform {
			return g.reject("%s is not an active platform", platformID)
		}
		if d, _ := business.FindDeal(st.Pipeline, dealID); d != nil && d.Business.SectorID != p.SectorID {
			return g.reject("tuck-ins must match the platform's sector")
		}
	}
	d, idx, structure, r, valid := g.acquisitionPrecheck(dealID, kind)
	if !valid {
		return r
	}
	platform := st.FindBusiness(platformID)
	if g.snatched(d, idx) {
		g.record(TuckInAction{DealID: d.ID, PlatformID: platformID, Structure: structure.Kind, Price: d.EffectivePrice, Snatched: true})
		return Result{Reason: "outbid by a rival buyer"}
	}

	bolt := d.Business
	bolt.MarkAcquired(st.Round, d.EffectivePrice)
	structure.Apply(bolt)

	affinity := integration.GetSubTypeAffinity(platform.SectorID, platform.SubType, bolt.SubType)
	size := integration.GetSizeRatioTier(bolt.Ebitda, platform.Ebitda)
	outcome := integration.DetermineIntegrationOutcome(integration.OutcomeInput{
		Acquired:          bolt,
		TargetPlatform:    platform,
		HasSharedServices: len(st.SharedServices) > 0,
		Affinity:          affinity,
		SizeTier:          size.Tier,
	}, g.stream(rng.LaneSimulation, "integrate_"+bolt.ID))
	synergy := integration.CalculateSynergies(outcome, bolt.Ebitda, true, affinity, size.Tier, false)

	prevScale, prevEbitda := platform.PlatformScale, platform.Ebitda
	growth := weightedGrowth(platform, bolt) + integration.GrowthDrag(outcome, affinity)
	combine(platform, platform.Revenue+bolt.Revenue, platform.Ebitda+bolt.Ebitda+synergy)
	platform.RevenueGrowthRate = growth
	platform.PlatformScale++
	platform.BoltOnIDs = append(platform.BoltOnIDs, bolt.ID)
	platform.SynergiesRealized += synergy
	platform.TotalAcquisitionCost += d.EffectivePrice
	rebaseAcquisition(platform, bolt, synergy)
	platform.MultipleExpansion += integration.IncrementalMultipleExpansion(prevScale, prevEbitda, platform.PlatformScale, platform.Ebitda)

	bolt.Status = business.StatusIntegrated
	bolt.ParentPlatformID = platform.ID
	st.Businesses = append(st.Businesses, bolt)
	st.Pipeline = business.RemoveDeal(st.Pipeline, idx)
	st.Cash -= structure.Cash
	g.refreshDebt()

	g.record(TuckInAction{
		DealID: d.ID, BusinessID: bolt.ID, PlatformID: platform.ID, Structure: structure.Kind,
		Price: d.EffectivePrice, Outcome: string(outcome), Synergies: synergy,
	})
	slog.Info("tuck-in", "round", st.Round, "platform", platform.ID, "bolt_on", bolt.ID, "outcome", outcome, "synergy", synergy, "affinity", affinity, "size", size.Tier)
	return ok(fmt.Sprintf("%s folded into %s (%s)", bolt.Name, platform.Name, outcome))
}

// mergeCostRate is the integration cost of a merger as a share of the
// combined EBITDA.
const mergeCostRate = 0.05

// MergeCost is what merging two businesses costs up front.
func MergeCost(a, b *business.Business) int64 {
	return max(100, int64(math.Round(float64(a.Ebitda+b.Ebitda)*mergeCostRate)))
}

// MergeBusinesses combines two active businesses of one sector into a new
// platform. The originals end with status merged; their debts, earn-outs
// and bolt-ons move to the merged company.
func (g *Game) MergeBusinesses(firstID, secondID string) Result {
	if r, ok := g.requirePhase(PhaseAllocate); !ok {
		return r
	}
	st := g.State
	a, b := st.FindBusiness(firstID), st.FindBusiness(secondID)
	if a == nil || b == nil || firstID == secondID {
		return g.reject("merge needs two distinct businesses")
	}
	if a.Status != business.StatusActive || b.Status != business.StatusActive {
		return g.reject("only active businesses can merge")
	}
	if a.SectorID != b.SectorID {
		return g.reject("merged businesses must share a sector")
	}
	cost := MergeCost(a, b)
	if st.Cash < cost {
		return g.reject("insufficient cash: merger costs %d", cost)
	}

	larger, smaller := a, b
	if b.Ebitda > a.Ebitda {
		larger, smaller = b, a
	}
	affinity := integration.GetSubTypeAffinity(a.SectorID, a.SubType, b.SubType)
	size := integration.GetSizeRatioTier(smaller.Ebitda, larger.Ebitda)
	outcome := integration.DetermineIntegrationOutcome(integration.OutcomeInput{
		Acquired:          smaller,
		TargetPlatform:    larger,
		HasSharedServices: len(st.SharedServices) > 0,
		Affinity:          affinity,
		SizeTier:          size.Tier,
		IsMerger:          true,
	}, g.stream(rng.LaneSimulation, "merge_"+a.ID+"_"+b.ID))
	synergy := integration.CalculateSynergies(outcome, smaller.Ebitda, false, affinity, size.Tier, true)

	m := larger.Clone()
	m.ID = g.gen.IDs.NextBusinessID()
	m.Name = larger.Name + " Group"
	g.gen.Names.Reserve(m.Name)
	combine(m, a.Revenue+b.Revenue, a.Ebitda+b.Ebitda+synergy)
	m.RevenueGrowthRate = weightedGrowth(a, b) + integration.GrowthDrag(outcome, affinity)
	m.MarginDriftRate = (a.MarginDriftRate + b.MarginDriftRate) / 2
	wa, wb := max(a.Ebitda, 1), max(b.Ebitda, 1)
	m.QualityRating = int(math.Round(float64(int64(a.QualityRating)*wa+int64(b.QualityRating)*wb) / float64(wa+wb)))
	m.AcquisitionRevenue = a.AcquisitionRevenue + b.AcquisitionRevenue
	m.AcquisitionEbitda = a.AcquisitionEbitda + b.AcquisitionEbitda
	m.AcquisitionPrice = a.AcquisitionPrice + b.AcquisitionPrice
	m.AcquisitionRound = min(a.AcquisitionRound, b.AcquisitionRound)
	if m.AcquisitionRevenue > 0 {
		m.AcquisitionMargin = float64(m.AcquisitionEbitda) / float64(m.AcquisitionRevenue)
	}
	if m.AcquisitionEbitda > 0 {
		m.AcquisitionMultiple = math.Round(float64(m.AcquisitionPrice)/float64(m.AcquisitionEbitda)*10) / 10
	}
	m.TotalAcquisitionCost = a.TotalAcquisitionCost + b.TotalAcquisitionCost + cost
	m.IsPlatform = true
	m.PlatformScale = a.PlatformScale + b.PlatformScale + 1
	m.BoltOnIDs = append(append([]string{a.ID, b.ID}, a.BoltOnIDs...), b.BoltOnIDs...)
	m.SynergiesRealized = a.SynergiesRealized + b.SynergiesRealized + synergy
	m.MultipleExpansion = integration.CalculateMultipleExpansion(m.PlatformScale, m.Ebitda)
	m.Improvements = nil
	moveDebts(m, a, b)

	for _, child := range st.Businesses {
		if child.ParentPlatformID == a.ID || child.ParentPlatformID == b.ID {
			child.ParentPlatformID = m.ID
		}
	}
	a.Status, b.Status = business.StatusMerged, business.StatusMerged
	a.ParentPlatformID, b.ParentPlatformID = m.ID, m.ID
	st.Businesses = append(st.Businesses, m)
	st.Cash -= cost
	g.refreshDebt()

	g.record(MergeAction{FirstID: a.ID, SecondID: b.ID, MergedID: m.ID, Outcome: string(outcome), Synergies: synergy, Cost: cost})
	slog.Info("merged", "round", st.Round, "first", a.ID, "second", b.ID, "merged", m.ID, "outcome", outcome, "synergy", synergy)
	return ok(fmt.Sprintf("%s formed (%s)", m.Name, outcome))
}

// moveDebts consolidates the sub-ledgers of a and b onto m and clears them
// from the originals.
func moveDebts(m, a, b *business.Business) {
	blend := func(x, y int64, rx, ry float64) float64 {
		if x+y == 0 {
			return 0
		}
		return (rx*float64(x) + ry*float64(y)) / float64(x+y)
	}
	m.SellerNoteRate = blend(a.SellerNoteBalance, b.SellerNoteBalance, a.SellerNoteRate, b.SellerNoteRate)
	m.SellerNoteBalance = a.SellerNoteBalance + b.SellerNoteBalance
	m.SellerNoteRoundsRemaining = max(a.SellerNoteRoundsRemaining, b.SellerNoteRoundsRemaining)
	m.BankDebtRate = blend(a.BankDebtBalance, b.BankDebtBalance, a.BankDebtRate, b.BankDebtRate)
	m.BankDebtBalance = a.BankDebtBalance + b.BankDebtBalance
	m.BankDebtRoundsRemaining = max(a.BankDebtRoundsRemaining, b.BankDebtRoundsRemaining)
	m.EarnoutRemaining = a.EarnoutRemaining + b.EarnoutRemaining
	m.EarnoutTargetGrowth = math.Max(a.EarnoutTargetGrowth, b.EarnoutTargetGrowth)
	for _, x := range []*business.Business{a, b} {
		x.SellerNoteBalance, x.SellerNoteRoundsRemaining = 0, 0
		x.BankDebtBalance, x.BankDebtRoundsRemaining = 0, 0
		x.EarnoutRemaining = 0
	}
}

// platformCost is the one-off cost of standing up a platform.
func platformCost(b *business.Business) int64 {
	return max(200, int64(math.Round(float64(b.Ebitda)*0.10)))
}

// DesignatePlatform marks an active business as a platform for tuck-ins.
func (g *Game) DesignatePlatform(id string) Result {
	if r, ok := g.requirePhase(PhaseAllocate); !ok {
		return r
	}
	st := g.State
	b := st.FindBusiness(id)
	if b == nil || b.Status != business.StatusActive {
		return g.reject("business %s not found", id)
	}
	if b.IsPlatform {
		return g.reject("%s is already a platform", b.Name)
	}
	cost := platformCost(b)
	if st.Cash < cost {
		return g.reject("insufficient cash: platform setup costs %d", cost)
	}
	b.IsPlatform = true
	st.Cash -= cost
	g.record(DesignatePlatformAction{BusinessID: b.ID, Cost: cost})
	slog.Info("platform designated", "round", st.Round, "business", b.ID)
	return ok(fmt.Sprintf("%s is now a platform", b.Name))
}

// M&A sourcing tiers: one-off upgrade cost and annual subscription.
var (
	sourcingUpgradeCost = []int64{0, 500, 900, 1500}
	sourcingAnnual      = []int64{0, 150, 300, 500}
)

// MaxSourcingTier is the top M&A sourcing tier.
const MaxSourcingTier = 3

func sourcingAnnualCost(tier int) int64 {
	if tier <= 0 || tier >= len(sourcingAnnual) {
		return 0
	}
	return sourcingAnnual[tier]
}

// UpgradeMASourcing buys the next M&A sourcing tier.
func (g *Game) UpgradeMASourcing() Result {
	if r, ok := g.requirePhase(PhaseAllocate); !ok {
		return r
	}
	st := g.State
	if st.MASourcingTier >= MaxSourcingTier {
		return g.reject("sourcing is already at the top tier")
	}
	next := st.MASourcingTier + 1
	cost := sourcingUpgradeCost[next]
	if st.Cash < cost {
		return g.reject("insufficient cash: tier %d costs %d", next, cost)
	}
	st.Cash -= cost
	st.MASourcingTier = next
	g.record(UpgradeSourcingAction{Tier: next, Cost: cost})
	return ok(fmt.Sprintf("M&A sourcing tier %d", next))
}

// Paid sourcing.
const (
	sourceDealsCost  = 300
	sourceDealsCount = 3
)

// SourceDeals pays for an outbound search, optionally focused on a sector.
func (g *Game) SourceDeals(focusSector string) Result {
	if r, ok := g.requirePhase(PhaseAllocate); !ok {
		return r
	}
	st := g.State
	if st.Cash < sourceDealsCost {
		return g.reject("insufficient cash: sourcing costs %d", sourceDealsCost)
	}
	opts := g.pipelineOptions()
	opts.FocusSector = focusSector
	s := g.stream(rng.LaneDeals, fmt.Sprintf("source_%d", st.SourcingRuns))
	g.syncNames()
	deals := g.gen.GenerateSourcedDeals(st.Round, sourceDealsCount, opts, s)
	st.SourcingRuns++
	st.Cash -= sourceDealsCost
	st.Pipeline = append(st.Pipeline, deals...)

	ids := make([]string, len(deals))
	for i, d := range deals {
		ids[i] = d.ID
	}
	g.record(SourceDealsAction{FocusSector: focusSector, DealIDs: ids, Cost: sourceDealsCost})
	return ok(fmt.Sprintf("%d sourced deals added", len(deals)))
}
