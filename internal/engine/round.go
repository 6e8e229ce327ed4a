package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/holdco/internal/business"
	"github.com/talgya/holdco/internal/events"
	"github.com/talgya/holdco/internal/finance"
	"github.com/talgya/holdco/internal/rng"
	"github.com/talgya/holdco/internal/turnaround"
)

// Organic noise around each business's own growth and drift rates.
const (
	growthNoise = 0.02
	driftNoise  = 0.005
)

// marketAdjDecay carries part of last round's multiple shift forward.
const marketAdjDecay = 0.5

// CollectAndAdvance closes out the year that just ended: organic growth,
// turnaround resolution, the cash waterfall and the covenant check. It then
// draws the round's event, refreshes the deal pipeline and moves to the
// event phase. Bankruptcy ends the game here.
func (g *Game) CollectAndAdvance() Result {
	if r, ok := g.requirePhase(PhaseCollect); !ok {
		return r
	}
	st := g.State
	st.Notifications = nil

	if st.Round > 1 {
		g.applyGrowth()
		g.resolveTurnarounds()
		res := g.runWaterfall()
		trigger := res.Trigger
		m := ComputeMetrics(st)
		st.Distress = m.Distress
		if t := finance.EvaluateCovenants(&st.Ledger, st.Distress); t != finance.TriggerNone && trigger != finance.TriggerBankruptcy {
			trigger = t
		}
		switch trigger {
		case finance.TriggerBankruptcy:
			g.declareBankruptcy("insolvent after restructuring")
			return Result{OK: true, Message: "bankrupt"}
		case finance.TriggerRestructure:
			st.RequiresRestructuring = true
			st.notify("error", "covenants breached: restructuring required at year end")
			slog.Warn("restructuring required", "game", st.GameID, "round", st.Round, "breach_rounds", st.CovenantBreachRounds)
		}
	}

	g.drawEvent()
	g.refreshPipeline()
	st.Phase = PhaseEvent
	slog.Info("round collected", "game", st.GameID, "round", st.Round, "cash", st.Cash, "distress", st.Distress)
	return ok(fmt.Sprintf("round %d collected", st.Round))
}

// AdvanceToAllocate moves from the event phase to capital allocation.
// Choice events may still be pending; they are declined at EndRound.
func (g *Game) AdvanceToAllocate() Result {
	if r, ok := g.requirePhase(PhaseEvent); !ok {
		return r
	}
	g.State.Phase = PhaseAllocate
	return ok("allocate")
}

// EndRound closes the allocation phase. A pending restructuring diverts to
// the restructure phase; otherwise the next round begins or the game ends.
func (g *Game) EndRound() Result {
	if r, ok := g.requirePhase(PhaseAllocate); !ok {
		return r
	}
	st := g.State
	if ev := st.CurrentEvent; ev != nil && ev.Choice && !ev.Resolved {
		g.resolveChoice(ev, false)
	}
	g.recordRound()
	if st.RequiresRestructuring {
		st.Phase = PhaseRestructure
		return ok("restructuring")
	}
	return g.finishRound()
}

// CompleteRestructuring applies the forced restructuring and moves on. The
// converted loan becomes new shares at a distressed price.
func (g *Game) CompleteRestructuring() Result {
	if r, ok := g.requirePhase(PhaseRestructure); !ok {
		return r
	}
	st := g.State
	converted := finance.Restructure(&st.Ledger, st.Businesses, finance.DefaultRestructuring)
	if converted > 0 {
		price := math.Max(ComputeMetrics(st).ValuePerShare*0.5, 0.01)
		shares := int64(math.Round(float64(converted) / price))
		st.SharesOutstanding += shares
	}
	st.RequiresRestructuring = false
	st.Distress = ComputeMetrics(st).Distress
	slog.Warn("restructuring completed", "game", st.GameID, "round", st.Round, "converted", converted)
	return g.finishRound()
}

func (g *Game) finishRound() Result {
	st := g.State
	if st.Round >= st.MaxRounds {
		g.endGame()
		return ok("game over")
	}
	st.Round++
	st.Phase = PhaseCollect
	st.AcquisitionAttempts = 0
	st.SourcingRuns = 0
	st.EquityIssuedRound = false
	st.ActionsThisRound = nil
	st.CreditTight = false
	return ok(fmt.Sprintf("round %d begins", st.Round))
}

func (g *Game) endGame() {
	st := g.State
	st.GameOver = true
	st.Phase = PhaseGameOver
	sc := CalculateScore(st)
	st.FinalScore = &sc
	slog.Info("game over", "game", st.GameID, "round", st.Round, "grade", sc.Grade, "founder_value", sc.FounderValue, "bankrupt", st.Bankrupt)
}

func (g *Game) declareBankruptcy(reason string) {
	st := g.State
	st.Bankrupt = true
	st.notify("error", "bankruptcy: "+reason)
	slog.Warn("bankruptcy", "game", st.GameID, "round", st.Round, "reason", reason)
	g.recordRound()
	g.endGame()
}

// applyGrowth moves each standalone business one year along its growth and
// drift rates, with per-business noise from the simulation lane.
func (g *Game) applyGrowth() {
	for _, b := range g.State.ActiveBusinesses() {
		s := g.stream(rng.LaneSimulation, "grow_"+b.ID)
		growth := b.RevenueGrowthRate + s.Range(-growthNoise, growthNoise)
		drift := b.MarginDriftRate + s.Range(-driftNoise, driftNoise)
		revenue := int64(math.Round(float64(b.Revenue) * (1 + growth)))
		b.SetFinancials(revenue, b.EbitdaMargin+drift)
	}
}

func (g *Game) resolveTurnarounds() {
	st := g.State
	concurrent := turnaround.CountActive(st.Turnarounds)
	for i := range st.Turnarounds {
		ta := &st.Turnarounds[i]
		if ta.Status != turnaround.StatusActive || ta.EndRound > st.Round {
			continue
		}
		b := st.FindBusiness(ta.BusinessID)
		p, ok := turnaround.LookupProgram(ta.ProgramID)
		if b == nil || !ok || b.Status != business.StatusActive {
			ta.Status = turnaround.StatusFailed
			continue
		}
		roll := g.stream(rng.LaneMarket, "turnaround_"+ta.ID).Next()
		ceiling := business.SectorOrDefault(b.SectorID).QualityCeiling
		res := turnaround.Resolve(p, b.QualityRating, ceiling, concurrent, roll)
		turnaround.Apply(b, res)
		ta.Status = turnaround.StatusFor(res.Result)
		st.notify("info", fmt.Sprintf("%s turnaround at %s: %s", p.Name, b.Name, res.Result))
		slog.Info("turnaround resolved", "business", b.ID, "program", p.ID, "result", res.Result, "quality", res.TargetQuality)
	}
}

// roundCosts gathers the fixed holdco costs for the waterfall.
func (g *Game) roundCosts() finance.Costs {
	st := g.State
	c := finance.SharedServiceCosts(st.SharedServices)
	c.Sourcing = sourcingAnnualCost(st.MASourcingTier)
	c.TurnaroundTier = turnaround.TierAnnualCost(st.TurnaroundTier)
	c.TurnaroundPrograms = turnaround.AnnualProgramCosts(st.Turnarounds)
	return c
}

func (g *Game) runWaterfall() finance.WaterfallResult {
	st := g.State
	res := finance.RunWaterfall(finance.WaterfallInput{
		Round:       st.Round,
		Ledger:      &st.Ledger,
		Businesses:  st.Businesses,
		Costs:       g.roundCosts(),
		RatePenalty: finance.RatePenalty(st.Distress),
	})
	st.LastWaterfall = &res
	if res.PaymentsSkipped {
		st.notify("error", "cash ran short: some debt payments were only partially made")
	}
	slog.Info("waterfall", "round", st.Round, "fcf", res.PreDebtFCF, "debt_service", res.DebtService, "cash", res.EndingCash, "skipped", res.PaymentsSkipped)
	return res
}

func (g *Game) drawEvent() {
	st := g.State
	ctx := events.Context{
		Round:      st.Round,
		MaxRounds:  st.MaxRounds,
		Businesses: st.Businesses,
		History:    st.EventHistory,
		Cycle:      g.cycle,
	}
	ev := events.GenerateEvent(ctx, g.stream(rng.LaneEvents, "event"))
	st.CurrentEvent = ev
	st.MarketMultipleAdj *= marketAdjDecay
	if ev == nil {
		st.EventHistory = append(st.EventHistory, events.KindQuietYear)
		return
	}
	st.EventHistory = append(st.EventHistory, ev.Kind)
	st.MarketMultipleAdj += ev.Effect.MultipleChange
	st.CreditTight = ev.Effect.CreditTight
	if events.Apply(ev, st.Businesses, &st.Ledger) {
		g.refreshDebt()
	}
	slog.Info("event drawn", "round", st.Round, "kind", ev.Kind, "business", ev.BusinessID, "choice", ev.Choice)
}

func (g *Game) lastEventType() string {
	if g.State.CurrentEvent == nil {
		return ""
	}
	return string(g.State.CurrentEvent.Kind)
}

func (g *Game) pipelineOptions() business.PipelineOptions {
	st := g.State
	var refs []business.PlatformRef
	for _, p := range st.Platforms() {
		refs = append(refs, business.PlatformRef{SectorID: p.SectorID, SubType: p.SubType})
	}
	return business.PipelineOptions{
		PortfolioEbitda: business.StandaloneEbitda(st.Businesses),
		Platforms:       refs,
		SourcingTier:    st.MASourcingTier,
		MaxRounds:       st.MaxRounds,
		LastEventType:   g.lastEventType(),
	}
}

func (g *Game) refreshPipeline() {
	st := g.State
	aged := business.AgeDeals(st.Pipeline)
	st.Pipeline = aged
	g.syncNames()
	st.Pipeline = g.gen.GenerateDealPipeline(aged, st.Round, g.pipelineOptions(), g.stream(rng.LaneDeals, "pipeline"))
}

func (g *Game) recordRound() {
	st := g.State
	m := ComputeMetrics(st)
	rec := RoundRecord{
		Round:            st.Round,
		Cash:             st.Cash,
		TotalDebt:        m.TotalDebt,
		Ebitda:           m.Ebitda,
		Revenue:          m.Revenue,
		Opcos:            m.Opcos,
		Distress:         st.Distress,
		ValuePerShare:    m.ValuePerShare,
		Waterfall:        st.LastWaterfall,
		Actions:          len(st.ActionsThisRound),
		AcquisitionTries: st.AcquisitionAttempts,
	}
	if st.CurrentEvent != nil {
		rec.EventKind = st.CurrentEvent.Kind
	}
	st.RoundHistory = append(st.RoundHistory, rec)
}
