package autopilot

import (
	"log/slog"

	"github.com/talgya/holdco/internal/engine"
	"github.com/talgya/holdco/internal/finance"
)

// maxDealsPerRound caps acquisitions so one flush year cannot drain the
// whole reserve.
const maxDealsPerRound = 2

// Turn makes the allocation decisions for the current round. It only acts in
// the allocate phase and returns the number of commands that succeeded.
func Turn(g *engine.Game) int {
	if g.State.Phase != engine.PhaseAllocate {
		return 0
	}
	done := 0
	apply := func(r engine.Result) {
		if r.OK {
			done++
		}
	}

	h := Triage(g)
	if id, accept, pending := decideChoice(g, h); pending {
		apply(g.ResolveEventChoice(id, accept))
		h = Triage(g)
	}

	switch h.CrisisLevel {
	case CrisisCritical, CrisisWarning:
		done += deleverage(g, h)
		return done
	}

	if b := platformCandidate(g.State); b != nil {
		apply(g.DesignatePlatform(b.ID))
	}

	bought := 0
	for _, d := range rankedDeals(g.State.Pipeline) {
		if bought >= maxDealsPerRound {
			break
		}
		h = Triage(g)
		if h.CrisisLevel != CrisisHealthy {
			break
		}
		s, ok := pickStructure(g.DealStructures(d.ID), h)
		if !ok {
			continue
		}
		var r engine.Result
		if p := platformFor(g.State, d); p != nil {
			r = g.AcquireTuckIn(d.ID, p.ID, s.Kind)
		} else {
			r = g.AcquireBusiness(d.ID, s.Kind)
		}
		if r.OK {
			bought++
			done++
		}
	}

	h = Triage(g)
	if h.LateGame && h.CrisisLevel == CrisisHealthy && h.FreeCash > 0 {
		apply(g.DistributeToOwners(h.FreeCash / 2))
	}
	return done
}

// deleverage pays debt down with free cash and, in a breach, sells the
// weakest business.
func deleverage(g *engine.Game, h Health) int {
	done := 0
	if h.FreeCash > 0 && g.State.HoldcoLoanBalance > 0 {
		if g.PayDownDebt(engine.HoldcoTarget, min(h.FreeCash, g.State.HoldcoLoanBalance)).OK {
			done++
		}
	}
	for _, b := range g.State.ActiveBusinesses() {
		free := Triage(g).FreeCash
		if free <= 0 {
			break
		}
		owed := b.BankDebtBalance + b.SellerNoteBalance
		if owed > 0 && g.PayDownDebt(b.ID, min(free, owed)).OK {
			done++
		}
	}
	if Triage(g).Metrics.Distress == finance.DistressBreach {
		if w := weakest(g.State); w != nil && len(g.State.ActiveBusinesses()) > 1 {
			if g.SellBusiness(w.ID).OK {
				done++
			}
		}
	}
	return done
}

// Step advances the game by one phase, making decisions where the phase
// calls for them. It returns false once the game is over.
func Step(g *engine.Game) bool {
	switch g.State.Phase {
	case engine.PhaseCollect:
		g.CollectAndAdvance()
	case engine.PhaseEvent:
		g.AdvanceToAllocate()
	case engine.PhaseAllocate:
		Turn(g)
		g.EndRound()
	case engine.PhaseRestructure:
		g.CompleteRestructuring()
	}
	return !g.State.GameOver
}

// Play runs the game to the end and returns the final score.
func Play(g *engine.Game) engine.Score {
	for Step(g) {
	}
	st := g.State
	slog.Debug("autopilot finished", "game", st.GameID, "rounds", st.Round, "businesses", len(st.ActiveBusinesses()))
	if st.FinalScore == nil {
		return engine.CalculateScore(st)
	}
	return *st.FinalScore
}
