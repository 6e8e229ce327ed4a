package autopilot

import (
	"sort"

	"github.com/talgya/holdco/internal/business"
	"github.com/talgya/holdco/internal/engine"
	"github.com/talgya/holdco/internal/events"
	"github.com/talgya/holdco/internal/finance"
)

// offerPremium is how far above fair value an unsolicited offer must be
// before the autopilot sells.
const offerPremium = 1.15

// decideChoice answers the pending choice event, if any. The last value
// reports whether there was a choice to make.
func decideChoice(g *engine.Game, h Health) (id string, accept, pending bool) {
	ev := g.State.CurrentEvent
	if ev == nil || !ev.Choice || ev.Resolved {
		return "", false, false
	}
	b := g.State.FindBusiness(ev.BusinessID)
	if b == nil {
		return ev.ID, false, true
	}
	switch ev.Kind {
	case events.KindUnsolicitedOffer:
		fair := engine.BusinessValue(b, g.State.MarketMultipleAdj)
		rich := float64(ev.Effect.OfferPrice) >= float64(fair)*offerPremium
		return ev.ID, rich || h.CrisisLevel == CrisisCritical, true
	case events.KindEquityDemand:
		return ev.ID, h.CrisisLevel == CrisisHealthy && ev.Effect.EquityCost <= h.FreeCash/4, true
	case events.KindSellerNoteRenegotiate:
		return ev.ID, ev.Effect.PayoffAmount < b.SellerNoteBalance && ev.Effect.PayoffAmount <= h.FreeCash, true
	}
	return ev.ID, false, true
}

// dealScore ranks deals: cheap multiples of good businesses first.
func dealScore(d *business.Deal) float64 {
	if d.Business.Ebitda <= 0 {
		return -1
	}
	multiple := float64(d.EffectivePrice) / float64(d.Business.Ebitda)
	return float64(d.Business.QualityRating) - multiple + d.Business.RevenueGrowthRate*10
}

// rankedDeals returns the pipeline ordered best first, ties by id.
func rankedDeals(pipeline []*business.Deal) []*business.Deal {
	out := append([]*business.Deal(nil), pipeline...)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := dealScore(out[i]), dealScore(out[j])
		if si != sj {
			return si > sj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// pickStructure prefers the option that keeps the most cash while leverage
// stays comfortable.
func pickStructure(opts []finance.DealStructure, h Health) (finance.DealStructure, bool) {
	preferred := []finance.StructureKind{finance.StructureEarnout, finance.StructureSellerNote, finance.StructureAllCash}
	if h.CrisisLevel == CrisisHealthy && !h.LateGame {
		preferred = append([]finance.StructureKind{finance.StructureBankDebt}, preferred...)
	}
	for _, k := range preferred {
		if s, ok := finance.FindStructure(opts, k); ok && s.Cash <= h.FreeCash {
			return s, true
		}
	}
	return finance.DealStructure{}, false
}

// platformFor returns an active platform in the deal's sector.
func platformFor(st *engine.GameState, d *business.Deal) *business.Business {
	for _, p := range st.Platforms() {
		if p.SectorID == d.Business.SectorID {
			return p
		}
	}
	return nil
}

// platformCandidate is the largest active non-platform business in a
// sector that already holds two or more opcos.
func platformCandidate(st *engine.GameState) *business.Business {
	bySector := map[string][]*business.Business{}
	for _, b := range st.ActiveBusinesses() {
		bySector[b.SectorID] = append(bySector[b.SectorID], b)
	}
	var best *business.Business
	for _, b := range st.ActiveBusinesses() {
		list := bySector[b.SectorID]
		if len(list) < 2 || b.IsPlatform {
			continue
		}
		hasPlatform := false
		for _, x := range list {
			hasPlatform = hasPlatform || x.IsPlatform
		}
		if hasPlatform {
			continue
		}
		if best == nil || b.Ebitda > best.Ebitda || (b.Ebitda == best.Ebitda && b.ID < best.ID) {
			best = b
		}
	}
	return best
}

// weakest is the active business with the lowest EBITDA.
func weakest(st *engine.GameState) *business.Business {
	var w *business.Business
	for _, b := range st.ActiveBusinesses() {
		if w == nil || b.Ebitda < w.Ebitda || (b.Ebitda == w.Ebitda && b.ID < w.ID) {
			w = b
		}
	}
	return w
}
