package engine

import (
	"github.com/talgya/holdco/internal/business"
	"github.com/talgya/holdco/internal/events"
)

// ResolveEventChoice accepts or declines the pending choice event.
func (g *Game) ResolveEventChoice(eventID string, accept bool) Result {
	if r, ok := g.requirePhase(PhaseEvent, PhaseAllocate); !ok {
		return r
	}
	st := g.State
	ev := st.CurrentEvent
	if ev == nil || ev.ID != eventID || !ev.Choice {
		return g.reject("event %s is not awaiting a decision", eventID)
	}
	if ev.Resolved {
		return g.reject("event %s was already resolved", eventID)
	}
	if cost := events.ChoiceCost(ev, accept); cost > st.Cash {
		return g.reject("insufficient cash: accepting costs %d", cost)
	}
	if accept && ev.Kind == events.KindUnsolicitedOffer {
		if b := st.FindBusiness(ev.BusinessID); b != nil && st.Cash+ev.Effect.OfferPrice-attachedDebt(st.family(b)) < 0 {
			return g.reject("the offer does not cover %s's debt", b.Name)
		}
	}
	return g.resolveChoice(ev, accept)
}

func (g *Game) resolveChoice(ev *events.Event, accept bool) Result {
	st := g.State
	out, applied := events.ResolveChoice(ev, accept, st.Businesses, &st.Ledger)
	g.record(EventChoiceAction{EventID: ev.ID, Accept: accept})
	if !applied {
		return ok("event lapsed")
	}
	if out.SellBusinessID != "" {
		if b := st.FindBusiness(out.SellBusinessID); b != nil && b.Status == business.StatusActive {
			return g.sell(b, out.SalePrice, true)
		}
	}
	g.refreshDebt()
	if accept {
		return ok("accepted")
	}
	return ok("declined")
}
