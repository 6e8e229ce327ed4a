// Package events selects the macro or portfolio event for a round and
// computes its numeric effects.
package events

import "github.com/talgya/holdco/internal/business"

// Kind identifies an event type.
type Kind string

// Global events.
const (
	KindBullMarket       Kind = Kind(business.EventBullMarket)
	KindRecession        Kind = Kind(business.EventRecession)
	KindRateHike         Kind = "global_rate_hike"
	KindRateCut          Kind = "global_rate_cut"
	KindInflation        Kind = "global_inflation"
	KindCreditTightening Kind = "global_credit_tightening"
	KindQuietYear        Kind = "global_quiet"
)

// Portfolio events.
const (
	KindKeyHire               Kind = "portfolio_key_hire"
	KindCEODeparture          Kind = "portfolio_ceo_departure"
	KindClientWin             Kind = "portfolio_client_win"
	KindClientLoss            Kind = "portfolio_client_loss"
	KindComplianceIssue       Kind = "portfolio_compliance"
	KindUnsolicitedOffer      Kind = "portfolio_unsolicited_offer"
	KindEquityDemand          Kind = "portfolio_equity_demand"
	KindSellerNoteRenegotiate Kind = "portfolio_seller_note_renegotiation"
)

// Scope says whether an event hits the market or one business.
type Scope string

const (
	ScopeGlobal    Scope = "global"
	ScopePortfolio Scope = "portfolio"
)

// Definition is a catalog entry.
type Definition struct {
	Kind   Kind
	Scope  Scope
	Name   string
	Weight float64
	Choice bool // surfaced to the player instead of applied
	// MinRound keeps harsh events out of the opening rounds.
	MinRound int
}

var catalog = []Definition{
	{Kind: KindBullMarket, Scope: ScopeGlobal, Name: "Bull Market", Weight: 10},
	{Kind: KindRecession, Scope: ScopeGlobal, Name: "Recession", Weight: 8, MinRound: 3},
	{Kind: KindRateHike, Scope: ScopeGlobal, Name: "Rate Hike", Weight: 7},
	{Kind: KindRateCut, Scope: ScopeGlobal, Name: "Rate Cut", Weight: 6},
	{Kind: KindInflation, Scope: ScopeGlobal, Name: "Inflation Spike", Weight: 6},
	{Kind: KindCreditTightening, Scope: ScopeGlobal, Name: "Credit Tightening", Weight: 5, MinRound: 3},
	{Kind: KindQuietYear, Scope: ScopeGlobal, Name: "Quiet Year", Weight: 14},

	{Kind: KindKeyHire, Scope: ScopePortfolio, Name: "Key Hire", Weight: 6},
	{Kind: KindCEODeparture, Scope: ScopePortfolio, Name: "CEO Departure", Weight: 5, MinRound: 2},
	{Kind: KindClientWin, Scope: ScopePortfolio, Name: "Major Client Win", Weight: 7},
	{Kind: KindClientLoss, Scope: ScopePortfolio, Name: "Major Client Loss", Weight: 6, MinRound: 2},
	{Kind: KindComplianceIssue, Scope: ScopePortfolio, Name: "Compliance Issue", Weight: 4},
	{Kind: KindUnsolicitedOffer, Scope: ScopePortfolio, Name: "Unsolicited Offer", Weight: 5, Choice: true, MinRound: 2},
	{Kind: KindEquityDemand, Scope: ScopePortfolio, Name: "Management Equity Demand", Weight: 4, Choice: true, MinRound: 3},
	{Kind: KindSellerNoteRenegotiate, Scope: ScopePortfolio, Name: "Seller Note Renegotiation", Weight: 4, Choice: true},
}

// Catalog returns all event definitions.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a definition by kind.
func Lookup(k Kind) (Definition, bool) {
	for _, d := range catalog {
		if d.Kind == k {
			return d, true
		}
	}
	return Definition{}, false
}

// IsChoice reports whether the kind waits for a player decision.
func IsChoice(k Kind) bool {
	d, ok := Lookup(k)
	return ok && d.Choice
}
