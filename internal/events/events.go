package events

import (
	"fmt"
	"math"

	"github.com/talgya/holdco/internal/business"
	"github.com/talgya/holdco/internal/finance"
	"github.com/talgya/holdco/internal/rng"
)

// Effect holds the numeric consequences of an event. Fields not relevant to
// the kind stay zero.
type Effect struct {
	RevenueChange  float64 `json:"revenue_change,omitempty"` // fraction
	MarginChange   float64 `json:"margin_change,omitempty"`  // absolute
	GrowthChange   float64 `json:"growth_change,omitempty"`
	QualityChange  int     `json:"quality_change,omitempty"`
	RateChange     float64 `json:"rate_change,omitempty"`
	MultipleChange float64 `json:"multiple_change,omitempty"`
	CashCost       int64   `json:"cash_cost,omitempty"`
	OfferPrice     int64   `json:"offer_price,omitempty"`
	EquityCost     int64   `json:"equity_cost,omitempty"`
	PayoffAmount   int64   `json:"payoff_amount,omitempty"`
	CreditTight    bool    `json:"credit_tight,omitempty"`
}

// Event is one round's drawn event.
type Event struct {
	ID           string `json:"id"`
	Kind         Kind   `json:"kind"`
	Scope        Scope  `json:"scope"`
	Round        int    `json:"round"`
	BusinessID   string `json:"business_id,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
	Effect       Effect `json:"effect"`
	Choice       bool   `json:"choice,omitempty"`
	Resolved     bool   `json:"resolved,omitempty"`
	EffectText   string `json:"effect_text"`
	Narrative    string `json:"narrative,omitempty"` // display only
}

// Context is the slice of game state event selection reads.
type Context struct {
	Round      int
	MaxRounds  int
	Businesses []*business.Business
	History    []Kind // earlier rounds, oldest first
	Cycle      *MarketCycle
}

func (c Context) lastKind() Kind {
	if len(c.History) == 0 {
		return ""
	}
	return c.History[len(c.History)-1]
}

func (c Context) recent(k Kind, n int) bool {
	for i := len(c.History) - 1; i >= 0 && i >= len(c.History)-n; i-- {
		if c.History[i] == k {
			return true
		}
	}
	return false
}

func activeBusinesses(list []*business.Business) []*business.Business {
	var out []*business.Business
	for _, b := range list {
		if b.Status == business.StatusActive {
			out = append(out, b)
		}
	}
	return out
}

// eligible returns the businesses a portfolio event can target.
func eligible(k Kind, list []*business.Business) []*business.Business {
	var out []*business.Business
	for _, b := range activeBusinesses(list) {
		switch k {
		case KindSellerNoteRenegotiate:
			if b.SellerNoteBalance <= 0 {
				continue
			}
		case KindUnsolicitedOffer, KindEquityDemand:
			if b.Ebitda <= 0 {
				continue
			}
		}
		out = append(out, b)
	}
	return out
}

// Weights returns the selection weight of every catalog entry for a context.
func Weights(ctx Context) []float64 {
	sentiment := ctx.Cycle.Sentiment(ctx.Round)
	active := len(activeBusinesses(ctx.Businesses))
	weights := make([]float64, len(catalog))
	for i, d := range catalog {
		w := d.Weight
		if ctx.Round < d.MinRound {
			continue
		}
		if d.Scope == ScopePortfolio {
			if len(eligible(d.Kind, ctx.Businesses)) == 0 {
				continue
			}
			w *= math.Min(1+0.15*float64(active-1), 2)
		}
		switch d.Kind {
		case KindBullMarket:
			w *= 1 + sentiment
		case KindRecession:
			w *= 1 - sentiment
			if ctx.recent(KindRecession, 2) {
				w *= 0.5
			}
		case KindCreditTightening:
			if ctx.MaxRounds > 0 && ctx.Round*4 >= ctx.MaxRounds*3 {
				w *= 1.25
			}
		}
		if d.Kind != KindQuietYear && d.Kind == ctx.lastKind() {
			w *= 0.25
		}
		weights[i] = math.Max(w, 0)
	}
	return weights
}

// GenerateEvent draws the round's event. A quiet year yields nil.
func GenerateEvent(ctx Context, s *rng.Stream) *Event {
	weights := Weights(ctx)
	d := catalog[rng.WeightedIndex(s, weights)]
	if d.Kind == KindQuietYear {
		return nil
	}
	ev := &Event{
		ID:     fmt.Sprintf("evt_%d_%s", ctx.Round, d.Kind),
		Kind:   d.Kind,
		Scope:  d.Scope,
		Round:  ctx.Round,
		Choice: d.Choice,
	}
	fx := s.Fork(string(d.Kind))
	var target *business.Business
	if d.Scope == ScopePortfolio {
		target = rng.Pick(fx, eligible(d.Kind, ctx.Businesses))
		ev.BusinessID = target.ID
		ev.BusinessName = target.Name
	}
	ev.Effect = computeEffect(d.Kind, target, fx)
	ev.EffectText = describe(ev)
	return ev
}

// computeEffect is a pure function of the kind, the target and the draws.
func computeEffect(k Kind, b *business.Business, s *rng.Stream) Effect {
	var e Effect
	switch k {
	case KindBullMarket:
		e.RevenueChange = round3(s.Range(0.03, 0.06))
		e.MultipleChange = 0.5
	case KindRecession:
		e.RevenueChange = -round3(s.Range(0.05, 0.12))
		e.MarginChange = -0.01
		e.MultipleChange = -0.5
	case KindRateHike:
		e.RateChange = 0.01
	case KindRateCut:
		e.RateChange = -0.01
	case KindInflation:
		e.RevenueChange = 0.02
		e.MarginChange = -round3(s.Range(0.01, 0.02))
	case KindCreditTightening:
		e.CreditTight = true
		e.MultipleChange = -0.3
	case KindKeyHire:
		e.QualityChange = 1
		e.GrowthChange = 0.01
	case KindCEODeparture:
		e.QualityChange = -1
		e.MarginChange = -0.02
	case KindClientWin:
		e.RevenueChange = round3(s.Range(0.08, 0.15))
	case KindClientLoss:
		loss := s.Range(0.08, 0.15)
		if b.DueDiligence.RevenueConcentration == business.ConcentrationHigh {
			loss *= 1.5
		}
		e.RevenueChange = -round3(loss)
	case KindComplianceIssue:
		e.CashCost = int64(s.NextInt(100, 400))
		e.MarginChange = -0.01
	case KindUnsolicitedOffer:
		premium := s.Range(1.0, 2.0)
		multiple := b.AcquisitionMultiple
		if multiple <= 0 {
			multiple = business.SectorOrDefault(b.SectorID).Multiple[0]
		}
		e.OfferPrice = int64(math.Round(float64(b.Ebitda) * (multiple + premium)))
	case KindEquityDemand:
		value := float64(b.Ebitda) * math.Max(b.AcquisitionMultiple, 3)
		e.EquityCost = int64(math.Round(value * s.Range(0.03, 0.06)))
		e.GrowthChange = 0.01
	case KindSellerNoteRenegotiate:
		e.PayoffAmount = int64(math.Round(float64(b.SellerNoteBalance) * 0.90))
		e.RateChange = 0.02
	}
	return e
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

func pct(v float64) string { return fmt.Sprintf("%.1f%%", math.Abs(v)*100) }

// describe builds the one-line effect text used when no narrative arrives.
func describe(ev *Event) string {
	e := ev.Effect
	switch ev.Kind {
	case KindBullMarket:
		return fmt.Sprintf("Revenue up %s across the portfolio; exit multiples +%.1fx.", pct(e.RevenueChange), e.MultipleChange)
	case KindRecession:
		return fmt.Sprintf("Revenue down about %s, margins compress 1pt; exit multiples %.1fx.", pct(e.RevenueChange), e.MultipleChange)
	case KindRateHike:
		return "Floating rates rise 1pt on the holdco loan and bank debt."
	case KindRateCut:
		return "Floating rates fall 1pt on the holdco loan and bank debt."
	case KindInflation:
		return fmt.Sprintf("Prices rise 2%%, but input costs take %s off margins.", pct(e.MarginChange))
	case KindCreditTightening:
		return "Banks pull back: no new acquisition debt this year and multiples soften."
	case KindKeyHire:
		return fmt.Sprintf("%s lands a strong hire: quality +1, growth +1pt.", ev.BusinessName)
	case KindCEODeparture:
		return fmt.Sprintf("%s loses its CEO: quality -1, margin -2pt.", ev.BusinessName)
	case KindClientWin:
		return fmt.Sprintf("%s wins a major client: revenue +%s.", ev.BusinessName, pct(e.RevenueChange))
	case KindClientLoss:
		return fmt.Sprintf("%s loses a major client: revenue -%s.", ev.BusinessName, pct(e.RevenueChange))
	case KindComplianceIssue:
		return fmt.Sprintf("%s faces a compliance issue: %d in remediation costs.", ev.BusinessName, e.CashCost)
	case KindUnsolicitedOffer:
		return fmt.Sprintf("A buyer offers %d for %s.", e.OfferPrice, ev.BusinessName)
	case KindEquityDemand:
		return fmt.Sprintf("Management at %s wants equity worth %d.", ev.BusinessName, e.EquityCost)
	case KindSellerNoteRenegotiate:
		return fmt.Sprintf("The seller of %s offers to settle the note early for %d.", ev.BusinessName, e.PayoffAmount)
	}
	return ""
}

func find(list []*business.Business, id string) *business.Business {
	for _, b := range list {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// minFloatingRate floors rates moved by rate events.
const minFloatingRate = 0.03

func shiftRate(r, delta float64) float64 {
	if r <= 0 {
		return r
	}
	return math.Max(minFloatingRate, r+delta)
}

// Apply executes a non-choice event against the portfolio and ledger. Choice
// events are left untouched; the caller resolves them with ResolveChoice.
// It returns false if nothing was applied.
func Apply(ev *Event, list []*business.Business, l *finance.Ledger) bool {
	if ev == nil || ev.Choice || ev.Resolved {
		return false
	}
	e := ev.Effect
	switch ev.Scope {
	case ScopeGlobal:
		for _, b := range activeBusinesses(list) {
			change := e.RevenueChange
			if ev.Kind == KindRecession {
				change *= business.SectorOrDefault(b.SectorID).RecessionSensitivity
			}
			applyToBusiness(b, change, e)
		}
		if e.RateChange != 0 {
			l.HoldcoLoanRate = shiftRate(l.HoldcoLoanRate, e.RateChange)
			for _, b := range list {
				if b.IsOwned() {
					b.BankDebtRate = shiftRate(b.BankDebtRate, e.RateChange)
				}
			}
		}
	case ScopePortfolio:
		b := find(list, ev.BusinessID)
		if b == nil {
			return false
		}
		applyToBusiness(b, e.RevenueChange, e)
		if e.QualityChange != 0 {
			ceiling := business.SectorOrDefault(b.SectorID).QualityCeiling
			q := b.QualityRating + e.QualityChange
			if e.QualityChange > 0 && q > ceiling {
				q = max(ceiling, b.QualityRating)
			}
			b.QualityRating = max(1, min(q, 5))
		}
		if ev.Kind == KindCEODeparture {
			b.DueDiligence.OperatorQuality = business.OperatorWeak
		}
		if e.CashCost > 0 {
			paid := min(l.Cash, e.CashCost)
			l.Cash -= paid
			l.DeferredCosts += e.CashCost - paid
		}
	}
	ev.Resolved = true
	return true
}

func applyToBusiness(b *business.Business, revenueChange float64, e Effect) {
	revenue := b.Revenue
	if revenueChange != 0 {
		revenue = int64(math.Round(float64(b.Revenue) * (1 + revenueChange)))
	}
	b.SetFinancials(revenue, b.EbitdaMargin+e.MarginChange)
	b.RevenueGrowthRate += e.GrowthChange
}

// ChoiceOutcome tells the caller what a resolved choice requires beyond the
// mutations ResolveChoice already made.
type ChoiceOutcome struct {
	CashDelta      int64  `json:"cash_delta"`
	SellBusinessID string `json:"sell_business_id,omitempty"`
	SalePrice      int64  `json:"sale_price,omitempty"`
}

// ChoiceCost is the cash an accept needs up front.
func ChoiceCost(ev *Event, accept bool) int64 {
	if ev == nil || !accept {
		return 0
	}
	switch ev.Kind {
	case KindEquityDemand:
		return ev.Effect.EquityCost
	case KindSellerNoteRenegotiate:
		return ev.Effect.PayoffAmount
	}
	return 0
}

// ResolveChoice applies the player's accept/decline. The caller checks
// ChoiceCost against cash first and carries out any sale it reports.
func ResolveChoice(ev *Event, accept bool, list []*business.Business, l *finance.Ledger) (ChoiceOutcome, bool) {
	if ev == nil || !ev.Choice || ev.Resolved {
		return ChoiceOutcome{}, false
	}
	b := find(list, ev.BusinessID)
	if b == nil || !b.IsOwned() {
		ev.Resolved = true
		return ChoiceOutcome{}, false
	}
	var out ChoiceOutcome
	switch ev.Kind {
	case KindUnsolicitedOffer:
		if accept {
			out.SellBusinessID = b.ID
			out.SalePrice = ev.Effect.OfferPrice
		}
	case KindEquityDemand:
		if accept {
			out.CashDelta = -ev.Effect.EquityCost
			b.RevenueGrowthRate += ev.Effect.GrowthChange
			b.DueDiligence.OperatorQuality = business.OperatorStrong
		} else {
			b.RevenueGrowthRate -= 0.01
			b.SetMargin(b.EbitdaMargin - 0.02)
		}
	case KindSellerNoteRenegotiate:
		if accept {
			out.CashDelta = -ev.Effect.PayoffAmount
			b.SellerNoteBalance = 0
			b.SellerNoteRoundsRemaining = 0
		} else {
			b.SellerNoteRate += ev.Effect.RateChange
		}
	}
	l.Cash += out.CashDelta
	ev.Resolved = true
	return out, true
}
