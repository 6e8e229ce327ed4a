package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/holdco/internal/finance"
)

// HoldcoTarget addresses the holdco term loan in PayDownDebt.
const HoldcoTarget = "holdco"

// PayDownDebt prepays principal. A business target pays its bank debt
// first, then its seller note.
func (g *Game) PayDownDebt(target string, amount int64) Result {
	if r, ok := g.requirePhase(PhaseAllocate); !ok {
		return r
	}
	st := g.State
	if amount <= 0 {
		return g.reject("amount must be positive")
	}
	if amount > st.Cash {
		return g.reject("insufficient cash: have %d", st.Cash)
	}

	var paid int64
	if target == HoldcoTarget {
		paid = min(amount, st.HoldcoLoanBalance)
		st.HoldcoLoanBalance -= paid
		if st.HoldcoLoanBalance == 0 {
			st.HoldcoLoanRoundsRemaining = 0
		}
	} else {
		b := st.FindBusiness(target)
		if b == nil || !b.IsOwned() {
			return g.reject("business %s not found", target)
		}
		bank := min(amount, b.BankDebtBalance)
		b.BankDebtBalance -= bank
		note := min(amount-bank, b.SellerNoteBalance)
		b.SellerNoteBalance -= note
		if b.BankDebtBalance == 0 {
			b.BankDebtRoundsRemaining = 0
		}
		if b.SellerNoteBalance == 0 {
			b.SellerNoteRoundsRemaining = 0
		}
		paid = bank + note
	}
	if paid == 0 {
		return g.reject("nothing outstanding on %s", target)
	}
	st.Cash -= paid
	g.refreshDebt()
	g.record(PayDownDebtAction{Target: target, Amount: paid})
	return ok(fmt.Sprintf("repaid %d", paid))
}

// Issue pricing discounts to the current per-share value.
const (
	issueDiscount         = 0.9
	distressIssueDiscount = 0.7
)

// IssuePrice is the per-share price new investors pay this round.
func (g *Game) IssuePrice() float64 {
	m := ComputeMetrics(g.State)
	if m.Distress >= finance.DistressStressed {
		return m.ValuePerShare * distressIssueDiscount
	}
	return m.ValuePerShare * issueDiscount
}

// IssueEquity sells new shares to outside investors, at most once a round.
func (g *Game) IssueEquity(amount int64) Result {
	if r, ok := g.requirePhase(PhaseAllocate); !ok {
		return r
	}
	st := g.State
	if amount <= 0 {
		return g.reject("amount must be positive")
	}
	if st.EquityIssuedRound {
		return g.reject("equity was already raised this round")
	}
	price := g.IssuePrice()
	if price <= 0 {
		return g.reject("no investor will buy shares at zero equity value")
	}
	shares := int64(math.Round(float64(amount) / price))
	if shares <= 0 {
		return g.reject("amount buys no shares")
	}
	st.Cash += amount
	st.SharesOutstanding += shares
	st.EquityRaised += amount
	st.EquityIssuedRound = true
	g.record(IssueEquityAction{Amount: amount, Shares: shares, Price: price})
	slog.Info("equity issued", "round", st.Round, "amount", amount, "shares", shares, "ownership", st.FounderOwnership())
	return ok(fmt.Sprintf("issued %d shares", shares))
}

// BuybackShares retires outside shares at the current per-share value.
func (g *Game) BuybackShares(amount int64) Result {
	if r, ok := g.requirePhase(PhaseAllocate); !ok {
		return r
	}
	st := g.State
	if g.privilegedBlocked() {
		return g.reject("buybacks are frozen while covenants are in breach")
	}
	price := ComputeMetrics(st).ValuePerShare
	if amount <= 0 || price <= 0 {
		return g.reject("nothing to buy back")
	}
	shares := min(int64(float64(amount)/price), st.outsideShares())
	if shares <= 0 {
		return g.reject("no outside shares to buy back")
	}
	cost := int64(math.Round(float64(shares) * price))
	if cost > st.Cash {
		return g.reject("insufficient cash: buyback costs %d", cost)
	}
	st.Cash -= cost
	st.SharesOutstanding -= shares
	st.TotalBuybacks += cost
	g.record(BuybackAction{Amount: cost, Shares: shares, Price: price})
	return ok(fmt.Sprintf("bought back %d shares", shares))
}

// DistributeToOwners pays cash out to shareholders.
func (g *Game) DistributeToOwners(amount int64) Result {
	if r, ok := g.requirePhase(PhaseAllocate); !ok {
		return r
	}
	st := g.State
	if g.privilegedBlocked() {
		return g.reject("distributions are frozen while covenants are in breach")
	}
	if amount <= 0 || amount > st.Cash {
		return g.reject("invalid distribution %d with cash %d", amount, st.Cash)
	}
	st.Cash -= amount
	st.TotalDistributions += amount
	g.record(DistributeAction{Amount: amount})
	return ok(fmt.Sprintf("distributed %d", amount))
}

// outsideShares is what buybacks can retire.
func (s *GameState) outsideShares() int64 {
	return s.SharesOutstanding - s.FounderShares
}
