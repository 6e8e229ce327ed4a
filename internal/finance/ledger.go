// Package finance runs the per-round cash waterfall and the distress state
// machine that escalates a struggling holdco toward restructuring.
package finance

import (
	"math"

	"github.com/talgya/holdco/internal/business"
)

// TaxRate is applied to EBITDA less deductible holdco costs.
const TaxRate = 0.25

// EarnoutExpirationYears is how long an unpaid earn-out stays live.
const EarnoutExpirationYears = 4

// Ledger is the portfolio-level balance sheet carried on the game snapshot.
type Ledger struct {
	Cash                      int64   `json:"cash"`
	HoldcoLoanBalance         int64   `json:"holdco_loan_balance"`
	HoldcoLoanRate            float64 `json:"holdco_loan_rate"`
	HoldcoLoanRoundsRemaining int     `json:"holdco_loan_rounds_remaining"`
	TotalDebt                 int64   `json:"total_debt"`
	CovenantBreachRounds      int     `json:"covenant_breach_rounds"`
	HasRestructured           bool    `json:"has_restructured"`
	// DeferredCosts are one-off charges that found no cash when incurred.
	// The next waterfall collects them with the fixed costs.
	DeferredCosts int64 `json:"deferred_costs,omitempty"`
}

// TotalDebt is the holdco loan plus bank debt of every owned business.
// Seller notes and earn-outs are vendor obligations and sit outside it.
func TotalDebt(l *Ledger, list []*business.Business) int64 {
	total := l.HoldcoLoanBalance
	for _, b := range list {
		if b.IsOwned() {
			total += b.BankDebtBalance
		}
	}
	return total
}

// SellerNoteTotal sums outstanding seller notes of owned businesses.
func SellerNoteTotal(list []*business.Business) int64 {
	var total int64
	for _, b := range list {
		if b.IsOwned() {
			total += b.SellerNoteBalance
		}
	}
	return total
}

// RecomputeDebt refreshes the derived TotalDebt field.
func (l *Ledger) RecomputeDebt(list []*business.Business) {
	l.TotalDebt = TotalDebt(l, list)
}

// ObligationKind names a debt-service line in the waterfall.
type ObligationKind string

const (
	ObligationHoldcoLoan ObligationKind = "holdco_loan"
	ObligationSellerNote ObligationKind = "seller_note"
	ObligationEarnout    ObligationKind = "earnout"
	ObligationBankDebt   ObligationKind = "bank_debt"
)

// Obligation records what was due and what was paid on one line.
type Obligation struct {
	Kind          ObligationKind `json:"kind"`
	BusinessID    string         `json:"business_id,omitempty"`
	InterestDue   int64          `json:"interest_due"`
	PrincipalDue  int64          `json:"principal_due"`
	InterestPaid  int64          `json:"interest_paid"`
	PrincipalPaid int64          `json:"principal_paid"`
	Partial       bool           `json:"partial,omitempty"`
	Expired       bool           `json:"expired,omitempty"`
}

// Due is the total scheduled payment.
func (o Obligation) Due() int64 { return o.InterestDue + o.PrincipalDue }

// Paid is the total amount actually paid.
func (o Obligation) Paid() int64 { return o.InterestPaid + o.PrincipalPaid }

// interestOn returns round(balance × rate) for a non-negative balance.
func interestOn(balance int64, rate float64) int64 {
	if balance <= 0 || rate <= 0 {
		return 0
	}
	return int64(math.Round(float64(balance) * rate))
}

// amortization returns the principal due this round: the full balance on
// the final round (balloon), otherwise an equal share of what remains.
func amortization(balance int64, roundsRemaining int) int64 {
	if balance <= 0 {
		return 0
	}
	if roundsRemaining <= 1 {
		return balance
	}
	return int64(math.Round(float64(balance) / float64(roundsRemaining)))
}

// settle pays an obligation out of cash, keeping the interest/principal split
// proportional when cash runs short. It returns the cash left.
func settle(o *Obligation, cash int64) int64 {
	due := o.Due()
	if due <= 0 {
		return cash
	}
	if cash <= 0 {
		o.Partial = true
		return cash
	}
	if cash >= due {
		o.InterestPaid = o.InterestDue
		o.PrincipalPaid = o.PrincipalDue
		return cash - due
	}
	o.Partial = true
	o.InterestPaid = int64(math.Round(float64(o.InterestDue) * float64(cash) / float64(due)))
	o.PrincipalPaid = cash - o.InterestPaid
	return 0
}
