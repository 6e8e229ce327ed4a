package finance

import (
	"math"

	"github.com/talgya/holdco/internal/business"
)

// Trigger is the distress escalation a waterfall or covenant check demands.
type Trigger string

const (
	TriggerNone        Trigger = ""
	TriggerRestructure Trigger = "restructure"
	TriggerBankruptcy  Trigger = "bankruptcy"
)

// WaterfallInput is everything one round of cash flow depends on.
type WaterfallInput struct {
	Round       int
	Ledger      *Ledger
	Businesses  []*business.Business
	Costs       Costs
	RatePenalty float64 // added to the holdco loan rate
}

// WaterfallResult summarises one round of cash flow.
type WaterfallResult struct {
	StartingCash    int64        `json:"starting_cash"`
	Ebitda          int64        `json:"ebitda"`
	Capex           int64        `json:"capex"`
	Tax             int64        `json:"tax"`
	PreDebtFCF      int64        `json:"pre_debt_fcf"`
	OperatingCosts  int64        `json:"operating_costs"`
	DebtService     int64        `json:"debt_service"`
	EndingCash      int64        `json:"ending_cash"`
	Shortfall       int64        `json:"shortfall,omitempty"`
	PaymentsSkipped bool         `json:"payments_skipped,omitempty"`
	Obligations     []Obligation `json:"obligations"`
	Trigger         Trigger      `json:"trigger,omitempty"`
}

// Escalate returns the next distress step: restructuring the first time,
// bankruptcy once restructuring has been used.
func Escalate(l *Ledger) Trigger {
	if l.HasRestructured {
		return TriggerBankruptcy
	}
	return TriggerRestructure
}

// ScheduledInterest is the interest due this round across all lines, used
// as the tax shield.
func ScheduledInterest(l *Ledger, list []*business.Business, ratePenalty float64) int64 {
	total := interestOn(l.HoldcoLoanBalance, l.HoldcoLoanRate+ratePenalty)
	for _, b := range list {
		if !b.IsOwned() {
			continue
		}
		total += interestOn(b.SellerNoteBalance, b.SellerNoteRate)
		total += interestOn(b.BankDebtBalance, b.BankDebtRate)
	}
	return total
}

// PreDebtFCF computes EBITDA less capex, adjusted by shared services, less
// tax. Only standalone (active) businesses contribute; integrated bolt-ons
// are already inside their platform.
func PreDebtFCF(list []*business.Business, costs Costs, interest int64) (ebitda, capex, tax, fcf int64) {
	reduction := math.Min(math.Max(costs.CapexReduction, 0), 1)
	for _, b := range list {
		if b.Status != business.StatusActive {
			continue
		}
		ebitda += b.Ebitda
		rate := business.SectorOrDefault(b.SectorID).CapexRate
		capex += int64(math.Round(float64(b.Revenue) * rate * (1 - reduction)))
	}
	taxable := ebitda - interest - costs.SharedServices - costs.Sourcing
	if taxable > 0 {
		tax = int64(math.Round(float64(taxable) * TaxRate))
	}
	operating := ebitda - capex
	if operating > 0 && costs.ConversionBonus > 0 {
		operating = int64(math.Round(float64(operating) * (1 + costs.ConversionBonus)))
	}
	return ebitda, capex, tax, operating - tax
}

// RunWaterfall applies one round of cash flow in strict priority order:
// operating cash flow, fixed costs, holdco loan, then each business's seller
// note, earn-out and bank debt. Cash never ends below zero; a shortfall
// demands restructuring instead. Ledger and businesses are mutated in place.
func RunWaterfall(in WaterfallInput) WaterfallResult {
	l := in.Ledger
	res := WaterfallResult{StartingCash: l.Cash}

	interest := ScheduledInterest(l, in.Businesses, in.RatePenalty)
	res.Ebitda, res.Capex, res.Tax, res.PreDebtFCF = PreDebtFCF(in.Businesses, in.Costs, interest)
	res.OperatingCosts = in.Costs.Operating() + l.DeferredCosts
	l.DeferredCosts = 0

	cash := l.Cash + res.PreDebtFCF - res.OperatingCosts
	if cash < 0 {
		res.Shortfall = -cash
		cash = 0
		res.Trigger = Escalate(l)
	}

	// Holdco loan.
	if l.HoldcoLoanBalance > 0 {
		o := Obligation{
			Kind:         ObligationHoldcoLoan,
			InterestDue:  interestOn(l.HoldcoLoanBalance, l.HoldcoLoanRate+in.RatePenalty),
			PrincipalDue: amortization(l.HoldcoLoanBalance, l.HoldcoLoanRoundsRemaining),
		}
		cash = settle(&o, cash)
		l.HoldcoLoanBalance += (o.InterestDue - o.InterestPaid) - o.PrincipalPaid
		if l.HoldcoLoanRoundsRemaining > 0 {
			l.HoldcoLoanRoundsRemaining--
		}
		res.Obligations = append(res.Obligations, o)
	}

	byID := make(map[string]*business.Business, len(in.Businesses))
	for _, b := range in.Businesses {
		byID[b.ID] = b
	}

	for _, b := range in.Businesses {
		if !b.IsOwned() {
			continue
		}
		if b.SellerNoteBalance > 0 {
			o := Obligation{
				Kind:         ObligationSellerNote,
				BusinessID:   b.ID,
				InterestDue:  interestOn(b.SellerNoteBalance, b.SellerNoteRate),
				PrincipalDue: amortization(b.SellerNoteBalance, b.SellerNoteRoundsRemaining),
			}
			cash = settle(&o, cash)
			b.SellerNoteBalance += (o.InterestDue - o.InterestPaid) - o.PrincipalPaid
			if b.SellerNoteRoundsRemaining > 0 {
				b.SellerNoteRoundsRemaining--
			}
			res.Obligations = append(res.Obligations, o)
		}
		if b.EarnoutRemaining > 0 {
			o, ok := earnoutDue(b, byID, in.Round)
			if ok {
				if !o.Expired {
					cash = settle(&o, cash)
					b.EarnoutRemaining -= o.PrincipalPaid
				}
				res.Obligations = append(res.Obligations, o)
			}
		}
		if b.BankDebtBalance > 0 {
			o := Obligation{
				Kind:         ObligationBankDebt,
				BusinessID:   b.ID,
				InterestDue:  interestOn(b.BankDebtBalance, b.BankDebtRate),
				PrincipalDue: amortization(b.BankDebtBalance, b.BankDebtRoundsRemaining),
			}
			cash = settle(&o, cash)
			b.BankDebtBalance += (o.InterestDue - o.InterestPaid) - o.PrincipalPaid
			if b.BankDebtRoundsRemaining > 0 {
				b.BankDebtRoundsRemaining--
			}
			res.Obligations = append(res.Obligations, o)
		}
	}

	for _, o := range res.Obligations {
		res.DebtService += o.Paid()
		if o.Partial {
			res.PaymentsSkipped = true
		}
	}
	res.EndingCash = cash
	l.Cash = cash
	l.RecomputeDebt(in.Businesses)
	return res
}

// earnoutDue decides whether an earn-out is payable this round. An expired
// earn-out is zeroed without payment and reported with Expired set. The
// boolean is false when nothing happens this round.
func earnoutDue(b *business.Business, byID map[string]*business.Business, round int) (Obligation, bool) {
	o := Obligation{Kind: ObligationEarnout, BusinessID: b.ID}
	if round-b.AcquisitionRound > EarnoutExpirationYears {
		o.Expired = true
		b.EarnoutRemaining = 0
		return o, true
	}
	growth := b.EbitdaGrowthSinceAcquisition()
	if b.Status == business.StatusIntegrated {
		if parent, ok := byID[b.ParentPlatformID]; ok {
			growth = parent.EbitdaGrowthSinceAcquisition()
		}
	}
	if growth < b.EarnoutTargetGrowth {
		return o, false
	}
	o.PrincipalDue = b.EarnoutRemaining
	return o, true
}
