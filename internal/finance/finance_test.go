package finance

import (
	"testing"

	"github.com/talgya/holdco/internal/business"
	"github.com/talgya/holdco/internal/rng"
)

func newBusiness(id string, revenue int64, margin float64) *business.Business {
	b := &business.Business{ID: id, SectorID: "saas", Status: business.StatusActive}
	b.SetFinancials(revenue, margin)
	b.AcquisitionEbitda = b.Ebitda
	b.AcquisitionRound = 1
	return b
}

func TestPreDebtFCF(t *testing.T) {
	b := newBusiness("biz_1", 10000, 0.20)
	ebitda, capex, tax, fcf := PreDebtFCF([]*business.Business{b}, Costs{}, 400)
	if ebitda != 2000 || capex != 300 {
		t.Fatalf("ebitda=%d capex=%d", ebitda, capex)
	}
	// (2000 - 400) × 25%
	if tax != 400 {
		t.Fatalf("tax = %d, want 400", tax)
	}
	if fcf != 1300 {
		t.Fatalf("fcf = %d, want 1300", fcf)
	}

	_, _, tax, _ = PreDebtFCF([]*business.Business{b}, Costs{SharedServices: 1500, Sourcing: 1000}, 0)
	if tax != 0 {
		t.Fatalf("tax with full shield = %d, want 0", tax)
	}

	_, capex, _, fcf = PreDebtFCF([]*business.Business{b}, Costs{CapexReduction: 0.5, ConversionBonus: 0.10}, 2000)
	if capex != 150 {
		t.Fatalf("reduced capex = %d, want 150", capex)
	}
	if fcf != 2035 {
		t.Fatalf("fcf with bonus = %d, want 2035", fcf)
	}
}

func TestIntegratedExcludedFromFCF(t *testing.T) {
	platform := newBusiness("biz_1", 10000, 0.20)
	bolt := newBusiness("biz_2", 5000, 0.20)
	bolt.Status = business.StatusIntegrated
	ebitda, _, _, _ := PreDebtFCF([]*business.Business{platform, bolt}, Costs{}, 0)
	if ebitda != 2000 {
		t.Fatalf("ebitda = %d, want platform only", ebitda)
	}
}

func TestPartialPaymentPreservesSplit(t *testing.T) {
	l := &Ledger{Cash: 100, HoldcoLoanBalance: 1000, HoldcoLoanRate: 0.10, HoldcoLoanRoundsRemaining: 5}
	res := RunWaterfall(WaterfallInput{Round: 2, Ledger: l})

	if len(res.Obligations) != 1 {
		t.Fatalf("obligations = %d", len(res.Obligations))
	}
	o := res.Obligations[0]
	if o.InterestDue != 100 || o.PrincipalDue != 200 {
		t.Fatalf("due = %d/%d", o.InterestDue, o.PrincipalDue)
	}
	if !o.Partial || !res.PaymentsSkipped {
		t.Fatal("expected partial payment flag")
	}
	if o.InterestPaid != 33 || o.PrincipalPaid != 67 {
		t.Fatalf("paid = %d/%d, want 33/67", o.InterestPaid, o.PrincipalPaid)
	}
	if l.Cash != 0 {
		t.Fatalf("cash = %d", l.Cash)
	}
	// unpaid interest accrues, paid principal reduces
	if l.HoldcoLoanBalance != 1000 {
		t.Fatalf("balance = %d, want 1000", l.HoldcoLoanBalance)
	}
	if l.HoldcoLoanRoundsRemaining != 4 {
		t.Fatalf("rounds remaining = %d", l.HoldcoLoanRoundsRemaining)
	}
}

func TestBalloonOnFinalRound(t *testing.T) {
	b := newBusiness("biz_1", 0, 0.10)
	b.SellerNoteBalance = 1000
	b.SellerNoteRate = 0.05
	b.SellerNoteRoundsRemaining = 1
	l := &Ledger{Cash: 5000}

	res := RunWaterfall(WaterfallInput{Round: 3, Ledger: l, Businesses: []*business.Business{b}})
	if len(res.Obligations) != 1 {
		t.Fatalf("obligations = %+v", res.Obligations)
	}
	o := res.Obligations[0]
	if o.PrincipalDue != 1000 || o.InterestDue != 50 {
		t.Fatalf("due = %d/%d", o.InterestDue, o.PrincipalDue)
	}
	if b.SellerNoteBalance != 0 || l.Cash != 3950 {
		t.Fatalf("balance=%d cash=%d", b.SellerNoteBalance, l.Cash)
	}
}

func TestWaterfallOrder(t *testing.T) {
	b := newBusiness("biz_1", 0, 0.10)
	b.SellerNoteBalance = 500
	b.SellerNoteRate = 0.05
	b.SellerNoteRoundsRemaining = 5
	b.BankDebtBalance = 500
	b.BankDebtRate = 0.08
	b.BankDebtRoundsRemaining = 5
	l := &Ledger{Cash: 200, HoldcoLoanBalance: 500, HoldcoLoanRate: 0.06, HoldcoLoanRoundsRemaining: 5}

	res := RunWaterfall(WaterfallInput{Round: 2, Ledger: l, Businesses: []*business.Business{b}})
	want := []ObligationKind{ObligationHoldcoLoan, ObligationSellerNote, ObligationBankDebt}
	if len(res.Obligations) != len(want) {
		t.Fatalf("got %d obligations", len(res.Obligations))
	}
	for i, k := range want {
		if res.Obligations[i].Kind != k {
			t.Errorf("obligation %d = %s, want %s", i, res.Obligations[i].Kind, k)
		}
	}
	// holdco 130 paid in full, seller note partially, bank debt starved
	if res.Obligations[0].Partial {
		t.Error("holdco loan should be paid in full")
	}
	if !res.Obligations[1].Partial || !res.Obligations[2].Partial {
		t.Error("later obligations should be partial")
	}
	if res.Obligations[2].Paid() != 0 {
		t.Errorf("bank debt paid %d with no cash left", res.Obligations[2].Paid())
	}
	if l.TotalDebt != l.HoldcoLoanBalance+b.BankDebtBalance {
		t.Errorf("total debt %d not recomputed", l.TotalDebt)
	}
}

func TestCashNeverNegative(t *testing.T) {
	s := rng.NewStream(2024)
	for i := 0; i < 200; i++ {
		var list []*business.Business
		n := s.NextInt(0, 4)
		for j := 0; j < n; j++ {
			b := newBusiness("biz", int64(s.NextInt(0, 8000)), s.Range(0.03, 0.3))
			b.SellerNoteBalance = int64(s.NextInt(0, 3000))
			b.SellerNoteRate = 0.05
			b.SellerNoteRoundsRemaining = s.NextInt(0, 5)
			b.BankDebtBalance = int64(s.NextInt(0, 5000))
			b.BankDebtRate = 0.08
			b.BankDebtRoundsRemaining = s.NextInt(0, 5)
			list = append(list, b)
		}
		l := &Ledger{
			Cash:                      int64(s.NextInt(0, 5000)),
			HoldcoLoanBalance:         int64(s.NextInt(0, 8000)),
			HoldcoLoanRate:            0.07,
			HoldcoLoanRoundsRemaining: s.NextInt(0, 10),
		}
		costs := Costs{SharedServices: int64(s.NextInt(0, 2000))}
		res := RunWaterfall(WaterfallInput{Round: 2, Ledger: l, Businesses: list, Costs: costs})

		if res.EndingCash < 0 || l.Cash < 0 {
			t.Fatalf("case %d: negative cash %d", i, res.EndingCash)
		}
		var due int64
		for _, o := range res.Obligations {
			due += o.Due()
		}
		available := res.StartingCash + res.PreDebtFCF - res.OperatingCosts
		if available < 0 {
			available = 0
		}
		if due > available && !res.PaymentsSkipped {
			t.Fatalf("case %d: due %d > available %d but nothing partial", i, due, available)
		}
	}
}

func TestDeferredCostsCollected(t *testing.T) {
	b := newBusiness("biz_1", 10000, 0.20)
	l := &Ledger{Cash: 500, DeferredCosts: 180}
	res := RunWaterfall(WaterfallInput{Round: 2, Ledger: l, Businesses: []*business.Business{b}, Costs: Costs{Sourcing: 100}})
	if res.OperatingCosts != 280 {
		t.Errorf("operating costs = %d, want 280", res.OperatingCosts)
	}
	if l.DeferredCosts != 0 {
		t.Errorf("deferred costs = %d after waterfall, want 0", l.DeferredCosts)
	}
	if want := 500 + res.PreDebtFCF - 280; l.Cash != want {
		t.Errorf("cash = %d, want %d", l.Cash, want)
	}
}

func TestShortfallTriggers(t *testing.T) {
	l := &Ledger{Cash: 100}
	res := RunWaterfall(WaterfallInput{Ledger: l, Costs: Costs{SharedServices: 500}})
	if l.Cash != 0 || res.Shortfall != 400 {
		t.Fatalf("cash=%d shortfall=%d", l.Cash, res.Shortfall)
	}
	if res.Trigger != TriggerRestructure {
		t.Fatalf("trigger = %q", res.Trigger)
	}

	l = &Ledger{Cash: 100, HasRestructured: true}
	res = RunWaterfall(WaterfallInput{Ledger: l, Costs: Costs{SharedServices: 500}})
	if res.Trigger != TriggerBankruptcy {
		t.Fatalf("trigger after restructuring = %q", res.Trigger)
	}
}

func TestEarnoutExpiry(t *testing.T) {
	b := newBusiness("biz_1", 10000, 0.20)
	b.EarnoutRemaining = 1500
	b.EarnoutTargetGrowth = 0.25
	l := &Ledger{Cash: 10000}

	res := RunWaterfall(WaterfallInput{
		Round:      1 + EarnoutExpirationYears + 1,
		Ledger:     l,
		Businesses: []*business.Business{b},
	})
	if b.EarnoutRemaining != 0 {
		t.Fatalf("earnout remaining = %d, want 0", b.EarnoutRemaining)
	}
	if res.DebtService != 0 {
		t.Fatalf("debt service = %d, want no payment", res.DebtService)
	}
	if len(res.Obligations) != 1 || !res.Obligations[0].Expired {
		t.Fatalf("obligations = %+v", res.Obligations)
	}
	if l.Cash != res.StartingCash+res.PreDebtFCF {
		t.Fatalf("cash %d moved beyond operating flow", l.Cash)
	}
}

func TestEarnoutPaidWhenTargetMet(t *testing.T) {
	b := newBusiness("biz_1", 10000, 0.20)
	b.AcquisitionEbitda = 1500
	b.EarnoutRemaining = 600
	b.EarnoutTargetGrowth = 0.10
	l := &Ledger{Cash: 10000}

	res := RunWaterfall(WaterfallInput{Round: 3, Ledger: l, Businesses: []*business.Business{b}})
	if b.EarnoutRemaining != 0 || res.DebtService != 600 {
		t.Fatalf("remaining=%d service=%d", b.EarnoutRemaining, res.DebtService)
	}

	miss := newBusiness("biz_2", 10000, 0.20)
	miss.EarnoutRemaining = 600
	miss.EarnoutTargetGrowth = 0.10
	res = RunWaterfall(WaterfallInput{Round: 3, Ledger: &Ledger{Cash: 1000}, Businesses: []*business.Business{miss}})
	if miss.EarnoutRemaining != 600 || len(res.Obligations) != 0 {
		t.Fatalf("unmet earnout should stay untouched: %d %+v", miss.EarnoutRemaining, res.Obligations)
	}
}

func TestEarnoutUsesParentGrowth(t *testing.T) {
	parent := newBusiness("biz_1", 10000, 0.20)
	parent.AcquisitionEbitda = 1000
	bolt := newBusiness("biz_2", 1000, 0.10)
	bolt.Status = business.StatusIntegrated
	bolt.ParentPlatformID = parent.ID
	bolt.EarnoutRemaining = 200
	bolt.EarnoutTargetGrowth = 0.50

	RunWaterfall(WaterfallInput{Round: 3, Ledger: &Ledger{Cash: 1000}, Businesses: []*business.Business{parent, bolt}})
	if bolt.EarnoutRemaining != 0 {
		t.Fatalf("earnout remaining = %d, want paid on parent growth", bolt.EarnoutRemaining)
	}
}

func TestCalculateDistress(t *testing.T) {
	tests := []struct {
		leverage float64
		skipped  bool
		want     DistressLevel
	}{
		{0, false, DistressComfortable},
		{2.49, false, DistressComfortable},
		{2.5, false, DistressElevated},
		{3.5, false, DistressStressed},
		{4.5, false, DistressBreach},
		{0.5, true, DistressBreach},
	}
	for _, tc := range tests {
		if got := CalculateDistress(tc.leverage, tc.skipped); got != tc.want {
			t.Errorf("CalculateDistress(%v, %v) = %s, want %s", tc.leverage, tc.skipped, got, tc.want)
		}
	}
	if Leverage(-5, 0) != 0 {
		t.Error("net cash should be zero leverage")
	}
	if CalculateDistress(Leverage(100, 0), false) != DistressBreach {
		t.Error("debt with no EBITDA should breach")
	}
}

func TestDoubleBankruptcy(t *testing.T) {
	l := &Ledger{HoldcoLoanBalance: 4000, HoldcoLoanRate: 0.07, HoldcoLoanRoundsRemaining: 2}

	if got := EvaluateCovenants(l, DistressBreach); got != TriggerNone {
		t.Fatalf("first breach round = %q", got)
	}
	if got := EvaluateCovenants(l, DistressBreach); got != TriggerRestructure {
		t.Fatalf("second breach round = %q, want restructure", got)
	}
	converted := Restructure(l, nil, DefaultRestructuring)
	if converted != 1000 || l.HoldcoLoanBalance != 3000 || l.HoldcoLoanRoundsRemaining != 5 {
		t.Fatalf("restructure: converted=%d balance=%d rounds=%d", converted, l.HoldcoLoanBalance, l.HoldcoLoanRoundsRemaining)
	}
	if l.CovenantBreachRounds != 0 || !l.HasRestructured {
		t.Fatal("restructure should reset the counter and mark the ledger")
	}

	if got := EvaluateCovenants(l, DistressStressed); got != TriggerNone {
		t.Fatalf("recovery round = %q", got)
	}
	EvaluateCovenants(l, DistressBreach)
	if got := EvaluateCovenants(l, DistressBreach); got != TriggerBankruptcy {
		t.Fatalf("second trigger = %q, want bankruptcy", got)
	}
}

func TestDistressLevelText(t *testing.T) {
	var d DistressLevel
	if err := d.UnmarshalText([]byte("stressed")); err != nil || d != DistressStressed {
		t.Fatalf("unmarshal = %v %v", d, err)
	}
	b, _ := DistressBreach.MarshalText()
	if string(b) != "breach" {
		t.Fatalf("marshal = %s", b)
	}
}

func TestStructureOptions(t *testing.T) {
	opts := StructureOptions(10000, 2000, DistressComfortable, rng.NewStream(9))
	note, ok := FindStructure(opts, StructureSellerNote)
	if !ok {
		t.Fatal("missing seller note option")
	}
	if note.SellerNote < 3000 || note.SellerNote > 4000 {
		t.Errorf("seller note = %d, want 30-40%%", note.SellerNote)
	}
	if note.SellerNoteRate < 0.05 || note.SellerNoteRate > 0.06 {
		t.Errorf("seller note rate = %v", note.SellerNoteRate)
	}
	bank, ok := FindStructure(opts, StructureBankDebt)
	if !ok || bank.BankDebt != 6000 {
		t.Errorf("bank debt = %+v", bank)
	}
	for _, o := range opts {
		if o.Cash+o.SellerNote+o.BankDebt+o.Earnout != 10000 {
			t.Errorf("%s does not sum to price: %+v", o.Kind, o)
		}
	}

	breach := StructureOptions(10000, 2000, DistressBreach, rng.NewStream(9))
	if _, ok := FindStructure(breach, StructureBankDebt); ok {
		t.Error("bank debt offered in breach")
	}
	if BankDebtCapacity(10000, 1000) != 3000 {
		t.Errorf("capacity should be capped at 3x EBITDA")
	}
}

func TestStructureApply(t *testing.T) {
	b := newBusiness("biz_1", 5000, 0.2)
	DealStructure{Kind: StructureBankDebt, BankDebt: 1200, BankDebtRate: 0.07}.Apply(b)
	if b.BankDebtBalance != 1200 || b.BankDebtRoundsRemaining != BankTermRounds {
		t.Fatalf("bank debt not booked: %+v", b)
	}
}

func TestSharedServiceCosts(t *testing.T) {
	c := SharedServiceCosts([]string{"finance_office", "procurement", "nope"})
	if c.SharedServices != 550 || c.CapexReduction != 0.15 || c.ConversionBonus != 0.05 {
		t.Fatalf("costs = %+v", c)
	}
	if c.Operating() != 550 {
		t.Fatalf("operating = %d", c.Operating())
	}
}
