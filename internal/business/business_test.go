package business

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/talgya/holdco/internal/rng"
)

func checkEbitda(t *testing.T, b *Business) {
	t.Helper()
	want := int64(math.Round(float64(b.Revenue) * b.EbitdaMargin))
	if d := b.Ebitda - want; d > 1 || d < -1 {
		t.Fatalf("%s: ebitda %d, revenue %d × margin %.4f = %d", b.ID, b.Ebitda, b.Revenue, b.EbitdaMargin, want)
	}
	if b.EbitdaMargin < MarginFloor || b.EbitdaMargin > MarginCeiling {
		t.Fatalf("%s: margin %.4f outside [%.2f, %.2f]", b.ID, b.EbitdaMargin, MarginFloor, MarginCeiling)
	}
}

func TestGenerateBusinessConsistency(t *testing.T) {
	g := NewGenerator(nil, nil)
	s := rng.NewManager(42, 1).Stream(rng.LaneDeals)
	for _, sector := range append(SectorIDs(), "unknown_sector") {
		for i := 0; i < 40; i++ {
			b := g.GenerateBusiness(sector, 1, BusinessOptions{}, s)
			checkEbitda(t, b)
			if b.QualityRating < 1 || b.QualityRating > 5 {
				t.Fatalf("quality %d out of range", b.QualityRating)
			}
			wantPrice := int64(math.Round(float64(b.Ebitda) * b.AcquisitionMultiple))
			if b.AcquisitionPrice != wantPrice {
				t.Fatalf("price %d, want %d", b.AcquisitionPrice, wantPrice)
			}
			if b.AcquisitionMultiple != math.Round(b.AcquisitionMultiple*10)/10 {
				t.Fatalf("multiple %v not rounded to one decimal", b.AcquisitionMultiple)
			}
		}
	}
}

func TestUnknownSectorFallsBack(t *testing.T) {
	g := NewGenerator(nil, nil)
	b := g.GenerateBusiness("space_mining", 1, BusinessOptions{SubType: "Asteroids"}, rng.NewStream(3))
	if b.SectorID != DefaultSectorID {
		t.Fatalf("sector = %q, want %q", b.SectorID, DefaultSectorID)
	}
	if b.SubType != "General Operations" {
		t.Fatalf("sub-type = %q", b.SubType)
	}
}

func TestQualityOverrideAndSubType(t *testing.T) {
	g := NewGenerator(nil, nil)
	s := rng.NewStream(17)
	for q := 1; q <= 5; q++ {
		b := g.GenerateBusiness("home_services", 2, BusinessOptions{Quality: q, SubType: "HVAC"}, s)
		if b.QualityRating != q {
			t.Fatalf("quality = %d, want %d", b.QualityRating, q)
		}
		if b.SubType != "HVAC" {
			t.Fatalf("sub-type = %q, want HVAC", b.SubType)
		}
		checkEbitda(t, b)
	}
}

func TestQualityDistribution(t *testing.T) {
	s := rng.NewStream(5)
	counts := make([]int, 6)
	for i := 0; i < 10000; i++ {
		counts[RollQuality(s)]++
	}
	want := []float64{0, 0.05, 0.15, 0.40, 0.25, 0.15}
	for q := 1; q <= 5; q++ {
		got := float64(counts[q]) / 10000
		if math.Abs(got-want[q]) > 0.02 {
			t.Errorf("quality %d share %.3f, want ~%.2f", q, got, want[q])
		}
	}
}

func TestSetFinancialsRederives(t *testing.T) {
	b := &Business{Revenue: 1000, EbitdaMargin: 0.2}
	b.Rederive()
	b.SetMargin(0.95)
	if b.EbitdaMargin != MarginCeiling || b.Ebitda != 800 {
		t.Fatalf("margin %.2f ebitda %d", b.EbitdaMargin, b.Ebitda)
	}
	b.SetMargin(-1)
	if b.EbitdaMargin != MarginFloor || b.Ebitda != 30 {
		t.Fatalf("margin %.2f ebitda %d", b.EbitdaMargin, b.Ebitda)
	}
	b.SetRevenue(2345)
	if b.Ebitda != 70 {
		t.Fatalf("ebitda %d, want 70", b.Ebitda)
	}
}

func TestSizedDealsHitTargetRange(t *testing.T) {
	g := NewGenerator(nil, nil)
	s := rng.NewStream(21)
	for size, r := range sizeRanges {
		for i := 0; i < 30; i++ {
			d := g.GenerateDealWithSize("saas", 4, size, 0, DealOptions{}, s)
			checkEbitda(t, d.Business)
			e := d.Business.Ebitda
			if e < int64(r[0])-1 || e > int64(r[1])+1 {
				t.Fatalf("%s deal ebitda %d outside %v", size, e, r)
			}
		}
	}
}

func TestPortfolioScaler(t *testing.T) {
	if got := PortfolioScaler(1000); got != 1.0 {
		t.Fatalf("below threshold scaler = %v", got)
	}
	small, big := PortfolioScaler(8000), PortfolioScaler(32000)
	if small <= 1.0 || big <= small {
		t.Fatalf("scaler not increasing: %v, %v", small, big)
	}
	if big-small > small-1.0+0.5 {
		t.Fatalf("scaler grows faster than logarithmic: %v, %v", small, big)
	}
}

func TestEffectivePriceNeverBelowAsking(t *testing.T) {
	g := NewGenerator(nil, nil)
	s := rng.NewStream(8)
	for i := 0; i < 200; i++ {
		d := g.GenerateDealWithSize(rng.Pick(s, SectorIDs()), i%20+1, SizeAny, int64(i*100), DealOptions{MaxRounds: 20}, s)
		if d.EffectivePrice < d.AskingPrice {
			t.Fatalf("effective %d < asking %d (heat %s)", d.EffectivePrice, d.AskingPrice, d.Heat)
		}
		if d.Freshness < 1 {
			t.Fatalf("freshness %d", d.Freshness)
		}
	}
}

func TestApplyPriceModifiers(t *testing.T) {
	tests := []struct {
		name        string
		modifier    float64
		tuckIn      float64
		proprietary bool
		want        int64
	}{
		{name: "no modifiers", want: 1000},
		{name: "archetype discount", modifier: -0.20, want: 800},
		{name: "tuck-in larger than archetype", modifier: -0.05, tuckIn: 0.12, want: 880},
		{name: "archetype larger than tuck-in", modifier: -0.20, tuckIn: 0.10, want: 800},
		{name: "proprietary alone", proprietary: true, want: 950},
		{name: "premium stacks on discount", modifier: 0.10, tuckIn: 0.10, want: 990},
	}
	for _, tc := range tests {
		if got := ApplyPriceModifiers(1000, tc.modifier, tc.tuckIn, tc.proprietary); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestHeatPremiumMonotonic(t *testing.T) {
	s := rng.NewStream(2)
	for i := 0; i < 1000; i++ {
		cold := CalculateHeatPremium(HeatCold, s)
		warm := CalculateHeatPremium(HeatWarm, s)
		hot := CalculateHeatPremium(HeatHot, s)
		contested := CalculateHeatPremium(HeatContested, s)
		if cold != 1.0 || !(contested >= hot && hot >= warm && warm >= cold) {
			t.Fatalf("premiums not monotonic: %v %v %v %v", cold, warm, hot, contested)
		}
		if warm < 1.10 || warm > 1.15 || hot < 1.20 || hot > 1.30 || contested < 1.30 || contested > 1.50 {
			t.Fatalf("premium outside band: %v %v %v", warm, hot, contested)
		}
	}
}

func TestDealHeatShifts(t *testing.T) {
	s := rng.NewStream(4)
	for i := 0; i < 200; i++ {
		if h := CalculateDealHeat(1, SourceProprietary, 1, 20, "", ArchetypeDistressedSeller, s); h != HeatCold {
			t.Fatalf("cold-biased deal came out %s", h)
		}
		if h := CalculateDealHeat(5, SourceInbound, 18, 20, EventBullMarket, ArchetypeAccidentalHoldco, s); h != HeatContested {
			t.Fatalf("hot-biased deal came out %s", h)
		}
	}
}

func TestDealHeatSourceShiftCapped(t *testing.T) {
	// Quality 1, recession and proprietary sum to -4 but are capped at -3, so
	// a contested base roll without an archetype modifier still lands on cold.
	s := rng.NewStream(6)
	for i := 0; i < 200; i++ {
		h := CalculateDealHeat(1, SourceProprietary, 1, 20, EventRecession, "", s)
		if h != HeatCold {
			t.Fatalf("got %s, want cold", h)
		}
	}
}

type dealTuple struct {
	Sector  string
	Asking  int64
	Ebitda  int64
	Quality int
	Heat    Heat
}

func pipelineTuples(seed int64, round int) []dealTuple {
	g := NewGenerator(&IDCounter{Next: 1}, NewNameRegistry())
	s := rng.NewManager(seed, round).Stream(rng.LaneDeals)
	deals := g.GenerateDealPipeline(nil, round, PipelineOptions{
		MaxRounds: 20,
		Platforms: []PlatformRef{{SectorID: "home_services", SubType: "HVAC"}},
	}, s)
	out := make([]dealTuple, len(deals))
	for i, d := range deals {
		out[i] = dealTuple{d.Business.SectorID, d.AskingPrice, d.Business.Ebitda, d.Business.QualityRating, d.Heat}
	}
	return out
}

func TestDeterministicDealPipeline(t *testing.T) {
	first := pipelineTuples(42, 3)
	second := pipelineTuples(42, 3)
	if len(first) != baseDealsPerRound+1 {
		t.Fatalf("pipeline has %d deals, want %d", len(first), baseDealsPerRound+1)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("pipeline not deterministic (-first +second):\n%s", diff)
	}
	if cmp.Equal(first, pipelineTuples(42, 4)) {
		t.Fatal("round 4 pipeline identical to round 3")
	}
}

func TestPipelineTuckInCandidates(t *testing.T) {
	g := NewGenerator(nil, nil)
	deals := g.GenerateDealPipeline(nil, 5, PipelineOptions{
		SourcingTier: 3,
		Platforms:    []PlatformRef{{SectorID: "saas", SubType: "Vertical SaaS"}},
	}, rng.NewStream(10))
	var tuckIns, proprietary int
	for _, d := range deals {
		if d.TuckInDiscount > 0 {
			tuckIns++
			if d.Business.SectorID != "saas" || d.AcquisitionType != AcquisitionTuckIn {
				t.Fatalf("tuck-in deal %s/%s", d.Business.SectorID, d.AcquisitionType)
			}
		}
		if d.Source == SourceProprietary {
			proprietary++
			if d.Business.QualityRating < 3 {
				t.Fatalf("proprietary deal quality %d", d.Business.QualityRating)
			}
		}
	}
	if tuckIns != 1 || proprietary != 1 {
		t.Fatalf("tuck-ins=%d proprietary=%d", tuckIns, proprietary)
	}
	if len(deals) != DealsForTier(3)+2 {
		t.Fatalf("pipeline size %d", len(deals))
	}
}

func TestAgeDeals(t *testing.T) {
	deals := []*Deal{{ID: "a", Freshness: 1}, {ID: "b", Freshness: 3}, {ID: "c", Freshness: 0}}
	kept := AgeDeals(deals)
	if len(kept) != 1 || kept[0].ID != "b" || kept[0].Freshness != 2 {
		t.Fatalf("kept %+v", kept)
	}
}

func TestNameCollisionFallback(t *testing.T) {
	var all []string
	for _, p := range namePrefixes {
		for _, suf := range nameSuffixes["saas"] {
			all = append(all, p+" "+suf)
		}
	}
	reg := NewNameRegistry(all...)
	name := reg.Generate("saas", rng.NewStream(1))
	if !reg.Taken(name) {
		t.Fatalf("generated name %q not reserved", name)
	}
	for _, n := range all {
		if n == name {
			t.Fatalf("fallback reused a taken name %q", name)
		}
	}
	again := reg.Generate("saas", rng.NewStream(1))
	if again == name {
		t.Fatalf("second fallback duplicated %q", again)
	}
}

func TestIDCounterRestore(t *testing.T) {
	c := &IDCounter{}
	c.RestoreFrom([]string{"biz_3", "biz_12", "legacy", "biz_x"})
	if got := c.NextBusinessID(); got != "biz_13" {
		t.Fatalf("got %s, want biz_13", got)
	}
	c.RestoreFrom([]string{"biz_2"})
	if got := c.NextBusinessID(); got != "biz_14" {
		t.Fatalf("restore moved counter backwards: %s", got)
	}
}

func TestDealIDStable(t *testing.T) {
	a, b := DealID(3, "biz_1"), DealID(3, "biz_1")
	if a != b {
		t.Fatalf("deal id not stable: %s vs %s", a, b)
	}
	if a == DealID(4, "biz_1") {
		t.Fatal("deal id ignores round")
	}
}

func TestArchetypeWeightsFollowQuality(t *testing.T) {
	s := rng.NewStream(12)
	count := func(q int) map[SellerArchetype]int {
		m := make(map[SellerArchetype]int)
		for i := 0; i < 3000; i++ {
			m[RollArchetype(q, s)]++
		}
		return m
	}
	low, high := count(1), count(5)
	if low[ArchetypeDistressedSeller] <= high[ArchetypeDistressedSeller] {
		t.Errorf("distressed sellers: low=%d high=%d", low[ArchetypeDistressedSeller], high[ArchetypeDistressedSeller])
	}
	if high[ArchetypeRetiringFounder] <= low[ArchetypeRetiringFounder] {
		t.Errorf("retiring founders: low=%d high=%d", low[ArchetypeRetiringFounder], high[ArchetypeRetiringFounder])
	}
}

func TestFranchiseBreakawayGrowthPerk(t *testing.T) {
	b := &Business{RevenueGrowthRate: 0.03, DueDiligence: DueDiligence{OperatorQuality: OperatorModerate}}
	applyArchetype(b, ArchetypeProfileFor(ArchetypeFranchiseBreakaway))
	if math.Abs(b.RevenueGrowthRate-0.05) > 1e-9 {
		t.Fatalf("growth %.4f, want 0.05", b.RevenueGrowthRate)
	}
	applyArchetype(b, ArchetypeProfileFor(ArchetypeMBOCandidate))
	if b.DueDiligence.OperatorQuality != OperatorStrong {
		t.Fatalf("operator %s, want strong", b.DueDiligence.OperatorQuality)
	}
}

func ExampleHeatFromLevel() {
	fmt.Println(HeatFromLevel(-2), HeatFromLevel(2), HeatFromLevel(9))
	// Output: cold hot contested
}
