package business

import "github.com/talgya/holdco/internal/rng"

// SellerArchetype is the seller's motivation profile.
type SellerArchetype string

const (
	ArchetypeRetiringFounder    SellerArchetype = "retiring_founder"
	ArchetypeBurntOutOperator   SellerArchetype = "burnt_out_operator"
	ArchetypeAccidentalHoldco   SellerArchetype = "accidental_holdco"
	ArchetypeDistressedSeller   SellerArchetype = "distressed_seller"
	ArchetypeMBOCandidate       SellerArchetype = "mbo_candidate"
	ArchetypeFranchiseBreakaway SellerArchetype = "franchise_breakaway"
)

// ArchetypeProfile holds the effects an archetype has on a deal.
type ArchetypeProfile struct {
	ID            SellerArchetype
	Weight        float64
	PriceModifier float64 // negative is a discount, positive a premium
	HeatModifier  int
	GrowthPerk    float64
	OperatorShift int
	OperatorNote  string
}

var archetypes = []ArchetypeProfile{
	{ID: ArchetypeRetiringFounder, Weight: 25, PriceModifier: -0.05,
		OperatorNote: "Founder is retiring; the second line of management is untested."},
	{ID: ArchetypeBurntOutOperator, Weight: 20, PriceModifier: -0.10, HeatModifier: -1, GrowthPerk: -0.01, OperatorShift: -1,
		OperatorNote: "Owner is exhausted and operations have drifted."},
	{ID: ArchetypeAccidentalHoldco, Weight: 15, PriceModifier: 0.10, HeatModifier: 1,
		OperatorNote: "Seller owns several companies and knows exactly what this one is worth."},
	{ID: ArchetypeDistressedSeller, Weight: 15, PriceModifier: -0.20, HeatModifier: -2, OperatorShift: -1,
		OperatorNote: "Seller needs liquidity fast; the books need scrutiny."},
	{ID: ArchetypeMBOCandidate, Weight: 15, PriceModifier: 0.05, OperatorShift: 1,
		OperatorNote: "Management wants to stay on and roll equity."},
	{ID: ArchetypeFranchiseBreakaway, Weight: 10, GrowthPerk: 0.02,
		OperatorNote: "Former franchisee going independent with a proven playbook."},
}

// ArchetypeProfileFor returns the profile for an archetype. Unknown archetypes
// get a neutral profile.
func ArchetypeProfileFor(id SellerArchetype) ArchetypeProfile {
	for _, a := range archetypes {
		if a.ID == id {
			return a
		}
	}
	return ArchetypeProfile{ID: id}
}

// archetypeWeights shifts the base distribution by quality: weak businesses
// skew toward distressed sellers, strong ones toward retiring founders.
func archetypeWeights(quality int) []float64 {
	w := make([]float64, len(archetypes))
	for i, a := range archetypes {
		w[i] = a.Weight
		switch {
		case quality <= 2 && a.ID == ArchetypeDistressedSeller:
			w[i] += 15
		case quality <= 2 && a.ID == ArchetypeRetiringFounder:
			w[i] -= 10
		case quality >= 4 && a.ID == ArchetypeRetiringFounder:
			w[i] += 15
		case quality >= 4 && a.ID == ArchetypeDistressedSeller:
			w[i] -= 10
		}
		if w[i] < 1 {
			w[i] = 1
		}
	}
	return w
}

// RollArchetype draws a seller archetype for a business of the given quality.
func RollArchetype(quality int, s *rng.Stream) SellerArchetype {
	return archetypes[rng.WeightedIndex(s, archetypeWeights(quality))].ID
}

func shiftOperator(q OperatorQuality, by int) OperatorQuality {
	idx := 1
	for i, l := range operatorLevels {
		if l == q {
			idx = i
		}
	}
	idx += by
	if idx < 0 {
		idx = 0
	}
	if idx >= len(operatorLevels) {
		idx = len(operatorLevels) - 1
	}
	return operatorLevels[idx]
}

func applyArchetype(b *Business, p ArchetypeProfile) {
	b.DueDiligence.OperatorQuality = shiftOperator(b.DueDiligence.OperatorQuality, p.OperatorShift)
	b.DueDiligence.OperatorNote = p.OperatorNote
	b.RevenueGrowthRate += p.GrowthPerk
}
