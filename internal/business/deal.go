package business

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/talgya/holdco/internal/rng"
)

// DealSource is how the opportunity reached the holdco.
type DealSource string

const (
	SourceInbound     DealSource = "inbound"
	SourceBrokered    DealSource = "brokered"
	SourceSourced     DealSource = "sourced"
	SourceProprietary DealSource = "proprietary"
)

// AcquisitionType is a sizing hint, not a commitment.
type AcquisitionType string

const (
	AcquisitionStandalone AcquisitionType = "standalone"
	AcquisitionTuckIn     AcquisitionType = "tuck_in"
	AcquisitionPlatform   AcquisitionType = "platform"
)

// SizePreference selects how the deal's EBITDA is sized.
type SizePreference string

const (
	SizeAny    SizePreference = "any"
	SizeSmall  SizePreference = "small"
	SizeMedium SizePreference = "medium"
	SizeLarge  SizePreference = "large"
)

// sizeRanges are absolute EBITDA targets per size tier.
var sizeRanges = map[SizePreference][2]int{
	SizeSmall:  {500, 1500},
	SizeMedium: {1500, 3000},
	SizeLarge:  {3000, 8000},
}

// Portfolio scaling for SizeAny deals.
const (
	PortfolioScaleThreshold = 4000
	portfolioScaleFactor    = 0.5
	ProprietaryDiscount     = 0.05
)

var dealNamespace = uuid.MustParse("6f1c2d3e-4b5a-5c6d-8e7f-9a0b1c2d3e4f")

// Deal is a time-boxed acquisition offer.
type Deal struct {
	ID              string          `json:"id"`
	Business        *Business       `json:"business"`
	AskingPrice     int64           `json:"asking_price"`
	EffectivePrice  int64           `json:"effective_price"`
	Freshness       int             `json:"freshness"`
	Source          DealSource      `json:"source"`
	AcquisitionType AcquisitionType `json:"acquisition_type"`
	Heat            Heat            `json:"heat"`
	SellerArchetype SellerArchetype `json:"seller_archetype"`
	TuckInDiscount  float64         `json:"tuck_in_discount,omitempty"`
	RoundAppeared   int             `json:"round_appeared"`
}

// DealOptions tunes a single generated deal.
type DealOptions struct {
	Source         DealSource
	Quality        int
	SubType        string
	TuckInDiscount float64
	MaxRounds      int
	LastEventType  string
	Freshness      int
}

// DealID derives a stable id for a deal from its round and business id.
func DealID(round int, businessID string) string {
	return uuid.NewSHA1(dealNamespace, []byte(fmt.Sprintf("%d:%s", round, businessID))).String()
}

// PortfolioScaler returns the revenue multiplier applied to unsized deals once
// owned EBITDA passes the threshold. It grows logarithmically.
func PortfolioScaler(portfolioEbitda int64) float64 {
	if portfolioEbitda <= PortfolioScaleThreshold {
		return 1.0
	}
	return 1.0 + portfolioScaleFactor*math.Log(float64(portfolioEbitda)/PortfolioScaleThreshold)
}

// GenerateDealWithSize builds a deal around a freshly generated business.
func (g *Generator) GenerateDealWithSize(sectorID string, round int, size SizePreference, portfolioEbitda int64, opts DealOptions, s *rng.Stream) *Deal {
	b := g.GenerateBusiness(sectorID, round, BusinessOptions{Quality: opts.Quality, SubType: opts.SubType}, s)

	if r, ok := sizeRanges[size]; ok {
		target := float64(s.NextInt(r[0], r[1]))
		b.SetRevenue(int64(math.Round(target / b.EbitdaMargin)))
	} else if scale := PortfolioScaler(portfolioEbitda); scale > 1.0 {
		b.SetRevenue(int64(math.Round(float64(b.Revenue) * scale)))
	}

	archetype := RollArchetype(b.QualityRating, s)
	profile := ArchetypeProfileFor(archetype)
	applyArchetype(b, profile)
	b.AcquisitionPrice = int64(math.Round(float64(b.Ebitda) * b.AcquisitionMultiple))
	b.snapshotAcquisition(round)

	source := opts.Source
	if source == "" {
		source = rng.Pick(s, []DealSource{SourceInbound, SourceBrokered, SourceBrokered})
	}

	asking := ApplyPriceModifiers(b.AcquisitionPrice, profile.PriceModifier, opts.TuckInDiscount, source == SourceProprietary)
	heat := CalculateDealHeat(b.QualityRating, source, round, opts.MaxRounds, opts.LastEventType, archetype, s)
	premium := CalculateHeatPremium(heat, s)

	freshness := opts.Freshness
	if freshness <= 0 {
		freshness = s.NextInt(2, 4)
		if HeatLevel(heat) >= HeatLevel(HeatHot) {
			freshness--
		}
		if freshness < 1 {
			freshness = 1
		}
	}

	return &Deal{
		ID:              DealID(round, b.ID),
		Business:        b,
		AskingPrice:     asking,
		EffectivePrice:  int64(math.Round(float64(asking) * premium)),
		Freshness:       freshness,
		Source:          source,
		AcquisitionType: acquisitionHint(b, opts.TuckInDiscount),
		Heat:            heat,
		SellerArchetype: archetype,
		TuckInDiscount:  opts.TuckInDiscount,
		RoundAppeared:   round,
	}
}

// ApplyPriceModifiers applies the canonical price order: the single largest
// discount, then any archetype premium. Heat is applied separately on top.
func ApplyPriceModifiers(basePrice int64, archetypeModifier, tuckInDiscount float64, proprietary bool) int64 {
	discount := 0.0
	if archetypeModifier < 0 {
		discount = -archetypeModifier
	}
	if tuckInDiscount > discount {
		discount = tuckInDiscount
	}
	if proprietary && ProprietaryDiscount > discount {
		discount = ProprietaryDiscount
	}
	premium := 0.0
	if archetypeModifier > 0 {
		premium = archetypeModifier
	}
	return int64(math.Round(float64(basePrice) * (1 - discount) * (1 + premium)))
}

func acquisitionHint(b *Business, tuckInDiscount float64) AcquisitionType {
	switch {
	case tuckInDiscount > 0 || b.Ebitda < 750:
		return AcquisitionTuckIn
	case b.QualityRating >= 4 && b.Ebitda >= 1500:
		return AcquisitionPlatform
	default:
		return AcquisitionStandalone
	}
}

// AgeDeals decrements freshness and drops expired deals.
func AgeDeals(deals []*Deal) []*Deal {
	kept := deals[:0]
	for _, d := range deals {
		d.Freshness--
		if d.Freshness > 0 {
			kept = append(kept, d)
		}
	}
	return kept
}

// FindDeal returns the deal with the given id.
func FindDeal(deals []*Deal, id string) (*Deal, int) {
	for i, d := range deals {
		if d.ID == id {
			return d, i
		}
	}
	return nil, -1
}

// RemoveDeal returns deals without the entry at index i.
func RemoveDeal(deals []*Deal, i int) []*Deal {
	if i < 0 || i >= len(deals) {
		return deals
	}
	out := make([]*Deal, 0, len(deals)-1)
	out = append(out, deals[:i]...)
	return append(out, deals[i+1:]...)
}
