package business

import (
	"fmt"

	"github.com/talgya/holdco/internal/rng"
)

const (
	baseDealsPerRound = 4
	MaxPipelineSize   = 14
	maxTuckInDeals    = 2
)

// PlatformRef identifies an owned platform that can receive tuck-ins.
type PlatformRef struct {
	SectorID string
	SubType  string
}

// PipelineOptions carries the portfolio context used to size new deals.
type PipelineOptions struct {
	PortfolioEbitda int64
	Platforms       []PlatformRef
	SourcingTier    int // 0–3
	MaxRounds       int
	LastEventType   string
	FocusSector     string
}

// sizeWeights for unsized deals shift toward larger targets as the game progresses.
func sizeWeights(round, maxRounds int) []float64 {
	if maxRounds <= 0 {
		maxRounds = 20
	}
	progress := float64(round) / float64(maxRounds)
	switch {
	case progress < 0.25:
		return []float64{45, 35, 15, 5}
	case progress < 0.6:
		return []float64{40, 25, 25, 10}
	default:
		return []float64{40, 15, 25, 20}
	}
}

var sizeOrder = []SizePreference{SizeAny, SizeSmall, SizeMedium, SizeLarge}

// DealsForTier returns how many fresh deals a sourcing tier yields.
func DealsForTier(tier int) int {
	switch {
	case tier >= 2:
		return baseDealsPerRound + 2
	case tier == 1:
		return baseDealsPerRound + 1
	default:
		return baseDealsPerRound
	}
}

// GenerateDealPipeline appends this round's new deals to the (already aged)
// existing pipeline. Each deal draws from its own fork of s so adding or
// removing one deal does not shift the others.
func (g *Generator) GenerateDealPipeline(existing []*Deal, round int, opts PipelineOptions, s *rng.Stream) []*Deal {
	pipeline := append([]*Deal(nil), existing...)
	room := MaxPipelineSize - len(pipeline)
	if room <= 0 {
		return pipeline
	}

	order := rng.Shuffle(s, SectorIDs())
	if opts.FocusSector != "" {
		if _, ok := LookupSector(opts.FocusSector); ok {
			order = append([]string{opts.FocusSector}, order...)
		}
	}

	count := DealsForTier(opts.SourcingTier)
	weights := sizeWeights(round, opts.MaxRounds)
	for i := 0; i < count && room > 0; i++ {
		ds := s.Fork(fmt.Sprintf("deal_%d", i))
		size := sizeOrder[rng.WeightedIndex(ds, weights)]
		deal := g.GenerateDealWithSize(order[i%len(order)], round, size, opts.PortfolioEbitda, DealOptions{
			MaxRounds:     opts.MaxRounds,
			LastEventType: opts.LastEventType,
		}, ds)
		pipeline = append(pipeline, deal)
		room--
	}

	for i, p := range opts.Platforms {
		if i >= maxTuckInDeals || room <= 0 {
			break
		}
		ts := s.Fork(fmt.Sprintf("tuck_in_%d", i))
		deal := g.GenerateDealWithSize(p.SectorID, round, SizeSmall, opts.PortfolioEbitda, DealOptions{
			Source:         SourceBrokered,
			SubType:        tuckInSubType(p, ts),
			TuckInDiscount: ts.Range(0.05, 0.15),
			MaxRounds:      opts.MaxRounds,
			LastEventType:  opts.LastEventType,
		}, ts)
		pipeline = append(pipeline, deal)
		room--
	}

	if opts.SourcingTier >= 3 && room > 0 {
		ps := s.Fork("proprietary")
		sector := rng.Pick(ps, SectorIDs())
		if opts.FocusSector != "" {
			sector = opts.FocusSector
		}
		quality := 3 + ps.NextInt(0, 2)
		pipeline = append(pipeline, g.GenerateDealWithSize(sector, round, SizeAny, opts.PortfolioEbitda, DealOptions{
			Source:        SourceProprietary,
			Quality:       quality,
			MaxRounds:     opts.MaxRounds,
			LastEventType: opts.LastEventType,
		}, ps))
	}
	return pipeline
}

// tuckInSubType prefers the platform's own sub-type, otherwise one from the
// same affinity group, otherwise anything in the sector.
func tuckInSubType(p PlatformRef, s *rng.Stream) string {
	sector := SectorOrDefault(p.SectorID)
	own, ok := sector.FindSubType(p.SubType)
	if !ok {
		return ""
	}
	if s.Chance(0.5) {
		return own.Name
	}
	var related []string
	for _, st := range sector.SubTypes {
		if st.Group == own.Group && st.Name != own.Name {
			related = append(related, st.Name)
		}
	}
	if len(related) == 0 {
		return own.Name
	}
	return rng.Pick(s, related)
}

// GenerateSourcedDeals produces the extra deals bought with a paid sourcing
// action. Deals come in as "sourced" (cooler heat) and can be focused on a sector.
func (g *Generator) GenerateSourcedDeals(round, count int, opts PipelineOptions, s *rng.Stream) []*Deal {
	deals := make([]*Deal, 0, count)
	for i := 0; i < count; i++ {
		ds := s.Fork(fmt.Sprintf("sourced_%d", i))
		sector := opts.FocusSector
		if _, ok := LookupSector(sector); !ok {
			sector = rng.Pick(ds, SectorIDs())
		}
		quality := RollQuality(ds)
		if quality < 3 && opts.SourcingTier >= 2 {
			quality++
		}
		deals = append(deals, g.GenerateDealWithSize(sector, round, SizeAny, opts.PortfolioEbitda, DealOptions{
			Source:        SourceSourced,
			Quality:       quality,
			MaxRounds:     opts.MaxRounds,
			LastEventType: opts.LastEventType,
		}, ds))
	}
	return deals
}
