package finance

import (
	"math"

	"github.com/talgya/holdco/internal/business"
	"github.com/talgya/holdco/internal/rng"
)

// StructureKind names how an acquisition is financed.
type StructureKind string

const (
	StructureAllCash    StructureKind = "all_cash"
	StructureSellerNote StructureKind = "seller_note"
	StructureBankDebt   StructureKind = "bank_debt"
	StructureEarnout    StructureKind = "earnout"
)

// Deal-structure terms.
const (
	MaxBankLeverage    = 3.0 // × EBITDA
	MaxBankLTV         = 0.60
	BankBaseRate       = 0.07
	BankTermRounds     = 5
	SellerNoteTerm     = 5
	EarnoutFraction    = 0.20
	EarnoutTargetFloor = 0.10
)

// DealStructure is one financing option for a purchase price.
type DealStructure struct {
	Kind              StructureKind `json:"kind"`
	Cash              int64         `json:"cash"`
	SellerNote        int64         `json:"seller_note,omitempty"`
	SellerNoteRate    float64       `json:"seller_note_rate,omitempty"`
	BankDebt          int64         `json:"bank_debt,omitempty"`
	BankDebtRate      float64       `json:"bank_debt_rate,omitempty"`
	Earnout           int64         `json:"earnout,omitempty"`
	EarnoutTargetRate float64       `json:"earnout_target,omitempty"`
}

// BankDebtCapacity is the most a bank will lend against a target.
func BankDebtCapacity(price, ebitda int64) int64 {
	if ebitda <= 0 || price <= 0 {
		return 0
	}
	byEbitda := int64(float64(ebitda) * MaxBankLeverage)
	byPrice := int64(float64(price) * MaxBankLTV)
	return min(byEbitda, byPrice)
}

// StructureOptions lists the financing choices for a deal at a price.
// Bank debt is unavailable in breach; seller-note terms are drawn from s so
// both players of a seeded game see the same offer.
func StructureOptions(price, ebitda int64, level DistressLevel, s *rng.Stream) []DealStructure {
	opts := []DealStructure{{Kind: StructureAllCash, Cash: price}}

	notePct := s.Range(0.30, 0.40)
	noteRate := math.Round(s.Range(0.05, 0.06)*1000) / 1000
	note := int64(math.Round(float64(price) * notePct))
	opts = append(opts, DealStructure{
		Kind:           StructureSellerNote,
		Cash:           price - note,
		SellerNote:     note,
		SellerNoteRate: noteRate,
	})

	if level != DistressBreach {
		if debt := BankDebtCapacity(price, ebitda); debt > 0 {
			opts = append(opts, DealStructure{
				Kind:         StructureBankDebt,
				Cash:         price - debt,
				BankDebt:     debt,
				BankDebtRate: BankBaseRate + RatePenalty(level),
			})
		}
	}

	earnout := int64(math.Round(float64(price) * EarnoutFraction))
	opts = append(opts, DealStructure{
		Kind:              StructureEarnout,
		Cash:              price - earnout,
		Earnout:           earnout,
		EarnoutTargetRate: EarnoutTargetFloor,
	})
	return opts
}

// FindStructure returns the option of the given kind.
func FindStructure(opts []DealStructure, kind StructureKind) (DealStructure, bool) {
	for _, o := range opts {
		if o.Kind == kind {
			return o, true
		}
	}
	return DealStructure{}, false
}

// Apply books the structure's sub-ledgers onto the acquired business.
func (d DealStructure) Apply(b *business.Business) {
	if d.SellerNote > 0 {
		b.SellerNoteBalance = d.SellerNote
		b.SellerNoteRate = d.SellerNoteRate
		b.SellerNoteRoundsRemaining = SellerNoteTerm
	}
	if d.BankDebt > 0 {
		b.BankDebtBalance = d.BankDebt
		b.BankDebtRate = d.BankDebtRate
		b.BankDebtRoundsRemaining = BankTermRounds
	}
	if d.Earnout > 0 {
		b.EarnoutRemaining = d.Earnout
		b.EarnoutTargetGrowth = d.EarnoutTargetRate
	}
}
