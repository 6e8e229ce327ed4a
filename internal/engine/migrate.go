package engine

import (
	"log/slog"

	"github.com/talgya/holdco/internal/business"
	"github.com/talgya/holdco/internal/finance"
)

// Backfill defaults fields that older snapshots lack and repairs values a
// partial save may have left inconsistent. It is idempotent.
func Backfill(st *GameState) {
	from := st.Version
	if st.MaxRounds <= 0 {
		st.MaxRounds = StandardRounds
	}
	if st.Round <= 0 {
		st.Round = 1
	}
	if st.Phase == "" {
		st.Phase = PhaseCollect
	}
	if st.Difficulty == "" {
		st.Difficulty = DifficultyNormal
	}
	if st.SharesOutstanding <= 0 {
		st.SharesOutstanding = InitialShares
	}
	if st.FounderShares <= 0 || st.FounderShares > st.SharesOutstanding {
		st.FounderShares = min(int64(FounderShares), st.SharesOutstanding)
	}
	if st.GameOver {
		st.Phase = PhaseGameOver
	}

	owned := st.Businesses[:0]
	for _, b := range st.Businesses {
		if b == nil {
			continue
		}
		backfillBusiness(b)
		owned = append(owned, b)
	}
	st.Businesses = owned
	kept := st.Pipeline[:0]
	for _, d := range st.Pipeline {
		if d == nil || d.Business == nil {
			continue
		}
		backfillBusiness(d.Business)
		if d.EffectivePrice <= 0 {
			d.EffectivePrice = d.AskingPrice
		}
		if d.Heat == "" {
			d.Heat = business.HeatWarm
		}
		kept = append(kept, d)
	}
	st.Pipeline = kept

	// v2 added the turnaround sequence; derive it from existing programs.
	if st.NextTurnaroundID < len(st.Turnarounds) {
		st.NextTurnaroundID = len(st.Turnarounds)
	}
	// v3 moved distress into the snapshot.
	if from < 3 && st.Round > 1 {
		skipped := st.LastWaterfall != nil && st.LastWaterfall.PaymentsSkipped
		m := ComputeMetrics(st)
		st.Distress = finance.CalculateDistress(m.Leverage, skipped)
	}
	st.RecomputeDebt(st.Businesses)
	if from != StateVersion {
		slog.Info("snapshot migrated", "game", st.GameID, "from", from, "to", StateVersion)
	}
	st.Version = StateVersion
}

func backfillBusiness(b *business.Business) {
	if b.Status == "" {
		b.Status = business.StatusActive
	}
	if b.QualityRating < 1 || b.QualityRating > 5 {
		b.QualityRating = 3
	}
	if b.SectorID == "" {
		b.SectorID = business.DefaultSectorID
	}
	if b.Ebitda != business.DeriveEbitda(b.Revenue, b.EbitdaMargin) {
		b.Rederive()
	}
	if b.AcquisitionEbitda == 0 && b.AcquisitionRound > 0 {
		b.AcquisitionEbitda = b.Ebitda
	}
	if b.IsPlatform && b.PlatformScale == 0 {
		b.PlatformScale = len(b.BoltOnIDs)
	}
}

// RestoreCounter moves the id counter past every business id in the
// snapshot, owned or still in the pipeline.
func RestoreCounter(st *GameState) {
	var ids []string
	for _, b := range st.Businesses {
		ids = append(ids, b.ID)
	}
	for _, d := range st.Pipeline {
		ids = append(ids, d.Business.ID)
	}
	st.IDs.RestoreFrom(ids)
}
