// Package autopilot is a deterministic heuristic player. It drives
// simulations from the CLI and unattended serve mode, and doubles as an
// end-to-end exercise of the engine's command surface.
package autopilot

import (
	"github.com/talgya/holdco/internal/engine"
	"github.com/talgya/holdco/internal/finance"
)

// Crisis levels, most severe first.
const (
	CrisisCritical = "CRITICAL"
	CrisisWarning  = "WARNING"
	CrisisWatch    = "WATCH"
	CrisisHealthy  = "HEALTHY"
)

// Health is the autopilot's read of the balance sheet. Computed from the
// metrics view only; it never mutates the game.
type Health struct {
	Metrics     engine.Metrics
	Reserve     int64 // cash kept back for next year's obligations
	FreeCash    int64
	CrisisLevel string
	LateGame    bool
}

// reserveFraction of outstanding debt is held back as a cash buffer.
const reserveFraction = 0.25

// Triage computes Health for the current round.
func Triage(g *engine.Game) Health {
	st := g.State
	m := g.Metrics()
	h := Health{Metrics: m}

	h.Reserve = int64(float64(m.TotalDebt+m.SellerNotes) * reserveFraction)
	h.Reserve = max(h.Reserve, 500)
	h.FreeCash = max(0, st.Cash-h.Reserve)
	h.LateGame = st.Round >= st.MaxRounds-2

	switch {
	case m.Distress == finance.DistressBreach || st.RequiresRestructuring:
		h.CrisisLevel = CrisisCritical
	case m.Distress == finance.DistressStressed:
		h.CrisisLevel = CrisisWarning
	case m.Distress == finance.DistressElevated:
		h.CrisisLevel = CrisisWatch
	default:
		h.CrisisLevel = CrisisHealthy
	}
	return h
}
