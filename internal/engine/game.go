package engine

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/holdco/internal/business"
	"github.com/talgya/holdco/internal/events"
	"github.com/talgya/holdco/internal/finance"
	"github.com/talgya/holdco/internal/rng"
)

// Result is the outcome of a command. Business-rule violations come back as
// OK=false with a Reason and leave the state untouched.
type Result struct {
	OK      bool   `json:"ok"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

func ok(msg string) Result { return Result{OK: true, Message: msg} }

// reject records a notification and returns a failed Result.
func (g *Game) reject(format string, args ...any) Result {
	reason := fmt.Sprintf(format, args...)
	g.State.notify("warn", reason)
	slog.Debug("action rejected", "round", g.State.Round, "reason", reason)
	return Result{Reason: reason}
}

// Options configures a new game.
type Options struct {
	Seed       int64
	MaxRounds  int
	Difficulty Difficulty
	HoldcoName string
}

// Starting balance sheets.
const (
	easyStartingCash      = 20000
	normalStartingCash    = 10000
	normalHoldcoLoan      = 5000
	holdcoLoanRate        = 0.07
	holdcoLoanTermRounds  = 10
	contestedSnatchChance = business.ContestedSnatchChance
)

// Game wraps a GameState with the command surface. It is not safe for
// concurrent use; callers serialise access.
type Game struct {
	State *GameState

	gen   *business.Generator
	cycle *events.MarketCycle

	// SnatchRoll returns the roll compared against the contested-deal snatch
	// chance. Tests replace it to force an outcome.
	SnatchRoll func(deal *business.Deal) float64
}

// NewGame starts a fresh game at round 1, phase collect.
func NewGame(opts Options) *Game {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = StandardRounds
	}
	if opts.Difficulty == "" {
		opts.Difficulty = DifficultyNormal
	}
	if opts.HoldcoName == "" {
		opts.HoldcoName = "Holdco"
	}
	st := &GameState{
		Version:           StateVersion,
		GameID:            uuid.NewString(),
		Seed:              opts.Seed,
		HoldcoName:        opts.HoldcoName,
		Difficulty:        opts.Difficulty,
		Round:             1,
		MaxRounds:         opts.MaxRounds,
		Phase:             PhaseCollect,
		SharesOutstanding: InitialShares,
		FounderShares:     FounderShares,
		IDs:               business.IDCounter{Next: 1},
	}
	switch opts.Difficulty {
	case DifficultyEasy:
		st.Cash = easyStartingCash
	default:
		st.Cash = normalStartingCash + normalHoldcoLoan
		st.HoldcoLoanBalance = normalHoldcoLoan
		st.HoldcoLoanRate = holdcoLoanRate
		st.HoldcoLoanRoundsRemaining = holdcoLoanTermRounds
	}
	st.InitialEquity = st.Cash - st.HoldcoLoanBalance
	st.RecomputeDebt(st.Businesses)

	g := newGame(st)
	slog.Info("game created", "game", st.GameID, "seed", st.Seed, "rounds", st.MaxRounds, "difficulty", st.Difficulty)
	return g
}

// Load wraps a persisted snapshot, defaulting missing fields and rebuilding
// the id counter.
func Load(st *GameState) *Game {
	Backfill(st)
	RestoreCounter(st)
	return newGame(st)
}

func newGame(st *GameState) *Game {
	g := &Game{
		State: st,
		cycle: events.NewMarketCycle(st.Seed),
	}
	g.gen = business.NewGenerator(&st.IDs, nil)
	g.syncNames()
	g.SnatchRoll = g.defaultSnatchRoll
	return g
}

// syncNames rebuilds the name registry from the businesses and deals in the
// snapshot, so a reloaded game generates the same names as the original.
func (g *Game) syncNames() {
	names := business.NewNameRegistry()
	for _, b := range g.State.Businesses {
		names.Reserve(b.Name)
	}
	for _, d := range g.State.Pipeline {
		if d.Business != nil {
			names.Reserve(d.Business.Name)
		}
	}
	g.gen.Names = names
}

// stream returns the sub-stream of a lane for this round keyed by label.
// Each consumer forks its own label, so the order in which the player acts
// does not change what any one draw yields.
func (g *Game) stream(lane rng.Lane, label string) *rng.Stream {
	return rng.NewManager(g.State.Seed, g.State.Round).Fresh(lane).Fork(label)
}

func (g *Game) defaultSnatchRoll(d *business.Deal) float64 {
	return g.stream(rng.LaneDeals, "snatch_"+d.ID).Next()
}

// Metrics returns the derived view of the current state.
func (g *Game) Metrics() Metrics {
	return ComputeMetrics(g.State)
}

func (g *Game) requirePhase(phases ...Phase) (Result, bool) {
	if g.State.GameOver {
		return g.reject("the game is over"), false
	}
	for _, p := range phases {
		if g.State.Phase == p {
			return Result{}, true
		}
	}
	return g.reject("not allowed in the %s phase", g.State.Phase), false
}

func (g *Game) refreshDebt() {
	g.State.RecomputeDebt(g.State.Businesses)
}

// privilegedBlocked reports whether breach-level distress freezes
// acquisitions, buybacks and distributions.
func (g *Game) privilegedBlocked() bool {
	return finance.BlocksPrivilegedActions(g.State.Distress)
}
