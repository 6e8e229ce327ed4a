// Package engine composes the generators, resolvers and the waterfall into a
// turn-based holdco game. GameState is the pure, serialisable snapshot; Game
// wraps it with the command surface.
package engine

import (
	"github.com/talgya/holdco/internal/business"
	"github.com/talgya/holdco/internal/events"
	"github.com/talgya/holdco/internal/finance"
	"github.com/talgya/holdco/internal/turnaround"
)

// StateVersion is bumped whenever GameState gains fields that Backfill must
// default for older snapshots.
const StateVersion = 3

// Phase is a step of the round state machine:
// collect → event → allocate → [restructure] → collect.
type Phase string

const (
	PhaseCollect     Phase = "collect"
	PhaseEvent       Phase = "event"
	PhaseAllocate    Phase = "allocate"
	PhaseRestructure Phase = "restructure"
	PhaseGameOver    Phase = "game_over"
)

// Difficulty selects the starting balance sheet.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
)

// Game lengths.
const (
	StandardRounds = 20
	QuickRounds    = 10
)

// Share structure at founding.
const (
	InitialShares = 1000
	FounderShares = 800
)

// Notification is a player-facing message about a rejected or notable action.
type Notification struct {
	Round   int    `json:"round"`
	Level   string `json:"level"` // info, warn, error
	Message string `json:"message"`
}

// RoundRecord is the per-round summary kept for history and telemetry.
type RoundRecord struct {
	Round            int                      `json:"round"`
	Cash             int64                    `json:"cash"`
	TotalDebt        int64                    `json:"total_debt"`
	Ebitda           int64                    `json:"ebitda"`
	Revenue          int64                    `json:"revenue"`
	Opcos            int                      `json:"opcos"`
	Distress         finance.DistressLevel    `json:"distress"`
	EventKind        events.Kind              `json:"event_kind,omitempty"`
	ValuePerShare    float64                  `json:"value_per_share"`
	Waterfall        *finance.WaterfallResult `json:"waterfall,omitempty"`
	Actions          int                      `json:"actions"`
	AcquisitionTries int                      `json:"acquisition_attempts"`
}

// GameState is the complete persisted snapshot of one game.
type GameState struct {
	Version    int        `json:"version"`
	GameID     string     `json:"game_id"`
	Seed       int64      `json:"seed"`
	HoldcoName string     `json:"holdco_name"`
	Difficulty Difficulty `json:"difficulty"`
	Round      int        `json:"round"`
	MaxRounds  int        `json:"max_rounds"`
	Phase      Phase      `json:"phase"`

	finance.Ledger
	Distress              finance.DistressLevel `json:"distress"`
	RequiresRestructuring bool                  `json:"requires_restructuring,omitempty"`
	Bankrupt              bool                  `json:"bankrupt,omitempty"`
	GameOver              bool                  `json:"game_over,omitempty"`

	InitialEquity      int64 `json:"initial_equity"`
	SharesOutstanding  int64 `json:"shares_outstanding"`
	FounderShares      int64 `json:"founder_shares"`
	TotalDistributions int64 `json:"total_distributions"`
	TotalBuybacks      int64 `json:"total_buybacks"`
	EquityRaised       int64 `json:"equity_raised"`

	Businesses []*business.Business `json:"businesses"`
	Pipeline   []*business.Deal     `json:"pipeline"`
	IDs        business.IDCounter   `json:"ids"`

	Turnarounds      []turnaround.ActiveTurnaround `json:"turnarounds"`
	NextTurnaroundID int                           `json:"next_turnaround_id"`
	TurnaroundTier   int                           `json:"turnaround_tier"`
	MASourcingTier   int                           `json:"ma_sourcing_tier"`
	SharedServices   []string                      `json:"shared_services"`

	CurrentEvent      *events.Event `json:"current_event,omitempty"`
	EventHistory      []events.Kind `json:"event_history"`
	MarketMultipleAdj float64       `json:"market_multiple_adj"`
	CreditTight       bool          `json:"credit_tight,omitempty"`

	AcquisitionAttempts int                      `json:"acquisition_attempts"`
	SourcingRuns        int                      `json:"sourcing_runs"`
	EquityIssuedRound   bool                     `json:"equity_issued_round,omitempty"`
	ActionsThisRound    []ActionRecord           `json:"actions_this_round"`
	RoundHistory        []RoundRecord            `json:"round_history"`
	Notifications       []Notification           `json:"notifications"`
	LastWaterfall       *finance.WaterfallResult `json:"last_waterfall,omitempty"`
	FinalScore          *Score                   `json:"final_score,omitempty"`

	// ActionLog is the whole game's action history. It is stored in its own
	// table rather than inside the snapshot.
	ActionLog []ActionRecord `json:"-"`

	Chronicle     []ChronicleEntry  `json:"chronicle,omitempty"`
	BusinessNotes map[string]string `json:"business_notes,omitempty"`
}

// ChronicleEntry is the narrative summary of one closed round.
type ChronicleEntry struct {
	Round int    `json:"round"`
	Text  string `json:"text"`
}

// FindBusiness returns the business with id, or nil.
func (s *GameState) FindBusiness(id string) *business.Business {
	for _, b := range s.Businesses {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// ActiveBusinesses returns standalone businesses still operating.
func (s *GameState) ActiveBusinesses() []*business.Business {
	var out []*business.Business
	for _, b := range s.Businesses {
		if b.Status == business.StatusActive {
			out = append(out, b)
		}
	}
	return out
}

// Platforms returns active platform businesses.
func (s *GameState) Platforms() []*business.Business {
	var out []*business.Business
	for _, b := range s.Businesses {
		if b.Status == business.StatusActive && b.IsPlatform {
			out = append(out, b)
		}
	}
	return out
}

// FounderOwnership is the founder's share of the equity.
func (s *GameState) FounderOwnership() float64 {
	if s.SharesOutstanding <= 0 {
		return 1
	}
	return float64(s.FounderShares) / float64(s.SharesOutstanding)
}

func (s *GameState) notify(level, msg string) {
	s.Notifications = append(s.Notifications, Notification{Round: s.Round, Level: level, Message: msg})
}
