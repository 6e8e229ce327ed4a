package autopilot

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/talgya/holdco/internal/business"
	"github.com/talgya/holdco/internal/engine"
)

func newGame(seed int64) *engine.Game {
	return engine.NewGame(engine.Options{Seed: seed, MaxRounds: engine.QuickRounds, Difficulty: engine.DifficultyEasy})
}

func TestPlayIsDeterministic(t *testing.T) {
	a, b := newGame(42), newGame(42)
	sa, sb := Play(a), Play(b)
	if diff := cmp.Diff(sa, sb); diff != "" {
		t.Fatalf("same seed, different score (-a +b):\n%s", diff)
	}
	if a.State.Cash != b.State.Cash {
		t.Errorf("cash diverged: %d vs %d", a.State.Cash, b.State.Cash)
	}
	ids := func(g *engine.Game) []string {
		var out []string
		for _, b := range g.State.Businesses {
			out = append(out, b.ID+":"+b.Name)
		}
		return out
	}
	if diff := cmp.Diff(ids(a), ids(b)); diff != "" {
		t.Errorf("portfolio diverged (-a +b):\n%s", diff)
	}
}

func TestPlayAlwaysEnds(t *testing.T) {
	for _, seed := range []int64{1, 7, 99, 2024} {
		g := newGame(seed)
		sc := Play(g)
		if !g.State.GameOver || g.State.Phase != engine.PhaseGameOver {
			t.Fatalf("seed %d: game not over (phase %s)", seed, g.State.Phase)
		}
		if sc.Grade == "" {
			t.Errorf("seed %d: empty grade", seed)
		}
		if g.State.Cash < 0 && !g.State.Bankrupt {
			t.Errorf("seed %d: negative cash %d without bankruptcy", seed, g.State.Cash)
		}
	}
}

func TestPlayBuysBusinesses(t *testing.T) {
	g := newGame(42)
	Play(g)
	if len(g.State.Businesses) == 0 {
		t.Fatal("autopilot never acquired anything")
	}
}

func TestStepStopsAtGameOver(t *testing.T) {
	g := newGame(3)
	Play(g)
	if Step(g) {
		t.Fatal("Step after game over reported more to do")
	}
}

func TestTurnOutsideAllocateIsNoop(t *testing.T) {
	g := newGame(5)
	if n := Turn(g); n != 0 {
		t.Fatalf("got %d actions in collect phase, want 0", n)
	}
	if len(g.State.ActionsThisRound) != 0 {
		t.Fatal("actions recorded outside allocate")
	}
}

func TestTriageLevels(t *testing.T) {
	g := newGame(1)
	if h := Triage(g); h.CrisisLevel != CrisisHealthy {
		t.Fatalf("fresh easy game: got %s, want %s", h.CrisisLevel, CrisisHealthy)
	}
	g.State.RequiresRestructuring = true
	if h := Triage(g); h.CrisisLevel != CrisisCritical {
		t.Fatalf("pending restructuring: got %s, want %s", h.CrisisLevel, CrisisCritical)
	}
}

func TestRankedDealsPrefersCheapQuality(t *testing.T) {
	cheap := &business.Deal{ID: "deal_b", EffectivePrice: 3000, Business: &business.Business{Ebitda: 1000, QualityRating: 4}}
	dear := &business.Deal{ID: "deal_a", EffectivePrice: 8000, Business: &business.Business{Ebitda: 1000, QualityRating: 3}}
	got := rankedDeals([]*business.Deal{dear, cheap})
	if got[0].ID != "deal_b" {
		t.Fatalf("got %s first, want deal_b", got[0].ID)
	}
}
