// Package api provides the HTTP control surface over a running game.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/talgya/holdco/internal/engine"
	"github.com/talgya/holdco/internal/finance"
	"github.com/talgya/holdco/internal/llm"
	"github.com/talgya/holdco/internal/persistence"
)

// Server serves one game over HTTP. Every access to the game goes through
// mu; narrative calls run outside it.
type Server struct {
	LLM      *llm.Client
	DB       *persistence.DB
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	mu   sync.Mutex
	game *engine.Game

	narration sync.WaitGroup
	router    chi.Router
}

// New builds a Server around g. db and client may be nil.
func New(g *engine.Game, db *persistence.DB, client *llm.Client, adminKey string) *Server {
	s := &Server{LLM: client, DB: db, AdminKey: adminKey, game: g}
	s.routes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	// Narrative endpoints consume LLM calls.
	noteLimiter := NewRateLimiter(20, time.Hour)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":        true,
			"narrative": s.LLM.Enabled(),
			"llm_usage": s.LLM.Spent(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/pipeline", s.handlePipeline)
		r.Get("/events", s.handleEvents)
		r.Get("/history", s.handleHistory)

		r.Group(func(r chi.Router) {
			r.Use(noteLimiter.Middleware)
			r.Get("/businesses/{id}/note", s.handleBusinessNote)
			r.Get("/pipeline/{id}/thesis", s.handleThesis)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Post("/advance", s.handleAdvance)
			r.Post("/acquire", s.command(func(g *engine.Game, c commandRequest) engine.Result {
				return g.AcquireBusiness(c.DealID, c.structure())
			}))
			r.Post("/tuckin", s.command(func(g *engine.Game, c commandRequest) engine.Result {
				return g.AcquireTuckIn(c.DealID, c.PlatformID, c.structure())
			}))
			r.Post("/merge", s.command(func(g *engine.Game, c commandRequest) engine.Result {
				return g.MergeBusinesses(c.BusinessID, c.OtherID)
			}))
			r.Post("/platform", s.command(func(g *engine.Game, c commandRequest) engine.Result {
				return g.DesignatePlatform(c.BusinessID)
			}))
			r.Post("/improve", s.command(func(g *engine.Game, c commandRequest) engine.Result {
				return g.ImproveBusiness(c.BusinessID, c.ImprovementID)
			}))
			r.Post("/sell", s.command(func(g *engine.Game, c commandRequest) engine.Result {
				return g.SellBusiness(c.BusinessID)
			}))
			r.Post("/winddown", s.command(func(g *engine.Game, c commandRequest) engine.Result {
				return g.WindDownBusiness(c.BusinessID)
			}))
			r.Post("/paydown", s.command(func(g *engine.Game, c commandRequest) engine.Result {
				return g.PayDownDebt(c.Target, c.Amount)
			}))
			r.Post("/turnaround", s.command(func(g *engine.Game, c commandRequest) engine.Result {
				if c.ProgramID == "" {
					return g.UnlockTurnaroundTier()
				}
				return g.StartTurnaroundProgram(c.BusinessID, c.ProgramID)
			}))
			r.Post("/sourcing", s.command(func(g *engine.Game, c commandRequest) engine.Result {
				if c.Upgrade {
					return g.UpgradeMASourcing()
				}
				return g.SourceDeals(c.Sector)
			}))
			r.Post("/shared-service", s.command(func(g *engine.Game, c commandRequest) engine.Result {
				return g.ActivateSharedService(c.ServiceID)
			}))
			r.Post("/equity", s.command(func(g *engine.Game, c commandRequest) engine.Result {
				return g.IssueEquity(c.Amount)
			}))
			r.Post("/buyback", s.command(func(g *engine.Game, c commandRequest) engine.Result {
				return g.BuybackShares(c.Amount)
			}))
			r.Post("/distribute", s.command(func(g *engine.Game, c commandRequest) engine.Result {
				return g.DistributeToOwners(c.Amount)
			}))
			r.Post("/choice", s.command(func(g *engine.Game, c commandRequest) engine.Result {
				return g.ResolveEventChoice(c.EventID, c.Accept)
			}))
		})
	})
	s.router = r
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "llm", s.LLM.Enabled())

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.narration.Wait()
	return nil
}

// Wait blocks until in-flight narrative calls have been applied.
func (s *Server) Wait() {
	s.narration.Wait()
}

// Mutate runs fn under the game lock, schedules narrative for whatever
// the change produced and autosaves.
func (s *Server) Mutate(fn func(g *engine.Game) engine.Result) engine.Result {
	return s.mutate(fn, true)
}

// Tick is Mutate without the autosave. Unattended play saves on the
// clock's own schedule through Save.
func (s *Server) Tick(fn func(g *engine.Game) engine.Result) engine.Result {
	return s.mutate(fn, false)
}

// Save writes the current snapshot.
func (s *Server) Save() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.save()
}

func (s *Server) mutate(fn func(g *engine.Game) engine.Result, save bool) engine.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.game
	prevEvent := ""
	if ev := g.State.CurrentEvent; ev != nil {
		prevEvent = ev.ID
	}
	prevRounds := len(g.State.RoundHistory)

	res := fn(g)

	if ev := g.State.CurrentEvent; ev != nil && ev.ID != prevEvent {
		if req, ok := g.EventNarrativeRequest(); ok {
			s.narrate(req, s.eventCall(g))
		}
	}
	if len(g.State.RoundHistory) > prevRounds {
		if req, ok := g.ChronicleRequest(); ok {
			s.narrate(req, s.chronicleCall(g))
		}
	}
	if save {
		s.save()
	}
	return res
}

// View runs fn under the game lock without saving.
func (s *Server) View(fn func(g *engine.Game)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.game)
}

// save writes the snapshot. Caller holds mu.
func (s *Server) save() {
	if s.DB == nil {
		return
	}
	if err := s.DB.SaveGame(s.game.State); err != nil {
		slog.Error("autosave failed", "game", s.game.State.GameID, "error", err)
	}
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires the admin bearer token.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, http.StatusForbidden, "admin endpoints disabled (no HOLDCO_ADMIN_KEY set)")
			return
		}
		if !s.checkBearerToken(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.View(func(g *engine.Game) {
		writeJSON(w, http.StatusOK, g.State)
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	s.View(func(g *engine.Game) {
		writeJSON(w, http.StatusOK, g.Metrics())
	})
}

type pipelineEntry struct {
	Deal       any                     `json:"deal"`
	Structures []finance.DealStructure `json:"structures"`
}

func (s *Server) handlePipeline(w http.ResponseWriter, _ *http.Request) {
	s.View(func(g *engine.Game) {
		out := make([]pipelineEntry, 0, len(g.State.Pipeline))
		for _, d := range g.State.Pipeline {
			out = append(out, pipelineEntry{Deal: d, Structures: g.DealStructures(d.ID)})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"round":    g.State.Round,
			"phase":    g.State.Phase,
			"pipeline": out,
		})
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.View(func(g *engine.Game) {
		writeJSON(w, http.StatusOK, map[string]any{
			"current":   g.State.CurrentEvent,
			"history":   g.State.EventHistory,
			"chronicle": g.State.Chronicle,
		})
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	s.View(func(g *engine.Game) {
		writeJSON(w, http.StatusOK, map[string]any{
			"rounds":      g.State.RoundHistory,
			"final_score": g.State.FinalScore,
		})
	})
}

// handleAdvance moves the game one phase forward.
func (s *Server) handleAdvance(w http.ResponseWriter, _ *http.Request) {
	res := s.Mutate(Advance)
	s.respond(w, res)
}

// Advance performs the next phase transition.
func Advance(g *engine.Game) engine.Result {
	switch g.State.Phase {
	case engine.PhaseCollect:
		return g.CollectAndAdvance()
	case engine.PhaseEvent:
		return g.AdvanceToAllocate()
	case engine.PhaseAllocate:
		return g.EndRound()
	case engine.PhaseRestructure:
		return g.CompleteRestructuring()
	}
	return engine.Result{Reason: "game over"}
}

// commandRequest carries the arguments of every command endpoint.
type commandRequest struct {
	DealID        string `json:"deal_id,omitempty"`
	PlatformID    string `json:"platform_id,omitempty"`
	BusinessID    string `json:"business_id,omitempty"`
	OtherID       string `json:"other_id,omitempty"`
	Structure     string `json:"structure,omitempty"`
	ProgramID     string `json:"program_id,omitempty"`
	ImprovementID string `json:"improvement_id,omitempty"`
	ServiceID     string `json:"service_id,omitempty"`
	Sector        string `json:"sector,omitempty"`
	Upgrade       bool   `json:"upgrade,omitempty"`
	Target        string `json:"target,omitempty"`
	Amount        int64  `json:"amount,omitempty"`
	EventID       string `json:"event_id,omitempty"`
	Accept        bool   `json:"accept,omitempty"`
}

func (c commandRequest) structure() finance.StructureKind {
	if c.Structure == "" {
		return finance.StructureAllCash
	}
	return finance.StructureKind(c.Structure)
}

func (s *Server) command(fn func(*engine.Game, commandRequest) engine.Result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commandRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
			return
		}
		res := s.Mutate(func(g *engine.Game) engine.Result { return fn(g, req) })
		s.respond(w, res)
	}
}

type commandResponse struct {
	engine.Result
	Round int          `json:"round"`
	Phase engine.Phase `json:"phase"`
	Cash  int64        `json:"cash"`
}

// respond reports a command result. Rule rejections are 422 with the
// reason; the game is unchanged.
func (s *Server) respond(w http.ResponseWriter, res engine.Result) {
	var out commandResponse
	s.View(func(g *engine.Game) {
		out = commandResponse{Result: res, Round: g.State.Round, Phase: g.State.Phase, Cash: g.State.Cash}
	})
	status := http.StatusOK
	if !res.OK {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, out)
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
