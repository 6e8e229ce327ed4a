package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/talgya/holdco/internal/business"
	"github.com/talgya/holdco/internal/engine"
	"github.com/talgya/holdco/internal/llm"
)

const narrativeTimeout = 30 * time.Second

// narrativeCall produces text outside the game lock.
type narrativeCall func(ctx context.Context) (string, error)

// narrate fills req either immediately from the local template or, with a
// narrative service configured, asynchronously. Caller holds mu. A result
// that arrives after the game moved on is dropped by ApplyNarrative.
func (s *Server) narrate(req engine.NarrativeRequest, call narrativeCall) {
	g := s.game
	if !s.LLM.Enabled() {
		g.ApplyNarrative(req, g.FallbackNarrative(req))
		return
	}
	s.narration.Add(1)
	go func() {
		defer s.narration.Done()
		ctx, cancel := context.WithTimeout(context.Background(), narrativeTimeout)
		defer cancel()
		text, err := call(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			slog.Debug("narrative failed, using fallback", "kind", req.Kind, "round", req.Round, "error", err)
			text = g.FallbackNarrative(req)
		}
		if g.ApplyNarrative(req, text) {
			s.save()
		}
	}()
}

// eventCall captures the brief for the current event. Caller holds mu.
func (s *Server) eventCall(g *engine.Game) narrativeCall {
	ev := g.State.CurrentEvent
	b := llm.EventBrief{
		Round:        g.State.Round,
		Kind:         string(ev.Kind),
		BusinessName: ev.BusinessName,
		EffectText:   ev.EffectText,
		HoldcoName:   g.State.HoldcoName,
	}
	client := s.LLM
	return func(ctx context.Context) (string, error) {
		return llm.EventNarrative(ctx, client, b)
	}
}

// chronicleCall captures the brief for the last recorded round.
func (s *Server) chronicleCall(g *engine.Game) narrativeCall {
	y := yearBrief(g.State)
	client := s.LLM
	return func(ctx context.Context) (string, error) {
		return llm.YearChronicle(ctx, client, y)
	}
}

func yearBrief(st *engine.GameState) llm.YearBrief {
	rec := st.RoundHistory[len(st.RoundHistory)-1]
	y := llm.YearBrief{
		HoldcoName: st.HoldcoName,
		Round:      rec.Round,
		MaxRounds:  st.MaxRounds,
		Cash:       rec.Cash,
		TotalDebt:  rec.TotalDebt,
		Ebitda:     rec.Ebitda,
		Opcos:      rec.Opcos,
		Distress:   rec.Distress.String(),
		Event:      string(rec.EventKind),
	}
	for _, a := range st.ActionLog {
		if a.Round == rec.Round {
			y.Actions = append(y.Actions, string(a.Action.Kind()))
		}
	}
	return y
}

func businessBrief(b *business.Business, round int) llm.BusinessBrief {
	return llm.BusinessBrief{
		Name:         b.Name,
		Sector:       business.SectorOrDefault(b.SectorID).Name,
		SubType:      b.SubType,
		Revenue:      b.Revenue,
		Ebitda:       b.Ebitda,
		Margin:       b.EbitdaMargin,
		Growth:       b.RevenueGrowthRate,
		Quality:      b.QualityRating,
		YearsOwned:   max(round-b.AcquisitionRound, 0),
		IsPlatform:   b.IsPlatform,
		BoltOns:      len(b.BoltOnIDs),
		Improvements: b.Improvements,
	}
}

// handleBusinessNote generates a status note for an owned business. It is
// synchronous so the caller gets the text back.
func (s *Server) handleBusinessNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var (
		req   engine.NarrativeRequest
		brief llm.BusinessBrief
		found bool
	)
	s.View(func(g *engine.Game) {
		req, found = g.BusinessNarrativeRequest(id)
		if found {
			brief = businessBrief(g.State.FindBusiness(id), g.State.Round)
		}
	})
	if !found {
		writeError(w, http.StatusNotFound, "no owned business "+id)
		return
	}

	text, err := llm.BusinessUpdate(r.Context(), s.LLM, brief)
	var applied bool
	s.View(func(g *engine.Game) {
		if err != nil {
			text = g.FallbackNarrative(req)
		}
		applied = g.ApplyNarrative(req, text)
		if applied {
			s.save()
		}
	})
	writeJSON(w, http.StatusOK, map[string]any{"business_id": id, "note": text, "stored": applied})
}

// handleThesis pitches a pipeline deal. Nothing is stored.
func (s *Server) handleThesis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var (
		brief    llm.BusinessBrief
		price    int64
		heat     string
		fallback string
		found    bool
	)
	s.View(func(g *engine.Game) {
		d, _ := business.FindDeal(g.State.Pipeline, id)
		if d == nil {
			return
		}
		found = true
		brief = businessBrief(d.Business, g.State.Round)
		price, heat = d.EffectivePrice, string(d.Heat)
		fallback = fmt.Sprintf("%s: %s %s business, $%dK EBITDA, asking $%dK (%s).",
			d.Business.Name, brief.Sector, d.Business.SubType, d.Business.Ebitda, price, heat)
	})
	if !found {
		writeError(w, http.StatusNotFound, "no deal "+id)
		return
	}

	text, err := llm.BuyerThesis(r.Context(), s.LLM, brief, price, heat)
	if err != nil {
		slog.Debug("thesis fallback", "deal", id, "error", err)
		text = fallback
	}
	writeJSON(w, http.StatusOK, map[string]any{"deal_id": id, "thesis": text})
}
