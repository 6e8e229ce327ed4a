package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/holdco/internal/business"
)

// NarrativeKind selects what a narrative result decorates.
type NarrativeKind string

const (
	NarrativeEvent     NarrativeKind = "event"
	NarrativeBusiness  NarrativeKind = "business_update"
	NarrativeChronicle NarrativeKind = "year_chronicle"
)

// NarrativeRequest identifies the state a narrative was generated for.
// Narrative is produced asynchronously; ApplyNarrative drops results whose
// request no longer matches the game.
type NarrativeRequest struct {
	Kind       NarrativeKind `json:"kind"`
	GameID     string        `json:"game_id"`
	Round      int           `json:"round"`
	EventID    string        `json:"event_id,omitempty"`
	BusinessID string        `json:"business_id,omitempty"`
}

// EventNarrativeRequest returns a request for the current event, if any.
func (g *Game) EventNarrativeRequest() (NarrativeRequest, bool) {
	ev := g.State.CurrentEvent
	if ev == nil {
		return NarrativeRequest{}, false
	}
	return NarrativeRequest{
		Kind: NarrativeEvent, GameID: g.State.GameID, Round: g.State.Round,
		EventID: ev.ID, BusinessID: ev.BusinessID,
	}, true
}

// BusinessNarrativeRequest asks for a status note on an owned business.
func (g *Game) BusinessNarrativeRequest(businessID string) (NarrativeRequest, bool) {
	b := g.State.FindBusiness(businessID)
	if b == nil || !b.IsOwned() {
		return NarrativeRequest{}, false
	}
	return NarrativeRequest{Kind: NarrativeBusiness, GameID: g.State.GameID, Round: g.State.Round, BusinessID: b.ID}, true
}

// ChronicleRequest asks for the summary of the most recently recorded round.
func (g *Game) ChronicleRequest() (NarrativeRequest, bool) {
	h := g.State.RoundHistory
	if len(h) == 0 {
		return NarrativeRequest{}, false
	}
	return NarrativeRequest{Kind: NarrativeChronicle, GameID: g.State.GameID, Round: h[len(h)-1].Round}, true
}

// stale reports whether the game has moved past req.
func (g *Game) stale(req NarrativeRequest) bool {
	st := g.State
	if req.GameID != st.GameID {
		return true
	}
	switch req.Kind {
	case NarrativeEvent:
		ev := st.CurrentEvent
		return req.Round != st.Round || ev == nil || ev.ID != req.EventID
	case NarrativeBusiness:
		b := st.FindBusiness(req.BusinessID)
		return req.Round != st.Round || b == nil || !b.IsOwned()
	case NarrativeChronicle:
		for _, r := range st.RoundHistory {
			if r.Round == req.Round {
				return false
			}
		}
		return true
	}
	return true
}

// ApplyNarrative stores text for req and reports whether it was used.
// Narrative never changes any simulated value.
func (g *Game) ApplyNarrative(req NarrativeRequest, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || g.stale(req) {
		slog.Debug("narrative discarded", "kind", req.Kind, "round", req.Round, "current", g.State.Round)
		return false
	}
	st := g.State
	switch req.Kind {
	case NarrativeEvent:
		st.CurrentEvent.Narrative = text
	case NarrativeBusiness:
		if st.BusinessNotes == nil {
			st.BusinessNotes = make(map[string]string)
		}
		st.BusinessNotes[req.BusinessID] = text
	case NarrativeChronicle:
		for i := range st.Chronicle {
			if st.Chronicle[i].Round == req.Round {
				st.Chronicle[i].Text = text
				return true
			}
		}
		st.Chronicle = append(st.Chronicle, ChronicleEntry{Round: req.Round, Text: text})
	}
	return true
}

func money(thousands int64) string {
	if thousands >= 1000 || thousands <= -1000 {
		return "$" + humanize.CommafWithDigits(float64(thousands)/1000, 1) + "M"
	}
	return "$" + humanize.Comma(thousands) + "K"
}

// FallbackNarrative is the local text used when no narrative service is
// configured or it fails.
func (g *Game) FallbackNarrative(req NarrativeRequest) string {
	st := g.State
	switch req.Kind {
	case NarrativeEvent:
		ev := st.CurrentEvent
		if ev == nil {
			return ""
		}
		return fmt.Sprintf("Year %d: %s", req.Round, ev.EffectText)
	case NarrativeBusiness:
		b := st.FindBusiness(req.BusinessID)
		if b == nil {
			return ""
		}
		return businessNote(b)
	case NarrativeChronicle:
		for _, r := range st.RoundHistory {
			if r.Round != req.Round {
				continue
			}
			line := fmt.Sprintf("Year %d closed with %d opcos, EBITDA of %s, %s cash and %s of debt.",
				r.Round, r.Opcos, money(r.Ebitda), money(r.Cash), money(r.TotalDebt))
			if r.EventKind != "" {
				line += " The year's defining event: " + strings.ReplaceAll(string(r.EventKind), "_", " ") + "."
			}
			return line
		}
	}
	return ""
}

func businessNote(b *business.Business) string {
	growth := b.EbitdaGrowthSinceAcquisition()
	trend := "flat"
	switch {
	case growth > 0.05:
		trend = fmt.Sprintf("up %.0f%%", growth*100)
	case growth < -0.05:
		trend = fmt.Sprintf("down %.0f%%", -growth*100)
	}
	return fmt.Sprintf("%s runs %s of revenue at a %.0f%% margin; EBITDA is %s since acquisition.",
		b.Name, money(b.Revenue), b.EbitdaMargin*100, trend)
}
