package llm

import (
	"context"
	"fmt"
	"strings"
)

const analystVoice = `You are the in-house analyst of a small holding company that buys and builds lower-middle-market businesses. Write plainly, like a sharp annual letter: concrete, numerate, no hype. Never invent numbers that were not given. Do not mention that this is a game.`

// EventBrief describes one round's event.
type EventBrief struct {
	Round        int
	Kind         string
	BusinessName string // empty for market-wide events
	EffectText   string
	HoldcoName   string
}

// EventNarrative writes two or three sentences on an event.
func EventNarrative(ctx context.Context, client *Client, b EventBrief) (string, error) {
	if !client.Enabled() {
		return "", ErrNotConfigured
	}
	subject := "the whole portfolio"
	if b.BusinessName != "" {
		subject = b.BusinessName
	}
	prompt := fmt.Sprintf("Year %d at %s. Event: %s, affecting %s.\nMechanical effect: %s\n\nDescribe what happened in 2-3 sentences.",
		b.Round, b.HoldcoName, strings.ReplaceAll(b.Kind, "_", " "), subject, b.EffectText)
	return client.write(ctx, piece{kind: "event", prompt: prompt, maxTokens: 200})
}

// BusinessBrief is the state of one owned business.
type BusinessBrief struct {
	Name         string
	Sector       string
	SubType      string
	Revenue      int64 // thousands
	Ebitda       int64 // thousands
	Margin       float64
	Growth       float64
	Quality      int
	YearsOwned   int
	IsPlatform   bool
	BoltOns      int
	Improvements []string
}

// BusinessUpdate writes a short portfolio-company note.
func BusinessUpdate(ctx context.Context, client *Client, b BusinessBrief) (string, error) {
	if !client.Enabled() {
		return "", ErrNotConfigured
	}
	var lines []string
	lines = append(lines, fmt.Sprintf("Company: %s (%s, %s)", b.Name, b.Sector, b.SubType))
	lines = append(lines, fmt.Sprintf("Revenue: $%dK, EBITDA: $%dK, margin %.1f%%, growth %.1f%%", b.Revenue, b.Ebitda, b.Margin*100, b.Growth*100))
	lines = append(lines, fmt.Sprintf("Quality: %d/5, owned %d years", b.Quality, b.YearsOwned))
	if b.IsPlatform {
		lines = append(lines, fmt.Sprintf("Platform with %d bolt-ons", b.BoltOns))
	}
	if len(b.Improvements) > 0 {
		lines = append(lines, "Improvements made: "+strings.Join(b.Improvements, ", "))
	}
	prompt := "Write a 3-sentence portfolio update for this company:\n\n" + strings.Join(lines, "\n")
	return client.write(ctx, piece{kind: "business_update", prompt: prompt, maxTokens: 250})
}

// YearBrief summarises a closed round.
type YearBrief struct {
	HoldcoName string
	Round      int
	MaxRounds  int
	Cash       int64
	TotalDebt  int64
	Ebitda     int64
	Opcos      int
	Distress   string
	Event      string
	Actions    []string
}

// YearChronicle writes a one-paragraph letter for the year.
func YearChronicle(ctx context.Context, client *Client, y YearBrief) (string, error) {
	if !client.Enabled() {
		return "", ErrNotConfigured
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s, year %d of %d.\n", y.HoldcoName, y.Round, y.MaxRounds)
	fmt.Fprintf(&sb, "Opcos: %d. EBITDA: $%dK. Cash: $%dK. Debt: $%dK. Balance sheet: %s.\n", y.Opcos, y.Ebitda, y.Cash, y.TotalDebt, y.Distress)
	if y.Event != "" {
		fmt.Fprintf(&sb, "Defining event: %s.\n", y.Event)
	}
	if len(y.Actions) > 0 {
		fmt.Fprintf(&sb, "Moves this year: %s.\n", strings.Join(y.Actions, "; "))
	}
	sb.WriteString("\nWrite one paragraph (80-120 words) for the annual letter to shareholders.")
	return client.write(ctx, piece{kind: "year_chronicle", prompt: sb.String(), maxTokens: 300})
}

// BuyerThesis writes the investment case a seller's broker would pitch.
func BuyerThesis(ctx context.Context, client *Client, b BusinessBrief, askingPrice int64, heat string) (string, error) {
	if !client.Enabled() {
		return "", ErrNotConfigured
	}
	prompt := fmt.Sprintf("A broker is marketing %s, a %s business (%s) with $%dK revenue and $%dK EBITDA (%.1f%% margin, %.1f%% growth), quality %d/5. Asking $%dK; buyer interest is %s.\n\nGive the bull case and the main risk in 2 sentences.",
		b.Name, b.Sector, b.SubType, b.Revenue, b.Ebitda, b.Margin*100, b.Growth*100, b.Quality, askingPrice, heat)
	return client.write(ctx, piece{kind: "buyer_thesis", prompt: prompt, maxTokens: 200})
}
