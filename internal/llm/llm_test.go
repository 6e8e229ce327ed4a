package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDisabledClient(t *testing.T) {
	var c *Client
	if c.Enabled() {
		t.Fatal("nil client reports enabled")
	}
	if NewClient("") != nil {
		t.Error("empty key produced a client")
	}
	_, err := EventNarrative(context.Background(), c, EventBrief{Round: 1, Kind: "recession"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("got %v, want ErrNotConfigured", err)
	}
	if _, err := c.Complete(context.Background(), "hi", 10); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("got %v, want ErrNotConfigured", err)
	}
}

func TestCompleteSendsMessagesRequest(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" || r.Header.Get("anthropic-version") != apiVersion {
			http.Error(w, "bad headers", http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"content":[{"text":"Margins held."}],"usage":{"input_tokens":12,"output_tokens":3}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key").WithBaseURL(srv.URL)
	text, err := YearChronicle(context.Background(), c, YearBrief{HoldcoName: "Acme Holdings", Round: 4, MaxRounds: 20, Opcos: 3, Distress: "comfortable"})
	if err != nil {
		t.Fatal(err)
	}
	if text != "Margins held." {
		t.Errorf("got %q", text)
	}
	if got.Model != model || got.MaxTokens != 300 || len(got.Messages) != 1 {
		t.Errorf("request %+v", got)
	}
	if !strings.Contains(got.Messages[0].Content, "year 4 of 20") {
		t.Errorf("prompt %q missing the year", got.Messages[0].Content)
	}
	if got.System != analystVoice {
		t.Errorf("system prompt %q", got.System)
	}
	want := Usage{Calls: 1, InputTokens: 12, OutputTokens: 3}
	if diff := cmp.Diff(want, c.Spent()); diff != "" {
		t.Errorf("usage (-want +got):\n%s", diff)
	}
}

func TestCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("k").WithBaseURL(srv.URL)
	_, err := BusinessUpdate(context.Background(), c, BusinessBrief{Name: "Summit HVAC"})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("got %v, want a 503 error", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
		t.Errorf("got %v, want *APIError with status 503", err)
	}
	if c.Spent().Calls != 0 {
		t.Errorf("failed call counted in usage: %+v", c.Spent())
	}
}

func TestTruncatedReplyEndsOnSentence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"text","text":"\"Summit HVAC grew. "},{"type":"text","text":"Margins held at 18%. The backlog looks"}],"stop_reason":"max_tokens"}`))
	}))
	defer srv.Close()

	c := NewClient("k").WithBaseURL(srv.URL)
	text, err := BuyerThesis(context.Background(), c, BusinessBrief{Name: "Summit HVAC"}, 4200, "hot")
	if err != nil {
		t.Fatal(err)
	}
	if want := `"Summit HVAC grew. Margins held at 18%.`; text != want {
		t.Errorf("got %q, want %q", text, want)
	}
}

func TestTidy(t *testing.T) {
	tests := []struct {
		in        string
		truncated bool
		want      string
	}{
		{"  Margins held.  ", false, "Margins held."},
		{`"Quoted reply."`, false, "Quoted reply."},
		{"One. Two is cut", false, "One. Two is cut"},
		{"One. Two is cut", true, "One."},
		{"no stop at all", true, "no stop at all"},
		{"   ", false, ""},
	}
	for _, tt := range tests {
		if got := tidy(tt.in, tt.truncated); got != tt.want {
			t.Errorf("tidy(%q, %v) = %q, want %q", tt.in, tt.truncated, got, tt.want)
		}
	}
}

func TestEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"tool_use"}]}`))
	}))
	defer srv.Close()

	c := NewClient("k").WithBaseURL(srv.URL)
	if _, err := c.Complete(context.Background(), "p", 5); !errors.Is(err, ErrEmpty) {
		t.Errorf("got %v, want ErrEmpty", err)
	}
}

func TestRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"text":"ok"}]}`))
	}))
	defer srv.Close()

	c := NewClient("k").WithBaseURL(srv.URL)
	c.maxPerMin = 2
	for i := 0; i < 2; i++ {
		if _, err := c.Complete(context.Background(), "p", 5); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if _, err := c.Complete(context.Background(), "p", 5); !errors.Is(err, ErrRateLimited) {
		t.Errorf("got %v, want ErrRateLimited", err)
	}
}
