// Package llm writes holdco narrative through Claude Haiku: event write-ups,
// business notes, year chronicles and buyer theses. Narrative is decoration
// only; callers fall back to local text on any error.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1/messages"
	apiVersion     = "2023-06-01"
	model          = "claude-haiku-4-5-20251001"
)

var (
	// ErrNotConfigured is returned by every call on a client without a key.
	ErrNotConfigured = errors.New("llm client not configured")
	// ErrRateLimited is returned when the per-minute budget is spent.
	ErrRateLimited = errors.New("llm rate limit exceeded")
	// ErrEmpty is returned when the reply carries no usable text.
	ErrEmpty = errors.New("llm returned no text")
)

// APIError is a non-200 reply from the Messages endpoint.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// Client is the analyst desk: one API key, one house voice and a per-minute
// call budget shared by every narrative kind.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	mu        sync.Mutex
	callCount int
	resetAt   time.Time
	maxPerMin int
	spent     Usage
}

// Usage tallies what the client has consumed since it was created.
type Usage struct {
	Calls        int `json:"calls"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// NewClient returns nil if apiKey is empty (narrative service disabled).
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxPerMin:  20,
	}
}

// WithBaseURL points the client at another endpoint, e.g. a test server.
func (c *Client) WithBaseURL(url string) *Client {
	if c != nil {
		c.baseURL = url
	}
	return c
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Spent returns the usage so far.
func (c *Client) Spent() Usage {
	if c == nil {
		return Usage{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spent
}

// piece is one narrative to write.
type piece struct {
	kind      string
	prompt    string
	maxTokens int
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *Client) allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.After(c.resetAt) {
		c.callCount = 0
		c.resetAt = now.Add(time.Minute)
	}
	if c.callCount >= c.maxPerMin {
		return false
	}
	c.callCount++
	return true
}

// Complete writes free-form text in the analyst voice.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return c.write(ctx, piece{kind: "freeform", prompt: prompt, maxTokens: maxTokens})
}

func (c *Client) write(ctx context.Context, p piece) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}
	if !c.allow() {
		return "", fmt.Errorf("%w (%d calls/min)", ErrRateLimited, c.maxPerMin)
	}

	body, err := json.Marshal(request{
		Model:     model,
		MaxTokens: p.maxTokens,
		System:    analystVoice,
		Messages:  []message{{Role: "user", Content: p.prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal %s request: %w", p.kind, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create %s request: %w", p.kind, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s call: %w", p.kind, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s response: %w", p.kind, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode, Body: string(raw)}
	}

	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", fmt.Errorf("unmarshal %s response: %w", p.kind, err)
	}
	c.mu.Lock()
	c.spent.Calls++
	c.spent.InputTokens += r.Usage.InputTokens
	c.spent.OutputTokens += r.Usage.OutputTokens
	c.mu.Unlock()
	slog.Debug("narrative written", "kind", p.kind, "input_tokens", r.Usage.InputTokens, "output_tokens", r.Usage.OutputTokens, "stop", r.StopReason)

	var parts []string
	for _, block := range r.Content {
		if block.Type == "" || block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	text := tidy(strings.Join(parts, ""), r.StopReason == "max_tokens")
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

// tidy trims whitespace and wrapping quotes. A reply cut off by the token
// limit is shortened to its last full sentence.
func tidy(text string, truncated bool) string {
	text = strings.TrimSpace(text)
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	if truncated {
		if i := strings.LastIndexAny(text, ".!?"); i > 0 {
			text = text[:i+1]
		}
	}
	return text
}
