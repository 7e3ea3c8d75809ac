// Package ragclient is the single point of contact with the movie RAG
// backend. It performs the chat round trip, the health probe, and the two
// statistics fetches; it never retries on its own, retry is always an
// explicit user action upstream.
package ragclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// NetworkError is a failed chat call: transport failure or a non-2xx status.
// Body carries the raw response text so the UI can surface backend detail.
type NetworkError struct {
	Status int
	Body   string
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chat request failed: %v", e.Err)
	}
	return fmt.Sprintf("chat request failed: http %d: %s", e.Status, e.Body)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// FetchError is a failed statistics fetch.
type FetchError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s failed: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("fetch %s failed: http %d", e.Endpoint, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client talks to the backend over HTTP. All methods honor ctx and the
// configured per-request timeout.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Query sends one chat message with prior conversational context and returns
// the full response payload. Non-2xx statuses and transport failures both
// come back as *NetworkError.
func (c *Client) Query(ctx context.Context, message string, history []Message) (*ChatResponse, error) {
	if history == nil {
		history = []Message{}
	}
	buf, err := json.Marshal(chatRequest{Message: message, ConversationHistory: history})
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/", bytes.NewReader(buf))
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("chat request transport failure", zap.Error(err))
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("chat request rejected",
			zap.Int("status", resp.StatusCode),
			zap.Duration("latency", time.Since(started)),
		)
		return nil, &NetworkError{Status: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var parsed ChatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("non-json chat payload: %w", err)}
	}
	if parsed.Sources.VectorMatches < 0 || parsed.Sources.SQLMatches < 0 {
		return nil, &NetworkError{Err: fmt.Errorf("negative source counts in chat payload")}
	}
	if parsed.TokenUsage != nil && !parsed.TokenUsage.Consistent() {
		// Flag, don't reject: the answer text is still usable, the
		// accounting is not.
		c.logger.Warn("inconsistent token usage record",
			zap.Int("prompt", parsed.TokenUsage.Total.PromptTokens),
			zap.Int("completion", parsed.TokenUsage.Total.CompletionTokens),
			zap.Int("total", parsed.TokenUsage.Total.TotalTokens),
		)
		parsed.TokenUsage = nil
	}
	c.logger.Info("chat request complete",
		zap.String("intent", parsed.Intent),
		zap.Duration("latency", time.Since(started)),
	)
	return &parsed, nil
}

// Health reports backend liveness. Any failure, transport included, means
// unhealthy; this never returns an error because it feeds UI polling.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/chat/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("health probe failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Stats fetches the summary snapshot behind the info bar.
func (c *Client) Stats(ctx context.Context) (StatsSummary, error) {
	var out StatsSummary
	if err := c.getJSON(ctx, "/api/movies/stats", &out); err != nil {
		return StatsSummary{}, err
	}
	return out, nil
}

// DetailedStats fetches the analytics-view snapshot.
func (c *Client) DetailedStats(ctx context.Context) (DetailedStats, error) {
	var out DetailedStats
	if err := c.getJSON(ctx, "/api/movies/stats/detailed", &out); err != nil {
		return DetailedStats{}, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &FetchError{Endpoint: endpoint, Status: resp.StatusCode}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &FetchError{Endpoint: endpoint, Err: fmt.Errorf("non-json payload: %w", err)}
	}
	return nil
}
