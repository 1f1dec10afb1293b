// Package upstream issues the single provider HTTP call for each gateway
// request.
//
// DESIGN: One normalized body serves both call modes; the stream flag is
// patched in here (sjson) rather than built twice by the adapter. A failed
// call is reported upward, never retried.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/sjson"

	"github.com/sketchwise/ai-gateway/internal/adapters"
	"github.com/sketchwise/ai-gateway/internal/config"
	"github.com/sketchwise/ai-gateway/internal/utils"
)

// Error is a non-2xx response from the provider. Body carries the upstream
// response verbatim so the router can embed it in its own error JSON.
type Error struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// Client performs upstream provider calls.
type Client struct {
	cfg        config.UpstreamConfig
	adapter    adapters.Adapter
	httpClient *http.Client
	// streamClient has no overall timeout; SSE responses stay open for the
	// duration of the generation.
	streamClient *http.Client
}

// NewClient builds a Client for the configured provider.
func NewClient(cfg config.UpstreamConfig, adapter adapters.Adapter) *Client {
	return &Client{
		cfg:          cfg,
		adapter:      adapter,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		streamClient: &http.Client{},
	}
}

// Adapter returns the provider adapter this client calls with.
func (c *Client) Adapter() adapters.Adapter { return c.adapter }

// Complete issues a non-streaming call and returns the materialized reply
// text, "" if the envelope carries none.
func (c *Client) Complete(ctx context.Context, messages []adapters.Message) (string, error) {
	resp, err := c.send(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading upstream response: %w", err)
	}
	return c.adapter.ExtractReply(body), nil
}

// Stream issues a streaming call and returns the live response untouched.
// The caller owns resp.Body and must close it. A failure before the first
// byte is a hard error; mid-stream failures are the caller's to observe.
func (c *Client) Stream(ctx context.Context, messages []adapters.Message) (*http.Response, error) {
	return c.send(ctx, messages, true)
}

func (c *Client) send(ctx context.Context, messages []adapters.Message, stream bool) (*http.Response, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		// Fail fast before any network call.
		return nil, fmt.Errorf("upstream API key is not configured")
	}

	body, err := c.adapter.BuildRequest(messages, c.cfg.Model, c.cfg.MaxOutputTokens)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", c.adapter.Name(), err)
	}
	if body, err = sjson.SetBytes(body, "stream", stream); err != nil {
		return nil, fmt.Errorf("setting stream flag: %w", err)
	}

	endpoint := c.adapter.Endpoint(c.cfg.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	c.adapter.ApplyAuthHeaders(req.Header, c.cfg.APIKey)

	log.Debug().
		Str("provider", c.adapter.Name()).
		Str("endpoint", endpoint).
		Str("model", c.cfg.Model).
		Bool("stream", stream).
		Str("api_key", utils.MaskKey(c.cfg.APIKey)).
		Msg("forwarding request")

	started := time.Now()
	httpClient := c.httpClient
	if stream {
		httpClient = c.streamClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		log.Error().
			Int("status", resp.StatusCode).
			Str("provider", c.adapter.Name()).
			Str("response", truncate(string(errBody), config.MaxErrorBodyLogLen)).
			Msg("upstream error response")
		return nil, &Error{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	log.Debug().
		Str("provider", c.adapter.Name()).
		Dur("first_byte", time.Since(started)).
		Msg("upstream responded")
	return resp, nil
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
