// HTTP request handling for the chat relay.
package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sketchwise/ai-gateway/internal/config"
	"github.com/sketchwise/ai-gateway/internal/monitoring"
	"github.com/sketchwise/ai-gateway/internal/stream"
	"github.com/sketchwise/ai-gateway/internal/upstream"
)

// writeError writes a JSON error response. CORS headers are already set by
// the middleware.
func (g *Gateway) writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// handleHealth returns gateway health status.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleStats returns aggregated metrics as JSON.
// Restricted to localhost to prevent external access to operational metrics.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if !isLoopback(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(g.metrics.Stats())
}

// handleChat relays one chat request to the configured provider.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := getRequestID(r)

	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	// Access gate runs before anything touches upstream.
	decision := EvaluateAccess(g.cfg.Access.Password, r.Header.Get(config.HeaderAccessPassword))
	if !decision.Valid {
		g.finishRequest(requestID, r, startTime, http.StatusUnauthorized, false, decision, 0, "invalid access password")
		g.writeError(w, "invalid access password", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.finishRequest(requestID, r, startTime, http.StatusBadRequest, false, decision, 0, "malformed request body")
		g.writeError(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		g.finishRequest(requestID, r, startTime, http.StatusBadRequest, false, decision, 0, "messages are required")
		g.writeError(w, "messages are required", http.StatusBadRequest)
		return
	}

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += monitoring.EstimateTokens(m.Content.PlainText())
	}
	g.metrics.RecordPromptTokens(promptTokens)

	if req.Stream {
		g.handleStreaming(w, r, req, requestID, startTime, decision, promptTokens)
		return
	}
	g.handleNonStreaming(w, r, req, requestID, startTime, decision, promptTokens)
}

// handleNonStreaming issues the upstream call with stream:false and returns
// the materialized reply.
func (g *Gateway) handleNonStreaming(w http.ResponseWriter, r *http.Request, req ChatRequest,
	requestID string, startTime time.Time, decision AccessDecision, promptTokens int) {

	content, err := g.client.Complete(r.Context(), req.Messages)
	if err != nil {
		// On error, cost-accounting responsibility shifts to the caller:
		// no quota header.
		g.finishRequest(requestID, r, startTime, http.StatusInternalServerError, false, decision, promptTokens, err.Error())
		g.writeError(w, upstreamErrorMessage(err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(config.HeaderQuotaExempt, strconv.FormatBool(decision.Exempt))
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(ChatResponse{Content: content})

	g.finishRequest(requestID, r, startTime, http.StatusOK, false, decision, promptTokens, "")
}

// handleStreaming opens the upstream stream, commits the response headers
// (the quota signal derives from the pre-upstream access decision, so it can
// be committed before any body byte is known), and pipes the translator's
// output as the body.
func (g *Gateway) handleStreaming(w http.ResponseWriter, r *http.Request, req ChatRequest,
	requestID string, startTime time.Time, decision AccessDecision, promptTokens int) {

	resp, err := g.client.Stream(r.Context(), req.Messages)
	if err != nil {
		// Failure before the first byte is a hard upstream error.
		g.finishRequest(requestID, r, startTime, http.StatusInternalServerError, true, decision, promptTokens, err.Error())
		g.writeError(w, upstreamErrorMessage(err), http.StatusInternalServerError)
		return
	}
	// Unconditional release of the upstream reader, whatever happens below.
	defer func() { _ = resp.Body.Close() }()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set(config.HeaderQuotaExempt, strconv.FormatBool(decision.Exempt))
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	sse := stream.NewSSEWriter(w, flusher)

	fragments := 0
	emit := func(ev stream.Event) error {
		if !ev.Done {
			fragments++
		}
		return sse.Emit(ev)
	}

	if err := stream.Translate(resp.Body, g.client.Adapter().ExtractStreamDelta, emit); err != nil {
		// Emit failed: the client disconnected. Terminal; the deferred close
		// releases the upstream reader.
		log.Debug().Err(err).Str("request_id", requestID).Msg("client disconnected mid-stream")
	}

	g.metrics.RecordFragments(fragments)
	g.finishRequest(requestID, r, startTime, http.StatusOK, true, decision, promptTokens, "")
}

// finishRequest emits the per-request log line, metrics, and telemetry row.
func (g *Gateway) finishRequest(requestID string, r *http.Request, startTime time.Time,
	statusCode int, streaming bool, decision AccessDecision, promptTokens int, errMsg string) {

	latency := time.Since(startTime)
	g.metrics.RecordRequest(statusCode, streaming, decision.Exempt, latency)
	g.tracker.Record(monitoring.RequestEvent{
		RequestID:    requestID,
		Timestamp:    startTime,
		Provider:     g.client.Adapter().Name(),
		Model:        g.cfg.Upstream.Model,
		Path:         r.URL.Path,
		StatusCode:   statusCode,
		Streaming:    streaming,
		QuotaExempt:  decision.Exempt,
		LatencyMs:    latency.Milliseconds(),
		PromptTokens: promptTokens,
		Error:        errMsg,
	})

	ev := log.Info()
	if statusCode >= 400 {
		ev = log.Warn()
	}
	ev.Str("request_id", requestID).
		Str("provider", g.client.Adapter().Name()).
		Int("status", statusCode).
		Bool("streaming", streaming).
		Bool("exempt", decision.Exempt).
		Int("prompt_tokens", promptTokens).
		Dur("latency", latency).
		Msg("chat request")
}

// upstreamErrorMessage maps client errors to the message surfaced in the 500
// body. Upstream errors embed the provider's raw body verbatim.
func upstreamErrorMessage(err error) string {
	var ue *upstream.Error
	if errors.As(err, &ue) {
		return ue.Body
	}
	return err.Error()
}

// getRequestID gets or generates a request ID.
func getRequestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.New().String()
}
