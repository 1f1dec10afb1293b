// WebSocket variant of the streaming chat endpoint.
//
// The browser-hosted editor cannot set custom headers on a WebSocket
// handshake, so the access credential is accepted from the X-Access-Password
// header (non-browser clients) or the access_password query parameter.
// The message protocol mirrors the SSE stream: one JSON text message per
// canonical fragment, then a literal "[DONE]" text message.
package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sketchwise/ai-gateway/internal/config"
	"github.com/sketchwise/ai-gateway/internal/monitoring"
	"github.com/sketchwise/ai-gateway/internal/stream"
)

// handleChatWS streams one chat exchange over a WebSocket connection.
func (g *Gateway) handleChatWS(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := getRequestID(r)

	credential := r.Header.Get(config.HeaderAccessPassword)
	if credential == "" {
		credential = r.URL.Query().Get("access_password")
	}
	decision := EvaluateAccess(g.cfg.Access.Password, credential)
	if !decision.Valid {
		g.finishRequest(requestID, r, startTime, http.StatusUnauthorized, true, decision, 0, "invalid access password")
		g.writeError(w, "invalid access password", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Debug().Err(err).Str("request_id", requestID).Msg("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	ctx := r.Context()

	// One ChatRequest message per connection; the stream flag is implied.
	_, data, err := conn.Read(ctx)
	if err != nil {
		return
	}
	var req ChatRequest
	if err := json.Unmarshal(data, &req); err != nil || len(req.Messages) == 0 {
		conn.Close(websocket.StatusUnsupportedData, "malformed chat request")
		g.finishRequest(requestID, r, startTime, http.StatusBadRequest, true, decision, 0, "malformed chat request")
		return
	}

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += monitoring.EstimateTokens(m.Content.PlainText())
	}
	g.metrics.RecordPromptTokens(promptTokens)

	resp, err := g.client.Stream(ctx, req.Messages)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "upstream request failed")
		g.finishRequest(requestID, r, startTime, http.StatusInternalServerError, true, decision, promptTokens, err.Error())
		return
	}
	defer func() { _ = resp.Body.Close() }()

	fragments := 0
	emit := func(ev stream.Event) error {
		if ev.Done {
			return conn.Write(ctx, websocket.MessageText, []byte("[DONE]"))
		}
		payload, err := ev.MarshalCanonical()
		if err != nil {
			return err
		}
		fragments++
		return conn.Write(ctx, websocket.MessageText, payload)
	}

	if err := stream.Translate(resp.Body, g.client.Adapter().ExtractStreamDelta, emit); err != nil {
		log.Debug().Err(err).Str("request_id", requestID).Msg("websocket client went away mid-stream")
	}

	g.metrics.RecordFragments(fragments)
	g.finishRequest(requestID, r, startTime, http.StatusOK, true, decision, promptTokens, "")
	conn.Close(websocket.StatusNormalClosure, "")
}
