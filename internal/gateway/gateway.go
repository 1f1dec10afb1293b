// Package gateway - gateway.go wires the HTTP server around the chat relay.
//
// DESIGN: Request flow:
//   - handleChat():      access gate -> normalize -> upstream call
//   - non-streaming:     materialized reply as JSON
//   - streaming:         SSE headers committed, then the stream translator
//     re-frames the upstream SSE into canonical events
//
// The gateway holds no per-request state; every entity lives and dies inside
// one fetch/response cycle, so concurrent requests never interact.
package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sketchwise/ai-gateway/internal/adapters"
	"github.com/sketchwise/ai-gateway/internal/config"
	"github.com/sketchwise/ai-gateway/internal/monitoring"
	"github.com/sketchwise/ai-gateway/internal/upstream"
)

// Gateway relays chat requests to one configured upstream provider.
type Gateway struct {
	cfg     *config.Config
	client  *upstream.Client
	metrics *monitoring.MetricsCollector
	tracker *monitoring.Tracker
	server  *http.Server
}

// New builds a Gateway from configuration. The provider selection is a plain
// enumerated switch inside adapters.ForProvider; unknown values fall back to
// the OpenAI wire format.
func New(cfg *config.Config) (*Gateway, error) {
	provider := adapters.ProviderFromString(cfg.Upstream.Provider)
	adapter := adapters.ForProvider(provider)

	tracker, err := monitoring.NewTracker(cfg.Monitoring.TelemetryPath)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	g := &Gateway{
		cfg:     cfg,
		client:  upstream.NewClient(cfg.Upstream, adapter),
		metrics: monitoring.NewMetricsCollector(),
		tracker: tracker,
	}
	g.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      g.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return g, nil
}

// Handler returns the gateway's full HTTP handler. Exposed for tests.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", g.handleChat)
	mux.HandleFunc("/api/chat/ws", g.handleChatWS)
	mux.HandleFunc("/api/health", g.handleHealth)
	mux.HandleFunc("/api/stats", g.handleStats)
	mux.Handle("/metrics", g.metrics.Handler())
	return withCORS(mux)
}

// Start blocks on ListenAndServe.
func (g *Gateway) Start() error {
	log.Info().
		Int("port", g.cfg.Server.Port).
		Str("provider", g.cfg.Upstream.Provider).
		Str("model", g.cfg.Upstream.Model).
		Bool("access_protected", g.cfg.Access.Password != "").
		Msg("gateway listening")
	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server and flushes telemetry.
func (g *Gateway) Shutdown(ctx context.Context) error {
	err := g.server.Shutdown(ctx)
	g.tracker.Close()
	return err
}

// withCORS attaches the permissive CORS header set to every response and
// short-circuits preflight requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range corsHeaders {
			w.Header().Set(k, v)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isLoopback reports whether remoteAddr is a local connection. Operational
// endpoints (/api/stats) are restricted to the host they run on.
func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
