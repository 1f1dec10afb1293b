// Package monitoring - metrics.go provides operational counters.
//
// DESIGN: Lightweight in-memory counters back the /api/stats JSON endpoint;
// the same recording calls feed Prometheus collectors for /metrics. Counters
// cover requests, rejections, upstream errors, streaming activity, and quota
// exemptions.
package monitoring

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	startedAt time.Time

	requests       atomic.Int64
	successes      atomic.Int64
	rejections     atomic.Int64
	upstreamErrors atomic.Int64
	streamsOpened  atomic.Int64
	fragmentsSent  atomic.Int64
	exemptRequests atomic.Int64

	registry        *prometheus.Registry
	promRequests    *prometheus.CounterVec
	promFragments   prometheus.Counter
	promLatency     prometheus.Histogram
	promTokens      prometheus.Counter
	estimatedTokens atomic.Int64
}

// NewMetricsCollector creates a collector with its own Prometheus registry.
func NewMetricsCollector() *MetricsCollector {
	mc := &MetricsCollector{
		startedAt: time.Now(),
		registry:  prometheus.NewRegistry(),
		promRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Chat requests by outcome.",
		}, []string{"outcome", "mode"}),
		promFragments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_stream_fragments_total",
			Help: "Canonical stream fragments forwarded to clients.",
		}),
		promLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Request duration from receipt to response completion.",
			Buckets: prometheus.DefBuckets,
		}),
		promTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_estimated_prompt_tokens_total",
			Help: "Estimated prompt tokens across all requests.",
		}),
	}
	mc.registry.MustRegister(mc.promRequests, mc.promFragments, mc.promLatency, mc.promTokens)
	return mc
}

// RecordRequest records a completed chat request.
func (mc *MetricsCollector) RecordRequest(statusCode int, streaming, exempt bool, d time.Duration) {
	mc.requests.Add(1)
	outcome := "success"
	switch {
	case statusCode == http.StatusUnauthorized:
		mc.rejections.Add(1)
		outcome = "rejected"
	case statusCode >= 500:
		mc.upstreamErrors.Add(1)
		outcome = "upstream_error"
	case statusCode >= 400:
		outcome = "invalid"
	default:
		mc.successes.Add(1)
	}
	if exempt {
		mc.exemptRequests.Add(1)
	}
	if streaming && statusCode < 400 {
		mc.streamsOpened.Add(1)
	}

	mode := "chat"
	if streaming {
		mode = "stream"
	}
	mc.promRequests.WithLabelValues(outcome, mode).Inc()
	mc.promLatency.Observe(d.Seconds())
}

// RecordFragments records canonical fragments forwarded on one stream.
func (mc *MetricsCollector) RecordFragments(n int) {
	if n <= 0 {
		return
	}
	mc.fragmentsSent.Add(int64(n))
	mc.promFragments.Add(float64(n))
}

// RecordPromptTokens records an estimated prompt token count.
func (mc *MetricsCollector) RecordPromptTokens(n int) {
	if n <= 0 {
		return
	}
	mc.estimatedTokens.Add(int64(n))
	mc.promTokens.Add(float64(n))
}

// Handler returns the Prometheus exposition handler for this collector.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

// StartedAt returns when the collector was created.
func (mc *MetricsCollector) StartedAt() time.Time { return mc.startedAt }

// Stats returns current counters for the /api/stats endpoint.
func (mc *MetricsCollector) Stats() StatsData {
	uptime := time.Since(mc.startedAt)
	return StatsData{
		Uptime:        formatDuration(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartedAt:     mc.startedAt.Format(time.RFC3339),
		Requests: RequestStats{
			Total:          mc.requests.Load(),
			Successful:     mc.successes.Load(),
			Rejected:       mc.rejections.Load(),
			UpstreamErrors: mc.upstreamErrors.Load(),
			QuotaExempt:    mc.exemptRequests.Load(),
		},
		Streaming: StreamStats{
			StreamsOpened:      mc.streamsOpened.Load(),
			FragmentsForwarded: mc.fragmentsSent.Load(),
		},
		EstimatedPromptTokens: mc.estimatedTokens.Load(),
	}
}

// StatsData is the structured response for the /api/stats endpoint.
type StatsData struct {
	Uptime                string       `json:"uptime"`
	UptimeSeconds         int64        `json:"uptime_seconds"`
	StartedAt             string       `json:"started_at"`
	Requests              RequestStats `json:"requests"`
	Streaming             StreamStats  `json:"streaming"`
	EstimatedPromptTokens int64        `json:"estimated_prompt_tokens"`
}

// RequestStats holds request count metrics.
type RequestStats struct {
	Total          int64 `json:"total"`
	Successful     int64 `json:"successful"`
	Rejected       int64 `json:"rejected"`
	UpstreamErrors int64 `json:"upstream_errors"`
	QuotaExempt    int64 `json:"quota_exempt"`
}

// StreamStats holds streaming activity metrics.
type StreamStats struct {
	StreamsOpened      int64 `json:"streams_opened"`
	FragmentsForwarded int64 `json:"fragments_forwarded"`
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
