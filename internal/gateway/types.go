// Package gateway - types.go holds the inbound request/response shapes and
// process-wide response header sets.
package gateway

import (
	"github.com/sketchwise/ai-gateway/internal/adapters"
)

// ChatRequest is the provider-agnostic inbound chat request. Constructed once
// per call and immutable thereafter.
type ChatRequest struct {
	Messages []adapters.Message `json:"messages"`
	Stream   bool               `json:"stream"`
}

// ChatResponse is the non-streaming success body.
type ChatResponse struct {
	Content string `json:"content"`
}

// corsHeaders is the permissive CORS header set attached to every response,
// success or failure, so the browser-hosted caller can always read the body
// and the quota-exemption header. Process-wide immutable configuration.
var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":   "*",
	"Access-Control-Allow-Methods":  "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers":  "Content-Type, X-Access-Password",
	"Access-Control-Expose-Headers": "X-Quota-Exempt",
}
