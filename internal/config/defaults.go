// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined
// here. This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// PROVIDERS
// =============================================================================

// DefaultOpenAIBaseURL is the upstream base URL when PROVIDER=openai and no
// explicit base URL is configured.
const DefaultOpenAIBaseURL = "https://api.openai.com"

// DefaultAnthropicBaseURL is the upstream base URL when PROVIDER=anthropic.
const DefaultAnthropicBaseURL = "https://api.anthropic.com"

// DefaultOpenAIModel is the model identifier used when none is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// DefaultAnthropicModel is the model identifier used when none is configured.
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

// DefaultMaxOutputTokens is the fixed, generous output-token ceiling sent on
// every upstream call. Anthropic requires max_tokens on every request.
const DefaultMaxOutputTokens = 8192

// AnthropicVersion is the anthropic-version header value for upstream calls.
const AnthropicVersion = "2023-06-01"

// =============================================================================
// TOKEN ESTIMATION
// =============================================================================

// TokenEstimateRatio is the approximate number of characters per token.
// Used for rough token counting when the tokenizer is unavailable.
const TokenEstimateRatio = 4

// =============================================================================
// HTTP AND NETWORKING
// =============================================================================

// DefaultPort is the gateway's listen port.
const DefaultPort = 8787

// DefaultBufferSize is the standard I/O buffer size for stream reads.
const DefaultBufferSize = 4096

// MaxRequestBodySize is the maximum allowed inbound request body. 10MB:
// inline base64 images can get large.
const MaxRequestBodySize = 10 * 1024 * 1024

// MaxErrorBodyLogLen limits upstream error bodies in logs to prevent bloat.
const MaxErrorBodyLogLen = 500

// DefaultServerReadTimeout for the HTTP server.
const DefaultServerReadTimeout = 1 * time.Minute

// DefaultServerWriteTimeout for the HTTP server (safe for streaming).
const DefaultServerWriteTimeout = 10 * time.Minute

// DefaultUpstreamTimeout bounds a single non-streaming upstream call.
// Streaming calls run without a client timeout; they inherit the server
// write timeout instead.
const DefaultUpstreamTimeout = 5 * time.Minute

// =============================================================================
// ACCESS CONTROL
// =============================================================================

// HeaderAccessPassword carries the caller's shared-secret credential.
const HeaderAccessPassword = "X-Access-Password"

// HeaderQuotaExempt signals whether the request bypasses quota accounting.
const HeaderQuotaExempt = "X-Quota-Exempt"
