// Package adapters - unified types for provider-specific request handling.
//
// DESIGN: Each provider adapter implements the same three-operation capability
// set over one Provider value:
//   - BuildRequest:       canonical messages -> provider request body
//   - ExtractReply:       provider response envelope -> reply text
//   - ExtractStreamDelta: provider SSE payload -> incremental fragment
//
// All types shared by adapters and the gateway are defined here. This
// eliminates circular imports and provides clear contracts.
package adapters

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// =============================================================================
// PROVIDER TYPES - Used for identification and routing
// =============================================================================

// Provider identifies which LLM provider wire format is being used.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderUnknown   Provider = "unknown"
)

// String returns the provider name.
func (p Provider) String() string {
	return string(p)
}

// ProviderFromString converts a string to a Provider type.
func ProviderFromString(s string) Provider {
	switch s {
	case "openai":
		return ProviderOpenAI
	case "anthropic":
		return ProviderAnthropic
	default:
		return ProviderUnknown
	}
}

// =============================================================================
// CANONICAL MESSAGE TYPES
// =============================================================================

// Message is one entry of the canonical conversation. Content is either a
// plain string or an ordered list of parts (text and image references).
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// ContentPart is one element of a multi-part message. Type is "text" or
// "image_url"; exactly one of Text / ImageURL is meaningful.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL wraps an image reference: either a remote URL or a data: URI
// carrying inline base64 bytes.
type ImageURL struct {
	URL string `json:"url"`
}

// MessageContent is the string-or-parts union. Exactly one of Text/Parts is
// populated; IsParts distinguishes an empty string from an empty part list.
type MessageContent struct {
	Text    string
	Parts   []ContentPart
	IsParts bool
}

// NewTextContent builds plain-string content.
func NewTextContent(text string) MessageContent {
	return MessageContent{Text: text}
}

// NewPartsContent builds multi-part content.
func NewPartsContent(parts ...ContentPart) MessageContent {
	return MessageContent{Parts: parts, IsParts: true}
}

// UnmarshalJSON accepts either a JSON string or an array of content parts.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		c.Text = text
		c.Parts = nil
		c.IsParts = false
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("message content must be a string or an array of parts")
	}
	c.Text = ""
	c.Parts = parts
	c.IsParts = true
	return nil
}

// MarshalJSON emits the same shape that was parsed.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.IsParts {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// PlainText flattens the content to text. Image parts contribute nothing;
// used for token estimation and logging, not for upstream bodies.
func (c MessageContent) PlainText() string {
	if !c.IsParts {
		return c.Text
	}
	var out string
	for _, p := range c.Parts {
		if p.Type == "text" {
			out += p.Text
		}
	}
	return out
}

// =============================================================================
// ADAPTER CONTRACT
// =============================================================================

// Adapter converts between the canonical chat shape and one provider's wire
// format. Adapters are stateless; one instance serves all requests.
type Adapter interface {
	// Name returns the provider name for logging.
	Name() string

	// Provider returns the Provider value this adapter serves.
	Provider() Provider

	// Endpoint returns the full upstream URL for chat completions.
	Endpoint(baseURL string) string

	// ApplyAuthHeaders sets the provider's auth headers on an upstream request.
	ApplyAuthHeaders(h http.Header, apiKey string)

	// BuildRequest normalizes canonical messages into the provider's request
	// body. The body carries no stream flag; the upstream client patches it in.
	BuildRequest(messages []Message, model string, maxTokens int) ([]byte, error)

	// ExtractReply pulls the reply text out of a non-streaming response
	// envelope. Returns "" when the field is absent.
	ExtractReply(body []byte) string

	// ExtractStreamDelta pulls the incremental text fragment out of one parsed
	// SSE data payload. Returns "" for payloads that carry no content.
	ExtractStreamDelta(payload []byte) string
}

// ForProvider returns the adapter for a provider. Unknown providers fall back
// to the OpenAI wire format, which is the ecosystem default.
func ForProvider(p Provider) Adapter {
	if p == ProviderAnthropic {
		return &AnthropicAdapter{}
	}
	return &OpenAIAdapter{}
}
