package adapters

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/sketchwise/ai-gateway/internal/config"
	"github.com/sketchwise/ai-gateway/internal/utils"
)

// AnthropicAdapter speaks the Anthropic Messages API wire format.
//
// Normalization differs from OpenAI in three ways:
//   - the single system message is lifted into the top-level "system" field
//     and dropped from the messages array
//   - inline base64 data: URIs become {type: image, source: {type: base64}}
//     blocks; remote image URLs cannot be represented (Anthropic requires
//     inline bytes) and degrade to a text placeholder carrying the URL
//   - parts that normalize to empty text are filtered so no empty content
//     blocks reach the API
type AnthropicAdapter struct{}

// Name returns the provider name.
func (a *AnthropicAdapter) Name() string { return "anthropic" }

// Provider returns ProviderAnthropic.
func (a *AnthropicAdapter) Provider() Provider { return ProviderAnthropic }

// Endpoint returns the Messages API URL.
func (a *AnthropicAdapter) Endpoint(baseURL string) string {
	return baseURL + "/v1/messages"
}

// ApplyAuthHeaders sets x-api-key and the required anthropic-version.
func (a *AnthropicAdapter) ApplyAuthHeaders(h http.Header, apiKey string) {
	h.Set("x-api-key", apiKey)
	h.Set("anthropic-version", config.AnthropicVersion)
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicMessage struct {
	Role    string               `json:"role"`
	Content []anthropicContblock `json:"content"`
}

// anthropicContblock is one content block: text or inline image.
type anthropicContblock struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// BuildRequest extracts the system instruction, converts each remaining
// message's content to Anthropic blocks, and drops messages whose content
// normalizes to nothing.
func (a *AnthropicAdapter) BuildRequest(messages []Message, model string, maxTokens int) ([]byte, error) {
	req := anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
	}

	for _, msg := range messages {
		if msg.Role == "system" {
			// At most one system message is meaningful; first wins.
			if req.System == "" {
				req.System = strings.TrimSpace(msg.Content.PlainText())
			}
			continue
		}

		blocks := convertContent(msg.Content)
		if len(blocks) == 0 {
			continue
		}
		req.Messages = append(req.Messages, anthropicMessage{
			Role:    msg.Role,
			Content: blocks,
		})
	}

	return utils.MarshalNoEscape(req)
}

// convertContent maps canonical content to Anthropic blocks, filtering parts
// that come out empty.
func convertContent(content MessageContent) []anthropicContblock {
	if !content.IsParts {
		if strings.TrimSpace(content.Text) == "" {
			return nil
		}
		return []anthropicContblock{{Type: "text", Text: content.Text}}
	}

	blocks := make([]anthropicContblock, 0, len(content.Parts))
	for _, part := range content.Parts {
		switch part.Type {
		case "text":
			if strings.TrimSpace(part.Text) == "" {
				continue
			}
			blocks = append(blocks, anthropicContblock{Type: "text", Text: part.Text})
		case "image_url":
			if part.ImageURL == nil || part.ImageURL.URL == "" {
				continue
			}
			blocks = append(blocks, convertImage(part.ImageURL.URL))
		}
	}
	return blocks
}

// convertImage turns an image reference into an Anthropic block. Inline
// base64 data: URIs become image blocks; anything else degrades to a text
// placeholder carrying the URL.
func convertImage(url string) anthropicContblock {
	if mediaType, data, ok := parseDataURI(url); ok {
		return anthropicContblock{
			Type: "image",
			Source: &anthropicSource{
				Type:      "base64",
				MediaType: mediaType,
				Data:      data,
			},
		}
	}
	return anthropicContblock{
		Type: "text",
		Text: fmt.Sprintf("[Image URL: %s]", url),
	}
}

// parseDataURI splits "data:<media_type>;base64,<payload>". The payload is
// kept verbatim; Anthropic wants the base64 text, not decoded bytes.
func parseDataURI(url string) (mediaType, data string, ok bool) {
	if !strings.HasPrefix(url, "data:") {
		return "", "", false
	}
	rest := strings.TrimPrefix(url, "data:")
	meta, payload, found := strings.Cut(rest, ",")
	if !found || !strings.HasSuffix(meta, ";base64") {
		return "", "", false
	}
	mediaType = strings.TrimSuffix(meta, ";base64")
	if mediaType == "" || payload == "" {
		return "", "", false
	}
	return mediaType, payload, true
}

// ExtractReply reads content[0].text; "" when absent.
func (a *AnthropicAdapter) ExtractReply(body []byte) string {
	return gjson.GetBytes(body, "content.0.text").String()
}

// ExtractStreamDelta reads delta.text, but only from content_block_delta
// events. Every other event type (message_start, ping, ...) carries no
// user-visible content.
func (a *AnthropicAdapter) ExtractStreamDelta(payload []byte) string {
	if gjson.GetBytes(payload, "type").String() != "content_block_delta" {
		return ""
	}
	return gjson.GetBytes(payload, "delta.text").String()
}
