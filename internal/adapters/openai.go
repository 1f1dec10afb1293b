package adapters

import (
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/sketchwise/ai-gateway/internal/utils"
)

// OpenAIAdapter speaks the OpenAI chat-completions wire format. The canonical
// message shape is already OpenAI-shaped, so normalization is a pass-through:
// roles stay in-line (including system) and multi-part content keeps its
// {type: text|image_url} structure.
type OpenAIAdapter struct{}

// Name returns the provider name.
func (a *OpenAIAdapter) Name() string { return "openai" }

// Provider returns ProviderOpenAI.
func (a *OpenAIAdapter) Provider() Provider { return ProviderOpenAI }

// Endpoint returns the chat completions URL.
func (a *OpenAIAdapter) Endpoint(baseURL string) string {
	return baseURL + "/v1/chat/completions"
}

// ApplyAuthHeaders sets the Bearer token.
func (a *OpenAIAdapter) ApplyAuthHeaders(h http.Header, apiKey string) {
	h.Set("Authorization", "Bearer "+apiKey)
}

type openAIRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

// BuildRequest passes the message list through essentially unchanged.
func (a *OpenAIAdapter) BuildRequest(messages []Message, model string, maxTokens int) ([]byte, error) {
	return utils.MarshalNoEscape(openAIRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
}

// ExtractReply reads choices[0].message.content; "" when absent.
func (a *OpenAIAdapter) ExtractReply(body []byte) string {
	return gjson.GetBytes(body, "choices.0.message.content").String()
}

// ExtractStreamDelta reads choices[0].delta.content from one SSE chunk.
func (a *OpenAIAdapter) ExtractStreamDelta(payload []byte) string {
	return gjson.GetBytes(payload, "choices.0.delta.content").String()
}
