package adapters

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageContentUnmarshal(t *testing.T) {
	t.Run("plain string", func(t *testing.T) {
		var m Message
		require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":"hi"}`), &m))
		assert.False(t, m.Content.IsParts)
		assert.Equal(t, "hi", m.Content.Text)
	})

	t.Run("part list", func(t *testing.T) {
		var m Message
		require.NoError(t, json.Unmarshal([]byte(
			`{"role":"user","content":[{"type":"text","text":"a"},{"type":"image_url","image_url":{"url":"data:image/png;base64,AA"}}]}`), &m))
		require.True(t, m.Content.IsParts)
		require.Len(t, m.Content.Parts, 2)
		assert.Equal(t, "a", m.Content.Parts[0].Text)
		require.NotNil(t, m.Content.Parts[1].ImageURL)
		assert.Equal(t, "data:image/png;base64,AA", m.Content.Parts[1].ImageURL.URL)
	})

	t.Run("invalid content", func(t *testing.T) {
		var m Message
		assert.Error(t, json.Unmarshal([]byte(`{"role":"user","content":42}`), &m))
	})
}

func TestMessageContentMarshalRoundTrip(t *testing.T) {
	in := []byte(`{"role":"user","content":[{"type":"text","text":"a"}]}`)
	var m Message
	require.NoError(t, json.Unmarshal(in, &m))
	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, string(in), string(out))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "hi", NewTextContent("hi").PlainText())
	assert.Equal(t, "ab", NewPartsContent(
		ContentPart{Type: "text", Text: "a"},
		ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: "https://x/y.png"}},
		ContentPart{Type: "text", Text: "b"},
	).PlainText())
}

func TestProviderFromString(t *testing.T) {
	assert.Equal(t, ProviderOpenAI, ProviderFromString("openai"))
	assert.Equal(t, ProviderAnthropic, ProviderFromString("anthropic"))
	assert.Equal(t, ProviderUnknown, ProviderFromString("gemini"))
}

func TestForProvider(t *testing.T) {
	assert.IsType(t, &OpenAIAdapter{}, ForProvider(ProviderOpenAI))
	assert.IsType(t, &AnthropicAdapter{}, ForProvider(ProviderAnthropic))
	assert.IsType(t, &OpenAIAdapter{}, ForProvider(ProviderUnknown), "unknown providers fall back to the OpenAI format")
}
