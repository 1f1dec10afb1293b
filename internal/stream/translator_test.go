package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchwise/ai-gateway/internal/adapters"
)

// chunkedReader yields the source in fixed-size chunks so tests can exercise
// arbitrary chunk boundaries, including one byte at a time.
type chunkedReader struct {
	data      []byte
	chunkSize int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.chunkSize
	if n > len(c.data) || n <= 0 {
		n = len(c.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func collect(t *testing.T, r io.Reader, extract Extractor) []Event {
	t.Helper()
	var events []Event
	err := Translate(r, extract, func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	return events
}

func openAIExtract() Extractor {
	return (&adapters.OpenAIAdapter{}).ExtractStreamDelta
}

func anthropicExtract() Extractor {
	return (&adapters.AnthropicAdapter{}).ExtractStreamDelta
}

func TestTranslateOpenAIRoundTrip(t *testing.T) {
	upstream := "data: {\"choices\":[{\"delta\":{\"content\":\"A\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"B\"}}]}\n\n" +
		"data: [DONE]\n\n"

	events := collect(t, bytes.NewReader([]byte(upstream)), openAIExtract())

	require.Len(t, events, 3)
	assert.Equal(t, Event{Content: "A"}, events[0])
	assert.Equal(t, Event{Content: "B"}, events[1])
	assert.Equal(t, Event{Done: true}, events[2])
}

func TestTranslateChunkBoundaryIdempotence(t *testing.T) {
	upstream := []byte("data: {\"choices\":[{\"delta\":{\"content\":\"hello \"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"world\"}}]}\n\n" +
		"data: [DONE]\n\n")

	whole := collect(t, bytes.NewReader(upstream), openAIExtract())

	for _, chunkSize := range []int{1, 2, 3, 7, 64} {
		split := collect(t, &chunkedReader{data: append([]byte(nil), upstream...), chunkSize: chunkSize}, openAIExtract())
		assert.Equal(t, whole, split, "chunk size %d must not change the event sequence", chunkSize)
	}
}

func TestTranslateDropsMalformedLines(t *testing.T) {
	upstream := "data: {\"choices\":[{\"delta\":{\"content\":\"A\"}}]}\n\n" +
		": keep-alive comment\n" +
		"data: {not json at all\n" +
		"event: noise\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"B\"}}]}\n\n" +
		"data: [DONE]\n\n"

	events := collect(t, bytes.NewReader([]byte(upstream)), openAIExtract())

	require.Len(t, events, 3)
	assert.Equal(t, "A", events[0].Content)
	assert.Equal(t, "B", events[1].Content)
	assert.True(t, events[2].Done)
}

func TestTranslateAnthropicEvents(t *testing.T) {
	upstream := "data: {\"type\":\"message_start\",\"message\":{\"usage\":{\"input_tokens\":10}}}\n\n" +
		"data: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\"hi\"}}\n\n" +
		"data: {\"type\":\"ping\"}\n\n" +
		"data: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\" there\"}}\n\n" +
		"data: {\"type\":\"message_stop\"}\n\n"

	events := collect(t, bytes.NewReader([]byte(upstream)), anthropicExtract())

	require.Len(t, events, 2)
	assert.Equal(t, "hi", events[0].Content)
	assert.Equal(t, " there", events[1].Content)
}

func TestTranslateDoneSentinelAtMostOnce(t *testing.T) {
	upstream := "data: [DONE]\n\ndata: [DONE]\n\n"

	events := collect(t, bytes.NewReader([]byte(upstream)), openAIExtract())

	require.Len(t, events, 1)
	assert.True(t, events[0].Done)
}

func TestTranslateDiscardsIncompleteTrailingLine(t *testing.T) {
	// The final line is not newline-terminated, so it is never processed.
	upstream := "data: {\"choices\":[{\"delta\":{\"content\":\"A\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"trunc"

	events := collect(t, bytes.NewReader([]byte(upstream)), openAIExtract())

	require.Len(t, events, 1)
	assert.Equal(t, "A", events[0].Content)
}

func TestTranslateEmptyFragmentsProduceNoEvents(t *testing.T) {
	upstream := "data: {\"choices\":[{\"delta\":{}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"\"}}]}\n\n" +
		"data: [DONE]\n\n"

	events := collect(t, bytes.NewReader([]byte(upstream)), openAIExtract())

	require.Len(t, events, 1)
	assert.True(t, events[0].Done)
}

func TestTranslateStopsOnEmitError(t *testing.T) {
	upstream := "data: {\"choices\":[{\"delta\":{\"content\":\"A\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"B\"}}]}\n\n"

	calls := 0
	err := Translate(bytes.NewReader([]byte(upstream)), openAIExtract(), func(Event) error {
		calls++
		return io.ErrClosedPipe
	})

	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.Equal(t, 1, calls, "translation must stop on the first emit failure")
}

func TestSSEWriterFraming(t *testing.T) {
	var buf bytes.Buffer
	w := NewSSEWriter(&buf, nil)

	require.NoError(t, w.Emit(Event{Content: "A <tag>"}))
	require.NoError(t, w.Emit(Event{Done: true}))

	assert.Equal(t, "data: {\"content\":\"A <tag>\"}\n\ndata: [DONE]\n\n", buf.String())
}
