package stream

import (
	"fmt"
	"io"
	"net/http"

	"github.com/sketchwise/ai-gateway/internal/utils"
)

// canonicalEvent is the wire shape of one canonical content fragment.
type canonicalEvent struct {
	Content string `json:"content"`
}

// MarshalCanonical encodes a content event as its canonical JSON payload
// (`{"content": ...}`), without SSE framing. Done events have no JSON form;
// callers send the literal "[DONE]" sentinel instead.
func (e Event) MarshalCanonical() ([]byte, error) {
	return utils.MarshalNoEscape(canonicalEvent{Content: e.Content})
}

// SSEWriter frames canonical events as server-sent events
// (`data: {"content":...}` lines, `data: [DONE]` sentinel) and flushes after
// every event so fragments reach the client as they arrive.
type SSEWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// NewSSEWriter wraps a response writer. flusher may be nil, in which case
// events are written without explicit flushing.
func NewSSEWriter(w io.Writer, flusher http.Flusher) *SSEWriter {
	return &SSEWriter{w: w, flusher: flusher}
}

// Emit writes one canonical event. Satisfies EmitFunc.
func (s *SSEWriter) Emit(ev Event) error {
	if ev.Done {
		return s.write([]byte("data: [DONE]\n\n"))
	}
	payload, err := ev.MarshalCanonical()
	if err != nil {
		return fmt.Errorf("encoding stream event: %w", err)
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	return s.write(frame)
}

func (s *SSEWriter) write(frame []byte) error {
	if _, err := s.w.Write(frame); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
