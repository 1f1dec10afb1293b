// Package stream converts a provider's native SSE stream into the gateway's
// canonical incremental-event stream.
//
// DESIGN: The translator is a single read-then-emit loop. Each upstream chunk
// is fully processed, including all downstream writes, before the next read
// is issued, so output order matches upstream order exactly and backpressure
// is implicit: the loop paces itself to whichever side is slower.
package stream

import (
	"bytes"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/sketchwise/ai-gateway/internal/config"
)

var (
	dataPrefix   = []byte("data:")
	doneSentinel = []byte("[DONE]")
)

// Event is one canonical stream event: a content fragment, or the terminal
// done marker.
type Event struct {
	Content string
	Done    bool
}

// Extractor pulls the incremental text fragment out of one parsed SSE data
// payload. Provider adapters supply this; see adapters.Adapter.
type Extractor func(payload []byte) string

// EmitFunc receives canonical events in upstream order. An error from emit is
// terminal (typically the downstream consumer disconnected) and stops the
// translation.
type EmitFunc func(Event) error

// Translate consumes the upstream SSE byte stream and emits canonical events
// until end-of-stream or a terminal emit error.
//
// Line handling per SSE framing:
//   - only newline-terminated lines are processed; an incomplete trailing
//     line is held back for the next chunk, and discarded at end-of-stream
//     (it cannot be valid JSON)
//   - blank lines and lines without a "data:" prefix are skipped
//   - the "[DONE]" sentinel is forwarded (at most once) and the loop keeps
//     reading, since providers may send trailing lines after it
//   - payloads that fail to parse as JSON are dropped silently; upstream
//     protocols intersperse non-JSON keep-alive lines that must not break
//     the stream
//
// Translate does not close r; the caller owns the upstream body.
func Translate(r io.Reader, extract Extractor, emit EmitFunc) error {
	var pending []byte
	doneSent := false
	buf := make([]byte, config.DefaultBufferSize)

	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)

			// Process complete lines; hold back the final fragment.
			for {
				idx := bytes.IndexByte(pending, '\n')
				if idx < 0 {
					break
				}
				line := pending[:idx]
				pending = pending[idx+1:]

				event, ok := translateLine(line, extract, &doneSent)
				if !ok {
					continue
				}
				if err := emit(event); err != nil {
					return err
				}
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				log.Debug().Err(readErr).Msg("upstream stream ended with error")
			}
			// No flush of an incomplete trailing line: it cannot be a valid
			// data payload.
			return nil
		}
	}
}

// translateLine maps one complete upstream line to a canonical event.
// ok is false for lines that produce no output.
func translateLine(line []byte, extract Extractor, doneSent *bool) (Event, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || !bytes.HasPrefix(line, dataPrefix) {
		return Event{}, false
	}
	payload := bytes.TrimSpace(bytes.TrimPrefix(line, dataPrefix))

	if bytes.Equal(payload, doneSentinel) {
		if *doneSent {
			return Event{}, false
		}
		*doneSent = true
		return Event{Done: true}, true
	}

	if !gjson.ValidBytes(payload) {
		// Keep-alive noise, not a failure.
		return Event{}, false
	}
	fragment := extract(payload)
	if fragment == "" {
		return Event{}, false
	}
	return Event{Content: fragment}, true
}
