// Package monitoring - telemetry.go persists per-request telemetry rows.
//
// DESIGN: A single writer goroutine drains a bounded channel into SQLite so
// request handling never blocks on disk. Only operational fields are stored;
// message content never touches the database.
package monitoring

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

// RequestEvent is one telemetry row.
type RequestEvent struct {
	RequestID    string
	Timestamp    time.Time
	Provider     string
	Model        string
	Path         string
	StatusCode   int
	Streaming    bool
	QuotaExempt  bool
	LatencyMs    int64
	PromptTokens int
	Error        string
}

// Tracker records request events. A nil Tracker is valid and drops events,
// so callers never need to branch on whether telemetry is configured.
type Tracker struct {
	db     *sql.DB
	events chan RequestEvent
	done   chan struct{}
}

const trackerQueueSize = 256

// NewTracker opens (or creates) the telemetry database at path and starts the
// writer goroutine. Returns nil, nil when path is empty.
func NewTracker(path string) (*Tracker, error) {
	if path == "" {
		return nil, nil
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening telemetry db: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS requests (
			request_id    TEXT PRIMARY KEY,
			ts            TEXT NOT NULL,
			provider      TEXT NOT NULL,
			model         TEXT NOT NULL,
			path          TEXT NOT NULL,
			status_code   INTEGER NOT NULL,
			streaming     INTEGER NOT NULL,
			quota_exempt  INTEGER NOT NULL,
			latency_ms    INTEGER NOT NULL,
			prompt_tokens INTEGER NOT NULL,
			error         TEXT NOT NULL DEFAULT ''
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating telemetry schema: %w", err)
	}

	t := &Tracker{
		db:     db,
		events: make(chan RequestEvent, trackerQueueSize),
		done:   make(chan struct{}),
	}
	go t.run()
	return t, nil
}

// Record enqueues an event. Drops (with a debug log) when the queue is full
// rather than stalling a request.
func (t *Tracker) Record(ev RequestEvent) {
	if t == nil {
		return
	}
	select {
	case t.events <- ev:
	default:
		log.Debug().Str("request_id", ev.RequestID).Msg("telemetry queue full, dropping event")
	}
}

// Close drains pending events and closes the database.
func (t *Tracker) Close() {
	if t == nil {
		return
	}
	close(t.events)
	<-t.done
	_ = t.db.Close()
}

func (t *Tracker) run() {
	defer close(t.done)
	for ev := range t.events {
		t.insert(ev)
	}
}

func (t *Tracker) insert(ev RequestEvent) {
	_, err := t.db.Exec(`
		INSERT OR REPLACE INTO requests
			(request_id, ts, provider, model, path, status_code, streaming,
			 quota_exempt, latency_ms, prompt_tokens, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RequestID,
		ev.Timestamp.UTC().Format(time.RFC3339Nano),
		ev.Provider,
		ev.Model,
		ev.Path,
		ev.StatusCode,
		boolToInt(ev.Streaming),
		boolToInt(ev.QuotaExempt),
		ev.LatencyMs,
		ev.PromptTokens,
		ev.Error,
	)
	if err != nil {
		log.Warn().Err(err).Str("request_id", ev.RequestID).Msg("telemetry insert failed")
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
