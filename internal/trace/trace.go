// SPDX-License-Identifier: MIT

// Package trace appends per-session stage events to trace.jsonl. Recording is
// best-effort: a failed write is logged and dropped, it never fails a stage.
package trace

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/reeldoc/reeldoc/internal/log"
)

// Kind classifies a trace event.
type Kind string

const (
	KindStart Kind = "start"
	KindEnd   Kind = "end"
	KindError Kind = "error"
	KindNote  Kind = "note"
)

// Attrs carries free-form event attributes.
type Attrs = map[string]any

// Event is one line of the session trace.
type Event struct {
	TS        string `json:"ts"`
	SessionID string `json:"session_id"`
	Stage     string `json:"stage"`
	Kind      Kind   `json:"kind"`
	Attrs     Attrs  `json:"attrs,omitempty"`
}

// Recorder serializes events to a single writer. Safe for concurrent use;
// events appear in emit order.
type Recorder struct {
	mu        sync.Mutex
	w         io.WriteCloser
	sessionID string
	logger    zerolog.Logger
	dropped   int64
	now       func() time.Time
}

// NewRecorder creates a recorder writing to w. A nil writer yields a recorder
// that silently discards all events.
func NewRecorder(w io.WriteCloser, sessionID string) *Recorder {
	return &Recorder{
		w:         w,
		sessionID: sessionID,
		logger:    log.WithComponent("trace").With().Str(log.FieldSessionID, sessionID).Logger(),
		now:       time.Now,
	}
}

// NewNop returns a recorder that discards everything.
func NewNop() *Recorder {
	return NewRecorder(nil, "")
}

// Start records the beginning of a stage.
func (r *Recorder) Start(stage string, attrs Attrs) {
	r.emit(KindStart, stage, attrs)
}

// End records successful completion of a stage with its wall duration.
func (r *Recorder) End(stage string, elapsed time.Duration, attrs Attrs) {
	merged := make(Attrs, len(attrs)+1)
	for k, v := range attrs {
		merged[k] = v
	}
	merged["duration_ms"] = elapsed.Milliseconds()
	r.emit(KindEnd, stage, merged)
}

// Error records a stage failure. The error text lands in attrs under "error".
func (r *Recorder) Error(stage string, err error, attrs Attrs) {
	merged := make(Attrs, len(attrs)+1)
	for k, v := range attrs {
		merged[k] = v
	}
	if err != nil {
		merged["error"] = err.Error()
	}
	r.emit(KindError, stage, merged)
}

// Note records an informational event, e.g. a fallback or a cache hit.
func (r *Recorder) Note(stage string, attrs Attrs) {
	r.emit(KindNote, stage, attrs)
}

// Dropped returns how many events failed to serialize or write.
func (r *Recorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close closes the underlying writer.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	err := r.w.Close()
	r.w = nil
	return err
}

func (r *Recorder) emit(kind Kind, stage string, attrs Attrs) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return
	}

	ev := Event{
		TS:        r.now().UTC().Format(time.RFC3339Nano),
		SessionID: r.sessionID,
		Stage:     stage,
		Kind:      kind,
		Attrs:     attrs,
	}

	line, err := json.Marshal(ev)
	if err != nil {
		r.dropped++
		r.logger.Warn().Err(err).Str(log.FieldStage, stage).Msg("trace event marshal failed")
		return
	}
	line = append(line, '\n')

	if _, err := r.w.Write(line); err != nil {
		r.dropped++
		r.logger.Warn().Err(err).Str(log.FieldStage, stage).Msg("trace event write failed")
	}
}
