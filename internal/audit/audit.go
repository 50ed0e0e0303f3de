// SPDX-License-Identifier: MIT

// Package audit provides structured audit logging for operations that change
// session state or delete data. It follows the WHO/WHAT/WHEN pattern.
package audit

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reeldoc/reeldoc/internal/log"
)

// EventType represents the type of audit event.
type EventType string

const (
	// Session lifecycle events
	EventSessionSubmitted EventType = "session.submitted"
	EventSessionCancelled EventType = "session.cancelled"
	EventSessionDeleted   EventType = "session.deleted"

	// Sweeper events
	EventSweeperReaped EventType = "sweeper.reaped"

	// Prompt registry events
	EventPromptsReloaded    EventType = "prompts.reloaded"
	EventPromptsReloadError EventType = "prompts.reload.error"
)

// Event is one audit record. Actor answers WHO ("cli", "sweeper", "watcher"),
// Action and Resource answer WHAT, the timestamp answers WHEN.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	Actor     string            `json:"actor"`
	Action    string            `json:"action"`
	Resource  string            `json:"resource"`
	Result    string            `json:"result"`
	SessionID string            `json:"session_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// MarshalZerologObject flattens the event onto a log line. Details land as
// top-level fields so they stay queryable without JSON path expressions.
func (ev Event) MarshalZerologObject(e *zerolog.Event) {
	e.Time("timestamp", ev.Timestamp).
		Str("event_type", string(ev.Type)).
		Str("actor", ev.Actor).
		Str("action", ev.Action).
		Str("resource", ev.Resource).
		Str("result", ev.Result)
	if ev.SessionID != "" {
		e.Str(log.FieldSessionID, ev.SessionID)
	}
	for key, value := range ev.Details {
		e.Str(key, value)
	}
}

// Logger writes audit events through the structured log with a fixed
// log_type so they can be separated from operational noise downstream.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates an audit logger bound to the "audit" component.
func NewLogger() *Logger {
	return &Logger{
		logger: log.WithComponent("audit").With().Str("log_type", "audit").Logger(),
	}
}

// Log writes one audit event. A zero timestamp is stamped with now.
func (l *Logger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	l.logger.Info().EmbedObject(event).Msg("audit event")
}

// SessionSubmitted logs acceptance of a new session.
func (l *Logger) SessionSubmitted(actor, sessionID, mode, source string) {
	l.Log(Event{
		Type:      EventSessionSubmitted,
		Actor:     actor,
		Action:    "submitted session",
		Resource:  sessionID,
		Result:    "success",
		SessionID: sessionID,
		Details: map[string]string{
			"mode":   mode,
			"source": source,
		},
	})
}

// SessionCancelled logs a cancellation request and its outcome.
func (l *Logger) SessionCancelled(actor, sessionID, result string) {
	l.Log(Event{
		Type:      EventSessionCancelled,
		Actor:     actor,
		Action:    "cancelled session",
		Resource:  sessionID,
		Result:    result,
		SessionID: sessionID,
	})
}

// SessionDeleted logs removal of a session record and its artifacts.
func (l *Logger) SessionDeleted(actor, sessionID, result string, artifactsRemoved bool) {
	l.Log(Event{
		Type:      EventSessionDeleted,
		Actor:     actor,
		Action:    "deleted session",
		Resource:  sessionID,
		Result:    result,
		SessionID: sessionID,
		Details: map[string]string{
			"artifacts_removed": strconv.FormatBool(artifactsRemoved),
		},
	})
}

// SweeperReaped logs sessions force-failed by the sweeper.
func (l *Logger) SweeperReaped(sessionIDs []string, reason string) {
	l.Log(Event{
		Type:     EventSweeperReaped,
		Actor:    "sweeper",
		Action:   "reaped stale sessions",
		Resource: "sessions",
		Result:   "success",
		Details: map[string]string{
			"sessions": strings.Join(sessionIDs, ","),
			"count":    strconv.Itoa(len(sessionIDs)),
			"reason":   reason,
		},
	})
}

// PromptsReloaded logs a prompt registry reload.
func (l *Logger) PromptsReloaded(actor string, count int, dir string) {
	l.Log(Event{
		Type:     EventPromptsReloaded,
		Actor:    actor,
		Action:   "reloaded prompt registry",
		Resource: dir,
		Result:   "success",
		Details: map[string]string{
			"prompts": strconv.Itoa(count),
		},
	})
}

// PromptsReloadError logs a failed prompt registry reload.
func (l *Logger) PromptsReloadError(actor, dir, reason string) {
	l.Log(Event{
		Type:     EventPromptsReloadError,
		Actor:    actor,
		Action:   "prompt registry reload failed",
		Resource: dir,
		Result:   "failure",
		Details: map[string]string{
			"error": reason,
		},
	})
}
