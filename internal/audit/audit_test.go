// SPDX-License-Identifier: MIT

package audit

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeldoc/reeldoc/internal/log"
)

// capture rebinds the global log output to a buffer and returns an audit
// logger writing into it.
func capture(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	log.Configure(log.Config{Output: &buf, Service: "reeldoc-test"})
	t.Cleanup(func() { log.Configure(log.Config{}) })
	return NewLogger(), &buf
}

func TestLogger_Log_FlattensEvent(t *testing.T) {
	logger, buf := capture(t)

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	logger.Log(Event{
		Timestamp: ts,
		Type:      EventSessionDeleted,
		Actor:     "cli",
		Action:    "deleted session",
		Resource:  "sess-1",
		Result:    "success",
		SessionID: "sess-1",
		Details:   map[string]string{"artifacts_removed": "true"},
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "audit", entry["component"])
	assert.Equal(t, "audit", entry["log_type"])
	assert.Equal(t, "session.deleted", entry["event_type"])
	assert.Equal(t, "cli", entry["actor"])
	assert.Equal(t, "success", entry["result"])
	assert.Equal(t, "sess-1", entry[log.FieldSessionID])
	assert.Equal(t, "true", entry["artifacts_removed"], "details must land as top-level fields")
}

func TestLogger_Log_StampsZeroTimestamp(t *testing.T) {
	logger, buf := capture(t)

	logger.Log(Event{
		Type:     EventSessionSubmitted,
		Actor:    "cli",
		Action:   "submitted session",
		Resource: "sess-2",
		Result:   "success",
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotEmpty(t, entry["timestamp"])
}

func TestLogger_SessionHelpers(t *testing.T) {
	logger, buf := capture(t)

	logger.SessionSubmitted("cli", "sess-1", "scene_detection", "file")
	logger.SessionCancelled("cli", "sess-1", "ok")
	logger.SessionDeleted("cli", "sess-1", "ok", true)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "session.submitted", entry["event_type"])
	assert.Equal(t, "scene_detection", entry["mode"])
	assert.Equal(t, "file", entry["source"])

	require.NoError(t, json.Unmarshal(lines[2], &entry))
	assert.Equal(t, "session.deleted", entry["event_type"])
	assert.Equal(t, "true", entry["artifacts_removed"])
}

func TestLogger_SweeperReaped(t *testing.T) {
	logger, buf := capture(t)

	logger.SweeperReaped([]string{"sess-1", "sess-2"}, "stale")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "sweeper.reaped", entry["event_type"])
	assert.Equal(t, "sweeper", entry["actor"])
	assert.Equal(t, "sess-1,sess-2", entry["sessions"])
	assert.Equal(t, "2", entry["count"])
	assert.Equal(t, "stale", entry["reason"])
}

func TestLogger_PromptHelpers(t *testing.T) {
	logger, buf := capture(t)

	logger.PromptsReloaded("watcher", 7, "/etc/reeldoc/prompts")
	logger.PromptsReloadError("watcher", "/etc/reeldoc/prompts", "invalid yaml")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "prompts.reloaded", entry["event_type"])
	assert.Equal(t, "7", entry["prompts"])

	require.NoError(t, json.Unmarshal(lines[1], &entry))
	assert.Equal(t, "prompts.reload.error", entry["event_type"])
	assert.Equal(t, "failure", entry["result"])
	assert.Equal(t, "invalid yaml", entry["error"])
}
