// SPDX-License-Identifier: MIT

// Package manager is the single writer for session state. Every lifecycle
// transition, progress update and payload attachment goes through it; the
// pipeline and the CLI never touch the store directly. Each mutation is
// committed to the store first and then mirrored to session.json in the
// session's artifact directory, so external tools can inspect a session
// without opening the database.
package manager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/reeldoc/reeldoc/internal/artifact"
	"github.com/reeldoc/reeldoc/internal/fault"
	"github.com/reeldoc/reeldoc/internal/log"
	"github.com/reeldoc/reeldoc/internal/metrics"
	coremodel "github.com/reeldoc/reeldoc/internal/model"
	"github.com/reeldoc/reeldoc/internal/session/model"
	"github.com/reeldoc/reeldoc/internal/session/store"
)

// Config tunes the manager's in-memory read cache. The store and the disk
// mirror are unaffected; CacheRetention only bounds how long an inactive
// session stays resident before a sweep evicts it.
type Config struct {
	CacheRetention time.Duration
}

const defaultCacheRetention = time.Hour

// Manager owns all session mutations. Reads are served from a small
// in-memory cache backed by the store, with the session.json mirror as a
// last resort for records that predate the store (memory backend after a
// restart).
type Manager struct {
	store     store.Store
	artifacts *artifact.Store
	logger    zerolog.Logger
	retention time.Duration

	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	cache   map[string]*model.Session
	cancels map[string]*cancelEntry
}

// New wires a manager over the given store and artifact root.
func New(st store.Store, artifacts *artifact.Store, cfg Config) *Manager {
	retention := cfg.CacheRetention
	if retention <= 0 {
		retention = defaultCacheRetention
	}
	return &Manager{
		store:     st,
		artifacts: artifacts,
		logger:    log.WithComponent("session"),
		retention: retention,
		locks:     make(map[string]*sync.Mutex),
		cache:     make(map[string]*model.Session),
		cancels:   make(map[string]*cancelEntry),
	}
}

// Create registers a new draft session under id. The ID must be unused in
// both the store and the artifact directory.
func (m *Manager) Create(ctx context.Context, id string, meta model.Metadata) (*model.Session, error) {
	if !model.IsSafeID(id) {
		return nil, fmt.Errorf("invalid session id %q", id)
	}
	if meta.Mode == "" {
		return nil, errors.New("session mode must be set")
	}
	pref := meta.STTPreference
	if pref == "" {
		pref = model.STTAuto
	}
	if !model.ValidSTTPreference(pref) {
		return nil, fmt.Errorf("invalid stt preference %q", meta.STTPreference)
	}
	if err := meta.Source.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &model.Session{
		ID:            id,
		CreatedAt:     now,
		Mode:          meta.Mode,
		Title:         meta.Title,
		Language:      meta.Language,
		STTPreference: pref,
		Source:        meta.Source,
		Options:       meta.Options.WithDefaults(),
		Status:        model.StatusDraft,
		LastUpdated:   now,
	}

	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if m.artifacts.Exists(id, artifact.FileSession) {
		return nil, fmt.Errorf("session %s: %w", id, store.ErrExists)
	}
	if err := m.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	if err := m.persistMirror(sess); err != nil {
		_ = m.store.Delete(ctx, id)
		return nil, err
	}
	m.cachePut(sess)
	m.logger.Info().Str(log.FieldSessionID, id).Str(log.FieldMode, meta.Mode).Msg("session created")
	return sess, nil
}

// Enqueue moves a draft session into the queue.
func (m *Manager) Enqueue(ctx context.Context, id string) (*model.Session, error) {
	return m.mutate(ctx, id, func(rec *model.Session) error {
		if err := model.CheckTransition(rec.Status, model.StatusQueued); err != nil {
			return err
		}
		rec.Status = model.StatusQueued
		rec.Touch(time.Now().UTC())
		return nil
	})
}

// Claim takes exclusive ownership of a session for a pipeline run,
// transitioning it to running. Claiming an already running session is a
// no-op returning the current record, so a retried claim cannot fail.
func (m *Manager) Claim(ctx context.Context, id string) (*model.Session, error) {
	claimed := false
	sess, err := m.mutate(ctx, id, func(rec *model.Session) error {
		if rec.Status == model.StatusRunning {
			return nil
		}
		if err := model.CheckTransition(rec.Status, model.StatusRunning); err != nil {
			return err
		}
		rec.Status = model.StatusRunning
		rec.Progress = 0
		rec.StageLabel = "starting"
		rec.Error = nil
		rec.Touch(time.Now().UTC())
		claimed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if claimed {
		metrics.IncSessionStarted()
		m.logger.Info().Str(log.FieldSessionID, id).Msg("session claimed")
	}
	return sess, nil
}

// UpdateProgress advances a running session's progress and stage label.
// Progress is monotone and capped at 99; only Complete may set 100.
func (m *Manager) UpdateProgress(ctx context.Context, id, stageLabel string, progress int) error {
	if progress < 0 || progress > 99 {
		return fmt.Errorf("progress %d out of range [0,99]", progress)
	}
	_, err := m.mutate(ctx, id, func(rec *model.Session) error {
		if rec.Status != model.StatusRunning {
			return fmt.Errorf("session %s is %s, not running", id, rec.Status)
		}
		if progress < rec.Progress {
			return fmt.Errorf("non-monotone progress %d after %d", progress, rec.Progress)
		}
		rec.Progress = progress
		rec.StageLabel = stageLabel
		rec.Touch(time.Now().UTC())
		return nil
	})
	if err == nil {
		metrics.IncProgressUpdate()
	}
	return err
}

// SetTranscript attaches the transcript segments and records which speech
// adapter produced them.
func (m *Manager) SetTranscript(ctx context.Context, id string, segments []coremodel.TranscriptSegment, adapterUsed string) error {
	_, err := m.mutate(ctx, id, func(rec *model.Session) error {
		if rec.Status != model.StatusRunning {
			return fmt.Errorf("session %s is %s, not running", id, rec.Status)
		}
		rec.TranscriptSegments = segments
		rec.STTAdapterUsed = adapterUsed
		rec.Touch(time.Now().UTC())
		return nil
	})
	return err
}

// SetKeyframes attaches the extracted keyframe set.
func (m *Manager) SetKeyframes(ctx context.Context, id string, frames []coremodel.Keyframe) error {
	_, err := m.mutate(ctx, id, func(rec *model.Session) error {
		if rec.Status != model.StatusRunning {
			return fmt.Errorf("session %s is %s, not running", id, rec.Status)
		}
		rec.Keyframes = frames
		rec.Touch(time.Now().UTC())
		return nil
	})
	return err
}

// AddArtifacts merges logical-name to relative-path entries into the
// session's artifact map. Recorded as stages finish so a failed run still
// names the artifacts it produced.
func (m *Manager) AddArtifacts(ctx context.Context, id string, paths map[string]string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := m.mutate(ctx, id, func(rec *model.Session) error {
		if rec.Status != model.StatusRunning {
			return fmt.Errorf("session %s is %s, not running", id, rec.Status)
		}
		if rec.ArtifactPaths == nil {
			rec.ArtifactPaths = make(map[string]string, len(paths))
		}
		for k, v := range paths {
			rec.ArtifactPaths[k] = v
		}
		rec.Touch(time.Now().UTC())
		return nil
	})
	return err
}

// Complete finishes a running session with its document payload and final
// artifact map. Progress lands on 100 exactly here and nowhere else.
func (m *Manager) Complete(ctx context.Context, id string, doc coremodel.Document, paths map[string]string) error {
	_, err := m.mutate(ctx, id, func(rec *model.Session) error {
		if err := model.CheckTransition(rec.Status, model.StatusCompleted); err != nil {
			return err
		}
		rec.Status = model.StatusCompleted
		rec.Progress = 100
		rec.StageLabel = "done"
		rec.Error = nil
		rec.DocPayload = &coremodel.Document{
			Format:  doc.Format,
			Content: append([]byte(nil), doc.Content...),
		}
		if rec.ArtifactPaths == nil {
			rec.ArtifactPaths = make(map[string]string, len(paths))
		}
		for k, v := range paths {
			rec.ArtifactPaths[k] = v
		}
		rec.Touch(time.Now().UTC())
		return nil
	})
	if err != nil {
		return err
	}
	metrics.IncSessionFinished("completed")
	m.dropCancel(id)
	m.logger.Info().Str(log.FieldSessionID, id).Msg("session completed")
	return nil
}

// Fail moves a running session to failed with a classified error record.
// The stage label is left as-is so the record shows where the run died.
func (m *Manager) Fail(ctx context.Context, id string, kind fault.Kind, message string) error {
	_, err := m.mutate(ctx, id, func(rec *model.Session) error {
		if err := model.CheckTransition(rec.Status, model.StatusFailed); err != nil {
			return err
		}
		rec.Status = model.StatusFailed
		rec.Error = &model.ErrorRecord{Kind: string(kind), Message: message}
		rec.Touch(time.Now().UTC())
		return nil
	})
	if err != nil {
		return err
	}
	metrics.IncSessionFinished("failed")
	m.dropCancel(id)
	m.logger.Warn().Str(log.FieldSessionID, id).Str("kind", string(kind)).Str(log.FieldReason, message).Msg("session failed")
	return nil
}

// Cancel requests cancellation of a queued or running session. The status
// flips immediately; a running pipeline observes the trip via IsCancelled
// or an OnCancel watcher and unwinds at its next checkpoint. Cancelling an
// already cancelled session is a no-op.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	already := false
	_, err := m.mutate(ctx, id, func(rec *model.Session) error {
		if rec.Status == model.StatusCancelled {
			already = true
			return nil
		}
		if err := model.CheckTransition(rec.Status, model.StatusCancelled); err != nil {
			return err
		}
		rec.Status = model.StatusCancelled
		rec.Touch(time.Now().UTC())
		return nil
	})
	if err != nil {
		return err
	}
	m.fireCancel(id)
	if !already {
		metrics.IncSessionFinished("cancelled")
		m.logger.Info().Str(log.FieldSessionID, id).Msg("session cancelled")
	}
	return nil
}

// Get returns a copy of the session. Cache first, then the store, then the
// session.json mirror; a mirror hit is written back into the store.
func (m *Manager) Get(ctx context.Context, id string) (*model.Session, error) {
	if sess := m.cacheGet(id); sess != nil {
		return sess, nil
	}
	sess, err := m.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		if rerr := m.rehydrate(ctx, id); rerr != nil {
			return nil, rerr
		}
		sess, err = m.store.Get(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	m.cachePut(sess)
	return sess, nil
}

// List returns session summaries, most recently updated first, narrowed by
// the filter's zero-value-means-any fields.
func (m *Manager) List(ctx context.Context, f model.Filter) ([]model.Summary, error) {
	sessions, err := m.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	summaries := make([]model.Summary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, sess.Summary())
	}
	return summaries, nil
}

// GetActive returns the most recently updated non-terminal session, or nil
// when every session has finished.
func (m *Manager) GetActive(ctx context.Context) (*model.Session, error) {
	sessions, err := m.store.List(ctx, model.Filter{})
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		if !sess.Status.IsTerminal() {
			return sess, nil
		}
	}
	return nil, nil
}

// Delete removes a session's record and its artifact directory. Running
// sessions must be cancelled first.
func (m *Manager) Delete(ctx context.Context, id string) error {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Get(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Record may exist only as a mirror; fall through to remove files.
	case err != nil:
		return err
	case sess.Status == model.StatusRunning:
		return fmt.Errorf("session %s is running; cancel it before deleting", id)
	}

	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := m.artifacts.RemoveSession(id); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.cache, id)
	delete(m.cancels, id)
	m.mu.Unlock()
	m.logger.Info().Str(log.FieldSessionID, id).Msg("session deleted")
	return nil
}

// mutate runs fn against the stored record under the session's lock and
// write-through-mirrors the result. fn errors abort without persisting.
func (m *Manager) mutate(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	updated, err := m.store.Update(ctx, id, fn)
	if errors.Is(err, store.ErrNotFound) {
		if rerr := m.rehydrate(ctx, id); rerr != nil {
			return nil, rerr
		}
		updated, err = m.store.Update(ctx, id, fn)
	}
	if err != nil {
		return nil, err
	}
	if err := m.persistMirror(updated); err != nil {
		return nil, err
	}
	m.cachePut(updated)
	return updated, nil
}

// rehydrate loads a session.json mirror back into the store. Mirrors are
// at most one mutation behind the store, so the store always wins when it
// has the record.
func (m *Manager) rehydrate(ctx context.Context, id string) error {
	if !model.IsSafeID(id) {
		return store.ErrNotFound
	}
	var sess model.Session
	if err := m.artifacts.ReadJSON(id, artifact.FileSession, &sess); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store.ErrNotFound
		}
		return fmt.Errorf("read session mirror %s: %w", id, err)
	}
	if sess.ID != id {
		return fmt.Errorf("session mirror %s names id %q", id, sess.ID)
	}
	m.logger.Debug().Str(log.FieldSessionID, id).Msg("rehydrated session from mirror")
	return m.store.Put(ctx, &sess)
}

func (m *Manager) persistMirror(sess *model.Session) error {
	if _, err := m.artifacts.EnsureSession(sess.ID); err != nil {
		return err
	}
	if err := m.artifacts.WriteJSON(sess.ID, artifact.FileSession, sess); err != nil {
		return fmt.Errorf("write session mirror: %w", err)
	}
	return nil
}

func (m *Manager) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *Manager) cachePut(sess *model.Session) {
	clone := sess.Clone()
	m.mu.Lock()
	m.cache[sess.ID] = clone
	m.mu.Unlock()
}

func (m *Manager) cacheGet(id string) *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.cache[id]; ok {
		return rec.Clone()
	}
	return nil
}

// evictStale drops cache entries whose sessions have been inactive longer
// than olderThan. Store records and mirrors are untouched; an evicted
// session reloads on the next Get.
func (m *Manager) evictStale(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, rec := range m.cache {
		if rec.LastUpdated.Before(cutoff) {
			delete(m.cache, id)
			if rec.Status.IsTerminal() {
				delete(m.cancels, id)
			}
			evicted++
		}
	}
	return evicted
}
