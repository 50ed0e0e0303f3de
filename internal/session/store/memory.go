// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sync"

	"github.com/reeldoc/reeldoc/internal/session/model"
)

// MemoryStore keeps records in a map. Fast and dependency-free, but not
// durable; restarts rely on the session.json mirrors on disk.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*model.Session)}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Create(ctx context.Context, sess *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sess.ID]; ok {
		return ErrExists
	}
	m.sessions[sess.ID] = sess.Clone()
	return nil
}

func (m *MemoryStore) Put(ctx context.Context, sess *model.Session) error {
	m.mu.Lock()
	m.sessions[sess.ID] = sess.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	rec, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := rec.Clone()
	if err := fn(cp); err != nil {
		return nil, err
	}
	m.sessions[id] = cp
	return cp.Clone(), nil
}

func (m *MemoryStore) List(ctx context.Context, f model.Filter) ([]*model.Session, error) {
	m.mu.RLock()
	list := make([]*model.Session, 0, len(m.sessions))
	for _, rec := range m.sessions {
		if f.Matches(rec) {
			list = append(list, rec.Clone())
		}
	}
	m.mu.RUnlock()

	sortMostRecentFirst(list)
	return list, nil
}

func (m *MemoryStore) Scan(ctx context.Context, fn func(*model.Session) error) error {
	// Snapshot under the read lock, iterate without it so slow callbacks
	// cannot block writers.
	m.mu.RLock()
	snapshot := make([]*model.Session, 0, len(m.sessions))
	for _, rec := range m.sessions {
		snapshot = append(snapshot, rec.Clone())
	}
	m.mu.RUnlock()

	for _, rec := range snapshot {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
