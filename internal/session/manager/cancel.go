// SPDX-License-Identifier: MIT

package manager

// cancelEntry is the set-once abort flag for one session plus the watchers
// to notify when it trips. Entries for cancelled sessions stay registered
// until the session is deleted or evicted, so late IsCancelled calls still
// see the flag.
type cancelEntry struct {
	tripped  bool
	nextID   int
	watchers map[int]func()
}

// IsCancelled reports whether Cancel has been requested for id. Pipelines
// poll this at stage boundaries.
func (m *Manager) IsCancelled(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.cancels[id]
	return ok && entry.tripped
}

// OnCancel registers fn to run once when the session is cancelled. If the
// flag already tripped, fn runs immediately. The returned stop function
// removes the watcher; calling it after the flag tripped is a no-op.
func (m *Manager) OnCancel(id string, fn func()) (stop func()) {
	m.mu.Lock()
	entry, ok := m.cancels[id]
	if !ok {
		entry = &cancelEntry{watchers: make(map[int]func())}
		m.cancels[id] = entry
	}
	if entry.tripped {
		m.mu.Unlock()
		fn()
		return func() {}
	}
	watcherID := entry.nextID
	entry.nextID++
	entry.watchers[watcherID] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		if e, ok := m.cancels[id]; ok {
			delete(e.watchers, watcherID)
		}
		m.mu.Unlock()
	}
}

// fireCancel trips the flag and runs registered watchers exactly once.
// Watchers run outside the manager lock; they are cancellation hooks and
// must not block.
func (m *Manager) fireCancel(id string) {
	m.mu.Lock()
	entry, ok := m.cancels[id]
	if !ok {
		entry = &cancelEntry{watchers: make(map[int]func())}
		m.cancels[id] = entry
	}
	if entry.tripped {
		m.mu.Unlock()
		return
	}
	entry.tripped = true
	fns := make([]func(), 0, len(entry.watchers))
	for _, fn := range entry.watchers {
		fns = append(fns, fn)
	}
	entry.watchers = make(map[int]func())
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// dropCancel forgets the registry entry after completed or failed
// terminals, where no cancel can ever trip.
func (m *Manager) dropCancel(id string) {
	m.mu.Lock()
	delete(m.cancels, id)
	m.mu.Unlock()
}
