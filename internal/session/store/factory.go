// SPDX-License-Identifier: MIT

package store

import "fmt"

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSqlite = "sqlite"
	BackendBadger = "badger"
)

// Open creates a Store for the configured backend. path is the database
// file (sqlite) or directory (badger); the memory backend ignores it.
func Open(backend, path string) (Store, error) {
	if backend == "" {
		backend = BackendMemory
	}
	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSqlite:
		if path == "" {
			return nil, fmt.Errorf("sqlite store backend requires a path")
		}
		return OpenSqlite(path)
	case BackendBadger:
		if path == "" {
			return nil, fmt.Errorf("badger store backend requires a path")
		}
		return OpenBadger(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
