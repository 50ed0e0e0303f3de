// SPDX-License-Identifier: MIT

// Package sqlite opens database handles with the pragmas every SQLite
// consumer in this repo relies on: WAL journaling, a busy timeout and
// foreign keys.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go driver
)

// Config holds operational parameters for a connection pool.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig suits a single-process tool: a small pool with a 5 s busy
// timeout to ride out concurrent writers.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

// dsn assembles a file: URI. modernc.org/sqlite understands repeated _pragma
// query parameters and applies them on every new pool connection, not just
// the first one.
func dsn(path, query string, pragmas []string) string {
	parts := make([]string, 0, len(pragmas)+1)
	if query != "" {
		parts = append(parts, query)
	}
	for _, p := range pragmas {
		parts = append(parts, "_pragma="+p)
	}
	return "file:" + path + "?" + strings.Join(parts, "&")
}

// Open initializes a connection pool against dbPath. WAL mode, the busy
// timeout, NORMAL synchronous and foreign keys are enforced via DSN pragmas.
func Open(dbPath string, cfg Config) (*sql.DB, error) {
	pragmas := []string{
		fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()),
		"journal_mode(WAL)",
		"synchronous(NORMAL)",
		"foreign_keys(ON)",
	}

	db, err := sql.Open("sqlite", dsn(dbPath, "", pragmas))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", dbPath, err)
	}

	return db, nil
}
