// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/reeldoc/reeldoc/internal/persistence/sqlite"
	"github.com/reeldoc/reeldoc/internal/session/model"
)

const sqliteSchemaVersion = 1

// The full record lives as JSON in record_json; status, mode and the
// timestamps are mirrored into columns so List can filter and order in SQL.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at_ms INTEGER NOT NULL,
	last_updated_ms INTEGER NOT NULL,
	record_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(last_updated_ms);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
`

// SqliteStore persists sessions in a single SQLite database file.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens (or creates) the database at dbPath and migrates the
// schema.
func OpenSqlite(dbPath string) (*SqliteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &SqliteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session store: migrate: %w", err)
	}
	return s, nil
}

func (s *SqliteStore) Close() error { return s.db.Close() }

func (s *SqliteStore) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= sqliteSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(sqliteSchema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqliteStore) Create(ctx context.Context, sess *model.Session) error {
	buf, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, mode, status, created_at_ms, last_updated_ms, record_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Mode, string(sess.Status),
		sess.CreatedAt.UnixMilli(), sess.LastUpdated.UnixMilli(), string(buf))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrExists
	}
	return nil
}

func (s *SqliteStore) Put(ctx context.Context, sess *model.Session) error {
	buf, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, mode, status, created_at_ms, last_updated_ms, record_json)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode,
			status = excluded.status,
			created_at_ms = excluded.created_at_ms,
			last_updated_ms = excluded.last_updated_ms,
			record_json = excluded.record_json`,
		sess.ID, sess.Mode, string(sess.Status),
		sess.CreatedAt.UnixMilli(), sess.LastUpdated.UnixMilli(), string(buf))
	return err
}

func (s *SqliteStore) Get(ctx context.Context, id string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT record_json FROM sessions WHERE id = ?`, id)
	return scanRecord(row)
}

func (s *SqliteStore) Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanRecord(tx.QueryRowContext(ctx, `SELECT record_json FROM sessions WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := fn(rec); err != nil {
		return nil, err
	}

	buf, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", id, err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET mode = ?, status = ?, created_at_ms = ?, last_updated_ms = ?, record_json = ? WHERE id = ?`,
		rec.Mode, string(rec.Status), rec.CreatedAt.UnixMilli(), rec.LastUpdated.UnixMilli(), string(buf), id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SqliteStore) List(ctx context.Context, f model.Filter) ([]*model.Session, error) {
	query := `SELECT record_json FROM sessions WHERE 1=1`
	var args []any
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.Mode != "" {
		query += ` AND mode = ?`
		args = append(args, f.Mode)
	}
	query += ` ORDER BY last_updated_ms DESC, created_at_ms DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var list []*model.Session
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

func (s *SqliteStore) Scan(ctx context.Context, fn func(*model.Session) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT record_json FROM sessions`)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SqliteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*model.Session, error) {
	var buf []byte
	if err := scanner.Scan(&buf); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var rec model.Session
	if err := json.Unmarshal(buf, &rec); err != nil {
		return nil, fmt.Errorf("decode session record: %w", err)
	}
	return &rec, nil
}

var _ Store = (*SqliteStore)(nil)
