// SPDX-License-Identifier: MIT

// Package artifact manages the on-disk session directory tree. Every path is
// confined to the store root, and orchestrator-written files go through
// write-temp-then-rename so readers never observe partial content.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/google/renameio/v2"

	"github.com/reeldoc/reeldoc/internal/fsutil"
	"github.com/reeldoc/reeldoc/internal/log"
)

// safeSessionID matches IDs that cannot change directory depth or smuggle
// separators into the layout.
var safeSessionID = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// Entry describes one stored artifact in a session manifest.
type Entry struct {
	Name      string    `json:"name"` // path relative to the session directory
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// Store roots all session artifact directories under <dataDir>/sessions.
type Store struct {
	base string
}

// NewStore creates the sessions base directory if needed and returns a store
// rooted there. dataDir must be absolute.
func NewStore(dataDir string) (*Store, error) {
	if !filepath.IsAbs(dataDir) {
		return nil, fmt.Errorf("artifact store requires absolute data dir, got %q", dataDir)
	}
	base := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(base, 0o750); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Store{base: base}, nil
}

// Base returns the sessions base directory.
func (s *Store) Base() string {
	return s.base
}

// SessionDir returns the confined absolute path of a session directory
// without creating it.
func (s *Store) SessionDir(sessionID string) (string, error) {
	if !safeSessionID.MatchString(sessionID) {
		return "", fmt.Errorf("unsafe session id: %q", sessionID)
	}
	return fsutil.ConfineRelPath(s.base, sessionID)
}

// EnsureSession creates the session directory and its frames subdirectory,
// returning the absolute session path.
func (s *Store) EnsureSession(sessionID string) (string, error) {
	dir, err := s.SessionDir(sessionID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Join(dir, DirFrames), 0o750); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	return dir, nil
}

// Path returns the confined absolute path for a session-relative artifact.
// Used to hand output targets to external tools; nothing is created.
func (s *Store) Path(sessionID, rel string) (string, error) {
	dir, err := s.SessionDir(sessionID)
	if err != nil {
		return "", err
	}
	return fsutil.ConfineRelPath(dir, rel)
}

// Put streams r into the named artifact atomically.
func (s *Store) Put(sessionID, rel string, r io.Reader) error {
	target, err := s.Path(sessionID, rel)
	if err != nil {
		return err
	}

	// renameio handles temp file creation, fsync, atomic rename and cleanup.
	pending, err := renameio.NewPendingFile(target)
	if err != nil {
		return fmt.Errorf("create pending artifact %s: %w", rel, err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger := log.WithComponent("artifact")
			logger.Debug().Err(err).Str(log.FieldPath, target).Msg("cleanup pending artifact")
		}
	}()

	if _, err := io.Copy(pending, r); err != nil {
		return fmt.Errorf("write artifact %s: %w", rel, err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace artifact %s: %w", rel, err)
	}
	return nil
}

// PutBytes writes data to the named artifact atomically.
func (s *Store) PutBytes(sessionID, rel string, data []byte) error {
	return s.Put(sessionID, rel, bytes.NewReader(data))
}

// WriteJSON marshals v with indentation and stores it atomically.
func (s *Store) WriteJSON(sessionID, rel string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact %s: %w", rel, err)
	}
	data = append(data, '\n')
	return s.PutBytes(sessionID, rel, data)
}

// Open opens an existing artifact for reading.
func (s *Store) Open(sessionID, rel string) (*os.File, error) {
	target, err := s.Path(sessionID, rel)
	if err != nil {
		return nil, err
	}
	if err := fsutil.IsRegularFile(target); err != nil {
		return nil, err
	}
	return os.Open(target) // #nosec G304 -- target is confined above
}

// ReadFile reads an artifact fully into memory.
func (s *Store) ReadFile(sessionID, rel string) ([]byte, error) {
	f, err := s.Open(sessionID, rel)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

// ReadJSON reads and unmarshals an artifact.
func (s *Store) ReadJSON(sessionID, rel string, v any) error {
	data, err := s.ReadFile(sessionID, rel)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal artifact %s: %w", rel, err)
	}
	return nil
}

// OpenAppend opens an artifact in append mode, creating it if missing. Trace
// logs use this; append semantics keep records in write order.
func (s *Store) OpenAppend(sessionID, rel string) (*os.File, error) {
	target, err := s.Path(sessionID, rel)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640) // #nosec G304 -- target is confined above
}

// Exists reports whether the named artifact exists as a regular file.
func (s *Store) Exists(sessionID, rel string) bool {
	target, err := s.Path(sessionID, rel)
	if err != nil {
		return false
	}
	return fsutil.IsRegularFile(target) == nil
}

// Manifest lists all artifacts of a session sorted by relative path.
func (s *Store) Manifest(sessionID string) ([]Entry, error) {
	dir, err := s.SessionDir(sessionID)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			Name:      filepath.ToSlash(rel),
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk session dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// RemoveSession deletes a session directory and everything in it.
func (s *Store) RemoveSession(sessionID string) error {
	dir, err := s.SessionDir(sessionID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove session dir: %w", err)
	}
	return nil
}
