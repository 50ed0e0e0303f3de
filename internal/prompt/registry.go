// SPDX-License-Identifier: MIT

package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/reeldoc/reeldoc/internal/log"
)

// ErrNotFound is returned by Get for unknown prompt record IDs.
var ErrNotFound = errors.New("prompt record not found")

// Registry holds the loaded prompt records for a directory.
type Registry struct {
	mu      sync.RWMutex
	dir     string
	records map[string]*Record
	logger  zerolog.Logger
}

// NewRegistry creates an empty registry for dir. Call Load before Get.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:     dir,
		records: make(map[string]*Record),
		logger:  log.WithComponent("prompt"),
	}
}

// Dir returns the registry's source directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Load parses all .yaml/.yml files in the directory and swaps the record set
// atomically. On any parse or validation error the previous set is kept.
func (r *Registry) Load() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read prompts dir: %w", err)
	}

	loaded := make(map[string]*Record)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		rec, err := loadRecordFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("prompt file %s: %w", entry.Name(), err)
		}
		if _, dup := loaded[rec.ID]; dup {
			return fmt.Errorf("prompt file %s: duplicate record id %q", entry.Name(), rec.ID)
		}
		loaded[rec.ID] = rec
	}

	r.mu.Lock()
	r.records = loaded
	r.mu.Unlock()

	r.logger.Info().
		Int("prompts", len(loaded)).
		Str(log.FieldPath, r.dir).
		Msg("prompt registry loaded")
	return nil
}

// Reload re-reads the directory. Alias for Load.
func (r *Registry) Reload() error {
	return r.Load()
}

// Get returns the record for id. The returned record must not be mutated.
func (r *Registry) Get(id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return rec, nil
}

// List returns all records sorted by ID.
func (r *Registry) List() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of loaded records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func loadRecordFile(path string) (*Record, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from the configured prompts dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	// A second document in the same file is an authoring mistake.
	if err := dec.Decode(new(Record)); err != io.EOF {
		return nil, errors.New("multiple yaml documents in one prompt file")
	}

	rec.normalize()
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}
