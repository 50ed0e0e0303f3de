// SPDX-License-Identifier: MIT

// Package store persists session records. Three backends share one
// interface: an in-memory map, SQLite and Badger. The manager treats the
// store as canonical; the session.json mirror in the artifact directory
// exists for crash recovery and external consumers.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/reeldoc/reeldoc/internal/session/model"
)

// ErrNotFound is returned when no session exists under the given ID.
var ErrNotFound = errors.New("session not found")

// ErrExists is returned by Create when the ID is already taken.
var ErrExists = errors.New("session already exists")

// Store is the persistence contract for session records. Implementations
// hand out copies; read-modify-write cycles go through Update so they stay
// atomic per backend.
type Store interface {
	// Create inserts a new record, failing with ErrExists on ID collision.
	Create(ctx context.Context, sess *model.Session) error
	// Put upserts a record as-is. Used to rehydrate from disk mirrors.
	Put(ctx context.Context, sess *model.Session) error
	// Get returns a copy of the record or ErrNotFound.
	Get(ctx context.Context, id string) (*model.Session, error)
	// Update applies fn to the current record and persists the result
	// atomically. Errors from fn abort the update and are returned as-is.
	Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error)
	// List returns sessions matching the filter, most recently updated
	// first.
	List(ctx context.Context, f model.Filter) ([]*model.Session, error)
	// Scan streams every record to fn, stopping on the first error.
	Scan(ctx context.Context, fn func(*model.Session) error) error
	// Delete removes a record. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	Close() error
}

// sortMostRecentFirst orders sessions by LastUpdated descending, with
// CreatedAt and ID as tie-breakers so listings are stable.
func sortMostRecentFirst(list []*model.Session) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.LastUpdated.Equal(b.LastUpdated) {
			return a.LastUpdated.After(b.LastUpdated)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
