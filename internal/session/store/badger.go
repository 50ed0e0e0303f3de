// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/reeldoc/reeldoc/internal/session/model"
)

const badgerSessionPrefix = "sess:"

// BadgerStore persists sessions in an embedded Badger key-value database.
// Keys are "sess:<id>", values the JSON-encoded record.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the database directory at path.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("session store: open badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Close() error { return b.db.Close() }

func sessionKey(id string) []byte { return []byte(badgerSessionPrefix + id) }

func (b *BadgerStore) Create(ctx context.Context, sess *model.Session) error {
	buf, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	key := sessionKey(sess.ID)
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return ErrExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, buf)
	})
}

func (b *BadgerStore) Put(ctx context.Context, sess *model.Session) error {
	buf, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(sess.ID), buf)
	})
}

func (b *BadgerStore) Get(ctx context.Context, id string) (*model.Session, error) {
	var rec *model.Session
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if err != nil {
			return err
		}
		rec, err = decodeSession(item)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (b *BadgerStore) Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	var out *model.Session
	err := b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if err != nil {
			return err
		}
		rec, err := decodeSession(item)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		buf, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode session %s: %w", id, err)
		}
		if err := txn.Set(sessionKey(id), buf); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (b *BadgerStore) List(ctx context.Context, f model.Filter) ([]*model.Session, error) {
	var list []*model.Session
	err := b.Scan(ctx, func(rec *model.Session) error {
		if f.Matches(rec) {
			list = append(list, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Badger iterates in key order; listings want recency order.
	sortMostRecentFirst(list)
	return list, nil
}

func (b *BadgerStore) Scan(ctx context.Context, fn func(*model.Session) error) error {
	prefix := []byte(badgerSessionPrefix)
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			rec, err := decodeSession(it.Item())
			if err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BadgerStore) Delete(ctx context.Context, id string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(id))
	})
}

func decodeSession(item *badger.Item) (*model.Session, error) {
	var rec model.Session
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("decode session record: %w", err)
	}
	return &rec, nil
}

var _ Store = (*BadgerStore)(nil)
