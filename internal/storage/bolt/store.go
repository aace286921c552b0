// Package bolt stores sets, items and users as JSON documents in a bbolt
// file. Equality queries scan a bucket and return documents in key order,
// which says nothing about creation time.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pranathisri21/frame-vault/internal/storage"
)

var (
	bucketSets        = []byte("sets")
	bucketItems       = []byte("items")
	bucketUsers       = []byte("users")
	bucketUserByEmail = []byte("users_by_email")
)

// Store implements storage.Store on top of bbolt.
type Store struct {
	db    *bolt.DB
	sets  *setRepository
	items *itemRepository
	users *userRepository
}

// Option customises a Store.
type Option func(*options)

type options struct {
	now     func() time.Time
	timeout time.Duration
}

// WithClock overrides the clock used to stamp documents.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Open opens (or creates) the bbolt file at path and ensures all buckets exist.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt: path must not be empty")
	}

	o := options{now: time.Now, timeout: time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bolt: ensure directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: o.timeout})
	if err != nil {
		return nil, fmt.Errorf("bolt: open: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketSets, bucketItems, bucketUsers, bucketUserByEmail} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt: create buckets: %w", err)
	}

	clock := func() time.Time { return o.now().UTC() }

	return &Store{
		db:    db,
		sets:  &setRepository{db: db, now: clock},
		items: &itemRepository{db: db, now: clock},
		users: &userRepository{db: db, now: clock},
	}, nil
}

func (s *Store) Sets() storage.Sets {
	return s.sets
}

func (s *Store) Items() storage.Items {
	return s.items
}

func (s *Store) Users() storage.Users {
	return s.users
}

// Ping reports whether the database file is still open.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketSets) == nil {
			return errors.New("bolt: sets bucket missing")
		}
		return nil
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

func getDoc(tx *bolt.Tx, bucket []byte, key string, dest any) error {
	raw := tx.Bucket(bucket).Get([]byte(key))
	if raw == nil {
		return storage.ErrNotFound
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s/%s: %w", bucket, key, err)
	}
	return nil
}

func putDoc(tx *bolt.Tx, bucket []byte, key string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", bucket, key, err)
	}
	return tx.Bucket(bucket).Put([]byte(key), raw)
}

// deleteDoc removes key from bucket, returning ErrNotFound when it is absent.
func deleteDoc(tx *bolt.Tx, bucket []byte, key string) error {
	b := tx.Bucket(bucket)
	if b.Get([]byte(key)) == nil {
		return storage.ErrNotFound
	}
	return b.Delete([]byte(key))
}

// wrap adds the bolt prefix to unexpected errors while leaving the storage
// sentinels untouched.
func wrap(op string, err error) error {
	if err == nil || errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrConflict) {
		return err
	}
	return fmt.Errorf("bolt: %s: %w", op, err)
}

var (
	_ storage.Store          = (*Store)(nil)
	_ storage.CountRefresher = (*setRepository)(nil)
)
