package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/pranathisri21/frame-vault/internal/storage"
)

type setDoc struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MediaCount int       `json:"mediaCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (d setDoc) toSet() storage.Set {
	return storage.Set{
		ID:         d.ID,
		Name:       d.Name,
		MediaCount: d.MediaCount,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type setRepository struct {
	db  *bolt.DB
	now func() time.Time
}

func (r *setRepository) Create(_ context.Context, input storage.SetCreate) (storage.Set, error) {
	now := r.now()
	doc := setDoc{
		ID:        uuid.NewString(),
		Name:      input.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.Update(func(tx *bolt.Tx) error {
		return putDoc(tx, bucketSets, doc.ID, doc)
	})
	if err != nil {
		return storage.Set{}, wrap("create set", err)
	}
	return doc.toSet(), nil
}

func (r *setRepository) GetByID(_ context.Context, id string) (storage.Set, error) {
	var doc setDoc
	err := r.db.View(func(tx *bolt.Tx) error {
		return getDoc(tx, bucketSets, id, &doc)
	})
	if err != nil {
		return storage.Set{}, wrap("get set", err)
	}
	return doc.toSet(), nil
}

func (r *setRepository) List(_ context.Context) ([]storage.Set, error) {
	result := []storage.Set{}
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSets).ForEach(func(k, v []byte) error {
			var doc setDoc
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("decode set %s: %w", k, err)
			}
			result = append(result, doc.toSet())
			return nil
		})
	})
	if err != nil {
		return nil, wrap("list sets", err)
	}
	return result, nil
}

func (r *setRepository) Update(_ context.Context, id string, input storage.SetUpdate) (storage.Set, error) {
	if input.MediaCount != nil && *input.MediaCount < 0 {
		return storage.Set{}, fmt.Errorf("bolt: update set: negative media count %d", *input.MediaCount)
	}

	var doc setDoc
	err := r.db.Update(func(tx *bolt.Tx) error {
		if err := getDoc(tx, bucketSets, id, &doc); err != nil {
			return err
		}
		if input.Name != nil {
			doc.Name = *input.Name
		}
		if input.MediaCount != nil {
			doc.MediaCount = *input.MediaCount
		}
		doc.UpdatedAt = r.now()
		return putDoc(tx, bucketSets, id, doc)
	})
	if err != nil {
		return storage.Set{}, wrap("update set", err)
	}
	return doc.toSet(), nil
}

// RefreshMediaCount counts the set's items and stores the result in the same
// read-write transaction; bbolt serialises writers, so no insert can slip in
// between.
func (r *setRepository) RefreshMediaCount(_ context.Context, id string) (storage.Set, error) {
	var doc setDoc
	err := r.db.Update(func(tx *bolt.Tx) error {
		if err := getDoc(tx, bucketSets, id, &doc); err != nil {
			return err
		}
		count, err := countItems(tx, id)
		if err != nil {
			return err
		}
		doc.MediaCount = count
		doc.UpdatedAt = r.now()
		return putDoc(tx, bucketSets, id, doc)
	})
	if err != nil {
		return storage.Set{}, wrap("refresh media count", err)
	}
	return doc.toSet(), nil
}

// Delete refuses to remove a set that still owns items, mirroring the
// foreign key in the SQL backend.
func (r *setRepository) Delete(_ context.Context, id string) error {
	err := r.db.Update(func(tx *bolt.Tx) error {
		count, err := countItems(tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("set %s still owns %d items", id, count)
		}
		return deleteDoc(tx, bucketSets, id)
	})
	return wrap("delete set", err)
}
