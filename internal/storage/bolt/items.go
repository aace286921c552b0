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

type itemDoc struct {
	ID            string     `json:"id"`
	SetID         string     `json:"setId"`
	Title         string     `json:"title"`
	MediaURL      string     `json:"mediaUrl"`
	MediaType     string     `json:"type"`
	RemovalHandle string     `json:"publicId"`
	IsPrivate     bool       `json:"isPrivate"`
	TakenAt       *time.Time `json:"takenAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (d itemDoc) toItem() storage.Item {
	return storage.Item{
		ID:            d.ID,
		SetID:         d.SetID,
		Title:         d.Title,
		MediaURL:      d.MediaURL,
		MediaType:     storage.MediaType(d.MediaType),
		RemovalHandle: d.RemovalHandle,
		IsPrivate:     d.IsPrivate,
		TakenAt:       d.TakenAt,
		CreatedAt:     d.CreatedAt,
	}
}

type itemRepository struct {
	db  *bolt.DB
	now func() time.Time
}

func (r *itemRepository) Create(_ context.Context, input storage.ItemCreate) (storage.Item, error) {
	if !input.MediaType.Valid() {
		return storage.Item{}, fmt.Errorf("bolt: create item: unknown media type %q", input.MediaType)
	}

	doc := itemDoc{
		ID:            uuid.NewString(),
		SetID:         input.SetID,
		Title:         input.Title,
		MediaURL:      input.MediaURL,
		MediaType:     string(input.MediaType),
		RemovalHandle: input.RemovalHandle,
	}
	if input.TakenAt != nil {
		t := input.TakenAt.UTC()
		doc.TakenAt = &t
	}

	err := r.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketSets).Get([]byte(input.SetID)) == nil {
			return storage.ErrNotFound
		}
		doc.CreatedAt = r.now()
		return putDoc(tx, bucketItems, doc.ID, doc)
	})
	if err != nil {
		return storage.Item{}, wrap("create item", err)
	}
	return doc.toItem(), nil
}

func (r *itemRepository) GetByID(_ context.Context, id string) (storage.Item, error) {
	var doc itemDoc
	err := r.db.View(func(tx *bolt.Tx) error {
		return getDoc(tx, bucketItems, id, &doc)
	})
	if err != nil {
		return storage.Item{}, wrap("get item", err)
	}
	return doc.toItem(), nil
}

func (r *itemRepository) List(_ context.Context) ([]storage.Item, error) {
	return r.scan(func(itemDoc) bool { return true })
}

func (r *itemRepository) ListBySet(_ context.Context, setID string) ([]storage.Item, error) {
	return r.scan(func(doc itemDoc) bool { return doc.SetID == setID })
}

func (r *itemRepository) CountBySet(_ context.Context, setID string) (int, error) {
	var count int
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		count, err = countItems(tx, setID)
		return err
	})
	if err != nil {
		return 0, wrap("count items", err)
	}
	return count, nil
}

func (r *itemRepository) Update(_ context.Context, id string, input storage.ItemUpdate) (storage.Item, error) {
	var doc itemDoc
	err := r.db.Update(func(tx *bolt.Tx) error {
		if err := getDoc(tx, bucketItems, id, &doc); err != nil {
			return err
		}
		if input.Title == nil && input.IsPrivate == nil {
			return nil
		}
		if input.Title != nil {
			doc.Title = *input.Title
		}
		if input.IsPrivate != nil {
			doc.IsPrivate = *input.IsPrivate
		}
		return putDoc(tx, bucketItems, id, doc)
	})
	if err != nil {
		return storage.Item{}, wrap("update item", err)
	}
	return doc.toItem(), nil
}

func (r *itemRepository) Delete(_ context.Context, id string) error {
	err := r.db.Update(func(tx *bolt.Tx) error {
		return deleteDoc(tx, bucketItems, id)
	})
	return wrap("delete item", err)
}

func (r *itemRepository) scan(match func(itemDoc) bool) ([]storage.Item, error) {
	result := []storage.Item{}
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketItems).ForEach(func(k, v []byte) error {
			var doc itemDoc
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("decode item %s: %w", k, err)
			}
			if match(doc) {
				result = append(result, doc.toItem())
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrap("list items", err)
	}
	return result, nil
}

func countItems(tx *bolt.Tx, setID string) (int, error) {
	count := 0
	err := tx.Bucket(bucketItems).ForEach(func(k, v []byte) error {
		var doc struct {
			SetID string `json:"setId"`
		}
		if err := json.Unmarshal(v, &doc); err != nil {
			return fmt.Errorf("decode item %s: %w", k, err)
		}
		if doc.SetID == setID {
			count++
		}
		return nil
	})
	return count, err
}
