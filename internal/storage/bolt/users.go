package bolt

import (
	"context"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/pranathisri21/frame-vault/internal/storage"
)

type userDoc struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (d userDoc) toUser() storage.User {
	return storage.User{ID: d.ID, Email: d.Email, PasswordHash: d.PasswordHash, CreatedAt: d.CreatedAt}
}

type userRepository struct {
	db  *bolt.DB
	now func() time.Time
}

func (r *userRepository) Create(_ context.Context, input storage.UserCreate) (storage.User, error) {
	doc := userDoc{
		ID:           uuid.NewString(),
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
	}

	err := r.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(bucketUserByEmail)
		if index.Get([]byte(input.Email)) != nil {
			return storage.ErrConflict
		}
		doc.CreatedAt = r.now()
		if err := putDoc(tx, bucketUsers, doc.ID, doc); err != nil {
			return err
		}
		return index.Put([]byte(input.Email), []byte(doc.ID))
	})
	if err != nil {
		return storage.User{}, wrap("create user", err)
	}
	return doc.toUser(), nil
}

func (r *userRepository) GetByID(_ context.Context, id string) (storage.User, error) {
	var doc userDoc
	err := r.db.View(func(tx *bolt.Tx) error {
		return getDoc(tx, bucketUsers, id, &doc)
	})
	if err != nil {
		return storage.User{}, wrap("get user", err)
	}
	return doc.toUser(), nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (storage.User, error) {
	var doc userDoc
	err := r.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketUserByEmail).Get([]byte(email))
		if id == nil {
			return storage.ErrNotFound
		}
		return getDoc(tx, bucketUsers, string(id), &doc)
	})
	if err != nil {
		return storage.User{}, wrap("get user", err)
	}
	return doc.toUser(), nil
}
