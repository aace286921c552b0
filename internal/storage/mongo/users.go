package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/pranathisri21/frame-vault/internal/storage"
)

type userDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

func (d userDoc) toUser() storage.User {
	return storage.User{ID: d.ID, Email: d.Email, PasswordHash: d.PasswordHash, CreatedAt: d.CreatedAt.UTC()}
}

type userRepository struct {
	collection
}

func (r *userRepository) Create(ctx context.Context, input storage.UserCreate) (storage.User, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	doc := userDoc{
		ID:           uuid.NewString(),
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		CreatedAt:    r.now(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return storage.User{}, translate("insert user", err)
	}
	return doc.toUser(), nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (storage.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (storage.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (storage.User, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return storage.User{}, translate("get user", err)
	}
	return doc.toUser(), nil
}
