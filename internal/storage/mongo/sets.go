package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pranathisri21/frame-vault/internal/storage"
)

type setDoc struct {
	ID         string    `bson:"_id"`
	Name       string    `bson:"name"`
	MediaCount int       `bson:"mediaCount"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

func (d setDoc) toSet() storage.Set {
	return storage.Set{
		ID:         d.ID,
		Name:       d.Name,
		MediaCount: d.MediaCount,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
}

// setRepository has no atomic count refresh: callers count items and write
// the result with Update, which can race with a concurrent insert.
type setRepository struct {
	collection
	items *mongo.Collection
}

func (r *setRepository) Create(ctx context.Context, input storage.SetCreate) (storage.Set, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	now := r.now()
	doc := setDoc{
		ID:        uuid.NewString(),
		Name:      input.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return storage.Set{}, translate("insert set", err)
	}
	return doc.toSet(), nil
}

func (r *setRepository) GetByID(ctx context.Context, id string) (storage.Set, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var doc setDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return storage.Set{}, translate("get set", err)
	}
	return doc.toSet(), nil
}

func (r *setRepository) List(ctx context.Context) ([]storage.Set, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, translate("list sets", err)
	}
	defer cur.Close(ctx)

	result := []storage.Set{}
	for cur.Next(ctx) {
		var doc setDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, translate("decode set", err)
		}
		result = append(result, doc.toSet())
	}
	if err := cur.Err(); err != nil {
		return nil, translate("iterate sets", err)
	}
	return result, nil
}

func (r *setRepository) Update(ctx context.Context, id string, input storage.SetUpdate) (storage.Set, error) {
	if input.MediaCount != nil && *input.MediaCount < 0 {
		return storage.Set{}, fmt.Errorf("mongo: update set: negative media count %d", *input.MediaCount)
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	set := bson.M{"updatedAt": r.now()}
	if input.Name != nil {
		set["name"] = *input.Name
	}
	if input.MediaCount != nil {
		set["mediaCount"] = *input.MediaCount
	}

	var doc setDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return storage.Set{}, translate("update set", err)
	}
	return doc.toSet(), nil
}

func (r *setRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	remaining, err := r.items.CountDocuments(ctx, bson.M{"setId": id})
	if err != nil {
		return translate("count items", err)
	}
	if remaining > 0 {
		return fmt.Errorf("mongo: delete set: set %s still owns %d items", id, remaining)
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate("delete set", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
