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

type itemDoc struct {
	ID            string     `bson:"_id"`
	SetID         string     `bson:"setId"`
	Title         string     `bson:"title"`
	MediaURL      string     `bson:"mediaUrl"`
	MediaType     string     `bson:"type"`
	RemovalHandle string     `bson:"publicId"`
	IsPrivate     bool       `bson:"isPrivate"`
	TakenAt       *time.Time `bson:"takenAt,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt"`
}

func (d itemDoc) toItem() storage.Item {
	item := storage.Item{
		ID:            d.ID,
		SetID:         d.SetID,
		Title:         d.Title,
		MediaURL:      d.MediaURL,
		MediaType:     storage.MediaType(d.MediaType),
		RemovalHandle: d.RemovalHandle,
		IsPrivate:     d.IsPrivate,
		CreatedAt:     d.CreatedAt.UTC(),
	}
	if d.TakenAt != nil {
		t := d.TakenAt.UTC()
		item.TakenAt = &t
	}
	return item
}

type itemRepository struct {
	collection
	sets *mongo.Collection
}

// Create checks that the owning set exists before inserting. The check and
// the insert are separate round trips.
func (r *itemRepository) Create(ctx context.Context, input storage.ItemCreate) (storage.Item, error) {
	if !input.MediaType.Valid() {
		return storage.Item{}, fmt.Errorf("mongo: create item: unknown media type %q", input.MediaType)
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	owners, err := r.sets.CountDocuments(ctx, bson.M{"_id": input.SetID}, options.Count().SetLimit(1))
	if err != nil {
		return storage.Item{}, translate("check set", err)
	}
	if owners == 0 {
		return storage.Item{}, storage.ErrNotFound
	}

	doc := itemDoc{
		ID:            uuid.NewString(),
		SetID:         input.SetID,
		Title:         input.Title,
		MediaURL:      input.MediaURL,
		MediaType:     string(input.MediaType),
		RemovalHandle: input.RemovalHandle,
		CreatedAt:     r.now(),
	}
	if input.TakenAt != nil {
		t := input.TakenAt.UTC()
		doc.TakenAt = &t
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return storage.Item{}, translate("insert item", err)
	}
	return doc.toItem(), nil
}

func (r *itemRepository) GetByID(ctx context.Context, id string) (storage.Item, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var doc itemDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return storage.Item{}, translate("get item", err)
	}
	return doc.toItem(), nil
}

func (r *itemRepository) List(ctx context.Context) ([]storage.Item, error) {
	return r.find(ctx, bson.M{})
}

func (r *itemRepository) ListBySet(ctx context.Context, setID string) ([]storage.Item, error) {
	return r.find(ctx, bson.M{"setId": setID})
}

func (r *itemRepository) CountBySet(ctx context.Context, setID string) (int, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{"setId": setID})
	if err != nil {
		return 0, translate("count items", err)
	}
	return int(n), nil
}

func (r *itemRepository) Update(ctx context.Context, id string, input storage.ItemUpdate) (storage.Item, error) {
	set := bson.M{}
	if input.Title != nil {
		set["title"] = *input.Title
	}
	if input.IsPrivate != nil {
		set["isPrivate"] = *input.IsPrivate
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var doc itemDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return storage.Item{}, translate("update item", err)
	}
	return doc.toItem(), nil
}

func (r *itemRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate("delete item", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *itemRepository) find(ctx context.Context, filter bson.M) ([]storage.Item, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, translate("list items", err)
	}
	defer cur.Close(ctx)

	result := []storage.Item{}
	for cur.Next(ctx) {
		var doc itemDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, translate("decode item", err)
		}
		result = append(result, doc.toItem())
	}
	if err := cur.Err(); err != nil {
		return nil, translate("iterate items", err)
	}
	return result, nil
}
