// Package mongo implements storage.Store on MongoDB. Sets, items and users
// live in the mediaSets, mediaItems and users collections.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pranathisri21/frame-vault/internal/storage"
)

const (
	collectionSets  = "mediaSets"
	collectionItems = "mediaItems"
	collectionUsers = "users"

	defaultOpTimeout = 10 * time.Second
)

// Store is a MongoDB-backed storage.Store.
type Store struct {
	client *mongo.Client
	sets   *setRepository
	items  *itemRepository
	users  *userRepository
}

// Option customises a Store.
type Option func(*settings)

type settings struct {
	now       func() time.Time
	opTimeout time.Duration
}

// WithClock overrides the clock used to stamp documents.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// WithOpTimeout bounds every individual database call.
func WithOpTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// Open connects to uri, pings the server and makes sure the indexes exist.
func Open(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	if uri == "" || database == "" {
		return nil, fmt.Errorf("mongo: uri and database must not be empty")
	}

	s := settings{now: time.Now, opTimeout: defaultOpTimeout}
	for _, opt := range opts {
		opt(&s)
	}

	connectCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	db := client.Database(database)
	if err := ensureIndexes(connectCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	base := collection{
		now:     storeClock(s.now),
		timeout: s.opTimeout,
	}

	sets := base
	sets.coll = db.Collection(collectionSets)
	items := base
	items.coll = db.Collection(collectionItems)
	users := base
	users.coll = db.Collection(collectionUsers)

	return &Store{
		client: client,
		sets:   &setRepository{collection: sets, items: items.coll},
		items:  &itemRepository{collection: items, sets: sets.coll},
		users:  &userRepository{collection: users},
	}, nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(collectionItems).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "setId", Value: 1}},
		Options: options.Index().SetName("set_id_idx"),
	})
	if err != nil {
		return fmt.Errorf("mongo: create item index: %w", err)
	}

	_, err = db.Collection(collectionUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("email_unique").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo: create user index: %w", err)
	}
	return nil
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

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultOpTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// storeClock matches the millisecond precision of BSON dates so values
// returned from writes equal the values read back later.
func storeClock(now func() time.Time) func() time.Time {
	return func() time.Time {
		return now().UTC().Truncate(time.Millisecond)
	}
}

// collection carries the shared plumbing for every repository.
type collection struct {
	coll    *mongo.Collection
	now     func() time.Time
	timeout time.Duration
}

func (c collection) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.timeout)
}

// translate maps driver errors onto the storage sentinels.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return storage.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return storage.ErrConflict
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrConflict):
		return err
	default:
		return fmt.Errorf("mongo: %s: %w", op, err)
	}
}

var _ storage.Store = (*Store)(nil)
