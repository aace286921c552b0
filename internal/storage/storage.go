package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates that the requested entity does not exist in the
	// underlying storage.
	ErrNotFound = errors.New("storage: not found")

	// ErrConflict indicates that a unique constraint would be violated.
	ErrConflict = errors.New("storage: conflict")
)

// Store exposes the persistence primitives required by the application. It is
// expected to be safe for concurrent use.
type Store interface {
	Sets() Sets
	Items() Items
	Users() Users
	Ping(ctx context.Context) error
	Close() error
}

// Set is a named collection of media items.
type Set struct {
	ID         string
	Name       string
	MediaCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SetCreate captures the data required to create a new set.
type SetCreate struct {
	Name string
}

// SetUpdate describes the mutable fields for a set. A nil field indicates
// that no update should be applied for that attribute. Every update refreshes
// UpdatedAt, even when all fields are nil.
type SetUpdate struct {
	Name       *string
	MediaCount *int
}

// Sets defines the operations supported for managing sets. List makes no
// ordering promise.
type Sets interface {
	Create(ctx context.Context, input SetCreate) (Set, error)
	GetByID(ctx context.Context, id string) (Set, error)
	List(ctx context.Context) ([]Set, error)
	Update(ctx context.Context, id string, input SetUpdate) (Set, error)
	Delete(ctx context.Context, id string) error
}

// CountRefresher is implemented by set repositories that can recompute a
// set's media count from the live item count in a single atomic step.
type CountRefresher interface {
	RefreshMediaCount(ctx context.Context, id string) (Set, error)
}

// MediaType tags an item as an image or a video.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Valid reports whether t is a known media type.
func (t MediaType) Valid() bool {
	return t == MediaImage || t == MediaVideo
}

// Item is a single photo or video that belongs to a set.
type Item struct {
	ID            string
	SetID         string
	Title         string
	MediaURL      string
	MediaType     MediaType
	RemovalHandle string
	IsPrivate     bool
	TakenAt       *time.Time
	CreatedAt     time.Time
}

// ItemCreate contains the data required to insert a new item. New items are
// always public.
type ItemCreate struct {
	SetID         string
	Title         string
	MediaURL      string
	MediaType     MediaType
	RemovalHandle string
	TakenAt       *time.Time
}

// ItemUpdate describes the mutable fields for an item.
type ItemUpdate struct {
	Title     *string
	IsPrivate *bool
}

// Items defines the operations supported for managing items. List methods
// make no ordering promise.
type Items interface {
	Create(ctx context.Context, input ItemCreate) (Item, error)
	GetByID(ctx context.Context, id string) (Item, error)
	List(ctx context.Context) ([]Item, error)
	ListBySet(ctx context.Context, setID string) ([]Item, error)
	CountBySet(ctx context.Context, setID string) (int, error)
	Update(ctx context.Context, id string, input ItemUpdate) (Item, error)
	Delete(ctx context.Context, id string) error
}

// User is an account that can sign in to the gallery.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserCreate contains the data required to register a user.
type UserCreate struct {
	Email        string
	PasswordHash string
}

// Users defines persistence operations for accounts. Create returns
// ErrConflict when the email is already registered.
type Users interface {
	Create(ctx context.Context, input UserCreate) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
}
