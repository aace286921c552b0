// Package gallery owns sets and items. It keeps each set's media count in
// step with its items, cascades set deletion to items, and returns lists in
// a deterministic newest-first order whatever the backing store does.
package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/sync/errgroup"

	"github.com/pranathisri21/frame-vault/internal/mediahost"
	"github.com/pranathisri21/frame-vault/internal/storage"
)

const (
	defaultDeleteConcurrency = 8
	maxCleanPasses           = 4
)

// Cleanup accepts host assets that should be removed in the background.
type Cleanup interface {
	Enqueue(r mediahost.Removal) bool
}

// Repository is the entry point for every set and item operation.
type Repository struct {
	store   storage.Store
	host    mediahost.Host
	cleanup Cleanup
	logger  *slog.Logger
	policy  *bluemonday.Policy

	deleteConcurrency int
}

// Option customises a Repository.
type Option func(*Repository)

// WithCleanup routes asset removals to c. Without it removals are skipped.
func WithCleanup(c Cleanup) Option {
	return func(r *Repository) {
		r.cleanup = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDeleteConcurrency bounds the number of item deletes DeleteSet issues
// at once.
func WithDeleteConcurrency(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.deleteConcurrency = n
		}
	}
}

func New(store storage.Store, host mediahost.Host, opts ...Option) *Repository {
	r := &Repository{
		store:             store,
		host:              host,
		logger:            slog.Default(),
		policy:            bluemonday.StrictPolicy(),
		deleteConcurrency: defaultDeleteConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetChanges lists the set fields to update. Nil fields are left alone.
type SetChanges struct {
	Name *string
}

// File is an uploaded file.
type File struct {
	Name string
	Data []byte
}

// NewItem describes an item to create. An empty Title is derived from the
// file name.
type NewItem struct {
	SetID string
	Title string
	File  File
}

func (r *Repository) CreateSet(ctx context.Context, name string) (storage.Set, error) {
	name = r.clean(name)
	if name == "" {
		return storage.Set{}, &ValidationError{Field: "name", Message: "must not be empty"}
	}

	set, err := r.store.Sets().Create(ctx, storage.SetCreate{Name: name})
	if err != nil {
		return storage.Set{}, &StoreError{Op: "create set", Err: err}
	}
	return set, nil
}

// ListSets returns every set, newest first.
func (r *Repository) ListSets(ctx context.Context) ([]storage.Set, error) {
	sets, err := r.store.Sets().List(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list sets", Err: err}
	}
	if sets == nil {
		sets = []storage.Set{}
	}
	SortSets(sets)
	return sets, nil
}

func (r *Repository) GetSet(ctx context.Context, id string) (storage.Set, error) {
	set, err := r.store.Sets().GetByID(ctx, id)
	if err != nil {
		return storage.Set{}, storeFailure("get set", "set", id, err)
	}
	return set, nil
}

// UpdateSet applies changes and always bumps updatedAt, even when changes
// is empty.
func (r *Repository) UpdateSet(ctx context.Context, id string, changes SetChanges) (storage.Set, error) {
	var update storage.SetUpdate
	if changes.Name != nil {
		name := r.clean(*changes.Name)
		if name == "" {
			return storage.Set{}, &ValidationError{Field: "name", Message: "must not be empty"}
		}
		update.Name = &name
	}

	set, err := r.store.Sets().Update(ctx, id, update)
	if err != nil {
		return storage.Set{}, storeFailure("update set", "set", id, err)
	}
	return set, nil
}

func (r *Repository) RenameSet(ctx context.Context, id, name string) (storage.Set, error) {
	return r.UpdateSet(ctx, id, SetChanges{Name: &name})
}

// RefreshSetCount recomputes the set's media count from its live items.
func (r *Repository) RefreshSetCount(ctx context.Context, id string) (storage.Set, error) {
	set, err := r.refreshCount(ctx, id)
	if err != nil {
		return storage.Set{}, storeFailure("refresh media count", "set", id, err)
	}
	return set, nil
}

// DeleteSet removes every item of the set and then the set itself. Item
// deletes run concurrently; if any fails the set is kept, items already
// removed stay removed, and a StoreError says how far the cascade got.
func (r *Repository) DeleteSet(ctx context.Context, id string) error {
	if _, err := r.store.Sets().GetByID(ctx, id); err != nil {
		return storeFailure("get set", "set", id, err)
	}

	items, err := r.store.Items().ListBySet(ctx, id)
	if err != nil {
		return &StoreError{Op: "list items of set " + id, Err: err}
	}

	var removed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.deleteConcurrency)
	for _, item := range items {
		g.Go(func() error {
			err := r.store.Items().Delete(gctx, item.ID)
			switch {
			case errors.Is(err, storage.ErrNotFound):
			case err != nil:
				return fmt.Errorf("delete item %s: %w", item.ID, err)
			default:
				r.reclaim(item.RemovalHandle, item.MediaType)
			}
			removed.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if _, rerr := r.refreshCount(ctx, id); rerr != nil {
			r.logger.Warn("failed to refresh media count after partial delete", "set_id", id, "error", rerr)
		}
		return &StoreError{
			Op:  fmt.Sprintf("delete set %s: removed %d of %d items", id, removed.Load(), len(items)),
			Err: err,
		}
	}

	if err := r.store.Sets().Delete(ctx, id); err != nil {
		return storeFailure("delete set", "set", id, err)
	}
	return nil
}

// CreateItem checks the set exists, uploads the file, persists the item and
// recomputes the set's media count, in that order. If only the last step
// fails the item is returned together with a *CountRefreshError.
func (r *Repository) CreateItem(ctx context.Context, in NewItem) (storage.Item, error) {
	if strings.TrimSpace(in.SetID) == "" {
		return storage.Item{}, &ValidationError{Field: "setId", Message: "must not be empty"}
	}
	if len(in.File.Data) == 0 {
		return storage.Item{}, &ValidationError{Field: "file", Message: "must not be empty"}
	}

	title := r.clean(in.Title)
	if title == "" {
		title = DeriveTitle(in.File.Name)
	}

	if _, err := r.store.Sets().GetByID(ctx, in.SetID); err != nil {
		return storage.Item{}, storeFailure("get set", "set", in.SetID, err)
	}

	kind, contentType, _ := mediahost.DetectKind(in.File.Data)
	asset, err := r.host.Upload(ctx, mediahost.Object{
		Name:        in.File.Name,
		ContentType: contentType,
		Kind:        kind,
		Data:        in.File.Data,
	})
	if err != nil {
		return storage.Item{}, &UploadError{Name: in.File.Name, Err: err}
	}
	if asset.Kind == "" {
		asset.Kind = kind
	}

	input := storage.ItemCreate{
		SetID:         in.SetID,
		Title:         title,
		MediaURL:      asset.URL,
		MediaType:     storage.MediaType(asset.Kind),
		RemovalHandle: asset.PublicID,
	}
	if asset.Kind == mediahost.KindImage {
		input.TakenAt = captureTime(in.File.Data)
	}

	item, err := r.store.Items().Create(ctx, input)
	if err != nil {
		r.reclaim(asset.PublicID, storage.MediaType(asset.Kind))
		return storage.Item{}, storeFailure("create item", "set", in.SetID, err)
	}

	if _, err := r.refreshCount(ctx, in.SetID); err != nil {
		r.logger.Warn("item saved with stale media count", "set_id", in.SetID, "item_id", item.ID, "error", err)
		return item, &CountRefreshError{SetID: in.SetID, Err: err}
	}
	return item, nil
}

// BatchFailure records a file that could not be turned into an item.
type BatchFailure struct {
	Name string
	Err  error
}

// BatchResult is the outcome of CreateItems. StaleCount is set when at least
// one item was saved without a successful count refresh.
type BatchResult struct {
	Items      []storage.Item
	Failures   []BatchFailure
	StaleCount bool
}

// CreateItems uploads files one after another. With more than one file each
// title gets a " (n)" suffix. A failing file does not stop the rest.
func (r *Repository) CreateItems(ctx context.Context, setID, title string, files []File) BatchResult {
	result := BatchResult{Items: []storage.Item{}}
	title = r.clean(title)

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			result.Failures = append(result.Failures, BatchFailure{Name: file.Name, Err: err})
			continue
		}

		itemTitle := title
		if itemTitle == "" {
			itemTitle = DeriveTitle(file.Name)
		}
		if len(files) > 1 {
			itemTitle = fmt.Sprintf("%s (%d)", itemTitle, i+1)
		}

		item, err := r.CreateItem(ctx, NewItem{SetID: setID, Title: itemTitle, File: file})
		var stale *CountRefreshError
		switch {
		case errors.As(err, &stale):
			result.StaleCount = true
			result.Items = append(result.Items, item)
		case err != nil:
			result.Failures = append(result.Failures, BatchFailure{Name: file.Name, Err: err})
		default:
			result.Items = append(result.Items, item)
		}
	}
	return result
}

// ListItemsBySet returns the set's items newest first. Private items are
// dropped unless includePrivate is set.
func (r *Repository) ListItemsBySet(ctx context.Context, setID string, includePrivate bool) ([]storage.Item, error) {
	items, err := r.store.Items().ListBySet(ctx, setID)
	if err != nil {
		return nil, &StoreError{Op: "list items of set " + setID, Err: err}
	}
	return arrange(items, includePrivate), nil
}

// ListItems returns items across all sets, newest first.
func (r *Repository) ListItems(ctx context.Context, includePrivate bool) ([]storage.Item, error) {
	items, err := r.store.Items().List(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list items", Err: err}
	}
	return arrange(items, includePrivate), nil
}

func (r *Repository) GetItem(ctx context.Context, id string) (storage.Item, error) {
	item, err := r.store.Items().GetByID(ctx, id)
	if err != nil {
		return storage.Item{}, storeFailure("get item", "item", id, err)
	}
	return item, nil
}

// ItemChanges lists the item fields to update. Nil fields are left alone.
type ItemChanges struct {
	Title     *string
	IsPrivate *bool
}

// UpdateItem applies every change in a single write, so either all of them
// are saved or none is.
func (r *Repository) UpdateItem(ctx context.Context, id string, changes ItemChanges) (storage.Item, error) {
	var update storage.ItemUpdate
	if changes.Title != nil {
		title := r.clean(*changes.Title)
		if title == "" {
			return storage.Item{}, &ValidationError{Field: "title", Message: "must not be empty"}
		}
		update.Title = &title
	}
	update.IsPrivate = changes.IsPrivate

	item, err := r.store.Items().Update(ctx, id, update)
	if err != nil {
		return storage.Item{}, storeFailure("update item", "item", id, err)
	}
	return item, nil
}

func (r *Repository) SetItemPrivacy(ctx context.Context, id string, isPrivate bool) (storage.Item, error) {
	return r.UpdateItem(ctx, id, ItemChanges{IsPrivate: &isPrivate})
}

func (r *Repository) RenameItem(ctx context.Context, id, title string) (storage.Item, error) {
	return r.UpdateItem(ctx, id, ItemChanges{Title: &title})
}

// DeleteItem removes the item record and queues its asset for removal. The
// owning set's media count is left as is; call RefreshSetCount with the
// returned item's SetID to bring it back in line.
func (r *Repository) DeleteItem(ctx context.Context, id string) (storage.Item, error) {
	item, err := r.store.Items().GetByID(ctx, id)
	if err != nil {
		return storage.Item{}, storeFailure("get item", "item", id, err)
	}

	if err := r.store.Items().Delete(ctx, id); err != nil {
		return storage.Item{}, storeFailure("delete item", "item", id, err)
	}

	r.reclaim(item.RemovalHandle, item.MediaType)
	return item, nil
}

func (r *Repository) refreshCount(ctx context.Context, setID string) (storage.Set, error) {
	if refresher, ok := r.store.Sets().(storage.CountRefresher); ok {
		return refresher.RefreshMediaCount(ctx, setID)
	}

	count, err := r.store.Items().CountBySet(ctx, setID)
	if err != nil {
		return storage.Set{}, err
	}
	return r.store.Sets().Update(ctx, setID, storage.SetUpdate{MediaCount: &count})
}

func (r *Repository) reclaim(publicID string, mediaType storage.MediaType) {
	if publicID == "" {
		return
	}
	if r.cleanup == nil {
		r.logger.Debug("no cleanup configured, leaving media asset on host", "public_id", publicID)
		return
	}
	r.cleanup.Enqueue(mediahost.Removal{PublicID: publicID, Kind: mediahost.Kind(mediaType)})
}

// clean strips markup from user supplied names and titles. Entity-encoded
// markup is decoded and stripped again until the value settles.
func (r *Repository) clean(s string) string {
	for range maxCleanPasses {
		next := html.UnescapeString(r.policy.Sanitize(html.UnescapeString(s)))
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}

func arrange(items []storage.Item, includePrivate bool) []storage.Item {
	if items == nil {
		return []storage.Item{}
	}
	if !includePrivate {
		items = filterPublic(items)
	}
	SortItems(items)
	return items
}

// captureTime reads DateTimeOriginal from EXIF data. Files without EXIF
// yield nil.
func captureTime(data []byte) (taken *time.Time) {
	// goexif can panic on truncated TIFF headers.
	defer func() {
		if recover() != nil {
			taken = nil
		}
	}()

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	t, err := x.DateTime()
	if err != nil || t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}
