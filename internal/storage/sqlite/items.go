package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pranathisri21/frame-vault/internal/storage"
)

const itemColumns = `id, set_id, title, media_url, media_type, removal_handle, is_private, taken_at, created_at`

type itemRepository struct {
	db  *sql.DB
	now func() time.Time
}

func (r *itemRepository) Create(ctx context.Context, input storage.ItemCreate) (storage.Item, error) {
	if !input.MediaType.Valid() {
		return storage.Item{}, fmt.Errorf("sqlite: create item: unknown media type %q", input.MediaType)
	}

	var takenAt sql.NullTime
	if input.TakenAt != nil {
		takenAt = sql.NullTime{Time: input.TakenAt.UTC(), Valid: true}
	}

	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id,
		input.SetID,
		input.Title,
		input.MediaURL,
		string(input.MediaType),
		input.RemovalHandle,
		takenAt,
		r.now(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return storage.Item{}, storage.ErrNotFound
		}
		return storage.Item{}, fmt.Errorf("sqlite: create item: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *itemRepository) GetByID(ctx context.Context, id string) (storage.Item, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE id = ?`,
		id,
	)
	return scanItem(row)
}

func (r *itemRepository) List(ctx context.Context) ([]storage.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list items: %w", err)
	}
	return collectItems(rows)
}

// ListBySet deliberately carries no ORDER BY; idx_items_set_id does not cover
// created_at and callers sort after retrieval.
func (r *itemRepository) ListBySet(ctx context.Context, setID string) ([]storage.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE set_id = ?`,
		setID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list items: %w", err)
	}
	return collectItems(rows)
}

func (r *itemRepository) CountBySet(ctx context.Context, setID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE set_id = ?`, setID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count items: %w", err)
	}
	return count, nil
}

func (r *itemRepository) Update(ctx context.Context, id string, input storage.ItemUpdate) (storage.Item, error) {
	setClauses := make([]string, 0, 2)
	args := make([]any, 0, 3)

	if input.Title != nil {
		setClauses = append(setClauses, "title = ?")
		args = append(args, *input.Title)
	}

	if input.IsPrivate != nil {
		setClauses = append(setClauses, "is_private = ?")
		args = append(args, *input.IsPrivate)
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE items SET %s WHERE id = ?", strings.Join(setClauses, ", "))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storage.Item{}, fmt.Errorf("sqlite: update item: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return storage.Item{}, fmt.Errorf("sqlite: update item: %w", err)
	}

	// SQLite reports matched rows, so an idempotent privacy toggle still
	// counts as affected.
	if rowsAffected == 0 {
		return storage.Item{}, storage.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *itemRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete item: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete item: %w", err)
	}

	if rowsAffected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func collectItems(rows *sql.Rows) ([]storage.Item, error) {
	defer rows.Close()

	result := []storage.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list items: %w", err)
	}

	return result, nil
}

func scanItem(s rowScanner) (storage.Item, error) {
	var (
		item         storage.Item
		mediaType    string
		takenAtRaw   sql.NullTime
		createdAtRaw time.Time
	)

	err := s.Scan(
		&item.ID,
		&item.SetID,
		&item.Title,
		&item.MediaURL,
		&mediaType,
		&item.RemovalHandle,
		&item.IsPrivate,
		&takenAtRaw,
		&createdAtRaw,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Item{}, storage.ErrNotFound
		}
		return storage.Item{}, fmt.Errorf("sqlite: scan item: %w", err)
	}

	item.MediaType = storage.MediaType(mediaType)

	if takenAtRaw.Valid {
		t := takenAtRaw.Time.UTC()
		item.TakenAt = &t
	}

	item.CreatedAt = createdAtRaw.UTC()

	return item, nil
}
