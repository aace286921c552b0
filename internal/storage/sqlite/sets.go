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

type setRepository struct {
	db  *sql.DB
	now func() time.Time
}

func (r *setRepository) Create(ctx context.Context, input storage.SetCreate) (storage.Set, error) {
	id := uuid.NewString()
	now := r.now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sets (id, name, media_count, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)`,
		id,
		input.Name,
		now,
		now,
	)
	if err != nil {
		return storage.Set{}, fmt.Errorf("sqlite: create set: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *setRepository) GetByID(ctx context.Context, id string) (storage.Set, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, media_count, created_at, updated_at
		FROM sets
		WHERE id = ?`,
		id,
	)
	return scanSet(row)
}

func (r *setRepository) List(ctx context.Context) ([]storage.Set, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, media_count, created_at, updated_at
		FROM sets
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list sets: %w", err)
	}
	defer rows.Close()

	result := []storage.Set{}
	for rows.Next() {
		set, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, set)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list sets: %w", err)
	}

	return result, nil
}

func (r *setRepository) Update(ctx context.Context, id string, input storage.SetUpdate) (storage.Set, error) {
	setClauses := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if input.Name != nil {
		setClauses = append(setClauses, "name = ?")
		args = append(args, *input.Name)
	}

	if input.MediaCount != nil {
		if *input.MediaCount < 0 {
			return storage.Set{}, fmt.Errorf("sqlite: update set: negative media count %d", *input.MediaCount)
		}
		setClauses = append(setClauses, "media_count = ?")
		args = append(args, *input.MediaCount)
	}

	setClauses = append(setClauses, "updated_at = ?")
	args = append(args, r.now())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE sets SET %s WHERE id = ?", strings.Join(setClauses, ", "))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storage.Set{}, fmt.Errorf("sqlite: update set: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return storage.Set{}, fmt.Errorf("sqlite: update set: %w", err)
	}

	if rowsAffected == 0 {
		return storage.Set{}, storage.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// RefreshMediaCount recomputes media_count from the items table inside a
// single statement, so concurrent item inserts cannot interleave between the
// count and the write.
func (r *setRepository) RefreshMediaCount(ctx context.Context, id string) (storage.Set, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sets
		SET media_count = (SELECT COUNT(*) FROM items WHERE set_id = sets.id),
			updated_at = ?
		WHERE id = ?`,
		r.now(),
		id,
	)
	if err != nil {
		return storage.Set{}, fmt.Errorf("sqlite: refresh media count: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return storage.Set{}, fmt.Errorf("sqlite: refresh media count: %w", err)
	}

	if rowsAffected == 0 {
		return storage.Set{}, storage.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *setRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete set: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete set: %w", err)
	}

	if rowsAffected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func scanSet(s rowScanner) (storage.Set, error) {
	var (
		set          storage.Set
		createdAtRaw time.Time
		updatedAtRaw time.Time
	)

	err := s.Scan(
		&set.ID,
		&set.Name,
		&set.MediaCount,
		&createdAtRaw,
		&updatedAtRaw,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Set{}, storage.ErrNotFound
		}
		return storage.Set{}, fmt.Errorf("sqlite: scan set: %w", err)
	}

	set.CreatedAt = createdAtRaw.UTC()
	set.UpdatedAt = updatedAtRaw.UTC()

	return set, nil
}
