package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pranathisri21/frame-vault/internal/storage"
)

type userRepository struct {
	db  *sql.DB
	now func() time.Time
}

func (r *userRepository) Create(ctx context.Context, input storage.UserCreate) (storage.User, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		id,
		input.Email,
		input.PasswordHash,
		r.now(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.User{}, storage.ErrConflict
		}
		return storage.User{}, fmt.Errorf("sqlite: create user: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (storage.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (storage.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = ?`,
		email,
	)
	return scanUser(row)
}

func scanUser(s rowScanner) (storage.User, error) {
	var (
		user         storage.User
		createdAtRaw time.Time
	)

	if err := s.Scan(&user.ID, &user.Email, &user.PasswordHash, &createdAtRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, fmt.Errorf("sqlite: scan user: %w", err)
	}

	user.CreatedAt = createdAtRaw.UTC()
	return user, nil
}
