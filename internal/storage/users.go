package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kharcha/internal/core"
)

// CreateUser persists a new user. Username and email are unique; a clash
// with an existing account returns ErrUserExists. The ID and CreatedAt
// fields are populated if unset.
func (r *Repository) CreateUser(ctx context.Context, u *core.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt.UTC().Format(createdAtFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail returns the user with the given email, or ErrNotFound.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return r.getUser(ctx, "email", email)
}

// GetUserByUsername returns the user with the given username, or ErrNotFound.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return r.getUser(ctx, "username", username)
}

// GetUserByID returns the user with the given ID, or ErrNotFound.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	return r.getUser(ctx, "id", id)
}

func (r *Repository) getUser(ctx context.Context, column, value string) (*core.User, error) {
	var (
		u         core.User
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE `+column+` = ?`,
		value,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}
	if u.CreatedAt, err = time.Parse(createdAtFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return &u, nil
}
