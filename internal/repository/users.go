package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/StudyDesk/internal/models"
)

// PostgresUserRepository stores identity-provider users.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// UserExists checks whether a user with the specified id exists in the database.
func (r *PostgresUserRepository) UserExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`,
		id,
	).Scan(&exists)
	return exists, err
}

// RegisterUser inserts the user if it is not known yet.
// The ON CONFLICT DO NOTHING clause makes repeated registration a no-op, so
// the first identity claims seen for a user are the ones kept.
func (r *PostgresUserRepository) RegisterUser(ctx context.Context, u models.User) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO users (id, display_name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4) ON CONFLICT (id) DO NOTHING`,
		u.ID, u.DisplayName, u.Email, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	return nil
}

// GetUser fetches a user by id.
func (r *PostgresUserRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, display_name, email, points, level, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.DisplayName, &u.Email, &u.Points, &u.Level, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", classify(err))
	}
	return &u, nil
}
