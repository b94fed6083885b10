package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/StudyDesk/internal/apperr"
	"github.com/atinyakov/StudyDesk/internal/models"
)

const todoColumns = `id, owner_id, plan_id, title, description, category, due_date, is_completed, created_at, updated_at, version`

// PostgresTodoRepository implements todo persistence against a PostgreSQL database.
type PostgresTodoRepository struct {
	DB *sql.DB
}

// NewPostgresTodoRepository creates a new PostgresTodoRepository using the provided *sql.DB.
func NewPostgresTodoRepository(db *sql.DB) *PostgresTodoRepository {
	return &PostgresTodoRepository{DB: db}
}

func scanTodo(s scanner) (*models.Todo, error) {
	var (
		t      models.Todo
		planID sql.NullString
		due    sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.OwnerID, &planID, &t.Title, &t.Description, &t.Category,
		&due, &t.IsCompleted, &t.CreatedAt, &t.UpdatedAt, &t.Version); err != nil {
		return nil, err
	}
	t.PlanID = nullString(planID)
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	return &t, nil
}

// ListTodos fetches the todos owned by ownerID in creation order.
// filter.PlanID restricts to one plan; filter.Standalone to plan-less todos.
func (r *PostgresTodoRepository) ListTodos(ctx context.Context, ownerID string, filter models.TodoFilter) ([]models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE owner_id = $1`
	args := []any{ownerID}
	switch {
	case filter.PlanID != nil:
		query += ` AND plan_id = $2`
		args = append(args, *filter.PlanID)
	case filter.Standalone:
		query += ` AND plan_id IS NULL`
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListTodos: %w", classify(err))
	}
	defer rows.Close()

	todos := make([]models.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		todos = append(todos, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTodos: %w", err)
	}
	return todos, nil
}

// GetTodoByID fetches a todo regardless of owner.
func (r *PostgresTodoRepository) GetTodoByID(ctx context.Context, id string) (*models.Todo, error) {
	t, err := scanTodo(r.DB.QueryRowContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("GetTodoByID: %w", classify(err))
	}
	return t, nil
}

// InsertTodo stores a new todo. A plan that disappeared in the meantime
// surfaces as apperr.ErrNotFound through the foreign key.
func (r *PostgresTodoRepository) InsertTodo(ctx context.Context, t *models.Todo) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO todos (id, owner_id, plan_id, title, description, category, due_date, is_completed, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t.ID, t.OwnerID, t.PlanID, t.Title, t.Description, t.Category, t.DueDate, t.IsCompleted, t.CreatedAt, t.UpdatedAt, t.Version)
	if err != nil {
		return fmt.Errorf("insert todo: %w", classify(err))
	}
	return nil
}

// UpdateTodo writes the mutable fields of t if the stored row still has
// expectedVersion. The plan link is never rewritten.
func (r *PostgresTodoRepository) UpdateTodo(ctx context.Context, t *models.Todo, expectedVersion int64) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE todos SET title = $1, description = $2, category = $3, due_date = $4, is_completed = $5,
			updated_at = $6, version = version + 1
		WHERE id = $7 AND owner_id = $8 AND version = $9
	`, t.Title, t.Description, t.Category, t.DueDate, t.IsCompleted, t.UpdatedAt, t.ID, t.OwnerID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update todo: %w", classify(err))
	}
	if err := expectOneRow(res, apperr.ErrStaleVersion); err != nil {
		return err
	}
	t.Version = expectedVersion + 1
	return nil
}

// DeleteTodo removes a todo owned by ownerID.
func (r *PostgresTodoRepository) DeleteTodo(ctx context.Context, ownerID, id string) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM todos WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete todo: %w", classify(err))
	}
	return expectOneRow(res, apperr.ErrNotFound)
}
