package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/StudyDesk/internal/apperr"
	"github.com/atinyakov/StudyDesk/internal/models"
)

const planColumns = `id, owner_id, title, created_at, updated_at, version`

// PostgresPlanRepository implements plan persistence against a PostgreSQL database.
type PostgresPlanRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresPlanRepository creates a new PostgresPlanRepository using the provided *sql.DB.
func NewPostgresPlanRepository(db *sql.DB) *PostgresPlanRepository {
	return &PostgresPlanRepository{DB: db}
}

func scanPlan(s scanner) (*models.Plan, error) {
	var p models.Plan
	if err := s.Scan(&p.ID, &p.OwnerID, &p.Title, &p.CreatedAt, &p.UpdatedAt, &p.Version); err != nil {
		return nil, err
	}
	p.Tasks = []models.Todo{}
	return &p, nil
}

// ListPlans fetches all plans of ownerID in creation order, each with its
// todos in creation order.
//
//	ctx:     context for cancellation and deadlines
//	ownerID: identifier of the owning user
//
// Returns an empty, non-nil slice when the user has no plans.
func (r *PostgresPlanRepository) ListPlans(ctx context.Context, ownerID string) ([]models.Plan, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE owner_id = $1 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ListPlans: %w", classify(err))
	}
	defer rows.Close()

	plans := make([]models.Plan, 0)
	index := make(map[string]int)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		index[p.ID] = len(plans)
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListPlans: %w", err)
	}
	if len(plans) == 0 {
		return plans, nil
	}

	taskRows, err := r.DB.QueryContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE owner_id = $1 AND plan_id IS NOT NULL ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ListPlans tasks: %w", classify(err))
	}
	defer taskRows.Close()

	for taskRows.Next() {
		t, err := scanTodo(taskRows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		// A plan created after the first query has no slot; skip its todos.
		if i, ok := index[*t.PlanID]; ok {
			plans[i].Tasks = append(plans[i].Tasks, *t)
		}
	}
	if err := taskRows.Err(); err != nil {
		return nil, fmt.Errorf("ListPlans tasks: %w", err)
	}
	return plans, nil
}

// GetPlanByID fetches a plan without its tasks, regardless of owner.
func (r *PostgresPlanRepository) GetPlanByID(ctx context.Context, id string) (*models.Plan, error) {
	p, err := scanPlan(r.DB.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("GetPlanByID: %w", classify(err))
	}
	return p, nil
}

// InsertPlan stores a new plan.
func (r *PostgresPlanRepository) InsertPlan(ctx context.Context, p *models.Plan) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO plans (id, owner_id, title, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.OwnerID, p.Title, p.CreatedAt, p.UpdatedAt, p.Version)
	if err != nil {
		return fmt.Errorf("insert plan: %w", classify(err))
	}
	return nil
}

// UpdatePlan writes the plan title if the stored row still has expectedVersion.
func (r *PostgresPlanRepository) UpdatePlan(ctx context.Context, p *models.Plan, expectedVersion int64) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE plans SET title = $1, updated_at = $2, version = version + 1
		WHERE id = $3 AND owner_id = $4 AND version = $5
	`, p.Title, p.UpdatedAt, p.ID, p.OwnerID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update plan: %w", classify(err))
	}
	if err := expectOneRow(res, apperr.ErrStaleVersion); err != nil {
		return err
	}
	p.Version = expectedVersion + 1
	return nil
}

// DeletePlan removes a plan owned by ownerID together with all of its todos
// in one transaction. Either everything is removed or nothing is.
//
// Returns the number of todos removed, or apperr.ErrNotFound when the plan
// no longer exists for this owner.
func (r *PostgresPlanRepository) DeletePlan(ctx context.Context, ownerID, id string) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM todos WHERE plan_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete plan todos: %w", classify(err))
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM plans WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete plan: %w", classify(err))
	}
	if err := expectOneRow(res, apperr.ErrNotFound); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", classify(err))
	}
	return removed, nil
}
