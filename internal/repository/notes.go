package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/StudyDesk/internal/apperr"
	"github.com/atinyakov/StudyDesk/internal/models"
)

const noteColumns = `id, owner_id, title, body, category, created_at, updated_at, version`

var noteOrder = map[models.NoteSort]string{
	models.SortUpdated: "updated_at DESC, id",
	models.SortCreated: "created_at DESC, id",
	models.SortTitle:   "lower(title), id",
}

// PostgresNoteRepository implements note persistence against a PostgreSQL database.
type PostgresNoteRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresNoteRepository creates a new PostgresNoteRepository using the provided *sql.DB.
func NewPostgresNoteRepository(db *sql.DB) *PostgresNoteRepository {
	return &PostgresNoteRepository{DB: db}
}

func scanNote(s scanner) (*models.Note, error) {
	var n models.Note
	if err := s.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Body, &n.Category, &n.CreatedAt, &n.UpdatedAt, &n.Version); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNotes fetches all notes owned by ownerID in the requested order.
// An unknown sort key falls back to most recently updated first.
//
//	ctx:     context for cancellation and deadlines
//	ownerID: identifier of the owning user
//	sort:    ordering key
//
// Returns an empty, non-nil slice when the user has no notes.
func (r *PostgresNoteRepository) ListNotes(ctx context.Context, ownerID string, sort models.NoteSort) ([]models.Note, error) {
	order, ok := noteOrder[sort]
	if !ok {
		order = noteOrder[models.SortUpdated]
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE owner_id = $1 ORDER BY `+order, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ListNotes: %w", classify(err))
	}
	defer rows.Close()

	notes := make([]models.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListNotes: %w", err)
	}
	return notes, nil
}

// GetNoteByID fetches a note regardless of owner; ownership is decided by the caller.
func (r *PostgresNoteRepository) GetNoteByID(ctx context.Context, id string) (*models.Note, error) {
	n, err := scanNote(r.DB.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("GetNoteByID: %w", classify(err))
	}
	return n, nil
}

// InsertNote stores a new note. ID, owner and timestamps must already be set.
func (r *PostgresNoteRepository) InsertNote(ctx context.Context, n *models.Note) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO notes (id, owner_id, title, body, category, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.ID, n.OwnerID, n.Title, n.Body, n.Category, n.CreatedAt, n.UpdatedAt, n.Version)
	if err != nil {
		return fmt.Errorf("insert note: %w", classify(err))
	}
	return nil
}

// UpdateNote writes the mutable fields of n if the stored row still has
// expectedVersion. On success n.Version is advanced.
// Returns apperr.ErrStaleVersion when no row matched.
func (r *PostgresNoteRepository) UpdateNote(ctx context.Context, n *models.Note, expectedVersion int64) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE notes SET title = $1, body = $2, category = $3, updated_at = $4, version = version + 1
		WHERE id = $5 AND owner_id = $6 AND version = $7
	`, n.Title, n.Body, n.Category, n.UpdatedAt, n.ID, n.OwnerID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update note: %w", classify(err))
	}
	if err := expectOneRow(res, apperr.ErrStaleVersion); err != nil {
		return err
	}
	n.Version = expectedVersion + 1
	return nil
}

// DeleteNote removes a note owned by ownerID.
// Returns apperr.ErrNotFound when nothing was deleted.
func (r *PostgresNoteRepository) DeleteNote(ctx context.Context, ownerID, id string) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM notes WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete note: %w", classify(err))
	}
	return expectOneRow(res, apperr.ErrNotFound)
}
