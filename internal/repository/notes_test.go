package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/StudyDesk/internal/apperr"
	"github.com/atinyakov/StudyDesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupNoteMock(t *testing.T) (*PostgresNoteRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresNoteRepository(db)
	cleanup := func() {
		db.Close()
	}
	return repo, mock, cleanup
}

var noteCols = []string{"id", "owner_id", "title", "body", "category", "created_at", "updated_at", "version"}

func TestListNotes_DefaultOrder(t *testing.T) {
	repo, mock, cleanup := setupNoteMock(t)
	defer cleanup()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(noteCols).
		AddRow("n2", "u1", "Second", "b", "", now, now.Add(time.Hour), int64(2)).
		AddRow("n1", "u1", "First", "a", "math", now, now, int64(1))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM notes WHERE owner_id = $1 ORDER BY updated_at DESC, id`)).
		WithArgs("u1").
		WillReturnRows(rows)

	notes, err := repo.ListNotes(context.Background(), "u1", "")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "n2", notes[0].ID)
	assert.Equal(t, "u1", notes[1].OwnerID)
	assert.Equal(t, "math", notes[1].Category)
	assert.Equal(t, int64(2), notes[0].Version)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListNotes_SortKeys(t *testing.T) {
	cases := map[models.NoteSort]string{
		models.SortCreated: "ORDER BY created_at DESC, id",
		models.SortTitle:   "ORDER BY lower(title), id",
		"bogus":            "ORDER BY updated_at DESC, id",
	}
	for sort, order := range cases {
		t.Run(string(sort), func(t *testing.T) {
			repo, mock, cleanup := setupNoteMock(t)
			defer cleanup()

			mock.ExpectQuery(regexp.QuoteMeta(order)).
				WithArgs("u1").
				WillReturnRows(sqlmock.NewRows(noteCols))

			notes, err := repo.ListNotes(context.Background(), "u1", sort)
			require.NoError(t, err)
			assert.NotNil(t, notes)
			assert.Empty(t, notes)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListNotes_QueryError(t *testing.T) {
	repo, mock, cleanup := setupNoteMock(t)
	defer cleanup()

	mock.ExpectQuery("FROM notes").WillReturnError(errors.New("query fail"))

	_, err := repo.ListNotes(context.Background(), "u1", models.SortUpdated)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ListNotes")
}

func TestGetNoteByID(t *testing.T) {
	repo, mock, cleanup := setupNoteMock(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM notes WHERE id = $1`)).
		WithArgs("n1").
		WillReturnRows(sqlmock.NewRows(noteCols).AddRow("n1", "owner", "T", "B", "", now, now, int64(4)))

	n, err := repo.GetNoteByID(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, "owner", n.OwnerID)
	assert.Equal(t, int64(4), n.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNoteByID_NotFound(t *testing.T) {
	repo, mock, cleanup := setupNoteMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM notes WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(noteCols))

	_, err := repo.GetNoteByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInsertNote(t *testing.T) {
	repo, mock, cleanup := setupNoteMock(t)
	defer cleanup()

	now := time.Now().UTC()
	n := &models.Note{ID: "n1", OwnerID: "u1", Title: "T", Body: "B", CreatedAt: now, UpdatedAt: now, Version: 1}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO notes (id, owner_id, title, body, category, created_at, updated_at, version)`)).
		WithArgs("n1", "u1", "T", "B", "", now, now, int64(1)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.InsertNote(context.Background(), n))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNote(t *testing.T) {
	repo, mock, cleanup := setupNoteMock(t)
	defer cleanup()

	now := time.Now().UTC()
	n := &models.Note{ID: "n1", OwnerID: "u1", Title: "T2", Body: "B", UpdatedAt: now}

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE notes SET title = $1, body = $2, category = $3, updated_at = $4, version = version + 1`)).
		WithArgs("T2", "B", "", now, "n1", "u1", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateNote(context.Background(), n, 3))
	assert.Equal(t, int64(4), n.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNote_StaleVersion(t *testing.T) {
	repo, mock, cleanup := setupNoteMock(t)
	defer cleanup()

	n := &models.Note{ID: "n1", OwnerID: "u1"}
	mock.ExpectExec("UPDATE notes").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateNote(context.Background(), n, 3)
	assert.ErrorIs(t, err, apperr.ErrStaleVersion)
	assert.Equal(t, int64(0), n.Version)
}

func TestDeleteNote(t *testing.T) {
	repo, mock, cleanup := setupNoteMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM notes WHERE id = $1 AND owner_id = $2`)).
		WithArgs("n1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteNote(context.Background(), "u1", "n1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteNote_AlreadyGone(t *testing.T) {
	repo, mock, cleanup := setupNoteMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM notes`)).
		WithArgs("n1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.DeleteNote(context.Background(), "u1", "n1"), apperr.ErrNotFound)
}
