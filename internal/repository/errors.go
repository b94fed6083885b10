// Package repository provides PostgreSQL persistence for users, notes,
// plans and todos.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/StudyDesk/internal/apperr"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// classify maps driver errors onto the apperr taxonomy. Anything it does not
// recognise is returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		return fmt.Errorf("%w: %s", apperr.ErrConflict, pqErr.Message)
	case pgerrcode.ForeignKeyViolation, pgerrcode.InvalidTextRepresentation:
		// A dangling reference or a malformed uuid cannot name a row the
		// caller owns.
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, pqErr.Message)
	}
	return err
}

// expectOneRow turns a zero-row result into ifNone.
func expectOneRow(res sql.Result, ifNone error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ifNone
	}
	return nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
