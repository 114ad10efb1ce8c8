// Package repository holds the sqlx-backed stores for every persisted entity.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/illegalcall/fitcoach/internal/apperrors"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// wrap maps a storage error onto the application taxonomy. A missing row
// becomes ErrNotFound annotated with what was looked up.
func wrap(op, entity string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", entity, apperrors.ErrNotFound)
	}
	return &apperrors.PersistenceError{Op: op, Err: err}
}
