package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a record does not exist for the tenant.
var ErrNotFound = errors.New("record not found")

// ErrVersionConflict is returned when an optimistic version check fails:
// the row changed between read and write. Callers should re-read and retry.
var ErrVersionConflict = errors.New("concurrent modification")

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
