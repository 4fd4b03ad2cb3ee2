package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// affected turns a zero-row mutation into [ErrNotFound].
func affected(result sql.Result, what, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return nil
}
