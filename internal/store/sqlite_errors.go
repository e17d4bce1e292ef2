package store

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
)

// classifySQLiteError translates driver-level failures into the store's
// sentinel taxonomy. Unrecognised errors pass through unchanged so the
// caller sees the original cause.
func classifySQLiteError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrObjectNotFound
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return ErrPrimaryKeyUnavailable
		}
	}

	return err
}
