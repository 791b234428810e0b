package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/uptrace/bun/driver/pgdriver"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// mapError classifies a driver error. Serialization failures, deadlocks and
// busy databases become write conflicts, which callers retry; everything
// else is reported as unavailable storage.
func mapError(operation, entity string, err error) error {
	if err == nil || classified(err) {
		return err
	}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Field('C') {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %s %s: %v", ledger.ErrInvariantViolation, operation, entity, err)
		}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %s %s: %v", ledger.ErrInvariantViolation, operation, entity, err)
		}
	}

	return ledger.NewStorageError(operation, entity, err)
}

func classified(err error) bool {
	return ledger.IsUserError(err) ||
		errors.Is(err, ledger.ErrInvariantViolation) ||
		errors.Is(err, ledger.ErrStorageUnavailable) ||
		errors.Is(err, ledger.ErrTransient) ||
		errors.Is(err, ledger.ErrUndeclaredKey)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

